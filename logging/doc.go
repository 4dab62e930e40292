// Package logging provides a minimal logging interface and adapters for rsamesh.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that agents and the engine use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping a *slog.Logger
//   - MeshLogger with component/run scoping and RSA specific helpers
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	eng, err := engine.New(agents, func(o *engine.Options) { o.Logger = logger })
package logging
