// Package model defines the provider-agnostic Model abstraction and the
// deterministic MockModel used for offline runs and tests.
//
// Providers (OpenAI, Anthropic, AI Horde) live in sub-packages and satisfy
// Model, which is core.GenerationBackend plus descriptive Info, so agents and
// the engine stay decoupled from vendor SDKs.
package model
