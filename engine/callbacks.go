package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/rsamesh/core"
	"github.com/hupe1980/rsamesh/logging"
)

// CallbackType defines the lifecycle points of a run where callbacks execute.
//
// Available callback types:
//   - BeforeRun: after parameters are resolved, before the safety check
//   - AfterRound: after a round's population is recorded
//   - OnDegradedSlot: once per slot whose generation failed in a round
//   - OnCrisis: when the safety check short-circuits a run
//   - AfterRun: after the final answer is chosen (also after a crisis)
//
// Callbacks run synchronously on the orchestrating goroutine, never from the
// per-slot workers. A callback returning an error aborts the run.
type CallbackType string

const (
	// CallbackBeforeRun is triggered once parameters are resolved.
	CallbackBeforeRun CallbackType = "before_run"

	// CallbackAfterRound is triggered after each completed round.
	// CallbackContext.Record holds the round's snapshot.
	CallbackAfterRound CallbackType = "after_round"

	// CallbackOnDegradedSlot is triggered for every slot that produced an
	// error marker response. Slot and AgentID identify it.
	CallbackOnDegradedSlot CallbackType = "on_degraded_slot"

	// CallbackOnCrisis is triggered when an agent raised a safety alert.
	CallbackOnCrisis CallbackType = "on_crisis"

	// CallbackAfterRun is triggered with the final result.
	CallbackAfterRun CallbackType = "after_run"
)

// CallbackContext carries run state to callbacks. Fields that do not apply
// to a callback type are left zero.
type CallbackContext struct {
	RunID        string
	Query        string
	Mode         string // "rsa" or core.MethodSingleStep
	Params       core.Params
	Tier         string
	Complexity   float64
	Round        int
	Slot         int
	AgentID      string
	Record       *core.IterationRecord
	Result       *core.Result
	Duration     time.Duration
	CallbackType CallbackType
	Metadata     map[string]any
}

// Callback defines the interface for run lifecycle hooks.
//
// Implementations should be fast (they block the run) and must not retain
// CallbackContext after returning.
type Callback interface {
	// Type returns the callback type this implementation handles.
	Type() CallbackType

	// Execute performs the callback logic. Returning an error aborts the run.
	Execute(ctx context.Context, callbackCtx *CallbackContext) error
}

// FunctionCallback wraps a function as a callback implementation.
//
// Example:
//
//	cb := NewFunctionCallback(CallbackAfterRound, func(ctx context.Context, c *CallbackContext) error {
//	    fmt.Printf("round %d diversity %.3f\n", c.Round, c.Record.Diversity)
//	    return nil
//	})
type FunctionCallback struct {
	callbackType CallbackType
	fn           func(ctx context.Context, callbackCtx *CallbackContext) error
}

// NewFunctionCallback creates a new function-based callback.
func NewFunctionCallback(
	callbackType CallbackType,
	fn func(ctx context.Context, callbackCtx *CallbackContext) error,
) *FunctionCallback {
	return &FunctionCallback{
		callbackType: callbackType,
		fn:           fn,
	}
}

// Type returns the callback type this function handles.
func (c *FunctionCallback) Type() CallbackType {
	return c.callbackType
}

// Execute calls the wrapped function with the provided context.
func (c *FunctionCallback) Execute(ctx context.Context, callbackCtx *CallbackContext) error {
	return c.fn(ctx, callbackCtx)
}

// CallbackManager is a registry of callbacks keyed by type.
//
// Callbacks are executed in registration order, and any callback returning
// an error stops execution of the remaining ones. Registration and execution
// are safe for concurrent use.
type CallbackManager struct {
	mu        sync.RWMutex
	callbacks map[CallbackType][]Callback
}

// NewCallbackManager creates an empty callback manager.
func NewCallbackManager() *CallbackManager {
	return &CallbackManager{
		callbacks: make(map[CallbackType][]Callback),
	}
}

// RegisterCallback adds a callback to the manager for its type.
func (cm *CallbackManager) RegisterCallback(callback Callback) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	callbackType := callback.Type()
	cm.callbacks[callbackType] = append(cm.callbacks[callbackType], callback)
}

// ExecuteCallbacks executes all registered callbacks for the specified type
// and returns the first error.
func (cm *CallbackManager) ExecuteCallbacks(
	ctx context.Context,
	callbackType CallbackType,
	callbackCtx *CallbackContext,
) error {
	cm.mu.RLock()
	callbacks := append([]Callback(nil), cm.callbacks[callbackType]...)
	cm.mu.RUnlock()

	callbackCtx.CallbackType = callbackType
	for _, callback := range callbacks {
		if err := callback.Execute(ctx, callbackCtx); err != nil {
			return fmt.Errorf("%s callback: %w", callbackType, err)
		}
	}

	return nil
}

// LoggingCallback writes one structured log line per lifecycle event.
type LoggingCallback struct {
	callbackType CallbackType
	logger       logging.Logger
}

// NewLoggingCallback creates a new logging callback.
func NewLoggingCallback(callbackType CallbackType, logger logging.Logger) *LoggingCallback {
	return &LoggingCallback{
		callbackType: callbackType,
		logger:       logging.OrNoOp(logger),
	}
}

// Type returns the callback type this logger handles.
func (c *LoggingCallback) Type() CallbackType {
	return c.callbackType
}

// Execute logs the event with its run identifiers.
func (c *LoggingCallback) Execute(_ context.Context, callbackCtx *CallbackContext) error {
	args := []any{"run_id", callbackCtx.RunID, "mode", callbackCtx.Mode}
	switch c.callbackType {
	case CallbackAfterRound:
		if callbackCtx.Record != nil {
			args = append(args, "round", callbackCtx.Round, "diversity", callbackCtx.Record.Diversity)
		}
	case CallbackOnDegradedSlot:
		args = append(args, "round", callbackCtx.Round, "slot", callbackCtx.Slot, "agent_id", callbackCtx.AgentID)
	case CallbackAfterRun:
		args = append(args, "duration", callbackCtx.Duration)
	default:
		args = append(args, "n", callbackCtx.Params.N, "k", callbackCtx.Params.K, "t", callbackCtx.Params.T)
	}
	c.logger.Info(fmt.Sprintf("[%s]", c.callbackType), args...)
	return nil
}
