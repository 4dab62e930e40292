package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/rsamesh/core"
	"github.com/hupe1980/rsamesh/logging"
)

func TestCallbackManager_ExecuteInRegistrationOrder(t *testing.T) {
	cm := NewCallbackManager()

	var order []int
	for i := range 3 {
		cm.RegisterCallback(NewFunctionCallback(CallbackAfterRound, func(context.Context, *CallbackContext) error {
			order = append(order, i)
			return nil
		}))
	}
	cm.RegisterCallback(NewFunctionCallback(CallbackAfterRun, func(context.Context, *CallbackContext) error {
		t.Fatal("wrong type executed")
		return nil
	}))

	cbCtx := &CallbackContext{}
	require.NoError(t, cm.ExecuteCallbacks(context.Background(), CallbackAfterRound, cbCtx))
	assert.Equal(t, []int{0, 1, 2}, order)
	assert.Equal(t, CallbackAfterRound, cbCtx.CallbackType)
}

func TestCallbackManager_StopsAtFirstError(t *testing.T) {
	cm := NewCallbackManager()
	boom := errors.New("boom")

	calls := 0
	cm.RegisterCallback(NewFunctionCallback(CallbackBeforeRun, func(context.Context, *CallbackContext) error {
		calls++
		return boom
	}))
	cm.RegisterCallback(NewFunctionCallback(CallbackBeforeRun, func(context.Context, *CallbackContext) error {
		calls++
		return nil
	}))

	err := cm.ExecuteCallbacks(context.Background(), CallbackBeforeRun, &CallbackContext{})
	require.ErrorIs(t, err, boom)
	assert.EqualError(t, err, "before_run callback: boom")
	assert.Equal(t, 1, calls)
}

func TestLoggingCallback(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewSlogAdapter(slog.New(slog.NewJSONHandler(&buf, nil)))

	cb := NewLoggingCallback(CallbackAfterRound, logger)
	assert.Equal(t, CallbackAfterRound, cb.Type())

	err := cb.Execute(context.Background(), &CallbackContext{
		RunID:  "run-1",
		Mode:   ModeRSA,
		Round:  2,
		Record: &core.IterationRecord{Round: 2, Diversity: 0.25},
	})
	require.NoError(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "[after_round]", line["msg"])
	assert.Equal(t, "run-1", line["run_id"])
	assert.Equal(t, 0.25, line["diversity"])
	assert.EqualValues(t, 2, line["round"])
}
