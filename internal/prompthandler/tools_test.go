package prompthandler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcpflow/internal/api"
	"mcpflow/internal/taskstore"
	"mcpflow/internal/workflow"
)

func TestExtractTaskID_NilMeta(t *testing.T) {
	_, ok := extractTaskID(nil)
	assert.False(t, ok)
}

func TestExtractTaskID_MissingKey(t *testing.T) {
	_, ok := extractTaskID(map[string]interface{}{"other": "value"})
	assert.False(t, ok)
}

func TestExtractTaskID_NonStringValue(t *testing.T) {
	_, ok := extractTaskID(map[string]interface{}{"_task_id": 42})
	assert.False(t, ok)
}

func TestExtractTaskID_EmptyString(t *testing.T) {
	_, ok := extractTaskID(map[string]interface{}{"_task_id": ""})
	assert.False(t, ok)
}

func TestExtractTaskID_Valid(t *testing.T) {
	taskID, ok := extractTaskID(map[string]interface{}{"_task_id": "abc-123"})
	require.True(t, ok)
	assert.Equal(t, "abc-123", taskID)
}

func TestObserveToolCall_RecordsAgainstPendingStep(t *testing.T) {
	store := taskstore.NewMemory()
	ctx := context.Background()

	taskID, err := store.CreateTask(ctx, "owner-1")
	require.NoError(t, err)
	progress := api.Progress{
		{StepName: "provision", Binding: "created", Tool: "infra_create", Status: api.StepPending},
	}
	require.NoError(t, store.SetVariables(ctx, taskID, "owner-1", map[string]api.Value{api.VarProgress: progress}))

	registry := workflow.NewRegistry()
	engine := workflow.NewEngine(&fakeInvoker{}, store)
	h := New(registry, engine, store)

	h.ObserveToolCall(ctx, map[string]interface{}{"_task_id": taskID}, "owner-1", "infra_create", map[string]interface{}{"resource_id": "r-1"})

	task, err := store.GetTask(ctx, taskID)
	require.NoError(t, err)
	result, ok := task.Variables[api.ResultKey("created")]
	require.True(t, ok)
	assert.Equal(t, map[string]interface{}{"resource_id": "r-1"}, result)
}

func TestObserveToolCall_NoMetaIsNoop(t *testing.T) {
	store := taskstore.NewMemory()
	registry := workflow.NewRegistry()
	engine := workflow.NewEngine(&fakeInvoker{}, store)
	h := New(registry, engine, store)

	// Must not panic even with no task_id present.
	h.ObserveToolCall(context.Background(), nil, "owner-1", "infra_create", map[string]interface{}{"ok": true})
}
