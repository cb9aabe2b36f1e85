package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcpflow/internal/api"
	"mcpflow/internal/taskstore"
)

type fakeInvoker struct {
	results map[string]api.Value
	errs    map[string]error
	calls   []string
}

func (f *fakeInvoker) Invoke(ctx context.Context, tool api.ToolRef, args map[string]api.Value, ownerID string) (api.Value, error) {
	f.calls = append(f.calls, tool.Name)
	if err, ok := f.errs[tool.Name]; ok {
		return nil, err
	}
	return f.results[tool.Name], nil
}

func twoStepWorkflow() *api.WorkflowDefinition {
	return &api.WorkflowDefinition{
		Name: "deploy",
		Arguments: []api.Argument{
			{Name: "region", Required: true},
		},
		Steps: []api.Step{
			{
				StepName: "provision",
				Tool:     api.ToolRef{Name: "infra_create"},
				Binding:  "created",
				Args: map[string]api.ArgSource{
					"region": api.PromptArg("region"),
				},
			},
			{
				StepName: "verify",
				Tool:     api.ToolRef{Name: "infra_check"},
				Binding:  "checked",
				Args: map[string]api.ArgSource{
					"id": api.Field("created", "resource_id"),
				},
			},
		},
	}
}

func TestExecute_CompletesAllSteps(t *testing.T) {
	invoker := &fakeInvoker{
		results: map[string]api.Value{
			"infra_create": map[string]interface{}{"resource_id": "r-1"},
			"infra_check":  map[string]interface{}{"ok": true},
		},
	}
	store := taskstore.NewMemory()
	engine := NewEngine(invoker, store)
	ctx := context.Background()

	taskID, err := store.CreateTask(ctx, "owner-1")
	require.NoError(t, err)

	def := twoStepWorkflow()
	outcome, err := engine.Execute(ctx, def, map[string]string{"region": "us-east-1"}, taskID, "owner-1")
	require.NoError(t, err)

	assert.True(t, outcome.Completed)
	assert.Nil(t, outcome.Pause)
	assert.Equal(t, []string{"infra_create", "infra_check"}, invoker.calls)
	assert.Equal(t, map[string]interface{}{"ok": true}, outcome.FinalResult)
}

func TestExecute_PausesOnToolError(t *testing.T) {
	invoker := &fakeInvoker{
		errs: map[string]error{
			"infra_create": &ToolError{Message: "quota exceeded", Retryable: false},
		},
	}
	store := taskstore.NewMemory()
	engine := NewEngine(invoker, store)
	ctx := context.Background()

	taskID, err := store.CreateTask(ctx, "owner-1")
	require.NoError(t, err)

	def := twoStepWorkflow()
	outcome, err := engine.Execute(ctx, def, map[string]string{"region": "us-east-1"}, taskID, "owner-1")
	require.NoError(t, err)

	require.False(t, outcome.Completed)
	require.NotNil(t, outcome.Pause)
	assert.Equal(t, api.PauseToolError, outcome.Pause.Kind)
	assert.Equal(t, "provision", outcome.Pause.FailedStep)
	assert.False(t, outcome.Pause.Retryable)
	assert.Equal(t, []string{"infra_create"}, invoker.calls)
}

func TestExecute_PausesOnUnresolvableParams(t *testing.T) {
	invoker := &fakeInvoker{}
	store := taskstore.NewMemory()
	engine := NewEngine(invoker, store)
	ctx := context.Background()

	taskID, err := store.CreateTask(ctx, "owner-1")
	require.NoError(t, err)

	def := twoStepWorkflow()
	// Missing the required "region" prompt argument.
	outcome, err := engine.Execute(ctx, def, map[string]string{}, taskID, "owner-1")
	require.NoError(t, err)

	require.False(t, outcome.Completed)
	require.NotNil(t, outcome.Pause)
	assert.Equal(t, api.PauseUnresolvableParams, outcome.Pause.Kind)
	assert.Equal(t, "provision", outcome.Pause.BlockedStep)
	assert.Empty(t, invoker.calls)
}

func TestExecute_PausesOnHybridStepClientSuppliedArg(t *testing.T) {
	invoker := &fakeInvoker{}
	store := taskstore.NewMemory()
	engine := NewEngine(invoker, store)
	ctx := context.Background()

	taskID, err := store.CreateTask(ctx, "owner-1")
	require.NoError(t, err)

	def := &api.WorkflowDefinition{
		Name: "approve",
		Steps: []api.Step{
			{
				StepName: "grant_access",
				Tool:     api.ToolRef{Name: "access_grant"},
				Binding:  "granted",
				Args: map[string]api.ArgSource{
					"approver_id": api.ClientSupplied("approver_id"),
				},
			},
		},
	}

	outcome, err := engine.Execute(ctx, def, map[string]string{}, taskID, "owner-1")
	require.NoError(t, err)

	require.False(t, outcome.Completed)
	require.NotNil(t, outcome.Pause)
	assert.Equal(t, api.PauseIncompleteBinding, outcome.Pause.Kind)
	assert.Equal(t, "grant_access", outcome.Pause.BlockedStep)
	assert.Equal(t, "approver_id", outcome.Pause.MissingBinding)
	assert.Empty(t, invoker.calls)
}

func TestExecute_PausesOnCancellation(t *testing.T) {
	invoker := &fakeInvoker{
		results: map[string]api.Value{"infra_create": map[string]interface{}{"resource_id": "r-1"}},
	}
	store := taskstore.NewMemory()
	engine := NewEngine(invoker, store)
	ctx := context.Background()

	taskID, err := store.CreateTask(ctx, "owner-1")
	require.NoError(t, err)
	require.NoError(t, store.Cancel(ctx, taskID, "owner-1"))

	def := twoStepWorkflow()
	outcome, err := engine.Execute(ctx, def, map[string]string{"region": "us-east-1"}, taskID, "owner-1")
	require.NoError(t, err)

	require.False(t, outcome.Completed)
	require.NotNil(t, outcome.Pause)
	assert.Equal(t, api.PauseCancelled, outcome.Pause.Kind)
	assert.Empty(t, invoker.calls)
}

func TestExtractField(t *testing.T) {
	value := map[string]interface{}{"resource": map[string]interface{}{"id": "abc"}}

	got, found := extractField(value, "resource.id")
	require.True(t, found)
	assert.Equal(t, "abc", got)

	_, found = extractField(value, "resource.missing")
	assert.False(t, found)
}

func TestFinalResultFor_EmptySteps(t *testing.T) {
	def := &api.WorkflowDefinition{Name: "empty"}
	execCtx := newExecutionContext(map[string]string{})
	assert.Equal(t, map[string]api.Value{}, finalResultFor(def, execCtx))
}

func TestFinalResultFor_LastStepNoBinding(t *testing.T) {
	def := &api.WorkflowDefinition{
		Name:  "noop",
		Steps: []api.Step{{StepName: "log", Tool: api.ToolRef{Name: "logger"}}},
	}
	execCtx := newExecutionContext(map[string]string{})
	assert.Nil(t, finalResultFor(def, execCtx))
}
