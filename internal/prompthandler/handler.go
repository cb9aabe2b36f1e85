package prompthandler

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"mcpflow/internal/api"
	"mcpflow/internal/taskstore"
	"mcpflow/internal/workflow"
	"mcpflow/pkg/logging"
)

// Handler ties a workflow registry, execution engine, and task store
// into the operations an MCP server's request handlers call through to.
type Handler struct {
	registry *workflow.Registry
	engine   *workflow.Engine
	store    taskstore.Store
}

// New builds a Handler over an already-populated registry, a configured
// engine, and the task store backing both.
func New(registry *workflow.Registry, engine *workflow.Engine, store taskstore.Store) *Handler {
	return &Handler{registry: registry, engine: engine, store: store}
}

// GetPrompt starts a workflow run: it looks up the named definition,
// checks required arguments are present, opens a task, and drives the
// engine to completion or pause. The task identifier never appears in
// the human-facing trace (§4.4: the handoff narrative never restates
// it); it is carried solely in the response's _meta envelope alongside
// task_status, matching §4.7/§6 exactly so a client resumes by reading
// _meta, not by parsing message text.
func (h *Handler) GetPrompt(ctx context.Context, name string, arguments map[string]string, ownerID string) (*mcp.GetPromptResult, error) {
	def, ok := h.registry.Get(name)
	if !ok {
		return nil, api.NewUnknownWorkflowError(name)
	}

	for _, arg := range def.Arguments {
		if arg.Required {
			if _, present := arguments[arg.Name]; !present {
				return nil, api.NewValidationError("workflow %q requires argument %q", name, arg.Name)
			}
		}
	}

	taskID, err := h.store.CreateTask(ctx, ownerID)
	if err != nil {
		return nil, api.NewInternalError(err)
	}

	outcome, err := h.engine.Execute(ctx, def, arguments, taskID, ownerID)
	if err != nil {
		logging.Error("PromptHandler", err, "workflow %q failed for task %s", name, logging.TruncateID(taskID))
		return nil, api.NewInternalError(err)
	}

	if outcome.Completed {
		if err := h.store.CompleteWithResult(ctx, taskID, ownerID, api.TaskCompleted, outcome.FinalResult); err != nil {
			logging.Warn("PromptHandler", "failed to persist completion for task %s: %v", logging.TruncateID(taskID), err)
		}
	}

	status := api.TaskWorking
	if task, err := h.store.GetTask(ctx, taskID); err == nil {
		status = task.Status
	}

	result := mcp.NewGetPromptResult(def.Description, outcome.Messages)
	withTaskMeta(result, taskID, status)
	return result, nil
}

// withTaskMeta stamps the _meta envelope with exactly the two fields §6
// requires — task_id and task_status — following the same
// result.Meta.AdditionalFields pattern the teacher uses to attach
// structured out-of-band data to an MCP result (auth_wrapper.go).
func withTaskMeta(result *mcp.GetPromptResult, taskID string, status api.TaskStatus) {
	if result.Meta == nil {
		result.Meta = &mcp.Meta{}
	}
	if result.Meta.AdditionalFields == nil {
		result.Meta.AdditionalFields = make(map[string]interface{})
	}
	result.Meta.AdditionalFields["task_id"] = taskID
	result.Meta.AdditionalFields["task_status"] = string(status)
}
