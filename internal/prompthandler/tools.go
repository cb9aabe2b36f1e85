package prompthandler

import (
	"context"

	"mcpflow/internal/api"
	"mcpflow/internal/workflow"
)

// metaTaskIDKey is the _meta field a reconnecting client is expected to
// echo back on tools/call requests that continue a paused workflow (§6:
// "The request's _meta map may carry _task_id: string").
const metaTaskIDKey = "_task_id"

// ObserveToolCall implements the tools/call side of reconnection (§4.5).
// Callers invoke it after a tool call completes, passing the request's
// untyped _meta map verbatim; if it carries a task_id for a task the
// caller owns, the result is recorded against any outstanding step
// expecting that tool. Call sites must never let this affect the actual
// tools/call response — it is purely an observer.
func (h *Handler) ObserveToolCall(ctx context.Context, meta map[string]interface{}, ownerID, toolName string, result api.Value) {
	taskID, ok := extractTaskID(meta)
	if !ok {
		return
	}
	workflow.RecordToolCall(ctx, h.store, taskID, ownerID, toolName, result)
}

func extractTaskID(meta map[string]interface{}) (string, bool) {
	if meta == nil {
		return "", false
	}
	raw, ok := meta[metaTaskIDKey]
	if !ok {
		return "", false
	}
	taskID, ok := raw.(string)
	if !ok || taskID == "" {
		return "", false
	}
	return taskID, true
}
