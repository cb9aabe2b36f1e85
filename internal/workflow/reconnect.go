package workflow

import (
	"context"
	"encoding/json"

	"mcpflow/internal/api"
	"mcpflow/internal/taskstore"
	"mcpflow/pkg/logging"
)

// RecordToolCall implements the Reconnection Recorder (§4.5): a
// best-effort, non-blocking, non-enforcing observer over tool calls that
// carry a task_id. It never returns an error to its caller and never
// blocks the tool call it observes — every failure is logged and
// swallowed, since a client reconnecting early must not be punished for
// it.
func RecordToolCall(ctx context.Context, store taskstore.Store, taskID, ownerID, toolName string, result api.Value) {
	task, err := store.GetTask(ctx, taskID)
	if err != nil {
		logging.Debug("Reconnect", "task %s not found, ignoring recorded call to %s", logging.TruncateID(taskID), toolName)
		return
	}
	if task.Status != api.TaskWorking {
		logging.Debug("Reconnect", "task %s is not working, ignoring recorded call to %s", logging.TruncateID(taskID), toolName)
		return
	}
	if task.OwnerID != ownerID {
		logging.Debug("Reconnect", "caller does not own task %s, ignoring recorded call to %s", logging.TruncateID(taskID), toolName)
		return
	}

	progress, ok := loadProgress(task)
	if !ok {
		logging.Warn("Reconnect", "task %s has no progress record, ignoring recorded call to %s", logging.TruncateID(taskID), toolName)
		return
	}

	index, found := progress.PendingByTool(toolName)
	if !found {
		// No outstanding step expects this tool; keep the result
		// available without pretending it satisfies a step.
		patch := map[string]api.Value{api.ExtraKey(toolName): result}
		if err := store.SetVariables(ctx, taskID, ownerID, patch); err != nil {
			logging.Warn("Reconnect", "failed to record extra call to %s for task %s: %v", toolName, logging.TruncateID(taskID), err)
		}
		return
	}

	progress[index].Status = api.StepCompleted
	patch := map[string]api.Value{
		api.ResultKey(progress[index].Binding): result,
		api.VarProgress:                        progress,
	}
	if err := store.SetVariables(ctx, taskID, ownerID, patch); err != nil {
		logging.Warn("Reconnect", "failed to record call to %s for task %s: %v", toolName, logging.TruncateID(taskID), err)
		return
	}
	logging.Debug("Reconnect", "recorded call to %s against step %q for task %s", toolName, progress[index].StepName, logging.TruncateID(taskID))
}

// loadProgress decodes the _workflow.progress variable, tolerating both
// the api.Progress value stored in-process (Memory store) and the
// []interface{} shape that survives a JSON round trip (Redis store).
func loadProgress(task *api.Task) (api.Progress, bool) {
	raw, ok := task.Variables[api.VarProgress]
	if !ok {
		return nil, false
	}

	switch v := raw.(type) {
	case api.Progress:
		return v, true
	case []api.StepProgress:
		return api.Progress(v), true
	}

	// A store that round-trips values through JSON (Redis) hands back
	// []interface{} of map[string]interface{}; re-marshal and decode
	// into the real shape rather than special-casing every store.
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, false
	}
	var progress api.Progress
	if err := json.Unmarshal(encoded, &progress); err != nil {
		return nil, false
	}
	return progress, true
}
