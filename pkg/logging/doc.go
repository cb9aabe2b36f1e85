// Package logging provides a structured logging system for mcpflow built on
// top of Go's standard slog package.
//
// # Log Levels
//   - Debug: detailed information for debugging and development
//   - Info: general informational messages about engine operation
//   - Warn: warning messages that indicate potential issues (e.g. a step
//     resolved against a stale binding)
//   - Error: failures and exceptional conditions
//
// # Usage
//
//	import "mcpflow/pkg/logging"
//
//	logging.InitForCLI(logging.LevelInfo, os.Stdout)
//
//	logging.Info("Engine", "starting workflow %s", def.Name)
//	logging.Debug("Validator", "resolved binding %s -> step %s", name, stepID)
//	logging.Warn("TaskStore", "task %s has no remaining pending steps", logging.TruncateID(taskID))
//	logging.Error("Reconnect", err, "failed to record result for task %s", taskID)
//
// # Subsystem Organization
//
// Logs are organized by subsystem to enable filtering:
//
//   - Validator: workflow definition registration checks
//   - Engine: step execution and argument resolution
//   - Handoff: pause/handoff message construction
//   - Reconnect: best-effort recording of post-handoff tool calls
//   - TaskStore: task lifecycle and variable mutation
//   - PromptHandler: the outward-facing prompts/get adapter
//
// # Audit Events
//
// Security-sensitive operations — task ownership checks, cancellation,
// cross-session reconnection — are logged through Audit, which always
// writes at INFO level with an [AUDIT] prefix so they can be picked out by
// log aggregation pipelines independent of the subsystem's normal verbosity.
//
// The logger is process-global and initialized once via InitForCLI; callers
// that have not initialized it get a safe no-op (log calls made before
// initialization, or in tests that never call InitForCLI, are simply
// dropped).
package logging
