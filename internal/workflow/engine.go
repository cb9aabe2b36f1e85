package workflow

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"mcpflow/internal/api"
	"mcpflow/internal/taskstore"
	"mcpflow/pkg/logging"
)

var tracer = otel.Tracer("mcpflow/internal/workflow")

// ToolError is returned by a ToolInvoker when a tool call fails. The
// engine never treats this as its own failure (§7): it becomes a
// PauseReason, and the handoff lets the client LLM decide to retry.
type ToolError struct {
	Message   string
	Retryable bool
}

func (e *ToolError) Error() string { return e.Message }

// ToolInvoker is the opaque tool-invocation capability the engine is
// given. Tool handlers remain ignorant of workflows (§9): this is the
// only way the engine reaches them.
type ToolInvoker interface {
	Invoke(ctx context.Context, tool api.ToolRef, args map[string]api.Value, ownerID string) (api.Value, error)
}

// unresolved is the sentinel returned by resolveArg when an ArgSource
// cannot be satisfied from the current context. It is a value, never a
// panic or an error propagated out of resolution (§9).
type unresolved struct {
	missingParam string
	reason       string
	hybrid       bool
	binding      string
}

// ExecutionContext holds the binding -> recorded JSON output map built up
// during one invocation. It is local to that invocation and never
// escapes (§5).
type ExecutionContext struct {
	Arguments map[string]string
	Results   map[string]api.Value
}

// newExecutionContext seeds an empty context from the resolved workflow
// arguments.
func newExecutionContext(args map[string]string) *ExecutionContext {
	return &ExecutionContext{
		Arguments: args,
		Results:   make(map[string]api.Value),
	}
}

// Outcome is what Execute returns: the conversation trace plus
// the pause reason, if execution did not complete.
type Outcome struct {
	Messages    []mcp.PromptMessage
	Pause       *api.PauseReason
	Completed   bool
	FinalResult api.Value
	Context     *ExecutionContext
}

// ResourceReader resolves a resource URI to its embedded content at the
// moment the engine reaches a step declaring it, so the trace is
// self-contained (§9) and downstream consumers never re-resolve URIs.
type ResourceReader interface {
	Read(ctx context.Context, uri string) (string, error)
}

// Engine runs a workflow from step 0 to completion or pause (§4.3).
type Engine struct {
	invoker   ToolInvoker
	store     taskstore.Store
	resources ResourceReader
}

// NewEngine builds an Engine over the given tool invoker and task store.
func NewEngine(invoker ToolInvoker, store taskstore.Store) *Engine {
	return &Engine{invoker: invoker, store: store}
}

// WithResourceReader attaches a ResourceReader used to embed step
// resource content into the trace. Without one, resource messages carry
// only the URI.
func (e *Engine) WithResourceReader(r ResourceReader) *Engine {
	e.resources = r
	return e
}

// Execute runs def with the given resolved workflow arguments, recording
// progress against taskID as it goes. The returned Outcome never panics:
// a workflow that validated cleanly either completes or pauses with a
// PauseReason (testable property 1, §8).
func (e *Engine) Execute(ctx context.Context, def *api.WorkflowDefinition, args map[string]string, taskID, ownerID string) (*Outcome, error) {
	execCtx := newExecutionContext(args)
	var messages []mcp.PromptMessage

	for _, instr := range def.Instructions {
		messages = append(messages, systemMessage(instr))
	}
	messages = append(messages, userMessage(fmt.Sprintf("Execute workflow %s with %s", def.Name, formatArgs(args))))
	messages = append(messages, assistantMessage(planSummary(def)))

	progress := initialProgress(def)
	if cancelled, err := e.checkCancelled(ctx, taskID); err != nil {
		return nil, err
	} else if cancelled {
		return e.pauseOutcome(ctx, def, messages, execCtx, progress, taskID, ownerID, api.CancelledPause())
	}
	if err := e.commitProgress(ctx, taskID, ownerID, progress); err != nil {
		return nil, err
	}

	for i, step := range def.Steps {
		if cancelled, err := e.checkCancelled(ctx, taskID); err != nil {
			return nil, err
		} else if cancelled {
			pause := api.CancelledPause()
			return e.pauseOutcome(ctx, def, messages, execCtx, progress, taskID, ownerID, pause)
		}

		stepCtx, span := tracer.Start(ctx, "workflow.step", oteltrace.WithAttributes(
			attribute.String("workflow.name", def.Name),
			attribute.String("step.name", step.StepName),
			attribute.String("step.tool", step.Tool.Name),
		))

		resolvedArgs, unresolvedArg := resolveStepArgs(step, execCtx)
		if unresolvedArg != nil {
			var pause api.PauseReason
			if unresolvedArg.hybrid {
				span.SetStatus(codes.Error, "incomplete binding")
				pause = api.IncompleteBindingPause(step.StepName, unresolvedArg.binding)
			} else {
				span.SetStatus(codes.Error, "unresolvable params")
				pause = api.UnresolvableParamsPause(step.StepName, unresolvedArg.missingParam, unresolvedArg.reason)
			}
			span.End()
			markProgress(progress, i, api.StepFailed)
			return e.pauseOutcome(ctx, def, messages, execCtx, progress, taskID, ownerID, pause)
		}

		for _, res := range step.Resources {
			messages = append(messages, e.resourceMessage(stepCtx, res.URI))
		}

		messages = append(messages, assistantMessage(fmt.Sprintf("Calling %s with %s", step.Tool.Name, formatValue(resolvedArgs))))

		markProgress(progress, i, api.StepRunning)
		result, err := e.invoker.Invoke(stepCtx, step.Tool, resolvedArgs, ownerID)
		if err != nil {
			span.SetStatus(codes.Error, "tool error")
			span.End()
			retryable := true
			msg := err.Error()
			if te, ok := err.(*ToolError); ok {
				retryable = te.Retryable
				msg = te.Message
			}
			pause := api.ToolErrorPause(step.StepName, msg, retryable)
			markProgress(progress, i, api.StepFailed)
			return e.pauseOutcome(ctx, def, messages, execCtx, progress, taskID, ownerID, pause)
		}
		span.End()

		messages = append(messages, userMessage(fmt.Sprintf("Result from %s: %s", step.Tool.Name, formatValue(result))))

		patch := map[string]api.Value{}
		if step.Binding != "" {
			execCtx.Results[step.Binding] = result
			patch[api.ResultKey(step.Binding)] = result
		}
		markProgress(progress, i, api.StepCompleted)
		patch[api.VarProgress] = progress
		if err := e.store.SetVariables(ctx, taskID, ownerID, patch); err != nil {
			if cancelled, cErr := e.checkCancelled(ctx, taskID); cErr == nil && cancelled {
				return e.pauseOutcome(ctx, def, messages, execCtx, progress, taskID, ownerID, api.CancelledPause())
			}
			return nil, err
		}
	}

	messages = append(messages, assistantMessage(terminalSummary(def)))

	finalResult := finalResultFor(def, execCtx)
	return &Outcome{
		Messages:    messages,
		Completed:   true,
		FinalResult: finalResult,
		Context:     execCtx,
	}, nil
}

func (e *Engine) checkCancelled(ctx context.Context, taskID string) (bool, error) {
	task, err := e.store.GetTask(ctx, taskID)
	if err != nil {
		return false, err
	}
	return task.Status == api.TaskCancelled, nil
}

func (e *Engine) pauseOutcome(ctx context.Context, def *api.WorkflowDefinition, messages []mcp.PromptMessage, execCtx *ExecutionContext, progress api.Progress, taskID, ownerID string, pause api.PauseReason) (*Outcome, error) {
	handoffText := BuildHandoff(def, progress, pause, execCtx)
	messages = append(messages, assistantMessage(handoffText))

	if err := e.store.SetVariables(ctx, taskID, ownerID, map[string]api.Value{
		api.VarProgress:    progress,
		api.VarPauseReason: pause,
	}); err != nil {
		logging.Error("Engine", err, "failed to persist pause state for task %s", logging.TruncateID(taskID))
	}

	return &Outcome{
		Messages:  messages,
		Pause:     &pause,
		Completed: false,
		Context:   execCtx,
	}, nil
}

func (e *Engine) commitProgress(ctx context.Context, taskID, ownerID string, progress api.Progress) error {
	return e.store.SetVariables(ctx, taskID, ownerID, map[string]api.Value{api.VarProgress: progress})
}

func initialProgress(def *api.WorkflowDefinition) api.Progress {
	progress := make(api.Progress, len(def.Steps))
	for i, s := range def.Steps {
		progress[i] = api.StepProgress{
			StepName: s.StepName,
			Binding:  s.Binding,
			Tool:     s.Tool.Name,
			Status:   api.StepPending,
		}
	}
	return progress
}

func markProgress(progress api.Progress, index int, status api.StepStatus) {
	progress[index].Status = status
}

func resolveStepArgs(step api.Step, execCtx *ExecutionContext) (map[string]api.Value, *unresolved) {
	resolved := make(map[string]api.Value, len(step.Args))
	for param, src := range step.Args {
		value, u := resolveArg(src, execCtx)
		if u != nil {
			return nil, &unresolved{missingParam: param, reason: u.reason, hybrid: u.hybrid, binding: u.binding}
		}
		resolved[param] = value
	}
	return resolved, nil
}

func resolveArg(src api.ArgSource, execCtx *ExecutionContext) (api.Value, *unresolved) {
	switch src.Kind {
	case api.ArgSourceConstant:
		return src.Constant, nil

	case api.ArgSourcePromptArg:
		v, ok := execCtx.Arguments[src.Name]
		if !ok {
			return nil, &unresolved{reason: fmt.Sprintf("argument %q was not provided", src.Name)}
		}
		return v, nil

	case api.ArgSourceStepOutput:
		v, ok := execCtx.Results[src.Name]
		if !ok {
			return nil, &unresolved{reason: fmt.Sprintf("binding %q has no recorded output", src.Name)}
		}
		return v, nil

	case api.ArgSourceField:
		v, ok := execCtx.Results[src.Name]
		if !ok {
			return nil, &unresolved{reason: fmt.Sprintf("binding %q has no recorded output", src.Name)}
		}
		field, found := extractField(v, src.Path)
		if !found {
			return nil, &unresolved{reason: fmt.Sprintf("field %q not found in binding %q", src.Path, src.Name)}
		}
		return field, nil

	case api.ArgSourceClientSupplied:
		return nil, &unresolved{hybrid: true, binding: src.Name, reason: fmt.Sprintf("parameter %q is left for the client to supply", src.Name)}

	default:
		return nil, &unresolved{reason: "unknown argument source"}
	}
}

// extractField resolves a dotted JSON path against an arbitrary value
// using gjson, returning a structured (value, found) pair rather than an
// exception — a pure function over the value tree (§9).
func extractField(value api.Value, path string) (api.Value, bool) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, false
	}
	result := gjson.GetBytes(raw, path)
	if !result.Exists() {
		return nil, false
	}
	var out interface{}
	if err := json.Unmarshal([]byte(result.Raw), &out); err != nil {
		return result.Value(), true
	}
	return out, true
}

func finalResultFor(def *api.WorkflowDefinition, execCtx *ExecutionContext) api.Value {
	if len(def.Steps) == 0 {
		return map[string]api.Value{}
	}
	last := def.Steps[len(def.Steps)-1]
	if last.Binding == "" {
		return nil
	}
	return execCtx.Results[last.Binding]
}

// roleSystem is not among mcp-go's named Role constants (the MCP prompt
// spec it implements only names user/assistant), but the wire value
// "system" is what this engine's trace contract requires for prepended
// instructions; casting the literal keeps JSON serialization correct
// without forking mcp-go's Role type.
const roleSystem = mcp.Role("system")

func systemMessage(text string) mcp.PromptMessage {
	return mcp.PromptMessage{Role: roleSystem, Content: mcp.NewTextContent(text)}
}

func userMessage(text string) mcp.PromptMessage {
	return mcp.PromptMessage{Role: mcp.RoleUser, Content: mcp.NewTextContent(text)}
}

func assistantMessage(text string) mcp.PromptMessage {
	return mcp.PromptMessage{Role: mcp.RoleAssistant, Content: mcp.NewTextContent(text)}
}

func (e *Engine) resourceMessage(ctx context.Context, uri string) mcp.PromptMessage {
	text := uri
	if e.resources != nil {
		if content, err := e.resources.Read(ctx, uri); err == nil {
			text = content
		} else {
			logging.Warn("Engine", "failed to read resource %s: %v", uri, err)
		}
	}
	return mcp.PromptMessage{
		Role: mcp.RoleUser,
		Content: mcp.NewEmbeddedResource(mcp.TextResourceContents{
			URI:  uri,
			Text: text,
		}),
	}
}

func formatArgs(args map[string]string) string {
	raw, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(raw)
}

func formatValue(v api.Value) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(raw)
}

func planSummary(def *api.WorkflowDefinition) string {
	summary := "Plan:"
	for _, s := range def.Steps {
		summary += fmt.Sprintf("\n- %s: call %s", s.StepName, s.Tool.Name)
	}
	return summary
}

func terminalSummary(def *api.WorkflowDefinition) string {
	return fmt.Sprintf("Workflow %s completed all %d steps.", def.Name, len(def.Steps))
}
