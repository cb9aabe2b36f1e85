package workflow

import (
	"fmt"
	"sort"
	"strings"

	"mcpflow/internal/api"
)

// BuildHandoff produces the single assistant-role narrative appended to
// the trace when execution pauses (§4.4). It is a pure function of engine
// state — def, progress, pause, and execCtx — and never raises: every
// unresolved argument renders as an explicit placeholder instead.
func BuildHandoff(def *api.WorkflowDefinition, progress api.Progress, pause api.PauseReason, execCtx *ExecutionContext) string {
	var b strings.Builder

	b.WriteString(describePause(pause))
	b.WriteString("\n")

	remaining := remainingSteps(def, progress)
	if len(remaining) == 0 {
		return b.String()
	}

	b.WriteString("\nRemaining steps:")
	for _, step := range remaining {
		b.WriteString(fmt.Sprintf("\n- %s: call %s(%s)", step.StepName, step.Tool.Name, describeArgs(step, execCtx)))
		if step.Guidance != "" {
			b.WriteString(fmt.Sprintf("\n  Guidance: %s", substituteArgs(step.Guidance, execCtx.Arguments)))
		}
	}

	return b.String()
}

func describePause(pause api.PauseReason) string {
	switch pause.Kind {
	case api.PauseToolError:
		retryNote := "not retryable"
		if pause.Retryable {
			retryNote = "retryable"
		}
		return fmt.Sprintf("Step %q failed (%s): %s.", pause.FailedStep, retryNote, pause.ErrorMessage)
	case api.PauseUnresolvableParams:
		return fmt.Sprintf("Step %q could not be resolved: %s.", pause.BlockedStep, pause.Reason)
	case api.PauseIncompleteBinding:
		return fmt.Sprintf("Step %q requires a value for %q that the server cannot supply.", pause.BlockedStep, pause.MissingBinding)
	case api.PauseCancelled:
		return "Execution was cancelled."
	default:
		return "Execution paused."
	}
}

// remainingSteps returns every step not yet Completed, in declaration
// order; completed steps are already visible earlier in the trace as
// tool-call/tool-result pairs and must not be restated (§4.4).
func remainingSteps(def *api.WorkflowDefinition, progress api.Progress) []api.Step {
	var out []api.Step
	for i, step := range def.Steps {
		if i >= len(progress) {
			out = append(out, step)
			continue
		}
		if progress[i].Status != api.StepCompleted {
			out = append(out, step)
		}
	}
	return out
}

// describeArgs resolves as many of a step's arguments as possible from
// the current context; unresolvable ones render as the documented
// placeholder form.
func describeArgs(step api.Step, execCtx *ExecutionContext) string {
	if len(step.Args) == 0 {
		return ""
	}

	names := make([]string, 0, len(step.Args))
	for name := range step.Args {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		src := step.Args[name]
		value, u := resolveArg(src, execCtx)
		if u != nil {
			if src.Kind == api.ArgSourceClientSupplied {
				parts = append(parts, fmt.Sprintf("%s=<fill in>", name))
				continue
			}
			placeholder := src.Name
			if placeholder == "" {
				placeholder = name
			}
			parts = append(parts, fmt.Sprintf("%s=<output from %s>", name, placeholder))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%s", name, formatValue(value)))
	}
	return strings.Join(parts, ", ")
}

// substituteArgs applies {arg} substitution from workflow arguments to
// guidance text.
func substituteArgs(text string, args map[string]string) string {
	out := text
	for name, value := range args {
		out = strings.ReplaceAll(out, "{"+name+"}", value)
	}
	return out
}
