package api

// PauseKind discriminates the PauseReason tagged union (§4.3).
type PauseKind string

const (
	PauseToolError          PauseKind = "tool_error"
	PauseUnresolvableParams PauseKind = "unresolvable_params"
	PauseIncompleteBinding  PauseKind = "incomplete_binding"
	PauseCancelled          PauseKind = "cancelled"
)

// PauseReason is a sum type the engine returns alongside the trace — a
// value, never an exception or control-flow side channel (§9). Only the
// fields relevant to Kind are meaningful.
type PauseReason struct {
	Kind PauseKind `json:"kind"`

	// ToolError
	FailedStep   string `json:"failed_step,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	Retryable    bool   `json:"retryable,omitempty"`

	// UnresolvableParams / IncompleteBinding
	BlockedStep    string `json:"blocked_step,omitempty"`
	MissingParam   string `json:"missing_param,omitempty"`
	MissingBinding string `json:"missing_binding,omitempty"`
	Reason         string `json:"reason,omitempty"`
}

// ToolErrorPause builds a PauseReason for a failed tool invocation.
func ToolErrorPause(failedStep, errMsg string, retryable bool) PauseReason {
	return PauseReason{
		Kind:         PauseToolError,
		FailedStep:   failedStep,
		ErrorMessage: errMsg,
		Retryable:    retryable,
	}
}

// UnresolvableParamsPause builds a PauseReason for an ArgSource that could
// not be resolved from the current context.
func UnresolvableParamsPause(blockedStep, missingParam, reason string) PauseReason {
	return PauseReason{
		Kind:         PauseUnresolvableParams,
		BlockedStep:  blockedStep,
		MissingParam: missingParam,
		Reason:       reason,
	}
}

// IncompleteBindingPause builds a PauseReason for a hybrid step that
// deliberately omits an argument mapping the client LLM must fill in.
func IncompleteBindingPause(blockedStep, missingBinding string) PauseReason {
	return PauseReason{
		Kind:           PauseIncompleteBinding,
		BlockedStep:    blockedStep,
		MissingBinding: missingBinding,
	}
}

// CancelledPause builds a PauseReason for a task cancelled out-of-band
// during execution.
func CancelledPause() PauseReason {
	return PauseReason{Kind: PauseCancelled}
}
