package api

import "fmt"

// Kind is the error envelope's `code` value (§6, §7).
type Kind string

const (
	KindNotFound        Kind = "NOT_FOUND"
	KindForbidden       Kind = "FORBIDDEN"
	KindTerminal        Kind = "TERMINAL"
	KindValidation      Kind = "VALIDATION"
	KindUnknownWorkflow Kind = "UNKNOWN_WORKFLOW"
	KindUnknownTool     Kind = "UNKNOWN_TOOL"
	KindInternal        Kind = "INTERNAL"
)

// Error is the shared error envelope: { code, message, details? }.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]interface{}
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NewNotFoundError builds a NOT_FOUND error for a missing task or
// workflow.
func NewNotFoundError(resourceType, resourceName string) *Error {
	return newError(KindNotFound, "%s %q not found", resourceType, resourceName)
}

// NewForbiddenError builds a FORBIDDEN error for an ownership violation.
// It never states which owner was expected, so as not to leak task
// existence to a caller who should see only "forbidden".
func NewForbiddenError(resourceType string) *Error {
	return newError(KindForbidden, "not permitted to access this %s", resourceType)
}

// NewTerminalError builds a TERMINAL error for a mutation attempted
// against a task that is no longer Working.
func NewTerminalError(taskID string) *Error {
	return newError(KindTerminal, "task %s is terminal", taskID)
}

// NewValidationError builds a VALIDATION error for a request-shape
// problem (missing required argument, malformed value).
func NewValidationError(format string, args ...interface{}) *Error {
	return newError(KindValidation, format, args...)
}

// NewUnknownWorkflowError builds an UNKNOWN_WORKFLOW error.
func NewUnknownWorkflowError(name string) *Error {
	return newError(KindUnknownWorkflow, "workflow %q is not registered", name)
}

// NewUnknownToolError builds an UNKNOWN_TOOL error.
func NewUnknownToolError(name string) *Error {
	return newError(KindUnknownTool, "tool %q is not registered", name)
}

// NewInternalError wraps an unexpected failure (e.g. a task store
// unavailable on the write path).
func NewInternalError(err error) *Error {
	return newError(KindInternal, "internal error: %v", err)
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	apiErr, ok := err.(*Error)
	return ok && apiErr.Kind == kind
}
