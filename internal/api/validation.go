package api

import "fmt"

// ValidationKind discriminates the eight registration-time checks the
// Workflow Validator (§4.1) must reproduce, each as a distinct error kind.
type ValidationKind string

const (
	ValidationDuplicateStepName     ValidationKind = "DuplicateStepName"
	ValidationDuplicateBindingName  ValidationKind = "DuplicateBindingName"
	ValidationDuplicateArgumentName ValidationKind = "DuplicateArgumentName"
	ValidationUndefinedArgument     ValidationKind = "UndefinedArgument"
	ValidationUnknownBinding        ValidationKind = "UnknownBinding"
	ValidationUnknownTool           ValidationKind = "UnknownTool"
	ValidationArgumentArityMismatch ValidationKind = "ArgumentArityMismatch"
	ValidationResourceNotFound      ValidationKind = "ResourceNotFound"
)

// ValidationIssue is one failed check produced by the Validator.
type ValidationIssue struct {
	Kind     ValidationKind
	StepName string
	Detail   string
}

func (i ValidationIssue) Error() string {
	if i.StepName != "" {
		return fmt.Sprintf("%s (step %q): %s", i.Kind, i.StepName, i.Detail)
	}
	return fmt.Sprintf("%s: %s", i.Kind, i.Detail)
}

// ValidationIssues collects every issue found for a single workflow
// definition. Registration aborts if the collection is non-empty —
// a half-registered workflow must never be observable to clients.
type ValidationIssues struct {
	Issues []ValidationIssue
}

func (v *ValidationIssues) Add(kind ValidationKind, stepName, detail string) {
	v.Issues = append(v.Issues, ValidationIssue{Kind: kind, StepName: stepName, Detail: detail})
}

func (v *ValidationIssues) HasIssues() bool {
	return len(v.Issues) > 0
}

func (v *ValidationIssues) Error() string {
	if len(v.Issues) == 0 {
		return "no validation issues"
	}
	if len(v.Issues) == 1 {
		return v.Issues[0].Error()
	}
	return fmt.Sprintf("%d validation issues: %s (and %d more)", len(v.Issues), v.Issues[0].Error(), len(v.Issues)-1)
}

// FirstKind returns the kind of the first recorded issue, or "" if there
// are none. Tests commonly assert on this to check that a specific check
// fired.
func (v *ValidationIssues) FirstKind() ValidationKind {
	if len(v.Issues) == 0 {
		return ""
	}
	return v.Issues[0].Kind
}
