// Package api holds the data model shared by the workflow engine, the task
// store, and the prompt handler: workflow definitions, steps, argument
// sources, tasks, and pause reasons.
package api

import "encoding/json"

// Value is an arbitrary JSON-shaped value threaded between steps and stored
// in task variables.
type Value = interface{}

// Argument is a workflow-level input declared on a WorkflowDefinition.
type Argument struct {
	Name        string
	Description string
	Required    bool
}

// WorkflowDefinition is immutable after registration. It describes a named,
// argument-accepting, ordered sequence of steps registered as a host prompt.
type WorkflowDefinition struct {
	Name        string
	Description string

	// Arguments is ordered; Name must be unique within the workflow.
	Arguments []Argument

	// Instructions are prepended to the trace as system-role messages.
	Instructions []string

	// Steps fixes the execution sequence.
	Steps []Step

	// OutputBindings is the set of binding names considered the
	// workflow's result surface. It holds only what the definition
	// declares; nothing fills it from the bindings of Steps when empty.
	OutputBindings []string
}

// ArgumentByName returns the argument declaration with the given name, if
// any.
func (d *WorkflowDefinition) ArgumentByName(name string) (Argument, bool) {
	for _, a := range d.Arguments {
		if a.Name == name {
			return a, true
		}
	}
	return Argument{}, false
}

// BindingsBefore returns the set of binding names declared by steps up to
// (but not including) stepIndex.
func (d *WorkflowDefinition) BindingsBefore(stepIndex int) map[string]bool {
	out := make(map[string]bool)
	for i, s := range d.Steps {
		if i >= stepIndex {
			break
		}
		if s.Binding != "" {
			out[s.Binding] = true
		}
	}
	return out
}

// ToolRef is an opaque reference to a registered tool: its name plus
// optional signature metadata used by the validator's ArgumentArityMismatch
// check.
type ToolRef struct {
	Name string
	// Schema is the tool's JSON Schema for its argument object, or nil if
	// the signature is unknown (in which case arity is not checked).
	Schema json.RawMessage
}

// Resource is a document embedded into the trace when its owning step is
// reached.
type Resource struct {
	URI string
}

// Step is one entry in a workflow's ordered list of tool invocations.
type Step struct {
	// StepName is unique within the workflow, distinct from any binding
	// name. Used in trace messages and diagnostics.
	StepName string

	// Tool is the tool this step invokes.
	Tool ToolRef

	// Args maps the tool's parameter names to an ArgSource.
	Args map[string]ArgSource

	// Guidance is optional prose shown to the LLM at handoff time,
	// supporting {arg} substitution from workflow arguments.
	Guidance string

	// Resources are document URIs whose contents are embedded into the
	// trace when this step is reached.
	Resources []Resource

	// Binding is the name under which this step's output is stored for
	// downstream steps. Empty for terminal or side-effect-only steps.
	Binding string
}

// ArgSourceKind discriminates the ArgSource tagged union.
type ArgSourceKind int

const (
	// ArgSourcePromptArg takes the value of a workflow argument.
	ArgSourcePromptArg ArgSourceKind = iota
	// ArgSourceStepOutput takes the entire output of a prior step, by
	// binding name.
	ArgSourceStepOutput
	// ArgSourceField extracts a single field from a prior step's output
	// via a dotted JSON path.
	ArgSourceField
	// ArgSourceConstant is a literal JSON value, always available.
	ArgSourceConstant
	// ArgSourceClientSupplied marks a parameter a hybrid step
	// deliberately leaves for the client LLM to fill in; it never
	// resolves on the server and always pauses with IncompleteBinding.
	ArgSourceClientSupplied
)

// ArgSource is a tagged variant describing where a step argument's value
// comes from. Exactly the fields relevant to Kind are meaningful.
type ArgSource struct {
	Kind ArgSourceKind

	// PromptArg / StepOutput / Field share this: the name referenced.
	// For PromptArg, Name is the workflow argument name.
	// For StepOutput and Field, Name is the binding name.
	Name string

	// Path is the dotted JSON key path, only meaningful for
	// ArgSourceField.
	Path string

	// Constant is the literal value, only meaningful for
	// ArgSourceConstant.
	Constant Value
}

// PromptArg builds an ArgSource bound to a workflow argument.
func PromptArg(name string) ArgSource {
	return ArgSource{Kind: ArgSourcePromptArg, Name: name}
}

// StepOutput builds an ArgSource bound to a prior step's entire output.
func StepOutput(binding string) ArgSource {
	return ArgSource{Kind: ArgSourceStepOutput, Name: binding}
}

// Field builds an ArgSource bound to a single field of a prior step's
// output.
func Field(binding, path string) ArgSource {
	return ArgSource{Kind: ArgSourceField, Name: binding, Path: path}
}

// Constant builds an ArgSource wrapping a literal JSON value.
func Constant(value Value) ArgSource {
	return ArgSource{Kind: ArgSourceConstant, Constant: value}
}

// ClientSupplied builds an ArgSource for a hybrid step's intentionally
// missing parameter, named for the handoff message that asks the client
// LLM to supply it.
func ClientSupplied(paramName string) ArgSource {
	return ArgSource{Kind: ArgSourceClientSupplied, Name: paramName}
}
