package workflow

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"mcpflow/internal/api"
)

// ToolRegistry is a snapshot of the known tools and their signatures,
// captured once and passed into Validate. Distinct from the live tool
// dispatcher the engine calls through at runtime.
type ToolRegistry interface {
	// Lookup returns the ToolRef registered under name, or false if
	// unknown.
	Lookup(name string) (api.ToolRef, bool)
}

// ResourceCatalog is a snapshot of document URIs resolvable at
// registration time.
type ResourceCatalog interface {
	// Resolvable reports whether uri can be embedded into a trace.
	Resolvable(uri string) bool
}

// Validate checks a workflow definition for internal consistency (§4.1).
// It is pure over def plus the snapshots in tools and resources: no I/O
// after those inputs are captured, and deterministic for a fixed input
// triple. A non-empty *api.ValidationIssues means registration must be
// aborted; a half-registered workflow must never be observable to
// clients.
func Validate(def *api.WorkflowDefinition, tools ToolRegistry, resources ResourceCatalog) *api.ValidationIssues {
	issues := &api.ValidationIssues{}

	seenArgs := make(map[string]bool)
	for _, arg := range def.Arguments {
		if seenArgs[arg.Name] {
			issues.Add(api.ValidationDuplicateArgumentName, "", fmt.Sprintf("argument %q declared more than once", arg.Name))
		}
		seenArgs[arg.Name] = true
	}

	seenSteps := make(map[string]bool)
	seenBindings := make(map[string]bool)
	bindingsSoFar := make(map[string]bool)

	for _, step := range def.Steps {
		if seenSteps[step.StepName] {
			issues.Add(api.ValidationDuplicateStepName, step.StepName, "step name declared more than once")
		}
		seenSteps[step.StepName] = true

		if step.Binding != "" {
			if seenBindings[step.Binding] {
				issues.Add(api.ValidationDuplicateBindingName, step.StepName, fmt.Sprintf("binding %q declared more than once", step.Binding))
			}
			seenBindings[step.Binding] = true
		}

		tool, known := tools.Lookup(step.Tool.Name)
		if !known {
			issues.Add(api.ValidationUnknownTool, step.StepName, fmt.Sprintf("tool %q is not registered", step.Tool.Name))
		}

		paramNames := make([]string, 0, len(step.Args))
		for paramName := range step.Args {
			paramNames = append(paramNames, paramName)
		}
		sort.Strings(paramNames)

		for _, paramName := range paramNames {
			src := step.Args[paramName]
			switch src.Kind {
			case api.ArgSourcePromptArg:
				if !seenArgs[src.Name] {
					issues.Add(api.ValidationUndefinedArgument, step.StepName, fmt.Sprintf("argument %q used in parameter %q is not declared on the workflow", src.Name, paramName))
				}
			case api.ArgSourceStepOutput, api.ArgSourceField:
				if !bindingsSoFar[src.Name] {
					issues.Add(api.ValidationUnknownBinding, step.StepName, fmt.Sprintf("binding %q used in parameter %q is not declared by an earlier step", src.Name, paramName))
				}
			case api.ArgSourceConstant, api.ArgSourceClientSupplied:
				// Constant is always available; ClientSupplied is
				// deliberately left for the client LLM to fill in at
				// handoff time (§4.4) and is not a registration defect.
			}
		}

		if known && len(tool.Schema) > 0 {
			if mismatch := checkArity(tool, step); mismatch != "" {
				issues.Add(api.ValidationArgumentArityMismatch, step.StepName, mismatch)
			}
		}

		for _, res := range step.Resources {
			if !resources.Resolvable(res.URI) {
				issues.Add(api.ValidationResourceNotFound, step.StepName, fmt.Sprintf("resource %q is not resolvable", res.URI))
			}
		}

		// Bindings become available to steps strictly after this one
		// (§8 invariant 2: "earlier" means strictly prior in
		// declaration order).
		if step.Binding != "" {
			bindingsSoFar[step.Binding] = true
		}
	}

	return issues
}

// checkArity compiles the tool's JSON Schema and diffs its
// required/properties sets against the step's args keys. Schema
// compilation failures are reported as an arity mismatch rather than
// silently skipping the check, since a tool registered with an
// unparseable schema is itself a registration-time defect.
func checkArity(tool api.ToolRef, step api.Step) string {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(tool.Name+".json", mustUnmarshalJSON(tool.Schema)); err != nil {
		return fmt.Sprintf("tool %q has an invalid argument schema: %v", tool.Name, err)
	}
	schema, err := compiler.Compile(tool.Name + ".json")
	if err != nil {
		return fmt.Sprintf("tool %q has an invalid argument schema: %v", tool.Name, err)
	}

	required := make(map[string]bool)
	for _, r := range schema.Required {
		required[r] = true
	}

	provided := make(map[string]bool, len(step.Args))
	providedNames := make([]string, 0, len(step.Args))
	for name := range step.Args {
		provided[name] = true
		providedNames = append(providedNames, name)
	}
	sort.Strings(providedNames)

	requiredNames := make([]string, 0, len(required))
	for r := range required {
		requiredNames = append(requiredNames, r)
	}
	sort.Strings(requiredNames)

	for _, r := range requiredNames {
		if !provided[r] {
			return fmt.Sprintf("tool %q requires parameter %q, not supplied by step args", tool.Name, r)
		}
	}

	if schema.Properties != nil {
		for _, name := range providedNames {
			if _, ok := schema.Properties[name]; !ok {
				return fmt.Sprintf("tool %q does not accept parameter %q", tool.Name, name)
			}
		}
	}

	return ""
}

func mustUnmarshalJSON(raw []byte) interface{} {
	v, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		// A malformed schema is caught by checkArity's caller via the
		// compiler's own error path; returning nil here just lets
		// AddResource surface the real error.
		return nil
	}
	return v
}
