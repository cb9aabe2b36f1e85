// Package workflow implements the execution engine that drives a
// workflow's steps from a prompts/get invocation to completion or pause.
//
// A workflow is an api.WorkflowDefinition: a sequence of api.Step values,
// each naming a tool and a map of parameter names to api.ArgSource
// values describing where that parameter's value comes from (a prompt
// argument, an earlier step's binding, a field within one via gjson, or
// a literal constant). Validate checks a definition for internal
// consistency before it is ever exposed to a client — duplicate names,
// references to undeclared arguments or not-yet-produced bindings,
// unknown tools, argument/schema mismatches, and unresolvable resource
// URIs all abort registration rather than surfacing at run time.
//
// Engine.Execute walks the steps of a validated definition, resolving
// each step's arguments, invoking its tool, and recording the result
// under the step's binding name so later steps can reference it. Any
// point at which a step cannot proceed — a failed tool call, an
// argument that cannot be resolved, or an externally requested
// cancellation — ends execution with a PauseReason rather than an
// error: the trace produced so far, plus a handoff message built by
// BuildHandoff, is everything a caller needs to resume the
// conversation. RecordToolCall is the companion half of that contract:
// it lets a reconnecting client's subsequent tool calls satisfy
// outstanding steps without the engine's involvement, best-effort and
// non-blocking.
//
// Registry loads workflow definitions from YAML files on disk,
// validating each one at load time and logging (rather than aborting
// on) any file that fails to parse or validate.
package workflow
