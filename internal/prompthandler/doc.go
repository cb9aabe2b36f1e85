// Package prompthandler wires a workflow.Registry, workflow.Engine, and
// taskstore.Store into the request-handling shape an MCP server exposes:
// prompts/get to start a workflow, tasks/get and tasks/result to poll a
// paused one, tasks/cancel to abandon it, and an observer hook so
// tools/call requests that carry a task_id can be recorded against a
// pending step without the engine's involvement.
//
// Handler holds no transport-specific state — no net/http, no SSE, no
// stdio framing. It is grounded on metatools.Adapter's pattern of a
// thin layer translating between MCP wire types and the underlying
// domain, and is meant to be mounted onto a *server.MCPServer by the
// CLI entrypoint.
package prompthandler
