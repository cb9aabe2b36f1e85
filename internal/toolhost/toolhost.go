// Package toolhost is the in-process stand-in for the "host tool-dispatch
// path" the spec treats as an external collaborator (§1: "Individual tool
// implementations ... are opaque callables with JSON-in, JSON-out
// contracts"). It satisfies workflow.ToolRegistry (for registration-time
// validation) and workflow.ToolInvoker (for the engine's runtime calls),
// and doubles as the mcp-go tools/call dispatcher cmd/mcpflow mounts so
// that tool calls made directly by a reconnecting client and tool calls
// made by the engine go through the exact same handlers (§9: "Tool
// handlers remain ignorant of workflows").
package toolhost

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"mcpflow/internal/api"
)

// Handler is an opaque tool implementation: JSON-in, JSON-out.
type Handler func(ctx context.Context, args map[string]api.Value) (api.Value, error)

// registered is one tool's reference plus its handler.
type registered struct {
	ref     api.ToolRef
	handler Handler
}

// Host is a process-wide, read-only-after-setup tool registry and
// dispatcher (§5: "the tool registry are process-wide, read-only after
// registration").
type Host struct {
	mu    sync.RWMutex
	tools map[string]registered
}

// New builds an empty Host.
func New() *Host {
	return &Host{tools: make(map[string]registered)}
}

// Register adds a tool under name, with an optional JSON Schema used by
// the validator's ArgumentArityMismatch check (nil skips that check).
func (h *Host) Register(name string, schema json.RawMessage, handler Handler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tools[name] = registered{ref: api.ToolRef{Name: name, Schema: schema}, handler: handler}
}

// Lookup implements workflow.ToolRegistry.
func (h *Host) Lookup(name string) (api.ToolRef, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	r, ok := h.tools[name]
	return r.ref, ok
}

// Names returns every registered tool name, sorted.
func (h *Host) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.tools))
	for n := range h.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Invoke implements workflow.ToolInvoker: it dispatches to the registered
// handler and returns the handler's error unchanged. The engine treats an
// error that is not a *workflow.ToolError as retryable.
func (h *Host) Invoke(ctx context.Context, tool api.ToolRef, args map[string]api.Value, ownerID string) (api.Value, error) {
	h.mu.RLock()
	r, ok := h.tools[tool.Name]
	h.mu.RUnlock()
	if !ok {
		return nil, api.NewUnknownToolError(tool.Name)
	}
	return r.handler(ctx, args)
}

// Call runs a tool by name outside of workflow execution — the entry
// point the MCP tools/call dispatcher and the reconnection path share.
func (h *Host) Call(ctx context.Context, name string, args map[string]api.Value) (api.Value, error) {
	h.mu.RLock()
	r, ok := h.tools[name]
	h.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("tool %q is not registered", name)
	}
	return r.handler(ctx, args)
}
