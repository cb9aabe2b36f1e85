package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"mcpflow/internal/api"
	"mcpflow/internal/config"
	"mcpflow/internal/prompthandler"
	"mcpflow/internal/resources"
	"mcpflow/internal/taskstore"
	"mcpflow/internal/toolhost"
	"mcpflow/internal/workflow"
	"mcpflow/pkg/logging"
)

var (
	serveWorkflowsDir string
	serveStore        string
	serveRedisAddr    string
	serveResourcesDir string
	serveLogLevel     string
)

// serveCmd starts an MCP server exposing every workflow under
// --workflows as a prompts/get handler, plus the tasks/* lifecycle
// endpoints mounted as ordinary MCP tools (§4.9, §6).
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP workflow execution server",
	Long: `serve loads workflow definitions from --workflows, validates each
one against the built-in tool registry, and starts an MCP server over
stdio exposing:

  - prompts/get for every workflow that validated cleanly
  - tasks_get, tasks_result, tasks_cancel tools implementing the
    tasks/* lifecycle endpoints
  - any demonstration tools registered for local smoke testing

The task store backing task state is selected with --store.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveWorkflowsDir, "workflows", "", "directory whose workflows/ subdirectory holds the workflow definitions (required)")
	serveCmd.Flags().StringVar(&serveStore, "store", "memory", "task store backend: memory or redis")
	serveCmd.Flags().StringVar(&serveRedisAddr, "redis-addr", "", "redis address, required when --store=redis")
	serveCmd.Flags().StringVar(&serveResourcesDir, "resources", "", "directory resolving workflow step resource:// URIs (optional)")
	serveCmd.Flags().StringVar(&serveLogLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cobraCmd *cobra.Command, _ []string) error {
	cfg := config.ServeConfig{
		WorkflowsDir: serveWorkflowsDir,
		Store:        config.StoreBackend(serveStore),
		RedisAddr:    serveRedisAddr,
		LogLevel:     serveLogLevel,
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logging.InitForCLI(parseLogLevel(cfg.LogLevel), os.Stderr)

	store, closeStore, err := buildStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	host := toolhost.New()
	registerDemoTools(host)

	registry := workflow.NewRegistry()
	var catalog workflow.ResourceCatalog = emptyResourceCatalog{}
	var reader workflow.ResourceReader
	if serveResourcesDir != "" {
		fc := resources.NewFileCatalog(serveResourcesDir)
		catalog = fc
		reader = fc
	}

	if err := registry.LoadDirectory(cfg.WorkflowsDir, host, catalog); err != nil {
		var errs config.ConfigurationErrorCollection
		if asConfigErrors(err, &errs) {
			fmt.Fprint(os.Stderr, errs.GetDetailedReport())
		}
		logging.Warn("Serve", "some workflows failed to register: %v", err)
	}

	engine := workflow.NewEngine(host, store)
	if reader != nil {
		engine = engine.WithResourceReader(reader)
	}
	handler := prompthandler.New(registry, engine, store)

	mcpServer := server.NewMCPServer(
		"mcpflow",
		rootCmd.Version,
		server.WithToolCapabilities(false),
		server.WithPromptCapabilities(false),
	)

	for _, def := range registry.List() {
		registerWorkflowPrompt(mcpServer, handler, def)
	}
	registerTaskTools(mcpServer, handler)
	registerToolDispatch(mcpServer, host, handler)

	logging.Info("Serve", "mcpflow serving %d workflow(s) from %s (store=%s)", len(registry.List()), cfg.WorkflowsDir, cfg.Store)

	return server.ServeStdio(mcpServer)
}

func buildStore(cfg config.ServeConfig) (taskstore.Store, func(), error) {
	switch cfg.Store {
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(context.Background()).Err(); err != nil {
			return nil, nil, fmt.Errorf("connecting to redis at %s: %w", cfg.RedisAddr, err)
		}
		return taskstore.NewRedis(client), func() { _ = client.Close() }, nil
	default:
		return taskstore.NewMemory(), func() {}, nil
	}
}

func parseLogLevel(s string) logging.LogLevel {
	switch s {
	case "debug":
		return logging.LevelDebug
	case "warn":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

// registerDemoTools mounts a couple of trivial tools so a freshly
// checked-out workflow directory has something to call during smoke
// testing (§4.9: "local development and smoke testing"). Real
// deployments replace this with whatever the host process's actual
// tool surface is — tool handlers are opaque callables the engine never
// needs to know the origin of (§1, §9).
func registerDemoTools(host *toolhost.Host) {
	host.Register("echo", nil, func(_ context.Context, args map[string]api.Value) (api.Value, error) {
		return args, nil
	})
	host.Register("now", nil, func(_ context.Context, _ map[string]api.Value) (api.Value, error) {
		return map[string]api.Value{"timestamp": time.Now().UTC().Format(time.RFC3339)}, nil
	})
}

type emptyResourceCatalog struct{}

func (emptyResourceCatalog) Resolvable(string) bool { return false }

// asConfigErrors adapts errors.As for the value-receiver
// ConfigurationErrorCollection error type.
func asConfigErrors(err error, target *config.ConfigurationErrorCollection) bool {
	if cec, ok := err.(config.ConfigurationErrorCollection); ok {
		*target = cec
		return true
	}
	return false
}

// registerWorkflowPrompt mounts one workflow as a prompts/get handler,
// declaring its arguments exactly as the workflow definition does.
func registerWorkflowPrompt(mcpServer *server.MCPServer, handler *prompthandler.Handler, def *api.WorkflowDefinition) {
	opts := []mcp.PromptOption{mcp.WithPromptDescription(def.Description)}
	for _, arg := range def.Arguments {
		argOpts := []mcp.ArgumentOption{mcp.ArgumentDescription(arg.Description)}
		if arg.Required {
			argOpts = append(argOpts, mcp.RequiredArgument())
		}
		opts = append(opts, mcp.WithArgument(arg.Name, argOpts...))
	}
	prompt := mcp.NewPrompt(def.Name, opts...)

	mcpServer.AddPrompt(prompt, func(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		ownerID := callerIdentity(ctx)
		return handler.GetPrompt(ctx, request.Params.Name, request.Params.Arguments, ownerID)
	})
}

// registerTaskTools mounts the tasks/* lifecycle endpoints (§6) as MCP
// tools, since MCP's native verb surface has no dedicated task
// primitives; callers address a task purely by the task_id it was
// handed back in _meta.
func registerTaskTools(mcpServer *server.MCPServer, handler *prompthandler.Handler) {
	getTool := mcp.NewTool("tasks_get",
		mcp.WithDescription("Return a task's status and variables, subject to an ownership check"),
		mcp.WithString("task_id", mcp.Required(), mcp.Description("Identifier returned in a prompts/get response's _meta")),
	)
	mcpServer.AddTool(getTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		taskID, err := request.RequireString("task_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		snapshot, err := handler.GetTask(ctx, taskID, callerIdentity(ctx))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("status=%s variables=%v", snapshot.Status, snapshot.Variables)), nil
	})

	resultTool := mcp.NewTool("tasks_result",
		mcp.WithDescription("Return a completed task's stored result"),
		mcp.WithString("task_id", mcp.Required(), mcp.Description("Identifier returned in a prompts/get response's _meta")),
	)
	mcpServer.AddTool(resultTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		taskID, err := request.RequireString("task_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		result, err := handler.GetResult(ctx, taskID, callerIdentity(ctx))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("%v", result)), nil
	})

	cancelTool := mcp.NewTool("tasks_cancel",
		mcp.WithDescription("Cancel a task, or complete it with a client-supplied result"),
		mcp.WithString("task_id", mcp.Required(), mcp.Description("Identifier returned in a prompts/get response's _meta")),
		mcp.WithString("result", mcp.Description("If set, completes the task with this result instead of cancelling it")),
	)
	mcpServer.AddTool(cancelTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		taskID, err := request.RequireString("task_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		args := request.GetArguments()
		var result api.Value
		if raw, ok := args["result"]; ok {
			result = raw
		}
		if err := handler.CancelTask(ctx, taskID, callerIdentity(ctx), result); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText("ok"), nil
	})
}

// registerToolDispatch mounts every registered tool as a plain MCP tool
// and, after each call, runs the reconnection observer against the
// request's _meta._task_id (§4.5, §6: "the host must both dispatch the
// tool normally and invoke the reconnection recorder after success").
func registerToolDispatch(mcpServer *server.MCPServer, host *toolhost.Host, handler *prompthandler.Handler) {
	for _, name := range host.Names() {
		toolName := name
		tool := mcp.NewTool(toolName, mcp.WithDescription(fmt.Sprintf("Invoke the %s tool", toolName)))
		mcpServer.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			ownerID := callerIdentity(ctx)
			result, err := host.Call(ctx, toolName, request.GetArguments())
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			handler.ObserveToolCall(ctx, requestMeta(request), ownerID, toolName, result)
			return mcp.NewToolResultText(fmt.Sprintf("%v", result)), nil
		})
	}
}

func requestMeta(request mcp.CallToolRequest) map[string]interface{} {
	if request.Params.Meta == nil {
		return nil
	}
	return request.Params.Meta.AdditionalFields
}

// callerIdentity is a placeholder ownership key for local/stdio
// serving, where there is exactly one connected client and no
// authentication layer in scope (§1 Non-goals). A host embedding this
// engine behind a multi-tenant transport supplies a real per-connection
// identity here instead.
func callerIdentity(_ context.Context) string {
	return "local"
}
