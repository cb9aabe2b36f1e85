package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid
	// arguments, workflow validation failure).
	ExitCodeError = 1
)

// rootCmd is the entry point when mcpflow is invoked without a
// subcommand.
var rootCmd = &cobra.Command{
	Use:   "mcpflow",
	Short: "Run a Model Context Protocol workflow execution engine",
	Long: `mcpflow serves MCP-authored multi-step workflows: it registers a
workflow directory as prompts/get handlers, drives each run through its
tool steps, and hands execution back to the connected client whenever a
step cannot complete on its own.

Use 'mcpflow serve' to start the server, or 'mcpflow validate' to check
a workflow directory without serving it.`,
	SilenceUsage: true,
}

// SetVersion sets the version for the root command. Called from main
// with the build-time version string.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute runs the root command, translating a returned error into a
// process exit code.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "mcpflow version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitCodeError)
	}
}
