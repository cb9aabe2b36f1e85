package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mcpflow/internal/api"
	"mcpflow/internal/config"
	"mcpflow/internal/resources"
	"mcpflow/internal/workflow"
)

var (
	validateWorkflowsDir string
	validateResourcesDir string
)

// validateCmd is the scoped-down descendant of the teacher's
// config-validation commands: it loads a workflow directory through the
// same registration path serve uses, but never starts a server (§4.9).
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a workflow directory without serving it",
	Long: `validate loads every workflow definition under --workflows and runs
the registration-time structural checks (§4.1): duplicate names,
undefined or unknown bindings, and unresolved resource references. It
never starts a server.

Tool existence (UnknownTool) and argument arity are checked against
whatever tool registry a real serve process builds, not here: without a
running host there is no tool registry snapshot to check against, so
validate treats every tool name as known and skips arity checking. Use
"mcpflow serve" itself, or its startup log, to catch a workflow step
naming a tool the host doesn't actually provide.`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateWorkflowsDir, "workflows", "", "directory whose workflows/ subdirectory holds the workflow definitions (required)")
	validateCmd.Flags().StringVar(&validateResourcesDir, "resources", "", "directory resolving workflow step resource:// URIs (optional)")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(_ *cobra.Command, _ []string) error {
	if err := config.ValidateRequired("workflows", validateWorkflowsDir, "validate"); err != nil {
		return err
	}

	var catalog workflow.ResourceCatalog = emptyResourceCatalog{}
	if validateResourcesDir != "" {
		catalog = resources.NewFileCatalog(validateResourcesDir)
	}

	registry := workflow.NewRegistry()

	err := registry.LoadDirectory(validateWorkflowsDir, permissiveToolRegistry{}, catalog)
	if err != nil {
		var errs config.ConfigurationErrorCollection
		if asConfigErrors(err, &errs) {
			fmt.Fprint(os.Stderr, errs.GetDetailedReport())
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		return fmt.Errorf("validation failed")
	}

	fmt.Printf("%d workflow(s) validated cleanly\n", len(registry.List()))
	return nil
}

// permissiveToolRegistry treats every tool name as known and carries no
// schema, so validate's structural pass never reports UnknownTool or
// runs arity checking against tools no host is actually running yet.
type permissiveToolRegistry struct{}

func (permissiveToolRegistry) Lookup(name string) (api.ToolRef, bool) {
	return api.ToolRef{Name: name}, true
}
