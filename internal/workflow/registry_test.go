package workflow

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcpflow/internal/api"
	"mcpflow/internal/config"
)

const validWorkflowYAML = `
name: deploy
description: provisions and verifies infrastructure
arguments:
  - name: region
    required: true
steps:
  - name: provision
    tool: infra_create
    binding: created
    args:
      region:
        prompt_arg: region
  - name: verify
    tool: infra_check
    binding: checked
    args:
      id:
        step_output: created
`

const malformedWorkflowYAML = `
name: [this is not valid yaml
`

const unknownToolWorkflowYAML = `
name: broken
steps:
  - name: only
    tool: does_not_exist
    binding: result
`

func writeWorkflowFile(t *testing.T, dir, name, content string) {
	t.Helper()
	workflowsDir := filepath.Join(dir, "workflows")
	require.NoError(t, os.MkdirAll(workflowsDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(workflowsDir, name+".yaml"), []byte(content), 0644))
}

func TestRegistry_LoadDirectory_RegistersValidDefinitions(t *testing.T) {
	dir := t.TempDir()
	writeWorkflowFile(t, dir, "deploy", validWorkflowYAML)

	reg := NewRegistry()
	err := reg.LoadDirectory(dir, validTools(), &stubResources{})
	assert.NoError(t, err)

	def, ok := reg.Get("deploy")
	require.True(t, ok)
	assert.Equal(t, "deploy", def.Name)
	assert.Len(t, def.Steps, 2)
}

func TestRegistry_LoadDirectory_SkipsMalformedFileWithoutAbortingDirectory(t *testing.T) {
	dir := t.TempDir()
	writeWorkflowFile(t, dir, "broken", malformedWorkflowYAML)
	writeWorkflowFile(t, dir, "deploy", validWorkflowYAML)

	reg := NewRegistry()
	err := reg.LoadDirectory(dir, validTools(), &stubResources{})
	require.Error(t, err)

	var collection config.ConfigurationErrorCollection
	require.ErrorAs(t, err, &collection)
	assert.Equal(t, 1, collection.Count())

	_, ok := reg.Get("deploy")
	assert.True(t, ok)
}

func TestRegistry_LoadDirectory_SkipsValidationFailures(t *testing.T) {
	dir := t.TempDir()
	writeWorkflowFile(t, dir, "broken", unknownToolWorkflowYAML)
	writeWorkflowFile(t, dir, "deploy", validWorkflowYAML)

	reg := NewRegistry()
	err := reg.LoadDirectory(dir, validTools(), &stubResources{})
	require.Error(t, err)

	var collection config.ConfigurationErrorCollection
	require.ErrorAs(t, err, &collection)
	require.Len(t, collection.Errors, 1)
	assert.Equal(t, "validation", collection.Errors[0].ErrorType)

	_, ok := reg.Get("broken")
	assert.False(t, ok)
	_, ok = reg.Get("deploy")
	assert.True(t, ok)
}

func TestRegistry_LoadDirectory_EmptyDirectoryIsNotAnError(t *testing.T) {
	dir := t.TempDir()

	reg := NewRegistry()
	err := reg.LoadDirectory(dir, validTools(), &stubResources{})
	assert.NoError(t, err)
	assert.Empty(t, reg.List())
}

func TestRegistry_Add_RegistersProgrammaticDefinition(t *testing.T) {
	reg := NewRegistry()
	def := &api.WorkflowDefinition{Name: "manual"}
	reg.Add(def)

	got, ok := reg.Get("manual")
	require.True(t, ok)
	assert.Same(t, def, got)
}

func TestRegistry_List_ReturnsSortedByName(t *testing.T) {
	reg := NewRegistry()
	reg.Add(&api.WorkflowDefinition{Name: "zebra"})
	reg.Add(&api.WorkflowDefinition{Name: "alpha"})
	reg.Add(&api.WorkflowDefinition{Name: "mid"})

	names := make([]string, 0, 3)
	for _, d := range reg.List() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"alpha", "mid", "zebra"}, names)
}

func TestParseDefinition_RejectsMultipleArgSourceFields(t *testing.T) {
	yamlDoc := `
name: ambiguous
steps:
  - name: only
    tool: infra_create
    args:
      region:
        prompt_arg: region
        constant: us-east-1
`
	_, err := parseDefinition([]byte(yamlDoc))
	assert.Error(t, err)
}

func TestParseDefinition_RequiresName(t *testing.T) {
	_, err := parseDefinition([]byte("steps: []"))
	assert.Error(t, err)
}

func TestParseDefinition_ParsesClientSuppliedArg(t *testing.T) {
	yamlDoc := `
name: approve
steps:
  - name: grant_access
    tool: access_grant
    binding: granted
    args:
      approver_id:
        client_supplied: true
`
	def, err := parseDefinition([]byte(yamlDoc))
	require.NoError(t, err)
	require.Len(t, def.Steps, 1)

	src := def.Steps[0].Args["approver_id"]
	assert.Equal(t, api.ArgSourceClientSupplied, src.Kind)
	assert.Equal(t, "approver_id", src.Name)
}
