package workflow

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"mcpflow/internal/api"
	"mcpflow/internal/config"
	"mcpflow/pkg/logging"
)

// yamlArgSource is the on-disk shape of an api.ArgSource. Exactly one of
// the fields is set, matching the five ArgSource variants; the loader
// rejects files declaring more than one.
type yamlArgSource struct {
	PromptArg      string      `yaml:"prompt_arg,omitempty"`
	StepOutput     string      `yaml:"step_output,omitempty"`
	Field          string      `yaml:"field,omitempty"`
	Path           string      `yaml:"path,omitempty"`
	Constant       interface{} `yaml:"constant,omitempty"`
	ClientSupplied bool        `yaml:"client_supplied,omitempty"`
	hasConst       bool        `yaml:"-"`
}

func (y *yamlArgSource) UnmarshalYAML(node *yaml.Node) error {
	type plain yamlArgSource
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*y = yamlArgSource(p)
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == "constant" {
			y.hasConst = true
		}
	}
	return nil
}

func (y yamlArgSource) toArgSource(stepName, paramName string) (api.ArgSource, error) {
	set := 0
	if y.PromptArg != "" {
		set++
	}
	if y.StepOutput != "" {
		set++
	}
	if y.Field != "" {
		set++
	}
	if y.hasConst {
		set++
	}
	if y.ClientSupplied {
		set++
	}
	if set != 1 {
		return api.ArgSource{}, fmt.Errorf("step %q parameter %q must set exactly one of prompt_arg, step_output, field, constant, client_supplied", stepName, paramName)
	}

	switch {
	case y.PromptArg != "":
		return api.PromptArg(y.PromptArg), nil
	case y.StepOutput != "":
		return api.StepOutput(y.StepOutput), nil
	case y.Field != "":
		return api.Field(y.Field, y.Path), nil
	case y.ClientSupplied:
		return api.ClientSupplied(paramName), nil
	default:
		return api.Constant(y.Constant), nil
	}
}

type yamlResource struct {
	URI string `yaml:"uri"`
}

type yamlStep struct {
	Name      string                   `yaml:"name"`
	Tool      string                   `yaml:"tool"`
	Args      map[string]yamlArgSource `yaml:"args"`
	Guidance  string                   `yaml:"guidance"`
	Resources []yamlResource           `yaml:"resources"`
	Binding   string                   `yaml:"binding"`
}

type yamlArgument struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Required    bool   `yaml:"required"`
}

type yamlWorkflow struct {
	Name           string         `yaml:"name"`
	Description    string         `yaml:"description"`
	Arguments      []yamlArgument `yaml:"arguments"`
	Instructions   []string       `yaml:"instructions"`
	Steps          []yamlStep     `yaml:"steps"`
	OutputBindings []string       `yaml:"output_bindings"`
}

// Registry holds the set of workflow definitions loaded from disk,
// grounded on muster's LoadDefinitions one-bad-file-skipped policy but
// rewritten for the YAML-encoded api.WorkflowDefinition shape instead of
// the CRD types the teacher loaded.
type Registry struct {
	mu        sync.RWMutex
	workflows map[string]*api.WorkflowDefinition
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{workflows: make(map[string]*api.WorkflowDefinition)}
}

// LoadDirectory parses every *.yaml/*.yml file in dir's workflows/
// subdirectory into a WorkflowDefinition, validates it against tools and resources, and
// registers the ones that pass. Reading goes through a config.Storage
// rooted at dir under the "workflows" entity type, the same generic
// on-disk layout the rest of the server uses for persisted state. A
// file that fails to parse or validate is logged and skipped rather
// than aborting the whole load, so one bad definition never blocks the
// rest of the directory. All failures are returned together as a
// config.ConfigurationErrorCollection value; a nil return means every file
// registered cleanly.
func (r *Registry) LoadDirectory(dir string, tools ToolRegistry, resources ResourceCatalog) error {
	const entityType = "workflows"
	storage := config.NewStorageWithPath(dir)

	names, err := storage.List(entityType)
	if err != nil {
		return fmt.Errorf("listing workflow directory %s: %w", dir, err)
	}

	errs := config.NewConfigurationErrorCollection()

	for _, name := range names {
		raw, loadErr := storage.Load(entityType, name)
		if loadErr != nil {
			logging.Warn("Registry", "skipping %s: %v", name, loadErr)
			errs.AddError(filepath.Join(dir, entityType, name), name, entityType, entityType, "io", loadErr.Error())
			continue
		}

		def, parseErr := parseDefinition(raw)
		if parseErr != nil {
			logging.Warn("Registry", "skipping %s: %v", name, parseErr)
			errs.AddError(filepath.Join(dir, entityType, name), name, entityType, entityType, "parse", parseErr.Error())
			continue
		}

		if issues := Validate(def, tools, resources); issues.HasIssues() {
			logging.Warn("Registry", "skipping %s: %v", name, issues.Error())
			errs.AddError(filepath.Join(dir, entityType, name), name, entityType, entityType, "validation", issues.Error())
			continue
		}

		r.register(def)
		logging.Info("Registry", "registered workflow %q from %s", def.Name, name)
	}

	if errs.HasErrors() {
		return *errs
	}
	return nil
}

func parseDefinition(raw []byte) (*api.WorkflowDefinition, error) {
	var y yamlWorkflow
	if err := yaml.Unmarshal(raw, &y); err != nil {
		return nil, err
	}

	if y.Name == "" {
		return nil, fmt.Errorf("workflow is missing a name")
	}

	def := &api.WorkflowDefinition{
		Name:           y.Name,
		Description:    y.Description,
		Instructions:   y.Instructions,
		OutputBindings: y.OutputBindings,
	}

	for _, a := range y.Arguments {
		def.Arguments = append(def.Arguments, api.Argument{
			Name:        a.Name,
			Description: a.Description,
			Required:    a.Required,
		})
	}

	for _, s := range y.Steps {
		step := api.Step{
			StepName: s.Name,
			Tool:     api.ToolRef{Name: s.Tool},
			Guidance: s.Guidance,
			Binding:  s.Binding,
			Args:     make(map[string]api.ArgSource, len(s.Args)),
		}
		for paramName, src := range s.Args {
			resolved, err := src.toArgSource(s.Name, paramName)
			if err != nil {
				return nil, err
			}
			step.Args[paramName] = resolved
		}
		for _, res := range s.Resources {
			step.Resources = append(step.Resources, api.Resource{URI: res.URI})
		}
		def.Steps = append(def.Steps, step)
	}

	return def, nil
}

func (r *Registry) register(def *api.WorkflowDefinition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workflows[def.Name] = def
}

// Add registers a single already-validated definition directly, without
// going through LoadDirectory. Useful for definitions built
// programmatically and for tests.
func (r *Registry) Add(def *api.WorkflowDefinition) {
	r.register(def)
}

// Get returns the named workflow definition, or false if unknown.
func (r *Registry) Get(name string) (*api.WorkflowDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.workflows[name]
	return def, ok
}

// List returns every registered workflow, sorted by name for stable
// output.
func (r *Registry) List() []*api.WorkflowDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*api.WorkflowDefinition, 0, len(r.workflows))
	for _, def := range r.workflows {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
