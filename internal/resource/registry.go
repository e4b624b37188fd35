package resource

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// ModelConfig is the resource configuration for one importable model.
type ModelConfig struct {
	Name     string   `yaml:"-"`
	AppLabel string   `yaml:"app_label"`
	Resource Resource `yaml:"resource"`
	// ExportResources are named alternatives offered for exports. The
	// default resource is used when an export job names none.
	ExportResources map[string]Resource `yaml:"export_resources"`
}

// Registry holds the model configurations loaded at startup. It is built
// once and then only read, so it needs no locking.
type Registry struct {
	models map[string]ModelConfig
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{models: make(map[string]ModelConfig)}
}

// Register adds a model configuration after validating its resources.
func (r *Registry) Register(cfg ModelConfig) error {
	if cfg.Name == "" {
		return fmt.Errorf("model name is required")
	}
	if _, exists := r.models[cfg.Name]; exists {
		return fmt.Errorf("model already registered: %s", cfg.Name)
	}
	if cfg.Resource.Name == "" {
		cfg.Resource.Name = cfg.Name
	}
	if err := cfg.Resource.Validate(); err != nil {
		return err
	}
	for name, res := range cfg.ExportResources {
		if res.Name == "" {
			res.Name = name
		}
		if err := res.Validate(); err != nil {
			return err
		}
		cfg.ExportResources[name] = res
	}
	r.models[cfg.Name] = cfg
	return nil
}

// Get returns a model configuration by name.
func (r *Registry) Get(name string) (ModelConfig, bool) {
	cfg, ok := r.models[name]
	return cfg, ok
}

// ExportResource returns the named export resource for model, or the
// model's default resource when name is empty.
func (r *Registry) ExportResource(model, name string) (*Resource, error) {
	cfg, ok := r.models[model]
	if !ok {
		return nil, fmt.Errorf("unknown model: %s", model)
	}
	if name == "" {
		res := cfg.Resource
		return &res, nil
	}
	res, ok := cfg.ExportResources[name]
	if !ok {
		return nil, fmt.Errorf("model %s has no export resource %q", model, name)
	}
	return &res, nil
}

// All returns every model configuration sorted by name.
func (r *Registry) All() []ModelConfig {
	result := make([]ModelConfig, 0, len(r.models))
	for _, cfg := range r.models {
		result = append(result, cfg)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// Names returns the registered model names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered models.
func (r *Registry) Len() int {
	return len(r.models)
}

// modelsFile is the on-disk layout of the models file.
type modelsFile struct {
	Models map[string]ModelConfig `yaml:"models"`
}

// Parse builds a registry from YAML.
func Parse(data []byte) (*Registry, error) {
	var f modelsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse models: %w", err)
	}

	reg := NewRegistry()
	names := make([]string, 0, len(f.Models))
	for name := range f.Models {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		cfg := f.Models[name]
		cfg.Name = name
		if err := reg.Register(cfg); err != nil {
			return nil, fmt.Errorf("model %s: %w", name, err)
		}
	}
	return reg, nil
}

// LoadFile reads and parses the models file at path.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read models file: %w", err)
	}
	return Parse(data)
}
