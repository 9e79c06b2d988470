// Package persona holds the static registry of agent personas: system
// instructions, the tool set the model may invoke, and the HTTP endpoint
// that executes those tools.
package persona

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed personas.yaml
var builtin []byte

// PayloadStyle selects the body shape sent to the execution endpoint.
type PayloadStyle string

const (
	// PayloadCommand: single-tool personas, body {"command": "..."}.
	PayloadCommand PayloadStyle = "command"
	// PayloadToolArgs: multi-tool personas, body {"tool": "...", "args": {...}}.
	PayloadToolArgs PayloadStyle = "tool_args"
)

// ToolSpec describes one invocable tool the way the model sees it.
type ToolSpec struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Parameters  map[string]any `yaml:"parameters"`
}

// Persona is immutable after load.
type Persona struct {
	Name         string       `yaml:"name"`
	SystemPrompt string       `yaml:"system_prompt"`
	Endpoint     string       `yaml:"endpoint"`
	Payload      PayloadStyle `yaml:"payload"`
	Tools        []ToolSpec   `yaml:"tools"`
}

type Registry struct {
	personas map[string]Persona
}

type registryFile struct {
	Personas []Persona `yaml:"personas"`
}

// Load parses the built-in persona definitions.
func Load() (*Registry, error) {
	return parse(builtin)
}

// LoadFile parses persona definitions from an override file.
func LoadFile(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading persona file: %w", err)
	}
	return parse(raw)
}

func parse(raw []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parsing persona definitions: %w", err)
	}

	personas := make(map[string]Persona, len(file.Personas))
	for _, p := range file.Personas {
		if p.Name == "" {
			return nil, fmt.Errorf("persona without a name")
		}
		if _, dup := personas[p.Name]; dup {
			return nil, fmt.Errorf("duplicate persona %q", p.Name)
		}
		if p.Endpoint == "" {
			return nil, fmt.Errorf("persona %q has no execution endpoint", p.Name)
		}
		if p.Payload == "" {
			if len(p.Tools) == 1 {
				p.Payload = PayloadCommand
			} else {
				p.Payload = PayloadToolArgs
			}
		}
		personas[p.Name] = p
	}
	return &Registry{personas: personas}, nil
}

// Get returns the persona by name.
func (r *Registry) Get(name string) (Persona, error) {
	p, ok := r.personas[name]
	if !ok {
		return Persona{}, fmt.Errorf("unknown persona %q", name)
	}
	return p, nil
}

// Names lists registered persona names in stable order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.personas))
	for name := range r.personas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
