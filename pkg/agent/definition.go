package agent

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Definition declares one agent of a graph by reference
type Definition struct {
	Name                string         `json:"name" yaml:"name"`
	Instructions        string         `json:"instructions" yaml:"instructions"`
	HandoffDescription  string         `json:"handoff_description,omitempty" yaml:"handoff_description,omitempty"`
	Output              string         `json:"output,omitempty" yaml:"output,omitempty"`
	Tools               []string       `json:"tools,omitempty" yaml:"tools,omitempty"`
	Handoffs            []string       `json:"handoffs,omitempty" yaml:"handoffs,omitempty"`
	Guardrails          []GuardrailRef `json:"guardrails,omitempty" yaml:"guardrails,omitempty"`
	DynamicInstructions string         `json:"dynamic_instructions,omitempty" yaml:"dynamic_instructions,omitempty"`
}

// GuardrailRef names a guardrail factory and, optionally, the agent it runs
type GuardrailRef struct {
	Name  string `json:"name" yaml:"name"`
	Agent string `json:"agent,omitempty" yaml:"agent,omitempty"`
}

// DefinitionFile is the on-disk shape of an agent graph
type DefinitionFile struct {
	Root   string       `json:"root" yaml:"root"`
	Agents []Definition `json:"agents" yaml:"agents"`
}

// ParseDefinitions decodes YAML agent definitions. JSON is valid YAML.
func ParseDefinitions(data []byte) (*DefinitionFile, error) {
	var file DefinitionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse agent definitions: %w", err)
	}
	if err := file.Validate(); err != nil {
		return nil, err
	}
	return &file, nil
}

// LoadDefinitions loads agent definitions from a JSON or YAML file
func LoadDefinitions(path string) (*DefinitionFile, error) {
	if path == "" {
		return nil, fmt.Errorf("definitions file path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read agent definitions: %w", err)
	}

	switch ext := filepath.Ext(path); ext {
	case ".json":
		var file DefinitionFile
		if err := json.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse JSON agent definitions: %w", err)
		}
		if err := file.Validate(); err != nil {
			return nil, err
		}
		return &file, nil
	case ".yaml", ".yml":
		return ParseDefinitions(data)
	default:
		return nil, fmt.Errorf("unsupported definitions file format: %s (supported: .json, .yaml, .yml)", ext)
	}
}

// Validate checks names and references within the file
func (f *DefinitionFile) Validate() error {
	if len(f.Agents) == 0 {
		return fmt.Errorf("no agent definitions found")
	}

	seen := make(map[string]bool, len(f.Agents))
	for i, def := range f.Agents {
		if def.Name == "" {
			return fmt.Errorf("agent definition at index %d has no name", i)
		}
		if seen[def.Name] {
			return fmt.Errorf("duplicate agent name found: %s", def.Name)
		}
		seen[def.Name] = true
	}

	if f.Root == "" {
		return fmt.Errorf("root agent is required")
	}
	if !seen[f.Root] {
		return fmt.Errorf("root agent %s is not defined", f.Root)
	}

	for _, def := range f.Agents {
		for _, target := range def.Handoffs {
			if !seen[target] {
				return fmt.Errorf("agent %s: handoff target %s is not defined", def.Name, target)
			}
		}
		for _, g := range def.Guardrails {
			if g.Name == "" {
				return fmt.Errorf("agent %s: guardrail reference has no name", def.Name)
			}
			if g.Agent != "" && !seen[g.Agent] {
				return fmt.Errorf("agent %s: guardrail %s references undefined agent %s", def.Name, g.Name, g.Agent)
			}
		}
	}

	return nil
}

// GuardrailFactory builds a guardrail. agent is the referenced analysis
// agent, or nil when the reference names none.
type GuardrailFactory func(agent *Agent) (InputGuardrail, error)

// Builder resolves definitions against registries of named parts
type Builder struct {
	Outputs      map[string]*OutputType
	Guardrails   map[string]GuardrailFactory
	Instructions map[string]InstructionsFunc
}

// Graph is a built agent graph
type Graph struct {
	Root   *Agent
	Agents map[string]*Agent
	Order  []string
}

// Agent returns a built agent by name
func (g *Graph) Agent(name string) (*Agent, bool) {
	a, ok := g.Agents[name]
	return a, ok
}

// Build turns definitions into linked agents. Guardrail references whose
// factory is not registered are skipped, so optional guardrails can be
// declared once and enabled by configuration.
func (b *Builder) Build(file *DefinitionFile) (*Graph, error) {
	if err := file.Validate(); err != nil {
		return nil, err
	}

	graph := &Graph{Agents: make(map[string]*Agent, len(file.Agents))}

	for _, def := range file.Agents {
		a := &Agent{
			Name:               def.Name,
			Instructions:       def.Instructions,
			HandoffDescription: def.HandoffDescription,
			Tools:              append([]string(nil), def.Tools...),
		}

		if def.Output != "" {
			out, ok := b.Outputs[def.Output]
			if !ok {
				return nil, fmt.Errorf("agent %s: unknown output type %s", def.Name, def.Output)
			}
			a.Output = out
		}

		if def.DynamicInstructions != "" {
			fn, ok := b.Instructions[def.DynamicInstructions]
			if !ok {
				return nil, fmt.Errorf("agent %s: unknown dynamic instructions %s", def.Name, def.DynamicInstructions)
			}
			a.DynamicInstructions = fn
		}

		graph.Agents[def.Name] = a
		graph.Order = append(graph.Order, def.Name)
	}

	// Second pass links agents now that every pointer exists
	for _, def := range file.Agents {
		a := graph.Agents[def.Name]

		for _, target := range def.Handoffs {
			a.Handoffs = append(a.Handoffs, graph.Agents[target])
		}

		for _, ref := range def.Guardrails {
			factory, ok := b.Guardrails[ref.Name]
			if !ok {
				continue
			}
			var analyzer *Agent
			if ref.Agent != "" {
				analyzer = graph.Agents[ref.Agent]
			}
			g, err := factory(analyzer)
			if err != nil {
				return nil, fmt.Errorf("agent %s: guardrail %s: %w", def.Name, ref.Name, err)
			}
			a.InputGuardrails = append(a.InputGuardrails, g)
		}
	}

	graph.Root = graph.Agents[file.Root]
	return graph, nil
}
