package agent

import (
	"fmt"
	"strings"
)

// GraphOptions tunes ValidateGraph
type GraphOptions struct {
	// AllowCycles accepts handoff loops; turn and handoff limits still bound a run
	AllowCycles bool

	// HasTool reports whether a tool name resolves. Nil skips the check.
	HasTool func(name string) bool
}

// ValidateGraph checks every agent reachable from root and returns them in
// discovery order. Agent names must be unique across the graph so handoff
// tool names stay unambiguous.
func ValidateGraph(root *Agent, opts GraphOptions) ([]*Agent, error) {
	if root == nil {
		return nil, fmt.Errorf("root agent is required")
	}

	var (
		order    []*Agent
		visited  = make(map[*Agent]bool)
		recStack = make(map[*Agent]bool)
		byName   = make(map[string]*Agent)
	)

	var visit func(a *Agent, path []string) error
	visit = func(a *Agent, path []string) error {
		if recStack[a] {
			if opts.AllowCycles {
				return nil
			}
			return fmt.Errorf("circular handoff detected: %s", strings.Join(append(path, a.Name), " -> "))
		}
		if visited[a] {
			return nil
		}

		if err := a.Validate(); err != nil {
			return err
		}
		if other, ok := byName[a.Name]; ok && other != a {
			return fmt.Errorf("duplicate agent name: %s", a.Name)
		}
		byName[a.Name] = a

		if opts.HasTool != nil {
			for _, tool := range a.Tools {
				if !opts.HasTool(tool) {
					return fmt.Errorf("agent %s: tool not found: %s", a.Name, tool)
				}
			}
		}

		visited[a] = true
		recStack[a] = true
		order = append(order, a)

		for _, target := range a.Handoffs {
			if err := visit(target, append(path, a.Name)); err != nil {
				return err
			}
		}

		recStack[a] = false
		return nil
	}

	if err := visit(root, nil); err != nil {
		return nil, err
	}
	return order, nil
}
