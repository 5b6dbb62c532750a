package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/jsexpertdev/ostad-ai-agent/pkg/agent"
	"github.com/spf13/cobra"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "Print the validated agent graph",
	Long: `Build the agent graph from the configured definitions, validate it and
print every agent with its output type, tools, handoffs and guardrails.`,
	RunE: runAgents,
}

func init() {
	rootCmd.AddCommand(agentsCmd)
}

func runAgents(cmd *cobra.Command, args []string) error {
	a, err := newApp(stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	return printGraph(cmd.OutOrStdout(), a.service.Planner.Graph())
}

// printGraph writes one row per agent, root first
func printGraph(out io.Writer, graph *agent.Graph) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "AGENT\tOUTPUT\tTOOLS\tHANDOFFS\tGUARDRAILS")

	names := append([]string{graph.Root.Name}, graph.Order...)
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		a := graph.Agents[name]
		handoffs := make([]string, 0, len(a.Handoffs))
		for _, h := range a.Handoffs {
			handoffs = append(handoffs, h.Name)
		}
		guardrails := make([]string, 0, len(a.InputGuardrails))
		for _, g := range a.InputGuardrails {
			guardrails = append(guardrails, g.Name)
		}

		label := a.Name
		if a == graph.Root {
			label += " (root)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			label, a.OutputKind(), orDash(a.Tools), orDash(handoffs), orDash(guardrails))
	}

	return w.Flush()
}

func orDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
