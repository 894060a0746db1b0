package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var graphOutput string

var graphCmd = &cobra.Command{
	Use:   "graph <workspace>",
	Short: "Export the full workspace graph as JSON",
	Long: `Export every node and edge of the workspace graph in a shape suitable
for visualization tooling.

Examples:
  teamgraph graph sprint42
  teamgraph graph sprint42 --output graph.json`,
	Args: cobra.ExactArgs(1),
	RunE: runGraph,
}

func init() {
	graphCmd.Flags().StringVarP(&graphOutput, "output", "o", "", "write JSON to file instead of stdout")
}

func runGraph(cmd *cobra.Command, args []string) error {
	workspaceID := args[0]

	graph, err := apiClient.Graph(context.Background(), workspaceID)
	if err != nil {
		return fmt.Errorf("export graph: %w", err)
	}

	raw, err := json.MarshalIndent(graph, "", "  ")
	if err != nil {
		return fmt.Errorf("encode graph: %w", err)
	}

	if graphOutput != "" {
		if err := os.WriteFile(graphOutput, raw, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", graphOutput, err)
		}
		fmt.Printf("Wrote %d nodes and %d edges to %s\n", len(graph.Nodes), len(graph.Edges), graphOutput)
		return nil
	}

	fmt.Println(string(raw))
	return nil
}
