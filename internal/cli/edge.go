package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var edgeCmd = &cobra.Command{
	Use:   "edge",
	Short: "Manage individual graph edges",
}

var edgeDeleteCmd = &cobra.Command{
	Use:   "delete <workspace> <edge-id>",
	Short: "Delete a single relationship",
	Long: `Delete one edge by id, leaving both endpoint nodes in place.

Examples:
  teamgraph edge delete sprint42 23`,
	Args: cobra.ExactArgs(2),
	RunE: runEdgeDelete,
}

func init() {
	edgeCmd.AddCommand(edgeDeleteCmd)
}

func runEdgeDelete(cmd *cobra.Command, args []string) error {
	workspaceID := args[0]
	edgeID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("edge id must be an integer: %s", args[1])
	}

	resp, err := apiClient.DeleteEdge(context.Background(), workspaceID, edgeID)
	if err != nil {
		return fmt.Errorf("delete edge: %w", err)
	}

	fmt.Println(defaultTheme.successStyle().Render("✓ " + resp.Message))
	return nil
}
