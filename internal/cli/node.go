package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var nodeDeleteForce bool

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Manage individual graph nodes",
}

var nodeDeleteCmd = &cobra.Command{
	Use:   "delete <workspace> <node-id>",
	Short: "Delete a node and its relationships",
	Long: `Delete a node by id. All edges attached to the node are removed with it
(cascade delete). Requires confirmation unless --force is used.

Examples:
  teamgraph node delete sprint42 17
  teamgraph node delete sprint42 17 --force`,
	Args: cobra.ExactArgs(2),
	RunE: runNodeDelete,
}

func init() {
	nodeDeleteCmd.Flags().BoolVarP(&nodeDeleteForce, "force", "f", false, "skip confirmation")
	nodeCmd.AddCommand(nodeDeleteCmd)
}

func runNodeDelete(cmd *cobra.Command, args []string) error {
	workspaceID := args[0]
	nodeID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("node id must be an integer: %s", args[1])
	}

	if !nodeDeleteForce {
		fmt.Printf("About to delete node %d from workspace %q, including all its relationships.\n", nodeID, workspaceID)
		fmt.Print("\nContinue? [y/N]: ")

		reader := bufio.NewReader(os.Stdin)
		response, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		response = strings.TrimSpace(strings.ToLower(response))

		if response != "y" && response != "yes" {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	resp, err := apiClient.DeleteNode(context.Background(), workspaceID, nodeID)
	if err != nil {
		return fmt.Errorf("delete node: %w", err)
	}

	fmt.Println(defaultTheme.successStyle().Render("✓ " + resp.Message))
	return nil
}
