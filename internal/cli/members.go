package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var membersCmd = &cobra.Command{
	Use:   "members <workspace>",
	Short: "List the team members of a workspace",
	Args:  cobra.ExactArgs(1),
	RunE:  runMembers,
}

func runMembers(cmd *cobra.Command, args []string) error {
	workspaceID := args[0]

	members, err := apiClient.Members(context.Background(), workspaceID)
	if err != nil {
		return fmt.Errorf("get members: %w", err)
	}
	if len(members) == 0 {
		fmt.Println("No members found.")
		return nil
	}

	fmt.Printf("Members (%d):\n\n", len(members))
	for _, m := range members {
		fmt.Printf("- %s\n", m.Name)
		if verbose && m.Details != "" {
			fmt.Printf("  %s\n", m.Details)
		}
	}
	return nil
}
