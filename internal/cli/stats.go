package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats <workspace>",
	Short: "Show workspace graph statistics",
	Long: `Show counts and rosters for everything reachable from the workspace
node: roles, tasks and team members.

Examples:
  teamgraph stats sprint42`,
	Args: cobra.ExactArgs(1),
	RunE: runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	workspaceID := args[0]

	stats, err := apiClient.Statistics(context.Background(), workspaceID)
	if err != nil {
		return fmt.Errorf("get statistics: %w", err)
	}
	if stats.RoleCount == 0 && stats.TaskCount == 0 && stats.PersonCount == 0 {
		fmt.Printf("Workspace %q is empty or does not exist.\n", workspaceID)
		return nil
	}

	fmt.Println(defaultTheme.headerStyle().Render("Workspace " + workspaceID))

	tbl := newTable("", "Count", "Names")
	tbl.Row("Roles", strconv.Itoa(stats.RoleCount), strings.Join(stats.Roles, ", "))
	tbl.Row("Tasks", strconv.Itoa(stats.TaskCount), strings.Join(stats.TaskStatuses, ", "))
	tbl.Row("Members", strconv.Itoa(stats.PersonCount), strings.Join(stats.TeamMembers, ", "))
	fmt.Println(tbl.Render())

	if stats.Timestamp != "" {
		fmt.Println(defaultTheme.hintStyle().Render("as of " + stats.Timestamp))
	}
	return nil
}
