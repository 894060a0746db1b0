package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks <workspace>",
	Short: "Show the task distribution per team member",
	Long: `Show which tasks each team member can pick up, based on the roles they
can perform.

Examples:
  teamgraph tasks sprint42`,
	Args: cobra.ExactArgs(1),
	RunE: runTasks,
}

func runTasks(cmd *cobra.Command, args []string) error {
	workspaceID := args[0]

	tasks, err := apiClient.WorkspaceTasks(context.Background(), workspaceID)
	if err != nil {
		return fmt.Errorf("get tasks: %w", err)
	}
	if len(tasks) == 0 {
		fmt.Println("No task distribution found. Run 'teamgraph analyze' first.")
		return nil
	}

	people := make([]string, 0, len(tasks))
	for person := range tasks {
		people = append(people, person)
	}
	sort.Strings(people)

	tbl := newTable("Member", "Task", "Role", "Status", "Priority")
	for _, person := range people {
		for _, t := range tasks[person] {
			tbl.Row(person, t.Task, t.Role, t.Status, t.Priority)
		}
	}
	fmt.Println(tbl.Render())

	if verbose {
		for _, person := range people {
			fmt.Printf("%s: %d task(s)\n", person, len(tasks[person]))
		}
	}
	return nil
}
