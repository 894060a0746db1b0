package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kritsw/teamgraph/internal/client"
)

var (
	taskAddRole        string
	taskAddDescription string
	taskAddPriority    string
	taskAddHours       float64
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks in a workspace",
}

var taskAddCmd = &cobra.Command{
	Use:   "add <workspace> <task-name>",
	Short: "Add a task to a role",
	Long: `Add a task under an existing role in the workspace.

Examples:
  teamgraph task add sprint42 "Set up CI" --role "DevOps Engineer"
  teamgraph task add sprint42 "Fix login" --role Backend --priority high --hours 4`,
	Args: cobra.ExactArgs(2),
	RunE: runTaskAdd,
}

var taskAssignCmd = &cobra.Command{
	Use:   "assign <workspace> <task-id> <person>",
	Short: "Assign a task to a team member",
	Long: `Assign or reassign a task to a team member. A task holds at most one
assignment; assigning again moves it.

Find task ids with 'teamgraph graph' or 'teamgraph tasks'.

Examples:
  teamgraph task assign sprint42 12 Alice`,
	Args: cobra.ExactArgs(3),
	RunE: runTaskAssign,
}

func init() {
	taskAddCmd.Flags().StringVarP(&taskAddRole, "role", "r", "", "role the task belongs to (required)")
	taskAddCmd.Flags().StringVarP(&taskAddDescription, "description", "d", "", "task description")
	taskAddCmd.Flags().StringVarP(&taskAddPriority, "priority", "p", "medium", "priority (low, medium, high)")
	taskAddCmd.Flags().Float64Var(&taskAddHours, "hours", 0, "estimated hours")
	_ = taskAddCmd.MarkFlagRequired("role")

	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskAssignCmd)
}

func runTaskAdd(cmd *cobra.Command, args []string) error {
	workspaceID, taskName := args[0], args[1]

	resp, err := apiClient.AddTask(context.Background(), workspaceID, client.AddTaskInput{
		RoleName:       taskAddRole,
		TaskName:       taskName,
		Description:    taskAddDescription,
		Priority:       taskAddPriority,
		EstimatedHours: taskAddHours,
	})
	if err != nil {
		return fmt.Errorf("add task: %w", err)
	}

	fmt.Println(defaultTheme.successStyle().Render("✓ " + resp.Message))
	if id, ok := resp.Details["task_id"].(float64); ok {
		fmt.Printf("  Task id: %.0f\n", id)
	}
	return nil
}

func runTaskAssign(cmd *cobra.Command, args []string) error {
	workspaceID, person := args[0], args[2]
	taskID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("task id must be an integer: %s", args[1])
	}

	resp, err := apiClient.AssignTask(context.Background(), workspaceID, taskID, person)
	if err != nil {
		return fmt.Errorf("assign task: %w", err)
	}

	fmt.Println(defaultTheme.successStyle().Render("✓ " + resp.Message))
	fmt.Printf("  Task %d → %s\n", taskID, person)
	return nil
}
