package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kritsw/teamgraph/internal/client"
)

var analyzeTeamFile string

var analyzeCmd = &cobra.Command{
	Use:   "analyze <workspace> <file>...",
	Short: "Analyze documents and build a workspace graph",
	Long: `Upload documents and team details for analysis. Roles and tasks are
extracted from the documents, member roles are inferred from the team
profiles, and the resulting graph is stored under the workspace.

The team file is a JSON document:
  {"team_members": {"Alice": {"current_role": "Engineer", "skills": ["Go"], "experience": "5 years"}}}

Examples:
  teamgraph analyze sprint42 plan.pdf notes.md --team team.json
  teamgraph analyze acme docs/*.txt --team team.json`,
	Args: cobra.MinimumNArgs(2),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeTeamFile, "team", "t", "", "path to team details JSON file (required)")
	_ = analyzeCmd.MarkFlagRequired("team")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	workspaceID := args[0]
	files := args[1:]

	teamDetails, err := os.ReadFile(analyzeTeamFile)
	if err != nil {
		return fmt.Errorf("read team file: %w", err)
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return fmt.Errorf("document %s: %w", f, err)
		}
	}

	label := fmt.Sprintf("Analyzing %d document(s) into workspace %q...", len(files), workspaceID)
	resp, err := runWithSpinner(label, func() (*client.Response, error) {
		return apiClient.Analyze(context.Background(), workspaceID, string(teamDetails), files)
	})
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}

	theme := defaultTheme
	fmt.Println(theme.successStyle().Render("✓ " + resp.Message))

	if analysis, ok := resp.Details["analysis"].(map[string]any); ok {
		fmt.Println()
		printCount := func(label string, key string) {
			if v, ok := analysis[key].(float64); ok {
				fmt.Printf("  %-18s %.0f\n", label, v)
			}
		}
		printCount("Roles created:", "roles_created")
		printCount("Tasks created:", "tasks_created")
		printCount("Members linked:", "team_members_processed")

		if summary, ok := analysis["document_analysis_summary"].(map[string]any); ok {
			if failed, ok := summary["failed_documents"].(float64); ok && failed > 0 {
				fmt.Println(theme.errorStyle().Render(
					fmt.Sprintf("\n%.0f document(s) could not be processed:", failed)))
				if sources, ok := summary["failed_sources"].([]any); ok {
					for _, s := range sources {
						fmt.Printf("  • %v\n", s)
					}
				}
			}
		}
	}

	fmt.Println(theme.hintStyle().Render(
		fmt.Sprintf("\nInspect the result with 'teamgraph tasks %s' or 'teamgraph stats %s'.", workspaceID, workspaceID)))
	return nil
}
