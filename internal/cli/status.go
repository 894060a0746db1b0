package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kritsw/teamgraph/internal/metrics"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server health and runtime statistics",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	health, err := apiClient.Health(ctx)
	if err != nil {
		return fmt.Errorf("get health: %w", err)
	}

	theme := defaultTheme
	status, _ := health["status"].(string)
	if status == "healthy" {
		fmt.Println(theme.successStyle().Render("● " + status))
	} else {
		fmt.Println(theme.errorStyle().Render("● " + status))
	}
	fmt.Printf("  Version:  %v\n", health["version"])
	fmt.Printf("  Database: %v\n", health["database"])

	snap, err := apiClient.Metrics(ctx)
	if err != nil {
		return fmt.Errorf("get metrics: %w", err)
	}

	fmt.Printf("\nUptime: %.1f seconds\n", snap.UptimeSeconds)
	printOpSnapshot("DB queries", snap.DBQuery)
	printOpSnapshot("DB provisioning", snap.DBProvision)
	printOpSnapshot("LLM extraction", snap.LLMExtract)
	printOpSnapshot("LLM role inference", snap.LLMInfer)
	return nil
}

// printOpSnapshot displays timing statistics for an operation.
func printOpSnapshot(label string, op *metrics.OperationSnapshot) {
	if op == nil {
		return
	}
	fmt.Printf("\n%s:\n", label)
	fmt.Printf("  Calls: %d, Total: %dms\n", op.Count, op.TotalTimeMs)
	fmt.Printf("  Time: avg %.1fms, min %dms, max %dms\n", op.AvgTimeMs, op.MinTimeMs, op.MaxTimeMs)
	if op.TotalInputTokens != nil && op.TotalOutputTokens != nil {
		fmt.Printf("  Tokens: %d in, %d out\n", *op.TotalInputTokens, *op.TotalOutputTokens)
	}
}
