// Package cli provides the command-line interface for teamgraph.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kritsw/teamgraph/internal/client"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose   bool
	serverURL string

	// apiClient talks to the teamgraph server.
	apiClient *client.Client
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "teamgraph",
	Short: "Workspace graph manager for teams",
	Long: `Teamgraph turns project documents and team profiles into a queryable
workspace graph: roles extracted from documents, tasks under each role,
and people linked to the roles they can perform.

Each workspace lives in its own database, addressed by workspace id.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		apiClient = client.New(serverURL)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server URL (default $TEAMGRAPH_SERVER_URL or http://localhost:8080)")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(membersCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(nodeCmd)
	rootCmd.AddCommand(edgeCmd)
	rootCmd.AddCommand(statusCmd)
}

// exitWithError prints an error message and exits with code 1.
func exitWithError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
