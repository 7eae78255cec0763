package main

import (
	"fmt"
	"os"

	"github.com/civicworks/countychat/internal/cli"
	"github.com/civicworks/countychat/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "countychat",
		Short: "Countychat CLI - Ask the county services assistant",
		Long: `Countychat CLI talks to a countychat server.

Environment variables:
  COUNTYCHAT_SERVER           Server base URL (default: http://localhost:8080)
  COUNTYCHAT_ADMIN_PASSWORD   Admin password for stats commands`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("server", "", "Server base URL (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.InitCmd())
	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.ChatCmd())
	rootCmd.AddCommand(client.DepartmentsCmd())
	rootCmd.AddCommand(client.RateCmd())
	rootCmd.AddCommand(client.HealthCmd())
	rootCmd.AddCommand(client.StatsCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
