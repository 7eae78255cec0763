package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// HealthCmd creates the health command.
func HealthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runHealth(api)
		},
	}
	return cmd
}

func runHealth(api *APIClient) error {
	body, err := api.GetRaw("/health")
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	var health struct {
		Status   string `json:"status"`
		Database string `json:"database"`
		Model    string `json:"model"`
	}
	if err := json.Unmarshal(body, &health); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	fmt.Printf("Status:   %s\n", health.Status)
	fmt.Printf("Database: %s\n", health.Database)
	fmt.Printf("Model:    %s\n", health.Model)

	if health.Status != "ok" {
		return fmt.Errorf("server is degraded")
	}
	return nil
}
