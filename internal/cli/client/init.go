package client

import (
	"fmt"

	"github.com/spf13/cobra"
)

func InitCmd() *cobra.Command {
	var serverURL string
	var adminPassword string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Save the server address to the global config",
		Long:  "Stores the server URL (and optional admin password) in the user config directory so later commands can omit the --server flag.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(serverURL, adminPassword)
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", defaultServerURL, "Server base URL")
	cmd.Flags().StringVar(&adminPassword, "admin-password", "", "Admin password for analytics commands")

	return cmd
}

func runInit(serverURL, adminPassword string) error {
	if serverURL == "" {
		return fmt.Errorf("server URL is required")
	}

	// Verify the server is reachable before saving anything.
	api, err := NewAPIClientWithConfig(serverURL, adminPassword)
	if err != nil {
		return err
	}
	if _, err := api.GetRaw("/health"); err != nil {
		return fmt.Errorf("server check failed: %w", err)
	}

	if err := SaveGlobalConfig(&GlobalConfig{
		ServerURL:     serverURL,
		AdminPassword: adminPassword,
	}); err != nil {
		return err
	}

	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	fmt.Printf("Server %s saved to %s\n", serverURL, configPath)
	return nil
}
