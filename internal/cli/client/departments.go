package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// DepartmentItem represents a department in the list response.
type DepartmentItem struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	NameES string `json:"name_es"`
	Slug   string `json:"slug"`
	Phone  string `json:"phone,omitempty"`
	Email  string `json:"email,omitempty"`
	URL    string `json:"url,omitempty"`
}

// DepartmentsCmd creates the departments command.
func DepartmentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "departments",
		Short: "List county departments",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runDepartments(api, outputJSON)
		},
	}
	return cmd
}

func runDepartments(api *APIClient, outputJSON bool) error {
	resp, err := api.Get("/api/departments")
	if err != nil {
		return fmt.Errorf("failed to list departments: %w", err)
	}

	var departments []DepartmentItem
	if err := json.Unmarshal(resp.Data, &departments); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(departments, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(departments) == 0 {
		fmt.Println("No departments found.")
		return nil
	}

	for _, dept := range departments {
		fmt.Printf("%-16s %s / %s\n", dept.Slug, dept.Name, dept.NameES)
		if dept.Phone != "" {
			fmt.Printf("%-16s phone: %s\n", "", dept.Phone)
		}
		if dept.URL != "" {
			fmt.Printf("%-16s %s\n", "", dept.URL)
		}
	}
	return nil
}
