package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// StatsCmd creates the stats command group for the admin analytics endpoints.
func StatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Usage statistics (requires admin password)",
	}

	cmd.PersistentFlags().String("admin-password", "", "Admin password (or set COUNTYCHAT_ADMIN_PASSWORD)")
	cmd.PersistentFlags().IntP("days", "d", 7, "Reporting period in days")

	cmd.AddCommand(statsOverviewCmd())
	cmd.AddCommand(statsDepartmentsCmd())
	cmd.AddCommand(statsQuestionsCmd())

	return cmd
}

func statsOverviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "overview",
		Short: "Totals and averages for the period",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			days, _ := cmd.Flags().GetInt("days")

			resp, err := api.Get(fmt.Sprintf("/api/analytics/overview?days=%d", days))
			if err != nil {
				return fmt.Errorf("failed to load overview: %w", err)
			}

			var overview struct {
				TotalConversations int64    `json:"total_conversations"`
				TotalMessages      int64    `json:"total_messages"`
				AvgResponseTimeMS  float64  `json:"avg_response_time_ms"`
				AvgSatisfaction    *float64 `json:"avg_satisfaction"`
				PeriodDays         int      `json:"period_days"`
			}
			if err := json.Unmarshal(resp.Data, &overview); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			fmt.Printf("Last %d days:\n", overview.PeriodDays)
			fmt.Printf("  Conversations:     %d\n", overview.TotalConversations)
			fmt.Printf("  Messages:          %d\n", overview.TotalMessages)
			fmt.Printf("  Avg response time: %.0f ms\n", overview.AvgResponseTimeMS)
			if overview.AvgSatisfaction != nil {
				fmt.Printf("  Avg satisfaction:  %.1f / 5\n", *overview.AvgSatisfaction)
			} else {
				fmt.Printf("  Avg satisfaction:  no ratings yet\n")
			}
			return nil
		},
	}
}

func statsDepartmentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "departments",
		Short: "Conversation counts by department",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			days, _ := cmd.Flags().GetInt("days")

			resp, err := api.Get(fmt.Sprintf("/api/analytics/departments?days=%d", days))
			if err != nil {
				return fmt.Errorf("failed to load department stats: %w", err)
			}

			var stats struct {
				Departments []struct {
					Slug  string `json:"slug"`
					Name  string `json:"name"`
					Count int64  `json:"count"`
				} `json:"departments"`
				PeriodDays int `json:"period_days"`
			}
			if err := json.Unmarshal(resp.Data, &stats); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			if len(stats.Departments) == 0 {
				fmt.Println("No conversations in the period.")
				return nil
			}
			fmt.Printf("Last %d days:\n", stats.PeriodDays)
			for _, dept := range stats.Departments {
				fmt.Printf("  %-32s %d\n", dept.Name, dept.Count)
			}
			return nil
		},
	}
}

func statsQuestionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "questions",
		Short: "Most common questions",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			days, _ := cmd.Flags().GetInt("days")
			limit, _ := cmd.Flags().GetInt("limit")

			resp, err := api.Get(fmt.Sprintf("/api/analytics/top-questions?days=%d&limit=%d", days, limit))
			if err != nil {
				return fmt.Errorf("failed to load top questions: %w", err)
			}

			var stats struct {
				Questions []struct {
					Message string `json:"message"`
					Count   int64  `json:"count"`
				} `json:"questions"`
				PeriodDays int `json:"period_days"`
			}
			if err := json.Unmarshal(resp.Data, &stats); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			if len(stats.Questions) == 0 {
				fmt.Println("No questions in the period.")
				return nil
			}
			for i, q := range stats.Questions {
				fmt.Printf("%2d. (%d) %s\n", i+1, q.Count, q.Message)
			}
			return nil
		},
	}
	cmd.Flags().IntP("limit", "n", 10, "Maximum number of questions")
	return cmd
}
