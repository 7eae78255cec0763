package client

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// RateCmd creates the rate command.
func RateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rate <conversation-id> <rating>",
		Short: "Rate a conversation from 1 to 5",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runRate(api, args[0], args[1])
		},
	}
	return cmd
}

func runRate(api *APIClient, conversationID, ratingArg string) error {
	rating, err := strconv.Atoi(ratingArg)
	if err != nil {
		return fmt.Errorf("rating must be a number from 1 to 5")
	}

	path := fmt.Sprintf("/api/conversations/%s/rating", conversationID)
	if _, err := api.Post(path, map[string]int{"rating": rating}); err != nil {
		return fmt.Errorf("failed to submit rating: %w", err)
	}

	fmt.Println("Rating recorded.")
	return nil
}
