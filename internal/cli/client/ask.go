package client

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// AskCmd creates the ask command for a single streamed question.
func AskCmd() *cobra.Command {
	var conversationID string
	var language string

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question and stream the answer",
		Long:  "Sends one question to the chat endpoint and prints the answer as it streams. Pass --conversation-id to continue an earlier conversation.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			_, err = streamQuestion(api, args[0], conversationID, language, true)
			return err
		},
	}

	cmd.Flags().StringVar(&conversationID, "conversation-id", "", "Continue an existing conversation")
	cmd.Flags().StringVarP(&language, "language", "l", "en", "Answer language (en or es)")

	return cmd
}

// ChatCmd creates the interactive chat command.
func ChatCmd() *cobra.Command {
	var language string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long:  "Opens an interactive session against the chat endpoint. The conversation ID carries across turns so follow-up questions keep their department routing.",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runChatLoop(api, language)
		},
	}

	cmd.Flags().StringVarP(&language, "language", "l", "en", "Answer language (en or es)")

	return cmd
}

func runChatLoop(api *APIClient, language string) error {
	fmt.Println("Connected. Type a question, or 'exit' to quit.")

	conversationID := ""
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}

		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if question == "exit" || question == "quit" {
			return nil
		}

		id, err := streamQuestion(api, question, conversationID, language, false)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		conversationID = id
		fmt.Println()
	}
}

// streamQuestion sends one turn and prints tokens as they arrive. It returns
// the conversation ID announced by the server so callers can continue the
// conversation.
func streamQuestion(api *APIClient, question, conversationID, language string, printMeta bool) (string, error) {
	body := map[string]string{
		"message":  question,
		"language": language,
	}
	if conversationID != "" {
		body["conversation_id"] = conversationID
	}

	returnedID := conversationID
	err := api.StreamChat(body, func(event StreamEvent) error {
		if event.ConversationID != "" {
			returnedID = event.ConversationID
			if printMeta && event.Department != nil {
				fmt.Fprintf(os.Stderr, "[%s]\n", event.Department.Name)
			}
			return nil
		}
		fmt.Print(event.Text)
		return nil
	})
	if err != nil {
		return returnedID, err
	}

	fmt.Println()
	if printMeta && returnedID != "" {
		fmt.Fprintf(os.Stderr, "conversation: %s\n", returnedID)
	}
	return returnedID, nil
}
