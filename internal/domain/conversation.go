package domain

import (
	"fmt"
	"time"
)

// MessageRole identifies the author of a message
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// Supported conversation languages
const (
	LanguageEnglish = "en"
	LanguageSpanish = "es"
)

// Conversation represents one chat session. DepartmentID is empty until the
// first message is routed; the router re-assigns it on every turn.
type Conversation struct {
	ID                 string
	Language           string
	DepartmentID       string
	MessageCount       int
	SatisfactionRating *int
	StartedAt          time.Time
}

// Message is an append-only log entry within a conversation.
// Messages are never updated after insert.
type Message struct {
	ID             string
	ConversationID string
	Role           MessageRole
	Content        string
	DepartmentID   string
	TokensUsed     *int
	ResponseTimeMS *int
	CreatedAt      time.Time
}

// NewConversation creates a new Conversation instance
func NewConversation(id, language string, startedAt time.Time) *Conversation {
	if language == "" {
		language = LanguageEnglish
	}
	return &Conversation{
		ID:        id,
		Language:  language,
		StartedAt: startedAt,
	}
}

// ValidateConversation validates a Conversation instance
func ValidateConversation(c *Conversation) error {
	if c == nil {
		return fmt.Errorf("conversation cannot be nil")
	}

	if c.ID == "" {
		return fmt.Errorf("conversation ID is required")
	}

	if !isValidLanguage(c.Language) {
		return fmt.Errorf("conversation Language is invalid: %s", c.Language)
	}

	if c.SatisfactionRating != nil && (*c.SatisfactionRating < 1 || *c.SatisfactionRating > 5) {
		return fmt.Errorf("conversation SatisfactionRating must be between 1 and 5")
	}

	return nil
}

// ValidateMessage validates a Message instance
func ValidateMessage(m *Message) error {
	if m == nil {
		return fmt.Errorf("message cannot be nil")
	}

	if m.ConversationID == "" {
		return fmt.Errorf("message ConversationID is required")
	}

	if m.Content == "" {
		return fmt.Errorf("message Content is required")
	}

	if !isValidMessageRole(m.Role) {
		return fmt.Errorf("message Role is invalid: %s", m.Role)
	}

	return nil
}

// isValidMessageRole checks if a MessageRole is valid
func isValidMessageRole(r MessageRole) bool {
	switch r {
	case MessageRoleUser, MessageRoleAssistant:
		return true
	}
	return false
}

// isValidLanguage checks if a language code is supported
func isValidLanguage(lang string) bool {
	switch lang {
	case LanguageEnglish, LanguageSpanish:
		return true
	}
	return false
}
