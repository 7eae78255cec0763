package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/civicworks/countychat/internal/domain"
	"github.com/civicworks/countychat/internal/telemetry"
	"github.com/google/uuid"
)

// defaultHistoryLimit is how many prior messages (three exchanges) seed the
// generation context.
const defaultHistoryLimit = 6

// ConversationStore defines the repository interface the chat service needs.
type ConversationStore interface {
	Create(ctx context.Context, conv *domain.Conversation) error
	Get(ctx context.Context, id string) (*domain.Conversation, error)
	SetDepartment(ctx context.Context, conversationID, departmentID string) error
	AppendMessage(ctx context.Context, msg *domain.Message) error
	History(ctx context.Context, conversationID string, limit int) ([]*domain.Message, error)
}

// Retriever finds knowledge-base chunks relevant to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query, departmentID string) ([]*RetrievedChunk, error)
}

// Generator streams a grounded answer token by token.
type Generator interface {
	StreamChat(ctx context.Context, systemPrompt string, history []*domain.Message, userMessage string, onToken func(string) error) error
}

// IDGenerator mints conversation IDs. Swappable for deterministic tests.
type IDGenerator interface {
	NewID() string
}

type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string {
	return uuid.New().String()
}

// TurnMeta is the first event of every streamed turn: which conversation the
// turn belongs to and which department it was routed to.
type TurnMeta struct {
	ConversationID string
	Department     *domain.Department
}

// TurnEmitter receives the events of a streamed turn in order: one Meta,
// then zero or more Tokens. A non-nil error aborts the stream.
type TurnEmitter interface {
	Meta(meta TurnMeta) error
	Token(text string) error
}

// ChatInput is one user turn.
type ChatInput struct {
	ConversationID string
	Message        string
	Language       string
}

// ChatService runs a full chat turn: conversation resolution, department
// routing, retrieval, context assembly, streamed generation, and persistence.
type ChatService struct {
	conversations ConversationStore
	retriever     Retriever
	generator     Generator
	router        *Router
	ids           IDGenerator
	now           func() time.Time
	historyLimit  int
}

func NewChatService(conversations ConversationStore, retriever Retriever, generator Generator, router *Router) *ChatService {
	return &ChatService{
		conversations: conversations,
		retriever:     retriever,
		generator:     generator,
		router:        router,
		ids:           UUIDGenerator{},
		now:           time.Now,
		historyLimit:  defaultHistoryLimit,
	}
}

// Stream runs one turn and emits its events. An error return means the turn
// failed before any event was emitted; failures after the stream opens are
// reported in-band as an apology message instead.
func (s *ChatService) Stream(ctx context.Context, input ChatInput, emitter TurnEmitter) error {
	start := s.now()

	message := strings.TrimSpace(input.Message)
	if message == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "message is required")
	}
	if s.generator == nil {
		return domain.ErrGenerationUnavailable
	}

	language := input.Language
	if language == "" {
		language = domain.LanguageEnglish
	}

	ctx, span := telemetry.StartSpan(ctx, "chat.stream", telemetry.SpanAttributes{
		Operation: "chat",
	})
	defer span.End()

	conv, err := s.resolveConversation(ctx, input.ConversationID, language)
	if err != nil {
		span.SetError(err)
		return err
	}

	dept := s.router.Detect(message, conv.DepartmentID)
	if dept == nil {
		err := fmt.Errorf("no departments configured")
		span.SetError(err)
		return err
	}
	if err := s.conversations.SetDepartment(ctx, conv.ID, dept.ID); err != nil {
		span.SetError(err)
		return fmt.Errorf("failed to update conversation department: %w", err)
	}

	// History is fetched before the user message is logged so it holds
	// only prior turns.
	history, err := s.conversations.History(ctx, conv.ID, s.historyLimit)
	if err != nil {
		log.Printf("failed to load conversation history: %v", err)
		telemetry.CaptureError(ctx, err)
		history = nil
	}

	if err := s.conversations.AppendMessage(ctx, &domain.Message{
		ConversationID: conv.ID,
		Role:           domain.MessageRoleUser,
		Content:        message,
		DepartmentID:   dept.ID,
	}); err != nil {
		span.SetError(err)
		return fmt.Errorf("failed to log user message: %w", err)
	}

	chunks, err := s.retriever.Retrieve(ctx, message, dept.ID)
	if err != nil {
		// Retrieval failure leaves the turn ungrounded but alive; the
		// prompt tells the model to admit it has no information.
		log.Printf("retrieval failed for conversation %s: %v", conv.ID, err)
		telemetry.CaptureError(ctx, err)
		chunks = nil
	}

	systemPrompt := SystemPrompt(language, dept.LocalizedName(language), AssembleContext(chunks))

	if err := emitter.Meta(TurnMeta{ConversationID: conv.ID, Department: dept}); err != nil {
		return err
	}

	var answer strings.Builder
	genErr := s.generator.StreamChat(ctx, systemPrompt, history, message, func(token string) error {
		answer.WriteString(token)
		return emitter.Token(token)
	})

	disconnected := ctx.Err() != nil
	if genErr != nil && !disconnected && !errors.Is(genErr, context.Canceled) {
		log.Printf("generation failed for conversation %s: %v", conv.ID, genErr)
		telemetry.CaptureError(ctx, genErr)

		apology := ApologyMessage(language)
		answer.WriteString(apology)
		if err := emitter.Token(apology); err != nil {
			log.Printf("failed to emit apology: %v", err)
		}
	}

	// Persist whatever was produced, including partial answers from a
	// dropped client. WithoutCancel keeps the write alive past disconnect.
	if answer.Len() > 0 {
		elapsed := int(s.now().Sub(start).Milliseconds())
		persistCtx := context.WithoutCancel(ctx)
		if err := s.conversations.AppendMessage(persistCtx, &domain.Message{
			ConversationID: conv.ID,
			Role:           domain.MessageRoleAssistant,
			Content:        answer.String(),
			DepartmentID:   dept.ID,
			ResponseTimeMS: &elapsed,
		}); err != nil {
			log.Printf("failed to log assistant message: %v", err)
			telemetry.CaptureError(persistCtx, err)
		}
	}

	return nil
}

// resolveConversation loads the referenced conversation or starts a new one.
// An unknown or malformed conversation ID silently starts a fresh
// conversation rather than erroring.
func (s *ChatService) resolveConversation(ctx context.Context, conversationID, language string) (*domain.Conversation, error) {
	if conversationID != "" {
		if _, err := uuid.Parse(conversationID); err == nil {
			conv, err := s.conversations.Get(ctx, conversationID)
			if err == nil {
				return conv, nil
			}
			if !errors.Is(err, domain.ErrConversationNotFound) {
				return nil, fmt.Errorf("failed to load conversation: %w", err)
			}
		}
	}

	conv := domain.NewConversation(s.ids.NewID(), language, s.now().UTC())
	if err := s.conversations.Create(ctx, conv); err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return conv, nil
}
