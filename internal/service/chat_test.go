package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/civicworks/countychat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memConversationStore struct {
	conversations map[string]*domain.Conversation
	messages      []*domain.Message
	history       []*domain.Message

	createErr error
	getErr    error
	appendErr error

	setDepartmentCalls [][2]string
}

func newMemConversationStore() *memConversationStore {
	return &memConversationStore{conversations: map[string]*domain.Conversation{}}
}

func (s *memConversationStore) Create(ctx context.Context, conv *domain.Conversation) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.conversations[conv.ID] = conv
	return nil
}

func (s *memConversationStore) Get(ctx context.Context, id string) (*domain.Conversation, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	conv, ok := s.conversations[id]
	if !ok {
		return nil, domain.ErrConversationNotFound
	}
	return conv, nil
}

func (s *memConversationStore) SetDepartment(ctx context.Context, conversationID, departmentID string) error {
	s.setDepartmentCalls = append(s.setDepartmentCalls, [2]string{conversationID, departmentID})
	if conv, ok := s.conversations[conversationID]; ok {
		conv.DepartmentID = departmentID
	}
	return nil
}

func (s *memConversationStore) AppendMessage(ctx context.Context, msg *domain.Message) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	s.messages = append(s.messages, msg)
	return nil
}

func (s *memConversationStore) History(ctx context.Context, conversationID string, limit int) ([]*domain.Message, error) {
	return s.history, nil
}

type stubRetriever struct {
	chunks []*RetrievedChunk
	err    error
}

func (s *stubRetriever) Retrieve(ctx context.Context, query, departmentID string) ([]*RetrievedChunk, error) {
	return s.chunks, s.err
}

type stubGenerator struct {
	tokens []string
	err    error

	lastSystemPrompt string
	lastHistory      []*domain.Message
	lastUserMessage  string
	userLoggedFirst  bool
	store            *memConversationStore
}

func (s *stubGenerator) StreamChat(ctx context.Context, systemPrompt string, history []*domain.Message, userMessage string, onToken func(string) error) error {
	s.lastSystemPrompt = systemPrompt
	s.lastHistory = history
	s.lastUserMessage = userMessage
	if s.store != nil {
		for _, msg := range s.store.messages {
			if msg.Role == domain.MessageRoleUser && msg.Content == userMessage {
				s.userLoggedFirst = true
			}
		}
	}
	for _, token := range s.tokens {
		if err := onToken(token); err != nil {
			return err
		}
	}
	return s.err
}

type recordingEmitter struct {
	meta    *TurnMeta
	tokens  []string
	metaErr error
}

func (e *recordingEmitter) Meta(meta TurnMeta) error {
	if e.metaErr != nil {
		return e.metaErr
	}
	e.meta = &meta
	return nil
}

func (e *recordingEmitter) Token(text string) error {
	// Meta must always arrive before the first token.
	if e.meta == nil && e.metaErr == nil {
		return errors.New("token emitted before meta")
	}
	e.tokens = append(e.tokens, text)
	return nil
}

type fixedIDs struct{ id string }

func (f fixedIDs) NewID() string { return f.id }

func newTestChatService(store *memConversationStore, retriever Retriever, generator Generator) *ChatService {
	svc := NewChatService(store, retriever, generator, newTestRouter())
	svc.ids = fixedIDs{id: "11111111-1111-1111-1111-111111111111"}
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestStreamNewConversation(t *testing.T) {
	store := newMemConversationStore()
	generator := &stubGenerator{tokens: []string{"Visit ", "the RMA office."}, store: store}
	svc := newTestChatService(store, &stubRetriever{chunks: []*RetrievedChunk{chunkFixture("c1")}}, generator)
	emitter := &recordingEmitter{}

	err := svc.Stream(context.Background(), ChatInput{Message: "I need a building permit"}, emitter)
	require.NoError(t, err)

	require.NotNil(t, emitter.meta)
	assert.Equal(t, "11111111-1111-1111-1111-111111111111", emitter.meta.ConversationID)
	require.NotNil(t, emitter.meta.Department)
	assert.Equal(t, "rma", emitter.meta.Department.Slug)
	assert.Equal(t, []string{"Visit ", "the RMA office."}, emitter.tokens)

	// User message logged before generation started.
	assert.True(t, generator.userLoggedFirst)

	require.Len(t, store.messages, 2)
	user, assistant := store.messages[0], store.messages[1]
	assert.Equal(t, domain.MessageRoleUser, user.Role)
	assert.Equal(t, "I need a building permit", user.Content)
	assert.Equal(t, "d-rma", user.DepartmentID)
	assert.Equal(t, domain.MessageRoleAssistant, assistant.Role)
	assert.Equal(t, "Visit the RMA office.", assistant.Content)
	require.NotNil(t, assistant.ResponseTimeMS)

	require.Len(t, store.setDepartmentCalls, 1)
	assert.Equal(t, "d-rma", store.setDepartmentCalls[0][1])

	assert.Contains(t, generator.lastSystemPrompt, "Building Permits")
	assert.Contains(t, generator.lastSystemPrompt, "DEPARTMENT: Resource Management Agency")
}

func TestStreamStickyDepartment(t *testing.T) {
	store := newMemConversationStore()
	store.conversations["22222222-2222-2222-2222-222222222222"] = &domain.Conversation{
		ID:           "22222222-2222-2222-2222-222222222222",
		Language:     domain.LanguageEnglish,
		DepartmentID: "d-sheriff",
		StartedAt:    time.Now(),
	}
	svc := newTestChatService(store, &stubRetriever{}, &stubGenerator{tokens: []string{"ok"}})
	emitter := &recordingEmitter{}

	err := svc.Stream(context.Background(), ChatInput{
		ConversationID: "22222222-2222-2222-2222-222222222222",
		Message:        "what are your office hours?",
	}, emitter)
	require.NoError(t, err)

	require.NotNil(t, emitter.meta)
	assert.Equal(t, "22222222-2222-2222-2222-222222222222", emitter.meta.ConversationID)
	assert.Equal(t, "sheriff", emitter.meta.Department.Slug)
}

func TestStreamUnknownConversationIDStartsFresh(t *testing.T) {
	store := newMemConversationStore()
	svc := newTestChatService(store, &stubRetriever{}, &stubGenerator{tokens: []string{"ok"}})
	emitter := &recordingEmitter{}

	err := svc.Stream(context.Background(), ChatInput{
		ConversationID: "33333333-3333-3333-3333-333333333333",
		Message:        "hello",
	}, emitter)
	require.NoError(t, err)
	assert.Equal(t, "11111111-1111-1111-1111-111111111111", emitter.meta.ConversationID)
}

func TestStreamMalformedConversationIDStartsFresh(t *testing.T) {
	store := newMemConversationStore()
	svc := newTestChatService(store, &stubRetriever{}, &stubGenerator{tokens: []string{"ok"}})
	emitter := &recordingEmitter{}

	err := svc.Stream(context.Background(), ChatInput{
		ConversationID: "not-a-uuid",
		Message:        "hello",
	}, emitter)
	require.NoError(t, err)
	assert.Equal(t, "11111111-1111-1111-1111-111111111111", emitter.meta.ConversationID)
}

func TestStreamGenerationFailureEmitsApology(t *testing.T) {
	store := newMemConversationStore()
	generator := &stubGenerator{tokens: []string{"partial "}, err: errors.New("upstream 500")}
	svc := newTestChatService(store, &stubRetriever{}, generator)
	emitter := &recordingEmitter{}

	err := svc.Stream(context.Background(), ChatInput{Message: "hello"}, emitter)
	require.NoError(t, err)

	require.Len(t, emitter.tokens, 2)
	assert.Equal(t, ApologyMessage(domain.LanguageEnglish), emitter.tokens[1])

	// Partial output plus apology is persisted as the assistant turn.
	require.Len(t, store.messages, 2)
	assert.Equal(t, "partial "+ApologyMessage(domain.LanguageEnglish), store.messages[1].Content)
}

func TestStreamGenerationFailureSpanishApology(t *testing.T) {
	store := newMemConversationStore()
	svc := newTestChatService(store, &stubRetriever{}, &stubGenerator{err: errors.New("boom")})
	emitter := &recordingEmitter{}

	err := svc.Stream(context.Background(), ChatInput{Message: "hola", Language: domain.LanguageSpanish}, emitter)
	require.NoError(t, err)
	require.Len(t, emitter.tokens, 1)
	assert.Equal(t, ApologyMessage(domain.LanguageSpanish), emitter.tokens[0])
}

func TestStreamRetrievalFailureKeepsTurnAlive(t *testing.T) {
	store := newMemConversationStore()
	generator := &stubGenerator{tokens: []string{"I don't have that information."}}
	svc := newTestChatService(store, &stubRetriever{err: errors.New("db down")}, generator)
	emitter := &recordingEmitter{}

	err := svc.Stream(context.Background(), ChatInput{Message: "hello"}, emitter)
	require.NoError(t, err)
	assert.Contains(t, generator.lastSystemPrompt, NoContextSentinel)
	assert.Len(t, emitter.tokens, 1)
}

func TestStreamHistoryPassedToGenerator(t *testing.T) {
	store := newMemConversationStore()
	store.history = []*domain.Message{
		{Role: domain.MessageRoleUser, Content: "earlier question"},
		{Role: domain.MessageRoleAssistant, Content: "earlier answer"},
	}
	generator := &stubGenerator{tokens: []string{"ok"}}
	svc := newTestChatService(store, &stubRetriever{}, generator)

	err := svc.Stream(context.Background(), ChatInput{Message: "follow up"}, &recordingEmitter{})
	require.NoError(t, err)
	require.Len(t, generator.lastHistory, 2)
	assert.Equal(t, "earlier question", generator.lastHistory[0].Content)
	assert.Equal(t, "follow up", generator.lastUserMessage)
}

func TestStreamEmptyMessage(t *testing.T) {
	svc := newTestChatService(newMemConversationStore(), &stubRetriever{}, &stubGenerator{})

	err := svc.Stream(context.Background(), ChatInput{Message: "   "}, &recordingEmitter{})
	require.Error(t, err)

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
}

func TestStreamNoGenerator(t *testing.T) {
	svc := newTestChatService(newMemConversationStore(), &stubRetriever{}, nil)

	err := svc.Stream(context.Background(), ChatInput{Message: "hello"}, &recordingEmitter{})
	assert.ErrorIs(t, err, domain.ErrGenerationUnavailable)
}

func TestStreamCreateFailure(t *testing.T) {
	store := newMemConversationStore()
	store.createErr = errors.New("insert failed")
	svc := newTestChatService(store, &stubRetriever{}, &stubGenerator{})
	emitter := &recordingEmitter{}

	err := svc.Stream(context.Background(), ChatInput{Message: "hello"}, emitter)
	require.Error(t, err)
	assert.Nil(t, emitter.meta, "no events should be emitted on pre-stream failure")
}

func TestStreamDeterministicRouting(t *testing.T) {
	for i := 0; i < 5; i++ {
		store := newMemConversationStore()
		svc := newTestChatService(store, &stubRetriever{}, &stubGenerator{tokens: []string{"ok"}})
		emitter := &recordingEmitter{}

		err := svc.Stream(context.Background(), ChatInput{Message: "permit for my dog"}, emitter)
		require.NoError(t, err)
		assert.Equal(t, "rma", emitter.meta.Department.Slug)
	}
}

func TestStreamTrimsMessage(t *testing.T) {
	store := newMemConversationStore()
	generator := &stubGenerator{tokens: []string{"ok"}}
	svc := newTestChatService(store, &stubRetriever{}, generator)

	err := svc.Stream(context.Background(), ChatInput{Message: "  hello  "}, &recordingEmitter{})
	require.NoError(t, err)
	assert.Equal(t, "hello", generator.lastUserMessage)
	assert.False(t, strings.Contains(store.messages[0].Content, " hello"))
}
