package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/civicworks/countychat/internal/domain"
	"github.com/civicworks/countychat/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockChatStreamer struct {
	mock.Mock
}

func (m *MockChatStreamer) Stream(ctx context.Context, input service.ChatInput, emitter service.TurnEmitter) error {
	args := m.Called(ctx, input, emitter)
	return args.Error(0)
}

func chatRequest(t *testing.T, body any) *http.Request {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	return httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader(payload))
}

func sseEvents(t *testing.T, body string) []string {
	t.Helper()
	var events []string
	for _, block := range strings.Split(strings.TrimSpace(body), "\n\n") {
		require.True(t, strings.HasPrefix(block, "data: "), "unexpected SSE block: %q", block)
		events = append(events, strings.TrimPrefix(block, "data: "))
	}
	return events
}

func TestChatHandler_Chat_Success(t *testing.T) {
	mockSvc := new(MockChatStreamer)
	handler := NewChatHandler(mockSvc)

	mockSvc.On("Stream", mock.Anything, service.ChatInput{Message: "I need a building permit"}, mock.Anything).
		Run(func(args mock.Arguments) {
			emitter := args.Get(2).(service.TurnEmitter)
			require.NoError(t, emitter.Meta(service.TurnMeta{
				ConversationID: "conv-1",
				Department:     &domain.Department{Slug: "rma", Name: "Resource Management Agency", NameES: "Agencia de Gestión de Recursos"},
			}))
			require.NoError(t, emitter.Token("Visit "))
			require.NoError(t, emitter.Token("the RMA office."))
		}).
		Return(nil)

	w := httptest.NewRecorder()
	handler.Chat(w, chatRequest(t, map[string]string{"message": "I need a building permit"}))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	events := sseEvents(t, w.Body.String())
	require.Len(t, events, 4)

	var meta map[string]any
	require.NoError(t, json.Unmarshal([]byte(events[0]), &meta))
	assert.Equal(t, "conv-1", meta["conversation_id"])
	dept := meta["department"].(map[string]any)
	assert.Equal(t, "rma", dept["slug"])
	assert.Equal(t, "Agencia de Gestión de Recursos", dept["name_es"])

	assert.JSONEq(t, `{"text":"Visit "}`, events[1])
	assert.JSONEq(t, `{"text":"the RMA office."}`, events[2])
	assert.Equal(t, "[DONE]", events[3])

	mockSvc.AssertExpectations(t)
}

func TestChatHandler_Chat_EmptyMessage(t *testing.T) {
	handler := NewChatHandler(new(MockChatStreamer))

	w := httptest.NewRecorder()
	handler.Chat(w, chatRequest(t, map[string]string{"message": ""}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatHandler_Chat_MessageTooLong(t *testing.T) {
	handler := NewChatHandler(new(MockChatStreamer))

	w := httptest.NewRecorder()
	handler.Chat(w, chatRequest(t, map[string]string{"message": strings.Repeat("a", maxMessageChars+1)}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatHandler_Chat_InvalidLanguage(t *testing.T) {
	handler := NewChatHandler(new(MockChatStreamer))

	w := httptest.NewRecorder()
	handler.Chat(w, chatRequest(t, map[string]string{"message": "bonjour", "language": "fr"}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatHandler_Chat_InvalidBody(t *testing.T) {
	handler := NewChatHandler(new(MockChatStreamer))

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	handler.Chat(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatHandler_Chat_ServiceUnavailable(t *testing.T) {
	mockSvc := new(MockChatStreamer)
	handler := NewChatHandler(mockSvc)

	mockSvc.On("Stream", mock.Anything, mock.Anything, mock.Anything).
		Return(domain.ErrGenerationUnavailable)

	w := httptest.NewRecorder()
	handler.Chat(w, chatRequest(t, map[string]string{"message": "hello"}))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestChatHandler_Chat_PassesConversationAndLanguage(t *testing.T) {
	mockSvc := new(MockChatStreamer)
	handler := NewChatHandler(mockSvc)

	expected := service.ChatInput{
		ConversationID: "44444444-4444-4444-4444-444444444444",
		Message:        "hola",
		Language:       "es",
	}
	mockSvc.On("Stream", mock.Anything, expected, mock.Anything).Return(nil)

	w := httptest.NewRecorder()
	handler.Chat(w, chatRequest(t, map[string]string{
		"message":         "hola",
		"conversation_id": "44444444-4444-4444-4444-444444444444",
		"language":        "es",
	}))

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}
