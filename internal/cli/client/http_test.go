package client

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_UnwrapsEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/departments", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":[{"slug":"general"}]}`)
	}))
	defer server.Close()

	api, err := NewAPIClientWithConfig(server.URL, "")
	require.NoError(t, err)

	resp, err := api.Get("/api/departments")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"slug":"general"}]`, string(resp.Data))
}

func TestGet_ErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"invalid admin password"}`)
	}))
	defer server.Close()

	api, err := NewAPIClientWithConfig(server.URL, "")
	require.NoError(t, err)

	_, err = api.Get("/api/analytics/overview")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "invalid admin password", apiErr.Message)
}

func TestPost_SendsAdminPasswordHeader(t *testing.T) {
	var gotHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get(adminPasswordHeader)
		fmt.Fprint(w, `{"data":{}}`)
	}))
	defer server.Close()

	api, err := NewAPIClientWithConfig(server.URL, "secret")
	require.NoError(t, err)

	_, err = api.Post("/api/conversations/abc/rating", map[string]int{"rating": 5})
	require.NoError(t, err)
	assert.Equal(t, "secret", gotHeader)
}

func TestGetRaw_ReturnsBodyOutsideEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		fmt.Fprint(w, `{"status":"ok","database":"connected","model":"gpt-4o-mini"}`)
	}))
	defer server.Close()

	api, err := NewAPIClientWithConfig(server.URL, "")
	require.NoError(t, err)

	body, err := api.GetRaw("/health")
	require.NoError(t, err)
	assert.Contains(t, string(body), `"database":"connected"`)
}

func TestStreamChat_ParsesEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"conversation_id\":\"conv-1\",\"department\":{\"slug\":\"rma\",\"name\":\"Resource Management Agency\",\"name_es\":\"Agencia de Manejo de Recursos\"}}\n\n")
		fmt.Fprint(w, "data: {\"text\":\"You need \"}\n\n")
		fmt.Fprint(w, "data: {\"text\":\"a permit.\"}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	api, err := NewAPIClientWithConfig(server.URL, "")
	require.NoError(t, err)

	var conversationID, answer string
	err = api.StreamChat(map[string]string{"message": "do I need a permit?"}, func(event StreamEvent) error {
		if event.ConversationID != "" {
			conversationID = event.ConversationID
			require.NotNil(t, event.Department)
			assert.Equal(t, "rma", event.Department.Slug)
			return nil
		}
		answer += event.Text
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "conv-1", conversationID)
	assert.Equal(t, "You need a permit.", answer)
}

func TestStreamChat_ErrorBeforeStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"message is required"}`)
	}))
	defer server.Close()

	api, err := NewAPIClientWithConfig(server.URL, "")
	require.NoError(t, err)

	err = api.StreamChat(map[string]string{"message": ""}, func(StreamEvent) error {
		t.Fatal("no events expected")
		return nil
	})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "message is required", apiErr.Message)
}

func TestStreamChat_TruncatedStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"text\":\"partial\"}\n\n")
	}))
	defer server.Close()

	api, err := NewAPIClientWithConfig(server.URL, "")
	require.NoError(t, err)

	var answer string
	err = api.StreamChat(map[string]string{"message": "hi"}, func(event StreamEvent) error {
		answer += event.Text
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without completion signal")
	assert.Equal(t, "partial", answer)
}

func TestStreamChat_CallbackErrorStopsStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"text\":\"one\"}\n\n")
		fmt.Fprint(w, "data: {\"text\":\"two\"}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	api, err := NewAPIClientWithConfig(server.URL, "")
	require.NoError(t, err)

	stop := errors.New("stop")
	calls := 0
	err = api.StreamChat(map[string]string{"message": "hi"}, func(StreamEvent) error {
		calls++
		return stop
	})
	require.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestNewAPIClientWithConfig_TrimsTrailingSlash(t *testing.T) {
	api, err := NewAPIClientWithConfig("http://localhost:8080/", "")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", api.baseURL)
}
