//go:build e2e

package e2e

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/civicworks/countychat/internal/api/handlers"
	"github.com/civicworks/countychat/internal/api/middleware"
	"github.com/civicworks/countychat/internal/domain"
	"github.com/civicworks/countychat/internal/repository"
	"github.com/civicworks/countychat/internal/server"
	"github.com/civicworks/countychat/internal/service"
	"github.com/civicworks/countychat/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
)

const testAdminPassword = "e2e-admin"

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	Pool         *pgxpool.Pool
	ServerURL    string
	ServerCloser func()
	BinaryDir    string
	HTTPClient   *http.Client
}

// SetupE2EEnv creates a full E2E test environment with a database container
// and an in-process server. Generation is stubbed: every answer streams a
// canned sentence, so no OpenAI key is needed.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	serverURL, serverCloser := startServer(t, pool, port)

	return &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		Pool:         pool,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// SeedChunks loads a small knowledge base so retrieval has something to find.
func (e *E2ETestEnv) SeedChunks() {
	var rmaID string
	if err := e.Pool.QueryRow(e.Ctx, `SELECT id FROM departments WHERE slug = 'rma'`).Scan(&rmaID); err != nil {
		e.T.Fatalf("failed to look up department: %v", err)
	}

	chunks := []domain.ContentChunk{
		{
			DepartmentID: rmaID,
			SourceURL:    "https://tularecounty.ca.gov/rma/permits",
			Title:        "Building Permits",
			Content:      "A building permit is required for most construction projects in the unincorporated county.",
		},
		{
			DepartmentID: rmaID,
			SourceURL:    "https://tularecounty.ca.gov/rma/fees",
			Title:        "Permit Fees",
			Content:      "Permit fees are calculated from the project valuation and collected at issuance.",
		},
	}

	repo := repository.NewChunkRepository(e.Pool)
	if err := repo.ReplaceAll(e.Ctx, chunks); err != nil {
		e.T.Fatalf("failed to seed chunks: %v", err)
	}
}

// BuildBinaries builds the countychat CLI binary
func (e *E2ETestEnv) BuildBinaries() {
	tmpDir, err := os.MkdirTemp("", "countychat-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, "countychat"), "./cmd/countychat")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build countychat: %v\n%s", err, out)
	}
}

// RunCountychat runs the countychat CLI command
func (e *E2ETestEnv) RunCountychat(args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "countychat"), args...)
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("COUNTYCHAT_SERVER=%s", e.ServerURL),
		fmt.Sprintf("COUNTYCHAT_ADMIN_PASSWORD=%s", testAdminPassword),
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// APIResponse represents a standard API response
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path, adminPassword string) (*APIResponse, error) {
	return e.doRequest("GET", path, nil, adminPassword)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}, adminPassword string) (*APIResponse, error) {
	return e.doRequest("POST", path, body, adminPassword)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}, adminPassword string) (*APIResponse, error) {
	url := e.ServerURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}

	if adminPassword != "" {
		req.Header.Set(middleware.AdminPasswordHeader, adminPassword)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}

	return &apiResp, nil
}

// ChatEvent is one parsed server-sent event from the chat stream.
type ChatEvent struct {
	ConversationID string `json:"conversation_id"`
	Department     *struct {
		Slug   string `json:"slug"`
		Name   string `json:"name"`
		NameES string `json:"name_es"`
	} `json:"department"`
	Text string `json:"text"`
}

// StreamChat posts a chat turn and collects the full event stream.
func (e *E2ETestEnv) StreamChat(body interface{}) ([]ChatEvent, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	resp, err := e.HTTPClient.Post(e.ServerURL+"/api/chat", "application/json", bytes.NewReader(jsonData))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	var events []ChatEvent
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")
		if payload == "[DONE]" {
			return events, nil
		}
		var event ChatEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			return nil, fmt.Errorf("bad event %q: %w", payload, err)
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("stream ended without [DONE]")
}

// cannedGenerator streams a fixed answer and echoes how much context it saw.
type cannedGenerator struct{}

func (cannedGenerator) StreamChat(ctx context.Context, systemPrompt string, history []*domain.Message, userMessage string, onToken func(string) error) error {
	answer := "You can reach the county for details. "
	if strings.Contains(systemPrompt, "Building Permits") {
		answer = "A building permit is required for most construction. "
	}
	for _, token := range strings.SplitAfter(answer, " ") {
		if token == "" {
			continue
		}
		if err := onToken(token); err != nil {
			return err
		}
	}
	return nil
}

// startServer starts the HTTP server with real repositories and the canned
// generator.
func startServer(t *testing.T, pool *pgxpool.Pool, port int) (string, func()) {
	ctx := context.Background()

	departmentRepo := repository.NewDepartmentRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	conversationRepo := repository.NewConversationRepository(pool)
	analyticsRepo := repository.NewAnalyticsRepository(pool)

	cache, err := service.LoadDepartmentCache(ctx, departmentRepo)
	if err != nil {
		t.Fatalf("failed to load departments: %v", err)
	}

	router := service.NewRouter(cache)
	retrieval := service.NewRetrievalService(chunkRepo, nil, 5)
	chatSvc := service.NewChatService(conversationRepo, retrieval, cannedGenerator{}, router)

	cfg := server.RouterConfig{
		AdminPassword:      testAdminPassword,
		ChatHandler:        handlers.NewChatHandler(chatSvc),
		DepartmentsHandler: handlers.NewDepartmentsHandler(cache),
		HealthHandler:      handlers.NewHealthHandler(pool, "canned"),
		RatingHandler:      handlers.NewRatingHandler(conversationRepo),
		AnalyticsHandler:   handlers.NewAnalyticsHandler(analyticsRepo),
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: server.NewRouter(cfg),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
