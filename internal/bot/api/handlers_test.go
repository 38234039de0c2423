package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/bothive/bothive/internal/bot/logs"
	"github.com/bothive/bothive/internal/bot/streaming"
	"github.com/bothive/bothive/internal/bot/supervisor"
	"github.com/bothive/bothive/internal/common/logger"
	v1 "github.com/bothive/bothive/pkg/api/v1"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestLogger() *logger.Logger {
	log, _ := logger.NewLogger(logger.LoggingConfig{
		Level:  "error",
		Format: "json",
	})
	return log
}

// MockSupervisor implements the Supervisor interface for handler tests
type MockSupervisor struct {
	StartFn   func(ctx context.Context, userID string) error
	StopFn    func(ctx context.Context, userID string) (bool, error)
	RestartFn func(ctx context.Context, userID string) error
	SendFn    func(userID, text string) error
	StatusFn  func(userID string) (*v1.BotProcess, bool)
}

func (m *MockSupervisor) Start(ctx context.Context, userID string) error {
	if m.StartFn != nil {
		return m.StartFn(ctx, userID)
	}
	return nil
}

func (m *MockSupervisor) Stop(ctx context.Context, userID string) (bool, error) {
	if m.StopFn != nil {
		return m.StopFn(ctx, userID)
	}
	return true, nil
}

func (m *MockSupervisor) Restart(ctx context.Context, userID string) error {
	if m.RestartFn != nil {
		return m.RestartFn(ctx, userID)
	}
	return nil
}

func (m *MockSupervisor) Send(userID, text string) error {
	if m.SendFn != nil {
		return m.SendFn(userID, text)
	}
	return nil
}

func (m *MockSupervisor) Status(userID string) (*v1.BotProcess, bool) {
	if m.StatusFn != nil {
		return m.StatusFn(userID)
	}
	return nil, false
}

// MockLogReader implements LogReader for handler tests
type MockLogReader struct {
	ReadFn func(userID string) (string, error)
}

func (m *MockLogReader) Read(userID string) (string, error) {
	if m.ReadFn != nil {
		return m.ReadFn(userID)
	}
	return logs.Placeholder, nil
}

func setupTestRouter(t *testing.T, sup Supervisor, logReader LogReader) *gin.Engine {
	t.Helper()
	log := newTestLogger()
	paths := logs.NewPaths(filepath.Join(t.TempDir(), "files"), filepath.Join(t.TempDir(), "logs"))
	hub := streaming.NewHub(paths, log)
	t.Cleanup(hub.Close)

	router := gin.New()
	apiV1 := router.Group("/api/v1")
	handler := SetupRoutes(apiV1, sup, logReader, hub, log)
	router.GET("/health", handler.HealthCheck)
	return router
}

func decodeStatusBody(t *testing.T, w *httptest.ResponseRecorder) StatusBody {
	t.Helper()
	var body StatusBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
	return body
}

func TestStartBotSuccess(t *testing.T) {
	router := setupTestRouter(t, &MockSupervisor{}, &MockLogReader{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/u1/bot/start", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if body := decodeStatusBody(t, w); body.Status != "success" {
		t.Errorf("expected success, got %+v", body)
	}
}

func TestStartBotAlreadyRunning(t *testing.T) {
	sup := &MockSupervisor{
		StartFn: func(ctx context.Context, userID string) error {
			return supervisor.ErrAlreadyRunning
		},
	}
	router := setupTestRouter(t, sup, &MockLogReader{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/u1/bot/start", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	body := decodeStatusBody(t, w)
	if body.Status != "error" || body.Message != "already running" {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestStopBotNotRunning(t *testing.T) {
	sup := &MockSupervisor{
		StopFn: func(ctx context.Context, userID string) (bool, error) {
			return false, nil
		},
	}
	router := setupTestRouter(t, sup, &MockLogReader{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/u1/bot/stop", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := decodeStatusBody(t, w)
	if body.Status != "info" || body.Message != "not running" {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestStopBotSuccess(t *testing.T) {
	router := setupTestRouter(t, &MockSupervisor{}, &MockLogReader{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/u1/bot/stop", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body := decodeStatusBody(t, w); body.Status != "success" {
		t.Errorf("expected success, got %+v", body)
	}
}

func TestRestartBot(t *testing.T) {
	var restarted string
	sup := &MockSupervisor{
		RestartFn: func(ctx context.Context, userID string) error {
			restarted = userID
			return nil
		},
	}
	router := setupTestRouter(t, sup, &MockLogReader{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/u7/bot/restart", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if restarted != "u7" {
		t.Errorf("restarted wrong user: %q", restarted)
	}
}

func TestGetLogsPlaceholder(t *testing.T) {
	router := setupTestRouter(t, &MockSupervisor{}, &MockLogReader{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/u1/bot/logs", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.String() != logs.Placeholder {
		t.Errorf("unexpected body: %q", w.Body.String())
	}
}

func TestGetLogsContent(t *testing.T) {
	reader := &MockLogReader{
		ReadFn: func(userID string) (string, error) {
			return "--- banner ---\nline\n", nil
		},
	}
	router := setupTestRouter(t, &MockSupervisor{}, reader)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/u1/bot/logs", nil)
	router.ServeHTTP(w, req)

	if w.Body.String() != "--- banner ---\nline\n" {
		t.Errorf("unexpected body: %q", w.Body.String())
	}
}

func TestSendCommandErrors(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    int
		wantMessage string
	}{
		{"not running", supervisor.ErrNotRunning, http.StatusConflict, "not running"},
		{"stdin unavailable", supervisor.ErrStdinUnavailable, http.StatusConflict, "cannot send"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sup := &MockSupervisor{
				SendFn: func(userID, text string) error { return tt.err },
			}
			router := setupTestRouter(t, sup, &MockLogReader{})

			payload, _ := json.Marshal(CommandRequest{Command: "ping"})
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/users/u1/bot/command", bytes.NewReader(payload))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, w.Code)
			}
			body := decodeStatusBody(t, w)
			if body.Status != "error" || body.Message != tt.wantMessage {
				t.Errorf("unexpected body: %+v", body)
			}
		})
	}
}

func TestSendCommandMissingBody(t *testing.T) {
	router := setupTestRouter(t, &MockSupervisor{}, &MockLogReader{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/u1/bot/command", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetStatus(t *testing.T) {
	sup := &MockSupervisor{
		StatusFn: func(userID string) (*v1.BotProcess, bool) {
			return &v1.BotProcess{UserID: userID, PID: 4242, State: v1.BotStateRunning}, true
		},
	}
	router := setupTestRouter(t, sup, &MockLogReader{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/u1/bot/status", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var proc v1.BotProcess
	if err := json.Unmarshal(w.Body.Bytes(), &proc); err != nil {
		t.Fatal(err)
	}
	if proc.PID != 4242 || proc.State != v1.BotStateRunning {
		t.Errorf("unexpected status: %+v", proc)
	}
}

func TestHealthCheck(t *testing.T) {
	router := setupTestRouter(t, &MockSupervisor{}, &MockLogReader{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "healthy" {
		t.Errorf("unexpected health body: %v", body)
	}
}

func TestGetStatusIdle(t *testing.T) {
	router := setupTestRouter(t, &MockSupervisor{}, &MockLogReader{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/u1/bot/status", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
