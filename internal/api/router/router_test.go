package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rahi-platform/rahi-assistant/internal/conversation"
	"github.com/rahi-platform/rahi-assistant/internal/webchat"
	"github.com/rahi-platform/rahi-assistant/pkg/logging"
	"golang.org/x/net/websocket"
)

type emptySource struct{}

func (emptySource) Select(context.Context) conversation.Selection { return conversation.Selection{} }

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	return newTestRouterWithOrigins(t, "*")
}

func newTestRouterWithOrigins(t *testing.T, origins ...string) http.Handler {
	t.Helper()

	logger := logging.New("error")
	orch := conversation.NewOrchestrator(emptySource{}, conversation.WithOrchestratorLogger(logger))
	cfg := &Config{
		Logger:              logger,
		ConversationHandler: conversation.NewHandler(orch, nil, logger),
		WebChatHandler:      webchat.NewHandler(orch, logger),
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("# metrics\n"))
		}),
		CORSAllowedOrigins: origins,
	}

	return New(cfg)
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if resp["status"] != "healthy" {
		t.Errorf("expected status 'healthy', got %q", resp["status"])
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Errorf("expected request id header")
	}
}

func TestRouterChatEndpoint(t *testing.T) {
	router := newTestRouter(t)

	msg := "I need a plumber"
	body, err := json.Marshal(conversation.ChatRequest{Message: &msg})
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
	var resp conversation.ChatResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode chat response: %v", err)
	}
	if !strings.Contains(resp.Reply, "find a plumber") {
		t.Errorf("unexpected reply %q", resp.Reply)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Errorf("expected CORS header on chat response")
	}
}

func TestRouterRootAndMetrics(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/", "/metrics"} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected status %d, got %d", path, http.StatusOK, rr.Code)
		}
	}
}

func TestRouterUnknownRoute(t *testing.T) {
	router := newTestRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/leads/web", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/chat", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET /chat, got %d", rr.Code)
	}
}

func TestRouterWebSocketRejectsDeniedOrigin(t *testing.T) {
	srv := httptest.NewServer(newTestRouterWithOrigins(t, "https://rahi.example"))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat/ws"

	if conn, err := websocket.Dial(wsURL, "", "https://evil.example"); err == nil {
		conn.Close()
		t.Fatalf("expected handshake from a denied origin to fail")
	}

	conn, err := websocket.Dial(wsURL, "", "https://rahi.example")
	if err != nil {
		t.Fatalf("dial from allowed origin: %v", err)
	}
	defer conn.Close()

	var first webchat.OutboundMessage
	if err := websocket.JSON.Receive(conn, &first); err != nil {
		t.Fatalf("receive session frame: %v", err)
	}
	if first.Type != "session" || first.SessionID == "" {
		t.Fatalf("unexpected first frame %#v", first)
	}
}

func TestRouterWebSocketDeniedOriginGets403(t *testing.T) {
	router := newTestRouterWithOrigins(t, "https://rahi.example")

	req := httptest.NewRequest(http.MethodGet, "/chat/ws", nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Sec-WebSocket-Version", "13")
	req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
	req.Header.Set("Origin", "https://evil.example")
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for denied origin, got %d", rr.Code)
	}
}
