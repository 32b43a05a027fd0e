package conversation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rahi-platform/rahi-assistant/pkg/logging"
)

func TestHandler_Chat_ReturnsReply(t *testing.T) {
	p := &stubProvider{name: "groq:llama", reply: TextContent{Text: "Visit /services"}}
	handler := NewHandler(NewOrchestrator(selectionOf(p)), nil, logging.Default())

	msg := "I need a plumber"
	body, _ := json.Marshal(ChatRequest{Message: &msg, UserID: "u-1"})
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.Chat(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp ChatResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.Reply != "Visit /services" || resp.Provider != "groq:llama" {
		t.Fatalf("unexpected response %#v", resp)
	}
	if resp.ConversationID == "" {
		t.Fatalf("expected conversation id")
	}
}

func TestHandler_Chat_DegradedReply(t *testing.T) {
	handler := NewHandler(NewOrchestrator(staticSource{}), nil, logging.Default())

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"hello"}`))
	w := httptest.NewRecorder()
	handler.Chat(w, req)

	var resp ChatResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Provider != DegradedProviderName || !strings.HasPrefix(resp.Reply, "Hello!") {
		t.Fatalf("unexpected response %#v", resp)
	}
}

func TestHandler_Chat_ApologyIsStillSuccess(t *testing.T) {
	p := &stubProvider{name: "live", err: errors.New("upstream 503")}
	handler := NewHandler(NewOrchestrator(selectionOf(p)), nil, logging.Default())

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"hello"}`))
	w := httptest.NewRecorder()
	handler.Chat(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "upstream 503") {
		t.Fatalf("expected apology with detail, got %s", w.Body.String())
	}
}

func TestHandler_Chat_BadRequests(t *testing.T) {
	handler := NewHandler(NewOrchestrator(staticSource{}), nil, logging.Default())

	for _, body := range []string{"{", `{}`, `{"message":null}`, `{"message":42}`} {
		req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
		w := httptest.NewRecorder()
		handler.Chat(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("body %q: expected 400, got %d", body, w.Code)
		}
	}
}

func TestHandler_Chat_AnswersEmptyAndBlankMessages(t *testing.T) {
	handler := NewHandler(NewOrchestrator(staticSource{}), nil, logging.Default())

	for _, body := range []string{`{"message":""}`, `{"message":"   "}`} {
		req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
		w := httptest.NewRecorder()
		handler.Chat(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("body %q: expected 200, got %d", body, w.Code)
		}
		var resp ChatResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if !resp.Success || strings.TrimSpace(resp.Reply) == "" {
			t.Fatalf("body %q: expected a non-empty reply, got %#v", body, resp)
		}
		if !strings.HasPrefix(resp.Reply, "I understand you're asking about '") {
			t.Fatalf("body %q: expected the default degraded reply, got %q", body, resp.Reply)
		}
	}
}

func TestHandler_Root(t *testing.T) {
	handler := NewHandler(NewOrchestrator(staticSource{}), nil, logging.Default())
	w := httptest.NewRecorder()
	handler.Root(w, httptest.NewRequest(http.MethodGet, "/", nil))

	var resp map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["message"] != "RAHI Chatbot Service is running" || resp["version"] != "1.0.0" {
		t.Fatalf("unexpected response %#v", resp)
	}
}

func TestHandler_Health(t *testing.T) {
	live := &stubProvider{name: "groq:llama"}
	tests := []struct {
		name   string
		status func() SelectionStatus
		want   string
	}{
		{"no status source", func() SelectionStatus { return nil }, "pending"},
		{"not yet probed", func() SelectionStatus {
			return NewSelector([]Candidate{candidateFor(live, 0, nil)})
		}, "pending"},
		{"selected", func() SelectionStatus {
			s := NewSelector([]Candidate{candidateFor(live, 0, nil)})
			s.Select(context.Background())
			return s
		}, "groq:llama"},
		{"degraded", func() SelectionStatus {
			s := NewSelector(nil)
			s.Select(context.Background())
			return s
		}, DegradedProviderName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHandler(NewOrchestrator(staticSource{}), tt.status(), logging.Default())
			w := httptest.NewRecorder()
			handler.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			var resp map[string]string
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp["status"] != "healthy" || resp["service"] != "RAHI Chatbot Service" {
				t.Fatalf("unexpected response %#v", resp)
			}
			if resp["provider"] != tt.want {
				t.Fatalf("provider = %q, want %q", resp["provider"], tt.want)
			}
		})
	}
}

func TestHandler_Health_DoesNotProbe(t *testing.T) {
	live := &stubProvider{name: "groq:llama"}
	s := NewSelector([]Candidate{candidateFor(live, 0, nil)})
	handler := NewHandler(NewOrchestrator(s), s, logging.Default())

	handler.Health(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	if live.calls.Load() != 0 {
		t.Fatalf("health check must not probe providers")
	}
}
