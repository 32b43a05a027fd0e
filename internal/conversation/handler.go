package conversation

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/rahi-platform/rahi-assistant/pkg/logging"
)

const (
	serviceName    = "RAHI Chatbot Service"
	serviceVersion = "1.0.0"
	pendingStatus  = "pending"
)

// ChatRequest is the body of POST /chat. Message is a pointer so a missing
// field can be told apart from an empty string; any string is answered.
type ChatRequest struct {
	Message *string        `json:"message"`
	UserID  string         `json:"user_id,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

// ChatResponse is the body returned by POST /chat.
type ChatResponse struct {
	Reply          string `json:"reply"`
	Success        bool   `json:"success"`
	ConversationID string `json:"conversation_id"`
	Provider       string `json:"provider"`
}

// DetailedResponder produces a reply together with its serving source.
type DetailedResponder interface {
	RespondDetailed(ctx context.Context, text string) Reply
}

// SelectionStatus reports the current selection without probing.
type SelectionStatus interface {
	Peek() (Selection, bool)
}

// Handler wires HTTP requests to the reply pipeline.
type Handler struct {
	responder DetailedResponder
	status    SelectionStatus
	logger    *logging.Logger
}

// NewHandler creates a chat handler. status may be nil.
func NewHandler(responder DetailedResponder, status SelectionStatus, logger *logging.Logger) *Handler {
	if responder == nil {
		panic("conversation: responder cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		responder: responder,
		status:    status,
		logger:    logger,
	}
}

// Chat handles POST /chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode chat request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Message == nil {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	h.logger.Info("received chat request",
		"user_id", req.UserID,
		"preview", preview(*req.Message, 50),
	)
	reply := h.responder.RespondDetailed(r.Context(), *req.Message)

	h.writeJSON(w, http.StatusOK, ChatResponse{
		Reply:          reply.Text,
		Success:        true,
		ConversationID: uuid.NewString(),
		Provider:       reply.Source,
	})
}

// Root handles GET /.
func (h *Handler) Root(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"message":   serviceName + " is running",
		"version":   serviceVersion,
		"endpoints": []string{"/chat", "/health"},
	})
}

// Health handles GET /health. It reports the cached selection and never
// triggers a probe.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":   "healthy",
		"service":  serviceName,
		"provider": h.providerStatus(),
	})
}

func (h *Handler) providerStatus() string {
	if h.status == nil {
		return pendingStatus
	}
	sel, ok := h.status.Peek()
	if !ok {
		return pendingStatus
	}
	if !sel.Available() {
		return DegradedProviderName
	}
	return sel.Candidate
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
