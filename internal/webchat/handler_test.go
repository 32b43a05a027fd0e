package webchat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rahi-platform/rahi-assistant/internal/conversation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

type fixedSource struct{}

func (fixedSource) Select(context.Context) conversation.Selection { return conversation.Selection{} }

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat/ws" + query
	conn, err := websocket.Dial(url, "", srv.URL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))
	return conn
}

func receive(t *testing.T, conn *websocket.Conn) OutboundMessage {
	t.Helper()
	var msg OutboundMessage
	require.NoError(t, websocket.JSON.Receive(conn, &msg))
	return msg
}

func TestGenerateSessionID(t *testing.T) {
	s1 := generateSessionID()
	s2 := generateSessionID()
	assert.Len(t, s1, 32)
	assert.NotEqual(t, s1, s2)
}

func TestHandleWebSocket_AnswersMessages(t *testing.T) {
	h := NewHandler(conversation.NewOrchestrator(fixedSource{}), nil)
	srv := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	defer srv.Close()

	conn := dial(t, srv, "?session=abc")

	session := receive(t, conn)
	assert.Equal(t, "session", session.Type)
	assert.Equal(t, "abc", session.SessionID)

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "message", Text: "track my booking"}))
	assert.Equal(t, "typing", receive(t, conn).Type)

	reply := receive(t, conn)
	assert.Equal(t, "message", reply.Type)
	assert.Equal(t, "assistant", reply.Role)
	assert.Equal(t, conversation.DegradedProviderName, reply.Provider)
	assert.Contains(t, reply.Text, "/tracking")
}

func TestHandleWebSocket_PingAndBlankMessage(t *testing.T) {
	h := NewHandler(conversation.NewOrchestrator(fixedSource{}), nil)
	srv := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	defer srv.Close()

	conn := dial(t, srv, "")
	session := receive(t, conn)
	assert.NotEmpty(t, session.SessionID)

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "message", Text: "   "}))
	assert.Equal(t, "typing", receive(t, conn).Type)
	blank := receive(t, conn)
	assert.Equal(t, "message", blank.Type)
	assert.NotEmpty(t, strings.TrimSpace(blank.Text))

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "unknown"}))
	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "ping"}))
	assert.Equal(t, "pong", receive(t, conn).Type)
	assert.Equal(t, 1, h.ActiveSessions())
}

func TestNewHandler_PanicsWithoutResponder(t *testing.T) {
	assert.Panics(t, func() { NewHandler(nil, nil) })
}
