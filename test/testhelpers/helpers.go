// Package testhelpers provides common utilities for testing the ReddNotes server.
//
// It assembles the full stack (store, token issuer, hub, dispatcher and HTTP
// server) behind an httptest.Server and offers helpers to dial the WebSocket
// endpoint and exchange envelopes with it.
package testhelpers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Tyrowin/reddnotes/internal/auth"
	"github.com/Tyrowin/reddnotes/internal/dispatch"
	"github.com/Tyrowin/reddnotes/internal/handlers"
	"github.com/Tyrowin/reddnotes/internal/hub"
	"github.com/Tyrowin/reddnotes/internal/server"
	"github.com/Tyrowin/reddnotes/internal/store"
)

// TestOrigin is allowed by the default configuration.
const TestOrigin = "http://localhost:8080"

// Stack is a running server with its collaborators exposed for assertions.
type Stack struct {
	HTTP   *httptest.Server
	Hub    *hub.Hub
	Store  *store.Store
	Tokens *auth.JWT
	// WSURL is the ws:// address of the /ws endpoint.
	WSURL string
}

// Parts is the assembled stack before it is put behind a listener.
type Parts struct {
	Server *server.Server
	Hub    *hub.Hub
	Store  *store.Store
	Tokens *auth.JWT
	Config *server.Config
}

// Build assembles the stack on an in-memory database. customize may adjust
// the configuration before it is applied. The hub and store are released
// when the test ends.
func Build(t *testing.T, customize func(cfg *server.Config)) *Parts {
	t.Helper()
	logger := zaptest.NewLogger(t)

	cfg := server.NewConfig()
	cfg.JWTSecret = "test-secret"
	if customize != nil {
		customize(cfg)
	}

	st, err := store.Open(":memory:")
	require.NoError(t, err)

	tokens, err := auth.NewJWT(cfg.JWTSecret, cfg.TokenTTL)
	require.NoError(t, err)

	h := hub.New(logger)
	svc := handlers.New(st, tokens, logger)
	table, err := dispatch.NewTable(svc.Routes()...)
	require.NoError(t, err)
	d := dispatch.New(table, tokens, h, h, logger)

	t.Cleanup(func() {
		_ = h.Shutdown(2 * time.Second)
		_ = st.Close()
		server.SetConfig(nil)
	})

	return &Parts{
		Server: server.New(cfg, h, d, logger).WithDatabase(st),
		Hub:    h,
		Store:  st,
		Tokens: tokens,
		Config: cfg,
	}
}

// NewStack starts a fully assembled server behind an httptest.Server.
func NewStack(t *testing.T, customize func(cfg *server.Config)) *Stack {
	t.Helper()
	parts := Build(t, customize)
	ts := httptest.NewServer(parts.Server.SetupRoutes())
	t.Cleanup(ts.Close)

	return &Stack{
		HTTP:   ts,
		Hub:    parts.Hub,
		Store:  parts.Store,
		Tokens: parts.Tokens,
		WSURL:  "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws",
	}
}

// Connect dials the stack's WebSocket endpoint and waits until the hub has
// registered the connection.
func (s *Stack) Connect(t *testing.T) *websocket.Conn {
	t.Helper()
	before, _ := s.Hub.Stats()

	conn, err := ConnectWebSocket(s.WSURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool {
		n, _ := s.Hub.Stats()
		return n > before
	}, 2*time.Second, 5*time.Millisecond)
	return conn
}

// ConnectWebSocket creates a WebSocket connection to the specified URL with
// an allowed Origin header.
func ConnectWebSocket(url string) (*websocket.Conn, error) {
	return ConnectWebSocketWithOrigin(url, TestOrigin)
}

// ConnectWebSocketWithOrigin dials url sending origin, or no Origin header
// when origin is empty. The handshake response status is returned so that
// rejected upgrades can be asserted.
func ConnectWebSocketWithOrigin(url, origin string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil {
		_ = resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("%w (status %d)", err, resp.StatusCode)
		}
	}
	return conn, err
}

// Envelope is an inbound frame as a client writes it.
type Envelope struct {
	Type   string `json:"type"`
	Action string `json:"action,omitempty"`
	Method string `json:"method,omitempty"`
	Token  string `json:"token,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// Reply is an outbound envelope, success or error.
type Reply struct {
	Type          string          `json:"type"`
	Action        string          `json:"action"`
	Method        string          `json:"method"`
	StatusCode    int             `json:"statusCode"`
	StatusMessage string          `json:"statusMessage"`
	ErrorMessage  string          `json:"errorMessage"`
	Data          json.RawMessage `json:"data"`
}

// Is reports whether the reply answers typ/action.
func (r Reply) Is(typ, action string) bool {
	return r.Type == typ && r.Action == action
}

// Send writes env as a JSON text frame.
func Send(t *testing.T, conn *websocket.Conn, env Envelope) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(env))
}

// Receive reads one reply, failing the test after timeout.
func Receive(t *testing.T, conn *websocket.Conn, timeout time.Duration) Reply {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(timeout)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var reply Reply
	require.NoError(t, json.Unmarshal(raw, &reply), "frame: %s", raw)
	return reply
}

// ReceiveMatching reads replies until one answers typ/action, skipping
// unrelated broadcasts.
func ReceiveMatching(t *testing.T, conn *websocket.Conn, typ, action string) Reply {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		reply := Receive(t, conn, time.Until(deadline))
		if reply.Is(typ, action) {
			return reply
		}
	}
	require.FailNow(t, "no reply", "expected a %s/%s reply", typ, action)
	return Reply{}
}

// ExpectNoMessage fails if a frame arrives within timeout.
func ExpectNoMessage(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(timeout)))
	_, raw, err := conn.ReadMessage()
	if err == nil {
		require.FailNow(t, "unexpected message", "received %s", raw)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return
	}
	require.FailNow(t, "unexpected read error", "%v", err)
}

// Drain discards frames until none arrives for quiet.
func Drain(conn *websocket.Conn, quiet time.Duration) {
	for {
		if err := conn.SetReadDeadline(time.Now().Add(quiet)); err != nil {
			return
		}
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Session is the data of a successful login or signup.
type Session struct {
	Token string `json:"token"`
	User  struct {
		ID       string `json:"_id"`
		Nickname string `json:"nickname"`
	} `json:"user"`
}

// Signup registers nickname over conn and returns the session.
func Signup(t *testing.T, conn *websocket.Conn, nickname, password string) Session {
	t.Helper()
	Send(t, conn, Envelope{
		Type:   "auth",
		Action: "signup",
		Data:   map[string]string{"nickname": nickname, "password": password},
	})
	reply := ReceiveMatching(t, conn, "auth", "signup")
	require.Equal(t, 201, reply.StatusCode, "signup failed: %s", reply.ErrorMessage)

	var sess Session
	require.NoError(t, json.Unmarshal(reply.Data, &sess))
	return sess
}

// CloseWebSocket gracefully closes a WebSocket connection.
func CloseWebSocket(conn *websocket.Conn) error {
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return err
	}
	return conn.Close()
}

// MakeRequest creates and executes an HTTP request, returning the response.
func MakeRequest(t *testing.T, method, url string) *http.Response {
	t.Helper()

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequest(method, url, http.NoBody)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp
}
