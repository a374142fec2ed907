package server_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/shinyyama/support-chat/internal/config"
	"github.com/shinyyama/support-chat/internal/dto"
	appmw "github.com/shinyyama/support-chat/internal/middleware"
	"github.com/shinyyama/support-chat/internal/realtime"
	"github.com/shinyyama/support-chat/internal/server"
	"github.com/shinyyama/support-chat/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "server-test-secret"

func token(t *testing.T, sub string, admin bool) string {
	t.Helper()
	claims := appmw.Claims{
		DisplayName: "User " + sub,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	if admin {
		claims.Role = appmw.RoleAdmin
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func newTestServer(t *testing.T, opts ...func(*config.Config)) (*server.Server, *httptest.Server) {
	t.Helper()
	cfg := &config.Config{
		Env:          "test",
		AuthProvider: config.AuthProviderJWT,
		JWTSecret:    secret,
		WSSendBuffer: 16,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	srv := server.New(server.Options{
		Config:   cfg,
		DB:       testutil.NewDB(t),
		Log:      zerolog.Nop(),
		Verifier: appmw.NewJWTVerifier(secret, "", ""),
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func call(t *testing.T, ts *httptest.Server, method, path, tok, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, ts.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func dial(t *testing.T, ts *httptest.Server, tok string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/hubs/support?access_token=" + tok
	conn, resp, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) realtime.Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var f realtime.Frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 5*time.Second, 10*time.Millisecond)
}

func TestRoutesRequireAuth(t *testing.T) {
	_, ts := newTestServer(t)

	assert.Equal(t, http.StatusOK, call(t, ts, http.MethodGet, "/healthz", "", "").StatusCode)
	assert.Equal(t, http.StatusOK, call(t, ts, http.MethodGet, "/metrics", "", "").StatusCode)
	assert.Equal(t, http.StatusUnauthorized, call(t, ts, http.MethodGet, "/api/admin/inbox", "", "").StatusCode)
	assert.Equal(t, http.StatusForbidden, call(t, ts, http.MethodGet, "/api/admin/inbox", token(t, "cust-a", false), "").StatusCode)
	assert.Equal(t, http.StatusOK, call(t, ts, http.MethodGet, "/api/admin/inbox", token(t, "admin-1", true), "").StatusCode)
	assert.Equal(t, http.StatusUnauthorized, call(t, ts, http.MethodGet, "/hubs/support", "", "").StatusCode)

	resp := call(t, ts, http.MethodGet, "/healthz", "", "")
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestRealtimeFanOut(t *testing.T) {
	srv, ts := newTestServer(t)
	custTok := token(t, "cust-a", false)
	adminTok := token(t, "admin-1", true)

	resp := call(t, ts, http.MethodPost, "/api/support/conversation/open", custTok, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var opened dto.OpenConversationResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&opened))

	customer := dial(t, ts, custTok)
	admin := dial(t, ts, adminTok)
	intruder := dial(t, ts, token(t, "cust-b", false))
	waitFor(t, func() bool { return srv.Hub().GroupSize(realtime.AdminsGroup) == 1 })
	waitFor(t, func() bool { return srv.Hub().GroupSize(realtime.UserGroup("cust-b")) == 1 })

	require.NoError(t, admin.WriteJSON(map[string]string{"type": "JoinConversation", "conversationId": opened.ConversationID}))
	waitFor(t, func() bool { return srv.Hub().GroupSize(realtime.ConversationGroup(opened.ConversationID)) == 1 })

	require.NoError(t, intruder.WriteJSON(map[string]string{"type": "JoinConversation", "conversationId": opened.ConversationID}))
	f := readFrame(t, intruder)
	assert.Equal(t, realtime.EventError, f.Type)

	body, _ := json.Marshal(dto.SendMessageRequest{ConversationID: opened.ConversationID, Text: "Hello A"})
	resp = call(t, ts, http.MethodPost, "/api/chat/messages/send", adminTok, string(body))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for _, conn := range []*websocket.Conn{customer, admin} {
		first := readFrame(t, conn)
		second := readFrame(t, conn)
		assert.Equal(t, realtime.EventMessageCreated, first.Type)
		assert.Equal(t, realtime.EventConversationUpserted, second.Type)
		data := second.Data.(map[string]interface{})
		assert.EqualValues(t, 1, data["unreadForCustomerCount"])
		assert.Equal(t, "Hello A", data["lastMessagePreview"])
	}

	resp = call(t, ts, http.MethodPost, "/api/chat/conversations/"+opened.ConversationID+"/read", custTok, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	f = readFrame(t, admin)
	assert.Equal(t, realtime.EventConversationUpserted, f.Type)
	assert.EqualValues(t, 0, f.Data.(map[string]interface{})["unreadForCustomerCount"])

	require.NoError(t, customer.Close())
	waitFor(t, func() bool { return srv.Hub().GroupSize(realtime.UserGroup("cust-a")) == 0 })
}

func TestRealtimeOriginMatchesCORS(t *testing.T) {
	tests := []struct {
		name   string
		env    string
		origin string
		want   bool
	}{
		{"configured origin", "production", "https://app.example", true},
		{"unknown origin", "production", "https://evil.example", false},
		{"localhost outside development", "production", "http://localhost:3000", false},
		{"localhost in development", "development", "http://localhost:3000", true},
		{"loopback in development", "development", "http://127.0.0.1:5174", true},
		{"unknown origin in development", "development", "https://evil.example", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ts := newTestServer(t, func(c *config.Config) {
				c.Env = tt.env
				c.AllowedOrigins = []string{"https://app.example"}
			})
			tok := token(t, "cust-a", false)

			preflight, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/me", nil)
			require.NoError(t, err)
			preflight.Header.Set("Origin", tt.origin)
			preflight.Header.Set("Access-Control-Request-Method", http.MethodGet)
			presp, err := http.DefaultClient.Do(preflight)
			require.NoError(t, err)
			_ = presp.Body.Close()
			corsAllowed := presp.Header.Get("Access-Control-Allow-Origin") == tt.origin
			assert.Equal(t, tt.want, corsAllowed)

			u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/hubs/support?access_token=" + tok
			header := http.Header{}
			header.Set("Origin", tt.origin)
			conn, resp, err := websocket.DefaultDialer.Dial(u, header)
			if resp != nil {
				_ = resp.Body.Close()
			}
			if conn != nil {
				_ = conn.Close()
			}
			assert.Equal(t, tt.want, err == nil)
			if !tt.want {
				require.NotNil(t, resp)
				assert.Equal(t, http.StatusForbidden, resp.StatusCode)
			}
		})
	}
}
