package main

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nickyhof/RouteDB"
)

// decodedQuery mirrors QueryResponse with payloads left as plain JSON objects.
type decodedQuery struct {
	Payloads []map[string]any `json:"payloads"`
	TimeMs   float64          `json:"time_ms"`
}

func newTestInstance(t *testing.T) *RouteDB.Instance {
	instance, err := RouteDB.Open(context.Background(), nil)
	if err != nil {
		t.Fatalf("Failed to open instance: %v", err)
	}
	t.Cleanup(func() { instance.Close() })
	return instance
}

func setupTestServer(t *testing.T, opts ...Option) (*Server, func()) {
	server := NewServer(newTestInstance(t), opts...)
	if err := server.Start("127.0.0.1:0"); err != nil { // :0 picks a free port
		t.Fatalf("Failed to start server: %v", err)
	}
	return server, func() {
		server.Stop()
	}
}

type testConn struct {
	t      *testing.T
	conn   net.Conn
	reader *bufio.Reader
}

func dial(t *testing.T, addr string) *testConn {
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return &testConn{t: t, conn: conn, reader: bufio.NewReader(conn)}
}

func (c *testConn) send(line string) Response {
	c.t.Helper()
	if _, err := c.conn.Write([]byte(line + "\n")); err != nil {
		c.t.Fatalf("Failed to send: %v", err)
	}
	return c.read()
}

func (c *testConn) read() Response {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	line, err := c.reader.ReadString('\n')
	if err != nil {
		c.t.Fatalf("Failed to read response: %v", err)
	}

	var resp Response
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		c.t.Fatalf("Failed to parse response %q: %v", line, err)
	}
	return resp
}

func sendQuery(t *testing.T, addr, query string) Response {
	t.Helper()
	return dial(t, addr).send(query)
}

func payloadsOf(t *testing.T, resp Response) []map[string]any {
	t.Helper()
	if !resp.Success {
		t.Fatalf("Expected success, got error: %s", resp.Error)
	}
	var qr decodedQuery
	if err := json.Unmarshal(resp.Result, &qr); err != nil {
		t.Fatalf("Failed to parse query result: %v", err)
	}
	return qr.Payloads
}

func createTestJWT(t *testing.T, secret string, claims jwt.MapClaims) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return signed
}

func TestServerStartStop(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	if server.Addr() == "" {
		t.Error("Expected non-empty address")
	}
}

func TestServerBatch(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	resp := sendQuery(t, server.Addr(), "CREATE TABLE users (id INTEGER, name TEXT) ENGINE = sessionStorage; INSERT INTO users VALUES (1, 'Alice'), (2, 'Bob'); SELECT name FROM users ORDER BY id")
	if resp.Type != "query" {
		t.Errorf("Expected query type, got: %s", resp.Type)
	}

	payloads := payloadsOf(t, resp)
	if len(payloads) != 3 {
		t.Fatalf("Expected 3 payloads, got %d", len(payloads))
	}
	if payloads[0]["type"] != "CREATE TABLE" {
		t.Errorf("Expected CREATE TABLE payload, got %v", payloads[0])
	}
	if payloads[1]["affected"] != float64(2) {
		t.Errorf("Expected 2 affected, got %v", payloads[1])
	}

	rows := payloads[2]["rows"].([]any)
	if len(rows) != 2 || rows[0].(map[string]any)["name"] != "Alice" {
		t.Errorf("Unexpected rows: %v", rows)
	}
}

func TestServerJSONRequest(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	line, _ := json.Marshal(Request{Query: "SHOW TABLES"})
	payloads := payloadsOf(t, sendQuery(t, server.Addr(), string(line)))
	if len(payloads) != 1 || payloads[0]["type"] != "SHOW TABLES" {
		t.Errorf("Unexpected payloads: %v", payloads)
	}

	resp := sendQuery(t, server.Addr(), `{"query": `)
	if resp.Success || !strings.Contains(resp.Error, "invalid request") {
		t.Errorf("Expected invalid request error, got %+v", resp)
	}
}

func TestServerError(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	resp := sendQuery(t, server.Addr(), "CREATE TABLE a; CREATE TABLE b ENGINE = indexedDB")
	if resp.Success {
		t.Fatal("Expected failure for unknown engine")
	}
	if resp.Kind != "unknown_engine" || resp.Position != 2 {
		t.Errorf("Expected unknown_engine at 2, got %s at %d", resp.Kind, resp.Position)
	}
	if resp.Result != nil {
		t.Errorf("Expected no result on failure, got %s", resp.Result)
	}
}

func TestServerSyntaxError(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	resp := sendQuery(t, server.Addr(), "SELEKT * FROM nowhere")
	if resp.Success {
		t.Error("Expected failure for syntax error")
	}
	if resp.Kind != "syntax" || resp.Position != 1 {
		t.Errorf("Expected syntax error at 1, got %s at %d", resp.Kind, resp.Position)
	}
}

func TestServerPersistentConnection(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	conn := dial(t, server.Addr())
	payloadsOf(t, conn.send("CREATE TABLE items (id INTEGER) ENGINE = localStorage"))
	payloadsOf(t, conn.send("INSERT INTO items VALUES (1)"))

	// A second client sees the same catalog
	other := dial(t, server.Addr())
	resp := other.send("CREATE TABLE items (id INTEGER) ENGINE = memory")
	if resp.Kind != "engine_conflict" {
		t.Errorf("Expected engine_conflict, got %+v", resp)
	}

	payloads := payloadsOf(t, conn.send("SELECT * FROM items"))
	if rows := payloads[0]["rows"].([]any); len(rows) != 1 {
		t.Errorf("Expected 1 row, got %d", len(rows))
	}

	if _, err := conn.conn.Write([]byte("quit\n")); err != nil {
		t.Fatalf("Failed to send quit: %v", err)
	}
	_ = conn.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := conn.reader.ReadString('\n'); err == nil {
		t.Error("Expected connection to close after quit")
	}
}

func TestServerMaxConns(t *testing.T) {
	server, cleanup := setupTestServer(t, WithMaxConns(1))
	defer cleanup()

	first := dial(t, server.Addr())
	payloadsOf(t, first.send("SHOW VERSION"))

	second := dial(t, server.Addr())
	resp := second.read()
	if resp.Success || !strings.Contains(resp.Error, "server busy") {
		t.Errorf("Expected busy rejection, got %+v", resp)
	}
}

func TestServerStopClosesConnections(t *testing.T) {
	server, _ := setupTestServer(t)

	conn := dial(t, server.Addr())
	payloadsOf(t, conn.send("SHOW TABLES"))

	done := make(chan struct{})
	go func() {
		server.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return with an idle client connected")
	}
}

func TestAuthRequired(t *testing.T) {
	server, cleanup := setupTestServer(t, WithAuth(&AuthConfig{JWTSecret: "secret"}))
	defer cleanup()

	resp := sendQuery(t, server.Addr(), "SHOW TABLES")
	if resp.Success || !strings.Contains(resp.Error, "authentication required") {
		t.Errorf("Expected authentication required, got %+v", resp)
	}
}

func TestAuthWithValidJWT(t *testing.T) {
	server, cleanup := setupTestServer(t, WithAuth(&AuthConfig{JWTSecret: "secret", Issuer: "routedb-test"}))
	defer cleanup()

	token := createTestJWT(t, "secret", jwt.MapClaims{
		"sub": "alice",
		"iss": "routedb-test",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	conn := dial(t, server.Addr())
	resp := conn.send("AUTH JWT " + token)
	if !resp.Success || resp.Type != "auth" {
		t.Fatalf("Expected auth success, got %+v", resp)
	}

	var ar AuthResponse
	if err := json.Unmarshal(resp.Result, &ar); err != nil {
		t.Fatalf("Failed to parse auth result: %v", err)
	}
	if !ar.Authenticated || ar.Subject != "alice" || ar.ExpiresIn <= 0 {
		t.Errorf("Unexpected auth response: %+v", ar)
	}

	payloadsOf(t, conn.send("SHOW TABLES"))
}

func TestAuthWithInvalidJWT(t *testing.T) {
	server, cleanup := setupTestServer(t, WithAuth(&AuthConfig{JWTSecret: "secret", Issuer: "routedb-test"}))
	defer cleanup()

	tests := []struct {
		name  string
		token string
	}{
		{"wrong secret", createTestJWT(t, "other", jwt.MapClaims{"sub": "alice", "iss": "routedb-test"})},
		{"wrong issuer", createTestJWT(t, "secret", jwt.MapClaims{"sub": "alice", "iss": "elsewhere"})},
		{"expired", createTestJWT(t, "secret", jwt.MapClaims{"sub": "alice", "iss": "routedb-test", "exp": time.Now().Add(-time.Hour).Unix()})},
		{"no subject", createTestJWT(t, "secret", jwt.MapClaims{"iss": "routedb-test"})},
		{"garbage", "not-a-token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := dial(t, server.Addr())
			resp := conn.send("AUTH JWT " + tt.token)
			if resp.Success {
				t.Fatal("Expected auth failure")
			}
			if resp := conn.send("SHOW TABLES"); resp.Success {
				t.Error("Expected queries to stay rejected")
			}
		})
	}
}

func TestParseAuthCommand(t *testing.T) {
	tests := []struct {
		line    string
		token   string
		wantErr bool
	}{
		{"AUTH JWT abc", "abc", false},
		{"auth jwt abc", "abc", false},
		{"AUTH JWT", "", true},
		{"AUTH BASIC abc", "", true},
		{"SELECT 1", "", true},
	}

	for _, tt := range tests {
		_, token, err := parseAuthCommand(tt.line)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseAuthCommand(%q) error = %v, wantErr %v", tt.line, err, tt.wantErr)
		}
		if token != tt.token {
			t.Errorf("parseAuthCommand(%q) token = %q, want %q", tt.line, token, tt.token)
		}
	}
}

func TestConnectionStateExpiry(t *testing.T) {
	state := &ConnectionState{subject: "alice", authenticated: true, tokenExpiry: time.Now().Add(-time.Second)}
	if state.IsAuthenticated() {
		t.Error("Expected expired token to count as unauthenticated")
	}

	state.tokenExpiry = time.Time{}
	if !state.IsAuthenticated() {
		t.Error("Expected token without expiry to stay valid")
	}
}
