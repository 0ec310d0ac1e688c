package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickyhof/RouteDB/router"
	"github.com/nickyhof/RouteDB/telemetry"
)

func doRequest(handler http.Handler, method, path, contentType, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHTTPQuery(t *testing.T) {
	server := NewServer(newTestInstance(t))
	handler := server.NewHTTPHandler(HTTPConfig{})

	rec := doRequest(handler, http.MethodPost, "/query", "text/plain",
		"CREATE TABLE Foo (id INTEGER) ENGINE = localStorage; INSERT INTO Foo VALUES (1)")
	require.Equal(t, http.StatusOK, rec.Code)
	payloads := payloadsOf(t, decodeResponse(t, rec))
	assert.Len(t, payloads, 2)

	rec = doRequest(handler, http.MethodPost, "/query", "application/json", `{"query": "SELECT * FROM Foo"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	payloads = payloadsOf(t, decodeResponse(t, rec))
	require.Len(t, payloads, 1)
	assert.Equal(t, "SELECT", payloads[0]["type"])

	rec = doRequest(handler, http.MethodPost, "/query", "application/json", `{"query":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHTTPErrorStatus(t *testing.T) {
	server := NewServer(newTestInstance(t))
	handler := server.NewHTTPHandler(HTTPConfig{})

	doRequest(handler, http.MethodPost, "/query", "text/plain", "CREATE TABLE Foo ENGINE = sessionStorage")

	tests := []struct {
		name   string
		query  string
		status int
		kind   router.ErrorKind
	}{
		{"syntax", "SELEKT 1", http.StatusBadRequest, router.KindSyntax},
		{"unknown engine", "CREATE TABLE Bar ENGINE = indexedDB", http.StatusBadRequest, router.KindUnknownEngine},
		{"conflict", "CREATE TABLE Foo ENGINE = localStorage", http.StatusConflict, router.KindEngineConflict},
		{"execution", "INSERT INTO Missing VALUES (1)", http.StatusUnprocessableEntity, router.KindExecution},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(handler, http.MethodPost, "/query", "text/plain", tt.query)
			assert.Equal(t, tt.status, rec.Code)
			resp := decodeResponse(t, rec)
			assert.False(t, resp.Success)
			assert.Equal(t, string(tt.kind), resp.Kind)
			assert.Equal(t, 1, resp.Position)
		})
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(router.KindEngineNotLoaded))
	assert.Equal(t, http.StatusBadGateway, statusFor(router.KindMalformedResult))
	assert.Equal(t, http.StatusInternalServerError, statusFor(""))
}

func TestHTTPHealthAndMetrics(t *testing.T) {
	metrics := telemetry.NewMetrics()
	server := NewServer(newTestInstance(t), WithMetrics(metrics))
	handler := server.NewHTTPHandler(HTTPConfig{})

	rec := doRequest(handler, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Contains(t, rec.Body.String(), "sessionStorage")

	rec = doRequest(handler, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "routedb_active_connections")
}

func TestHTTPBearerAuth(t *testing.T) {
	server := NewServer(newTestInstance(t), WithAuth(&AuthConfig{JWTSecret: "secret"}))
	handler := server.NewHTTPHandler(HTTPConfig{})

	rec := doRequest(handler, http.MethodPost, "/query", "text/plain", "SHOW TABLES")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	bad := createTestJWT(t, "wrong", jwt.MapClaims{"sub": "alice"})
	rec = doRequest(handler, http.MethodPost, "/query", "text/plain", "SHOW TABLES", "Authorization", "Bearer "+bad)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	good := createTestJWT(t, "secret", jwt.MapClaims{"sub": "alice", "exp": time.Now().Add(time.Minute).Unix()})
	rec = doRequest(handler, http.MethodPost, "/query", "text/plain", "SHOW TABLES", "Authorization", "Bearer "+good)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Health stays open
	rec = doRequest(handler, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHTTPRateLimit(t *testing.T) {
	server := NewServer(newTestInstance(t))
	t.Cleanup(server.cancel)
	handler := server.NewHTTPHandler(HTTPConfig{RateLimit: 0.001, RateBurst: 1})

	rec := doRequest(handler, http.MethodPost, "/query", "text/plain", "SHOW TABLES")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(handler, http.MethodPost, "/query", "text/plain", "SHOW TABLES")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestServeHTTP(t *testing.T) {
	server, cleanup := setupTestServer(t)
	defer cleanup()

	addr, err := server.ServeHTTP("127.0.0.1:0", HTTPConfig{})
	require.NoError(t, err)

	resp, err := http.Post("http://"+addr+"/query", "text/plain", strings.NewReader("SHOW VERSION"))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "SHOW VERSION")
}

func TestRateLimiterSweep(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := newRateLimiter(1, 1)
	limiter.now = func() time.Time { return now }

	limiter.get("10.0.0.1")
	now = now.Add(5 * time.Minute)
	limiter.get("10.0.0.2")
	now = now.Add(6 * time.Minute)

	assert.Equal(t, 1, limiter.sweep(limiterIdleTTL))
	_, kept := limiter.limiters["10.0.0.2"]
	assert.True(t, kept)

	// A returning client starts with a fresh bucket
	assert.True(t, limiter.get("10.0.0.1").Allow())
	now = now.Add(limiterIdleTTL + time.Second)
	assert.Zero(t, limiter.sweep(limiterIdleTTL))
}
