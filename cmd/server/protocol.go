// Package main provides the RouteDB network server: a line-oriented TCP
// protocol and an HTTP API over the same instance.
package main

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/nickyhof/RouteDB/router"
)

// Request represents a SQL batch from the client. A request line is either
// a JSON object of this shape or the raw SQL text.
type Request struct {
	Query string `json:"query"`
}

// Response represents the server's answer to one request line.
type Response struct {
	Success  bool            `json:"success"`
	Error    string          `json:"error,omitempty"`
	Kind     string          `json:"kind,omitempty"`     // error kind, see router.ErrorKind
	Position int             `json:"position,omitempty"` // 1-based failing statement
	Type     string          `json:"type,omitempty"`     // "query" or "auth"
	Result   json.RawMessage `json:"result,omitempty"`
}

// QueryResponse carries one payload per statement of the batch.
type QueryResponse struct {
	Payloads []router.Payload `json:"payloads"`
	TimeMs   float64          `json:"time_ms"`
}

// AuthResponse contains authentication result.
type AuthResponse struct {
	Authenticated bool   `json:"authenticated"`
	Subject       string `json:"subject"`
	ExpiresIn     int    `json:"expires_in,omitempty"`
}

// EncodeResponse serializes a Response to JSON with a newline.
func EncodeResponse(resp Response) ([]byte, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// DecodeRequest parses a request line. Lines that do not start with '{'
// are taken as SQL text.
func DecodeRequest(data []byte) (Request, error) {
	line := strings.TrimSpace(string(data))
	if !strings.HasPrefix(line, "{") {
		return Request{Query: line}, nil
	}

	var req Request
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		return Request{}, err
	}
	return req, nil
}

// errorResponse maps an error to a failed Response, keeping the kind and
// statement position of a *router.QueryError.
func errorResponse(err error) Response {
	resp := Response{Success: false, Type: "query", Error: err.Error()}

	var queryErr *router.QueryError
	if errors.As(err, &queryErr) {
		resp.Kind = string(queryErr.Kind)
		resp.Position = queryErr.Position
	}
	return resp
}
