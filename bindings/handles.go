package main

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/nickyhof/RouteDB"
	"github.com/nickyhof/RouteDB/config"
	"github.com/nickyhof/RouteDB/router"
)

// Response mirrors the server protocol for consistency
type Response struct {
	Success  bool             `json:"success"`
	Error    string           `json:"error,omitempty"`
	Kind     string           `json:"kind,omitempty"`
	Position int              `json:"position,omitempty"`
	Payloads []router.Payload `json:"payloads,omitempty"`
}

var errInvalidHandle = errors.New("invalid handle")

// handles maps the integers given out to foreign callers to open instances.
type handles struct {
	mu        sync.Mutex
	instances map[int]*RouteDB.Instance
	next      int
}

var registry = newHandles()

func newHandles() *handles {
	return &handles{instances: make(map[int]*RouteDB.Instance), next: 1}
}

// open loads the config at path, or the default engine set when path is
// empty, and returns a new handle.
func (h *handles) open(path string) (int, error) {
	var cfg *config.Config
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return 0, err
		}
		cfg = loaded
	}

	instance, err := RouteDB.Open(context.Background(), cfg)
	if err != nil {
		return 0, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	handle := h.next
	h.next++
	h.instances[handle] = instance
	return handle, nil
}

func (h *handles) get(handle int) (*RouteDB.Instance, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	instance, ok := h.instances[handle]
	return instance, ok
}

func (h *handles) close(handle int) error {
	h.mu.Lock()
	instance, ok := h.instances[handle]
	delete(h.instances, handle)
	h.mu.Unlock()

	if !ok {
		return errInvalidHandle
	}
	return instance.Close()
}

// execute runs a batch and encodes the outcome as a JSON Response.
func (h *handles) execute(handle int, query string) []byte {
	instance, ok := h.get(handle)
	if !ok {
		return encode(errorResponse(errInvalidHandle))
	}

	payloads, err := instance.Query(context.Background(), query)
	if err != nil {
		return encode(errorResponse(err))
	}
	return encode(Response{Success: true, Payloads: payloads})
}

func (h *handles) setDefault(handle int, name string) []byte {
	instance, ok := h.get(handle)
	if !ok {
		return encode(errorResponse(errInvalidHandle))
	}
	if err := instance.SetDefaultEngine(name); err != nil {
		return encode(errorResponse(err))
	}
	return encode(Response{Success: true})
}

func errorResponse(err error) Response {
	resp := Response{Success: false, Error: err.Error()}
	var queryErr *router.QueryError
	if errors.As(err, &queryErr) {
		resp.Kind = string(queryErr.Kind)
		resp.Position = queryErr.Position
	}
	return resp
}

func encode(resp Response) []byte {
	data, err := json.Marshal(resp)
	if err != nil {
		data, _ = json.Marshal(Response{Success: false, Error: err.Error()})
	}
	return data
}
