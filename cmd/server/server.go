package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"

	"github.com/nickyhof/RouteDB"
	"github.com/nickyhof/RouteDB/telemetry"
)

const defaultMaxConns = 64

// Server is a TCP SQL server that exposes a RouteDB instance. Each line a
// client sends is one batch; each batch gets one JSON response line.
type Server struct {
	instance *RouteDB.Instance
	auth     *AuthConfig
	logger   zerolog.Logger
	metrics  *telemetry.Metrics
	maxConns int

	listener net.Listener
	pool     *ants.Pool
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	connMu      sync.Mutex
	connections map[net.Conn]struct{}
}

type Option func(*Server)

// WithAuth requires clients to authenticate with AUTH JWT before querying.
func WithAuth(config *AuthConfig) Option {
	return func(s *Server) { s.auth = config }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) { s.logger = logger.With().Str("component", "server").Logger() }
}

func WithMetrics(metrics *telemetry.Metrics) Option {
	return func(s *Server) { s.metrics = metrics }
}

// WithMaxConns bounds the number of connections served at once. Clients
// beyond the bound get a busy response and are disconnected.
func WithMaxConns(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxConns = n
		}
	}
}

// NewServer creates a new SQL server for the given instance.
func NewServer(instance *RouteDB.Instance, opts ...Option) *Server {
	s := &Server{
		instance:    instance,
		logger:      zerolog.Nop(),
		maxConns:    defaultMaxConns,
		connections: make(map[net.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

// Start begins listening for connections on the specified address.
func (s *Server) Start(addr string) error {
	pool, err := ants.NewPool(s.maxConns, ants.WithNonblocking(true), ants.WithPanicHandler(func(v any) {
		s.logger.Error().Interface("panic", v).Msg("connection handler panic")
	}))
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		pool.Release()
		return fmt.Errorf("failed to start server: %w", err)
	}
	s.listener = listener
	s.pool = pool

	s.logger.Info().Str("addr", listener.Addr().String()).Int("max_conns", s.maxConns).Msg("SQL server listening")

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Stop closes the listener and every open connection, then waits for the
// handlers to return.
func (s *Server) Stop() error {
	s.cancel()
	if s.listener != nil {
		s.listener.Close()
	}

	s.connMu.Lock()
	for conn := range s.connections {
		conn.Close()
	}
	s.connMu.Unlock()

	s.wg.Wait()
	if s.pool != nil {
		_ = s.pool.ReleaseTimeout(3 * time.Second)
	}
	s.logger.Info().Msg("SQL server stopped")
	return nil
}

// Addr returns the server's listening address.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			s.logger.Error().Err(err).Msg("accept error")
			continue
		}

		s.track(conn)
		s.wg.Add(1)
		err = s.pool.Submit(func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		})
		if err != nil {
			s.wg.Done()
			s.reject(conn, err)
		}
	}
}

func (s *Server) track(conn net.Conn) {
	s.connMu.Lock()
	s.connections[conn] = struct{}{}
	s.connMu.Unlock()
}

func (s *Server) untrack(conn net.Conn) {
	s.connMu.Lock()
	delete(s.connections, conn)
	s.connMu.Unlock()
	conn.Close()
}

// reject answers a connection the pool had no room for.
func (s *Server) reject(conn net.Conn, cause error) {
	defer s.untrack(conn)

	if errors.Is(cause, ants.ErrPoolOverload) {
		cause = errors.New("server busy: too many connections")
	}
	s.logger.Warn().Str("remote", conn.RemoteAddr().String()).Err(cause).Msg("connection rejected")
	if data, err := EncodeResponse(Response{Success: false, Error: cause.Error()}); err == nil {
		_, _ = conn.Write(data)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.untrack(conn)

	logger := s.logger.With().
		Str("conn", uuid.NewString()).
		Str("remote", conn.RemoteAddr().String()).
		Logger()
	logger.Debug().Msg("client connected")

	s.metrics.ConnectionOpened()
	defer s.metrics.ConnectionClosed()

	state := &ConnectionState{}
	reader := bufio.NewReader(conn)

	for {
		// Read until newline (one batch per line)
		line, err := reader.ReadString('\n')
		if err != nil {
			if err != io.EOF && s.ctx.Err() == nil {
				logger.Debug().Err(err).Msg("read error")
			}
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		lower := strings.ToLower(line)
		if lower == "quit" || lower == "exit" {
			logger.Debug().Msg("client disconnected")
			return
		}

		var response Response
		switch {
		case isAuthCommand(line):
			response = s.handleAuth(line, state)
			if response.Success {
				logger.Info().Str("subject", state.Subject()).Msg("client authenticated")
			}
		case s.auth != nil && !state.IsAuthenticated():
			response = Response{Success: false, Error: "authentication required: send AUTH JWT <token>"}
		default:
			response = s.handleRequest(line)
		}

		data, err := EncodeResponse(response)
		if err != nil {
			logger.Error().Err(err).Msg("failed to encode response")
			continue
		}
		if _, err := conn.Write(data); err != nil {
			logger.Debug().Err(err).Msg("write error")
			return
		}
	}
}

func (s *Server) handleRequest(line string) Response {
	req, err := DecodeRequest([]byte(line))
	if err != nil {
		return Response{Success: false, Error: fmt.Sprintf("invalid request: %v", err)}
	}
	return s.executeQuery(s.ctx, req.Query)
}

// executeQuery runs one batch on the instance. The instance serializes
// batches itself.
func (s *Server) executeQuery(ctx context.Context, query string) Response {
	start := time.Now()
	payloads, err := s.instance.Query(ctx, query)
	if err != nil {
		return errorResponse(err)
	}

	data, err := json.Marshal(QueryResponse{
		Payloads: payloads,
		TimeMs:   float64(time.Since(start).Microseconds()) / 1000,
	})
	if err != nil {
		return Response{Success: false, Type: "query", Error: fmt.Sprintf("failed to encode result: %v", err)}
	}
	return Response{Success: true, Type: "query", Result: data}
}
