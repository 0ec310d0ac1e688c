package main

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/nickyhof/RouteDB/router"
)

const subjectKey = "subject"

// Limiters of clients idle for limiterIdleTTL are dropped on every sweep.
const (
	limiterSweepInterval = time.Minute
	limiterIdleTTL       = 10 * time.Minute
)

// HTTPConfig configures the HTTP API.
type HTTPConfig struct {
	// RateLimit is the sustained requests per second allowed per client
	// IP. Zero disables limiting.
	RateLimit float64
	RateBurst int
}

// NewHTTPHandler builds the HTTP API:
//
//	POST /query    run a batch, body is SQL text or {"query": "..."}
//	GET  /healthz  liveness
//	GET  /metrics  Prometheus metrics
func (s *Server) NewHTTPHandler(config HTTPConfig) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(s.logger))

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "engines": s.instance.Router().Engines()})
	})
	engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := engine.Group("")
	if config.RateLimit > 0 {
		limiter := newRateLimiter(rate.Limit(config.RateLimit), config.RateBurst)
		go limiter.run(s.ctx, limiterSweepInterval, limiterIdleTTL)
		api.Use(rateLimitMiddleware(limiter))
	}
	if s.auth != nil {
		api.Use(bearerAuthMiddleware(s.auth))
	}
	api.POST("/query", s.handleHTTPQuery)

	return engine
}

// ServeHTTP starts the HTTP API on addr and shuts it down when the
// server stops. It returns the bound address.
func (s *Server) ServeHTTP(addr string, config HTTPConfig) (string, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", err
	}

	httpServer := &http.Server{
		Handler:           s.NewHTTPHandler(config),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("HTTP server failed")
		}
	}()
	go func() {
		defer s.wg.Done()
		<-s.ctx.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(ctx)
	}()

	s.logger.Info().Str("addr", listener.Addr().String()).Msg("HTTP API listening")
	return listener.Addr().String(), nil
}

func (s *Server) handleHTTPQuery(c *gin.Context) {
	var req Request
	if strings.HasPrefix(c.ContentType(), "application/json") {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request: " + err.Error()})
			return
		}
	} else {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: "failed to read body"})
			return
		}
		req.Query = string(body)
	}

	response := s.executeQuery(c.Request.Context(), req.Query)
	if !response.Success {
		c.JSON(statusFor(router.ErrorKind(response.Kind)), response)
		return
	}
	c.JSON(http.StatusOK, response)
}

// statusFor maps a batch failure to an HTTP status.
func statusFor(kind router.ErrorKind) int {
	switch kind {
	case router.KindSyntax, router.KindUnknownEngine:
		return http.StatusBadRequest
	case router.KindEngineConflict:
		return http.StatusConflict
	case router.KindEngineNotLoaded:
		return http.StatusServiceUnavailable
	case router.KindMalformedResult:
		return http.StatusBadGateway
	case router.KindExecution:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func bearerAuthMiddleware(config *AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		const prefix = "Bearer "
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, prefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Success: false, Error: "authentication required"})
			return
		}

		result := validateJWT(config, strings.TrimSpace(strings.TrimPrefix(header, prefix)))
		if result.err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Success: false, Error: result.err.Error()})
			return
		}
		c.Set(subjectKey, result.subject)
		c.Next()
	}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter keeps one token bucket per client IP.
type rateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
	rate     rate.Limit
	burst    int
	now      func() time.Time
}

func newRateLimiter(limit rate.Limit, burst int) *rateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &rateLimiter{
		limiters: make(map[string]*clientLimiter),
		rate:     limit,
		burst:    burst,
		now:      time.Now,
	}
}

func (rl *rateLimiter) get(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	client, ok := rl.limiters[ip]
	if !ok {
		client = &clientLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[ip] = client
	}
	client.lastSeen = rl.now()
	return client.limiter
}

// sweep drops the limiters of clients not seen within ttl and returns
// how many are left.
func (rl *rateLimiter) sweep(ttl time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-ttl)
	for ip, client := range rl.limiters {
		if client.lastSeen.Before(cutoff) {
			delete(rl.limiters, ip)
		}
	}
	return len(rl.limiters)
}

// run sweeps every interval until ctx is done.
func (rl *rateLimiter) run(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.sweep(ttl)
		}
	}
}

func rateLimitMiddleware(limiter *rateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, Response{Success: false, Error: "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		event := logger.Debug()
		if c.Writer.Status() >= http.StatusInternalServerError {
			event = logger.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Str("client", c.ClientIP()).
			Msg("http request")
	}
}
