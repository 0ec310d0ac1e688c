package telemetry

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerJSON(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	var buf bytes.Buffer
	logger, err := NewLogger(Options{Level: "warn", Format: "json", Writer: &buf})
	require.NoError(t, err)

	logger.Info().Msg("hidden")
	logger.Warn().Str("engine", "memory").Msg("shown")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["message"])
	assert.Equal(t, "memory", entry["engine"])
	assert.Contains(t, entry, "time")
}

func TestSetLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	var buf bytes.Buffer
	logger, err := NewLogger(Options{Level: "error", Format: "json", Writer: &buf})
	require.NoError(t, err)

	logger.Debug().Msg("before")
	assert.Zero(t, buf.Len())

	require.NoError(t, SetLevel("debug"))
	logger.Debug().Msg("after")
	assert.Contains(t, buf.String(), "after")
}

func TestNewLoggerRejectsUnknownSettings(t *testing.T) {
	_, err := NewLogger(Options{Level: "loud"})
	assert.Error(t, err)

	_, err = NewLogger(Options{Format: "xml"})
	assert.Error(t, err)
}

func TestMetrics(t *testing.T) {
	m := NewMetrics()

	m.RecordStatement("memory", "INSERT", 2*time.Millisecond)
	m.RecordStatement("memory", "INSERT", time.Millisecond)
	m.RecordBatch("")
	m.RecordBatch("engine_conflict")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.statements.WithLabelValues("memory", "INSERT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.batches.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errors.WithLabelValues("engine_conflict")))

	recorder := httptest.NewRecorder()
	m.Handler().ServeHTTP(recorder, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, recorder.Body.String(), "routedb_statements_total")
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordStatement("memory", "SELECT", time.Millisecond)
		m.RecordBatch("syntax")
		m.ConnectionOpened()
		m.ConnectionClosed()
	})
	assert.Nil(t, m.Registry())
}
