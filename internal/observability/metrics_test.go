package observability

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	m := NewMetrics()

	m.PollQuery("in_progress")
	m.PollQuery("in_progress")
	m.PollQuery("completed")
	m.ToolExecuted("getCatImage", "success", time.Now())
	m.TurnSettled("completed", time.Now().Add(-time.Second))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PollQueries.WithLabelValues("in_progress")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PollQueries.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ToolExecutions.WithLabelValues("getCatImage", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunOutcomes.WithLabelValues("completed")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.PollQuery("queued")
	m.ToolExecuted("x", "error", time.Now())
	m.TurnSettled("failed", time.Now())
	m.HTTPRequest("GET", "/health", "200")
	assert.Nil(t, m.Registry())
}

func TestMetricsHandlerExposes(t *testing.T) {
	m := NewMetrics()
	m.PollQuery("queued")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "catai_run_poll_queries_total")
}

func TestNewMetricsTwiceDoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetrics()
		NewMetrics()
	})
}
