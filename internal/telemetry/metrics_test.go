package telemetry

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResult(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "ok", Result(nil))
	assert.Equal(t, "error", Result(errors.New("x")))
}

func TestHandlerExposesQueueMetrics(t *testing.T) {
	t.Parallel()
	before := testutil.ToFloat64(QueueWakeups.WithLabelValues("test"))
	QueueWakeups.WithLabelValues("test").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(QueueWakeups.WithLabelValues("test")))

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "reve_queue_wakeups_total")
}
