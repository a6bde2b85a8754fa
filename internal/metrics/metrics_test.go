package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordTick(true, 3, 120*time.Millisecond)
	c.RecordTick(false, 0, time.Millisecond)
	c.RecordNotification(ResultSent)
	c.RecordNotification(ResultSent)
	c.RecordNotification(ResultFailed)
	c.RecordBadge("historian")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.ticks.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ticks.WithLabelValues("error")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.dueUsers), "gauge holds the last tick")
	assert.Equal(t, 2.0, testutil.ToFloat64(c.notifications.WithLabelValues(ResultSent)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.notifications.WithLabelValues(ResultFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.badges.WithLabelValues("historian")))
}

func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordNotification(ResultSkipped)

	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	resp := w.Result()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `kdrop_notifications_total{result="skipped"} 1`)
}

func TestNop_SatisfiesRecorder(t *testing.T) {
	var r Recorder = Nop{}
	r.RecordTick(true, 1, time.Second)
	r.RecordNotification(ResultSent)
	r.RecordBadge("collector")
}
