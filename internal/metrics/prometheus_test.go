package metrics

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMetricsCollector_Singleton(t *testing.T) {
	a := GetMetricsCollector("securecall_test", "app")
	b := GetMetricsCollector("securecall_test", "app")
	assert.Same(t, a, b)
}

func TestMetricsCollector_Counters(t *testing.T) {
	m := GetMetricsCollector("securecall_test", "app")

	before := testutil.ToFloat64(m.VerdictCounter.WithLabelValues("app", "secure", "rejected", "InvalidApiKey"))
	m.ObserveVerdict("secure", "rejected", "InvalidApiKey")
	after := testutil.ToFloat64(m.VerdictCounter.WithLabelValues("app", "secure", "rejected", "InvalidApiKey"))
	assert.Equal(t, before+1, after)

	m.SetStoredEntries(7)
	assert.Equal(t, float64(7), testutil.ToFloat64(m.StoredEntries))

	m.LogError("log_append", "persistence_failure")
	assert.GreaterOrEqual(t, testutil.ToFloat64(m.ErrorCounter.WithLabelValues("app", "log_append", "persistence_failure")), float64(1))

	m.ObserveAppend(time.Millisecond, errors.New("boom"))
	m.ObserveAppend(time.Millisecond, nil)
}

func TestMetricsCollector_ObserveRequestIsBatched(t *testing.T) {
	m := GetMetricsCollector("securecall_test", "app")
	m.ObserveRequest("GET", "/health", "200", 5*time.Millisecond, 14)

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(m.RequestCounter.WithLabelValues("app", "GET", "/health", "200")) >= 1
	}, 2*time.Second, 20*time.Millisecond)
}

func TestMetricsCollector_JSON(t *testing.T) {
	m := GetMetricsCollector("securecall_test", "app")
	m.SetStoredEntries(3)

	data, err := m.GetMetricsJSON()
	require.NoError(t, err)

	var resp MetricsResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.Equal(t, "app", resp.AppName)
	assert.Equal(t, float64(3), resp.Metrics["log_entries"])
	assert.Contains(t, resp.Metrics, "verdicts_total")
}

func TestMetricsCollector_CloseFlushesAndStops(t *testing.T) {
	m := NewMetricsCollector("securecall_close_test", "app")
	m.ObserveRequest("POST", "/api/secure", "200", time.Millisecond, 42)
	m.Close()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.RequestCounter.WithLabelValues("app", "POST", "/api/secure", "200")))

	done := make(chan struct{})
	go func() {
		for i := 0; i < 500; i++ {
			m.ObserveRequest("GET", "/health", "200", time.Millisecond, 1)
		}
		m.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ObserveRequest blocked after Close")
	}
}
