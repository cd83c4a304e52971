package utils

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *MetricsCollector) string {
	t.Helper()
	server := httptest.NewServer(m.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetricsCollectorExposesCounters(t *testing.T) {
	m := NewMetricsCollector(false)
	m.ObserveScan("COMPLETE")
	m.ObserveProbe("network_ports", "success", 120*time.Millisecond)
	m.ObserveFinding("High")
	m.ObserveScore(73)

	body := scrape(t, m)
	assert.Contains(t, body, `riskprobe_scans_total{status="COMPLETE"} 1`)
	assert.Contains(t, body, `riskprobe_probe_runs_total{outcome="success",probe="network_ports"} 1`)
	assert.Contains(t, body, `riskprobe_findings_total{severity="High"} 1`)
	assert.Contains(t, body, "riskprobe_overall_score")
	assert.NotContains(t, body, "go_goroutines")
}

func TestMetricsCollectorRuntimeCollectors(t *testing.T) {
	body := scrape(t, NewMetricsCollector(true))
	assert.Contains(t, body, "go_goroutines")
}

func TestMetricsCollectorsDoNotClash(t *testing.T) {
	a := NewMetricsCollector(false)
	b := NewMetricsCollector(false)
	a.ObserveScan("FAILED")

	assert.Contains(t, scrape(t, a), `riskprobe_scans_total{status="FAILED"} 1`)
	assert.NotContains(t, scrape(t, b), `status="FAILED"`)
}
