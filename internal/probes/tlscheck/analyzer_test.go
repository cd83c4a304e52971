package tlscheck

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bl4ck0w1/riskprobe/internal/probes"
	"github.com/bl4ck0w1/riskprobe/pkg/models"
)

func TestIsWeakCipher(t *testing.T) {
	weak := []string{
		"TLS_RSA_WITH_RC4_128_SHA",
		"TLS_RSA_WITH_3DES_EDE_CBC_SHA",
		"TLS_RSA_WITH_NULL_SHA",
		"TLS_RSA_EXPORT_WITH_DES40_CBC_SHA",
	}
	for _, name := range weak {
		assert.True(t, isWeakCipher(name), name)
	}

	strong := []string{
		"TLS_AES_128_GCM_SHA256",
		"TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384",
		"TLS_CHACHA20_POLY1305_SHA256",
	}
	for _, name := range strong {
		assert.False(t, isWeakCipher(name), name)
	}
}

func TestExpiryStatus(t *testing.T) {
	window := 30 * 24 * time.Hour

	assert.Equal(t, "expired", ExpiryStatus(&models.TLSReport{Expired: true}, window))
	assert.Equal(t, "expiring in 10 days", ExpiryStatus(&models.TLSReport{DaysToExpiry: 10}, window))
	assert.Equal(t, "valid", ExpiryStatus(&models.TLSReport{DaysToExpiry: 120}, window))
}

func TestTLSProbeAgainstLocalServer(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	addr := server.Listener.Addr().(*net.TCPAddr)
	probe := NewTLSProbe(models.TLSConfig{Port: addr.Port}, nil)

	report, err := probe.Run(context.Background(), &models.ScanRequest{Target: "127.0.0.1"})
	require.NoError(t, err)
	require.NotNil(t, report.TLS)

	state := report.TLS
	assert.True(t, state.Reachable)
	assert.NotEmpty(t, state.Protocol)
	assert.NotEmpty(t, state.CipherSuite)
	assert.False(t, state.WeakProtocol, "modern Go servers negotiate TLS 1.2+")
	assert.False(t, state.Expired)

	// The throwaway server cert is self-issued and not rooted anywhere.
	assert.False(t, state.ChainValid)
	assert.NotEmpty(t, state.ChainError)
}

func TestTLSProbeUnreachablePort(t *testing.T) {
	probe := NewTLSProbe(models.TLSConfig{Port: 1, HandshakeTimeout: time.Second}, nil)

	report, err := probe.Run(context.Background(), &models.ScanRequest{Target: "127.0.0.1"})
	require.Error(t, err)

	var probeErr *models.ProbeError
	require.ErrorAs(t, err, &probeErr)
	assert.Equal(t, models.ErrKindTLSHandshake, probeErr.Kind)

	// The report still exists so the scan can surface the missing service.
	require.NotNil(t, report.TLS)
	assert.False(t, report.TLS.Reachable)
}

func TestTLSProbeUsesHeavyTimeoutClass(t *testing.T) {
	probe := NewTLSProbe(models.TLSConfig{}, nil)
	assert.Equal(t, probes.TimeoutHeavy, probe.Class())
}
