package network

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bl4ck0w1/riskprobe/pkg/models"
)

// listen opens an ephemeral TCP listener on loopback and returns its port.
func listen(t *testing.T) (net.Listener, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	return ln, ln.Addr().(*net.TCPAddr).Port
}

func TestPortProbeDetectsOpenPort(t *testing.T) {
	_, openPort := listen(t)
	closedLn, closedPort := listen(t)
	closedLn.Close()

	cfg := models.NetworkConfig{
		ConnectTimeout: time.Second,
		Concurrency:    4,
		Ports: []models.PortRule{
			{Port: openPort, Service: "TestService", Tier: models.SeverityHigh, Warning: "test listener"},
			{Port: closedPort, Service: "ClosedService", Tier: models.SeverityCritical},
		},
	}
	probe := NewPortProbe(cfg, nil)

	req := &models.ScanRequest{Target: "127.0.0.1"}
	report, err := probe.Run(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, report.Ports)

	ports := report.Ports
	assert.Equal(t, "127.0.0.1", ports.Target)
	assert.Equal(t, "127.0.0.1", ports.ResolvedIP)
	assert.Equal(t, 2, ports.Scanned)
	require.Len(t, ports.OpenPorts, 1)
	assert.Equal(t, openPort, ports.OpenPorts[0].Port)
	assert.Equal(t, "TestService", ports.OpenPorts[0].Service)
	assert.Equal(t, models.SeverityHigh, ports.OpenPorts[0].Tier)
	assert.Equal(t, "test listener", ports.OpenPorts[0].Warning)
}

func TestPortProbeIsRepeatable(t *testing.T) {
	_, port := listen(t)

	cfg := models.NetworkConfig{
		ConnectTimeout: time.Second,
		Concurrency:    2,
		Ports:          []models.PortRule{{Port: port, Service: "SSH", Tier: models.SeverityLow}},
	}
	probe := NewPortProbe(cfg, nil)
	req := &models.ScanRequest{Target: "127.0.0.1"}

	first, err := probe.Run(context.Background(), req)
	require.NoError(t, err)
	second, err := probe.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.Ports.OpenPorts, second.Ports.OpenPorts)
}

func TestPortProbeReportsSortedPorts(t *testing.T) {
	_, a := listen(t)
	_, b := listen(t)

	cfg := models.NetworkConfig{
		ConnectTimeout: time.Second,
		Concurrency:    4,
		Ports: []models.PortRule{
			{Port: max(a, b), Service: "High", Tier: models.SeverityLow},
			{Port: min(a, b), Service: "Low", Tier: models.SeverityLow},
		},
	}
	probe := NewPortProbe(cfg, nil)
	report, err := probe.Run(context.Background(), &models.ScanRequest{Target: "127.0.0.1"})
	require.NoError(t, err)
	require.Len(t, report.Ports.OpenPorts, 2)
	assert.Less(t, report.Ports.OpenPorts[0].Port, report.Ports.OpenPorts[1].Port)
}

func TestPortProbeUnresolvableTarget(t *testing.T) {
	probe := NewPortProbe(models.NetworkConfig{
		ConnectTimeout: time.Second,
		Concurrency:    2,
		Ports:          models.DefaultPortRules(),
	}, nil)

	report, err := probe.Run(context.Background(), &models.ScanRequest{
		Target: "this-domain-does-not-exist.invalid",
	})
	require.Error(t, err)
	assert.Nil(t, report)

	var probeErr *models.ProbeError
	require.ErrorAs(t, err, &probeErr)
	assert.Equal(t, models.ErrKindDNS, probeErr.Kind)
	assert.Equal(t, models.ProbeNetworkPorts, probeErr.Probe)
}

func TestDescribeGateway(t *testing.T) {
	assert.Equal(t, "private gateway 192.168.1.1", describeGateway("192.168.1.1"))
	assert.Equal(t, "public gateway 203.0.113.9", describeGateway("203.0.113.9"))
	assert.Empty(t, describeGateway("127.0.0.1"))
	assert.Empty(t, describeGateway("not-an-ip"))
	assert.Empty(t, describeGateway(""))
}
