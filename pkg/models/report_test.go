package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProbeReportHasData(t *testing.T) {
	var nilReport *ProbeReport
	assert.False(t, nilReport.HasData())
	assert.False(t, (&ProbeReport{Probe: ProbeTLS}).HasData())

	// A handshake that never completed only documents a gap.
	assert.False(t, (&ProbeReport{
		Probe: ProbeTLS,
		TLS:   &TLSReport{Port: 443, Reachable: false},
	}).HasData())
	assert.True(t, (&ProbeReport{
		Probe: ProbeTLS,
		TLS:   &TLSReport{Port: 443, Reachable: true},
	}).HasData())

	// An empty email report is still an observation: the records are absent.
	assert.True(t, (&ProbeReport{
		Probe: ProbeEmailAuth,
		Email: &EmailAuthReport{Domain: "example.com"},
	}).HasData())
	assert.True(t, (&ProbeReport{
		Probe: ProbeNetworkPorts,
		Ports: &PortScanReport{Target: "example.com"},
	}).HasData())
}
