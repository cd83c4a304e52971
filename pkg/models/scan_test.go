package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidTarget(t *testing.T) {
	valid := []string{
		"example.com",
		"sub.example.co.uk",
		"xn--bcher-kva.example",
		"192.168.1.1",
		"2001:db8::1",
	}
	for _, target := range valid {
		assert.True(t, ValidTarget(target), "expected %q to be valid", target)
	}

	invalid := []string{
		"",
		"no spaces allowed.com",
		"-leading.example.com",
		"example",
		"exa mple.com",
	}
	for _, target := range invalid {
		assert.False(t, ValidTarget(target), "expected %q to be invalid", target)
	}
}

func TestNormalizeTarget(t *testing.T) {
	cases := map[string]string{
		"Example.COM":          "example.com",
		"https://example.com/": "example.com",
		"http://example.com":   "example.com",
		"  example.com  ":      "example.com",
		"10.0.0.1":             "10.0.0.1",
	}
	for input, want := range cases {
		got, err := NormalizeTarget(input)
		require.NoError(t, err, "input %q", input)
		assert.Equal(t, want, got)
	}

	_, err := NormalizeTarget("!!!")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidTarget)
}

func TestScanRequestValidate(t *testing.T) {
	req := &ScanRequest{Target: "Example.com", EnabledProbes: []ProbeName{ProbeTLS}}
	require.NoError(t, req.Validate())
	assert.Equal(t, "example.com", req.Target)

	req = &ScanRequest{Target: "example.com", EnabledProbes: []ProbeName{"port_knock"}}
	err := req.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidTarget)

	req = &ScanRequest{Target: "not a target"}
	assert.ErrorIs(t, req.Validate(), ErrInvalidTarget)
}

func TestProbeEnabled(t *testing.T) {
	req := &ScanRequest{Target: "example.com"}
	for _, probe := range AllProbes {
		assert.True(t, req.ProbeEnabled(probe), "empty list enables everything")
	}

	req.EnabledProbes = []ProbeName{ProbeNetworkPorts, ProbeTLS}
	assert.True(t, req.ProbeEnabled(ProbeNetworkPorts))
	assert.False(t, req.ProbeEnabled(ProbeEmailAuth))
}

func TestProbeErrorImplementsError(t *testing.T) {
	err := NewProbeError(ProbeTLS, ErrKindTLSHandshake, assert.AnError)
	assert.Contains(t, err.Error(), "tls")
	assert.Contains(t, err.Error(), string(ErrKindTLSHandshake))
}
