package models

import (
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/idna"
)

// ProbeName identifies one of the built-in probes.
type ProbeName string

const (
	ProbeNetworkPorts    ProbeName = "network_ports"
	ProbeTLS             ProbeName = "tls"
	ProbeWebSecurity     ProbeName = "web_security"
	ProbeEmailAuth       ProbeName = "email_auth"
	ProbeClientEnv       ProbeName = "client_env"
	ProbeSystemHeuristic ProbeName = "system_heuristic"
)

// AllProbes lists every probe in dispatch order.
var AllProbes = []ProbeName{
	ProbeNetworkPorts,
	ProbeTLS,
	ProbeWebSecurity,
	ProbeEmailAuth,
	ProbeClientEnv,
	ProbeSystemHeuristic,
}

func (p ProbeName) Valid() bool {
	for _, known := range AllProbes {
		if p == known {
			return true
		}
	}
	return false
}

// ScanStatus tracks the lifecycle of a scan.
type ScanStatus string

const (
	StatusPending  ScanStatus = "PENDING"
	StatusRunning  ScanStatus = "RUNNING"
	StatusComplete ScanStatus = "COMPLETE"
	StatusPartial  ScanStatus = "PARTIAL"
	StatusFailed   ScanStatus = "FAILED"
)

// ErrInvalidTarget is returned when the requested target cannot be scanned
// at all. No probes are dispatched for an invalid target.
var ErrInvalidTarget = errors.New("invalid scan target")

// ErrorKind classifies probe failures for reporting.
type ErrorKind string

const (
	ErrKindTimeout       ErrorKind = "timeout"
	ErrKindDNS           ErrorKind = "dns_resolution_failure"
	ErrKindTLSHandshake  ErrorKind = "tls_handshake_failure"
	ErrKindHTTPRequest   ErrorKind = "http_request_failure"
	ErrKindProbeFailure  ErrorKind = "probe_failure"
	ErrKindInvalidTarget ErrorKind = "invalid_target"
)

// ProbeError records a failed or degraded probe. It also implements error so
// probes can return it directly.
type ProbeError struct {
	Probe   ProbeName `json:"probe" yaml:"probe"`
	Kind    ErrorKind `json:"kind" yaml:"kind"`
	Message string    `json:"message" yaml:"message"`
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Probe, e.Kind, e.Message)
}

// NewProbeError builds a ProbeError from any underlying error.
func NewProbeError(probe ProbeName, kind ErrorKind, err error) *ProbeError {
	msg := "unknown failure"
	if err != nil {
		msg = err.Error()
	}
	return &ProbeError{Probe: probe, Kind: kind, Message: msg}
}

// ClientMetadata carries browser-supplied context when a scan originates
// from the web client. All of it is untrusted input.
type ClientMetadata struct {
	UserAgent string `json:"user_agent" yaml:"user_agent"`
	ClientIP  string `json:"client_ip,omitempty" yaml:"client_ip,omitempty"`
	GatewayIP string `json:"gateway_ip,omitempty" yaml:"gateway_ip,omitempty"`
}

// ScanRequest describes one scan to execute.
type ScanRequest struct {
	ScanID        string          `json:"scan_id" yaml:"scan_id"`
	Target        string          `json:"target" yaml:"target"`
	EnabledProbes []ProbeName     `json:"enabled_probes,omitempty" yaml:"enabled_probes,omitempty"`
	Client        *ClientMetadata `json:"client,omitempty" yaml:"client,omitempty"`
	Deadline      time.Duration   `json:"deadline,omitempty" yaml:"deadline,omitempty"`
	RequestedAt   time.Time       `json:"requested_at" yaml:"requested_at"`
}

var domainPattern = regexp.MustCompile(`^([a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}$`)

// ValidTarget reports whether s is a hostname or IP address we can probe.
// Hostnames go through IDNA conversion first so unicode domains are accepted.
func ValidTarget(s string) bool {
	if s == "" || len(s) > 253 {
		return false
	}
	if net.ParseIP(s) != nil {
		return true
	}
	ascii, err := idna.Lookup.ToASCII(s)
	if err != nil {
		return false
	}
	return domainPattern.MatchString(ascii)
}

// NormalizeTarget lowercases and IDNA-encodes a hostname target. IP targets
// pass through unchanged.
func NormalizeTarget(s string) (string, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimSuffix(s, "/")
	if net.ParseIP(s) != nil {
		return s, nil
	}
	ascii, err := idna.Lookup.ToASCII(s)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidTarget, s, err)
	}
	if !domainPattern.MatchString(ascii) {
		return "", fmt.Errorf("%w: %s", ErrInvalidTarget, s)
	}
	return ascii, nil
}

// Validate normalizes the target in place and checks the probe list. A
// failure here is fatal for the whole scan.
func (r *ScanRequest) Validate() error {
	target, err := NormalizeTarget(r.Target)
	if err != nil {
		return err
	}
	r.Target = target
	for _, p := range r.EnabledProbes {
		if !p.Valid() {
			return fmt.Errorf("%w: unknown probe %q", ErrInvalidTarget, p)
		}
	}
	return nil
}

// ProbeEnabled reports whether the request asks for the given probe. An
// empty list means every probe runs.
func (r *ScanRequest) ProbeEnabled(name ProbeName) bool {
	if len(r.EnabledProbes) == 0 {
		return true
	}
	for _, p := range r.EnabledProbes {
		if p == name {
			return true
		}
	}
	return false
}
