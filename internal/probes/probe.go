// Package probes defines the contract every scan probe implements.
package probes

import (
	"context"
	"time"

	"github.com/bl4ck0w1/riskprobe/pkg/models"
)

// TimeoutClass distinguishes cheap probes from the ones that crawl.
type TimeoutClass int

const (
	// TimeoutFast covers cheap probes (DNS lookups, user-agent parsing).
	TimeoutFast TimeoutClass = iota
	// TimeoutHeavy covers probes that dial out and may stall (port sweep,
	// TLS handshake, web crawl).
	TimeoutHeavy
)

// Probe runs one class of checks against a target and returns a typed
// report. A probe may return both a report and an error when it gathered
// usable data before failing; the orchestrator records the error and still
// normalizes the report.
type Probe interface {
	Name() models.ProbeName
	Class() TimeoutClass
	Run(ctx context.Context, req *models.ScanRequest) (*models.ProbeReport, error)
}

// TimeoutFor picks the configured deadline for a probe's class.
func TimeoutFor(p Probe, cfg models.OrchestratorConfig) time.Duration {
	if p.Class() == TimeoutHeavy {
		return cfg.HeavyProbeTimeout
	}
	return cfg.FastProbeTimeout
}
