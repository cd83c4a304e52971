// Package orchestration coordinates a scan: fan out the probes, collect
// typed reports and probe errors, and hand everything to normalization,
// scoring and result assembly.
package orchestration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/bl4ck0w1/riskprobe/internal/normalize"
	"github.com/bl4ck0w1/riskprobe/internal/probes"
	"github.com/bl4ck0w1/riskprobe/internal/report"
	"github.com/bl4ck0w1/riskprobe/pkg/models"
	"github.com/bl4ck0w1/riskprobe/pkg/utils"
)

type Orchestrator struct {
	probes     []probes.Probe
	config     models.OrchestratorConfig
	normalizer *normalize.Normalizer
	builder    *report.Builder
	metrics    *utils.MetricsCollector
	logger     *logrus.Logger

	mu     sync.Mutex
	active map[string]models.ScanStatus
}

func NewOrchestrator(
	probeSet []probes.Probe,
	config models.OrchestratorConfig,
	normalizer *normalize.Normalizer,
	builder *report.Builder,
	metrics *utils.MetricsCollector,
	logger *logrus.Logger,
) *Orchestrator {
	if logger == nil {
		logger = logrus.New()
	}
	if config.MaxConcurrentProbes <= 0 {
		config.MaxConcurrentProbes = 6
	}
	if config.ScanTimeout <= 0 {
		config.ScanTimeout = 90 * time.Second
	}
	if config.FastProbeTimeout <= 0 {
		config.FastProbeTimeout = 10 * time.Second
	}
	if config.HeavyProbeTimeout <= 0 {
		config.HeavyProbeTimeout = 20 * time.Second
	}
	return &Orchestrator{
		probes:     probeSet,
		config:     config,
		normalizer: normalizer,
		builder:    builder,
		metrics:    metrics,
		logger:     logger,
	}
}

type probeOutcome struct {
	report *models.ProbeReport
	err    *models.ProbeError
}

// Execute runs one scan end to end. An invalid target fails fast before
// any probe is dispatched. Otherwise every enabled probe runs to its own
// conclusion; one probe's failure never stops the others.
func (o *Orchestrator) Execute(ctx context.Context, req *models.ScanRequest) (*models.ScanResult, error) {
	started := time.Now()
	if req.ScanID == "" {
		req.ScanID = utils.NewScanID()
	}
	if req.RequestedAt.IsZero() {
		req.RequestedAt = started
	}
	o.setStatus(req.ScanID, models.StatusPending)
	defer o.clearStatus(req.ScanID)

	log := o.logger.WithFields(logrus.Fields{"scan_id": req.ScanID, "target": req.Target})

	if err := req.Validate(); err != nil {
		log.WithError(err).Error("scan rejected")
		o.observeScan(models.StatusFailed)
		result := o.builder.Failed(req, []models.ProbeError{{
			Kind:    models.ErrKindInvalidTarget,
			Message: err.Error(),
		}}, started)
		return result, err
	}

	deadline := o.config.ScanTimeout
	if req.Deadline > 0 && req.Deadline < deadline {
		deadline = req.Deadline
	}
	scanCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	enabled := make([]probes.Probe, 0, len(o.probes))
	for _, p := range o.probes {
		if req.ProbeEnabled(p.Name()) {
			enabled = append(enabled, p)
		}
	}

	o.setStatus(req.ScanID, models.StatusRunning)
	log.WithField("probes", len(enabled)).Info("scan started")

	outcomes := make(chan probeOutcome, len(enabled))
	g, gctx := errgroup.WithContext(scanCtx)
	g.SetLimit(o.config.MaxConcurrentProbes)
	for _, p := range enabled {
		p := p
		g.Go(func() error {
			outcomes <- o.runProbe(gctx, p, req)
			return nil
		})
	}
	g.Wait()
	close(outcomes)

	var (
		reports     []*models.ProbeReport
		probeErrors []models.ProbeError
	)
	for outcome := range outcomes {
		if outcome.report != nil {
			reports = append(reports, outcome.report)
		}
		if outcome.err != nil {
			probeErrors = append(probeErrors, *outcome.err)
		}
	}

	status := deriveStatus(reports, probeErrors)
	o.setStatus(req.ScanID, status)
	o.observeScan(status)

	if status == models.StatusFailed {
		log.WithField("errors", len(probeErrors)).Error("scan produced no usable data")
		return o.builder.Failed(req, probeErrors, started), nil
	}

	findings := o.normalizer.Normalize(reports)
	if o.metrics != nil {
		for _, f := range findings {
			o.metrics.ObserveFinding(string(f.Severity))
		}
	}

	result := o.builder.Build(req, status, reports, findings, probeErrors, started)
	if o.metrics != nil && result.RiskAssessment != nil {
		o.metrics.ObserveScore(result.RiskAssessment.OverallScore)
	}

	log.WithFields(logrus.Fields{
		"status":   status,
		"findings": len(findings),
		"errors":   len(probeErrors),
		"elapsed":  time.Since(started),
	}).Info("scan finished")
	return result, nil
}

func (o *Orchestrator) runProbe(ctx context.Context, p probes.Probe, req *models.ScanRequest) (outcome probeOutcome) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.WithFields(logrus.Fields{"probe": p.Name(), "panic": r}).Error("probe panicked")
			outcome = probeOutcome{err: &models.ProbeError{
				Probe:   p.Name(),
				Kind:    models.ErrKindProbeFailure,
				Message: fmt.Sprintf("panic: %v", r),
			}}
		}
	}()

	probeCtx, cancel := context.WithTimeout(ctx, probes.TimeoutFor(p, o.config))
	defer cancel()

	start := time.Now()
	probeReport, err := p.Run(probeCtx, req)
	elapsed := time.Since(start)

	outcome.report = probeReport
	if err != nil {
		outcome.err = classifyProbeError(p.Name(), err, probeCtx)
	}

	if o.metrics != nil {
		label := "ok"
		if outcome.err != nil {
			label = string(outcome.err.Kind)
		}
		o.metrics.ObserveProbe(string(p.Name()), label, elapsed)
	}
	return outcome
}

func classifyProbeError(name models.ProbeName, err error, probeCtx context.Context) *models.ProbeError {
	var probeErr *models.ProbeError
	if errors.As(err, &probeErr) {
		return probeErr
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(probeCtx.Err(), context.DeadlineExceeded) {
		return models.NewProbeError(name, models.ErrKindTimeout, err)
	}
	return models.NewProbeError(name, models.ErrKindProbeFailure, err)
}

// deriveStatus maps probe outcomes to the scan's terminal state. Any
// report with observed data keeps the scan out of FAILED; errors alongside
// such reports mean PARTIAL. Gap-only reports (a TLS handshake that never
// completed) don't count, or an unreachable target could never fail.
func deriveStatus(reports []*models.ProbeReport, probeErrors []models.ProbeError) models.ScanStatus {
	usable := 0
	for _, report := range reports {
		if report.HasData() {
			usable++
		}
	}
	switch {
	case usable == 0:
		return models.StatusFailed
	case len(probeErrors) > 0:
		return models.StatusPartial
	default:
		return models.StatusComplete
	}
}

func (o *Orchestrator) setStatus(scanID string, status models.ScanStatus) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active == nil {
		o.active = make(map[string]models.ScanStatus)
	}
	o.active[scanID] = status
}

func (o *Orchestrator) clearStatus(scanID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.active, scanID)
}

func (o *Orchestrator) observeScan(status models.ScanStatus) {
	if o.metrics != nil {
		o.metrics.ObserveScan(string(status))
	}
}

// GetStats reports in-flight scan counts by state.
func (o *Orchestrator) GetStats() map[string]interface{} {
	o.mu.Lock()
	defer o.mu.Unlock()

	counts := make(map[models.ScanStatus]int)
	for _, status := range o.active {
		counts[status]++
	}
	return map[string]interface{}{
		"active_scans": len(o.active),
		"pending":      counts[models.StatusPending],
		"running":      counts[models.StatusRunning],
		"probes":       len(o.probes),
	}
}
