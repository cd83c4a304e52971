// Package report assembles the final scan result from probe reports,
// normalized findings and the risk assessment.
package report

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bl4ck0w1/riskprobe/internal/risk"
	"github.com/bl4ck0w1/riskprobe/pkg/models"
)

type Builder struct {
	aggregator *risk.Aggregator
	logger     *logrus.Logger
}

func NewBuilder(aggregator *risk.Aggregator, logger *logrus.Logger) *Builder {
	if logger == nil {
		logger = logrus.New()
	}
	return &Builder{aggregator: aggregator, logger: logger}
}

// Build produces the result document. Findings are sorted so identical
// inputs serialize identically. A failed scan keeps its findings slice
// empty and its risk assessment nil rather than zeroed.
func (b *Builder) Build(
	req *models.ScanRequest,
	status models.ScanStatus,
	reports []*models.ProbeReport,
	findings []models.Finding,
	probeErrors []models.ProbeError,
	started time.Time,
) *models.ScanResult {
	result := &models.ScanResult{
		ScanID:      req.ScanID,
		Target:      req.Target,
		Timestamp:   started.UTC(),
		Duration:    time.Since(started),
		Status:      status,
		Findings:    []models.Finding{},
		ProbeErrors: probeErrors,
	}

	if status == models.StatusFailed {
		return result
	}

	models.SortFindings(findings)
	result.Findings = findings

	for _, probeReport := range reports {
		b.fillSection(result, probeReport)
	}

	assessment := b.aggregator.Assess(findings)
	result.RiskAssessment = assessment
	result.ServiceCategories = b.categoryReports(findings, assessment)
	return result
}

// Failed is the terminal result for a scan that produced no usable data.
func (b *Builder) Failed(req *models.ScanRequest, probeErrors []models.ProbeError, started time.Time) *models.ScanResult {
	return b.Build(req, models.StatusFailed, nil, nil, probeErrors, started)
}

func (b *Builder) fillSection(result *models.ScanResult, probeReport *models.ProbeReport) {
	if probeReport == nil {
		return
	}
	switch {
	case probeReport.Ports != nil:
		ports := probeReport.Ports
		result.Network = &models.NetworkSection{
			OpenPorts: models.OpenPortsSummary{
				Count:    len(ports.OpenPorts),
				List:     ports.OpenPorts,
				Severity: ports.Severity(),
			},
			ResolvedIP:  ports.ResolvedIP,
			ReverseDNS:  ports.ReverseDNS,
			GatewayInfo: ports.GatewayInfo,
		}

	case probeReport.TLS != nil:
		if result.Web == nil {
			result.Web = &models.WebSection{SensitiveContent: []models.SensitiveMatch{}}
		}
		result.Web.TLS = probeReport.TLS

	case probeReport.Web != nil:
		web := probeReport.Web
		if result.Web == nil {
			result.Web = &models.WebSection{}
		}
		result.Web.Server = web.Server
		result.Web.CMS = web.CMS
		result.Web.SensitiveContent = web.SensitiveContent
		if result.Web.SensitiveContent == nil {
			result.Web.SensitiveContent = []models.SensitiveMatch{}
		}

		summary := &models.HeaderSummary{Ratio: web.HeaderRatio, Missing: []string{}}
		for _, check := range web.Headers {
			if check.Present {
				summary.Present = append(summary.Present, check)
			} else {
				summary.Missing = append(summary.Missing, check.Name)
			}
		}
		result.Web.Headers = summary

	case probeReport.Email != nil:
		result.Email = buildEmailSection(probeReport.Email)

	case probeReport.Client != nil:
		client := probeReport.Client
		result.ClientInfo = &models.ClientInfo{
			OS:        client.OS,
			Browser:   client.Browser,
			ClientIP:  client.ClientIP,
			GatewayIP: client.GatewayIP,
		}

	case probeReport.System != nil:
		// Heuristic checks surface through findings only.
	}
}

func buildEmailSection(email *models.EmailAuthReport) *models.EmailSection {
	section := &models.EmailSection{}

	section.SPF = recordStatus(email.SPF.Found, email.SPF.Record, "missing",
		spfSeverity(email.SPF))
	section.DMARC = recordStatus(email.DMARC.Found, email.DMARC.Record, "missing",
		dmarcSeverity(email.DMARC))

	if email.DKIM.Confirmed {
		section.DKIM = models.RecordStatus{Status: "confirmed", Severity: models.SeverityInfo}
	} else {
		section.DKIM = models.RecordStatus{Status: "unconfirmed", Severity: models.SeverityInfo}
	}
	return section
}

func recordStatus(found bool, record, missingLabel string, severity models.Severity) models.RecordStatus {
	if !found {
		return models.RecordStatus{Status: missingLabel, Severity: models.SeverityHigh}
	}
	return models.RecordStatus{Status: "present", Severity: severity, Record: record}
}

func spfSeverity(check models.RecordCheck) models.Severity {
	switch check.Policy {
	case "-all":
		return models.SeverityInfo
	case "~all":
		return models.SeverityMedium
	case "?all":
		return models.SeverityHigh
	case "+all":
		return models.SeverityCritical
	default:
		// no explicit all mechanism
		return models.SeverityMedium
	}
}

func dmarcSeverity(check models.RecordCheck) models.Severity {
	switch check.Policy {
	case "reject", "quarantine":
		return models.SeverityInfo
	default:
		return models.SeverityMedium
	}
}

func (b *Builder) categoryReports(findings []models.Finding, assessment *models.RiskAssessment) map[models.Category]models.CategoryReport {
	grouped := models.FindingsByCategory(findings)
	reports := make(map[models.Category]models.CategoryReport, len(models.AllCategories))
	for _, category := range models.AllCategories {
		score := assessment.CategoryScores[category]
		level, _ := b.aggregator.Band(score)
		categoryFindings := grouped[category]
		if categoryFindings == nil {
			categoryFindings = []models.Finding{}
		}
		reports[category] = models.CategoryReport{
			Findings:  categoryFindings,
			Score:     score,
			RiskLevel: level,
		}
	}
	return reports
}
