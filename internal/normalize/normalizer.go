// Package normalize turns typed probe reports into the flat finding model.
// All severity and category assignment happens here, driven by fixed
// tables, so the aggregator only ever sees validated enums.
package normalize

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/bl4ck0w1/riskprobe/pkg/models"
)

type Normalizer struct {
	logger *logrus.Logger
}

func NewNormalizer(logger *logrus.Logger) *Normalizer {
	if logger == nil {
		logger = logrus.New()
	}
	return &Normalizer{logger: logger}
}

// Normalize maps every report payload to findings. A finding whose enum
// fields fail validation is kept but downgraded to its least alarming form
// with the discrepancy logged, so the observation is never silently lost.
func (n *Normalizer) Normalize(reports []*models.ProbeReport) []models.Finding {
	var findings []models.Finding
	for _, report := range reports {
		if report == nil {
			continue
		}
		var mapped []models.Finding
		switch {
		case report.Ports != nil:
			mapped = n.fromPorts(report.Ports)
		case report.TLS != nil:
			mapped = n.fromTLS(report.TLS)
		case report.Web != nil:
			mapped = n.fromWeb(report.Web)
		case report.Email != nil:
			mapped = n.fromEmail(report.Email)
		case report.Client != nil:
			mapped = n.fromClient(report.Client)
		case report.System != nil:
			mapped = n.fromSystem(report.System)
		default:
			n.logger.WithField("probe", report.Probe).Warn("report carries no payload")
			continue
		}
		for i := range mapped {
			mapped[i].Probe = report.Probe
			n.sanitize(&mapped[i])
			if mapped[i].ID == "" {
				mapped[i].ID = models.FindingID(mapped[i].Category, mapped[i].Title, mapped[i].Description)
			}
			if err := mapped[i].Validate(); err != nil {
				n.logger.WithFields(logrus.Fields{
					"probe": report.Probe,
					"title": mapped[i].Title,
					"error": err,
				}).Error("dropping malformed finding")
				continue
			}
			findings = append(findings, mapped[i])
		}
	}
	return findings
}

// sanitize downgrades out-of-enum values to their least alarming form and
// logs the discrepancy. The only field that can still fail Validate after
// this is an empty title.
func (n *Normalizer) sanitize(f *models.Finding) {
	if !f.Severity.Valid() {
		n.logger.WithFields(logrus.Fields{
			"probe":    f.Probe,
			"title":    f.Title,
			"severity": f.Severity,
		}).Warn("unknown severity, downgrading to Info")
		f.Severity = models.SeverityInfo
	}
	if !f.Category.Valid() {
		n.logger.WithFields(logrus.Fields{
			"probe":    f.Probe,
			"title":    f.Title,
			"category": f.Category,
		}).Warn("unknown category, reassigning to Unknown")
		f.Category = models.CategoryUnknown
	}
	if !f.Confidence.Valid() {
		f.Confidence = models.ConfidenceHeuristic
	}
}

func (n *Normalizer) fromPorts(report *models.PortScanReport) []models.Finding {
	findings := make([]models.Finding, 0, len(report.OpenPorts))
	for _, port := range report.OpenPorts {
		findings = append(findings, models.Finding{
			Category:    models.CategoryNetworkDefense,
			Title:       fmt.Sprintf("Open port %d (%s)", port.Port, port.Service),
			Description: port.Warning,
			Severity:    port.Tier,
			Remediation: fmt.Sprintf("Close port %d or restrict it to trusted networks", port.Port),
			Confidence:  models.ConfidenceDefinite,
		})
	}
	return findings
}

func (n *Normalizer) fromTLS(report *models.TLSReport) []models.Finding {
	if !report.Reachable {
		// A failed handshake says nothing about the site beyond the gap
		// itself, so the note is informational and never scored down.
		return []models.Finding{{
			Category:    models.CategoryDataProtection,
			Title:       "No TLS service",
			Description: fmt.Sprintf("no TLS handshake completed on port %d", report.Port),
			Severity:    models.SeverityInfo,
			Remediation: "Serve the site over HTTPS with a trusted certificate",
			Confidence:  models.ConfidenceHeuristic,
		}}
	}

	var findings []models.Finding
	healthy := true

	if report.Expired {
		healthy = false
		findings = append(findings, models.Finding{
			Category:    models.CategoryDataProtection,
			Title:       "TLS certificate expired",
			Description: fmt.Sprintf("certificate expired %d days ago", -report.DaysToExpiry),
			Severity:    models.SeverityCritical,
			Remediation: "Renew the certificate immediately",
			Confidence:  models.ConfidenceDefinite,
		})
	} else if report.DaysToExpiry <= 30 {
		healthy = false
		findings = append(findings, models.Finding{
			Category:    models.CategoryDataProtection,
			Title:       "TLS certificate expiring soon",
			Description: fmt.Sprintf("certificate expires in %d days", report.DaysToExpiry),
			Severity:    models.SeverityMedium,
			Remediation: "Renew the certificate before it lapses",
			Confidence:  models.ConfidenceDefinite,
		})
	}

	if report.SelfSigned {
		healthy = false
		findings = append(findings, models.Finding{
			Category:    models.CategoryDataProtection,
			Title:       "Self-signed TLS certificate",
			Description: "certificate is not issued by a trusted authority",
			Severity:    models.SeverityHigh,
			Remediation: "Install a certificate from a public CA",
			Confidence:  models.ConfidenceDefinite,
		})
	} else if !report.ChainValid && !report.Expired {
		healthy = false
		findings = append(findings, models.Finding{
			Category:    models.CategoryDataProtection,
			Title:       "TLS certificate chain invalid",
			Description: report.ChainError,
			Severity:    models.SeverityHigh,
			Remediation: "Serve the full intermediate chain for the certificate",
			Confidence:  models.ConfidenceDefinite,
		})
	}

	if report.WeakProtocol {
		healthy = false
		findings = append(findings, models.Finding{
			Category:    models.CategoryDataProtection,
			Title:       "Legacy TLS protocol accepted",
			Description: fmt.Sprintf("server negotiated %s", report.Protocol),
			Severity:    models.SeverityHigh,
			Remediation: "Require TLS 1.2 or newer",
			Confidence:  models.ConfidenceDefinite,
		})
	}
	if report.WeakCipher {
		healthy = false
		findings = append(findings, models.Finding{
			Category:    models.CategoryDataProtection,
			Title:       "Weak TLS cipher suite",
			Description: fmt.Sprintf("server negotiated %s", report.CipherSuite),
			Severity:    models.SeverityMedium,
			Remediation: "Disable legacy cipher suites",
			Confidence:  models.ConfidenceDefinite,
		})
	}

	if healthy {
		findings = append(findings, models.Finding{
			Category:    models.CategoryDataProtection,
			Title:       "TLS configuration healthy",
			Description: fmt.Sprintf("valid certificate, %s with %s", report.Protocol, report.CipherSuite),
			Severity:    models.SeverityInfo,
			Remediation: "No action needed",
			Confidence:  models.ConfidenceDefinite,
		})
	}
	return findings
}

func (n *Normalizer) fromWeb(report *models.WebReport) []models.Finding {
	var findings []models.Finding

	allPresent := true
	for _, check := range report.Headers {
		if !check.Present {
			allPresent = false
			findings = append(findings, models.Finding{
				Category:    models.CategoryWebSecurity,
				Title:       fmt.Sprintf("Missing security header %s", check.Name),
				Description: fmt.Sprintf("%s is not set on %s", check.Name, report.URL),
				Severity:    models.SeverityMedium,
				Remediation: fmt.Sprintf("Configure the %s response header", check.Name),
				Confidence:  models.ConfidenceDefinite,
			})
			continue
		}
		if check.Weak {
			findings = append(findings, models.Finding{
				Category:    models.CategoryWebSecurity,
				Title:       fmt.Sprintf("Weak security header %s", check.Name),
				Description: check.Note,
				Severity:    models.SeverityLow,
				Remediation: fmt.Sprintf("Harden the %s value", check.Name),
				Confidence:  models.ConfidenceDefinite,
			})
		}
	}
	if allPresent && len(report.Headers) > 0 {
		findings = append(findings, models.Finding{
			Category:    models.CategoryWebSecurity,
			Title:       "Security headers present",
			Description: "all canonical security headers are set",
			Severity:    models.SeverityInfo,
			Remediation: "No action needed",
			Confidence:  models.ConfidenceDefinite,
		})
	}

	if report.CMS != nil {
		if report.CMS.Outdated {
			findings = append(findings, models.Finding{
				Category:    models.CategoryWebSecurity,
				Title:       fmt.Sprintf("Outdated %s installation", report.CMS.Name),
				Description: fmt.Sprintf("%s %s is past its supported window", report.CMS.Name, report.CMS.Version),
				Severity:    models.SeverityHigh,
				Remediation: fmt.Sprintf("Update %s to a supported release", report.CMS.Name),
				Confidence:  models.ConfidenceDefinite,
			})
		} else {
			findings = append(findings, models.Finding{
				Category:    models.CategoryWebSecurity,
				Title:       fmt.Sprintf("%s detected", report.CMS.Name),
				Description: "content management system fingerprinted from page markers",
				Severity:    models.SeverityInfo,
				Remediation: "Keep the CMS and its plugins patched",
				Confidence:  models.ConfidenceDefinite,
			})
		}
	}

	findings = append(findings, n.fromSensitiveContent(report)...)
	return findings
}

// fromSensitiveContent grades exposed paths by how many answered, and each
// leaked secret individually.
func (n *Normalizer) fromSensitiveContent(report *models.WebReport) []models.Finding {
	var findings []models.Finding

	var paths []string
	for _, match := range report.SensitiveContent {
		switch match.Kind {
		case "path":
			paths = append(paths, match.Path)
		case "pattern":
			findings = append(findings, models.Finding{
				Category:    models.CategoryAccessManagement,
				Title:       fmt.Sprintf("Exposed secret material (%s)", match.Pattern),
				Description: match.Detail,
				Severity:    models.SeverityCritical,
				Remediation: "Remove the credential from public content and rotate it",
				Confidence:  models.ConfidenceDefinite,
			})
		default:
			n.logger.WithField("kind", match.Kind).Warn("unknown sensitive match kind")
		}
	}

	if count := len(paths); count > 0 {
		severity := models.SeverityMedium
		switch {
		case count > 5:
			severity = models.SeverityCritical
		case count > 2:
			severity = models.SeverityHigh
		}
		findings = append(findings, models.Finding{
			Category:    models.CategoryAccessManagement,
			Title:       fmt.Sprintf("Sensitive paths reachable (%d)", count),
			Description: fmt.Sprintf("paths answering 200: %v", paths),
			Severity:    severity,
			Remediation: "Block or authenticate access to administrative and backup paths",
			Confidence:  models.ConfidenceDefinite,
		})
	}

	if report.DirectoryListing {
		findings = append(findings, models.Finding{
			Category:    models.CategoryAccessManagement,
			Title:       "Directory listing enabled",
			Description: fmt.Sprintf("%s serves a browsable index", report.URL),
			Severity:    models.SeverityMedium,
			Remediation: "Disable automatic directory indexes",
			Confidence:  models.ConfidenceDefinite,
		})
	}
	return findings
}

// spfPolicySeverity grades the all-qualifier. Softfail still lets spoofed
// mail through most filters; neutral and pass make SPF decorative.
var spfPolicySeverity = map[string]models.Severity{
	"-all": models.SeverityInfo,
	"~all": models.SeverityMedium,
	"?all": models.SeverityHigh,
	"+all": models.SeverityCritical,
}

// dmarcPolicySeverity grades the p= value. Quarantine and reject both put
// failing mail out of the inbox; only p=none leaves DMARC monitoring-only.
var dmarcPolicySeverity = map[string]models.Severity{
	"reject":     models.SeverityInfo,
	"quarantine": models.SeverityInfo,
	"none":       models.SeverityMedium,
}

func (n *Normalizer) fromEmail(report *models.EmailAuthReport) []models.Finding {
	var findings []models.Finding

	if !report.SPF.Found {
		findings = append(findings, models.Finding{
			Category:    models.CategoryDataProtection,
			Title:       "SPF record missing",
			Description: fmt.Sprintf("no SPF record published for %s", report.Domain),
			Severity:    models.SeverityHigh,
			Remediation: "Publish an SPF record ending in -all",
			Confidence:  models.ConfidenceDefinite,
		})
	} else {
		severity, ok := spfPolicySeverity[report.SPF.Policy]
		if !ok {
			// A record without an all mechanism defaults to neutral.
			severity = models.SeverityMedium
		}
		title := "SPF policy enforced"
		remediation := "No action needed"
		if severity != models.SeverityInfo {
			title = fmt.Sprintf("Permissive SPF policy (%s)", report.SPF.Policy)
			if report.SPF.Policy == "" {
				title = "SPF record without an explicit policy"
			}
			remediation = "Tighten the SPF record to end in -all"
		}
		findings = append(findings, models.Finding{
			Category:    models.CategoryDataProtection,
			Title:       title,
			Description: report.SPF.Record,
			Severity:    severity,
			Remediation: remediation,
			Confidence:  models.ConfidenceDefinite,
		})
	}

	if !report.DMARC.Found {
		findings = append(findings, models.Finding{
			Category:    models.CategoryDataProtection,
			Title:       "DMARC record missing",
			Description: fmt.Sprintf("no DMARC policy published for %s", report.Domain),
			Severity:    models.SeverityHigh,
			Remediation: "Publish a DMARC record with p=reject",
			Confidence:  models.ConfidenceDefinite,
		})
	} else {
		severity, ok := dmarcPolicySeverity[report.DMARC.Policy]
		if !ok {
			severity = models.SeverityMedium
		}
		title := "DMARC policy enforced"
		remediation := "No action needed"
		if severity != models.SeverityInfo {
			title = fmt.Sprintf("Weak DMARC policy (p=%s)", report.DMARC.Policy)
			remediation = "Move the DMARC policy to p=reject"
		}
		findings = append(findings, models.Finding{
			Category:    models.CategoryDataProtection,
			Title:       title,
			Description: report.DMARC.Record,
			Severity:    severity,
			Confidence:  models.ConfidenceDefinite,
			Remediation: remediation,
		})
	}

	if report.DKIM.Confirmed {
		findings = append(findings, models.Finding{
			Category:    models.CategoryDataProtection,
			Title:       "DKIM signing key found",
			Description: fmt.Sprintf("selector %q publishes a key", report.DKIM.Selector),
			Severity:    models.SeverityInfo,
			Remediation: "No action needed",
			Confidence:  models.ConfidenceDefinite,
		})
	} else {
		// Absence of a guessable selector is not absence of DKIM.
		findings = append(findings, models.Finding{
			Category:    models.CategoryDataProtection,
			Title:       "DKIM not confirmed",
			Description: "no key found under well-known selectors",
			Severity:    models.SeverityInfo,
			Remediation: "Verify DKIM signing is configured for outbound mail",
			Confidence:  models.ConfidenceHeuristic,
		})
	}

	return findings
}

func (n *Normalizer) fromClient(report *models.ClientReport) []models.Finding {
	var findings []models.Finding

	if report.Browser == "Internet Explorer" {
		findings = append(findings, models.Finding{
			Category:    models.CategoryEndpointSecurity,
			Title:       "Legacy browser in use",
			Description: "Internet Explorer no longer receives security updates",
			Severity:    models.SeverityHigh,
			Remediation: "Switch to a current browser",
			Confidence:  models.ConfidenceHeuristic,
		})
	}
	if report.OS == "Unknown" || report.Browser == "Unknown" {
		findings = append(findings, models.Finding{
			Category:    models.CategoryEndpointSecurity,
			Title:       "Client environment unrecognized",
			Description: "user agent did not match any known OS or browser",
			Severity:    models.SeverityInfo,
			Remediation: "No action needed",
			Confidence:  models.ConfidenceHeuristic,
		})
	}
	return findings
}

func (n *Normalizer) fromSystem(report *models.SystemReport) []models.Finding {
	var findings []models.Finding
	for _, check := range report.Checks {
		switch {
		case check.Name == "os_support" && check.Status == "end_of_life":
			findings = append(findings, models.Finding{
				Category:    models.CategoryEndpointSecurity,
				Title:       "End-of-life operating system",
				Description: check.Detail,
				Severity:    models.SeverityHigh,
				Remediation: "Upgrade to a supported operating system",
				Confidence:  models.ConfidenceHeuristic,
			})
		case check.Name == "host_firewall" && check.Status == "unknown":
			findings = append(findings, models.Finding{
				Category:    models.CategoryEndpointSecurity,
				Title:       "Host firewall state unknown",
				Description: "platform does not guarantee a default firewall",
				Severity:    models.SeverityLow,
				Remediation: "Confirm a host firewall is enabled",
				Confidence:  models.ConfidenceHeuristic,
			})
		}
	}
	return findings
}
