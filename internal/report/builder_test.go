package report

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bl4ck0w1/riskprobe/internal/risk"
	"github.com/bl4ck0w1/riskprobe/pkg/models"
)

func newTestBuilder() *Builder {
	return NewBuilder(risk.NewAggregator(models.DefaultRiskPolicy()), nil)
}

func testRequest() *models.ScanRequest {
	return &models.ScanRequest{ScanID: "scan-test", Target: "example.com"}
}

func TestBuildPopulatesNetworkSection(t *testing.T) {
	reports := []*models.ProbeReport{{
		Probe: models.ProbeNetworkPorts,
		Ports: &models.PortScanReport{
			Target:     "example.com",
			ResolvedIP: "93.184.216.34",
			ReverseDNS: "example.com.",
			Scanned:    15,
			OpenPorts: []models.OpenPort{
				{Port: 22, Service: "SSH", Tier: models.SeverityLow},
				{Port: 3389, Service: "RDP", Tier: models.SeverityCritical},
			},
		},
	}}
	findings := []models.Finding{{
		ID:          models.FindingID(models.CategoryNetworkDefense, "Open port", "3389"),
		Category:    models.CategoryNetworkDefense,
		Title:       "Exposed RDP service",
		Description: "Port 3389 accepts connections.",
		Severity:    models.SeverityCritical,
		Remediation: "Close the port.",
		Confidence:  models.ConfidenceDefinite,
		Probe:       models.ProbeNetworkPorts,
	}}

	result := newTestBuilder().Build(testRequest(), models.StatusComplete, reports, findings, nil, time.Now())

	require.NotNil(t, result.Network)
	assert.Equal(t, 2, result.Network.OpenPorts.Count)
	assert.Equal(t, models.SeverityCritical, result.Network.OpenPorts.Severity)
	assert.Equal(t, "93.184.216.34", result.Network.ResolvedIP)
	require.NotNil(t, result.RiskAssessment)
	assert.LessOrEqual(t, result.RiskAssessment.OverallScore, 49)
}

func TestBuildMergesTLSAndWebIntoOneSection(t *testing.T) {
	reports := []*models.ProbeReport{
		{
			Probe: models.ProbeTLS,
			TLS:   &models.TLSReport{Reachable: true, Protocol: "TLS 1.3", ChainValid: true, DaysToExpiry: 120},
		},
		{
			Probe: models.ProbeWebSecurity,
			Web: &models.WebReport{
				URL:        "https://example.com/",
				StatusCode: 200,
				Server:     "nginx",
				Headers: []models.HeaderCheck{
					{Name: "Strict-Transport-Security", Present: true, Value: "max-age=31536000"},
					{Name: "Content-Security-Policy", Present: false},
				},
				HeaderRatio: 0.2,
			},
		},
	}

	result := newTestBuilder().Build(testRequest(), models.StatusComplete, reports, nil, nil, time.Now())

	require.NotNil(t, result.Web)
	require.NotNil(t, result.Web.TLS)
	assert.Equal(t, "TLS 1.3", result.Web.TLS.Protocol)
	assert.Equal(t, "nginx", result.Web.Server)
	require.NotNil(t, result.Web.Headers)
	assert.Len(t, result.Web.Headers.Present, 1)
	assert.Equal(t, []string{"Content-Security-Policy"}, result.Web.Headers.Missing)
	assert.NotNil(t, result.Web.SensitiveContent)
}

func TestBuildEmailSection(t *testing.T) {
	email := &models.EmailAuthReport{
		Domain: "example.com",
		SPF:    models.RecordCheck{Found: true, Record: "v=spf1 ~all", Policy: "~all"},
		DMARC:  models.RecordCheck{},
		DKIM:   models.DKIMCheck{Confirmed: true, Selector: "default"},
	}
	reports := []*models.ProbeReport{{Probe: models.ProbeEmailAuth, Email: email}}

	result := newTestBuilder().Build(testRequest(), models.StatusComplete, reports, nil, nil, time.Now())

	require.NotNil(t, result.Email)
	assert.Equal(t, "present", result.Email.SPF.Status)
	assert.Equal(t, models.SeverityMedium, result.Email.SPF.Severity)
	assert.Equal(t, "missing", result.Email.DMARC.Status)
	assert.Equal(t, models.SeverityHigh, result.Email.DMARC.Severity)
	assert.Equal(t, "confirmed", result.Email.DKIM.Status)
}

func TestBuildEmailSectionPolicyGrades(t *testing.T) {
	email := &models.EmailAuthReport{
		Domain: "example.com",
		SPF:    models.RecordCheck{Found: true, Record: "v=spf1 include:_spf.example.com", Policy: ""},
		DMARC:  models.RecordCheck{Found: true, Record: "v=DMARC1; p=quarantine", Policy: "quarantine"},
	}
	reports := []*models.ProbeReport{{Probe: models.ProbeEmailAuth, Email: email}}

	result := newTestBuilder().Build(testRequest(), models.StatusComplete, reports, nil, nil, time.Now())

	require.NotNil(t, result.Email)
	// No all mechanism reads as neutral, not open.
	assert.Equal(t, models.SeverityMedium, result.Email.SPF.Severity)
	// Quarantine already keeps failing mail out of the inbox.
	assert.Equal(t, models.SeverityInfo, result.Email.DMARC.Severity)
}

func TestBuildCategoryReportsCoverAllCategories(t *testing.T) {
	findings := []models.Finding{{
		ID:          models.FindingID(models.CategoryWebSecurity, "Missing header", "CSP"),
		Category:    models.CategoryWebSecurity,
		Title:       "Missing Content-Security-Policy header",
		Description: "The response carries no CSP.",
		Severity:    models.SeverityMedium,
		Remediation: "Add a Content-Security-Policy header.",
		Confidence:  models.ConfidenceDefinite,
		Probe:       models.ProbeWebSecurity,
	}}

	result := newTestBuilder().Build(testRequest(), models.StatusComplete, nil, findings, nil, time.Now())

	require.Len(t, result.ServiceCategories, len(models.AllCategories))
	for _, category := range models.AllCategories {
		report, ok := result.ServiceCategories[category]
		require.True(t, ok, "category %s missing", category)
		assert.NotNil(t, report.Findings)
		assert.NotEmpty(t, report.RiskLevel)
	}
	assert.Equal(t, 95, result.ServiceCategories[models.CategoryWebSecurity].Score)
	assert.Equal(t, 100, result.ServiceCategories[models.CategoryNetworkDefense].Score)
	assert.Len(t, result.ServiceCategories[models.CategoryWebSecurity].Findings, 1)
}

func TestFailedResultShape(t *testing.T) {
	probeErrors := []models.ProbeError{{
		Probe:   models.ProbeNetworkPorts,
		Kind:    models.ErrKindDNS,
		Message: "no such host",
	}}

	result := newTestBuilder().Failed(testRequest(), probeErrors, time.Now())

	assert.Equal(t, models.StatusFailed, result.Status)
	assert.Equal(t, "scan-test", result.ScanID)
	assert.NotNil(t, result.Findings)
	assert.Empty(t, result.Findings)
	assert.Nil(t, result.RiskAssessment)
	assert.Nil(t, result.Network)
	assert.Len(t, result.ProbeErrors, 1)
}

func TestBuildSortsFindings(t *testing.T) {
	findings := []models.Finding{
		{
			ID: "b", Category: models.CategoryWebSecurity, Title: "Weak header",
			Description: "d", Severity: models.SeverityLow, Remediation: "r",
			Confidence: models.ConfidenceDefinite, Probe: models.ProbeWebSecurity,
		},
		{
			ID: "a", Category: models.CategoryNetworkDefense, Title: "Open port",
			Description: "d", Severity: models.SeverityHigh, Remediation: "r",
			Confidence: models.ConfidenceDefinite, Probe: models.ProbeNetworkPorts,
		},
	}

	result := newTestBuilder().Build(testRequest(), models.StatusComplete, nil, findings, nil, time.Now())

	require.Len(t, result.Findings, 2)
	assert.Equal(t, models.CategoryNetworkDefense, result.Findings[0].Category)
}

func TestScanResultJSONRoundTrip(t *testing.T) {
	reports := []*models.ProbeReport{{
		Probe: models.ProbeNetworkPorts,
		Ports: &models.PortScanReport{
			Target:     "example.com",
			ResolvedIP: "93.184.216.34",
			Scanned:    15,
			OpenPorts:  []models.OpenPort{{Port: 443, Service: "HTTPS", Tier: models.SeverityLow}},
		},
	}}
	findings := []models.Finding{{
		ID:          models.FindingID(models.CategoryNetworkDefense, "Open port", "443"),
		Category:    models.CategoryNetworkDefense,
		Title:       "Open HTTPS port",
		Description: "Port 443 is open.",
		Severity:    models.SeverityLow,
		Remediation: "Expected for a web server.",
		Confidence:  models.ConfidenceDefinite,
		Probe:       models.ProbeNetworkPorts,
	}}

	original := newTestBuilder().Build(testRequest(), models.StatusComplete, reports, findings, nil, time.Now())

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var restored models.ScanResult
	require.NoError(t, json.Unmarshal(data, &restored))

	assert.Equal(t, original.ScanID, restored.ScanID)
	assert.Equal(t, original.Status, restored.Status)
	assert.Equal(t, original.Findings, restored.Findings)
	require.NotNil(t, restored.RiskAssessment)
	assert.Equal(t, original.RiskAssessment.OverallScore, restored.RiskAssessment.OverallScore)
	assert.Equal(t, original.RiskAssessment.RiskLevel, restored.RiskAssessment.RiskLevel)
	require.NotNil(t, restored.Network)
	assert.Equal(t, original.Network.OpenPorts.Count, restored.Network.OpenPorts.Count)
}
