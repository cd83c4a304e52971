package models

import "time"

// RiskLevel is the closed set of risk bands shown to the user.
type RiskLevel string

const (
	RiskLow        RiskLevel = "Low"
	RiskLowMedium  RiskLevel = "Low-Medium"
	RiskMedium     RiskLevel = "Medium"
	RiskMediumHigh RiskLevel = "Medium-High"
	RiskHigh       RiskLevel = "High"
	RiskCritical   RiskLevel = "Critical"
)

// RiskAssessment is the computed risk picture for one scan. A nil
// RiskAssessment on a ScanResult means the scan failed before anything
// could be scored; it is never zero-valued to mean "no risk".
type RiskAssessment struct {
	OverallScore   int              `json:"overall_score"`
	RiskLevel      RiskLevel        `json:"risk_level"`
	Color          string           `json:"color"`
	CategoryScores map[Category]int `json:"category_scores"`
}

// CategoryReport is the per-category slice of the result: the findings that
// landed in the category plus its score and band.
type CategoryReport struct {
	Findings  []Finding `json:"findings"`
	Score     int       `json:"score"`
	RiskLevel RiskLevel `json:"risk_level"`
}

// OpenPortsSummary is the network section's port roll-up.
type OpenPortsSummary struct {
	Count    int        `json:"count"`
	List     []OpenPort `json:"list"`
	Severity Severity   `json:"severity"`
}

// NetworkSection groups the network-facing observations.
type NetworkSection struct {
	OpenPorts   OpenPortsSummary `json:"open_ports"`
	ResolvedIP  string           `json:"resolved_ip,omitempty"`
	ReverseDNS  string           `json:"reverse_dns,omitempty"`
	GatewayInfo string           `json:"gateway_info,omitempty"`
}

// HeaderSummary condenses the security-header checks.
type HeaderSummary struct {
	Present []HeaderCheck `json:"present"`
	Missing []string      `json:"missing"`
	Ratio   float64       `json:"ratio"`
}

// WebSection groups TLS and HTTP-layer observations.
type WebSection struct {
	TLS              *TLSReport       `json:"tls,omitempty"`
	Headers          *HeaderSummary   `json:"headers,omitempty"`
	SensitiveContent []SensitiveMatch `json:"sensitive_content"`
	CMS              *CMSInfo         `json:"cms,omitempty"`
	Server           string           `json:"server,omitempty"`
}

// RecordStatus is the reported state of one email-auth record.
type RecordStatus struct {
	Status   string   `json:"status"`
	Severity Severity `json:"severity"`
	Record   string   `json:"record,omitempty"`
}

// EmailSection groups the email authentication posture.
type EmailSection struct {
	SPF   RecordStatus `json:"spf"`
	DKIM  RecordStatus `json:"dkim"`
	DMARC RecordStatus `json:"dmarc"`
}

// ClientInfo is the parsed client environment echoed back in the result.
type ClientInfo struct {
	OS        string `json:"os,omitempty"`
	Browser   string `json:"browser,omitempty"`
	ClientIP  string `json:"client_ip,omitempty"`
	GatewayIP string `json:"gateway_ip,omitempty"`
}

// ScanResult is the complete, self-describing output of one scan. It
// serializes to the stable JSON contract consumed by the reporting client.
type ScanResult struct {
	ScanID    string        `json:"scan_id"`
	Target    string        `json:"target"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration"`
	Status    ScanStatus    `json:"status"`

	ClientInfo *ClientInfo     `json:"client_info,omitempty"`
	Network    *NetworkSection `json:"network,omitempty"`
	Web        *WebSection     `json:"web,omitempty"`
	Email      *EmailSection   `json:"email,omitempty"`

	Findings          []Finding                   `json:"findings"`
	ServiceCategories map[Category]CategoryReport `json:"service_categories,omitempty"`
	RiskAssessment    *RiskAssessment             `json:"risk_assessment,omitempty"`
	ProbeErrors       []ProbeError                `json:"probe_errors,omitempty"`
}

// CountBySeverity tallies findings per severity.
func (r *ScanResult) CountBySeverity() map[Severity]int {
	counts := make(map[Severity]int)
	for _, f := range r.Findings {
		counts[f.Severity]++
	}
	return counts
}
