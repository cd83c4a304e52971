package models

import "time"

// ProbeReport is the typed output of a single probe run. Exactly one of the
// payload pointers is set, matching the Probe field. Keeping the union
// explicit means downstream stages never branch on dynamic types.
type ProbeReport struct {
	Probe    ProbeName     `json:"probe"`
	Duration time.Duration `json:"duration"`

	Ports  *PortScanReport  `json:"ports,omitempty"`
	TLS    *TLSReport       `json:"tls,omitempty"`
	Web    *WebReport       `json:"web,omitempty"`
	Email  *EmailAuthReport `json:"email,omitempty"`
	Client *ClientReport    `json:"client,omitempty"`
	System *SystemReport    `json:"system,omitempty"`
}

// HasData reports whether the payload carries an actual observation. A TLS
// payload whose handshake never completed only documents a gap, so it does
// not count; an email payload with nothing found still does, because absent
// SPF and DMARC records are observations in their own right.
func (r *ProbeReport) HasData() bool {
	if r == nil {
		return false
	}
	if r.TLS != nil {
		return r.TLS.Reachable
	}
	return r.Ports != nil || r.Web != nil || r.Email != nil || r.Client != nil || r.System != nil
}

// OpenPort is a single confirmed-open TCP port with its service label and
// static risk tier.
type OpenPort struct {
	Port    int      `json:"port" yaml:"port"`
	Service string   `json:"service" yaml:"service"`
	Tier    Severity `json:"severity" yaml:"severity"`
	Warning string   `json:"warning,omitempty" yaml:"warning,omitempty"`
}

// PortScanReport is the NetworkPortProbe payload.
type PortScanReport struct {
	Target      string     `json:"target"`
	ResolvedIP  string     `json:"resolved_ip,omitempty"`
	ReverseDNS  string     `json:"reverse_dns,omitempty"`
	GatewayInfo string     `json:"gateway_info,omitempty"`
	Scanned     int        `json:"scanned"`
	OpenPorts   []OpenPort `json:"open_ports"`
}

// Severity returns the most severe tier among open ports, or Info when
// nothing risky is open.
func (r *PortScanReport) Severity() Severity {
	worst := SeverityInfo
	for _, p := range r.OpenPorts {
		worst = MaxSeverity(worst, p.Tier)
	}
	return worst
}

// TLSReport is the TLSProbe payload.
type TLSReport struct {
	Host            string    `json:"host"`
	Port            int       `json:"port"`
	Reachable       bool      `json:"reachable"`
	Protocol        string    `json:"protocol,omitempty"`
	CipherSuite     string    `json:"cipher_suite,omitempty"`
	WeakProtocol    bool      `json:"weak_protocol"`
	WeakCipher      bool      `json:"weak_cipher"`
	ChainValid      bool      `json:"chain_valid"`
	ChainError      string    `json:"chain_error,omitempty"`
	Expired         bool      `json:"expired"`
	DaysToExpiry    int       `json:"days_to_expiry"`
	SelfSigned      bool      `json:"self_signed"`
	Subject         string    `json:"subject,omitempty"`
	Issuer          string    `json:"issuer,omitempty"`
	NotBefore       time.Time `json:"not_before,omitempty"`
	NotAfter        time.Time `json:"not_after,omitempty"`
	DNSNames        []string  `json:"dns_names,omitempty"`
	SignatureScheme string    `json:"signature_scheme,omitempty"`
}

// HeaderCheck records the state of one canonical security header.
type HeaderCheck struct {
	Name    string `json:"name"`
	Present bool   `json:"present"`
	Value   string `json:"value,omitempty"`
	Weak    bool   `json:"weak"`
	Note    string `json:"note,omitempty"`
}

// SensitiveMatch is either an exposed path that answered 200, or a secret
// pattern spotted in a response body.
type SensitiveMatch struct {
	Kind    string `json:"kind"` // "path" or "pattern"
	Path    string `json:"path,omitempty"`
	Pattern string `json:"pattern,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// CMSInfo describes a detected content management system.
type CMSInfo struct {
	Name     string `json:"name"`
	Version  string `json:"version,omitempty"`
	Outdated bool   `json:"outdated"`
}

// WebReport is the WebSecurityProbe payload.
type WebReport struct {
	URL              string           `json:"url"`
	StatusCode       int              `json:"status_code"`
	Server           string           `json:"server,omitempty"`
	Headers          []HeaderCheck    `json:"headers"`
	HeaderRatio      float64          `json:"header_ratio"`
	SensitiveContent []SensitiveMatch `json:"sensitive_content"`
	DirectoryListing bool             `json:"directory_listing"`
	CMS              *CMSInfo         `json:"cms,omitempty"`
	BodyHash         string           `json:"body_hash,omitempty"`
}

// RecordCheck is the raw state of one email-auth DNS record. Policy is the
// extracted enforcement token (SPF all-qualifier or DMARC p= value); the
// normalizer maps it to a severity.
type RecordCheck struct {
	Found  bool   `json:"found"`
	Record string `json:"record,omitempty"`
	Policy string `json:"policy,omitempty"`
}

// DKIMCheck records whether any well-known DKIM selector answered.
type DKIMCheck struct {
	Confirmed bool   `json:"confirmed"`
	Selector  string `json:"selector,omitempty"`
}

// EmailAuthReport is the EmailAuthProbe payload.
type EmailAuthReport struct {
	Domain           string      `json:"domain"`
	SPF              RecordCheck `json:"spf"`
	DMARC            RecordCheck `json:"dmarc"`
	DKIM             DKIMCheck   `json:"dkim"`
	ResolutionFailed bool        `json:"resolution_failed"`
}

// ClientReport is the ClientEnvironmentProbe payload, parsed from the
// browser user agent.
type ClientReport struct {
	UserAgent string `json:"user_agent"`
	OS        string `json:"os"`
	Browser   string `json:"browser"`
	ClientIP  string `json:"client_ip,omitempty"`
	GatewayIP string `json:"gateway_ip,omitempty"`
}

// HeuristicCheck is one inferred statement about the client system. These
// are never direct observations.
type HeuristicCheck struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// SystemReport is the SystemHeuristicProbe payload.
type SystemReport struct {
	OS     string           `json:"os"`
	Checks []HeuristicCheck `json:"checks"`
}
