package models

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Global       GlobalConfig       `yaml:"global" json:"global"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator" json:"orchestrator"`
	Network      NetworkConfig      `yaml:"network" json:"network"`
	TLS          TLSConfig          `yaml:"tls" json:"tls"`
	Web          WebConfig          `yaml:"web" json:"web"`
	Email        EmailConfig        `yaml:"email" json:"email"`
	Risk         RiskPolicy         `yaml:"risk" json:"risk"`
	Storage      StorageConfig      `yaml:"storage" json:"storage"`
}

type GlobalConfig struct {
	LogLevel  string `yaml:"log_level" json:"log_level"`
	LogFile   string `yaml:"log_file" json:"log_file"`
	LogFormat string `yaml:"log_format" json:"log_format"`
	UserAgent string `yaml:"user_agent" json:"user_agent"`
	Debug     bool   `yaml:"debug" json:"debug"`
	DataDir   string `yaml:"data_dir" json:"data_dir"`
}

type OrchestratorConfig struct {
	MaxConcurrentProbes int           `yaml:"max_concurrent_probes" json:"max_concurrent_probes"`
	ScanTimeout         time.Duration `yaml:"scan_timeout" json:"scan_timeout"`
	FastProbeTimeout    time.Duration `yaml:"fast_probe_timeout" json:"fast_probe_timeout"`
	HeavyProbeTimeout   time.Duration `yaml:"heavy_probe_timeout" json:"heavy_probe_timeout"`
}

// PortRule binds a well-known port to its service label, static risk tier
// and the warning shown when the port is open.
type PortRule struct {
	Port    int      `yaml:"port" json:"port"`
	Service string   `yaml:"service" json:"service"`
	Tier    Severity `yaml:"tier" json:"tier"`
	Warning string   `yaml:"warning" json:"warning"`
}

type NetworkConfig struct {
	ConnectTimeout time.Duration `yaml:"connect_timeout" json:"connect_timeout"`
	Concurrency    int           `yaml:"concurrency" json:"concurrency"`
	RateLimit      int           `yaml:"rate_limit" json:"rate_limit"`
	Ports          []PortRule    `yaml:"ports" json:"ports"`
}

type TLSConfig struct {
	Port             int           `yaml:"port" json:"port"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout" json:"handshake_timeout"`
	ExpiryWarning    time.Duration `yaml:"expiry_warning" json:"expiry_warning"`
}

type WebConfig struct {
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
	MaxRedirects   int           `yaml:"max_redirects" json:"max_redirects"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes" json:"max_body_bytes"`
	SensitivePaths []string      `yaml:"sensitive_paths" json:"sensitive_paths"`
	CrawlPaths     int           `yaml:"crawl_paths" json:"crawl_paths"`
}

type EmailConfig struct {
	Nameservers   []string      `yaml:"nameservers" json:"nameservers"`
	QueryTimeout  time.Duration `yaml:"query_timeout" json:"query_timeout"`
	RetryAttempts int           `yaml:"retry_attempts" json:"retry_attempts"`
	DKIMSelectors []string      `yaml:"dkim_selectors" json:"dkim_selectors"`
}

type StorageConfig struct {
	Directory     string        `yaml:"directory" json:"directory"`
	Compress      bool          `yaml:"compress" json:"compress"`
	RetentionDays int           `yaml:"retention_days" json:"retention_days"`
	MaxResults    int           `yaml:"max_results" json:"max_results"`
	CleanupEvery  time.Duration `yaml:"cleanup_every" json:"cleanup_every"`
}

// RiskBand maps a minimum score to its display level and color. Bands are
// ordered from highest minimum downward.
type RiskBand struct {
	Min   int       `yaml:"min" json:"min"`
	Level RiskLevel `yaml:"level" json:"level"`
	Color string    `yaml:"color" json:"color"`
}

// RiskPolicy holds every number the aggregator reads. Scoring is pure:
// same findings plus same policy always produce the same assessment.
type RiskPolicy struct {
	SeverityWeights map[Severity]int `yaml:"severity_weights" json:"severity_weights"`
	Bands           []RiskBand       `yaml:"bands" json:"bands"`
	CriticalCap     int              `yaml:"critical_cap" json:"critical_cap"`
	HighCap         int              `yaml:"high_cap" json:"high_cap"`
}

func DefaultConfig() *Config {
	return &Config{
		Global: GlobalConfig{
			LogLevel:  "info",
			LogFormat: "text",
			UserAgent: "riskprobe/1.0",
			DataDir:   "./data",
		},
		Orchestrator: OrchestratorConfig{
			MaxConcurrentProbes: 6,
			ScanTimeout:         90 * time.Second,
			FastProbeTimeout:    10 * time.Second,
			HeavyProbeTimeout:   20 * time.Second,
		},
		Network: NetworkConfig{
			ConnectTimeout: 2 * time.Second,
			Concurrency:    20,
			RateLimit:      50,
			Ports:          DefaultPortRules(),
		},
		TLS: TLSConfig{
			Port:             443,
			HandshakeTimeout: 10 * time.Second,
			ExpiryWarning:    30 * 24 * time.Hour,
		},
		Web: WebConfig{
			RequestTimeout: 10 * time.Second,
			MaxRedirects:   5,
			MaxBodyBytes:   2 << 20,
			SensitivePaths: DefaultSensitivePaths(),
			CrawlPaths:     20,
		},
		Email: EmailConfig{
			QueryTimeout:  5 * time.Second,
			RetryAttempts: 2,
			DKIMSelectors: DefaultDKIMSelectors(),
		},
		Risk: DefaultRiskPolicy(),
		Storage: StorageConfig{
			Directory:     "./data/results",
			Compress:      true,
			RetentionDays: 90,
			MaxResults:    10000,
			CleanupEvery:  24 * time.Hour,
		},
	}
}

// DefaultPortRules is the fixed port/risk table the network probe scans.
func DefaultPortRules() []PortRule {
	return []PortRule{
		{Port: 21, Service: "FTP", Tier: SeverityHigh, Warning: "FTP transfers credentials and files in cleartext"},
		{Port: 22, Service: "SSH", Tier: SeverityLow, Warning: "SSH exposed; ensure key-based auth and patched server"},
		{Port: 23, Service: "Telnet", Tier: SeverityCritical, Warning: "Telnet is unencrypted remote shell access"},
		{Port: 25, Service: "SMTP", Tier: SeverityMedium, Warning: "SMTP exposed; verify relay restrictions"},
		{Port: 80, Service: "HTTP", Tier: SeverityMedium, Warning: "Unencrypted HTTP service"},
		{Port: 110, Service: "POP3", Tier: SeverityMedium, Warning: "POP3 may transmit credentials in cleartext"},
		{Port: 139, Service: "NetBIOS", Tier: SeverityCritical, Warning: "NetBIOS file sharing exposed to the internet"},
		{Port: 143, Service: "IMAP", Tier: SeverityMedium, Warning: "IMAP may transmit credentials in cleartext"},
		{Port: 443, Service: "HTTPS", Tier: SeverityLow, Warning: "HTTPS service exposed"},
		{Port: 445, Service: "SMB", Tier: SeverityCritical, Warning: "SMB file sharing exposed to the internet"},
		{Port: 1433, Service: "MSSQL", Tier: SeverityHigh, Warning: "Database port reachable from the internet"},
		{Port: 3306, Service: "MySQL", Tier: SeverityHigh, Warning: "Database port reachable from the internet"},
		{Port: 3389, Service: "RDP", Tier: SeverityCritical, Warning: "Remote desktop exposed to the internet"},
		{Port: 5900, Service: "VNC", Tier: SeverityHigh, Warning: "VNC remote access exposed to the internet"},
		{Port: 8080, Service: "HTTP-Alt", Tier: SeverityMedium, Warning: "Alternate HTTP service exposed"},
	}
}

// DefaultSensitivePaths lists well-known paths that should never answer 200.
func DefaultSensitivePaths() []string {
	return []string{
		"/admin", "/administrator", "/wp-admin", "/phpmyadmin",
		"/.git/config", "/.env", "/config.php", "/backup",
		"/db_backup", "/database.sql", "/server-status", "/.htaccess",
		"/wp-config.php.bak", "/.DS_Store", "/web.config",
	}
}

// DefaultDKIMSelectors lists the selectors tried before DKIM is reported
// as unconfirmed.
func DefaultDKIMSelectors() []string {
	return []string{"default", "dkim", "mail", "email", "selector1", "selector2", "k1"}
}

func DefaultRiskPolicy() RiskPolicy {
	return RiskPolicy{
		SeverityWeights: map[Severity]int{
			SeverityCritical: 10,
			SeverityHigh:     7,
			SeverityMedium:   5,
			SeverityLow:      2,
			SeverityInfo:     1,
		},
		Bands: []RiskBand{
			{Min: 90, Level: RiskLow, Color: "#28a745"},
			{Min: 80, Level: RiskLowMedium, Color: "#5cb85c"},
			{Min: 70, Level: RiskMedium, Color: "#17a2b8"},
			{Min: 60, Level: RiskMediumHigh, Color: "#ffc107"},
			{Min: 50, Level: RiskHigh, Color: "#fd7e14"},
			{Min: 0, Level: RiskCritical, Color: "#dc3545"},
		},
		CriticalCap: 49,
		HighCap:     69,
	}
}

func (c *Config) Validate() error {
	var errs []string

	if c.Orchestrator.MaxConcurrentProbes <= 0 {
		errs = append(errs, "orchestrator.max_concurrent_probes must be > 0")
	}
	if c.Orchestrator.ScanTimeout <= 0 {
		errs = append(errs, "orchestrator.scan_timeout must be > 0")
	}
	if c.Network.ConnectTimeout < time.Second || c.Network.ConnectTimeout > 5*time.Second {
		errs = append(errs, "network.connect_timeout must be between 1s and 5s")
	}
	if c.Network.Concurrency <= 0 {
		errs = append(errs, "network.concurrency must be > 0")
	}
	for _, rule := range c.Network.Ports {
		if rule.Port <= 0 || rule.Port > 65535 {
			errs = append(errs, fmt.Sprintf("network.ports: port %d out of range", rule.Port))
		}
		if !rule.Tier.Valid() {
			errs = append(errs, fmt.Sprintf("network.ports: port %d has invalid tier %q", rule.Port, rule.Tier))
		}
	}
	if c.TLS.Port <= 0 || c.TLS.Port > 65535 {
		errs = append(errs, "tls.port must be in 1..65535")
	}
	if c.Web.MaxBodyBytes <= 0 {
		errs = append(errs, "web.max_body_bytes must be > 0")
	}
	if c.Email.RetryAttempts < 0 || c.Email.RetryAttempts > 2 {
		errs = append(errs, "email.retry_attempts must be 0..2 (at most one retry)")
	}
	if len(c.Risk.Bands) == 0 {
		errs = append(errs, "risk.bands must not be empty")
	}
	for sev, w := range c.Risk.SeverityWeights {
		if !sev.Valid() {
			errs = append(errs, fmt.Sprintf("risk.severity_weights: unknown severity %q", sev))
		}
		if w < 0 {
			errs = append(errs, fmt.Sprintf("risk.severity_weights: %s must be >= 0", sev))
		}
	}
	if c.Storage.RetentionDays < 0 {
		errs = append(errs, "storage.retention_days must be >= 0")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	var (
		data []byte
		err  error
	)
	switch ext {
	case ".json":
		data, err = json.MarshalIndent(c, "", "  ")
	default:
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("atomically write config: %w", err)
	}
	return nil
}

func (c *Config) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, c); err != nil {
			if err2 := json.Unmarshal(data, c); err2 != nil {
				return fmt.Errorf("parse config (yaml/json): %v | %v", err, err2)
			}
		}
	}

	return c.Validate()
}

// PortRuleFor looks up the rule for a port.
func (c *NetworkConfig) PortRuleFor(port int) (PortRule, bool) {
	for _, rule := range c.Ports {
		if rule.Port == port {
			return rule, true
		}
	}
	return PortRule{}, false
}
