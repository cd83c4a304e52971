// Package client implements the probes that interpret browser-supplied
// metadata. Everything here is inference from untrusted input, so every
// finding it feeds carries Heuristic confidence.
package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bl4ck0w1/riskprobe/internal/probes"
	"github.com/bl4ck0w1/riskprobe/pkg/models"
)

// EnvironmentProbe parses the user agent into an OS and browser label.
type EnvironmentProbe struct {
	logger *logrus.Logger
}

func NewEnvironmentProbe(logger *logrus.Logger) *EnvironmentProbe {
	if logger == nil {
		logger = logrus.New()
	}
	return &EnvironmentProbe{logger: logger}
}

func (p *EnvironmentProbe) Name() models.ProbeName     { return models.ProbeClientEnv }
func (p *EnvironmentProbe) Class() probes.TimeoutClass { return probes.TimeoutFast }

func (p *EnvironmentProbe) Run(ctx context.Context, req *models.ScanRequest) (*models.ProbeReport, error) {
	start := time.Now()

	if req.Client == nil || req.Client.UserAgent == "" {
		return nil, models.NewProbeError(p.Name(), models.ErrKindProbeFailure,
			fmt.Errorf("no client metadata in request"))
	}

	osName, browser := ParseUserAgent(req.Client.UserAgent)
	report := &models.ClientReport{
		UserAgent: req.Client.UserAgent,
		OS:        osName,
		Browser:   browser,
		ClientIP:  req.Client.ClientIP,
		GatewayIP: req.Client.GatewayIP,
	}
	return &models.ProbeReport{Probe: p.Name(), Duration: time.Since(start), Client: report}, nil
}

// ParseUserAgent maps a raw user agent to OS and browser labels. Order
// matters: Edge advertises Chrome, Chrome advertises Safari.
func ParseUserAgent(ua string) (osName, browser string) {
	osName = "Unknown"
	browser = "Unknown"

	switch {
	case strings.Contains(ua, "Windows NT 10"):
		osName = "Windows 10/11"
	case strings.Contains(ua, "Windows NT 6.3"):
		osName = "Windows 8.1"
	case strings.Contains(ua, "Windows NT 6.2"):
		osName = "Windows 8"
	case strings.Contains(ua, "Windows NT 6.1"):
		osName = "Windows 7"
	case strings.Contains(ua, "Windows NT 6.0"):
		osName = "Windows Vista"
	case strings.Contains(ua, "Windows NT 5.1"):
		osName = "Windows XP"
	case strings.Contains(ua, "Mac OS X"):
		if strings.Contains(ua, "iPhone") || strings.Contains(ua, "iPad") {
			osName = "iOS"
		} else {
			osName = "macOS"
		}
	case strings.Contains(ua, "Android"):
		osName = "Android"
	case strings.Contains(ua, "Linux"):
		osName = "Linux"
	case strings.Contains(ua, "FreeBSD"):
		osName = "FreeBSD"
	}

	switch {
	case strings.Contains(ua, "Firefox/"):
		browser = "Firefox"
	case strings.Contains(ua, "Edg/"):
		browser = "Edge"
	case strings.Contains(ua, "OPR/"):
		browser = "Opera"
	case strings.Contains(ua, "Chrome/") && !strings.Contains(ua, "Chromium"):
		browser = "Chrome"
	case strings.Contains(ua, "Safari/") && !strings.Contains(ua, "Chrome"):
		browser = "Safari"
	case strings.Contains(ua, "MSIE") || strings.Contains(ua, "Trident/"):
		browser = "Internet Explorer"
	}

	return osName, browser
}

// HeuristicProbe derives best-effort statements about the client system:
// whether the OS line is still supported and whether the platform ships a
// default firewall. None of this is observed directly.
type HeuristicProbe struct {
	logger *logrus.Logger
}

func NewHeuristicProbe(logger *logrus.Logger) *HeuristicProbe {
	if logger == nil {
		logger = logrus.New()
	}
	return &HeuristicProbe{logger: logger}
}

func (p *HeuristicProbe) Name() models.ProbeName     { return models.ProbeSystemHeuristic }
func (p *HeuristicProbe) Class() probes.TimeoutClass { return probes.TimeoutFast }

// endOfLifeOS are OS labels whose vendor no longer ships security fixes.
var endOfLifeOS = map[string]bool{
	"Windows 8.1":   true,
	"Windows 8":     true,
	"Windows 7":     true,
	"Windows Vista": true,
	"Windows XP":    true,
}

// firewallByDefault marks platforms that enable a host firewall out of
// the box.
var firewallByDefault = map[string]bool{
	"Windows 10/11": true,
	"macOS":         true,
	"iOS":           true,
	"Android":       true,
}

func (p *HeuristicProbe) Run(ctx context.Context, req *models.ScanRequest) (*models.ProbeReport, error) {
	start := time.Now()

	if req.Client == nil || req.Client.UserAgent == "" {
		return nil, models.NewProbeError(p.Name(), models.ErrKindProbeFailure,
			fmt.Errorf("no client metadata in request"))
	}

	osName, _ := ParseUserAgent(req.Client.UserAgent)
	report := &models.SystemReport{OS: osName}

	osCheck := models.HeuristicCheck{Name: "os_support", Status: "supported"}
	if endOfLifeOS[osName] {
		osCheck.Status = "end_of_life"
		osCheck.Detail = fmt.Sprintf("%s no longer receives security updates", osName)
	} else if osName == "Unknown" {
		osCheck.Status = "unknown"
	}
	report.Checks = append(report.Checks, osCheck)

	fwCheck := models.HeuristicCheck{Name: "host_firewall", Status: "unknown"}
	if firewallByDefault[osName] {
		fwCheck.Status = "likely_enabled"
		fwCheck.Detail = "platform ships with a default-on firewall"
	}
	report.Checks = append(report.Checks, fwCheck)

	return &models.ProbeReport{Probe: p.Name(), Duration: time.Since(start), System: report}, nil
}
