// Package tlscheck implements the TLS certificate and protocol probe.
package tlscheck

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bl4ck0w1/riskprobe/internal/probes"
	"github.com/bl4ck0w1/riskprobe/pkg/models"
)

// TLSProbe handshakes the target and inspects the certificate chain,
// negotiated protocol and cipher suite. The handshake deliberately skips
// library verification so an invalid chain can still be examined; chain
// validity is re-checked explicitly against the system roots.
type TLSProbe struct {
	config models.TLSConfig
	logger *logrus.Logger
}

func NewTLSProbe(config models.TLSConfig, logger *logrus.Logger) *TLSProbe {
	if logger == nil {
		logger = logrus.New()
	}
	if config.Port == 0 {
		config.Port = 443
	}
	if config.HandshakeTimeout <= 0 {
		config.HandshakeTimeout = 10 * time.Second
	}
	if config.ExpiryWarning <= 0 {
		config.ExpiryWarning = 30 * 24 * time.Hour
	}
	return &TLSProbe{config: config, logger: logger}
}

func (p *TLSProbe) Name() models.ProbeName     { return models.ProbeTLS }
func (p *TLSProbe) Class() probes.TimeoutClass { return probes.TimeoutHeavy }

func (p *TLSProbe) Run(ctx context.Context, req *models.ScanRequest) (*models.ProbeReport, error) {
	start := time.Now()
	report := &models.TLSReport{
		Host: req.Target,
		Port: p.config.Port,
	}

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: p.config.HandshakeTimeout},
		Config: &tls.Config{
			ServerName:         req.Target,
			InsecureSkipVerify: true,
			MinVersion:         tls.VersionTLS10,
		},
	}
	addr := net.JoinHostPort(req.Target, strconv.Itoa(p.config.Port))
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		// An unreachable 443 is a valid observation, not a scan failure.
		p.logger.WithFields(logrus.Fields{"target": req.Target, "error": err}).Debug("tls handshake failed")
		return &models.ProbeReport{Probe: p.Name(), Duration: time.Since(start), TLS: report},
			models.NewProbeError(p.Name(), models.ErrKindTLSHandshake, err)
	}
	defer conn.Close()

	tlsConn := conn.(*tls.Conn)
	state := tlsConn.ConnectionState()
	report.Reachable = true
	report.Protocol = tls.VersionName(state.Version)
	report.CipherSuite = tls.CipherSuiteName(state.CipherSuite)
	report.WeakProtocol = state.Version < tls.VersionTLS12
	report.WeakCipher = isWeakCipher(report.CipherSuite)

	if len(state.PeerCertificates) == 0 {
		return &models.ProbeReport{Probe: p.Name(), Duration: time.Since(start), TLS: report}, nil
	}

	leaf := state.PeerCertificates[0]
	report.Subject = leaf.Subject.String()
	report.Issuer = leaf.Issuer.String()
	report.NotBefore = leaf.NotBefore
	report.NotAfter = leaf.NotAfter
	report.DNSNames = leaf.DNSNames
	report.SignatureScheme = leaf.SignatureAlgorithm.String()

	now := time.Now()
	report.Expired = now.After(leaf.NotAfter)
	report.DaysToExpiry = int(leaf.NotAfter.Sub(now).Hours() / 24)
	report.SelfSigned = len(state.PeerCertificates) == 1 && leaf.Issuer.String() == leaf.Subject.String()

	report.ChainValid, report.ChainError = verifyChain(req.Target, state.PeerCertificates)

	return &models.ProbeReport{Probe: p.Name(), Duration: time.Since(start), TLS: report}, nil
}

func verifyChain(host string, chain []*x509.Certificate) (bool, string) {
	intermediates := x509.NewCertPool()
	for _, cert := range chain[1:] {
		intermediates.AddCert(cert)
	}
	_, err := chain[0].Verify(x509.VerifyOptions{
		DNSName:       host,
		Intermediates: intermediates,
	})
	if err != nil {
		return false, err.Error()
	}
	return true, ""
}

// isWeakCipher flags suites with broken primitives or no forward secrecy.
func isWeakCipher(name string) bool {
	for _, marker := range []string{"RC4", "3DES", "DES", "NULL", "EXPORT", "MD5"} {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}

// ExpiryStatus summarizes the expiry window for logging.
func ExpiryStatus(report *models.TLSReport, warningWindow time.Duration) string {
	switch {
	case report.Expired:
		return "expired"
	case time.Duration(report.DaysToExpiry)*24*time.Hour <= warningWindow:
		return fmt.Sprintf("expiring in %d days", report.DaysToExpiry)
	default:
		return "valid"
	}
}
