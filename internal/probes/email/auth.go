package email

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/errgroup"

	"github.com/bl4ck0w1/riskprobe/internal/probes"
	"github.com/bl4ck0w1/riskprobe/pkg/models"
)

// AuthProbe checks the target domain's SPF, DMARC and DKIM posture. When
// resolution fails outright it still returns a report with nothing found,
// so missing records are surfaced as findings alongside the probe error.
type AuthProbe struct {
	config   models.EmailConfig
	resolver *Resolver
	logger   *logrus.Logger
}

func NewAuthProbe(config models.EmailConfig, logger *logrus.Logger) *AuthProbe {
	if logger == nil {
		logger = logrus.New()
	}
	if len(config.DKIMSelectors) == 0 {
		config.DKIMSelectors = models.DefaultDKIMSelectors()
	}
	if config.QueryTimeout <= 0 {
		config.QueryTimeout = 5 * time.Second
	}
	return &AuthProbe{
		config:   config,
		resolver: NewResolver(config.Nameservers, config.QueryTimeout, logger),
		logger:   logger,
	}
}

func (p *AuthProbe) Name() models.ProbeName     { return models.ProbeEmailAuth }
func (p *AuthProbe) Class() probes.TimeoutClass { return probes.TimeoutFast }

func (p *AuthProbe) Run(ctx context.Context, req *models.ScanRequest) (*models.ProbeReport, error) {
	start := time.Now()

	if net.ParseIP(req.Target) != nil {
		return nil, models.NewProbeError(p.Name(), models.ErrKindProbeFailure,
			fmt.Errorf("email auth checks need a domain, got IP %s", req.Target))
	}

	domain := req.Target
	orgDomain, err := publicsuffix.EffectiveTLDPlusOne(domain)
	if err != nil {
		orgDomain = domain
	}

	report := &models.EmailAuthReport{Domain: domain}

	var spfErr, dmarcErr error
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		report.SPF, spfErr = p.checkSPF(gctx, domain)
		return nil
	})
	g.Go(func() error {
		report.DMARC, dmarcErr = p.checkDMARC(gctx, orgDomain)
		return nil
	})
	g.Go(func() error {
		report.DKIM = p.checkDKIM(gctx, domain)
		return nil
	})
	g.Wait()

	probeReport := &models.ProbeReport{Probe: p.Name(), Duration: time.Since(start), Email: report}

	if errors.Is(spfErr, ErrNXDomain) {
		// The domain itself does not resolve. The empty report still
		// carries signal: no SPF and no DMARC protections exist.
		report.ResolutionFailed = true
		return probeReport, models.NewProbeError(p.Name(), models.ErrKindDNS, spfErr)
	}
	if spfErr != nil {
		return probeReport, models.NewProbeError(p.Name(), models.ErrKindDNS, spfErr)
	}
	if dmarcErr != nil && !errors.Is(dmarcErr, ErrNXDomain) {
		p.logger.WithFields(logrus.Fields{"domain": orgDomain, "error": dmarcErr}).Debug("dmarc lookup failed")
	}

	return probeReport, nil
}

func (p *AuthProbe) checkSPF(ctx context.Context, domain string) (models.RecordCheck, error) {
	records, err := retryLookup(ctx, p.config.RetryAttempts, func() ([]string, error) {
		return p.resolver.LookupTXT(ctx, domain)
	})
	if err != nil {
		return models.RecordCheck{}, err
	}

	for _, record := range records {
		if !strings.HasPrefix(strings.ToLower(record), "v=spf1") {
			continue
		}
		return models.RecordCheck{
			Found:  true,
			Record: record,
			Policy: spfAllQualifier(record),
		}, nil
	}
	return models.RecordCheck{}, nil
}

// spfAllQualifier extracts the qualifier on the final all mechanism.
// A bare "all" is equivalent to "+all".
func spfAllQualifier(record string) string {
	for _, field := range strings.Fields(strings.ToLower(record)) {
		switch field {
		case "-all", "~all", "?all":
			return field
		case "all", "+all":
			return "+all"
		}
	}
	return ""
}

func (p *AuthProbe) checkDMARC(ctx context.Context, orgDomain string) (models.RecordCheck, error) {
	records, err := retryLookup(ctx, p.config.RetryAttempts, func() ([]string, error) {
		return p.resolver.LookupTXT(ctx, "_dmarc."+orgDomain)
	})
	if err != nil {
		return models.RecordCheck{}, err
	}

	for _, record := range records {
		if !strings.HasPrefix(strings.ToLower(record), "v=dmarc1") {
			continue
		}
		return models.RecordCheck{
			Found:  true,
			Record: record,
			Policy: dmarcPolicy(record),
		}, nil
	}
	return models.RecordCheck{}, nil
}

func dmarcPolicy(record string) string {
	for _, field := range strings.Split(record, ";") {
		field = strings.TrimSpace(strings.ToLower(field))
		if rest, found := strings.CutPrefix(field, "p="); found {
			return rest
		}
	}
	return ""
}

// checkDKIM tries the well-known selectors and reports the first that
// answers with a key record. No answer means unconfirmed, not absent:
// the real selector may simply not be guessable.
func (p *AuthProbe) checkDKIM(ctx context.Context, domain string) models.DKIMCheck {
	for _, selector := range p.config.DKIMSelectors {
		if ctx.Err() != nil {
			break
		}
		name := selector + "._domainkey." + domain
		records, err := p.resolver.LookupTXT(ctx, name)
		if err != nil {
			continue
		}
		for _, record := range records {
			lower := strings.ToLower(record)
			if strings.Contains(lower, "v=dkim1") || strings.Contains(lower, "k=rsa") {
				return models.DKIMCheck{Confirmed: true, Selector: selector}
			}
		}
	}
	return models.DKIMCheck{}
}
