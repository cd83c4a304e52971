// Package network implements the TCP port sweep probe.
package network

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/bl4ck0w1/riskprobe/internal/probes"
	"github.com/bl4ck0w1/riskprobe/pkg/models"
)

// PortProbe sweeps the configured well-known ports with plain TCP connect
// attempts. A port is reported open only on a completed handshake; closed
// and filtered ports are indistinguishable and both stay silent.
type PortProbe struct {
	config  models.NetworkConfig
	dialer  *net.Dialer
	limiter *rate.Limiter
	logger  *logrus.Logger
}

func NewPortProbe(config models.NetworkConfig, logger *logrus.Logger) *PortProbe {
	if logger == nil {
		logger = logrus.New()
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 20
	}
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = 2 * time.Second
	}
	limit := rate.Inf
	if config.RateLimit > 0 {
		limit = rate.Limit(config.RateLimit)
	}
	return &PortProbe{
		config:  config,
		dialer:  &net.Dialer{Timeout: config.ConnectTimeout},
		limiter: rate.NewLimiter(limit, config.Concurrency),
		logger:  logger,
	}
}

func (p *PortProbe) Name() models.ProbeName     { return models.ProbeNetworkPorts }
func (p *PortProbe) Class() probes.TimeoutClass { return probes.TimeoutHeavy }

func (p *PortProbe) Run(ctx context.Context, req *models.ScanRequest) (*models.ProbeReport, error) {
	start := time.Now()

	report := &models.PortScanReport{
		Target:  req.Target,
		Scanned: len(p.config.Ports),
	}

	addrs, err := net.DefaultResolver.LookupHost(ctx, req.Target)
	if err != nil {
		return nil, models.NewProbeError(p.Name(), models.ErrKindDNS, err)
	}
	report.ResolvedIP = addrs[0]

	if names, rerr := net.DefaultResolver.LookupAddr(ctx, report.ResolvedIP); rerr == nil && len(names) > 0 {
		report.ReverseDNS = names[0]
	}
	if req.Client != nil {
		report.GatewayInfo = describeGateway(req.Client.GatewayIP)
	}

	var (
		mu   sync.Mutex
		open []models.OpenPort
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.Concurrency)

	for _, rule := range p.config.Ports {
		rule := rule
		g.Go(func() error {
			if err := p.limiter.Wait(gctx); err != nil {
				return err
			}
			if !p.connect(gctx, report.ResolvedIP, rule.Port) {
				return nil
			}
			mu.Lock()
			open = append(open, models.OpenPort{
				Port:    rule.Port,
				Service: rule.Service,
				Tier:    rule.Tier,
				Warning: rule.Warning,
			})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		// Partial sweeps still report what connected before cancellation.
		p.logger.WithFields(logrus.Fields{
			"target": req.Target,
			"error":  err,
		}).Warn("port sweep interrupted")
	}

	sort.Slice(open, func(i, j int) bool { return open[i].Port < open[j].Port })
	report.OpenPorts = open

	p.logger.WithFields(logrus.Fields{
		"target":  req.Target,
		"scanned": report.Scanned,
		"open":    len(open),
		"elapsed": time.Since(start),
	}).Debug("port sweep finished")

	return &models.ProbeReport{
		Probe:    p.Name(),
		Duration: time.Since(start),
		Ports:    report,
	}, nil
}

func (p *PortProbe) connect(ctx context.Context, host string, port int) bool {
	conn, err := p.dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// describeGateway classifies a client-reported gateway address. The value
// is untrusted input, so anything unparsable is dropped.
func describeGateway(gatewayIP string) string {
	ip := net.ParseIP(gatewayIP)
	if ip == nil {
		return ""
	}
	if ip.IsPrivate() {
		return fmt.Sprintf("private gateway %s", ip)
	}
	if ip.IsLoopback() {
		return ""
	}
	return fmt.Sprintf("public gateway %s", ip)
}
