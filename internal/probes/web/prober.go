// Package web implements the HTTP-layer probe: security headers, exposed
// content and CMS fingerprinting.
package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"github.com/bl4ck0w1/riskprobe/internal/probes"
	"github.com/bl4ck0w1/riskprobe/pkg/models"
)

// WebProbe fetches the target's front page and a list of well-known
// sensitive paths, then inspects headers and bodies. It prefers HTTPS and
// falls back to plain HTTP when the TLS endpoint does not answer.
type WebProbe struct {
	config    models.WebConfig
	client    *http.Client
	userAgent string
	logger    *logrus.Logger
}

func NewWebProbe(config models.WebConfig, userAgent string, logger *logrus.Logger) *WebProbe {
	if logger == nil {
		logger = logrus.New()
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 10 * time.Second
	}
	if config.MaxRedirects <= 0 {
		config.MaxRedirects = 5
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = 2 << 20
	}
	if userAgent == "" {
		userAgent = "riskprobe/1.0"
	}

	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     30 * time.Second,
		DisableCompression:  false,
	}
	client := &http.Client{
		Timeout:   config.RequestTimeout,
		Transport: transport,
	}
	maxRedirects := config.MaxRedirects
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		return nil
	}

	return &WebProbe{config: config, client: client, userAgent: userAgent, logger: logger}
}

func (p *WebProbe) Name() models.ProbeName     { return models.ProbeWebSecurity }
func (p *WebProbe) Class() probes.TimeoutClass { return probes.TimeoutHeavy }

func (p *WebProbe) Run(ctx context.Context, req *models.ScanRequest) (*models.ProbeReport, error) {
	start := time.Now()

	resp, body, baseURL, err := p.fetchFront(ctx, req.Target)
	if err != nil {
		return nil, models.NewProbeError(p.Name(), models.ErrKindHTTPRequest, err)
	}

	report := &models.WebReport{
		URL:        baseURL,
		StatusCode: resp.StatusCode,
		Server:     resp.Header.Get("Server"),
		BodyHash:   fmt.Sprintf("%016x", xxh3.Hash(body)),
	}
	report.Headers, report.HeaderRatio = checkSecurityHeaders(resp.Header)
	report.DirectoryListing = looksLikeDirectoryListing(body)
	report.CMS = detectCMS(resp.Header, body)

	matches := scanForSecrets(body)
	matches = append(matches, p.crawlSensitivePaths(ctx, baseURL)...)
	report.SensitiveContent = matches

	p.logger.WithFields(logrus.Fields{
		"target":    req.Target,
		"status":    resp.StatusCode,
		"sensitive": len(matches),
		"elapsed":   time.Since(start),
	}).Debug("web probe finished")

	return &models.ProbeReport{Probe: p.Name(), Duration: time.Since(start), Web: report}, nil
}

// fetchFront tries HTTPS first, then HTTP. The response body is read up to
// the configured cap and the caller gets the drained bytes.
func (p *WebProbe) fetchFront(ctx context.Context, target string) (*http.Response, []byte, string, error) {
	var lastErr error
	for _, scheme := range []string{"https", "http"} {
		base := scheme + "://" + target
		resp, body, err := p.get(ctx, base+"/")
		if err != nil {
			lastErr = err
			continue
		}
		return resp, body, base, nil
	}
	return nil, nil, "", lastErr
}

func (p *WebProbe) get(ctx context.Context, url string) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,*/*;q=0.8")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, p.config.MaxBodyBytes))
	if err != nil {
		return nil, nil, err
	}
	return resp, body, nil
}

// crawlSensitivePaths requests each well-known path and records the ones
// that answer 200 with content.
func (p *WebProbe) crawlSensitivePaths(ctx context.Context, baseURL string) []models.SensitiveMatch {
	paths := p.config.SensitivePaths
	if p.config.CrawlPaths > 0 && len(paths) > p.config.CrawlPaths {
		paths = paths[:p.config.CrawlPaths]
	}

	var (
		mu      sync.Mutex
		matches []models.SensitiveMatch
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(5)

	for _, path := range paths {
		path := path
		g.Go(func() error {
			resp, body, err := p.get(gctx, baseURL+path)
			if err != nil || resp.StatusCode != http.StatusOK || len(body) == 0 {
				return nil
			}
			mu.Lock()
			matches = append(matches, models.SensitiveMatch{
				Kind:   "path",
				Path:   path,
				Detail: fmt.Sprintf("answered 200 with %d bytes", len(body)),
			})
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	return matches
}

func looksLikeDirectoryListing(body []byte) bool {
	text := strings.ToLower(string(body))
	return strings.Contains(text, "<title>index of /") ||
		strings.Contains(text, ">parent directory<")
}
