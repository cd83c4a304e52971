// Package email implements the SPF/DKIM/DMARC posture probe.
package email

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"
)

// Resolver issues TXT queries over UDP with automatic TCP fallback on
// truncation, rotating across the configured nameservers.
type Resolver struct {
	servers []string
	udp     *dns.Client
	tcp     *dns.Client
	next    atomic.Uint32
	logger  *logrus.Logger
}

func NewResolver(servers []string, timeout time.Duration, logger *logrus.Logger) *Resolver {
	if logger == nil {
		logger = logrus.New()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if len(servers) == 0 {
		servers = systemResolvers()
	}
	for i, s := range servers {
		if _, _, err := net.SplitHostPort(s); err != nil {
			servers[i] = net.JoinHostPort(s, "53")
		}
	}
	return &Resolver{
		servers: servers,
		udp:     &dns.Client{Net: "udp", Timeout: timeout},
		tcp:     &dns.Client{Net: "tcp", Timeout: timeout},
		logger:  logger,
	}
}

// LookupTXT returns the TXT strings for name, with each record's chunks
// joined. A name that does not exist returns ErrNXDomain.
func (r *Resolver) LookupTXT(ctx context.Context, name string) ([]string, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), dns.TypeTXT)
	msg.RecursionDesired = true

	server := r.pickServer()
	resp, _, err := r.udp.ExchangeContext(ctx, msg, server)
	if err == nil && resp.Truncated {
		resp, _, err = r.tcp.ExchangeContext(ctx, msg, server)
	}
	if err != nil {
		return nil, fmt.Errorf("txt query %s via %s: %w", name, server, err)
	}

	switch resp.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		return nil, fmt.Errorf("%s: %w", name, ErrNXDomain)
	default:
		return nil, fmt.Errorf("txt query %s: rcode %s", name, dns.RcodeToString[resp.Rcode])
	}

	var records []string
	for _, rr := range resp.Answer {
		if txt, ok := rr.(*dns.TXT); ok {
			records = append(records, strings.Join(txt.Txt, ""))
		}
	}
	return records, nil
}

func (r *Resolver) pickServer() string {
	idx := r.next.Add(1)
	return r.servers[int(idx)%len(r.servers)]
}

// systemResolvers reads /etc/resolv.conf, falling back to public resolvers
// when nothing usable is configured.
func systemResolvers() []string {
	fallback := []string{"1.1.1.1:53", "8.8.8.8:53", "9.9.9.9:53"}

	f, err := os.Open("/etc/resolv.conf")
	if err != nil {
		return fallback
	}
	defer f.Close()

	var servers []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) >= 2 && fields[0] == "nameserver" {
			if ip := net.ParseIP(fields[1]); ip != nil {
				servers = append(servers, net.JoinHostPort(fields[1], "53"))
			}
		}
	}
	if len(servers) == 0 {
		return fallback
	}
	return servers
}
