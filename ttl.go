package regdns

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/miekg/dns"
)

// FallbackNameserver is used for NS lookups when no resolver is configured in /etc/resolv.conf.
const FallbackNameserver = "1.1.1.1:53"

const dnsTimeout = 5 * time.Second

// DefaultNameserver returns the first resolver listed in /etc/resolv.conf as host:port,
// or FallbackNameserver.
func DefaultNameserver() string {
	cfg, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil || cfg == nil || len(cfg.Servers) == 0 {
		return FallbackNameserver
	}
	port := cfg.Port
	if port == "" {
		port = "53"
	}
	return net.JoinHostPort(cfg.Servers[0], port)
}

// AuthoritativeTTL implements TTLResolver by querying a domain's authoritative nameserver directly.
type AuthoritativeTTL struct {
	// Nameserver is the recursive resolver (host:port) used to find the NS records of a domain.
	Nameserver string
	// Port is the port the authoritative nameserver is queried on. Empty means 53.
	Port string

	client *dns.Client
	logger logr.Logger
}

func NewAuthoritativeTTL(nameserver string) *AuthoritativeTTL {
	if nameserver == "" {
		nameserver = DefaultNameserver()
	}
	return &AuthoritativeTTL{
		Nameserver: nameserver,
		Port:       "53",
		client:     &dns.Client{Timeout: dnsTimeout},
		logger:     logr.Discard(),
	}
}

func (a *AuthoritativeTTL) SetLogger(logger logr.Logger) { a.logger = logger }

func (a *AuthoritativeTTL) exchange(ctx context.Context, m *dns.Msg, server string) (*dns.Msg, error) {
	c := a.client
	if c == nil {
		c = &dns.Client{Timeout: dnsTimeout}
	}
	r, _, err := c.ExchangeContext(ctx, m, server)
	return r, err
}

// Authority returns the host of the first NS record of domain, without the trailing dot.
func (a *AuthoritativeTTL) Authority(ctx context.Context, domain string) (string, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(domain), dns.TypeNS)
	r, err := a.exchange(ctx, m, a.Nameserver)
	if err != nil {
		return "", &TransportError{Op: "NS lookup for " + domain, Err: err}
	}
	for _, rr := range r.Answer {
		if ns, ok := rr.(*dns.NS); ok {
			host := strings.TrimSuffix(ns.Ns, ".")
			a.logger.V(1).Info("found authoritative nameserver", "domain", domain, "nameserver", host)
			return host, nil
		}
	}
	return "", &NoAuthorityError{Domain: domain}
}

// TTL asks nameserver for r without recursion.
// MX answers only count when their exchange equals r.Content; for other types the first answer wins.
// Any failure reports false and the caller keeps its own TTL.
func (a *AuthoritativeTTL) TTL(ctx context.Context, nameserver string, r Record) (int, bool) {
	qtype, ok := dns.StringToType[strings.ToUpper(r.Type)]
	if !ok {
		return 0, false
	}
	port := a.Port
	if port == "" {
		port = "53"
	}
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(r.Name), qtype)
	m.RecursionDesired = false

	resp, err := a.exchange(ctx, m, net.JoinHostPort(nameserver, port))
	if err != nil {
		a.logger.V(1).Info("TTL query failed", "record", r.Name, "type", r.Type, "error", err.Error())
		return 0, false
	}
	for _, rr := range resp.Answer {
		if qtype == dns.TypeMX {
			mx, ok := rr.(*dns.MX)
			if !ok || dns.Fqdn(mx.Mx) != r.Content {
				continue
			}
		}
		return int(rr.Header().Ttl), true
	}
	return 0, false
}

// discoverTTLs overwrites the TTL of every record that its authoritative nameserver answers for.
func discoverTTLs(ctx context.Context, ttls TTLResolver, domain string, records []Record) error {
	ns, err := ttls.Authority(ctx, domain)
	if err != nil {
		return fmt.Errorf("error finding nameserver for %s: %w", domain, err)
	}
	for i := range records {
		if ttl, ok := ttls.TTL(ctx, ns, records[i]); ok {
			records[i].TTL = ttl
		}
	}
	return nil
}
