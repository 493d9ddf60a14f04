package regdns

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Travis-Britz/regdns/internal/kvstore"
	"github.com/go-logr/logr"
	"github.com/miekg/dns"
)

// DefaultTTL is given to new records and to fetched records that carry no TTL.
const DefaultTTL = 86400

// New returns a Client that manages records of domain.
// domain may be a subdomain; the registrar is addressed with its registrable part.
//
// A registrar must be registered with UsingRegistrarAPI or UsingRegistrar.
// Without other options the public IP is looked up with DefaultIPService,
// TTLs are discovered through the system resolver,
// and the cache only lives as long as the Client.
func New(domain string, options ...Option) (*Client, error) {
	zone, err := SplitDomain(domain)
	if err != nil {
		return nil, fmt.Errorf("regdns.New: %w", err)
	}
	c := &Client{
		domain: strings.ToLower(strings.TrimSuffix(domain, ".")),
		zone:   zone,
		ttls:   NewAuthoritativeTTL(""),
		logger: logr.Discard(),
		now:    time.Now,
	}
	c.resolver, _ = WebResolver(DefaultIPService)
	for i, opt := range options {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("regdns.New: option %d returned an error: %w", i, err)
		}
	}

	if c.registrar == nil {
		return nil, configErrorf("regdns.New: no registrar was registered - use regdns.UsingRegistrarAPI or similar")
	}
	if c.cache == nil {
		c.cache = NewCache(kvstore.NewMemory())
	}

	// dependencies may be registered after WithLogger or UsingHTTPClient, so they are handed out once all options ran
	c.propagate()
	return c, nil
}

// Option configures a Client in New.
type Option func(*Client) error

// UsingRegistrarAPI talks to the registrar API rooted at baseURL.
func UsingRegistrarAPI(baseURL, version string, creds Credentials) Option {
	return func(c *Client) (err error) {
		if c.registrar, err = NewRegistrarClient(baseURL, version, creds); err != nil {
			return fmt.Errorf("regdns.UsingRegistrarAPI: %w", err)
		}
		return nil
	}
}

func UsingRegistrar(registrar Registrar) Option {
	return func(c *Client) error {
		c.registrar = registrar
		return nil
	}
}

func UsingResolver(resolver Resolver) Option {
	return func(c *Client) error {
		if resolver == nil {
			return configErrorf("resolver cannot be nil")
		}
		c.resolver = resolver
		return nil
	}
}

func UsingWebResolver(serviceURL ...string) Option {
	return func(c *Client) (err error) {
		c.resolver, err = WebResolver(serviceURL...)
		return err
	}
}

// UsingNameserver finds authoritative nameservers through the recursive resolver at addr (host:port).
func UsingNameserver(addr string) Option {
	return func(c *Client) error {
		c.ttls = NewAuthoritativeTTL(addr)
		return nil
	}
}

func UsingTTLResolver(ttls TTLResolver) Option {
	return func(c *Client) error {
		c.ttls = ttls
		return nil
	}
}

// WithoutTTLDiscovery keeps the TTLs reported by the registrar.
func WithoutTTLDiscovery() Option {
	return func(c *Client) error {
		c.ttls = nil
		return nil
	}
}

// UsingCache keeps the token and record snapshots in store, so they survive between runs.
func UsingCache(store Store) Option {
	return func(c *Client) error {
		if store == nil {
			return configErrorf("cache store cannot be nil")
		}
		c.cache = NewCache(store)
		return nil
	}
}

func WithLogger(logger logr.Logger) Option {
	return func(c *Client) error {
		c.logger = logger
		return nil
	}
}

func UsingHTTPClient(httpclient *http.Client) Option {
	return func(c *Client) error {
		c.httpClient = httpclient
		return nil
	}
}

func withClock(now func() time.Time) Option {
	return func(c *Client) error {
		c.now = now
		return nil
	}
}

func (c *Client) propagate() {
	type setLogger interface {
		SetLogger(logr.Logger)
	}
	type setHTTPClient interface {
		SetHTTPClient(*http.Client)
	}
	for _, dep := range []any{c.registrar, c.resolver, c.ttls} {
		if l, ok := dep.(setLogger); ok {
			l.SetLogger(c.logger)
		}
		if h, ok := dep.(setHTTPClient); ok && c.httpClient != nil {
			h.SetHTTPClient(c.httpClient)
		}
	}
}

// Client reconciles one record per Run against the registrar.
//
// It should be constructed using New.
type Client struct {
	registrar  Registrar
	resolver   Resolver
	ttls       TTLResolver // nil disables TTL discovery
	cache      *Cache
	httpClient *http.Client
	logger     logr.Logger
	now        func() time.Time

	domain string
	zone   Zone
}

// Zone is the registrable domain the Client submits record sets for.
func (c *Client) Zone() Zone { return c.zone }

// Request describes the record one Run should ensure.
type Request struct {
	// Record is the desired record. Its TTL is used when the record is added.
	// Content may be left empty when DDNS or Mode.Delete is set.
	Record Record
	Mode   Mode
	// DDNS fills an empty Content with the address returned by the Resolver.
	DDNS bool
	// Clear invalidates the cached token and record snapshot before anything else.
	Clear bool
}

// Result reports what Run did.
type Result struct {
	Plan
	// Desired is the record after its content was resolved.
	Desired Record
	// Submitted is true when the new record set was sent to the registrar.
	Submitted bool
}

// Run brings the registrar's record set in line with req.
//
// The token and the fetched record set are cached as soon as they are obtained,
// so a failure in a later step does not lose them.
func (c *Client) Run(ctx context.Context, req Request) (Result, error) {
	if req.Clear {
		if err := c.cache.Invalidate(ctx, c.zone.String()); err != nil {
			return Result{}, err
		}
		c.logger.V(1).Info("cleared cached token and records", "zone", c.zone.String())
	}

	desired, err := c.desired(ctx, req)
	if err != nil {
		return Result{}, err
	}
	res := Result{Desired: desired}

	token, err := c.token(ctx)
	if err != nil {
		return res, err
	}
	records, err := c.records(ctx, token, req.Record.TTL)
	if err != nil {
		return res, err
	}

	res.Plan = Reconcile(records, desired, req.Mode)
	log := c.logger.WithValues("record", desired.Name, "type", desired.Type)
	switch {
	case res.Action == NotFound:
		log.Info("no matching record to delete")
		return res, nil
	case !res.Changed:
		log.Info("record is up to date", "content", desired.Content)
		return res, nil
	case res.DryRun:
		log.Info("dry run, not submitting", "action", res.Action.String(), "content", desired.Content, "records", len(res.Records))
		return res, nil
	}

	if err := c.registrar.ReplaceRecords(ctx, c.zone, token, res.Records); err != nil {
		return res, fmt.Errorf("error updating records of %s: %w", c.zone, err)
	}
	res.Submitted = true
	log.Info("record "+res.Action.String(), "content", desired.Content)

	if err := c.cache.StoreSnapshot(ctx, c.zone.String(), res.Records, c.now()); err != nil {
		return res, err
	}
	return res, nil
}

func (c *Client) desired(ctx context.Context, req Request) (Record, error) {
	d := req.Record.clone()
	d.Type = strings.ToUpper(d.Type)
	if d.Type == "" {
		return d, configErrorf("record type cannot be empty")
	}
	if d.Name == "" {
		d.Name = c.domain
	}
	d.Name = dns.Fqdn(strings.ToLower(d.Name))
	if !dns.IsSubDomain(dns.Fqdn(c.zone.String()), d.Name) {
		return d, configErrorf("record %s is not part of %s", d.Name, c.zone)
	}
	if d.TTL <= 0 {
		d.TTL = DefaultTTL
	}

	if d.Content != "" || req.Mode.Delete {
		return d, nil
	}
	if !req.DDNS {
		return d, configErrorf("record content is required")
	}
	addr, err := c.resolver.Resolve(ctx)
	if err != nil {
		return d, fmt.Errorf("error getting public IP: %w", err)
	}
	switch {
	case d.Type == "A" && !addr.Is4():
		return d, fmt.Errorf("public IP %s is not an IPv4 address", addr)
	case d.Type == "AAAA" && !addr.Is6():
		return d, fmt.Errorf("public IP %s is not an IPv6 address", addr)
	}
	c.logger.V(1).Info("resolved public IP", "ip", addr.String())
	d.Content = addr.String()
	return d, nil
}

func (c *Client) token(ctx context.Context) (AuthToken, error) {
	t, ok, err := c.cache.Token(ctx, c.now())
	if err != nil {
		return AuthToken{}, err
	}
	if ok {
		c.logger.V(1).Info("using cached access token", "expiresAt", t.ExpiresAt())
		return t, nil
	}
	t, err = c.registrar.Authenticate(ctx)
	if err != nil {
		return AuthToken{}, fmt.Errorf("error authenticating: %w", err)
	}
	if err := c.cache.StoreToken(ctx, t); err != nil {
		return AuthToken{}, err
	}
	return t, nil
}

func (c *Client) records(ctx context.Context, token AuthToken, defaultTTL int) ([]Record, error) {
	key := c.zone.String()
	records, ok, err := c.cache.Snapshot(ctx, key, c.now())
	if err != nil {
		return nil, err
	}
	if ok {
		c.logger.V(1).Info("using cached records", "zone", key, "count", len(records))
		return records, nil
	}

	records, err = c.registrar.FetchRecords(ctx, c.zone, token)
	if err != nil {
		return nil, fmt.Errorf("error fetching records of %s: %w", c.zone, err)
	}
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	for i := range records {
		if records[i].TTL <= 0 {
			records[i].TTL = defaultTTL
		}
	}
	if c.ttls != nil {
		if err := discoverTTLs(ctx, c.ttls, key, records); err != nil {
			return nil, err
		}
	}
	if err := c.cache.StoreSnapshot(ctx, key, records, c.now()); err != nil {
		return nil, err
	}
	return records, nil
}

type logf interface {
	Info(msg string, keysAndValues ...any)
	Error(err error, msg string, keysAndValues ...any)
}

// RunDaemon repeats req every interval until ctx is done.
// Errors are logged and do not stop the loop; with a nil logger they go to the Client's logger.
// It blocks, and runs req once right away. req.Clear only applies to that first run.
func RunDaemon(ctx context.Context, c *Client, req Request, interval time.Duration, logger logf) {
	if interval < 1*time.Minute {
		interval = 1 * time.Minute
	}
	if logger == nil {
		logger = c.logger
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := c.Run(ctx, req); err != nil {
			logger.Error(err, "regdns.RunDaemon: run failed")
		}
		req.Clear = false
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
