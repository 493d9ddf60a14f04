package regdns

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"sync"

	"github.com/go-logr/logr"
)

// DefaultIPService is queried for the public IP address when no other source is configured.
const DefaultIPService = "https://checkip.amazonaws.com/"

// WebResolver constructs a resolver which uses external web services to look up a "public" IP address.
//
// Each serviceURL must speak http and return status "200 OK",
// with a valid IPv4 or IPv6 address as the first line of the response body.
// All other responses are considered an error.
//
// With a single serviceURL the resolver returns its answer.
// With several, up to three of them are asked concurrently and the resolver
// only succeeds once two of them agree on the address.
func WebResolver(serviceURL ...string) (Resolver, error) {
	if len(serviceURL) == 0 {
		return nil, configErrorf("no IP lookup service was provided")
	}
	var URLs []*url.URL
	for _, u := range serviceURL {
		pu, err := url.Parse(u)
		if err != nil {
			return nil, configErrorf("invalid IP lookup URL %q: %s", u, err)
		}
		if pu.Scheme != "http" && pu.Scheme != "https" {
			return nil, configErrorf("invalid IP lookup URL %q: scheme must be http or https", u)
		}
		URLs = append(URLs, pu)
	}
	return &webResolver{serviceURLs: URLs, logger: logr.Discard()}, nil
}

type webResolver struct {
	httpClient  *http.Client
	serviceURLs []*url.URL
	logger      logr.Logger
}

func (wr *webResolver) SetLogger(logger logr.Logger) { wr.logger = logger }

func (wr *webResolver) SetHTTPClient(httpClient *http.Client) { wr.httpClient = httpClient }

// Resolve implements regdns.Resolver.
func (wr *webResolver) Resolve(ctx context.Context) (netip.Addr, error) {
	if len(wr.serviceURLs) == 1 {
		return wr.lookup(ctx, wr.serviceURLs[0])
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		addr netip.Addr
		err  error
	}

	useCount := min(len(wr.serviceURLs), 3)
	results := make(chan result, useCount)
	var wg sync.WaitGroup
	wg.Add(useCount)
	for _, u := range wr.serviceURLs[:useCount] {
		u := u
		go func() {
			defer wg.Done()
			r := result{}
			r.addr, r.err = wr.lookup(ctx, u)
			results <- r
		}()
	}
	go func() { wg.Wait(); close(results) }()

	seen := map[netip.Addr]bool{}
	var errs []error
	for r := range results {
		if r.err != nil {
			errs = append(errs, r.err)
			continue
		}
		if seen[r.addr] {
			return r.addr, nil
		}
		seen[r.addr] = true
	}
	if len(seen) < 2 {
		return netip.Addr{}, fmt.Errorf("not enough IP lookup services responded without errors: %w", errors.Join(errs...))
	}
	return netip.Addr{}, errors.New("IP lookup services did not agree on our IP")
}

func (wr *webResolver) lookup(ctx context.Context, u *url.URL) (netip.Addr, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")

	httpclient := wr.httpClient
	if httpclient == nil {
		httpclient = &http.Client{Timeout: DefaultTimeout}
	}

	resp, err := httpclient.Do(req)
	if err != nil {
		return netip.Addr{}, &TransportError{Op: "IP lookup", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return netip.Addr{}, fmt.Errorf("IP lookup at %s returned %s", u.Host, resp.Status)
	}

	scanner := bufio.NewReader(io.LimitReader(resp.Body, maxBodySize))
	ipstring, _ := scanner.ReadString('\n')
	ip, err := netip.ParseAddr(strings.TrimSpace(ipstring))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("error parsing IP address from response body: %w", err)
	}
	ip = ip.Unmap()
	wr.logger.V(1).Info("looked up public IP", "service", u.Host, "ip", ip.String())
	return ip, nil
}
