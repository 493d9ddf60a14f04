package regdns

import (
	"context"
	"net/netip"
	"strings"
)

// FromString constructs a resolver that always returns addr.
// It is used when the address is known ahead of time, e.g. handed over by a router hook.
func FromString(addr string) (Resolver, error) {
	a, err := netip.ParseAddr(addr)
	if err != nil {
		return nil, configErrorf("unable to parse IP %q: %s", addr, err)
	}
	return staticResolver(a.Unmap()), nil
}

type staticResolver netip.Addr

func (s staticResolver) Resolve(context.Context) (netip.Addr, error) {
	return netip.Addr(s), nil
}

// ParseResolver builds the resolver named by source.
// "iface:<name>" reads a local interface, http and https URLs query a web service
// (several may be separated by commas), and anything else must be a literal IP address.
// An empty source uses DefaultIPService.
func ParseResolver(source string) (Resolver, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return WebResolver(DefaultIPService)
	}
	if name, ok := strings.CutPrefix(source, "iface:"); ok {
		if name == "" {
			return nil, configErrorf("getip %q does not name an interface", source)
		}
		return InterfaceResolver(name), nil
	}
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		var urls []string
		for _, u := range strings.Split(source, ",") {
			if u = strings.TrimSpace(u); u != "" {
				urls = append(urls, u)
			}
		}
		return WebResolver(urls...)
	}
	if _, err := netip.ParseAddr(source); err != nil {
		return nil, configErrorf("getip %q is not a URL, an interface, or an IP address", source)
	}
	return FromString(source)
}
