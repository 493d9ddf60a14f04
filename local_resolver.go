package regdns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
)

// InterfaceResolver constructs a resolver that returns the first non-loopback IPv4 address
// reported by the given interfaces, checked in order.
// This suits hosts whose public address is assigned directly to a local interface.
func InterfaceResolver(iface ...string) Resolver {
	return interfaceResolver{ifaces: iface}
}

type interfaceResolver struct {
	ifaces []string
}

func (r interfaceResolver) Resolve(ctx context.Context) (netip.Addr, error) {
	if len(r.ifaces) == 0 {
		addrs, err := net.InterfaceAddrs()
		if err != nil {
			return netip.Addr{}, fmt.Errorf("error getting interface addresses: %w", err)
		}
		return firstIPv4(addrs, "any interface")
	}

	var errs []error
	for _, ifs := range r.ifaces {
		iface, err := net.InterfaceByName(ifs)
		if err != nil {
			errs = append(errs, fmt.Errorf("error getting interface %s by name: %w", ifs, err))
			continue
		}
		a, err := iface.Addrs()
		if err != nil {
			errs = append(errs, fmt.Errorf("error looking up addresses for interface %s: %w", ifs, err))
			continue
		}
		addr, err := firstIPv4(a, ifs)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		return addr, nil
	}
	return netip.Addr{}, errors.Join(errs...)
}

// addr: ip+net:192.168.86.253/24
// addr: ip+net:fe80::2cc9:801b:3551:9a43/64
func firstIPv4(addrs []net.Addr, source string) (netip.Addr, error) {
	for _, addr := range addrs {
		ip, err := netip.ParsePrefix(addr.String())
		if err != nil {
			continue
		}
		a := ip.Addr().Unmap()
		if a.IsLoopback() || !a.Is4() {
			continue
		}
		return a, nil
	}
	return netip.Addr{}, fmt.Errorf("no non-loopback IPv4 address found on %s", source)
}
