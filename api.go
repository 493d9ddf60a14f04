package regdns

import (
	"context"
	"net/netip"
)

// Resolver looks up the address a dynamic DNS record should point at.
type Resolver interface {
	Resolve(context.Context) (netip.Addr, error)
}

// Registrar is the subset of the registrar API used by the Client.
// ReplaceRecords always receives the complete record set of the domain.
type Registrar interface {
	Authenticate(ctx context.Context) (AuthToken, error)
	FetchRecords(ctx context.Context, zone Zone, token AuthToken) ([]Record, error)
	ReplaceRecords(ctx context.Context, zone Zone, token AuthToken, records []Record) error
}

// TTLResolver looks up live TTLs from a domain's authoritative nameserver.
type TTLResolver interface {
	// Authority returns the authoritative nameserver host for domain.
	Authority(ctx context.Context, domain string) (string, error)
	// TTL returns the live TTL of r on nameserver, or false when no matching answer was found.
	TTL(ctx context.Context, nameserver string, r Record) (int, bool)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(context.Context) (netip.Addr, error)

func (f ResolverFunc) Resolve(ctx context.Context) (netip.Addr, error) { return f(ctx) }
