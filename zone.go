package regdns

import (
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Zone is a registrable domain split into its second-level and top-level parts,
// e.g. "example" and "co.uk".
type Zone struct {
	SLD string
	TLD string
}

func (z Zone) String() string { return z.SLD + "." + z.TLD }

// SplitDomain finds the registrable domain of domain using the public suffix list.
// domain may include subdomain labels and a trailing dot.
func SplitDomain(domain string) (Zone, error) {
	d := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(domain), "."))
	if d == "" {
		return Zone{}, configErrorf("domain cannot be empty")
	}
	if !strings.Contains(d, ".") {
		return Zone{}, configErrorf("domain %q must have at least one dot", domain)
	}
	etld1, err := publicsuffix.EffectiveTLDPlusOne(d)
	if err != nil {
		return Zone{}, configErrorf("invalid domain %q: %s", domain, err)
	}
	tld, _ := publicsuffix.PublicSuffix(etld1)
	return Zone{SLD: strings.TrimSuffix(etld1, "."+tld), TLD: tld}, nil
}
