package regdns_test

import (
	"errors"
	"testing"

	"github.com/Travis-Britz/regdns"
)

func TestSplitDomain(t *testing.T) {
	tests := []struct {
		domain string
		want   regdns.Zone
	}{
		{"example.com", regdns.Zone{SLD: "example", TLD: "com"}},
		{"Example.COM.", regdns.Zone{SLD: "example", TLD: "com"}},
		{"home.example.com", regdns.Zone{SLD: "example", TLD: "com"}},
		{"example.co.uk", regdns.Zone{SLD: "example", TLD: "co.uk"}},
		{"a.b.example.co.uk", regdns.Zone{SLD: "example", TLD: "co.uk"}},
	}
	for _, tt := range tests {
		got, err := regdns.SplitDomain(tt.domain)
		if err != nil {
			t.Fatalf("SplitDomain(%q) failed: %s", tt.domain, err)
		}
		if got != tt.want {
			t.Fatalf("SplitDomain(%q): Expected %+v; got %+v", tt.domain, tt.want, got)
		}
	}
	if expected, got := "example.co.uk", (regdns.Zone{SLD: "example", TLD: "co.uk"}).String(); expected != got {
		t.Fatalf("Expected %q; got %q", expected, got)
	}
}

func TestSplitDomainInvalid(t *testing.T) {
	for _, domain := range []string{"", "localhost", "co.uk", "."} {
		_, err := regdns.SplitDomain(domain)
		var ce *regdns.ConfigError
		if !errors.As(err, &ce) {
			t.Fatalf("Expected a ConfigError for %q; got %v", domain, err)
		}
	}
}
