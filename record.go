package regdns

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/miekg/dns"
)

// Record is one DNS resource record as the registrar stores it.
//
// Name is fully qualified with a trailing dot.
// Priority is only set for record types that carry one, such as MX.
type Record struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	Content  string `json:"content"`
	TTL      int    `json:"ttl"`
	Priority *int   `json:"priority,omitempty"`
}

// UnmarshalJSON accepts ttl and priority as numbers or numeric strings.
// A null or missing priority leaves Priority nil.
func (r *Record) UnmarshalJSON(b []byte) error {
	var w struct {
		Type     string  `json:"type"`
		Name     string  `json:"name"`
		Content  string  `json:"content"`
		TTL      flexInt `json:"ttl"`
		Priority flexInt `json:"priority"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*r = Record{
		Type:    w.Type,
		Name:    w.Name,
		Content: w.Content,
		TTL:     w.TTL.v,
	}
	if w.Priority.set {
		p := w.Priority.v
		r.Priority = &p
	}
	return nil
}

func (r Record) String() string {
	s := fmt.Sprintf("%s %d %s %q", r.Name, r.TTL, r.Type, r.Content)
	if r.Priority != nil {
		s += fmt.Sprintf(" prio=%d", *r.Priority)
	}
	return s
}

// matches reports whether r and o share the same (type, name) key.
// Types compare case-insensitively and names compare as fully qualified names.
func (r Record) matches(o Record) bool {
	return strings.EqualFold(r.Type, o.Type) &&
		strings.EqualFold(dns.Fqdn(r.Name), dns.Fqdn(o.Name))
}

func (r Record) clone() Record {
	if r.Priority != nil {
		p := *r.Priority
		r.Priority = &p
	}
	return r
}

// flexInt decodes a JSON number, a numeric string, or null.
type flexInt struct {
	v   int
	set bool
}

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	s = strings.Trim(s, `"`)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("expected an integer; got %s", b)
	}
	f.v, f.set = n, true
	return nil
}
