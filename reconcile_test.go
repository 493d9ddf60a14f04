package regdns_test

import (
	"testing"

	"github.com/Travis-Britz/regdns"
	"github.com/google/go-cmp/cmp"
)

func prio(n int) *int { return &n }

func txt(name, content string, ttl int) regdns.Record {
	return regdns.Record{Type: "TXT", Name: name, Content: content, TTL: ttl}
}

// zoneRecords is a realistic record set with unrelated records around the ones under test.
func zoneRecords() []regdns.Record {
	return []regdns.Record{
		{Type: "A", Name: "example.com.", Content: "192.0.2.1", TTL: 3600},
		{Type: "MX", Name: "example.com.", Content: "mail.example.com.", TTL: 14400, Priority: prio(10)},
		txt("_acme-challenge.example.com.", "old", 300),
		{Type: "CNAME", Name: "www.example.com.", Content: "example.com.", TTL: 3600},
		txt("example.com.", "v=spf1 -all", 3600),
	}
}

func TestReconcileUpdate(t *testing.T) {
	current := []regdns.Record{txt("_acme-challenge.example.com.", "old", 86400)}
	desired := txt("_acme-challenge.example.com.", "abc123", 86400)

	p := regdns.Reconcile(current, desired, regdns.Mode{})
	if !p.Changed || p.Action != regdns.Updated {
		t.Fatalf("Expected an update; got changed=%v action=%s", p.Changed, p.Action)
	}
	want := []regdns.Record{txt("_acme-challenge.example.com.", "abc123", 86400)}
	if diff := cmp.Diff(want, p.Records); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
	if p.Old == nil || p.Old.Content != "old" {
		t.Fatalf("Expected the old record to be reported; got %v", p.Old)
	}
}

func TestReconcileDDNSUnchanged(t *testing.T) {
	current := []regdns.Record{{Type: "A", Name: "home.example.com.", Content: "1.2.3.4", TTL: 3600}}
	desired := regdns.Record{Type: "A", Name: "home.example.com.", Content: "1.2.3.4", TTL: 86400}

	p := regdns.Reconcile(current, desired, regdns.Mode{})
	if p.Changed || p.Action != regdns.Unchanged {
		t.Fatalf("Expected no change; got changed=%v action=%s", p.Changed, p.Action)
	}
	if diff := cmp.Diff(current, p.Records); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcileKeepsTTLAndPriority(t *testing.T) {
	current := zoneRecords()
	desired := regdns.Record{Type: "MX", Name: "example.com.", Content: "mx.example.net.", TTL: 86400, Priority: prio(50)}

	p := regdns.Reconcile(current, desired, regdns.Mode{})
	got := p.Records[1]
	if got.Content != "mx.example.net." {
		t.Fatalf("Expected content to be replaced; got %q", got.Content)
	}
	if got.TTL != 14400 {
		t.Fatalf("Expected TTL 14400 from the old record; got %d", got.TTL)
	}
	if got.Priority == nil || *got.Priority != 10 {
		t.Fatalf("Expected priority 10 from the old record; got %v", got.Priority)
	}
}

func TestReconcilePreservesOrder(t *testing.T) {
	current := zoneRecords()
	desired := txt("_acme-challenge.example.com.", "new", 86400)

	p := regdns.Reconcile(current, desired, regdns.Mode{})
	want := zoneRecords()
	want[2].Content = "new"
	if diff := cmp.Diff(want, p.Records); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcileIdempotent(t *testing.T) {
	desired := txt("_acme-challenge.example.com.", "new", 86400)
	first := regdns.Reconcile(zoneRecords(), desired, regdns.Mode{})
	if !first.Changed {
		t.Fatal("Expected first run to change records")
	}
	second := regdns.Reconcile(first.Records, desired, regdns.Mode{})
	if second.Changed || second.Action != regdns.Unchanged {
		t.Fatalf("Expected second run to be a no-op; got action %s", second.Action)
	}
	if diff := cmp.Diff(first.Records, second.Records); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcileFirstMatchOnly(t *testing.T) {
	current := []regdns.Record{
		txt("_acme-challenge.example.com.", "one", 300),
		txt("_acme-challenge.example.com.", "two", 300),
	}
	desired := txt("_acme-challenge.example.com.", "three", 86400)

	p := regdns.Reconcile(current, desired, regdns.Mode{})
	want := []regdns.Record{
		txt("_acme-challenge.example.com.", "three", 300),
		txt("_acme-challenge.example.com.", "two", 300),
	}
	if diff := cmp.Diff(want, p.Records); diff != "" {
		t.Fatalf("update mismatch (-want +got):\n%s", diff)
	}

	p = regdns.Reconcile(current, desired, regdns.Mode{Delete: true})
	want = []regdns.Record{txt("_acme-challenge.example.com.", "two", 300)}
	if diff := cmp.Diff(want, p.Records); diff != "" {
		t.Fatalf("delete mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcileSecondDuplicateMatchesDesired(t *testing.T) {
	// the first match decides; a later record with the desired content does not make it a no-op
	current := []regdns.Record{
		txt("_acme-challenge.example.com.", "one", 300),
		txt("_acme-challenge.example.com.", "two", 300),
	}
	p := regdns.Reconcile(current, txt("_acme-challenge.example.com.", "two", 86400), regdns.Mode{})
	if !p.Changed || p.Action != regdns.Updated {
		t.Fatalf("Expected an update of the first match; got changed=%v action=%s", p.Changed, p.Action)
	}
	if p.Records[0].Content != "two" || p.Records[1].Content != "two" {
		t.Fatalf("Expected both records to hold %q; got %v", "two", p.Records)
	}
}

func TestReconcileForceAdd(t *testing.T) {
	current := zoneRecords()
	desired := txt("_acme-challenge.example.com.", "second", 86400)

	p := regdns.Reconcile(current, desired, regdns.Mode{ForceAdd: true})
	if !p.Changed || p.Action != regdns.Added {
		t.Fatalf("Expected an add; got changed=%v action=%s", p.Changed, p.Action)
	}
	want := append(zoneRecords(), desired)
	if diff := cmp.Diff(want, p.Records); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcileForceAddIdenticalContent(t *testing.T) {
	current := zoneRecords()
	p := regdns.Reconcile(current, txt("_acme-challenge.example.com.", "old", 86400), regdns.Mode{ForceAdd: true})
	if p.Changed || p.Action != regdns.Unchanged {
		t.Fatalf("Expected no change; got changed=%v action=%s", p.Changed, p.Action)
	}
}

func TestReconcileAdd(t *testing.T) {
	current := zoneRecords()
	desired := regdns.Record{Type: "A", Name: "home.example.com.", Content: "198.51.100.7", TTL: 600}

	p := regdns.Reconcile(current, desired, regdns.Mode{})
	if !p.Changed || p.Action != regdns.Added || p.Old != nil {
		t.Fatalf("Expected an add; got changed=%v action=%s old=%v", p.Changed, p.Action, p.Old)
	}
	last := p.Records[len(p.Records)-1]
	if diff := cmp.Diff(desired, last); diff != "" {
		t.Fatalf("appended record mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcileAddToEmpty(t *testing.T) {
	desired := txt("_acme-challenge.example.com.", "abc", 86400)
	p := regdns.Reconcile(nil, desired, regdns.Mode{})
	if diff := cmp.Diff([]regdns.Record{desired}, p.Records); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcileDelete(t *testing.T) {
	current := zoneRecords()
	// content plays no part in choosing the record to delete
	p := regdns.Reconcile(current, txt("_acme-challenge.example.com.", "", 0), regdns.Mode{Delete: true})
	if !p.Changed || p.Action != regdns.Deleted {
		t.Fatalf("Expected a delete; got changed=%v action=%s", p.Changed, p.Action)
	}
	want := zoneRecords()
	want = append(want[:2], want[3:]...)
	if diff := cmp.Diff(want, p.Records); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcileDeleteMiss(t *testing.T) {
	current := zoneRecords()
	p := regdns.Reconcile(current, txt("_other.example.com.", "x", 0), regdns.Mode{Delete: true})
	if p.Changed || p.Action != regdns.NotFound {
		t.Fatalf("Expected not found; got changed=%v action=%s", p.Changed, p.Action)
	}
	if diff := cmp.Diff(current, p.Records); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcileMatchIgnoresCase(t *testing.T) {
	current := []regdns.Record{{Type: "txt", Name: "_ACME-challenge.Example.com", Content: "old", TTL: 300}}
	p := regdns.Reconcile(current, txt("_acme-challenge.example.com.", "new", 86400), regdns.Mode{})
	if p.Action != regdns.Updated || len(p.Records) != 1 {
		t.Fatalf("Expected the record to be updated in place; got action=%s records=%v", p.Action, p.Records)
	}
}

func TestReconcileTypeMustMatch(t *testing.T) {
	current := []regdns.Record{{Type: "A", Name: "home.example.com.", Content: "1.2.3.4", TTL: 300}}
	p := regdns.Reconcile(current, regdns.Record{Type: "AAAA", Name: "home.example.com.", Content: "2001:db8::1", TTL: 600}, regdns.Mode{})
	if p.Action != regdns.Added || len(p.Records) != 2 {
		t.Fatalf("Expected an add; got action=%s records=%v", p.Action, p.Records)
	}
}

func TestReconcileDryRunFlag(t *testing.T) {
	p := regdns.Reconcile(zoneRecords(), txt("_acme-challenge.example.com.", "new", 86400), regdns.Mode{DryRun: true})
	if !p.DryRun || !p.Changed {
		t.Fatalf("Expected a changed dry run plan; got dryRun=%v changed=%v", p.DryRun, p.Changed)
	}
}

func TestReconcileDoesNotModifyInput(t *testing.T) {
	current := zoneRecords()
	desired := regdns.Record{Type: "MX", Name: "example.com.", Content: "mx.example.net.", TTL: 86400}
	modes := []regdns.Mode{{}, {ForceAdd: true}, {Delete: true}}
	for _, mode := range modes {
		p := regdns.Reconcile(current, desired, mode)
		for i := range p.Records {
			if p.Records[i].Priority != nil {
				*p.Records[i].Priority = 99
			}
		}
		if diff := cmp.Diff(zoneRecords(), current); diff != "" {
			t.Fatalf("input modified (mode %+v) (-want +got):\n%s", mode, diff)
		}
	}
}
