package regdns_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/Travis-Britz/regdns"
	"github.com/google/go-cmp/cmp"
)

func TestRecordUnmarshal(t *testing.T) {
	data := `[
		{"type":"MX","name":"example.com.","content":"mail.example.com.","ttl":"14400","priority":"10"},
		{"type":"TXT","name":"example.com.","content":"v=spf1 -all","ttl":3600,"priority":null},
		{"type":"A","name":"example.com.","content":"192.0.2.1","ttl":300},
		{"type":"A","name":"www.example.com.","content":"192.0.2.1","ttl":""}
	]`
	var got []regdns.Record
	if err := json.Unmarshal([]byte(data), &got); err != nil {
		t.Fatalf("Unmarshal failed: %s", err)
	}
	want := []regdns.Record{
		{Type: "MX", Name: "example.com.", Content: "mail.example.com.", TTL: 14400, Priority: prio(10)},
		{Type: "TXT", Name: "example.com.", Content: "v=spf1 -all", TTL: 3600},
		{Type: "A", Name: "example.com.", Content: "192.0.2.1", TTL: 300},
		{Type: "A", Name: "www.example.com.", Content: "192.0.2.1"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestRecordUnmarshalInvalidTTL(t *testing.T) {
	var r regdns.Record
	if err := json.Unmarshal([]byte(`{"type":"A","ttl":"soon"}`), &r); err == nil {
		t.Fatal("Expected an error for a non-numeric ttl")
	}
}

func TestRecordMarshalOmitsAbsentPriority(t *testing.T) {
	b, err := json.Marshal(regdns.Record{Type: "TXT", Name: "example.com.", Content: "x", TTL: 300})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(b), "priority") {
		t.Fatalf("Expected no priority field; got %s", b)
	}

	b, _ = json.Marshal(regdns.Record{Type: "MX", Name: "example.com.", Content: "mx.", TTL: 300, Priority: prio(0)})
	if !strings.Contains(string(b), `"priority":0`) {
		t.Fatalf("Expected a zero priority to be kept; got %s", b)
	}
}

func TestRecordString(t *testing.T) {
	r := regdns.Record{Type: "MX", Name: "example.com.", Content: "mail.example.com.", TTL: 300, Priority: prio(10)}
	if expected, got := `example.com. 300 MX "mail.example.com." prio=10`, r.String(); expected != got {
		t.Fatalf("Expected %q; got %q", expected, got)
	}
}
