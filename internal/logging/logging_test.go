package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestVerbosity(t *testing.T) {
	tests := []struct {
		v     Verbosity
		shown []string
	}{
		{Quiet, []string{"error"}},
		{Normal, []string{"error", "outcome"}},
		{Verbose, []string{"error", "outcome", "progress"}},
		{Debug, []string{"error", "outcome", "progress", "detail"}},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		l, err := New("human", tt.v, &buf)
		if err != nil {
			t.Fatal(err)
		}
		l.Error(errors.New("boom"), "error")
		l.Info("outcome")
		l.V(1).Info("progress")
		l.V(2).Info("detail")

		out := buf.String()
		for _, msg := range []string{"error", "outcome", "progress", "detail"} {
			want := false
			for _, s := range tt.shown {
				want = want || s == msg
			}
			if got := strings.Contains(out, "msg="+msg); got != want {
				t.Fatalf("verbosity %d, message %q: Expected shown=%v; got output %q", tt.v, msg, want, out)
			}
		}
	}
}

func TestHumanFormatDropsTime(t *testing.T) {
	var buf bytes.Buffer
	l, _ := New("", Normal, &buf)
	l.Info("record updated", "record", "home.example.com.")
	if strings.Contains(buf.String(), "time=") {
		t.Fatalf("Expected no timestamp; got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "record=home.example.com.") {
		t.Fatalf("Expected key/value pairs in output; got %q", buf.String())
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l, err := New("json", Normal, &buf)
	if err != nil {
		t.Fatal(err)
	}
	l.WithValues("runId", "abc").Info("record updated")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("Expected a JSON line; got %q (%s)", buf.String(), err)
	}
	if expected, got := "abc", line["runId"]; expected != got {
		t.Fatalf("Expected %q; got %q", expected, got)
	}
}

func TestUnsupportedFormat(t *testing.T) {
	if _, err := New("yaml", Normal, &bytes.Buffer{}); err == nil {
		t.Fatal("Expected an error for an unsupported format")
	}
}
