package audit

import (
	"bytes"
	"context"
	"log"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestEntryFill(t *testing.T) {
	now := time.Date(2026, time.October, 13, 9, 0, 0, 0, time.FixedZone("EAT", 3*3600))
	e := Entry{Metadata: []byte(`{"units":6}`)}
	e.fill(now)
	if !strings.HasPrefix(e.ID, "audit-") || len(e.ID) != len("audit-")+36 {
		t.Fatalf("unexpected id %q", e.ID)
	}
	if !e.CreatedAt.Equal(now) || e.CreatedAt.Location() != time.UTC {
		t.Fatalf("created_at not normalized: %s", e.CreatedAt)
	}
	if e.PayloadDigest != DigestJSON([]byte(`{"units":6}`)) || len(e.PayloadDigest) != 64 {
		t.Fatalf("digest mismatch: %s", e.PayloadDigest)
	}

	kept := Entry{ID: "audit-fixed", PayloadDigest: "abc"}
	kept.fill(now)
	if kept.ID != "audit-fixed" || kept.PayloadDigest != "abc" {
		t.Fatalf("fill must not overwrite caller values: %+v", kept)
	}
	if DigestJSON(nil) != "" {
		t.Fatalf("empty payload must have empty digest")
	}
}

func TestLogLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogLogger(log.New(&buf, "", 0))
	err := l.Log(context.Background(), Entry{
		TenantID:     "tenant-a",
		Actor:        "user-1",
		Action:       "report.upload",
		ResourceType: "generation_report",
		ResourceID:   "rep-1",
		Grid:         "national",
	})
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	line := buf.String()
	for _, want := range []string{"action=report.upload", "grid=national", "resource=generation_report/rep-1"} {
		if !strings.Contains(line, want) {
			t.Fatalf("missing %q in %q", want, line)
		}
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.5:4242"
	if got := ClientIP(req); got != "10.0.0.5" {
		t.Fatalf("remote addr: got %q", got)
	}
	req.Header.Set("X-Real-IP", "10.0.0.9")
	if got := ClientIP(req); got != "10.0.0.9" {
		t.Fatalf("real ip: got %q", got)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := ClientIP(req); got != "203.0.113.7" {
		t.Fatalf("forwarded: got %q", got)
	}
}

func TestRequestEntry(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/v1/kpis/monthly", nil)
	req.RemoteAddr = "10.0.0.5:4242"
	req.Header.Set("User-Agent", "reporter/1.0")
	e := RequestEntry(req, "kpi.record", "kpi_point", "availability_pct@2026-09", "mafia", map[string]float64{"value": 91.5})
	if e.IP != "10.0.0.5" || e.UserAgent != "reporter/1.0" || e.Grid != "mafia" {
		t.Fatalf("request fields missing: %+v", e)
	}
	if string(e.Metadata) != `{"value":91.5}` || e.PayloadDigest != DigestJSON(e.Metadata) {
		t.Fatalf("metadata mismatch: %s %s", e.Metadata, e.PayloadDigest)
	}
	if bad := RequestEntry(req, "x", "y", "z", "", func() {}); bad.Metadata != nil || bad.PayloadDigest != "" {
		t.Fatalf("unencodable metadata must be dropped: %+v", bad)
	}
}
