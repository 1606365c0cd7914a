package application

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	ingestion "genfleet-cloud/internal/ingestion/domain"
	"genfleet-cloud/internal/ingestion/layout"
	"genfleet-cloud/internal/ingestion/parsing"
)

type stubStore struct {
	saved []*ingestion.Report
	err   error
}

func (s *stubStore) SaveReport(_ context.Context, report *ingestion.Report) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, report)
	return nil
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func newTestService(t *testing.T, store ReportStore, now time.Time) *Service {
	t.Helper()
	l, err := layout.Default()
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	parser, err := parsing.NewParser(l)
	if err != nil {
		t.Fatalf("parser: %v", err)
	}
	svc, err := NewService(parser, store, fixedClock{now: now}, Config{
		DefaultGrid:   "national",
		Location:      time.FixedZone("EAT", 3*3600),
		ReportLagDays: 1,
	}, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	return svc
}

func sheet(name string, rows int) *ingestion.Sheet {
	s := &ingestion.Sheet{Name: name, Rows: make([][]string, rows)}
	for i := range s.Rows {
		s.Rows[i] = make([]string, 11)
	}
	return s
}

// smallWorkbook has one unit per day on 11 and 12 Oct 2026.
func smallWorkbook() *ingestion.Workbook {
	schedule := sheet("Schedule", 152)
	schedule.Rows[2][7] = "2026-10-11"
	schedule.Rows[2][8] = "2026-10-12"
	schedule.Rows[4][0] = "Ubungo"
	schedule.Rows[4][2] = "1"
	schedule.Rows[4][5] = "10"
	schedule.Rows[4][7] = "9"
	schedule.Rows[4][8] = "0"
	schedule.Rows[146][8] = "7(9)"

	status := sheet("Generation Status", 3)
	status.Rows[1][0] = "Station"
	status.Rows[2][0] = "Ubungo"
	status.Rows[2][2] = "1"
	status.Rows[2][5] = "0"
	return ingestion.NewWorkbook(schedule, status)
}

func TestDefaultReportDateUsesZoneAndLag(t *testing.T) {
	svc := newTestService(t, &stubStore{}, time.Time{})
	now := time.Date(2026, time.October, 12, 22, 30, 0, 0, time.UTC) // 01:30 on the 13th in EAT
	got := svc.DefaultReportDate(now)
	want := time.Date(2026, time.October, 12, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("report date=%s want %s", got, want)
	}
}

func TestIngestStoresReport(t *testing.T) {
	store := &stubStore{}
	now := time.Date(2026, time.October, 13, 6, 0, 0, 0, time.UTC)
	svc := newTestService(t, store, now)

	report, err := svc.Ingest(context.Background(), smallWorkbook(), UploadRequest{Source: "daily.xlsx"})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(store.saved) != 1 || store.saved[0] != report {
		t.Fatalf("report not stored")
	}
	if report.ID == "" || report.Grid != "national" {
		t.Fatalf("id/grid not assigned: %q %q", report.ID, report.Grid)
	}
	if !report.ExactDateMatch || report.DateColumn != "I" {
		t.Fatalf("expected exact match on the 12th, got %s exact=%v", report.DateColumn, report.ExactDateMatch)
	}
	if report.Stats.OfflineUnits != 1 || report.Stats.Outages != 1 || report.Stats.MatchedOutages != 1 {
		t.Fatalf("stats mismatch: %+v", report.Stats)
	}
}

func TestIngestExplicitDateAndDryRun(t *testing.T) {
	store := &stubStore{}
	svc := newTestService(t, store, time.Date(2026, time.October, 13, 6, 0, 0, 0, time.UTC))

	report, err := svc.Ingest(context.Background(), smallWorkbook(), UploadRequest{
		Grid:   "kigoma",
		Date:   time.Date(2026, time.October, 11, 0, 0, 0, 0, time.UTC),
		DryRun: true,
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(store.saved) != 0 {
		t.Fatalf("dry run must not store")
	}
	if report.Grid != "kigoma" || report.DateColumn != "H" || report.Stats.OnlineUnits != 1 {
		t.Fatalf("unexpected dry run report: grid=%s column=%s stats=%+v", report.Grid, report.DateColumn, report.Stats)
	}
}

func TestIngestStructuralFailureIsNotStored(t *testing.T) {
	store := &stubStore{}
	svc := newTestService(t, store, time.Date(2026, time.October, 13, 6, 0, 0, 0, time.UTC))

	wb := ingestion.NewWorkbook(sheet("Other", 3))
	_, err := svc.Ingest(context.Background(), wb, UploadRequest{})
	if !errors.Is(err, ingestion.ErrStructural) {
		t.Fatalf("expected structural error, got %v", err)
	}
	if len(store.saved) != 0 {
		t.Fatalf("structural failure must not store")
	}
}

func TestIngestPropagatesStoreError(t *testing.T) {
	storeErr := errors.New("db down")
	svc := newTestService(t, &stubStore{err: storeErr}, time.Date(2026, time.October, 13, 6, 0, 0, 0, time.UTC))
	if _, err := svc.Ingest(context.Background(), smallWorkbook(), UploadRequest{}); !errors.Is(err, storeErr) {
		t.Fatalf("expected store error, got %v", err)
	}
}
