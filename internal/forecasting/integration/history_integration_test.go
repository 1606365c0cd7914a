package integration_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"genfleet-cloud/internal/audit"
	forecastapp "genfleet-cloud/internal/forecasting/application"
	forecast "genfleet-cloud/internal/forecasting/domain"
	forecastpg "genfleet-cloud/internal/forecasting/infrastructure/postgres"
	ingestion "genfleet-cloud/internal/ingestion/domain"
	ingestpg "genfleet-cloud/internal/ingestion/infrastructure/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func TestReportStoreFeedsForecastHistory(t *testing.T) {
	db := openDB(t)
	defer db.Close()

	if err := applyMigrations(db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	ctx := context.Background()
	cleanupTables(ctx, db)

	store := ingestpg.NewReportStore(db)
	start := time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		if err := store.SaveReport(ctx, report(start.AddDate(0, 0, i), 200+float64(i)*5, i%2 == 0)); err != nil {
			t.Fatalf("save report %d: %v", i, err)
		}
	}
	// a second upload for the same day replaces the first
	if err := store.SaveReport(ctx, report(start.AddDate(0, 0, 4), 230, true)); err != nil {
		t.Fatalf("replace report: %v", err)
	}

	reader := forecastpg.NewHistoryReader(db)
	if err := reader.RecordMonthlyKPI(ctx, forecast.KPIPoint{Grid: "isolated", Name: forecast.KPIPeakDemand, Period: start, Value: 12}); err != nil {
		t.Fatalf("record monthly: %v", err)
	}

	asOf := start.AddDate(0, 0, 4)
	snaps, err := reader.HistoricalSnapshots(ctx, asOf, 30)
	if err != nil {
		t.Fatalf("snapshots: %v", err)
	}
	if len(snaps) != 5 {
		t.Fatalf("snapshots=%d want 5", len(snaps))
	}
	last := snaps[4]
	if last.PeakOnBarsMW == nil || *last.PeakOnBarsMW != 230 || len(last.Stations) != 1 || len(last.Units) != 2 {
		t.Fatalf("replaced snapshot mismatch: %+v", last)
	}

	series, err := reader.MonthlyKPISeries(ctx)
	if err != nil {
		t.Fatalf("kpi series: %v", err)
	}
	var nationalPeak, isolatedPeak float64
	for _, p := range series {
		if p.Name != forecast.KPIPeakDemand {
			continue
		}
		switch p.Grid {
		case "national":
			nationalPeak = p.Value
		case "isolated":
			isolatedPeak = p.Value
		}
	}
	if nationalPeak != 230 || isolatedPeak != 12 {
		t.Fatalf("monthly peaks national=%v isolated=%v", nationalPeak, isolatedPeak)
	}

	engine, err := forecast.NewEngine(forecast.DefaultThresholds())
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	svc, err := forecastapp.NewService(reader, engine, nil, forecastapp.DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	result, err := svc.Run(ctx, forecastapp.Request{AsOf: asOf, Months: 3, Trigger: "test"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	// the monthly-only grid has no capacity figure
	if len(result.Capacity) != 1 || len(result.Stations) != 1 || len(result.Units) != 2 {
		t.Fatalf("unexpected result shape: capacity=%d stations=%d units=%d", len(result.Capacity), len(result.Stations), len(result.Units))
	}

	auditRepo := audit.NewRepository(db)
	if err := auditRepo.Log(ctx, audit.Entry{TenantID: "tenant-a", Actor: "it", Role: "operator", Action: "report.upload", ResourceType: "generation_report", ResourceID: "rep", Grid: "national"}); err != nil {
		t.Fatalf("audit log: %v", err)
	}
}

func report(date time.Time, peak float64, unitTwoOnline bool) *ingestion.Report {
	avail2 := 0.0
	status2 := ingestion.StatusOffline
	online := 1
	if unitTwoOnline {
		avail2, status2, online = 4, ingestion.StatusOnline, 2
	}
	avail1 := 8.0
	capacity := 300.0
	total := avail1 + avail2
	return &ingestion.Report{
		ID:             fmt.Sprintf("rep-%s-%.0f", date.Format("20060102"), peak),
		Grid:           "national",
		Date:           date,
		FoundDate:      date,
		DateColumn:     "J",
		ExactDateMatch: true,
		Units: []ingestion.Unit{
			{Station: "Ubungo", UnitID: "1", Status: ingestion.StatusOnline, AvailableMW: &avail1, Row: 5},
			{Station: "Ubungo", UnitID: "2", Status: status2, AvailableMW: &avail2, Row: 6},
		},
		Stations: []ingestion.Station{
			{Name: "Ubungo", TotalUnits: 2, TotalAvailableMW: total, TotalDeratedMW: 20, OnlineUnits: online, OfflineUnits: 2 - online},
		},
		Summary: ingestion.Summary{
			TotalCapacityMW:  &capacity,
			EveningPeak:      ingestion.Peak{OnBarsMW: &peak},
			TotalAvailableMW: 250,
			TotalDeratedMW:   280,
		},
		Stats: ingestion.Stats{TotalUnits: 2, OnlineUnits: online, OfflineUnits: 2 - online, Stations: 1},
	}
}

func cleanupTables(ctx context.Context, db *sql.DB) {
	_, _ = db.ExecContext(ctx, "DELETE FROM kpi_points")
	_, _ = db.ExecContext(ctx, "DELETE FROM generation_reports")
	_, _ = db.ExecContext(ctx, "DELETE FROM audit_logs")
}

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	return db
}

func applyMigrations(db *sql.DB) error {
	root := projectRoot()
	files := []string{
		filepath.Join(root, "migrations", "001_generation_reports.sql"),
		filepath.Join(root, "migrations", "002_audit_logs.sql"),
	}
	for _, path := range files {
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if _, err := db.Exec(string(content)); err != nil {
			return err
		}
	}
	return nil
}

func projectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	return filepath.Clean(filepath.Join(dir, "..", "..", ".."))
}
