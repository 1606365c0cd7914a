package application

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	ingestion "genfleet-cloud/internal/ingestion/domain"
	"genfleet-cloud/internal/ingestion/parsing"
	"genfleet-cloud/internal/observability/metrics"
)

// ReportStore persists one parsed report. Implementations commit all derived
// rows of a report together or not at all.
type ReportStore interface {
	SaveReport(ctx context.Context, report *ingestion.Report) error
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Config controls report date resolution.
type Config struct {
	DefaultGrid string
	Location    *time.Location
	// ReportLagDays is how many days the report date trails the upload day.
	ReportLagDays int
}

// UploadRequest describes one workbook upload.
type UploadRequest struct {
	Grid   string
	Date   time.Time
	DryRun bool
	Source string
}

// Service parses workbooks and hands reports to the store.
type Service struct {
	parser *parsing.Parser
	store  ReportStore
	clock  Clock
	cfg    Config
	logger *log.Logger
	newID  func() string
}

// NewService constructs the ingestion service.
func NewService(parser *parsing.Parser, store ReportStore, clock Clock, cfg Config, logger *log.Logger) (*Service, error) {
	if parser == nil {
		return nil, errors.New("ingestion service: nil parser")
	}
	if store == nil {
		return nil, errors.New("ingestion service: nil report store")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = log.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.ReportLagDays < 0 {
		cfg.ReportLagDays = 0
	}
	if strings.TrimSpace(cfg.DefaultGrid) == "" {
		cfg.DefaultGrid = "national"
	}
	return &Service{
		parser: parser,
		store:  store,
		clock:  clock,
		cfg:    cfg,
		logger: logger,
		newID:  uuid.NewString,
	}, nil
}

// DefaultReportDate returns the report date for an upload made at now:
// the local calendar day in the configured zone, minus the report lag.
func (s *Service) DefaultReportDate(now time.Time) time.Time {
	local := now.In(s.cfg.Location)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -s.cfg.ReportLagDays)
}

// Ingest parses the workbook for the requested (or default) date and stores
// the report unless the request is a dry run.
func (s *Service) Ingest(ctx context.Context, wb *ingestion.Workbook, req UploadRequest) (*ingestion.Report, error) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveIngest(result, time.Since(start))
	}()

	reportDate := req.Date
	if reportDate.IsZero() {
		reportDate = s.DefaultReportDate(s.clock.Now())
	}
	grid := strings.TrimSpace(req.Grid)
	if grid == "" {
		grid = s.cfg.DefaultGrid
	}

	report, err := s.parser.Parse(wb, reportDate)
	if err != nil {
		if se, ok := ingestion.AsStructural(err); ok {
			result = metrics.ResultStructural
			metrics.IncStructuralFailure(se.Artifact)
			s.logger.Printf("ingestion: rejected source=%s grid=%s date=%s err=%v", req.Source, grid, reportDate.Format("2006-01-02"), err)
			return nil, err
		}
		result = metrics.ResultError
		return nil, err
	}
	report.ID = s.newID()
	report.Grid = grid

	for _, w := range report.Warnings {
		metrics.IncReportWarning(string(w.Code))
	}
	metrics.AddUnits(string(ingestion.StatusOnline), report.Stats.OnlineUnits)
	metrics.AddUnits(string(ingestion.StatusOffline), report.Stats.OfflineUnits)
	metrics.AddUnits(string(ingestion.StatusNoData), report.Stats.NoDataUnits)

	if req.DryRun {
		result = metrics.ResultDryRun
		s.logger.Printf("ingestion: dry run source=%s grid=%s date=%s column=%s units=%d outages=%d warnings=%d",
			req.Source, grid, report.Date.Format("2006-01-02"), report.DateColumn, report.Stats.TotalUnits, report.Stats.Outages, len(report.Warnings))
		return report, nil
	}

	if err := s.store.SaveReport(ctx, report); err != nil {
		result = metrics.ResultError
		s.logger.Printf("ingestion: store failed report_id=%s grid=%s err=%v", report.ID, grid, err)
		return nil, err
	}
	s.logger.Printf("ingestion: stored report_id=%s source=%s grid=%s date=%s column=%s exact=%v units=%d outages=%d warnings=%d",
		report.ID, req.Source, grid, report.Date.Format("2006-01-02"), report.DateColumn, report.ExactDateMatch,
		report.Stats.TotalUnits, report.Stats.Outages, len(report.Warnings))
	return report, nil
}
