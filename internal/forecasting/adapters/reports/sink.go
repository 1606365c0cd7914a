package reports

import (
	"context"
	"errors"
	"log"

	forecast "genfleet-cloud/internal/forecasting/domain"
	"genfleet-cloud/internal/forecasting/infrastructure/memory"
	ingestion "genfleet-cloud/internal/ingestion/domain"
)

// SourceReport tags KPI points derived from an ingested workbook.
const SourceReport = "report"

// SnapshotFromReport converts an ingested report into forecast history.
func SnapshotFromReport(report *ingestion.Report) forecast.Snapshot {
	peak := report.Summary.SystemPeak()
	snap := forecast.Snapshot{
		Grid:                report.Grid,
		Date:                report.Date,
		PeakOnBarsMW:        peak.OnBarsMW,
		PeakSuppressedMW:    peak.SuppressedMW,
		TotalCapacityMW:     report.Summary.TotalCapacityMW,
		AvailableCapacityMW: report.Summary.TotalAvailableMW,
		Stations:            make([]forecast.StationDay, 0, len(report.Stations)),
		Units:               make([]forecast.UnitDay, 0, len(report.Units)),
	}
	for _, st := range report.Stations {
		snap.Stations = append(snap.Stations, forecast.StationDay{
			Name:         st.Name,
			OnlineUnits:  st.OnlineUnits,
			OfflineUnits: st.OfflineUnits,
			NoDataUnits:  st.NoDataUnits,
		})
	}
	for _, u := range report.Units {
		snap.Units = append(snap.Units, forecast.UnitDay{
			Station: u.Station,
			UnitID:  u.UnitID,
			State:   unitState(u.Status),
		})
	}
	return snap
}

// KPIPointsFromReport lists the report's daily KPI values.
func KPIPointsFromReport(report *ingestion.Report) []forecast.KPIPoint {
	values := report.KPIs()
	out := make([]forecast.KPIPoint, 0, len(values))
	for _, v := range values {
		out = append(out, forecast.KPIPoint{Grid: report.Grid, Name: v.Name, Period: report.Date, Value: v.Value})
	}
	return out
}

func unitState(status ingestion.UnitStatus) forecast.UnitState {
	switch status {
	case ingestion.StatusOnline:
		return forecast.UnitOnline
	case ingestion.StatusOffline:
		return forecast.UnitOffline
	default:
		return forecast.UnitNoData
	}
}

// Sink stores ingested reports into the in-memory history.
type Sink struct {
	store  *memory.HistoryStore
	logger *log.Logger
}

// NewSink constructs a Sink.
func NewSink(store *memory.HistoryStore, logger *log.Logger) (*Sink, error) {
	if store == nil {
		return nil, errors.New("report sink: nil history store")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Sink{store: store, logger: logger}, nil
}

// SaveReport records the report's snapshot and KPI points.
func (s *Sink) SaveReport(ctx context.Context, report *ingestion.Report) error {
	if report == nil {
		return ingestion.ErrNilReport
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.store.PutSnapshot(SnapshotFromReport(report))
	s.store.ReplaceReportKPIs(report.Grid, report.Date, KPIPointsFromReport(report), SourceReport)
	s.logger.Printf("report sink: stored grid=%s date=%s units=%d", report.Grid, report.Date.Format("2006-01-02"), len(report.Units))
	return nil
}
