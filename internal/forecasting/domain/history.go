package forecast

import (
	"context"
	"time"
)

// UnitState is the availability of a unit on one report day.
type UnitState string

const (
	UnitOnline  UnitState = "online"
	UnitOffline UnitState = "offline"
	UnitNoData  UnitState = "no_data"
)

// StationDay is a station's unit counts on one report day.
type StationDay struct {
	Name         string
	OnlineUnits  int
	OfflineUnits int
	NoDataUnits  int
}

// UnitDay is a unit's state on one report day.
type UnitDay struct {
	Station string
	UnitID  string
	State   UnitState
}

// Snapshot is the persisted summary of one daily report.
type Snapshot struct {
	Grid                string
	Date                time.Time
	PeakOnBarsMW        *float64
	PeakSuppressedMW    *float64
	TotalCapacityMW     *float64
	AvailableCapacityMW float64
	Stations            []StationDay
	Units               []UnitDay
}

// KPIPoint is one monthly KPI value of a grid.
type KPIPoint struct {
	Grid   string
	Name   string
	Period time.Time
	Value  float64
}

// HistoryReader is the read-only view of persisted history.
type HistoryReader interface {
	HistoricalSnapshots(ctx context.Context, asOf time.Time, rangeDays int) ([]Snapshot, error)
	MonthlyKPISeries(ctx context.Context) ([]KPIPoint, error)
}
