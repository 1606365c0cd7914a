package ingestion

import "time"

// UnitStatus is the derived availability state of a unit on the report date.
type UnitStatus string

const (
	StatusOnline  UnitStatus = "online"
	StatusOffline UnitStatus = "offline"
	StatusNoData  UnitStatus = "no_data"
)

// Unit is one generating unit read from the schedule sheet.
type Unit struct {
	Station        string     `json:"station"`
	Engine         string     `json:"engine"`
	UnitID         string     `json:"unit_id"`
	InstalledMVA   *float64   `json:"installed_mva"`
	InstalledMW    *float64   `json:"installed_mw"`
	DeratedMW      *float64   `json:"derated_mw"`
	AvailableMW    *float64   `json:"available_mw"`
	Status         UnitStatus `json:"status"`
	UtilizationPct *float64   `json:"utilization_pct"`
	Row            int        `json:"row"`
}

// Station is the rollup of the units that share a normalized station name.
type Station struct {
	Name             string   `json:"name"`
	TotalUnits       int      `json:"total_units"`
	TotalDeratedMW   float64  `json:"total_derated_mw"`
	TotalAvailableMW float64  `json:"total_available_mw"`
	OnlineUnits      int      `json:"online_units"`
	OfflineUnits     int      `json:"offline_units"`
	NoDataUnits      int      `json:"no_data_units"`
	UtilizationPct   *float64 `json:"utilization_pct"`
}

// MatchScope tells whether an outage was joined to a unit or a whole station.
type MatchScope string

const (
	MatchScopeUnit    MatchScope = "unit"
	MatchScopeStation MatchScope = "station"
)

// OutageMatch carries schedule data joined onto an outage for cross-validation.
type OutageMatch struct {
	Scope          MatchScope `json:"scope"`
	Station        string     `json:"station"`
	UnitID         string     `json:"unit_id,omitempty"`
	DeratedMW      *float64   `json:"derated_mw"`
	AvailableMW    *float64   `json:"available_mw"`
	Status         UnitStatus `json:"status,omitempty"`
	StatusConflict bool       `json:"status_conflict"`
}

// Outage is one unit (or station-level) outage read from the status sheet.
type Outage struct {
	Station            string       `json:"station"`
	Engine             string       `json:"engine,omitempty"`
	UnitID             string       `json:"unit_id,omitempty"`
	InstalledMVA       *float64     `json:"installed_mva"`
	DeratedMW          *float64     `json:"derated_mw"`
	AvailableMW        *float64     `json:"available_mw"`
	DispatchedMW       *float64     `json:"dispatched_mw"`
	Reason             string       `json:"reason"`
	ExpectedCompletion *time.Time   `json:"expected_completion"`
	ActualCompletion   *time.Time   `json:"actual_completion"`
	Remarks            string       `json:"remarks"`
	IsResolved         bool         `json:"is_resolved"`
	Row                int          `json:"row"`
	Match              *OutageMatch `json:"match,omitempty"`
}

// Peak splits a peak-demand cell into served and suppressed demand.
type Peak struct {
	OnBarsMW     *float64 `json:"on_bars_mw"`
	SuppressedMW *float64 `json:"suppressed_mw"`
}

// SolarSite is the installed solar capacity reported for one site.
type SolarSite struct {
	Site string   `json:"site"`
	MWp  *float64 `json:"mwp"`
}

// Summary holds the system KPIs of one report.
// SystemUtilizationPct and ReserveMarginPct are always derived from unit data.
type Summary struct {
	TotalCapacityMW      *float64    `json:"total_capacity_mw"`
	ExpectedPeakDemandMW *float64    `json:"expected_peak_demand_mw"`
	ActualPeakDemandMW   *float64    `json:"actual_peak_demand_mw"`
	ReserveCapacityMW    *float64    `json:"reserve_capacity_mw"`
	ForcedOutageRatePct  *float64    `json:"forced_outage_rate_pct"`
	Solar                []SolarSite `json:"solar"`
	EveningPeak          Peak        `json:"evening_peak"`
	DayPeak              Peak        `json:"day_peak"`
	TotalDeratedMW       float64     `json:"total_derated_mw"`
	TotalAvailableMW     float64     `json:"total_available_mw"`
	SystemUtilizationPct *float64    `json:"system_utilization_pct"`
	ReserveMarginPct     *float64    `json:"reserve_margin_pct"`
}

// Stats counts what a parse produced.
type Stats struct {
	TotalUnits      int `json:"total_units"`
	OnlineUnits     int `json:"online_units"`
	OfflineUnits    int `json:"offline_units"`
	NoDataUnits     int `json:"no_data_units"`
	Stations        int `json:"stations"`
	SkippedRows     int `json:"skipped_rows"`
	Outages         int `json:"outages"`
	ResolvedOutages int `json:"resolved_outages"`
	MatchedOutages  int `json:"matched_outages"`
}

// Report is the combined result of one ingested workbook.
type Report struct {
	ID              string    `json:"id,omitempty"`
	Grid            string    `json:"grid,omitempty"`
	Date            time.Time `json:"date"`
	FoundDate       time.Time `json:"found_date"`
	DateColumn      string    `json:"date_column"`
	DateColumnIndex int       `json:"date_column_index"`
	ExactDateMatch  bool      `json:"exact_date_match"`
	Units           []Unit    `json:"units"`
	Stations        []Station `json:"stations"`
	Outages         []Outage  `json:"outages"`
	Summary         Summary   `json:"summary"`
	Stats           Stats     `json:"stats"`
	Warnings        []Warning `json:"warnings"`
}

// SystemPeak returns the day's demand peak with its suppressed figure: the
// larger on-bars peak, then the actual-peak row, then the expected-peak row.
// Summary rows carry no suppressed figure.
func (s Summary) SystemPeak() Peak {
	evening, day := s.EveningPeak, s.DayPeak
	switch {
	case evening.OnBarsMW != nil && (day.OnBarsMW == nil || *evening.OnBarsMW >= *day.OnBarsMW):
		return evening
	case day.OnBarsMW != nil:
		return day
	case s.ActualPeakDemandMW != nil:
		return Peak{OnBarsMW: s.ActualPeakDemandMW}
	default:
		return Peak{OnBarsMW: s.ExpectedPeakDemandMW}
	}
}

// PeakDemandMW returns the on-bars value of SystemPeak.
func (s Summary) PeakDemandMW() *float64 {
	return s.SystemPeak().OnBarsMW
}
