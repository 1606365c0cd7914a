package layout

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

//go:embed default_layout.yaml
var defaultLayoutYAML []byte

// SummaryField names a system KPI read from a fixed schedule row.
type SummaryField string

const (
	FieldTotalCapacity      SummaryField = "total_capacity"
	FieldExpectedPeakDemand SummaryField = "expected_peak_demand"
	FieldActualPeakDemand   SummaryField = "actual_peak_demand"
	FieldReserveCapacity    SummaryField = "reserve_capacity"
	FieldForcedOutageRate   SummaryField = "forced_outage_rate"
	FieldEveningPeak        SummaryField = "evening_peak"
	FieldDayPeak            SummaryField = "day_peak"
)

func (f SummaryField) valid() bool {
	switch f {
	case FieldTotalCapacity, FieldExpectedPeakDemand, FieldActualPeakDemand,
		FieldReserveCapacity, FieldForcedOutageRate, FieldEveningPeak, FieldDayPeak:
		return true
	default:
		return false
	}
}

// Layout is the fixed row/column configuration of both sheets.
type Layout struct {
	Schedule        ScheduleLayout      `yaml:"schedule"`
	Status          StatusLayout        `yaml:"status"`
	EngineAliases   map[string][]string `yaml:"engine_aliases"`
	SummaryKeywords []string            `yaml:"summary_keywords"`
	OutageKeywords  []string            `yaml:"outage_keywords"`

	compiled      bool
	scheduleIndex ScheduleIndex
	statusIndex   StatusIndex
	engines       map[string]string
	keywords      []string
}

// ScheduleLayout describes the capacity schedule sheet.
type ScheduleLayout struct {
	Sheet           string          `yaml:"sheet"`
	HeaderRow       int             `yaml:"header_row"`
	DateStartColumn string          `yaml:"date_start_column"`
	FirstDataRow    int             `yaml:"first_data_row"`
	LastDataRow     int             `yaml:"last_data_row"`
	NoDataWarnRatio float64         `yaml:"no_data_warn_ratio"`
	Columns         ScheduleColumns `yaml:"columns"`
	SummaryRows     []SummaryRow    `yaml:"summary_rows"`
	SolarRows       []SolarRow      `yaml:"solar_rows"`
}

// ScheduleColumns assigns column letters to unit attributes.
type ScheduleColumns struct {
	Station      string `yaml:"station"`
	Engine       string `yaml:"engine"`
	Unit         string `yaml:"unit"`
	InstalledMVA string `yaml:"installed_mva"`
	InstalledMW  string `yaml:"installed_mw"`
	DeratedMW    string `yaml:"derated_mw"`
}

// SummaryRow maps a spreadsheet row to a summary KPI.
type SummaryRow struct {
	Field SummaryField `yaml:"field"`
	Row   int          `yaml:"row"`
}

// SolarRow maps a spreadsheet row to a solar site's MWp.
type SolarRow struct {
	Site string `yaml:"site"`
	Row  int    `yaml:"row"`
}

// StatusLayout describes the eleven-column generation status sheet.
type StatusLayout struct {
	Sheet        string        `yaml:"sheet"`
	Required     bool          `yaml:"required"`
	HeaderRow    int           `yaml:"header_row"`
	FirstDataRow int           `yaml:"first_data_row"`
	LastDataRow  int           `yaml:"last_data_row"`
	Columns      StatusColumns `yaml:"columns"`
}

// StatusColumns assigns column letters to status attributes.
type StatusColumns struct {
	Station            string `yaml:"station"`
	Engine             string `yaml:"engine"`
	Unit               string `yaml:"unit"`
	InstalledMVA       string `yaml:"installed_mva"`
	DeratedMW          string `yaml:"derated_mw"`
	AvailableMW        string `yaml:"available_mw"`
	DispatchedMW       string `yaml:"dispatched_mw"`
	OutageReason       string `yaml:"outage_reason"`
	ExpectedCompletion string `yaml:"expected_completion"`
	ActualCompletion   string `yaml:"actual_completion"`
	Remarks            string `yaml:"remarks"`
}

// ScheduleIndex holds 0-based column indexes for the schedule sheet.
type ScheduleIndex struct {
	Station      int
	Engine       int
	Unit         int
	InstalledMVA int
	InstalledMW  int
	DeratedMW    int
	DateStart    int
}

// StatusIndex holds 0-based column indexes for the status sheet.
type StatusIndex struct {
	Station            int
	Engine             int
	Unit               int
	InstalledMVA       int
	DeratedMW          int
	AvailableMW        int
	DispatchedMW       int
	OutageReason       int
	ExpectedCompletion int
	ActualCompletion   int
	Remarks            int
}

// Default returns the embedded layout.
func Default() (*Layout, error) {
	return Parse(nil)
}

// Parse overlays YAML data onto the embedded layout and compiles the result.
// A nil or empty override yields the embedded layout unchanged.
func Parse(override []byte) (*Layout, error) {
	l := &Layout{}
	if err := yaml.Unmarshal(defaultLayoutYAML, l); err != nil {
		return nil, fmt.Errorf("layout: decode default: %w", err)
	}
	if len(override) > 0 {
		if err := yaml.Unmarshal(override, l); err != nil {
			return nil, fmt.Errorf("layout: decode override: %w", err)
		}
	}
	if err := l.Compile(); err != nil {
		return nil, err
	}
	return l, nil
}

// LoadFile reads an override file; an empty path yields the embedded layout.
func LoadFile(path string) (*Layout, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("layout: read %s: %w", path, err)
	}
	return Parse(data)
}

// Compile validates the layout and resolves column letters.
func (l *Layout) Compile() error {
	if l == nil {
		return errors.New("layout: nil layout")
	}
	if err := l.Schedule.validate(); err != nil {
		return err
	}
	if err := l.Status.validate(); err != nil {
		return err
	}

	var scheduleIdx ScheduleIndex
	var statusIdx StatusIndex
	sc := l.Schedule.Columns
	st := l.Status.Columns
	refs := []columnRef{
		{&scheduleIdx.Station, sc.Station, "schedule.columns.station"},
		{&scheduleIdx.Engine, sc.Engine, "schedule.columns.engine"},
		{&scheduleIdx.Unit, sc.Unit, "schedule.columns.unit"},
		{&scheduleIdx.InstalledMVA, sc.InstalledMVA, "schedule.columns.installed_mva"},
		{&scheduleIdx.InstalledMW, sc.InstalledMW, "schedule.columns.installed_mw"},
		{&scheduleIdx.DeratedMW, sc.DeratedMW, "schedule.columns.derated_mw"},
		{&scheduleIdx.DateStart, l.Schedule.DateStartColumn, "schedule.date_start_column"},
		{&statusIdx.Station, st.Station, "status.columns.station"},
		{&statusIdx.Engine, st.Engine, "status.columns.engine"},
		{&statusIdx.Unit, st.Unit, "status.columns.unit"},
		{&statusIdx.InstalledMVA, st.InstalledMVA, "status.columns.installed_mva"},
		{&statusIdx.DeratedMW, st.DeratedMW, "status.columns.derated_mw"},
		{&statusIdx.AvailableMW, st.AvailableMW, "status.columns.available_mw"},
		{&statusIdx.DispatchedMW, st.DispatchedMW, "status.columns.dispatched_mw"},
		{&statusIdx.OutageReason, st.OutageReason, "status.columns.outage_reason"},
		{&statusIdx.ExpectedCompletion, st.ExpectedCompletion, "status.columns.expected_completion"},
		{&statusIdx.ActualCompletion, st.ActualCompletion, "status.columns.actual_completion"},
		{&statusIdx.Remarks, st.Remarks, "status.columns.remarks"},
	}
	for _, ref := range refs {
		idx, err := columnIndex(ref.letter)
		if err != nil {
			return fmt.Errorf("layout: %s: %w", ref.name, err)
		}
		*ref.dst = idx
	}

	engines := make(map[string]string)
	for canonical, variants := range l.EngineAliases {
		engines[foldKey(canonical)] = canonical
		for _, variant := range variants {
			engines[foldKey(variant)] = canonical
		}
	}

	keywords := make([]string, 0, len(l.SummaryKeywords))
	for _, kw := range l.SummaryKeywords {
		if kw = normalizeLabel(kw); kw != "" {
			keywords = append(keywords, kw)
		}
	}

	if l.Schedule.NoDataWarnRatio <= 0 || l.Schedule.NoDataWarnRatio > 1 {
		l.Schedule.NoDataWarnRatio = 0.5
	}

	l.scheduleIndex = scheduleIdx
	l.statusIndex = statusIdx
	l.engines = engines
	l.keywords = keywords
	l.compiled = true
	return nil
}

// Compiled reports whether Compile succeeded.
func (l *Layout) Compiled() bool { return l != nil && l.compiled }

// ScheduleIndex returns resolved schedule column indexes.
func (l *Layout) ScheduleIndex() ScheduleIndex { return l.scheduleIndex }

// StatusIndex returns resolved status column indexes.
func (l *Layout) StatusIndex() StatusIndex { return l.statusIndex }

// NormalizeEngine maps spelling variants to the canonical engine name.
// Unknown names come back trimmed with collapsed whitespace.
func (l *Layout) NormalizeEngine(raw string) string {
	label := collapseSpaces(raw)
	if label == "" {
		return ""
	}
	if canonical, ok := l.engines[foldKey(label)]; ok {
		return canonical
	}
	return label
}

// IsSummaryKeyword reports whether a first-column cell marks a total/summary row.
func (l *Layout) IsSummaryKeyword(cell string) bool {
	label := normalizeLabel(cell)
	if label == "" {
		return false
	}
	for _, kw := range l.keywords {
		if label == kw || strings.HasPrefix(label, kw+" ") || strings.HasPrefix(label, kw+":") {
			return true
		}
	}
	return false
}

// EndRow returns the last 1-based data row of the schedule sheet given its row count.
// Without an explicit last row the data region stops above the first summary row.
func (s ScheduleLayout) EndRow(rowCount int) int {
	end := rowCount
	if s.LastDataRow > 0 && s.LastDataRow < end {
		end = s.LastDataRow
	}
	if s.LastDataRow <= 0 {
		for _, row := range s.SummaryRows {
			if row.Row-1 < end && row.Row > s.FirstDataRow {
				end = row.Row - 1
			}
		}
	}
	return end
}

// EndRow returns the last 1-based data row of the status sheet.
func (s StatusLayout) EndRow(rowCount int) int {
	if s.LastDataRow > 0 && s.LastDataRow < rowCount {
		return s.LastDataRow
	}
	return rowCount
}

func (s ScheduleLayout) validate() error {
	if strings.TrimSpace(s.Sheet) == "" {
		return errors.New("layout: schedule.sheet required")
	}
	if s.HeaderRow < 1 {
		return errors.New("layout: schedule.header_row must be >= 1")
	}
	if s.FirstDataRow <= s.HeaderRow {
		return errors.New("layout: schedule.first_data_row must follow header_row")
	}
	if s.LastDataRow != 0 && s.LastDataRow < s.FirstDataRow {
		return errors.New("layout: schedule.last_data_row before first_data_row")
	}
	for _, row := range s.SummaryRows {
		if !row.Field.valid() {
			return fmt.Errorf("layout: unknown summary field %q", row.Field)
		}
		if row.Row < 1 {
			return fmt.Errorf("layout: summary field %q has invalid row %d", row.Field, row.Row)
		}
	}
	for _, row := range s.SolarRows {
		if strings.TrimSpace(row.Site) == "" || row.Row < 1 {
			return fmt.Errorf("layout: invalid solar row %+v", row)
		}
	}
	return nil
}

func (s StatusLayout) validate() error {
	if strings.TrimSpace(s.Sheet) == "" {
		return errors.New("layout: status.sheet required")
	}
	if s.HeaderRow < 1 {
		return errors.New("layout: status.header_row must be >= 1")
	}
	if s.FirstDataRow <= s.HeaderRow {
		return errors.New("layout: status.first_data_row must follow header_row")
	}
	if s.LastDataRow != 0 && s.LastDataRow < s.FirstDataRow {
		return errors.New("layout: status.last_data_row before first_data_row")
	}
	return nil
}

type columnRef struct {
	dst    *int
	letter string
	name   string
}

func columnIndex(letter string) (int, error) {
	letter = strings.TrimSpace(letter)
	if letter == "" {
		return 0, errors.New("column letter required")
	}
	n, err := excelize.ColumnNameToNumber(letter)
	if err != nil {
		return 0, err
	}
	return n - 1, nil
}

// foldKey lowercases and keeps only letters and digits.
func foldKey(value string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(value) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func normalizeLabel(value string) string {
	return strings.ToLower(collapseSpaces(value))
}

func collapseSpaces(value string) string {
	return strings.Join(strings.Fields(value), " ")
}
