package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	forecast "genfleet-cloud/internal/forecasting/domain"
	forecastpg "genfleet-cloud/internal/forecasting/infrastructure/postgres"
	ingestion "genfleet-cloud/internal/ingestion/domain"
	ingestpg "genfleet-cloud/internal/ingestion/infrastructure/postgres"
)

type config struct {
	dsn            string
	baseURL        string
	token          string
	grid           string
	stationPrefix  string
	stationCount   int
	unitsPerSt     int
	unitMW         float64
	startDate      string
	days           int
	basePeakMW     float64
	growthPerDay   float64
	outageRate     float64
	isolatedGrids  string
	isolatedMonths int
	seed           int64
}

func main() {
	cfg := parseConfig()
	if cfg.dsn == "" {
		log.Fatal("PG_DSN or DATABASE_URL is required")
	}
	if cfg.stationCount <= 0 || cfg.unitsPerSt <= 0 {
		log.Fatal("station-count and units-per-station must be > 0")
	}
	if cfg.days <= 0 {
		log.Fatal("days must be > 0")
	}

	start, err := parseStartDate(cfg.startDate, cfg.days)
	if err != nil {
		log.Fatalf("invalid start-date: %v", err)
	}

	db, err := sql.Open("pgx", cfg.dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	rng := rand.New(rand.NewSource(cfg.seed))

	log.Printf("seeding reports: grid=%s stations=%d units=%d days=%d", cfg.grid, cfg.stationCount, cfg.unitsPerSt, cfg.days)
	store := ingestpg.NewReportStore(db)
	stations := buildStationNames(cfg.stationPrefix, cfg.stationCount)
	for day := 0; day < cfg.days; day++ {
		date := start.AddDate(0, 0, day)
		report := syntheticReport(cfg, stations, date, day, rng)
		if err := store.SaveReport(ctx, report); err != nil {
			log.Fatalf("save report %s: %v", date.Format("2006-01-02"), err)
		}
	}

	if grids := splitList(cfg.isolatedGrids); len(grids) > 0 {
		log.Printf("seeding monthly kpis: grids=%v months=%d", grids, cfg.isolatedMonths)
		reader := forecastpg.NewHistoryReader(db)
		if err := seedMonthlyKPIs(ctx, reader, grids, start, cfg.isolatedMonths, rng); err != nil {
			log.Fatalf("seed monthly kpis: %v", err)
		}
	}

	if cfg.baseURL != "" {
		asOf := start.AddDate(0, 0, cfg.days-1)
		elapsed, status, err := requestForecast(ctx, cfg.baseURL, cfg.token, asOf)
		if err != nil {
			log.Fatalf("forecast request: %v", err)
		}
		log.Printf("forecast as_of=%s status=%d latency=%s", asOf.Format("2006-01-02"), status, elapsed)
	}

	log.Printf("seed completed")
}

func parseConfig() config {
	cfg := config{}
	flag.StringVar(&cfg.dsn, "pg-dsn", envOrDefault("PG_DSN", envOrDefault("DATABASE_URL", "")), "Postgres DSN")
	flag.StringVar(&cfg.baseURL, "base-url", envOrDefault("BASE_URL", ""), "API base URL; when set a forecast is requested after seeding")
	flag.StringVar(&cfg.token, "token", envOrDefault("API_TOKEN", ""), "bearer token for the forecast request")
	flag.StringVar(&cfg.grid, "grid", envOrDefault("DEFAULT_GRID", "national"), "grid for the daily reports")
	flag.StringVar(&cfg.stationPrefix, "station-prefix", envOrDefault("STATION_PREFIX", "Station "), "station name prefix")
	flag.IntVar(&cfg.stationCount, "station-count", envOrInt("STATION_COUNT", 6), "number of stations")
	flag.IntVar(&cfg.unitsPerSt, "units-per-station", envOrInt("UNITS_PER_STATION", 4), "units per station")
	flag.Float64Var(&cfg.unitMW, "unit-mw", envOrFloat("UNIT_MW", 10), "derated MW per unit")
	flag.StringVar(&cfg.startDate, "start-date", envOrDefault("START_DATE", ""), "first report date (YYYY-MM-DD); default ends yesterday")
	flag.IntVar(&cfg.days, "days", envOrInt("DAYS", 365), "number of daily reports")
	flag.Float64Var(&cfg.basePeakMW, "base-peak-mw", envOrFloat("BASE_PEAK_MW", 150), "peak demand on the first day")
	flag.Float64Var(&cfg.growthPerDay, "growth-per-day", envOrFloat("GROWTH_PER_DAY", 0.05), "daily peak growth in MW")
	flag.Float64Var(&cfg.outageRate, "outage-rate", envOrFloat("OUTAGE_RATE", 0.08), "probability a unit is offline on a day")
	flag.StringVar(&cfg.isolatedGrids, "isolated-grids", envOrDefault("ISOLATED_GRIDS", ""), "comma separated grids seeded with monthly KPIs only")
	flag.IntVar(&cfg.isolatedMonths, "isolated-months", envOrInt("ISOLATED_MONTHS", 12), "months of KPIs per isolated grid")
	flag.Int64Var(&cfg.seed, "seed", int64(envOrInt("SEED", 1)), "random seed")
	flag.Parse()
	return cfg
}

func parseStartDate(value string, days int) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		now := time.Now().UTC()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		return today.AddDate(0, 0, -days), nil
	}
	return time.Parse("2006-01-02", value)
}

func buildStationNames(prefix string, count int) []string {
	list := make([]string, 0, count)
	for i := 1; i <= count; i++ {
		list = append(list, fmt.Sprintf("%s%02d", prefix, i))
	}
	return list
}

func syntheticReport(cfg config, stations []string, date time.Time, day int, rng *rand.Rand) *ingestion.Report {
	report := &ingestion.Report{
		ID:             uuid.NewString(),
		Grid:           cfg.grid,
		Date:           date,
		FoundDate:      date,
		DateColumn:     "H",
		ExactDateMatch: true,
	}
	for _, name := range stations {
		st := ingestion.Station{Name: name}
		for u := 1; u <= cfg.unitsPerSt; u++ {
			derated := cfg.unitMW
			unit := ingestion.Unit{
				Station:   name,
				Engine:    "Wartsila",
				UnitID:    strconv.Itoa(u),
				DeratedMW: &derated,
				Status:    ingestion.StatusOffline,
			}
			st.TotalUnits++
			st.TotalDeratedMW += derated
			switch r := rng.Float64(); {
			case r < cfg.outageRate:
				zero := 0.0
				unit.AvailableMW = &zero
				st.OfflineUnits++
			case r < cfg.outageRate+0.02:
				unit.Status = ingestion.StatusNoData
				st.NoDataUnits++
			default:
				available := round(derated * (0.8 + 0.2*rng.Float64()))
				util := available / derated * 100
				unit.AvailableMW = &available
				unit.UtilizationPct = &util
				unit.Status = ingestion.StatusOnline
				st.OnlineUnits++
				st.TotalAvailableMW += available
			}
			report.Units = append(report.Units, unit)
		}
		if st.TotalDeratedMW > 0 {
			util := st.TotalAvailableMW / st.TotalDeratedMW * 100
			st.UtilizationPct = &util
		}
		report.Stations = append(report.Stations, st)
		report.Summary.TotalDeratedMW += st.TotalDeratedMW
		report.Summary.TotalAvailableMW += st.TotalAvailableMW
		report.Stats.OnlineUnits += st.OnlineUnits
		report.Stats.OfflineUnits += st.OfflineUnits
		report.Stats.NoDataUnits += st.NoDataUnits
		report.Stats.TotalUnits += st.TotalUnits
	}
	report.Stats.Stations = len(report.Stations)

	capacity := float64(len(stations)*cfg.unitsPerSt) * cfg.unitMW
	seasonal := 1 + 0.05*math.Sin(2*math.Pi*float64(date.YearDay())/365)
	peak := round((cfg.basePeakMW + cfg.growthPerDay*float64(day)) * seasonal * (0.97 + 0.06*rng.Float64()))
	suppressed := round(peak + math.Max(0, peak-report.Summary.TotalAvailableMW))
	report.Summary.TotalCapacityMW = &capacity
	report.Summary.EveningPeak = ingestion.Peak{OnBarsMW: &peak, SuppressedMW: &suppressed}
	report.Summary.ActualPeakDemandMW = &peak
	if report.Summary.TotalDeratedMW > 0 {
		util := report.Summary.TotalAvailableMW / report.Summary.TotalDeratedMW * 100
		report.Summary.SystemUtilizationPct = &util
	}
	if report.Summary.TotalAvailableMW > 0 {
		margin := (report.Summary.TotalAvailableMW - peak) / report.Summary.TotalAvailableMW * 100
		report.Summary.ReserveMarginPct = &margin
	}
	return report
}

func seedMonthlyKPIs(ctx context.Context, reader *forecastpg.HistoryReader, grids []string, start time.Time, months int, rng *rand.Rand) error {
	first := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	for _, grid := range grids {
		base := 5 + 20*rng.Float64()
		for m := 0; m < months; m++ {
			period := first.AddDate(0, m, 0)
			peak := round(base * (1 + 0.01*float64(m)) * (0.95 + 0.1*rng.Float64()))
			points := []forecast.KPIPoint{
				{Grid: grid, Name: forecast.KPIPeakDemand, Period: period, Value: peak},
				{Grid: grid, Name: forecast.KPIInstalledCapacity, Period: period, Value: round(base * 1.6)},
				{Grid: grid, Name: "availability_pct", Period: period, Value: round(85 + 10*rng.Float64())},
			}
			for _, p := range points {
				if err := reader.RecordMonthlyKPI(ctx, p); err != nil {
					return fmt.Errorf("%s %s: %w", grid, period.Format("2006-01"), err)
				}
			}
		}
	}
	return nil
}

func requestForecast(ctx context.Context, baseURL, token string, asOf time.Time) (time.Duration, int, error) {
	url := strings.TrimRight(baseURL, "/") + "/api/v1/forecasts?as_of=" + asOf.Format("2006-01-02")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, 0, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	client := &http.Client{Timeout: 60 * time.Second}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return time.Since(start), resp.StatusCode, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func round(v float64) float64 {
	return math.Round(v*100) / 100
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
