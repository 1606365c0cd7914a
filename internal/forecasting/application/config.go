package application

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	forecast "genfleet-cloud/internal/forecasting/domain"
)

// Config defines forecasting configuration.
type Config struct {
	Thresholds        forecast.Thresholds `yaml:"thresholds"`
	Schedule          ScheduleConfig      `yaml:"schedule"`
	Backend           BackendConfig       `yaml:"backend"`
	Alerts            AlertConfig         `yaml:"alerts"`
	HorizonMonths     int                 `yaml:"horizon_months"`
	RangeDays         int                 `yaml:"range_days"`
	Workers           int                 `yaml:"workers"`
	Timezone          string              `yaml:"timezone"`
	CapacityOverrides map[string]float64  `yaml:"capacity_overrides"`
}

// ScheduleConfig defines the daily refresh.
type ScheduleConfig struct {
	DailyAt string `yaml:"daily_at"`
	Enabled bool   `yaml:"enabled"`
}

// BackendConfig locates the analytical backend health endpoint.
type BackendConfig struct {
	URL            string `yaml:"url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// AlertConfig routes risk alerts from scheduled runs to a webhook.
type AlertConfig struct {
	WebhookURL    string `yaml:"webhook_url"`
	Secret        string `yaml:"secret"`
	CooldownHours int    `yaml:"cooldown_hours"`
	DedupeHours   int    `yaml:"dedupe_hours"`
}

// DefaultConfig returns the built-in forecasting configuration.
func DefaultConfig() Config {
	return Config{
		Thresholds:    forecast.DefaultThresholds(),
		Schedule:      ScheduleConfig{DailyAt: "03:00"},
		Backend:       BackendConfig{TimeoutSeconds: 3},
		Alerts:        AlertConfig{CooldownHours: 20, DedupeHours: 72},
		HorizonMonths: 12,
		RangeDays:     730,
		Workers:       8,
		Timezone:      "UTC",
	}
}

// LoadConfig loads config from FORECAST_CONFIG yaml, then env.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if path := os.Getenv("FORECAST_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if cfg, err = ParseConfig(data); err != nil {
			return cfg, err
		}
	}

	if value := os.Getenv("FORECAST_DAILY_AT"); value != "" {
		cfg.Schedule.DailyAt = value
		cfg.Schedule.Enabled = true
	}
	if value := os.Getenv("ANALYTICS_BACKEND_URL"); value != "" {
		cfg.Backend.URL = value
	}
	if value := os.Getenv("FORECAST_ALERT_WEBHOOK"); value != "" {
		cfg.Alerts.WebhookURL = value
	}
	if value := os.Getenv("FORECAST_ALERT_SECRET"); value != "" {
		cfg.Alerts.Secret = value
	}
	if value := os.Getenv("REPORT_TIMEZONE"); value != "" {
		cfg.Timezone = value
	}
	cfg.HorizonMonths = getenvIntDefault("FORECAST_HORIZON_MONTHS", cfg.HorizonMonths)
	cfg.RangeDays = getenvIntDefault("FORECAST_RANGE_DAYS", cfg.RangeDays)
	cfg.Workers = getenvIntDefault("FORECAST_WORKERS", cfg.Workers)
	if overrides := parseCapacityOverrides(os.Getenv("FORECAST_CAPACITY_MW")); len(overrides) > 0 {
		if cfg.CapacityOverrides == nil {
			cfg.CapacityOverrides = make(map[string]float64)
		}
		for grid, mw := range overrides {
			cfg.CapacityOverrides[grid] = mw
		}
	}
	return cfg, cfg.Validate()
}

// ParseConfig decodes a yaml document over the defaults. Threshold fields
// left out of the document keep their default values.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return cfg, err
	}
	cfg.Thresholds = cfg.Thresholds.Merge(file.Thresholds)
	if file.Schedule.DailyAt != "" {
		cfg.Schedule.DailyAt = file.Schedule.DailyAt
	}
	cfg.Schedule.Enabled = file.Schedule.Enabled
	if file.Backend.URL != "" {
		cfg.Backend.URL = file.Backend.URL
	}
	if file.Backend.TimeoutSeconds > 0 {
		cfg.Backend.TimeoutSeconds = file.Backend.TimeoutSeconds
	}
	if file.Alerts.WebhookURL != "" {
		cfg.Alerts.WebhookURL = file.Alerts.WebhookURL
	}
	if file.Alerts.Secret != "" {
		cfg.Alerts.Secret = file.Alerts.Secret
	}
	if file.Alerts.CooldownHours > 0 {
		cfg.Alerts.CooldownHours = file.Alerts.CooldownHours
	}
	if file.Alerts.DedupeHours > 0 {
		cfg.Alerts.DedupeHours = file.Alerts.DedupeHours
	}
	if file.HorizonMonths > 0 {
		cfg.HorizonMonths = file.HorizonMonths
	}
	if file.RangeDays > 0 {
		cfg.RangeDays = file.RangeDays
	}
	if file.Workers > 0 {
		cfg.Workers = file.Workers
	}
	if file.Timezone != "" {
		cfg.Timezone = file.Timezone
	}
	cfg.CapacityOverrides = file.CapacityOverrides
	return cfg, cfg.Validate()
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := c.Thresholds.Validate(); err != nil {
		return err
	}
	if c.HorizonMonths < 1 || c.HorizonMonths > forecast.MaxHorizonMonths {
		return errors.New("forecast config: horizon_months must be within 1..24")
	}
	if c.RangeDays < 1 {
		return errors.New("forecast config: range_days must be positive")
	}
	if _, _, err := parseDailyAt(c.Schedule.DailyAt); err != nil {
		return errors.New("forecast config: daily_at must be HH:MM")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	for grid, mw := range c.CapacityOverrides {
		if mw <= 0 {
			return errors.New("forecast config: capacity override for " + grid + " must be positive")
		}
	}
	return nil
}

// Location resolves the configured timezone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

func getenvIntDefault(key string, fallback int) int {
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

// parseCapacityOverrides reads "grid=mw,grid=mw".
func parseCapacityOverrides(value string) map[string]float64 {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	out := make(map[string]float64)
	for _, part := range strings.Split(value, ",") {
		grid, mw, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(mw), 64)
		if err != nil {
			continue
		}
		out[strings.TrimSpace(grid)] = parsed
	}
	return out
}
