package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"genfleet-cloud/internal/audit"
	"genfleet-cloud/internal/auth"
	"genfleet-cloud/internal/forecasting/adapters/reports"
	forecastapp "genfleet-cloud/internal/forecasting/application"
	forecast "genfleet-cloud/internal/forecasting/domain"
	"genfleet-cloud/internal/forecasting/infrastructure/backend"
	"genfleet-cloud/internal/forecasting/infrastructure/memory"
	forecastpg "genfleet-cloud/internal/forecasting/infrastructure/postgres"
	forecastinterfaces "genfleet-cloud/internal/forecasting/interfaces"
	"genfleet-cloud/internal/forecasting/notify"
	ingestionapp "genfleet-cloud/internal/ingestion/application"
	ingestpg "genfleet-cloud/internal/ingestion/infrastructure/postgres"
	ingestinterfaces "genfleet-cloud/internal/ingestion/interfaces"
	"genfleet-cloud/internal/ingestion/layout"
	"genfleet-cloud/internal/ingestion/parsing"
	"genfleet-cloud/internal/observability/metrics"
)

// historyStore is what the forecasting side needs from a storage backend.
type historyStore interface {
	forecast.HistoryReader
	forecastinterfaces.KPISource
	forecastinterfaces.KPIRecorder
}

func main() {
	_ = godotenv.Load()
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	forecastCfg, err := forecastapp.LoadConfig()
	if err != nil {
		logger.Fatalf("forecast config error: %v", err)
	}
	location, err := forecastCfg.Location()
	if err != nil {
		logger.Fatalf("forecast timezone error: %v", err)
	}

	var (
		reportStore ingestionapp.ReportStore
		history     historyStore
		auditLogger audit.Logger
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("db open error: %v", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Fatalf("db ping error: %v", err)
		}
		metrics.Init(db, logger)
		reportStore = ingestpg.NewReportStore(db)
		history = forecastpg.NewHistoryReader(db)
		auditLogger = audit.NewRepository(db)
		logger.Printf("storage: postgres")
	} else {
		metrics.Init(nil, logger)
		store := memory.NewHistoryStore()
		sink, err := reports.NewSink(store, logger)
		if err != nil {
			logger.Fatalf("report sink error: %v", err)
		}
		reportStore = sink
		history = store
		auditLogger = audit.NewLogLogger(logger)
		logger.Printf("storage: memory")
	}

	sheetLayout, err := loadLayout(cfg.LayoutPath)
	if err != nil {
		logger.Fatalf("layout error: %v", err)
	}
	parser, err := parsing.NewParser(sheetLayout)
	if err != nil {
		logger.Fatalf("parser error: %v", err)
	}
	ingestService, err := ingestionapp.NewService(parser, reportStore, ingestionapp.SystemClock{}, ingestionapp.Config{
		DefaultGrid:   cfg.DefaultGrid,
		Location:      location,
		ReportLagDays: cfg.ReportLagDays,
	}, logger)
	if err != nil {
		logger.Fatalf("ingestion service error: %v", err)
	}
	uploadHandler, err := ingestinterfaces.NewUploadHandler(ingestService, auditLogger,
		ingestinterfaces.WithMaxUploadBytes(cfg.MaxUploadBytes),
		ingestinterfaces.WithDefaultGrid(cfg.DefaultGrid),
	)
	if err != nil {
		logger.Fatalf("upload handler error: %v", err)
	}

	engine, err := forecast.NewEngine(forecastCfg.Thresholds)
	if err != nil {
		logger.Fatalf("forecast engine error: %v", err)
	}
	var probe forecastapp.BackendProbe
	if forecastCfg.Backend.URL != "" {
		p, err := backend.NewProbe(forecastCfg.Backend.URL, time.Duration(forecastCfg.Backend.TimeoutSeconds)*time.Second, backend.WithLogger(logger))
		if err != nil {
			logger.Fatalf("backend probe error: %v", err)
		}
		probe = p
	}
	forecastService, err := forecastapp.NewService(history, engine, probe, forecastCfg, logger)
	if err != nil {
		logger.Fatalf("forecast service error: %v", err)
	}
	forecastHandler, err := forecastinterfaces.NewForecastHandler(forecastService, auditLogger,
		forecastinterfaces.WithLocation(location),
	)
	if err != nil {
		logger.Fatalf("forecast handler error: %v", err)
	}
	kpiHandler, err := forecastinterfaces.NewMonthlyKPIHandler(history, history, auditLogger)
	if err != nil {
		logger.Fatalf("kpi handler error: %v", err)
	}

	if forecastCfg.Schedule.Enabled {
		scheduler := forecastapp.NewScheduler(forecastService, forecastCfg.Schedule.DailyAt, location, logger)
		if forecastCfg.Alerts.WebhookURL != "" {
			notifier, err := buildNotifier(forecastCfg.Alerts, logger)
			if err != nil {
				logger.Fatalf("alert notifier error: %v", err)
			}
			scheduler.AddPublisher(notifier)
		}
		go scheduler.Start(context.Background())
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics", "/api/v1/reports/ingest"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)
	signedUpload := auth.NewSignedUploadMiddleware([]byte(cfg.IngestSecret), time.Duration(cfg.IngestSkewSeconds)*time.Second, cfg.TenantID, cfg.MaxUploadBytes)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/reports/upload", uploadHandler)
	mux.Handle("/api/v1/reports/ingest", signedUpload.Wrap(uploadHandler))
	mux.Handle("/api/v1/forecasts", forecastHandler)
	mux.Handle("/api/v1/forecasts/", forecastHandler)
	mux.Handle("/api/v1/kpis/monthly", kpiHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	DatabaseURL       string
	HTTPAddr          string
	TenantID          string
	DefaultGrid       string
	LayoutPath        string
	ReportLagDays     int
	MaxUploadBytes    int64
	JWTSecret         string
	IngestSecret      string
	IngestSkewSeconds int
}

func loadConfig() config {
	cfg := config{
		DatabaseURL:       getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:          getenvDefault("HTTP_ADDR", ":8080"),
		TenantID:          getenvDefault("TENANT_ID", "tenant-demo"),
		DefaultGrid:       getenvDefault("DEFAULT_GRID", "national"),
		LayoutPath:        getenvDefault("REPORT_LAYOUT", ""),
		ReportLagDays:     getenvIntDefault("REPORT_LAG_DAYS", 0),
		MaxUploadBytes:    int64(getenvIntDefault("MAX_UPLOAD_MB", 32)) << 20,
		JWTSecret:         getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		IngestSecret:      getenvDefault("INGEST_HMAC_SECRET", ""),
		IngestSkewSeconds: getenvIntDefault("INGEST_MAX_SKEW_SECONDS", 300),
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	return cfg
}

func loadLayout(path string) (*layout.Layout, error) {
	if path == "" {
		return layout.Default()
	}
	return layout.LoadFile(path)
}

func buildNotifier(cfg forecastapp.AlertConfig, logger *log.Logger) (*notify.Notifier, error) {
	channel, err := notify.NewWebhookChannel(cfg.WebhookURL, notify.WithSigningSecret(cfg.Secret))
	if err != nil {
		return nil, err
	}
	template, err := notify.NewTemplate("")
	if err != nil {
		return nil, err
	}
	return notify.NewNotifier(channel, template,
		notify.WithCooldown(time.Duration(cfg.CooldownHours)*time.Hour),
		notify.WithDedupeWindow(time.Duration(cfg.DedupeHours)*time.Hour),
		notify.WithLogger(logger),
	)
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
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

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
