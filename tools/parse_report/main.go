package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	ingestion "genfleet-cloud/internal/ingestion/domain"
	"genfleet-cloud/internal/ingestion/infrastructure/xlsx"
	"genfleet-cloud/internal/ingestion/layout"
	"genfleet-cloud/internal/ingestion/parsing"
)

const (
	exitOK         = 0
	exitUsage      = 1
	exitStructural = 2
	exitWarnings   = 3
)

type config struct {
	file       string
	date       string
	grid       string
	layoutPath string
	out        string
	summary    bool
	strict     bool
}

func main() {
	cfg, err := parseFlags()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		flag.Usage()
		os.Exit(exitUsage)
	}
	os.Exit(run(cfg, os.Stdout, os.Stderr))
}

func parseFlags() (config, error) {
	var cfg config
	flag.StringVar(&cfg.file, "file", "", "generation tracking workbook (.xlsx)")
	flag.StringVar(&cfg.date, "date", "", "report date YYYY-MM-DD (default: today, UTC)")
	flag.StringVar(&cfg.grid, "grid", getenvDefault("DEFAULT_GRID", "national"), "grid the workbook reports on")
	flag.StringVar(&cfg.layoutPath, "layout", getenvDefault("REPORT_LAYOUT", ""), "layout override yaml")
	flag.StringVar(&cfg.out, "out", "", "write JSON to this path instead of stdout")
	flag.BoolVar(&cfg.summary, "summary", false, "print stats and warnings only")
	flag.BoolVar(&cfg.strict, "strict", false, "exit non-zero when the report carries warnings")
	flag.Parse()

	if cfg.file == "" && flag.NArg() > 0 {
		cfg.file = flag.Arg(0)
	}
	if cfg.file == "" {
		return cfg, errors.New("missing --file")
	}
	return cfg, nil
}

func run(cfg config, stdout, stderr io.Writer) int {
	reportDate, err := resolveDate(cfg.date, time.Now())
	if err != nil {
		fmt.Fprintf(stderr, "invalid --date: %v\n", err)
		return exitUsage
	}
	l, err := loadLayout(cfg.layoutPath)
	if err != nil {
		fmt.Fprintf(stderr, "layout: %v\n", err)
		return exitUsage
	}
	parser, err := parsing.NewParser(l)
	if err != nil {
		fmt.Fprintf(stderr, "parser: %v\n", err)
		return exitUsage
	}
	wb, err := xlsx.LoadFile(cfg.file)
	if err != nil {
		fmt.Fprintf(stderr, "load: %v\n", err)
		return exitUsage
	}

	report, err := parser.Parse(wb, reportDate)
	if err != nil {
		if se, ok := ingestion.AsStructural(err); ok {
			fmt.Fprintf(stderr, "structural error: sheet=%s artifact=%s detail=%s\n", se.Sheet, se.Artifact, se.Detail)
			return exitStructural
		}
		fmt.Fprintf(stderr, "parse: %v\n", err)
		return exitUsage
	}
	report.Grid = cfg.grid

	var payload any = report
	if cfg.summary {
		payload = struct {
			Grid           string              `json:"grid"`
			Date           string              `json:"date"`
			DateColumn     string              `json:"date_column"`
			ExactDateMatch bool                `json:"exact_date_match"`
			Stats          ingestion.Stats     `json:"stats"`
			Warnings       []ingestion.Warning `json:"warnings"`
		}{
			Grid:           report.Grid,
			Date:           report.Date.Format("2006-01-02"),
			DateColumn:     report.DateColumn,
			ExactDateMatch: report.ExactDateMatch,
			Stats:          report.Stats,
			Warnings:       report.Warnings,
		}
	}

	out := stdout
	if cfg.out != "" {
		file, err := os.Create(cfg.out)
		if err != nil {
			fmt.Fprintf(stderr, "create output: %v\n", err)
			return exitUsage
		}
		defer file.Close()
		out = file
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		fmt.Fprintf(stderr, "encode: %v\n", err)
		return exitUsage
	}

	for _, w := range report.Warnings {
		fmt.Fprintf(stderr, "warning: %s %s\n", w.Code, w.Message)
	}
	if cfg.strict && len(report.Warnings) > 0 {
		return exitWarnings
	}
	return exitOK
}

func resolveDate(value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		now = now.UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return time.Parse("2006-01-02", value)
}

func loadLayout(path string) (*layout.Layout, error) {
	if path == "" {
		return layout.Default()
	}
	return layout.LoadFile(path)
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
