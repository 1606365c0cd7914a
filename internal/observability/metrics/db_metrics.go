package metrics

import (
	"database/sql"
	"log"

	"github.com/prometheus/client_golang/prometheus"
)

func registerDBMetrics(db *sql.DB, logger *log.Logger) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "generation_reports_stored",
			Help: "Stored generation reports",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COUNT(*) FROM generation_reports")
		},
	))

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "open_outages",
			Help: "Unresolved outages in the latest report of each grid",
		},
		func() float64 {
			return queryCount(db, logger, `
SELECT COUNT(*)
FROM report_outages o
JOIN (
	SELECT DISTINCT ON (grid) id FROM generation_reports ORDER BY grid, report_date DESC, created_at DESC
) latest ON latest.id = o.report_id
WHERE NOT o.is_resolved`)
		},
	))
}

func queryCount(db *sql.DB, logger *log.Logger, query string) float64 {
	if db == nil {
		return 0
	}
	var count int64
	if err := db.QueryRow(query).Scan(&count); err != nil {
		if logger != nil {
			logger.Printf("metrics query failed: %v", err)
		}
		return 0
	}
	if count < 0 {
		return 0
	}
	return float64(count)
}
