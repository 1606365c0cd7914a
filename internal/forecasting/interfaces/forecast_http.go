package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"genfleet-cloud/internal/audit"
	"genfleet-cloud/internal/auth"
	forecastapp "genfleet-cloud/internal/forecasting/application"
	forecast "genfleet-cloud/internal/forecasting/domain"
	"genfleet-cloud/internal/observability/metrics"
)

// Runner computes a forecast for one request.
type Runner interface {
	Run(ctx context.Context, req forecastapp.Request) (*forecast.Result, error)
}

// ForecastHandler serves /api/v1/forecasts and its exports.
type ForecastHandler struct {
	runner      Runner
	auditLogger audit.Logger
	location    *time.Location
	now         func() time.Time
}

// ForecastOption configures the forecast handler.
type ForecastOption func(*ForecastHandler)

// WithLocation sets the zone used to pick today's date when as_of is omitted.
func WithLocation(loc *time.Location) ForecastOption {
	return func(h *ForecastHandler) {
		if loc != nil {
			h.location = loc
		}
	}
}

// WithNow overrides the clock used for the default as_of.
func WithNow(now func() time.Time) ForecastOption {
	return func(h *ForecastHandler) {
		if now != nil {
			h.now = now
		}
	}
}

// NewForecastHandler constructs the handler.
func NewForecastHandler(runner Runner, auditLogger audit.Logger, opts ...ForecastOption) (*ForecastHandler, error) {
	if runner == nil {
		return nil, errors.New("forecast handler: nil runner")
	}
	h := &ForecastHandler{
		runner:      runner,
		auditLogger: auditLogger,
		location:    time.UTC,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

func (h *ForecastHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	switch r.URL.Path {
	case "/api/v1/forecasts":
		h.handleGet(w, r)
	case "/api/v1/forecasts/export.xlsx":
		h.handleExport(w, r, "xlsx")
	case "/api/v1/forecasts/export.pdf":
		h.handleExport(w, r, "pdf")
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *ForecastHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	res, grid, ok := h.run(w, r, "api")
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(res)
	h.logAudit(r, "forecast.view", grid, res, "")
}

func (h *ForecastHandler) handleExport(w http.ResponseWriter, r *http.Request, format string) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveForecastExport(format, result, time.Since(start))
	}()

	res, grid, ok := h.run(w, r, "export")
	if !ok {
		result = metrics.ResultError
		return
	}
	var (
		data        []byte
		err         error
		contentType string
	)
	switch format {
	case "pdf":
		data, err = BuildForecastPDF(res)
		contentType = "application/pdf"
	default:
		data, err = BuildForecastXLSX(res)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	if err != nil {
		result = metrics.ResultError
		http.Error(w, "export "+format+" error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"forecast-%s.%s\"", res.AsOf.Format("2006-01-02"), format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
	h.logAudit(r, "forecast.export", grid, res, format)
}

// run parses the query, checks grid scope and computes the forecast. It
// writes the error response itself and reports ok=false on failure.
func (h *ForecastHandler) run(w http.ResponseWriter, r *http.Request, trigger string) (*forecast.Result, string, bool) {
	query := r.URL.Query()
	req := forecastapp.Request{Trigger: trigger}

	if raw := strings.TrimSpace(query.Get("as_of")); raw != "" {
		asOf, err := time.Parse("2006-01-02", raw)
		if err != nil {
			http.Error(w, "invalid as_of, expected YYYY-MM-DD", http.StatusBadRequest)
			return nil, "", false
		}
		req.AsOf = asOf
	} else {
		local := h.now().In(h.location)
		req.AsOf = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	}
	for _, p := range []struct {
		key string
		dst *int
	}{{"months", &req.Months}, {"range_days", &req.RangeDays}} {
		raw := strings.TrimSpace(query.Get(p.key))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			http.Error(w, "invalid "+p.key, http.StatusBadRequest)
			return nil, "", false
		}
		*p.dst = n
	}
	grid := strings.TrimSpace(query.Get("grid"))
	if err := auth.EnsureGridAccess(r.Context(), grid); err != nil {
		http.Error(w, "forbidden", http.StatusForbidden)
		return nil, "", false
	}

	res, err := h.runner.Run(r.Context(), req)
	if err != nil {
		respondForecastError(w, err)
		return nil, "", false
	}
	return scopeResult(r.Context(), res, grid), grid, true
}

func respondForecastError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, forecast.ErrNoHistory):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, forecast.ErrInvalidHorizon), errors.Is(err, forecast.ErrInvalidReferenceDate):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "forecast failed", http.StatusInternalServerError)
	}
}

// scopeResult keeps only grids the caller may see, narrowed to grid when set.
// Run-level warnings without a grid are kept.
func scopeResult(ctx context.Context, res *forecast.Result, grid string) *forecast.Result {
	keep := func(g string) bool {
		if grid != "" && !strings.EqualFold(g, grid) {
			return false
		}
		return auth.CanAccessGrid(ctx, g)
	}
	out := &forecast.Result{
		AsOf:             res.AsOf,
		Months:           res.Months,
		BackendAvailable: res.BackendAvailable,
	}
	for _, r := range res.Demand {
		if keep(r.Grid) {
			out.Demand = append(out.Demand, r)
		}
	}
	for _, c := range res.Capacity {
		if keep(c.Grid) {
			out.Capacity = append(out.Capacity, c)
		}
	}
	for _, ls := range res.LoadShedding {
		if keep(ls.Grid) {
			out.LoadShedding = append(out.LoadShedding, ls)
		}
	}
	for _, st := range res.Stations {
		if keep(st.Grid) {
			out.Stations = append(out.Stations, st)
		}
	}
	for _, u := range res.Units {
		if keep(u.Grid) {
			out.Units = append(out.Units, u)
		}
	}
	for _, r := range res.KPIs {
		if keep(r.Grid) {
			out.KPIs = append(out.KPIs, r)
		}
	}
	for _, warn := range res.Warnings {
		if warn.Code == forecast.WarningFallback && warn.Grid == "" {
			continue
		}
		if warn.Grid == "" || keep(warn.Grid) {
			out.Warnings = append(out.Warnings, warn)
		}
	}
	// Fallback counts span grids, so recount them over what is kept.
	out.Warnings = append(out.Warnings, out.FallbackWarnings()...)
	return out
}

func (h *ForecastHandler) logAudit(r *http.Request, action, grid string, res *forecast.Result, format string) {
	if h.auditLogger == nil {
		return
	}
	tenantID := auth.TenantIDFromContext(r.Context())
	if tenantID == "" {
		return
	}
	meta := map[string]any{
		"as_of":   res.AsOf.Format("2006-01-02"),
		"months":  res.Months,
		"records": len(res.Records()),
		"backend": res.BackendAvailable,
	}
	if format != "" {
		meta["format"] = format
	}
	entry := audit.RequestEntry(r, action, "forecast", res.AsOf.Format("2006-01-02"), grid, meta)
	entry.TenantID = tenantID
	entry.Actor = auth.SubjectFromContext(r.Context())
	entry.Role = string(auth.RoleFromContext(r.Context()))
	_ = h.auditLogger.Log(r.Context(), entry)
}
