package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"genfleet-cloud/internal/audit"
	"genfleet-cloud/internal/auth"
	forecast "genfleet-cloud/internal/forecasting/domain"
)

// KPISource lists monthly KPI values.
type KPISource interface {
	MonthlyKPISeries(ctx context.Context) ([]forecast.KPIPoint, error)
}

// KPIRecorder stores a monthly KPI value for a grid without daily reports.
type KPIRecorder interface {
	RecordMonthlyKPI(ctx context.Context, point forecast.KPIPoint) error
}

// MonthlyKPIHandler serves GET and POST /api/v1/kpis/monthly.
type MonthlyKPIHandler struct {
	source      KPISource
	recorder    KPIRecorder
	auditLogger audit.Logger
}

// NewMonthlyKPIHandler constructs the handler.
func NewMonthlyKPIHandler(source KPISource, recorder KPIRecorder, auditLogger audit.Logger) (*MonthlyKPIHandler, error) {
	if source == nil {
		return nil, errors.New("kpi handler: nil source")
	}
	if recorder == nil {
		return nil, errors.New("kpi handler: nil recorder")
	}
	return &MonthlyKPIHandler{source: source, recorder: recorder, auditLogger: auditLogger}, nil
}

type kpiPayload struct {
	Grid  string  `json:"grid"`
	Name  string  `json:"name"`
	Month string  `json:"month"`
	Value float64 `json:"value"`
}

func (h *MonthlyKPIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/api/v1/kpis/monthly" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	switch r.Method {
	case http.MethodGet:
		h.handleList(w, r)
	case http.MethodPost:
		h.handleRecord(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *MonthlyKPIHandler) handleList(w http.ResponseWriter, r *http.Request) {
	grid := strings.TrimSpace(r.URL.Query().Get("grid"))
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if err := auth.EnsureGridAccess(r.Context(), grid); err != nil {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	points, err := h.source.MonthlyKPISeries(r.Context())
	if err != nil {
		http.Error(w, "load kpis failed", http.StatusInternalServerError)
		return
	}
	out := make([]kpiPayload, 0, len(points))
	for _, p := range points {
		if grid != "" && !strings.EqualFold(p.Grid, grid) {
			continue
		}
		if name != "" && p.Name != name {
			continue
		}
		if !auth.CanAccessGrid(r.Context(), p.Grid) {
			continue
		}
		out = append(out, kpiPayload{Grid: p.Grid, Name: p.Name, Month: p.Period.Format("2006-01"), Value: p.Value})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (h *MonthlyKPIHandler) handleRecord(w http.ResponseWriter, r *http.Request) {
	var req kpiPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	req.Grid = strings.TrimSpace(req.Grid)
	req.Name = strings.TrimSpace(req.Name)
	if req.Grid == "" {
		http.Error(w, "grid is required", http.StatusBadRequest)
		return
	}
	class, ok := forecast.KPIClassOf(req.Name)
	if !ok {
		http.Error(w, "unknown kpi name", http.StatusBadRequest)
		return
	}
	month, err := time.Parse("2006-01", strings.TrimSpace(req.Month))
	if err != nil {
		http.Error(w, "invalid month, expected YYYY-MM", http.StatusBadRequest)
		return
	}
	if req.Value < 0 || (class == forecast.KPIPercent && req.Value > 100) {
		http.Error(w, "value out of range", http.StatusBadRequest)
		return
	}
	if err := auth.EnsureGridAccess(r.Context(), req.Grid); err != nil {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	point := forecast.KPIPoint{Grid: req.Grid, Name: req.Name, Period: month, Value: req.Value}
	if err := h.recorder.RecordMonthlyKPI(r.Context(), point); err != nil {
		http.Error(w, "record kpi failed", http.StatusInternalServerError)
		return
	}
	req.Month = month.Format("2006-01")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(req)
	h.logAudit(r, req)
}

func (h *MonthlyKPIHandler) logAudit(r *http.Request, req kpiPayload) {
	if h.auditLogger == nil {
		return
	}
	tenantID := auth.TenantIDFromContext(r.Context())
	if tenantID == "" {
		return
	}
	entry := audit.RequestEntry(r, "kpi.record", "kpi_point", req.Name+"@"+req.Month, req.Grid, req)
	entry.TenantID = tenantID
	entry.Actor = auth.SubjectFromContext(r.Context())
	entry.Role = string(auth.RoleFromContext(r.Context()))
	_ = h.auditLogger.Log(r.Context(), entry)
}
