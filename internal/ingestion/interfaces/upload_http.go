package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"genfleet-cloud/internal/audit"
	"genfleet-cloud/internal/auth"
	ingestionapp "genfleet-cloud/internal/ingestion/application"
	ingestion "genfleet-cloud/internal/ingestion/domain"
	"genfleet-cloud/internal/ingestion/infrastructure/xlsx"
)

const defaultMaxUploadBytes = 32 << 20

// Ingester parses and stores one workbook.
type Ingester interface {
	Ingest(ctx context.Context, wb *ingestion.Workbook, req ingestionapp.UploadRequest) (*ingestion.Report, error)
}

// WorkbookLoader turns an uploaded file into an in-memory workbook.
type WorkbookLoader func(r io.Reader) (*ingestion.Workbook, error)

// UploadHandler serves POST /api/v1/reports/upload.
type UploadHandler struct {
	service     Ingester
	load        WorkbookLoader
	auditLogger audit.Logger
	maxBytes    int64
	defaultGrid string
}

// HandlerOption configures the upload handler.
type HandlerOption func(*UploadHandler)

// WithMaxUploadBytes caps the multipart body size.
func WithMaxUploadBytes(n int64) HandlerOption {
	return func(h *UploadHandler) {
		if n > 0 {
			h.maxBytes = n
		}
	}
}

// WithLoader overrides the XLSX loader.
func WithLoader(load WorkbookLoader) HandlerOption {
	return func(h *UploadHandler) {
		if load != nil {
			h.load = load
		}
	}
}

// WithDefaultGrid names the grid assumed when the form omits one, so grid
// scope is checked against the grid the report will be stored under.
func WithDefaultGrid(grid string) HandlerOption {
	return func(h *UploadHandler) {
		h.defaultGrid = strings.TrimSpace(grid)
	}
}

// NewUploadHandler constructs the handler.
func NewUploadHandler(service Ingester, auditLogger audit.Logger, opts ...HandlerOption) (*UploadHandler, error) {
	if service == nil {
		return nil, errors.New("upload handler: nil service")
	}
	h := &UploadHandler{
		service:     service,
		load:        xlsx.Load,
		auditLogger: auditLogger,
		maxBytes:    defaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

type structuralResponse struct {
	Error    string `json:"error"`
	Sheet    string `json:"sheet,omitempty"`
	Artifact string `json:"artifact"`
}

func (h *UploadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		http.Error(w, "invalid multipart upload", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	req := ingestionapp.UploadRequest{
		Grid:   strings.TrimSpace(r.FormValue("grid")),
		Source: header.Filename,
	}
	if req.Grid == "" {
		req.Grid = h.defaultGrid
	}
	if err := auth.EnsureGridAccess(r.Context(), req.Grid); err != nil {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	if raw := strings.TrimSpace(r.FormValue("date")); raw != "" {
		date, err := time.Parse("2006-01-02", raw)
		if err != nil {
			http.Error(w, "invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		req.Date = date
	}
	if raw := strings.TrimSpace(r.FormValue("dry_run")); raw != "" {
		dryRun, err := strconv.ParseBool(raw)
		if err != nil {
			http.Error(w, "invalid dry_run", http.StatusBadRequest)
			return
		}
		req.DryRun = dryRun
	}

	wb, err := h.load(file)
	if err != nil {
		http.Error(w, "unreadable workbook", http.StatusBadRequest)
		return
	}
	report, err := h.service.Ingest(r.Context(), wb, req)
	if err != nil {
		respondIngestError(w, err)
		return
	}

	status := http.StatusCreated
	if req.DryRun {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(report)

	if !req.DryRun {
		h.logAudit(r, report, header.Filename)
	}
}

func respondIngestError(w http.ResponseWriter, err error) {
	if se, ok := ingestion.AsStructural(err); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(structuralResponse{
			Error:    se.Error(),
			Sheet:    se.Sheet,
			Artifact: se.Artifact,
		})
		return
	}
	if errors.Is(err, ingestion.ErrNilWorkbook) || errors.Is(err, ingestion.ErrInvalidReportDate) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	http.Error(w, "ingest failed", http.StatusInternalServerError)
}

func (h *UploadHandler) logAudit(r *http.Request, report *ingestion.Report, filename string) {
	if h.auditLogger == nil {
		return
	}
	tenantID := auth.TenantIDFromContext(r.Context())
	if tenantID == "" {
		return
	}
	meta := map[string]any{
		"file":        filename,
		"report_date": report.Date.Format("2006-01-02"),
		"date_column": report.DateColumn,
		"exact_match": report.ExactDateMatch,
		"units":       report.Stats.TotalUnits,
		"outages":     report.Stats.Outages,
		"warnings":    len(report.Warnings),
	}
	entry := audit.RequestEntry(r, "report.upload", "generation_report", report.ID, report.Grid, meta)
	entry.TenantID = tenantID
	entry.Actor = auth.SubjectFromContext(r.Context())
	entry.Role = string(auth.RoleFromContext(r.Context()))
	_ = h.auditLogger.Log(r.Context(), entry)
}
