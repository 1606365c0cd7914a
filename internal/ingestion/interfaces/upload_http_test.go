package interfaces

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"genfleet-cloud/internal/audit"
	"genfleet-cloud/internal/auth"
	ingestionapp "genfleet-cloud/internal/ingestion/application"
	ingestion "genfleet-cloud/internal/ingestion/domain"
)

type fakeIngester struct {
	calls int
	req   ingestionapp.UploadRequest
	err   error
}

func (f *fakeIngester) Ingest(_ context.Context, _ *ingestion.Workbook, req ingestionapp.UploadRequest) (*ingestion.Report, error) {
	f.calls++
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return &ingestion.Report{
		ID:         "rep-1",
		Grid:       req.Grid,
		Date:       req.Date,
		DateColumn: "J",
		Stats:      ingestion.Stats{TotalUnits: 6, Outages: 2},
	}, nil
}

type recordingAudit struct {
	entries []audit.Entry
}

func (r *recordingAudit) Log(_ context.Context, entry audit.Entry) error {
	r.entries = append(r.entries, entry)
	return nil
}

func stubLoader(r io.Reader) (*ingestion.Workbook, error) {
	if _, err := io.ReadAll(r); err != nil {
		return nil, err
	}
	return ingestion.NewWorkbook(), nil
}

func uploadRequest(t *testing.T, fields map[string]string, withFile bool) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if withFile {
		part, err := mw.CreateFormFile("file", "daily.xlsx")
		if err != nil {
			t.Fatalf("create file: %v", err)
		}
		_, _ = part.Write([]byte("PK"))
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func withIdentity(req *http.Request, grids ...string) *http.Request {
	ctx := auth.WithIdentity(req.Context(), auth.Identity{TenantID: "tenant-a", Role: auth.RoleOperator, Subject: "op-1", Grids: grids})
	return req.WithContext(ctx)
}

func newTestHandler(t *testing.T, ingester Ingester, auditLogger audit.Logger) *UploadHandler {
	t.Helper()
	h, err := NewUploadHandler(ingester, auditLogger, WithLoader(stubLoader), WithDefaultGrid("national"))
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	return h
}

func TestUploadHandler_Success(t *testing.T) {
	ingester := &fakeIngester{}
	auditLog := &recordingAudit{}
	h := newTestHandler(t, ingester, auditLog)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, withIdentity(uploadRequest(t, map[string]string{"date": "2026-10-12"}, true)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if ingester.req.Grid != "national" || !ingester.req.Date.Equal(time.Date(2026, time.October, 12, 0, 0, 0, 0, time.UTC)) || ingester.req.Source != "daily.xlsx" {
		t.Fatalf("unexpected request: %+v", ingester.req)
	}
	var report ingestion.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil || report.ID != "rep-1" {
		t.Fatalf("decode report: %v %+v", err, report)
	}
	if len(auditLog.entries) != 1 {
		t.Fatalf("audit entries=%d want 1", len(auditLog.entries))
	}
	entry := auditLog.entries[0]
	if entry.Action != "report.upload" || entry.Grid != "national" || entry.Actor != "op-1" || entry.ResourceID != "rep-1" {
		t.Fatalf("unexpected audit entry: %+v", entry)
	}
}

func TestUploadHandler_DryRunSkipsAudit(t *testing.T) {
	ingester := &fakeIngester{}
	auditLog := &recordingAudit{}
	h := newTestHandler(t, ingester, auditLog)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, withIdentity(uploadRequest(t, map[string]string{"dry_run": "true", "grid": "zanzibar"}, true)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rec.Code)
	}
	if !ingester.req.DryRun || ingester.req.Grid != "zanzibar" {
		t.Fatalf("unexpected request: %+v", ingester.req)
	}
	if len(auditLog.entries) != 0 {
		t.Fatalf("dry run must not be audited")
	}
}

func TestUploadHandler_StructuralError(t *testing.T) {
	ingester := &fakeIngester{err: &ingestion.StructuralError{Sheet: "Schedule", Artifact: "date header", Detail: "no dated column in header row 3"}}
	h := newTestHandler(t, ingester, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, nil, true))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d want 422", rec.Code)
	}
	var resp structuralResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Sheet != "Schedule" || resp.Artifact != "date header" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestUploadHandler_Rejections(t *testing.T) {
	cases := []struct {
		name string
		req  func() *http.Request
		want int
	}{
		{"method", func() *http.Request { return httptest.NewRequest(http.MethodGet, "/api/v1/reports/upload", nil) }, http.StatusMethodNotAllowed},
		{"no file", func() *http.Request { return uploadRequest(t, map[string]string{"grid": "national"}, false) }, http.StatusBadRequest},
		{"bad date", func() *http.Request { return uploadRequest(t, map[string]string{"date": "12/10/2026"}, true) }, http.StatusBadRequest},
		{"bad dry_run", func() *http.Request { return uploadRequest(t, map[string]string{"dry_run": "maybe"}, true) }, http.StatusBadRequest},
		{"grid scope", func() *http.Request { return withIdentity(uploadRequest(t, nil, true), "zanzibar") }, http.StatusForbidden},
	}
	for _, tc := range cases {
		ingester := &fakeIngester{}
		h := newTestHandler(t, ingester, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, tc.req())
		if rec.Code != tc.want {
			t.Fatalf("%s: status=%d want %d", tc.name, rec.Code, tc.want)
		}
		if ingester.calls != 0 {
			t.Fatalf("%s: ingester must not run", tc.name)
		}
	}
}

func TestUploadHandler_InternalError(t *testing.T) {
	h := newTestHandler(t, &fakeIngester{err: fmt.Errorf("store: %w", context.DeadlineExceeded)}, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, nil, true))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d want 500", rec.Code)
	}
}
