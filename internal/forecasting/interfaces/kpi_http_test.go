package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"genfleet-cloud/internal/auth"
	forecast "genfleet-cloud/internal/forecasting/domain"
	"genfleet-cloud/internal/forecasting/infrastructure/memory"
)

type failingRecorder struct{}

func (failingRecorder) RecordMonthlyKPI(context.Context, forecast.KPIPoint) error {
	return errors.New("db down")
}

func postKPI(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/kpis/monthly", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestMonthlyKPIHandler_RecordAndList(t *testing.T) {
	store := memory.NewHistoryStore()
	auditLog := &recordingAudit{}
	h, err := NewMonthlyKPIHandler(store, store, auditLog)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	for _, body := range []string{
		`{"grid":"zanzibar","name":"peak_demand_mw","month":"2026-08","value":48}`,
		`{"grid":"zanzibar","name":"peak_demand_mw","month":"2026-09","value":51}`,
		`{"grid":"pemba","name":"availability_pct","month":"2026-09","value":88}`,
	} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, as(postKPI(body), auth.RoleOperator))
		if rec.Code != http.StatusCreated {
			t.Fatalf("record %s: status=%d body=%s", body, rec.Code, rec.Body.String())
		}
	}
	if len(auditLog.entries) != 3 || auditLog.entries[0].Action != "kpi.record" || auditLog.entries[0].ResourceID != "peak_demand_mw@2026-08" {
		t.Fatalf("unexpected audit: %+v", auditLog.entries)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, as(httptest.NewRequest(http.MethodGet, "/api/v1/kpis/monthly?grid=zanzibar", nil), auth.RoleViewer))
	if rec.Code != http.StatusOK {
		t.Fatalf("list status=%d", rec.Code)
	}
	var points []kpiPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &points); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(points) != 2 || points[0].Month != "2026-08" || points[1].Value != 51 {
		t.Fatalf("unexpected points: %+v", points)
	}

	// a scoped viewer only sees its own grids
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, as(httptest.NewRequest(http.MethodGet, "/api/v1/kpis/monthly", nil), auth.RoleViewer, "pemba"))
	points = nil
	if err := json.Unmarshal(rec.Body.Bytes(), &points); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(points) != 1 || points[0].Grid != "pemba" {
		t.Fatalf("scope filter mismatch: %+v", points)
	}
}

func TestMonthlyKPIHandler_Validation(t *testing.T) {
	store := memory.NewHistoryStore()
	h, err := NewMonthlyKPIHandler(store, store, nil)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	cases := map[string]string{
		"bad json":      `{"grid":`,
		"missing grid":  `{"name":"peak_demand_mw","month":"2026-09","value":1}`,
		"unknown name":  `{"grid":"zanzibar","name":"tariff","month":"2026-09","value":1}`,
		"bad month":     `{"grid":"zanzibar","name":"peak_demand_mw","month":"09/2026","value":1}`,
		"negative":      `{"grid":"zanzibar","name":"peak_demand_mw","month":"2026-09","value":-1}`,
		"percent range": `{"grid":"zanzibar","name":"availability_pct","month":"2026-09","value":140}`,
	}
	for name, body := range cases {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, postKPI(body))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status=%d want 400", name, rec.Code)
		}
	}
	if n := store.CountReports(""); n != 0 {
		t.Fatalf("rejected requests must not store anything")
	}
	points, _ := store.MonthlyKPISeries(context.Background())
	if len(points) != 0 {
		t.Fatalf("rejected requests stored %d points", len(points))
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, as(postKPI(`{"grid":"zanzibar","name":"peak_demand_mw","month":"2026-09","value":1}`), auth.RoleOperator, "pemba"))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("out-of-scope grid status=%d want 403", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/kpis/monthly", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("delete status=%d want 405", rec.Code)
	}
}

func TestMonthlyKPIHandler_RecorderFailure(t *testing.T) {
	h, err := NewMonthlyKPIHandler(memory.NewHistoryStore(), failingRecorder{}, nil)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, postKPI(`{"grid":"zanzibar","name":"peak_demand_mw","month":"2026-09","value":1}`))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d want 500", rec.Code)
	}
	if _, err := NewMonthlyKPIHandler(nil, failingRecorder{}, nil); err == nil {
		t.Fatalf("expected nil source error")
	}
}
