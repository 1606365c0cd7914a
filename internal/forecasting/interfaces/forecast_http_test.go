package interfaces

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"genfleet-cloud/internal/audit"
	"genfleet-cloud/internal/auth"
	forecast "genfleet-cloud/internal/forecasting/domain"
)

func newTestForecastHandler(t *testing.T, runner Runner, auditLog *recordingAudit) *ForecastHandler {
	t.Helper()
	eat := time.FixedZone("EAT", 3*60*60)
	var logger audit.Logger
	if auditLog != nil {
		logger = auditLog
	}
	h, err := NewForecastHandler(runner, logger,
		WithLocation(eat),
		WithNow(func() time.Time { return time.Date(2026, time.October, 12, 22, 0, 0, 0, time.UTC) }))
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	return h
}

func TestForecastHandler_Get(t *testing.T) {
	runner := &fakeRunner{res: sampleResult()}
	auditLog := &recordingAudit{}
	h := newTestForecastHandler(t, runner, auditLog)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, as(httptest.NewRequest(http.MethodGet, "/api/v1/forecasts?as_of=2026-10-01&months=6&range_days=90", nil), auth.RoleViewer))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if !runner.last.AsOf.Equal(time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC)) || runner.last.Months != 6 || runner.last.RangeDays != 90 || runner.last.Trigger != "api" {
		t.Fatalf("unexpected request: %+v", runner.last)
	}
	var res forecast.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Demand) != 4 || len(res.Capacity) != 2 || len(res.Warnings) != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(auditLog.entries) != 1 || auditLog.entries[0].Action != "forecast.view" {
		t.Fatalf("unexpected audit: %+v", auditLog.entries)
	}
}

func TestForecastHandler_DefaultAsOfUsesLocalDay(t *testing.T) {
	runner := &fakeRunner{res: sampleResult()}
	h := newTestForecastHandler(t, runner, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/forecasts", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	// 22:00 UTC on the 12th is the 13th in EAT
	if !runner.last.AsOf.Equal(testAsOf) {
		t.Fatalf("as_of=%s want %s", runner.last.AsOf, testAsOf)
	}
}

func TestForecastHandler_GridScope(t *testing.T) {
	runner := &fakeRunner{res: sampleResult()}
	h := newTestForecastHandler(t, runner, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, as(httptest.NewRequest(http.MethodGet, "/api/v1/forecasts", nil), auth.RoleViewer, "zanzibar"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	var res forecast.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, r := range res.Records() {
		if r.Grid != "zanzibar" {
			t.Fatalf("record outside scope: %+v", r)
		}
	}
	if len(res.Demand) != 2 || len(res.Units) != 0 || len(res.Stations) != 0 || len(res.KPIs) != 1 {
		t.Fatalf("scope filtering mismatch: %+v", res)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Grid != "" || res.Warnings[0].Code != forecast.WarningFallback {
		t.Fatalf("only run-level warnings should remain: %+v", res.Warnings)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, as(httptest.NewRequest(http.MethodGet, "/api/v1/forecasts?grid=national", nil), auth.RoleViewer, "zanzibar"))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("out-of-scope grid status=%d want 403", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, as(httptest.NewRequest(http.MethodGet, "/api/v1/forecasts?grid=national", nil), auth.RoleViewer))
	var narrowed forecast.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &narrowed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(narrowed.Demand) != 2 || len(narrowed.Capacity) != 1 || narrowed.Capacity[0].Grid != "national" {
		t.Fatalf("grid filter mismatch: %+v", narrowed)
	}
}

func TestScopeResult_RecountsFallbacks(t *testing.T) {
	res := sampleResult()
	national := res.Demand[0]
	national.IsFallback = true
	national.FallbackReason = forecast.FallbackBackendUnreachable
	res.Demand[0] = national
	res.Warnings = append(res.Warnings, res.FallbackWarnings()...)

	fallbacks := func(ws []forecast.Warning) []string {
		var out []string
		for _, w := range ws {
			if w.Code == forecast.WarningFallback {
				out = append(out, w.Message)
			}
		}
		return out
	}
	ctx := func(grids ...string) context.Context {
		return auth.WithIdentity(context.Background(), auth.Identity{TenantID: "tenant-a", Role: auth.RoleViewer, Grids: grids})
	}

	cases := []struct {
		name string
		ctx  context.Context
		grid string
		want []string
	}{
		{"all grids", ctx(), "", []string{
			"1 series projected in fallback mode (backend_unreachable)",
			"1 series projected in fallback mode (insufficient_history)",
		}},
		{"national token", ctx("national"), "", []string{"1 series projected in fallback mode (backend_unreachable)"}},
		{"zanzibar token", ctx("zanzibar"), "", []string{"1 series projected in fallback mode (insufficient_history)"}},
		{"pemba token", ctx("pemba"), "", nil},
		{"grid filter", ctx(), "national", []string{"1 series projected in fallback mode (backend_unreachable)"}},
	}
	for _, tc := range cases {
		got := fallbacks(scopeResult(tc.ctx, res, tc.grid).Warnings)
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("%s: fallback warnings=%v want %v", tc.name, got, tc.want)
		}
	}
}

func TestForecastHandler_Errors(t *testing.T) {
	cases := []struct {
		name   string
		target string
		method string
		err    error
		want   int
	}{
		{"bad as_of", "/api/v1/forecasts?as_of=13/10/2026", http.MethodGet, nil, http.StatusBadRequest},
		{"bad months", "/api/v1/forecasts?months=0", http.MethodGet, nil, http.StatusBadRequest},
		{"no history", "/api/v1/forecasts", http.MethodGet, forecast.ErrNoHistory, http.StatusNotFound},
		{"horizon", "/api/v1/forecasts?months=40", http.MethodGet, forecast.ErrInvalidHorizon, http.StatusBadRequest},
		{"internal", "/api/v1/forecasts", http.MethodGet, errors.New("db down"), http.StatusInternalServerError},
		{"method", "/api/v1/forecasts", http.MethodPost, nil, http.StatusMethodNotAllowed},
		{"unknown", "/api/v1/forecasts/export.csv", http.MethodGet, nil, http.StatusNotFound},
	}
	for _, tc := range cases {
		h := newTestForecastHandler(t, &fakeRunner{res: sampleResult(), err: tc.err}, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.target, nil))
		if rec.Code != tc.want {
			t.Fatalf("%s: status=%d want %d", tc.name, rec.Code, tc.want)
		}
	}
}

func TestForecastHandler_Exports(t *testing.T) {
	auditLog := &recordingAudit{}
	h := newTestForecastHandler(t, &fakeRunner{res: sampleResult()}, auditLog)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, as(httptest.NewRequest(http.MethodGet, "/api/v1/forecasts/export.pdf?as_of=2026-10-13", nil), auth.RoleOperator))
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/pdf" {
		t.Fatalf("pdf export status=%d type=%s", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Fatalf("pdf body mismatch")
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "forecast-2026-10-13.pdf") {
		t.Fatalf("disposition=%s", rec.Header().Get("Content-Disposition"))
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, as(httptest.NewRequest(http.MethodGet, "/api/v1/forecasts/export.xlsx", nil), auth.RoleOperator))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Header().Get("Content-Type"), "spreadsheetml") {
		t.Fatalf("xlsx export status=%d type=%s", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")) {
		t.Fatalf("xlsx body is not a zip archive")
	}

	if len(auditLog.entries) != 2 || auditLog.entries[0].Action != "forecast.export" || auditLog.entries[0].PayloadDigest == "" {
		t.Fatalf("unexpected audit: %+v", auditLog.entries)
	}
}

func TestNewForecastHandler_NilRunner(t *testing.T) {
	if _, err := NewForecastHandler(nil, nil); err == nil {
		t.Fatalf("expected nil runner error")
	}
}
