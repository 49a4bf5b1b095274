package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/loglens/loglens/internal/api"
	"github.com/loglens/loglens/internal/models"
)

func TestAnalyticsGet(t *testing.T) {
	t.Parallel()

	var gotType models.AnalyticsType
	var gotScope string
	var gotForce bool

	reporter := &mockReporter{
		reportFn: func(_ context.Context, _ string, typ models.AnalyticsType, scope string, force bool) (json.RawMessage, error) {
			gotType, gotScope, gotForce = typ, scope, force
			return json.RawMessage(`{"total":42}`), nil
		},
	}

	r := newTestRouter()
	h := api.NewAnalyticsHandler(reporter, testLogger())
	r.GET("/analytics/:type", h.Get)

	w := doRequest(r, http.MethodGet, "/analytics/overview?scope_id=batch-1&force=true", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if w.Body.String() != `{"total":42}` {
		t.Errorf("body = %s, want raw payload", w.Body.String())
	}
	if gotType != models.AnalyticsOverview || gotScope != "batch-1" || !gotForce {
		t.Errorf("engine called with type=%s scope=%s force=%v", gotType, gotScope, gotForce)
	}
}

func TestAnalyticsGet_UnknownType(t *testing.T) {
	t.Parallel()

	r := newTestRouter()
	h := api.NewAnalyticsHandler(&mockReporter{}, testLogger())
	r.GET("/analytics/:type", h.Get)

	w := doRequest(r, http.MethodGet, "/analytics/bogus", "")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAnalyticsGet_EngineFailure(t *testing.T) {
	t.Parallel()

	reporter := &mockReporter{
		reportFn: func(context.Context, string, models.AnalyticsType, string, bool) (json.RawMessage, error) {
			return nil, errors.New("db unavailable")
		},
	}

	r := newTestRouter()
	h := api.NewAnalyticsHandler(reporter, testLogger())
	r.GET("/analytics/:type", h.Get)

	w := doRequest(r, http.MethodGet, "/analytics/insights", "")

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d: %s", w.Code, w.Body.String())
	}
	if !json.Valid(w.Body.Bytes()) {
		t.Error("error envelope is not valid JSON")
	}
}
