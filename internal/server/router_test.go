package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/orbitengine/server/internal/constants"
	"github.com/orbitengine/server/internal/metrics"
	"github.com/orbitengine/server/internal/simulation"
)

func newTestRouter(t *testing.T) (http.Handler, *simulation.Engine) {
	t.Helper()
	engine := simulation.NewEngine(50, 0, nil, nil)
	hub := NewHub(nil, nil)
	r := NewRouter(engine, hub, []string{"*"}, nil, nil)
	return r, engine
}

func TestHealthz(t *testing.T) {
	r, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestPostTransferAndGetBody(t *testing.T) {
	r, _ := newTestRouter(t)

	body, _ := json.Marshal(transferRequest{
		DepartureBody: constants.Earth,
		ArrivalBody:   constants.Mars,
		TDep:          0,
		TArr:          315 * 86400,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/transfer", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp transferResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.C3 <= 0 {
		t.Fatalf("expected positive C3, got %g", resp.C3)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/api/bodies/earth", nil)
	rec2 := httptest.NewRecorder()
	r.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec2.Code)
	}
}

func TestGetUnknownBodyReturnsBadRequest(t *testing.T) {
	r, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/bodies/pluto", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if resp.Error != "UnknownBody" {
		t.Fatalf("expected UnknownBody, got %s", resp.Error)
	}
}

func TestLaunchMissionThenListMissions(t *testing.T) {
	r, _ := newTestRouter(t)

	body, _ := json.Marshal(launchRequest{
		DepartureBody: constants.Earth,
		ArrivalBody:   constants.Mars,
		TDep:          0,
		TArr:          315 * 86400,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/missions/launch", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var launched missionDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &launched); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if launched.Status != simulation.MissionActive {
		t.Fatalf("expected active at sim_time=t_dep=0, got %v", launched.Status)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/api/missions/", nil)
	rec2 := httptest.NewRecorder()
	r.ServeHTTP(rec2, req2)
	var all []missionDTO
	if err := json.Unmarshal(rec2.Body.Bytes(), &all); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 mission, got %d", len(all))
	}
}

func TestMetricsEndpointServed(t *testing.T) {
	engine := simulation.NewEngine(50, 0, nil, nil)
	hub := NewHub(nil, nil)
	r := NewRouter(engine, hub, []string{"*"}, metrics.Get(), nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
