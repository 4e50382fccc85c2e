package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/orbitengine/server/internal/constants"
	"github.com/orbitengine/server/internal/metrics"
	"github.com/orbitengine/server/internal/orbiterr"
	"github.com/orbitengine/server/internal/planner"
	"github.com/orbitengine/server/internal/simulation"
)

// NewRouter builds the full HTTP surface: the one-shot planner and mission
// REST endpoints, the streaming websocket, health and metrics.
func NewRouter(engine *simulation.Engine, hub *Hub, allowedOrigins []string, m *metrics.Metrics, log *logrus.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := &handlers{engine: engine, m: m, log: log}

	r.Get("/healthz", h.healthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/bodies", func(r chi.Router) {
			r.Get("/", h.listBodies)
			r.Get("/{id}", h.getBody)
		})
		r.Post("/transfer", h.postTransfer)
		r.Post("/porkchop", h.postPorkchop)
		r.Route("/missions", func(r chi.Router) {
			r.Get("/", h.listMissions)
			r.Get("/{id}", h.getMission)
			r.Post("/launch", h.launchMission)
		})
	})

	r.Route("/ws", func(r chi.Router) {
		r.Get("/stream", hub.ServeWebSocket(engine, m, log).ServeHTTP)
	})

	return r
}

type handlers struct {
	engine *simulation.Engine
	m      *metrics.Metrics
	log    *logrus.Logger
}

func (h *handlers) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) listBodies(w http.ResponseWriter, r *http.Request) {
	bodies := constants.All()
	out := make([]bodyInfo, len(bodies))
	for i, b := range bodies {
		out[i] = toBodyInfo(b)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) getBody(w http.ResponseWriter, r *http.Request) {
	id := constants.BodyID(chi.URLParam(r, "id"))
	body, err := constants.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBodyInfo(body))
}

func (h *handlers) postTransfer(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: string(orbiterr.ProtocolError), Message: err.Error()})
		return
	}

	xfer, err := planner.ComputeTransfer(req.DepartureBody, req.ArrivalBody, req.TDep, req.TArr)
	h.observePlanner("transfer", start, err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransferResponse(xfer))
}

func (h *handlers) postPorkchop(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req porkchopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: string(orbiterr.ProtocolError), Message: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), planner.DefaultGridDeadline)
	defer cancel()

	grid, err := planner.Porkchop(ctx, req.DepartureBody, req.ArrivalBody, req.DepStart, req.DepEnd, req.ArrStart, req.ArrEnd, req.GridN, req.GridM)
	h.observePlanner("porkchop", start, err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPorkchopResponse(grid))
}

func (h *handlers) listMissions(w http.ResponseWriter, r *http.Request) {
	missions := h.engine.Missions()
	out := make([]missionDTO, len(missions))
	for i, m := range missions {
		out[i] = toMissionDTO(m)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) getMission(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	m, ok := h.engine.Mission(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "NotFound", Message: "no mission with id " + id})
		return
	}
	writeJSON(w, http.StatusOK, toMissionDTO(m))
}

func (h *handlers) launchMission(w http.ResponseWriter, r *http.Request) {
	var req launchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: string(orbiterr.ProtocolError), Message: err.Error()})
		return
	}

	m, err := h.engine.LaunchMission(simulation.LaunchRequest{
		DepartureBody: req.DepartureBody,
		ArrivalBody:   req.ArrivalBody,
		TDep:          req.TDep,
		TArr:          req.TArr,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if h.m != nil {
		h.m.MissionsLaunched.WithLabelValues(string(req.DepartureBody), string(req.ArrivalBody)).Inc()
	}
	writeJSON(w, http.StatusCreated, toMissionDTO(m))
}

func (h *handlers) observePlanner(operation string, start time.Time, err error) {
	if h.m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = string(orbiterr.KindOf(err))
		if outcome == "" {
			outcome = "error"
		}
	}
	h.m.PlannerRequests.WithLabelValues(operation, outcome).Inc()
	h.m.PlannerDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a typed orbiterr.Error to an HTTP status and the
// {error, message} JSON body; unrecognized errors become 500s.
func writeError(w http.ResponseWriter, err error) {
	kind := orbiterr.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case orbiterr.UnknownBody, orbiterr.InvalidSpeed, orbiterr.InvalidTimeOfFlight,
		orbiterr.DegenerateGeometry, orbiterr.UnsupportedRevolutions, orbiterr.ProtocolError:
		status = http.StatusBadRequest
	case orbiterr.NoFeasibleTransfers:
		status = http.StatusUnprocessableEntity
	case orbiterr.ConvergenceFailure, orbiterr.PlannerDeadlineExceeded:
		status = http.StatusGatewayTimeout
	case orbiterr.QueueOverflow:
		status = http.StatusServiceUnavailable
	}
	if kind == "" {
		kind = "InternalError"
	}
	writeJSON(w, status, errorResponse{Error: string(kind), Message: err.Error()})
}
