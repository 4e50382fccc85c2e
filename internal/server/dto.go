package server

import (
	"github.com/orbitengine/server/internal/constants"
	"github.com/orbitengine/server/internal/planner"
	"github.com/orbitengine/server/internal/simulation"
)

// errorResponse is the body of every non-2xx JSON response.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// bodyInfo describes one simulated body for the /api/bodies endpoints.
type bodyInfo struct {
	ID             constants.BodyID `json:"id"`
	Name           string           `json:"name"`
	RadiusM        float64          `json:"radius_m"`
	IsSun          bool             `json:"is_sun"`
	OrbitalPeriodS float64          `json:"orbital_period_s,omitempty"`
}

func toBodyInfo(b constants.Body) bodyInfo {
	return bodyInfo{
		ID:             b.ID,
		Name:           b.Name,
		RadiusM:        b.RadiusM,
		IsSun:          b.IsSun,
		OrbitalPeriodS: b.OrbitalPeriodSeconds(),
	}
}

// transferRequest is the body of POST /api/transfer.
type transferRequest struct {
	DepartureBody constants.BodyID `json:"departure_body"`
	ArrivalBody   constants.BodyID `json:"arrival_body"`
	TDep          float64          `json:"t_dep"`
	TArr          float64          `json:"t_arr"`
}

type trajectorySampleDTO struct {
	T        float64    `json:"t"`
	Position [3]float64 `json:"position"`
}

type transferResponse struct {
	DepartureBody constants.BodyID      `json:"departure_body"`
	ArrivalBody   constants.BodyID      `json:"arrival_body"`
	TDep          float64               `json:"t_dep"`
	TArr          float64               `json:"t_arr"`
	C3            float64               `json:"c3"`
	DeltaV        float64               `json:"delta_v"`
	Trajectory    []trajectorySampleDTO `json:"trajectory"`
}

func toTransferResponse(x planner.Transfer) transferResponse {
	samples := make([]trajectorySampleDTO, len(x.Trajectory))
	for i, s := range x.Trajectory {
		samples[i] = trajectorySampleDTO{T: s.T, Position: s.Position.Array()}
	}
	return transferResponse{
		DepartureBody: x.DepartureBody,
		ArrivalBody:   x.ArrivalBody,
		TDep:          x.TDep,
		TArr:          x.TArr,
		C3:            x.C3,
		DeltaV:        x.DeltaV,
		Trajectory:    samples,
	}
}

// porkchopRequest is the body of POST /api/porkchop.
type porkchopRequest struct {
	DepartureBody constants.BodyID `json:"departure_body"`
	ArrivalBody   constants.BodyID `json:"arrival_body"`
	DepStart      float64          `json:"dep_start"`
	DepEnd        float64          `json:"dep_end"`
	ArrStart      float64          `json:"arr_start"`
	ArrEnd        float64          `json:"arr_end"`
	GridN         int              `json:"grid_n"`
	GridM         int              `json:"grid_m"`
}

type cellDTO struct {
	C3     float64 `json:"c3"`
	DeltaV float64 `json:"delta_v"`
}

type porkchopResponse struct {
	DepartureBody constants.BodyID `json:"departure_body"`
	ArrivalBody   constants.BodyID `json:"arrival_body"`
	DepDates      []float64        `json:"dep_dates"`
	ArrDates      []float64        `json:"arr_dates"`
	Cells         [][]*cellDTO     `json:"cells"`
	Partial       bool             `json:"partial"`
}

func toPorkchopResponse(g planner.Grid) porkchopResponse {
	cells := make([][]*cellDTO, len(g.Cells))
	for i, row := range g.Cells {
		cells[i] = make([]*cellDTO, len(row))
		for j, c := range row {
			if c == nil {
				continue
			}
			cells[i][j] = &cellDTO{C3: c.C3, DeltaV: c.DeltaV}
		}
	}
	return porkchopResponse{
		DepartureBody: g.DepartureBody,
		ArrivalBody:   g.ArrivalBody,
		DepDates:      g.DepDates,
		ArrDates:      g.ArrDates,
		Cells:         cells,
		Partial:       g.Partial,
	}
}

// launchRequest is the body of POST /api/missions/launch.
type launchRequest struct {
	DepartureBody constants.BodyID `json:"departure_body"`
	ArrivalBody   constants.BodyID `json:"arrival_body"`
	TDep          float64          `json:"t_dep"`
	TArr          float64          `json:"t_arr"`
}

type missionDTO struct {
	ID              string                   `json:"id"`
	DepartureBody   constants.BodyID         `json:"departure_body"`
	ArrivalBody     constants.BodyID         `json:"arrival_body"`
	Status          simulation.MissionStatus `json:"status"`
	Progress        float64                  `json:"progress"`
	DeltaV          float64                  `json:"delta_v"`
	CurrentPosition *[3]float64              `json:"current_position,omitempty"`
	Transfer        transferResponse         `json:"transfer"`
}

func toMissionDTO(m simulation.Mission) missionDTO {
	var pos *[3]float64
	if m.CurrentPosition != nil {
		arr := m.CurrentPosition.Array()
		pos = &arr
	}
	return missionDTO{
		ID:              m.ID,
		DepartureBody:   m.DepartureBody,
		ArrivalBody:     m.ArrivalBody,
		Status:          m.Status,
		Progress:        m.Progress,
		DeltaV:          m.Transfer.DeltaV,
		CurrentPosition: pos,
		Transfer:        toTransferResponse(m.Transfer),
	}
}

// stateSnapshotDTO is what the websocket stream pushes every tick.
type stateSnapshotDTO struct {
	SimTime   float64                          `json:"sim_time"`
	TimeScale float64                          `json:"time_scale"`
	State     string                           `json:"state"`
	FocusBody constants.BodyID                 `json:"focus_body"`
	Bodies    map[constants.BodyID][3]float64  `json:"bodies"`
	Missions  []missionDTO                     `json:"missions"`
}

func toStateSnapshot(s simulation.Snapshot) stateSnapshotDTO {
	bodies := make(map[constants.BodyID][3]float64, len(s.BodyPositions))
	for id, pos := range s.BodyPositions {
		bodies[id] = pos.Array()
	}
	missions := make([]missionDTO, len(s.Missions))
	for i, m := range s.Missions {
		missions[i] = toMissionDTO(m)
	}
	return stateSnapshotDTO{
		SimTime:   s.SimTime,
		TimeScale: s.TimeScale,
		State:     s.State.String(),
		FocusBody: s.FocusBody,
		Bodies:    bodies,
		Missions:  missions,
	}
}

// commandDTO is an inbound websocket command from a session.
type commandDTO struct {
	Type      string           `json:"type"`
	TimeScale float64          `json:"time_scale,omitempty"`
	FocusBody constants.BodyID `json:"focus_body,omitempty"`
	Launch    *launchRequest   `json:"launch,omitempty"`
}
