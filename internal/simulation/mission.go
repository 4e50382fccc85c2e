package simulation

import (
	"github.com/orbitengine/server/internal/constants"
	"github.com/orbitengine/server/internal/kepler"
	"github.com/orbitengine/server/internal/planner"
	"github.com/orbitengine/server/internal/vector3"
)

// MissionStatus is a mission's lifecycle stage.
type MissionStatus string

const (
	MissionPending   MissionStatus = "pending"
	MissionActive    MissionStatus = "active"
	MissionCompleted MissionStatus = "completed"
	MissionFailed    MissionStatus = "failed"
)

// Mission is a launched transfer tracked against the simulation clock: it
// starts pending at creation, becomes active once sim_time reaches
// TDep, and completes once sim_time reaches TArr.
type Mission struct {
	ID            string
	DepartureBody constants.BodyID
	ArrivalBody   constants.BodyID
	Transfer      planner.Transfer
	Status        MissionStatus
	Progress      float64 // 0 before TDep, 1 at/after TArr, linear between

	// CurrentPosition is the heliocentric position along the transfer arc,
	// Kepler-propagated from (R1, V1) by (simTime - TDep). It is nil until
	// the mission goes active and holds its last computed value once the
	// mission completes.
	CurrentPosition *vector3.Vector3
}

// updateStatus derives Status, Progress, and CurrentPosition from the
// current sim_time. A mission already Failed stays Failed; everything
// else is purely a function of simTime and the mission's own
// [TDep, TArr] window.
func (m *Mission) updateStatus(simTime float64) {
	if m.Status == MissionFailed {
		return
	}

	tDep, tArr := m.Transfer.TDep, m.Transfer.TArr
	switch {
	case simTime < tDep:
		m.Status = MissionPending
		m.Progress = 0
	case simTime >= tArr:
		m.Status = MissionCompleted
		m.Progress = 1
	default:
		m.Status = MissionActive
		m.Progress = (simTime - tDep) / (tArr - tDep)
		if pos, err := currentArcPosition(m.Transfer, simTime); err == nil {
			m.CurrentPosition = &pos
		} else {
			m.Status = MissionFailed
		}
	}
}

// currentArcPosition re-derives the transfer orbit's elements from its
// terminal (R1, V1) state vector and propagates them by simTime-TDep,
// the same technique planner.sampleArc uses to sample the arc for
// visualization.
func currentArcPosition(xfer planner.Transfer, simTime float64) (vector3.Vector3, error) {
	el, err := kepler.ElementsFromStateVector(xfer.R1, xfer.V1, constants.MuSun)
	if err != nil {
		return vector3.Vector3{}, err
	}
	body := constants.Body{Elements: el}
	r, _, err := kepler.Propagate(body, simTime-xfer.TDep)
	if err != nil {
		return vector3.Vector3{}, err
	}
	return r, nil
}
