// Package planner builds single-point transfers and porkchop grids from
// the Kepler propagator and Lambert solver, reporting launch energy (C3)
// and total impulsive delta-v.
package planner

import (
	"github.com/orbitengine/server/internal/constants"
	"github.com/orbitengine/server/internal/kepler"
	"github.com/orbitengine/server/internal/lambert"
	"github.com/orbitengine/server/internal/vector3"
)

// TrajectorySample is one (time, position) pair along a transfer arc,
// sparse enough for visualization.
type TrajectorySample struct {
	T        float64 // seconds since constants.Epoch
	Position vector3.Vector3
}

// Transfer is the result of a single departure/arrival Lambert solve.
type Transfer struct {
	DepartureBody constants.BodyID
	ArrivalBody   constants.BodyID
	TDep          float64 // seconds since Epoch
	TArr          float64
	R1, R2        vector3.Vector3
	V1, V2        vector3.Vector3
	VInfDep       vector3.Vector3
	VInfArr       vector3.Vector3
	C3            float64 // km^2/s^2
	DeltaV        float64 // km/s, impulsive free-flight total
	Trajectory    []TrajectorySample
}

const trajectorySampleCount = 36

// ComputeTransfer solves the Lambert problem between dep_body at t_dep
// and arr_body at t_arr and reports C3, total delta-v, and a sampled
// trajectory arc.
func ComputeTransfer(depBody, arrBody constants.BodyID, tDep, tArr float64) (Transfer, error) {
	dep, err := constants.Get(depBody)
	if err != nil {
		return Transfer{}, err
	}
	arr, err := constants.Get(arrBody)
	if err != nil {
		return Transfer{}, err
	}

	r1, vBody1, err := kepler.Propagate(dep, tDep)
	if err != nil {
		return Transfer{}, err
	}
	r2, vBody2, err := kepler.Propagate(arr, tArr)
	if err != nil {
		return Transfer{}, err
	}

	tau := tArr - tDep
	sol, err := lambert.Solve(r1, r2, tau, constants.MuSun, true, 0)
	if err != nil {
		return Transfer{}, err
	}

	vInfDep := sol.V1.Sub(vBody1)
	vInfArr := sol.V2.Sub(vBody2)

	c3KmS := (vInfDep.Magnitude() / 1000) * (vInfDep.Magnitude() / 1000)
	deltaVKmS := vInfDep.Magnitude()/1000 + vInfArr.Magnitude()/1000

	samples, err := sampleArc(r1, sol.V1, tDep, tArr)
	if err != nil {
		return Transfer{}, err
	}

	return Transfer{
		DepartureBody: depBody,
		ArrivalBody:   arrBody,
		TDep:          tDep,
		TArr:          tArr,
		R1:            r1,
		R2:            r2,
		V1:            sol.V1,
		V2:            sol.V2,
		VInfDep:       vInfDep,
		VInfArr:       vInfArr,
		C3:            c3KmS,
		DeltaV:        deltaVKmS,
		Trajectory:    samples,
	}, nil
}

// sampleArc propagates the osculating elements of (r1, v1) at t_dep
// across the transfer window, producing trajectorySampleCount evenly
// spaced (t, r) pairs for visualization.
func sampleArc(r1, v1 vector3.Vector3, tDep, tArr float64) ([]TrajectorySample, error) {
	el, err := kepler.ElementsFromStateVector(r1, v1, constants.MuSun)
	if err != nil {
		return nil, err
	}
	body := constants.Body{Elements: el}

	samples := make([]TrajectorySample, 0, trajectorySampleCount)
	span := tArr - tDep
	for i := 0; i < trajectorySampleCount; i++ {
		frac := float64(i) / float64(trajectorySampleCount-1)
		t := tDep + frac*span
		r, _, err := kepler.Propagate(body, t-tDep)
		if err != nil {
			return nil, err
		}
		samples = append(samples, TrajectorySample{T: t, Position: r})
	}
	return samples, nil
}
