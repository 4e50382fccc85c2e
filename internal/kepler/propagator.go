// Package kepler implements two-body Keplerian propagation: given a
// body's classical orbital elements and a time offset from epoch, it
// produces heliocentric position and velocity. Propagation is pure and
// referentially transparent for a given (body, t) — no integration state
// is carried between calls, so numerical error never accumulates across
// ticks.
package kepler

import (
	"math"

	"github.com/orbitengine/server/internal/constants"
	"github.com/orbitengine/server/internal/orbiterr"
	"github.com/orbitengine/server/internal/vector3"
)

const (
	maxNewtonIterations = 50
	newtonTolerance     = 1e-12
)

// Propagate returns the heliocentric ecliptic position (m) and velocity
// (m/s) of body at t seconds since constants.Epoch. The Sun always
// returns the origin and zero velocity.
func Propagate(body constants.Body, t float64) (vector3.Vector3, vector3.Vector3, error) {
	if body.IsSun {
		return vector3.Zero, vector3.Zero, nil
	}

	el := body.Elements
	e := el.Eccentricity

	M := math.Mod(el.MeanAnomaly0+el.MeanMotion*t, 2*math.Pi)
	E, err := solveKepler(M, e)
	if err != nil {
		return vector3.Zero, vector3.Zero, err
	}

	sinE, cosE := math.Sincos(E)
	sqrt1me2 := math.Sqrt(1 - e*e)

	// True anomaly via the standard half-angle identity.
	nu := 2 * math.Atan2(math.Sqrt(1+e)*math.Sin(E/2), math.Sqrt(1-e)*math.Cos(E/2))

	a := el.SemiMajorAxis
	r := a * (1 - e*cosE)

	cosNu, sinNu := math.Cos(nu), math.Sin(nu)
	posPerifocal := vector3.Vector3{X: r * cosNu, Y: r * sinNu, Z: 0}

	// Ė = n/(1-e cos E); velocity in the perifocal frame is derived
	// analytically from dE/dt, never by finite differencing.
	Edot := el.MeanMotion / (1 - e*cosE)
	rDot := a * e * sinE * Edot
	rNuDot := r * Edot * sqrt1me2 / (1 - e*cosE)

	velPerifocal := vector3.Vector3{
		X: rDot*cosNu - rNuDot*sinNu,
		Y: rDot*sinNu + rNuDot*cosNu,
		Z: 0,
	}

	pos := rotateToEcliptic(posPerifocal, el)
	vel := rotateToEcliptic(velPerifocal, el)
	return pos, vel, nil
}

// rotateToEcliptic applies the argument-of-periapsis, inclination, and
// RAAN rotation chain (Rz(ω) then Rx(i) then Rz(Ω)) that carries a
// perifocal-frame vector into the heliocentric ecliptic frame.
func rotateToEcliptic(v vector3.Vector3, el constants.Elements) vector3.Vector3 {
	v = v.RotateZ(el.ArgPeriapsis)
	v = v.RotateX(el.Inclination)
	v = v.RotateZ(el.RAAN)
	return v
}

// solveKepler solves M = E - e*sin(E) for E via Newton iteration,
// starting from E0 = M, stopping when |ΔE| < newtonTolerance or after
// maxNewtonIterations steps.
func solveKepler(M, e float64) (float64, error) {
	E := M
	for i := 0; i < maxNewtonIterations; i++ {
		sinE, cosE := math.Sincos(E)
		f := E - e*sinE - M
		fPrime := 1 - e*cosE
		dE := -f / fPrime
		E += dE
		if math.Abs(dE) < newtonTolerance {
			return E, nil
		}
	}
	return 0, orbiterr.New(orbiterr.ConvergenceFailure, "kepler equation did not converge for M=%g e=%g", M, e)
}
