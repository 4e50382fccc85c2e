package kepler

import (
	"math"

	"github.com/orbitengine/server/internal/constants"
	"github.com/orbitengine/server/internal/orbiterr"
	"github.com/orbitengine/server/internal/vector3"
)

// eccentricityFloor and inclinationFloor guard the RAAN/argument-of-periapsis
// formulas below from the 0/0 they'd otherwise hit for circular or
// equatorial orbits; trajectories this close to either case don't occur for
// heliocentric transfer arcs in practice.
const (
	eccentricityFloor = 1e-10
	inclinationFloor  = 1e-10
)

// ElementsFromStateVector converts a heliocentric position/velocity pair
// into classical orbital elements (RV2COE), following Vallado's algorithm.
// It is the inverse of Propagate: given (r, v) at some instant, it returns
// the elements that make Propagate(Body{Elements: el}, 0) reproduce that
// same (r, v).
//
// Only elliptical results are supported, matching Propagate's Kepler-
// equation solver; a parabolic or hyperbolic state vector returns
// DegenerateGeometry.
func ElementsFromStateVector(r, v vector3.Vector3, mu float64) (constants.Elements, error) {
	rn := r.Magnitude()
	vn := v.Magnitude()
	if rn == 0 {
		return constants.Elements{}, orbiterr.New(orbiterr.DegenerateGeometry, "zero-length position vector")
	}

	h := r.Cross(v)
	hn := h.Magnitude()
	if hn == 0 {
		return constants.Elements{}, orbiterr.New(orbiterr.DegenerateGeometry, "zero angular momentum: r and v are collinear")
	}

	zAxis := vector3.Vector3{Z: 1}
	node := zAxis.Cross(h)
	nodeN := node.Magnitude()

	xi := vn*vn/2 - mu/rn
	a := -mu / (2 * xi)
	if a <= 0 {
		return constants.Elements{}, orbiterr.New(orbiterr.DegenerateGeometry, "state vector yields a non-elliptical orbit (a=%g)", a)
	}

	rDotV := r.Dot(v)
	eVec := r.Scale((vn*vn - mu/rn)).Sub(v.Scale(rDotV)).Scale(1 / mu)
	e := eVec.Magnitude()
	if e >= 1 {
		return constants.Elements{}, orbiterr.New(orbiterr.DegenerateGeometry, "state vector yields a non-elliptical orbit (e=%g)", e)
	}
	if e < eccentricityFloor {
		e = eccentricityFloor
	}

	inc := math.Acos(clamp(h.Z/hn, -1, 1))
	if inc < inclinationFloor {
		inc = inclinationFloor
	}

	raan := 0.0
	if nodeN > eccentricityFloor {
		raan = math.Acos(clamp(node.X/nodeN, -1, 1))
		if node.Y < 0 {
			raan = 2*math.Pi - raan
		}
	}

	argp := 0.0
	if nodeN > eccentricityFloor {
		cosArgp := clamp(node.Dot(eVec)/(nodeN*e), -1, 1)
		argp = math.Acos(cosArgp)
		if eVec.Z < 0 {
			argp = 2*math.Pi - argp
		}
	}

	cosNu := clamp(eVec.Dot(r)/(e*rn), -1, 1)
	nu := math.Acos(cosNu)
	if rDotV < 0 {
		nu = 2*math.Pi - nu
	}

	E := 2 * math.Atan2(math.Sqrt(1-e)*math.Sin(nu/2), math.Sqrt(1+e)*math.Cos(nu/2))
	M := math.Mod(E-e*math.Sin(E)+2*math.Pi, 2*math.Pi)

	return constants.Elements{
		SemiMajorAxis: a,
		Eccentricity:  e,
		Inclination:   math.Mod(inc, 2*math.Pi),
		RAAN:          math.Mod(raan, 2*math.Pi),
		ArgPeriapsis:  math.Mod(argp, 2*math.Pi),
		MeanAnomaly0:  M,
		MeanMotion:    math.Sqrt(mu / (a * a * a)),
	}, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
