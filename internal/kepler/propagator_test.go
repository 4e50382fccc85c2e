package kepler

import (
	"math"
	"testing"

	"github.com/orbitengine/server/internal/constants"
)

func TestSunAlwaysOrigin(t *testing.T) {
	sun, err := constants.Get(constants.Sun)
	if err != nil {
		t.Fatal(err)
	}
	r, v, err := Propagate(sun, 12345)
	if err != nil {
		t.Fatal(err)
	}
	if r.Magnitude() != 0 || v.Magnitude() != 0 {
		t.Fatalf("expected sun at origin, got r=%+v v=%+v", r, v)
	}
}

func TestEnergyConservation(t *testing.T) {
	for _, id := range []constants.BodyID{constants.Earth, constants.Mars, constants.Jupiter} {
		body, err := constants.Get(id)
		if err != nil {
			t.Fatal(err)
		}
		for _, tSec := range []float64{0, 1e6, 5e7, 3.2e8} {
			r, v, err := Propagate(body, tSec)
			if err != nil {
				t.Fatalf("%s at t=%g: %v", id, tSec, err)
			}
			energy := v.Dot(v)/2 - constants.MuSun/r.Magnitude()
			expected := -constants.MuSun / (2 * body.Elements.SemiMajorAxis)
			if relErr(energy, expected) > 1e-6 {
				t.Fatalf("%s at t=%g: energy %.6g want %.6g", id, tSec, energy, expected)
			}
		}
	}
}

func TestAngularMomentumConservation(t *testing.T) {
	body, err := constants.Get(constants.Earth)
	if err != nil {
		t.Fatal(err)
	}
	for _, tSec := range []float64{0, 2e6, 9e7} {
		r, v, err := Propagate(body, tSec)
		if err != nil {
			t.Fatal(err)
		}
		h := r.Cross(v).Magnitude()
		expected := math.Sqrt(constants.MuSun * body.Elements.SemiMajorAxis * (1 - body.Elements.Eccentricity*body.Elements.Eccentricity))
		if relErr(h, expected) > 1e-6 {
			t.Fatalf("t=%g: |r x v|=%.6g want %.6g", tSec, h, expected)
		}
	}
}

func TestPeriodicity(t *testing.T) {
	body, err := constants.Get(constants.Mars)
	if err != nil {
		t.Fatal(err)
	}
	period := body.OrbitalPeriodSeconds()
	r1, v1, err := Propagate(body, 1.5e7)
	if err != nil {
		t.Fatal(err)
	}
	r2, v2, err := Propagate(body, 1.5e7+period)
	if err != nil {
		t.Fatal(err)
	}
	if relErr(r1.Sub(r2).Magnitude(), 0) > 1e-6*r1.Magnitude() {
		t.Fatalf("position not periodic: r1=%+v r2=%+v", r1, r2)
	}
	if relErr(v1.Sub(v2).Magnitude(), 0) > 1e-6*v1.Magnitude() {
		t.Fatalf("velocity not periodic: v1=%+v v2=%+v", v1, v2)
	}
}

func TestHighEccentricityConverges(t *testing.T) {
	body := constants.Body{
		ID: "test",
		Elements: constants.Elements{
			SemiMajorAxis: 2e11,
			Eccentricity:  0.95,
			MeanMotion:    1e-7,
		},
	}
	for M := 0.0; M < 2*math.Pi; M += 0.1 {
		body.Elements.MeanAnomaly0 = M
		if _, _, err := Propagate(body, 0); err != nil {
			t.Fatalf("M=%g: %v", M, err)
		}
	}
}

func relErr(got, want float64) float64 {
	if want == 0 {
		return math.Abs(got)
	}
	return math.Abs((got - want) / want)
}
