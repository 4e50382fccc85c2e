package kepler

import (
	"testing"

	"github.com/orbitengine/server/internal/constants"
	"github.com/orbitengine/server/internal/orbiterr"
	"github.com/orbitengine/server/internal/vector3"
)

// TestElementsFromStateVectorRoundTrip checks that converting a planet's
// own propagated state back into elements and re-propagating from t=0
// reproduces the same state, i.e. ElementsFromStateVector is a true
// inverse of Propagate.
func TestElementsFromStateVectorRoundTrip(t *testing.T) {
	for _, id := range []constants.BodyID{constants.Earth, constants.Mars, constants.Jupiter} {
		body, err := constants.Get(id)
		if err != nil {
			t.Fatal(err)
		}
		tSec := 4.2e7
		r, v, err := Propagate(body, tSec)
		if err != nil {
			t.Fatalf("%s: %v", id, err)
		}

		el, err := ElementsFromStateVector(r, v, constants.MuSun)
		if err != nil {
			t.Fatalf("%s: ElementsFromStateVector: %v", id, err)
		}
		derived := constants.Body{ID: id, Elements: el}

		gotR, gotV, err := Propagate(derived, 0)
		if err != nil {
			t.Fatalf("%s: re-propagate: %v", id, err)
		}

		if relErr(gotR.Sub(r).Magnitude(), 0) > 1e-6*r.Magnitude() {
			t.Fatalf("%s: position mismatch: got %+v want %+v", id, gotR, r)
		}
		if relErr(gotV.Sub(v).Magnitude(), 0) > 1e-6*v.Magnitude() {
			t.Fatalf("%s: velocity mismatch: got %+v want %+v", id, gotV, v)
		}
		if relErr(el.SemiMajorAxis, body.Elements.SemiMajorAxis) > 1e-6 {
			t.Fatalf("%s: semi-major axis mismatch: got %g want %g", id, el.SemiMajorAxis, body.Elements.SemiMajorAxis)
		}
	}
}

func TestElementsFromStateVectorRejectsCollinear(t *testing.T) {
	r := vector3.Vector3{X: 1.5e11}
	v := vector3.Vector3{X: 2.0e4} // parallel to r: zero angular momentum
	_, err := ElementsFromStateVector(r, v, constants.MuSun)
	if orbiterr.KindOf(err) != orbiterr.DegenerateGeometry {
		t.Fatalf("expected DegenerateGeometry, got %v", err)
	}
}
