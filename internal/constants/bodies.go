// Package constants provides the fixed body table: gravitational
// parameters, radii, and J2000 osculating orbital elements for the Sun
// and the eight planets. The table is populated once at package init and
// never mutated.
package constants

import (
	"math"
	"time"

	"github.com/orbitengine/server/internal/orbiterr"
)

// BodyID enumerates the fixed set of simulated bodies.
type BodyID string

const (
	Sun     BodyID = "sun"
	Mercury BodyID = "mercury"
	Venus   BodyID = "venus"
	Earth   BodyID = "earth"
	Mars    BodyID = "mars"
	Jupiter BodyID = "jupiter"
	Saturn  BodyID = "saturn"
	Uranus  BodyID = "uranus"
	Neptune BodyID = "neptune"
)

// MuSun is the Sun's standard gravitational parameter, m^3/s^2.
const MuSun = 1.32712440018e20

// deg2rad converts degrees to radians.
const deg2rad = math.Pi / 180.0

// au is the astronomical unit in meters.
const au = 1.495978707e11

// Epoch is the calendar instant at which all orbital elements below are
// valid (t = 0 internally).
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Elements holds the six classical orbital elements of a body at Epoch,
// plus the derived mean motion.
type Elements struct {
	SemiMajorAxis float64 // a, meters
	Eccentricity  float64 // e
	Inclination   float64 // i, radians
	RAAN          float64 // Ω, radians
	ArgPeriapsis  float64 // ω, radians
	MeanAnomaly0  float64 // M0 at Epoch, radians
	MeanMotion    float64 // n, radians/second
}

// Body describes one member of the fixed enumeration.
type Body struct {
	ID       BodyID
	Name     string
	Mu       float64 // m^3/s^2; only the Sun has a nonzero Mu of its own use
	RadiusM  float64
	Elements Elements // zero value for the Sun
	IsSun    bool
}

var table map[BodyID]Body

func init() {
	table = make(map[BodyID]Body, 9)
	table[Sun] = Body{ID: Sun, Name: "Sun", Mu: MuSun, RadiusM: 6.957e8, IsSun: true}

	sinceJ2000 := Epoch.Sub(time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)).Seconds()
	add := func(id BodyID, name string, radiusM, aAU, e, iDeg, raanDeg, varpiDeg, lDeg float64) {
		a := aAU * au
		n := math.Sqrt(MuSun / (a * a * a))
		el := Elements{
			SemiMajorAxis: a,
			Eccentricity:  e,
			Inclination:   iDeg * deg2rad,
			RAAN:          raanDeg * deg2rad,
			ArgPeriapsis:  (varpiDeg - raanDeg) * deg2rad,
			MeanAnomaly0:  math.Mod((lDeg-varpiDeg)*deg2rad+n*sinceJ2000, 2*math.Pi),
			MeanMotion:    n,
		}
		table[id] = Body{ID: id, Name: name, RadiusM: radiusM, Elements: el}
	}

	// Elements at J2000.0 from the standard low-precision planetary
	// ephemeris (JPL Approximate Positions of the Planets): a, e, I, Ω,
	// longitude of perihelion ϖ and mean longitude L. add converts them to
	// ω = ϖ - Ω and M = L - ϖ, then rebases M to this module's Epoch by
	// advancing it at the two-body mean motion; the other elements are
	// held at their J2000.0 values.
	add(Mercury, "Mercury", 2.4397e6, 0.38709927, 0.20563593, 7.00497902, 48.33076593, 77.45779628, 252.25032350)
	add(Venus, "Venus", 6.0518e6, 0.72333566, 0.00677672, 3.39467605, 76.67984255, 131.60246718, 181.97909950)
	add(Earth, "Earth", 6.371e6, 1.00000261, 0.01671123, -0.00001531, 0.0, 102.93768193, 100.46457166)
	add(Mars, "Mars", 3.3895e6, 1.52371034, 0.09339410, 1.84969142, 49.55953891, -23.94362959, -4.55343205)
	add(Jupiter, "Jupiter", 6.9911e7, 5.20288700, 0.04838624, 1.30439695, 100.47390909, 14.72847983, 34.39644051)
	add(Saturn, "Saturn", 5.8232e7, 9.53667594, 0.05386179, 2.48599187, 113.66242448, 92.59887831, 49.95424423)
	add(Uranus, "Uranus", 2.5362e7, 19.18916464, 0.04725744, 0.77263783, 74.01692503, 170.95427630, 313.23810451)
	add(Neptune, "Neptune", 2.4622e7, 30.06992276, 0.00859048, 1.77004347, 131.78422574, 44.96476227, -55.12002969)
}

// Get looks up a body by id.
func Get(id BodyID) (Body, error) {
	b, ok := table[id]
	if !ok {
		return Body{}, orbiterr.New(orbiterr.UnknownBody, "unknown body %q", id)
	}
	return b, nil
}

// All returns every body in the table, including the Sun.
func All() []Body {
	out := make([]Body, 0, len(table))
	for _, b := range table {
		out = append(out, b)
	}
	return out
}

// Planets returns every non-Sun body.
func Planets() []Body {
	out := make([]Body, 0, len(table)-1)
	for _, b := range table {
		if !b.IsSun {
			out = append(out, b)
		}
	}
	return out
}

// OrbitalPeriodSeconds returns 2*pi/n for a non-Sun body.
func (b Body) OrbitalPeriodSeconds() float64 {
	if b.Elements.MeanMotion == 0 {
		return 0
	}
	return 2 * math.Pi / b.Elements.MeanMotion
}
