package core

import (
	"math"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/Woomou/anysiteonearth-backend/model"
)

// EarthRadiusKm is the mean spherical radius used for ground distances.
const EarthRadiusKm = 6371.0

// PassPredictor estimates when a TLE-described satellite next overflies a
// ground target closely enough to image it. It propagates the orbit with
// SGP4 in fixed steps and reports the first step whose sub-satellite point
// falls within the sensor swath.
type PassPredictor struct {
	// Step is the propagation interval. Defaults to 30s.
	Step time.Duration
	// Horizon bounds the search window. Defaults to 24h.
	Horizon time.Duration
	// SwathKm is the ground distance within which the target is imageable.
	// Defaults to 300km, a generous cross-track swath for the optical
	// missions in the catalog.
	SwathKm float64
}

// NewPassPredictor returns a predictor with the default step, horizon and
// swath.
func NewPassPredictor() *PassPredictor {
	return &PassPredictor{}
}

// NextPass returns the first time within the horizon at which the satellite's
// ground track comes within the swath of target. The boolean is false when
// the TLE fails to parse or no pass occurs inside the horizon.
func (p *PassPredictor) NextPass(line1, line2 string, target model.Coordinate, from time.Time) (time.Time, bool) {
	step := p.Step
	if step <= 0 {
		step = 30 * time.Second
	}
	horizon := p.Horizon
	if horizon <= 0 {
		horizon = 24 * time.Hour
	}
	swath := p.SwathKm
	if swath <= 0 {
		swath = 300
	}

	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS72)
	if sat.Error != 0 {
		return time.Time{}, false
	}

	end := from.Add(horizon)
	for t := from; !t.After(end); t = t.Add(step) {
		lat, lon, ok := subsatellitePoint(sat, t)
		if !ok {
			return time.Time{}, false
		}
		if groundDistanceKm(lat, lon, target.Latitude, target.Longitude) <= swath {
			return t, true
		}
	}
	return time.Time{}, false
}

// subsatellitePoint propagates the satellite to t and projects its ECEF
// position onto the spherical Earth.
func subsatellitePoint(sat satellite.Satellite, t time.Time) (latDeg, lonDeg float64, ok bool) {
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	posECI, _ := satellite.Propagate(sat, year, int(month), day, hour, min, sec)
	jd := satellite.JDay(year, int(month), day, hour, min, sec)
	gmst := satellite.ThetaG_JD(jd)
	pos := satellite.ECIToECEF(posECI, gmst)

	r := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y + pos.Z*pos.Z)
	if r == 0 || math.IsNaN(r) {
		return 0, 0, false
	}

	latDeg = math.Asin(pos.Z/r) * 180 / math.Pi
	lonDeg = math.Atan2(pos.Y, pos.X) * 180 / math.Pi
	return latDeg, lonDeg, true
}

// groundDistanceKm is the haversine distance between two points on the
// spherical Earth.
func groundDistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	const degToRad = math.Pi / 180

	phi1 := lat1 * degToRad
	phi2 := lat2 * degToRad
	dPhi := (lat2 - lat1) * degToRad
	dLambda := (lon2 - lon1) * degToRad

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
