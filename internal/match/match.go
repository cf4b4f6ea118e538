// Package match finds the nearest grid indices for a query point and decides
// whether the match is close enough to use.
//
// Each axis is searched independently; the result is not a joint nearest
// neighbour in (time, lat, lon) space.
package match

import (
	"errors"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
)

// ErrEmptyAxis is returned when locating a value on an axis with no values.
var ErrEmptyAxis = errors.New("match: empty axis")

// Locate returns the index of the axis value closest to target and the
// absolute distance to it. Ties resolve to the lowest index.
func Locate(axis []float64, target float64) (int, float64, error) {
	if len(axis) == 0 {
		return 0, 0, ErrEmptyAxis
	}
	dist := make([]float64, len(axis))
	for i, v := range axis {
		dist[i] = math.Abs(v - target)
	}
	i := floats.MinIdx(dist)
	return i, dist[i], nil
}

// SpatialDistance combines the latitude and longitude offsets into a
// Euclidean distance in axis units.
func SpatialDistance(dLat, dLon float64) float64 {
	return math.Sqrt(dLat*dLat + dLon*dLon)
}

const (
	// DefaultDistanceLimit is in degrees.
	DefaultDistanceLimit = 1.0
	DefaultTimeWindow    = 3 * time.Hour
)

// Policy accepts a match when both the spatial distance and the time offset
// are within their limits. Limits are in the units of the axes they apply
// to.
type Policy struct {
	DistanceLimit float64
	TimeLimit     float64
}

// NewPolicy builds a policy for a time axis counted in timeUnit steps,
// e.g. time.Second for Unix timestamps.
func NewPolicy(distanceLimit float64, window, timeUnit time.Duration) Policy {
	return Policy{
		DistanceLimit: distanceLimit,
		TimeLimit:     float64(window) / float64(timeUnit),
	}
}

// DefaultPolicy is NewPolicy with the default limits.
func DefaultPolicy(timeUnit time.Duration) Policy {
	return NewPolicy(DefaultDistanceLimit, DefaultTimeWindow, timeUnit)
}

// Accept reports whether both limits hold. NaN distances are never
// accepted.
func (p Policy) Accept(spatial, temporal float64) bool {
	return spatial <= p.DistanceLimit && temporal <= p.TimeLimit
}

// Match is the per-axis nearest-neighbour result for one query.
type Match struct {
	Lat, Lon, Time    int
	DLat, DLon, DTime float64
}

// Distance is the composite spatial distance of the match.
func (m Match) Distance() float64 {
	return SpatialDistance(m.DLat, m.DLon)
}

// Accepted applies p to the match.
func (m Match) Accepted(p Policy) bool {
	return p.Accept(m.Distance(), m.DTime)
}

// Find locates lat, lon and t on their axes.
func Find(lats, lons, times []float64, lat, lon, t float64) (Match, error) {
	var m Match
	var err error
	if m.Lat, m.DLat, err = Locate(lats, lat); err != nil {
		return Match{}, err
	}
	if m.Lon, m.DLon, err = Locate(lons, lon); err != nil {
		return Match{}, err
	}
	if m.Time, m.DTime, err = Locate(times, t); err != nil {
		return Match{}, err
	}
	return m, nil
}
