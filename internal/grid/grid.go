// Package grid holds the decoded form of a gridded dataset: coordinate axes
// and per-variable dense arrays with their declared axis layout.
package grid

import (
	"errors"
	"fmt"
)

var (
	// ErrLoad marks failures that prevent the dataset itself from being used.
	ErrLoad = errors.New("grid: load failure")
	// ErrIndex is returned for indices outside an array's shape.
	ErrIndex = errors.New("grid: index out of range")
	// ErrLayout is returned when a variable's dimensions do not match a
	// supported axis layout.
	ErrLayout = errors.New("grid: unsupported layout")
)

// Source is a decoded gridded dataset. Axes are loaded eagerly; variables
// are materialised one at a time by LoadVariable.
type Source interface {
	Latitude() Axis
	Longitude() Axis
	Time() Axis
	// Variables lists every variable name in dataset order, including
	// coordinate variables.
	Variables() []string
	LoadVariable(name string) (*Variable, error)
}

// Axis is an ordered, not necessarily sorted, sequence of coordinate values.
type Axis struct {
	Name   string
	Units  string
	Values []float64
}

// Len returns the number of coordinate values.
func (a Axis) Len() int {
	return len(a.Values)
}

// Shift returns a copy of the axis with offset added to every value, e.g.
// -180 to move a 0..360 longitude axis.
func (a Axis) Shift(offset float64) Axis {
	if offset == 0 {
		return a
	}
	vals := make([]float64, len(a.Values))
	for i, v := range a.Values {
		vals[i] = v + offset
	}
	return Axis{Name: a.Name, Units: a.Units, Values: vals}
}

// Array is a dense row-major array. Data[Offset(i0, i1, ...)] is the
// element at (i0, i1, ...).
type Array struct {
	Shape []int
	Data  []float64
}

// Rank returns the number of dimensions.
func (a Array) Rank() int {
	return len(a.Shape)
}

// Offset returns the position in Data of the element at idx.
func (a Array) Offset(idx ...int) (int, error) {
	if len(idx) != len(a.Shape) {
		return 0, fmt.Errorf("%w: %d indices for rank %d", ErrIndex, len(idx), len(a.Shape))
	}
	off := 0
	for d, i := range idx {
		if i < 0 || i >= a.Shape[d] {
			return 0, fmt.Errorf("%w: index %d is %d, dimension length %d", ErrIndex, d, i, a.Shape[d])
		}
		off = off*a.Shape[d] + i
	}
	if off >= len(a.Data) {
		return 0, fmt.Errorf("%w: offset %d beyond %d values", ErrIndex, off, len(a.Data))
	}
	return off, nil
}

// At returns the element at idx.
func (a Array) At(idx ...int) (float64, error) {
	off, err := a.Offset(idx...)
	if err != nil {
		return 0, err
	}
	return a.Data[off], nil
}

// NoForecast is the Layout.Forecast value of a grid without a forecast or
// ensemble axis.
const NoForecast = -1

// Layout gives the dimension position of each axis within a variable's
// array.
type Layout struct {
	Forecast int
	Time     int
	Lat      int
	Lon      int
}

var (
	// Layout3D is the (time, lat, lon) layout.
	Layout3D = Layout{Forecast: NoForecast, Time: 0, Lat: 1, Lon: 2}
	// Layout4D is the (forecast, time, lat, lon) layout.
	Layout4D = Layout{Forecast: 0, Time: 1, Lat: 2, Lon: 3}
	// Unusable is the layout of a variable whose dimensions are not
	// (time, lat, lon) plus an optional forecast axis. It never validates,
	// so every value extracted from such a variable is not available.
	Unusable = Layout{Forecast: NoForecast, Time: -1, Lat: -1, Lon: -1}
)

// HasForecast reports whether the layout carries a forecast/ensemble axis.
func (l Layout) HasForecast() bool {
	return l.Forecast != NoForecast
}

// Rank returns the number of dimensions the layout describes.
func (l Layout) Rank() int {
	if l.HasForecast() {
		return 4
	}
	return 3
}

// Validate checks that the layout positions are a permutation of the
// dimensions of an array with the given rank.
func (l Layout) Validate(rank int) error {
	if rank != l.Rank() {
		return fmt.Errorf("%w: layout of rank %d for array of rank %d", ErrLayout, l.Rank(), rank)
	}
	seen := make([]bool, rank)
	pos := []int{l.Time, l.Lat, l.Lon}
	if l.HasForecast() {
		pos = append(pos, l.Forecast)
	}
	for _, p := range pos {
		if p < 0 || p >= rank || seen[p] {
			return fmt.Errorf("%w: dimension positions %v", ErrLayout, pos)
		}
		seen[p] = true
	}
	return nil
}

// Index places the per-axis indices at their layout positions. forecast is
// ignored when the layout has no forecast axis.
func (l Layout) Index(forecast, time, lat, lon int) []int {
	idx := make([]int, l.Rank())
	idx[l.Time] = time
	idx[l.Lat] = lat
	idx[l.Lon] = lon
	if l.HasForecast() {
		idx[l.Forecast] = forecast
	}
	return idx
}

// Variable is one fully loaded gridded variable.
type Variable struct {
	Name   string
	Units  string
	Values Array
	Layout Layout

	// Missing is the dataset-declared missing-value code, valid when
	// HasMissing is set.
	Missing    float64
	HasMissing bool
}

// IsMissing reports whether x is the variable's declared missing code.
func (v *Variable) IsMissing(x float64) bool {
	return v.HasMissing && x == v.Missing
}
