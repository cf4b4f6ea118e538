// Package extract reads a single value from a gridded variable at matched
// axis indices.
package extract

import (
	"errors"
	"math"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/rtm0/gridquery/internal/grid"
)

// MissingCode is a reserved "no data" value found in some GRIB-derived
// datasets regardless of their declared missing value.
const MissingCode = 9999

// AllMembers averages across the whole forecast axis.
const AllMembers = -1

var errNoVariable = errors.New("extract: nil variable")

// Cell is one extracted value. The zero Cell is NotAvailable.
type Cell struct {
	Value float64
	Valid bool
}

// NotAvailable marks missing, rejected or failed cells.
var NotAvailable = Cell{}

// Value wraps x as an available cell.
func Value(x float64) Cell {
	return Cell{Value: x, Valid: true}
}

// String renders the cell for delimited output; NotAvailable is empty.
func (c Cell) String() string {
	if !c.Valid {
		return ""
	}
	return strconv.FormatFloat(c.Value, 'g', -1, 64)
}

// Indices locates a value. Forecast is a forecast-axis slot or AllMembers
// and is ignored for variables without a forecast axis.
type Indices struct {
	Forecast int
	Time     int
	Lat      int
	Lon      int
}

// Extract returns the value of v at idx.
//
// For a (time, lat, lon) variable the element is returned as is. For a
// variable with a forecast axis, the values along that axis at (time, lat,
// lon) are collected (only slot idx.Forecast unless it is AllMembers),
// missing entries are dropped and the mean of the rest is returned.
//
// Missing values (the declared sentinel, MissingCode, NaN) and any indexing
// error yield NotAvailable.
func Extract(v *grid.Variable, idx Indices) Cell {
	x, err := extract(v, idx)
	if err != nil || isMissing(v, x) {
		return NotAvailable
	}
	return Value(x)
}

func extract(v *grid.Variable, idx Indices) (float64, error) {
	if v == nil {
		return 0, errNoVariable
	}
	l := v.Layout
	if err := l.Validate(v.Values.Rank()); err != nil {
		return 0, err
	}
	if !l.HasForecast() {
		return v.Values.At(l.Index(0, idx.Time, idx.Lat, idx.Lon)...)
	}

	members, err := residual(v, idx)
	if err != nil {
		return 0, err
	}
	vals := members[:0]
	for _, x := range members {
		if !isMissing(v, x) {
			vals = append(vals, x)
		}
	}
	if len(vals) == 0 {
		return math.NaN(), nil
	}
	return stat.Mean(vals, nil), nil
}

// residual returns the forecast-axis values at (time, lat, lon).
func residual(v *grid.Variable, idx Indices) ([]float64, error) {
	l := v.Layout
	if idx.Forecast != AllMembers {
		x, err := v.Values.At(l.Index(idx.Forecast, idx.Time, idx.Lat, idx.Lon)...)
		if err != nil {
			return nil, err
		}
		return []float64{x}, nil
	}
	n := v.Values.Shape[l.Forecast]
	members := make([]float64, n)
	for f := range n {
		x, err := v.Values.At(l.Index(f, idx.Time, idx.Lat, idx.Lon)...)
		if err != nil {
			return nil, err
		}
		members[f] = x
	}
	return members, nil
}

func isMissing(v *grid.Variable, x float64) bool {
	return math.IsNaN(x) || x == MissingCode || v.IsMissing(x)
}
