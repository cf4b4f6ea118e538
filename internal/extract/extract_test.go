package extract

import (
	"math"
	"testing"

	"github.com/rtm0/gridquery/internal/grid"
)

// seq returns n consecutive values starting at 1.
func seq(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = float64(i + 1)
	}
	return s
}

func TestExtract3D(t *testing.T) {
	// time=2, lat=2, lon=3
	v := &grid.Variable{
		Name:       "swh",
		Values:     grid.Array{Shape: []int{2, 2, 3}, Data: seq(12)},
		Layout:     grid.Layout3D,
		Missing:    5,
		HasMissing: true,
	}
	v.Values.Data[7] = MissingCode
	v.Values.Data[8] = math.NaN()

	testCases := []struct {
		idx  Indices
		want Cell
	}{
		{Indices{Time: 0, Lat: 0, Lon: 0}, Value(1)},
		{Indices{Time: 1, Lat: 1, Lon: 2}, Value(12)},
		{Indices{Forecast: 3, Time: 0, Lat: 1, Lon: 2}, Value(6)}, // forecast ignored
		{Indices{Time: 0, Lat: 1, Lon: 1}, NotAvailable},           // declared missing
		{Indices{Time: 1, Lat: 0, Lon: 1}, NotAvailable},           // 9999
		{Indices{Time: 1, Lat: 0, Lon: 2}, NotAvailable},           // NaN
		{Indices{Time: 2, Lat: 0, Lon: 0}, NotAvailable},           // out of range
		{Indices{Time: 0, Lat: -1, Lon: 0}, NotAvailable},
	}
	for _, tc := range testCases {
		if got := Extract(v, tc.idx); got != tc.want {
			t.Errorf("Extract(%+v) = %+v, want %+v", tc.idx, got, tc.want)
		}
	}
}

func TestExtractForecastMean(t *testing.T) {
	// forecast=3, time=1, lat=1, lon=1: the residual slice is the three
	// forecast members at the single grid point.
	v := &grid.Variable{
		Name:       "mwp",
		Values:     grid.Array{Shape: []int{3, 1, 1, 1}, Data: []float64{MissingCode, 3.2, -999}},
		Layout:     grid.Layout4D,
		Missing:    -999,
		HasMissing: true,
	}
	got := Extract(v, Indices{Forecast: AllMembers})
	if got != Value(3.2) {
		t.Errorf("Extract = %+v, want 3.2", got)
	}

	v.Values.Data = []float64{1, 2, 6}
	if got := Extract(v, Indices{Forecast: AllMembers}); got != Value(3) {
		t.Errorf("mean of 1, 2, 6 = %+v, want 3", got)
	}
	if got := Extract(v, Indices{Forecast: 2}); got != Value(6) {
		t.Errorf("Extract(forecast 2) = %+v, want 6", got)
	}
	if got := Extract(v, Indices{Forecast: 3}); got != NotAvailable {
		t.Errorf("Extract(forecast 3) = %+v, want NotAvailable", got)
	}

	v.Values.Data = []float64{-999, MissingCode, math.NaN()}
	if got := Extract(v, Indices{Forecast: AllMembers}); got != NotAvailable {
		t.Errorf("all missing = %+v, want NotAvailable", got)
	}
	if got := Extract(v, Indices{Forecast: 0}); got != NotAvailable {
		t.Errorf("missing member = %+v, want NotAvailable", got)
	}

	// A mean that lands on 9999 is still the reserved code.
	v.Values.Data = []float64{9998, 10000, -999}
	if got := Extract(v, Indices{Forecast: AllMembers}); got != NotAvailable {
		t.Errorf("mean of 9999 = %+v, want NotAvailable", got)
	}
}

func TestExtractForecastLayout(t *testing.T) {
	// time=2, member=2, lat=1, lon=2 with the forecast axis second.
	v := &grid.Variable{
		Values: grid.Array{Shape: []int{2, 2, 1, 2}, Data: []float64{
			1, 2, // t0 m0
			3, 4, // t0 m1
			10, 20, // t1 m0
			30, 40, // t1 m1
		}},
		Layout: grid.Layout{Forecast: 1, Time: 0, Lat: 2, Lon: 3},
	}
	testCases := []struct {
		idx  Indices
		want Cell
	}{
		{Indices{Forecast: AllMembers, Time: 0, Lon: 0}, Value(2)},
		{Indices{Forecast: AllMembers, Time: 1, Lon: 1}, Value(30)},
		{Indices{Forecast: 1, Time: 1, Lon: 0}, Value(30)},
	}
	for _, tc := range testCases {
		if got := Extract(v, tc.idx); got != tc.want {
			t.Errorf("Extract(%+v) = %+v, want %+v", tc.idx, got, tc.want)
		}
	}
}

func TestExtractFailures(t *testing.T) {
	if got := Extract(nil, Indices{}); got != NotAvailable {
		t.Errorf("Extract(nil) = %+v, want NotAvailable", got)
	}
	// Declared 4-D but stored as 3-D.
	v := &grid.Variable{
		Values: grid.Array{Shape: []int{1, 1, 1}, Data: []float64{1}},
		Layout: grid.Layout4D,
	}
	if got := Extract(v, Indices{Forecast: AllMembers}); got != NotAvailable {
		t.Errorf("layout mismatch = %+v, want NotAvailable", got)
	}
	// Shape claims more data than is stored.
	v = &grid.Variable{
		Values: grid.Array{Shape: []int{2, 1, 1}, Data: []float64{1}},
		Layout: grid.Layout3D,
	}
	if got := Extract(v, Indices{Time: 1}); got != NotAvailable {
		t.Errorf("short data = %+v, want NotAvailable", got)
	}
}

func TestCellString(t *testing.T) {
	if s := NotAvailable.String(); s != "" {
		t.Errorf("NotAvailable.String() = %q, want empty", s)
	}
	if s := Value(1.25).String(); s != "1.25" {
		t.Errorf("Value(1.25).String() = %q", s)
	}
	if s := Value(0).String(); s != "0" {
		t.Errorf("Value(0).String() = %q", s)
	}
}
