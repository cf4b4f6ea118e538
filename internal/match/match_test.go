package match

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestLocate(t *testing.T) {
	testCases := []struct {
		axis   []float64
		target float64
		idx    int
		dist   float64
	}{
		{[]float64{10, 20, 30}, 21, 1, 1},
		{[]float64{10, 20, 30}, -5, 0, 15},
		{[]float64{10, 20, 30}, 100, 2, 70},
		{[]float64{10, 20, 30}, 25, 1, 5}, // tie goes to the first
		{[]float64{30, 20, 10}, 15, 1, 5},
		{[]float64{5, 1, 5}, 5, 0, 0},
		{[]float64{90, 89.75, 89.5}, 89.5, 2, 0},
		{[]float64{42}, -1e9, 0, 1e9 + 42},
	}
	for _, tc := range testCases {
		idx, dist, err := Locate(tc.axis, tc.target)
		if err != nil {
			t.Errorf("Locate(%v, %v): %v", tc.axis, tc.target, err)
			continue
		}
		if idx != tc.idx || dist != tc.dist {
			t.Errorf("Locate(%v, %v) = (%d, %v), want (%d, %v)", tc.axis, tc.target, idx, dist, tc.idx, tc.dist)
		}
	}

	if _, _, err := Locate(nil, 1); !errors.Is(err, ErrEmptyAxis) {
		t.Errorf("Locate(nil) error = %v, want ErrEmptyAxis", err)
	}
}

func TestLocateIsNearest(t *testing.T) {
	axis := []float64{-3.5, 7, 0.25, 7, -3.5, 12, 0.75, 2}
	for target := -6.0; target <= 14; target += 0.125 {
		idx, dist, err := Locate(axis, target)
		if err != nil {
			t.Fatal(err)
		}
		for j, v := range axis {
			d := math.Abs(v - target)
			if d < dist {
				t.Fatalf("Locate(%v) = %d (dist %v), but index %d is closer (%v)", target, idx, dist, j, d)
			}
			if d == dist && j < idx {
				t.Fatalf("Locate(%v) = %d, but index %d ties and comes first", target, idx, j)
			}
		}
	}
}

func TestPolicy(t *testing.T) {
	p := DefaultPolicy(time.Second)
	if p.DistanceLimit != 1 || p.TimeLimit != 3*3600 {
		t.Fatalf("DefaultPolicy(time.Second) = %+v", p)
	}
	if h := DefaultPolicy(time.Hour); h.TimeLimit != 3 {
		t.Errorf("DefaultPolicy(time.Hour).TimeLimit = %v, want 3", h.TimeLimit)
	}

	twoHours := (2 * time.Hour).Seconds()
	if !p.Accept(0.5, twoHours) {
		t.Errorf("Accept(0.5, 2h) = false, want true")
	}
	if !p.Accept(1, 3*3600) {
		t.Errorf("Accept at both limits = false, want true")
	}
	tight := NewPolicy(0.2, DefaultTimeWindow, time.Second)
	if tight.Accept(0.5, twoHours) {
		t.Errorf("Accept(0.5, 2h) with 0.2 limit = true, want false")
	}
	if p.Accept(math.NaN(), 0) || p.Accept(0, math.NaN()) {
		t.Errorf("NaN accepted")
	}
}

func TestPolicyMonotonic(t *testing.T) {
	p := Policy{DistanceLimit: 1, TimeLimit: 10800}
	for _, temporal := range []float64{0, 3600, 10800} {
		prev := true
		for spatial := 0.0; spatial < 3; spatial += 0.05 {
			got := p.Accept(spatial, temporal)
			if got && !prev {
				t.Fatalf("acceptance flipped back to true at spatial=%v temporal=%v", spatial, temporal)
			}
			prev = got
		}
		if prev {
			t.Errorf("still accepting beyond the distance limit (temporal=%v)", temporal)
		}
	}
	for _, spatial := range []float64{0, 0.5, 1} {
		prev := true
		for temporal := 0.0; temporal < 20000; temporal += 300 {
			got := p.Accept(spatial, temporal)
			if got && !prev {
				t.Fatalf("acceptance flipped back to true at spatial=%v temporal=%v", spatial, temporal)
			}
			prev = got
		}
		if prev {
			t.Errorf("still accepting beyond the time limit (spatial=%v)", spatial)
		}
	}
}

func TestFind(t *testing.T) {
	lats := []float64{50, 50.5, 51, 51.5}
	lons := []float64{-10, -9.5, -9}
	times := []float64{0, 3600, 7200}

	m, err := Find(lats, lons, times, 51.1, -9.2, 4000)
	if err != nil {
		t.Fatal(err)
	}
	if m.Lat != 2 || m.Lon != 2 || m.Time != 1 {
		t.Errorf("Find indices = (%d, %d, %d), want (2, 2, 1)", m.Lat, m.Lon, m.Time)
	}
	if m.DTime != 400 {
		t.Errorf("DTime = %v, want 400", m.DTime)
	}
	want := math.Sqrt(m.DLat*m.DLat + m.DLon*m.DLon)
	if m.Distance() != want {
		t.Errorf("Distance() = %v, want %v", m.Distance(), want)
	}
	if !m.Accepted(DefaultPolicy(time.Second)) {
		t.Errorf("match not accepted by default policy")
	}

	if _, err := Find(lats, nil, times, 0, 0, 0); !errors.Is(err, ErrEmptyAxis) {
		t.Errorf("Find with empty lon axis error = %v, want ErrEmptyAxis", err)
	}
}
