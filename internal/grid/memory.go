package grid

import (
	"fmt"
	"maps"
	"slices"
)

// Memory is a Source backed by values already in memory.
type Memory struct {
	Lat, Lon, Times Axis
	Vars            []*Variable
	// Failures lists variables that are present in the dataset but fail to
	// load with the given error.
	Failures map[string]error
}

// Latitude returns Lat.
func (m *Memory) Latitude() Axis { return m.Lat }

// Longitude returns Lon.
func (m *Memory) Longitude() Axis { return m.Lon }

// Time returns Times.
func (m *Memory) Time() Axis { return m.Times }

// Variables returns the coordinate axes, then Vars in order, then the
// failing variables sorted by name.
func (m *Memory) Variables() []string {
	var names []string
	for _, a := range []Axis{m.Times, m.Lat, m.Lon} {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	for _, v := range m.Vars {
		names = append(names, v.Name)
	}
	return append(names, slices.Sorted(maps.Keys(m.Failures))...)
}

// LoadVariable returns the variable from Vars, or the error registered for
// it in Failures. Coordinate axes and unknown names are errors. A variable
// is returned as is, so one whose Layout does not fit its Values extracts
// as not available, like an Unusable variable from a NetCDF file.
func (m *Memory) LoadVariable(name string) (*Variable, error) {
	if err, ok := m.Failures[name]; ok {
		return nil, err
	}
	for _, v := range m.Vars {
		if v.Name == name {
			return v, nil
		}
	}
	for _, a := range []Axis{m.Times, m.Lat, m.Lon} {
		if a.Name == name {
			return nil, fmt.Errorf("%w: %q is a coordinate axis", ErrLayout, name)
		}
	}
	return nil, fmt.Errorf("variable %q not found", name)
}
