package grid

import (
	"fmt"
	"slices"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
)

// Dimensions lists the names under which each axis may appear in a file.
// The first name found as a variable is used for the coordinate axis.
type Dimensions struct {
	Latitude  []string `yaml:"latitude"`
	Longitude []string `yaml:"longitude"`
	Time      []string `yaml:"time"`
	Forecast  []string `yaml:"forecast"`
}

// DefaultDimensions covers CF, ERA5 and cfgrib naming.
func DefaultDimensions() Dimensions {
	return Dimensions{
		Latitude:  []string{"latitude", "lat"},
		Longitude: []string{"longitude", "lon"},
		Time:      []string{"time", "valid_time"},
		Forecast:  []string{"number", "step", "member", "realization", "ensemble", "expver"},
	}
}

// Dataset is a NetCDF file opened as a Source.
type Dataset struct {
	nc   api.Group
	dims Dimensions
	la   Axis
	lo   Axis
	ts   Axis
}

// OpenNetCDF opens a NetCDF (CDF or HDF5) file and loads its coordinate
// axes. lonOffset is added to every longitude value.
func OpenNetCDF(filePath string, dims Dimensions, lonOffset float64) (*Dataset, error) {
	nc, err := netcdf.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	d := &Dataset{nc: nc, dims: dims}
	d.la, err = d.axis(dims.Latitude)
	if err != nil {
		nc.Close()
		return nil, err
	}
	lo, err := d.axis(dims.Longitude)
	if err != nil {
		nc.Close()
		return nil, err
	}
	d.lo = lo.Shift(lonOffset)
	d.ts, err = d.axis(dims.Time)
	if err != nil {
		nc.Close()
		return nil, err
	}
	secs, err := unixSeconds(d.ts.Values, d.ts.Units)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("%w: time axis %q: %v", ErrLoad, d.ts.Name, err)
	}
	d.ts = Axis{Name: d.ts.Name, Units: "seconds since 1970-01-01", Values: secs}
	return d, nil
}

func (d *Dataset) axis(names []string) (Axis, error) {
	vars := d.nc.ListVariables()
	for _, name := range names {
		if !slices.Contains(vars, name) {
			continue
		}
		vg, err := d.nc.GetVarGetter(name)
		if err != nil {
			return Axis{}, fmt.Errorf("%w: axis %q: %v", ErrLoad, name, err)
		}
		v, err := vg.Values()
		if err != nil {
			return Axis{}, fmt.Errorf("%w: axis %q: %v", ErrLoad, name, err)
		}
		vals, shape, err := flatten(v)
		if err != nil {
			return Axis{}, fmt.Errorf("%w: axis %q: %v", ErrLoad, name, err)
		}
		if len(shape) != 1 {
			return Axis{}, fmt.Errorf("%w: axis %q has %d dimensions", ErrLoad, name, len(shape))
		}
		if len(vals) == 0 {
			return Axis{}, fmt.Errorf("%w: axis %q is empty", ErrLoad, name)
		}
		units, _ := attrString(vg.Attributes(), "units")
		return Axis{Name: name, Units: units, Values: vals}, nil
	}
	return Axis{}, fmt.Errorf("%w: none of the axis variables %v present", ErrLoad, names)
}

// Close closes the underlying file.
func (d *Dataset) Close() {
	d.nc.Close()
}

// Latitude returns the latitude axis.
func (d *Dataset) Latitude() Axis { return d.la }

// Longitude returns the longitude axis, shifted by the offset given to
// OpenNetCDF.
func (d *Dataset) Longitude() Axis { return d.lo }

// Time returns the time axis in Unix seconds.
func (d *Dataset) Time() Axis { return d.ts }

// Variables lists every variable in the file, coordinate axes included.
func (d *Dataset) Variables() []string {
	return d.nc.ListVariables()
}

// Summary returns the summary information about the dataset suitable for
// logging.
func (d *Dataset) Summary() []any {
	return []any{
		"dims", []string{d.ts.Name, d.la.Name, d.lo.Name},
		"variables", d.Variables(),
		"tsCnt", d.ts.Len(),
		"laCnt", d.la.Len(),
		"loCnt", d.lo.Len(),
	}
}

// LoadVariable reads the whole variable into memory, applying
// scale_factor/add_offset packing. The missing sentinel is taken from
// missing_value, falling back to _FillValue, and is unpacked the same way as
// the data so that the two compare equal.
//
// A variable whose dimensions do not map onto the grid axes still loads,
// with the Unusable layout. Only read and decode errors are returned.
func (d *Dataset) LoadVariable(name string) (*Variable, error) {
	vg, err := d.nc.GetVarGetter(name)
	if err != nil {
		return nil, err
	}
	v, err := vg.Values()
	if err != nil {
		return nil, err
	}
	data, shape, err := flatten(v)
	if err != nil {
		return nil, err
	}
	layout, err := d.layout(vg.Dimensions())
	if err == nil {
		err = layout.Validate(len(shape))
	}
	if err != nil {
		layout = Unusable
	}

	attrs := vg.Attributes()
	scale, ok := attrFloat(attrs, "scale_factor")
	if !ok {
		scale = 1
	}
	offset, _ := attrFloat(attrs, "add_offset")
	missing, hasMissing := attrFloat(attrs, "missing_value")
	if !hasMissing {
		missing, hasMissing = attrFloat(attrs, "_FillValue")
	}
	if scale != 1 || offset != 0 {
		for i, x := range data {
			data[i] = x*scale + offset
		}
		missing = missing*scale + offset
	}
	units, _ := attrString(attrs, "units")

	return &Variable{
		Name:       name,
		Units:      units,
		Values:     Array{Shape: shape, Data: data},
		Layout:     layout,
		Missing:    missing,
		HasMissing: hasMissing,
	}, nil
}

// layout maps dimension names to axis positions.
func (d *Dataset) layout(dimNames []string) (Layout, error) {
	l := Layout{Forecast: NoForecast, Time: -1, Lat: -1, Lon: -1}
	for i, name := range dimNames {
		switch {
		case slices.Contains(d.dims.Time, name) && l.Time < 0:
			l.Time = i
		case slices.Contains(d.dims.Latitude, name) && l.Lat < 0:
			l.Lat = i
		case slices.Contains(d.dims.Longitude, name) && l.Lon < 0:
			l.Lon = i
		case slices.Contains(d.dims.Forecast, name) && !l.HasForecast():
			l.Forecast = i
		default:
			return Layout{}, fmt.Errorf("%w: unknown dimension %q in %v", ErrLayout, name, dimNames)
		}
	}
	if l.Time < 0 || l.Lat < 0 || l.Lon < 0 {
		return Layout{}, fmt.Errorf("%w: dimensions %v lack time, latitude or longitude", ErrLayout, dimNames)
	}
	return l, nil
}
