package grid

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
)

// flatten converts the nested slices returned by the netcdf readers
// ([]float32, [][][]int16, ...) into row-major float64 data and a shape.
func flatten(v any) ([]float64, []int, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil, nil, errors.New("nil values")
	}
	var shape []int
	n := 1
	for t := rv; t.Kind() == reflect.Slice; t = t.Index(0) {
		shape = append(shape, t.Len())
		n *= t.Len()
		if t.Len() == 0 {
			break
		}
	}
	if len(shape) == 0 {
		// Scalar variable.
		f, ok := scalar(rv)
		if !ok {
			return nil, nil, fmt.Errorf("unsupported value type %T", v)
		}
		return []float64{f}, nil, nil
	}

	data := make([]float64, 0, n)
	var walk func(v reflect.Value, depth int) error
	walk = func(v reflect.Value, depth int) error {
		if depth == len(shape) {
			f, ok := scalar(v)
			if !ok {
				return fmt.Errorf("unsupported element type %s", v.Type())
			}
			data = append(data, f)
			return nil
		}
		if v.Kind() != reflect.Slice || v.Len() != shape[depth] {
			return fmt.Errorf("ragged array at depth %d", depth)
		}
		for i := 0; i < v.Len(); i++ {
			if err := walk(v.Index(i), depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(rv, 0); err != nil {
		return nil, nil, err
	}
	return data, shape, nil
}

func scalar(v reflect.Value) (float64, bool) {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), true
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	case reflect.Interface:
		if v.IsNil() {
			return 0, false
		}
		return scalar(v.Elem())
	}
	return 0, false
}

// attrFloat returns a numeric attribute. Attributes stored as one-element
// arrays are accepted.
func attrFloat(attrs api.AttributeMap, key string) (float64, bool) {
	if attrs == nil {
		return 0, false
	}
	val, has := attrs.Get(key)
	if !has {
		return 0, false
	}
	rv := reflect.ValueOf(val)
	if rv.Kind() == reflect.Slice {
		if rv.Len() == 0 {
			return 0, false
		}
		rv = rv.Index(0)
	}
	return scalar(rv)
}

func attrString(attrs api.AttributeMap, key string) (string, bool) {
	if attrs == nil {
		return "", false
	}
	val, has := attrs.Get(key)
	if !has {
		return "", false
	}
	s, ok := val.(string)
	return s, ok
}

var epochLayouts = []string{
	"2006-01-02 15:04:05.0",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// unixSeconds converts a CF time axis ("<unit> since <epoch>") to Unix
// seconds. Values without units are taken to be Unix seconds already.
func unixSeconds(vals []float64, units string) ([]float64, error) {
	units = strings.TrimSpace(units)
	if units == "" {
		return vals, nil
	}
	unit, since, ok := strings.Cut(units, " since ")
	if !ok {
		return nil, fmt.Errorf("unsupported time units %q", units)
	}
	var step time.Duration
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "seconds", "second", "secs", "sec", "s":
		step = time.Second
	case "minutes", "minute", "mins", "min":
		step = time.Minute
	case "hours", "hour", "hrs", "hr", "h":
		step = time.Hour
	case "days", "day", "d":
		step = 24 * time.Hour
	default:
		return nil, fmt.Errorf("unsupported time unit %q", unit)
	}
	since = strings.TrimSuffix(strings.TrimSpace(since), " UTC")
	var epoch time.Time
	var err error
	for _, layout := range epochLayouts {
		epoch, err = time.Parse(layout, since)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("unsupported time epoch %q", since)
	}

	base := float64(epoch.Unix())
	secs := make([]float64, len(vals))
	for i, v := range vals {
		secs[i] = base + v*step.Seconds()
	}
	return secs, nil
}
