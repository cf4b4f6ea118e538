// Package query runs point extractions against a grid and assembles the
// result table.
package query

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrLoad marks a query list that cannot be opened or parsed.
var ErrLoad = errors.New("query: load failure")

// Query is one point to extract. Time is in Unix seconds, latitude and
// longitude in degrees.
type Query struct {
	Time float64
	Lat  float64
	Lon  float64
}

// DefaultColumns is the column order of a query file: time, lat, lon.
var DefaultColumns = []string{"time", "lat", "lon"}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
}

// ReadFile reads a delimited query file. See Read.
func ReadFile(path string, columns []string) ([]Query, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	defer f.Close()
	return Read(f, columns)
}

// Read parses comma separated queries. columns names the meaning of each
// field ("time", "lat", "lon"; any other name is skipped). A first row in
// which none of the time, lat and lon fields parse is a header and is
// skipped; any other unparseable row is an error. Times are numbers of Unix seconds
// or timestamps such as 2018-11-01T06:00:00Z.
func Read(r io.Reader, columns []string) ([]Query, error) {
	if len(columns) == 0 {
		columns = DefaultColumns
	}
	pos := map[string]int{}
	for i, c := range columns {
		pos[strings.ToLower(strings.TrimSpace(c))] = i
	}
	for _, c := range DefaultColumns {
		if _, ok := pos[c]; !ok {
			return nil, fmt.Errorf("%w: columns %v lack %q", ErrLoad, columns, c)
		}
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	var queries []Query
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoad, err)
		}
		if len(rec) < len(columns) {
			return nil, fmt.Errorf("%w: line %d: %d fields, want %d", ErrLoad, line, len(rec), len(columns))
		}
		if line == 1 && isHeader(rec, pos) {
			continue
		}
		q, err := parse(rec, pos)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrLoad, line, err)
		}
		queries = append(queries, q)
	}
	return queries, nil
}

func parse(rec []string, pos map[string]int) (Query, error) {
	var q Query
	var err error
	if q.Time, err = parseTime(rec[pos["time"]]); err != nil {
		return Query{}, err
	}
	if q.Lat, err = strconv.ParseFloat(strings.TrimSpace(rec[pos["lat"]]), 64); err != nil {
		return Query{}, err
	}
	if q.Lon, err = strconv.ParseFloat(strings.TrimSpace(rec[pos["lon"]]), 64); err != nil {
		return Query{}, err
	}
	return q, nil
}

func isHeader(rec []string, pos map[string]int) bool {
	if _, err := parseTime(rec[pos["time"]]); err == nil {
		return false
	}
	for _, c := range []string{"lat", "lon"} {
		if _, err := strconv.ParseFloat(strings.TrimSpace(rec[pos[c]]), 64); err == nil {
			return false
		}
	}
	return true
}

func parseTime(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return float64(t.Unix()) + float64(t.Nanosecond())/1e9, nil
		}
	}
	return 0, fmt.Errorf("invalid time %q", s)
}
