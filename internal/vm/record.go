// Package vm exports extracted point values to Victoria Metrics.
package vm

import (
	"math"

	"github.com/rtm0/gridquery/internal/extract"
	"github.com/rtm0/gridquery/internal/query"
)

// Record is the set of values extracted at one query point.
type Record struct {
	// Dimensions
	Timestamp int64 // Unix milliseconds
	Latitude  float64
	Longitude float64

	// Metrics, in table column order.
	Values []extract.Cell
}

// Records converts a table into one record per query.
func Records(t *query.Table) []Record {
	recs := make([]Record, t.Rows())
	for i, q := range t.Queries {
		recs[i] = Record{
			Timestamp: int64(math.Round(q.Time * 1000)),
			Latitude:  q.Lat,
			Longitude: q.Lon,
			Values:    make([]extract.Cell, len(t.Columns)),
		}
		for j, c := range t.Columns {
			recs[i].Values[j] = c.Cells[i]
		}
	}
	return recs
}
