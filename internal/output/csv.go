// Package output serialises result tables.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/rtm0/gridquery/internal/query"
)

// Fixed leading columns of the CSV output.
var csvHeader = []string{"", "Time", "Latitude", "Longitude", query.DistanceColumn, query.TimeOffsetColumn}

// WriteCSV writes t as comma separated text: a row index, the query echo,
// the diagnostics and one column per variable. NotAvailable cells are
// empty.
func WriteCSV(w io.Writer, t *query.Table) error {
	cw := csv.NewWriter(w)
	header := append(append([]string(nil), csvHeader...), t.Names()...)
	if err := cw.Write(header); err != nil {
		return err
	}
	rec := make([]string, len(header))
	for i, q := range t.Queries {
		rec[0] = strconv.Itoa(i)
		rec[1] = formatFloat(q.Time)
		rec[2] = formatFloat(q.Lat)
		rec[3] = formatFloat(q.Lon)
		rec[4] = formatFloat(t.Distance[i])
		rec[5] = formatFloat(t.TimeOffset[i])
		for j, c := range t.Columns {
			rec[len(csvHeader)+j] = c.Cells[i].String()
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
