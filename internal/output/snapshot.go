package output

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/rtm0/gridquery/internal/extract"
	"github.com/rtm0/gridquery/internal/query"
)

// SnapshotSuffix is the file suffix of msgpack+zstd table snapshots.
const SnapshotSuffix = ".msgpack.zst"

// snapshot is the on-disk form of a query.Table.
type snapshot struct {
	Time       []float64        `msgpack:"time"`
	Lat        []float64        `msgpack:"lat"`
	Lon        []float64        `msgpack:"lon"`
	Distance   []float64        `msgpack:"dist"`
	TimeOffset []float64        `msgpack:"toff"`
	Columns    []snapshotColumn `msgpack:"cols"`
}

type snapshotColumn struct {
	Name   string    `msgpack:"name"`
	Values []float64 `msgpack:"vals"`
	Valid  []bool    `msgpack:"valid"`
}

// WriteSnapshot writes t msgpack-encoded and zstd-compressed.
func WriteSnapshot(w io.Writer, t *query.Table) error {
	n := t.Rows()
	s := snapshot{
		Time:       make([]float64, n),
		Lat:        make([]float64, n),
		Lon:        make([]float64, n),
		Distance:   t.Distance,
		TimeOffset: t.TimeOffset,
	}
	for i, q := range t.Queries {
		s.Time[i], s.Lat[i], s.Lon[i] = q.Time, q.Lat, q.Lon
	}
	for _, c := range t.Columns {
		sc := snapshotColumn{Name: c.Name, Values: make([]float64, n), Valid: make([]bool, n)}
		for i, cell := range c.Cells {
			sc.Values[i], sc.Valid[i] = cell.Value, cell.Valid
		}
		s.Columns = append(s.Columns, sc)
	}

	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %w", err)
	}
	defer zw.Close()

	if err := msgpack.NewEncoder(zw).Encode(s); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to close zstd writer: %w", err)
	}
	return nil
}

// ReadSnapshot reads a table written by WriteSnapshot.
func ReadSnapshot(r io.Reader) (*query.Table, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader: %w", err)
	}
	defer zr.Close()

	var s snapshot
	if err := msgpack.NewDecoder(zr).Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	n := len(s.Time)
	if len(s.Lat) != n || len(s.Lon) != n || len(s.Distance) != n || len(s.TimeOffset) != n {
		return nil, fmt.Errorf("snapshot: ragged query columns")
	}
	queries := make([]query.Query, n)
	for i := range queries {
		queries[i] = query.Query{Time: s.Time[i], Lat: s.Lat[i], Lon: s.Lon[i]}
	}
	b := query.NewTableBuilder(queries)
	for i := range n {
		b.SetDiagnostics(i, s.Distance[i], s.TimeOffset[i])
	}
	for _, sc := range s.Columns {
		if len(sc.Values) != n || len(sc.Valid) != n {
			return nil, fmt.Errorf("snapshot: column %q is ragged", sc.Name)
		}
		cells := make([]extract.Cell, n)
		for i := range cells {
			if sc.Valid[i] {
				cells[i] = extract.Value(sc.Values[i])
			}
		}
		if err := b.AddColumn(sc.Name, cells); err != nil {
			return nil, fmt.Errorf("snapshot: %w", err)
		}
	}
	return b.Build(), nil
}
