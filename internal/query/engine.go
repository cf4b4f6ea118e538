package query

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/rtm0/gridquery/internal/extract"
	"github.com/rtm0/gridquery/internal/grid"
	"github.com/rtm0/gridquery/internal/match"
)

// DefaultIgnore lists coordinate and metadata variables that are never
// extracted.
var DefaultIgnore = []string{
	"number", "time", "step", "valid_time", "longitude", "latitude",
	"heightAboveGround", "expver", "surface",
}

// Config controls a run.
type Config struct {
	Policy match.Policy
	// Ignore names variables that are skipped entirely. The grid's own
	// axis variables are always skipped.
	Ignore []string
	// ForecastIndex selects a forecast-axis slot for 4-D variables, or
	// extract.AllMembers to average across the axis.
	ForecastIndex int
	// ProgressInterval throttles progress logging. Zero disables it.
	ProgressInterval time.Duration
}

// DefaultConfig returns the defaults for a grid whose time axis is in Unix
// seconds.
func DefaultConfig() Config {
	return Config{
		Policy:           match.DefaultPolicy(time.Second),
		Ignore:           DefaultIgnore,
		ForecastIndex:    extract.AllMembers,
		ProgressInterval: 5 * time.Second,
	}
}

// Engine extracts variable values at query points.
type Engine struct {
	logger *slog.Logger
	cfg    Config
}

// NewEngine creates an engine.
func NewEngine(logger *slog.Logger, cfg Config) *Engine {
	return &Engine{logger: logger, cfg: cfg}
}

// VariableResult is the outcome for one variable: its cells, or the error
// that kept it from loading.
type VariableResult struct {
	Name  string
	Cells []extract.Cell
	Err   error
}

// Loaded reports whether the variable made it into the table.
func (r VariableResult) Loaded() bool {
	return r.Err == nil
}

// Result is the output of Run.
type Result struct {
	Table     *Table
	Variables []VariableResult
}

// Skipped returns the variables that failed to load.
func (r *Result) Skipped() []VariableResult {
	var s []VariableResult
	for _, v := range r.Variables {
		if !v.Loaded() {
			s = append(s, v)
		}
	}
	return s
}

// Run matches every query against the grid axes and extracts every
// variable not in the ignore list.
//
// A variable that fails to load is logged and left out of the table. The
// only errors returned are an unusable grid (wrapping grid.ErrLoad) and
// ctx cancellation, which is checked between variables.
func (e *Engine) Run(ctx context.Context, src grid.Source, queries []Query) (*Result, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: no grid", grid.ErrLoad)
	}
	lats, lons, times := src.Latitude(), src.Longitude(), src.Time()
	for _, a := range []struct {
		name string
		axis grid.Axis
	}{{"latitude", lats}, {"longitude", lons}, {"time", times}} {
		if a.axis.Len() == 0 {
			return nil, fmt.Errorf("%w: %s axis is empty", grid.ErrLoad, a.name)
		}
	}

	b := NewTableBuilder(queries)
	matches := make([]match.Match, len(queries))
	for i, q := range queries {
		m, err := match.Find(lats.Values, lons.Values, times.Values, q.Lat, q.Lon, q.Time)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", grid.ErrLoad, err)
		}
		matches[i] = m
		b.SetDiagnostics(i, m.Distance(), m.DTime)
	}

	names := e.variables(src, lats, lons, times)
	p := newProgress(e.logger, len(names)*len(queries), e.cfg.ProgressInterval)
	res := &Result{}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := src.LoadVariable(name)
		if err != nil {
			e.logger.Warn("Failed to load variable", "var", name, "err", err)
			res.Variables = append(res.Variables, VariableResult{Name: name, Err: err})
			p.add(len(queries))
			continue
		}

		cells := make([]extract.Cell, len(queries))
		for i, m := range matches {
			if m.Accepted(e.cfg.Policy) {
				cells[i] = extract.Extract(v, extract.Indices{
					Forecast: e.cfg.ForecastIndex,
					Time:     m.Time,
					Lat:      m.Lat,
					Lon:      m.Lon,
				})
			}
			p.add(1)
		}
		if err := b.AddColumn(name, cells); err != nil {
			e.logger.Warn("Dropping variable", "var", name, "err", err)
			res.Variables = append(res.Variables, VariableResult{Name: name, Err: err})
			continue
		}
		res.Variables = append(res.Variables, VariableResult{Name: name, Cells: cells})
	}
	p.finish()

	res.Table = b.Build()
	return res, nil
}

// variables returns the dataset variables to extract, in dataset order.
func (e *Engine) variables(src grid.Source, axes ...grid.Axis) []string {
	var names []string
	for _, name := range src.Variables() {
		if slices.Contains(e.cfg.Ignore, name) || slices.Contains(names, name) {
			continue
		}
		if slices.ContainsFunc(axes, func(a grid.Axis) bool { return a.Name == name }) {
			continue
		}
		names = append(names, name)
	}
	return names
}
