package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"

	"github.com/rtm0/gridquery/internal/config"
	"github.com/rtm0/gridquery/internal/grid"
	"github.com/rtm0/gridquery/internal/query"
)

// testConfig writes a 2x2x2 grid holding swh = 1..8 and a two-row query
// file, and returns a configuration reading them.
func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Grid = filepath.Join(dir, "grid.nc")
	cfg.Queries = filepath.Join(dir, "track.csv")
	cfg.Output = filepath.Join(dir, "out.csv")

	cw, err := cdf.OpenWriter(cfg.Grid)
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range []struct {
		name string
		v    api.Variable
	}{
		{"time", api.Variable{Values: []float64{0, 3600}, Dimensions: []string{"time"}}},
		{"latitude", api.Variable{Values: []float64{50, 50.5}, Dimensions: []string{"latitude"}}},
		{"longitude", api.Variable{Values: []float64{-10, -9.5}, Dimensions: []string{"longitude"}}},
		{"swh", api.Variable{
			Values:     [][][]float64{{{1, 2}, {3, 4}}, {{5, 6}, {7, 8}}},
			Dimensions: []string{"time", "latitude", "longitude"},
		}},
	} {
		if err := cw.AddVar(v.name, v.v); err != nil {
			t.Fatal(err)
		}
	}
	if err := cw.Close(); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(cfg.Queries, []byte("time,lat,lon\n0,50,-10\n3600,50.5,-9.5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestRun(t *testing.T) {
	cfg := testConfig(t)
	var buf bytes.Buffer
	if err := run(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)), cfg); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(cfg.Output)
	if err != nil {
		t.Fatal(err)
	}
	want := ",Time,Latitude,Longitude,DistFrmGrdPnt,TimeOffset,swh\n" +
		"0,0,50,-10,0,0,1\n" +
		"1,3600,50.5,-9.5,0,0,8\n"
	if string(b) != want {
		t.Errorf("output =\n%s\nwant\n%s", b, want)
	}
	if !strings.Contains(buf.String(), "Extraction summary") {
		t.Errorf("summary not logged: %s", buf.String())
	}
}

func TestRunErrors(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	cfg := testConfig(t)
	cfg.Grid = filepath.Join(t.TempDir(), "absent.nc")
	if err := run(context.Background(), logger, cfg); !errors.Is(err, grid.ErrLoad) {
		t.Errorf("absent grid: error = %v, want grid.ErrLoad", err)
	}

	// The grid is open when the query file fails; run must still return.
	cfg = testConfig(t)
	cfg.Queries = filepath.Join(t.TempDir(), "absent.csv")
	if err := run(context.Background(), logger, cfg); !errors.Is(err, query.ErrLoad) {
		t.Errorf("absent queries: error = %v, want query.ErrLoad", err)
	}

	cfg = testConfig(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	cfg.VM.InsertURL = srv.URL + "/write"
	if err := run(context.Background(), logger, cfg); err == nil {
		t.Errorf("run succeeded with a failing Victoria Metrics")
	}
	if _, err := os.Stat(cfg.Output); err != nil {
		t.Errorf("output not written before the export: %v", err)
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" time, latitude,,longitude ")
	want := []string{"time", "latitude", "longitude"}
	if len(got) != len(want) {
		t.Fatalf("splitList = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("splitList[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
