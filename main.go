package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/rtm0/gridquery/internal/config"
	"github.com/rtm0/gridquery/internal/grid"
	"github.com/rtm0/gridquery/internal/log"
	"github.com/rtm0/gridquery/internal/output"
	"github.com/rtm0/gridquery/internal/query"
	"github.com/rtm0/gridquery/internal/vm"
)

var (
	configFile    = flag.String("config", "", "optional YAML configuration file; flags given on the command line override it")
	file          = flag.String("file", "", "path to a gridded dataset in NetCDF format")
	queries       = flag.String("queries", "", "path to a comma separated query file (time, lat, lon)")
	columns       = flag.String("columns", "time,lat,lon", "meaning of the query file columns")
	out           = flag.String("out", "CDS_data.csv", "output file; a .msgpack.zst suffix writes a binary snapshot")
	format        = flag.String("format", "", "output format: csv or msgpack. Default: by -out suffix")
	distanceLimit = flag.Float64("distanceLimit", 1, "maximum distance to the nearest grid point, in degrees")
	timeLimit     = flag.Duration("timeLimit", 3*time.Hour, "maximum offset to the nearest grid time")
	forecastIndex = flag.Int("forecastIndex", -1, "forecast/ensemble slot of 4-D variables; -1 averages all of them")
	lonOffset     = flag.Float64("lonOffset", 0, "added to the grid longitudes, e.g. -180")
	ignore        = flag.String("ignore", strings.Join(query.DefaultIgnore, ","), "variables not to extract")
	vmInsertURL   = flag.String("vmInsertUrl", "", "Victoria Metrics insert API URL; empty disables export")
	metricPrefix  = flag.String("metricPrefix", "gridquery", "Victoria Metrics metric prefix")
	concurrency   = flag.Int("concurrency", 4, "number of concurrent requests to Victoria Metrics")
	recsPerInsert = flag.Int("recsPerInsert", 500, "number of records sent to VM in one batch")
	logLevel      = flag.String("logLevel", "info", "log level: debug, info, warn or error")
	logFile       = flag.String("logFile", "", "write JSON logs to this rotated file instead of stdout")
)

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger, closer, err := log.New(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	err = run(context.Background(), logger, cfg)
	if err != nil {
		logger.Error("Extraction failed", "err", err)
	}
	closer.Close()
	if err != nil {
		os.Exit(1)
	}
}

// run extracts the queries from the grid, writes the output file and, when
// configured, exports the table to Victoria Metrics.
func run(ctx context.Context, logger *slog.Logger, cfg config.Config) error {
	ds, err := grid.OpenNetCDF(cfg.Grid, cfg.Dimensions, cfg.LonOffset)
	if err != nil {
		return fmt.Errorf("could not open the grid %s: %w", cfg.Grid, err)
	}
	defer ds.Close()
	logger.Info("Grid summary", ds.Summary()...)

	qs, err := query.ReadFile(cfg.Queries, cfg.Columns)
	if err != nil {
		return fmt.Errorf("could not read the queries %s: %w", cfg.Queries, err)
	}

	res, err := query.NewEngine(logger, cfg.Engine()).Run(ctx, ds, qs)
	if err != nil {
		return err
	}
	skipped := make([]string, 0)
	for _, v := range res.Skipped() {
		skipped = append(skipped, v.Name)
	}
	logger.Info("Extraction summary", "queries", res.Table.Rows(), "variables", res.Table.Names(), "skipped", skipped)

	if err := output.WriteFile(cfg.Output, cfg.Format, res.Table); err != nil {
		return fmt.Errorf("could not write the output %s: %w", cfg.Output, err)
	}
	logger.Info("Wrote output", "file", cfg.Output)

	if cfg.VM.InsertURL == "" {
		return nil
	}
	vmCli, err := vm.NewClient(logger, cfg.VM.InsertURL, cfg.VM.Concurrency, cfg.VM.MetricPrefix)
	if err != nil {
		return fmt.Errorf("could not create new VM client: %w", err)
	}
	if err := vmCli.Export(ctx, res.Table, cfg.VM.RecsPerInsert); err != nil {
		return fmt.Errorf("could not export to Victoria Metrics: %w", err)
	}
	return nil
}

// loadConfig reads -config, if any, and applies the flags that were set
// explicitly on the command line.
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if *configFile != "" {
		var err error
		if cfg, err = config.Load(*configFile); err != nil {
			return config.Config{}, err
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "file":
			cfg.Grid = *file
		case "queries":
			cfg.Queries = *queries
		case "columns":
			cfg.Columns = splitList(*columns)
		case "out":
			cfg.Output = *out
		case "format":
			cfg.Format = *format
		case "distanceLimit":
			cfg.DistanceLimit = *distanceLimit
		case "timeLimit":
			cfg.TimeLimit = config.Duration(*timeLimit)
		case "forecastIndex":
			cfg.ForecastIndex = *forecastIndex
		case "lonOffset":
			cfg.LonOffset = *lonOffset
		case "ignore":
			cfg.Ignore = splitList(*ignore)
		case "vmInsertUrl":
			cfg.VM.InsertURL = *vmInsertURL
		case "metricPrefix":
			cfg.VM.MetricPrefix = *metricPrefix
		case "concurrency":
			cfg.VM.Concurrency = *concurrency
		case "recsPerInsert":
			cfg.VM.RecsPerInsert = *recsPerInsert
		case "logLevel":
			cfg.Log.Level = *logLevel
		case "logFile":
			cfg.Log.File = *logFile
		}
	})
	if cfg.Grid == "" || cfg.Queries == "" {
		return config.Config{}, fmt.Errorf("both -file and -queries are required")
	}
	return cfg, cfg.Validate()
}

func splitList(s string) []string {
	var l []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			l = append(l, f)
		}
	}
	return l
}
