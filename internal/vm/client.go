package vm

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rtm0/gridquery/internal/query"
)

// Client is a Victoria Metrics client capable of inserting extracted point
// values via various protocols.
type Client struct {
	logger       *slog.Logger
	httpCli      *http.Client
	insertURL    *url.URL
	maxConns     int
	metricPrefix string
	recToText    recToTextFunc
	apiParams    apiParamsFunc
}

const metricPrefixRE = "^[a-zA-Z0-9]+$"

// NewClient creates a new VM client.
func NewClient(logger *slog.Logger, insertURL string, maxConns int, metricPrefix string) (*Client, error) {
	u, err := url.Parse(insertURL)
	if err != nil {
		return nil, err
	}

	matches, err := regexp.Match(metricPrefixRE, []byte(metricPrefix))
	if err != nil {
		return nil, err
	}
	if !matches {
		return nil, fmt.Errorf("metric prefix %q does not match %q regular expression", metricPrefix, metricPrefixRE)
	}

	apiParams := apiParamsFuncs[u.Path]
	recToText := recToTextFuncs[u.Path]
	if apiParams == nil || recToText == nil {
		return nil, fmt.Errorf("inserting into %q is not supported", insertURL)
	}
	if maxConns < 1 {
		maxConns = 1
	}

	return &Client{
		logger: logger,
		httpCli: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   30 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        maxConns,
				IdleConnTimeout:     30 * time.Second,
				MaxIdleConnsPerHost: maxConns,
				MaxConnsPerHost:     maxConns,
			},
		},
		insertURL:    u,
		maxConns:     maxConns,
		metricPrefix: metricPrefix,
		recToText:    recToText,
		apiParams:    apiParams,
	}, nil
}

// Export inserts every row of t in batches of at most batchSize rows, with
// up to maxConns batches in flight.
func (c *Client) Export(ctx context.Context, t *query.Table, batchSize int) error {
	recs := Records(t)
	if len(recs) == 0 {
		return nil
	}
	if batchSize < 1 {
		batchSize = len(recs)
	}
	names := t.Names()
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxConns)
	for begin := 0; begin < len(recs); begin += batchSize {
		limit := min(begin+batchSize, len(recs))
		batch := recs[begin:limit]
		g.Go(func() error {
			return c.Insert(ctx, names, batch)
		})
	}
	return g.Wait()
}

// Insert inserts records into Victoria Metrics. names are the variable
// names of the records' values.
func (c *Client) Insert(ctx context.Context, names []string, recs []Record) error {
	u := *c.insertURL
	q := u.Query()
	for name, value := range c.apiParams(c.metricPrefix, names) {
		q.Add(name, value)
	}
	u.RawQuery = q.Encode()

	body := recsToText(recs, names, c.metricPrefix, c.recToText)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain")
	res, err := c.httpCli.Do(req)
	if err != nil {
		c.logger.Error("Could not post data", "err", err)
		return err
	}
	defer res.Body.Close()
	if _, err := io.Copy(io.Discard, res.Body); err != nil {
		c.logger.Error("Failed to drain response body", "err", err)
	}
	if res.StatusCode != http.StatusNoContent && res.StatusCode != http.StatusOK {
		c.logger.Error("Unexpected status", "code", res.StatusCode)
		return fmt.Errorf("unexpected status %d from %s", res.StatusCode, c.insertURL.Redacted())
	}
	return nil
}

type apiParamsFunc func(metricPrefix string, names []string) map[string]string

var apiParamsFuncs = map[string]apiParamsFunc{
	"/influx/write":        influxDBAPIParams,
	"/influx/api/v2/write": influxDBAPIParams,
	"/write":               influxDBAPIParams,
	"/api/v2/write":        influxDBAPIParams,
	"/api/v1/import/csv":   csvAPIParams,
}

func influxDBAPIParams(string, []string) map[string]string {
	return map[string]string{"precision": "ms"}
}

func csvAPIParams(metricPrefix string, names []string) map[string]string {
	format := []string{"1:time:unix_ms", "2:label:la", "3:label:lo"}
	for i, name := range names {
		format = append(format, fmt.Sprintf("%d:metric:%s_%s", i+4, metricPrefix, metricName(name)))
	}
	return map[string]string{"format": strings.Join(format, ",")}
}

var nonMetricChars = regexp.MustCompile("[^a-zA-Z0-9_]")

// metricName maps a variable name to a valid metric name.
func metricName(name string) string {
	return nonMetricChars.ReplaceAllString(name, "_")
}

type recToTextFunc func(*strings.Builder, *Record, []string, string) bool

// recsToText converts multiple records to text.
func recsToText(recs []Record, names []string, metricPrefix string, recToText recToTextFunc) io.Reader {
	var sb strings.Builder
	for i := range recs {
		if recToText(&sb, &recs[i], names, metricPrefix) {
			sb.WriteString("\n")
		}
	}
	return strings.NewReader(sb.String())
}

var recToTextFuncs = map[string]recToTextFunc{
	"/influx/write":        recToInfluxDB,
	"/influx/api/v2/write": recToInfluxDB,
	"/write":               recToInfluxDB,
	"/api/v2/write":        recToInfluxDB,
	"/api/v1/import/csv":   recToCSV,
}

// recToInfluxDB converts a record into InfluxDB line protocol v2 and
// appends it to the string builder. Records without any available value
// are skipped.
func recToInfluxDB(sb *strings.Builder, r *Record, names []string, metricPrefix string) bool {
	var fields []string
	for i, v := range r.Values {
		if v.Valid {
			fields = append(fields, fmt.Sprintf("%s=%s", metricName(names[i]), v))
		}
	}
	if len(fields) == 0 {
		return false
	}
	fmt.Fprintf(sb, "%s,la=%.2f,lo=%.2f %s %d", metricPrefix, r.Latitude, r.Longitude, strings.Join(fields, ","), r.Timestamp)
	return true
}

// recToCSV converts a record into a CSV record and appends it to the string
// builder. NotAvailable values are left empty.
func recToCSV(sb *strings.Builder, r *Record, _ []string, _ string) bool {
	fmt.Fprintf(sb, "%d,%.2f,%.2f", r.Timestamp, r.Latitude, r.Longitude)
	for _, v := range r.Values {
		sb.WriteString(",")
		sb.WriteString(v.String())
	}
	return true
}
