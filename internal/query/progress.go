package query

import (
	"fmt"
	"log/slog"
	"time"
)

// progress logs the share of (variable, query) cells done at most once per
// interval.
type progress struct {
	logger   *slog.Logger
	total    int
	done     int
	interval time.Duration
	start    time.Time
	last     time.Time
	now      func() time.Time
}

func newProgress(logger *slog.Logger, total int, interval time.Duration) *progress {
	start := time.Now()
	return &progress{
		logger:   logger,
		total:    total,
		interval: interval,
		start:    start,
		last:     start,
		now:      time.Now,
	}
}

func (p *progress) add(n int) {
	p.done += n
	if p.interval <= 0 {
		return
	}
	if now := p.now(); now.Sub(p.last) >= p.interval {
		p.last = now
		p.log(now)
	}
}

func (p *progress) finish() {
	if p.interval > 0 {
		p.log(p.now())
	}
}

func (p *progress) log(now time.Time) {
	percent := "100.00%"
	if p.total > 0 {
		percent = fmt.Sprintf("%.2f%%", 100*float64(p.done)/float64(p.total))
	}
	duration := now.Sub(p.start).Round(100 * time.Millisecond)
	p.logger.Info("progress", "done", percent, "in", duration)
}
