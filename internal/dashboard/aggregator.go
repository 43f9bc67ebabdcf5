// Package dashboard answers the read-only aggregates shown on the operations
// dashboard: recognized revenue for a month and the weekly job trend.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garnizeh/rentops/internal/metrics"
	"github.com/garnizeh/rentops/pkg/repository"
)

const (
	QueryMonthlyRevenue = "monthly_revenue"
	QueryWeeklyTrend    = "weekly_trend"
)

var hundred = decimal.NewFromInt(100)

// Trend counts jobs per day of the week containing the reference date,
// Monday first, regardless of status.
type Trend struct {
	WeekStart     time.Time       `json:"week_start"`
	Total         int             `json:"total"`
	PerDay        [7]int          `json:"per_day"`
	PreviousTotal int             `json:"previous_total"`
	VariationPct  decimal.Decimal `json:"variation_pct"`
}

type Aggregator struct {
	repo    repository.DashboardRepo
	cache   *Cache
	metrics metrics.Sink
	logger  *slog.Logger
}

type Option func(*Aggregator)

// WithCache serves repeated queries from c until the next job write.
func WithCache(c *Cache) Option {
	return func(a *Aggregator) { a.cache = c }
}

func WithMetrics(m metrics.Sink) Option {
	return func(a *Aggregator) {
		if m != nil {
			a.metrics = m
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

func New(repo repository.DashboardRepo, opts ...Option) *Aggregator {
	a := &Aggregator{repo: repo, metrics: metrics.NewNoopSink(), logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// MonthBounds returns the calendar month containing now, in now's location,
// as a half-open range.
func MonthBounds(now time.Time) (time.Time, time.Time) {
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return from, from.AddDate(0, 1, 0)
}

// WeekStart returns midnight of the Monday on or before now, in now's location.
func WeekStart(now time.Time) time.Time {
	offset := (int(now.Weekday()) + 6) % 7
	d := now.AddDate(0, 0, -offset)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, now.Location())
}

// MonthlyRecognizedRevenue sums the value of Finished and Paid jobs scheduled
// in the month of now. No qualifying jobs yields zero.
func (a *Aggregator) MonthlyRecognizedRevenue(ctx context.Context, now time.Time) (decimal.Decimal, error) {
	start := time.Now()
	from, to := MonthBounds(now)
	name := fmt.Sprintf("%s:%s", QueryMonthlyRevenue, from.Format(time.RFC3339))

	var total decimal.Decimal
	key, hit := a.fromCache(ctx, name, &total)
	if hit {
		a.metrics.DashboardQueried(QueryMonthlyRevenue, true, time.Since(start))
		return total, nil
	}

	values, err := a.repo.RecognizedValues(ctx, from, to)
	if err != nil {
		return decimal.Zero, fmt.Errorf("monthly revenue: %w", err)
	}
	total = decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}

	a.toCache(ctx, key, total)
	a.metrics.DashboardQueried(QueryMonthlyRevenue, false, time.Since(start))
	return total, nil
}

// WeeklyJobTrend buckets the current week's jobs per day and compares the
// week's total against the previous week. Variation is 0 when the previous
// week had no jobs.
func (a *Aggregator) WeeklyJobTrend(ctx context.Context, now time.Time) (Trend, error) {
	start := time.Now()
	weekStart := WeekStart(now)
	name := fmt.Sprintf("%s:%s", QueryWeeklyTrend, weekStart.Format(time.RFC3339))

	var t Trend
	key, hit := a.fromCache(ctx, name, &t)
	if hit {
		t.WeekStart = t.WeekStart.In(now.Location())
		a.metrics.DashboardQueried(QueryWeeklyTrend, true, time.Since(start))
		return t, nil
	}

	prevStart := weekStart.AddDate(0, 0, -7)
	starts, err := a.repo.ScheduledStarts(ctx, prevStart, weekStart.AddDate(0, 0, 7))
	if err != nil {
		return Trend{}, fmt.Errorf("weekly trend: %w", err)
	}

	t = Trend{WeekStart: weekStart}
	for _, s := range starts {
		local := s.In(now.Location())
		if local.Before(weekStart) {
			t.PreviousTotal++
			continue
		}
		t.PerDay[(int(local.Weekday())+6)%7]++
		t.Total++
	}
	t.VariationPct = variation(t.Total, t.PreviousTotal)

	a.toCache(ctx, key, t)
	a.metrics.DashboardQueried(QueryWeeklyTrend, false, time.Since(start))
	return t, nil
}

func variation(current, previous int) decimal.Decimal {
	if previous == 0 {
		return decimal.Zero
	}
	diff := decimal.NewFromInt(int64(current - previous))
	return diff.Mul(hundred).Div(decimal.NewFromInt(int64(previous))).Round(2)
}

// fromCache looks name up and returns the key a fresh result must be stored
// under. The key is resolved before storage is read.
func (a *Aggregator) fromCache(ctx context.Context, name string, out any) (string, bool) {
	if a.cache == nil {
		return "", false
	}
	key, ok, err := a.cache.Get(ctx, name, out)
	if err != nil {
		a.metrics.CacheError()
		a.logger.Debug("dashboard cache read failed", slog.String("name", name), slog.Any("err", err))
		return key, false
	}
	return key, ok
}

func (a *Aggregator) toCache(ctx context.Context, key string, v any) {
	if a.cache == nil || key == "" {
		return
	}
	if err := a.cache.Set(ctx, key, v); err != nil {
		a.metrics.CacheError()
		a.logger.Debug("dashboard cache write failed", slog.String("key", key), slog.Any("err", err))
	}
}
