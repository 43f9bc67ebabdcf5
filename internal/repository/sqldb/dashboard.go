package sqldb

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garnizeh/rentops/pkg/models"
)

// RecognizedValues returns the value of every Finished and Paid job whose
// scheduled start falls in [from, to).
func (r *Repo) RecognizedValues(ctx context.Context, from, to time.Time) ([]decimal.Decimal, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT value FROM jobs
		WHERE status = ? AND payment_status = ? AND scheduled_start >= ? AND scheduled_start < ?`,
		string(models.StatusFinished), string(models.PaymentPaid), from.UTC().UnixMilli(), to.UTC().UnixMilli())
	if err != nil {
		return nil, classify("recognized values", err)
	}
	defer rows.Close()

	var out []decimal.Decimal
	for rows.Next() {
		var v decimal.Decimal
		if err := rows.Scan(&v); err != nil {
			return nil, classify("recognized values", fmt.Errorf("scan value: %w", err))
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("recognized values", err)
	}
	return out, nil
}

// ScheduledStarts returns the scheduled start of every job, of any status,
// whose start falls in [from, to).
func (r *Repo) ScheduledStarts(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT scheduled_start FROM jobs WHERE scheduled_start >= ? AND scheduled_start < ? ORDER BY scheduled_start`,
		from.UTC().UnixMilli(), to.UTC().UnixMilli())
	if err != nil {
		return nil, classify("scheduled starts", err)
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var ms int64
		if err := rows.Scan(&ms); err != nil {
			return nil, classify("scheduled starts", fmt.Errorf("scan start: %w", err))
		}
		out = append(out, fromMillis(ms))
	}
	if err := rows.Err(); err != nil {
		return nil, classify("scheduled starts", err)
	}
	return out, nil
}
