package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"log/slog"

	"github.com/garnizeh/rentops/internal/db"
	"github.com/garnizeh/rentops/pkg/models"
	"github.com/garnizeh/rentops/pkg/repository"
)

const jobColumns = `j.id, j.description, j.value, j.scheduled_start, j.scheduled_end,
	j.arrival_time, j.event_start_time, j.event_end_time, j.status, j.payment_status,
	j.client_id, COALESCE(c.name, ''), j.operator_id, COALESCE(e.name, ''),
	j.address, j.city, j.state, j.zip_code,
	j.payer_name, j.payer_document, j.payer_email, j.payer_phone,
	j.payment_terms, j.discount_percent, j.discount_amount, j.notes,
	j.version, j.created_by, j.updated_by, j.created, j.updated`

const jobFrom = `FROM jobs j
	LEFT JOIN clients c ON c.id = j.client_id
	LEFT JOIN employees e ON e.id = j.operator_id`

// CreateJob inserts the job row and its complete child sets in one transaction
// and returns the generated id. On success j.ID, j.Version and the timestamps
// are filled in.
func (r *Repo) CreateJob(ctx context.Context, j *models.Job, items []models.LineItem, crew []models.CrewAssignment) (int64, error) {
	if j == nil {
		return 0, fmt.Errorf("job is nil")
	}

	ts := now()
	var id int64
	err := r.conn.WithTx(ctx, func(tx *db.Tx) error {
		q := `INSERT INTO jobs (description, value, scheduled_start, scheduled_end,
			arrival_time, event_start_time, event_end_time, status, payment_status,
			client_id, operator_id, address, city, state, zip_code,
			payer_name, payer_document, payer_email, payer_phone,
			payment_terms, discount_percent, discount_amount, notes,
			version, created_by, updated_by, created, updated)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?, ?)
			RETURNING id`
		err := tx.QueryRow(ctx, q,
			j.Description, j.Value, j.ScheduledStart.UTC().UnixMilli(), j.ScheduledEnd.UTC().UnixMilli(),
			j.ArrivalTime, j.EventStartTime, j.EventEndTime, string(j.Status), string(j.PaymentStatus),
			nullableID(j.ClientID), nullableID(j.OperatorID), j.Address.Street, j.Address.City, j.Address.State, j.Address.ZipCode,
			j.Payer.Name, j.Payer.Document, j.Payer.Email, j.Payer.Phone,
			j.PaymentTerms, j.DiscountPercent, j.DiscountAmount, j.Notes,
			j.CreatedBy, j.UpdatedBy, ts, ts,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert job: %w", err)
		}

		return insertChildren(ctx, tx, id, items, crew)
	})
	if err != nil {
		r.logger.Warn("create job failed", slog.Any("err", err))
		return 0, classify("create job", err)
	}

	j.ID, j.Version, j.Created, j.Updated = id, 1, ts, ts
	return id, nil
}

// UpdateJob rewrites the job row and replaces its line items and crew
// wholesale. The delete and the re-insert share one transaction, so a failure
// at any step leaves the previous complete child sets in place.
//
// When j.ExpectedVersion is non-zero the write only applies if the stored
// version matches; otherwise the last writer wins.
func (r *Repo) UpdateJob(ctx context.Context, id int64, j *models.Job, items []models.LineItem, crew []models.CrewAssignment) error {
	if j == nil {
		return fmt.Errorf("job is nil")
	}

	ts := now()
	var version int64
	err := r.conn.WithTx(ctx, func(tx *db.Tx) error {
		q := `UPDATE jobs SET description = ?, value = ?, scheduled_start = ?, scheduled_end = ?,
			arrival_time = ?, event_start_time = ?, event_end_time = ?,
			client_id = ?, operator_id = ?, address = ?, city = ?, state = ?, zip_code = ?,
			payer_name = ?, payer_document = ?, payer_email = ?, payer_phone = ?,
			payment_terms = ?, discount_percent = ?, discount_amount = ?, notes = ?,
			version = version + 1, updated_by = ?, updated = ?
			WHERE id = ? AND (? = 0 OR version = ?)
			RETURNING version`
		err := tx.QueryRow(ctx, q,
			j.Description, j.Value, j.ScheduledStart.UTC().UnixMilli(), j.ScheduledEnd.UTC().UnixMilli(),
			j.ArrivalTime, j.EventStartTime, j.EventEndTime,
			nullableID(j.ClientID), nullableID(j.OperatorID), j.Address.Street, j.Address.City, j.Address.State, j.Address.ZipCode,
			j.Payer.Name, j.Payer.Document, j.Payer.Email, j.Payer.Phone,
			j.PaymentTerms, j.DiscountPercent, j.DiscountAmount, j.Notes,
			j.UpdatedBy, ts,
			id, j.ExpectedVersion, j.ExpectedVersion,
		).Scan(&version)
		if errors.Is(err, sql.ErrNoRows) {
			return missOrConflict(ctx, tx, id, fmt.Sprintf("expected version %d", j.ExpectedVersion))
		}
		if err != nil {
			return fmt.Errorf("update job: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM job_items WHERE job_id = ?`, id); err != nil {
			return fmt.Errorf("delete line items: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM job_crew WHERE job_id = ?`, id); err != nil {
			return fmt.Errorf("delete crew: %w", err)
		}

		return insertChildren(ctx, tx, id, items, crew)
	})
	if err != nil {
		r.logger.Warn("update job failed", slog.Int64("job_id", id), slog.Any("err", err))
		return classify("update job", err)
	}

	j.ID, j.Version, j.Updated = id, version, ts
	return nil
}

func insertChildren(ctx context.Context, tx *db.Tx, jobID int64, items []models.LineItem, crew []models.CrewAssignment) error {
	for i, it := range items {
		_, err := tx.Exec(ctx, `INSERT INTO job_items (job_id, description, quantity, unit_price, discount, equipment_id) VALUES (?, ?, ?, ?, ?, ?)`,
			jobID, it.Description, it.Quantity, it.UnitPrice, it.Discount, nullableID(it.EquipmentID))
		if err != nil {
			return fmt.Errorf("insert line item %d: %w", i, err)
		}
	}
	for i, c := range crew {
		_, err := tx.Exec(ctx, `INSERT INTO job_crew (job_id, employee_id, role) VALUES (?, ?, ?)`, jobID, c.EmployeeID, c.Role)
		if err != nil {
			return fmt.Errorf("insert crew assignment %d: %w", i, err)
		}
	}
	return nil
}

// missOrConflict tells a missing job apart from a guarded write that lost.
func missOrConflict(ctx context.Context, q db.Querier, id int64, reason string) error {
	var one int
	err := q.QueryRow(ctx, `SELECT 1 FROM jobs WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return &repository.NotFoundError{Entity: "job", ID: id}
	}
	if err != nil {
		return err
	}
	return &repository.ConflictError{Entity: "job", ID: id, Reason: reason}
}

// GetJob returns the job with its line items and crew, or a NotFoundError.
func (r *Repo) GetJob(ctx context.Context, id int64) (*models.Job, error) {
	var job *models.Job
	err := r.conn.WithReadTx(ctx, func(tx *db.Tx) error {
		j, err := scanJob(tx.QueryRow(ctx, `SELECT `+jobColumns+` `+jobFrom+` WHERE j.id = ?`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return &repository.NotFoundError{Entity: "job", ID: id}
		}
		if err != nil {
			return fmt.Errorf("get job: %w", err)
		}

		byJob, err := listItems(ctx, tx, `WHERE job_id = ?`, id)
		if err != nil {
			return err
		}
		j.LineItems = nonNilItems(byJob[id])

		if j.Crew, err = listCrew(ctx, tx, id); err != nil {
			return err
		}
		job = j
		return nil
	})
	if err != nil {
		return nil, classify("get job", err)
	}
	return job, nil
}

// ListJobs returns every job, newest id first, each with its line items.
// Crew is not loaded; fetch a single job for that.
func (r *Repo) ListJobs(ctx context.Context) ([]models.Job, error) {
	var out []models.Job
	err := r.conn.WithReadTx(ctx, func(tx *db.Tx) error {
		rows, err := tx.QueryRows(ctx, `SELECT `+jobColumns+` `+jobFrom+` ORDER BY j.id DESC`)
		if err != nil {
			return fmt.Errorf("list jobs: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			j, err := scanJob(rows)
			if err != nil {
				return fmt.Errorf("scan job: %w", err)
			}
			out = append(out, *j)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		rows.Close()

		byJob, err := listItems(ctx, tx, ``)
		if err != nil {
			return err
		}
		for i := range out {
			out[i].LineItems = nonNilItems(byJob[out[i].ID])
		}
		return nil
	})
	if err != nil {
		return nil, classify("list jobs", err)
	}
	if out == nil {
		out = []models.Job{}
	}
	return out, nil
}

// DeleteJob removes the job and its children in one transaction.
func (r *Repo) DeleteJob(ctx context.Context, id int64) error {
	err := r.conn.WithTx(ctx, func(tx *db.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM job_items WHERE job_id = ?`, id); err != nil {
			return fmt.Errorf("delete line items: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM job_crew WHERE job_id = ?`, id); err != nil {
			return fmt.Errorf("delete crew: %w", err)
		}
		res, err := tx.Exec(ctx, `DELETE FROM jobs WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete job: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return &repository.NotFoundError{Entity: "job", ID: id}
		}
		return nil
	})
	return classify("delete job", err)
}

// UpdateStatus moves the job from one status to another. The write is a
// compare-and-set on the current status.
func (r *Repo) UpdateStatus(ctx context.Context, id int64, from, to models.JobStatus, by string) error {
	return r.casColumn(ctx, "update status", "status", id, string(from), string(to), by)
}

// UpdatePaymentStatus is UpdateStatus for the payment column.
func (r *Repo) UpdatePaymentStatus(ctx context.Context, id int64, from, to models.PaymentStatus, by string) error {
	return r.casColumn(ctx, "update payment status", "payment_status", id, string(from), string(to), by)
}

// casColumn only ever receives the two status column names above.
func (r *Repo) casColumn(ctx context.Context, op, column string, id int64, from, to, by string) error {
	err := r.conn.WithTx(ctx, func(tx *db.Tx) error {
		q := `UPDATE jobs SET ` + column + ` = ?, version = version + 1, updated_by = ?, updated = ?
			WHERE id = ? AND ` + column + ` = ?`
		res, err := tx.Exec(ctx, q, to, by, now(), id, from)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return missOrConflict(ctx, tx, id, fmt.Sprintf("%s is no longer %q", column, from))
		}
		return nil
	})
	return classify(op, err)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(s scanner) (*models.Job, error) {
	var (
		j                models.Job
		start, end       int64
		status, payment  string
		client, operator sql.NullInt64
	)
	err := s.Scan(
		&j.ID, &j.Description, &j.Value, &start, &end,
		&j.ArrivalTime, &j.EventStartTime, &j.EventEndTime, &status, &payment,
		&client, &j.ClientName, &operator, &j.OperatorName,
		&j.Address.Street, &j.Address.City, &j.Address.State, &j.Address.ZipCode,
		&j.Payer.Name, &j.Payer.Document, &j.Payer.Email, &j.Payer.Phone,
		&j.PaymentTerms, &j.DiscountPercent, &j.DiscountAmount, &j.Notes,
		&j.Version, &j.CreatedBy, &j.UpdatedBy, &j.Created, &j.Updated,
	)
	if err != nil {
		return nil, err
	}

	j.ScheduledStart = fromMillis(start)
	j.ScheduledEnd = fromMillis(end)
	j.Status = models.JobStatus(status)
	j.PaymentStatus = models.PaymentStatus(payment)
	if client.Valid {
		v := client.Int64
		j.ClientID = &v
	}
	if operator.Valid {
		v := operator.Int64
		j.OperatorID = &v
	}
	return &j, nil
}

// listItems loads line items grouped by job id, in insertion order.
func listItems(ctx context.Context, q db.Querier, where string, args ...any) (map[int64][]models.LineItem, error) {
	rows, err := q.QueryRows(ctx, `SELECT id, job_id, description, quantity, unit_price, discount, equipment_id FROM job_items `+where+` ORDER BY job_id, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list line items: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]models.LineItem)
	for rows.Next() {
		var it models.LineItem
		var equipment sql.NullInt64
		if err := rows.Scan(&it.ID, &it.JobID, &it.Description, &it.Quantity, &it.UnitPrice, &it.Discount, &equipment); err != nil {
			return nil, fmt.Errorf("scan line item: %w", err)
		}
		if equipment.Valid {
			v := equipment.Int64
			it.EquipmentID = &v
		}
		out[it.JobID] = append(out[it.JobID], it)
	}
	return out, rows.Err()
}

func listCrew(ctx context.Context, q db.Querier, jobID int64) ([]models.CrewAssignment, error) {
	rows, err := q.QueryRows(ctx, `SELECT jc.id, jc.job_id, jc.employee_id, COALESCE(e.name, ''), jc.role
		FROM job_crew jc LEFT JOIN employees e ON e.id = jc.employee_id
		WHERE jc.job_id = ? ORDER BY jc.id`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list crew: %w", err)
	}
	defer rows.Close()

	out := []models.CrewAssignment{}
	for rows.Next() {
		var c models.CrewAssignment
		if err := rows.Scan(&c.ID, &c.JobID, &c.EmployeeID, &c.EmployeeName, &c.Role); err != nil {
			return nil, fmt.Errorf("scan crew assignment: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func nonNilItems(items []models.LineItem) []models.LineItem {
	if items == nil {
		return []models.LineItem{}
	}
	return items
}
