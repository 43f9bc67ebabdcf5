package sqldb

import (
	"context"
	"database/sql"
	"errors"
)

func (r *Repo) ClientExists(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, "client exists", `SELECT 1 FROM clients WHERE id = ?`, id)
}

func (r *Repo) EmployeeExists(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, "employee exists", `SELECT 1 FROM employees WHERE id = ?`, id)
}

func (r *Repo) EquipmentExists(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, "equipment exists", `SELECT 1 FROM equipment WHERE id = ?`, id)
}

func (r *Repo) exists(ctx context.Context, op, q string, id int64) (bool, error) {
	var one int
	err := r.conn.QueryRow(ctx, q, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, classify(op, err)
	}
	return true, nil
}
