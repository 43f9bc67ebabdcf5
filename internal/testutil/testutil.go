// Package testutil opens throwaway databases for package tests.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"testing"

	dbfs "github.com/garnizeh/rentops/db"
	"github.com/garnizeh/rentops/internal/db"
)

// NewDB returns a migrated in-memory sqlite database private to t. It is
// closed when the test ends.
func NewDB(t testing.TB) *db.DB {
	t.Helper()
	ctx := context.Background()

	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	d, err := db.New(ctx, db.SQLite, fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	if err := db.Migrate(ctx, d, dbfs.Migrations); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return d
}

// AddClient inserts a client row and returns its id.
func AddClient(t testing.TB, d *db.DB, name string) int64 {
	t.Helper()
	return insert(t, d, `INSERT INTO clients (name) VALUES (?) RETURNING id`, name)
}

// AddEmployee inserts an employee row and returns its id.
func AddEmployee(t testing.TB, d *db.DB, name string) int64 {
	t.Helper()
	return insert(t, d, `INSERT INTO employees (name) VALUES (?) RETURNING id`, name)
}

// AddEquipment inserts an equipment row and returns its id.
func AddEquipment(t testing.TB, d *db.DB, name string) int64 {
	t.Helper()
	return insert(t, d, `INSERT INTO equipment (name, daily_rate) VALUES (?, '0') RETURNING id`, name)
}

func insert(t testing.TB, d *db.DB, q string, args ...any) int64 {
	t.Helper()
	var id int64
	if err := d.QueryRow(context.Background(), q, args...).Scan(&id); err != nil {
		t.Fatalf("insert fixture: %v", err)
	}
	return id
}
