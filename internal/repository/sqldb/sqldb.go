package sqldb

import (
	"time"

	"log/slog"

	"github.com/garnizeh/rentops/internal/db"
	"github.com/garnizeh/rentops/pkg/repository"
)

// Repo implements the repository interfaces on top of the internal DB wrapper.
// It works against both sqlite and postgres; queries use ? placeholders and
// are rebound by the wrapper.
type Repo struct {
	conn   *db.DB
	logger *slog.Logger
}

// Ensure Repo implements the public interfaces.
var _ repository.BookingRepo = (*Repo)(nil)
var _ repository.LookupRepo = (*Repo)(nil)
var _ repository.DashboardRepo = (*Repo)(nil)

func New(conn *db.DB, logger *slog.Logger) *Repo {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repo{conn: conn, logger: logger}
}

func now() int64 {
	return time.Now().UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
