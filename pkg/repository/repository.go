package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garnizeh/rentops/pkg/models"
)

// Repository interfaces for domain entities. These are the public contracts
// consumers should depend on; concrete implementations live under internal/.

// BookingRepo persists Job aggregates. Writes replace the whole child set of a
// Job and run as one atomic unit.
type BookingRepo interface {
	CreateJob(ctx context.Context, j *models.Job, items []models.LineItem, crew []models.CrewAssignment) (int64, error)
	UpdateJob(ctx context.Context, id int64, j *models.Job, items []models.LineItem, crew []models.CrewAssignment) error
	GetJob(ctx context.Context, id int64) (*models.Job, error)
	ListJobs(ctx context.Context) ([]models.Job, error)
	DeleteJob(ctx context.Context, id int64) error
	UpdateStatus(ctx context.Context, id int64, from, to models.JobStatus, by string) error
	UpdatePaymentStatus(ctx context.Context, id int64, from, to models.PaymentStatus, by string) error
}

// LookupRepo answers existence checks for entities owned outside the engine.
type LookupRepo interface {
	ClientExists(ctx context.Context, id int64) (bool, error)
	EmployeeExists(ctx context.Context, id int64) (bool, error)
	EquipmentExists(ctx context.Context, id int64) (bool, error)
}

// DashboardRepo serves the read-only aggregate queries. Ranges are half-open
// [from, to).
type DashboardRepo interface {
	RecognizedValues(ctx context.Context, from, to time.Time) ([]decimal.Decimal, error)
	ScheduledStarts(ctx context.Context, from, to time.Time) ([]time.Time, error)
}
