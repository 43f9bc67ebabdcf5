package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garnizeh/rentops/pkg/models"
	"github.com/garnizeh/rentops/pkg/repository"
)

// Test helpers and mocks

// Lookups answers existence checks from fixed id sets.
type Lookups struct {
	Clients   map[int64]bool
	Employees map[int64]bool
	Equipment map[int64]bool
	Err       error
	Calls     int
}

var _ repository.LookupRepo = (*Lookups)(nil)

func NewLookups() *Lookups {
	return &Lookups{Clients: map[int64]bool{}, Employees: map[int64]bool{}, Equipment: map[int64]bool{}}
}

func (l *Lookups) ClientExists(ctx context.Context, id int64) (bool, error) {
	l.Calls++
	return l.Clients[id], l.Err
}

func (l *Lookups) EmployeeExists(ctx context.Context, id int64) (bool, error) {
	l.Calls++
	return l.Employees[id], l.Err
}

func (l *Lookups) EquipmentExists(ctx context.Context, id int64) (bool, error) {
	l.Calls++
	return l.Equipment[id], l.Err
}

// Bookings is an in-memory BookingRepo and DashboardRepo. Each write either
// applies completely or not at all. Set the *Err fields to force failures.
type Bookings struct {
	mu     sync.Mutex
	nextID int64
	jobs   map[int64]models.Job

	CreateErr error
	UpdateErr error
	DeleteErr error
	StatusErr error
	ReadErr   error
}

var _ repository.BookingRepo = (*Bookings)(nil)
var _ repository.DashboardRepo = (*Bookings)(nil)

func NewBookings() *Bookings {
	return &Bookings{jobs: map[int64]models.Job{}}
}

func (b *Bookings) CreateJob(ctx context.Context, j *models.Job, items []models.LineItem, crew []models.CrewAssignment) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.CreateErr != nil {
		return 0, b.CreateErr
	}
	b.nextID++
	ts := time.Now().UTC().UnixMilli()
	j.ID, j.Version, j.Created, j.Updated = b.nextID, 1, ts, ts
	b.jobs[j.ID] = snapshot(*j, items, crew)
	return j.ID, nil
}

func (b *Bookings) UpdateJob(ctx context.Context, id int64, j *models.Job, items []models.LineItem, crew []models.CrewAssignment) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.UpdateErr != nil {
		return b.UpdateErr
	}
	cur, ok := b.jobs[id]
	if !ok {
		return &repository.NotFoundError{Entity: "job", ID: id}
	}
	if j.ExpectedVersion != 0 && j.ExpectedVersion != cur.Version {
		return &repository.ConflictError{Entity: "job", ID: id, Reason: "version mismatch"}
	}
	next := *j
	next.ID, next.Version = id, cur.Version+1
	next.Status, next.PaymentStatus = cur.Status, cur.PaymentStatus
	next.CreatedBy, next.Created = cur.CreatedBy, cur.Created
	next.Updated = time.Now().UTC().UnixMilli()
	b.jobs[id] = snapshot(next, items, crew)
	j.ID, j.Version = id, next.Version
	return nil
}

func (b *Bookings) GetJob(ctx context.Context, id int64) (*models.Job, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ReadErr != nil {
		return nil, b.ReadErr
	}
	j, ok := b.jobs[id]
	if !ok {
		return nil, &repository.NotFoundError{Entity: "job", ID: id}
	}
	out := snapshot(j, j.LineItems, j.Crew)
	return &out, nil
}

func (b *Bookings) ListJobs(ctx context.Context) ([]models.Job, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ReadErr != nil {
		return nil, b.ReadErr
	}
	out := make([]models.Job, 0, len(b.jobs))
	for _, j := range b.jobs {
		c := snapshot(j, j.LineItems, nil)
		c.Crew = nil
		out = append(out, c)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID > out[k].ID })
	return out, nil
}

func (b *Bookings) DeleteJob(ctx context.Context, id int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.DeleteErr != nil {
		return b.DeleteErr
	}
	if _, ok := b.jobs[id]; !ok {
		return &repository.NotFoundError{Entity: "job", ID: id}
	}
	delete(b.jobs, id)
	return nil
}

func (b *Bookings) UpdateStatus(ctx context.Context, id int64, from, to models.JobStatus, by string) error {
	return b.mutate(id, by, func(j *models.Job) bool {
		if j.Status != from {
			return false
		}
		j.Status = to
		return true
	})
}

func (b *Bookings) UpdatePaymentStatus(ctx context.Context, id int64, from, to models.PaymentStatus, by string) error {
	return b.mutate(id, by, func(j *models.Job) bool {
		if j.PaymentStatus != from {
			return false
		}
		j.PaymentStatus = to
		return true
	})
}

func (b *Bookings) mutate(id int64, by string, apply func(*models.Job) bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.StatusErr != nil {
		return b.StatusErr
	}
	j, ok := b.jobs[id]
	if !ok {
		return &repository.NotFoundError{Entity: "job", ID: id}
	}
	if !apply(&j) {
		return &repository.ConflictError{Entity: "job", ID: id, Reason: "status changed"}
	}
	j.Version++
	j.UpdatedBy = by
	b.jobs[id] = j
	return nil
}

func (b *Bookings) RecognizedValues(ctx context.Context, from, to time.Time) ([]decimal.Decimal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ReadErr != nil {
		return nil, b.ReadErr
	}
	var out []decimal.Decimal
	for _, j := range b.jobs {
		if j.Recognized() && inRange(j.ScheduledStart, from, to) {
			out = append(out, j.Value)
		}
	}
	return out, nil
}

func (b *Bookings) ScheduledStarts(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ReadErr != nil {
		return nil, b.ReadErr
	}
	var out []time.Time
	for _, j := range b.jobs {
		if inRange(j.ScheduledStart, from, to) {
			out = append(out, j.ScheduledStart)
		}
	}
	return out, nil
}

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

// snapshot copies the job and its children so callers cannot alias stored state.
func snapshot(j models.Job, items []models.LineItem, crew []models.CrewAssignment) models.Job {
	j.ExpectedVersion = 0
	j.LineItems = make([]models.LineItem, len(items))
	for i, it := range items {
		it.JobID = j.ID
		j.LineItems[i] = it
	}
	j.Crew = make([]models.CrewAssignment, len(crew))
	for i, c := range crew {
		c.JobID = j.ID
		j.Crew[i] = c
	}
	return j
}
