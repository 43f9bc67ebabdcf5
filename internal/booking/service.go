// Package booking implements the job use cases: composing a job with its line
// items and crew, keeping its value priced, and moving it through its status
// and payment state machines.
package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/garnizeh/rentops/internal/allocation"
	"github.com/garnizeh/rentops/internal/metrics"
	"github.com/garnizeh/rentops/internal/pricing"
	"github.com/garnizeh/rentops/pkg/models"
	"github.com/garnizeh/rentops/pkg/repository"
)

// Command names used in logs and metrics.
const (
	CmdCreateJob      = "create_job"
	CmdUpdateJob      = "update_job"
	CmdDeleteJob      = "delete_job"
	CmdChangeStatus   = "change_status"
	CmdMarkPaid       = "mark_paid"
	CmdReversePayment = "reverse_payment"
)

// ChangeNotifier is told after every committed write.
type ChangeNotifier interface {
	JobsChanged(ctx context.Context)
}

type Service struct {
	jobs      repository.BookingRepo
	validator *allocation.Validator
	notifier  ChangeNotifier
	metrics   metrics.Sink
	logger    *slog.Logger
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithMetrics(m metrics.Sink) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

func WithNotifier(n ChangeNotifier) Option {
	return func(s *Service) { s.notifier = n }
}

// New builds the service. Lookups back the allocation validator.
func New(jobs repository.BookingRepo, lookups repository.LookupRepo, opts ...Option) *Service {
	s := &Service{
		jobs:      jobs,
		validator: allocation.New(lookups),
		metrics:   metrics.NewNoopSink(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateJob validates and prices the command, then stores the job in its
// initial status and payment state.
func (s *Service) CreateJob(ctx context.Context, cmd JobCommand) (Result, error) {
	start := time.Now()
	user := UserFrom(ctx)

	j := cmd.job()
	j.Status = models.InitialStatus
	j.PaymentStatus = models.InitialPaymentStatus
	j.CreatedBy, j.UpdatedBy = user, user
	j.ExpectedVersion = 0

	res, err := s.write(ctx, j, cmd, func() error {
		_, err := s.jobs.CreateJob(ctx, j, cmd.LineItems, cmd.Crew)
		return err
	})
	s.finish(ctx, CmdCreateJob, j.ID, start, err)
	return res, err
}

// UpdateJob replaces the job's fields, line items and crew. Status and payment
// status are left as stored.
func (s *Service) UpdateJob(ctx context.Context, id int64, cmd JobCommand) (Result, error) {
	start := time.Now()

	j := cmd.job()
	j.ID = id
	j.UpdatedBy = UserFrom(ctx)

	res, err := s.write(ctx, j, cmd, func() error {
		return s.jobs.UpdateJob(ctx, id, j, cmd.LineItems, cmd.Crew)
	})
	s.finish(ctx, CmdUpdateJob, id, start, err)
	return res, err
}

// write validates, prices and then persists through store.
func (s *Service) write(ctx context.Context, j *models.Job, cmd JobCommand, store func() error) (Result, error) {
	err := s.validator.Validate(ctx, allocation.Booking{Job: j, Items: cmd.LineItems, Crew: cmd.Crew, Draft: cmd.Draft})
	if err != nil {
		var ve *allocation.ValidationError
		if errors.As(err, &ve) {
			s.metrics.ValidationRejected(string(ve.Reason))
		}
		return Result{}, err
	}

	quote := pricing.Calculate(cmd.LineItems, pricing.DiscountOf(j))
	j.Value = quote.Total
	if quote.Clamped {
		s.logger.Warn("job total clamped to zero",
			slog.Int64("job_id", j.ID),
			slog.String("gross", quote.Gross.StringFixed(2)),
			slog.String("discount", quote.Discount.StringFixed(2)))
	}

	if err := store(); err != nil {
		return Result{}, err
	}
	return Result{ID: j.ID, Version: j.Version, Value: j.Value, Warnings: quote.Warnings}, nil
}

func (s *Service) GetJob(ctx context.Context, id int64) (*models.Job, error) {
	return s.jobs.GetJob(ctx, id)
}

// ListJobs returns every job, newest first, with line items but without crew.
func (s *Service) ListJobs(ctx context.Context) ([]models.Job, error) {
	return s.jobs.ListJobs(ctx)
}

// DeleteJob removes the job and its children. Whether a job may be deleted
// at all is the caller's decision.
func (s *Service) DeleteJob(ctx context.Context, id int64) error {
	start := time.Now()
	err := s.jobs.DeleteJob(ctx, id)
	s.finish(ctx, CmdDeleteJob, id, start, err)
	return err
}

// ChangeStatus moves the job along its status machine.
func (s *Service) ChangeStatus(ctx context.Context, id int64, to models.JobStatus) error {
	start := time.Now()
	err := s.changeStatus(ctx, id, to)
	s.finish(ctx, CmdChangeStatus, id, start, err, slog.String("to", string(to)))
	return err
}

func (s *Service) changeStatus(ctx context.Context, id int64, to models.JobStatus) error {
	cur, err := s.jobs.GetJob(ctx, id)
	if err != nil {
		return err
	}
	if !CanTransition(cur.Status, to) {
		return &TransitionError{JobID: id, From: string(cur.Status), To: string(to)}
	}
	return s.jobs.UpdateStatus(ctx, id, cur.Status, to, UserFrom(ctx))
}

// MarkPaid records the payment of a pending job.
func (s *Service) MarkPaid(ctx context.Context, id int64) error {
	start := time.Now()
	err := s.movePayment(ctx, id, models.PaymentPending, models.PaymentPaid)
	s.finish(ctx, CmdMarkPaid, id, start, err)
	return err
}

// ReversePayment puts a paid job back to pending. It is an administrative
// override outside the normal payment flow and is logged as such.
func (s *Service) ReversePayment(ctx context.Context, id int64) error {
	start := time.Now()
	err := s.movePayment(ctx, id, models.PaymentPaid, models.PaymentPending)
	if err == nil {
		s.logger.Warn("payment reversed", slog.Int64("job_id", id), slog.String("user", UserFrom(ctx)))
	}
	s.finish(ctx, CmdReversePayment, id, start, err)
	return err
}

func (s *Service) movePayment(ctx context.Context, id int64, from, to models.PaymentStatus) error {
	cur, err := s.jobs.GetJob(ctx, id)
	if err != nil {
		return err
	}
	if cur.PaymentStatus != from {
		return &TransitionError{JobID: id, From: string(cur.PaymentStatus), To: string(to)}
	}
	return s.jobs.UpdatePaymentStatus(ctx, id, from, to, UserFrom(ctx))
}

// finish logs and records the outcome of a write command and, on success,
// tells the notifier.
func (s *Service) finish(ctx context.Context, command string, id int64, start time.Time, err error, attrs ...any) {
	elapsed := time.Since(start)
	outcome := outcomeOf(err)
	s.metrics.CommandCompleted(command, outcome, elapsed)

	attrs = append(attrs,
		slog.String("command", command),
		slog.Int64("job_id", id),
		slog.String("outcome", outcome),
		slog.String("user", UserFrom(ctx)),
		slog.Duration("duration", elapsed),
	)
	switch outcome {
	case metrics.OutcomeSuccess:
		s.logger.Info("job command", attrs...)
		if s.notifier != nil {
			s.notifier.JobsChanged(ctx)
		}
	case metrics.OutcomeFailed:
		s.logger.Error("job command", append(attrs, slog.Any("err", err))...)
	default:
		s.logger.Warn("job command", append(attrs, slog.Any("err", err))...)
	}
}

func outcomeOf(err error) string {
	var ve *allocation.ValidationError
	var te *TransitionError
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.As(err, &ve):
		return metrics.OutcomeRejected
	case repository.IsNotFound(err):
		return metrics.OutcomeNotFound
	case repository.IsConflict(err), errors.As(err, &te):
		return metrics.OutcomeConflict
	default:
		return metrics.OutcomeFailed
	}
}
