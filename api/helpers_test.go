package api_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/garnizeh/rentops/api"
	"github.com/garnizeh/rentops/internal/booking"
	"github.com/garnizeh/rentops/internal/config"
	"github.com/garnizeh/rentops/internal/dashboard"
	"github.com/garnizeh/rentops/pkg/models"
)

const testSecret = "testsecret"

// fakeJobs records the last command it was handed and returns canned values.
type fakeJobs struct {
	lastCmd  booking.JobCommand
	lastID   int64
	lastUser string
	calls    []string
	job      *models.Job
	result   booking.Result
	err      error
	getErr   error
	statusTo models.JobStatus
}

func (f *fakeJobs) record(ctx context.Context, name string, id int64) {
	f.calls = append(f.calls, name)
	f.lastID = id
	f.lastUser = booking.UserFrom(ctx)
}

func (f *fakeJobs) CreateJob(ctx context.Context, cmd booking.JobCommand) (booking.Result, error) {
	f.record(ctx, "create", 0)
	f.lastCmd = cmd
	return f.result, f.err
}

func (f *fakeJobs) UpdateJob(ctx context.Context, id int64, cmd booking.JobCommand) (booking.Result, error) {
	f.record(ctx, "update", id)
	f.lastCmd = cmd
	return f.result, f.err
}

func (f *fakeJobs) GetJob(ctx context.Context, id int64) (*models.Job, error) {
	f.record(ctx, "get", id)
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.job, nil
}

func (f *fakeJobs) ListJobs(ctx context.Context) ([]models.Job, error) {
	f.record(ctx, "list", 0)
	if f.err != nil {
		return nil, f.err
	}
	if f.job == nil {
		return []models.Job{}, nil
	}
	return []models.Job{*f.job}, nil
}

func (f *fakeJobs) DeleteJob(ctx context.Context, id int64) error {
	f.record(ctx, "delete", id)
	return f.err
}

func (f *fakeJobs) ChangeStatus(ctx context.Context, id int64, to models.JobStatus) error {
	f.record(ctx, "status", id)
	f.statusTo = to
	return f.err
}

func (f *fakeJobs) MarkPaid(ctx context.Context, id int64) error {
	f.record(ctx, "paid", id)
	return f.err
}

func (f *fakeJobs) ReversePayment(ctx context.Context, id int64) error {
	f.record(ctx, "reverse", id)
	return f.err
}

type fakeDashboard struct {
	revenue decimal.Decimal
	trend   dashboard.Trend
	err     error
	seen    time.Time
}

func (f *fakeDashboard) MonthlyRecognizedRevenue(_ context.Context, now time.Time) (decimal.Decimal, error) {
	f.seen = now
	return f.revenue, f.err
}

func (f *fakeDashboard) WeeklyJobTrend(_ context.Context, now time.Time) (dashboard.Trend, error) {
	f.seen = now
	return f.trend, f.err
}

func newRouter(t *testing.T, jobs *fakeJobs, dash *fakeDashboard) *mux.Router {
	t.Helper()
	cfg := &config.Config{JWTSecret: testSecret}
	return api.SetupRoutes(cfg, "test", "now", api.Services{Jobs: jobs, Dashboard: dash})
}

func bearer(t *testing.T, sub string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": sub, "exp": time.Now().Add(time.Hour).Unix()})
	s, err := tok.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + s
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Authorization", bearer(t, "user-1"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
