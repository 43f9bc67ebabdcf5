package api_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/garnizeh/rentops/internal/allocation"
	"github.com/garnizeh/rentops/internal/booking"
	"github.com/garnizeh/rentops/pkg/models"
	"github.com/garnizeh/rentops/pkg/repository"
)

const validJob = `{
	"description": "Wedding",
	"scheduled_start": "2026-10-10T14:00:00Z",
	"arrival_time": "13:30",
	"client_id": 3,
	"discount_percent": "10",
	"line_items": [
		{"description": "Tent", "quantity": 2, "unit_price": "100.00", "equipment_id": 9},
		{"description": "Chairs", "quantity": 1, "unit_price": 50, "discount": "10"}
	],
	"crew": [{"employee_id": 4, "role": "driver"}, {"employee_id": 4, "role": "setup"}]
}`

func TestCreateJob(t *testing.T) {
	jobs := &fakeJobs{result: booking.Result{ID: 12, Version: 1, Value: decimal.RequireFromString("216")}}
	r := newRouter(t, jobs, &fakeDashboard{})

	w := do(t, r, http.MethodPost, "/v1/jobs", validJob)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", w.Code, w.Body.String())
	}
	var res booking.Result
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.ID != 12 || !res.Value.Equal(decimal.NewFromInt(216)) {
		t.Fatalf("unexpected result %+v", res)
	}

	cmd := jobs.lastCmd
	if jobs.lastUser != "user-1" {
		t.Fatalf("expected acting user from token, got %q", jobs.lastUser)
	}
	if len(cmd.LineItems) != 2 || cmd.LineItems[0].Quantity != 2 || !cmd.LineItems[1].Discount.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("line items not decoded: %+v", cmd.LineItems)
	}
	if cmd.LineItems[0].EquipmentID == nil || *cmd.LineItems[0].EquipmentID != 9 {
		t.Fatalf("equipment id not decoded: %+v", cmd.LineItems[0])
	}
	if len(cmd.Crew) != 2 || cmd.Crew[1].Role != "setup" {
		t.Fatalf("crew not decoded: %+v", cmd.Crew)
	}
	if !cmd.ScheduledEnd.Equal(cmd.ScheduledStart) {
		t.Fatalf("missing scheduled_end should default to start, got %v", cmd.ScheduledEnd)
	}
	if !cmd.DiscountPercent.Valid || cmd.DiscountAmount.Valid {
		t.Fatalf("discounts not decoded: %+v %+v", cmd.DiscountPercent, cmd.DiscountAmount)
	}
}

func TestCreateJobRejectsBadShape(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{name: "NotJSON", body: `{"description":`},
		{name: "MissingStart", body: `{"description": "x"}`},
		{name: "QuantityNotInteger", body: `{"scheduled_start": "2026-10-10T14:00:00Z", "line_items": [{"quantity": "two", "unit_price": 1}]}`},
		{name: "BadClockTime", body: `{"scheduled_start": "2026-10-10T14:00:00Z", "arrival_time": "25:00"}`},
		{name: "BadMoney", body: `{"scheduled_start": "2026-10-10T14:00:00Z", "discount_amount": "ten"}`},
		{name: "BadTimestamp", body: `{"scheduled_start": "yesterday"}`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			jobs := &fakeJobs{}
			w := do(t, newRouter(t, jobs, &fakeDashboard{}), http.MethodPost, "/v1/jobs", c.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400 got %d: %s", w.Code, w.Body.String())
			}
			if len(jobs.calls) != 0 {
				t.Fatalf("service must not be called, got %v", jobs.calls)
			}
		})
	}
}

func TestCreateJobSchemaDetails(t *testing.T) {
	body := `{"scheduled_start": "2026-10-10T14:00:00Z", "line_items": [{"quantity": 1}]}`
	w := do(t, newRouter(t, &fakeJobs{}, &fakeDashboard{}), http.MethodPost, "/v1/jobs", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
	var resp struct {
		Details []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"details"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Details) == 0 {
		t.Fatalf("expected schema details, got %s", w.Body.String())
	}
	d := resp.Details[0]
	if !strings.Contains(d.Field, "line_items") && !strings.Contains(d.Message, "unit_price") {
		t.Fatalf("expected detail naming the missing unit_price, got %+v", d)
	}
}

func TestServiceErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantIn     string
		wantOut    string
	}{
		{
			name:       "Validation",
			err:        &allocation.ValidationError{Reason: allocation.ReasonUnknownEmployee, Field: "crew[0].employee_id", ID: 4},
			wantStatus: http.StatusBadRequest,
			wantIn:     `"reason":"unknown_employee"`,
		},
		{
			name:       "NotFound",
			err:        &repository.NotFoundError{Entity: "job", ID: 5},
			wantStatus: http.StatusNotFound,
			wantIn:     "not found",
		},
		{
			name:       "Conflict",
			err:        &repository.ConflictError{Entity: "job", ID: 5, Reason: "version changed"},
			wantStatus: http.StatusConflict,
			wantIn:     `"reason":"conflict"`,
		},
		{
			name:       "Constraint",
			err:        &repository.PersistenceError{Op: "create job", Kind: repository.KindConstraint, Err: errors.New("FOREIGN KEY constraint failed")},
			wantStatus: http.StatusConflict,
			wantOut:    "FOREIGN KEY",
		},
		{
			name:       "Unavailable",
			err:        &repository.PersistenceError{Op: "create job", Kind: repository.KindUnavailable, Retryable: true, Err: errors.New("dial tcp 10.0.0.1:5432: refused")},
			wantStatus: http.StatusServiceUnavailable,
			wantOut:    "10.0.0.1",
		},
		{
			name:       "Unexpected",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantOut:    "boom",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			jobs := &fakeJobs{err: c.err}
			w := do(t, newRouter(t, jobs, &fakeDashboard{}), http.MethodPost, "/v1/jobs", validJob)
			if w.Code != c.wantStatus {
				t.Fatalf("expected %d got %d: %s", c.wantStatus, w.Code, w.Body.String())
			}
			if c.wantIn != "" && !strings.Contains(w.Body.String(), c.wantIn) {
				t.Fatalf("expected %q in body %s", c.wantIn, w.Body.String())
			}
			if c.wantOut != "" && strings.Contains(w.Body.String(), c.wantOut) {
				t.Fatalf("storage detail leaked: %s", w.Body.String())
			}
			if c.wantStatus == http.StatusServiceUnavailable && w.Header().Get("Retry-After") != "1" {
				t.Fatalf("expected Retry-After header, got %q", w.Header().Get("Retry-After"))
			}
		})
	}
}

func TestUpdateJob(t *testing.T) {
	jobs := &fakeJobs{result: booking.Result{ID: 7, Version: 3, Value: decimal.NewFromInt(60)}}
	body := `{"scheduled_start": "2026-10-10T14:00:00Z", "scheduled_end": "2026-10-11T02:00:00Z", "expected_version": 2, "line_items": []}`
	w := do(t, newRouter(t, jobs, &fakeDashboard{}), http.MethodPut, "/v1/jobs/7", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", w.Code, w.Body.String())
	}
	if jobs.lastID != 7 || jobs.lastCmd.ExpectedVersion != 2 {
		t.Fatalf("unexpected call id=%d cmd=%+v", jobs.lastID, jobs.lastCmd)
	}
	if len(jobs.lastCmd.LineItems) != 0 {
		t.Fatalf("expected empty line item set, got %+v", jobs.lastCmd.LineItems)
	}
	if !jobs.lastCmd.ScheduledEnd.After(jobs.lastCmd.ScheduledStart) {
		t.Fatalf("scheduled_end not decoded: %v", jobs.lastCmd.ScheduledEnd)
	}
}

func TestGetAndListJobs(t *testing.T) {
	job := &models.Job{ID: 7, Description: "Party", Status: models.StatusScheduled, PaymentStatus: models.PaymentPending}
	jobs := &fakeJobs{job: job}
	r := newRouter(t, jobs, &fakeDashboard{})

	w := do(t, r, http.MethodGet, "/v1/jobs/7", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"description":"Party"`) {
		t.Fatalf("get: %d %s", w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodGet, "/v1/jobs", "")
	var list []models.Job
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil || len(list) != 1 {
		t.Fatalf("list: %d %s (%v)", w.Code, w.Body.String(), err)
	}

	w = do(t, r, http.MethodGet, "/v1/jobs/0", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("id 0: expected 400 got %d", w.Code)
	}
	w = do(t, r, http.MethodGet, "/v1/jobs/abc", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("non numeric id: expected 404 got %d", w.Code)
	}
}

func TestDeleteJobPolicy(t *testing.T) {
	recognized := &models.Job{ID: 7, Status: models.StatusFinished, PaymentStatus: models.PaymentPaid}
	open := &models.Job{ID: 8, Status: models.StatusFinished, PaymentStatus: models.PaymentPending}

	cases := []struct {
		name       string
		job        *models.Job
		path       string
		wantStatus int
		wantCalls  []string
	}{
		{name: "RecognizedRefused", job: recognized, path: "/v1/jobs/7", wantStatus: http.StatusConflict, wantCalls: []string{"get"}},
		{name: "RecognizedForced", job: recognized, path: "/v1/jobs/7?force=true", wantStatus: http.StatusNoContent, wantCalls: []string{"delete"}},
		{name: "NotRecognized", job: open, path: "/v1/jobs/8", wantStatus: http.StatusNoContent, wantCalls: []string{"get", "delete"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			jobs := &fakeJobs{job: c.job}
			w := do(t, newRouter(t, jobs, &fakeDashboard{}), http.MethodDelete, c.path, "")
			if w.Code != c.wantStatus {
				t.Fatalf("expected %d got %d: %s", c.wantStatus, w.Code, w.Body.String())
			}
			if strings.Join(jobs.calls, ",") != strings.Join(c.wantCalls, ",") {
				t.Fatalf("expected calls %v got %v", c.wantCalls, jobs.calls)
			}
		})
	}

	jobs := &fakeJobs{getErr: &repository.NotFoundError{Entity: "job", ID: 9}}
	w := do(t, newRouter(t, jobs, &fakeDashboard{}), http.MethodDelete, "/v1/jobs/9", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing job: expected 404 got %d", w.Code)
	}
}

func TestChangeStatus(t *testing.T) {
	jobs := &fakeJobs{}
	r := newRouter(t, jobs, &fakeDashboard{})

	w := do(t, r, http.MethodPost, "/v1/jobs/3/status", `{"status":"confirmed"}`)
	if w.Code != http.StatusNoContent || jobs.statusTo != models.StatusConfirmed || jobs.lastID != 3 {
		t.Fatalf("expected 204 confirmed, got %d %q", w.Code, jobs.statusTo)
	}

	w = do(t, r, http.MethodPost, "/v1/jobs/3/status", `{"status":"archived"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown status: expected 400 got %d", w.Code)
	}

	jobs.err = &booking.TransitionError{JobID: 3, From: "finished", To: "scheduled"}
	w = do(t, r, http.MethodPost, "/v1/jobs/3/status", `{"status":"scheduled"}`)
	if w.Code != http.StatusConflict || !strings.Contains(w.Body.String(), "invalid_transition") {
		t.Fatalf("transition: expected 409 got %d %s", w.Code, w.Body.String())
	}
}

func TestChangePayment(t *testing.T) {
	cases := []struct {
		name       string
		body       string
		wantStatus int
		wantCall   string
	}{
		{name: "MarkPaid", body: `{"payment_status":"paid"}`, wantStatus: http.StatusNoContent, wantCall: "paid"},
		{name: "ReverseNeedsOverride", body: `{"payment_status":"pending"}`, wantStatus: http.StatusBadRequest},
		{name: "ReverseWithOverride", body: `{"payment_status":"pending","override":true}`, wantStatus: http.StatusNoContent, wantCall: "reverse"},
		{name: "Unknown", body: `{"payment_status":"refunded"}`, wantStatus: http.StatusBadRequest},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			jobs := &fakeJobs{}
			w := do(t, newRouter(t, jobs, &fakeDashboard{}), http.MethodPost, "/v1/jobs/3/payment", c.body)
			if w.Code != c.wantStatus {
				t.Fatalf("expected %d got %d: %s", c.wantStatus, w.Code, w.Body.String())
			}
			got := strings.Join(jobs.calls, ",")
			if got != c.wantCall {
				t.Fatalf("expected call %q got %q", c.wantCall, got)
			}
		})
	}
}

func TestJobsRequireToken(t *testing.T) {
	jobs := &fakeJobs{}
	r := newRouter(t, jobs, &fakeDashboard{})
	req := httptest.NewRequest(http.MethodGet, "/v1/jobs", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", w.Code)
	}
	if len(jobs.calls) != 0 {
		t.Fatalf("service called without token: %v", jobs.calls)
	}
}
