package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/garnizeh/rentops/internal/booking"
	"github.com/garnizeh/rentops/pkg/models"
)

const maxBodySize = 1 << 20

// JobService is the part of the booking service the HTTP layer drives.
type JobService interface {
	CreateJob(ctx context.Context, cmd booking.JobCommand) (booking.Result, error)
	UpdateJob(ctx context.Context, id int64, cmd booking.JobCommand) (booking.Result, error)
	GetJob(ctx context.Context, id int64) (*models.Job, error)
	ListJobs(ctx context.Context) ([]models.Job, error)
	DeleteJob(ctx context.Context, id int64) error
	ChangeStatus(ctx context.Context, id int64, to models.JobStatus) error
	MarkPaid(ctx context.Context, id int64) error
	ReversePayment(ctx context.Context, id int64) error
}

type JobsHandler struct {
	jobs JobService
}

func NewJobsHandler(jobs JobService) *JobsHandler {
	return &JobsHandler{jobs: jobs}
}

type lineItemRequest struct {
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Discount    decimal.Decimal `json:"discount"`
	EquipmentID *int64          `json:"equipment_id"`
}

type crewRequest struct {
	EmployeeID int64  `json:"employee_id"`
	Role       string `json:"role"`
}

type jobRequest struct {
	Description     string              `json:"description"`
	ScheduledStart  time.Time           `json:"scheduled_start"`
	ScheduledEnd    *time.Time          `json:"scheduled_end"`
	ArrivalTime     string              `json:"arrival_time"`
	EventStartTime  string              `json:"event_start_time"`
	EventEndTime    string              `json:"event_end_time"`
	ClientID        *int64              `json:"client_id"`
	OperatorID      *int64              `json:"operator_id"`
	Address         models.Address      `json:"address"`
	Payer           models.Payer        `json:"payer"`
	PaymentTerms    string              `json:"payment_terms"`
	DiscountPercent decimal.NullDecimal `json:"discount_percent"`
	DiscountAmount  decimal.NullDecimal `json:"discount_amount"`
	Notes           string              `json:"notes"`
	Draft           bool                `json:"draft"`
	ExpectedVersion int64               `json:"expected_version"`
	LineItems       []lineItemRequest   `json:"line_items"`
	Crew            []crewRequest       `json:"crew"`
}

func (req jobRequest) command() booking.JobCommand {
	cmd := booking.JobCommand{
		Description:     req.Description,
		ScheduledStart:  req.ScheduledStart,
		ArrivalTime:     req.ArrivalTime,
		EventStartTime:  req.EventStartTime,
		EventEndTime:    req.EventEndTime,
		ClientID:        req.ClientID,
		OperatorID:      req.OperatorID,
		Address:         req.Address,
		Payer:           req.Payer,
		PaymentTerms:    req.PaymentTerms,
		DiscountPercent: req.DiscountPercent,
		DiscountAmount:  req.DiscountAmount,
		Notes:           req.Notes,
		Draft:           req.Draft,
		ExpectedVersion: req.ExpectedVersion,
		LineItems:       make([]models.LineItem, 0, len(req.LineItems)),
		Crew:            make([]models.CrewAssignment, 0, len(req.Crew)),
	}
	if req.ScheduledEnd != nil {
		cmd.ScheduledEnd = *req.ScheduledEnd
	} else {
		cmd.ScheduledEnd = req.ScheduledStart
	}
	for _, it := range req.LineItems {
		cmd.LineItems = append(cmd.LineItems, models.LineItem{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Discount:    it.Discount,
			EquipmentID: it.EquipmentID,
		})
	}
	for _, c := range req.Crew {
		cmd.Crew = append(cmd.Crew, models.CrewAssignment{EmployeeID: c.EmployeeID, Role: c.Role})
	}
	return cmd
}

// decodeJob checks the body against the job schema before decoding it. It
// writes the 400 itself and reports false when the body is unusable.
func decodeJob(w http.ResponseWriter, r *http.Request) (booking.JobCommand, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body failed")
		return booking.JobCommand{}, false
	}
	if len(body) > maxBodySize {
		writeError(w, http.StatusRequestEntityTooLarge, "body too large")
		return booking.JobCommand{}, false
	}

	problems, err := checkShape(r.Context(), jobSchema, body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return booking.JobCommand{}, false
	}
	if len(problems) > 0 {
		writeJSON(w, errorResponse{Error: "invalid request", Details: problems}, http.StatusBadRequest)
		return booking.JobCommand{}, false
	}

	var req jobRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return booking.JobCommand{}, false
	}
	return req.command(), true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return 0, false
	}
	return id, true
}

func (h *JobsHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	cmd, ok := decodeJob(w, r)
	if !ok {
		return
	}
	res, err := h.jobs.CreateJob(r.Context(), cmd)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res, http.StatusCreated)
}

func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.jobs.ListJobs(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, jobs, http.StatusOK)
}

func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	job, err := h.jobs.GetJob(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, job, http.StatusOK)
}

func (h *JobsHandler) UpdateJob(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	cmd, ok := decodeJob(w, r)
	if !ok {
		return
	}
	res, err := h.jobs.UpdateJob(r.Context(), id, cmd)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res, http.StatusOK)
}

// DeleteJob refuses to drop a job whose revenue is already recognized unless
// the caller passes force=true.
func (h *JobsHandler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))
	if !force {
		job, err := h.jobs.GetJob(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		if job.Recognized() {
			writeJSON(w, errorResponse{Error: "job has recognized revenue; pass force=true to delete", Reason: "recognized_revenue", ID: id}, http.StatusConflict)
			return
		}
	}
	if err := h.jobs.DeleteJob(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type statusRequest struct {
	Status models.JobStatus `json:"status"`
}

func (h *JobsHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if !req.Status.Valid() {
		writeError(w, http.StatusBadRequest, "unknown status")
		return
	}
	if err := h.jobs.ChangeStatus(r.Context(), id, req.Status); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type paymentRequest struct {
	PaymentStatus models.PaymentStatus `json:"payment_status"`
	Override      bool                 `json:"override"`
}

// ChangePayment marks a job paid, or with override=true reverses a payment.
func (h *JobsHandler) ChangePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req paymentRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	var err error
	switch req.PaymentStatus {
	case models.PaymentPaid:
		err = h.jobs.MarkPaid(r.Context(), id)
	case models.PaymentPending:
		if !req.Override {
			writeError(w, http.StatusBadRequest, "reversing a payment requires override")
			return
		}
		err = h.jobs.ReversePayment(r.Context(), id)
	default:
		writeError(w, http.StatusBadRequest, "unknown payment_status")
		return
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
