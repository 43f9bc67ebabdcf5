package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Domain models matching the database schema in db/migrations/*/0001_init.sql

// JobStatus is the lifecycle state of a Job.
type JobStatus string

const (
	StatusScheduled  JobStatus = "scheduled"
	StatusConfirmed  JobStatus = "confirmed"
	StatusInProgress JobStatus = "in_progress"
	StatusFinished   JobStatus = "finished"
	StatusCancelled  JobStatus = "cancelled"
)

// InitialStatus is the state every new Job starts in.
const InitialStatus = StatusScheduled

// Valid reports whether s is a known status.
func (s JobStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusInProgress, StatusFinished, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions leave s.
func (s JobStatus) Terminal() bool {
	return s == StatusFinished || s == StatusCancelled
}

// PaymentStatus is the independent payment state of a Job.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

// InitialPaymentStatus is the payment state every new Job starts in.
const InitialPaymentStatus = PaymentPending

func (p PaymentStatus) Valid() bool {
	return p == PaymentPending || p == PaymentPaid
}

type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
}

type Payer struct {
	Name     string `json:"name"`
	Document string `json:"document"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

// Job is a bookable work order together with its owned children.
type Job struct {
	ID              int64               `json:"id" db:"id"`
	Description     string              `json:"description" db:"description"`
	Value           decimal.Decimal     `json:"value" db:"value"`
	ScheduledStart  time.Time           `json:"scheduled_start" db:"scheduled_start"`
	ScheduledEnd    time.Time           `json:"scheduled_end" db:"scheduled_end"`
	ArrivalTime     string              `json:"arrival_time" db:"arrival_time"`
	EventStartTime  string              `json:"event_start_time" db:"event_start_time"`
	EventEndTime    string              `json:"event_end_time" db:"event_end_time"`
	Status          JobStatus           `json:"status" db:"status"`
	PaymentStatus   PaymentStatus       `json:"payment_status" db:"payment_status"`
	ClientID        *int64              `json:"client_id" db:"client_id"`
	ClientName      string              `json:"client_name,omitempty"`
	OperatorID      *int64              `json:"operator_id" db:"operator_id"`
	OperatorName    string              `json:"operator_name,omitempty"`
	Address         Address             `json:"address"`
	Payer           Payer               `json:"payer"`
	PaymentTerms    string              `json:"payment_terms" db:"payment_terms"`
	DiscountPercent decimal.NullDecimal `json:"discount_percent" db:"discount_percent"`
	DiscountAmount  decimal.NullDecimal `json:"discount_amount" db:"discount_amount"`
	Notes           string              `json:"notes" db:"notes"`
	Version         int64               `json:"version" db:"version"`
	CreatedBy       string              `json:"created_by" db:"created_by"`
	UpdatedBy       string              `json:"updated_by" db:"updated_by"`
	Created         int64               `json:"created" db:"created"`
	Updated         int64               `json:"updated" db:"updated"`

	// ExpectedVersion guards UpdateJob when non-zero. Never persisted.
	ExpectedVersion int64 `json:"-"`

	LineItems []LineItem       `json:"line_items"`
	Crew      []CrewAssignment `json:"crew,omitempty"`
}

// Recognized reports whether the Job counts towards recognized revenue.
func (j *Job) Recognized() bool {
	return j.Status == StatusFinished && j.PaymentStatus == PaymentPaid
}

// LineItem is one billable row of a Job.
type LineItem struct {
	ID          int64           `json:"id" db:"id"`
	JobID       int64           `json:"job_id" db:"job_id"`
	Description string          `json:"description" db:"description"`
	Quantity    int             `json:"quantity" db:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price" db:"unit_price"`
	Discount    decimal.Decimal `json:"discount" db:"discount"`
	EquipmentID *int64          `json:"equipment_id,omitempty" db:"equipment_id"`
}

// CrewAssignment binds one employee to a role on a Job.
type CrewAssignment struct {
	ID           int64  `json:"id" db:"id"`
	JobID        int64  `json:"job_id" db:"job_id"`
	EmployeeID   int64  `json:"employee_id" db:"employee_id"`
	EmployeeName string `json:"employee_name,omitempty"`
	Role         string `json:"role" db:"role"`
}
