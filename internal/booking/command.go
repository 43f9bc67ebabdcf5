package booking

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/garnizeh/rentops/pkg/models"
)

// JobCommand carries everything a caller may set on a job. Status, payment
// status and value are not part of it: the first two move only through
// explicit commands and value is always derived from the line items.
type JobCommand struct {
	Description     string
	ScheduledStart  time.Time
	ScheduledEnd    time.Time
	ArrivalTime     string
	EventStartTime  string
	EventEndTime    string
	ClientID        *int64
	OperatorID      *int64
	Address         models.Address
	Payer           models.Payer
	PaymentTerms    string
	DiscountPercent decimal.NullDecimal
	DiscountAmount  decimal.NullDecimal
	Notes           string

	LineItems []models.LineItem
	Crew      []models.CrewAssignment

	// Draft tolerates an empty client.
	Draft bool
	// ExpectedVersion, when non-zero, makes UpdateJob fail with a conflict if
	// the stored job has moved on.
	ExpectedVersion int64
}

func (c JobCommand) job() *models.Job {
	return &models.Job{
		Description:     c.Description,
		ScheduledStart:  c.ScheduledStart,
		ScheduledEnd:    c.ScheduledEnd,
		ArrivalTime:     c.ArrivalTime,
		EventStartTime:  c.EventStartTime,
		EventEndTime:    c.EventEndTime,
		ClientID:        c.ClientID,
		OperatorID:      c.OperatorID,
		Address:         c.Address,
		Payer:           c.Payer,
		PaymentTerms:    c.PaymentTerms,
		DiscountPercent: c.DiscountPercent,
		DiscountAmount:  c.DiscountAmount,
		Notes:           c.Notes,
		ExpectedVersion: c.ExpectedVersion,
	}
}

// Result reports what a create or update wrote.
type Result struct {
	ID       int64           `json:"id"`
	Version  int64           `json:"version"`
	Value    decimal.Decimal `json:"value"`
	Warnings []string        `json:"warnings,omitempty"`
}
