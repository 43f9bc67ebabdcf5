// Package allocation checks booking commands for structural and referential
// validity before the booking repository is touched.
package allocation

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/garnizeh/rentops/pkg/models"
	"github.com/garnizeh/rentops/pkg/repository"
)

// Booking is the unit the validator inspects: a job row plus the complete
// child sets it will be written with.
type Booking struct {
	Job   *models.Job
	Items []models.LineItem
	Crew  []models.CrewAssignment
	// Draft allows an empty client reference. A non-empty unknown client is
	// rejected either way.
	Draft bool
}

var hundred = decimal.NewFromInt(100)

type Validator struct {
	lookups repository.LookupRepo
}

func New(lookups repository.LookupRepo) *Validator {
	return &Validator{lookups: lookups}
}

// Validate returns the first *ValidationError found, a lookup error, or nil.
// Structural checks run before any lookup.
func (v *Validator) Validate(ctx context.Context, b Booking) error {
	if b.Job == nil {
		return fmt.Errorf("booking has no job")
	}
	if err := checkStructure(b); err != nil {
		return err
	}
	return v.checkReferences(ctx, b)
}

func checkStructure(b Booking) error {
	j := b.Job
	if j.ScheduledStart.IsZero() {
		return &ValidationError{Reason: ReasonInvalidSchedule, Field: "scheduled_start"}
	}
	if !j.ScheduledEnd.IsZero() && j.ScheduledEnd.Before(j.ScheduledStart) {
		return &ValidationError{Reason: ReasonInvalidSchedule, Field: "scheduled_end"}
	}
	if j.DiscountPercent.Valid {
		p := j.DiscountPercent.Decimal
		if p.IsNegative() || p.GreaterThan(hundred) {
			return &ValidationError{Reason: ReasonInvalidDiscount, Field: "discount_percent"}
		}
	}
	if j.DiscountAmount.Valid && j.DiscountAmount.Decimal.IsNegative() {
		return &ValidationError{Reason: ReasonInvalidDiscount, Field: "discount_amount"}
	}

	for i, it := range b.Items {
		if it.Quantity <= 0 {
			return &ValidationError{Reason: ReasonInvalidQuantity, Field: fmt.Sprintf("line_items[%d].quantity", i)}
		}
		if it.UnitPrice.IsNegative() {
			return &ValidationError{Reason: ReasonInvalidUnitPrice, Field: fmt.Sprintf("line_items[%d].unit_price", i)}
		}
		if it.Discount.IsNegative() {
			return &ValidationError{Reason: ReasonInvalidDiscount, Field: fmt.Sprintf("line_items[%d].discount", i)}
		}
	}
	return nil
}

func (v *Validator) checkReferences(ctx context.Context, b Booking) error {
	j := b.Job
	switch {
	case j.ClientID == nil && !b.Draft:
		return &ValidationError{Reason: ReasonMissingClient, Field: "client_id"}
	case j.ClientID != nil:
		ok, err := v.lookups.ClientExists(ctx, *j.ClientID)
		if err != nil {
			return err
		}
		if !ok {
			return &ValidationError{Reason: ReasonUnknownClient, Field: "client_id", ID: *j.ClientID}
		}
	}

	employees := newMemo(v.lookups.EmployeeExists)
	if j.OperatorID != nil {
		ok, err := employees.exists(ctx, *j.OperatorID)
		if err != nil {
			return err
		}
		if !ok {
			return &ValidationError{Reason: ReasonUnknownEmployee, Field: "operator_id", ID: *j.OperatorID}
		}
	}

	equipment := newMemo(v.lookups.EquipmentExists)
	for i, it := range b.Items {
		if it.EquipmentID == nil {
			continue
		}
		ok, err := equipment.exists(ctx, *it.EquipmentID)
		if err != nil {
			return err
		}
		if !ok {
			return &ValidationError{Reason: ReasonUnknownEquipment, Field: fmt.Sprintf("line_items[%d].equipment_id", i), ID: *it.EquipmentID}
		}
	}

	// the same employee may hold several roles on one job
	for i, c := range b.Crew {
		ok, err := employees.exists(ctx, c.EmployeeID)
		if err != nil {
			return err
		}
		if !ok {
			return &ValidationError{Reason: ReasonUnknownEmployee, Field: fmt.Sprintf("crew[%d].employee_id", i), ID: c.EmployeeID}
		}
	}
	return nil
}

// memo asks the lookup once per distinct id.
type memo struct {
	lookup func(context.Context, int64) (bool, error)
	seen   map[int64]bool
}

func newMemo(lookup func(context.Context, int64) (bool, error)) *memo {
	return &memo{lookup: lookup, seen: make(map[int64]bool)}
}

func (m *memo) exists(ctx context.Context, id int64) (bool, error) {
	if ok, found := m.seen[id]; found {
		return ok, nil
	}
	ok, err := m.lookup(ctx, id)
	if err != nil {
		return false, err
	}
	m.seen[id] = ok
	return ok, nil
}
