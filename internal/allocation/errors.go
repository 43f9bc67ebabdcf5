package allocation

import "fmt"

// Reason is a machine-readable validation failure code.
type Reason string

const (
	ReasonInvalidQuantity  Reason = "invalid_quantity"
	ReasonInvalidUnitPrice Reason = "invalid_unit_price"
	ReasonInvalidDiscount  Reason = "invalid_discount"
	ReasonInvalidSchedule  Reason = "invalid_schedule"
	ReasonUnknownEquipment Reason = "unknown_equipment"
	ReasonUnknownEmployee  Reason = "unknown_employee"
	ReasonUnknownClient    Reason = "unknown_client"
	ReasonMissingClient    Reason = "missing_client"
)

// ValidationError rejects a booking command before anything is written.
// Field is the offending input path, e.g. "line_items[1].quantity"; ID is the
// unresolved reference, if any.
type ValidationError struct {
	Reason Reason
	Field  string
	ID     int64
}

func (e *ValidationError) Error() string {
	if e.ID != 0 {
		return fmt.Sprintf("validation failed: %s at %s (id %d)", e.Reason, e.Field, e.ID)
	}
	return fmt.Sprintf("validation failed: %s at %s", e.Reason, e.Field)
}
