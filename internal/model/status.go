package model

// Status is the lifecycle stage of an appointment. Appointments only move
// forward; completed, cancelled and no-show are terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no-show"
)

func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow:
		return Status(s), true
	default:
		return "", false
	}
}

// Blocking reports whether an appointment in this status occupies its time
// interval for overlap purposes.
func (s Status) Blocking() bool {
	return s == StatusPending || s == StatusConfirmed
}

func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	default:
		return false
	}
}

// NextStatuses returns the transitions the actor role may trigger from the
// current status. Customers may only cancel a confirmed appointment (the
// handler additionally checks ownership and that the start time is in the
// future); staff and admin share the full schedule-management table.
func NextStatuses(current Status, actor Role) []Status {
	switch actor {
	case RoleCustomer:
		if current == StatusConfirmed {
			return []Status{StatusCancelled}
		}
		return nil
	case RoleStaff, RoleAdmin:
		switch current {
		case StatusPending:
			return []Status{StatusConfirmed, StatusCancelled}
		case StatusConfirmed:
			return []Status{StatusCompleted, StatusCancelled, StatusNoShow}
		default:
			return nil
		}
	default:
		return nil
	}
}

func CanTransition(current, next Status, actor Role) bool {
	for _, s := range NextStatuses(current, actor) {
		if s == next {
			return true
		}
	}
	return false
}
