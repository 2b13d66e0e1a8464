package domain

// Status is the invoice lifecycle state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSent      Status = "sent"
	StatusPartial   Status = "partial"
	StatusPaid      Status = "paid"
	StatusOverdue   Status = "overdue"
	StatusVoid      Status = "void"
	StatusCancelled Status = "cancelled"
)

// DiscountType selects how discount_value is applied at recalculation.
type DiscountType string

const (
	DiscountTypeNone       DiscountType = "none"
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

// transitions encodes the lifecycle state machine:
// draft -> sent -> {partial, paid, overdue} -> {void, cancelled}.
// Derived transitions and manual overrides (mark paid, void) both go
// through these guards so the two paths cannot disagree.
var transitions = map[Status][]Status{
	StatusDraft:     {StatusSent, StatusPartial, StatusPaid, StatusOverdue, StatusVoid, StatusCancelled},
	StatusSent:      {StatusPartial, StatusPaid, StatusOverdue, StatusVoid, StatusCancelled},
	StatusPartial:   {StatusPaid, StatusOverdue, StatusVoid, StatusCancelled},
	StatusOverdue:   {StatusPartial, StatusPaid, StatusVoid, StatusCancelled},
	StatusPaid:      {StatusVoid, StatusCancelled},
	StatusVoid:      {},
	StatusCancelled: {},
}

// Valid reports whether s is a known lifecycle status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusVoid || s == StatusCancelled
}

// CanTransition reports whether the state machine permits s -> to.
func (s Status) CanTransition(to Status) bool {
	if s == to {
		return false
	}
	for _, allowed := range transitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Valid reports whether d is a known discount type.
func (d DiscountType) Valid() bool {
	switch d {
	case DiscountTypeNone, DiscountTypePercentage, DiscountTypeFixed:
		return true
	default:
		return false
	}
}
