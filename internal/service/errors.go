package service

import "errors"

// Domain errors. Validation failures are rejected before any write reaches
// the store; handlers map them to user-facing messages.
var (
	ErrSearchTooShort     = errors.New("search term must be at least 3 characters")
	ErrDuplicatePayment   = errors.New("a payment with this reference was already recorded")
	ErrUnbalancedDelivery = errors.New("payment lines do not balance against the remaining amount")
	ErrAlreadyDelivered   = errors.New("order has already been delivered")
	ErrOrderClosed        = errors.New("order is in a terminal state")
	ErrNotRepaired        = errors.New("order must be repaired before delivery")
	ErrMissingReason      = errors.New("a reason is required for this action")
	ErrForbidden          = errors.New("actor role may not perform this action")
	ErrIllegalTransition  = errors.New("status transition is not allowed")
	ErrNotPending         = errors.New("request has already been decided")
	ErrAlreadyAssigned    = errors.New("order is already assigned")
	ErrNotAssignee        = errors.New("actor is not the assigned technician")
	ErrSplitMismatch      = errors.New("split shares must stay below the requested points total")
	ErrInvalidAmount      = errors.New("payment amount is invalid")
	ErrOutOfStock         = errors.New("part is out of stock")
	ErrNoPayments         = errors.New("no unreconciled payments for this cashier")
)
