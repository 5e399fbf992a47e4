package services

import "errors"

// Conflict errors: surfaced to the caller as a rejected request, never
// retried automatically.
var (
	ErrSlotUnavailable     = errors.New("time slot unavailable")
	ErrDuplicatePayment    = errors.New("payment already exists for session")
	ErrDuplicateDispute    = errors.New("unresolved dispute already exists for session")
	ErrDuplicateReschedule = errors.New("reschedule request already pending for session")
	ErrAlreadyReleased     = errors.New("payment already released to mentor")
	ErrTransactionConflict = errors.New("conflicting provider transaction id")
)

// Integrity errors: a bookkeeping bug upstream, not a user mistake.
var (
	ErrInsufficientPendingBalance   = errors.New("insufficient pending balance")
	ErrInsufficientAvailableBalance = errors.New("insufficient available balance")
)

// Validation and access errors: rejected synchronously at the call boundary.
var (
	ErrForbidden              = errors.New("forbidden")
	ErrInvalidInput           = errors.New("invalid input")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrMentorNotFound         = errors.New("mentor not found")
	ErrRescheduleTooLate      = errors.New("too close to session start to reschedule")
)
