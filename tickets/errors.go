package tickets

import "errors"

// Error classes. Concrete errors wrap one of these so callers can pick the
// reply without knowing every case.
var (
	ErrValidation       = errors.New("validation failed")
	ErrAlreadyProcessed = errors.New("already processed")
	ErrPermission       = errors.New("permission denied")
)

var (
	ErrNotFound            = errors.New("ticket not found")
	ErrDuplicateOpenTicket = &classified{"user already has an open ticket", ErrAlreadyProcessed}
	ErrAlreadyClosed       = &classified{"ticket already closed", ErrAlreadyProcessed}
	ErrClosePending        = &classified{"ticket close already in progress", ErrAlreadyProcessed}
	ErrAlreadyClaimed      = &classified{"ticket already claimed", ErrAlreadyProcessed}
	ErrAlreadyRated        = &classified{"rating already recorded", ErrAlreadyProcessed}
	ErrNotPendingClose     = &classified{"ticket is not awaiting ratings", ErrAlreadyProcessed}
	ErrNotTicketOwner      = &classified{"only the ticket creator can rate", ErrPermission}
	ErrNotAuthorized       = &classified{"caller may not perform this ticket action", ErrPermission}
	ErrOutOfOrderRating    = &classified{"service rating must be submitted first", ErrValidation}
	ErrReasonRequired      = &classified{"a close reason is required", ErrValidation}
	ErrInvalidRating       = &classified{"rating must be between 1 and 5", ErrValidation}
)

type classified struct {
	msg   string
	class error
}

func (e *classified) Error() string { return e.msg }

func (e *classified) Is(target error) bool { return target == e.class }

// DuplicateOpenTicketError carries the ticket that blocked creation.
type DuplicateOpenTicketError struct {
	Existing *Ticket
}

func (e *DuplicateOpenTicketError) Error() string {
	return "user already has an open ticket: " + e.Existing.ID
}

func (e *DuplicateOpenTicketError) Is(target error) bool {
	return target == ErrDuplicateOpenTicket || target == ErrAlreadyProcessed
}
