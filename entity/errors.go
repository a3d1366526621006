package entity

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")

	// ErrMalformedCallback means the gateway payload could not be decoded or
	// is missing required fields. No state is touched.
	ErrMalformedCallback = errors.New("malformed gateway callback")
	// ErrSignatureInvalid means a keyed signature did not verify.
	ErrSignatureInvalid = errors.New("signature invalid")
	ErrOrderNotFound    = errors.New("order not found")
	// ErrInvalidTransition is returned for any order status change outside the
	// pending -> paid/failed/cancelled, paid -> refunded machine.
	ErrInvalidTransition = errors.New("invalid order status transition")
	// ErrExhausted means the inventory commit would exceed quantity_available.
	ErrExhausted = errors.New("ticket type exhausted")

	ErrInvalidCredential   = errors.New("invalid admission credential")
	ErrTicketNotFound      = errors.New("ticket not found")
	ErrTicketNotAdmissible = errors.New("ticket not admissible")
	ErrEventNotStarted     = errors.New("event has not started")
	ErrNotAuthorized       = errors.New("actor not authorized to check in")

	// ErrStorageConflict is a transient serialization failure; callers retry a
	// bounded number of times.
	ErrStorageConflict = errors.New("storage conflict")
)
