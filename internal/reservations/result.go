package reservations

import (
	"errors"
	"fmt"

	"ticketly/internal/events"
	"ticketly/internal/seats"

	"github.com/google/uuid"
)

// Kind is the outcome of an engine operation. Expected conditions are
// reported as kinds, never as panics or bare errors.
type Kind int

const (
	KindSuccess Kind = iota
	KindWaitlisted
	KindValidation
	KindEventNotFound
	KindSeatNotFound
	KindReservationNotFound
	KindNotWaitlisted
	KindSeatConflict
	KindAlreadyReserved
	KindTimeout
	KindStorageFailure
)

var kindNames = map[Kind]string{
	KindSuccess:             "success",
	KindWaitlisted:          "waitlisted",
	KindValidation:          "validation",
	KindEventNotFound:       "event_not_found",
	KindSeatNotFound:        "seat_not_found",
	KindReservationNotFound: "reservation_not_found",
	KindNotWaitlisted:       "not_waitlisted",
	KindSeatConflict:        "seat_conflict",
	KindAlreadyReserved:     "already_reserved",
	KindTimeout:             "timeout",
	KindStorageFailure:      "storage_failure",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Category groups kinds into the coarse error taxonomy
type Category string

const (
	CategoryOK             Category = "OK"
	CategoryExhausted      Category = "EXHAUSTED"
	CategoryValidation     Category = "VALIDATION"
	CategoryNotFound       Category = "NOT_FOUND"
	CategoryConflict       Category = "CONFLICT"
	CategoryStorageFailure Category = "STORAGE_FAILURE"
)

func (k Kind) Category() Category {
	switch k {
	case KindSuccess:
		return CategoryOK
	case KindWaitlisted:
		return CategoryExhausted
	case KindValidation:
		return CategoryValidation
	case KindEventNotFound, KindSeatNotFound, KindReservationNotFound, KindNotWaitlisted:
		return CategoryNotFound
	case KindSeatConflict, KindAlreadyReserved:
		return CategoryConflict
	default:
		return CategoryStorageFailure
	}
}

// Promotion records a waitlisted user who received the freed seat
type Promotion struct {
	UserID     uuid.UUID `json:"user_id"`
	SeatNumber string    `json:"seat_number"`
}

// Result is returned by every mutating engine operation
type Result struct {
	Kind        Kind         `json:"kind"`
	Message     string       `json:"message"`
	Reservation *Reservation `json:"reservation,omitempty"`
	Promotion   *Promotion   `json:"promotion,omitempty"`
	// Position is the 1-based waitlist position, set for waitlist outcomes
	Position int   `json:"position,omitempty"`
	Err      error `json:"-"`
}

func (r Result) OK() bool {
	return r.Kind == KindSuccess
}

func result(kind Kind, format string, args ...interface{}) Result {
	return Result{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Error is returned by read operations so callers can relay the kind
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets handlers match kinds against the catalog and seat map sentinels
func (e *Error) Is(target error) bool {
	switch e.Kind {
	case KindEventNotFound:
		return target == events.ErrEventNotFound || target == seats.ErrEventNotFound
	case KindTimeout:
		return target == seats.ErrBusy
	default:
		return false
	}
}

// KindOf extracts the kind carried by err; unknown errors are storage failures
func KindOf(err error) Kind {
	if err == nil {
		return KindSuccess
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorageFailure
}

func readError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}
