package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidID              = errors.New("invalid id")
	ErrInvalidCategory        = errors.New("invalid category")
	ErrInvalidBedCount        = errors.New("invalid bed count")
	ErrBedCountBelowCommitted = errors.New("bed count below committed beds")
	ErrOwnerRequired          = errors.New("owner id required")
	ErrClientNameRequired     = errors.New("client name is required")
	ErrSiteNameRequired       = errors.New("site name is required")
	ErrSlotRequired           = errors.New("site id and category are required without an active hold")
	ErrInvalidRole            = errors.New("invalid role")

	ErrSiteNotFound        = errors.New("site not found")
	ErrHoldNotFound        = errors.New("no hold found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrUserNotFound        = errors.New("user not found")

	ErrHoldAlreadyActive = errors.New("owner already has an active hold")
	ErrNoBedsAvailable   = errors.New("no beds available")
	ErrAlreadySeeded     = errors.New("sites already exist")

	ErrHoldExpired = errors.New("hold has expired and cannot be refreshed")
)

// Code is the error class reported to callers.
type Code string

const (
	CodeValidation Code = "validation_error"
	CodeNotFound   Code = "not_found"
	CodeConflict   Code = "conflict"
	CodeExpired    Code = "expired"
)

// CodeOf classifies err. It returns "" for errors outside the domain taxonomy,
// which callers treat as internal failures.
func CodeOf(err error) Code {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidID),
		errors.Is(err, ErrInvalidCategory),
		errors.Is(err, ErrInvalidBedCount),
		errors.Is(err, ErrBedCountBelowCommitted),
		errors.Is(err, ErrOwnerRequired),
		errors.Is(err, ErrClientNameRequired),
		errors.Is(err, ErrSiteNameRequired),
		errors.Is(err, ErrSlotRequired),
		errors.Is(err, ErrInvalidRole):
		return CodeValidation
	case errors.Is(err, ErrSiteNotFound),
		errors.Is(err, ErrHoldNotFound),
		errors.Is(err, ErrReservationNotFound),
		errors.Is(err, ErrUserNotFound):
		return CodeNotFound
	case errors.Is(err, ErrHoldAlreadyActive),
		errors.Is(err, ErrNoBedsAvailable),
		errors.Is(err, ErrAlreadySeeded):
		return CodeConflict
	case errors.Is(err, ErrHoldExpired):
		return CodeExpired
	default:
		return ""
	}
}

// BedCountError rejects a capacity below the beds already held or reserved.
type BedCountError struct {
	Category     Category
	Requested    int
	Holds        int
	Reservations int
}

func (e *BedCountError) Minimum() int {
	return e.Holds + e.Reservations
}

func (e *BedCountError) Error() string {
	return fmt.Sprintf("cannot set %s bed count to %d: minimum required is %d (%d holds + %d reservations)",
		e.Category, e.Requested, e.Minimum(), e.Holds, e.Reservations)
}

func (e *BedCountError) Unwrap() error {
	return ErrBedCountBelowCommitted
}
