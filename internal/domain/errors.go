package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidAmount       = fmt.Errorf("%w: invalid amount", ErrInvalidInput)
	ErrConflict            = errors.New("booking conflict")
	ErrInvalidTransition   = errors.New("invalid transition")
	ErrVehicleInUse        = errors.New("vehicle has an active rental")
	ErrReferentialConflict = errors.New("entity is referenced by rental history")
	ErrConcurrentUpdate    = errors.New("rental was modified concurrently")
	ErrVehicleBusy         = errors.New("vehicle is locked by another booking")
)

// ConflictError reports the first booking that claims an overlapping range.
type ConflictError struct {
	RentalID int64
	Start    time.Time
	End      time.Time
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: vehicle already booked from %s to %s",
		ErrConflict, e.Start.Format(DateLayout), e.End.Format(DateLayout))
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// TransitionError is returned when a state machine guard rejects an event.
type TransitionError struct {
	From   string
	Event  Event
	Reason string
}

func NewTransitionError(from string, ev Event, reason string) *TransitionError {
	return &TransitionError{From: from, Event: ev, Reason: reason}
}

func (e *TransitionError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: %s not allowed from %s", ErrInvalidTransition, e.Event, e.From)
	}
	return fmt.Sprintf("%s: %s not allowed from %s: %s", ErrInvalidTransition, e.Event, e.From, e.Reason)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

func InvalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
