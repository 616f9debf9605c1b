package models

import (
	"errors"
	"fmt"
)

// ReasonCode is the error kind surfaced to the presentation layer.
type ReasonCode string

const (
	ReasonInvalidInput        ReasonCode = "InvalidInput"
	ReasonSlotUnavailable     ReasonCode = "SlotUnavailable"
	ReasonUnexpectedInput     ReasonCode = "UnexpectedInput"
	ReasonProviderUnavailable ReasonCode = "ProviderUnavailable"
)

// Error variables for booking rejections and store lookups.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrSlotUnavailable     = errors.New("slot unavailable")
	ErrUnexpectedInput     = errors.New("unexpected input")
	ErrProviderUnavailable = errors.New("busy interval provider unavailable")
	ErrSessionNotFound     = errors.New("session not found")
	ErrEmptySessionID      = errors.New("session id cannot be empty")
)

// sentinel returns the error variable matching a reason code.
func (r ReasonCode) sentinel() error {
	switch r {
	case ReasonInvalidInput:
		return ErrInvalidInput
	case ReasonSlotUnavailable:
		return ErrSlotUnavailable
	case ReasonUnexpectedInput:
		return ErrUnexpectedInput
	case ReasonProviderUnavailable:
		return ErrProviderUnavailable
	}
	return nil
}

// RejectError is a refused booking event together with the notice shown to the user.
// errors.Is matches it against the sentinel of its reason.
type RejectError struct {
	Reason ReasonCode
	Notice string
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Notice)
}

// Is reports whether target is the sentinel for e's reason.
func (e *RejectError) Is(target error) bool {
	return target != nil && target == e.Reason.sentinel()
}

// Reject builds a RejectError with a formatted notice.
func Reject(reason ReasonCode, format string, args ...interface{}) error {
	return &RejectError{Reason: reason, Notice: fmt.Sprintf(format, args...)}
}

// ReasonFor classifies err into a reason code. ok is false for errors that
// are not booking rejections (infrastructure failures).
func ReasonFor(err error) (ReasonCode, bool) {
	var rej *RejectError
	if errors.As(err, &rej) {
		return rej.Reason, true
	}
	switch {
	case errors.Is(err, ErrInvalidInput):
		return ReasonInvalidInput, true
	case errors.Is(err, ErrSlotUnavailable):
		return ReasonSlotUnavailable, true
	case errors.Is(err, ErrUnexpectedInput):
		return ReasonUnexpectedInput, true
	case errors.Is(err, ErrProviderUnavailable):
		return ReasonProviderUnavailable, true
	}
	return "", false
}

// RejectionFor converts a classified error into a Rejection. The notice is
// the RejectError notice when present, else the error text.
func RejectionFor(err error) (*Rejection, bool) {
	reason, ok := ReasonFor(err)
	if !ok {
		return nil, false
	}
	notice := err.Error()
	var rej *RejectError
	if errors.As(err, &rej) {
		notice = rej.Notice
	}
	return &Rejection{Reason: reason, Notice: notice}, true
}
