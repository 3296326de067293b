package status

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCheckInInProgress = errors.New("check-in: another check-in for this ticket is in progress")
	ErrBookingInProgress = errors.New("booking: a booking is already being submitted")
	ErrNoStagedTicket    = errors.New("booking: no ticket is staged for editing")
	ErrViewNotLoaded     = errors.New("view: ledger has not been loaded")
	ErrStaleLoad         = errors.New("view: load superseded by a newer refresh")
)

// ValidationError reports input that can never succeed as given, such as an
// incomplete booking form or a non-positive quantity.
type ValidationError struct {
	Fields  []string
	Message string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation: " + e.Message
	}
	return fmt.Sprintf("validation: %s (%s)", e.Message, strings.Join(e.Fields, ", "))
}

func NewValidationError(message string, fields ...string) *ValidationError {
	return &ValidationError{Fields: fields, Message: message}
}

// CapacityError reports a check-in larger than what remains redeemable.
type CapacityError struct {
	TransactionID string
	TicketTypeID  string
	Requested     int
	Remaining     int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("capacity: requested %d but only %d remaining for transaction %s ticket %s",
		e.Requested, e.Remaining, e.TransactionID, e.TicketTypeID)
}

type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %s %q", e.Kind, e.ID)
}

func NewNotFoundError(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

// TransportError wraps a network or backend failure. Message carries the
// backend's own explanation when it sent one.
type TransportError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	var b strings.Builder
	b.WriteString("transport: ")
	b.WriteString(e.Op)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsCapacity(err error) bool {
	var c *CapacityError
	return errors.As(err, &c)
}

func IsNotFound(err error) bool {
	var n *NotFoundError
	return errors.As(err, &n)
}

func IsTransport(err error) bool {
	var t *TransportError
	return errors.As(err, &t)
}
