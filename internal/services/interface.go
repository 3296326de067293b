package services

import (
	"context"
	"time"

	"ticket-console/internal/ledger"
	"ticket-console/models"
)

// Catalog supplies an event's ticket catalog.
type Catalog interface {
	Event(ctx context.Context, eventID string) (*models.EventDetails, error)
}

// CatalogInvalidator is implemented by catalogs that cache.
type CatalogInvalidator interface {
	Invalidate(ctx context.Context, eventID string) error
}

type TransactionProvider interface {
	TransactionsByEvent(ctx context.Context, eventID string) ([]models.Transaction, error)
}

// CheckInGateway is the check-in service: redemptions and offline bookings.
type CheckInGateway interface {
	CheckIn(ctx context.Context, req models.CheckInRequest) (models.CheckIn, error)
	UndoCheckIn(ctx context.Context, checkInID string) error
	CheckInsForTransaction(ctx context.Context, transactionID string) ([]models.CheckIn, error)
	CreateOfflineBooking(ctx context.Context, req models.OfflineBookingRequest) (*models.Transaction, error)
	OfflineBookings(ctx context.Context, eventID string) ([]models.Transaction, error)
}

// PairLocker serialises check-ins of one pair across console instances.
type PairLocker interface {
	Acquire(ctx context.Context, p ledger.Pair) (release func(), err error)
}

type Notifier interface {
	Notify(ctx context.Context, eventID string, n Notification)
}

type AuditRecorder interface {
	Record(ctx context.Context, e AuditEntry) error
	Recent(ctx context.Context, eventID string, limit int) ([]AuditEntry, error)
}

const (
	ActionCheckIn     = "check_in"
	ActionUndoCheckIn = "undo_check_in"
	ActionBooking     = "offline_booking"
)

// Notification is broadcast to other consoles watching the same event.
type Notification struct {
	Type          string `json:"type"`
	EventID       string `json:"event_id"`
	TransactionID string `json:"transaction_id,omitempty"`
	TicketID      string `json:"ticket_id,omitempty"`
	CheckInID     string `json:"check_in_id,omitempty"`
	Quantity      int    `json:"quantity,omitempty"`
	Actor         string `json:"actor"`
}

type AuditEntry struct {
	ID            string    `json:"id"`
	EventID       string    `json:"eventId"`
	Action        string    `json:"action"`
	Actor         string    `json:"actor"`
	TransactionID string    `json:"transactionId"`
	TicketID      string    `json:"ticketId"`
	Quantity      int       `json:"quantity"`
	Detail        string    `json:"detail"`
	Created       time.Time `json:"created"`
}
