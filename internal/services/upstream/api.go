package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"ticket-console/internal/status"
	"ticket-console/models"
)

// Event fetches the ticket catalog of one event.
func (c *Client) Event(ctx context.Context, eventID string) (*models.EventDetails, error) {
	var event models.EventDetails
	err := c.do(ctx, "event.get", http.MethodGet, c.eventURL+"/"+url.PathEscape(eventID), nil, &event)
	if err != nil {
		return nil, notFoundOn404(err, "event", eventID)
	}
	return &event, nil
}

// TransactionsByEvent lists every purchase of an event with its check-ins.
func (c *Client) TransactionsByEvent(ctx context.Context, eventID string) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := c.do(ctx, "transactions.list", http.MethodGet, c.paymentURL+"/admin/"+url.PathEscape(eventID), nil, &txs)
	if err != nil {
		return nil, err
	}
	return txs, nil
}

func (c *Client) Transaction(ctx context.Context, transactionID string) (*models.Transaction, error) {
	var tx models.Transaction
	err := c.do(ctx, "transactions.get", http.MethodGet, c.paymentURL+"/details/"+url.PathEscape(transactionID), nil, &tx)
	if err != nil {
		return nil, notFoundOn404(err, "transaction", transactionID)
	}
	return &tx, nil
}

// CheckIn records a redemption and returns the stored record.
func (c *Client) CheckIn(ctx context.Context, req models.CheckInRequest) (models.CheckIn, error) {
	var ci models.CheckIn
	if err := c.do(ctx, "checkin.create", http.MethodPost, c.checkInURL+"/check-in", req, &ci); err != nil {
		return models.CheckIn{}, err
	}
	// Older backends echo nothing but the id.
	if ci.TransactionID == "" {
		ci.TransactionID = req.TransactionID
	}
	if ci.TicketTypeID == "" {
		ci.TicketTypeID = req.TicketID
	}
	if ci.Quantity == nil {
		ci.Quantity = models.IntPtr(req.Quantity)
	}
	if ci.CheckedInBy == "" {
		ci.CheckedInBy = req.OrganizerID
	}
	return ci, nil
}

func (c *Client) UndoCheckIn(ctx context.Context, checkInID string) error {
	return c.do(ctx, "checkin.delete", http.MethodDelete, c.checkInURL+"/check-in/"+url.PathEscape(checkInID), nil, nil)
}

func (c *Client) CheckInsForTransaction(ctx context.Context, transactionID string) ([]models.CheckIn, error) {
	var cis []models.CheckIn
	err := c.do(ctx, "checkin.list", http.MethodGet, c.checkInURL+"/check-ins/"+url.PathEscape(transactionID), nil, &cis)
	if err != nil {
		return nil, err
	}
	return cis, nil
}

// CreateOfflineBooking submits an administrator-made booking. The returned
// transaction is best effort; backends differ in what they echo.
func (c *Client) CreateOfflineBooking(ctx context.Context, req models.OfflineBookingRequest) (*models.Transaction, error) {
	var raw json.RawMessage
	if err := c.do(ctx, "booking.create", http.MethodPost, c.checkInURL+"/admin-create", req, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var tx models.Transaction
	if err := json.Unmarshal(raw, &tx); err != nil {
		c.logger.Warn("offline booking reply not decodable", "error", err)
		return nil, nil
	}
	return &tx, nil
}

func (c *Client) OfflineBookings(ctx context.Context, eventID string) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := c.do(ctx, "booking.list", http.MethodGet, c.checkInURL+"/event/"+url.PathEscape(eventID), nil, &txs)
	if err != nil {
		return nil, err
	}
	return txs, nil
}

func notFoundOn404(err error, kind, id string) error {
	var te *status.TransportError
	if errors.As(err, &te) && te.StatusCode == http.StatusNotFound {
		return status.NewNotFoundError(kind, id)
	}
	return err
}
