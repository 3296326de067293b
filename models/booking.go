package models

import "github.com/shopspring/decimal"

type CustomerInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type BookingLine struct {
	TicketID string          `json:"ticketId"`
	Title    string          `json:"title"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// OfflineBookingRequest is sent to the check-in service to create an
// administrator-made transaction.
type OfflineBookingRequest struct {
	EventID          string        `json:"eventId"`
	Tickets          []BookingLine `json:"tickets"`
	CustomerInfo     CustomerInfo  `json:"customerInfo"`
	IsOfflinePricing bool          `json:"isOfflinePricing"`
}

func (r OfflineBookingRequest) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range r.Tickets {
		total = total.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total
}
