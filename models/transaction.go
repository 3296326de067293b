package models

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	StatusPending TransactionStatus = "pending"
	StatusSuccess TransactionStatus = "success"
	StatusFailed  TransactionStatus = "failed"
)

type TransactionType string

const (
	TransactionOnline  TransactionType = "online"
	TransactionOffline TransactionType = "offline"
)

type Transaction struct {
	ID              string              `json:"_id"`
	CreatedAt       time.Time           `json:"createdAt"`
	Status          TransactionStatus   `json:"status"`
	Type            TransactionType     `json:"transactionType"`
	Buyer           Buyer               `json:"userId"`
	Lines           []TicketLine        `json:"tickets"`
	OriginalPrice   decimal.NullDecimal `json:"originalPrice"`
	DiscountedPrice decimal.NullDecimal `json:"discountedPrice"`
	TotalAmount     decimal.NullDecimal `json:"totalAmount"`
	Receipt         string              `json:"receipt"`
	CheckIns        []CheckIn           `json:"checkIns,omitempty"`
}

// Buyer is the purchasing user. Upstream sends either a populated object or
// just the user id.
type Buyer struct {
	ID       string `json:"_id,omitempty"`
	Name     string `json:"name,omitempty"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

func (b *Buyer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*b = Buyer{}
		return nil
	}
	if data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*b = Buyer{ID: id}
		return nil
	}
	type plain Buyer
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*b = Buyer(p)
	return nil
}

// DisplayName prefers the full name and falls back to the username.
func (b Buyer) DisplayName() string {
	if b.Name != "" {
		return b.Name
	}
	return b.Username
}

// Key identifies a distinct buyer: email when known, else id, else name.
func (b Buyer) Key() string {
	switch {
	case b.Email != "":
		return "email:" + strings.ToLower(b.Email)
	case b.ID != "":
		return "id:" + b.ID
	case b.DisplayName() != "":
		return "name:" + strings.ToLower(b.DisplayName())
	}
	return ""
}

// TicketLine is a denormalized copy of the catalog ticket at purchase time.
type TicketLine struct {
	TicketTypeID string              `json:"ticketId"`
	Title        string              `json:"title"`
	Price        decimal.NullDecimal `json:"price"`
	Quantity     *int                `json:"quantity,omitempty"`
	TicketDate   *time.Time          `json:"ticketDate,omitempty"`
	Dates        []DateRange         `json:"dates,omitempty"`
}

// Qty is the purchased quantity; a line without one counts as a single ticket.
func (l TicketLine) Qty() int {
	if l.Quantity == nil {
		return 1
	}
	if *l.Quantity < 0 {
		return 0
	}
	return *l.Quantity
}

type CheckIn struct {
	ID            string    `json:"_id"`
	TransactionID string    `json:"transactionId"`
	TicketTypeID  string    `json:"ticketId"`
	Quantity      *int      `json:"quantity,omitempty"`
	CheckedInBy   string    `json:"organizerId"`
	CheckedInAt   time.Time `json:"createdAt"`
}

// Qty is the redeemed quantity; a record without one counts as a single ticket.
func (c CheckIn) Qty() int {
	if c.Quantity == nil {
		return 1
	}
	if *c.Quantity < 0 {
		return 0
	}
	return *c.Quantity
}

type CheckInRequest struct {
	TransactionID string `json:"transactionId"`
	TicketID      string `json:"ticketId"`
	Quantity      int    `json:"quantity"`
	OrganizerID   string `json:"organizerId"`
}

// IntPtr is a helper for building optional quantities.
func IntPtr(v int) *int {
	return &v
}
