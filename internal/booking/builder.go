// Package booking assembles offline bookings made by an administrator.
package booking

import (
	"strings"

	"github.com/shopspring/decimal"

	"ticket-console/internal/status"
	"ticket-console/models"
)

// Selection is the working quantity of one ticket type in the draft.
type Selection struct {
	TicketTypeID string              `json:"ticketId"`
	Title        string              `json:"title"`
	Price        decimal.Decimal     `json:"price"`
	OfflinePrice decimal.NullDecimal `json:"offlinePrice"`
	Quantity     int                 `json:"quantity"`
	// MaxQuantity is the seat limit; ignored when Unbounded. A catalog that
	// reports zero or fewer seats left caps it at 0 rather than lifting the
	// limit; only a missing seat count means unbounded.
	MaxQuantity int  `json:"maxQuantity"`
	Unbounded   bool `json:"unbounded"`

	// edited marks Title and OfflinePrice as set by ApplyStaged.
	edited bool
}

// UnitPrice is the offline price when offline pricing is on and one is set.
func (s Selection) UnitPrice(offline bool) decimal.Decimal {
	if offline && s.OfflinePrice.Valid {
		return s.OfflinePrice.Decimal
	}
	return s.Price
}

func (s Selection) fits(qty int) bool {
	return qty >= 0 && (s.Unbounded || qty <= s.MaxQuantity)
}

// Staged is an editable copy of a ticket's metadata. Nothing reaches the
// draft until ApplyStaged.
type Staged struct {
	TicketTypeID string              `json:"ticketId"`
	Title        string              `json:"title"`
	OfflinePrice decimal.NullDecimal `json:"offlinePrice"`
}

// Draft is a read-only copy of the builder state.
type Draft struct {
	EventID        string              `json:"eventId"`
	Selections     []Selection         `json:"selections"`
	Customer       models.CustomerInfo `json:"customer"`
	OfflinePricing bool                `json:"offlinePricing"`
	Total          decimal.Decimal     `json:"total"`
	Staged         *Staged             `json:"staged,omitempty"`
}

type Builder struct {
	event          *models.EventDetails
	selections     []Selection
	customer       models.CustomerInfo
	offlinePricing bool
	staged         *Staged
}

func NewBuilder(event *models.EventDetails) *Builder {
	b := &Builder{event: event}
	b.Reset()
	return b
}

// Reset returns the draft to its empty initial state built from the catalog.
func (b *Builder) Reset() {
	b.selections = selectionsFrom(b.event)
	b.customer = models.CustomerInfo{}
	b.offlinePricing = false
	b.staged = nil
}

func selectionsFrom(event *models.EventDetails) []Selection {
	if event == nil {
		return nil
	}
	out := make([]Selection, 0, len(event.Tickets))
	for _, t := range event.Tickets {
		s := Selection{
			TicketTypeID: t.ID,
			Title:        t.Title,
			Price:        decimal.Zero,
			OfflinePrice: t.OfflinePrice,
		}
		if t.Price.Valid {
			s.Price = t.Price.Decimal
		}
		if t.SeatsLeft == nil {
			s.Unbounded = true
		} else if *t.SeatsLeft > 0 {
			s.MaxQuantity = *t.SeatsLeft
		}
		out = append(out, s)
	}
	return out
}

// Rebase moves the draft onto a fresher catalog: seat limits, prices and
// titles come from event, chosen quantities survive clamped to the new
// limits, and metadata edits applied through ApplyStaged are kept.
func (b *Builder) Rebase(event *models.EventDetails) {
	prev := make(map[string]Selection, len(b.selections))
	for _, s := range b.selections {
		prev[s.TicketTypeID] = s
	}
	b.event = event
	b.selections = selectionsFrom(event)
	for i := range b.selections {
		old, ok := prev[b.selections[i].TicketTypeID]
		if !ok {
			continue
		}
		if old.edited {
			b.selections[i].Title = old.Title
			b.selections[i].OfflinePrice = old.OfflinePrice
			b.selections[i].edited = true
		}
		b.selections[i].Quantity = clamp(old.Quantity, b.selections[i])
	}
	if b.staged != nil {
		if _, ok := b.find(b.staged.TicketTypeID); !ok {
			b.staged = nil
		}
	}
}

func clamp(qty int, s Selection) int {
	if qty < 0 {
		return 0
	}
	if !s.Unbounded && qty > s.MaxQuantity {
		return s.MaxQuantity
	}
	return qty
}

func (b *Builder) find(ticketTypeID string) (int, bool) {
	for i, s := range b.selections {
		if s.TicketTypeID == ticketTypeID {
			return i, true
		}
	}
	return -1, false
}

func (b *Builder) selection(ticketTypeID string) (*Selection, error) {
	i, ok := b.find(ticketTypeID)
	if !ok {
		return nil, status.NewNotFoundError("ticket", ticketTypeID)
	}
	return &b.selections[i], nil
}

// Increase adds one ticket unless the seat limit is reached.
func (b *Builder) Increase(ticketTypeID string) (int, error) {
	s, err := b.selection(ticketTypeID)
	if err != nil {
		return 0, err
	}
	if s.fits(s.Quantity + 1) {
		s.Quantity++
	}
	return s.Quantity, nil
}

// Decrease removes one ticket unless the quantity is already zero.
func (b *Builder) Decrease(ticketTypeID string) (int, error) {
	s, err := b.selection(ticketTypeID)
	if err != nil {
		return 0, err
	}
	if s.Quantity > 0 {
		s.Quantity--
	}
	return s.Quantity, nil
}

// SetQuantity sets an exact quantity, rejecting values outside 0..max.
func (b *Builder) SetQuantity(ticketTypeID string, qty int) error {
	s, err := b.selection(ticketTypeID)
	if err != nil {
		return err
	}
	if !s.fits(qty) {
		return status.NewValidationError("quantity out of bounds for "+s.Title, "quantity")
	}
	s.Quantity = qty
	return nil
}

func (b *Builder) SetCustomer(c models.CustomerInfo) {
	b.customer = models.CustomerInfo{
		Name:  strings.TrimSpace(c.Name),
		Email: strings.TrimSpace(c.Email),
		Phone: strings.TrimSpace(c.Phone),
	}
}

func (b *Builder) SetOfflinePricing(on bool) {
	b.offlinePricing = on
}

// Total sums quantity times unit price over the draft.
func (b *Builder) Total() decimal.Decimal {
	total := decimal.Zero
	for _, s := range b.selections {
		total = total.Add(s.UnitPrice(b.offlinePricing).Mul(decimal.NewFromInt(int64(s.Quantity))))
	}
	return total
}

// Stage copies a ticket's title and offline price into the staging area,
// replacing anything staged before.
func (b *Builder) Stage(ticketTypeID string) (Staged, error) {
	s, err := b.selection(ticketTypeID)
	if err != nil {
		return Staged{}, err
	}
	b.staged = &Staged{TicketTypeID: s.TicketTypeID, Title: s.Title, OfflinePrice: s.OfflinePrice}
	return *b.staged, nil
}

// EditStaged changes the staged copy only.
func (b *Builder) EditStaged(title string, offlinePrice decimal.NullDecimal) (Staged, error) {
	if b.staged == nil {
		return Staged{}, status.ErrNoStagedTicket
	}
	if title = strings.TrimSpace(title); title == "" {
		return Staged{}, status.NewValidationError("ticket title is required", "title")
	}
	if offlinePrice.Valid && offlinePrice.Decimal.IsNegative() {
		return Staged{}, status.NewValidationError("offline price cannot be negative", "offlinePrice")
	}
	b.staged.Title = title
	b.staged.OfflinePrice = offlinePrice
	return *b.staged, nil
}

// ApplyStaged commits the staged metadata to the draft and clears staging.
func (b *Builder) ApplyStaged() (Selection, error) {
	if b.staged == nil {
		return Selection{}, status.ErrNoStagedTicket
	}
	s, err := b.selection(b.staged.TicketTypeID)
	if err != nil {
		b.staged = nil
		return Selection{}, err
	}
	s.Title = b.staged.Title
	s.OfflinePrice = b.staged.OfflinePrice
	s.edited = true
	b.staged = nil
	return *s, nil
}

func (b *Builder) DiscardStaged() {
	b.staged = nil
}

func (b *Builder) Draft() Draft {
	d := Draft{
		Selections:     append([]Selection(nil), b.selections...),
		Customer:       b.customer,
		OfflinePricing: b.offlinePricing,
		Total:          b.Total(),
	}
	if b.event != nil {
		d.EventID = b.event.ID
	}
	if b.staged != nil {
		st := *b.staged
		d.Staged = &st
	}
	return d
}

// Build validates the draft and produces the request for the check-in
// service. Every missing field is reported at once.
func (b *Builder) Build() (models.OfflineBookingRequest, error) {
	req := models.OfflineBookingRequest{
		CustomerInfo:     b.customer,
		IsOfflinePricing: b.offlinePricing,
	}
	if b.event != nil {
		req.EventID = b.event.ID
	}

	var missing []string
	for _, s := range b.selections {
		if s.Quantity <= 0 {
			continue
		}
		if !s.fits(s.Quantity) {
			return models.OfflineBookingRequest{}, status.NewValidationError("quantity exceeds seats left for "+s.Title, "quantity")
		}
		req.Tickets = append(req.Tickets, models.BookingLine{
			TicketID: s.TicketTypeID,
			Title:    s.Title,
			Price:    s.UnitPrice(b.offlinePricing),
			Quantity: s.Quantity,
		})
	}
	if len(req.Tickets) == 0 {
		missing = append(missing, "tickets")
	}
	if b.customer.Name == "" {
		missing = append(missing, "name")
	}
	if b.customer.Email == "" {
		missing = append(missing, "email")
	}
	if len(missing) > 0 {
		return models.OfflineBookingRequest{}, status.NewValidationError("booking is incomplete", missing...)
	}
	return req, nil
}
