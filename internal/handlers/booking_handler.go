package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"

	"ticket-console/internal/booking"
	"ticket-console/models"
)

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

type pricingRequest struct {
	Offline bool `json:"offline"`
}

type stagedEditRequest struct {
	Title        string              `json:"title"`
	OfflinePrice decimal.NullDecimal `json:"offlinePrice"`
}

// draftOp runs one booking draft operation and answers with the draft.
func (h *ConsoleHandler) draftOp(e *core.RequestEvent, op func(v draftView) (booking.Draft, error)) error {
	v, err := h.view(e)
	if err != nil {
		return err
	}

	draft, err := op(v)
	if err != nil {
		return h.apiError(err)
	}
	return e.JSON(http.StatusOK, draft)
}

// draftView is the slice of the event view the booking routes drive.
type draftView interface {
	Draft() (booking.Draft, error)
	IncreaseTicket(ticketTypeID string) (booking.Draft, error)
	DecreaseTicket(ticketTypeID string) (booking.Draft, error)
	SetTicketQuantity(ticketTypeID string, qty int) (booking.Draft, error)
	SetCustomer(c models.CustomerInfo) (booking.Draft, error)
	SetOfflinePricing(on bool) (booking.Draft, error)
	StageTicket(ticketTypeID string) (booking.Draft, error)
	EditStaged(title string, offlinePrice decimal.NullDecimal) (booking.Draft, error)
	ApplyStaged() (booking.Draft, error)
	DiscardStaged() (booking.Draft, error)
}

func (h *ConsoleHandler) Draft(e *core.RequestEvent) error {
	return h.draftOp(e, func(v draftView) (booking.Draft, error) {
		return v.Draft()
	})
}

func (h *ConsoleHandler) IncreaseTicket(e *core.RequestEvent) error {
	ticketID := e.Request.PathValue("ticketId")
	return h.draftOp(e, func(v draftView) (booking.Draft, error) {
		return v.IncreaseTicket(ticketID)
	})
}

func (h *ConsoleHandler) DecreaseTicket(e *core.RequestEvent) error {
	ticketID := e.Request.PathValue("ticketId")
	return h.draftOp(e, func(v draftView) (booking.Draft, error) {
		return v.DecreaseTicket(ticketID)
	})
}

func (h *ConsoleHandler) SetTicketQuantity(e *core.RequestEvent) error {
	var req quantityRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	ticketID := e.Request.PathValue("ticketId")
	return h.draftOp(e, func(v draftView) (booking.Draft, error) {
		return v.SetTicketQuantity(ticketID, req.Quantity)
	})
}

func (h *ConsoleHandler) SetCustomer(e *core.RequestEvent) error {
	var req models.CustomerInfo
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	return h.draftOp(e, func(v draftView) (booking.Draft, error) {
		return v.SetCustomer(req)
	})
}

func (h *ConsoleHandler) SetPricing(e *core.RequestEvent) error {
	var req pricingRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	return h.draftOp(e, func(v draftView) (booking.Draft, error) {
		return v.SetOfflinePricing(req.Offline)
	})
}

func (h *ConsoleHandler) StageTicket(e *core.RequestEvent) error {
	ticketID := e.Request.PathValue("ticketId")
	return h.draftOp(e, func(v draftView) (booking.Draft, error) {
		return v.StageTicket(ticketID)
	})
}

func (h *ConsoleHandler) EditStaged(e *core.RequestEvent) error {
	var req stagedEditRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	return h.draftOp(e, func(v draftView) (booking.Draft, error) {
		return v.EditStaged(req.Title, req.OfflinePrice)
	})
}

func (h *ConsoleHandler) ApplyStaged(e *core.RequestEvent) error {
	return h.draftOp(e, func(v draftView) (booking.Draft, error) {
		return v.ApplyStaged()
	})
}

func (h *ConsoleHandler) DiscardStaged(e *core.RequestEvent) error {
	return h.draftOp(e, func(v draftView) (booking.Draft, error) {
		return v.DiscardStaged()
	})
}

// SubmitBooking sends the draft as an offline booking. The response holds
// the created transaction when the service returned one.
func (h *ConsoleHandler) SubmitBooking(e *core.RequestEvent) error {
	v, err := h.view(e)
	if err != nil {
		return err
	}

	tx, err := v.SubmitBooking(e.Request.Context(), actorID(e))
	if err != nil {
		return h.apiError(err)
	}
	return e.JSON(http.StatusCreated, map[string]any{
		"success":     true,
		"transaction": tx,
	})
}
