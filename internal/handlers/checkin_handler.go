package handlers

import (
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"ticket-console/internal/ledger"
	"ticket-console/internal/services"
)

func validateCheckIn(in *services.CheckInInput) error {
	return validation.ValidateStruct(in,
		validation.Field(&in.TransactionID, validation.Required),
		validation.Field(&in.TicketTypeID, validation.Required),
	)
}

// CheckIn redeems tickets of a transaction. Quantity bounds are checked by
// the view so the response carries the remaining count.
func (h *ConsoleHandler) CheckIn(e *core.RequestEvent) error {
	v, err := h.view(e)
	if err != nil {
		return err
	}

	var in services.CheckInInput
	if err := e.BindBody(&in); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if err := validateCheckIn(&in); err != nil {
		return apis.NewBadRequestError("Invalid check-in", err)
	}

	ci, err := v.CheckIn(e.Request.Context(), in, actorID(e))
	if err != nil {
		return h.apiError(err)
	}
	return e.JSON(http.StatusCreated, ci)
}

func (h *ConsoleHandler) UndoCheckIn(e *core.RequestEvent) error {
	v, err := h.view(e)
	if err != nil {
		return err
	}

	checkInID := e.Request.PathValue("checkInId")
	if checkInID == "" {
		return apis.NewBadRequestError("Missing check-in id", nil)
	}
	if err := v.UndoCheckIn(e.Request.Context(), checkInID, actorID(e)); err != nil {
		return h.apiError(err)
	}
	return e.NoContent(http.StatusNoContent)
}

// TransactionCheckIns re-reads one transaction's check-ins from the check-in
// service and returns them.
func (h *ConsoleHandler) TransactionCheckIns(e *core.RequestEvent) error {
	v, err := h.view(e)
	if err != nil {
		return err
	}

	cis, err := v.CheckIns(e.Request.Context(), e.Request.PathValue("transactionId"))
	if err != nil {
		return h.apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"items": cis})
}

// CheckInLimits reports the bounds a check-in form should enforce for one
// transaction and ticket type. The quantity query is clamped into them.
func (h *ConsoleHandler) CheckInLimits(e *core.RequestEvent) error {
	v, err := h.view(e)
	if err != nil {
		return err
	}

	pair := ledger.Pair{
		TransactionID: e.Request.PathValue("transactionId"),
		TicketTypeID:  e.Request.PathValue("ticketId"),
	}
	limits, err := v.Limits(pair, queryInt(e, "quantity", 1))
	if err != nil {
		return h.apiError(err)
	}
	return e.JSON(http.StatusOK, limits)
}
