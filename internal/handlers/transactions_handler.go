package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

// Transactions returns the reconciliation report under the query filter.
func (h *ConsoleHandler) Transactions(e *core.RequestEvent) error {
	v, err := h.view(e)
	if err != nil {
		return err
	}

	report, err := v.Report(queryFilter(e))
	if err != nil {
		return h.apiError(err)
	}
	return e.JSON(http.StatusOK, report)
}

// Refresh reloads the event and its transactions from upstream.
func (h *ConsoleHandler) Refresh(e *core.RequestEvent) error {
	eventID := e.Request.PathValue("eventId")
	if eventID == "" {
		return apis.NewBadRequestError("Missing event id", nil)
	}

	v := h.registry.Get(eventID)
	if err := v.Refresh(e.Request.Context()); err != nil {
		return h.apiError(err)
	}

	report, err := v.Report(queryFilter(e))
	if err != nil {
		return h.apiError(err)
	}
	return e.JSON(http.StatusOK, report)
}

func (h *ConsoleHandler) NextPage(e *core.RequestEvent) error {
	return h.turnPage(e, true)
}

func (h *ConsoleHandler) PreviousPage(e *core.RequestEvent) error {
	return h.turnPage(e, false)
}

func (h *ConsoleHandler) turnPage(e *core.RequestEvent, forward bool) error {
	v, err := h.view(e)
	if err != nil {
		return err
	}

	title := e.Request.PathValue("title")
	turn := v.PreviousPage
	if forward {
		turn = v.NextPage
	}

	report, err := turn(title)
	if err != nil {
		return h.apiError(err)
	}
	return e.JSON(http.StatusOK, report)
}

// OfflineBookings lists the event's offline bookings straight from upstream.
func (h *ConsoleHandler) OfflineBookings(e *core.RequestEvent) error {
	v, err := h.view(e)
	if err != nil {
		return err
	}

	bookings, err := v.OfflineBookings(e.Request.Context())
	if err != nil {
		return h.apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{
		"items": bookings,
		"total": len(bookings),
	})
}

func (h *ConsoleHandler) AuditTrail(e *core.RequestEvent) error {
	v, err := h.view(e)
	if err != nil {
		return err
	}

	entries, err := v.AuditTrail(e.Request.Context(), queryInt(e, "limit", 50))
	if err != nil {
		return h.apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"items": entries})
}

// DropView forgets the event's loaded ledger and booking draft.
func (h *ConsoleHandler) DropView(e *core.RequestEvent) error {
	eventID := e.Request.PathValue("eventId")
	if !h.registry.Drop(eventID) {
		return apis.NewNotFoundError("Event view is not loaded", nil)
	}
	return e.NoContent(http.StatusNoContent)
}
