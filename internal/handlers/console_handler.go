package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/hook"

	"ticket-console/internal/ledger"
	"ticket-console/internal/services"
	"ticket-console/internal/status"
)

// ConsoleHandler serves the admin console routes of one or more events.
// Every route resolves its event view from the {eventId} path value.
type ConsoleHandler struct {
	registry        *services.ViewRegistry
	adminCollection string
	logger          *slog.Logger
}

func NewConsoleHandler(registry *services.ViewRegistry, adminCollection string, logger *slog.Logger) *ConsoleHandler {
	if adminCollection == "" {
		adminCollection = "admins"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ConsoleHandler{
		registry:        registry,
		adminCollection: adminCollection,
		logger:          logger,
	}
}

// RegisterRoutes binds the console routes under /api/admin/events/{eventId}.
// Extra middlewares run after the admin check.
func (h *ConsoleHandler) RegisterRoutes(se *core.ServeEvent, middlewares ...*hook.Handler[*core.RequestEvent]) {
	g := se.Router.Group("/api/admin/events/{eventId}")
	g.Bind(h.RequireAdmin())
	g.Bind(middlewares...)

	g.GET("/transactions", h.Transactions)
	g.POST("/refresh", h.Refresh)
	g.POST("/pages/{title}/next", h.NextPage)
	g.POST("/pages/{title}/previous", h.PreviousPage)
	g.GET("/transactions/{transactionId}/checkins", h.TransactionCheckIns)
	g.GET("/transactions/{transactionId}/tickets/{ticketId}/limits", h.CheckInLimits)

	g.POST("/checkins", h.CheckIn)
	g.DELETE("/checkins/{checkInId}", h.UndoCheckIn)

	g.GET("/booking", h.Draft)
	g.POST("/booking/tickets/{ticketId}/increase", h.IncreaseTicket)
	g.POST("/booking/tickets/{ticketId}/decrease", h.DecreaseTicket)
	g.PUT("/booking/tickets/{ticketId}", h.SetTicketQuantity)
	g.PUT("/booking/customer", h.SetCustomer)
	g.PUT("/booking/pricing", h.SetPricing)
	g.POST("/booking/staging/apply", h.ApplyStaged)
	g.POST("/booking/staging/{ticketId}", h.StageTicket)
	g.PUT("/booking/staging", h.EditStaged)
	g.DELETE("/booking/staging", h.DiscardStaged)
	g.POST("/booking/submit", h.SubmitBooking)

	g.GET("/offline-bookings", h.OfflineBookings)
	g.GET("/audit", h.AuditTrail)
	g.DELETE("", h.DropView)
}

// RequireAdmin rejects requests not authenticated as a console admin.
func (h *ConsoleHandler) RequireAdmin() *hook.Handler[*core.RequestEvent] {
	return &hook.Handler[*core.RequestEvent]{
		Id: "consoleRequireAdmin",
		Func: func(e *core.RequestEvent) error {
			if e.Auth == nil || e.Auth.Collection().Name != h.adminCollection {
				return apis.NewUnauthorizedError("Admin access required", nil)
			}
			return e.Next()
		},
	}
}

// view returns the event's view, loading it on first use.
func (h *ConsoleHandler) view(e *core.RequestEvent) (*services.EventView, error) {
	eventID := e.Request.PathValue("eventId")
	if eventID == "" {
		return nil, apis.NewBadRequestError("Missing event id", nil)
	}

	v := h.registry.Get(eventID)
	if err := v.EnsureLoaded(e.Request.Context()); err != nil {
		return nil, h.apiError(err)
	}
	return v, nil
}

func actorID(e *core.RequestEvent) string {
	if e.Auth == nil {
		return ""
	}
	return e.Auth.Id
}

func queryFilter(e *core.RequestEvent) ledger.Filter {
	q := e.Request.URL.Query()
	return ledger.Filter{
		Status:     q.Get("status"),
		TicketType: q.Get("ticketType"),
		Search:     q.Get("search"),
	}
}

func queryInt(e *core.RequestEvent, key string, fallback int) int {
	raw := e.Request.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

// apiError maps console errors onto PocketBase API errors.
func (h *ConsoleHandler) apiError(err error) error {
	var (
		validationErr *status.ValidationError
		capacityErr   *status.CapacityError
		notFoundErr   *status.NotFoundError
		transportErr  *status.TransportError
	)

	switch {
	case errors.As(err, &validationErr):
		fields := validation.Errors{}
		for _, f := range validationErr.Fields {
			fields[f] = validation.NewError("validation_invalid_value", validationErr.Message)
		}
		return apis.NewBadRequestError(validationErr.Message, fields)

	case errors.As(err, &capacityErr):
		return apis.NewApiError(http.StatusConflict, capacityErr.Error(), nil)

	case errors.As(err, &notFoundErr):
		return apis.NewNotFoundError(notFoundErr.Error(), nil)

	case errors.Is(err, status.ErrNoStagedTicket):
		return apis.NewBadRequestError("No ticket is staged for editing", nil)

	case errors.Is(err, status.ErrCheckInInProgress),
		errors.Is(err, status.ErrBookingInProgress),
		errors.Is(err, status.ErrStaleLoad),
		errors.Is(err, status.ErrViewNotLoaded):
		return apis.NewApiError(http.StatusConflict, err.Error(), nil)

	case errors.As(err, &transportErr):
		h.logger.Warn("upstream request failed", "op", transportErr.Op, "status", transportErr.StatusCode, "error", err)
		msg := transportErr.Message
		if msg == "" {
			msg = "Upstream service unavailable"
		}
		return apis.NewApiError(http.StatusBadGateway, msg, nil)
	}

	h.logger.Error("console request failed", "error", err)
	return apis.NewInternalServerError("Something went wrong", err)
}
