// Package services holds the per-event console state and its collaborators.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"ticket-console/internal/booking"
	"ticket-console/internal/ledger"
	"ticket-console/internal/status"
	"ticket-console/models"
	"ticket-console/monitoring"
)

type Deps struct {
	Catalog      Catalog
	Transactions TransactionProvider
	CheckIns     CheckInGateway
	Locker       PairLocker
	Notifier     Notifier
	Audit        AuditRecorder
	Logger       *slog.Logger
	PageSize     int
}

// EventView is the console state of one event: the loaded ledger, paging,
// the last filter and the offline booking draft. Mutations reach the ledger
// only after the backend confirms them.
type EventView struct {
	eventID string
	deps    Deps
	logger  *slog.Logger

	mu         sync.Mutex
	snapshot   *ledger.Snapshot
	pager      *ledger.Pager
	filter     ledger.Filter
	draft      *booking.Builder
	generation uint64
	loadedAt   time.Time
	inFlight   map[ledger.Pair]struct{}
	submitting bool
}

func NewEventView(eventID string, deps Deps) *EventView {
	if deps.Notifier == nil {
		deps.Notifier = NoopNotifier{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &EventView{
		eventID:  eventID,
		deps:     deps,
		logger:   deps.Logger.With(slog.String("event_id", eventID)),
		pager:    ledger.NewPager(deps.PageSize),
		filter:   ledger.Filter{}.Normalized(),
		inFlight: make(map[ledger.Pair]struct{}),
	}
}

func (v *EventView) EventID() string {
	return v.eventID
}

// Refresh reloads the catalog and the transactions. When a newer refresh
// starts before this one finishes, this one is discarded with ErrStaleLoad.
// A failed load leaves the previous state in place.
func (v *EventView) Refresh(ctx context.Context) error {
	v.mu.Lock()
	v.generation++
	gen := v.generation
	v.mu.Unlock()

	event, err := v.deps.Catalog.Event(ctx, v.eventID)
	if err != nil {
		v.logger.Error("catalog load failed", slog.Any("error", err))
		return fmt.Errorf("load catalog: %w", err)
	}
	txs, err := v.deps.Transactions.TransactionsByEvent(ctx, v.eventID)
	if err != nil {
		v.logger.Error("transactions load failed", slog.Any("error", err))
		return fmt.Errorf("load transactions: %w", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.generation {
		v.logger.Info("discarding superseded load", slog.Uint64("generation", gen))
		return status.ErrStaleLoad
	}

	v.snapshot = ledger.NewSnapshot(event, txs)
	if v.draft == nil {
		v.draft = booking.NewBuilder(event)
	} else {
		v.draft.Rebase(event)
	}
	v.loadedAt = time.Now()
	v.logger.Info("event view loaded",
		slog.Int("transactions", v.snapshot.Ledger.Len()), slog.Int("ticket_types", len(event.Tickets)))
	return nil
}

// EnsureLoaded refreshes a view that has never been loaded.
func (v *EventView) EnsureLoaded(ctx context.Context) error {
	v.mu.Lock()
	loaded := v.snapshot != nil
	v.mu.Unlock()
	if loaded {
		return nil
	}
	err := v.Refresh(ctx)
	if errors.Is(err, status.ErrStaleLoad) {
		return nil
	}
	return err
}

type GroupPage struct {
	ledger.Group
	Page         int `json:"page"`
	TotalPages   int `json:"totalPages"`
	TotalEntries int `json:"totalEntries"`
}

// Report is a reconciliation view with each group cut to its current page.
type Report struct {
	EventID        string         `json:"eventId"`
	EventTitle     string         `json:"eventTitle"`
	Filter         ledger.Filter  `json:"filter"`
	TicketTypes    []string       `json:"ticketTypes"`
	Groups         []GroupPage    `json:"groups"`
	TotalSold      int            `json:"totalSold"`
	TotalCheckedIn int            `json:"totalCheckedIn"`
	Revenue        ledger.Revenue `json:"revenue"`
	LoadedAt       time.Time      `json:"loadedAt"`
}

// Report reconciles under f. A filter different from the previous one sends
// every group back to page 1.
func (v *EventView) Report(f ledger.Filter) (Report, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.snapshot == nil {
		return Report{}, status.ErrViewNotLoaded
	}
	if f = f.Normalized(); f != v.filter {
		v.pager.Reset()
		v.filter = f
	}
	return v.reportLocked(), nil
}

func (v *EventView) reconcileLocked() ledger.View {
	start := time.Now()
	view := ledger.Reconcile(v.snapshot, v.filter)
	monitoring.ObserveReconcile(time.Since(start))
	return view
}

func (v *EventView) reportLocked() Report {
	view := v.reconcileLocked()
	r := Report{
		EventID:        v.eventID,
		Filter:         view.Filter,
		TicketTypes:    view.TicketTypes,
		Groups:         make([]GroupPage, 0, len(view.Groups)),
		TotalSold:      view.TotalSold,
		TotalCheckedIn: view.TotalCheckedIn,
		Revenue:        view.Revenue,
		LoadedAt:       v.loadedAt,
	}
	if v.snapshot.Event != nil {
		r.EventTitle = v.snapshot.Event.Title
	}
	for _, g := range view.Groups {
		count := len(g.Entries)
		g.Entries = v.pager.Page(g.Title, g.Entries)
		r.Groups = append(r.Groups, GroupPage{
			Group:        g,
			Page:         v.pager.Current(g.Title),
			TotalPages:   v.pager.TotalPages(count),
			TotalEntries: count,
		})
	}
	return r
}

func (v *EventView) NextPage(title string) (Report, error) {
	return v.turnPage(title, true)
}

func (v *EventView) PreviousPage(title string) (Report, error) {
	return v.turnPage(title, false)
}

func (v *EventView) turnPage(title string, forward bool) (Report, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.snapshot == nil {
		return Report{}, status.ErrViewNotLoaded
	}
	g, ok := v.reconcileLocked().Group(title)
	if !ok {
		return Report{}, status.NewNotFoundError("ticket group", title)
	}
	if forward {
		v.pager.Next(title, len(g.Entries))
	} else {
		v.pager.Previous(title)
	}
	return v.reportLocked(), nil
}

type CheckInInput struct {
	TransactionID string `json:"transactionId"`
	TicketTypeID  string `json:"ticketId"`
	Quantity      int    `json:"quantity"`
}

// CheckIn redeems tickets of one pair. The request is validated against the
// loaded ledger, then again against the check-in service's current records,
// and applied locally only once the service confirms it.
func (v *EventView) CheckIn(ctx context.Context, in CheckInInput, actorID string) (models.CheckIn, error) {
	pair := ledger.Pair{TransactionID: in.TransactionID, TicketTypeID: in.TicketTypeID}

	v.mu.Lock()
	if v.snapshot == nil {
		v.mu.Unlock()
		return models.CheckIn{}, status.ErrViewNotLoaded
	}
	if err := v.snapshot.Ledger.ValidateCheckIn(pair, in.Quantity); err != nil {
		v.mu.Unlock()
		monitoring.TrackOperation(ActionCheckIn, v.eventID, monitoring.StatusRejected)
		return models.CheckIn{}, err
	}
	if _, busy := v.inFlight[pair]; busy {
		v.mu.Unlock()
		return models.CheckIn{}, status.ErrCheckInInProgress
	}
	v.inFlight[pair] = struct{}{}
	v.mu.Unlock()

	defer func() {
		v.mu.Lock()
		delete(v.inFlight, pair)
		v.mu.Unlock()
	}()

	if v.deps.Locker != nil {
		release, err := v.deps.Locker.Acquire(ctx, pair)
		switch {
		case errors.Is(err, status.ErrCheckInInProgress):
			return models.CheckIn{}, err
		case err != nil:
			// Redis is down; the in-process guard still holds.
			v.logger.Warn("pair lock unavailable", slog.Any("error", err))
		default:
			defer release()
		}
	}

	if err := v.revalidate(ctx, pair, in.Quantity); err != nil {
		monitoring.TrackOperation(ActionCheckIn, v.eventID, monitoring.StatusRejected)
		return models.CheckIn{}, err
	}

	ci, err := v.deps.CheckIns.CheckIn(ctx, models.CheckInRequest{
		TransactionID: in.TransactionID,
		TicketID:      in.TicketTypeID,
		Quantity:      in.Quantity,
		OrganizerID:   actorID,
	})
	if err != nil {
		monitoring.TrackOperation(ActionCheckIn, v.eventID, monitoring.StatusFailure)
		v.logger.Error("check-in failed", slog.String("transaction_id", in.TransactionID), slog.Any("error", err))
		return models.CheckIn{}, err
	}

	v.mu.Lock()
	if v.snapshot != nil && !v.snapshot.Ledger.HasCheckIn(ci.ID) {
		if err := v.snapshot.Ledger.ApplyCheckIn(ci); err != nil {
			// The service accepted it; the next refresh brings the ledger back in line.
			v.logger.Warn("confirmed check-in does not fit the local ledger",
				slog.String("check_in_id", ci.ID), slog.Any("error", err))
		}
	}
	v.mu.Unlock()

	monitoring.TrackOperation(ActionCheckIn, v.eventID, monitoring.StatusSuccess)
	v.logger.Info("checked in",
		slog.String("transaction_id", ci.TransactionID), slog.String("ticket_id", ci.TicketTypeID),
		slog.Int("quantity", ci.Qty()), slog.String("actor", actorID))

	v.record(ctx, AuditEntry{
		Action: ActionCheckIn, Actor: actorID, TransactionID: ci.TransactionID,
		TicketID: ci.TicketTypeID, Quantity: ci.Qty(), Detail: ci.ID,
	})
	v.deps.Notifier.Notify(ctx, v.eventID, Notification{
		Type: ActionCheckIn, TransactionID: ci.TransactionID, TicketID: ci.TicketTypeID,
		CheckInID: ci.ID, Quantity: ci.Qty(), Actor: actorID,
	})
	return ci, nil
}

// revalidate pulls the transaction's check-ins from the service into the
// ledger and validates again. When that read fails the loaded state is used.
func (v *EventView) revalidate(ctx context.Context, pair ledger.Pair, qty int) error {
	cis, err := v.deps.CheckIns.CheckInsForTransaction(ctx, pair.TransactionID)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.snapshot == nil {
		return status.ErrViewNotLoaded
	}
	if err != nil {
		v.logger.Warn("check-in re-read failed, using loaded ledger",
			slog.String("transaction_id", pair.TransactionID), slog.Any("error", err))
	} else {
		v.snapshot.Ledger.ReplaceCheckIns(pair.TransactionID, cis)
	}
	return v.snapshot.Ledger.ValidateCheckIn(pair, qty)
}

// UndoCheckIn always asks the service to delete the record. Locally exactly
// the record with that id goes away; an id the ledger does not hold is a no-op.
func (v *EventView) UndoCheckIn(ctx context.Context, checkInID, actorID string) error {
	if err := v.deps.CheckIns.UndoCheckIn(ctx, checkInID); err != nil {
		monitoring.TrackOperation(ActionUndoCheckIn, v.eventID, monitoring.StatusFailure)
		v.logger.Error("undo check-in failed", slog.String("check_in_id", checkInID), slog.Any("error", err))
		return err
	}

	var removed models.CheckIn
	var ok bool
	v.mu.Lock()
	if v.snapshot != nil {
		removed, ok = v.snapshot.Ledger.RemoveCheckIn(checkInID)
	}
	v.mu.Unlock()
	if !ok {
		v.logger.Debug("undone check-in was not in the loaded ledger", slog.String("check_in_id", checkInID))
	}

	monitoring.TrackOperation(ActionUndoCheckIn, v.eventID, monitoring.StatusSuccess)
	v.logger.Info("check-in undone", slog.String("check_in_id", checkInID), slog.String("actor", actorID))

	v.record(ctx, AuditEntry{
		Action: ActionUndoCheckIn, Actor: actorID, TransactionID: removed.TransactionID,
		TicketID: removed.TicketTypeID, Quantity: removed.Qty(), Detail: checkInID,
	})
	v.deps.Notifier.Notify(ctx, v.eventID, Notification{
		Type: ActionUndoCheckIn, TransactionID: removed.TransactionID, TicketID: removed.TicketTypeID,
		CheckInID: checkInID, Actor: actorID,
	})
	return nil
}

// CheckIns reads a transaction's check-ins from the service and brings the
// loaded ledger up to date with them.
func (v *EventView) CheckIns(ctx context.Context, transactionID string) ([]models.CheckIn, error) {
	cis, err := v.deps.CheckIns.CheckInsForTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	v.mu.Lock()
	if v.snapshot != nil {
		v.snapshot.Ledger.ReplaceCheckIns(transactionID, cis)
	}
	v.mu.Unlock()
	return cis, nil
}

// CheckInLimits is what a check-in form needs for one pair.
type CheckInLimits struct {
	Sold      int `json:"sold"`
	CheckedIn int `json:"checkedIn"`
	Remaining int `json:"remaining"`
	Suggested int `json:"suggested"`
}

func (v *EventView) Limits(pair ledger.Pair, requested int) (CheckInLimits, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.snapshot == nil {
		return CheckInLimits{}, status.ErrViewNotLoaded
	}
	left, err := v.snapshot.Ledger.Remaining(pair)
	if err != nil {
		return CheckInLimits{}, err
	}
	sold, _ := v.snapshot.Ledger.Sold(pair)
	return CheckInLimits{
		Sold:      sold,
		CheckedIn: v.snapshot.Ledger.CheckedIn(pair),
		Remaining: left,
		Suggested: ledger.ClampCheckInQuantity(requested, left),
	}, nil
}

func (v *EventView) withDraft(fn func(b *booking.Builder) error) (booking.Draft, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.draft == nil {
		return booking.Draft{}, status.ErrViewNotLoaded
	}
	if err := fn(v.draft); err != nil {
		return booking.Draft{}, err
	}
	return v.draft.Draft(), nil
}

func (v *EventView) Draft() (booking.Draft, error) {
	return v.withDraft(func(*booking.Builder) error { return nil })
}

func (v *EventView) IncreaseTicket(ticketTypeID string) (booking.Draft, error) {
	return v.withDraft(func(b *booking.Builder) error {
		_, err := b.Increase(ticketTypeID)
		return err
	})
}

func (v *EventView) DecreaseTicket(ticketTypeID string) (booking.Draft, error) {
	return v.withDraft(func(b *booking.Builder) error {
		_, err := b.Decrease(ticketTypeID)
		return err
	})
}

func (v *EventView) SetTicketQuantity(ticketTypeID string, qty int) (booking.Draft, error) {
	return v.withDraft(func(b *booking.Builder) error {
		return b.SetQuantity(ticketTypeID, qty)
	})
}

func (v *EventView) SetCustomer(c models.CustomerInfo) (booking.Draft, error) {
	return v.withDraft(func(b *booking.Builder) error {
		b.SetCustomer(c)
		return nil
	})
}

func (v *EventView) SetOfflinePricing(on bool) (booking.Draft, error) {
	return v.withDraft(func(b *booking.Builder) error {
		b.SetOfflinePricing(on)
		return nil
	})
}

func (v *EventView) StageTicket(ticketTypeID string) (booking.Draft, error) {
	return v.withDraft(func(b *booking.Builder) error {
		_, err := b.Stage(ticketTypeID)
		return err
	})
}

func (v *EventView) EditStaged(title string, offlinePrice decimal.NullDecimal) (booking.Draft, error) {
	return v.withDraft(func(b *booking.Builder) error {
		_, err := b.EditStaged(title, offlinePrice)
		return err
	})
}

func (v *EventView) ApplyStaged() (booking.Draft, error) {
	return v.withDraft(func(b *booking.Builder) error {
		_, err := b.ApplyStaged()
		return err
	})
}

func (v *EventView) DiscardStaged() (booking.Draft, error) {
	return v.withDraft(func(b *booking.Builder) error {
		b.DiscardStaged()
		return nil
	})
}

// SubmitBooking sends the draft to the check-in service. On confirmation
// the draft resets, the cached catalog is dropped and the view reloads so
// seat counts and the new transaction show up. A failed submission keeps
// the draft as it was.
func (v *EventView) SubmitBooking(ctx context.Context, actorID string) (*models.Transaction, error) {
	v.mu.Lock()
	if v.draft == nil {
		v.mu.Unlock()
		return nil, status.ErrViewNotLoaded
	}
	if v.submitting {
		v.mu.Unlock()
		return nil, status.ErrBookingInProgress
	}
	req, err := v.draft.Build()
	if err != nil {
		v.mu.Unlock()
		monitoring.TrackOperation(ActionBooking, v.eventID, monitoring.StatusRejected)
		return nil, err
	}
	v.submitting = true
	v.mu.Unlock()

	defer func() {
		v.mu.Lock()
		v.submitting = false
		v.mu.Unlock()
	}()

	tx, err := v.deps.CheckIns.CreateOfflineBooking(ctx, req)
	if err != nil {
		monitoring.TrackOperation(ActionBooking, v.eventID, monitoring.StatusFailure)
		v.logger.Error("offline booking failed", slog.Any("error", err))
		return nil, err
	}

	v.mu.Lock()
	v.draft.Reset()
	v.mu.Unlock()

	monitoring.TrackOperation(ActionBooking, v.eventID, monitoring.StatusSuccess)
	total := req.Total()
	v.logger.Info("offline booking created",
		slog.String("customer", req.CustomerInfo.Email), slog.String("total", total.String()),
		slog.String("actor", actorID))

	quantity := 0
	for _, l := range req.Tickets {
		quantity += l.Quantity
	}
	entry := AuditEntry{Action: ActionBooking, Actor: actorID, Quantity: quantity, Detail: req.CustomerInfo.Email + " " + total.String()}
	note := Notification{Type: ActionBooking, Quantity: quantity, Actor: actorID}
	if tx != nil {
		entry.TransactionID = tx.ID
		note.TransactionID = tx.ID
	}
	v.record(ctx, entry)
	v.deps.Notifier.Notify(ctx, v.eventID, note)

	if inv, ok := v.deps.Catalog.(CatalogInvalidator); ok {
		if err := inv.Invalidate(ctx, v.eventID); err != nil {
			v.logger.Warn("catalog invalidation failed", slog.Any("error", err))
		}
	}
	if err := v.Refresh(ctx); err != nil && !errors.Is(err, status.ErrStaleLoad) {
		v.logger.Warn("reload after booking failed", slog.Any("error", err))
	}
	return tx, nil
}

func (v *EventView) OfflineBookings(ctx context.Context) ([]models.Transaction, error) {
	return v.deps.CheckIns.OfflineBookings(ctx, v.eventID)
}

func (v *EventView) AuditTrail(ctx context.Context, limit int) ([]AuditEntry, error) {
	if v.deps.Audit == nil {
		return []AuditEntry{}, nil
	}
	return v.deps.Audit.Recent(ctx, v.eventID, limit)
}

func (v *EventView) record(ctx context.Context, e AuditEntry) {
	if v.deps.Audit == nil {
		return
	}
	e.EventID = v.eventID
	if err := v.deps.Audit.Record(ctx, e); err != nil {
		v.logger.Warn("audit record failed", slog.String("action", e.Action), slog.Any("error", err))
	}
}

// Stats summarises the loaded ledger per ticket type for the metrics monitor.
func (v *EventView) Stats() (monitoring.ViewStats, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.snapshot == nil {
		return monitoring.ViewStats{}, false
	}
	view := ledger.Reconcile(v.snapshot, ledger.Filter{})
	stats := monitoring.ViewStats{EventID: v.eventID}
	for _, g := range view.Groups {
		stats.Tickets = append(stats.Tickets, monitoring.TicketStats{
			Title:     g.Title,
			Sold:      g.Stats.Sold,
			Remaining: g.Stats.Remaining,
		})
	}
	return stats, true
}
