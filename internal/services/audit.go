package services

import (
	"context"
	"fmt"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
)

const AuditCollection = "console_audit"

// PocketBaseAudit stores console actions in the console_audit collection.
type PocketBaseAudit struct {
	app core.App
}

func NewPocketBaseAudit(app core.App) *PocketBaseAudit {
	return &PocketBaseAudit{app: app}
}

func (a *PocketBaseAudit) Record(ctx context.Context, e AuditEntry) error {
	collection, err := a.app.FindCachedCollectionByNameOrId(AuditCollection)
	if err != nil {
		return fmt.Errorf("audit collection: %w", err)
	}

	record := core.NewRecord(collection)
	record.Set("event", e.EventID)
	record.Set("action", e.Action)
	record.Set("actor", e.Actor)
	record.Set("transaction_id", e.TransactionID)
	record.Set("ticket_id", e.TicketID)
	record.Set("quantity", e.Quantity)
	record.Set("detail", e.Detail)

	if err := a.app.SaveWithContext(ctx, record); err != nil {
		return fmt.Errorf("save audit entry: %w", err)
	}
	return nil
}

type auditRow struct {
	ID            string         `db:"id"`
	EventID       string         `db:"event"`
	Action        string         `db:"action"`
	Actor         string         `db:"actor"`
	TransactionID string         `db:"transaction_id"`
	TicketID      string         `db:"ticket_id"`
	Quantity      float64        `db:"quantity"`
	Detail        string         `db:"detail"`
	Created       types.DateTime `db:"created"`
}

func (r auditRow) entry() AuditEntry {
	return AuditEntry{
		ID:            r.ID,
		EventID:       r.EventID,
		Action:        r.Action,
		Actor:         r.Actor,
		TransactionID: r.TransactionID,
		TicketID:      r.TicketID,
		Quantity:      int(r.Quantity),
		Detail:        r.Detail,
		Created:       r.Created.Time(),
	}
}

// Recent lists the newest entries of an event first.
func (a *PocketBaseAudit) Recent(ctx context.Context, eventID string, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows := []auditRow{}
	err := a.app.DB().
		Select("id", "event", "action", "actor", "transaction_id", "ticket_id", "quantity", "detail", "created").
		From(AuditCollection).
		Where(dbx.HashExp{"event": eventID}).
		OrderBy("created DESC").
		Limit(int64(limit)).
		WithContext(ctx).
		All(&rows)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}

	entries := make([]AuditEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, r.entry())
	}
	return entries, nil
}
