// Package ledger holds one event's transaction and check-in ledgers and derives
// the reconciliation views from them. Everything here is synchronous and free
// of I/O; callers own locking.
package ledger

import (
	"ticket-console/internal/status"
	"ticket-console/models"
)

// Pair identifies the tickets of one type inside one transaction.
type Pair struct {
	TransactionID string
	TicketTypeID  string
}

type Ledger struct {
	transactions []models.Transaction
	byID         map[string]int
}

// New copies txs into a ledger. Lines without a ticket id get one from the
// catalog by title so that they can be checked in.
func New(txs []models.Transaction, catalog *models.EventDetails) *Ledger {
	l := &Ledger{
		transactions: make([]models.Transaction, 0, len(txs)),
		byID:         make(map[string]int, len(txs)),
	}
	for _, tx := range txs {
		tx = cloneTransaction(tx)
		for i := range tx.Lines {
			if tx.Lines[i].TicketTypeID != "" {
				continue
			}
			if t, ok := catalog.FindTicket("", tx.Lines[i].Title); ok {
				tx.Lines[i].TicketTypeID = t.ID
			}
		}
		if _, dup := l.byID[tx.ID]; dup {
			continue
		}
		l.byID[tx.ID] = len(l.transactions)
		l.transactions = append(l.transactions, tx)
	}
	return l
}

func cloneTransaction(tx models.Transaction) models.Transaction {
	tx.Lines = append([]models.TicketLine(nil), tx.Lines...)
	tx.CheckIns = append([]models.CheckIn(nil), tx.CheckIns...)
	return tx
}

// Transactions returns the ledger in load order. The slice is shared; do not
// mutate it.
func (l *Ledger) Transactions() []models.Transaction {
	return l.transactions
}

func (l *Ledger) Len() int {
	return len(l.transactions)
}

func (l *Ledger) Transaction(id string) (models.Transaction, bool) {
	i, ok := l.byID[id]
	if !ok {
		return models.Transaction{}, false
	}
	return l.transactions[i], true
}

// Sold is the quantity bought for p, summed over every matching line.
func (l *Ledger) Sold(p Pair) (int, bool) {
	tx, ok := l.Transaction(p.TransactionID)
	if !ok {
		return 0, false
	}
	return soldIn(tx, p.TicketTypeID)
}

func soldIn(tx models.Transaction, ticketTypeID string) (int, bool) {
	sold, found := 0, false
	for _, line := range tx.Lines {
		if line.TicketTypeID == ticketTypeID {
			sold += line.Qty()
			found = true
		}
	}
	return sold, found
}

func (l *Ledger) CheckedIn(p Pair) int {
	tx, ok := l.Transaction(p.TransactionID)
	if !ok {
		return 0
	}
	return checkedInFor(tx, p.TicketTypeID)
}

func checkedInFor(tx models.Transaction, ticketTypeID string) int {
	total := 0
	for _, ci := range tx.CheckIns {
		if ci.TicketTypeID == ticketTypeID {
			total += ci.Qty()
		}
	}
	return total
}

// Remaining is sold minus checked in for p, never negative.
func (l *Ledger) Remaining(p Pair) (int, error) {
	sold, ok := l.Sold(p)
	if !ok {
		return 0, notFound(l, p)
	}
	return remaining(sold, l.CheckedIn(p)), nil
}

func remaining(sold, checkedIn int) int {
	if checkedIn >= sold {
		return 0
	}
	return sold - checkedIn
}

func notFound(l *Ledger, p Pair) error {
	if _, ok := l.Transaction(p.TransactionID); !ok {
		return status.NewNotFoundError("transaction", p.TransactionID)
	}
	return status.NewNotFoundError("ticket", p.TicketTypeID)
}

// ValidateCheckIn checks that qty tickets of p may still be redeemed.
func (l *Ledger) ValidateCheckIn(p Pair, qty int) error {
	if qty < 1 {
		return status.NewValidationError("check-in quantity must be at least 1", "quantity")
	}
	left, err := l.Remaining(p)
	if err != nil {
		return err
	}
	if qty > left {
		return &status.CapacityError{
			TransactionID: p.TransactionID,
			TicketTypeID:  p.TicketTypeID,
			Requested:     qty,
			Remaining:     left,
		}
	}
	return nil
}

// ApplyCheckIn appends a confirmed check-in after re-checking the invariant
// that redeemed never exceeds sold.
func (l *Ledger) ApplyCheckIn(ci models.CheckIn) error {
	p := Pair{TransactionID: ci.TransactionID, TicketTypeID: ci.TicketTypeID}
	if err := l.ValidateCheckIn(p, ci.Qty()); err != nil {
		return err
	}
	i := l.byID[ci.TransactionID]
	l.transactions[i].CheckIns = append(l.transactions[i].CheckIns, ci)
	return nil
}

func (l *Ledger) HasCheckIn(id string) bool {
	for _, tx := range l.transactions {
		for _, ci := range tx.CheckIns {
			if ci.ID == id {
				return true
			}
		}
	}
	return false
}

// RemoveCheckIn deletes exactly one check-in by id. A missing id is a no-op.
func (l *Ledger) RemoveCheckIn(id string) (models.CheckIn, bool) {
	for ti := range l.transactions {
		cis := l.transactions[ti].CheckIns
		for ci := range cis {
			if cis[ci].ID != id {
				continue
			}
			removed := cis[ci]
			l.transactions[ti].CheckIns = append(cis[:ci:ci], cis[ci+1:]...)
			return removed, true
		}
	}
	return models.CheckIn{}, false
}

// ReplaceCheckIns swaps a transaction's check-ins for a fresher copy from the
// check-in service.
func (l *Ledger) ReplaceCheckIns(transactionID string, cis []models.CheckIn) bool {
	i, ok := l.byID[transactionID]
	if !ok {
		return false
	}
	l.transactions[i].CheckIns = append([]models.CheckIn(nil), cis...)
	return true
}

// ClampCheckInQuantity bounds a requested check-in quantity to 1..remaining.
// With nothing remaining it returns 0.
func ClampCheckInQuantity(qty, remaining int) int {
	if remaining < 1 {
		return 0
	}
	if qty < 1 {
		return 1
	}
	if qty > remaining {
		return remaining
	}
	return qty
}
