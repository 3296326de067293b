package ledger

import (
	"github.com/shopspring/decimal"

	"ticket-console/models"
)

// ResolvePrice returns the unit price of a line: the price captured at purchase
// time, else the live catalog price matched by id then title, else zero.
func ResolvePrice(line models.TicketLine, catalog *models.EventDetails) (decimal.Decimal, bool) {
	if line.Price.Valid {
		return line.Price.Decimal, true
	}
	if t, ok := catalog.FindTicket(line.TicketTypeID, line.Title); ok && t.Price.Valid {
		return t.Price.Decimal, true
	}
	return decimal.Zero, false
}

// ResolveDates picks the validity dates of a line. Precedence: the line's
// explicit ticket date, the line's dates, the catalog ticket's dates, the
// catalog ticket date, then the event schedule. Nil when nothing is known.
func ResolveDates(line models.TicketLine, catalog *models.EventDetails) []models.DateRange {
	if line.TicketDate != nil && !line.TicketDate.IsZero() {
		return []models.DateRange{{Start: *line.TicketDate}}
	}
	if d := nonZero(line.Dates); len(d) > 0 {
		return d
	}
	if t, ok := catalog.FindTicket(line.TicketTypeID, line.Title); ok {
		if d := nonZero(t.Dates); len(d) > 0 {
			return d
		}
		if t.TicketDate != nil && !t.TicketDate.IsZero() {
			return []models.DateRange{{Start: *t.TicketDate}}
		}
	}
	if catalog != nil {
		return catalog.Date.Ranges()
	}
	return nil
}

func nonZero(ranges []models.DateRange) []models.DateRange {
	var out []models.DateRange
	for _, r := range ranges {
		if !r.IsZero() {
			out = append(out, r)
		}
	}
	return out
}
