package models

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type EventDetails struct {
	ID      string       `json:"_id"`
	Title   string       `json:"title"`
	Venue   string       `json:"venue,omitempty"`
	Status  string       `json:"status,omitempty"`
	Date    EventDate    `json:"date"`
	Tickets []TicketType `json:"tickets"`
}

// EventDate is the event's own schedule, used as the last fallback when a
// ticket carries no dates of its own.
type EventDate struct {
	DateType string     `json:"dateType,omitempty"`
	Date     *time.Time `json:"date,omitempty"`
	EndDate  *time.Time `json:"endDate,omitempty"`
}

// Ranges returns the event schedule as date ranges, or nil when no date is set.
func (d EventDate) Ranges() []DateRange {
	if d.Date == nil || d.Date.IsZero() {
		return nil
	}
	r := DateRange{Start: *d.Date}
	if d.EndDate != nil && !d.EndDate.IsZero() {
		end := *d.EndDate
		r.End = &end
	}
	return []DateRange{r}
}

type TicketType struct {
	ID           string              `json:"_id"`
	Title        string              `json:"title"`
	Description  string              `json:"description,omitempty"`
	Price        decimal.NullDecimal `json:"price"`
	OfflinePrice decimal.NullDecimal `json:"offlinePrice"`
	Seats        int                 `json:"seats"`
	SeatsLeft    *int                `json:"seatsLeft,omitempty"`
	TicketDate   *time.Time          `json:"ticketDate,omitempty"`
	Dates        []DateRange         `json:"dates,omitempty"`
}

// FindTicket looks a ticket type up by id, falling back to an exact title match.
func (e *EventDetails) FindTicket(id, title string) (TicketType, bool) {
	if e == nil {
		return TicketType{}, false
	}
	if id != "" {
		for _, t := range e.Tickets {
			if t.ID == id {
				return t, true
			}
		}
	}
	if title != "" {
		for _, t := range e.Tickets {
			if t.Title == title {
				return t, true
			}
		}
	}
	return TicketType{}, false
}

// TicketTitles lists the catalog's ticket type titles in catalog order.
func (e *EventDetails) TicketTitles() []string {
	if e == nil {
		return nil
	}
	titles := make([]string, 0, len(e.Tickets))
	for _, t := range e.Tickets {
		titles = append(titles, t.Title)
	}
	return titles
}

// DateRange is a validity window. A single-day ticket has no End.
type DateRange struct {
	Start time.Time  `json:"start"`
	End   *time.Time `json:"end,omitempty"`
}

func (r DateRange) IsZero() bool {
	return r.Start.IsZero()
}

// UnmarshalJSON accepts either {"start":..,"end":..} or a bare date string.
// Unparseable values decode to the zero range instead of failing the whole
// payload; callers skip zero ranges.
func (r *DateRange) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = DateRange{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = DateRange{}
		if t, ok := parseLooseTime(s); ok {
			r.Start = t
		}
		return nil
	}
	var raw struct {
		Start string `json:"start"`
		End   string `json:"end"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		*r = DateRange{}
		return nil
	}
	*r = DateRange{}
	if t, ok := parseLooseTime(raw.Start); ok {
		r.Start = t
	}
	if t, ok := parseLooseTime(raw.End); ok {
		r.End = &t
	}
	return nil
}

var looseLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	time.DateTime,
	time.DateOnly,
}

func parseLooseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range looseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
