package ledger

import (
	"strings"

	"github.com/shopspring/decimal"

	"ticket-console/models"
)

// FilterAll matches every status or every ticket type.
const FilterAll = "all"

type Filter struct {
	Status     string `json:"status"`
	TicketType string `json:"ticketType"`
	Search     string `json:"search"`
}

// Normalized fills empty selectors with FilterAll and trims the search.
func (f Filter) Normalized() Filter {
	if f.Status == "" {
		f.Status = FilterAll
	}
	if f.TicketType == "" {
		f.TicketType = FilterAll
	}
	f.Search = strings.TrimSpace(f.Search)
	return f
}

// Snapshot is everything reconciliation reads: the catalog and the ledger of
// one event.
type Snapshot struct {
	Event  *models.EventDetails
	Ledger *Ledger
}

func NewSnapshot(event *models.EventDetails, txs []models.Transaction) *Snapshot {
	return &Snapshot{Event: event, Ledger: New(txs, event)}
}

// Entry is one transaction seen through one of its ticket lines.
type Entry struct {
	Transaction models.Transaction `json:"transaction"`
	Line        models.TicketLine  `json:"line"`
	Price       decimal.Decimal    `json:"price"`
	Dates       []models.DateRange `json:"dates,omitempty"`
	CheckedIn   int                `json:"checkedIn"`
	Remaining   int                `json:"remaining"`
}

func (e Entry) Pair() Pair {
	return Pair{TransactionID: e.Transaction.ID, TicketTypeID: e.Line.TicketTypeID}
}

type GroupStats struct {
	Sold      int     `json:"sold"`
	Purchases int     `json:"purchases"`
	Buyers    int     `json:"buyers"`
	CheckedIn int     `json:"checkedIn"`
	Remaining int     `json:"remaining"`
	Revenue   Amounts `json:"revenue"`
}

// Group collects the entries of one ticket-type title. Stats cover every
// entry that passed the status and search filters; Entries is further
// narrowed by the ticket-type filter.
type Group struct {
	Title   string     `json:"title"`
	Entries []Entry    `json:"entries"`
	Stats   GroupStats `json:"stats"`
}

type View struct {
	Filter         Filter   `json:"filter"`
	Groups         []Group  `json:"groups"`
	TicketTypes    []string `json:"ticketTypes"`
	TotalSold      int      `json:"totalSold"`
	TotalCheckedIn int      `json:"totalCheckedIn"`
	Revenue        Revenue  `json:"revenue"`
}

// Group returns the group with the given title.
func (v View) Group(title string) (Group, bool) {
	for _, g := range v.Groups {
		if g.Title == title {
			return g, true
		}
	}
	return Group{}, false
}

// Reconcile derives the grouped view, per-type counts and revenue. It is a
// pure function of its inputs.
func Reconcile(s *Snapshot, f Filter) View {
	f = f.Normalized()
	view := View{
		Filter:  f,
		Groups:  []Group{},
		Revenue: Revenue{All: zeroAmounts(), Online: zeroAmounts(), Offline: zeroAmounts()},
	}
	if s == nil || s.Ledger == nil {
		return view
	}
	view.TicketTypes = s.Event.TicketTitles()

	index := make(map[string]int)
	all := make(map[string][]Entry)
	for _, tx := range s.Ledger.Transactions() {
		if !matchesStatus(tx, f.Status) || !matchesSearch(tx, f.Search) {
			continue
		}
		for _, line := range tx.Lines {
			if _, ok := index[line.Title]; !ok {
				index[line.Title] = len(view.Groups)
				view.Groups = append(view.Groups, Group{Title: line.Title, Entries: []Entry{}})
			}
			all[line.Title] = append(all[line.Title], newEntry(s, tx, line))
		}
	}

	for i := range view.Groups {
		g := &view.Groups[i]
		entries := all[g.Title]
		g.Stats = groupStats(entries)
		view.TotalSold += g.Stats.Sold
		if f.TicketType != FilterAll && f.TicketType != g.Title {
			continue
		}
		g.Entries = entries
		for _, e := range entries {
			view.Revenue.Add(e.Transaction.Type, LineRevenue(e.Transaction, e.Price, e.Line.Qty()))
		}
	}
	view.TotalCheckedIn = totalCheckedIn(view.Groups, all)
	return view
}

func newEntry(s *Snapshot, tx models.Transaction, line models.TicketLine) Entry {
	price, _ := ResolvePrice(line, s.Event)
	sold, _ := soldIn(tx, line.TicketTypeID)
	checked := checkedInFor(tx, line.TicketTypeID)
	return Entry{
		Transaction: tx,
		Line:        line,
		Price:       price,
		Dates:       ResolveDates(line, s.Event),
		CheckedIn:   checked,
		Remaining:   remaining(sold, checked),
	}
}

func groupStats(entries []Entry) GroupStats {
	st := GroupStats{Revenue: zeroAmounts()}
	txs := make(map[string]struct{})
	buyers := make(map[string]struct{})
	pairs := make(map[Pair]struct{})
	sold := make(map[Pair]int)
	checked := make(map[Pair]int)

	for _, e := range entries {
		qty := e.Line.Qty()
		st.Sold += qty
		st.Revenue = st.Revenue.Add(LineRevenue(e.Transaction, e.Price, qty))
		txs[e.Transaction.ID] = struct{}{}
		if k := e.Transaction.Buyer.Key(); k != "" {
			buyers[k] = struct{}{}
		}
		p := e.Pair()
		sold[p] += qty
		if _, seen := pairs[p]; !seen {
			pairs[p] = struct{}{}
			checked[p] = e.CheckedIn
		}
	}
	for p := range pairs {
		c := checked[p]
		if c > sold[p] {
			c = sold[p]
		}
		st.CheckedIn += c
	}
	st.Purchases = len(txs)
	st.Buyers = len(buyers)
	st.Remaining = st.Sold - st.CheckedIn
	return st
}

// totalCheckedIn sums every check-in of every transaction shown in any group,
// counting a transaction once even when it appears under several titles.
func totalCheckedIn(groups []Group, all map[string][]Entry) int {
	seen := make(map[string]struct{})
	total := 0
	for _, g := range groups {
		for _, e := range all[g.Title] {
			if _, ok := seen[e.Transaction.ID]; ok {
				continue
			}
			seen[e.Transaction.ID] = struct{}{}
			for _, ci := range e.Transaction.CheckIns {
				total += ci.Qty()
			}
		}
	}
	return total
}

func matchesStatus(tx models.Transaction, want string) bool {
	return want == FilterAll || strings.EqualFold(string(tx.Status), want)
}

func matchesSearch(tx models.Transaction, query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	for _, field := range []string{tx.Buyer.DisplayName(), tx.Buyer.Email, tx.Receipt} {
		if field != "" && strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}
