package ledger

import (
	"github.com/shopspring/decimal"

	"ticket-console/models"
)

// Amounts is revenue before and after transaction-level discounts.
type Amounts struct {
	Original   decimal.Decimal `json:"original"`
	Discounted decimal.Decimal `json:"discounted"`
}

func (a Amounts) Add(b Amounts) Amounts {
	return Amounts{
		Original:   a.Original.Add(b.Original),
		Discounted: a.Discounted.Add(b.Discounted),
	}
}

type Revenue struct {
	All     Amounts `json:"all"`
	Online  Amounts `json:"online"`
	Offline Amounts `json:"offline"`
}

// Add books a line's amounts into All and into the partition of its
// transaction type. Transactions with an unknown type only count toward All.
func (r *Revenue) Add(typ models.TransactionType, a Amounts) {
	r.All = r.All.Add(a)
	switch typ {
	case models.TransactionOnline:
		r.Online = r.Online.Add(a)
	case models.TransactionOffline:
		r.Offline = r.Offline.Add(a)
	}
}

func zeroAmounts() Amounts {
	return Amounts{Original: decimal.Zero, Discounted: decimal.Zero}
}

// LineRevenue prices qty tickets at price and applies the transaction's
// discount ratio discountedPrice/originalPrice. Only successful transactions
// earn revenue.
//
// The ratio assumes the discount is spread evenly over every line of the
// transaction; no per-line discount data exists upstream.
func LineRevenue(tx models.Transaction, price decimal.Decimal, qty int) Amounts {
	if tx.Status != models.StatusSuccess {
		return zeroAmounts()
	}
	total := price.Mul(decimal.NewFromInt(int64(qty)))
	a := Amounts{Original: total, Discounted: total}
	if tx.OriginalPrice.Valid && tx.DiscountedPrice.Valid && !tx.OriginalPrice.Decimal.IsZero() {
		a.Discounted = total.Mul(tx.DiscountedPrice.Decimal).Div(tx.OriginalPrice.Decimal)
	}
	return a
}
