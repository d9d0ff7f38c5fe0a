// Derived metrics over canonical entities. Everything here is a pure
// function: the server remains the balance authority, these values exist
// for display only.
package core

import "math"

// Account status classes, evaluated in precedence order by Classify.
const (
	StatusClosed   AccountStatus = "closed"
	StatusDepleted AccountStatus = "depleted"
	StatusLow      AccountStatus = "low"
	StatusActive   AccountStatus = "active"
)

type AccountStatus string

// Balance returns allocated minus used. A negative result is a legitimate
// over-spend and must be displayed as such, never clamped.
func Balance(a ImprestAccount) Money {
	return Money{Cents: a.Allocated.Cents - a.Used.Cents}
}

// UtilizationPercent returns used over allocated as a percentage,
// substituting 1 cent for a zero allocation so the division never fails.
// The result is unclamped and may exceed 100 to signal overspend.
func UtilizationPercent(a ImprestAccount) float64 {
	alloc := a.Allocated.Cents
	if alloc == 0 {
		alloc = 1
	}
	return float64(a.Used.Cents) / float64(alloc) * 100
}

// BarWidth is UtilizationPercent clamped to [0, 100] and rounded, for
// progress-bar sizing only. The textual label keeps the unclamped value.
func BarWidth(a ImprestAccount) int {
	p := UtilizationPercent(a)
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return int(math.Round(p))
}

// Classify returns the account's status class. First matching rule wins:
// closed beats depleted beats low beats active.
func Classify(a ImprestAccount) AccountStatus {
	if a.Closed {
		return StatusClosed
	}
	balance := Balance(a).Cents
	if balance <= 0 {
		return StatusDepleted
	}
	if float64(balance) < 0.2*float64(a.Allocated.Cents) {
		return StatusLow
	}
	return StatusActive
}

// TransactionTotal previews the total of an unsaved line:
// quantity x unit price + VAT. It never overrides a server-confirmed
// transaction total.
func TransactionTotal(quantity int64, unitPrice, vat Money) Money {
	return Money{Cents: quantity*unitPrice.Cents + vat.Cents}
}

// SumDebits totals the server-confirmed amounts of a transaction list.
// Non-numeric totals were already normalized to 0 upstream.
func SumDebits(txns []Transaction) Money {
	var sum int64
	for _, t := range txns {
		sum += t.Total.Cents
	}
	return Money{Cents: sum}
}

// ProposalFormTotal previews the total of an unsaved proposal:
// sum of quantity x unit price over its lines.
func ProposalFormTotal(lines []ProposalLine) Money {
	var sum int64
	for _, l := range lines {
		sum += l.Quantity * l.Price.Cents
	}
	return Money{Cents: sum}
}

// UnitPrice back-computes the per-unit price from the stored line total.
// The server does not store unit prices; a zero quantity therefore yields
// +Inf rather than a panic, and display sites render non-finite values as
// a dash. Whether zero quantities can occur server-side is an open
// server-boundary question, so the oddity is surfaced, not hidden.
func (it ProposalItem) UnitPrice() float64 {
	return it.Total.Shillings() / float64(it.Quantity)
}
