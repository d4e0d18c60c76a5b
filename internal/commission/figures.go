// Package commission derives commission figures from deal payloads and classifies payment progress.
package commission

import (
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/commissiondesk/internal/backend"
)

// extractor pulls one candidate value out of a deal. ok is false when the field is absent.
type extractor func(d backend.Deal) (value decimal.Decimal, ok bool)

// chain is an ordered list of extractors; the first present value wins.
type chain []extractor

func (c chain) resolve(d backend.Deal) decimal.Decimal {
	for _, extract := range c {
		if v, ok := extract(d); ok {
			return v
		}
	}
	return decimal.Zero
}

func amount(a backend.Amount) (decimal.Decimal, bool) {
	return a.Value, a.Valid
}

var expectedChain = chain{
	func(d backend.Deal) (decimal.Decimal, bool) {
		if d.TotalCommission == nil {
			return decimal.Zero, false
		}
		return amount(d.TotalCommission.CommissionValue)
	},
	func(d backend.Deal) (decimal.Decimal, bool) {
		if d.TotalCommission == nil {
			return decimal.Zero, false
		}
		return amount(d.TotalCommission.Value)
	},
	func(d backend.Deal) (decimal.Decimal, bool) {
		if d.AgentCommissions == nil {
			return decimal.Zero, false
		}
		return amount(d.AgentCommissions.TotalExpected)
	},
	func(d backend.Deal) (decimal.Decimal, bool) {
		return sumRecords(d.Commissions, func(r backend.CommissionRecord) backend.Amount { return r.ExpectedAmount })
	},
	func(d backend.Deal) (decimal.Decimal, bool) {
		return amount(d.TotalCommissionValue)
	},
}

var collectedChain = chain{
	func(d backend.Deal) (decimal.Decimal, bool) {
		if d.CollectedCommissions == nil {
			return decimal.Zero, false
		}
		return amount(d.CollectedCommissions.TotalCollected)
	},
	func(d backend.Deal) (decimal.Decimal, bool) {
		return sumRecords(d.Commissions, func(r backend.CommissionRecord) backend.Amount { return r.PaidAmount })
	},
}

var transferredChain = chain{
	func(d backend.Deal) (decimal.Decimal, bool) {
		if d.TransferredCommissions == nil {
			return decimal.Zero, false
		}
		return amount(d.TransferredCommissions.TotalTransferred)
	},
	func(d backend.Deal) (decimal.Decimal, bool) {
		if d.AgentCommissions == nil {
			return decimal.Zero, false
		}
		return amount(d.AgentCommissions.TotalPaid)
	},
}

// sumRecords adds a field across legacy commission records. Absent fields count as zero;
// an empty record list carries no information and yields no value.
func sumRecords(records []backend.CommissionRecord, field func(backend.CommissionRecord) backend.Amount) (decimal.Decimal, bool) {
	if len(records) == 0 {
		return decimal.Zero, false
	}
	total := decimal.Zero
	for _, r := range records {
		if v := field(r); v.Valid {
			total = total.Add(v.Value)
		}
	}
	return total, true
}

// ResolveExpected returns the total commission expected on the deal.
func ResolveExpected(d backend.Deal) decimal.Decimal {
	return expectedChain.resolve(d)
}

// ResolveCollected returns the money received by the company for the deal.
func ResolveCollected(d backend.Deal) decimal.Decimal {
	return collectedChain.resolve(d)
}

// ResolveTransferred returns the money paid out to agents and managers for the deal.
func ResolveTransferred(d backend.Deal) decimal.Decimal {
	return transferredChain.resolve(d)
}

// Figures are the reconciled commission amounts of a deal.
type Figures struct {
	Expected    decimal.Decimal
	Collected   decimal.Decimal
	Transferred decimal.Decimal
}

// Resolve derives all figures for a deal.
func Resolve(d backend.Deal) Figures {
	return Figures{
		Expected:    ResolveExpected(d),
		Collected:   ResolveCollected(d),
		Transferred: ResolveTransferred(d),
	}
}

// RemainingToCollect is expected minus collected. It is negative on over-collection.
func (f Figures) RemainingToCollect() decimal.Decimal {
	return ComputeRemaining(f.Expected, f.Collected)
}

// RemainingToTransfer is expected minus transferred. It is negative on over-payment.
func (f Figures) RemainingToTransfer() decimal.Decimal {
	return ComputeRemaining(f.Expected, f.Transferred)
}

// DealStatus classifies the collection track.
func (f Figures) DealStatus() Status {
	return Classify(f.Collected, f.Expected)
}

// AgentStatus classifies the transfer track.
func (f Figures) AgentStatus() Status {
	return Classify(f.Transferred, f.Expected)
}

// Add accumulates another deal's figures.
func (f Figures) Add(o Figures) Figures {
	return Figures{
		Expected:    f.Expected.Add(o.Expected),
		Collected:   f.Collected.Add(o.Collected),
		Transferred: f.Transferred.Add(o.Transferred),
	}
}

// ComputeRemaining returns expected - paid exactly, without clamping.
func ComputeRemaining(expected, paid decimal.Decimal) decimal.Decimal {
	return expected.Sub(paid)
}

// DisplayRemaining formats expected - paid floored at zero. The result is a display
// string so a clamped amount cannot flow back into stored or summed totals.
func DisplayRemaining(expected, paid decimal.Decimal) string {
	remaining := ComputeRemaining(expected, paid)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	return FormatAED(remaining)
}
