package commission

import "github.com/shopspring/decimal"

// Status is the payment progress label of one commission track.
type Status string

const (
	StatusNoCommission  Status = "No Commission"
	StatusPending       Status = "Pending"
	StatusPartiallyPaid Status = "Partially Paid"
	StatusPaid          Status = "Paid"
)

// Statuses lists every label in display order.
var Statuses = []Status{StatusNoCommission, StatusPending, StatusPartiallyPaid, StatusPaid}

// Classify maps a (paid, total) pair to a label. Non-positive totals carry no commission
// and non-positive paid amounts count as nothing paid.
func Classify(paid, total decimal.Decimal) Status {
	switch {
	case !total.IsPositive():
		return StatusNoCommission
	case !paid.IsPositive():
		return StatusPending
	case paid.LessThan(total):
		return StatusPartiallyPaid
	default:
		return StatusPaid
	}
}
