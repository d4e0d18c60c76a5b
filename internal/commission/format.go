package commission

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/odyssey-erp/commissiondesk/internal/backend"
)

const currencyCode = "AED"

var printer = message.NewPrinter(language.English)

// FormatAED renders an amount as "AED 1,234.5": grouped thousands and at most three
// fraction digits with trailing zeros dropped.
func FormatAED(d decimal.Decimal) string {
	return currencyCode + " " + printer.Sprintf("%v", number.Decimal(d.InexactFloat64(), number.MaxFractionDigits(3)))
}

// FormatAmount formats a backend amount. Absent values render as zero.
func FormatAmount(a backend.Amount) string {
	if !a.Valid {
		return FormatAED(decimal.Zero)
	}
	return FormatAED(a.Value)
}
