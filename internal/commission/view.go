package commission

import "github.com/shopspring/decimal"

// Display holds preformatted currency strings for dashboards.
type Display struct {
	Expected            string `json:"expected"`
	Collected           string `json:"collected"`
	Transferred         string `json:"transferred"`
	RemainingToCollect  string `json:"remainingToCollect"`
	RemainingToTransfer string `json:"remainingToTransfer"`
}

// View is the JSON representation of a deal's figures. Remaining amounts are exact;
// only Display.RemainingToCollect is floored at zero, for the finance action card.
type View struct {
	Expected            decimal.Decimal `json:"expected"`
	Collected           decimal.Decimal `json:"collected"`
	Transferred         decimal.Decimal `json:"transferred"`
	RemainingToCollect  decimal.Decimal `json:"remainingToCollect"`
	RemainingToTransfer decimal.Decimal `json:"remainingToTransfer"`
	DealStatus          Status          `json:"dealStatus"`
	AgentStatus         Status          `json:"agentStatus"`
	Display             Display         `json:"display"`
}

// NewView builds the view of resolved figures.
func NewView(f Figures) View {
	return View{
		Expected:            f.Expected,
		Collected:           f.Collected,
		Transferred:         f.Transferred,
		RemainingToCollect:  f.RemainingToCollect(),
		RemainingToTransfer: f.RemainingToTransfer(),
		DealStatus:          f.DealStatus(),
		AgentStatus:         f.AgentStatus(),
		Display: Display{
			Expected:            FormatAED(f.Expected),
			Collected:           FormatAED(f.Collected),
			Transferred:         FormatAED(f.Transferred),
			RemainingToCollect:  DisplayRemaining(f.Expected, f.Collected),
			RemainingToTransfer: FormatAED(f.RemainingToTransfer()),
		},
	}
}
