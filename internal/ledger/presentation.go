package ledger

import "gestor/internal/core"

// ApplyPresentationAdjustment subtracts a fixed display-only amount from
// the income-related figures of a summary. The store and the engine keep
// unadjusted numbers; this must only ever run in the presentation path,
// immediately before a summary is handed to a client. Applying it inside
// aggregation would silently corrupt ledger totals.
func ApplyPresentationAdjustment(s core.CashFlowSummary, adjustment core.Money) core.CashFlowSummary {
	if adjustment.Cents == 0 {
		return s
	}
	s.ExecutedIncome.Cents -= adjustment.Cents
	s.Balance.Cents -= adjustment.Cents
	s.ProjectedBalance.Cents -= adjustment.Cents
	return s
}
