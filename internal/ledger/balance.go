package ledger

import "gestor/internal/core"

// RecalculateBalance computes a financial account's committed balance:
// the initial balance plus every linked transaction's executed and
// projected income, minus executed and projected expense. Projected
// amounts count so the displayed balance reflects commitments that have
// not settled yet; the projection engine keeps the split visible where it
// matters. Idempotent for an unchanged transaction set.
func RecalculateBalance(account core.FinancialAccount, txs []core.CashFlowTransaction) core.Money {
	balance := account.InitialBalance.Cents
	for _, tx := range txs {
		if tx.FinancialAccountID != account.ID {
			continue
		}
		balance += tx.Income.Cents + tx.FutureIncome.Cents
		balance -= tx.Expense.Cents + tx.FutureExpense.Cents
	}
	return core.Money{Cents: balance}
}

// Summarize totals executed and projected income and expense over a
// transaction list. The caller selects the window; this only reduces.
func Summarize(txs []core.CashFlowTransaction) core.CashFlowSummary {
	var s core.CashFlowSummary
	for _, tx := range txs {
		s.ExecutedIncome.Cents += tx.Income.Cents
		s.ExecutedExpense.Cents += tx.Expense.Cents
		s.ProjectedIncome.Cents += tx.FutureIncome.Cents
		s.ProjectedExpense.Cents += tx.FutureExpense.Cents
	}
	s.Balance.Cents = s.ExecutedIncome.Cents - s.ExecutedExpense.Cents
	s.ProjectedBalance.Cents = s.Balance.Cents + s.ProjectedIncome.Cents - s.ProjectedExpense.Cents
	return s
}
