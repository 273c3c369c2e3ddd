package ledger

import (
	"fmt"
	"regexp"
	"sort"

	"gestor/internal/core"
)

// Trailing " (n/m)" counter appended to installment descriptions,
// e.g. "Aluguel (3/12)".
var installmentSuffix = regexp.MustCompile(`\s*\(\d+/\d+\)$`)

// InstallmentGroup is a derived cluster of expense transactions inferred
// to be sequential payments of one recurring obligation. Never persisted;
// recomputed on every call.
type InstallmentGroup struct {
	BaseDescription string
	AccountID       string
	Value           core.Money
	DayOfMonth      int
	Transactions    []core.CashFlowTransaction // sorted by date ascending
	FirstDate       core.Date
	LastDate        core.Date

	TotalInstallments     int
	PaidInstallments      int
	RemainingInstallments int
	PaidTotal             core.Money
	RemainingTotal        core.Money
}

// StripInstallmentSuffix removes the trailing " (n/m)" counter from a
// description, if present.
func StripInstallmentSuffix(desc string) string {
	return installmentSuffix.ReplaceAllString(desc, "")
}

// GroupInstallments detects installment plans inside a transaction list.
// Candidates are operating-group expenses sharing (base description,
// account, value); a group survives only with at least two members all
// falling on the same day of the month — the signal separating a genuine
// plan from coincidentally identical one-off charges. Groups are returned
// furthest-future first (LastDate descending).
func GroupInstallments(txs []core.CashFlowTransaction, groups map[string]int) []InstallmentGroup {
	buckets := make(map[string][]core.CashFlowTransaction)
	order := make([]string, 0)
	for _, tx := range txs {
		if tx.Type != core.Expense || tx.Date.IsZero() {
			continue
		}
		if !operatingGroup(groups, tx.AccountID) {
			continue
		}
		key := fmt.Sprintf("%s\x00%s\x00%d", StripInstallmentSuffix(tx.Description), tx.AccountID, tx.Value.Cents)
		if _, seen := buckets[key]; !seen {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], tx)
	}

	result := make([]InstallmentGroup, 0, len(buckets))
	for _, key := range order {
		members := buckets[key]
		if len(members) < 2 {
			continue
		}
		day := members[0].Date.DayOfMonth()
		sameDay := true
		for _, m := range members[1:] {
			if m.Date.DayOfMonth() != day {
				sameDay = false
				break
			}
		}
		if !sameDay {
			continue
		}

		sort.SliceStable(members, func(i, j int) bool {
			return members[i].Date.Before(members[j].Date.Time)
		})

		g := InstallmentGroup{
			BaseDescription:   StripInstallmentSuffix(members[0].Description),
			AccountID:         members[0].AccountID,
			Value:             members[0].Value,
			DayOfMonth:        day,
			Transactions:      members,
			FirstDate:         members[0].Date,
			LastDate:          members[len(members)-1].Date,
			TotalInstallments: len(members),
		}
		for _, m := range members {
			// A mixed entry counts on both sides; the tagged state makes
			// that membership explicit instead of accidental.
			switch m.Settlement() {
			case core.SettlementExecuted:
				g.PaidInstallments++
				g.PaidTotal.Cents += m.Expense.Cents
			case core.SettlementProjected:
				g.RemainingInstallments++
				g.RemainingTotal.Cents += m.FutureExpense.Cents
			case core.SettlementMixed:
				g.PaidInstallments++
				g.PaidTotal.Cents += m.Expense.Cents
				g.RemainingInstallments++
				g.RemainingTotal.Cents += m.FutureExpense.Cents
			}
		}
		result = append(result, g)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].LastDate.After(result[j].LastDate.Time)
	})
	return result
}
