package ledger

import (
	"testing"

	"gestor/internal/core"
)

func installment(id, desc string, date core.Date, value, future, executed int64) core.CashFlowTransaction {
	return core.CashFlowTransaction{
		ID:            id,
		Date:          date,
		AccountID:     "5.2",
		Type:          core.Expense,
		Description:   desc,
		Value:         core.Money{Cents: value},
		FutureExpense: core.Money{Cents: future},
		Expense:       core.Money{Cents: executed},
	}
}

var testGroups = map[string]int{"5.2": 5, "7.1": 7}

func TestStripInstallmentSuffix(t *testing.T) {
	cases := []struct{ in, out string }{
		{"Aluguel (3/12)", "Aluguel"},
		{"Aluguel", "Aluguel"},
		{"Seguro (10/10)", "Seguro"},
		{"Parcela (1/2) extra", "Parcela (1/2) extra"}, // suffix only at the end
	}
	for _, tc := range cases {
		if got := StripInstallmentSuffix(tc.in); got != tc.out {
			t.Fatalf("%q: expected %q, got %q", tc.in, tc.out, got)
		}
	}
}

func TestGroupInstallmentsSameDayOfMonth(t *testing.T) {
	txs := []core.CashFlowTransaction{
		installment("a", "Aluguel (1/2)", core.NewDate(2024, 1, 15), 10000, 0, 10000),
		installment("b", "Aluguel (2/2)", core.NewDate(2024, 2, 15), 10000, 10000, 0),
	}
	got := GroupInstallments(txs, testGroups)
	if len(got) != 1 {
		t.Fatalf("expected 1 group, got %d", len(got))
	}
	g := got[0]
	if g.BaseDescription != "Aluguel" || g.TotalInstallments != 2 || g.DayOfMonth != 15 {
		t.Fatalf("unexpected group: %+v", g)
	}
	if g.PaidInstallments != 1 || g.RemainingInstallments != 1 {
		t.Fatalf("expected 1 paid / 1 remaining, got %d/%d", g.PaidInstallments, g.RemainingInstallments)
	}
	if g.PaidTotal.Cents != 10000 || g.RemainingTotal.Cents != 10000 {
		t.Fatalf("unexpected totals: paid=%d remaining=%d", g.PaidTotal.Cents, g.RemainingTotal.Cents)
	}
	if g.FirstDate.MonthKey() != "2024-01" || g.LastDate.MonthKey() != "2024-02" {
		t.Fatalf("unexpected date range: %v..%v", g.FirstDate, g.LastDate)
	}
}

func TestGroupInstallmentsDifferentDaysNeverGroup(t *testing.T) {
	txs := []core.CashFlowTransaction{
		installment("a", "Aluguel", core.NewDate(2024, 1, 15), 10000, 10000, 0),
		installment("b", "Aluguel", core.NewDate(2024, 2, 16), 10000, 10000, 0),
	}
	if got := GroupInstallments(txs, testGroups); len(got) != 0 {
		t.Fatalf("differing days-of-month must not form a group, got %d", len(got))
	}
}

func TestGroupInstallmentsSingleMemberDiscarded(t *testing.T) {
	txs := []core.CashFlowTransaction{
		installment("a", "Aluguel", core.NewDate(2024, 1, 15), 10000, 10000, 0),
	}
	if got := GroupInstallments(txs, testGroups); len(got) != 0 {
		t.Fatalf("single transactions are not installment plans")
	}
}

func TestGroupInstallmentsValueSplitsGroups(t *testing.T) {
	txs := []core.CashFlowTransaction{
		installment("a", "Software", core.NewDate(2024, 1, 10), 5000, 5000, 0),
		installment("b", "Software", core.NewDate(2024, 2, 10), 5000, 5000, 0),
		installment("c", "Software", core.NewDate(2024, 3, 10), 7000, 7000, 0),
	}
	got := GroupInstallments(txs, testGroups)
	if len(got) != 1 || got[0].TotalInstallments != 2 {
		t.Fatalf("different values must split groups, got %+v", got)
	}
}

func TestGroupInstallmentsAllPaidStillReported(t *testing.T) {
	txs := []core.CashFlowTransaction{
		installment("a", "Seguro (1/2)", core.NewDate(2023, 11, 5), 20000, 0, 20000),
		installment("b", "Seguro (2/2)", core.NewDate(2023, 12, 5), 20000, 0, 20000),
	}
	got := GroupInstallments(txs, testGroups)
	if len(got) != 1 {
		t.Fatalf("fully paid plans are still reported")
	}
	if got[0].RemainingInstallments != 0 || got[0].RemainingTotal.Cents != 0 {
		t.Fatalf("expected no remaining exposure, got %+v", got[0])
	}
	if got[0].PaidInstallments != 2 || got[0].PaidTotal.Cents != 40000 {
		t.Fatalf("expected 2 paid totalling 40000, got %+v", got[0])
	}
}

func TestGroupInstallmentsMixedMemberCountsBothSides(t *testing.T) {
	txs := []core.CashFlowTransaction{
		installment("a", "Equip (1/2)", core.NewDate(2024, 1, 20), 10000, 4000, 6000),
		installment("b", "Equip (2/2)", core.NewDate(2024, 2, 20), 10000, 10000, 0),
	}
	got := GroupInstallments(txs, testGroups)
	if len(got) != 1 {
		t.Fatalf("expected 1 group, got %d", len(got))
	}
	g := got[0]
	if g.PaidInstallments != 1 || g.RemainingInstallments != 2 {
		t.Fatalf("mixed member must count on both sides, got paid=%d remaining=%d", g.PaidInstallments, g.RemainingInstallments)
	}
	if g.PaidTotal.Cents != 6000 || g.RemainingTotal.Cents != 14000 {
		t.Fatalf("unexpected totals: %+v", g)
	}
}

func TestGroupInstallmentsExcludedGroupsAndIncomeIgnored(t *testing.T) {
	adm := installment("a", "Reserva", core.NewDate(2024, 1, 5), 1000, 1000, 0)
	adm.AccountID = "7.1"
	adm2 := adm
	adm2.ID = "b"
	adm2.Date = core.NewDate(2024, 2, 5)

	inc := core.CashFlowTransaction{
		ID: "c", Date: core.NewDate(2024, 1, 5), AccountID: "5.2", Type: core.Income,
		Description: "Mensalidade", Value: core.Money{Cents: 1000}, FutureIncome: core.Money{Cents: 1000},
	}
	inc2 := inc
	inc2.ID = "d"
	inc2.Date = core.NewDate(2024, 2, 5)

	if got := GroupInstallments([]core.CashFlowTransaction{adm, adm2, inc, inc2}, testGroups); len(got) != 0 {
		t.Fatalf("excluded groups and income must not form groups, got %d", len(got))
	}
}

func TestGroupInstallmentsSortedByLastDateDescending(t *testing.T) {
	txs := []core.CashFlowTransaction{
		installment("a", "Antigo (1/2)", core.NewDate(2023, 1, 1), 1000, 0, 1000),
		installment("b", "Antigo (2/2)", core.NewDate(2023, 2, 1), 1000, 0, 1000),
		installment("c", "Novo (1/2)", core.NewDate(2024, 5, 1), 2000, 2000, 0),
		installment("d", "Novo (2/2)", core.NewDate(2024, 6, 1), 2000, 2000, 0),
	}
	got := GroupInstallments(txs, testGroups)
	if len(got) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(got))
	}
	if got[0].BaseDescription != "Novo" || got[1].BaseDescription != "Antigo" {
		t.Fatalf("furthest-future commitments come first, got %s then %s",
			got[0].BaseDescription, got[1].BaseDescription)
	}
}
