package core

import (
	"testing"
	"time"
)

func TestExcludedGroup(t *testing.T) {
	for g := MinGroupNumber; g <= MaxOperatingGroup; g++ {
		if ExcludedGroup(g) {
			t.Fatalf("group %d should not be excluded", g)
		}
	}
	if !ExcludedGroup(GroupAdministrative) || !ExcludedGroup(GroupReserve) {
		t.Fatalf("groups 7 and 8 must be excluded")
	}
}

func TestDateMonthKey(t *testing.T) {
	d := NewDate(2024, 3, 15)
	if got := d.MonthKey(); got != "2024-03" {
		t.Fatalf("expected 2024-03, got %s", got)
	}
	if !d.SameMonth(NewDate(2024, 3, 1)) {
		t.Fatalf("expected same month")
	}
	if d.SameMonth(NewDate(2023, 3, 15)) {
		t.Fatalf("different years must not be the same month")
	}
}

func TestAccountCategoryValidate(t *testing.T) {
	good := AccountCategory{ID: "1.2", Name: "Vendas", GroupNumber: 1}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []AccountCategory{
		{ID: "", Name: "x", GroupNumber: 1},
		{ID: "1", Name: "", GroupNumber: 1},
		{ID: "1", Name: "x", GroupNumber: 0},
		{ID: "1", Name: "x", GroupNumber: 9},
	}
	for i, bad := range bads {
		if err := bad.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestTransactionSettlement(t *testing.T) {
	cases := []struct {
		name string
		tx   CashFlowTransaction
		want SettlementState
	}{
		{"none", CashFlowTransaction{Type: Expense}, SettlementNone},
		{"projected only", CashFlowTransaction{Type: Expense, FutureExpense: Money{Cents: 100}}, SettlementProjected},
		{"executed only", CashFlowTransaction{Type: Expense, Expense: Money{Cents: 100}}, SettlementExecuted},
		{"both", CashFlowTransaction{Type: Expense, Expense: Money{Cents: 50}, FutureExpense: Money{Cents: 50}}, SettlementMixed},
		{"income projected", CashFlowTransaction{Type: Income, FutureIncome: Money{Cents: 100}}, SettlementProjected},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.tx.Settlement(); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestSettleMovesProjectedToExecuted(t *testing.T) {
	tx := CashFlowTransaction{Type: Expense, FutureExpense: Money{Cents: 300}}
	tx.Settle()
	if tx.Expense.Cents != 300 || tx.FutureExpense.Cents != 0 {
		t.Fatalf("expected executed=300 projected=0, got %d/%d", tx.Expense.Cents, tx.FutureExpense.Cents)
	}
	if tx.Settlement() != SettlementExecuted {
		t.Fatalf("expected executed state after settle")
	}

	// Settling again changes nothing.
	tx.Settle()
	if tx.Expense.Cents != 300 {
		t.Fatalf("settle must be idempotent once projected is zero")
	}

	in := CashFlowTransaction{Type: Income, Income: Money{Cents: 100}, FutureIncome: Money{Cents: 50}}
	in.Settle()
	if in.Income.Cents != 150 || in.FutureIncome.Cents != 0 {
		t.Fatalf("expected income 150/0, got %d/%d", in.Income.Cents, in.FutureIncome.Cents)
	}
}

func TestTransactionValidate(t *testing.T) {
	good := CashFlowTransaction{
		Date:        NewDate(2024, 1, 10),
		AccountID:   "5.1",
		Type:        Expense,
		Description: "Aluguel",
		Value:       Money{Cents: 10000},
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []CashFlowTransaction{
		{Date: Date{Time: time.Time{}}, AccountID: "1", Type: Income, Description: "x"},
		{Date: NewDate(2024, 1, 1), AccountID: "", Type: Income, Description: "x"},
		{Date: NewDate(2024, 1, 1), AccountID: "1", Type: "transfer", Description: "x"},
		{Date: NewDate(2024, 1, 1), AccountID: "1", Type: Income, Description: "  "},
	}
	for i, bad := range bads {
		if err := bad.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestPricingProposalTotal(t *testing.T) {
	p := PricingProposal{
		Items: []PricingServiceItem{
			{Description: "Contabilidade", Amount: Money{Cents: 50000}},
			{Description: "Folha", Amount: Money{Cents: 20000}},
		},
		Discount: Money{Cents: 10000},
	}
	if got := p.Total().Cents; got != 60000 {
		t.Fatalf("expected 60000, got %d", got)
	}

	p.Discount = Money{Cents: 100000}
	if got := p.Total().Cents; got != 0 {
		t.Fatalf("discount beyond total clamps at zero, got %d", got)
	}
}

func TestOnboardingComplete(t *testing.T) {
	o := OnboardingChecklist{Steps: []OnboardingStep{{Name: "docs", Done: true}, {Name: "acesso", Done: false}}}
	if o.Complete() {
		t.Fatalf("expected incomplete")
	}
	o.Steps[1].Done = true
	if !o.Complete() {
		t.Fatalf("expected complete")
	}
	if (OnboardingChecklist{}).Complete() {
		t.Fatalf("empty checklist is not complete")
	}
}
