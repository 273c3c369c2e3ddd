package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"gestor/internal/core"
)

// newStores builds both implementations so every subtest runs against the
// SQLite store and the memory store with identical expectations.
func newStores(t *testing.T) map[string]Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	sqlite, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		"sqlite": sqlite,
		"memory": NewMemoryStore(),
	}
}

func TestCategoryCRUD(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			cat := core.AccountCategory{ID: "1", Name: "Receitas", GroupNumber: 1}
			if err := store.CreateCategory(ctx, cat); err != nil {
				t.Fatalf("CreateCategory() error = %v", err)
			}
			child := core.AccountCategory{ID: "1.1", Name: "Honorários", GroupNumber: 1, ParentID: "1"}
			if err := store.CreateCategory(ctx, child); err != nil {
				t.Fatalf("CreateCategory(child) error = %v", err)
			}

			got, err := store.GetCategory(ctx, "1.1")
			if err != nil {
				t.Fatalf("GetCategory() error = %v", err)
			}
			if got.ParentID != "1" || got.Name != "Honorários" {
				t.Errorf("GetCategory() = %+v", got)
			}

			cats, err := store.ListCategories(ctx)
			if err != nil {
				t.Fatalf("ListCategories() error = %v", err)
			}
			if len(cats) != 2 || cats[0].ID != "1" || cats[1].ID != "1.1" {
				t.Errorf("ListCategories() order wrong: %+v", cats)
			}

			child.Name = "Honorários contábeis"
			if err := store.UpdateCategory(ctx, child); err != nil {
				t.Fatalf("UpdateCategory() error = %v", err)
			}

			// Parent with a child must not be deletable.
			if err := store.DeleteCategory(ctx, "1"); !errors.Is(err, core.ErrConflict) {
				t.Errorf("DeleteCategory(parent) error = %v, want ErrConflict", err)
			}
			if err := store.DeleteCategory(ctx, "1.1"); err != nil {
				t.Fatalf("DeleteCategory(leaf) error = %v", err)
			}
			if err := store.DeleteCategory(ctx, "1"); err != nil {
				t.Fatalf("DeleteCategory(root after leaf) error = %v", err)
			}

			if _, err := store.GetCategory(ctx, "1"); !errors.Is(err, core.ErrNotFound) {
				t.Errorf("GetCategory(deleted) error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestDeleteCategoryWithTransactions(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if err := store.CreateCategory(ctx, core.AccountCategory{ID: "2", Name: "Despesas", GroupNumber: 2}); err != nil {
				t.Fatal(err)
			}
			tx := core.CashFlowTransaction{
				ID:          "tx-1",
				Date:        core.NewDate(2026, 3, 10),
				AccountID:   "2",
				Type:        core.Expense,
				Description: "Aluguel",
				Value:       core.Money{Cents: 150000},
				Expense:     core.Money{Cents: 150000},
			}
			if err := store.CreateTransaction(ctx, tx); err != nil {
				t.Fatal(err)
			}

			if err := store.DeleteCategory(ctx, "2"); !errors.Is(err, core.ErrConflict) {
				t.Errorf("DeleteCategory() error = %v, want ErrConflict", err)
			}
			if err := store.DeleteTransaction(ctx, "tx-1"); err != nil {
				t.Fatal(err)
			}
			if err := store.DeleteCategory(ctx, "2"); err != nil {
				t.Errorf("DeleteCategory() after removing transactions error = %v", err)
			}
		})
	}
}

func TestCategoryAccountLink(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if err := store.CreateCategory(ctx, core.AccountCategory{ID: "8.1", Name: "Reserva", GroupNumber: 8}); err != nil {
				t.Fatal(err)
			}
			account := core.FinancialAccount{
				ID:             "acc-1",
				Name:           "Poupança",
				Type:           core.AccountBank,
				InitialBalance: core.Money{Cents: 500000},
				CategoryID:     "8.1",
			}
			if err := store.CreateFinancialAccount(ctx, account); err != nil {
				t.Fatal(err)
			}

			cats, err := store.ListCategories(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(cats) != 1 {
				t.Fatalf("ListCategories() len = %d", len(cats))
			}
			if cats[0].Account == nil {
				t.Fatal("linked account not attached")
			}
			if cats[0].Account.ID != "acc-1" {
				t.Errorf("linked account = %q, want acc-1", cats[0].Account.ID)
			}
		})
	}
}

func TestTransactionFilters(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if err := store.CreateCategory(ctx, core.AccountCategory{ID: "1", Name: "Receitas", GroupNumber: 1}); err != nil {
				t.Fatal(err)
			}
			seed := []core.CashFlowTransaction{
				{ID: "a", Date: core.NewDate(2026, 1, 5), AccountID: "1", Type: core.Income,
					Description: "Honorários", Income: core.Money{Cents: 100000}, ClientID: "c1"},
				{ID: "b", Date: core.NewDate(2026, 2, 5), AccountID: "1", Type: core.Income,
					Description: "Honorários", Income: core.Money{Cents: 100000}, ClientID: "c2",
					FinancialAccountID: "acc-1"},
				{ID: "c", Date: core.NewDate(2026, 3, 5), AccountID: "1", Type: core.Income,
					Description: "Honorários", FutureIncome: core.Money{Cents: 100000}, ClientID: "c1"},
			}
			for _, tx := range seed {
				if err := store.CreateTransaction(ctx, tx); err != nil {
					t.Fatal(err)
				}
			}

			tests := []struct {
				name   string
				filter TransactionFilter
				want   []string
			}{
				{"all", TransactionFilter{}, []string{"a", "b", "c"}},
				{"from", TransactionFilter{From: core.NewDate(2026, 2, 1)}, []string{"b", "c"}},
				{"window", TransactionFilter{From: core.NewDate(2026, 2, 1), To: core.NewDate(2026, 2, 28)}, []string{"b"}},
				{"client", TransactionFilter{ClientID: "c1"}, []string{"a", "c"}},
				{"financial account", TransactionFilter{FinancialAccountID: "acc-1"}, []string{"b"}},
			}
			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					txs, err := store.ListTransactions(ctx, tt.filter)
					if err != nil {
						t.Fatalf("ListTransactions() error = %v", err)
					}
					if len(txs) != len(tt.want) {
						t.Fatalf("got %d transactions, want %d", len(txs), len(tt.want))
					}
					for i, id := range tt.want {
						if txs[i].ID != id {
							t.Errorf("txs[%d].ID = %q, want %q", i, txs[i].ID, id)
						}
					}
				})
			}
		})
	}
}

func TestRevisionBumpsOnLedgerWrites(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			before := store.Revision()
			if err := store.CreateCategory(ctx, core.AccountCategory{ID: "3", Name: "Impostos", GroupNumber: 3}); err != nil {
				t.Fatal(err)
			}
			if store.Revision() == before {
				t.Error("revision unchanged after category write")
			}

			before = store.Revision()
			if err := store.CreateClient(ctx, core.Client{ID: "c1", Name: "Acme", CreatedAt: time.Now()}); err != nil {
				t.Fatal(err)
			}
			if store.Revision() != before {
				t.Error("revision changed by a non-ledger write")
			}
		})
	}
}

func TestBoletoDispatchLifecycle(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if err := store.CreateClient(ctx, core.Client{ID: "c1", Name: "Acme", CreatedAt: time.Now()}); err != nil {
				t.Fatal(err)
			}
			b := core.Boleto{
				ID:          "b1",
				ClientID:    "c1",
				Amount:      core.Money{Cents: 90000},
				DueDate:     core.NewDate(2026, 4, 10),
				Competencia: "2026-03",
				Status:      core.BoletoOpen,
				Dispatch:    core.DispatchPending,
				CreatedAt:   time.Now(),
			}
			if err := store.CreateBoleto(ctx, b); err != nil {
				t.Fatal(err)
			}

			if err := store.UpdateBoletoDispatch(ctx, "b1", core.DispatchQueued); err != nil {
				t.Fatal(err)
			}
			got, err := store.GetBoleto(ctx, "b1")
			if err != nil {
				t.Fatal(err)
			}
			if got.Dispatch != core.DispatchQueued {
				t.Errorf("Dispatch = %q, want queued", got.Dispatch)
			}
			if !got.DispatchedAt.IsZero() {
				t.Error("DispatchedAt set before the boleto was sent")
			}

			if err := store.UpdateBoletoDispatch(ctx, "b1", core.DispatchSent); err != nil {
				t.Fatal(err)
			}
			got, err = store.GetBoleto(ctx, "b1")
			if err != nil {
				t.Fatal(err)
			}
			if got.Dispatch != core.DispatchSent {
				t.Errorf("Dispatch = %q, want sent", got.Dispatch)
			}
			if got.DispatchedAt.IsZero() {
				t.Error("DispatchedAt not recorded on send")
			}

			if err := store.UpdateBoletoStatus(ctx, "b1", core.BoletoPaid); err != nil {
				t.Fatal(err)
			}
			got, _ = store.GetBoleto(ctx, "b1")
			if got.Status != core.BoletoPaid {
				t.Errorf("Status = %q, want paid", got.Status)
			}

			if err := store.UpdateBoletoStatus(ctx, "missing", core.BoletoPaid); !errors.Is(err, core.ErrNotFound) {
				t.Errorf("UpdateBoletoStatus(missing) error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestProposalRoundTrip(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			p := core.PricingProposal{
				ID:     "p1",
				LeadID: "l1",
				Items: []core.PricingServiceItem{
					{Description: "Contabilidade mensal", Amount: core.Money{Cents: 80000}},
					{Description: "Folha de pagamento", Amount: core.Money{Cents: 30000}},
				},
				Discount:  core.Money{Cents: 10000},
				CreatedAt: time.Now().UTC().Truncate(time.Second),
			}
			if err := store.CreateProposal(ctx, p); err != nil {
				t.Fatal(err)
			}

			got, err := store.GetProposal(ctx, "p1")
			if err != nil {
				t.Fatal(err)
			}
			if len(got.Items) != 2 {
				t.Fatalf("Items len = %d, want 2", len(got.Items))
			}
			if got.Items[1].Amount.Cents != 30000 {
				t.Errorf("Items[1].Amount = %d", got.Items[1].Amount.Cents)
			}
			if got.Total().Cents != 100000 {
				t.Errorf("Total() = %d, want 100000", got.Total().Cents)
			}
		})
	}
}

func TestDumpCoversEveryTable(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Now().UTC().Truncate(time.Second)

			if err := store.CreateClient(ctx, core.Client{ID: "c1", Name: "Acme", CreatedAt: now}); err != nil {
				t.Fatal(err)
			}
			if err := store.CreateContract(ctx, core.Contract{ID: "ct1", ClientID: "c1", Description: "Mensal", StartDate: core.NewDate(2026, 1, 1), Status: core.ContractActive}); err != nil {
				t.Fatal(err)
			}
			if err := store.CreateLead(ctx, core.Lead{ID: "l1", Name: "Prospect", Stage: core.LeadNew, CreatedAt: now}); err != nil {
				t.Fatal(err)
			}
			if err := store.CreateCategory(ctx, core.AccountCategory{ID: "1", Name: "Receitas", GroupNumber: 1}); err != nil {
				t.Fatal(err)
			}
			if err := store.CreateCompany(ctx, core.Company{ID: "co1", Name: "Firma", ProviderID: "prov-1"}); err != nil {
				t.Fatal(err)
			}

			d, err := store.Dump(ctx)
			if err != nil {
				t.Fatalf("Dump() error = %v", err)
			}
			if len(d.Clients) != 1 || len(d.Contracts) != 1 || len(d.Leads) != 1 ||
				len(d.AccountCategories) != 1 || len(d.Companies) != 1 {
				t.Errorf("Dump() incomplete: %+v", d)
			}
		})
	}
}
