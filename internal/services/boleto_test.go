package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"gestor/internal/core"
	"gestor/internal/provider"
	"gestor/internal/storage"
)

type fakePublisher struct {
	published []string
	err       error
}

func (f *fakePublisher) PublishBoletoDispatch(ctx context.Context, boletoID string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, boletoID)
	return nil
}

type fakeSearcher struct {
	invoices map[string][]provider.Invoice // providerAccountID -> invoices
	errFor   map[string]error
}

func (f *fakeSearcher) SearchInvoices(ctx context.Context, providerAccountID, reference string) ([]provider.Invoice, error) {
	if err := f.errFor[providerAccountID]; err != nil {
		return nil, err
	}
	return f.invoices[providerAccountID], nil
}

func seedBoletos(t *testing.T, store storage.Store) {
	t.Helper()
	ctx := context.Background()
	if err := store.CreateClient(ctx, core.Client{ID: "c1", Name: "Acme", Phone: "11987654321", CreatedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}
	companies := []core.Company{
		{ID: "co1", Name: "Firma A", ProviderID: "prov-a"},
		{ID: "co2", Name: "Firma B", ProviderID: "prov-b"},
	}
	for _, c := range companies {
		if err := store.CreateCompany(ctx, c); err != nil {
			t.Fatal(err)
		}
	}
	boletos := []core.Boleto{
		{ID: "b1", ClientID: "c1", CompanyID: "co1", Amount: core.Money{Cents: 90000},
			DueDate: core.NewDate(2026, 4, 10), ProviderInvoiceID: "inv-1",
			Status: core.BoletoOpen, Dispatch: core.DispatchPending, CreatedAt: time.Now()},
		{ID: "b2", ClientID: "c1", CompanyID: "co1", Amount: core.Money{Cents: 90000},
			DueDate: core.NewDate(2026, 3, 10), ProviderInvoiceID: "inv-2",
			Status: core.BoletoOpen, Dispatch: core.DispatchPending, CreatedAt: time.Now()},
		{ID: "b3", ClientID: "c1", CompanyID: "co2", Amount: core.Money{Cents: 50000},
			DueDate: core.NewDate(2026, 4, 15), ProviderInvoiceID: "inv-3",
			Status: core.BoletoOpen, Dispatch: core.DispatchPending, CreatedAt: time.Now()},
	}
	for _, b := range boletos {
		if err := store.CreateBoleto(context.Background(), b); err != nil {
			t.Fatal(err)
		}
	}
}

func TestCreateBoletoDefaults(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()
	if err := store.CreateClient(ctx, core.Client{ID: "c1", Name: "Acme", CreatedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}
	svc := NewBoletoService(store, &fakePublisher{}, &fakeSearcher{}, testLogger())

	created, err := svc.CreateBoleto(ctx, core.Boleto{
		ClientID: "c1",
		Amount:   core.Money{Cents: 90000},
		DueDate:  core.NewDate(2026, 4, 10),
	})
	if err != nil {
		t.Fatalf("CreateBoleto() error = %v", err)
	}
	if created.ID == "" {
		t.Error("no ID assigned")
	}
	if created.Status != core.BoletoOpen || created.Dispatch != core.DispatchPending {
		t.Errorf("defaults = %q/%q", created.Status, created.Dispatch)
	}

	if _, err := svc.CreateBoleto(ctx, core.Boleto{ClientID: "c1", DueDate: core.NewDate(2026, 4, 10)}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("zero amount error = %v, want ErrInvalidAmount", err)
	}
	if _, err := svc.CreateBoleto(ctx, core.Boleto{ClientID: "ghost", Amount: core.Money{Cents: 100}, DueDate: core.NewDate(2026, 4, 10)}); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("unknown client error = %v, want ErrNotFound", err)
	}
}

func TestDispatchQueuesAndPublishes(t *testing.T) {
	store := storage.NewMemoryStore()
	seedBoletos(t, store)
	pub := &fakePublisher{}
	svc := NewBoletoService(store, pub, &fakeSearcher{}, testLogger())
	ctx := context.Background()

	if err := svc.Dispatch(ctx, "b1"); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if len(pub.published) != 1 || pub.published[0] != "b1" {
		t.Errorf("published = %v", pub.published)
	}
	got, _ := store.GetBoleto(ctx, "b1")
	if got.Dispatch != core.DispatchQueued {
		t.Errorf("Dispatch = %q, want queued", got.Dispatch)
	}

	// Re-queuing an already-queued boleto is a conflict.
	if err := svc.Dispatch(ctx, "b1"); !errors.Is(err, core.ErrConflict) {
		t.Errorf("double dispatch error = %v, want ErrConflict", err)
	}
}

func TestDispatchRollsBackOnPublishFailure(t *testing.T) {
	store := storage.NewMemoryStore()
	seedBoletos(t, store)
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := NewBoletoService(store, pub, &fakeSearcher{}, testLogger())
	ctx := context.Background()

	if err := svc.Dispatch(ctx, "b1"); err == nil {
		t.Fatal("expected publish error")
	}
	got, _ := store.GetBoleto(ctx, "b1")
	if got.Dispatch != core.DispatchPending {
		t.Errorf("Dispatch = %q, want pending after rollback", got.Dispatch)
	}
}

func TestSyncAllUpdatesStatuses(t *testing.T) {
	store := storage.NewMemoryStore()
	seedBoletos(t, store)
	searcher := &fakeSearcher{
		invoices: map[string][]provider.Invoice{
			"prov-a": {
				{ID: "inv-1", Status: "PAID"},
				{ID: "inv-2", Status: "LATE"},
			},
			"prov-b": {
				{ID: "inv-3", Status: "OPEN"},
			},
		},
	}
	svc := NewBoletoService(store, &fakePublisher{}, searcher, testLogger())

	report, err := svc.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("SyncAll() error = %v", err)
	}
	if report.Companies != 2 || report.FailedCompanies != 0 {
		t.Errorf("report = %+v", report)
	}
	if report.Checked != 3 || report.Updated != 2 {
		t.Errorf("checked/updated = %d/%d, want 3/2", report.Checked, report.Updated)
	}

	ctx := context.Background()
	b1, _ := store.GetBoleto(ctx, "b1")
	if b1.Status != core.BoletoPaid {
		t.Errorf("b1 status = %q, want paid", b1.Status)
	}
	b2, _ := store.GetBoleto(ctx, "b2")
	if b2.Status != core.BoletoOverdue {
		t.Errorf("b2 status = %q, want overdue", b2.Status)
	}
	b3, _ := store.GetBoleto(ctx, "b3")
	if b3.Status != core.BoletoOpen {
		t.Errorf("b3 status = %q, want open (unchanged)", b3.Status)
	}
}

func TestSyncAllContinuesPastFailedCompany(t *testing.T) {
	store := storage.NewMemoryStore()
	seedBoletos(t, store)
	searcher := &fakeSearcher{
		invoices: map[string][]provider.Invoice{
			"prov-b": {{ID: "inv-3", Status: "PAID"}},
		},
		errFor: map[string]error{"prov-a": errors.New("certificate expired")},
	}
	svc := NewBoletoService(store, &fakePublisher{}, searcher, testLogger())

	report, err := svc.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("SyncAll() error = %v", err)
	}
	if report.FailedCompanies != 1 {
		t.Errorf("FailedCompanies = %d, want 1", report.FailedCompanies)
	}

	ctx := context.Background()
	// Failed company's open boletos flagged.
	b1, _ := store.GetBoleto(ctx, "b1")
	if b1.Status != core.BoletoQueryError {
		t.Errorf("b1 status = %q, want query_error", b1.Status)
	}
	// Other companies still synced.
	b3, _ := store.GetBoleto(ctx, "b3")
	if b3.Status != core.BoletoPaid {
		t.Errorf("b3 status = %q, want paid", b3.Status)
	}
}

func TestSyncAllMarksMissingInvoicesUnknown(t *testing.T) {
	store := storage.NewMemoryStore()
	seedBoletos(t, store)
	searcher := &fakeSearcher{
		invoices: map[string][]provider.Invoice{
			"prov-a": {{ID: "inv-1", Status: "PAID"}},
			"prov-b": {{ID: "inv-3", Status: "OPEN"}},
		},
	}
	svc := NewBoletoService(store, &fakePublisher{}, searcher, testLogger())

	if _, err := svc.SyncAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	b2, _ := store.GetBoleto(context.Background(), "b2")
	if b2.Status != core.BoletoUnknown {
		t.Errorf("b2 status = %q, want unknown", b2.Status)
	}
}
