package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gestor/internal/cache"
	"gestor/internal/core"
	"gestor/internal/ledger"
	"gestor/internal/log"
	"gestor/internal/provider"
	"gestor/internal/services"
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
	invoices []provider.Invoice
	err      error
}

func (f *fakeSearcher) SearchInvoices(ctx context.Context, providerAccountID, reference string) ([]provider.Invoice, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.invoices, nil
}

func newTestServer(t *testing.T) (*Server, *storage.MemoryStore, *fakePublisher) {
	t.Helper()
	store := storage.NewMemoryStore()
	logger := log.New(log.Config{})
	reports := cache.NewLRU[*ledger.Report](16, time.Hour)
	cashflow := services.NewCashFlowService(store, reports, core.Money{}, logger)
	publisher := &fakePublisher{}
	boletos := services.NewBoletoService(store, publisher, &fakeSearcher{}, logger)
	return NewServer(store, cashflow, boletos, nil, logger), store, publisher
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestClientLifecycle(t *testing.T) {
	srv, _, _ := newTestServer(t)
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/clients", map[string]any{
		"name": "Acme Ltda", "document": "12345678000199", "phone": "11987654321",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[clientJSON](t, rec)
	if created.ID == "" {
		t.Fatal("created client has no id")
	}
	if created.Status != string(core.ClientActive) {
		t.Errorf("Status = %q, want active default", created.Status)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/clients/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPut, "/api/clients/"+created.ID, map[string]any{
		"name": "Acme Contabilidade", "status": "inactive",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rec.Code, rec.Body.String())
	}
	updated := decodeBody[clientJSON](t, rec)
	if updated.Name != "Acme Contabilidade" || updated.Status != "inactive" {
		t.Errorf("updated = %+v", updated)
	}

	rec = doJSON(t, h, http.MethodDelete, "/api/clients/"+created.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodGet, "/api/clients/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", rec.Code)
	}
}

func TestCreateClientValidation(t *testing.T) {
	srv, _, _ := newTestServer(t)
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/clients", map[string]any{"name": "  "})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("blank name status = %d, want 422", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/clients", map[string]any{
		"name": "Acme", "bogus_field": true,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown field status = %d, want 400", rec.Code)
	}
}

func TestCategoryTreeEndpoint(t *testing.T) {
	srv, store, _ := newTestServer(t)
	h := srv.Handler()
	ctx := context.Background()

	for _, c := range []core.AccountCategory{
		{ID: "1", Name: "Receitas", GroupNumber: 1},
		{ID: "1.1", Name: "Honorários", GroupNumber: 1, ParentID: "1"},
		{ID: "2", Name: "Despesas", GroupNumber: 2},
	} {
		if err := store.CreateCategory(ctx, c); err != nil {
			t.Fatal(err)
		}
	}

	rec := doJSON(t, h, http.MethodGet, "/api/categories/tree", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	tree := decodeBody[[]categoryNodeJSON](t, rec)
	if len(tree) != 2 {
		t.Fatalf("roots = %d, want 2", len(tree))
	}
	if len(tree[0].Subcategories) != 1 || tree[0].Subcategories[0].ID != "1.1" {
		t.Errorf("tree[0] = %+v", tree[0])
	}
}

func TestCreateCategoryInheritsParentGroup(t *testing.T) {
	srv, store, _ := newTestServer(t)
	h := srv.Handler()

	if err := store.CreateCategory(context.Background(),
		core.AccountCategory{ID: "3", Name: "Administrativas", GroupNumber: 3}); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, h, http.MethodPost, "/api/categories", map[string]any{
		"id": "3.1", "name": "Pró-labore", "group_number": 1, "parent_id": "3",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[categoryJSON](t, rec)
	if created.GroupNumber != 3 {
		t.Errorf("GroupNumber = %d, want inherited 3", created.GroupNumber)
	}
}

func TestTransactionCreateAndSettle(t *testing.T) {
	srv, store, _ := newTestServer(t)
	h := srv.Handler()

	if err := store.CreateCategory(context.Background(),
		core.AccountCategory{ID: "1", Name: "Receitas", GroupNumber: 1}); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, h, http.MethodPost, "/api/transactions", map[string]any{
		"date":                "2026-03-10",
		"account_id":          "1",
		"type":                "income",
		"description":         "Honorários março",
		"future_income_cents": 250000,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[transactionJSON](t, rec)
	if created.Settlement != string(core.SettlementProjected) {
		t.Errorf("Settlement = %q, want projected", created.Settlement)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/transactions/"+created.ID+"/settle", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("settle status = %d, body %s", rec.Code, rec.Body.String())
	}
	settled := decodeBody[transactionJSON](t, rec)
	if settled.IncomeCents != 250000 || settled.FutureIncomeCents != 0 {
		t.Errorf("settled = %+v", settled)
	}
}

func TestCreateTransactionUnknownCategory(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/transactions", map[string]any{
		"date": "2026-03-10", "account_id": "nope", "type": "income",
		"description": "x", "income_cents": 100,
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestProjectionEndpoint(t *testing.T) {
	srv, store, _ := newTestServer(t)
	h := srv.Handler()
	ctx := context.Background()

	if err := store.CreateCategory(ctx,
		core.AccountCategory{ID: "1", Name: "Receitas", GroupNumber: 1}); err != nil {
		t.Fatal(err)
	}
	if err := store.CreateTransaction(ctx, core.CashFlowTransaction{
		ID: "t1", Date: core.NewDate(2026, 1, 15), AccountID: "1",
		Type: core.Income, Description: "Honorários",
		Income: core.Money{Cents: 500000},
	}); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, h, http.MethodGet, "/api/cashflow/projection?start=2026-01-01&months=2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	report := decodeBody[projectionJSON](t, rec)
	if len(report.Months) != 2 {
		t.Fatalf("months = %v", report.Months)
	}
	if report.Accumulated["2026-01"] != 500000 {
		t.Errorf("accumulated jan = %d, want 500000", report.Accumulated["2026-01"])
	}

	rec = doJSON(t, h, http.MethodGet, "/api/cashflow/projection?start=not-a-date", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad start status = %d, want 422", rec.Code)
	}
}

func TestBoletoDispatchEndpoint(t *testing.T) {
	srv, store, publisher := newTestServer(t)
	h := srv.Handler()
	ctx := context.Background()

	if err := store.CreateClient(ctx, core.Client{
		ID: "c1", Name: "Acme", Phone: "11987654321", CreatedAt: time.Now(),
	}); err != nil {
		t.Fatal(err)
	}
	if err := store.CreateBoleto(ctx, core.Boleto{
		ID: "b1", ClientID: "c1", Amount: core.Money{Cents: 123450},
		DueDate: core.NewDate(2026, 4, 10), Competencia: "2026-03",
		ProviderInvoiceID: "inv-1", Status: core.BoletoOpen,
		Dispatch: core.DispatchPending, CreatedAt: time.Now(),
	}); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, h, http.MethodPost, "/api/boletos/b1/dispatch", nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if len(publisher.published) != 1 || publisher.published[0] != "b1" {
		t.Errorf("published = %v", publisher.published)
	}

	// Second dispatch of a queued boleto conflicts.
	rec = doJSON(t, h, http.MethodPost, "/api/boletos/b1/dispatch", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("requeue status = %d, want 409", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/boletos/missing/dispatch", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing boleto status = %d, want 404", rec.Code)
	}
}

func TestSyncEndpointReportsRun(t *testing.T) {
	srv, store, _ := newTestServer(t)
	ctx := context.Background()

	if err := store.CreateCompany(ctx, core.Company{ID: "co1", Name: "Holding", ProviderID: "prov-a"}); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/boletos/sync", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	report := decodeBody[services.SyncReport](t, rec)
	if report.Companies != 1 {
		t.Errorf("report = %+v", report)
	}
}

func TestWhatsAppTestWithoutGateway(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := doJSON(t, srv.Handler(), http.MethodGet, "/api/whatsapp/test", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestDeleteCategoryInUseConflicts(t *testing.T) {
	srv, store, _ := newTestServer(t)
	ctx := context.Background()

	if err := store.CreateCategory(ctx,
		core.AccountCategory{ID: "1", Name: "Receitas", GroupNumber: 1}); err != nil {
		t.Fatal(err)
	}
	if err := store.CreateTransaction(ctx, core.CashFlowTransaction{
		ID: "t1", Date: core.NewDate(2026, 1, 15), AccountID: "1",
		Type: core.Income, Description: "x", Income: core.Money{Cents: 100},
	}); err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, srv.Handler(), http.MethodDelete, "/api/categories/1", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409, body %s", rec.Code, rec.Body.String())
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv, _, _ := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doJSON(t, srv.Handler(), http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rec.Code)
		}
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rec := doJSON(t, srv.Handler(), http.MethodGet, "/healthz", nil)
	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
	} {
		if got := rec.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
}

func TestContractListFiltersByClient(t *testing.T) {
	srv, store, _ := newTestServer(t)
	h := srv.Handler()
	ctx := context.Background()

	for _, id := range []string{"c1", "c2"} {
		if err := store.CreateClient(ctx, core.Client{ID: id, Name: "Cliente " + id, CreatedAt: time.Now()}); err != nil {
			t.Fatal(err)
		}
	}
	for i, clientID := range []string{"c1", "c1", "c2"} {
		if err := store.CreateContract(ctx, core.Contract{
			ID: fmt.Sprintf("ct%d", i), ClientID: clientID,
			Description:  "Honorários mensais",
			MonthlyValue: core.Money{Cents: 150000},
			StartDate:    core.NewDate(2026, 1, 1),
			Status:       core.ContractActive,
		}); err != nil {
			t.Fatal(err)
		}
	}

	rec := doJSON(t, h, http.MethodGet, "/api/contracts?client_id=c1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	contracts := decodeBody[[]contractJSON](t, rec)
	if len(contracts) != 2 {
		t.Errorf("contracts = %d, want 2", len(contracts))
	}
}
