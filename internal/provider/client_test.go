package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"gestor/internal/core"
	"gestor/internal/log"
)

func testLogger() *log.Logger {
	return log.New(log.Config{Component: log.ComponentProvider})
}

func newTestServer(t *testing.T, tokenCalls *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /oauth/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls.Add(1)
		if r.FormValue("grant_type") != "client_credentials" {
			http.Error(w, "bad grant", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-123",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("GET /v1/invoices", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-123" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"invoices": []Invoice{
				{ID: "inv-1", Amount: "1.234,50", DueDate: "2026-04-10", Status: "OPEN", Reference: r.URL.Query().Get("reference")},
				{ID: "inv-2", Amount: "900,00", DueDate: "2026-03-10", Status: "LATE"},
			},
		})
	})
	mux.HandleFunc("GET /v1/invoices/inv-1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Invoice{ID: "inv-1", Amount: "1.234,50", DueDate: "2026-04-10", Status: "OPEN"})
	})
	mux.HandleFunc("GET /v1/invoices/inv-1/pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("%PDF-1.4 fake"))
	})
	return httptest.NewServer(mux)
}

func TestSearchInvoicesCachesToken(t *testing.T) {
	var tokenCalls atomic.Int32
	srv := newTestServer(t, &tokenCalls)
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, ClientID: "id", Secret: "secret"}, testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		invoices, err := c.SearchInvoices(ctx, "acct-1", "2026-03")
		if err != nil {
			t.Fatalf("SearchInvoices() error = %v", err)
		}
		if len(invoices) != 2 {
			t.Fatalf("got %d invoices, want 2", len(invoices))
		}
		if invoices[0].Reference != "2026-03" {
			t.Errorf("reference not forwarded: %q", invoices[0].Reference)
		}
	}

	if n := tokenCalls.Load(); n != 1 {
		t.Errorf("token requested %d times, want 1 (cached)", n)
	}
}

func TestInvoiceAmountCents(t *testing.T) {
	inv := Invoice{Amount: "1.234,50"}
	cents, err := inv.AmountCents()
	if err != nil {
		t.Fatalf("AmountCents() error = %v", err)
	}
	if cents != 123450 {
		t.Errorf("AmountCents() = %d, want 123450", cents)
	}
}

func TestDownloadPDF(t *testing.T) {
	var tokenCalls atomic.Int32
	srv := newTestServer(t, &tokenCalls)
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, ClientID: "id", Secret: "secret"}, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	pdf, err := c.DownloadPDF(context.Background(), "inv-1")
	if err != nil {
		t.Fatalf("DownloadPDF() error = %v", err)
	}
	if len(pdf) == 0 {
		t.Error("empty pdf")
	}
}

func TestDownloadPDFMissingInvoice(t *testing.T) {
	var tokenCalls atomic.Int32
	srv := newTestServer(t, &tokenCalls)
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, ClientID: "id", Secret: "secret"}, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.DownloadPDF(context.Background(), "inv-404"); err == nil {
		t.Error("expected error for missing invoice")
	}
}

func TestGetInvoice(t *testing.T) {
	var tokenCalls atomic.Int32
	srv := newTestServer(t, &tokenCalls)
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, ClientID: "id", Secret: "secret"}, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	inv, err := c.GetInvoice(context.Background(), "inv-1")
	if err != nil {
		t.Fatalf("GetInvoice() error = %v", err)
	}
	if inv.ID != "inv-1" || inv.Status != "OPEN" {
		t.Errorf("invoice = %+v", inv)
	}
}

func TestMapStatus(t *testing.T) {
	tests := []struct {
		in   string
		want core.BoletoStatus
	}{
		{"OPEN", core.BoletoOpen},
		{"open", core.BoletoOpen},
		{"LATE", core.BoletoOverdue},
		{"OVERDUE", core.BoletoOverdue},
		{"PAID", core.BoletoPaid},
		{"CANCELLED", core.BoletoCancelled},
		{"PROCESSING", core.BoletoUnknown},
		{"", core.BoletoUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := MapStatus(tt.in); got != tt.want {
				t.Errorf("MapStatus(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
