package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"gestor/internal/core"
	"gestor/internal/storage"
)

// --- categories ---

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.store.ListCategories(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	out := make([]categoryJSON, 0, len(cats))
	for _, c := range cats {
		out = append(out, categoryToJSON(c))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var body categoryJSON
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, err)
		return
	}
	c, err := s.cashflow.CreateCategory(r.Context(), body.toCore())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, categoryToJSON(c))
}

func (s *Server) handleCategoryTree(w http.ResponseWriter, r *http.Request) {
	tree, err := s.cashflow.CategoryTree(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, treeToJSON(tree))
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	c, err := s.store.GetCategory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, categoryToJSON(c))
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var body categoryJSON
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, err)
		return
	}
	c := body.toCore()
	c.ID = chi.URLParam(r, "id")
	if err := c.Validate(); err != nil {
		respondError(w, err)
		return
	}
	if err := s.store.UpdateCategory(r.Context(), c); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, categoryToJSON(c))
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteCategory(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- financial accounts ---

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.store.ListFinancialAccounts(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	out := make([]accountJSON, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, accountToJSON(a))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var body accountJSON
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, err)
		return
	}
	a, err := s.cashflow.CreateFinancialAccount(r.Context(), body.toCore())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, accountToJSON(a))
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	a, err := s.store.GetFinancialAccount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, accountToJSON(a))
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	var body accountJSON
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, err)
		return
	}
	a := body.toCore()
	a.ID = chi.URLParam(r, "id")
	if err := a.Validate(); err != nil {
		respondError(w, err)
		return
	}
	if err := s.store.UpdateFinancialAccount(r.Context(), a); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, accountToJSON(a))
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteFinancialAccount(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRecalculateBalance(w http.ResponseWriter, r *http.Request) {
	a, err := s.cashflow.RecalculateBalance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, accountToJSON(a))
}

// --- transactions ---

func transactionFilterFromQuery(r *http.Request) (storage.TransactionFilter, error) {
	q := r.URL.Query()
	from, err := parseDate(q.Get("from"))
	if err != nil {
		return storage.TransactionFilter{}, err
	}
	to, err := parseDate(q.Get("to"))
	if err != nil {
		return storage.TransactionFilter{}, err
	}
	return storage.TransactionFilter{
		From:               from,
		To:                 to,
		AccountID:          q.Get("account_id"),
		FinancialAccountID: q.Get("financial_account_id"),
		ClientID:           q.Get("client_id"),
	}, nil
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := transactionFilterFromQuery(r)
	if err != nil {
		respondError(w, err)
		return
	}
	txs, err := s.store.ListTransactions(r.Context(), filter)
	if err != nil {
		respondError(w, err)
		return
	}
	out := make([]transactionJSON, 0, len(txs))
	for _, tx := range txs {
		out = append(out, transactionToJSON(tx))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var body transactionJSON
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, err)
		return
	}
	tx, err := body.toCore()
	if err != nil {
		respondError(w, err)
		return
	}
	tx, err = s.cashflow.CreateTransaction(r.Context(), tx)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, transactionToJSON(tx))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.store.GetTransaction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, transactionToJSON(tx))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var body transactionJSON
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, err)
		return
	}
	tx, err := body.toCore()
	if err != nil {
		respondError(w, err)
		return
	}
	tx.ID = chi.URLParam(r, "id")
	tx, err = s.cashflow.UpdateTransaction(r.Context(), tx)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, transactionToJSON(tx))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteTransaction(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSettleTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.cashflow.SettleTransaction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, transactionToJSON(tx))
}

// --- cash-flow reports ---

func (s *Server) handleProjection(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err := parseDate(q.Get("start"))
	if err != nil {
		respondError(w, err)
		return
	}
	if start.IsZero() {
		start = core.Date{Time: time.Now().UTC()}
	}
	months := 0
	if raw := q.Get("months"); raw != "" {
		months, err = strconv.Atoi(raw)
		if err != nil {
			badRequest(w, err)
			return
		}
	}
	report, err := s.cashflow.Projection(r.Context(), start, months)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, projectionToJSON(report))
}

func (s *Server) handleInstallments(w http.ResponseWriter, r *http.Request) {
	groups, err := s.cashflow.Installments(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, installmentsToJSON(groups))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	filter, err := transactionFilterFromQuery(r)
	if err != nil {
		respondError(w, err)
		return
	}
	summary, err := s.cashflow.Summary(r.Context(), filter)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summaryToJSON(summary))
}
