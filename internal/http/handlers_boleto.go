package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"gestor/internal/core"
	"gestor/internal/storage"
)

// --- boletos ---

func (s *Server) handleListBoletos(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.BoletoFilter{
		ClientID:  q.Get("client_id"),
		CompanyID: q.Get("company_id"),
		Status:    core.BoletoStatus(q.Get("status")),
	}
	boletos, err := s.store.ListBoletos(r.Context(), filter)
	if err != nil {
		respondError(w, err)
		return
	}
	out := make([]boletoJSON, 0, len(boletos))
	for _, b := range boletos {
		out = append(out, boletoToJSON(b))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateBoleto(w http.ResponseWriter, r *http.Request) {
	var body boletoJSON
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, err)
		return
	}
	b, err := body.toCore()
	if err != nil {
		respondError(w, err)
		return
	}
	b, err = s.boletos.CreateBoleto(r.Context(), b)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, boletoToJSON(b))
}

func (s *Server) handleGetBoleto(w http.ResponseWriter, r *http.Request) {
	b, err := s.store.GetBoleto(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, boletoToJSON(b))
}

func (s *Server) handleUpdateBoleto(w http.ResponseWriter, r *http.Request) {
	var body boletoJSON
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, err)
		return
	}
	b, err := body.toCore()
	if err != nil {
		respondError(w, err)
		return
	}
	b.ID = chi.URLParam(r, "id")
	if err := b.Validate(); err != nil {
		respondError(w, err)
		return
	}
	if err := s.store.UpdateBoleto(r.Context(), b); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, boletoToJSON(b))
}

// handleDispatchBoleto queues the boleto for WhatsApp delivery; the
// worker picks it up from the queue.
func (s *Server) handleDispatchBoleto(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.boletos.Dispatch(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "queued", "boleto_id": id})
}

// handleSyncBoletos runs the provider status sync inline and returns the
// run report.
func (s *Server) handleSyncBoletos(w http.ResponseWriter, r *http.Request) {
	report, err := s.boletos.SyncAll(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// --- companies ---

func (s *Server) handleListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := s.store.ListCompanies(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	out := make([]companyJSON, 0, len(companies))
	for _, c := range companies {
		out = append(out, companyToJSON(c))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateCompany(w http.ResponseWriter, r *http.Request) {
	var body companyJSON
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, err)
		return
	}
	c := body.toCore()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Name == "" {
		respondError(w, core.ErrEmptyName)
		return
	}
	if err := s.store.CreateCompany(r.Context(), c); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, companyToJSON(c))
}

func (s *Server) handleGetCompany(w http.ResponseWriter, r *http.Request) {
	c, err := s.store.GetCompany(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, companyToJSON(c))
}

func (s *Server) handleUpdateCompany(w http.ResponseWriter, r *http.Request) {
	var body companyJSON
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, err)
		return
	}
	c := body.toCore()
	c.ID = chi.URLParam(r, "id")
	if err := s.store.UpdateCompany(r.Context(), c); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, companyToJSON(c))
}

func (s *Server) handleDeleteCompany(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteCompany(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
