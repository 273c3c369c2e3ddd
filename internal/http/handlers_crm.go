package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"gestor/internal/core"
)

// --- clients ---

func (s *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := s.store.ListClients(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	out := make([]clientJSON, 0, len(clients))
	for _, c := range clients {
		out = append(out, clientToJSON(c))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	var body clientJSON
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, err)
		return
	}
	c := body.toCore()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if err := c.Validate(); err != nil {
		respondError(w, err)
		return
	}
	if err := s.store.CreateClient(r.Context(), c); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, clientToJSON(c))
}

func (s *Server) handleGetClient(w http.ResponseWriter, r *http.Request) {
	c, err := s.store.GetClient(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, clientToJSON(c))
}

func (s *Server) handleUpdateClient(w http.ResponseWriter, r *http.Request) {
	var body clientJSON
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
	if err := s.store.UpdateClient(r.Context(), c); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, clientToJSON(c))
}

func (s *Server) handleDeleteClient(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteClient(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- contracts ---

func (s *Server) handleListContracts(w http.ResponseWriter, r *http.Request) {
	contracts, err := s.store.ListContracts(r.Context(), r.URL.Query().Get("client_id"))
	if err != nil {
		respondError(w, err)
		return
	}
	out := make([]contractJSON, 0, len(contracts))
	for _, c := range contracts {
		out = append(out, contractToJSON(c))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateContract(w http.ResponseWriter, r *http.Request) {
	var body contractJSON
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, err)
		return
	}
	c, err := body.toCore()
	if err != nil {
		respondError(w, err)
		return
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if _, err := s.store.GetClient(r.Context(), c.ClientID); err != nil {
		respondError(w, err)
		return
	}
	if err := s.store.CreateContract(r.Context(), c); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, contractToJSON(c))
}

func (s *Server) handleUpdateContract(w http.ResponseWriter, r *http.Request) {
	var body contractJSON
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, err)
		return
	}
	c, err := body.toCore()
	if err != nil {
		respondError(w, err)
		return
	}
	c.ID = chi.URLParam(r, "id")
	if err := s.store.UpdateContract(r.Context(), c); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, contractToJSON(c))
}

func (s *Server) handleDeleteContract(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteContract(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- leads ---

func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	leads, err := s.store.ListLeads(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	out := make([]leadJSON, 0, len(leads))
	for _, l := range leads {
		out = append(out, leadToJSON(l))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateLead(w http.ResponseWriter, r *http.Request) {
	var body leadJSON
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, err)
		return
	}
	l := body.toCore()
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	if err := l.Validate(); err != nil {
		respondError(w, err)
		return
	}
	if err := s.store.CreateLead(r.Context(), l); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, leadToJSON(l))
}

func (s *Server) handleUpdateLead(w http.ResponseWriter, r *http.Request) {
	var body leadJSON
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, err)
		return
	}
	l := body.toCore()
	l.ID = chi.URLParam(r, "id")
	if err := l.Validate(); err != nil {
		respondError(w, err)
		return
	}
	if err := s.store.UpdateLead(r.Context(), l); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, leadToJSON(l))
}

func (s *Server) handleDeleteLead(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteLead(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- tasks ---

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.store.ListTasks(r.Context(), r.URL.Query().Get("client_id"))
	if err != nil {
		respondError(w, err)
		return
	}
	out := make([]taskJSON, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, taskToJSON(t))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var body taskJSON
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, err)
		return
	}
	t, err := body.toCore()
	if err != nil {
		respondError(w, err)
		return
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if err := t.Validate(); err != nil {
		respondError(w, err)
		return
	}
	if err := s.store.CreateTask(r.Context(), t); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, taskToJSON(t))
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var body taskJSON
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, err)
		return
	}
	t, err := body.toCore()
	if err != nil {
		respondError(w, err)
		return
	}
	t.ID = chi.URLParam(r, "id")
	if err := t.Validate(); err != nil {
		respondError(w, err)
		return
	}
	if err := s.store.UpdateTask(r.Context(), t); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, taskToJSON(t))
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteTask(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- processes ---

func (s *Server) handleListProcesses(w http.ResponseWriter, r *http.Request) {
	processes, err := s.store.ListProcesses(r.Context(), r.URL.Query().Get("client_id"))
	if err != nil {
		respondError(w, err)
		return
	}
	out := make([]processJSON, 0, len(processes))
	for _, p := range processes {
		out = append(out, processToJSON(p))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateProcess(w http.ResponseWriter, r *http.Request) {
	var body processJSON
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, err)
		return
	}
	p, err := body.toCore()
	if err != nil {
		respondError(w, err)
		return
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if _, err := s.store.GetClient(r.Context(), p.ClientID); err != nil {
		respondError(w, err)
		return
	}
	if err := s.store.CreateProcess(r.Context(), p); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, processToJSON(p))
}

func (s *Server) handleUpdateProcess(w http.ResponseWriter, r *http.Request) {
	var body processJSON
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, err)
		return
	}
	p, err := body.toCore()
	if err != nil {
		respondError(w, err)
		return
	}
	p.ID = chi.URLParam(r, "id")
	if err := s.store.UpdateProcess(r.Context(), p); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, processToJSON(p))
}

func (s *Server) handleDeleteProcess(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteProcess(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- pricing proposals ---

func (s *Server) handleListProposals(w http.ResponseWriter, r *http.Request) {
	proposals, err := s.store.ListProposals(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	out := make([]proposalJSON, 0, len(proposals))
	for _, p := range proposals {
		out = append(out, proposalToJSON(p))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateProposal(w http.ResponseWriter, r *http.Request) {
	var body proposalJSON
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, err)
		return
	}
	p := body.toCore()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if err := p.Validate(); err != nil {
		respondError(w, err)
		return
	}
	if err := s.store.CreateProposal(r.Context(), p); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, proposalToJSON(p))
}

func (s *Server) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.GetProposal(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, proposalToJSON(p))
}

func (s *Server) handleUpdateProposal(w http.ResponseWriter, r *http.Request) {
	var body proposalJSON
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, err)
		return
	}
	p := body.toCore()
	p.ID = chi.URLParam(r, "id")
	if err := p.Validate(); err != nil {
		respondError(w, err)
		return
	}
	if err := s.store.UpdateProposal(r.Context(), p); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, proposalToJSON(p))
}

func (s *Server) handleDeleteProposal(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteProposal(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- onboarding ---

func (s *Server) handleListOnboarding(w http.ResponseWriter, r *http.Request) {
	checklists, err := s.store.ListOnboarding(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	out := make([]onboardingJSON, 0, len(checklists))
	for _, o := range checklists {
		out = append(out, onboardingToJSON(o))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateOnboarding(w http.ResponseWriter, r *http.Request) {
	var body onboardingJSON
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, err)
		return
	}
	o := body.toCore()
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	if len(o.Steps) == 0 {
		o.Steps = core.DefaultOnboardingSteps()
	}
	if _, err := s.store.GetClient(r.Context(), o.ClientID); err != nil {
		respondError(w, err)
		return
	}
	if err := s.store.CreateOnboarding(r.Context(), o); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, onboardingToJSON(o))
}

func (s *Server) handleGetOnboarding(w http.ResponseWriter, r *http.Request) {
	o, err := s.store.GetOnboarding(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, onboardingToJSON(o))
}

func (s *Server) handleUpdateOnboarding(w http.ResponseWriter, r *http.Request) {
	var body onboardingJSON
	if err := decodeJSON(r, &body); err != nil {
		badRequest(w, err)
		return
	}
	o := body.toCore()
	o.ID = chi.URLParam(r, "id")
	if err := s.store.UpdateOnboarding(r.Context(), o); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, onboardingToJSON(o))
}

func (s *Server) handleDeleteOnboarding(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteOnboarding(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
