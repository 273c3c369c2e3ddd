// Package http exposes the back-office JSON API.
package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gestor/internal/log"
	"gestor/internal/middleware/ratelimit"
	"gestor/internal/middleware/trace"
	"gestor/internal/services"
	"gestor/internal/storage"
)

// ConnectionTester is the WhatsApp gateway probe used by the test
// endpoint. Nil disables the endpoint with a 503.
type ConnectionTester interface {
	TestConnection(ctx context.Context) error
}

type Server struct {
	store    storage.Store
	cashflow *services.CashFlowService
	boletos  *services.BoletoService
	gateway  ConnectionTester
	logger   *log.Logger
	router   chi.Router
}

func NewServer(store storage.Store, cashflow *services.CashFlowService,
	boletos *services.BoletoService, gateway ConnectionTester, logger *log.Logger) *Server {

	s := &Server{
		store:    store,
		cashflow: cashflow,
		boletos:  boletos,
		gateway:  gateway,
		logger:   logger.WithComponent(log.ComponentHTTP),
	}
	s.router = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	limiter := ratelimit.NewLimiter(ratelimit.DefaultConfig())
	r.Use(trace.Middleware)
	r.Use(limiter.Middleware)
	r.Use(securityHeaders)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		// Ready once the store answers.
		if _, err := s.store.ListCompanies(r.Context()); err != nil {
			respondError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/clients", func(r chi.Router) {
			r.Get("/", s.handleListClients)
			r.Post("/", s.handleCreateClient)
			r.Get("/{id}", s.handleGetClient)
			r.Put("/{id}", s.handleUpdateClient)
			r.Delete("/{id}", s.handleDeleteClient)
		})
		r.Route("/contracts", func(r chi.Router) {
			r.Get("/", s.handleListContracts)
			r.Post("/", s.handleCreateContract)
			r.Put("/{id}", s.handleUpdateContract)
			r.Delete("/{id}", s.handleDeleteContract)
		})
		r.Route("/leads", func(r chi.Router) {
			r.Get("/", s.handleListLeads)
			r.Post("/", s.handleCreateLead)
			r.Put("/{id}", s.handleUpdateLead)
			r.Delete("/{id}", s.handleDeleteLead)
		})
		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", s.handleListTasks)
			r.Post("/", s.handleCreateTask)
			r.Put("/{id}", s.handleUpdateTask)
			r.Delete("/{id}", s.handleDeleteTask)
		})
		r.Route("/processes", func(r chi.Router) {
			r.Get("/", s.handleListProcesses)
			r.Post("/", s.handleCreateProcess)
			r.Put("/{id}", s.handleUpdateProcess)
			r.Delete("/{id}", s.handleDeleteProcess)
		})
		r.Route("/pricing", func(r chi.Router) {
			r.Get("/", s.handleListProposals)
			r.Post("/", s.handleCreateProposal)
			r.Get("/{id}", s.handleGetProposal)
			r.Put("/{id}", s.handleUpdateProposal)
			r.Delete("/{id}", s.handleDeleteProposal)
		})
		r.Route("/onboarding", func(r chi.Router) {
			r.Get("/", s.handleListOnboarding)
			r.Post("/", s.handleCreateOnboarding)
			r.Get("/{id}", s.handleGetOnboarding)
			r.Put("/{id}", s.handleUpdateOnboarding)
			r.Delete("/{id}", s.handleDeleteOnboarding)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", s.handleListCategories)
			r.Post("/", s.handleCreateCategory)
			r.Get("/tree", s.handleCategoryTree)
			r.Get("/{id}", s.handleGetCategory)
			r.Put("/{id}", s.handleUpdateCategory)
			r.Delete("/{id}", s.handleDeleteCategory)
		})
		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", s.handleListAccounts)
			r.Post("/", s.handleCreateAccount)
			r.Get("/{id}", s.handleGetAccount)
			r.Put("/{id}", s.handleUpdateAccount)
			r.Delete("/{id}", s.handleDeleteAccount)
			r.Post("/{id}/recalculate", s.handleRecalculateBalance)
		})
		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", s.handleListTransactions)
			r.Post("/", s.handleCreateTransaction)
			r.Get("/{id}", s.handleGetTransaction)
			r.Put("/{id}", s.handleUpdateTransaction)
			r.Delete("/{id}", s.handleDeleteTransaction)
			r.Post("/{id}/settle", s.handleSettleTransaction)
		})
		r.Route("/cashflow", func(r chi.Router) {
			r.Get("/projection", s.handleProjection)
			r.Get("/installments", s.handleInstallments)
			r.Get("/summary", s.handleSummary)
		})

		r.Route("/boletos", func(r chi.Router) {
			r.Get("/", s.handleListBoletos)
			r.Post("/", s.handleCreateBoleto)
			r.Post("/sync", s.handleSyncBoletos)
			r.Get("/{id}", s.handleGetBoleto)
			r.Put("/{id}", s.handleUpdateBoleto)
			r.Post("/{id}/dispatch", s.handleDispatchBoleto)
		})
		r.Route("/companies", func(r chi.Router) {
			r.Get("/", s.handleListCompanies)
			r.Post("/", s.handleCreateCompany)
			r.Get("/{id}", s.handleGetCompany)
			r.Put("/{id}", s.handleUpdateCompany)
			r.Delete("/{id}", s.handleDeleteCompany)
		})

		r.Get("/whatsapp/test", s.handleWhatsAppTest)
	})

	return r
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleWhatsAppTest(w http.ResponseWriter, r *http.Request) {
	if s.gateway == nil {
		respondJSON(w, http.StatusServiceUnavailable, errorBody{Error: "whatsapp gateway not configured"})
		return
	}
	if err := s.gateway.TestConnection(r.Context()); err != nil {
		s.logger.ErrorContext(r.Context(), "gateway probe failed", log.FieldError, err)
		respondJSON(w, http.StatusBadGateway, errorBody{Error: "gateway unreachable"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "connected"})
}
