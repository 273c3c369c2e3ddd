package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gestor/internal/core"
	"gestor/internal/log"
	"gestor/internal/provider"
	"gestor/internal/storage"
)

// DispatchPublisher enqueues dispatch requests for the worker.
type DispatchPublisher interface {
	PublishBoletoDispatch(ctx context.Context, boletoID string) error
}

// InvoiceSearcher is the slice of the provider client the sync needs.
type InvoiceSearcher interface {
	SearchInvoices(ctx context.Context, providerAccountID, reference string) ([]provider.Invoice, error)
}

// SyncReport aggregates one bulk status sync run.
type SyncReport struct {
	Companies       int `json:"companies"`
	FailedCompanies int `json:"failed_companies"`
	Checked         int `json:"checked"`
	Updated         int `json:"updated"`
}

// BoletoService owns boleto lifecycle: creation, queueing for WhatsApp
// dispatch and the bulk provider status sync.
type BoletoService struct {
	store     storage.Store
	publisher DispatchPublisher
	searcher  InvoiceSearcher
	logger    *log.Logger
}

func NewBoletoService(store storage.Store, publisher DispatchPublisher,
	searcher InvoiceSearcher, logger *log.Logger) *BoletoService {
	return &BoletoService{
		store:     store,
		publisher: publisher,
		searcher:  searcher,
		logger:    logger.WithComponent(log.ComponentBoleto),
	}
}

// CreateBoleto validates and stores a new boleto in the open, pending
// dispatch state.
func (s *BoletoService) CreateBoleto(ctx context.Context, b core.Boleto) (core.Boleto, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Status == "" {
		b.Status = core.BoletoOpen
	}
	if b.Dispatch == "" {
		b.Dispatch = core.DispatchPending
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	if err := b.Validate(); err != nil {
		return core.Boleto{}, err
	}
	if _, err := s.store.GetClient(ctx, b.ClientID); err != nil {
		return core.Boleto{}, fmt.Errorf("client %s: %w", b.ClientID, err)
	}
	if err := s.store.CreateBoleto(ctx, b); err != nil {
		return core.Boleto{}, fmt.Errorf("create boleto: %w", err)
	}
	return b, nil
}

// Dispatch marks a boleto queued and publishes the dispatch request. A
// failed publish rolls the state back to pending so the boleto stays
// eligible for a retry.
func (s *BoletoService) Dispatch(ctx context.Context, boletoID string) error {
	boleto, err := s.store.GetBoleto(ctx, boletoID)
	if err != nil {
		return err
	}
	if boleto.Dispatch == core.DispatchQueued {
		return fmt.Errorf("boleto %s is already queued: %w", boletoID, core.ErrConflict)
	}

	if err := s.store.UpdateBoletoDispatch(ctx, boletoID, core.DispatchQueued); err != nil {
		return fmt.Errorf("mark boleto queued: %w", err)
	}
	if err := s.publisher.PublishBoletoDispatch(ctx, boletoID); err != nil {
		if rbErr := s.store.UpdateBoletoDispatch(ctx, boletoID, core.DispatchPending); rbErr != nil {
			s.logger.Error("failed to roll back dispatch state",
				log.FieldBoletoID, boletoID, log.FieldError, rbErr)
		}
		return fmt.Errorf("publish dispatch for boleto %s: %w", boletoID, err)
	}

	s.logger.Info("boleto queued for dispatch", log.FieldBoletoID, boletoID)
	return nil
}

// SyncAll refreshes boleto statuses from the provider, one company at a
// time. A failed provider query marks that company's boletos query_error
// and moves on; one broken credential must not stall the rest.
func (s *BoletoService) SyncAll(ctx context.Context) (SyncReport, error) {
	companies, err := s.store.ListCompanies(ctx)
	if err != nil {
		return SyncReport{}, fmt.Errorf("list companies: %w", err)
	}

	report := SyncReport{Companies: len(companies)}
	for _, company := range companies {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		checked, updated, err := s.syncCompany(ctx, company)
		report.Checked += checked
		report.Updated += updated
		if err != nil {
			report.FailedCompanies++
			s.logger.Error("company sync failed",
				log.FieldCompanyID, company.ID, log.FieldError, err)
		}
	}

	s.logger.Info("boleto status sync finished",
		"companies", report.Companies,
		"failed_companies", report.FailedCompanies,
		"checked", report.Checked,
		"updated", report.Updated)
	return report, nil
}

func (s *BoletoService) syncCompany(ctx context.Context, company core.Company) (checked, updated int, err error) {
	boletos, err := s.store.ListBoletos(ctx, storage.BoletoFilter{CompanyID: company.ID})
	if err != nil {
		return 0, 0, fmt.Errorf("list boletos: %w", err)
	}
	if len(boletos) == 0 {
		return 0, 0, nil
	}

	invoices, err := s.searcher.SearchInvoices(ctx, company.ProviderID, "")
	if err != nil {
		// The provider answer for this company is unusable; flag its
		// boletos so the stale status is visible.
		for _, b := range boletos {
			if b.Status == core.BoletoPaid || b.Status == core.BoletoCancelled {
				continue
			}
			if uerr := s.store.UpdateBoletoStatus(ctx, b.ID, core.BoletoQueryError); uerr != nil {
				s.logger.Error("failed to flag boleto after query error",
					log.FieldBoletoID, b.ID, log.FieldError, uerr)
			}
		}
		return len(boletos), 0, fmt.Errorf("search invoices: %w", err)
	}

	statusByInvoice := make(map[string]core.BoletoStatus, len(invoices))
	for _, inv := range invoices {
		statusByInvoice[inv.ID] = provider.MapStatus(inv.Status)
	}

	for _, b := range boletos {
		checked++
		if b.ProviderInvoiceID == "" {
			continue
		}
		status, found := statusByInvoice[b.ProviderInvoiceID]
		if !found {
			status = core.BoletoUnknown
		}
		if status == b.Status {
			continue
		}
		if err := s.store.UpdateBoletoStatus(ctx, b.ID, status); err != nil {
			s.logger.Error("failed to update boleto status",
				log.FieldBoletoID, b.ID, log.FieldError, err)
			continue
		}
		updated++
	}
	return checked, updated, nil
}
