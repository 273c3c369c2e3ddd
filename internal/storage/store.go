// Package storage persists the back-office schema. The SQLite store is
// the production implementation; the memory store backs tests. Rows are
// mapped to core types at this boundary so nothing loosely typed leaks
// into services or the ledger engine.
package storage

import (
	"context"

	"gestor/internal/core"
)

// TransactionFilter narrows ListTransactions. Zero values mean "any".
type TransactionFilter struct {
	From               core.Date
	To                 core.Date
	AccountID          string
	FinancialAccountID string
	ClientID           string
}

// Matches reports whether a transaction passes the filter.
func (f TransactionFilter) Matches(tx core.CashFlowTransaction) bool {
	if !f.From.IsZero() && tx.Date.Before(f.From.Time) {
		return false
	}
	if !f.To.IsZero() && tx.Date.After(f.To.Time) {
		return false
	}
	if f.AccountID != "" && tx.AccountID != f.AccountID {
		return false
	}
	if f.FinancialAccountID != "" && tx.FinancialAccountID != f.FinancialAccountID {
		return false
	}
	if f.ClientID != "" && tx.ClientID != f.ClientID {
		return false
	}
	return true
}

// BoletoFilter narrows ListBoletos. Zero values mean "any".
type BoletoFilter struct {
	ClientID  string
	CompanyID string
	Status    core.BoletoStatus
}

func (f BoletoFilter) Matches(b core.Boleto) bool {
	if f.ClientID != "" && b.ClientID != f.ClientID {
		return false
	}
	if f.CompanyID != "" && b.CompanyID != f.CompanyID {
		return false
	}
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	return true
}

// LedgerStore is the chart-of-accounts and transaction surface consumed
// by the cash-flow service. Categories come back sorted by ID with their
// linked financial account attached.
type LedgerStore interface {
	ListCategories(ctx context.Context) ([]core.AccountCategory, error)
	GetCategory(ctx context.Context, id string) (core.AccountCategory, error)
	CreateCategory(ctx context.Context, c core.AccountCategory) error
	UpdateCategory(ctx context.Context, c core.AccountCategory) error
	// DeleteCategory refuses with core.ErrConflict when the category has
	// children or transactions reference it.
	DeleteCategory(ctx context.Context, id string) error

	ListFinancialAccounts(ctx context.Context) ([]core.FinancialAccount, error)
	GetFinancialAccount(ctx context.Context, id string) (core.FinancialAccount, error)
	CreateFinancialAccount(ctx context.Context, a core.FinancialAccount) error
	UpdateFinancialAccount(ctx context.Context, a core.FinancialAccount) error
	DeleteFinancialAccount(ctx context.Context, id string) error

	ListTransactions(ctx context.Context, f TransactionFilter) ([]core.CashFlowTransaction, error)
	GetTransaction(ctx context.Context, id string) (core.CashFlowTransaction, error)
	CreateTransaction(ctx context.Context, tx core.CashFlowTransaction) error
	UpdateTransaction(ctx context.Context, tx core.CashFlowTransaction) error
	DeleteTransaction(ctx context.Context, id string) error

	// Revision increases on every ledger write; projection reports are
	// memoized per revision so any write invalidates them.
	Revision() uint64
}

// CRMStore is the plain CRUD surface for back-office rows.
type CRMStore interface {
	ListClients(ctx context.Context) ([]core.Client, error)
	GetClient(ctx context.Context, id string) (core.Client, error)
	CreateClient(ctx context.Context, c core.Client) error
	UpdateClient(ctx context.Context, c core.Client) error
	DeleteClient(ctx context.Context, id string) error

	ListContracts(ctx context.Context, clientID string) ([]core.Contract, error)
	CreateContract(ctx context.Context, c core.Contract) error
	UpdateContract(ctx context.Context, c core.Contract) error
	DeleteContract(ctx context.Context, id string) error

	ListLeads(ctx context.Context) ([]core.Lead, error)
	CreateLead(ctx context.Context, l core.Lead) error
	UpdateLead(ctx context.Context, l core.Lead) error
	DeleteLead(ctx context.Context, id string) error

	ListTasks(ctx context.Context, clientID string) ([]core.Task, error)
	CreateTask(ctx context.Context, t core.Task) error
	UpdateTask(ctx context.Context, t core.Task) error
	DeleteTask(ctx context.Context, id string) error

	ListProcesses(ctx context.Context, clientID string) ([]core.Process, error)
	CreateProcess(ctx context.Context, p core.Process) error
	UpdateProcess(ctx context.Context, p core.Process) error
	DeleteProcess(ctx context.Context, id string) error

	ListProposals(ctx context.Context) ([]core.PricingProposal, error)
	GetProposal(ctx context.Context, id string) (core.PricingProposal, error)
	CreateProposal(ctx context.Context, p core.PricingProposal) error
	UpdateProposal(ctx context.Context, p core.PricingProposal) error
	DeleteProposal(ctx context.Context, id string) error

	ListOnboarding(ctx context.Context) ([]core.OnboardingChecklist, error)
	GetOnboarding(ctx context.Context, id string) (core.OnboardingChecklist, error)
	CreateOnboarding(ctx context.Context, o core.OnboardingChecklist) error
	UpdateOnboarding(ctx context.Context, o core.OnboardingChecklist) error
	DeleteOnboarding(ctx context.Context, id string) error
}

// BoletoStore is the boleto and company surface used by the dispatch and
// sync flows.
type BoletoStore interface {
	ListBoletos(ctx context.Context, f BoletoFilter) ([]core.Boleto, error)
	GetBoleto(ctx context.Context, id string) (core.Boleto, error)
	CreateBoleto(ctx context.Context, b core.Boleto) error
	UpdateBoleto(ctx context.Context, b core.Boleto) error
	UpdateBoletoStatus(ctx context.Context, id string, status core.BoletoStatus) error
	UpdateBoletoDispatch(ctx context.Context, id string, state core.DispatchState) error

	ListCompanies(ctx context.Context) ([]core.Company, error)
	GetCompany(ctx context.Context, id string) (core.Company, error)
	CreateCompany(ctx context.Context, c core.Company) error
	UpdateCompany(ctx context.Context, c core.Company) error
	DeleteCompany(ctx context.Context, id string) error
}

// Store is the full persistence surface.
type Store interface {
	LedgerStore
	CRMStore
	BoletoStore

	// Dump reads every table for the backup CLI.
	Dump(ctx context.Context) (*Dump, error)

	Close() error
}

// Dump is a full-schema snapshot, one slice per table.
type Dump struct {
	Clients           []core.Client              `json:"clients"`
	Contracts         []core.Contract            `json:"contracts"`
	Leads             []core.Lead                `json:"leads"`
	Tasks             []core.Task                `json:"tasks"`
	Processes         []core.Process             `json:"processes"`
	PricingProposals  []core.PricingProposal     `json:"pricing_proposals"`
	ClientOnboarding  []core.OnboardingChecklist `json:"client_onboarding"`
	AccountCategories []core.AccountCategory     `json:"account_categories"`
	FinancialAccounts []core.FinancialAccount    `json:"financial_accounts"`
	Transactions      []core.CashFlowTransaction `json:"cash_flow_transactions"`
	Boletos           []core.Boleto              `json:"boletos"`
	Companies         []core.Company             `json:"companies"`
}
