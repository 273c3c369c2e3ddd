package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"gestor/internal/core"
)

// MemoryStore is an in-memory Store used by tests and handler tests. It
// mirrors the SQLite store's semantics: same sort orders, same conflict
// rules, same revision behavior.
type MemoryStore struct {
	mu sync.RWMutex

	clients    map[string]core.Client
	contracts  map[string]core.Contract
	leads      map[string]core.Lead
	tasks      map[string]core.Task
	processes  map[string]core.Process
	proposals  map[string]core.PricingProposal
	onboarding map[string]core.OnboardingChecklist
	categories map[string]core.AccountCategory
	accounts   map[string]core.FinancialAccount
	txs        map[string]core.CashFlowTransaction
	boletos    map[string]core.Boleto
	companies  map[string]core.Company

	revision atomic.Uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		clients:    make(map[string]core.Client),
		contracts:  make(map[string]core.Contract),
		leads:      make(map[string]core.Lead),
		tasks:      make(map[string]core.Task),
		processes:  make(map[string]core.Process),
		proposals:  make(map[string]core.PricingProposal),
		onboarding: make(map[string]core.OnboardingChecklist),
		categories: make(map[string]core.AccountCategory),
		accounts:   make(map[string]core.FinancialAccount),
		txs:        make(map[string]core.CashFlowTransaction),
		boletos:    make(map[string]core.Boleto),
		companies:  make(map[string]core.Company),
	}
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) Revision() uint64 { return m.revision.Load() }

// --- categories ---

func (m *MemoryStore) ListCategories(ctx context.Context) ([]core.AccountCategory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cats := make([]core.AccountCategory, 0, len(m.categories))
	for _, c := range m.categories {
		c.Account = nil
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i].ID < cats[j].ID })

	byCategory := make(map[string]*core.FinancialAccount)
	names := make([]string, 0, len(m.accounts))
	byName := make(map[string]core.FinancialAccount)
	for _, a := range m.accounts {
		names = append(names, a.Name+"\x00"+a.ID)
		byName[a.Name+"\x00"+a.ID] = a
	}
	sort.Strings(names)
	for _, n := range names {
		a := byName[n]
		if a.CategoryID != "" {
			if _, seen := byCategory[a.CategoryID]; !seen {
				acc := a
				byCategory[a.CategoryID] = &acc
			}
		}
	}
	for i := range cats {
		if a, ok := byCategory[cats[i].ID]; ok {
			cats[i].Account = a
		}
	}
	return cats, nil
}

func (m *MemoryStore) GetCategory(ctx context.Context, id string) (core.AccountCategory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.categories[id]
	if !ok {
		return core.AccountCategory{}, core.ErrNotFound
	}
	return c, nil
}

func (m *MemoryStore) CreateCategory(ctx context.Context, c core.AccountCategory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.categories[c.ID]; exists {
		return core.ErrConflict
	}
	m.categories[c.ID] = c
	m.revision.Add(1)
	return nil
}

func (m *MemoryStore) UpdateCategory(ctx context.Context, c core.AccountCategory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.categories[c.ID]; !ok {
		return core.ErrNotFound
	}
	m.categories[c.ID] = c
	m.revision.Add(1)
	return nil
}

func (m *MemoryStore) DeleteCategory(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.categories[id]; !ok {
		return core.ErrNotFound
	}
	for _, c := range m.categories {
		if c.ParentID == id {
			return fmt.Errorf("category %s has subcategories: %w", id, core.ErrConflict)
		}
	}
	for _, tx := range m.txs {
		if tx.AccountID == id {
			return fmt.Errorf("category %s has transactions: %w", id, core.ErrConflict)
		}
	}
	delete(m.categories, id)
	m.revision.Add(1)
	return nil
}

// --- financial accounts ---

func (m *MemoryStore) ListFinancialAccounts(ctx context.Context) ([]core.FinancialAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	accounts := make([]core.FinancialAccount, 0, len(m.accounts))
	for _, a := range m.accounts {
		accounts = append(accounts, a)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Name < accounts[j].Name })
	return accounts, nil
}

func (m *MemoryStore) GetFinancialAccount(ctx context.Context, id string) (core.FinancialAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[id]
	if !ok {
		return core.FinancialAccount{}, core.ErrNotFound
	}
	return a, nil
}

func (m *MemoryStore) CreateFinancialAccount(ctx context.Context, a core.FinancialAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[a.ID] = a
	m.revision.Add(1)
	return nil
}

func (m *MemoryStore) UpdateFinancialAccount(ctx context.Context, a core.FinancialAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[a.ID]; !ok {
		return core.ErrNotFound
	}
	m.accounts[a.ID] = a
	m.revision.Add(1)
	return nil
}

func (m *MemoryStore) DeleteFinancialAccount(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[id]; !ok {
		return core.ErrNotFound
	}
	delete(m.accounts, id)
	m.revision.Add(1)
	return nil
}

// --- transactions ---

func (m *MemoryStore) ListTransactions(ctx context.Context, f TransactionFilter) ([]core.CashFlowTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var txs []core.CashFlowTransaction
	for _, tx := range m.txs {
		if f.Matches(tx) {
			txs = append(txs, tx)
		}
	}
	sort.Slice(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date.Time) {
			return txs[i].Date.Before(txs[j].Date.Time)
		}
		return txs[i].ID < txs[j].ID
	})
	return txs, nil
}

func (m *MemoryStore) GetTransaction(ctx context.Context, id string) (core.CashFlowTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tx, ok := m.txs[id]
	if !ok {
		return core.CashFlowTransaction{}, core.ErrNotFound
	}
	return tx, nil
}

func (m *MemoryStore) CreateTransaction(ctx context.Context, tx core.CashFlowTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txs[tx.ID] = tx
	m.revision.Add(1)
	return nil
}

func (m *MemoryStore) UpdateTransaction(ctx context.Context, tx core.CashFlowTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.txs[tx.ID]; !ok {
		return core.ErrNotFound
	}
	m.txs[tx.ID] = tx
	m.revision.Add(1)
	return nil
}

func (m *MemoryStore) DeleteTransaction(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.txs[id]; !ok {
		return core.ErrNotFound
	}
	delete(m.txs, id)
	m.revision.Add(1)
	return nil
}

// --- clients ---

func (m *MemoryStore) ListClients(ctx context.Context) ([]core.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	clients := make([]core.Client, 0, len(m.clients))
	for _, c := range m.clients {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].Name < clients[j].Name })
	return clients, nil
}

func (m *MemoryStore) GetClient(ctx context.Context, id string) (core.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clients[id]
	if !ok {
		return core.Client{}, core.ErrNotFound
	}
	return c, nil
}

func (m *MemoryStore) CreateClient(ctx context.Context, c core.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[c.ID] = c
	return nil
}

func (m *MemoryStore) UpdateClient(ctx context.Context, c core.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients[c.ID]; !ok {
		return core.ErrNotFound
	}
	m.clients[c.ID] = c
	return nil
}

func (m *MemoryStore) DeleteClient(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients[id]; !ok {
		return core.ErrNotFound
	}
	delete(m.clients, id)
	return nil
}

// --- contracts ---

func (m *MemoryStore) ListContracts(ctx context.Context, clientID string) ([]core.Contract, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var contracts []core.Contract
	for _, c := range m.contracts {
		if clientID == "" || c.ClientID == clientID {
			contracts = append(contracts, c)
		}
	}
	sort.Slice(contracts, func(i, j int) bool {
		return contracts[i].StartDate.After(contracts[j].StartDate.Time)
	})
	return contracts, nil
}

func (m *MemoryStore) CreateContract(ctx context.Context, c core.Contract) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contracts[c.ID] = c
	return nil
}

func (m *MemoryStore) UpdateContract(ctx context.Context, c core.Contract) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.contracts[c.ID]; !ok {
		return core.ErrNotFound
	}
	m.contracts[c.ID] = c
	return nil
}

func (m *MemoryStore) DeleteContract(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.contracts[id]; !ok {
		return core.ErrNotFound
	}
	delete(m.contracts, id)
	return nil
}

// --- leads ---

func (m *MemoryStore) ListLeads(ctx context.Context) ([]core.Lead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	leads := make([]core.Lead, 0, len(m.leads))
	for _, l := range m.leads {
		leads = append(leads, l)
	}
	sort.Slice(leads, func(i, j int) bool { return leads[i].CreatedAt.After(leads[j].CreatedAt) })
	return leads, nil
}

func (m *MemoryStore) CreateLead(ctx context.Context, l core.Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leads[l.ID] = l
	return nil
}

func (m *MemoryStore) UpdateLead(ctx context.Context, l core.Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.leads[l.ID]; !ok {
		return core.ErrNotFound
	}
	m.leads[l.ID] = l
	return nil
}

func (m *MemoryStore) DeleteLead(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.leads[id]; !ok {
		return core.ErrNotFound
	}
	delete(m.leads, id)
	return nil
}

// --- tasks ---

func (m *MemoryStore) ListTasks(ctx context.Context, clientID string) ([]core.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var tasks []core.Task
	for _, t := range m.tasks {
		if clientID == "" || t.ClientID == clientID {
			tasks = append(tasks, t)
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].DueDate.Before(tasks[j].DueDate.Time) })
	return tasks, nil
}

func (m *MemoryStore) CreateTask(ctx context.Context, t core.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[t.ID] = t
	return nil
}

func (m *MemoryStore) UpdateTask(ctx context.Context, t core.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[t.ID]; !ok {
		return core.ErrNotFound
	}
	m.tasks[t.ID] = t
	return nil
}

func (m *MemoryStore) DeleteTask(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return core.ErrNotFound
	}
	delete(m.tasks, id)
	return nil
}

// --- processes ---

func (m *MemoryStore) ListProcesses(ctx context.Context, clientID string) ([]core.Process, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var processes []core.Process
	for _, p := range m.processes {
		if clientID == "" || p.ClientID == clientID {
			processes = append(processes, p)
		}
	}
	sort.Slice(processes, func(i, j int) bool {
		return processes[i].OpenedAt.After(processes[j].OpenedAt.Time)
	})
	return processes, nil
}

func (m *MemoryStore) CreateProcess(ctx context.Context, p core.Process) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processes[p.ID] = p
	return nil
}

func (m *MemoryStore) UpdateProcess(ctx context.Context, p core.Process) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.processes[p.ID]; !ok {
		return core.ErrNotFound
	}
	m.processes[p.ID] = p
	return nil
}

func (m *MemoryStore) DeleteProcess(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.processes[id]; !ok {
		return core.ErrNotFound
	}
	delete(m.processes, id)
	return nil
}

// --- proposals ---

func (m *MemoryStore) ListProposals(ctx context.Context) ([]core.PricingProposal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	proposals := make([]core.PricingProposal, 0, len(m.proposals))
	for _, p := range m.proposals {
		proposals = append(proposals, p)
	}
	sort.Slice(proposals, func(i, j int) bool {
		return proposals[i].CreatedAt.After(proposals[j].CreatedAt)
	})
	return proposals, nil
}

func (m *MemoryStore) GetProposal(ctx context.Context, id string) (core.PricingProposal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.proposals[id]
	if !ok {
		return core.PricingProposal{}, core.ErrNotFound
	}
	return p, nil
}

func (m *MemoryStore) CreateProposal(ctx context.Context, p core.PricingProposal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.proposals[p.ID] = p
	return nil
}

func (m *MemoryStore) UpdateProposal(ctx context.Context, p core.PricingProposal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.proposals[p.ID]; !ok {
		return core.ErrNotFound
	}
	m.proposals[p.ID] = p
	return nil
}

func (m *MemoryStore) DeleteProposal(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.proposals[id]; !ok {
		return core.ErrNotFound
	}
	delete(m.proposals, id)
	return nil
}

// --- onboarding ---

func (m *MemoryStore) ListOnboarding(ctx context.Context) ([]core.OnboardingChecklist, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lists := make([]core.OnboardingChecklist, 0, len(m.onboarding))
	for _, o := range m.onboarding {
		lists = append(lists, o)
	}
	sort.Slice(lists, func(i, j int) bool { return lists[i].CreatedAt.After(lists[j].CreatedAt) })
	return lists, nil
}

func (m *MemoryStore) GetOnboarding(ctx context.Context, id string) (core.OnboardingChecklist, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.onboarding[id]
	if !ok {
		return core.OnboardingChecklist{}, core.ErrNotFound
	}
	return o, nil
}

func (m *MemoryStore) CreateOnboarding(ctx context.Context, o core.OnboardingChecklist) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onboarding[o.ID] = o
	return nil
}

func (m *MemoryStore) UpdateOnboarding(ctx context.Context, o core.OnboardingChecklist) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.onboarding[o.ID]; !ok {
		return core.ErrNotFound
	}
	m.onboarding[o.ID] = o
	return nil
}

func (m *MemoryStore) DeleteOnboarding(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.onboarding[id]; !ok {
		return core.ErrNotFound
	}
	delete(m.onboarding, id)
	return nil
}

// --- boletos ---

func (m *MemoryStore) ListBoletos(ctx context.Context, f BoletoFilter) ([]core.Boleto, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var boletos []core.Boleto
	for _, b := range m.boletos {
		if f.Matches(b) {
			boletos = append(boletos, b)
		}
	}
	sort.Slice(boletos, func(i, j int) bool {
		return boletos[i].DueDate.After(boletos[j].DueDate.Time)
	})
	return boletos, nil
}

func (m *MemoryStore) GetBoleto(ctx context.Context, id string) (core.Boleto, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.boletos[id]
	if !ok {
		return core.Boleto{}, core.ErrNotFound
	}
	return b, nil
}

func (m *MemoryStore) CreateBoleto(ctx context.Context, b core.Boleto) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.boletos[b.ID] = b
	return nil
}

func (m *MemoryStore) UpdateBoleto(ctx context.Context, b core.Boleto) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.boletos[b.ID]; !ok {
		return core.ErrNotFound
	}
	m.boletos[b.ID] = b
	return nil
}

func (m *MemoryStore) UpdateBoletoStatus(ctx context.Context, id string, status core.BoletoStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.boletos[id]
	if !ok {
		return core.ErrNotFound
	}
	b.Status = status
	m.boletos[id] = b
	return nil
}

func (m *MemoryStore) UpdateBoletoDispatch(ctx context.Context, id string, state core.DispatchState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.boletos[id]
	if !ok {
		return core.ErrNotFound
	}
	b.Dispatch = state
	if state == core.DispatchSent {
		b.DispatchedAt = time.Now().UTC()
	}
	m.boletos[id] = b
	return nil
}

// --- companies ---

func (m *MemoryStore) ListCompanies(ctx context.Context) ([]core.Company, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	companies := make([]core.Company, 0, len(m.companies))
	for _, c := range m.companies {
		companies = append(companies, c)
	}
	sort.Slice(companies, func(i, j int) bool { return companies[i].Name < companies[j].Name })
	return companies, nil
}

func (m *MemoryStore) GetCompany(ctx context.Context, id string) (core.Company, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.companies[id]
	if !ok {
		return core.Company{}, core.ErrNotFound
	}
	return c, nil
}

func (m *MemoryStore) CreateCompany(ctx context.Context, c core.Company) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.companies[c.ID] = c
	return nil
}

func (m *MemoryStore) UpdateCompany(ctx context.Context, c core.Company) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.companies[c.ID]; !ok {
		return core.ErrNotFound
	}
	m.companies[c.ID] = c
	return nil
}

func (m *MemoryStore) DeleteCompany(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.companies[id]; !ok {
		return core.ErrNotFound
	}
	delete(m.companies, id)
	return nil
}

// --- backup ---

func (m *MemoryStore) Dump(ctx context.Context) (*Dump, error) {
	var d Dump
	var err error
	if d.Clients, err = m.ListClients(ctx); err != nil {
		return nil, err
	}
	if d.Contracts, err = m.ListContracts(ctx, ""); err != nil {
		return nil, err
	}
	if d.Leads, err = m.ListLeads(ctx); err != nil {
		return nil, err
	}
	if d.Tasks, err = m.ListTasks(ctx, ""); err != nil {
		return nil, err
	}
	if d.Processes, err = m.ListProcesses(ctx, ""); err != nil {
		return nil, err
	}
	if d.PricingProposals, err = m.ListProposals(ctx); err != nil {
		return nil, err
	}
	if d.ClientOnboarding, err = m.ListOnboarding(ctx); err != nil {
		return nil, err
	}
	if d.AccountCategories, err = m.ListCategories(ctx); err != nil {
		return nil, err
	}
	if d.FinancialAccounts, err = m.ListFinancialAccounts(ctx); err != nil {
		return nil, err
	}
	if d.Transactions, err = m.ListTransactions(ctx, TransactionFilter{}); err != nil {
		return nil, err
	}
	if d.Boletos, err = m.ListBoletos(ctx, BoletoFilter{}); err != nil {
		return nil, err
	}
	if d.Companies, err = m.ListCompanies(ctx); err != nil {
		return nil, err
	}
	return &d, nil
}

var _ Store = (*MemoryStore)(nil)
var _ Store = (*SQLiteStore)(nil)
