package http

import (
	"fmt"
	"time"

	"gestor/internal/core"
	"gestor/internal/ledger"
)

// Wire representations. Money travels as integer cents; dates as
// "2006-01-02" strings, empty when unset; timestamps as RFC3339.

const dateLayout = "2006-01-02"

func dateString(d core.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func parseDate(s string) (core.Date, error) {
	if s == "" {
		return core.Date{}, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return core.Date{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD: %w", s, core.ErrInvalidDate)
	}
	return core.Date{Time: t}, nil
}

// --- clients ---

type clientJSON struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Document    string    `json:"document"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	CompanyName string    `json:"company_name"`
	Competencia string    `json:"competencia"`
	Status      string    `json:"status"`
	Notes       string    `json:"notes"`
	CreatedAt   time.Time `json:"created_at"`
}

func clientToJSON(c core.Client) clientJSON {
	return clientJSON{
		ID: c.ID, Name: c.Name, Document: c.Document, Email: c.Email, Phone: c.Phone,
		CompanyName: c.CompanyName, Competencia: c.Competencia,
		Status: string(c.Status), Notes: c.Notes, CreatedAt: c.CreatedAt,
	}
}

func (j clientJSON) toCore() core.Client {
	status := core.ClientStatus(j.Status)
	if status == "" {
		status = core.ClientActive
	}
	return core.Client{
		ID: j.ID, Name: j.Name, Document: j.Document, Email: j.Email, Phone: j.Phone,
		CompanyName: j.CompanyName, Competencia: j.Competencia,
		Status: status, Notes: j.Notes, CreatedAt: j.CreatedAt,
	}
}

// --- contracts ---

type contractJSON struct {
	ID                string `json:"id"`
	ClientID          string `json:"client_id"`
	Description       string `json:"description"`
	MonthlyValueCents int64  `json:"monthly_value_cents"`
	StartDate         string `json:"start_date"`
	EndDate           string `json:"end_date,omitempty"`
	Status            string `json:"status"`
}

func contractToJSON(c core.Contract) contractJSON {
	return contractJSON{
		ID: c.ID, ClientID: c.ClientID, Description: c.Description,
		MonthlyValueCents: c.MonthlyValue.Cents,
		StartDate:         dateString(c.StartDate), EndDate: dateString(c.EndDate),
		Status: string(c.Status),
	}
}

func (j contractJSON) toCore() (core.Contract, error) {
	start, err := parseDate(j.StartDate)
	if err != nil {
		return core.Contract{}, err
	}
	end, err := parseDate(j.EndDate)
	if err != nil {
		return core.Contract{}, err
	}
	status := core.ContractStatus(j.Status)
	if status == "" {
		status = core.ContractActive
	}
	return core.Contract{
		ID: j.ID, ClientID: j.ClientID, Description: j.Description,
		MonthlyValue: core.Money{Cents: j.MonthlyValueCents},
		StartDate:    start, EndDate: end, Status: status,
	}, nil
}

// --- leads ---

type leadJSON struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	Source    string    `json:"source"`
	Stage     string    `json:"stage"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}

func leadToJSON(l core.Lead) leadJSON {
	return leadJSON{
		ID: l.ID, Name: l.Name, Phone: l.Phone, Email: l.Email,
		Source: l.Source, Stage: string(l.Stage), Notes: l.Notes, CreatedAt: l.CreatedAt,
	}
}

func (j leadJSON) toCore() core.Lead {
	stage := core.LeadStage(j.Stage)
	if stage == "" {
		stage = core.LeadNew
	}
	return core.Lead{
		ID: j.ID, Name: j.Name, Phone: j.Phone, Email: j.Email,
		Source: j.Source, Stage: stage, Notes: j.Notes, CreatedAt: j.CreatedAt,
	}
}

// --- tasks ---

type taskJSON struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	ClientID    string `json:"client_id,omitempty"`
	AssignedTo  string `json:"assigned_to"`
	DueDate     string `json:"due_date,omitempty"`
	Status      string `json:"status"`
	Description string `json:"description"`
}

func taskToJSON(t core.Task) taskJSON {
	return taskJSON{
		ID: t.ID, Title: t.Title, ClientID: t.ClientID, AssignedTo: t.AssignedTo,
		DueDate: dateString(t.DueDate), Status: string(t.Status), Description: t.Description,
	}
}

func (j taskJSON) toCore() (core.Task, error) {
	due, err := parseDate(j.DueDate)
	if err != nil {
		return core.Task{}, err
	}
	status := core.TaskStatus(j.Status)
	if status == "" {
		status = core.TaskOpen
	}
	return core.Task{
		ID: j.ID, Title: j.Title, ClientID: j.ClientID, AssignedTo: j.AssignedTo,
		DueDate: due, Status: status, Description: j.Description,
	}, nil
}

// --- processes ---

type processJSON struct {
	ID       string `json:"id"`
	ClientID string `json:"client_id"`
	Kind     string `json:"kind"`
	Protocol string `json:"protocol"`
	Status   string `json:"status"`
	OpenedAt string `json:"opened_at,omitempty"`
	ClosedAt string `json:"closed_at,omitempty"`
	Notes    string `json:"notes"`
}

func processToJSON(p core.Process) processJSON {
	return processJSON{
		ID: p.ID, ClientID: p.ClientID, Kind: p.Kind, Protocol: p.Protocol,
		Status: p.Status, OpenedAt: dateString(p.OpenedAt), ClosedAt: dateString(p.ClosedAt),
		Notes: p.Notes,
	}
}

func (j processJSON) toCore() (core.Process, error) {
	opened, err := parseDate(j.OpenedAt)
	if err != nil {
		return core.Process{}, err
	}
	closed, err := parseDate(j.ClosedAt)
	if err != nil {
		return core.Process{}, err
	}
	return core.Process{
		ID: j.ID, ClientID: j.ClientID, Kind: j.Kind, Protocol: j.Protocol,
		Status: j.Status, OpenedAt: opened, ClosedAt: closed, Notes: j.Notes,
	}, nil
}

// --- pricing proposals ---

type proposalItemJSON struct {
	Description string `json:"description"`
	AmountCents int64  `json:"amount_cents"`
}

type proposalJSON struct {
	ID            string             `json:"id"`
	LeadID        string             `json:"lead_id,omitempty"`
	ClientID      string             `json:"client_id,omitempty"`
	Items         []proposalItemJSON `json:"items"`
	DiscountCents int64              `json:"discount_cents"`
	Accepted      bool               `json:"accepted"`
	CreatedAt     time.Time          `json:"created_at"`
	TotalCents    int64              `json:"total_cents"`
}

func proposalToJSON(p core.PricingProposal) proposalJSON {
	items := make([]proposalItemJSON, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, proposalItemJSON{Description: it.Description, AmountCents: it.Amount.Cents})
	}
	return proposalJSON{
		ID: p.ID, LeadID: p.LeadID, ClientID: p.ClientID, Items: items,
		DiscountCents: p.Discount.Cents, Accepted: p.Accepted, CreatedAt: p.CreatedAt,
		TotalCents: p.Total().Cents,
	}
}

func (j proposalJSON) toCore() core.PricingProposal {
	items := make([]core.PricingServiceItem, 0, len(j.Items))
	for _, it := range j.Items {
		items = append(items, core.PricingServiceItem{
			Description: it.Description,
			Amount:      core.Money{Cents: it.AmountCents},
		})
	}
	return core.PricingProposal{
		ID: j.ID, LeadID: j.LeadID, ClientID: j.ClientID, Items: items,
		Discount: core.Money{Cents: j.DiscountCents}, Accepted: j.Accepted,
		CreatedAt: j.CreatedAt,
	}
}

// --- onboarding ---

type onboardingStepJSON struct {
	Name string `json:"name"`
	Done bool   `json:"done"`
}

type onboardingJSON struct {
	ID        string               `json:"id"`
	ClientID  string               `json:"client_id"`
	Steps     []onboardingStepJSON `json:"steps"`
	CreatedAt time.Time            `json:"created_at"`
	Complete  bool                 `json:"complete"`
}

func onboardingToJSON(o core.OnboardingChecklist) onboardingJSON {
	steps := make([]onboardingStepJSON, 0, len(o.Steps))
	for _, s := range o.Steps {
		steps = append(steps, onboardingStepJSON{Name: s.Name, Done: s.Done})
	}
	return onboardingJSON{
		ID: o.ID, ClientID: o.ClientID, Steps: steps,
		CreatedAt: o.CreatedAt, Complete: o.Complete(),
	}
}

func (j onboardingJSON) toCore() core.OnboardingChecklist {
	steps := make([]core.OnboardingStep, 0, len(j.Steps))
	for _, s := range j.Steps {
		steps = append(steps, core.OnboardingStep{Name: s.Name, Done: s.Done})
	}
	return core.OnboardingChecklist{
		ID: j.ID, ClientID: j.ClientID, Steps: steps, CreatedAt: j.CreatedAt,
	}
}

// --- categories / accounts ---

type accountJSON struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Type                string `json:"type"`
	InitialBalanceCents int64  `json:"initial_balance_cents"`
	CurrentBalanceCents int64  `json:"current_balance_cents"`
	CategoryID          string `json:"category_id,omitempty"`
}

func accountToJSON(a core.FinancialAccount) accountJSON {
	return accountJSON{
		ID: a.ID, Name: a.Name, Type: string(a.Type),
		InitialBalanceCents: a.InitialBalance.Cents,
		CurrentBalanceCents: a.CurrentBalance.Cents,
		CategoryID:          a.CategoryID,
	}
}

func (j accountJSON) toCore() core.FinancialAccount {
	return core.FinancialAccount{
		ID: j.ID, Name: j.Name, Type: core.AccountType(j.Type),
		InitialBalance: core.Money{Cents: j.InitialBalanceCents},
		CurrentBalance: core.Money{Cents: j.CurrentBalanceCents},
		CategoryID:     j.CategoryID,
	}
}

type categoryJSON struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	GroupNumber int          `json:"group_number"`
	ParentID    string       `json:"parent_id,omitempty"`
	Account     *accountJSON `json:"account,omitempty"`
}

func categoryToJSON(c core.AccountCategory) categoryJSON {
	j := categoryJSON{ID: c.ID, Name: c.Name, GroupNumber: c.GroupNumber, ParentID: c.ParentID}
	if c.Account != nil {
		a := accountToJSON(*c.Account)
		j.Account = &a
	}
	return j
}

func (j categoryJSON) toCore() core.AccountCategory {
	return core.AccountCategory{ID: j.ID, Name: j.Name, GroupNumber: j.GroupNumber, ParentID: j.ParentID}
}

type categoryNodeJSON struct {
	categoryJSON
	Subcategories []categoryNodeJSON `json:"subcategories"`
}

func treeToJSON(nodes []*ledger.CategoryNode) []categoryNodeJSON {
	out := make([]categoryNodeJSON, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, categoryNodeJSON{
			categoryJSON:  categoryToJSON(n.AccountCategory),
			Subcategories: treeToJSON(n.Subcategories),
		})
	}
	return out
}

// --- transactions ---

type transactionJSON struct {
	ID                 string `json:"id"`
	Date               string `json:"date"`
	AccountID          string `json:"account_id"`
	Type               string `json:"type"`
	Description        string `json:"description"`
	ValueCents         int64  `json:"value_cents"`
	IncomeCents        int64  `json:"income_cents"`
	ExpenseCents       int64  `json:"expense_cents"`
	FutureIncomeCents  int64  `json:"future_income_cents"`
	FutureExpenseCents int64  `json:"future_expense_cents"`
	FinancialAccountID string `json:"financial_account_id,omitempty"`
	OriginDestination  string `json:"origin_destination"`
	ClientID           string `json:"client_id,omitempty"`
	Notes              string `json:"notes"`
	Settlement         string `json:"settlement"`
}

func transactionToJSON(tx core.CashFlowTransaction) transactionJSON {
	return transactionJSON{
		ID: tx.ID, Date: dateString(tx.Date), AccountID: tx.AccountID,
		Type: string(tx.Type), Description: tx.Description,
		ValueCents:  tx.Value.Cents,
		IncomeCents: tx.Income.Cents, ExpenseCents: tx.Expense.Cents,
		FutureIncomeCents: tx.FutureIncome.Cents, FutureExpenseCents: tx.FutureExpense.Cents,
		FinancialAccountID: tx.FinancialAccountID, OriginDestination: tx.OriginDestination,
		ClientID: tx.ClientID, Notes: tx.Notes,
		Settlement: string(tx.Settlement()),
	}
}

func (j transactionJSON) toCore() (core.CashFlowTransaction, error) {
	date, err := parseDate(j.Date)
	if err != nil {
		return core.CashFlowTransaction{}, err
	}
	return core.CashFlowTransaction{
		ID: j.ID, Date: date, AccountID: j.AccountID,
		Type: core.TransactionType(j.Type), Description: j.Description,
		Value:  core.Money{Cents: j.ValueCents},
		Income: core.Money{Cents: j.IncomeCents}, Expense: core.Money{Cents: j.ExpenseCents},
		FutureIncome:  core.Money{Cents: j.FutureIncomeCents},
		FutureExpense: core.Money{Cents: j.FutureExpenseCents},
		FinancialAccountID: j.FinancialAccountID, OriginDestination: j.OriginDestination,
		ClientID: j.ClientID, Notes: j.Notes,
	}, nil
}

// --- boletos / companies ---

type boletoJSON struct {
	ID                string     `json:"id"`
	ClientID          string     `json:"client_id"`
	CompanyID         string     `json:"company_id,omitempty"`
	AmountCents       int64      `json:"amount_cents"`
	DueDate           string     `json:"due_date"`
	Competencia       string     `json:"competencia"`
	ProviderInvoiceID string     `json:"provider_invoice_id"`
	Status            string     `json:"status"`
	Dispatch          string     `json:"dispatch"`
	DispatchedAt      *time.Time `json:"dispatched_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

func boletoToJSON(b core.Boleto) boletoJSON {
	j := boletoJSON{
		ID: b.ID, ClientID: b.ClientID, CompanyID: b.CompanyID,
		AmountCents: b.Amount.Cents, DueDate: dateString(b.DueDate),
		Competencia: b.Competencia, ProviderInvoiceID: b.ProviderInvoiceID,
		Status: string(b.Status), Dispatch: string(b.Dispatch), CreatedAt: b.CreatedAt,
	}
	if !b.DispatchedAt.IsZero() {
		t := b.DispatchedAt
		j.DispatchedAt = &t
	}
	return j
}

func (j boletoJSON) toCore() (core.Boleto, error) {
	due, err := parseDate(j.DueDate)
	if err != nil {
		return core.Boleto{}, err
	}
	return core.Boleto{
		ID: j.ID, ClientID: j.ClientID, CompanyID: j.CompanyID,
		Amount: core.Money{Cents: j.AmountCents}, DueDate: due,
		Competencia: j.Competencia, ProviderInvoiceID: j.ProviderInvoiceID,
		Status: core.BoletoStatus(j.Status), Dispatch: core.DispatchState(j.Dispatch),
		CreatedAt: j.CreatedAt,
	}, nil
}

type companyJSON struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Document   string `json:"document"`
	ProviderID string `json:"provider_id"`
}

func companyToJSON(c core.Company) companyJSON {
	return companyJSON{ID: c.ID, Name: c.Name, Document: c.Document, ProviderID: c.ProviderID}
}

func (j companyJSON) toCore() core.Company {
	return core.Company{ID: j.ID, Name: j.Name, Document: j.Document, ProviderID: j.ProviderID}
}

// --- ledger reports ---

type cellJSON struct {
	ProjectedCents int64  `json:"projected_cents"`
	ExecutedCents  int64  `json:"executed_cents"`
	TotalCents     int64  `json:"total_cents"`
	Tag            string `json:"tag,omitempty"`
}

func cellToJSON(c ledger.Cell) cellJSON {
	return cellJSON{
		ProjectedCents: c.Projected.Cents,
		ExecutedCents:  c.Executed.Cents,
		TotalCents:     c.Total.Cents,
		Tag:            string(c.Tag),
	}
}

type projectionRowJSON struct {
	AccountID string              `json:"account_id"`
	Cells     map[string]cellJSON `json:"cells"`
}

type projectionJSON struct {
	Months      []string            `json:"months"`
	Rows        []projectionRowJSON `json:"rows"`
	MonthTotals map[string]cellJSON `json:"month_totals"`
	Accumulated map[string]int64    `json:"accumulated_cents"`
}

func projectionToJSON(r *ledger.Report) projectionJSON {
	out := projectionJSON{
		Months:      r.Months,
		Rows:        make([]projectionRowJSON, 0, len(r.Rows)),
		MonthTotals: make(map[string]cellJSON, len(r.MonthTotals)),
		Accumulated: make(map[string]int64, len(r.Accumulated)),
	}
	for _, row := range r.Rows {
		cells := make(map[string]cellJSON, len(row.Cells))
		for k, c := range row.Cells {
			cells[k] = cellToJSON(c)
		}
		out.Rows = append(out.Rows, projectionRowJSON{AccountID: row.AccountID, Cells: cells})
	}
	for k, c := range r.MonthTotals {
		out.MonthTotals[k] = cellToJSON(c)
	}
	for k, m := range r.Accumulated {
		out.Accumulated[k] = m.Cents
	}
	return out
}

type installmentGroupJSON struct {
	BaseDescription       string `json:"base_description"`
	AccountID             string `json:"account_id"`
	ValueCents            int64  `json:"value_cents"`
	DayOfMonth            int    `json:"day_of_month"`
	FirstDate             string `json:"first_date"`
	LastDate              string `json:"last_date"`
	TotalInstallments     int    `json:"total_installments"`
	PaidInstallments      int    `json:"paid_installments"`
	RemainingInstallments int    `json:"remaining_installments"`
	PaidTotalCents        int64  `json:"paid_total_cents"`
	RemainingTotalCents   int64  `json:"remaining_total_cents"`
}

func installmentsToJSON(groups []ledger.InstallmentGroup) []installmentGroupJSON {
	out := make([]installmentGroupJSON, 0, len(groups))
	for _, g := range groups {
		out = append(out, installmentGroupJSON{
			BaseDescription: g.BaseDescription, AccountID: g.AccountID,
			ValueCents: g.Value.Cents, DayOfMonth: g.DayOfMonth,
			FirstDate: dateString(g.FirstDate), LastDate: dateString(g.LastDate),
			TotalInstallments:     g.TotalInstallments,
			PaidInstallments:      g.PaidInstallments,
			RemainingInstallments: g.RemainingInstallments,
			PaidTotalCents:        g.PaidTotal.Cents,
			RemainingTotalCents:   g.RemainingTotal.Cents,
		})
	}
	return out
}

type summaryJSON struct {
	ExecutedIncomeCents   int64 `json:"executed_income_cents"`
	ExecutedExpenseCents  int64 `json:"executed_expense_cents"`
	ProjectedIncomeCents  int64 `json:"projected_income_cents"`
	ProjectedExpenseCents int64 `json:"projected_expense_cents"`
	BalanceCents          int64 `json:"balance_cents"`
	ProjectedBalanceCents int64 `json:"projected_balance_cents"`
}

func summaryToJSON(s core.CashFlowSummary) summaryJSON {
	return summaryJSON{
		ExecutedIncomeCents:   s.ExecutedIncome.Cents,
		ExecutedExpenseCents:  s.ExecutedExpense.Cents,
		ProjectedIncomeCents:  s.ProjectedIncome.Cents,
		ProjectedExpenseCents: s.ProjectedExpense.Cents,
		BalanceCents:          s.Balance.Cents,
		ProjectedBalanceCents: s.ProjectedBalance.Cents,
	}
}
