package core

import (
	"strings"
	"time"
)

// Back-office rows. These carry no derivation logic beyond validation and
// the pricing total; they exist so the storage boundary maps loosely-typed
// rows into strict types before anything else touches them.

type (
	ClientStatus   string
	LeadStage      string
	TaskStatus     string
	ContractStatus string
	BoletoStatus   string
	DispatchState  string
)

const (
	ClientActive   ClientStatus = "active"
	ClientInactive ClientStatus = "inactive"

	LeadNew        LeadStage = "new"
	LeadContacted  LeadStage = "contacted"
	LeadProposal   LeadStage = "proposal"
	LeadWon        LeadStage = "won"
	LeadLost       LeadStage = "lost"

	TaskOpen    TaskStatus = "open"
	TaskDoing   TaskStatus = "doing"
	TaskDone    TaskStatus = "done"

	ContractActive    ContractStatus = "active"
	ContractSuspended ContractStatus = "suspended"
	ContractEnded     ContractStatus = "ended"

	// Boleto statuses mirror the provider mapping: OPEN -> open,
	// LATE/OVERDUE -> overdue, PAID -> paid, CANCELLED -> cancelled.
	BoletoOpen      BoletoStatus = "open"
	BoletoOverdue   BoletoStatus = "overdue"
	BoletoPaid      BoletoStatus = "paid"
	BoletoCancelled BoletoStatus = "cancelled"
	BoletoUnknown   BoletoStatus = "unknown"
	// Assigned by the bulk sync when the provider query for the owning
	// company fails; never sent to the provider.
	BoletoQueryError BoletoStatus = "query_error"

	DispatchPending DispatchState = "pending"
	DispatchQueued  DispatchState = "queued"
	DispatchSent    DispatchState = "sent"
	DispatchFailed  DispatchState = "failed"
)

// Client is an accounting-firm customer.
type Client struct {
	ID          string
	Name        string
	Document    string // CNPJ/CPF, digits only
	Email       string
	Phone       string
	CompanyName string
	Competencia string // billing reference period, "2006-01"
	Status      ClientStatus
	Notes       string
	CreatedAt   time.Time
}

func (c Client) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

// Contract links a client to a recurring service fee.
type Contract struct {
	ID           string
	ClientID     string
	Description  string
	MonthlyValue Money
	StartDate    Date
	EndDate      Date // zero when open-ended
	Status       ContractStatus
}

func (c Contract) Validate() error {
	if strings.TrimSpace(c.ClientID) == "" {
		return ErrNotFound
	}
	if strings.TrimSpace(c.Description) == "" {
		return ErrEmptyDescription
	}
	if err := c.StartDate.Validate(); err != nil {
		return err
	}
	return nil
}

// Lead is a prospective client in the sales funnel.
type Lead struct {
	ID        string
	Name      string
	Phone     string
	Email     string
	Source    string
	Stage     LeadStage
	Notes     string
	CreatedAt time.Time
}

func (l Lead) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

// Task is a back-office to-do, optionally tied to a client.
type Task struct {
	ID          string
	Title       string
	ClientID    string
	AssignedTo  string
	DueDate     Date
	Status      TaskStatus
	Description string
}

func (t Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyName
	}
	return nil
}

// Process is a regulatory/administrative process tracked per client.
type Process struct {
	ID        string
	ClientID  string
	Kind      string
	Protocol  string
	Status    string
	OpenedAt  Date
	ClosedAt  Date
	Notes     string
}

// PricingServiceItem is one line of a pricing proposal.
type PricingServiceItem struct {
	Description string
	Amount      Money
}

// PricingProposal is a fee quote built from service items.
type PricingProposal struct {
	ID        string
	LeadID    string
	ClientID  string
	Items     []PricingServiceItem
	Discount  Money
	CreatedAt time.Time
	Accepted  bool
}

func (p PricingProposal) Validate() error {
	for _, it := range p.Items {
		if strings.TrimSpace(it.Description) == "" {
			return ErrEmptyDescription
		}
		if it.Amount.Cents < 0 {
			return ErrInvalidAmount
		}
	}
	if p.Discount.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Total sums the items minus the discount. Never negative.
func (p PricingProposal) Total() Money {
	var sum int64
	for _, it := range p.Items {
		sum += it.Amount.Cents
	}
	sum -= p.Discount.Cents
	if sum < 0 {
		sum = 0
	}
	return Money{Cents: sum}
}

// OnboardingStep is one checklist item of a client onboarding.
type OnboardingStep struct {
	Name string
	Done bool
}

// DefaultOnboardingSteps is the standard checklist applied when a new
// onboarding is opened without explicit steps.
func DefaultOnboardingSteps() []OnboardingStep {
	return []OnboardingStep{
		{Name: "contrato assinado"},
		{Name: "procuração e-CAC"},
		{Name: "certificado digital"},
		{Name: "acesso ao sistema contábil"},
		{Name: "migração de documentos"},
	}
}

// OnboardingChecklist tracks the onboarding of a new client.
type OnboardingChecklist struct {
	ID        string
	ClientID  string
	Steps     []OnboardingStep
	CreatedAt time.Time
}

// Complete reports whether every step is done.
func (o OnboardingChecklist) Complete() bool {
	for _, s := range o.Steps {
		if !s.Done {
			return false
		}
	}
	return len(o.Steps) > 0
}

// Company is a provider-credential owner; the bulk status sync iterates
// every registered company.
type Company struct {
	ID         string
	Name       string
	Document   string
	ProviderID string // account identifier at the invoice provider
}

// Boleto is a dispatched invoice. ProviderInvoiceID ties it to the invoice
// provider; Dispatch tracks the WhatsApp send lifecycle.
type Boleto struct {
	ID                string
	ClientID          string
	CompanyID         string
	Amount            Money
	DueDate           Date
	Competencia       string
	ProviderInvoiceID string
	Status            BoletoStatus
	Dispatch          DispatchState
	DispatchedAt      time.Time
	CreatedAt         time.Time
}

func (b Boleto) Validate() error {
	if strings.TrimSpace(b.ClientID) == "" {
		return ErrNotFound
	}
	if b.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	if err := b.DueDate.Validate(); err != nil {
		return err
	}
	return nil
}
