package core

import (
	"errors"
	"strings"
	"time"
)

// Chart-of-accounts group taxonomy. Groups 1-6 participate in operating
// cash flow; 7 and 8 are administrative/reserve groups and are excluded
// from every operating total.
const (
	MinGroupNumber       = 1
	MaxGroupNumber       = 8
	MaxOperatingGroup    = 6
	GroupAdministrative  = 7
	GroupReserve         = 8
)

// ExcludedGroup reports whether a chart-of-accounts group is kept out of
// operating cash-flow totals.
func ExcludedGroup(group int) bool {
	return group == GroupAdministrative || group == GroupReserve
}

type (
	// AccountType classifies a financial account.
	AccountType string

	// TransactionType is the direction of a ledger entry.
	TransactionType string

	// SettlementState describes which amount fields of a transaction are
	// populated. It replaces the two independent "has executed amount" /
	// "has projected amount" checks so that a transaction carrying both
	// is an explicit state instead of an accident.
	SettlementState string

	// Date wraps time.Time for calendar-day semantics; ledger dates have
	// no meaningful time-of-day component.
	Date struct {
		time.Time
	}
)

const (
	AccountBank   AccountType = "bank"
	AccountCash   AccountType = "cash"
	AccountCredit AccountType = "credit"

	Income  TransactionType = "income"
	Expense TransactionType = "expense"

	SettlementNone      SettlementState = "none"
	SettlementProjected SettlementState = "projected"
	SettlementExecuted  SettlementState = "executed"
	SettlementMixed     SettlementState = "mixed"
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidGroup       = errors.New("group number out of range")
	ErrEmptyName          = errors.New("empty name")
	ErrEmptyDescription   = errors.New("empty description")
	ErrInvalidAccountType = errors.New("invalid account type")
	ErrInvalidTxType      = errors.New("invalid transaction type")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
)

// NewDate creates a Date at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DayOfMonth returns the calendar day component.
func (d Date) DayOfMonth() int {
	return d.Time.Day()
}

// SameMonth reports whether both dates fall in the same calendar month.
func (d Date) SameMonth(o Date) bool {
	return d.Year() == o.Year() && d.Month() == o.Month()
}

// MonthKey returns the "2006-01" bucket key for the date.
func (d Date) MonthKey() string {
	return d.Format("2006-01")
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// AccountCategory is a chart-of-accounts node. The dotted ID encodes
// ancestry for hierarchical categories ("1.2" is a child of "1"); root
// categories have no parent and carry the group number of their subtree.
type AccountCategory struct {
	ID          string
	Name        string
	GroupNumber int
	ParentID    string // empty for roots
	Account     *FinancialAccount
}

func (c AccountCategory) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return errors.New("empty category id")
	}
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if c.GroupNumber < MinGroupNumber || c.GroupNumber > MaxGroupNumber {
		return ErrInvalidGroup
	}
	return nil
}

// FinancialAccount is a balance holder (bank account, cash box or credit
// card) optionally linked to a chart-of-accounts node. CurrentBalance is
// derived and only changes through an explicit recalculation.
type FinancialAccount struct {
	ID             string
	Name           string
	Type           AccountType
	InitialBalance Money
	CurrentBalance Money
	CategoryID     string
}

func (a FinancialAccount) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	switch a.Type {
	case AccountBank, AccountCash, AccountCredit:
	default:
		return ErrInvalidAccountType
	}
	return nil
}

// CashFlowTransaction is a single ledger entry. Value is the nominal
// (per-installment) amount; Income/Expense hold the executed portion and
// FutureIncome/FutureExpense the projected one. Settling an entry moves
// its projected amount into the executed field.
type CashFlowTransaction struct {
	ID                 string
	Date               Date
	AccountID          string // chart-of-accounts node
	Type               TransactionType
	Description        string
	Value              Money
	Income             Money
	Expense            Money
	FutureIncome       Money
	FutureExpense      Money
	FinancialAccountID string
	OriginDestination  string
	ClientID           string
	Notes              string
}

func (t CashFlowTransaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.AccountID) == "" {
		return errors.New("empty account id")
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	switch t.Type {
	case Income, Expense:
	default:
		return ErrInvalidTxType
	}
	return nil
}

// ExecutedAmount returns the executed portion for the transaction's type.
func (t CashFlowTransaction) ExecutedAmount() Money {
	if t.Type == Income {
		return t.Income
	}
	return t.Expense
}

// ProjectedAmount returns the projected portion for the transaction's type.
func (t CashFlowTransaction) ProjectedAmount() Money {
	if t.Type == Income {
		return t.FutureIncome
	}
	return t.FutureExpense
}

// Settlement derives the settlement state from the amount fields.
func (t CashFlowTransaction) Settlement() SettlementState {
	executed := t.ExecutedAmount().Cents != 0
	projected := t.ProjectedAmount().Cents != 0
	switch {
	case executed && projected:
		return SettlementMixed
	case executed:
		return SettlementExecuted
	case projected:
		return SettlementProjected
	default:
		return SettlementNone
	}
}

// Settle converts the projected amount into an executed amount and zeroes
// the projected field. Settling an already-settled entry is a no-op.
func (t *CashFlowTransaction) Settle() {
	if t.Type == Income {
		t.Income.Cents += t.FutureIncome.Cents
		t.FutureIncome.Cents = 0
		return
	}
	t.Expense.Cents += t.FutureExpense.Cents
	t.FutureExpense.Cents = 0
}

// CashFlowSummary aggregates executed and projected totals over a queried
// window. Derived, recomputed per request.
type CashFlowSummary struct {
	ExecutedIncome   Money
	ExecutedExpense  Money
	ProjectedIncome  Money
	ProjectedExpense Money
	Balance          Money // executed income - executed expense
	ProjectedBalance Money // including projected amounts
}
