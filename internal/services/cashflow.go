// Package services holds the application services between the HTTP layer
// and storage: ledger derivations with caching, transaction lifecycle,
// and the boleto dispatch and sync flows.
package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"gestor/internal/cache"
	"gestor/internal/core"
	"gestor/internal/ledger"
	"gestor/internal/log"
	"gestor/internal/storage"
)

// CashFlowService serves the chart-of-accounts views. Projection reports
// are memoized per store revision, so any ledger write invalidates every
// cached report without explicit bookkeeping.
type CashFlowService struct {
	store      storage.LedgerStore
	reports    *cache.LRU[*ledger.Report]
	adjustment core.Money
	logger     *log.Logger
}

func NewCashFlowService(store storage.LedgerStore, reports *cache.LRU[*ledger.Report],
	adjustment core.Money, logger *log.Logger) *CashFlowService {
	return &CashFlowService{
		store:      store,
		reports:    reports,
		adjustment: adjustment,
		logger:     logger.WithComponent(log.ComponentCashFlow),
	}
}

// CategoryTree returns the chart of accounts as a forest.
func (s *CashFlowService) CategoryTree(ctx context.Context) ([]*ledger.CategoryNode, error) {
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return ledger.BuildTree(cats), nil
}

// Projection returns the dense per-account-per-month matrix for the
// window, cached until the next ledger write.
func (s *CashFlowService) Projection(ctx context.Context, start core.Date, months int) (*ledger.Report, error) {
	if months <= 0 {
		months = ledger.DefaultMonthsToShow
	}
	key := fmt.Sprintf("%d|%s|%d", s.store.Revision(), start.MonthKey(), months)
	if report, ok := s.reports.Get(key); ok {
		return report, nil
	}

	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	txs, err := s.store.ListTransactions(ctx, storage.TransactionFilter{})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	report := ledger.Project(txs, ledger.GroupIndex(cats), start, months)
	s.reports.Set(key, report)
	s.logger.Debug("projection computed",
		log.FieldMonthKey, start.MonthKey(), "months", months, "rows", len(report.Rows))
	return report, nil
}

// Installments returns the inferred installment plans, newest-ending first.
func (s *CashFlowService) Installments(ctx context.Context) ([]ledger.InstallmentGroup, error) {
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	txs, err := s.store.ListTransactions(ctx, storage.TransactionFilter{})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return ledger.GroupInstallments(txs, ledger.GroupIndex(cats)), nil
}

// Summary totals the filtered window. The configured revenue adjustment
// is applied here, at the presentation boundary, and nowhere else.
func (s *CashFlowService) Summary(ctx context.Context, f storage.TransactionFilter) (core.CashFlowSummary, error) {
	txs, err := s.store.ListTransactions(ctx, f)
	if err != nil {
		return core.CashFlowSummary{}, fmt.Errorf("list transactions: %w", err)
	}
	return ledger.ApplyPresentationAdjustment(ledger.Summarize(txs), s.adjustment), nil
}

// CreateTransaction validates and stores a new ledger entry.
func (s *CashFlowService) CreateTransaction(ctx context.Context, tx core.CashFlowTransaction) (core.CashFlowTransaction, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if err := tx.Validate(); err != nil {
		return core.CashFlowTransaction{}, err
	}
	if _, err := s.store.GetCategory(ctx, tx.AccountID); err != nil {
		return core.CashFlowTransaction{}, fmt.Errorf("account %s: %w", tx.AccountID, err)
	}
	if err := s.store.CreateTransaction(ctx, tx); err != nil {
		return core.CashFlowTransaction{}, fmt.Errorf("create transaction: %w", err)
	}
	return tx, nil
}

// UpdateTransaction validates and replaces a ledger entry.
func (s *CashFlowService) UpdateTransaction(ctx context.Context, tx core.CashFlowTransaction) (core.CashFlowTransaction, error) {
	if err := tx.Validate(); err != nil {
		return core.CashFlowTransaction{}, err
	}
	if err := s.store.UpdateTransaction(ctx, tx); err != nil {
		return core.CashFlowTransaction{}, fmt.Errorf("update transaction: %w", err)
	}
	return tx, nil
}

// SettleTransaction moves a transaction's projected amount into its
// executed field. Settling an already-settled entry changes nothing.
func (s *CashFlowService) SettleTransaction(ctx context.Context, id string) (core.CashFlowTransaction, error) {
	tx, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return core.CashFlowTransaction{}, err
	}
	if tx.ProjectedAmount().Cents == 0 {
		return tx, nil
	}
	tx.Settle()
	if err := s.store.UpdateTransaction(ctx, tx); err != nil {
		return core.CashFlowTransaction{}, fmt.Errorf("settle transaction %s: %w", id, err)
	}
	s.logger.Info("transaction settled", "transaction_id", id)
	return tx, nil
}

// RecalculateBalance recomputes and persists a financial account's
// current balance from its linked transactions.
func (s *CashFlowService) RecalculateBalance(ctx context.Context, accountID string) (core.FinancialAccount, error) {
	account, err := s.store.GetFinancialAccount(ctx, accountID)
	if err != nil {
		return core.FinancialAccount{}, err
	}
	txs, err := s.store.ListTransactions(ctx, storage.TransactionFilter{FinancialAccountID: accountID})
	if err != nil {
		return core.FinancialAccount{}, fmt.Errorf("list transactions: %w", err)
	}
	account.CurrentBalance = ledger.RecalculateBalance(account, txs)
	if err := s.store.UpdateFinancialAccount(ctx, account); err != nil {
		return core.FinancialAccount{}, fmt.Errorf("persist balance: %w", err)
	}
	s.logger.Info("balance recalculated",
		log.FieldAccountID, accountID,
		log.FieldAmountCents, account.CurrentBalance.Cents)
	return account, nil
}

// CreateCategory validates and stores a chart-of-accounts node.
func (s *CashFlowService) CreateCategory(ctx context.Context, c core.AccountCategory) (core.AccountCategory, error) {
	if err := c.Validate(); err != nil {
		return core.AccountCategory{}, err
	}
	if c.ParentID != "" {
		parent, err := s.store.GetCategory(ctx, c.ParentID)
		if err != nil {
			return core.AccountCategory{}, fmt.Errorf("parent %s: %w", c.ParentID, err)
		}
		// Children inherit the root group of their subtree.
		c.GroupNumber = parent.GroupNumber
	}
	if err := s.store.CreateCategory(ctx, c); err != nil {
		return core.AccountCategory{}, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

// CreateFinancialAccount validates and stores a balance holder.
func (s *CashFlowService) CreateFinancialAccount(ctx context.Context, a core.FinancialAccount) (core.FinancialAccount, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if err := a.Validate(); err != nil {
		return core.FinancialAccount{}, err
	}
	a.CurrentBalance = a.InitialBalance
	if err := s.store.CreateFinancialAccount(ctx, a); err != nil {
		return core.FinancialAccount{}, fmt.Errorf("create financial account: %w", err)
	}
	return a, nil
}
