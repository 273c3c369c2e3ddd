package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"gestor/internal/core"
)

// SQLiteStore is the production Store backed by a local SQLite database.
type SQLiteStore struct {
	db       *sql.DB
	revision atomic.Uint64
}

// NewSQLiteStore opens (creating if needed) the database at dbPath and
// runs the embedded migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	s := &SQLiteStore{db: db}
	s.revision.Store(uint64(time.Now().UnixNano())) // distinct across restarts
	return s, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Revision implements LedgerStore.
func (s *SQLiteStore) Revision() uint64 {
	return s.revision.Load()
}

func (s *SQLiteStore) bumpRevision() {
	s.revision.Add(1)
}

// --- helpers ---

const dateLayout = "2006-01-02"

func dateArg(d core.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.Format(dateLayout)
}

func scanDate(ns sql.NullString) core.Date {
	if !ns.Valid || ns.String == "" {
		return core.Date{}
	}
	t, err := time.Parse(dateLayout, ns.String)
	if err != nil {
		return core.Date{}
	}
	return core.Date{Time: t}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func fromNull(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

func timeArg(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func scanTime(ns sql.NullString) time.Time {
	if !ns.Valid || ns.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, ns.String)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (s *SQLiteStore) mustAffect(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for %s: %w", what, err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// --- account categories ---

func (s *SQLiteStore) ListCategories(ctx context.Context) ([]core.AccountCategory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, group_number, parent_id FROM account_categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var cats []core.AccountCategory
	for rows.Next() {
		var c core.AccountCategory
		var parent sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &c.GroupNumber, &parent); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.ParentID = fromNull(parent)
		cats = append(cats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}

	accounts, err := s.ListFinancialAccounts(ctx)
	if err != nil {
		return nil, err
	}
	// One-to-one join: first linked account wins when the data carries
	// duplicates.
	byCategory := make(map[string]*core.FinancialAccount)
	for i := range accounts {
		a := accounts[i]
		if a.CategoryID != "" {
			if _, seen := byCategory[a.CategoryID]; !seen {
				byCategory[a.CategoryID] = &a
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

func (s *SQLiteStore) GetCategory(ctx context.Context, id string) (core.AccountCategory, error) {
	var c core.AccountCategory
	var parent sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, group_number, parent_id FROM account_categories WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.GroupNumber, &parent)
	if err == sql.ErrNoRows {
		return core.AccountCategory{}, core.ErrNotFound
	}
	if err != nil {
		return core.AccountCategory{}, fmt.Errorf("get category: %w", err)
	}
	c.ParentID = fromNull(parent)
	return c, nil
}

func (s *SQLiteStore) CreateCategory(ctx context.Context, c core.AccountCategory) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO account_categories (id, name, group_number, parent_id) VALUES (?, ?, ?, ?)`,
		c.ID, c.Name, c.GroupNumber, nullable(c.ParentID))
	if err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	s.bumpRevision()
	return nil
}

func (s *SQLiteStore) UpdateCategory(ctx context.Context, c core.AccountCategory) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE account_categories SET name = ?, group_number = ?, parent_id = ? WHERE id = ?`,
		c.Name, c.GroupNumber, nullable(c.ParentID), c.ID)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	if err := s.mustAffect(res, "category"); err != nil {
		return err
	}
	s.bumpRevision()
	return nil
}

func (s *SQLiteStore) DeleteCategory(ctx context.Context, id string) error {
	var children int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM account_categories WHERE parent_id = ?`, id).Scan(&children); err != nil {
		return fmt.Errorf("count children: %w", err)
	}
	if children > 0 {
		return fmt.Errorf("category %s has %d subcategories: %w", id, children, core.ErrConflict)
	}
	var linked int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cash_flow_transactions WHERE account_id = ?`, id).Scan(&linked); err != nil {
		return fmt.Errorf("count linked transactions: %w", err)
	}
	if linked > 0 {
		return fmt.Errorf("category %s has %d transactions: %w", id, linked, core.ErrConflict)
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM account_categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if err := s.mustAffect(res, "category"); err != nil {
		return err
	}
	s.bumpRevision()
	return nil
}

// --- financial accounts ---

func (s *SQLiteStore) ListFinancialAccounts(ctx context.Context) ([]core.FinancialAccount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, type, initial_balance_cents, current_balance_cents, category_id
		 FROM financial_accounts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list financial accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.FinancialAccount
	for rows.Next() {
		var a core.FinancialAccount
		var category sql.NullString
		if err := rows.Scan(&a.ID, &a.Name, &a.Type, &a.InitialBalance.Cents,
			&a.CurrentBalance.Cents, &category); err != nil {
			return nil, fmt.Errorf("scan financial account: %w", err)
		}
		a.CategoryID = fromNull(category)
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (s *SQLiteStore) GetFinancialAccount(ctx context.Context, id string) (core.FinancialAccount, error) {
	var a core.FinancialAccount
	var category sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, type, initial_balance_cents, current_balance_cents, category_id
		 FROM financial_accounts WHERE id = ?`, id).
		Scan(&a.ID, &a.Name, &a.Type, &a.InitialBalance.Cents, &a.CurrentBalance.Cents, &category)
	if err == sql.ErrNoRows {
		return core.FinancialAccount{}, core.ErrNotFound
	}
	if err != nil {
		return core.FinancialAccount{}, fmt.Errorf("get financial account: %w", err)
	}
	a.CategoryID = fromNull(category)
	return a, nil
}

func (s *SQLiteStore) CreateFinancialAccount(ctx context.Context, a core.FinancialAccount) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO financial_accounts (id, name, type, initial_balance_cents, current_balance_cents, category_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, a.Type, a.InitialBalance.Cents, a.CurrentBalance.Cents, nullable(a.CategoryID))
	if err != nil {
		return fmt.Errorf("create financial account: %w", err)
	}
	s.bumpRevision()
	return nil
}

func (s *SQLiteStore) UpdateFinancialAccount(ctx context.Context, a core.FinancialAccount) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE financial_accounts SET name = ?, type = ?, initial_balance_cents = ?,
		 current_balance_cents = ?, category_id = ? WHERE id = ?`,
		a.Name, a.Type, a.InitialBalance.Cents, a.CurrentBalance.Cents, nullable(a.CategoryID), a.ID)
	if err != nil {
		return fmt.Errorf("update financial account: %w", err)
	}
	if err := s.mustAffect(res, "financial account"); err != nil {
		return err
	}
	s.bumpRevision()
	return nil
}

func (s *SQLiteStore) DeleteFinancialAccount(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM financial_accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete financial account: %w", err)
	}
	if err := s.mustAffect(res, "financial account"); err != nil {
		return err
	}
	s.bumpRevision()
	return nil
}

// --- cash flow transactions ---

func (s *SQLiteStore) ListTransactions(ctx context.Context, f TransactionFilter) ([]core.CashFlowTransaction, error) {
	query := `SELECT id, date, account_id, type, description, value_cents, income_cents,
		expense_cents, future_income_cents, future_expense_cents, financial_account_id,
		origin_destination, client_id, notes FROM cash_flow_transactions WHERE 1=1`
	var args []any
	if !f.From.IsZero() {
		query += ` AND date >= ?`
		args = append(args, f.From.Format(dateLayout))
	}
	if !f.To.IsZero() {
		query += ` AND date <= ?`
		args = append(args, f.To.Format(dateLayout))
	}
	if f.AccountID != "" {
		query += ` AND account_id = ?`
		args = append(args, f.AccountID)
	}
	if f.FinancialAccountID != "" {
		query += ` AND financial_account_id = ?`
		args = append(args, f.FinancialAccountID)
	}
	if f.ClientID != "" {
		query += ` AND client_id = ?`
		args = append(args, f.ClientID)
	}
	query += ` ORDER BY date, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.CashFlowTransaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func scanTransaction(rows *sql.Rows) (core.CashFlowTransaction, error) {
	var tx core.CashFlowTransaction
	var date, finAccount, clientID sql.NullString
	err := rows.Scan(&tx.ID, &date, &tx.AccountID, &tx.Type, &tx.Description,
		&tx.Value.Cents, &tx.Income.Cents, &tx.Expense.Cents,
		&tx.FutureIncome.Cents, &tx.FutureExpense.Cents,
		&finAccount, &tx.OriginDestination, &clientID, &tx.Notes)
	if err != nil {
		return tx, fmt.Errorf("scan transaction: %w", err)
	}
	tx.Date = scanDate(date)
	tx.FinancialAccountID = fromNull(finAccount)
	tx.ClientID = fromNull(clientID)
	return tx, nil
}

func (s *SQLiteStore) GetTransaction(ctx context.Context, id string) (core.CashFlowTransaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, date, account_id, type, description, value_cents, income_cents,
		 expense_cents, future_income_cents, future_expense_cents, financial_account_id,
		 origin_destination, client_id, notes FROM cash_flow_transactions WHERE id = ?`, id)
	if err != nil {
		return core.CashFlowTransaction{}, fmt.Errorf("get transaction: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return core.CashFlowTransaction{}, fmt.Errorf("get transaction: %w", err)
		}
		return core.CashFlowTransaction{}, core.ErrNotFound
	}
	return scanTransaction(rows)
}

func (s *SQLiteStore) CreateTransaction(ctx context.Context, tx core.CashFlowTransaction) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cash_flow_transactions (id, date, account_id, type, description,
		 value_cents, income_cents, expense_cents, future_income_cents, future_expense_cents,
		 financial_account_id, origin_destination, client_id, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, dateArg(tx.Date), tx.AccountID, tx.Type, tx.Description,
		tx.Value.Cents, tx.Income.Cents, tx.Expense.Cents,
		tx.FutureIncome.Cents, tx.FutureExpense.Cents,
		nullable(tx.FinancialAccountID), tx.OriginDestination, nullable(tx.ClientID), tx.Notes)
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	s.bumpRevision()
	return nil
}

func (s *SQLiteStore) UpdateTransaction(ctx context.Context, tx core.CashFlowTransaction) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE cash_flow_transactions SET date = ?, account_id = ?, type = ?, description = ?,
		 value_cents = ?, income_cents = ?, expense_cents = ?, future_income_cents = ?,
		 future_expense_cents = ?, financial_account_id = ?, origin_destination = ?,
		 client_id = ?, notes = ? WHERE id = ?`,
		dateArg(tx.Date), tx.AccountID, tx.Type, tx.Description,
		tx.Value.Cents, tx.Income.Cents, tx.Expense.Cents,
		tx.FutureIncome.Cents, tx.FutureExpense.Cents,
		nullable(tx.FinancialAccountID), tx.OriginDestination, nullable(tx.ClientID), tx.Notes, tx.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if err := s.mustAffect(res, "transaction"); err != nil {
		return err
	}
	s.bumpRevision()
	return nil
}

func (s *SQLiteStore) DeleteTransaction(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cash_flow_transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if err := s.mustAffect(res, "transaction"); err != nil {
		return err
	}
	s.bumpRevision()
	return nil
}

// --- clients ---

func (s *SQLiteStore) ListClients(ctx context.Context) ([]core.Client, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, document, email, phone, company_name, competencia, status, notes, created_at
		 FROM clients ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	var clients []core.Client
	for rows.Next() {
		var c core.Client
		var created sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &c.Document, &c.Email, &c.Phone,
			&c.CompanyName, &c.Competencia, &c.Status, &c.Notes, &created); err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		c.CreatedAt = scanTime(created)
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

func (s *SQLiteStore) GetClient(ctx context.Context, id string) (core.Client, error) {
	var c core.Client
	var created sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, document, email, phone, company_name, competencia, status, notes, created_at
		 FROM clients WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Document, &c.Email, &c.Phone,
			&c.CompanyName, &c.Competencia, &c.Status, &c.Notes, &created)
	if err == sql.ErrNoRows {
		return core.Client{}, core.ErrNotFound
	}
	if err != nil {
		return core.Client{}, fmt.Errorf("get client: %w", err)
	}
	c.CreatedAt = scanTime(created)
	return c, nil
}

func (s *SQLiteStore) CreateClient(ctx context.Context, c core.Client) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO clients (id, name, document, email, phone, company_name, competencia, status, notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Document, c.Email, c.Phone, c.CompanyName, c.Competencia, c.Status, c.Notes, timeArg(c.CreatedAt))
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateClient(ctx context.Context, c core.Client) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE clients SET name = ?, document = ?, email = ?, phone = ?, company_name = ?,
		 competencia = ?, status = ?, notes = ? WHERE id = ?`,
		c.Name, c.Document, c.Email, c.Phone, c.CompanyName, c.Competencia, c.Status, c.Notes, c.ID)
	if err != nil {
		return fmt.Errorf("update client: %w", err)
	}
	return s.mustAffect(res, "client")
}

func (s *SQLiteStore) DeleteClient(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM clients WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete client: %w", err)
	}
	return s.mustAffect(res, "client")
}

// --- contracts ---

func (s *SQLiteStore) ListContracts(ctx context.Context, clientID string) ([]core.Contract, error) {
	query := `SELECT id, client_id, description, monthly_value_cents, start_date, end_date, status
		 FROM contracts`
	var args []any
	if clientID != "" {
		query += ` WHERE client_id = ?`
		args = append(args, clientID)
	}
	query += ` ORDER BY start_date DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}
	defer rows.Close()

	var contracts []core.Contract
	for rows.Next() {
		var c core.Contract
		var start, end sql.NullString
		if err := rows.Scan(&c.ID, &c.ClientID, &c.Description, &c.MonthlyValue.Cents,
			&start, &end, &c.Status); err != nil {
			return nil, fmt.Errorf("scan contract: %w", err)
		}
		c.StartDate = scanDate(start)
		c.EndDate = scanDate(end)
		contracts = append(contracts, c)
	}
	return contracts, rows.Err()
}

func (s *SQLiteStore) CreateContract(ctx context.Context, c core.Contract) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO contracts (id, client_id, description, monthly_value_cents, start_date, end_date, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.ClientID, c.Description, c.MonthlyValue.Cents, dateArg(c.StartDate), dateArg(c.EndDate), c.Status)
	if err != nil {
		return fmt.Errorf("create contract: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateContract(ctx context.Context, c core.Contract) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE contracts SET client_id = ?, description = ?, monthly_value_cents = ?,
		 start_date = ?, end_date = ?, status = ? WHERE id = ?`,
		c.ClientID, c.Description, c.MonthlyValue.Cents, dateArg(c.StartDate), dateArg(c.EndDate), c.Status, c.ID)
	if err != nil {
		return fmt.Errorf("update contract: %w", err)
	}
	return s.mustAffect(res, "contract")
}

func (s *SQLiteStore) DeleteContract(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM contracts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete contract: %w", err)
	}
	return s.mustAffect(res, "contract")
}

// --- leads ---

func (s *SQLiteStore) ListLeads(ctx context.Context) ([]core.Lead, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, phone, email, source, stage, notes, created_at FROM leads ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	var leads []core.Lead
	for rows.Next() {
		var l core.Lead
		var created sql.NullString
		if err := rows.Scan(&l.ID, &l.Name, &l.Phone, &l.Email, &l.Source, &l.Stage, &l.Notes, &created); err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		l.CreatedAt = scanTime(created)
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

func (s *SQLiteStore) CreateLead(ctx context.Context, l core.Lead) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO leads (id, name, phone, email, source, stage, notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.Name, l.Phone, l.Email, l.Source, l.Stage, l.Notes, timeArg(l.CreatedAt))
	if err != nil {
		return fmt.Errorf("create lead: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateLead(ctx context.Context, l core.Lead) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET name = ?, phone = ?, email = ?, source = ?, stage = ?, notes = ? WHERE id = ?`,
		l.Name, l.Phone, l.Email, l.Source, l.Stage, l.Notes, l.ID)
	if err != nil {
		return fmt.Errorf("update lead: %w", err)
	}
	return s.mustAffect(res, "lead")
}

func (s *SQLiteStore) DeleteLead(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM leads WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}
	return s.mustAffect(res, "lead")
}

// --- tasks ---

func (s *SQLiteStore) ListTasks(ctx context.Context, clientID string) ([]core.Task, error) {
	query := `SELECT id, title, client_id, assigned_to, due_date, status, description FROM tasks`
	var args []any
	if clientID != "" {
		query += ` WHERE client_id = ?`
		args = append(args, clientID)
	}
	query += ` ORDER BY due_date`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []core.Task
	for rows.Next() {
		var t core.Task
		var client, due sql.NullString
		if err := rows.Scan(&t.ID, &t.Title, &client, &t.AssignedTo, &due, &t.Status, &t.Description); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t.ClientID = fromNull(client)
		t.DueDate = scanDate(due)
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *SQLiteStore) CreateTask(ctx context.Context, t core.Task) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, title, client_id, assigned_to, due_date, status, description)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, nullable(t.ClientID), t.AssignedTo, dateArg(t.DueDate), t.Status, t.Description)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateTask(ctx context.Context, t core.Task) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET title = ?, client_id = ?, assigned_to = ?, due_date = ?, status = ?, description = ?
		 WHERE id = ?`,
		t.Title, nullable(t.ClientID), t.AssignedTo, dateArg(t.DueDate), t.Status, t.Description, t.ID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return s.mustAffect(res, "task")
}

func (s *SQLiteStore) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return s.mustAffect(res, "task")
}

// --- processes ---

func (s *SQLiteStore) ListProcesses(ctx context.Context, clientID string) ([]core.Process, error) {
	query := `SELECT id, client_id, kind, protocol, status, opened_at, closed_at, notes FROM processes`
	var args []any
	if clientID != "" {
		query += ` WHERE client_id = ?`
		args = append(args, clientID)
	}
	query += ` ORDER BY opened_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}
	defer rows.Close()

	var processes []core.Process
	for rows.Next() {
		var p core.Process
		var opened, closed sql.NullString
		if err := rows.Scan(&p.ID, &p.ClientID, &p.Kind, &p.Protocol, &p.Status, &opened, &closed, &p.Notes); err != nil {
			return nil, fmt.Errorf("scan process: %w", err)
		}
		p.OpenedAt = scanDate(opened)
		p.ClosedAt = scanDate(closed)
		processes = append(processes, p)
	}
	return processes, rows.Err()
}

func (s *SQLiteStore) CreateProcess(ctx context.Context, p core.Process) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO processes (id, client_id, kind, protocol, status, opened_at, closed_at, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.ClientID, p.Kind, p.Protocol, p.Status, dateArg(p.OpenedAt), dateArg(p.ClosedAt), p.Notes)
	if err != nil {
		return fmt.Errorf("create process: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateProcess(ctx context.Context, p core.Process) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE processes SET client_id = ?, kind = ?, protocol = ?, status = ?, opened_at = ?,
		 closed_at = ?, notes = ? WHERE id = ?`,
		p.ClientID, p.Kind, p.Protocol, p.Status, dateArg(p.OpenedAt), dateArg(p.ClosedAt), p.Notes, p.ID)
	if err != nil {
		return fmt.Errorf("update process: %w", err)
	}
	return s.mustAffect(res, "process")
}

func (s *SQLiteStore) DeleteProcess(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM processes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete process: %w", err)
	}
	return s.mustAffect(res, "process")
}

// --- pricing proposals ---

func (s *SQLiteStore) ListProposals(ctx context.Context) ([]core.PricingProposal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, lead_id, client_id, items_json, discount_cents, accepted, created_at
		 FROM pricing_proposals ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}
	defer rows.Close()

	var proposals []core.PricingProposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		proposals = append(proposals, p)
	}
	return proposals, rows.Err()
}

func scanProposal(rows *sql.Rows) (core.PricingProposal, error) {
	var p core.PricingProposal
	var lead, client, created sql.NullString
	var items string
	var accepted int
	if err := rows.Scan(&p.ID, &lead, &client, &items, &p.Discount.Cents, &accepted, &created); err != nil {
		return p, fmt.Errorf("scan proposal: %w", err)
	}
	p.LeadID = fromNull(lead)
	p.ClientID = fromNull(client)
	p.Accepted = accepted != 0
	p.CreatedAt = scanTime(created)
	if err := json.Unmarshal([]byte(items), &p.Items); err != nil {
		return p, fmt.Errorf("decode proposal items: %w", err)
	}
	return p, nil
}

func (s *SQLiteStore) GetProposal(ctx context.Context, id string) (core.PricingProposal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, lead_id, client_id, items_json, discount_cents, accepted, created_at
		 FROM pricing_proposals WHERE id = ?`, id)
	if err != nil {
		return core.PricingProposal{}, fmt.Errorf("get proposal: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return core.PricingProposal{}, fmt.Errorf("get proposal: %w", err)
		}
		return core.PricingProposal{}, core.ErrNotFound
	}
	return scanProposal(rows)
}

func (s *SQLiteStore) CreateProposal(ctx context.Context, p core.PricingProposal) error {
	items, err := json.Marshal(p.Items)
	if err != nil {
		return fmt.Errorf("encode proposal items: %w", err)
	}
	accepted := 0
	if p.Accepted {
		accepted = 1
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO pricing_proposals (id, lead_id, client_id, items_json, discount_cents, accepted, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, nullable(p.LeadID), nullable(p.ClientID), string(items), p.Discount.Cents, accepted, timeArg(p.CreatedAt))
	if err != nil {
		return fmt.Errorf("create proposal: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateProposal(ctx context.Context, p core.PricingProposal) error {
	items, err := json.Marshal(p.Items)
	if err != nil {
		return fmt.Errorf("encode proposal items: %w", err)
	}
	accepted := 0
	if p.Accepted {
		accepted = 1
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE pricing_proposals SET lead_id = ?, client_id = ?, items_json = ?, discount_cents = ?, accepted = ?
		 WHERE id = ?`,
		nullable(p.LeadID), nullable(p.ClientID), string(items), p.Discount.Cents, accepted, p.ID)
	if err != nil {
		return fmt.Errorf("update proposal: %w", err)
	}
	return s.mustAffect(res, "proposal")
}

func (s *SQLiteStore) DeleteProposal(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pricing_proposals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete proposal: %w", err)
	}
	return s.mustAffect(res, "proposal")
}

// --- onboarding ---

func (s *SQLiteStore) ListOnboarding(ctx context.Context) ([]core.OnboardingChecklist, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, client_id, steps_json, created_at FROM client_onboarding ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list onboarding: %w", err)
	}
	defer rows.Close()

	var lists []core.OnboardingChecklist
	for rows.Next() {
		o, err := scanOnboarding(rows)
		if err != nil {
			return nil, err
		}
		lists = append(lists, o)
	}
	return lists, rows.Err()
}

func scanOnboarding(rows *sql.Rows) (core.OnboardingChecklist, error) {
	var o core.OnboardingChecklist
	var steps string
	var created sql.NullString
	if err := rows.Scan(&o.ID, &o.ClientID, &steps, &created); err != nil {
		return o, fmt.Errorf("scan onboarding: %w", err)
	}
	o.CreatedAt = scanTime(created)
	if err := json.Unmarshal([]byte(steps), &o.Steps); err != nil {
		return o, fmt.Errorf("decode onboarding steps: %w", err)
	}
	return o, nil
}

func (s *SQLiteStore) GetOnboarding(ctx context.Context, id string) (core.OnboardingChecklist, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, client_id, steps_json, created_at FROM client_onboarding WHERE id = ?`, id)
	if err != nil {
		return core.OnboardingChecklist{}, fmt.Errorf("get onboarding: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return core.OnboardingChecklist{}, fmt.Errorf("get onboarding: %w", err)
		}
		return core.OnboardingChecklist{}, core.ErrNotFound
	}
	return scanOnboarding(rows)
}

func (s *SQLiteStore) CreateOnboarding(ctx context.Context, o core.OnboardingChecklist) error {
	steps, err := json.Marshal(o.Steps)
	if err != nil {
		return fmt.Errorf("encode onboarding steps: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO client_onboarding (id, client_id, steps_json, created_at) VALUES (?, ?, ?, ?)`,
		o.ID, o.ClientID, string(steps), timeArg(o.CreatedAt))
	if err != nil {
		return fmt.Errorf("create onboarding: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateOnboarding(ctx context.Context, o core.OnboardingChecklist) error {
	steps, err := json.Marshal(o.Steps)
	if err != nil {
		return fmt.Errorf("encode onboarding steps: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE client_onboarding SET client_id = ?, steps_json = ? WHERE id = ?`,
		o.ClientID, string(steps), o.ID)
	if err != nil {
		return fmt.Errorf("update onboarding: %w", err)
	}
	return s.mustAffect(res, "onboarding")
}

func (s *SQLiteStore) DeleteOnboarding(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM client_onboarding WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete onboarding: %w", err)
	}
	return s.mustAffect(res, "onboarding")
}

// --- boletos ---

func (s *SQLiteStore) ListBoletos(ctx context.Context, f BoletoFilter) ([]core.Boleto, error) {
	query := `SELECT id, client_id, company_id, amount_cents, due_date, competencia,
		provider_invoice_id, status, dispatch, dispatched_at, created_at FROM boletos WHERE 1=1`
	var args []any
	if f.ClientID != "" {
		query += ` AND client_id = ?`
		args = append(args, f.ClientID)
	}
	if f.CompanyID != "" {
		query += ` AND company_id = ?`
		args = append(args, f.CompanyID)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	}
	query += ` ORDER BY due_date DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list boletos: %w", err)
	}
	defer rows.Close()

	var boletos []core.Boleto
	for rows.Next() {
		b, err := scanBoleto(rows)
		if err != nil {
			return nil, err
		}
		boletos = append(boletos, b)
	}
	return boletos, rows.Err()
}

func scanBoleto(rows *sql.Rows) (core.Boleto, error) {
	var b core.Boleto
	var company, due, dispatched, created sql.NullString
	if err := rows.Scan(&b.ID, &b.ClientID, &company, &b.Amount.Cents, &due, &b.Competencia,
		&b.ProviderInvoiceID, &b.Status, &b.Dispatch, &dispatched, &created); err != nil {
		return b, fmt.Errorf("scan boleto: %w", err)
	}
	b.CompanyID = fromNull(company)
	b.DueDate = scanDate(due)
	b.DispatchedAt = scanTime(dispatched)
	b.CreatedAt = scanTime(created)
	return b, nil
}

func (s *SQLiteStore) GetBoleto(ctx context.Context, id string) (core.Boleto, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, client_id, company_id, amount_cents, due_date, competencia,
		 provider_invoice_id, status, dispatch, dispatched_at, created_at FROM boletos WHERE id = ?`, id)
	if err != nil {
		return core.Boleto{}, fmt.Errorf("get boleto: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return core.Boleto{}, fmt.Errorf("get boleto: %w", err)
		}
		return core.Boleto{}, core.ErrNotFound
	}
	return scanBoleto(rows)
}

func (s *SQLiteStore) CreateBoleto(ctx context.Context, b core.Boleto) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO boletos (id, client_id, company_id, amount_cents, due_date, competencia,
		 provider_invoice_id, status, dispatch, dispatched_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.ClientID, nullable(b.CompanyID), b.Amount.Cents, dateArg(b.DueDate), b.Competencia,
		b.ProviderInvoiceID, b.Status, b.Dispatch, timeArg(b.DispatchedAt), timeArg(b.CreatedAt))
	if err != nil {
		return fmt.Errorf("create boleto: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateBoleto(ctx context.Context, b core.Boleto) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE boletos SET client_id = ?, company_id = ?, amount_cents = ?, due_date = ?,
		 competencia = ?, provider_invoice_id = ?, status = ?, dispatch = ?, dispatched_at = ?
		 WHERE id = ?`,
		b.ClientID, nullable(b.CompanyID), b.Amount.Cents, dateArg(b.DueDate), b.Competencia,
		b.ProviderInvoiceID, b.Status, b.Dispatch, timeArg(b.DispatchedAt), b.ID)
	if err != nil {
		return fmt.Errorf("update boleto: %w", err)
	}
	return s.mustAffect(res, "boleto")
}

func (s *SQLiteStore) UpdateBoletoStatus(ctx context.Context, id string, status core.BoletoStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE boletos SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("update boleto status: %w", err)
	}
	return s.mustAffect(res, "boleto")
}

func (s *SQLiteStore) UpdateBoletoDispatch(ctx context.Context, id string, state core.DispatchState) error {
	var dispatched any
	if state == core.DispatchSent {
		dispatched = time.Now().UTC().Format(time.RFC3339)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE boletos SET dispatch = ?, dispatched_at = COALESCE(?, dispatched_at) WHERE id = ?`,
		state, dispatched, id)
	if err != nil {
		return fmt.Errorf("update boleto dispatch: %w", err)
	}
	return s.mustAffect(res, "boleto")
}

// --- companies ---

func (s *SQLiteStore) ListCompanies(ctx context.Context) ([]core.Company, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, document, provider_id FROM companies ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	var companies []core.Company
	for rows.Next() {
		var c core.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.Document, &c.ProviderID); err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

func (s *SQLiteStore) GetCompany(ctx context.Context, id string) (core.Company, error) {
	var c core.Company
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, document, provider_id FROM companies WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Document, &c.ProviderID)
	if err == sql.ErrNoRows {
		return core.Company{}, core.ErrNotFound
	}
	if err != nil {
		return core.Company{}, fmt.Errorf("get company: %w", err)
	}
	return c, nil
}

func (s *SQLiteStore) CreateCompany(ctx context.Context, c core.Company) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO companies (id, name, document, provider_id) VALUES (?, ?, ?, ?)`,
		c.ID, c.Name, c.Document, c.ProviderID)
	if err != nil {
		return fmt.Errorf("create company: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateCompany(ctx context.Context, c core.Company) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE companies SET name = ?, document = ?, provider_id = ? WHERE id = ?`,
		c.Name, c.Document, c.ProviderID, c.ID)
	if err != nil {
		return fmt.Errorf("update company: %w", err)
	}
	return s.mustAffect(res, "company")
}

func (s *SQLiteStore) DeleteCompany(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM companies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete company: %w", err)
	}
	return s.mustAffect(res, "company")
}

// --- backup ---

// Dump reads the full schema for the backup CLI.
func (s *SQLiteStore) Dump(ctx context.Context) (*Dump, error) {
	var d Dump
	var err error

	if d.Clients, err = s.ListClients(ctx); err != nil {
		return nil, err
	}
	if d.Contracts, err = s.ListContracts(ctx, ""); err != nil {
		return nil, err
	}
	if d.Leads, err = s.ListLeads(ctx); err != nil {
		return nil, err
	}
	if d.Tasks, err = s.ListTasks(ctx, ""); err != nil {
		return nil, err
	}
	if d.Processes, err = s.ListProcesses(ctx, ""); err != nil {
		return nil, err
	}
	if d.PricingProposals, err = s.ListProposals(ctx); err != nil {
		return nil, err
	}
	if d.ClientOnboarding, err = s.ListOnboarding(ctx); err != nil {
		return nil, err
	}
	if d.AccountCategories, err = s.ListCategories(ctx); err != nil {
		return nil, err
	}
	if d.FinancialAccounts, err = s.ListFinancialAccounts(ctx); err != nil {
		return nil, err
	}
	if d.Transactions, err = s.ListTransactions(ctx, TransactionFilter{}); err != nil {
		return nil, err
	}
	if d.Boletos, err = s.ListBoletos(ctx, BoletoFilter{}); err != nil {
		return nil, err
	}
	if d.Companies, err = s.ListCompanies(ctx); err != nil {
		return nil, err
	}
	return &d, nil
}
