package ledger

import (
	"sort"
	"time"

	"gestor/internal/core"
)

// DefaultMonthsToShow is the window length used when the caller does not
// ask for a specific one.
const DefaultMonthsToShow = 6

// CellTag is the display-only classification of a matrix cell.
type CellTag string

const (
	// TagProjected marks cells whose amount is entirely forecast.
	TagProjected CellTag = "projected"
	// TagMixed marks cells carrying both executed and projected amounts.
	TagMixed CellTag = "mixed"
)

// Cell is one (account, month) aggregate of the projection matrix.
type Cell struct {
	Projected core.Money
	Executed  core.Money
	Total     core.Money
	Tag       CellTag
}

// AccountRow is the dense per-month series for one chart-of-accounts node.
// Cells holds an entry for every month key of the report, zero-filled
// where the account had no movement.
type AccountRow struct {
	AccountID string
	Cells     map[string]Cell
}

// Report is the output of the projection engine.
type Report struct {
	Months      []string // ordered "2006-01" keys, one per displayed month
	Rows        []AccountRow
	MonthTotals map[string]Cell
	// Accumulated is the running balance per month: the sum of month
	// totals from the first displayed month up to and including that one.
	// The first month starts from zero; no opening balance is carried
	// from before the window.
	Accumulated map[string]core.Money
}

// Project turns a transaction list plus a (start, months) window into the
// per-account-per-month matrix. Transactions outside the window, or whose
// account group is unknown, above 6 or in the excluded set, contribute
// nothing. Pure function; deterministic for identical input order.
func Project(txs []core.CashFlowTransaction, groups map[string]int, start core.Date, months int) *Report {
	if months <= 0 {
		months = DefaultMonthsToShow
	}

	first := time.Date(start.Year(), start.Time.Month(), 1, 0, 0, 0, 0, time.UTC)
	keys := make([]string, months)
	for i := 0; i < months; i++ {
		keys[i] = first.AddDate(0, i, 0).Format("2006-01")
	}

	report := &Report{
		Months:      keys,
		MonthTotals: make(map[string]Cell, months),
		Accumulated: make(map[string]core.Money, months),
	}
	for _, k := range keys {
		report.MonthTotals[k] = Cell{}
	}

	rows := make(map[string]map[string]Cell)
	for _, tx := range txs {
		if tx.Date.IsZero() {
			continue
		}
		key := tx.Date.MonthKey()
		if _, shown := report.MonthTotals[key]; !shown {
			continue
		}
		if !operatingGroup(groups, tx.AccountID) {
			continue
		}

		sign := int64(1)
		if tx.Type == core.Expense {
			sign = -1
		}
		projected := sign * tx.ProjectedAmount().Cents
		executed := sign * tx.ExecutedAmount().Cents

		cells, ok := rows[tx.AccountID]
		if !ok {
			cells = make(map[string]Cell, months)
			rows[tx.AccountID] = cells
		}
		cells[key] = addCell(cells[key], projected, executed)
		report.MonthTotals[key] = addCell(report.MonthTotals[key], projected, executed)
	}

	accountIDs := make([]string, 0, len(rows))
	for id := range rows {
		accountIDs = append(accountIDs, id)
	}
	sort.Strings(accountIDs)

	report.Rows = make([]AccountRow, 0, len(accountIDs))
	for _, id := range accountIDs {
		row := AccountRow{AccountID: id, Cells: make(map[string]Cell, months)}
		for _, k := range keys {
			row.Cells[k] = tagCell(rows[id][k])
		}
		report.Rows = append(report.Rows, row)
	}

	var running int64
	for _, k := range keys {
		total := tagCell(report.MonthTotals[k])
		report.MonthTotals[k] = total
		running += total.Total.Cents
		report.Accumulated[k] = core.Money{Cents: running}
	}

	return report
}

func addCell(c Cell, projected, executed int64) Cell {
	c.Projected.Cents += projected
	c.Executed.Cents += executed
	c.Total.Cents += projected + executed
	return c
}

func tagCell(c Cell) Cell {
	switch {
	case c.Projected.Cents != 0 && c.Executed.Cents != 0:
		c.Tag = TagMixed
	case c.Projected.Cents != 0:
		c.Tag = TagProjected
	}
	return c
}
