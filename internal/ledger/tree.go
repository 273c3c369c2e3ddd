// Package ledger implements the chart-of-accounts derivations: category
// tree assembly, the cash-flow projection engine, installment inference
// and financial-account balance roll-forward. Everything here is a pure
// reduction over already-typed rows; no I/O happens in this package.
package ledger

import (
	"log/slog"

	"gestor/internal/core"
)

// CategoryNode is a chart-of-accounts node with its resolved children.
type CategoryNode struct {
	core.AccountCategory
	Subcategories []*CategoryNode
}

// BuildTree assembles a forest of root categories from flat rows by
// walking ParentID references. Sibling order follows input order (the
// store returns rows sorted by id). Rows whose parent does not exist are
// promoted to root and logged; silently dropping them hid data in the
// past.
func BuildTree(rows []core.AccountCategory) []*CategoryNode {
	nodes := make(map[string]*CategoryNode, len(rows))
	for _, row := range rows {
		nodes[row.ID] = &CategoryNode{AccountCategory: row}
	}

	var roots []*CategoryNode
	for _, row := range rows {
		node := nodes[row.ID]
		if row.ParentID == "" {
			roots = append(roots, node)
			continue
		}
		parent, ok := nodes[row.ParentID]
		if !ok {
			slog.Warn("category references missing parent, promoting to root",
				"category_id", row.ID, "parent_id", row.ParentID)
			roots = append(roots, node)
			continue
		}
		parent.Subcategories = append(parent.Subcategories, node)
	}
	return roots
}

// GroupIndex maps category IDs to their group number, the lookup the
// projection engine and installment grouper use to apply the excluded-
// groups rule.
func GroupIndex(rows []core.AccountCategory) map[string]int {
	idx := make(map[string]int, len(rows))
	for _, row := range rows {
		idx[row.ID] = row.GroupNumber
	}
	return idx
}

// operatingGroup reports whether the group participates in operating cash
// flow: known, within 1-6 and not in the excluded set.
func operatingGroup(groups map[string]int, accountID string) bool {
	g, ok := groups[accountID]
	if !ok {
		return false
	}
	return g >= core.MinGroupNumber && g <= core.MaxOperatingGroup && !core.ExcludedGroup(g)
}
