package store

import (
	"context"
	"fmt"

	"dokan/backend/internal/domain"
	"dokan/backend/internal/snapshot"
)

// Verify checks the committed snapshot for broken links between challans,
// inventory items, orders and service jobs, hierarchy nodes whose parent is
// gone, stale challan statuses and duplicate document numbers. It returns one
// line per problem.
func (st *Store) Verify() []string {
	var problems []string
	st.view(func(s *snapshot.Snapshot) { problems = verify(s) })
	return problems
}

func verify(s *snapshot.Snapshot) []string {
	var problems []string
	report := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	items := make(map[string]domain.InventoryItem, len(s.InventoryItems))
	for _, item := range s.InventoryItems {
		items[item.ID] = item
	}
	statusOf := func(id string) domain.InventoryStatus { return items[id].Status }

	challanByID := make(map[string]domain.Challan, len(s.Challans))
	for _, c := range s.Challans {
		challanByID[c.ID] = c
		if derived := domain.DeriveChallanStatus(c, statusOf); derived != c.Status {
			report("challan %s: status %s, derived %s", c.ChallanNumber, c.Status, derived)
		}
		for _, line := range c.Items {
			item, ok := items[line.InventoryItemID]
			switch {
			case !ok:
				report("challan %s: inventory item %s does not exist", c.ChallanNumber, line.InventoryItemID)
			case item.ChallanID != c.ID:
				report("challan %s: inventory item %s belongs to challan %s", c.ChallanNumber, item.ID, item.ChallanID)
			}
		}
	}

	orderByID := make(map[string]domain.Order, len(s.Orders))
	for _, o := range s.Orders {
		orderByID[o.ID] = o
	}
	for _, item := range s.InventoryItems {
		if item.ChallanID != "" {
			if _, ok := challanByID[item.ChallanID]; !ok {
				report("inventory item %s: challan %s does not exist", item.ID, item.ChallanID)
			}
		}
		switch {
		case item.Status == domain.InventorySold && item.OrderID == "":
			report("inventory item %s: sold without an order", item.ID)
		case item.Status == domain.InventorySold:
			if _, ok := orderByID[item.OrderID]; !ok {
				report("inventory item %s: order %s does not exist", item.ID, item.OrderID)
			}
		case item.OrderID != "":
			report("inventory item %s: %s but linked to order %s", item.ID, item.Status, item.OrderID)
		}
	}
	for _, o := range s.Orders {
		if o.ChallanID != "" {
			if _, ok := challanByID[o.ChallanID]; !ok {
				report("order %s: challan %s does not exist", o.OrderNumber, o.ChallanID)
			}
		}
	}
	for _, j := range s.ServiceJobs {
		if j.OrderID != "" {
			if _, ok := orderByID[j.OrderID]; !ok {
				report("service job %s: order %s does not exist", j.JobNumber, j.OrderID)
			}
		}
	}

	for i := 1; i < len(domain.AccountLevels); i++ {
		parents, nodes := accountTables[domain.AccountLevels[i-1]], accountTables[domain.AccountLevels[i]]
		for _, n := range nodes.all(s) {
			if !parents.has(s, n.ParentID) {
				report("%s %s: parent %s does not exist", nodes.family, n.ID, n.ParentID)
			}
		}
	}
	for i := 1; i < len(domain.AddressLevels); i++ {
		parents, nodes := addressTables[domain.AddressLevels[i-1]], addressTables[domain.AddressLevels[i]]
		for _, n := range nodes.all(s) {
			if !parents.has(s, n.ParentID) {
				report("%s %s: parent %s does not exist", nodes.family, n.ID, n.ParentID)
			}
		}
	}

	duplicates := func(kind string, numbers []string) {
		seen := make(map[string]bool, len(numbers))
		for _, n := range numbers {
			if seen[n] {
				report("%s number %s is used more than once", kind, n)
			}
			seen[n] = true
		}
	}
	duplicates("challan", collect(s.Challans, func(c domain.Challan) string { return c.ChallanNumber }))
	duplicates("order", collect(s.Orders, func(o domain.Order) string { return o.OrderNumber }))
	duplicates("service job", collect(s.ServiceJobs, func(j domain.ServiceJob) string { return j.JobNumber }))
	return problems
}

func collect[T any](rows []T, key func(T) string) []string {
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, key(row))
	}
	return out
}

// Repair re-derives every challan status and persists the result. It returns
// the number of challans that were stale.
func (st *Store) Repair(ctx context.Context) (int, error) {
	changed := 0
	err := st.mutate(ctx, "Repair", func(t *tx) error {
		ids := collect(t.s.Challans, func(c domain.Challan) string { return c.ID })
		before := len(t.events)
		t.rederive(ids...)
		changed = len(t.events) - before
		return nil
	})
	return changed, err
}
