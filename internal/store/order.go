package store

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"dokan/backend/internal/domain"
	"dokan/backend/internal/events"
	"dokan/backend/internal/sequence"
	"dokan/backend/internal/snapshot"
)

// AddOrder records a sale. billedItemIDs names the challan inventory items the
// order bills; they must all be allocated to one challan, and to
// order.ChallanID when that is set. Without order lines the lines are taken
// from the billed challan items; given lines must carry every billed item
// exactly once. Totals, change and tender status are always recomputed.
func (st *Store) AddOrder(ctx context.Context, order domain.Order, billedItemIDs []string) (domain.Order, error) {
	var out domain.Order
	err := st.mutate(ctx, "AddOrder", func(t *tx) error {
		challan, billed, err := resolveBilled(t.s, billedItemIDs)
		if err != nil {
			return err
		}

		o := order.Clone()
		o.ID = t.newID(orders.prefix)
		o.CreatedAt = t.now
		o.Status = domain.OrderCompleted
		if o.ChallanID != "" && (challan == nil || challan.ID != o.ChallanID) {
			return preconditionf("billed inventory items do not belong to challan %s", o.ChallanID)
		}
		o.ChallanID = ""
		if len(o.Items) > 0 {
			if err := checkBilledLines(o.Items, billedItemIDs, billed); err != nil {
				return err
			}
		}

		if challan != nil {
			o.ChallanID = challan.ID
			switch {
			case o.CustomerID == "":
				o.CustomerID = challan.CustomerID
			case o.CustomerID != challan.CustomerID:
				return preconditionf("order customer %s does not match challan customer %s", o.CustomerID, challan.CustomerID)
			}
			if len(o.Items) == 0 {
				o.Items = linesFromChallan(*challan, billed)
			}
		}
		if o.CustomerID != "" {
			if err := requireRef(t, customers, o.CustomerID); err != nil {
				return err
			}
		}
		if err := priceOrder(&o); err != nil {
			return err
		}

		if o.ServiceJobID != "" {
			job, err := serviceJobs.get(t.s, o.ServiceJobID)
			if err != nil {
				return preconditionf("%s %s does not exist", FamilyServiceJobs, o.ServiceJobID)
			}
			if job.OrderID != "" {
				return preconditionf("service job %s is already billed by order %s", job.JobNumber, job.OrderID)
			}
			_ = serviceJobs.update(t.s, job.ID, func(j *domain.ServiceJob) { j.OrderID = o.ID })
			t.emit(events.Updated, FamilyServiceJobs, job.ID)
		}

		o.OrderNumber, err = t.nextNumber(sequence.Order)
		if err != nil {
			return err
		}

		for _, id := range billedItemIDs {
			_ = inventoryItems.update(t.s, id, func(item *domain.InventoryItem) {
				item.Status = domain.InventorySold
				item.OrderID = o.ID
			})
			t.emit(events.Updated, FamilyInventoryItems, id)
		}
		orders.insert(t.s, o)
		t.emit(events.Created, FamilyOrders, o.ID)
		if challan != nil {
			t.rederive(challan.ID)
		}

		out = o.Clone()
		return nil
	})
	return out, err
}

// resolveBilled checks that ids are distinct items allocated to a single
// challan and returns that challan with the items. No ids means the order
// bills no challan.
func resolveBilled(s *snapshot.Snapshot, ids []string) (*domain.Challan, map[string]domain.InventoryItem, error) {
	if len(ids) == 0 {
		return nil, nil, nil
	}
	billed := make(map[string]domain.InventoryItem, len(ids))
	challanID := ""
	for _, id := range ids {
		if _, dup := billed[id]; dup {
			return nil, nil, preconditionf("inventory item %s is billed twice", id)
		}
		item, err := inventoryItems.get(s, id)
		if err != nil {
			return nil, nil, preconditionf("inventory item %s does not exist", id)
		}
		if item.Status != domain.InventoryAllocated {
			return nil, nil, preconditionf("inventory item %s is %s; billing more than allocated", id, item.Status)
		}
		if challanID == "" {
			challanID = item.ChallanID
		} else if item.ChallanID != challanID {
			return nil, nil, preconditionf("inventory items belong to challans %s and %s", challanID, item.ChallanID)
		}
		billed[id] = item
	}
	challan, err := challans.get(s, challanID)
	if err != nil {
		return nil, nil, preconditionf("challan %s of the billed items does not exist", challanID)
	}
	return &challan, billed, nil
}

// checkBilledLines requires each billed item on exactly one line and rejects
// lines naming an item the order does not bill. Lines without an inventory
// item, such as service charges, are free.
func checkBilledLines(lines []domain.OrderLine, billedIDs []string, billed map[string]domain.InventoryItem) error {
	onLine := make(map[string]bool, len(billedIDs))
	for i, line := range lines {
		if line.InventoryItemID == "" {
			continue
		}
		if _, ok := billed[line.InventoryItemID]; !ok {
			return preconditionf("line %d names inventory item %s, which the order does not bill", i+1, line.InventoryItemID)
		}
		if onLine[line.InventoryItemID] {
			return preconditionf("inventory item %s is on more than one line", line.InventoryItemID)
		}
		if line.Quantity != 1 {
			return invalidf("line %d bills one inventory item; quantity must be 1", i+1)
		}
		onLine[line.InventoryItemID] = true
	}
	for _, id := range billedIDs {
		if !onLine[id] {
			return preconditionf("billed inventory item %s has no order line", id)
		}
	}
	return nil
}

func linesFromChallan(c domain.Challan, billed map[string]domain.InventoryItem) []domain.OrderLine {
	lines := make([]domain.OrderLine, 0, len(billed))
	for _, ci := range c.Items {
		if _, ok := billed[ci.InventoryItemID]; !ok {
			continue
		}
		lines = append(lines, domain.OrderLine{
			ProductID:       ci.ProductID,
			InventoryItemID: ci.InventoryItemID,
			Name:            ci.Name,
			SerialNumber:    ci.SerialNumber,
			Quantity:        1,
			Price:           ci.Price,
		})
	}
	return lines
}

// priceOrder validates the lines and tender and fills in the derived amounts.
func priceOrder(o *domain.Order) error {
	if len(o.Items) == 0 {
		return invalidf("order needs at least one line")
	}
	subtotal := decimal.Zero
	for i, line := range o.Items {
		if strings.TrimSpace(line.Name) == "" {
			return invalidf("line %d has no name", i+1)
		}
		if line.Quantity < 1 {
			return invalidf("line %d quantity must be at least 1", i+1)
		}
		if line.Price.IsNegative() {
			return invalidf("line %d price must not be negative", i+1)
		}
		subtotal = subtotal.Add(line.Amount())
	}
	if o.DiscountAmount.IsNegative() || o.DiscountAmount.GreaterThan(subtotal) {
		return invalidf("discount %s must be between 0 and the subtotal %s", o.DiscountAmount, subtotal)
	}
	o.Subtotal = subtotal
	o.Total = subtotal.Sub(o.DiscountAmount)

	o.ChangeDue = nil
	if o.AmountTendered != nil {
		tendered := *o.AmountTendered
		if tendered.IsNegative() {
			return invalidf("amount tendered must not be negative")
		}
		change := decimal.Max(decimal.Zero, tendered.Sub(o.Total))
		o.AmountTendered = &tendered
		o.ChangeDue = &change
	}
	o.TenderStatus = domain.DeriveTenderStatus(o.AmountTendered, o.Total)
	return nil
}

// revertOrder undoes an order's billing and removes it: its items return to
// their challan, the challan is re-derived and a linked service job is freed.
// Items of a cancelled challan are released instead of allocated again.
func revertOrder(t *tx, id string) {
	touched := map[string]bool{}
	var challanIDs []string
	for i := range t.s.InventoryItems {
		item := &t.s.InventoryItems[i]
		if item.OrderID != id {
			continue
		}
		item.OrderID = ""
		item.Status = domain.InventoryAllocated
		if owner, err := challans.get(t.s, item.ChallanID); err == nil && owner.Status == domain.ChallanCancelled {
			item.Status = domain.InventoryReleased
		}
		t.emit(events.Updated, FamilyInventoryItems, item.ID)
		if item.ChallanID != "" && !touched[item.ChallanID] {
			touched[item.ChallanID] = true
			challanIDs = append(challanIDs, item.ChallanID)
		}
	}
	t.rederive(challanIDs...)

	for i := range t.s.ServiceJobs {
		job := &t.s.ServiceJobs[i]
		if job.OrderID == id {
			job.OrderID = ""
			t.emit(events.Updated, FamilyServiceJobs, job.ID)
		}
	}
	orders.removeWhere(t.s, func(o domain.Order) bool { return o.ID == id })
	t.emit(events.Deleted, FamilyOrders, id)
}

// DeleteOrder reverses an order. See revertOrder.
func (st *Store) DeleteOrder(ctx context.Context, id string) error {
	return st.Delete(ctx, FamilyOrders, id)
}

func (st *Store) Order(id string) (domain.Order, error) {
	return getRow(st, orders, id)
}

func (st *Store) Orders(customerID string) []domain.Order {
	return listRows(st, orders, func(o domain.Order) bool {
		return customerID == "" || o.CustomerID == customerID
	})
}

// AddCollection records a due payment received from a customer.
func (st *Store) AddCollection(ctx context.Context, c domain.Collection) (domain.Collection, error) {
	return addRow(ctx, st, "AddCollection", collections, c, func(t *tx, c *domain.Collection) error {
		if !c.Amount.IsPositive() {
			return invalidf("collection amount must be positive")
		}
		if err := requireRef(t, customers, c.CustomerID); err != nil {
			return err
		}
		c.ID = t.newID(collections.prefix)
		if c.CollectedAt.IsZero() {
			c.CollectedAt = t.now
		}
		return nil
	})
}

func (st *Store) DeleteCollection(ctx context.Context, id string) error {
	return st.Delete(ctx, FamilyCollections, id)
}

func (st *Store) Collections(customerID string) []domain.Collection {
	return listRows(st, collections, func(c domain.Collection) bool {
		return customerID == "" || c.CustomerID == customerID
	})
}

// CustomerDue is the customer's running balance: what their orders left
// unpaid minus what was collected since. A negative value is an advance.
func (st *Store) CustomerDue(customerID string) (decimal.Decimal, error) {
	var (
		due decimal.Decimal
		err error
	)
	st.view(func(s *snapshot.Snapshot) {
		if !customers.has(s, customerID) {
			_, err = customers.get(s, customerID)
			return
		}
		for _, o := range s.Orders {
			if o.CustomerID == customerID {
				due = due.Add(o.Outstanding())
			}
		}
		for _, c := range s.Collections {
			if c.CustomerID == customerID {
				due = due.Sub(c.Amount)
			}
		}
	})
	return due, err
}
