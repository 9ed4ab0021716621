package store

import (
	"context"
	"strings"

	"dokan/backend/internal/domain"
	"dokan/backend/internal/events"
	"dokan/backend/internal/sequence"
	"dokan/backend/internal/snapshot"
)

// rederive recomputes the status of the given challans from their items.
// Every change of an inventory item status must be followed by a call.
func (t *tx) rederive(challanIDs ...string) {
	if len(challanIDs) == 0 {
		return
	}
	statusByID := make(map[string]domain.InventoryStatus, len(t.s.InventoryItems))
	for _, item := range t.s.InventoryItems {
		statusByID[item.ID] = item.Status
	}
	statusOf := func(id string) domain.InventoryStatus { return statusByID[id] }

	for _, id := range challanIDs {
		_ = challans.update(t.s, id, func(c *domain.Challan) {
			derived := domain.DeriveChallanStatus(*c, statusOf)
			if c.Status != derived {
				c.Status = derived
				t.emit(events.Updated, FamilyChallans, c.ID)
			}
		})
	}
}

// AddChallan creates a challan and one inventory item per blueprint line,
// every item allocated to the new challan.
func (st *Store) AddChallan(ctx context.Context, bp domain.ChallanBlueprint) (domain.Challan, error) {
	if len(bp.Lines) == 0 {
		return domain.Challan{}, preconditionf("challan needs at least one line")
	}
	if err := st.check(bp); err != nil {
		return domain.Challan{}, err
	}

	var out domain.Challan
	err := st.mutate(ctx, "AddChallan", func(t *tx) error {
		if err := requireRef(t, customers, bp.CustomerID); err != nil {
			return err
		}
		if err := checkSerials(t.s, bp.Lines); err != nil {
			return err
		}

		number, err := t.nextNumber(sequence.Challan)
		if err != nil {
			return err
		}

		challan := domain.Challan{
			ID:               t.newID(challans.prefix),
			ChallanNumber:    number,
			CustomerID:       bp.CustomerID,
			CreatedAt:        t.now,
			DeliveryLocation: strings.TrimSpace(bp.DeliveryLocation),
			Note:             bp.Note,
			Items:            make([]domain.ChallanItem, 0, len(bp.Lines)),
			Status:           domain.ChallanPending,
		}
		for _, line := range bp.Lines {
			if err := requireRef(t, products, line.ProductID); err != nil {
				return err
			}
			if line.Price.IsNegative() {
				return invalidf("line price must not be negative")
			}
			item := domain.InventoryItem{
				ID:           t.newID(inventoryItems.prefix),
				ProductID:    line.ProductID,
				SerialNumber: strings.TrimSpace(line.SerialNumber),
				Status:       domain.InventoryAllocated,
				ChallanID:    challan.ID,
				CreatedAt:    t.now,
			}
			inventoryItems.insert(t.s, item)
			t.emit(events.Created, FamilyInventoryItems, item.ID)

			challan.Items = append(challan.Items, domain.ChallanItem{
				InventoryItemID: item.ID,
				ProductID:       line.ProductID,
				Name:            line.Name,
				SerialNumber:    item.SerialNumber,
				Price:           line.Price,
			})
		}
		challans.insert(t.s, challan)
		t.emit(events.Created, FamilyChallans, challan.ID)
		t.rederive(challan.ID)

		out, _ = challans.get(t.s, challan.ID)
		out = out.Clone()
		return nil
	})
	return out, err
}

// checkSerials rejects a serial number that appears twice in the blueprint or
// that is already held by a live item of the same product.
func checkSerials(s *snapshot.Snapshot, lines []domain.ChallanLine) error {
	type key struct{ product, serial string }
	seen := map[key]bool{}
	for _, item := range s.InventoryItems {
		if item.SerialNumber != "" && item.Status != domain.InventoryReleased {
			seen[key{item.ProductID, item.SerialNumber}] = true
		}
	}
	for _, line := range lines {
		serial := strings.TrimSpace(line.SerialNumber)
		if serial == "" {
			continue
		}
		k := key{line.ProductID, serial}
		if seen[k] {
			return preconditionf("serial number %s of product %s is already in stock", serial, line.ProductID)
		}
		seen[k] = true
	}
	return nil
}

// UpdateChallan edits the delivery details. Lines and status never change
// through an update.
func (st *Store) UpdateChallan(ctx context.Context, id string, upd domain.ChallanUpdate) (domain.Challan, error) {
	var out domain.Challan
	err := st.mutate(ctx, "UpdateChallan", func(t *tx) error {
		err := challans.update(t.s, id, func(c *domain.Challan) {
			if upd.DeliveryLocation != nil {
				c.DeliveryLocation = strings.TrimSpace(*upd.DeliveryLocation)
			}
			if upd.Note != nil {
				c.Note = *upd.Note
			}
			out = c.Clone()
		})
		if err != nil {
			return err
		}
		t.emit(events.Updated, FamilyChallans, id)
		return nil
	})
	return out, err
}

// CancelChallan closes a pending or partially billed challan. Items still
// allocated to it are released; items already sold stay with their orders.
func (st *Store) CancelChallan(ctx context.Context, id string) (domain.Challan, error) {
	var out domain.Challan
	err := st.mutate(ctx, "CancelChallan", func(t *tx) error {
		challan, err := challans.get(t.s, id)
		if err != nil {
			return err
		}
		switch challan.Status {
		case domain.ChallanPending, domain.ChallanPartiallyBilled:
		default:
			return preconditionf("challan %s is %s and cannot be cancelled", challan.ChallanNumber, challan.Status)
		}
		for i := range t.s.InventoryItems {
			item := &t.s.InventoryItems[i]
			if item.ChallanID == id && item.Status == domain.InventoryAllocated {
				item.Status = domain.InventoryReleased
				t.emit(events.Updated, FamilyInventoryItems, item.ID)
			}
		}
		_ = challans.update(t.s, id, func(c *domain.Challan) {
			c.Status = domain.ChallanCancelled
			out = c.Clone()
		})
		t.emit(events.Updated, FamilyChallans, id)
		t.rederive(id)
		return nil
	})
	return out, err
}

// DeleteChallan removes a challan with none of its items sold, together
// with its inventory items.
func (st *Store) DeleteChallan(ctx context.Context, id string) error {
	return st.Delete(ctx, FamilyChallans, id)
}

// BillableItems returns the items of a challan still allocated to it.
func (st *Store) BillableItems(challanID string) ([]domain.InventoryItem, error) {
	var (
		out []domain.InventoryItem
		err error
	)
	st.view(func(s *snapshot.Snapshot) {
		var challan domain.Challan
		challan, err = challans.get(s, challanID)
		if err != nil {
			return
		}
		out = make([]domain.InventoryItem, 0, len(challan.Items))
		for _, line := range challan.Items {
			item, gerr := inventoryItems.get(s, line.InventoryItemID)
			if gerr != nil {
				continue
			}
			if item.ChallanID == challanID && item.Status == domain.InventoryAllocated {
				out = append(out, item)
			}
		}
	})
	return out, err
}

func (st *Store) Challan(id string) (domain.Challan, error) {
	return getRow(st, challans, id)
}

func (st *Store) Challans(customerID string) []domain.Challan {
	return listRows(st, challans, func(c domain.Challan) bool {
		return customerID == "" || c.CustomerID == customerID
	})
}

func (st *Store) InventoryItem(id string) (domain.InventoryItem, error) {
	return getRow(st, inventoryItems, id)
}

func (st *Store) InventoryItems(status domain.InventoryStatus) []domain.InventoryItem {
	return listRows(st, inventoryItems, func(i domain.InventoryItem) bool {
		return status == "" || i.Status == status
	})
}
