package store

import (
	"context"
	"fmt"
	"sort"

	"dokan/backend/internal/domain"
	"dokan/backend/internal/events"
	"dokan/backend/internal/snapshot"
)

type Policy string

const (
	// PolicyPlain deletes the record and nothing else.
	PolicyPlain Policy = "plain"
	// PolicyBlock refuses the delete while another record references it.
	PolicyBlock Policy = "block"
	// PolicyCascade deletes the record together with its dependents.
	PolicyCascade Policy = "cascade"
	// PolicyRevert undoes the record's effect on other records, then deletes it.
	PolicyRevert Policy = "revert"
)

// reference locates a record of another family that points at an id.
type reference struct {
	family Family
	find   func(s *snapshot.Snapshot, id string) (string, bool)
}

func referencedBy[T domain.Entity](tb table[T], matches func(row T, id string) bool) reference {
	return reference{family: tb.family, find: func(s *snapshot.Snapshot, id string) (string, bool) {
		row, ok := tb.find(s, func(row T) bool { return matches(row, id) })
		if !ok {
			return "", false
		}
		return row.EntityID(), true
	}}
}

type deleteRule struct {
	policy   Policy
	exists   func(s *snapshot.Snapshot, id string) bool
	blockers []reference
	// apply removes the record, plus dependents for cascade and revert rules.
	apply func(t *tx, id string)
}

func plainRemove[T domain.Entity](tb table[T]) func(t *tx, id string) {
	return func(t *tx, id string) {
		tb.removeWhere(t.s, func(row T) bool { return row.EntityID() == id })
		t.emit(events.Deleted, tb.family, id)
	}
}

func existsIn[T domain.Entity](tb table[T]) func(s *snapshot.Snapshot, id string) bool {
	return func(s *snapshot.Snapshot, id string) bool { return tb.has(s, id) }
}

func blockRule[T domain.Entity](tb table[T], blockers ...reference) deleteRule {
	policy := PolicyBlock
	if len(blockers) == 0 {
		policy = PolicyPlain
	}
	return deleteRule{policy: policy, exists: existsIn(tb), blockers: blockers, apply: plainRemove(tb)}
}

func childOf(row domain.AccountNode, id string) bool { return row.ParentID == id }

func addressChildOf(row domain.AddressNode, id string) bool { return row.ParentID == id }

var deleteRules = buildDeleteRules()

func buildDeleteRules() map[Family]deleteRule {
	rules := map[Family]deleteRule{
		FamilyAccountGroups: blockRule(accountTables[domain.AccountGroup],
			referencedBy(accountTables[domain.AccountSubGroup], childOf)),
		FamilyAccountSubGroups: blockRule(accountTables[domain.AccountSubGroup],
			referencedBy(accountTables[domain.AccountHead], childOf)),
		FamilyAccountHeads: blockRule(accountTables[domain.AccountHead],
			referencedBy(accountTables[domain.AccountSubHead], childOf),
			referencedBy(ledgerAccounts, func(a domain.LedgerAccount, id string) bool { return a.HeadID == id })),
		FamilyAccountSubHeads: blockRule(accountTables[domain.AccountSubHead],
			referencedBy(ledgerAccounts, func(a domain.LedgerAccount, id string) bool { return a.SubHeadID == id })),
		FamilyLedgerAccounts: blockRule(ledgerAccounts),

		FamilyProductCategories: blockRule(productCategories,
			referencedBy(productCategories, func(c domain.ProductCategory, id string) bool { return c.ParentID == id }),
			referencedBy(products, func(p domain.Product, id string) bool { return p.CategoryID == id })),
		FamilyProducts: blockRule(products,
			referencedBy(inventoryItems, func(i domain.InventoryItem, id string) bool { return i.ProductID == id })),
		FamilyInventoryItems: blockRule(inventoryItems,
			referencedBy(challans, func(c domain.Challan, id string) bool { return challanHasItem(c, id) })),

		FamilyCustomers: blockRule(customers,
			referencedBy(challans, func(c domain.Challan, id string) bool { return c.CustomerID == id }),
			referencedBy(orders, func(o domain.Order, id string) bool { return o.CustomerID == id }),
			referencedBy(serviceJobs, func(j domain.ServiceJob, id string) bool { return j.CustomerID == id }),
			referencedBy(savingsAccounts, func(a domain.SavingsAccount, id string) bool { return a.CustomerID == id }),
			referencedBy(collections, func(c domain.Collection, id string) bool { return c.CustomerID == id })),
		FamilyCollections: blockRule(collections),
		FamilyServiceJobs: blockRule(serviceJobs,
			referencedBy(orders, func(o domain.Order, id string) bool { return o.ServiceJobID == id })),

		FamilyLoanProducts: blockRule(loanProducts),
		FamilySavingsProducts: blockRule(savingsProducts,
			referencedBy(savingsAccounts, func(a domain.SavingsAccount, id string) bool { return a.ProductID == id })),
		FamilySavingsAccounts: blockRule(savingsAccounts,
			referencedBy(savingsTransactions, func(txn domain.SavingsTransaction, id string) bool { return txn.AccountID == id })),

		FamilyServiceItems: blockRule(serviceItems),
		FamilyMenuItems:    blockRule(menuItems),
		FamilyReservations: blockRule(reservations),

		FamilyMenuCategories: {
			policy: PolicyCascade,
			exists: existsIn(menuCategories),
			apply: func(t *tx, id string) {
				ids := descendants(menuCategories.all(t.s), id, func(c domain.MenuCategory) string { return c.ParentID })
				for _, itemID := range menuItems.removeWhere(t.s, func(m domain.MenuItem) bool { return ids[m.CategoryID] }) {
					t.emit(events.Deleted, FamilyMenuItems, itemID)
				}
				for _, catID := range menuCategories.removeWhere(t.s, func(c domain.MenuCategory) bool { return ids[c.ID] }) {
					t.emit(events.Deleted, FamilyMenuCategories, catID)
				}
			},
		},
		FamilyServiceCategories: {
			policy: PolicyCascade,
			exists: existsIn(serviceCategories),
			apply: func(t *tx, id string) {
				ids := descendants(serviceCategories.all(t.s), id, func(c domain.ServiceCategory) string { return c.ParentID })
				for _, itemID := range serviceItems.removeWhere(t.s, func(i domain.ServiceItem) bool { return ids[i.CategoryID] }) {
					t.emit(events.Deleted, FamilyServiceItems, itemID)
				}
				for _, catID := range serviceCategories.removeWhere(t.s, func(c domain.ServiceCategory) bool { return ids[c.ID] }) {
					t.emit(events.Deleted, FamilyServiceCategories, catID)
				}
			},
		},
		FamilyFloors: {
			policy: PolicyCascade,
			exists: existsIn(floors),
			apply: func(t *tx, id string) {
				removedTables := tables.removeWhere(t.s, func(tb domain.Table) bool { return tb.FloorID == id })
				gone := make(map[string]bool, len(removedTables))
				for _, tableID := range removedTables {
					gone[tableID] = true
					t.emit(events.Deleted, FamilyTables, tableID)
				}
				for _, rsvID := range reservations.removeWhere(t.s, func(r domain.Reservation) bool { return gone[r.TableID] }) {
					t.emit(events.Deleted, FamilyReservations, rsvID)
				}
				plainRemove(floors)(t, id)
			},
		},
		FamilyTables: {
			policy: PolicyCascade,
			exists: existsIn(tables),
			apply: func(t *tx, id string) {
				for _, rsvID := range reservations.removeWhere(t.s, func(r domain.Reservation) bool { return r.TableID == id }) {
					t.emit(events.Deleted, FamilyReservations, rsvID)
				}
				plainRemove(tables)(t, id)
			},
		},
		FamilyAttributes: {
			policy: PolicyCascade,
			exists: existsIn(attributes),
			apply: func(t *tx, id string) {
				for _, valueID := range attributeValues.removeWhere(t.s, func(v domain.AttributeValue) bool { return v.AttributeID == id }) {
					t.emit(events.Deleted, FamilyAttributeValues, valueID)
				}
				stripProductAttributes(t, func(a domain.ProductAttribute) bool { return a.AttributeID == id })
				plainRemove(attributes)(t, id)
			},
		},
		FamilyAttributeValues: {
			policy: PolicyCascade,
			exists: existsIn(attributeValues),
			apply: func(t *tx, id string) {
				stripProductAttributes(t, func(a domain.ProductAttribute) bool { return a.ValueID == id })
				plainRemove(attributeValues)(t, id)
			},
		},

		FamilyChallans: {
			policy: PolicyBlock,
			exists: existsIn(challans),
			blockers: []reference{referencedBy(inventoryItems, func(i domain.InventoryItem, id string) bool {
				return i.ChallanID == id && i.Status == domain.InventorySold
			})},
			apply: func(t *tx, id string) {
				for _, itemID := range inventoryItems.removeWhere(t.s, func(i domain.InventoryItem) bool { return i.ChallanID == id }) {
					t.emit(events.Deleted, FamilyInventoryItems, itemID)
				}
				plainRemove(challans)(t, id)
			},
		},
		FamilyOrders: {
			policy: PolicyRevert,
			exists: existsIn(orders),
			apply:  revertOrder,
		},
	}

	for i, level := range domain.AddressLevels {
		tb := addressTables[level]
		if i+1 == len(domain.AddressLevels) {
			rules[tb.family] = blockRule(tb)
			continue
		}
		rules[tb.family] = blockRule(tb, referencedBy(addressTables[domain.AddressLevels[i+1]], addressChildOf))
	}
	return rules
}

// descendants returns root and every node below it.
func descendants[T domain.Entity](nodes []T, root string, parentOf func(T) string) map[string]bool {
	ids := map[string]bool{root: true}
	for grew := true; grew; {
		grew = false
		for _, n := range nodes {
			if !ids[n.EntityID()] && ids[parentOf(n)] {
				ids[n.EntityID()] = true
				grew = true
			}
		}
	}
	return ids
}

func stripProductAttributes(t *tx, drop func(domain.ProductAttribute) bool) {
	for i := range t.s.Products {
		p := &t.s.Products[i]
		kept := p.Attributes[:0]
		for _, a := range p.Attributes {
			if !drop(a) {
				kept = append(kept, a)
			}
		}
		if len(kept) != len(p.Attributes) {
			p.Attributes = kept
			t.emit(events.Updated, FamilyProducts, p.ID)
		}
	}
}

func challanHasItem(c domain.Challan, itemID string) bool {
	for _, item := range c.Items {
		if item.InventoryItemID == itemID {
			return true
		}
	}
	return false
}

// DeletePolicies describes the delete behavior of every family.
func DeletePolicies() map[Family]Policy {
	out := make(map[Family]Policy, len(deleteRules))
	for family, rule := range deleteRules {
		out[family] = rule.policy
	}
	return out
}

// Families lists every family with a delete rule, sorted.
func Families() []Family {
	out := make([]Family, 0, len(deleteRules))
	for family := range deleteRules {
		out = append(out, family)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func checkDelete(s *snapshot.Snapshot, family Family, id string) (deleteRule, error) {
	rule, ok := deleteRules[family]
	if !ok {
		return deleteRule{}, invalidf("unknown family %q", family)
	}
	if !rule.exists(s, id) {
		return rule, fmt.Errorf("%s %s: %w", family, id, ErrNotFound)
	}
	for _, ref := range rule.blockers {
		if refID, found := ref.find(s, id); found {
			return rule, &IntegrityError{Family: family, ID: id, ReferencedBy: ref.family, ReferenceID: refID}
		}
	}
	return rule, nil
}

// CanDelete reports whether Delete would succeed, without changing anything.
func (st *Store) CanDelete(family Family, id string) error {
	var err error
	st.view(func(s *snapshot.Snapshot) { _, err = checkDelete(s, family, id) })
	return err
}

// Delete removes a record according to its family's delete policy.
func (st *Store) Delete(ctx context.Context, family Family, id string) error {
	return st.mutate(ctx, "Delete", func(t *tx) error {
		rule, err := checkDelete(t.s, family, id)
		if err != nil {
			return err
		}
		rule.apply(t, id)
		return nil
	})
}
