package store

import (
	"context"

	"dokan/backend/internal/domain"
)

func accountTable(level domain.AccountLevel) (table[domain.AccountNode], error) {
	tb, ok := accountTables[level]
	if !ok {
		return tb, invalidf("unknown account level %q", level)
	}
	return tb, nil
}

// checkAccountParent requires every level below group to hang off a node of
// the level directly above it.
func checkAccountParent(t *tx, level domain.AccountLevel, node *domain.AccountNode) error {
	parentLevel, hasParent := level.Parent()
	if !hasParent {
		if node.ParentID != "" {
			return invalidf("account groups have no parent")
		}
		return nil
	}
	return requireRef(t, accountTables[parentLevel], node.ParentID)
}

func (st *Store) AddAccountNode(ctx context.Context, level domain.AccountLevel, node domain.AccountNode) (domain.AccountNode, error) {
	tb, err := accountTable(level)
	if err != nil {
		return domain.AccountNode{}, err
	}
	return addRow(ctx, st, "AddAccountNode", tb, node, func(t *tx, n *domain.AccountNode) error {
		n.ID = t.newID(tb.prefix)
		return checkAccountParent(t, level, n)
	})
}

func (st *Store) UpdateAccountNode(ctx context.Context, level domain.AccountLevel, node domain.AccountNode) (domain.AccountNode, error) {
	tb, err := accountTable(level)
	if err != nil {
		return domain.AccountNode{}, err
	}
	return updateRow(ctx, st, "UpdateAccountNode", tb, node, func(t *tx, _ domain.AccountNode, next *domain.AccountNode) error {
		return checkAccountParent(t, level, next)
	})
}

func (st *Store) DeleteAccountNode(ctx context.Context, level domain.AccountLevel, id string) error {
	tb, err := accountTable(level)
	if err != nil {
		return err
	}
	return st.Delete(ctx, tb.family, id)
}

func (st *Store) AccountNodes(level domain.AccountLevel, parentID string) ([]domain.AccountNode, error) {
	tb, err := accountTable(level)
	if err != nil {
		return nil, err
	}
	return listRows(st, tb, func(n domain.AccountNode) bool {
		return parentID == "" || n.ParentID == parentID
	}), nil
}

func (st *Store) AddLedgerAccount(ctx context.Context, a domain.LedgerAccount) (domain.LedgerAccount, error) {
	return addRow(ctx, st, "AddLedgerAccount", ledgerAccounts, a, func(t *tx, a *domain.LedgerAccount) error {
		a.ID = t.newID(ledgerAccounts.prefix)
		return checkLedgerParent(t, a)
	})
}

func (st *Store) UpdateLedgerAccount(ctx context.Context, a domain.LedgerAccount) (domain.LedgerAccount, error) {
	return updateRow(ctx, st, "UpdateLedgerAccount", ledgerAccounts, a, func(t *tx, _ domain.LedgerAccount, next *domain.LedgerAccount) error {
		return checkLedgerParent(t, next)
	})
}

// checkLedgerParent requires a head or a sub-head. A sub-head must sit under
// the given head when both are set.
func checkLedgerParent(t *tx, a *domain.LedgerAccount) error {
	if a.HeadID == "" && a.SubHeadID == "" {
		return invalidf("ledger account needs a head or sub-head")
	}
	if a.HeadID != "" {
		if err := requireRef(t, accountTables[domain.AccountHead], a.HeadID); err != nil {
			return err
		}
	}
	if a.SubHeadID != "" {
		sub, err := accountTables[domain.AccountSubHead].get(t.s, a.SubHeadID)
		if err != nil {
			return preconditionf("%s %s does not exist", FamilyAccountSubHeads, a.SubHeadID)
		}
		if a.HeadID != "" && sub.ParentID != a.HeadID {
			return preconditionf("sub-head %s is not under head %s", a.SubHeadID, a.HeadID)
		}
	}
	return nil
}

func (st *Store) DeleteLedgerAccount(ctx context.Context, id string) error {
	return st.Delete(ctx, FamilyLedgerAccounts, id)
}

func (st *Store) LedgerAccounts() []domain.LedgerAccount {
	return listRows(st, ledgerAccounts, nil)
}

func addressTable(level domain.AddressLevel) (table[domain.AddressNode], error) {
	tb, ok := addressTables[level]
	if !ok {
		return tb, invalidf("unknown address level %q", level)
	}
	return tb, nil
}

func checkAddressParent(t *tx, level domain.AddressLevel, node *domain.AddressNode) error {
	parentLevel, hasParent := level.Parent()
	if !hasParent {
		node.ParentID = ""
		return nil
	}
	return requireRef(t, addressTables[parentLevel], node.ParentID)
}

func (st *Store) AddAddress(ctx context.Context, level domain.AddressLevel, node domain.AddressNode) (domain.AddressNode, error) {
	tb, err := addressTable(level)
	if err != nil {
		return domain.AddressNode{}, err
	}
	return addRow(ctx, st, "AddAddress", tb, node, func(t *tx, n *domain.AddressNode) error {
		n.ID = t.newID(tb.prefix)
		return checkAddressParent(t, level, n)
	})
}

func (st *Store) UpdateAddress(ctx context.Context, level domain.AddressLevel, node domain.AddressNode) (domain.AddressNode, error) {
	tb, err := addressTable(level)
	if err != nil {
		return domain.AddressNode{}, err
	}
	return updateRow(ctx, st, "UpdateAddress", tb, node, func(t *tx, prev domain.AddressNode, next *domain.AddressNode) error {
		if next.ParentID == prev.ParentID {
			return nil
		}
		return checkAddressParent(t, level, next)
	})
}

// DeleteAddress removes one node. A node with children at the next level is
// kept and an IntegrityError names the first child.
func (st *Store) DeleteAddress(ctx context.Context, level domain.AddressLevel, id string) error {
	tb, err := addressTable(level)
	if err != nil {
		return err
	}
	return st.Delete(ctx, tb.family, id)
}

func (st *Store) Addresses(level domain.AddressLevel, parentID string) ([]domain.AddressNode, error) {
	tb, err := addressTable(level)
	if err != nil {
		return nil, err
	}
	return listRows(st, tb, func(n domain.AddressNode) bool {
		return parentID == "" || n.ParentID == parentID
	}), nil
}
