package store

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"dokan/backend/internal/domain"
	"dokan/backend/internal/events"
)

func (st *Store) AddLoanProduct(ctx context.Context, p domain.LoanProduct) (domain.LoanProduct, error) {
	return addRow(ctx, st, "AddLoanProduct", loanProducts, p, func(t *tx, p *domain.LoanProduct) error {
		p.ID = t.newID(loanProducts.prefix)
		return checkLoanProduct(*p)
	})
}

func (st *Store) UpdateLoanProduct(ctx context.Context, p domain.LoanProduct) (domain.LoanProduct, error) {
	return updateRow(ctx, st, "UpdateLoanProduct", loanProducts, p, func(_ *tx, _ domain.LoanProduct, next *domain.LoanProduct) error {
		return checkLoanProduct(*next)
	})
}

func checkLoanProduct(p domain.LoanProduct) error {
	if p.InterestRate.IsNegative() || p.MaxAmount.IsNegative() {
		return invalidf("loan product rates and amounts must not be negative")
	}
	if p.TermMonths < 0 {
		return invalidf("loan term must not be negative")
	}
	return nil
}

func (st *Store) DeleteLoanProduct(ctx context.Context, id string) error {
	return st.Delete(ctx, FamilyLoanProducts, id)
}

func (st *Store) LoanProducts() []domain.LoanProduct {
	return listRows(st, loanProducts, nil)
}

func (st *Store) AddSavingsProduct(ctx context.Context, p domain.SavingsProduct) (domain.SavingsProduct, error) {
	return addRow(ctx, st, "AddSavingsProduct", savingsProducts, p, func(t *tx, p *domain.SavingsProduct) error {
		p.ID = t.newID(savingsProducts.prefix)
		return checkSavingsProduct(*p)
	})
}

func (st *Store) UpdateSavingsProduct(ctx context.Context, p domain.SavingsProduct) (domain.SavingsProduct, error) {
	return updateRow(ctx, st, "UpdateSavingsProduct", savingsProducts, p, func(_ *tx, _ domain.SavingsProduct, next *domain.SavingsProduct) error {
		return checkSavingsProduct(*next)
	})
}

func checkSavingsProduct(p domain.SavingsProduct) error {
	if p.InterestRate.IsNegative() || p.MinimumBalance.IsNegative() {
		return invalidf("savings product rates and balances must not be negative")
	}
	return nil
}

func (st *Store) DeleteSavingsProduct(ctx context.Context, id string) error {
	return st.Delete(ctx, FamilySavingsProducts, id)
}

func (st *Store) SavingsProducts() []domain.SavingsProduct {
	return listRows(st, savingsProducts, nil)
}

// post appends a transaction to an open account and moves its balance.
// The account is returned as stored after the change.
func (t *tx) post(accountID string, kind domain.SavingsTxnKind, amount decimal.Decimal, note string, allow func(acc domain.SavingsAccount, next decimal.Decimal) error) (domain.SavingsAccount, error) {
	acc, err := savingsAccounts.get(t.s, accountID)
	if err != nil {
		return acc, err
	}
	if acc.Status != domain.SavingsOpen {
		return acc, preconditionf("savings account %s is %s", accountID, acc.Status)
	}
	next := acc.Balance.Add(amount)
	if next.IsNegative() {
		return acc, preconditionf("balance of savings account %s would become %s", accountID, next)
	}
	if allow != nil {
		if err := allow(acc, next); err != nil {
			return acc, err
		}
	}
	acc.Balance = next
	_ = savingsAccounts.put(t.s, acc)
	t.emit(events.Updated, FamilySavingsAccounts, acc.ID)

	txn := domain.SavingsTransaction{
		ID:           t.newID(savingsTransactions.prefix),
		AccountID:    acc.ID,
		Kind:         kind,
		Amount:       amount,
		BalanceAfter: next,
		At:           t.now,
		Note:         strings.TrimSpace(note),
	}
	savingsTransactions.insert(t.s, txn)
	t.emit(events.Created, FamilySavingsTransactions, txn.ID)
	return acc, nil
}

// OpenSavingsAccount opens an account for a customer under a savings product.
// A positive initial deposit is posted as the first transaction.
func (st *Store) OpenSavingsAccount(ctx context.Context, customerID, productID string, initialDeposit decimal.Decimal) (domain.SavingsAccount, error) {
	if initialDeposit.IsNegative() {
		return domain.SavingsAccount{}, invalidf("initial deposit must not be negative")
	}
	var out domain.SavingsAccount
	err := st.mutate(ctx, "OpenSavingsAccount", func(t *tx) error {
		if err := requireRef(t, customers, customerID); err != nil {
			return err
		}
		if err := requireRef(t, savingsProducts, productID); err != nil {
			return err
		}
		acc := domain.SavingsAccount{
			ID:         t.newID(savingsAccounts.prefix),
			CustomerID: customerID,
			ProductID:  productID,
			Balance:    decimal.Zero,
			Status:     domain.SavingsOpen,
			OpenedAt:   t.now,
		}
		savingsAccounts.insert(t.s, acc)
		t.emit(events.Created, FamilySavingsAccounts, acc.ID)
		if initialDeposit.IsPositive() {
			var err error
			if acc, err = t.post(acc.ID, domain.SavingsDeposit, initialDeposit, "opening deposit", nil); err != nil {
				return err
			}
		}
		out = acc.Clone()
		return nil
	})
	return out, err
}

func (st *Store) DepositSavings(ctx context.Context, accountID string, amount decimal.Decimal, note string) (domain.SavingsAccount, error) {
	if !amount.IsPositive() {
		return domain.SavingsAccount{}, invalidf("deposit must be positive")
	}
	return st.postSavings(ctx, "DepositSavings", accountID, domain.SavingsDeposit, amount, note, nil)
}

// WithdrawSavings debits an account without taking it below its product's
// minimum balance.
func (st *Store) WithdrawSavings(ctx context.Context, accountID string, amount decimal.Decimal, note string) (domain.SavingsAccount, error) {
	if !amount.IsPositive() {
		return domain.SavingsAccount{}, invalidf("withdrawal must be positive")
	}
	return st.postSavings(ctx, "WithdrawSavings", accountID, domain.SavingsWithdrawal, amount.Neg(), note,
		func(t *tx, acc domain.SavingsAccount, next decimal.Decimal) error {
			product, err := savingsProducts.get(t.s, acc.ProductID)
			if err != nil {
				return nil
			}
			if next.LessThan(product.MinimumBalance) {
				return preconditionf("withdrawal leaves %s, below the minimum balance %s", next, product.MinimumBalance)
			}
			return nil
		})
}

// AddSavingsAdjustment posts a signed correction. The balance may not go
// below zero.
func (st *Store) AddSavingsAdjustment(ctx context.Context, accountID string, amount decimal.Decimal, note string) (domain.SavingsAccount, error) {
	if amount.IsZero() {
		return domain.SavingsAccount{}, invalidf("adjustment must not be zero")
	}
	if strings.TrimSpace(note) == "" {
		return domain.SavingsAccount{}, invalidf("adjustment needs a note")
	}
	return st.postSavings(ctx, "AddSavingsAdjustment", accountID, domain.SavingsAdjustment, amount, note, nil)
}

func (st *Store) postSavings(ctx context.Context, op, accountID string, kind domain.SavingsTxnKind, amount decimal.Decimal, note string,
	allow func(t *tx, acc domain.SavingsAccount, next decimal.Decimal) error) (domain.SavingsAccount, error) {
	var out domain.SavingsAccount
	err := st.mutate(ctx, op, func(t *tx) error {
		var check func(domain.SavingsAccount, decimal.Decimal) error
		if allow != nil {
			check = func(acc domain.SavingsAccount, next decimal.Decimal) error { return allow(t, acc, next) }
		}
		acc, err := t.post(accountID, kind, amount, note, check)
		if err != nil {
			return err
		}
		out = acc.Clone()
		return nil
	})
	return out, err
}

// CloseSavingsAccount pays out the remaining balance with a closing
// transaction and closes the account.
func (st *Store) CloseSavingsAccount(ctx context.Context, accountID, note string) (domain.SavingsAccount, error) {
	var out domain.SavingsAccount
	err := st.mutate(ctx, "CloseSavingsAccount", func(t *tx) error {
		acc, err := savingsAccounts.get(t.s, accountID)
		if err != nil {
			return err
		}
		if acc.Status == domain.SavingsClosed {
			return preconditionf("savings account %s is already closed", accountID)
		}
		if note == "" {
			note = "account closed"
		}
		if acc, err = t.post(accountID, domain.SavingsClosing, acc.Balance.Neg(), note, nil); err != nil {
			return err
		}
		closedAt := t.now
		acc.Status = domain.SavingsClosed
		acc.ClosedAt = &closedAt
		_ = savingsAccounts.put(t.s, acc)
		out = acc.Clone()
		return nil
	})
	return out, err
}

func (st *Store) SavingsAccount(id string) (domain.SavingsAccount, error) {
	return getRow(st, savingsAccounts, id)
}

func (st *Store) SavingsAccounts(customerID string) []domain.SavingsAccount {
	return listRows(st, savingsAccounts, func(a domain.SavingsAccount) bool {
		return customerID == "" || a.CustomerID == customerID
	})
}

func (st *Store) SavingsTransactions(accountID string) []domain.SavingsTransaction {
	return listRows(st, savingsTransactions, func(txn domain.SavingsTransaction) bool {
		return accountID == "" || txn.AccountID == accountID
	})
}

// DeleteSavingsAccount removes an account that never had a transaction.
func (st *Store) DeleteSavingsAccount(ctx context.Context, id string) error {
	return st.Delete(ctx, FamilySavingsAccounts, id)
}
