package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type LoanProduct struct {
	ID           string          `json:"id"`
	Name         string          `json:"name" validate:"required"`
	InterestRate decimal.Decimal `json:"interestRate"`
	TermMonths   int             `json:"termMonths"`
	MaxAmount    decimal.Decimal `json:"maxAmount"`
}

type SavingsProduct struct {
	ID             string          `json:"id"`
	Name           string          `json:"name" validate:"required"`
	InterestRate   decimal.Decimal `json:"interestRate"`
	MinimumBalance decimal.Decimal `json:"minimumBalance"`
}

type SavingsAccountStatus string

const (
	SavingsOpen   SavingsAccountStatus = "open"
	SavingsClosed SavingsAccountStatus = "closed"
)

type SavingsAccount struct {
	ID         string               `json:"id"`
	CustomerID string               `json:"customerId"`
	ProductID  string               `json:"productId"`
	Balance    decimal.Decimal      `json:"balance"`
	Status     SavingsAccountStatus `json:"status"`
	OpenedAt   time.Time            `json:"openedAt"`
	ClosedAt   *time.Time           `json:"closedAt,omitempty"`
}

type SavingsTxnKind string

const (
	SavingsDeposit    SavingsTxnKind = "deposit"
	SavingsWithdrawal SavingsTxnKind = "withdrawal"
	SavingsAdjustment SavingsTxnKind = "adjustment"
	SavingsClosing    SavingsTxnKind = "closing"
)

// SavingsTransaction amounts are signed: credits positive, debits negative.
type SavingsTransaction struct {
	ID           string          `json:"id"`
	AccountID    string          `json:"accountId"`
	Kind         SavingsTxnKind  `json:"kind"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balanceAfter"`
	At           time.Time       `json:"at"`
	Note         string          `json:"note,omitempty"`
}
