package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountNode is one node of the chart of accounts. Groups have no parent;
// sub-groups point at a group, heads at a sub-group, sub-heads at a head.
type AccountNode struct {
	ID       string `json:"id"`
	Name     string `json:"name" validate:"required"`
	Code     string `json:"code,omitempty"`
	ParentID string `json:"parentId,omitempty"`
}

type AccountLevel string

const (
	AccountGroup    AccountLevel = "group"
	AccountSubGroup AccountLevel = "sub-group"
	AccountHead     AccountLevel = "head"
	AccountSubHead  AccountLevel = "sub-head"
)

var AccountLevels = []AccountLevel{AccountGroup, AccountSubGroup, AccountHead, AccountSubHead}

func (l AccountLevel) Parent() (AccountLevel, bool) {
	for i, level := range AccountLevels {
		if level == l && i > 0 {
			return AccountLevels[i-1], true
		}
	}
	return "", false
}

type LedgerAccount struct {
	ID             string          `json:"id"`
	Name           string          `json:"name" validate:"required"`
	Code           string          `json:"code,omitempty"`
	HeadID         string          `json:"headId,omitempty"`
	SubHeadID      string          `json:"subHeadId,omitempty"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
}

type AddressLevel string

const (
	AddressDivision    AddressLevel = "division"
	AddressDistrict    AddressLevel = "district"
	AddressUpazila     AddressLevel = "upazila"
	AddressUnion       AddressLevel = "union"
	AddressVillage     AddressLevel = "village"
	AddressWorkingArea AddressLevel = "working-area"
)

var AddressLevels = []AddressLevel{
	AddressDivision,
	AddressDistrict,
	AddressUpazila,
	AddressUnion,
	AddressVillage,
	AddressWorkingArea,
}

// Parent returns the level a node of l points at with ParentID.
func (l AddressLevel) Parent() (AddressLevel, bool) {
	for i, level := range AddressLevels {
		if level == l && i > 0 {
			return AddressLevels[i-1], true
		}
	}
	return "", false
}

type AddressNode struct {
	ID       string `json:"id"`
	Name     string `json:"name" validate:"required"`
	ParentID string `json:"parentId,omitempty"`
}

type ProductCategory struct {
	ID       string `json:"id"`
	Name     string `json:"name" validate:"required"`
	ParentID string `json:"parentId,omitempty"`
}

type MenuCategory struct {
	ID       string `json:"id"`
	Name     string `json:"name" validate:"required"`
	ParentID string `json:"parentId,omitempty"`
}

type MenuVariant struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type MenuAddOn struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type CompositeComponent struct {
	MenuItemID string `json:"menuItemId"`
	Quantity   int    `json:"quantity"`
}

type MenuItem struct {
	ID             string               `json:"id"`
	CategoryID     string               `json:"categoryId" validate:"required"`
	Name           string               `json:"name" validate:"required"`
	Price          decimal.Decimal      `json:"price"`
	Available      bool                 `json:"available"`
	Variants       []MenuVariant        `json:"variants"`
	AddOns         []MenuAddOn          `json:"addOns"`
	CompositeItems []CompositeComponent `json:"compositeItems"`
}

type ServiceCategory struct {
	ID       string `json:"id"`
	Name     string `json:"name" validate:"required"`
	ParentID string `json:"parentId,omitempty"`
}

type ServiceItem struct {
	ID         string          `json:"id"`
	CategoryID string          `json:"categoryId" validate:"required"`
	Name       string          `json:"name" validate:"required"`
	Price      decimal.Decimal `json:"price"`
}

type Floor struct {
	ID   string `json:"id"`
	Name string `json:"name" validate:"required"`
}

type Table struct {
	ID      string `json:"id"`
	FloorID string `json:"floorId" validate:"required"`
	Name    string `json:"name" validate:"required"`
	Seats   int    `json:"seats"`
}

type Reservation struct {
	ID           string    `json:"id"`
	TableID      string    `json:"tableId" validate:"required"`
	CustomerName string    `json:"customerName"`
	Phone        string    `json:"phone,omitempty"`
	PartySize    int       `json:"partySize"`
	ReservedFor  time.Time `json:"reservedFor"`
}
