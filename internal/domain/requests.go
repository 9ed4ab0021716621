package domain

import "github.com/shopspring/decimal"

// MaxChallanUnits bounds the physical units one challan request may allocate.
const MaxChallanUnits = 1000

// ChallanRequest is what a delivery form submits. Lines are expanded into one
// blueprint line per physical unit.
type ChallanRequest struct {
	CustomerID       string               `json:"customerId" validate:"required"`
	DeliveryLocation string               `json:"deliveryLocation"`
	Note             string               `json:"note,omitempty"`
	Lines            []ChallanRequestLine `json:"lines" validate:"required,min=1,max=1000,dive"`
}

// ChallanRequestLine lists serial numbers for serialized products and a
// quantity for everything else. Name and Price default to the product's.
type ChallanRequestLine struct {
	ProductID     string           `json:"productId" validate:"required"`
	SerialNumbers []string         `json:"serialNumbers,omitempty" validate:"max=1000"`
	Quantity      int              `json:"quantity,omitempty" validate:"gte=0,lte=1000"`
	Name          string           `json:"name,omitempty"`
	Price         *decimal.Decimal `json:"price,omitempty"`
}

// CheckoutRequest bills a challan. Without InventoryItemIDs every item still
// allocated to the challan is billed.
type CheckoutRequest struct {
	ChallanID        string           `json:"challanId" validate:"required"`
	InventoryItemIDs []string         `json:"inventoryItemIds,omitempty"`
	DiscountAmount   decimal.Decimal  `json:"discountAmount"`
	AmountTendered   *decimal.Decimal `json:"amountTendered,omitempty"`
	ServiceJobID     string           `json:"serviceJobId,omitempty"`
}
