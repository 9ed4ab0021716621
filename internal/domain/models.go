package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type InventoryStatus string

const (
	InventoryAllocated InventoryStatus = "allocated-to-challan"
	InventorySold      InventoryStatus = "sold"
	// InventoryReleased marks items whose challan was cancelled before billing.
	InventoryReleased InventoryStatus = "released"
)

type ChallanStatus string

const (
	ChallanPending         ChallanStatus = "pending"
	ChallanPartiallyBilled ChallanStatus = "partially-billed"
	ChallanFullyBilled     ChallanStatus = "fully-billed"
	ChallanCancelled       ChallanStatus = "cancelled"
)

type OrderStatus string

const (
	OrderCompleted OrderStatus = "completed"
)

// TenderStatus reflects only what was tendered against the order at creation.
// Customer-level outstanding dues are computed separately by the store.
type TenderStatus string

const (
	TenderPaid    TenderStatus = "paid"
	TenderPartial TenderStatus = "partial"
	TenderUnpaid  TenderStatus = "unpaid"
)

type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name" validate:"required"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type Product struct {
	ID         string             `json:"id"`
	Name       string             `json:"name" validate:"required"`
	SKU        string             `json:"sku,omitempty"`
	CategoryID string             `json:"categoryId,omitempty"`
	Unit       string             `json:"unit"`
	Price      decimal.Decimal    `json:"price"`
	Serialized bool               `json:"serialized"`
	Attributes []ProductAttribute `json:"attributes"`
}

type ProductAttribute struct {
	AttributeID string `json:"attributeId"`
	ValueID     string `json:"valueId"`
}

type Attribute struct {
	ID   string `json:"id"`
	Name string `json:"name" validate:"required"`
}

type AttributeValue struct {
	ID          string `json:"id"`
	AttributeID string `json:"attributeId" validate:"required"`
	Value       string `json:"value" validate:"required"`
}

type InventoryItem struct {
	ID           string          `json:"id"`
	ProductID    string          `json:"productId"`
	SerialNumber string          `json:"serialNumber"`
	Status       InventoryStatus `json:"status"`
	ChallanID    string          `json:"challanId,omitempty"`
	OrderID      string          `json:"orderId,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// ChallanItem is the denormalized delivery line for one inventory item. It is
// never modified after the challan is created.
type ChallanItem struct {
	InventoryItemID string          `json:"inventoryItemId"`
	ProductID       string          `json:"productId"`
	Name            string          `json:"name"`
	SerialNumber    string          `json:"serialNumber"`
	Price           decimal.Decimal `json:"price"`
}

type Challan struct {
	ID               string        `json:"id"`
	ChallanNumber    string        `json:"challanNumber"`
	CustomerID       string        `json:"customerId"`
	CreatedAt        time.Time     `json:"createdAt"`
	DeliveryLocation string        `json:"deliveryLocation"`
	Note             string        `json:"note,omitempty"`
	Items            []ChallanItem `json:"items"`
	Status           ChallanStatus `json:"status"`
}

type ChallanLine struct {
	ProductID    string          `json:"productId" validate:"required"`
	Name         string          `json:"name" validate:"required"`
	SerialNumber string          `json:"serialNumber"`
	Price        decimal.Decimal `json:"price"`
}

// ChallanBlueprint is the input for creating a challan together with its
// inventory items.
type ChallanBlueprint struct {
	CustomerID       string        `json:"customerId" validate:"required"`
	DeliveryLocation string        `json:"deliveryLocation"`
	Note             string        `json:"note,omitempty"`
	Lines            []ChallanLine `json:"lines" validate:"required,min=1,max=1000,dive"`
}

type ChallanUpdate struct {
	DeliveryLocation *string `json:"deliveryLocation,omitempty"`
	Note             *string `json:"note,omitempty"`
}

type OrderLine struct {
	ProductID       string          `json:"productId"`
	InventoryItemID string          `json:"inventoryItemId,omitempty"`
	Name            string          `json:"name"`
	SerialNumber    string          `json:"serialNumber,omitempty"`
	Quantity        int             `json:"quantity"`
	Price           decimal.Decimal `json:"price"`
}

func (l OrderLine) Amount() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Order struct {
	ID             string           `json:"id"`
	OrderNumber    string           `json:"orderNumber"`
	CustomerID     string           `json:"customerId,omitempty"`
	Items          []OrderLine      `json:"items"`
	Subtotal       decimal.Decimal  `json:"subtotal"`
	DiscountAmount decimal.Decimal  `json:"discountAmount"`
	Total          decimal.Decimal  `json:"total"`
	AmountTendered *decimal.Decimal `json:"amountTendered,omitempty"`
	ChangeDue      *decimal.Decimal `json:"changeDue,omitempty"`
	ChallanID      string           `json:"challanId,omitempty"`
	ServiceJobID   string           `json:"serviceJobId,omitempty"`
	Status         OrderStatus      `json:"status"`
	TenderStatus   TenderStatus     `json:"tenderStatus"`
	CreatedAt      time.Time        `json:"createdAt"`
}

// Outstanding is the part of the order total not covered by the tender.
func (o Order) Outstanding() decimal.Decimal {
	if o.AmountTendered == nil {
		return o.Total
	}
	rest := o.Total.Sub(*o.AmountTendered)
	if rest.IsNegative() {
		return decimal.Zero
	}
	return rest
}

// Collection is a due payment received from a customer outside of an order.
type Collection struct {
	ID          string          `json:"id"`
	CustomerID  string          `json:"customerId" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
	CollectedAt time.Time       `json:"collectedAt"`
	Note        string          `json:"note,omitempty"`
}

type SequenceCursor struct {
	Date   string `json:"date"`
	Serial int    `json:"serial"`
}
