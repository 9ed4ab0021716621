package domain

import "github.com/shopspring/decimal"

// DeriveChallanStatus computes a challan's status from the states of its
// inventory items. Items that cannot be resolved count as not sold.
func DeriveChallanStatus(c Challan, statusOf func(inventoryItemID string) InventoryStatus) ChallanStatus {
	if c.Status == ChallanCancelled {
		return ChallanCancelled
	}
	billed := 0
	for _, item := range c.Items {
		if statusOf(item.InventoryItemID) == InventorySold {
			billed++
		}
	}
	switch {
	case billed == 0:
		return ChallanPending
	case billed == len(c.Items):
		return ChallanFullyBilled
	default:
		return ChallanPartiallyBilled
	}
}

func DeriveTenderStatus(tendered *decimal.Decimal, total decimal.Decimal) TenderStatus {
	if !total.IsPositive() {
		return TenderPaid
	}
	if tendered == nil || !tendered.IsPositive() {
		return TenderUnpaid
	}
	if tendered.GreaterThanOrEqual(total) {
		return TenderPaid
	}
	return TenderPartial
}
