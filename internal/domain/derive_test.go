package domain

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDeriveChallanStatusForEverySubset(t *testing.T) {
	challan := Challan{Items: []ChallanItem{
		{InventoryItemID: "inv-1"},
		{InventoryItemID: "inv-2"},
		{InventoryItemID: "inv-3"},
	}}

	for mask := 0; mask < 1<<len(challan.Items); mask++ {
		sold := map[string]bool{}
		for i, item := range challan.Items {
			if mask&(1<<i) != 0 {
				sold[item.InventoryItemID] = true
			}
		}
		got := DeriveChallanStatus(challan, func(id string) InventoryStatus {
			if sold[id] {
				return InventorySold
			}
			return InventoryAllocated
		})

		want := ChallanPartiallyBilled
		switch len(sold) {
		case 0:
			want = ChallanPending
		case len(challan.Items):
			want = ChallanFullyBilled
		}
		if got != want {
			t.Fatalf("mask %03b: expected %s, got %s", mask, want, got)
		}
	}
}

func TestDeriveChallanStatusKeepsCancelled(t *testing.T) {
	challan := Challan{Status: ChallanCancelled, Items: []ChallanItem{{InventoryItemID: "inv-1"}}}
	got := DeriveChallanStatus(challan, func(string) InventoryStatus { return InventorySold })
	if got != ChallanCancelled {
		t.Fatalf("expected cancelled, got %s", got)
	}
}

func TestDeriveTenderStatus(t *testing.T) {
	amount := func(v int64) *decimal.Decimal {
		d := decimal.NewFromInt(v)
		return &d
	}
	tests := []struct {
		name     string
		tendered *decimal.Decimal
		total    decimal.Decimal
		want     TenderStatus
	}{
		{"no tender", nil, decimal.NewFromInt(300), TenderUnpaid},
		{"zero tender", amount(0), decimal.NewFromInt(300), TenderUnpaid},
		{"short tender", amount(100), decimal.NewFromInt(300), TenderPartial},
		{"exact tender", amount(300), decimal.NewFromInt(300), TenderPaid},
		{"over tender", amount(500), decimal.NewFromInt(300), TenderPaid},
		{"free order", nil, decimal.Zero, TenderPaid},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := DeriveTenderStatus(tc.tendered, tc.total); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestStatusLogAppendLeavesEarlierValuesIntact(t *testing.T) {
	at := time.Date(2024, 10, 1, 9, 0, 0, 0, time.UTC)
	base := NewStatusLog(StatusEntry{Status: JobReceived, Timestamp: at})

	a := base.Append(StatusEntry{Status: JobInProgress, Timestamp: at.Add(time.Hour)})
	b := base.Append(StatusEntry{Status: JobCancelled, Timestamp: at.Add(2 * time.Hour)})

	if base.Len() != 1 {
		t.Fatalf("expected base log to keep 1 entry, got %d", base.Len())
	}
	if last, _ := a.Last(); last.Status != JobInProgress {
		t.Fatalf("expected in-progress tail, got %s", last.Status)
	}
	if last, _ := b.Last(); last.Status != JobCancelled {
		t.Fatalf("expected cancelled tail, got %s", last.Status)
	}
	if !a.Extends(base) || !b.Extends(base) {
		t.Fatalf("expected appended logs to extend the base")
	}
	if base.Extends(a) {
		t.Fatalf("shorter log must not extend a longer one")
	}

	entries := a.Entries()
	entries[0].Status = JobDelivered
	if first := a.Entries()[0]; first.Status != JobReceived {
		t.Fatalf("Entries must return a copy, got %s", first.Status)
	}
}

func TestStatusLogJSON(t *testing.T) {
	var empty StatusLog
	raw, err := json.Marshal(empty)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != "[]" {
		t.Fatalf("expected [], got %s", raw)
	}

	at := time.Date(2024, 10, 1, 9, 0, 0, 0, time.UTC)
	log := NewStatusLog(StatusEntry{Status: JobReceived, Timestamp: at}).
		Append(StatusEntry{Status: JobReady, Timestamp: at.Add(time.Hour)})
	raw, err = json.Marshal(log)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded StatusLog
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Len() != 2 || !decoded.Extends(log) {
		t.Fatalf("expected decoded log to equal original, got %s", fmt.Sprint(decoded.Entries()))
	}
}

func TestAddressLevelParent(t *testing.T) {
	if _, ok := AddressDivision.Parent(); ok {
		t.Fatalf("division has no parent level")
	}
	if parent, ok := AddressWorkingArea.Parent(); !ok || parent != AddressVillage {
		t.Fatalf("expected village, got %q", parent)
	}
}

func TestOrderOutstanding(t *testing.T) {
	tendered := decimal.NewFromInt(120)
	order := Order{Total: decimal.NewFromInt(300), AmountTendered: &tendered}
	if !order.Outstanding().Equal(decimal.NewFromInt(180)) {
		t.Fatalf("expected 180 outstanding, got %s", order.Outstanding())
	}
	over := decimal.NewFromInt(500)
	order.AmountTendered = &over
	if !order.Outstanding().IsZero() {
		t.Fatalf("expected 0 outstanding, got %s", order.Outstanding())
	}
}
