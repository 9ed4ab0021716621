package snapshot

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"dokan/backend/internal/domain"
)

func TestDecodeMergesPartialDocumentOntoDefaults(t *testing.T) {
	raw := []byte(`{
		"organization": {"name": "Rahim Traders"},
		"modules": {"restaurant": true},
		"customers": [{"id": "cus-1", "name": "Karim"}],
		"menuItems": [{"id": "mi-1", "categoryId": "mc-1", "name": "Tea"}],
		"products": [{"id": "prd-1", "name": "Phone"}],
		"serviceJobs": [{"id": "job-1", "status": "ready", "createdAt": "2024-10-01T09:00:00Z"}],
		"tables": null
	}`)

	s, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.Organization.Name != "Rahim Traders" {
		t.Fatalf("expected stored name, got %q", s.Organization.Name)
	}
	if s.Organization.Currency != "BDT" {
		t.Fatalf("expected default currency to survive, got %q", s.Organization.Currency)
	}
	if !s.Modules[domain.ModuleRestaurant] || !s.Modules[domain.ModulePOS] {
		t.Fatalf("expected module toggles merged with defaults, got %v", s.Modules)
	}
	if s.AttributeValues == nil || len(s.AttributeValues) != 0 {
		t.Fatalf("expected missing attributeValues to become empty, got %v", s.AttributeValues)
	}
	if s.Tables == nil {
		t.Fatalf("expected null tables to become empty")
	}
	if len(s.AccountGroups) != 5 {
		t.Fatalf("expected seeded account groups, got %d", len(s.AccountGroups))
	}

	item := s.MenuItems[0]
	if item.Variants == nil || item.AddOns == nil || item.CompositeItems == nil {
		t.Fatalf("expected menu item collections backfilled, got %+v", item)
	}
	if s.Products[0].Attributes == nil || s.Products[0].Unit != "pcs" {
		t.Fatalf("expected product backfill, got %+v", s.Products[0])
	}
	job := s.ServiceJobs[0]
	if last, ok := job.StatusHistory.Last(); !ok || last.Status != domain.JobReady {
		t.Fatalf("expected history seeded from current status, got %+v", job.StatusHistory.Entries())
	}
	if s.Meta.SchemaVersion != SchemaVersion {
		t.Fatalf("expected schema version %d, got %d", SchemaVersion, s.Meta.SchemaVersion)
	}
}

func TestDecodeKeepsExplicitlyEmptyAccountGroups(t *testing.T) {
	s, err := Decode([]byte(`{"meta":{"schemaVersion":2},"accountGroups":[]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(s.AccountGroups) != 0 {
		t.Fatalf("expected stored empty list to win over defaults, got %d", len(s.AccountGroups))
	}
}

func TestDecodeUpgradesLegacyKeys(t *testing.T) {
	s, err := Decode([]byte(`{"serviceItemCategories":[{"id":"sc-1","name":"Repair"}]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(s.ServiceCategories) != 1 || s.ServiceCategories[0].ID != "sc-1" {
		t.Fatalf("expected legacy key renamed, got %+v", s.ServiceCategories)
	}
}

func TestDecodeRejectsNonObjects(t *testing.T) {
	for _, raw := range []string{"", "null", "[]", `"x"`, "{broken", `{"meta":{"schemaVersion":99}}`} {
		if _, err := Decode([]byte(raw)); !errors.Is(err, ErrMalformed) {
			t.Fatalf("%q: expected ErrMalformed, got %v", raw, err)
		}
	}
}

func TestDecodeRederivesChallanStatus(t *testing.T) {
	raw := []byte(`{
		"inventoryItems": [
			{"id": "inv-1", "status": "sold", "challanId": "ch-1", "orderId": "ord-1"},
			{"id": "inv-2", "status": "allocated-to-challan", "challanId": "ch-1"}
		],
		"challans": [{"id": "ch-1", "status": "pending", "items": [
			{"inventoryItemId": "inv-1"}, {"inventoryItemId": "inv-2"}
		]}]
	}`)
	s, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.Challans[0].Status != domain.ChallanPartiallyBilled {
		t.Fatalf("expected partially-billed, got %s", s.Challans[0].Status)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	s := Default()
	at := time.Date(2024, 10, 1, 10, 30, 0, 0, time.UTC)
	tendered := decimal.NewFromInt(500)
	s.Customers = append(s.Customers, domain.Customer{ID: "cus-1", Name: "Karim", CreatedAt: at})
	s.Orders = append(s.Orders, domain.Order{
		ID:             "ord-1",
		OrderNumber:    "01102024-0001",
		Items:          []domain.OrderLine{{ProductID: "prd-1", Name: "Phone", Quantity: 1, Price: decimal.NewFromInt(450)}},
		Subtotal:       decimal.NewFromInt(450),
		Total:          decimal.NewFromInt(450),
		AmountTendered: &tendered,
		Status:         domain.OrderCompleted,
		TenderStatus:   domain.TenderPaid,
		CreatedAt:      at,
	})
	s.OrderSequence = domain.SequenceCursor{Date: "2024-10-01", Serial: 1}

	first, err := Encode(s)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := Decode(first)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	second, err := Encode(decoded)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("round trip changed the document:\n%s\n%s", first, second)
	}
}

func TestCloneIsDeep(t *testing.T) {
	s := Default()
	s.Challans = append(s.Challans, domain.Challan{ID: "ch-1", Items: []domain.ChallanItem{{InventoryItemID: "inv-1"}}})
	s.MenuItems = append(s.MenuItems, domain.MenuItem{ID: "mi-1", Variants: []domain.MenuVariant{{Name: "Large"}}})

	c := s.Clone()
	c.Challans[0].Items[0].InventoryItemID = "changed"
	c.MenuItems[0].Variants[0].Name = "changed"
	c.Modules[domain.ModulePOS] = false
	c.Customers = append(c.Customers, domain.Customer{ID: "cus-x"})

	if s.Challans[0].Items[0].InventoryItemID != "inv-1" || s.MenuItems[0].Variants[0].Name != "Large" {
		t.Fatalf("clone shares nested slices with the original")
	}
	if !s.Modules[domain.ModulePOS] || len(s.Customers) != 0 {
		t.Fatalf("clone shares top-level state with the original")
	}
}
