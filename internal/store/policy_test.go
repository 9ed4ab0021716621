package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"dokan/backend/internal/domain"
	"dokan/backend/internal/events"
	"dokan/backend/internal/snapshot"
)

func TestFloorDeleteCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ground, _ := f.st.AddFloor(ctx, domain.Floor{Name: "Ground"})
	roof, _ := f.st.AddFloor(ctx, domain.Floor{Name: "Roof"})
	t1, err := f.st.AddTable(ctx, domain.Table{FloorID: ground.ID, Name: "T1", Seats: 4})
	if err != nil {
		t.Fatalf("add table: %v", err)
	}
	t2, _ := f.st.AddTable(ctx, domain.Table{FloorID: ground.ID, Name: "T2", Seats: 2})
	t3, _ := f.st.AddTable(ctx, domain.Table{FloorID: roof.ID, Name: "R1", Seats: 6})
	for _, tableID := range []string{t1.ID, t2.ID, t3.ID} {
		if _, err := f.st.AddReservation(ctx, domain.Reservation{TableID: tableID, CustomerName: "Nadia", PartySize: 2, ReservedFor: testNow.Add(time.Hour)}); err != nil {
			t.Fatalf("add reservation: %v", err)
		}
	}

	if err := f.st.CanDelete(FamilyFloors, ground.ID); err != nil {
		t.Fatalf("cascade families are always deletable, got %v", err)
	}
	if err := f.st.DeleteFloor(ctx, ground.ID); err != nil {
		t.Fatalf("delete floor: %v", err)
	}
	if tables := f.st.Tables(""); len(tables) != 1 || tables[0].ID != t3.ID {
		t.Fatalf("expected only the roof table to remain, got %+v", tables)
	}
	if rs := f.st.Reservations(""); len(rs) != 1 || rs[0].TableID != t3.ID {
		t.Fatalf("expected only the roof reservation to remain, got %+v", rs)
	}

	if err := f.st.DeleteTable(ctx, t3.ID); err != nil {
		t.Fatalf("delete table: %v", err)
	}
	if rs := f.st.Reservations(""); len(rs) != 0 {
		t.Fatalf("expected table delete to cascade to reservations, got %d", len(rs))
	}
}

func TestAccountingHierarchyBlocks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sub, err := f.st.AddAccountNode(ctx, domain.AccountSubGroup, domain.AccountNode{Name: "Current assets", ParentID: "grp-assets"})
	if err != nil {
		t.Fatalf("add sub-group: %v", err)
	}
	head, err := f.st.AddAccountNode(ctx, domain.AccountHead, domain.AccountNode{Name: "Cash", ParentID: sub.ID})
	if err != nil {
		t.Fatalf("add head: %v", err)
	}
	ledger, err := f.st.AddLedgerAccount(ctx, domain.LedgerAccount{Name: "Cash in hand", HeadID: head.ID})
	if err != nil {
		t.Fatalf("add ledger: %v", err)
	}
	if _, err := f.st.AddAccountNode(ctx, domain.AccountHead, domain.AccountNode{Name: "Bad", ParentID: "grp-assets"}); !errors.Is(err, ErrPrecondition) {
		t.Fatalf("expected a head under a group to be rejected, got %v", err)
	}

	before := f.st.Snapshot()
	var ierr *IntegrityError
	err = f.st.DeleteAccountNode(ctx, domain.AccountGroup, "grp-assets")
	if !errors.As(err, &ierr) || ierr.ReferencedBy != FamilyAccountSubGroups || ierr.ReferenceID != sub.ID {
		t.Fatalf("expected group delete blocked by its sub-group, got %v", err)
	}
	if !errors.Is(err, ErrIntegrity) {
		t.Fatalf("integrity errors must wrap ErrIntegrity")
	}
	err = f.st.DeleteAccountNode(ctx, domain.AccountHead, head.ID)
	if !errors.As(err, &ierr) || ierr.ReferencedBy != FamilyLedgerAccounts {
		t.Fatalf("expected head delete blocked by its ledger account, got %v", err)
	}
	if after := f.st.Snapshot(); after.Meta.Revision != before.Meta.Revision || len(after.AccountHeads) != 1 {
		t.Fatal("blocked deletes must not change state")
	}

	if err := f.st.DeleteLedgerAccount(ctx, ledger.ID); err != nil {
		t.Fatalf("delete ledger: %v", err)
	}
	if err := f.st.DeleteAccountNode(ctx, domain.AccountHead, head.ID); err != nil {
		t.Fatalf("delete head after its ledger: %v", err)
	}
}

func TestMenuCategoryCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	drinks, _ := f.st.AddMenuCategory(ctx, domain.MenuCategory{Name: "Drinks"})
	hot, err := f.st.AddMenuCategory(ctx, domain.MenuCategory{Name: "Hot", ParentID: drinks.ID})
	if err != nil {
		t.Fatalf("add sub-category: %v", err)
	}
	food, _ := f.st.AddMenuCategory(ctx, domain.MenuCategory{Name: "Food"})
	if _, err := f.st.AddMenuItem(ctx, domain.MenuItem{CategoryID: hot.ID, Name: "Tea", Price: decimal.NewFromInt(20)}); err != nil {
		t.Fatalf("add item: %v", err)
	}
	if _, err := f.st.AddMenuItem(ctx, domain.MenuItem{CategoryID: drinks.ID, Name: "Water", Price: decimal.NewFromInt(15)}); err != nil {
		t.Fatalf("add item: %v", err)
	}
	rice, _ := f.st.AddMenuItem(ctx, domain.MenuItem{CategoryID: food.ID, Name: "Rice", Price: decimal.NewFromInt(60)})

	if _, err := f.st.UpdateMenuCategory(ctx, domain.MenuCategory{ID: drinks.ID, Name: "Drinks", ParentID: hot.ID}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected a category cycle to be rejected, got %v", err)
	}

	if err := f.st.DeleteMenuCategory(ctx, drinks.ID); err != nil {
		t.Fatalf("delete category: %v", err)
	}
	if cats := f.st.MenuCategories(); len(cats) != 1 || cats[0].ID != food.ID {
		t.Fatalf("expected only Food to remain, got %+v", cats)
	}
	if items := f.st.MenuItems(""); len(items) != 1 || items[0].ID != rice.ID {
		t.Fatalf("expected only Rice to remain, got %+v", items)
	}
}

func TestServiceCategoryCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	repairs, _ := f.st.AddServiceCategory(ctx, domain.ServiceCategory{Name: "Repairs"})
	phones, err := f.st.AddServiceCategory(ctx, domain.ServiceCategory{Name: "Phones", ParentID: repairs.ID})
	if err != nil {
		t.Fatalf("add sub-category: %v", err)
	}
	screens, err := f.st.AddServiceCategory(ctx, domain.ServiceCategory{Name: "Screens", ParentID: phones.ID})
	if err != nil {
		t.Fatalf("add nested sub-category: %v", err)
	}
	installs, _ := f.st.AddServiceCategory(ctx, domain.ServiceCategory{Name: "Installation"})
	for _, item := range []domain.ServiceItem{
		{CategoryID: repairs.ID, Name: "Diagnosis", Price: decimal.NewFromInt(200)},
		{CategoryID: phones.ID, Name: "Battery swap", Price: decimal.NewFromInt(800)},
		{CategoryID: screens.ID, Name: "Glass replacement", Price: decimal.NewFromInt(1500)},
	} {
		if _, err := f.st.AddServiceItem(ctx, item); err != nil {
			t.Fatalf("add service item %s: %v", item.Name, err)
		}
	}
	wiring, _ := f.st.AddServiceItem(ctx, domain.ServiceItem{CategoryID: installs.ID, Name: "Router setup", Price: decimal.NewFromInt(500)})

	if err := f.st.DeleteServiceCategory(ctx, repairs.ID); err != nil {
		t.Fatalf("delete category: %v", err)
	}
	if cats := f.st.ServiceCategories(); len(cats) != 1 || cats[0].ID != installs.ID {
		t.Fatalf("expected only Installation to remain, got %+v", cats)
	}
	if items := f.st.ServiceItems(""); len(items) != 1 || items[0].ID != wiring.ID {
		t.Fatalf("expected only Router setup to remain, got %+v", items)
	}
	if n := f.events.count(events.Deleted, FamilyServiceItems); n != 3 {
		t.Fatalf("expected 3 service item delete events, got %d", n)
	}
	if n := f.events.count(events.Deleted, FamilyServiceCategories); n != 3 {
		t.Fatalf("expected 3 service category delete events, got %d", n)
	}
}

func TestCatalogBlocks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	parent, _ := f.st.AddProductCategory(ctx, domain.ProductCategory{Name: "Networking"})
	child, _ := f.st.AddProductCategory(ctx, domain.ProductCategory{Name: "Routers", ParentID: parent.ID})
	if err := f.st.DeleteProductCategory(ctx, parent.ID); !errors.Is(err, ErrIntegrity) {
		t.Fatalf("expected category with sub-category blocked, got %v", err)
	}
	p := f.product
	p.CategoryID = child.ID
	if _, err := f.st.UpdateProduct(ctx, p); err != nil {
		t.Fatalf("update product: %v", err)
	}
	if err := f.st.DeleteProductCategory(ctx, child.ID); !errors.Is(err, ErrIntegrity) {
		t.Fatalf("expected category with products blocked, got %v", err)
	}

	f.challan(t, f.line("SN-1"))
	if err := f.st.DeleteProduct(ctx, f.product.ID); !errors.Is(err, ErrIntegrity) {
		t.Fatalf("expected product with inventory blocked, got %v", err)
	}
	if err := f.st.DeleteCustomer(ctx, f.customer.ID); !errors.Is(err, ErrIntegrity) {
		t.Fatalf("expected customer with challans blocked, got %v", err)
	}
	if err := f.st.DeleteProduct(ctx, f.secondary.ID); err != nil {
		t.Fatalf("delete unused product: %v", err)
	}
}

func TestAttributeDeleteStripsProducts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	color, _ := f.st.AddAttribute(ctx, domain.Attribute{Name: "Color"})
	black, err := f.st.AddAttributeValue(ctx, domain.AttributeValue{AttributeID: color.ID, Value: "Black"})
	if err != nil {
		t.Fatalf("add value: %v", err)
	}
	p := f.product
	p.Attributes = []domain.ProductAttribute{{AttributeID: color.ID, ValueID: black.ID}}
	if _, err := f.st.UpdateProduct(ctx, p); err != nil {
		t.Fatalf("tag product: %v", err)
	}
	p.Attributes[0].ValueID = "aval-missing"
	if _, err := f.st.UpdateProduct(ctx, p); !errors.Is(err, ErrPrecondition) {
		t.Fatalf("expected unknown attribute value rejected, got %v", err)
	}

	if err := f.st.DeleteAttribute(ctx, color.ID); err != nil {
		t.Fatalf("delete attribute: %v", err)
	}
	if values := f.st.AttributeValues(""); len(values) != 0 {
		t.Fatalf("expected values removed, got %+v", values)
	}
	got, _ := f.st.Product(f.product.ID)
	if len(got.Attributes) != 0 {
		t.Fatalf("expected product attributes stripped, got %+v", got.Attributes)
	}
}

func TestAddressDeleteBlocksOnChildren(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	dhakaDiv, err := f.st.AddAddress(ctx, domain.AddressDivision, domain.AddressNode{Name: "Dhaka"})
	if err != nil {
		t.Fatalf("add division: %v", err)
	}
	district, err := f.st.AddAddress(ctx, domain.AddressDistrict, domain.AddressNode{Name: "Gazipur", ParentID: dhakaDiv.ID})
	if err != nil {
		t.Fatalf("add district: %v", err)
	}
	if _, err := f.st.AddAddress(ctx, domain.AddressUpazila, domain.AddressNode{Name: "Kaliakair", ParentID: dhakaDiv.ID}); !errors.Is(err, ErrPrecondition) {
		t.Fatalf("expected an upazila under a division to be rejected, got %v", err)
	}

	var ierr *IntegrityError
	err = f.st.DeleteAddress(ctx, domain.AddressDivision, dhakaDiv.ID)
	if !errors.As(err, &ierr) || ierr.ReferencedBy != FamilyDistricts || ierr.ReferenceID != district.ID {
		t.Fatalf("expected division delete blocked by its district, got %v", err)
	}
	if divisions, _ := f.st.Addresses(domain.AddressDivision, ""); len(divisions) != 1 {
		t.Fatalf("blocked delete removed the division: %+v", divisions)
	}

	if err := f.st.DeleteAddress(ctx, domain.AddressDistrict, district.ID); err != nil {
		t.Fatalf("delete leaf district: %v", err)
	}
	if err := f.st.DeleteAddress(ctx, domain.AddressDivision, dhakaDiv.ID); err != nil {
		t.Fatalf("delete empty division: %v", err)
	}
}

func TestOrphanedAddressIsReportedAndEditable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	imported := snapshot.Default()
	imported.Districts = []domain.AddressNode{{ID: "dst-old", Name: "Gazipur", ParentID: "div-gone"}}
	if err := f.st.Replace(ctx, imported); err != nil {
		t.Fatalf("replace: %v", err)
	}
	problems := f.st.Verify()
	if len(problems) != 1 || problems[0] != "districts dst-old: parent div-gone does not exist" {
		t.Fatalf("expected the orphaned district to be reported, got %v", problems)
	}

	renamed, err := f.st.UpdateAddress(ctx, domain.AddressDistrict, domain.AddressNode{ID: "dst-old", Name: "Gazipur Sadar", ParentID: "div-gone"})
	if err != nil || renamed.Name != "Gazipur Sadar" {
		t.Fatalf("expected rename with an unchanged parent to succeed, got %+v, %v", renamed, err)
	}
	if _, err := f.st.UpdateAddress(ctx, domain.AddressDistrict, domain.AddressNode{ID: "dst-old", Name: "Gazipur", ParentID: "div-other"}); !errors.Is(err, ErrPrecondition) {
		t.Fatalf("expected a move to a missing parent to be rejected, got %v", err)
	}
}

func TestCanDeleteDoesNotMutate(t *testing.T) {
	f := newFixture(t)
	f.challan(t, f.line("SN-1"))
	before := f.st.Snapshot().Meta.Revision

	if err := f.st.CanDelete(FamilyCustomers, f.customer.ID); !errors.Is(err, ErrIntegrity) {
		t.Fatalf("expected integrity error, got %v", err)
	}
	if err := f.st.CanDelete(FamilyCustomers, "cus-missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := f.st.CanDelete(Family("widgets"), "x"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected unknown family to be invalid, got %v", err)
	}
	if after := f.st.Snapshot().Meta.Revision; after != before {
		t.Fatalf("CanDelete changed the revision from %d to %d", before, after)
	}
}

func TestEveryFamilyHasAPolicy(t *testing.T) {
	policies := DeletePolicies()
	for family := range counts(snapshot.Default()) {
		if _, ok := policies[Family(family)]; !ok {
			t.Fatalf("family %s has no delete policy", family)
		}
	}
	want := map[Family]Policy{
		FamilyFloors:         PolicyCascade,
		FamilyMenuCategories: PolicyCascade,
		FamilyAccountGroups:  PolicyBlock,
		FamilyDivisions:      PolicyBlock,
		FamilyWorkingAreas:   PolicyPlain,
		FamilyOrders:         PolicyRevert,
		FamilyChallans:       PolicyBlock,
	}
	for family, policy := range want {
		if policies[family] != policy {
			t.Fatalf("%s: expected %s, got %s", family, policy, policies[family])
		}
	}
	if len(Families()) != len(policies) {
		t.Fatalf("Families and DeletePolicies disagree")
	}
}
