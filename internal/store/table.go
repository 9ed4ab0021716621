package store

import (
	"fmt"

	"dokan/backend/internal/domain"
	"dokan/backend/internal/snapshot"
)

// Family names one snapshot collection. The value is the collection's key in
// the persisted document.
type Family string

const (
	FamilyCustomers           Family = "customers"
	FamilyProductCategories   Family = "productCategories"
	FamilyProducts            Family = "products"
	FamilyAttributes          Family = "attributes"
	FamilyAttributeValues     Family = "attributeValues"
	FamilyInventoryItems      Family = "inventoryItems"
	FamilyChallans            Family = "challans"
	FamilyOrders              Family = "orders"
	FamilyCollections         Family = "collections"
	FamilyServiceJobs         Family = "serviceJobs"
	FamilyAccountGroups       Family = "accountGroups"
	FamilyAccountSubGroups    Family = "accountSubGroups"
	FamilyAccountHeads        Family = "accountHeads"
	FamilyAccountSubHeads     Family = "accountSubHeads"
	FamilyLedgerAccounts      Family = "ledgerAccounts"
	FamilyDivisions           Family = "divisions"
	FamilyDistricts           Family = "districts"
	FamilyUpazilas            Family = "upazilas"
	FamilyUnions              Family = "unions"
	FamilyVillages            Family = "villages"
	FamilyWorkingAreas        Family = "workingAreas"
	FamilyMenuCategories      Family = "menuCategories"
	FamilyMenuItems           Family = "menuItems"
	FamilyServiceCategories   Family = "serviceCategories"
	FamilyServiceItems        Family = "serviceItems"
	FamilyFloors              Family = "floors"
	FamilyTables              Family = "tables"
	FamilyReservations        Family = "reservations"
	FamilyLoanProducts        Family = "loanProducts"
	FamilySavingsProducts     Family = "savingsProducts"
	FamilySavingsAccounts     Family = "savingsAccounts"
	FamilySavingsTransactions Family = "savingsTransactions"
)

// table is a typed handle on one collection of the snapshot.
type table[T domain.Entity] struct {
	family Family
	prefix string
	rows   func(s *snapshot.Snapshot) *[]T
	copy   func(T) T
}

func (tb table[T]) all(s *snapshot.Snapshot) []T {
	return *tb.rows(s)
}

func (tb table[T]) index(s *snapshot.Snapshot, id string) int {
	for i, row := range *tb.rows(s) {
		if row.EntityID() == id {
			return i
		}
	}
	return -1
}

func (tb table[T]) has(s *snapshot.Snapshot, id string) bool {
	return id != "" && tb.index(s, id) >= 0
}

func (tb table[T]) get(s *snapshot.Snapshot, id string) (T, error) {
	if i := tb.index(s, id); i >= 0 {
		return (*tb.rows(s))[i], nil
	}
	var zero T
	return zero, fmt.Errorf("%s %s: %w", tb.family, id, ErrNotFound)
}

// find returns the first row matching pred.
func (tb table[T]) find(s *snapshot.Snapshot, pred func(T) bool) (T, bool) {
	for _, row := range *tb.rows(s) {
		if pred(row) {
			return row, true
		}
	}
	var zero T
	return zero, false
}

func (tb table[T]) filter(s *snapshot.Snapshot, pred func(T) bool) []T {
	var out []T
	for _, row := range *tb.rows(s) {
		if pred(row) {
			out = append(out, row)
		}
	}
	return out
}

func (tb table[T]) insert(s *snapshot.Snapshot, row T) {
	rows := tb.rows(s)
	*rows = append(*rows, row)
}

func (tb table[T]) put(s *snapshot.Snapshot, row T) error {
	i := tb.index(s, row.EntityID())
	if i < 0 {
		return fmt.Errorf("%s %s: %w", tb.family, row.EntityID(), ErrNotFound)
	}
	(*tb.rows(s))[i] = row
	return nil
}

// update applies fn to the row with id in place.
func (tb table[T]) update(s *snapshot.Snapshot, id string, fn func(*T)) error {
	i := tb.index(s, id)
	if i < 0 {
		return fmt.Errorf("%s %s: %w", tb.family, id, ErrNotFound)
	}
	fn(&(*tb.rows(s))[i])
	return nil
}

// removeWhere deletes every matching row and returns their ids.
func (tb table[T]) removeWhere(s *snapshot.Snapshot, pred func(T) bool) []string {
	rows := tb.rows(s)
	kept := (*rows)[:0]
	var removed []string
	for _, row := range *rows {
		if pred(row) {
			removed = append(removed, row.EntityID())
			continue
		}
		kept = append(kept, row)
	}
	*rows = kept
	return removed
}

// list returns caller-owned copies of the matching rows, never nil.
func (tb table[T]) list(s *snapshot.Snapshot, pred func(T) bool) []T {
	out := make([]T, 0, len(*tb.rows(s)))
	for _, row := range *tb.rows(s) {
		if pred == nil || pred(row) {
			out = append(out, tb.clone(row))
		}
	}
	return out
}

func (tb table[T]) clone(row T) T {
	if tb.copy == nil {
		return row
	}
	return tb.copy(row)
}

var (
	customers = table[domain.Customer]{family: FamilyCustomers, prefix: "cus",
		rows: func(s *snapshot.Snapshot) *[]domain.Customer { return &s.Customers }}
	productCategories = table[domain.ProductCategory]{family: FamilyProductCategories, prefix: "pcat",
		rows: func(s *snapshot.Snapshot) *[]domain.ProductCategory { return &s.ProductCategories }}
	products = table[domain.Product]{family: FamilyProducts, prefix: "prd",
		rows: func(s *snapshot.Snapshot) *[]domain.Product { return &s.Products },
		copy: domain.Product.Clone}
	attributes = table[domain.Attribute]{family: FamilyAttributes, prefix: "attr",
		rows: func(s *snapshot.Snapshot) *[]domain.Attribute { return &s.Attributes }}
	attributeValues = table[domain.AttributeValue]{family: FamilyAttributeValues, prefix: "aval",
		rows: func(s *snapshot.Snapshot) *[]domain.AttributeValue { return &s.AttributeValues }}
	inventoryItems = table[domain.InventoryItem]{family: FamilyInventoryItems, prefix: "inv",
		rows: func(s *snapshot.Snapshot) *[]domain.InventoryItem { return &s.InventoryItems }}
	challans = table[domain.Challan]{family: FamilyChallans, prefix: "chl",
		rows: func(s *snapshot.Snapshot) *[]domain.Challan { return &s.Challans },
		copy: domain.Challan.Clone}
	orders = table[domain.Order]{family: FamilyOrders, prefix: "ord",
		rows: func(s *snapshot.Snapshot) *[]domain.Order { return &s.Orders },
		copy: domain.Order.Clone}
	collections = table[domain.Collection]{family: FamilyCollections, prefix: "col",
		rows: func(s *snapshot.Snapshot) *[]domain.Collection { return &s.Collections }}
	serviceJobs = table[domain.ServiceJob]{family: FamilyServiceJobs, prefix: "job",
		rows: func(s *snapshot.Snapshot) *[]domain.ServiceJob { return &s.ServiceJobs }}

	ledgerAccounts = table[domain.LedgerAccount]{family: FamilyLedgerAccounts, prefix: "led",
		rows: func(s *snapshot.Snapshot) *[]domain.LedgerAccount { return &s.LedgerAccounts }}

	menuCategories = table[domain.MenuCategory]{family: FamilyMenuCategories, prefix: "mcat",
		rows: func(s *snapshot.Snapshot) *[]domain.MenuCategory { return &s.MenuCategories }}
	menuItems = table[domain.MenuItem]{family: FamilyMenuItems, prefix: "menu",
		rows: func(s *snapshot.Snapshot) *[]domain.MenuItem { return &s.MenuItems },
		copy: domain.MenuItem.Clone}
	serviceCategories = table[domain.ServiceCategory]{family: FamilyServiceCategories, prefix: "scat",
		rows: func(s *snapshot.Snapshot) *[]domain.ServiceCategory { return &s.ServiceCategories }}
	serviceItems = table[domain.ServiceItem]{family: FamilyServiceItems, prefix: "svc",
		rows: func(s *snapshot.Snapshot) *[]domain.ServiceItem { return &s.ServiceItems }}
	floors = table[domain.Floor]{family: FamilyFloors, prefix: "flr",
		rows: func(s *snapshot.Snapshot) *[]domain.Floor { return &s.Floors }}
	tables = table[domain.Table]{family: FamilyTables, prefix: "tbl",
		rows: func(s *snapshot.Snapshot) *[]domain.Table { return &s.Tables }}
	reservations = table[domain.Reservation]{family: FamilyReservations, prefix: "rsv",
		rows: func(s *snapshot.Snapshot) *[]domain.Reservation { return &s.Reservations }}

	loanProducts = table[domain.LoanProduct]{family: FamilyLoanProducts, prefix: "loan",
		rows: func(s *snapshot.Snapshot) *[]domain.LoanProduct { return &s.LoanProducts }}
	savingsProducts = table[domain.SavingsProduct]{family: FamilySavingsProducts, prefix: "sprd",
		rows: func(s *snapshot.Snapshot) *[]domain.SavingsProduct { return &s.SavingsProducts }}
	savingsAccounts = table[domain.SavingsAccount]{family: FamilySavingsAccounts, prefix: "sav",
		rows: func(s *snapshot.Snapshot) *[]domain.SavingsAccount { return &s.SavingsAccounts },
		copy: domain.SavingsAccount.Clone}
	savingsTransactions = table[domain.SavingsTransaction]{family: FamilySavingsTransactions, prefix: "stx",
		rows: func(s *snapshot.Snapshot) *[]domain.SavingsTransaction { return &s.SavingsTransactions }}
)

var accountTables = map[domain.AccountLevel]table[domain.AccountNode]{
	domain.AccountGroup: {family: FamilyAccountGroups, prefix: "agrp",
		rows: func(s *snapshot.Snapshot) *[]domain.AccountNode { return &s.AccountGroups }},
	domain.AccountSubGroup: {family: FamilyAccountSubGroups, prefix: "asgp",
		rows: func(s *snapshot.Snapshot) *[]domain.AccountNode { return &s.AccountSubGroups }},
	domain.AccountHead: {family: FamilyAccountHeads, prefix: "ahd",
		rows: func(s *snapshot.Snapshot) *[]domain.AccountNode { return &s.AccountHeads }},
	domain.AccountSubHead: {family: FamilyAccountSubHeads, prefix: "ashd",
		rows: func(s *snapshot.Snapshot) *[]domain.AccountNode { return &s.AccountSubHeads }},
}

var addressTables = map[domain.AddressLevel]table[domain.AddressNode]{
	domain.AddressDivision: {family: FamilyDivisions, prefix: "div",
		rows: func(s *snapshot.Snapshot) *[]domain.AddressNode { return &s.Divisions }},
	domain.AddressDistrict: {family: FamilyDistricts, prefix: "dst",
		rows: func(s *snapshot.Snapshot) *[]domain.AddressNode { return &s.Districts }},
	domain.AddressUpazila: {family: FamilyUpazilas, prefix: "upz",
		rows: func(s *snapshot.Snapshot) *[]domain.AddressNode { return &s.Upazilas }},
	domain.AddressUnion: {family: FamilyUnions, prefix: "uni",
		rows: func(s *snapshot.Snapshot) *[]domain.AddressNode { return &s.Unions }},
	domain.AddressVillage: {family: FamilyVillages, prefix: "vil",
		rows: func(s *snapshot.Snapshot) *[]domain.AddressNode { return &s.Villages }},
	domain.AddressWorkingArea: {family: FamilyWorkingAreas, prefix: "wa",
		rows: func(s *snapshot.Snapshot) *[]domain.AddressNode { return &s.WorkingAreas }},
}

func counts(s *snapshot.Snapshot) map[string]int {
	out := map[string]int{
		string(FamilyCustomers):           len(s.Customers),
		string(FamilyProductCategories):   len(s.ProductCategories),
		string(FamilyProducts):            len(s.Products),
		string(FamilyAttributes):          len(s.Attributes),
		string(FamilyAttributeValues):     len(s.AttributeValues),
		string(FamilyInventoryItems):      len(s.InventoryItems),
		string(FamilyChallans):            len(s.Challans),
		string(FamilyOrders):              len(s.Orders),
		string(FamilyCollections):         len(s.Collections),
		string(FamilyServiceJobs):         len(s.ServiceJobs),
		string(FamilyLedgerAccounts):      len(s.LedgerAccounts),
		string(FamilyMenuCategories):      len(s.MenuCategories),
		string(FamilyMenuItems):           len(s.MenuItems),
		string(FamilyServiceCategories):   len(s.ServiceCategories),
		string(FamilyServiceItems):        len(s.ServiceItems),
		string(FamilyFloors):              len(s.Floors),
		string(FamilyTables):              len(s.Tables),
		string(FamilyReservations):        len(s.Reservations),
		string(FamilyLoanProducts):        len(s.LoanProducts),
		string(FamilySavingsProducts):     len(s.SavingsProducts),
		string(FamilySavingsAccounts):     len(s.SavingsAccounts),
		string(FamilySavingsTransactions): len(s.SavingsTransactions),
	}
	for _, tb := range accountTables {
		out[string(tb.family)] = len(tb.all(s))
	}
	for _, tb := range addressTables {
		out[string(tb.family)] = len(tb.all(s))
	}
	return out
}
