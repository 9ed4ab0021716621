// Package snapshot defines the single persisted document that holds every
// entity collection, the settings objects and the document-number cursors.
package snapshot

import (
	"encoding/json"
	"time"

	"dokan/backend/internal/domain"
)

// SchemaVersion is stamped on every encoded snapshot. Decode upgrades older
// documents step by step before merging them onto the default shape.
const SchemaVersion = 2

type Meta struct {
	SchemaVersion int        `json:"schemaVersion"`
	Revision      int64      `json:"revision"`
	SavedAt       *time.Time `json:"savedAt,omitempty"`
}

type Snapshot struct {
	Meta Meta `json:"meta"`

	Organization domain.Organization `json:"organization"`
	Theme        domain.Theme        `json:"theme"`
	Modules      map[string]bool     `json:"modules"`

	Customers         []domain.Customer        `json:"customers"`
	ProductCategories []domain.ProductCategory `json:"productCategories"`
	Products          []domain.Product         `json:"products"`
	Attributes        []domain.Attribute       `json:"attributes"`
	AttributeValues   []domain.AttributeValue  `json:"attributeValues"`
	InventoryItems    []domain.InventoryItem   `json:"inventoryItems"`
	Challans          []domain.Challan         `json:"challans"`
	Orders            []domain.Order           `json:"orders"`
	Collections       []domain.Collection      `json:"collections"`
	ServiceJobs       []domain.ServiceJob      `json:"serviceJobs"`

	AccountGroups    []domain.AccountNode   `json:"accountGroups"`
	AccountSubGroups []domain.AccountNode   `json:"accountSubGroups"`
	AccountHeads     []domain.AccountNode   `json:"accountHeads"`
	AccountSubHeads  []domain.AccountNode   `json:"accountSubHeads"`
	LedgerAccounts   []domain.LedgerAccount `json:"ledgerAccounts"`

	Divisions    []domain.AddressNode `json:"divisions"`
	Districts    []domain.AddressNode `json:"districts"`
	Upazilas     []domain.AddressNode `json:"upazilas"`
	Unions       []domain.AddressNode `json:"unions"`
	Villages     []domain.AddressNode `json:"villages"`
	WorkingAreas []domain.AddressNode `json:"workingAreas"`

	MenuCategories    []domain.MenuCategory    `json:"menuCategories"`
	MenuItems         []domain.MenuItem        `json:"menuItems"`
	ServiceCategories []domain.ServiceCategory `json:"serviceCategories"`
	ServiceItems      []domain.ServiceItem     `json:"serviceItems"`
	Floors            []domain.Floor           `json:"floors"`
	Tables            []domain.Table           `json:"tables"`
	Reservations      []domain.Reservation     `json:"reservations"`

	LoanProducts        []domain.LoanProduct        `json:"loanProducts"`
	SavingsProducts     []domain.SavingsProduct     `json:"savingsProducts"`
	SavingsAccounts     []domain.SavingsAccount     `json:"savingsAccounts"`
	SavingsTransactions []domain.SavingsTransaction `json:"savingsTransactions"`

	OrderSequence      domain.SequenceCursor `json:"orderSequence"`
	ChallanSequence    domain.SequenceCursor `json:"challanSequence"`
	ServiceJobSequence domain.SequenceCursor `json:"serviceJobSequence"`
}

// Default returns the shape a brand-new installation starts from.
func Default() *Snapshot {
	return &Snapshot{
		Meta: Meta{SchemaVersion: SchemaVersion},
		Organization: domain.Organization{
			Name:     "My Business",
			Currency: "BDT",
		},
		Theme: domain.Theme{
			Mode:         "light",
			PrimaryColor: "#0f766e",
			FontScale:    100,
		},
		Modules: map[string]bool{
			domain.ModulePOS:          true,
			domain.ModuleInventory:    true,
			domain.ModuleChallan:      true,
			domain.ModuleServiceJobs:  true,
			domain.ModuleRestaurant:   false,
			domain.ModuleMicrofinance: false,
			domain.ModuleAccounting:   true,
		},

		Customers:         []domain.Customer{},
		ProductCategories: []domain.ProductCategory{},
		Products:          []domain.Product{},
		Attributes:        []domain.Attribute{},
		AttributeValues:   []domain.AttributeValue{},
		InventoryItems:    []domain.InventoryItem{},
		Challans:          []domain.Challan{},
		Orders:            []domain.Order{},
		Collections:       []domain.Collection{},
		ServiceJobs:       []domain.ServiceJob{},

		AccountGroups: []domain.AccountNode{
			{ID: "grp-assets", Name: "Assets", Code: "1"},
			{ID: "grp-liabilities", Name: "Liabilities", Code: "2"},
			{ID: "grp-equity", Name: "Equity", Code: "3"},
			{ID: "grp-income", Name: "Income", Code: "4"},
			{ID: "grp-expenses", Name: "Expenses", Code: "5"},
		},
		AccountSubGroups: []domain.AccountNode{},
		AccountHeads:     []domain.AccountNode{},
		AccountSubHeads:  []domain.AccountNode{},
		LedgerAccounts:   []domain.LedgerAccount{},

		Divisions:    []domain.AddressNode{},
		Districts:    []domain.AddressNode{},
		Upazilas:     []domain.AddressNode{},
		Unions:       []domain.AddressNode{},
		Villages:     []domain.AddressNode{},
		WorkingAreas: []domain.AddressNode{},

		MenuCategories:    []domain.MenuCategory{},
		MenuItems:         []domain.MenuItem{},
		ServiceCategories: []domain.ServiceCategory{},
		ServiceItems:      []domain.ServiceItem{},
		Floors:            []domain.Floor{},
		Tables:            []domain.Table{},
		Reservations:      []domain.Reservation{},

		LoanProducts:        []domain.LoanProduct{},
		SavingsProducts:     []domain.SavingsProduct{},
		SavingsAccounts:     []domain.SavingsAccount{},
		SavingsTransactions: []domain.SavingsTransaction{},
	}
}

func (s *Snapshot) Settings() domain.Settings {
	modules := make(map[string]bool, len(s.Modules))
	for k, v := range s.Modules {
		modules[k] = v
	}
	return domain.Settings{
		Organization: s.Organization,
		Theme:        s.Theme,
		Modules:      modules,
	}
}

// Encode serializes the snapshot stamped with the current schema version.
func Encode(s *Snapshot) ([]byte, error) {
	s.Meta.SchemaVersion = SchemaVersion
	return json.Marshal(s)
}

// RederiveChallans recomputes every challan status from its inventory items.
// It returns the number of challans whose stored status was stale.
func (s *Snapshot) RederiveChallans() int {
	statusByID := make(map[string]domain.InventoryStatus, len(s.InventoryItems))
	for _, item := range s.InventoryItems {
		statusByID[item.ID] = item.Status
	}
	statusOf := func(id string) domain.InventoryStatus { return statusByID[id] }

	changed := 0
	for i := range s.Challans {
		derived := domain.DeriveChallanStatus(s.Challans[i], statusOf)
		if s.Challans[i].Status != derived {
			s.Challans[i].Status = derived
			changed++
		}
	}
	return changed
}
