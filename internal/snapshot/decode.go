package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"dokan/backend/internal/domain"
)

// ErrMalformed is returned when the stored bytes are not a JSON object.
var ErrMalformed = errors.New("malformed snapshot")

type upgradeStep struct {
	from  int
	apply func(doc map[string]json.RawMessage) error
}

// upgrades run in order on the raw document before it is merged onto the
// default shape. Documents without a meta object are version 1.
var upgrades = []upgradeStep{
	{from: 1, apply: renameKeys(map[string]string{
		"serviceItemCategories": "serviceCategories",
		"jobs":                  "serviceJobs",
		"savingsTxns":           "savingsTransactions",
	})},
}

func renameKeys(renames map[string]string) func(map[string]json.RawMessage) error {
	return func(doc map[string]json.RawMessage) error {
		for legacy, current := range renames {
			raw, ok := doc[legacy]
			if !ok {
				continue
			}
			delete(doc, legacy)
			if _, exists := doc[current]; !exists {
				doc[current] = raw
			}
		}
		return nil
	}
}

// Decode parses stored bytes onto Default() so that missing settings keys
// keep their defaults, module toggles merge key by key and missing or null
// collections come back empty. Older schema versions are upgraded first and
// challan statuses are re-derived from inventory items.
func Decode(data []byte) (*Snapshot, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrMalformed
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	version, err := documentVersion(doc)
	if err != nil {
		return nil, err
	}
	if version > SchemaVersion {
		return nil, fmt.Errorf("%w: schema version %d is newer than supported %d", ErrMalformed, version, SchemaVersion)
	}
	for _, step := range upgrades {
		if version > step.from {
			continue
		}
		if err := step.apply(doc); err != nil {
			return nil, fmt.Errorf("upgrade from schema %d: %w", step.from, err)
		}
		version = step.from + 1
	}

	upgraded, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}

	s := Default()
	if err := json.Unmarshal(upgraded, s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	s.backfill()
	s.Meta.SchemaVersion = SchemaVersion
	s.RederiveChallans()
	return s, nil
}

func documentVersion(doc map[string]json.RawMessage) (int, error) {
	raw, ok := doc["meta"]
	if !ok || string(raw) == "null" {
		return 1, nil
	}
	var meta Meta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return 0, fmt.Errorf("%w: meta: %v", ErrMalformed, err)
	}
	if meta.SchemaVersion < 1 {
		return 1, nil
	}
	return meta.SchemaVersion, nil
}

func orEmpty[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}

// backfill fills collections and per-record fields that older documents or
// explicit nulls left unset.
func (s *Snapshot) backfill() {
	defaults := Default()
	if s.Modules == nil {
		s.Modules = defaults.Modules
	}

	s.Customers = orEmpty(s.Customers)
	s.ProductCategories = orEmpty(s.ProductCategories)
	s.Products = orEmpty(s.Products)
	s.Attributes = orEmpty(s.Attributes)
	s.AttributeValues = orEmpty(s.AttributeValues)
	s.InventoryItems = orEmpty(s.InventoryItems)
	s.Challans = orEmpty(s.Challans)
	s.Orders = orEmpty(s.Orders)
	s.Collections = orEmpty(s.Collections)
	s.ServiceJobs = orEmpty(s.ServiceJobs)
	if s.AccountGroups == nil {
		s.AccountGroups = defaults.AccountGroups
	}
	s.AccountSubGroups = orEmpty(s.AccountSubGroups)
	s.AccountHeads = orEmpty(s.AccountHeads)
	s.AccountSubHeads = orEmpty(s.AccountSubHeads)
	s.LedgerAccounts = orEmpty(s.LedgerAccounts)
	s.Divisions = orEmpty(s.Divisions)
	s.Districts = orEmpty(s.Districts)
	s.Upazilas = orEmpty(s.Upazilas)
	s.Unions = orEmpty(s.Unions)
	s.Villages = orEmpty(s.Villages)
	s.WorkingAreas = orEmpty(s.WorkingAreas)
	s.MenuCategories = orEmpty(s.MenuCategories)
	s.MenuItems = orEmpty(s.MenuItems)
	s.ServiceCategories = orEmpty(s.ServiceCategories)
	s.ServiceItems = orEmpty(s.ServiceItems)
	s.Floors = orEmpty(s.Floors)
	s.Tables = orEmpty(s.Tables)
	s.Reservations = orEmpty(s.Reservations)
	s.LoanProducts = orEmpty(s.LoanProducts)
	s.SavingsProducts = orEmpty(s.SavingsProducts)
	s.SavingsAccounts = orEmpty(s.SavingsAccounts)
	s.SavingsTransactions = orEmpty(s.SavingsTransactions)

	for i := range s.Products {
		p := &s.Products[i]
		p.Attributes = orEmpty(p.Attributes)
		if p.Unit == "" {
			p.Unit = "pcs"
		}
	}
	for i := range s.MenuItems {
		m := &s.MenuItems[i]
		m.Variants = orEmpty(m.Variants)
		m.AddOns = orEmpty(m.AddOns)
		m.CompositeItems = orEmpty(m.CompositeItems)
	}
	for i := range s.Challans {
		s.Challans[i].Items = orEmpty(s.Challans[i].Items)
	}
	for i := range s.Orders {
		o := &s.Orders[i]
		o.Items = orEmpty(o.Items)
		if o.Status == "" {
			o.Status = domain.OrderCompleted
		}
		if o.TenderStatus == "" {
			o.TenderStatus = domain.DeriveTenderStatus(o.AmountTendered, o.Total)
		}
	}
	for i := range s.ServiceJobs {
		j := &s.ServiceJobs[i]
		if j.Status == "" {
			j.Status = domain.JobReceived
		}
		if j.StatusHistory.Len() == 0 {
			j.StatusHistory = domain.NewStatusLog(domain.StatusEntry{Status: j.Status, Timestamp: j.CreatedAt})
		}
	}
	for i := range s.SavingsAccounts {
		a := &s.SavingsAccounts[i]
		if a.Status == "" {
			a.Status = domain.SavingsOpen
			if a.ClosedAt != nil {
				a.Status = domain.SavingsClosed
			}
		}
	}
	for i := range s.InventoryItems {
		item := &s.InventoryItems[i]
		if item.Status == "" && item.ChallanID != "" {
			item.Status = domain.InventoryAllocated
			if item.OrderID != "" {
				item.Status = domain.InventorySold
			}
		}
	}
	if s.Theme.FontScale <= 0 {
		s.Theme.FontScale = defaults.Theme.FontScale
	}
}

