package snapshot

func cloneSlice[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}

func cloneEach[T interface{ Clone() T }](in []T) []T {
	out := make([]T, len(in))
	for i, v := range in {
		out[i] = v.Clone()
	}
	return out
}

// Clone returns a deep copy. Mutating the copy never affects s.
func (s *Snapshot) Clone() *Snapshot {
	out := *s
	if s.Meta.SavedAt != nil {
		at := *s.Meta.SavedAt
		out.Meta.SavedAt = &at
	}
	out.Modules = make(map[string]bool, len(s.Modules))
	for k, v := range s.Modules {
		out.Modules[k] = v
	}

	out.Customers = cloneSlice(s.Customers)
	out.ProductCategories = cloneSlice(s.ProductCategories)
	out.Products = cloneEach(s.Products)
	out.Attributes = cloneSlice(s.Attributes)
	out.AttributeValues = cloneSlice(s.AttributeValues)
	out.InventoryItems = cloneSlice(s.InventoryItems)
	out.Challans = cloneEach(s.Challans)
	out.Orders = cloneEach(s.Orders)
	out.Collections = cloneSlice(s.Collections)
	out.ServiceJobs = cloneSlice(s.ServiceJobs)

	out.AccountGroups = cloneSlice(s.AccountGroups)
	out.AccountSubGroups = cloneSlice(s.AccountSubGroups)
	out.AccountHeads = cloneSlice(s.AccountHeads)
	out.AccountSubHeads = cloneSlice(s.AccountSubHeads)
	out.LedgerAccounts = cloneSlice(s.LedgerAccounts)

	out.Divisions = cloneSlice(s.Divisions)
	out.Districts = cloneSlice(s.Districts)
	out.Upazilas = cloneSlice(s.Upazilas)
	out.Unions = cloneSlice(s.Unions)
	out.Villages = cloneSlice(s.Villages)
	out.WorkingAreas = cloneSlice(s.WorkingAreas)

	out.MenuCategories = cloneSlice(s.MenuCategories)
	out.MenuItems = cloneEach(s.MenuItems)
	out.ServiceCategories = cloneSlice(s.ServiceCategories)
	out.ServiceItems = cloneSlice(s.ServiceItems)
	out.Floors = cloneSlice(s.Floors)
	out.Tables = cloneSlice(s.Tables)
	out.Reservations = cloneSlice(s.Reservations)

	out.LoanProducts = cloneSlice(s.LoanProducts)
	out.SavingsProducts = cloneSlice(s.SavingsProducts)
	out.SavingsAccounts = cloneEach(s.SavingsAccounts)
	out.SavingsTransactions = cloneSlice(s.SavingsTransactions)
	return &out
}
