package domain

import "slices"

// Clone methods copy the nested slices of records that have them. Decimal
// values and status logs are immutable and are shared.

func (p Product) Clone() Product {
	p.Attributes = cloneNonNil(p.Attributes)
	return p
}

func (c Challan) Clone() Challan {
	c.Items = cloneNonNil(c.Items)
	return c
}

func (o Order) Clone() Order {
	o.Items = cloneNonNil(o.Items)
	return o
}

func (m MenuItem) Clone() MenuItem {
	m.Variants = cloneNonNil(m.Variants)
	m.AddOns = cloneNonNil(m.AddOns)
	m.CompositeItems = cloneNonNil(m.CompositeItems)
	return m
}

func (a SavingsAccount) Clone() SavingsAccount {
	if a.ClosedAt != nil {
		at := *a.ClosedAt
		a.ClosedAt = &at
	}
	return a
}

func cloneNonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return slices.Clone(in)
}
