package domain

// Entity is implemented by every record kept in a snapshot collection.
type Entity interface {
	EntityID() string
}

func (c Customer) EntityID() string           { return c.ID }
func (p Product) EntityID() string            { return p.ID }
func (a Attribute) EntityID() string          { return a.ID }
func (v AttributeValue) EntityID() string     { return v.ID }
func (i InventoryItem) EntityID() string      { return i.ID }
func (c Challan) EntityID() string            { return c.ID }
func (o Order) EntityID() string              { return o.ID }
func (c Collection) EntityID() string         { return c.ID }
func (j ServiceJob) EntityID() string         { return j.ID }
func (n AccountNode) EntityID() string        { return n.ID }
func (a LedgerAccount) EntityID() string      { return a.ID }
func (n AddressNode) EntityID() string        { return n.ID }
func (c ProductCategory) EntityID() string    { return c.ID }
func (c MenuCategory) EntityID() string       { return c.ID }
func (m MenuItem) EntityID() string           { return m.ID }
func (c ServiceCategory) EntityID() string    { return c.ID }
func (s ServiceItem) EntityID() string        { return s.ID }
func (f Floor) EntityID() string              { return f.ID }
func (t Table) EntityID() string              { return t.ID }
func (r Reservation) EntityID() string        { return r.ID }
func (p LoanProduct) EntityID() string        { return p.ID }
func (p SavingsProduct) EntityID() string     { return p.ID }
func (a SavingsAccount) EntityID() string     { return a.ID }
func (t SavingsTransaction) EntityID() string { return t.ID }
