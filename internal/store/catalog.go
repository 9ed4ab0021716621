package store

import (
	"context"
	"strings"

	"dokan/backend/internal/domain"
)

func (st *Store) AddCustomer(ctx context.Context, c domain.Customer) (domain.Customer, error) {
	return addRow(ctx, st, "AddCustomer", customers, c, func(t *tx, c *domain.Customer) error {
		c.ID = t.newID(customers.prefix)
		c.CreatedAt = t.now
		return nil
	})
}

func (st *Store) UpdateCustomer(ctx context.Context, c domain.Customer) (domain.Customer, error) {
	return updateRow(ctx, st, "UpdateCustomer", customers, c, func(_ *tx, prev domain.Customer, next *domain.Customer) error {
		next.CreatedAt = prev.CreatedAt
		return nil
	})
}

func (st *Store) DeleteCustomer(ctx context.Context, id string) error {
	return st.Delete(ctx, FamilyCustomers, id)
}

func (st *Store) Customer(id string) (domain.Customer, error) {
	return getRow(st, customers, id)
}

func (st *Store) Customers() []domain.Customer {
	return listRows(st, customers, nil)
}

func (st *Store) AddProductCategory(ctx context.Context, c domain.ProductCategory) (domain.ProductCategory, error) {
	return addRow(ctx, st, "AddProductCategory", productCategories, c, func(t *tx, c *domain.ProductCategory) error {
		c.ID = t.newID(productCategories.prefix)
		return checkParent(t, productCategories, "", c.ParentID, productCategoryParent)
	})
}

func (st *Store) UpdateProductCategory(ctx context.Context, c domain.ProductCategory) (domain.ProductCategory, error) {
	return updateRow(ctx, st, "UpdateProductCategory", productCategories, c, func(t *tx, _ domain.ProductCategory, next *domain.ProductCategory) error {
		return checkParent(t, productCategories, next.ID, next.ParentID, productCategoryParent)
	})
}

func (st *Store) DeleteProductCategory(ctx context.Context, id string) error {
	return st.Delete(ctx, FamilyProductCategories, id)
}

func (st *Store) ProductCategories() []domain.ProductCategory {
	return listRows(st, productCategories, nil)
}

func productCategoryParent(c domain.ProductCategory) string { return c.ParentID }

func (st *Store) AddProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	return addRow(ctx, st, "AddProduct", products, p, func(t *tx, p *domain.Product) error {
		p.ID = t.newID(products.prefix)
		return prepareProduct(t, p)
	})
}

func (st *Store) UpdateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	return updateRow(ctx, st, "UpdateProduct", products, p, func(t *tx, _ domain.Product, next *domain.Product) error {
		return prepareProduct(t, next)
	})
}

func prepareProduct(t *tx, p *domain.Product) error {
	if p.Price.IsNegative() {
		return invalidf("product price must not be negative")
	}
	if strings.TrimSpace(p.Unit) == "" {
		p.Unit = "pcs"
	}
	if p.CategoryID != "" {
		if err := requireRef(t, productCategories, p.CategoryID); err != nil {
			return err
		}
	}
	*p = p.Clone()
	for _, a := range p.Attributes {
		value, err := attributeValues.get(t.s, a.ValueID)
		if err != nil {
			return preconditionf("attribute value %s does not exist", a.ValueID)
		}
		if value.AttributeID != a.AttributeID {
			return preconditionf("attribute value %s does not belong to attribute %s", a.ValueID, a.AttributeID)
		}
	}
	return nil
}

func (st *Store) DeleteProduct(ctx context.Context, id string) error {
	return st.Delete(ctx, FamilyProducts, id)
}

func (st *Store) Product(id string) (domain.Product, error) {
	return getRow(st, products, id)
}

func (st *Store) Products() []domain.Product {
	return listRows(st, products, nil)
}

func (st *Store) AddAttribute(ctx context.Context, a domain.Attribute) (domain.Attribute, error) {
	return addRow(ctx, st, "AddAttribute", attributes, a, func(t *tx, a *domain.Attribute) error {
		a.ID = t.newID(attributes.prefix)
		return nil
	})
}

func (st *Store) UpdateAttribute(ctx context.Context, a domain.Attribute) (domain.Attribute, error) {
	return updateRow(ctx, st, "UpdateAttribute", attributes, a, nil)
}

func (st *Store) DeleteAttribute(ctx context.Context, id string) error {
	return st.Delete(ctx, FamilyAttributes, id)
}

func (st *Store) Attributes() []domain.Attribute {
	return listRows(st, attributes, nil)
}

func (st *Store) AddAttributeValue(ctx context.Context, v domain.AttributeValue) (domain.AttributeValue, error) {
	return addRow(ctx, st, "AddAttributeValue", attributeValues, v, func(t *tx, v *domain.AttributeValue) error {
		v.ID = t.newID(attributeValues.prefix)
		return requireRef(t, attributes, v.AttributeID)
	})
}

func (st *Store) UpdateAttributeValue(ctx context.Context, v domain.AttributeValue) (domain.AttributeValue, error) {
	return updateRow(ctx, st, "UpdateAttributeValue", attributeValues, v, func(_ *tx, prev domain.AttributeValue, next *domain.AttributeValue) error {
		next.AttributeID = prev.AttributeID
		return nil
	})
}

func (st *Store) DeleteAttributeValue(ctx context.Context, id string) error {
	return st.Delete(ctx, FamilyAttributeValues, id)
}

func (st *Store) AttributeValues(attributeID string) []domain.AttributeValue {
	return listRows(st, attributeValues, func(v domain.AttributeValue) bool {
		return attributeID == "" || v.AttributeID == attributeID
	})
}

func (st *Store) AddMenuCategory(ctx context.Context, c domain.MenuCategory) (domain.MenuCategory, error) {
	return addRow(ctx, st, "AddMenuCategory", menuCategories, c, func(t *tx, c *domain.MenuCategory) error {
		c.ID = t.newID(menuCategories.prefix)
		return checkParent(t, menuCategories, "", c.ParentID, menuCategoryParent)
	})
}

func (st *Store) UpdateMenuCategory(ctx context.Context, c domain.MenuCategory) (domain.MenuCategory, error) {
	return updateRow(ctx, st, "UpdateMenuCategory", menuCategories, c, func(t *tx, _ domain.MenuCategory, next *domain.MenuCategory) error {
		return checkParent(t, menuCategories, next.ID, next.ParentID, menuCategoryParent)
	})
}

func (st *Store) DeleteMenuCategory(ctx context.Context, id string) error {
	return st.Delete(ctx, FamilyMenuCategories, id)
}

func (st *Store) MenuCategories() []domain.MenuCategory {
	return listRows(st, menuCategories, nil)
}

func menuCategoryParent(c domain.MenuCategory) string { return c.ParentID }

func (st *Store) AddMenuItem(ctx context.Context, m domain.MenuItem) (domain.MenuItem, error) {
	return addRow(ctx, st, "AddMenuItem", menuItems, m, func(t *tx, m *domain.MenuItem) error {
		m.ID = t.newID(menuItems.prefix)
		return prepareMenuItem(t, m)
	})
}

func (st *Store) UpdateMenuItem(ctx context.Context, m domain.MenuItem) (domain.MenuItem, error) {
	return updateRow(ctx, st, "UpdateMenuItem", menuItems, m, func(t *tx, _ domain.MenuItem, next *domain.MenuItem) error {
		return prepareMenuItem(t, next)
	})
}

func prepareMenuItem(t *tx, m *domain.MenuItem) error {
	if err := requireRef(t, menuCategories, m.CategoryID); err != nil {
		return err
	}
	if m.Price.IsNegative() {
		return invalidf("menu item price must not be negative")
	}
	*m = m.Clone()
	for _, c := range m.CompositeItems {
		if c.MenuItemID == m.ID {
			return invalidf("menu item %s cannot contain itself", m.ID)
		}
		if c.Quantity < 1 {
			return invalidf("composite quantity must be at least 1")
		}
		if err := requireRef(t, menuItems, c.MenuItemID); err != nil {
			return err
		}
	}
	return nil
}

func (st *Store) DeleteMenuItem(ctx context.Context, id string) error {
	return st.Delete(ctx, FamilyMenuItems, id)
}

func (st *Store) MenuItems(categoryID string) []domain.MenuItem {
	return listRows(st, menuItems, func(m domain.MenuItem) bool {
		return categoryID == "" || m.CategoryID == categoryID
	})
}

func (st *Store) AddServiceCategory(ctx context.Context, c domain.ServiceCategory) (domain.ServiceCategory, error) {
	return addRow(ctx, st, "AddServiceCategory", serviceCategories, c, func(t *tx, c *domain.ServiceCategory) error {
		c.ID = t.newID(serviceCategories.prefix)
		return checkParent(t, serviceCategories, "", c.ParentID, serviceCategoryParent)
	})
}

func (st *Store) UpdateServiceCategory(ctx context.Context, c domain.ServiceCategory) (domain.ServiceCategory, error) {
	return updateRow(ctx, st, "UpdateServiceCategory", serviceCategories, c, func(t *tx, _ domain.ServiceCategory, next *domain.ServiceCategory) error {
		return checkParent(t, serviceCategories, next.ID, next.ParentID, serviceCategoryParent)
	})
}

func (st *Store) DeleteServiceCategory(ctx context.Context, id string) error {
	return st.Delete(ctx, FamilyServiceCategories, id)
}

func (st *Store) ServiceCategories() []domain.ServiceCategory {
	return listRows(st, serviceCategories, nil)
}

func serviceCategoryParent(c domain.ServiceCategory) string { return c.ParentID }

func (st *Store) AddServiceItem(ctx context.Context, s domain.ServiceItem) (domain.ServiceItem, error) {
	return addRow(ctx, st, "AddServiceItem", serviceItems, s, func(t *tx, s *domain.ServiceItem) error {
		s.ID = t.newID(serviceItems.prefix)
		return requireRef(t, serviceCategories, s.CategoryID)
	})
}

func (st *Store) UpdateServiceItem(ctx context.Context, s domain.ServiceItem) (domain.ServiceItem, error) {
	return updateRow(ctx, st, "UpdateServiceItem", serviceItems, s, func(t *tx, _ domain.ServiceItem, next *domain.ServiceItem) error {
		return requireRef(t, serviceCategories, next.CategoryID)
	})
}

func (st *Store) DeleteServiceItem(ctx context.Context, id string) error {
	return st.Delete(ctx, FamilyServiceItems, id)
}

func (st *Store) ServiceItems(categoryID string) []domain.ServiceItem {
	return listRows(st, serviceItems, func(s domain.ServiceItem) bool {
		return categoryID == "" || s.CategoryID == categoryID
	})
}

func (st *Store) AddFloor(ctx context.Context, f domain.Floor) (domain.Floor, error) {
	return addRow(ctx, st, "AddFloor", floors, f, func(t *tx, f *domain.Floor) error {
		f.ID = t.newID(floors.prefix)
		return nil
	})
}

func (st *Store) UpdateFloor(ctx context.Context, f domain.Floor) (domain.Floor, error) {
	return updateRow(ctx, st, "UpdateFloor", floors, f, nil)
}

func (st *Store) DeleteFloor(ctx context.Context, id string) error {
	return st.Delete(ctx, FamilyFloors, id)
}

func (st *Store) Floors() []domain.Floor {
	return listRows(st, floors, nil)
}

func (st *Store) AddTable(ctx context.Context, tb domain.Table) (domain.Table, error) {
	return addRow(ctx, st, "AddTable", tables, tb, func(t *tx, tb *domain.Table) error {
		tb.ID = t.newID(tables.prefix)
		return requireRef(t, floors, tb.FloorID)
	})
}

func (st *Store) UpdateTable(ctx context.Context, tb domain.Table) (domain.Table, error) {
	return updateRow(ctx, st, "UpdateTable", tables, tb, func(t *tx, _ domain.Table, next *domain.Table) error {
		return requireRef(t, floors, next.FloorID)
	})
}

func (st *Store) DeleteTable(ctx context.Context, id string) error {
	return st.Delete(ctx, FamilyTables, id)
}

func (st *Store) Tables(floorID string) []domain.Table {
	return listRows(st, tables, func(tb domain.Table) bool {
		return floorID == "" || tb.FloorID == floorID
	})
}

func (st *Store) AddReservation(ctx context.Context, r domain.Reservation) (domain.Reservation, error) {
	return addRow(ctx, st, "AddReservation", reservations, r, func(t *tx, r *domain.Reservation) error {
		r.ID = t.newID(reservations.prefix)
		return prepareReservation(t, r)
	})
}

func (st *Store) UpdateReservation(ctx context.Context, r domain.Reservation) (domain.Reservation, error) {
	return updateRow(ctx, st, "UpdateReservation", reservations, r, func(t *tx, _ domain.Reservation, next *domain.Reservation) error {
		return prepareReservation(t, next)
	})
}

func prepareReservation(t *tx, r *domain.Reservation) error {
	if r.PartySize < 1 {
		return invalidf("party size must be at least 1")
	}
	return requireRef(t, tables, r.TableID)
}

func (st *Store) DeleteReservation(ctx context.Context, id string) error {
	return st.Delete(ctx, FamilyReservations, id)
}

func (st *Store) Reservations(tableID string) []domain.Reservation {
	return listRows(st, reservations, func(r domain.Reservation) bool {
		return tableID == "" || r.TableID == tableID
	})
}
