// Package service normalizes requests coming from the back-office forms
// before they reach the store, and writes an audit line per mutation.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/ttacon/libphonenumber"

	"dokan/backend/internal/domain"
	"dokan/backend/internal/store"
)

var ErrInvalidPhone = errors.New("invalid phone number")

type Service struct {
	store       *store.Store
	phoneRegion string
	validate    *validator.Validate
	logger      logrus.FieldLogger
}

func New(st *store.Store, phoneRegion string, logger logrus.FieldLogger) *Service {
	if phoneRegion == "" {
		phoneRegion = "BD"
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		store:       st,
		phoneRegion: strings.ToUpper(phoneRegion),
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		logger:      logger.WithField("module", "service"),
	}
}

// NormalizePhone returns phone in E.164 form. Numbers without a country
// code are read in region.
func NormalizePhone(phone, region string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", nil
	}
	p, err := libphonenumber.Parse(phone, region)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidPhone, phone, err)
	}
	if !libphonenumber.IsValidNumber(p) {
		return "", fmt.Errorf("%w: %s", ErrInvalidPhone, phone)
	}
	return libphonenumber.Format(p, libphonenumber.E164), nil
}

func (s *Service) normalizeCustomer(c domain.Customer) (domain.Customer, error) {
	c.Name = strings.Join(strings.Fields(c.Name), " ")
	c.Address = strings.TrimSpace(c.Address)
	phone, err := NormalizePhone(c.Phone, s.phoneRegion)
	if err != nil {
		return c, fmt.Errorf("%w: %v", store.ErrInvalid, err)
	}
	c.Phone = phone
	return c, nil
}

func (s *Service) CreateCustomer(ctx context.Context, c domain.Customer) (domain.Customer, error) {
	c, err := s.normalizeCustomer(c)
	if err != nil {
		return domain.Customer{}, err
	}
	created, err := s.store.AddCustomer(ctx, c)
	if err != nil {
		return domain.Customer{}, err
	}
	s.logAudit("customer_create", store.FamilyCustomers, created.ID, logrus.Fields{"name": created.Name})
	return created, nil
}

func (s *Service) UpdateCustomer(ctx context.Context, c domain.Customer) (domain.Customer, error) {
	c, err := s.normalizeCustomer(c)
	if err != nil {
		return domain.Customer{}, err
	}
	updated, err := s.store.UpdateCustomer(ctx, c)
	if err != nil {
		return domain.Customer{}, err
	}
	s.logAudit("customer_update", store.FamilyCustomers, updated.ID, nil)
	return updated, nil
}

// CreateProduct trims names and upper-cases the SKU. SKUs are unique when set.
func (s *Service) CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.SKU = strings.ToUpper(strings.TrimSpace(p.SKU))
	p.Unit = strings.ToLower(strings.TrimSpace(p.Unit))
	if p.SKU != "" {
		for _, existing := range s.store.Products() {
			if existing.SKU == p.SKU {
				return domain.Product{}, fmt.Errorf("%w: sku %s is already used by %s", store.ErrPrecondition, p.SKU, existing.ID)
			}
		}
	}
	created, err := s.store.AddProduct(ctx, p)
	if err != nil {
		return domain.Product{}, err
	}
	s.logAudit("product_create", store.FamilyProducts, created.ID, logrus.Fields{"sku": created.SKU, "price": created.Price.String()})
	return created, nil
}

// IssueChallan expands a delivery request into one blueprint line per unit
// and creates the challan.
func (s *Service) IssueChallan(ctx context.Context, req domain.ChallanRequest) (domain.Challan, error) {
	if err := s.validate.Struct(req); err != nil {
		return domain.Challan{}, fmt.Errorf("%w: %v", store.ErrInvalid, err)
	}
	units := 0
	for _, line := range req.Lines {
		units += max(line.Quantity, len(line.SerialNumbers))
	}
	if units > domain.MaxChallanUnits {
		return domain.Challan{}, fmt.Errorf("%w: challan of %d units exceeds the limit of %d", store.ErrInvalid, units, domain.MaxChallanUnits)
	}
	bp := domain.ChallanBlueprint{
		CustomerID:       req.CustomerID,
		DeliveryLocation: strings.TrimSpace(req.DeliveryLocation),
		Note:             strings.TrimSpace(req.Note),
	}
	for i, line := range req.Lines {
		product, err := s.store.Product(line.ProductID)
		if err != nil {
			return domain.Challan{}, fmt.Errorf("%w: line %d: %v", store.ErrPrecondition, i+1, err)
		}
		lines, err := expandLine(product, line)
		if err != nil {
			return domain.Challan{}, fmt.Errorf("%w: line %d: %v", store.ErrInvalid, i+1, err)
		}
		bp.Lines = append(bp.Lines, lines...)
	}

	challan, err := s.store.AddChallan(ctx, bp)
	if err != nil {
		return domain.Challan{}, err
	}
	s.logAudit("challan_issue", store.FamilyChallans, challan.ID, logrus.Fields{
		"number": challan.ChallanNumber,
		"items":  len(challan.Items),
	})
	return challan, nil
}

func expandLine(product domain.Product, line domain.ChallanRequestLine) ([]domain.ChallanLine, error) {
	name := strings.TrimSpace(line.Name)
	if name == "" {
		name = product.Name
	}
	price := product.Price
	if line.Price != nil {
		price = *line.Price
	}

	var serials []string
	for _, serial := range line.SerialNumbers {
		if serial = strings.TrimSpace(serial); serial != "" {
			serials = append(serials, serial)
		}
	}
	switch {
	case product.Serialized && len(serials) == 0:
		return nil, fmt.Errorf("product %s needs serial numbers", product.Name)
	case len(serials) > 0 && line.Quantity > 0 && line.Quantity != len(serials):
		return nil, fmt.Errorf("quantity %d does not match %d serial numbers", line.Quantity, len(serials))
	case len(serials) == 0 && line.Quantity < 1:
		return nil, errors.New("quantity must be at least 1")
	}

	if len(serials) == 0 {
		out := make([]domain.ChallanLine, line.Quantity)
		for i := range out {
			out[i] = domain.ChallanLine{ProductID: product.ID, Name: name, Price: price}
		}
		return out, nil
	}
	out := make([]domain.ChallanLine, 0, len(serials))
	for _, serial := range serials {
		out = append(out, domain.ChallanLine{ProductID: product.ID, Name: name, SerialNumber: serial, Price: price})
	}
	return out, nil
}

// Checkout bills a challan, by default every item still allocated to it.
// Explicit item ids must belong to req.ChallanID.
func (s *Service) Checkout(ctx context.Context, req domain.CheckoutRequest) (domain.Order, error) {
	if err := s.validate.Struct(req); err != nil {
		return domain.Order{}, fmt.Errorf("%w: %v", store.ErrInvalid, err)
	}
	ids := req.InventoryItemIDs
	if len(ids) == 0 {
		billable, err := s.store.BillableItems(req.ChallanID)
		if err != nil {
			return domain.Order{}, err
		}
		if len(billable) == 0 {
			return domain.Order{}, fmt.Errorf("%w: challan %s has nothing left to bill", store.ErrPrecondition, req.ChallanID)
		}
		for _, item := range billable {
			ids = append(ids, item.ID)
		}
	}

	order, err := s.store.AddOrder(ctx, domain.Order{
		ChallanID:      req.ChallanID,
		DiscountAmount: req.DiscountAmount,
		AmountTendered: req.AmountTendered,
		ServiceJobID:   req.ServiceJobID,
	}, ids)
	if err != nil {
		return domain.Order{}, err
	}
	s.logAudit("checkout", store.FamilyOrders, order.ID, logrus.Fields{
		"number": order.OrderNumber,
		"total":  order.Total.String(),
		"tender": order.TenderStatus,
	})
	return order, nil
}

func (s *Service) IntakeServiceJob(ctx context.Context, req domain.ServiceJobRequest) (domain.ServiceJob, error) {
	req.Device = strings.TrimSpace(req.Device)
	req.Problem = strings.TrimSpace(req.Problem)
	job, err := s.store.AddServiceJob(ctx, req)
	if err != nil {
		return domain.ServiceJob{}, err
	}
	s.logAudit("service_job_intake", store.FamilyServiceJobs, job.ID, logrus.Fields{"number": job.JobNumber})
	return job, nil
}

func (s *Service) logAudit(action string, family store.Family, id string, fields logrus.Fields) {
	entry := s.logger.WithFields(logrus.Fields{
		"audit":  action,
		"entity": family,
		"id":     id,
	})
	if fields != nil {
		entry = entry.WithFields(fields)
	}
	entry.Info("audit")
}
