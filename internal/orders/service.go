package orders

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/bazarcheh/bazarcheh-backend/internal/catalog"
	"github.com/bazarcheh/bazarcheh-backend/pkg/db/models"
	"github.com/bazarcheh/bazarcheh-backend/pkg/enums"
	pkgerrors "github.com/bazarcheh/bazarcheh-backend/pkg/errors"
	"github.com/bazarcheh/bazarcheh-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// OrderLine is one requested purchase line.
type OrderLine struct {
	ProductID uuid.UUID
	Quantity  int
}

// CustomerInfo carries the contact details captured on the order.
type CustomerInfo struct {
	FullName string
	Phone    string
	Email    string
}

// ShippingInfo carries the destination captured on the order.
type ShippingInfo struct {
	AddressLine1 string
	AddressLine2 string
	City         string
	PostalCode   string
	Country      string
}

// CreateOrderInput is the full payload for order assembly.
type CreateOrderInput struct {
	Lines    []OrderLine
	Customer CustomerInfo
	Shipping ShippingInfo
}

// ListInput carries pagination for order history reads.
type ListInput struct {
	Limit  int
	Cursor string
}

// Service exposes order assembly, lifecycle transitions, and reads.
type Service interface {
	CreateOrder(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (*OrderDTO, error)
	MarkPaid(ctx context.Context, userID, orderID uuid.UUID, reference string) (*OrderDTO, error)
	Cancel(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
	Get(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
	List(ctx context.Context, userID uuid.UUID, input ListInput) (*OrderListResult, error)
}

type service struct {
	repo     *Repository
	catalog  *catalog.Repository
	tx       txRunner
	currency string
}

// NewService builds the order service with the required dependencies.
func NewService(repo *Repository, catalogRepo *catalog.Repository, tx txRunner, currency string) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if currency == "" {
		currency = "IRR"
	}
	return &service{
		repo:     repo,
		catalog:  catalogRepo,
		tx:       tx,
		currency: currency,
	}, nil
}

// CreateOrder assembles an order from the provided lines in one transaction.
// Stock is decremented per line in ascending product-id order; any failure
// rolls the whole order back.
func (s *service) CreateOrder(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (*OrderDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if err := validateCustomer(input.Customer); err != nil {
		return nil, err
	}
	if err := validateShipping(input.Shipping); err != nil {
		return nil, err
	}

	lines, err := normalizeLines(input.Lines)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	var created *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		catalogRepo := s.catalog.WithTx(tx)

		subtotal := decimal.Zero
		items := make([]models.OrderItem, 0, len(lines))
		for _, line := range lines {
			product, err := catalogRepo.FindByIDForUpdate(ctx, line.ProductID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeValidation, "unknown product").
						WithDetails(map[string]any{"product_id": line.ProductID.String()})
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
			}

			if err := catalogRepo.DecrementStock(ctx, line.ProductID, line.Quantity); err != nil {
				return err
			}

			items = append(items, models.OrderItem{
				ProductID:    product.ID,
				ProductName:  product.Name,
				ProductPrice: product.Price,
				Quantity:     line.Quantity,
			})
			subtotal = subtotal.Add(product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
		}

		order := &models.Order{
			UserID:   userID,
			Status:   enums.OrderStatusPending,
			FullName: strings.TrimSpace(input.Customer.FullName),
			Phone:    strings.TrimSpace(input.Customer.Phone),
			Email:    strings.TrimSpace(input.Customer.Email),
			Currency: s.currency,
			Subtotal: subtotal,
			Total:    subtotal,
		}
		if _, err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := repo.CreateOrderItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
		}

		address := &models.OrderAddress{
			OrderID:      order.ID,
			AddressLine1: strings.TrimSpace(input.Shipping.AddressLine1),
			AddressLine2: strings.TrimSpace(input.Shipping.AddressLine2),
			City:         strings.TrimSpace(input.Shipping.City),
			PostalCode:   strings.TrimSpace(input.Shipping.PostalCode),
			Country:      defaultCountry(input.Shipping.Country),
		}
		if err := repo.CreateOrderAddress(ctx, address); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order address")
		}

		order.Items = items
		order.Address = address
		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	dto := toOrderDTO(*created)
	return &dto, nil
}

// MarkPaid transitions a pending order to paid and records the payment
// reference. Any other starting state fails with a state conflict.
func (s *service) MarkPaid(ctx context.Context, userID, orderID uuid.UUID, reference string) (*OrderDTO, error) {
	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadOwned(ctx, repo, orderID, userID)
		if err != nil {
			return err
		}

		reference = strings.TrimSpace(reference)
		claimed, err := repo.ClaimPendingTransition(ctx, order.ID, enums.OrderStatusPaid, reference)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !claimed {
			return s.refusedTransition(ctx, repo, orderID, userID)
		}

		order.Status = enums.OrderStatusPaid
		order.PaymentReference = reference
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	dto := toOrderDTO(*updated)
	return &dto, nil
}

// Cancel transitions a pending order to cancelled and restores the stock of
// every line inside the same transaction. A second cancel fails, so stock is
// never restored twice.
func (s *service) Cancel(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		catalogRepo := s.catalog.WithTx(tx)

		order, err := s.loadOwned(ctx, repo, orderID, userID)
		if err != nil {
			return err
		}

		// Claim before restocking. The guarded update is what guarantees a
		// single winner, so stock is restored at most once per order.
		claimed, err := repo.ClaimPendingTransition(ctx, order.ID, enums.OrderStatusCancelled, order.PaymentReference)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !claimed {
			return s.refusedTransition(ctx, repo, orderID, userID)
		}

		items := append([]models.OrderItem(nil), order.Items...)
		sort.Slice(items, func(i, j int) bool {
			return bytes.Compare(items[i].ProductID[:], items[j].ProductID[:]) < 0
		})
		for _, item := range items {
			if err := catalogRepo.RestoreStock(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}

		order.Status = enums.OrderStatusCancelled
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	dto := toOrderDTO(*updated)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.loadOwned(ctx, s.repo, orderID, userID)
	if err != nil {
		return nil, err
	}
	dto := toOrderDTO(*order)
	return &dto, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, input ListInput) (*OrderListResult, error) {
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}

	orders, err := s.repo.ListByUser(ctx, userID, input.Limit, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	page, next := pagination.TrimPage(orders, input.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})

	out := make([]OrderDTO, 0, len(page))
	for _, order := range page {
		out = append(out, toOrderDTO(order))
	}
	return &OrderListResult{Orders: out, NextCursor: next}, nil
}

func (s *service) loadOwned(ctx context.Context, repo *Repository, orderID, userID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindForUser(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

// refusedTransition reloads the order after a lost claim so the conflict
// error carries the status the winner left behind.
func (s *service) refusedTransition(ctx context.Context, repo *Repository, orderID, userID uuid.UUID) error {
	order, err := s.loadOwned(ctx, repo, orderID, userID)
	if err != nil {
		return err
	}
	return stateConflict(order.Status)
}

func stateConflict(current enums.OrderStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not pending").
		WithDetails(map[string]any{"status": current.String()})
}

func validateCustomer(customer CustomerInfo) error {
	if strings.TrimSpace(customer.FullName) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "full name is required")
	}
	if strings.TrimSpace(customer.Phone) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "phone is required")
	}
	return nil
}

func validateShipping(shipping ShippingInfo) error {
	if strings.TrimSpace(shipping.AddressLine1) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "address line 1 is required")
	}
	return nil
}

func defaultCountry(country string) string {
	country = strings.TrimSpace(country)
	if country == "" {
		return "Iran"
	}
	return country
}

// normalizeLines merges duplicate product ids, rejects non-positive
// quantities, and fixes the ascending product-id processing order shared by
// every caller that locks product rows.
func normalizeLines(lines []OrderLine) ([]OrderLine, error) {
	merged := make(map[uuid.UUID]int, len(lines))
	for _, line := range lines {
		if line.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
		}
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
				WithDetails(map[string]any{"product_id": line.ProductID.String()})
		}
		merged[line.ProductID] += line.Quantity
	}

	out := make([]OrderLine, 0, len(merged))
	for id, qty := range merged {
		out = append(out, OrderLine{ProductID: id, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].ProductID[:], out[j].ProductID[:]) < 0
	})
	return out, nil
}
