package cart

import (
	"context"
	"errors"

	"github.com/bazarcheh/bazarcheh-backend/pkg/db/models"
	pkgerrors "github.com/bazarcheh/bazarcheh-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// PersistedCart is the logged-in user's cart backed by cart/cart_items rows.
// Lines store quantity only; pricing always reads the live catalog price, so
// totals move with the catalog.
type PersistedCart struct {
	userID   uuid.UUID
	repo     *Repository
	resolver productResolver
	tx       txRunner
}

// NewPersistedCart builds a persisted cart bound to one user.
func NewPersistedCart(userID uuid.UUID, repo *Repository, resolver productResolver, tx txRunner) *PersistedCart {
	return &PersistedCart{userID: userID, repo: repo, resolver: resolver, tx: tx}
}

func (c *PersistedCart) Add(ctx context.Context, product *models.Product, delta int) error {
	if product == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product is required")
	}

	return c.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := c.repo.WithTx(tx)
		cart, err := repo.GetOrCreateCart(ctx, c.userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}

		current, err := repo.GetItemQuantity(ctx, cart.ID, product.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart line")
		}
		if current == 0 && delta > 0 && product.Stock < delta {
			return pkgerrors.InsufficientStock(product.ID.String(), product.Stock)
		}

		next := clampQuantity(current+delta, product.Stock)
		if next == 0 {
			return repo.DeleteItem(ctx, cart.ID, product.ID)
		}
		return repo.UpsertItem(ctx, cart.ID, product.ID, next)
	})
}

func (c *PersistedCart) SetQuantity(ctx context.Context, product *models.Product, qty int) error {
	if product == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product is required")
	}

	return c.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := c.repo.WithTx(tx)
		cart, err := repo.GetOrCreateCart(ctx, c.userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}

		next := clampQuantity(qty, product.Stock)
		if next == 0 {
			return repo.DeleteItem(ctx, cart.ID, product.ID)
		}
		return repo.UpsertItem(ctx, cart.ID, product.ID, next)
	})
}

func (c *PersistedCart) Remove(ctx context.Context, productID uuid.UUID) error {
	cart, err := c.findCart(ctx)
	if err != nil || cart == nil {
		return err
	}
	return c.repo.DeleteItem(ctx, cart.ID, productID)
}

func (c *PersistedCart) Clear(ctx context.Context) error {
	cart, err := c.findCart(ctx)
	if err != nil || cart == nil {
		return err
	}
	return c.repo.ClearItems(ctx, cart.ID)
}

func (c *PersistedCart) GetQuantity(ctx context.Context, productID uuid.UUID) (int, error) {
	cart, err := c.findCart(ctx)
	if err != nil || cart == nil {
		return 0, err
	}
	return c.repo.GetItemQuantity(ctx, cart.ID, productID)
}

func (c *PersistedCart) Lines(ctx context.Context) ([]Line, error) {
	cart, err := c.findCart(ctx)
	if err != nil || cart == nil {
		return nil, err
	}

	items, err := c.repo.ListItems(ctx, cart.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart lines")
	}
	if len(items) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	products, err := c.resolver.FindManyByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve cart products")
	}
	byID := make(map[uuid.UUID]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	out := make([]Line, 0, len(items))
	for _, item := range items {
		line := Line{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Product:   byID[item.ProductID],
		}
		if line.Product != nil {
			line.UnitPrice = line.Product.Price
		}
		out = append(out, line)
	}
	sortLines(out)
	return out, nil
}

func (c *PersistedCart) TotalPrice(ctx context.Context) (decimal.Decimal, error) {
	lines, err := c.Lines(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, line := range lines {
		if line.Product == nil {
			// Product removed from the catalog; the line no longer prices.
			continue
		}
		total = total.Add(line.Total())
	}
	return total, nil
}

func (c *PersistedCart) findCart(ctx context.Context) (*models.Cart, error) {
	cart, err := c.repo.FindCart(ctx, c.userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return cart, nil
}
