package cart

import (
	"context"

	"github.com/bazarcheh/bazarcheh-backend/pkg/db/models"
	pkgerrors "github.com/bazarcheh/bazarcheh-backend/pkg/errors"
	"github.com/bazarcheh/bazarcheh-backend/pkg/session"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransientCart is the anonymous cart held in the session blob. Each line
// freezes the product price at add time; totals use the frozen price even
// when the catalog price has changed since.
type TransientCart struct {
	lines    map[uuid.UUID]session.CartLine
	resolver productResolver
}

// NewTransientCart wraps the session lines loaded for this request. The map
// is mutated in place; the caller persists it back to the session store.
func NewTransientCart(lines map[uuid.UUID]session.CartLine, resolver productResolver) *TransientCart {
	if lines == nil {
		lines = make(map[uuid.UUID]session.CartLine)
	}
	return &TransientCart{lines: lines, resolver: resolver}
}

// Snapshot exposes the underlying lines for persistence and merging.
func (c *TransientCart) Snapshot() map[uuid.UUID]session.CartLine {
	return c.lines
}

func (c *TransientCart) Add(ctx context.Context, product *models.Product, delta int) error {
	if product == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product is required")
	}

	current, exists := c.lines[product.ID]
	if !exists && delta > 0 && product.Stock < delta {
		return pkgerrors.InsufficientStock(product.ID.String(), product.Stock)
	}

	next := clampQuantity(current.Quantity+delta, product.Stock)
	if next == 0 {
		delete(c.lines, product.ID)
		return nil
	}

	price := current.Price
	if !exists {
		price = product.Price
	}
	c.lines[product.ID] = session.CartLine{Quantity: next, Price: price}
	return nil
}

func (c *TransientCart) SetQuantity(ctx context.Context, product *models.Product, qty int) error {
	if product == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product is required")
	}

	next := clampQuantity(qty, product.Stock)
	if next == 0 {
		delete(c.lines, product.ID)
		return nil
	}

	price := product.Price
	if current, exists := c.lines[product.ID]; exists {
		price = current.Price
	}
	c.lines[product.ID] = session.CartLine{Quantity: next, Price: price}
	return nil
}

func (c *TransientCart) Remove(ctx context.Context, productID uuid.UUID) error {
	delete(c.lines, productID)
	return nil
}

func (c *TransientCart) Clear(ctx context.Context) error {
	c.lines = make(map[uuid.UUID]session.CartLine)
	return nil
}

func (c *TransientCart) GetQuantity(ctx context.Context, productID uuid.UUID) (int, error) {
	return c.lines[productID].Quantity, nil
}

func (c *TransientCart) Lines(ctx context.Context) ([]Line, error) {
	if len(c.lines) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(c.lines))
	for id := range c.lines {
		ids = append(ids, id)
	}
	products, err := c.resolver.FindManyByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve cart products")
	}
	byID := make(map[uuid.UUID]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	out := make([]Line, 0, len(c.lines))
	for id, stored := range c.lines {
		out = append(out, Line{
			ProductID: id,
			Quantity:  stored.Quantity,
			UnitPrice: stored.Price,
			Product:   byID[id],
		})
	}
	sortLines(out)
	return out, nil
}

func (c *TransientCart) TotalPrice(ctx context.Context) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, stored := range c.lines {
		total = total.Add(stored.Price.Mul(decimal.NewFromInt(int64(stored.Quantity))))
	}
	return total, nil
}
