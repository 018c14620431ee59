package cart

import (
	"bytes"
	"context"
	"sort"

	"github.com/bazarcheh/bazarcheh-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Line is an enriched cart line: the stored quantity joined with the product
// it resolves to and the unit price used for totals.
type Line struct {
	ProductID uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
	Product   *models.Product
}

// Total returns the unit price multiplied by the quantity.
func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Source is the common surface over the session cart and the persisted cart.
//
// Add applies a signed delta. The resulting quantity is clamped to
// [0, product stock]; a result of zero removes the line. Adding to a line
// that does not exist yet fails when the delta exceeds available stock;
// this is a stock-awareness guard, not a reservation.
//
// SetQuantity is absolute and clamps silently; zero deletes the line.
//
// Lines re-resolves products on every call, so repeated iteration observes
// catalog changes.
type Source interface {
	Add(ctx context.Context, product *models.Product, delta int) error
	SetQuantity(ctx context.Context, product *models.Product, qty int) error
	Remove(ctx context.Context, productID uuid.UUID) error
	Clear(ctx context.Context) error
	GetQuantity(ctx context.Context, productID uuid.UUID) (int, error)
	Lines(ctx context.Context) ([]Line, error)
	TotalPrice(ctx context.Context) (decimal.Decimal, error)
}

type productResolver interface {
	FindManyByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
}

// sortLines orders lines by ascending product id. The same ordering is used
// wherever multiple product rows are touched in one transaction, so lock
// acquisition order stays consistent across callers.
func sortLines(lines []Line) {
	sort.Slice(lines, func(i, j int) bool {
		return bytes.Compare(lines[i].ProductID[:], lines[j].ProductID[:]) < 0
	})
}

func sortProductIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
}

func clampQuantity(qty, stock int) int {
	if qty < 0 {
		return 0
	}
	if stock < 0 {
		stock = 0
	}
	if qty > stock {
		return stock
	}
	return qty
}
