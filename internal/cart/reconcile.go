package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/bazarcheh/bazarcheh-backend/internal/catalog"
	pkgerrors "github.com/bazarcheh/bazarcheh-backend/pkg/errors"
	"github.com/bazarcheh/bazarcheh-backend/pkg/session"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Reconciler folds the anonymous session cart into the user's persisted cart
// at login. The persisted cart is the source of truth afterwards.
type Reconciler struct {
	repo    *Repository
	catalog *catalog.Repository
	tx      txRunner
}

// NewReconciler builds a reconciler with the required dependencies.
func NewReconciler(repo *Repository, catalogRepo *catalog.Repository, tx txRunner) (*Reconciler, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &Reconciler{repo: repo, catalog: catalogRepo, tx: tx}, nil
}

// Merge adds the transient quantities onto the persisted cart in a single
// transaction. Products are walked in ascending id order so concurrent
// merges and checkouts acquire row locks in the same sequence. Any line
// failure aborts the whole merge.
func (r *Reconciler) Merge(ctx context.Context, userID uuid.UUID, transient map[uuid.UUID]session.CartLine) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if len(transient) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(transient))
	for id, line := range transient {
		if line.Quantity <= 0 {
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil
	}
	sortProductIDs(ids)

	return r.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := r.repo.WithTx(tx)
		catalogRepo := r.catalog.WithTx(tx)

		cart, err := repo.GetOrCreateCart(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}

		for _, productID := range ids {
			product, err := catalogRepo.FindByIDForUpdate(ctx, productID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "product no longer exists").
						WithDetails(map[string]any{"product_id": productID.String()})
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
			}

			persisted, err := repo.GetItemQuantity(ctx, cart.ID, productID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart line")
			}

			next := clampQuantity(persisted+transient[productID].Quantity, product.Stock)
			if next == 0 {
				if err := repo.DeleteItem(ctx, cart.ID, productID); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart line")
				}
				continue
			}
			if err := repo.UpsertItem(ctx, cart.ID, productID, next); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert cart line")
			}
		}
		return nil
	})
}
