package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/bazarcheh/bazarcheh-backend/pkg/db/models"
	pkgerrors "github.com/bazarcheh/bazarcheh-backend/pkg/errors"
	"github.com/bazarcheh/bazarcheh-backend/pkg/session"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Actor identifies who the cart belongs to: an authenticated user or an
// anonymous browser session. UserID wins when both are present.
type Actor struct {
	UserID    *uuid.UUID
	SessionID string
}

type catalogReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindManyByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
}

type sessionCartStore interface {
	Load(ctx context.Context, sessionID string) (map[uuid.UUID]session.CartLine, error)
	Save(ctx context.Context, sessionID string, lines map[uuid.UUID]session.CartLine) error
	Clear(ctx context.Context, sessionID string) error
}

type merger interface {
	Merge(ctx context.Context, userID uuid.UUID, transient map[uuid.UUID]session.CartLine) error
}

// Service exposes cart operations for both anonymous and authenticated
// callers.
type Service interface {
	View(ctx context.Context, actor Actor) (*CartDTO, error)
	AddItem(ctx context.Context, actor Actor, productID uuid.UUID, delta int) (*CartDTO, error)
	SetItemQuantity(ctx context.Context, actor Actor, productID uuid.UUID, qty int) (*CartDTO, error)
	RemoveItem(ctx context.Context, actor Actor, productID uuid.UUID) (*CartDTO, error)
	Clear(ctx context.Context, actor Actor) error
	MergeOnLogin(ctx context.Context, userID uuid.UUID, sessionID string) error
	SourceFor(ctx context.Context, actor Actor) (Source, error)
	ClearForUser(ctx context.Context, userID uuid.UUID) error
}

type service struct {
	repo     *Repository
	catalog  catalogReader
	sessions sessionCartStore
	merger   merger
	tx       txRunner
}

// NewService builds the cart service with the required dependencies.
func NewService(repo *Repository, catalogRepo catalogReader, sessions sessionCartStore, m merger, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session store required")
	}
	if m == nil {
		return nil, fmt.Errorf("merger required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:     repo,
		catalog:  catalogRepo,
		sessions: sessions,
		merger:   m,
		tx:       tx,
	}, nil
}

func (s *service) View(ctx context.Context, actor Actor) (*CartDTO, error) {
	source, _, err := s.open(ctx, actor)
	if err != nil {
		return nil, err
	}
	lines, err := source.Lines(ctx)
	if err != nil {
		return nil, err
	}
	return toCartDTO(lines), nil
}

func (s *service) AddItem(ctx context.Context, actor Actor, productID uuid.UUID, delta int) (*CartDTO, error) {
	return s.mutate(ctx, actor, func(source Source, product *models.Product) error {
		return source.Add(ctx, product, delta)
	}, productID)
}

func (s *service) SetItemQuantity(ctx context.Context, actor Actor, productID uuid.UUID, qty int) (*CartDTO, error) {
	return s.mutate(ctx, actor, func(source Source, product *models.Product) error {
		return source.SetQuantity(ctx, product, qty)
	}, productID)
}

func (s *service) RemoveItem(ctx context.Context, actor Actor, productID uuid.UUID) (*CartDTO, error) {
	source, save, err := s.open(ctx, actor)
	if err != nil {
		return nil, err
	}
	if err := source.Remove(ctx, productID); err != nil {
		return nil, err
	}
	if err := save(ctx); err != nil {
		return nil, err
	}
	lines, err := source.Lines(ctx)
	if err != nil {
		return nil, err
	}
	return toCartDTO(lines), nil
}

func (s *service) Clear(ctx context.Context, actor Actor) error {
	source, save, err := s.open(ctx, actor)
	if err != nil {
		return err
	}
	if err := source.Clear(ctx); err != nil {
		return err
	}
	return save(ctx)
}

// MergeOnLogin folds the session cart into the user's persisted cart, then
// rewrites the session blob from the merged result so both views agree.
func (s *service) MergeOnLogin(ctx context.Context, userID uuid.UUID, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	transient, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return err
	}
	if len(transient) > 0 {
		if err := s.merger.Merge(ctx, userID, transient); err != nil {
			return err
		}
	}

	persisted := NewPersistedCart(userID, s.repo, s.catalog, s.tx)
	lines, err := persisted.Lines(ctx)
	if err != nil {
		return err
	}
	resynced := make(map[uuid.UUID]session.CartLine, len(lines))
	for _, line := range lines {
		resynced[line.ProductID] = session.CartLine{
			Quantity: line.Quantity,
			Price:    line.UnitPrice,
		}
	}
	return s.sessions.Save(ctx, sessionID, resynced)
}

// SourceFor returns the cart source the actor operates against.
func (s *service) SourceFor(ctx context.Context, actor Actor) (Source, error) {
	source, _, err := s.open(ctx, actor)
	return source, err
}

// ClearForUser empties the persisted cart; used after checkout commits.
func (s *service) ClearForUser(ctx context.Context, userID uuid.UUID) error {
	persisted := NewPersistedCart(userID, s.repo, s.catalog, s.tx)
	return persisted.Clear(ctx)
}

type saveFunc func(ctx context.Context) error

func noopSave(context.Context) error { return nil }

func (s *service) open(ctx context.Context, actor Actor) (Source, saveFunc, error) {
	if actor.UserID != nil && *actor.UserID != uuid.Nil {
		return NewPersistedCart(*actor.UserID, s.repo, s.catalog, s.tx), noopSave, nil
	}
	if actor.SessionID == "" {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "session required")
	}

	lines, err := s.sessions.Load(ctx, actor.SessionID)
	if err != nil {
		return nil, nil, err
	}
	transient := NewTransientCart(lines, s.catalog)
	save := func(ctx context.Context) error {
		return s.sessions.Save(ctx, actor.SessionID, transient.Snapshot())
	}
	return transient, save, nil
}

func (s *service) mutate(ctx context.Context, actor Actor, op func(Source, *models.Product) error, productID uuid.UUID) (*CartDTO, error) {
	product, err := s.catalog.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	source, save, err := s.open(ctx, actor)
	if err != nil {
		return nil, err
	}
	if err := op(source, product); err != nil {
		return nil, err
	}
	if err := save(ctx); err != nil {
		return nil, err
	}

	lines, err := source.Lines(ctx)
	if err != nil {
		return nil, err
	}
	return toCartDTO(lines), nil
}
