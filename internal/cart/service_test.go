package cart

import (
	"context"
	"testing"

	pkgerrors "github.com/bazarcheh/bazarcheh-backend/pkg/errors"
	"github.com/bazarcheh/bazarcheh-backend/pkg/session"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestServiceAnonymousCartFlow(t *testing.T) {
	conn := openTestDB(t)
	sessions := newMemorySessionStore()
	svc := newTestService(t, conn, sessions)
	product := mustCreateTestProduct(t, conn, 10, 100)
	ctx := context.Background()
	actor := Actor{SessionID: "sess-1"}

	dto, err := svc.AddItem(ctx, actor, product.ID, 2)
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if len(dto.Items) != 1 || dto.Items[0].Quantity != 2 {
		t.Fatalf("unexpected cart %+v", dto)
	}
	if dto.Total != "200.00" {
		t.Fatalf("expected total 200.00, got %s", dto.Total)
	}

	// The mutation persisted to the session store.
	stored, err := sessions.Load(ctx, "sess-1")
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if stored[product.ID].Quantity != 2 {
		t.Fatalf("expected session qty 2, got %d", stored[product.ID].Quantity)
	}

	dto, err = svc.SetItemQuantity(ctx, actor, product.ID, 5)
	if err != nil {
		t.Fatalf("set quantity: %v", err)
	}
	if dto.Items[0].Quantity != 5 {
		t.Fatalf("expected qty 5, got %d", dto.Items[0].Quantity)
	}

	dto, err = svc.RemoveItem(ctx, actor, product.ID)
	if err != nil {
		t.Fatalf("remove item: %v", err)
	}
	if len(dto.Items) != 0 {
		t.Fatalf("expected empty cart, got %+v", dto.Items)
	}
}

func TestServiceAddUnknownProduct(t *testing.T) {
	conn := openTestDB(t)
	svc := newTestService(t, conn, newMemorySessionStore())

	_, err := svc.AddItem(context.Background(), Actor{SessionID: "s"}, uuid.New(), 1)
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestServiceRequiresIdentity(t *testing.T) {
	conn := openTestDB(t)
	svc := newTestService(t, conn, newMemorySessionStore())
	product := mustCreateTestProduct(t, conn, 10, 100)

	_, err := svc.AddItem(context.Background(), Actor{}, product.ID, 1)
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestServiceAuthenticatedUsesPersistedCart(t *testing.T) {
	conn := openTestDB(t)
	sessions := newMemorySessionStore()
	svc := newTestService(t, conn, sessions)
	user := mustCreateTestUser(t, conn)
	product := mustCreateTestProduct(t, conn, 10, 100)
	ctx := context.Background()
	actor := Actor{UserID: &user.ID}

	if _, err := svc.AddItem(ctx, actor, product.ID, 3); err != nil {
		t.Fatalf("add item: %v", err)
	}
	if qty := persistedQty(t, conn, user.ID, product.ID); qty != 3 {
		t.Fatalf("expected persisted qty 3, got %d", qty)
	}
}

func TestServiceMergeOnLoginResyncsSession(t *testing.T) {
	conn := openTestDB(t)
	sessions := newMemorySessionStore()
	svc := newTestService(t, conn, sessions)
	user := mustCreateTestUser(t, conn)
	product := mustCreateTestProduct(t, conn, 4, 100)
	ctx := context.Background()

	// Session cart holds 3 units; persisted cart already has 2; stock is 4.
	if err := sessions.Save(ctx, "sess-login", map[uuid.UUID]session.CartLine{
		product.ID: {Quantity: 3, Price: decimal.NewFromInt(100)},
	}); err != nil {
		t.Fatalf("seed session: %v", err)
	}
	if _, err := svc.AddItem(ctx, Actor{UserID: &user.ID}, product.ID, 2); err != nil {
		t.Fatalf("seed persisted: %v", err)
	}

	if err := svc.MergeOnLogin(ctx, user.ID, "sess-login"); err != nil {
		t.Fatalf("merge on login: %v", err)
	}

	if qty := persistedQty(t, conn, user.ID, product.ID); qty != 4 {
		t.Fatalf("expected merged qty clamped to 4, got %d", qty)
	}

	// The session blob now mirrors the persisted cart.
	stored, err := sessions.Load(ctx, "sess-login")
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if stored[product.ID].Quantity != 4 {
		t.Fatalf("expected resynced session qty 4, got %d", stored[product.ID].Quantity)
	}
}

func TestServiceClearForUser(t *testing.T) {
	conn := openTestDB(t)
	svc := newTestService(t, conn, newMemorySessionStore())
	user := mustCreateTestUser(t, conn)
	product := mustCreateTestProduct(t, conn, 10, 100)
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, Actor{UserID: &user.ID}, product.ID, 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := svc.ClearForUser(ctx, user.ID); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if qty := persistedQty(t, conn, user.ID, product.ID); qty != 0 {
		t.Fatalf("expected cleared cart, got qty %d", qty)
	}
}
