package cart

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/bazarcheh/bazarcheh-backend/internal/catalog"
	"github.com/bazarcheh/bazarcheh-backend/pkg/db"
	"github.com/bazarcheh/bazarcheh-backend/pkg/db/models"
	"github.com/bazarcheh/bazarcheh-backend/pkg/session"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	err = conn.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.Cart{},
		&models.CartItem{},
	)
	if err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return conn
}

func mustCreateTestUser(t *testing.T, tx *gorm.DB) *models.User {
	t.Helper()
	user := &models.User{
		Phone:        fmt.Sprintf("+98912%s", uuid.NewString()[:7]),
		PasswordHash: "hash",
		IsActive:     true,
	}
	if err := tx.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func mustCreateTestProduct(t *testing.T, tx *gorm.DB, stock int, price int64) *models.Product {
	t.Helper()
	suffix := uuid.NewString()[:8]
	category := &models.Category{
		Name: fmt.Sprintf("Category %s", suffix),
		Slug: fmt.Sprintf("category-%s", suffix),
	}
	if err := tx.Create(category).Error; err != nil {
		t.Fatalf("create category: %v", err)
	}
	product := &models.Product{
		CategoryID: category.ID,
		Name:       fmt.Sprintf("Product %s", suffix),
		Slug:       fmt.Sprintf("product-%s", suffix),
		Price:      decimal.NewFromInt(price),
		Stock:      stock,
		IsActive:   true,
	}
	if err := tx.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

// memorySessionStore is an in-process stand-in for the Redis session store.
type memorySessionStore struct {
	mu    sync.Mutex
	carts map[string]map[uuid.UUID]session.CartLine
}

func newMemorySessionStore() *memorySessionStore {
	return &memorySessionStore{carts: make(map[string]map[uuid.UUID]session.CartLine)}
}

func (m *memorySessionStore) Load(ctx context.Context, sessionID string) (map[uuid.UUID]session.CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.carts[sessionID]
	if !ok {
		return map[uuid.UUID]session.CartLine{}, nil
	}
	out := make(map[uuid.UUID]session.CartLine, len(stored))
	for id, line := range stored {
		out[id] = line
	}
	return out, nil
}

func (m *memorySessionStore) Save(ctx context.Context, sessionID string, lines map[uuid.UUID]session.CartLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := make(map[uuid.UUID]session.CartLine, len(lines))
	for id, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		copied[id] = line
	}
	m.carts[sessionID] = copied
	return nil
}

func (m *memorySessionStore) Clear(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, sessionID)
	return nil
}

func newTestService(t *testing.T, conn *gorm.DB, sessions *memorySessionStore) Service {
	t.Helper()
	repo := NewRepository(conn)
	catalogRepo := catalog.NewRepository(conn)
	client := db.NewWithConn(conn)
	reconciler, err := NewReconciler(repo, catalogRepo, client)
	if err != nil {
		t.Fatalf("new reconciler: %v", err)
	}
	svc, err := NewService(repo, catalogRepo, sessions, reconciler, client)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}
