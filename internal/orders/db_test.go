package orders

import (
	"fmt"
	"testing"

	"github.com/bazarcheh/bazarcheh-backend/internal/catalog"
	"github.com/bazarcheh/bazarcheh-backend/pkg/db"
	"github.com/bazarcheh/bazarcheh-backend/pkg/db/models"
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
		&models.Order{},
		&models.OrderItem{},
		&models.OrderAddress{},
	)
	if err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return conn
}

func newTestService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(conn), catalog.NewRepository(conn), db.NewWithConn(conn), "IRR")
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
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

func productStock(t *testing.T, conn *gorm.DB, productID uuid.UUID) int {
	t.Helper()
	var product models.Product
	if err := conn.First(&product, "id = ?", productID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	return product.Stock
}

func testInput(lines []OrderLine) CreateOrderInput {
	return CreateOrderInput{
		Lines: lines,
		Customer: CustomerInfo{
			FullName: "Sara Ahmadi",
			Phone:    "+989121234567",
			Email:    "sara@example.com",
		},
		Shipping: ShippingInfo{
			AddressLine1: "12 Enghelab St",
			City:         "Tehran",
			PostalCode:   "1134567890",
		},
	}
}
