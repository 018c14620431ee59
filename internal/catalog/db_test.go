package catalog

import (
	"fmt"
	"testing"

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
	if err := conn.AutoMigrate(&models.Category{}, &models.Product{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return conn
}

func mustCreateTestCategory(t *testing.T, tx *gorm.DB) *models.Category {
	t.Helper()
	suffix := uuid.NewString()[:8]
	category := &models.Category{
		Name: fmt.Sprintf("Category %s", suffix),
		Slug: fmt.Sprintf("category-%s", suffix),
	}
	if err := tx.Create(category).Error; err != nil {
		t.Fatalf("create category: %v", err)
	}
	return category
}

func mustCreateTestProduct(t *testing.T, tx *gorm.DB, categoryID uuid.UUID, stock int) *models.Product {
	t.Helper()
	suffix := uuid.NewString()[:8]
	product := &models.Product{
		CategoryID: categoryID,
		Name:       fmt.Sprintf("Product %s", suffix),
		Slug:       fmt.Sprintf("product-%s", suffix),
		Price:      decimal.NewFromInt(150000),
		Stock:      stock,
		IsActive:   true,
	}
	if err := tx.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}
