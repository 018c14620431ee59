package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderAddress is the shipping destination captured alongside an order,
// one per order, never mutated afterward.
type OrderAddress struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID      uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	AddressLine1 string    `gorm:"column:address_line_1;not null"`
	AddressLine2 string    `gorm:"column:address_line_2;not null;default:''"`
	City         string    `gorm:"column:city;not null;default:''"`
	PostalCode   string    `gorm:"column:postal_code;not null;default:''"`
	Country      string    `gorm:"column:country;not null;default:'Iran'"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (a *OrderAddress) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
