package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bazarcheh/bazarcheh-backend/pkg/enums"
)

// Order is an immutable snapshot of a purchase. Only status and
// payment_reference change after creation; line items and totals are frozen
// so later catalog edits cannot alter historical orders.
// Invariant: Subtotal == sum(item.ProductPrice * item.Quantity), Total >= Subtotal.
type Order struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	UserID           uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	Status           enums.OrderStatus `gorm:"column:status;not null;default:'PENDING'"`
	FullName         string            `gorm:"column:full_name;not null"`
	Phone            string            `gorm:"column:phone;not null;default:''"`
	Email            string            `gorm:"column:email;not null;default:''"`
	Currency         string            `gorm:"column:currency;not null;default:'IRR'"`
	Subtotal         decimal.Decimal   `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Total            decimal.Decimal   `gorm:"column:total;type:numeric(12,2);not null"`
	PaymentReference string            `gorm:"column:payment_reference;not null;default:''"`
	Items            []OrderItem       `gorm:"foreignKey:OrderID"`
	Address          *OrderAddress     `gorm:"foreignKey:OrderID"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
