package orders

import (
	"time"

	"github.com/bazarcheh/bazarcheh-backend/pkg/db/models"
	"github.com/google/uuid"
)

// OrderItemDTO is one purchased line snapshot.
type OrderItemDTO struct {
	ProductID    uuid.UUID `json:"product_id"`
	ProductName  string    `json:"product_name"`
	ProductPrice string    `json:"product_price"`
	Quantity     int       `json:"quantity"`
	LineTotal    string    `json:"line_total"`
}

// AddressDTO is the shipping address captured with the order.
type AddressDTO struct {
	AddressLine1 string `json:"address_line_1"`
	AddressLine2 string `json:"address_line_2,omitempty"`
	City         string `json:"city,omitempty"`
	PostalCode   string `json:"postal_code,omitempty"`
	Country      string `json:"country"`
}

// OrderDTO is the order payload returned to clients.
type OrderDTO struct {
	ID               uuid.UUID      `json:"id"`
	Status           string         `json:"status"`
	FullName         string         `json:"full_name"`
	Phone            string         `json:"phone"`
	Email            string         `json:"email,omitempty"`
	Currency         string         `json:"currency"`
	Subtotal         string         `json:"subtotal"`
	Total            string         `json:"total"`
	PaymentReference string         `json:"payment_reference,omitempty"`
	Items            []OrderItemDTO `json:"items"`
	Address          *AddressDTO    `json:"address,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

// OrderListResult wraps a page of orders plus the cursor for the next page.
type OrderListResult struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

func toOrderDTO(order models.Order) OrderDTO {
	dto := OrderDTO{
		ID:               order.ID,
		Status:           order.Status.String(),
		FullName:         order.FullName,
		Phone:            order.Phone,
		Email:            order.Email,
		Currency:         order.Currency,
		Subtotal:         order.Subtotal.StringFixed(2),
		Total:            order.Total.StringFixed(2),
		PaymentReference: order.PaymentReference,
		CreatedAt:        order.CreatedAt,
	}
	dto.Items = make([]OrderItemDTO, 0, len(order.Items))
	for _, item := range order.Items {
		dto.Items = append(dto.Items, OrderItemDTO{
			ProductID:    item.ProductID,
			ProductName:  item.ProductName,
			ProductPrice: item.ProductPrice.StringFixed(2),
			Quantity:     item.Quantity,
			LineTotal:    item.LineTotal().StringFixed(2),
		})
	}
	if order.Address != nil {
		dto.Address = &AddressDTO{
			AddressLine1: order.Address.AddressLine1,
			AddressLine2: order.Address.AddressLine2,
			City:         order.Address.City,
			PostalCode:   order.Address.PostalCode,
			Country:      order.Address.Country,
		}
	}
	return dto
}
