package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemDTO is one cart line as returned to clients.
type ItemDTO struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name,omitempty"`
	ProductSlug string    `json:"product_slug,omitempty"`
	UnitPrice   string    `json:"unit_price"`
	Quantity    int       `json:"quantity"`
	LineTotal   string    `json:"line_total"`
}

// CartDTO is the full cart payload.
type CartDTO struct {
	Items []ItemDTO `json:"items"`
	Total string    `json:"total"`
}

func toCartDTO(lines []Line) *CartDTO {
	items := make([]ItemDTO, 0, len(lines))
	total := decimal.Zero
	for _, line := range lines {
		item := ItemDTO{
			ProductID: line.ProductID,
			UnitPrice: line.UnitPrice.StringFixed(2),
			Quantity:  line.Quantity,
			LineTotal: line.Total().StringFixed(2),
		}
		if line.Product != nil {
			item.ProductName = line.Product.Name
			item.ProductSlug = line.Product.Slug
		}
		items = append(items, item)
		total = total.Add(line.Total())
	}
	return &CartDTO{Items: items, Total: total.StringFixed(2)}
}
