package catalog

import (
	"time"

	"github.com/bazarcheh/bazarcheh-backend/pkg/db/models"
	"github.com/google/uuid"
)

// CategoryDTO represents a category payload returned to clients.
type CategoryDTO struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

// ProductDTO represents the product payload returned to clients.
type ProductDTO struct {
	ID          uuid.UUID    `json:"id"`
	Name        string       `json:"name"`
	Slug        string       `json:"slug"`
	Description string       `json:"description,omitempty"`
	Price       string       `json:"price"`
	Stock       int          `json:"stock"`
	Category    *CategoryDTO `json:"category,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// ProductListResult wraps a page of products plus the cursor for the next page.
type ProductListResult struct {
	Products   []ProductDTO `json:"products"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

func toCategoryDTO(category models.Category) CategoryDTO {
	return CategoryDTO{
		ID:   category.ID,
		Name: category.Name,
		Slug: category.Slug,
	}
}

func toProductDTO(product models.Product) ProductDTO {
	dto := ProductDTO{
		ID:          product.ID,
		Name:        product.Name,
		Slug:        product.Slug,
		Description: product.Description,
		Price:       product.Price.StringFixed(2),
		Stock:       product.Stock,
		CreatedAt:   product.CreatedAt,
	}
	if product.Category != nil {
		category := toCategoryDTO(*product.Category)
		dto.Category = &category
	}
	return dto
}
