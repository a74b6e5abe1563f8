package model

import "time"

type Product struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Description  *string   `json:"description,omitempty"`
	Price        Amount    `json:"price"`
	ComparePrice *Amount   `json:"comparePrice,omitempty"`
	CostPrice    *Amount   `json:"costPrice,omitempty"`
	SKU          *string   `json:"sku,omitempty"`
	Stock        Count     `json:"stock"`
	Images       []string  `json:"images"`
	CategoryID   *string   `json:"categoryId,omitempty"`
	Category     *Category `json:"category,omitempty"`
	IsActive     bool      `json:"isActive"`
	IsFeatured   bool      `json:"isFeatured"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ProductInput is used for both POST /products and PUT /products/:id.
// Nil fields are omitted, which makes it a partial update on PUT.
type ProductInput struct {
	Name         *string  `json:"name,omitempty"`
	Description  *string  `json:"description,omitempty"`
	Price        *Amount  `json:"price,omitempty"`
	ComparePrice *Amount  `json:"comparePrice,omitempty"`
	CostPrice    *Amount  `json:"costPrice,omitempty"`
	SKU          *string  `json:"sku,omitempty"`
	Stock        *int     `json:"stock,omitempty"`
	Images       []string `json:"images,omitempty"`
	CategoryID   *string  `json:"categoryId,omitempty"`
	IsActive     *bool    `json:"isActive,omitempty"`
	IsFeatured   *bool    `json:"isFeatured,omitempty"`
}
