// internal/models/product.go
package models

import "time"

// Product is a catalog row as served to clients. Text columns are nullable in
// storage; the pointer fields stay nil when the column is NULL.
type Product struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Price          string    `json:"price"`
	PriceOld       *string   `json:"price_old"`
	Percent        *string   `json:"percent"`
	Brand          string    `json:"brand"`
	Category       string    `json:"category"`
	Img            string    `json:"img"`
	Rating         *string   `json:"rating"`
	FlashSaleCount *string   `json:"flash_sale_count"`
	Sold           *string   `json:"sold"`
	IsFlashSale    bool      `json:"is_flash_sale"`
	IsNew          bool      `json:"is_new"`
	IsLoan         bool      `json:"is_loan"`
	IsOnline       bool      `json:"is_online"`
	IsUpcoming     bool      `json:"is_upcoming"`
	Link           *string   `json:"link"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	Tags           []string  `json:"tags"`
}

type ProductTag struct {
	ProductID int64  `json:"product_id"`
	Tag       string `json:"tag"`
}

// Suggestion is the reduced projection used for autocomplete.
type Suggestion struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	Brand    string `json:"brand"`
	Category string `json:"category"`
	Img      string `json:"img"`
}

// ListResult carries a page of products plus the metadata clients may ask for.
type ListResult struct {
	Items            []Product `json:"items"`
	Total            int64     `json:"total"`
	Page             int       `json:"page"`
	PageSize         int       `json:"pageSize"`
	ResolvedCategory *string   `json:"resolvedCategory,omitempty"`
	ResolvedBrand    *string   `json:"resolvedBrand,omitempty"`
}
