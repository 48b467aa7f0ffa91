package domain

import "time"

type Product struct {
	ID               int       `json:"id"`
	Slug             string    `json:"slug"`
	Name             string    `json:"name"`
	ShortDescription string    `json:"shortDescription"`
	Description      string    `json:"description"`
	Price            float64   `json:"price"`
	Unit             string    `json:"unit"`
	Image            string    `json:"image"`
	Images           []string  `json:"images"`
	CategoryID       int       `json:"categoryId"`
	CategorySlug     string    `json:"categorySlug"`
	WoodType         string    `json:"woodType"`
	Stock            *int      `json:"stock"`
	Featured         bool      `json:"featured"`
	IsNew            bool      `json:"isNew"`
	IsActive         bool      `json:"isActive"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// DefaultUnit is the volumetric unit firewood is sold in.
const DefaultUnit = "stère"

// AvailableStock reports the sellable quantity. A nil stock means the product is
// not stock-tracked and is always available.
func (p Product) AvailableStock() int {
	if p.Stock == nil {
		return -1
	}
	if *p.Stock < 0 {
		return 0
	}
	return *p.Stock
}

func (p Product) InStock() bool {
	return p.Stock == nil || *p.Stock > 0
}

// CanFulfil reports whether quantity units can be sold right now.
func (p Product) CanFulfil(quantity int) bool {
	if !p.IsActive {
		return false
	}
	if p.Stock == nil {
		return true
	}
	return *p.Stock >= quantity
}

type Category struct {
	ID           int    `json:"id"`
	Slug         string `json:"slug"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Image        string `json:"image"`
	Featured     bool   `json:"featured"`
	IsActive     bool   `json:"isActive"`
	SortOrder    int    `json:"sortOrder"`
	ProductCount int    `json:"productCount"`
}
