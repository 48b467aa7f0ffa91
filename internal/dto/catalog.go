package dto

import (
	"net/url"
	"strconv"
	"strings"

	"bucheron/internal/domain"
)

const (
	DefaultPageSize = 12
	MaxPageSize     = 48
)

type CategoryFilter struct {
	Featured *bool
	Active   *bool
}

func (f CategoryFilter) Values() url.Values {
	v := url.Values{}
	if f.Featured != nil {
		v.Set("featured", strconv.FormatBool(*f.Featured))
	}
	if f.Active != nil {
		v.Set("active", strconv.FormatBool(*f.Active))
	}
	return v
}

// ParseCategoryFilter accepts bare flags (?featured) as true.
func ParseCategoryFilter(q url.Values) CategoryFilter {
	return CategoryFilter{
		Featured: parseFlag(q, "featured"),
		Active:   parseFlag(q, "active"),
	}
}

func parseFlag(q url.Values, key string) *bool {
	if !q.Has(key) {
		return nil
	}
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		b := true
		return &b
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &b
}

type ProductSort string

const (
	SortNewest    ProductSort = "newest"
	SortPriceAsc  ProductSort = "price_asc"
	SortPriceDesc ProductSort = "price_desc"
	SortName      ProductSort = "name"
)

func (s ProductSort) Valid() bool {
	switch s {
	case SortNewest, SortPriceAsc, SortPriceDesc, SortName:
		return true
	}
	return false
}

type ProductFilter struct {
	Category string
	Query    string
	WoodType string
	MinPrice *float64
	MaxPrice *float64
	InStock  bool
	Sort     ProductSort
	Page     int
	Limit    int
}

func (f ProductFilter) Values() url.Values {
	v := url.Values{}
	if f.Category != "" {
		v.Set("category", f.Category)
	}
	if f.Query != "" {
		v.Set("q", f.Query)
	}
	if f.WoodType != "" {
		v.Set("woodType", f.WoodType)
	}
	if f.MinPrice != nil {
		v.Set("minPrice", strconv.FormatFloat(*f.MinPrice, 'f', -1, 64))
	}
	if f.MaxPrice != nil {
		v.Set("maxPrice", strconv.FormatFloat(*f.MaxPrice, 'f', -1, 64))
	}
	if f.InStock {
		v.Set("inStock", "true")
	}
	if f.Sort != "" {
		v.Set("sort", string(f.Sort))
	}
	if f.Page > 0 {
		v.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		v.Set("limit", strconv.Itoa(f.Limit))
	}
	return v
}

// ParseProductFilter reads search parameters leniently: malformed numbers are
// ignored and paging is clamped.
func ParseProductFilter(q url.Values) ProductFilter {
	f := ProductFilter{
		Category: strings.TrimSpace(q.Get("category")),
		Query:    strings.TrimSpace(q.Get("q")),
		WoodType: strings.TrimSpace(q.Get("woodType")),
		Sort:     ProductSort(q.Get("sort")),
	}
	if v, err := strconv.ParseFloat(q.Get("minPrice"), 64); err == nil && v >= 0 {
		f.MinPrice = &v
	}
	if v, err := strconv.ParseFloat(q.Get("maxPrice"), 64); err == nil && v >= 0 {
		f.MaxPrice = &v
	}
	if b := parseFlag(q, "inStock"); b != nil {
		f.InStock = *b
	}
	if !f.Sort.Valid() {
		f.Sort = SortNewest
	}
	f.Page, _ = strconv.Atoi(q.Get("page"))
	f.Limit, _ = strconv.Atoi(q.Get("limit"))
	f.Normalize()
	return f
}

func (f *ProductFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
}

func (f ProductFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

type ProductPage struct {
	Products []domain.Product `json:"products"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	Limit    int              `json:"limit"`
	Pages    int              `json:"pages"`
}

func NewProductPage(products []domain.Product, total int, f ProductFilter) ProductPage {
	if products == nil {
		products = []domain.Product{}
	}
	pages := 0
	if f.Limit > 0 {
		pages = (total + f.Limit - 1) / f.Limit
	}
	return ProductPage{
		Products: products,
		Total:    total,
		Page:     f.Page,
		Limit:    f.Limit,
		Pages:    pages,
	}
}

// FeaturedFilter selects the home-page product strip.
type FeaturedFilter string

const (
	FeaturedAll      FeaturedFilter = "featured"
	FeaturedNew      FeaturedFilter = "new"
	FeaturedInStock  FeaturedFilter = "in-stock"
	DefaultFeatLimit                = 8
)

func ParseFeaturedFilter(raw string) FeaturedFilter {
	switch FeaturedFilter(raw) {
	case FeaturedNew, FeaturedInStock:
		return FeaturedFilter(raw)
	}
	return FeaturedAll
}
