// Package cart holds the shopping cart state and its persistence adapters.
package cart

import (
	"github.com/shopspring/decimal"
)

type Item struct {
	ID       int     `json:"id"`
	Slug     string  `json:"slug,omitempty"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Unit     string  `json:"unit"`
	Quantity int     `json:"quantity"`
	Image    string  `json:"image"`
}

func (i Item) LineTotal() float64 {
	return decimal.NewFromFloat(i.Price).Mul(decimal.NewFromInt(int64(i.Quantity))).Round(2).InexactFloat64()
}

// Product is the subset of catalog data needed to add something to the cart.
type Product struct {
	ID    int
	Slug  string
	Name  string
	Price float64
	Unit  string
	Image string
}

// Snapshot is the persisted form of a cart. Version increases on every save.
type Snapshot struct {
	Items   []Item `json:"items"`
	Version int64  `json:"version"`
}

// Store is a single cart. It is not safe for concurrent use; Manager serializes
// access per session.
type Store struct {
	items   []Item
	version int64
}

func NewStore() *Store {
	return &Store{}
}

func FromSnapshot(s Snapshot) *Store {
	st := &Store{version: s.Version}
	for _, it := range s.Items {
		if it.Quantity >= 1 {
			st.items = append(st.items, it)
		}
	}
	return st
}

func (s *Store) indexOf(id int) int {
	for i, it := range s.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// AddItem increments an existing line by one or inserts a new line with quantity 1.
func (s *Store) AddItem(p Product) {
	if i := s.indexOf(p.ID); i >= 0 {
		s.items[i].Quantity++
		return
	}
	s.items = append(s.items, Item{
		ID:       p.ID,
		Slug:     p.Slug,
		Name:     p.Name,
		Price:    p.Price,
		Unit:     p.Unit,
		Quantity: 1,
		Image:    p.Image,
	})
}

// UpdateQuantity sets the quantity of a line; zero or less removes it.
func (s *Store) UpdateQuantity(id int, quantity int) {
	if quantity <= 0 {
		s.RemoveItem(id)
		return
	}
	if i := s.indexOf(id); i >= 0 {
		s.items[i].Quantity = quantity
	}
}

func (s *Store) RemoveItem(id int) {
	i := s.indexOf(id)
	if i < 0 {
		return
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
}

func (s *Store) Clear() {
	s.items = nil
}

func (s *Store) Items() []Item {
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) Len() int {
	return len(s.items)
}

func (s *Store) TotalItems() int {
	total := 0
	for _, it := range s.items {
		total += it.Quantity
	}
	return total
}

func (s *Store) TotalPrice() float64 {
	total := decimal.Zero
	for _, it := range s.items {
		total = total.Add(decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total.Round(2).InexactFloat64()
}

func (s *Store) Version() int64 {
	return s.version
}

func (s *Store) Snapshot() Snapshot {
	return Snapshot{Items: s.Items(), Version: s.version}
}
