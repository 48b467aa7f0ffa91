package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	chene = Product{ID: 1, Slug: "chene-sec-50", Name: "Chêne sec 50 cm", Price: 89.90, Unit: "stère", Image: "/img/chene.jpg"}
	hetre = Product{ID: 2, Slug: "hetre-33", Name: "Hêtre 33 cm", Price: 79.50, Unit: "stère"}
	allum = Product{ID: 3, Slug: "allume-feu", Name: "Allume-feu naturel", Price: 6.25, Unit: "sac"}
)

func TestStore_AddSameProductTwice(t *testing.T) {
	s := NewStore()

	s.AddItem(chene)
	s.AddItem(chene)

	items := s.Items()
	assert.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, "Chêne sec 50 cm", items[0].Name)
	assert.Equal(t, 2, s.TotalItems())
}

func TestStore_AddKeepsInsertionOrder(t *testing.T) {
	s := NewStore()

	s.AddItem(hetre)
	s.AddItem(chene)
	s.AddItem(hetre)

	items := s.Items()
	assert.Equal(t, []int{2, 1}, []int{items[0].ID, items[1].ID})
}

func TestStore_UpdateQuantity(t *testing.T) {
	s := NewStore()
	s.AddItem(chene)

	s.UpdateQuantity(chene.ID, 4)
	assert.Equal(t, 4, s.Items()[0].Quantity)

	s.UpdateQuantity(99, 3)
	assert.Equal(t, 1, s.Len())
}

func TestStore_UpdateQuantityZeroEqualsRemove(t *testing.T) {
	for _, q := range []int{0, -1} {
		viaUpdate := NewStore()
		viaRemove := NewStore()
		for _, s := range []*Store{viaUpdate, viaRemove} {
			s.AddItem(chene)
			s.AddItem(hetre)
		}

		viaUpdate.UpdateQuantity(chene.ID, q)
		viaRemove.RemoveItem(chene.ID)

		assert.Equal(t, viaRemove.Items(), viaUpdate.Items())
	}
}

func TestStore_RemoveMissingIsNoop(t *testing.T) {
	s := NewStore()
	s.AddItem(chene)

	s.RemoveItem(42)

	assert.Equal(t, 1, s.Len())
}

func TestStore_Clear(t *testing.T) {
	s := NewStore()
	s.AddItem(chene)
	s.AddItem(hetre)

	s.Clear()

	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, s.TotalItems())
	assert.Equal(t, 0.0, s.TotalPrice())
}

func TestStore_TotalPrice(t *testing.T) {
	tests := []struct {
		name     string
		build    func(*Store)
		expected float64
	}{
		{
			name:     "empty cart",
			build:    func(*Store) {},
			expected: 0,
		},
		{
			name: "single line",
			build: func(s *Store) {
				s.AddItem(chene)
			},
			expected: 89.90,
		},
		{
			name: "mixed lines",
			build: func(s *Store) {
				s.AddItem(chene)
				s.UpdateQuantity(chene.ID, 3)
				s.AddItem(hetre)
				s.AddItem(allum)
				s.UpdateQuantity(allum.ID, 7)
			},
			expected: 3*89.90 + 79.50 + 7*6.25,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			tt.build(s)

			sum := 0.0
			for _, it := range s.Items() {
				sum += it.Price * float64(it.Quantity)
			}
			assert.InDelta(t, tt.expected, s.TotalPrice(), 0.001)
			assert.InDelta(t, sum, s.TotalPrice(), 0.001)
		})
	}
}

func TestItem_LineTotal(t *testing.T) {
	item := Item{Price: 0.1, Quantity: 3}
	assert.Equal(t, 0.3, item.LineTotal())
}

func TestStore_SnapshotRoundTrip(t *testing.T) {
	s := NewStore()
	s.AddItem(chene)
	s.AddItem(chene)
	s.AddItem(allum)

	reloaded := FromSnapshot(s.Snapshot())

	assert.Equal(t, s.Items(), reloaded.Items())
	assert.Equal(t, s.TotalPrice(), reloaded.TotalPrice())
}

func TestFromSnapshot_DropsNonPositiveQuantities(t *testing.T) {
	s := FromSnapshot(Snapshot{
		Items: []Item{
			{ID: 1, Quantity: 2, Price: 10},
			{ID: 2, Quantity: 0, Price: 10},
		},
		Version: 7,
	})

	assert.Equal(t, 1, s.Len())
	assert.Equal(t, int64(7), s.Version())
}

func TestStore_ItemsReturnsCopy(t *testing.T) {
	s := NewStore()
	s.AddItem(chene)

	items := s.Items()
	items[0].Quantity = 50

	assert.Equal(t, 1, s.TotalItems())
}
