package storefront

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"bucheron/internal/apiclient"
	"bucheron/internal/cart"
	"bucheron/internal/commons"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxLineQuantity = 100

var errOutOfStock = errors.New("out of stock")

type cartData struct {
	Items    []cart.Item
	Count    int
	Subtotal float64
	// Remaining is what is left to spend for free shipping, zero once reached.
	Remaining     float64
	FreeThreshold float64
}

func (h *Handler) Cart(w http.ResponseWriter, r *http.Request) {
	traceID, logger := commons.NewTrace(h.logger)

	st, err := h.carts.Get(r.Context(), sessionKey(r))
	if err != nil {
		h.fail(w, r, logger, traceID, err)
		return
	}

	subtotal := st.TotalPrice()
	threshold := h.rates.FreeThreshold()
	remaining := decimal.NewFromFloat(threshold).Sub(decimal.NewFromFloat(subtotal))
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	h.render(w, r, logger, http.StatusOK, "cart", view{
		Title: "Mon panier",
		Data: cartData{
			Items:         st.Items(),
			Count:         st.TotalItems(),
			Subtotal:      subtotal,
			Remaining:     remaining.Round(2).InexactFloat64(),
			FreeThreshold: threshold,
		},
	})
}

// AddToCart adds quantity units of the product named by slug. The product is
// read from the catalog so the cart line carries current name and price.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	traceID, logger := commons.NewTrace(h.logger)

	if err := r.ParseForm(); err != nil {
		logger.Warn("invalid cart form", zap.Error(err))
		redirect(w, r, withFlash("/panier", "erreur", "panier"))
		return
	}
	back := localPath(r.PostForm.Get("retour"), "/panier")
	slug := strings.TrimSpace(r.PostForm.Get("slug"))
	quantity := formQuantity(r.PostForm.Get("quantite"), 1)
	if quantity < 1 {
		quantity = 1
	}

	product, err := h.catalog.Product(r.Context(), slug)
	if err != nil {
		if apiclient.IsNotFound(err) {
			redirect(w, r, withFlash(back, "erreur", "indisponible"))
			return
		}
		h.fail(w, r, logger, traceID, err)
		return
	}
	if !product.IsActive || !product.InStock() {
		redirect(w, r, withFlash(back, "erreur", "indisponible"))
		return
	}

	_, err = h.carts.Mutate(r.Context(), sessionKey(r), func(s *cart.Store) error {
		current := 0
		for _, it := range s.Items() {
			if it.ID == product.ID {
				current = it.Quantity
			}
		}
		wanted := current + quantity
		if wanted > maxLineQuantity || (product.Stock != nil && wanted > product.AvailableStock()) {
			return errOutOfStock
		}
		s.AddItem(cart.Product{
			ID:    product.ID,
			Slug:  product.Slug,
			Name:  product.Name,
			Price: product.Price,
			Unit:  product.Unit,
			Image: product.Image,
		})
		s.UpdateQuantity(product.ID, wanted)
		return nil
	})
	switch {
	case errors.Is(err, errOutOfStock):
		redirect(w, r, withFlash(back, "erreur", "stock"))
	case err != nil:
		logger.Error("adding to cart", zap.String("slug", slug), zap.Error(err))
		redirect(w, r, withFlash(back, "erreur", "panier"))
	default:
		logger.Info("product added to cart", zap.Int("productId", product.ID), zap.Int("quantity", quantity))
		redirect(w, r, withFlash(back, "ok", "ajoute"))
	}
}

// UpdateCart sets a line quantity. Zero removes the line; an unreadable
// quantity leaves it alone.
func (h *Handler) UpdateCart(w http.ResponseWriter, r *http.Request) {
	h.mutateLine(w, r, func(s *cart.Store, id, quantity int) {
		if quantity < 0 {
			return
		}
		if quantity > maxLineQuantity {
			quantity = maxLineQuantity
		}
		s.UpdateQuantity(id, quantity)
	})
}

func (h *Handler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	h.mutateLine(w, r, func(s *cart.Store, id, _ int) {
		s.RemoveItem(id)
	})
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	_, logger := commons.NewTrace(h.logger)

	if err := h.carts.Clear(r.Context(), sessionKey(r)); err != nil {
		logger.Error("clearing cart", zap.Error(err))
		redirect(w, r, withFlash("/panier", "erreur", "panier"))
		return
	}
	redirect(w, r, withFlash("/panier", "ok", "vide"))
}

func (h *Handler) mutateLine(w http.ResponseWriter, r *http.Request, apply func(s *cart.Store, id, quantity int)) {
	_, logger := commons.NewTrace(h.logger)

	if err := r.ParseForm(); err != nil {
		logger.Warn("invalid cart form", zap.Error(err))
		redirect(w, r, withFlash("/panier", "erreur", "panier"))
		return
	}
	id, err := strconv.Atoi(r.PostForm.Get("id"))
	if err != nil || id <= 0 {
		redirect(w, r, withFlash("/panier", "erreur", "panier"))
		return
	}
	quantity := formQuantity(r.PostForm.Get("quantite"), -1)

	_, err = h.carts.Mutate(r.Context(), sessionKey(r), func(s *cart.Store) error {
		apply(s, id, quantity)
		return nil
	})
	if err != nil {
		logger.Error("updating cart", zap.Int("productId", id), zap.Error(err))
		redirect(w, r, withFlash("/panier", "erreur", "panier"))
		return
	}
	redirect(w, r, withFlash("/panier", "ok", "panier"))
}

func formQuantity(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return n
}
