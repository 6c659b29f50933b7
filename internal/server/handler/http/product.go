package http

import (
	"context"
	"net/http"

	"github.com/atinyakov/packcart/internal/models"
)

// ProductService defines the catalog operations required by the ProductHandler.
type ProductService interface {
	List(ctx context.Context) ([]models.Product, error)
}

// ProductHandler serves the public product list.
type ProductHandler struct {
	ProductService ProductService
}

// List handles GET /api/product/list.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.ProductService.List(r.Context())
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if products == nil {
		products = []models.Product{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"products": products,
	})
}
