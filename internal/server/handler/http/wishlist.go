package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/atinyakov/packcart/internal/middleware"
	"github.com/atinyakov/packcart/internal/models"
	"github.com/atinyakov/packcart/internal/service"
)

// WishlistService defines the wishlist operations required by the WishlistHandler.
type WishlistService interface {
	List(ctx context.Context, userID string) ([]models.WishlistEntry, error)
	Add(ctx context.Context, userID string, e models.WishlistEntry) error
	Remove(ctx context.Context, userID string, e models.WishlistEntry) error
}

// WishlistHandler handles the /api/wishlist endpoints.
type WishlistHandler struct {
	WishlistService WishlistService
}

// List handles GET /api/wishlist.
func (h *WishlistHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entries, err := h.WishlistService.List(ctx, middleware.GetUserIDFromContext(ctx))
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []models.WishlistEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"wishlist": entries,
	})
}

// Add handles POST /api/wishlist/add.
func (h *WishlistHandler) Add(w http.ResponseWriter, r *http.Request) {
	h.change(w, r, h.WishlistService.Add)
}

// Remove handles POST /api/wishlist/remove.
func (h *WishlistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	h.change(w, r, h.WishlistService.Remove)
}

func (h *WishlistHandler) change(w http.ResponseWriter, r *http.Request,
	op func(context.Context, string, models.WishlistEntry) error) {
	var entry models.WishlistEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	err := op(ctx, middleware.GetUserIDFromContext(ctx), entry)
	switch {
	case errors.Is(err, service.ErrInvalidItem):
		http.Error(w, "invalid item", http.StatusBadRequest)
		return
	case err != nil:
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
