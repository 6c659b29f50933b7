package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/atinyakov/packcart/internal/cart"
	"github.com/atinyakov/packcart/internal/middleware"
	"github.com/atinyakov/packcart/internal/service"
)

// CartService defines the cart operations required by the CartHandler.
// Every operation returns the user's full cart after the change.
type CartService interface {
	Get(ctx context.Context, userID string) (cart.State, error)
	Add(ctx context.Context, userID, itemID, color, fabric string) (cart.State, error)
	Update(ctx context.Context, userID, itemID string, quantity int) (cart.State, error)
	Merge(ctx context.Context, userID string, guest []byte) (cart.State, error)
}

// CartHandler handles the /api/cart endpoints.
type CartHandler struct {
	CartService CartService
}

type addRequest struct {
	ItemID string `json:"itemId"`
	Color  string `json:"color"`
	Fabric string `json:"type"`
}

type updateRequest struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
}

type mergeRequest struct {
	CartData json.RawMessage `json:"cartData"`
}

// Get handles POST /api/cart/get.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	state, err := h.CartService.Get(ctx, middleware.GetUserIDFromContext(ctx))
	h.respond(w, state, err)
}

// Add handles POST /api/cart/add.
func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	state, err := h.CartService.Add(ctx, middleware.GetUserIDFromContext(ctx), req.ItemID, req.Color, req.Fabric)
	h.respond(w, state, err)
}

// Update handles POST /api/cart/update. A quantity of zero or less removes the line.
func (h *CartHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	state, err := h.CartService.Update(ctx, middleware.GetUserIDFromContext(ctx), req.ItemID, req.Quantity)
	h.respond(w, state, err)
}

// Merge handles POST /api/cart/merge. cartData may be any persisted cart
// format the client ever wrote.
func (h *CartHandler) Merge(w http.ResponseWriter, r *http.Request) {
	var req mergeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	state, err := h.CartService.Merge(ctx, middleware.GetUserIDFromContext(ctx), req.CartData)
	h.respond(w, state, err)
}

func (h *CartHandler) respond(w http.ResponseWriter, state cart.State, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidItem):
		http.Error(w, "invalid item", http.StatusBadRequest)
		return
	case err != nil:
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if state == nil {
		state = cart.State{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"cartData": state,
	})
}
