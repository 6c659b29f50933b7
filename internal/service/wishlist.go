package service

import (
	"context"

	"github.com/atinyakov/packcart/internal/models"
)

// WishlistRepository defines the persistence operations needed by the WishlistService.
type WishlistRepository interface {
	ListEntries(ctx context.Context, userID string) ([]models.WishlistEntry, error)
	AddEntry(ctx context.Context, userID string, e models.WishlistEntry) error
	RemoveEntry(ctx context.Context, userID string, e models.WishlistEntry) error
}

// WishlistService manages the stored wishlist of a user.
type WishlistService struct {
	repo WishlistRepository
}

// NewWishlistService constructs a WishlistService with the provided repository.
func NewWishlistService(repo WishlistRepository) *WishlistService {
	return &WishlistService{repo: repo}
}

// List returns the user's wishlist.
func (s *WishlistService) List(ctx context.Context, userID string) ([]models.WishlistEntry, error) {
	return s.repo.ListEntries(ctx, userID)
}

// Add stores an entry. Adding an existing entry succeeds without change.
func (s *WishlistService) Add(ctx context.Context, userID string, e models.WishlistEntry) error {
	if e.ProductID == "" {
		return ErrInvalidItem
	}
	return s.repo.AddEntry(ctx, userID, e)
}

// Remove deletes an entry.
func (s *WishlistService) Remove(ctx context.Context, userID string, e models.WishlistEntry) error {
	if e.ProductID == "" {
		return ErrInvalidItem
	}
	return s.repo.RemoveEntry(ctx, userID, e)
}
