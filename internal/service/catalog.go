package service

import (
	"context"
	"fmt"

	"github.com/atinyakov/packcart/internal/models"
)

// ProductRepository defines the persistence operations needed by the CatalogService.
type ProductRepository interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	UpsertProducts(ctx context.Context, products []models.Product) error
}

// CatalogService serves the product list.
type CatalogService struct {
	repo ProductRepository
}

// NewCatalogService constructs a CatalogService with the provided repository.
func NewCatalogService(repo ProductRepository) *CatalogService {
	return &CatalogService{repo: repo}
}

// List returns every product.
func (s *CatalogService) List(ctx context.Context) ([]models.Product, error) {
	return s.repo.ListProducts(ctx)
}

// Import stores products, replacing those with the same id. Products without
// an id are rejected.
func (s *CatalogService) Import(ctx context.Context, products []models.Product) error {
	for i, p := range products {
		if p.ID == "" {
			return fmt.Errorf("product %d: %w", i, ErrInvalidItem)
		}
	}
	return s.repo.UpsertProducts(ctx, products)
}
