package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/atinyakov/packcart/internal/models"
)

// PostgresWishlistRepository stores wishlist entries per user.
type PostgresWishlistRepository struct {
	DB *sql.DB
}

// NewPostgresWishlistRepository creates a new PostgresWishlistRepository using the provided *sql.DB.
func NewPostgresWishlistRepository(db *sql.DB) *PostgresWishlistRepository {
	return &PostgresWishlistRepository{DB: db}
}

// ListEntries returns the user's wishlist ordered by product and color.
func (s *PostgresWishlistRepository) ListEntries(ctx context.Context, userID string) ([]models.WishlistEntry, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT product_id, color FROM wishlist WHERE user_login = $1 ORDER BY product_id, color
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("ListEntries: %w", err)
	}
	defer rows.Close()

	entries := []models.WishlistEntry{}
	for rows.Next() {
		var e models.WishlistEntry
		if err := rows.Scan(&e.ProductID, &e.Color); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListEntries: %w", err)
	}
	return entries, nil
}

// AddEntry stores an entry; adding an existing one is a no-op.
func (s *PostgresWishlistRepository) AddEntry(ctx context.Context, userID string, e models.WishlistEntry) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO wishlist (user_login, product_id, color) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING
	`, userID, e.ProductID, e.Color)
	if err != nil {
		return fmt.Errorf("AddEntry: %w", err)
	}
	return nil
}

// RemoveEntry deletes an entry.
func (s *PostgresWishlistRepository) RemoveEntry(ctx context.Context, userID string, e models.WishlistEntry) error {
	_, err := s.DB.ExecContext(ctx, `
		DELETE FROM wishlist WHERE user_login = $1 AND product_id = $2 AND color = $3
	`, userID, e.ProductID, e.Color)
	if err != nil {
		return fmt.Errorf("RemoveEntry: %w", err)
	}
	return nil
}
