package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/atinyakov/packcart/internal/models"
)

// PostgresProductRepository stores the catalog; variants live in a JSONB column.
type PostgresProductRepository struct {
	DB *sql.DB
}

// NewPostgresProductRepository creates a new PostgresProductRepository using the provided *sql.DB.
func NewPostgresProductRepository(db *sql.DB) *PostgresProductRepository {
	return &PostgresProductRepository{DB: db}
}

// ListProducts returns the whole catalog ordered by name.
func (s *PostgresProductRepository) ListProducts(ctx context.Context) ([]models.Product, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id, name, variants FROM products ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("ListProducts: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var p models.Product
		var variants []byte
		if err := rows.Scan(&p.ID, &p.Name, &variants); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if err := json.Unmarshal(variants, &p.Variants); err != nil {
			return nil, fmt.Errorf("decode variants of %s: %w", p.ID, err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListProducts: %w", err)
	}
	return products, nil
}

// UpsertProducts inserts or replaces the given products within a transaction.
func (s *PostgresProductRepository) UpsertProducts(ctx context.Context, products []models.Product) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, p := range products {
		variants, err := json.Marshal(p.Variants)
		if err != nil {
			return fmt.Errorf("encode variants of %s: %w", p.ID, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO products (id, name, variants) VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, variants = EXCLUDED.variants
		`, p.ID, p.Name, variants)
		if err != nil {
			return fmt.Errorf("upsert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
