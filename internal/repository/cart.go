package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/atinyakov/packcart/internal/models"
	"github.com/lib/pq"
)

const addQuantityQuery = `
	INSERT INTO cart_lines (user_login, line_key, product_id, color, fabric, code, quantity, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, now())
	ON CONFLICT (user_login, line_key) DO UPDATE SET
		quantity = cart_lines.quantity + EXCLUDED.quantity,
		color = COALESCE(NULLIF(EXCLUDED.color, ''), cart_lines.color),
		fabric = COALESCE(NULLIF(EXCLUDED.fabric, ''), cart_lines.fabric),
		updated_at = now()
`

// PostgresCartRepository stores cart lines keyed by (user, line key).
type PostgresCartRepository struct {
	// DB is the database handle for executing queries and transactions.
	DB *sql.DB
}

// NewPostgresCartRepository creates a new PostgresCartRepository using the provided *sql.DB.
func NewPostgresCartRepository(db *sql.DB) *PostgresCartRepository {
	return &PostgresCartRepository{DB: db}
}

// GetLines returns every cart line of the user keyed by line key.
func (s *PostgresCartRepository) GetLines(ctx context.Context, userID string) (map[string]models.CartLine, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT line_key, product_id, color, fabric, code, quantity FROM cart_lines WHERE user_login = $1
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("GetLines: %w", err)
	}
	defer rows.Close()

	lines := make(map[string]models.CartLine)
	for rows.Next() {
		var key string
		var line models.CartLine
		if err := rows.Scan(&key, &line.ProductID, &line.Color, &line.Fabric, &line.Code, &line.Quantity); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		lines[key] = line
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetLines: %w", err)
	}
	return lines, nil
}

// AddQuantity adds line.Quantity packs to the line under key, creating it if
// needed. Non-empty color and fabric overwrite the stored ones.
func (s *PostgresCartRepository) AddQuantity(ctx context.Context, userID, key string, line models.CartLine) error {
	_, err := s.DB.ExecContext(ctx, addQuantityQuery,
		userID, key, line.ProductID, line.Color, line.Fabric, line.Code, line.Quantity)
	if err != nil {
		return fmt.Errorf("AddQuantity: %w", err)
	}
	return nil
}

// MergeLines adds every given line to the stored cart within one transaction.
// Stored lines absent from lines are left as they are.
func (s *PostgresCartRepository) MergeLines(ctx context.Context, userID string, lines map[string]models.CartLine) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for key, line := range lines {
		_, err := tx.ExecContext(ctx, addQuantityQuery,
			userID, key, line.ProductID, line.Color, line.Fabric, line.Code, line.Quantity)
		if err != nil {
			return fmt.Errorf("merge line: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// SetQuantity sets the quantity of an existing line. Unknown keys are ignored.
func (s *PostgresCartRepository) SetQuantity(ctx context.Context, userID, key string, quantity int) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE cart_lines SET quantity = $3, updated_at = now() WHERE user_login = $1 AND line_key = $2
	`, userID, key, quantity)
	if err != nil {
		return fmt.Errorf("SetQuantity: %w", err)
	}
	return nil
}

// DeleteLines removes the lines with the given keys for the specified user.
func (s *PostgresCartRepository) DeleteLines(ctx context.Context, userID string, keys []string) error {
	query := `DELETE FROM cart_lines WHERE user_login = $1 AND line_key = ANY($2)`
	_, err := s.DB.ExecContext(ctx, query, userID, pq.Array(keys))
	if err != nil {
		return fmt.Errorf("DeleteLines: %w", err)
	}
	return nil
}
