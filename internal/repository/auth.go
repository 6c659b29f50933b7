// Package repository provides PostgreSQL persistence for users, sessions,
// carts, wishlists and the product catalog.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresAuthRepository stores users and their bearer tokens.
type PostgresAuthRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresAuthRepository creates a new PostgresAuthRepository with the given database connection.
// db must be a valid *sql.DB connected to a PostgreSQL instance.
func NewPostgresAuthRepository(db *sql.DB) *PostgresAuthRepository {
	return &PostgresAuthRepository{DB: db}
}

// UserExists checks whether a user with the specified login exists in the database.
// It returns true if the user exists, false otherwise.
// If an error occurs during the query, it is returned.
func (s *PostgresAuthRepository) UserExists(ctx context.Context, login string) (bool, error) {
	var exists bool
	err := s.DB.QueryRowContext(
		ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE login = $1)`,
		login,
	).Scan(&exists)
	return exists, err
}

// RegisterUser attempts to register a new user with the given login.
// If a user with the same login already exists, the ON CONFLICT DO NOTHING clause prevents an error.
// Returns any error encountered while executing the insertion.
func (s *PostgresAuthRepository) RegisterUser(ctx context.Context, login string) error {
	_, err := s.DB.ExecContext(
		ctx,
		`INSERT INTO users (login) VALUES ($1) ON CONFLICT DO NOTHING`,
		login,
	)
	return err
}

// CreateSession binds token to login.
func (s *PostgresAuthRepository) CreateSession(ctx context.Context, login, token string) error {
	_, err := s.DB.ExecContext(
		ctx,
		`INSERT INTO sessions (token, user_login) VALUES ($1, $2)`,
		token, login,
	)
	if err != nil {
		return fmt.Errorf("CreateSession: %w", err)
	}
	return nil
}

// UserForToken returns the login owning token, or "" if the token is unknown.
func (s *PostgresAuthRepository) UserForToken(ctx context.Context, token string) (string, error) {
	var login string
	err := s.DB.QueryRowContext(
		ctx,
		`SELECT user_login FROM sessions WHERE token = $1`,
		token,
	).Scan(&login)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("UserForToken: %w", err)
	}
	return login, nil
}
