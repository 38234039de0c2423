package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bothive/bothive/internal/common/database"
	"github.com/bothive/bothive/internal/user/models"
)

// PostgresStore provides PostgreSQL-based user storage operations
type PostgresStore struct {
	db *database.DB
}

// Ensure PostgresStore implements Store interface
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new PostgreSQL user store on an existing pool
func NewPostgresStore(ctx context.Context, db *database.DB) (*PostgresStore, error) {
	s := &PostgresStore{db: db}

	if err := s.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// initSchema creates the users table if it doesn't exist
func (s *PostgresStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		google_id TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		name TEXT DEFAULT '',
		picture TEXT DEFAULT '',
		first_ip TEXT NOT NULL,
		main_file TEXT DEFAULT 'app.py',
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_users_first_ip ON users(first_ip);
	`

	_, err := s.db.Exec(ctx, schema)
	return err
}

// Close is a no-op; the pool is owned by the caller.
func (s *PostgresStore) Close() error {
	return nil
}

// CreateUser creates a new user
func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.CreatedAt = time.Now().UTC()

	_, err := s.db.Exec(ctx, `
		INSERT INTO users (id, google_id, email, name, picture, first_ip, main_file, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, user.ID, user.GoogleID, user.Email, user.Name, user.Picture, user.FirstIP, user.MainFile, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by ID
func (s *PostgresStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.getUserWhere(ctx, "id = $1", id)
}

// GetUserByGoogleID retrieves a user by their Google account ID
func (s *PostgresStore) GetUserByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	return s.getUserWhere(ctx, "google_id = $1", googleID)
}

// GetUserByFirstIP retrieves the user first registered from the given IP
func (s *PostgresStore) GetUserByFirstIP(ctx context.Context, ip string) (*models.User, error) {
	return s.getUserWhere(ctx, "first_ip = $1", ip)
}

func (s *PostgresStore) getUserWhere(ctx context.Context, where string, arg any) (*models.User, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, google_id, email, name, picture, first_ip, main_file, created_at
		FROM users WHERE `+where, arg)

	var u models.User
	err := row.Scan(&u.ID, &u.GoogleID, &u.Email, &u.Name, &u.Picture, &u.FirstIP, &u.MainFile, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, arg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// UpdateMainFile updates the entry-point filename for a user
func (s *PostgresStore) UpdateMainFile(ctx context.Context, id, mainFile string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE users SET main_file = $1 WHERE id = $2`, mainFile, id)
	if err != nil {
		return fmt.Errorf("failed to update main file: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// ListUsers returns all registered users
func (s *PostgresStore) ListUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, google_id, email, name, picture, first_ip, main_file, created_at
		FROM users ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.GoogleID, &u.Email, &u.Name, &u.Picture, &u.FirstIP, &u.MainFile, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}
