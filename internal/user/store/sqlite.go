package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	sqliteutil "github.com/bothive/bothive/internal/common/sqlite"
	"github.com/bothive/bothive/internal/user/models"
)

// SQLiteStore provides SQLite-based user storage operations
type SQLiteStore struct {
	db *sql.DB
}

// Ensure SQLiteStore implements Store interface
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite user store
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// initSchema creates the database tables if they don't exist
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		google_id TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		name TEXT DEFAULT '',
		picture TEXT DEFAULT '',
		first_ip TEXT NOT NULL,
		main_file TEXT DEFAULT 'app.py',
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_users_first_ip ON users(first_ip);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// main_file arrived after the first release; upgrade older databases.
	return sqliteutil.EnsureColumn(s.db, "users", "main_file", "TEXT DEFAULT 'app.py'")
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateUser creates a new user
func (s *SQLiteStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, google_id, email, name, picture, first_ip, main_file, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, user.ID, user.GoogleID, user.Email, user.Name, user.Picture, user.FirstIP, user.MainFile, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by ID
func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.getUserWhere(ctx, "id = ?", id)
}

// GetUserByGoogleID retrieves a user by their Google account ID
func (s *SQLiteStore) GetUserByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	return s.getUserWhere(ctx, "google_id = ?", googleID)
}

// GetUserByFirstIP retrieves the user first registered from the given IP
func (s *SQLiteStore) GetUserByFirstIP(ctx context.Context, ip string) (*models.User, error) {
	return s.getUserWhere(ctx, "first_ip = ?", ip)
}

func (s *SQLiteStore) getUserWhere(ctx context.Context, where string, arg any) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, google_id, email, name, picture, first_ip, main_file, created_at
		FROM users WHERE `+where, arg)

	var u models.User
	err := row.Scan(&u.ID, &u.GoogleID, &u.Email, &u.Name, &u.Picture, &u.FirstIP, &u.MainFile, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, arg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// UpdateMainFile updates the entry-point filename for a user
func (s *SQLiteStore) UpdateMainFile(ctx context.Context, id, mainFile string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET main_file = ? WHERE id = ?`, mainFile, id)
	if err != nil {
		return fmt.Errorf("failed to update main file: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// ListUsers returns all registered users
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx, `
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
