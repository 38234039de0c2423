// Package store provides persistence for user accounts.
package store

import (
	"context"
	"errors"

	"github.com/bothive/bothive/internal/user/models"
)

// ErrNotFound is returned when no user matches the lookup.
var ErrNotFound = errors.New("user not found")

// Store defines the interface for user storage operations
type Store interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByGoogleID(ctx context.Context, googleID string) (*models.User, error)
	GetUserByFirstIP(ctx context.Context, ip string) (*models.User, error)
	UpdateMainFile(ctx context.Context, id, mainFile string) error
	ListUsers(ctx context.Context) ([]*models.User, error)

	// Close closes the store (for database connections)
	Close() error
}
