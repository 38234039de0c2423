package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bothive/bothive/internal/user/models"
)

// MemoryStore provides in-memory user storage, used in tests.
type MemoryStore struct {
	users map[string]*models.User
	mu    sync.RWMutex
}

// Ensure MemoryStore implements Store interface
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a new in-memory user store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]*models.User),
	}
}

// Close is a no-op for the in-memory store
func (s *MemoryStore) Close() error {
	return nil
}

// CreateUser creates a new user
func (s *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.CreatedAt = time.Now().UTC()

	for _, u := range s.users {
		if u.GoogleID == user.GoogleID {
			return fmt.Errorf("user with google id %s already exists", user.GoogleID)
		}
	}

	s.users[user.ID] = user
	return nil
}

// GetUser retrieves a user by ID
func (s *MemoryStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return user, nil
}

// GetUserByGoogleID retrieves a user by their Google account ID
func (s *MemoryStore) GetUserByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.GoogleID == googleID {
			return u, nil
		}
	}
	return nil, fmt.Errorf("%w: google id %s", ErrNotFound, googleID)
}

// GetUserByFirstIP retrieves the user first registered from the given IP
func (s *MemoryStore) GetUserByFirstIP(ctx context.Context, ip string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.FirstIP == ip {
			return u, nil
		}
	}
	return nil, fmt.Errorf("%w: first ip %s", ErrNotFound, ip)
}

// UpdateMainFile updates the entry-point filename for a user
func (s *MemoryStore) UpdateMainFile(ctx context.Context, id, mainFile string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	user.MainFile = mainFile
	return nil
}

// ListUsers returns all registered users ordered by creation time
func (s *MemoryStore) ListUsers(ctx context.Context) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}
