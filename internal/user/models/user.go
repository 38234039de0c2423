// Package models defines the user account data model.
package models

import (
	"time"

	v1 "github.com/bothive/bothive/pkg/api/v1"
)

// User represents a registered account that may host one bot process.
type User struct {
	ID        string
	GoogleID  string
	Email     string
	Name      string
	Picture   string
	FirstIP   string
	MainFile  string
	CreatedAt time.Time
}

// ToAPI converts the user to its API representation.
func (u *User) ToAPI() *v1.User {
	return &v1.User{
		ID:        u.ID,
		GoogleID:  u.GoogleID,
		Email:     u.Email,
		Name:      u.Name,
		Picture:   u.Picture,
		FirstIP:   u.FirstIP,
		MainFile:  u.MainFile,
		CreatedAt: u.CreatedAt,
	}
}
