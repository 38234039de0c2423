// Package api provides HTTP handlers for user account management.
package api

// CreateUserRequest registers a new account, called by the auth layer
// after a successful OAuth exchange.
type CreateUserRequest struct {
	GoogleID string `json:"google_id" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name"`
	Picture  string `json:"picture"`
	FirstIP  string `json:"first_ip" binding:"required"`
}

// UpdateSettingsRequest changes the user's bot entry-point filename.
type UpdateSettingsRequest struct {
	MainFile string `json:"main_file" binding:"required"`
}
