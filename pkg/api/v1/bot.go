// Package v1 defines the external API types for bothive.
package v1

import "time"

// BotState represents the lifecycle state of a user's bot process
type BotState string

const (
	BotStateStarting BotState = "STARTING"
	BotStateRunning  BotState = "RUNNING"
	BotStateStopping BotState = "STOPPING"
	BotStateExited   BotState = "EXITED"
)

// BotProcess is the external view of one supervised bot process.
// The absence of a BotProcess for a user means the bot is idle.
type BotProcess struct {
	UserID    string     `json:"user_id"`
	PID       int        `json:"pid"`
	State     BotState   `json:"state"`
	EntryFile string     `json:"entry_file"`
	StartedAt time.Time  `json:"started_at"`
	ExitedAt  *time.Time `json:"exited_at,omitempty"`
	ExitCode  *int       `json:"exit_code,omitempty"`
}

// User is the external view of a registered account.
type User struct {
	ID        string    `json:"id"`
	GoogleID  string    `json:"google_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Picture   string    `json:"picture,omitempty"`
	FirstIP   string    `json:"first_ip"`
	MainFile  string    `json:"main_file"`
	CreatedAt time.Time `json:"created_at"`
}
