// Package logs manages the per-user on-disk layout: workspaces holding the
// bot's files and the append-only console log written by each run.
package logs

import (
	"fmt"
	"os"
	"path/filepath"
)

// Placeholder is returned when a user has no log file yet.
const Placeholder = "No logs found. Start your bot to generate logs."

// Paths resolves per-user directories and log files under the data dir.
type Paths struct {
	filesDir string
	logsDir  string
}

// NewPaths creates a Paths over the given workspace and log directories.
func NewPaths(filesDir, logsDir string) *Paths {
	return &Paths{filesDir: filesDir, logsDir: logsDir}
}

// EnsureBase creates the base directories.
func (p *Paths) EnsureBase() error {
	if err := os.MkdirAll(p.filesDir, 0o755); err != nil {
		return fmt.Errorf("failed to create files dir: %w", err)
	}
	if err := os.MkdirAll(p.logsDir, 0o755); err != nil {
		return fmt.Errorf("failed to create logs dir: %w", err)
	}
	return nil
}

// UserDir returns the user's workspace directory, creating it if needed.
func (p *Paths) UserDir(userID string) (string, error) {
	dir := filepath.Join(p.filesDir, userID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create user dir: %w", err)
	}
	return dir, nil
}

// LogPath returns the user's console log file path.
func (p *Paths) LogPath(userID string) string {
	return filepath.Join(p.logsDir, userID+".log")
}

// Read returns the full current content of the user's console log, or the
// placeholder when no run has produced a log yet. It never blocks on the
// bot process; a partially written tail during an active run is expected.
func (p *Paths) Read(userID string) (string, error) {
	data, err := os.ReadFile(p.LogPath(userID))
	if os.IsNotExist(err) {
		return Placeholder, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read log: %w", err)
	}
	return string(data), nil
}

// AppendFailure records a launch failure into the user's log so it is
// visible through the same channel as normal console output.
func (p *Paths) AppendFailure(userID string, cause error) error {
	f, err := os.OpenFile(p.LogPath(userID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log: %w", err)
	}
	defer f.Close()

	_, err = fmt.Fprintf(f, "\n--- CRITICAL ERROR: Failed to start process ---\n%v\n", cause)
	return err
}
