package supervisor

import "errors"

// Sentinel errors surfaced to callers. Signal races against a process that
// already exited are resolved internally and never reach these.
var (
	// ErrAlreadyRunning is returned by Start when a live process exists
	// for the user.
	ErrAlreadyRunning = errors.New("bot is already running")

	// ErrNotRunning is returned by Send when no live process exists for
	// the user. Stop reports the same condition as an informational
	// result, not an error.
	ErrNotRunning = errors.New("bot is not running")

	// ErrSpawn wraps an OS-level failure to create the process.
	ErrSpawn = errors.New("failed to spawn bot process")

	// ErrStdinUnavailable is returned by Send when the process has no
	// retained input stream or the stream has closed.
	ErrStdinUnavailable = errors.New("bot stdin is unavailable")
)
