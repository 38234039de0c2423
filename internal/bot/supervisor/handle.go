package supervisor

import (
	"io"
	"os/exec"
	"sync"
	"time"

	v1 "github.com/bothive/bothive/pkg/api/v1"
)

// Handle tracks one launched bot process. It is created in the Starting
// state while its registry slot is reserved, becomes Running once the spawn
// succeeds, and ends Exited exactly once, either through the watcher or
// after a confirmed kill.
type Handle struct {
	userID    string
	entryFile string

	mu       sync.Mutex
	state    v1.BotState
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	pid      int
	started  time.Time
	exited   *time.Time
	exitCode *int

	// done is closed by the watcher after the process exits and the
	// registry entry is removed.
	done chan struct{}
}

func newHandle(userID, entryFile string) *Handle {
	return &Handle{
		userID:    userID,
		entryFile: entryFile,
		state:     v1.BotStateStarting,
		done:      make(chan struct{}),
	}
}

// UserID returns the owning user's identifier.
func (h *Handle) UserID() string { return h.userID }

// PID returns the process ID, which is also the process group ID because
// the process is launched as its own group leader.
func (h *Handle) PID() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pid
}

// State returns the current lifecycle state.
func (h *Handle) State() v1.BotState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Done returns a channel closed once the process has exited and its
// registry entry has been removed.
func (h *Handle) Done() <-chan struct{} { return h.done }

// markRunning records the spawned process. Called once by Start.
func (h *Handle) markRunning(cmd *exec.Cmd, stdin io.WriteCloser) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cmd = cmd
	h.stdin = stdin
	h.pid = cmd.Process.Pid
	h.started = time.Now().UTC()
	h.state = v1.BotStateRunning
}

// markStopping transitions Running -> Stopping. Reports whether the handle
// was still live; a handle that already reached Exited is left alone.
func (h *Handle) markStopping() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == v1.BotStateExited {
		return false
	}
	h.state = v1.BotStateStopping
	return true
}

// markExited records the terminal state. Idempotent: only the first call
// records the exit code.
func (h *Handle) markExited(exitCode int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == v1.BotStateExited {
		return
	}
	h.state = v1.BotStateExited
	now := time.Now().UTC()
	h.exited = &now
	h.exitCode = &exitCode
}

// writeStdin forwards one line to the process's input stream.
func (h *Handle) writeStdin(text string) error {
	h.mu.Lock()
	stdin := h.stdin
	state := h.state
	h.mu.Unlock()

	if state != v1.BotStateRunning {
		return ErrNotRunning
	}
	if stdin == nil {
		return ErrStdinUnavailable
	}

	if _, err := io.WriteString(stdin, text+"\n"); err != nil {
		return ErrStdinUnavailable
	}
	return nil
}

// Snapshot returns the external view of the handle.
func (h *Handle) Snapshot() *v1.BotProcess {
	h.mu.Lock()
	defer h.mu.Unlock()

	p := &v1.BotProcess{
		UserID:    h.userID,
		PID:       h.pid,
		State:     h.state,
		EntryFile: h.entryFile,
		StartedAt: h.started,
	}
	if h.exited != nil {
		t := *h.exited
		p.ExitedAt = &t
	}
	if h.exitCode != nil {
		c := *h.exitCode
		p.ExitCode = &c
	}
	return p
}
