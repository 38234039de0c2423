// Package supervisor spawns and tracks one long-lived bot process per user.
// Each bot runs as its own process-group leader so termination reaches any
// children it spawned; a watcher goroutine per launch performs the cleanup
// when the process exits.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/bothive/bothive/internal/bot/command"
	"github.com/bothive/bothive/internal/bot/logs"
	"github.com/bothive/bothive/internal/common/logger"
	"github.com/bothive/bothive/internal/events"
	"github.com/bothive/bothive/internal/events/bus"
	v1 "github.com/bothive/bothive/pkg/api/v1"
)

// killWait bounds how long Stop waits for the exit to be observed after a
// SIGKILL has been delivered.
const killWait = 2 * time.Second

// EntryResolver resolves the entry-point filename configured for a user.
type EntryResolver interface {
	EntryFile(ctx context.Context, userID string) (string, error)
}

// Config holds supervision settings.
type Config struct {
	// Runtime is the interpreter used to execute entry points.
	Runtime string
	// InstallCommand installs dependencies from the manifest.
	InstallCommand string
	// ManifestFile is the manifest filename looked for in the workspace.
	ManifestFile string
	// GracePeriod is how long Stop waits after SIGTERM before SIGKILL.
	GracePeriod time.Duration
	// SettleDelay is the pause between stop and start during a restart.
	SettleDelay time.Duration
}

// Supervisor manages bot process lifecycles for all users.
type Supervisor struct {
	cfg      Config
	registry *Registry
	paths    *logs.Paths
	resolver EntryResolver
	eventBus bus.EventBus
	logger   *logger.Logger
}

// New creates a Supervisor. The event bus is optional.
func New(cfg Config, paths *logs.Paths, resolver EntryResolver, eventBus bus.EventBus, log *logger.Logger) *Supervisor {
	return &Supervisor{
		cfg:      cfg,
		registry: NewRegistry(),
		paths:    paths,
		resolver: resolver,
		eventBus: eventBus,
		logger:   log.WithFields(zap.String("component", "supervisor")),
	}
}

// Registry exposes the process registry, mainly for tests and status.
func (s *Supervisor) Registry() *Registry {
	return s.registry
}

// Start launches the user's bot. It returns once the spawn call has
// completed; it does not wait for the program to finish. A spawn failure
// is also appended to the user's log file, since later failures (install
// step, program startup) are only visible there.
func (s *Supervisor) Start(ctx context.Context, userID string) error {
	entry, err := s.resolver.EntryFile(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to resolve entry file: %w", err)
	}
	entry, err = command.SafeEntryFile(entry)
	if err != nil {
		return err
	}

	handle, err := s.registry.Acquire(userID, entry)
	if err != nil {
		return err
	}

	workDir, err := s.paths.UserDir(userID)
	if err != nil {
		s.registry.Remove(userID, handle)
		return err
	}
	logPath := s.paths.LogPath(userID)

	script := command.Build(command.Spec{
		WorkDir:        workDir,
		EntryFile:      entry,
		ManifestPath:   filepath.Join(workDir, s.cfg.ManifestFile),
		LogPath:        logPath,
		Runtime:        s.cfg.Runtime,
		InstallCommand: s.cfg.InstallCommand,
	})

	cmd := exec.Command("/bin/sh", "-c", script)
	cmd.SysProcAttr = buildSysProcAttr()

	stdin, err := cmd.StdinPipe()
	if err != nil {
		s.abortLaunch(ctx, userID, entry, handle, err)
		return fmt.Errorf("%w: %v", ErrSpawn, err)
	}

	if err := cmd.Start(); err != nil {
		s.abortLaunch(ctx, userID, entry, handle, err)
		return fmt.Errorf("%w: %v", ErrSpawn, err)
	}

	handle.markRunning(cmd, stdin)

	s.logger.Info("bot started",
		zap.String("user_id", userID),
		zap.String("entry_file", entry),
		zap.Int("pid", handle.PID()))
	s.publish(ctx, events.BotStarted, handle)

	go s.watch(handle)

	return nil
}

// watch blocks until the process exits, then performs the natural-exit
// cleanup exactly once: terminal state, registry removal, done signal.
func (s *Supervisor) watch(h *Handle) {
	err := h.cmd.Wait()

	exitCode := 0
	if h.cmd.ProcessState != nil {
		exitCode = h.cmd.ProcessState.ExitCode()
	}

	h.markExited(exitCode)
	s.registry.Remove(h.userID, h)
	close(h.done)

	if err != nil {
		s.logger.Info("bot exited",
			zap.String("user_id", h.userID),
			zap.Int("exit_code", exitCode),
			zap.Error(err))
	} else {
		s.logger.Info("bot exited",
			zap.String("user_id", h.userID),
			zap.Int("exit_code", exitCode))
	}
	s.publish(context.Background(), events.BotExited, h)
}

// Stop terminates the user's bot: SIGTERM to the whole process group, a
// grace period, then SIGKILL. The returned bool reports whether there was
// a process to stop; "was not running" is information, not an error.
func (s *Supervisor) Stop(ctx context.Context, userID string) (bool, error) {
	handle, ok := s.registry.Get(userID)
	if !ok {
		return false, nil
	}

	// A spawn still in flight has no PID yet; Start cannot be cancelled.
	pgid := handle.PID()
	if pgid <= 0 || !handle.markStopping() {
		return false, nil
	}
	s.logger.Info("stopping bot", zap.String("user_id", userID), zap.Int("pgid", pgid))

	// Negative PID targets the whole process group. ESRCH means the group
	// already vanished, which is success, not failure.
	if err := syscall.Kill(-pgid, syscall.SIGTERM); err != nil && !errors.Is(err, syscall.ESRCH) {
		s.logger.Warn("failed to signal process group",
			zap.String("user_id", userID), zap.Error(err))
	}

	select {
	case <-handle.Done():
		s.publish(ctx, events.BotStopped, handle)
		return true, nil
	case <-time.After(s.cfg.GracePeriod):
	}

	s.logger.Warn("grace period elapsed, killing process group",
		zap.String("user_id", userID), zap.Int("pgid", pgid))
	_ = syscall.Kill(-pgid, syscall.SIGKILL)

	select {
	case <-handle.Done():
		s.publish(ctx, events.BotStopped, handle)
		return true, nil
	case <-time.After(killWait):
		return true, fmt.Errorf("bot process for user %s did not exit after SIGKILL", userID)
	}
}

// Restart cycles the user's bot: full stop (waiting for termination, not
// just signal delivery), a settle delay, then a fresh start. A bot that
// was not running is simply started.
func (s *Supervisor) Restart(ctx context.Context, userID string) error {
	if _, err := s.Stop(ctx, userID); err != nil {
		return err
	}

	time.Sleep(s.cfg.SettleDelay)

	return s.Start(ctx, userID)
}

// Send forwards one line of text to the running bot's stdin.
func (s *Supervisor) Send(userID, text string) error {
	handle, ok := s.registry.Get(userID)
	if !ok {
		return ErrNotRunning
	}
	return handle.writeStdin(text)
}

// Status returns the external view of the user's bot process, if any.
func (s *Supervisor) Status(userID string) (*v1.BotProcess, bool) {
	handle, ok := s.registry.Get(userID)
	if !ok {
		return nil, false
	}
	return handle.Snapshot(), true
}

// StopAll terminates every tracked bot, used during service shutdown.
// Processes that survive their kill are logged and abandoned; process
// state is in-memory only and is lost across a supervisor restart.
func (s *Supervisor) StopAll(ctx context.Context) {
	for _, h := range s.registry.List() {
		if _, err := s.Stop(ctx, h.UserID()); err != nil {
			s.logger.Error("failed to stop bot during shutdown",
				zap.String("user_id", h.UserID()), zap.Error(err))
		}
	}
}

func (s *Supervisor) publish(ctx context.Context, eventType string, h *Handle) {
	if s.eventBus == nil {
		return
	}

	snap := h.Snapshot()
	data := map[string]interface{}{
		"user_id":    snap.UserID,
		"pid":        snap.PID,
		"state":      string(snap.State),
		"entry_file": snap.EntryFile,
		"started_at": snap.StartedAt,
	}
	if snap.ExitCode != nil {
		data["exit_code"] = *snap.ExitCode
	}

	event := bus.NewEvent(eventType, "supervisor", data)
	if err := s.eventBus.Publish(ctx, eventType, event); err != nil {
		s.logger.Error("failed to publish event",
			zap.String("event_type", eventType),
			zap.String("user_id", snap.UserID),
			zap.Error(err))
	}
}

// abortLaunch performs the shared cleanup for a launch that never produced
// a process: the registry slot is released, the failure becomes visible in
// the user's log, and a bot.failed event goes out.
func (s *Supervisor) abortLaunch(ctx context.Context, userID, entry string, h *Handle, cause error) {
	s.registry.Remove(userID, h)
	if err := s.paths.AppendFailure(userID, cause); err != nil {
		s.logger.Warn("failed to record launch failure",
			zap.String("user_id", userID), zap.Error(err))
	}
	s.publishFailed(ctx, userID, entry, cause)
}

// publishFailed reports a launch that never produced a process.
func (s *Supervisor) publishFailed(ctx context.Context, userID, entry string, cause error) {
	if s.eventBus == nil {
		return
	}

	event := bus.NewEvent(events.BotFailed, "supervisor", map[string]interface{}{
		"user_id":    userID,
		"entry_file": entry,
		"error":      cause.Error(),
	})
	if err := s.eventBus.Publish(ctx, events.BotFailed, event); err != nil {
		s.logger.Error("failed to publish event",
			zap.String("event_type", events.BotFailed),
			zap.String("user_id", userID),
			zap.Error(err))
	}
}
