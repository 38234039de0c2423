package streaming

import (
	"os"
	"time"

	"go.uber.org/zap"
)

// pollInterval is how often a tailer checks the log file for new bytes.
const pollInterval = 500 * time.Millisecond

// tailer follows one user's log file by polling, forwarding appended bytes
// to the hub. A file that shrinks was truncated by a new run's banner, so
// the tailer restarts from the beginning.
type tailer struct {
	hub    *Hub
	userID string
	path   string
	offset int64
	stopCh chan struct{}
}

func newTailer(h *Hub, userID, path string) *tailer {
	return &tailer{
		hub:    h,
		userID: userID,
		path:   path,
		stopCh: make(chan struct{}),
	}
}

func (t *tailer) stop() {
	close(t.stopCh)
}

func (t *tailer) run() {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopCh:
			return
		case <-ticker.C:
			t.poll()
		}
	}
}

func (t *tailer) poll() {
	info, err := os.Stat(t.path)
	if err != nil {
		// No log yet; keep waiting.
		return
	}

	size := info.Size()
	if size < t.offset {
		t.offset = 0
	}
	if size == t.offset {
		return
	}

	f, err := os.Open(t.path)
	if err != nil {
		t.hub.logger.Warn("failed to open log for tailing",
			zap.String("user_id", t.userID), zap.Error(err))
		return
	}
	defer f.Close()

	if _, err := f.Seek(t.offset, 0); err != nil {
		return
	}

	buf := make([]byte, size-t.offset)
	n, err := f.Read(buf)
	if n > 0 {
		t.offset += int64(n)
		t.hub.broadcast(t.userID, buf[:n])
	}
	if err != nil && n == 0 {
		t.hub.logger.Debug("log tail read failed",
			zap.String("user_id", t.userID), zap.Error(err))
	}
}
