package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/bothive/bothive/internal/bot/streaming"
	"github.com/bothive/bothive/internal/bot/supervisor"
	"github.com/bothive/bothive/internal/common/logger"
	v1 "github.com/bothive/bothive/pkg/api/v1"
)

// Supervisor is the subset of supervisor operations the handlers need.
type Supervisor interface {
	Start(ctx context.Context, userID string) error
	Stop(ctx context.Context, userID string) (bool, error)
	Restart(ctx context.Context, userID string) error
	Send(userID, text string) error
	Status(userID string) (*v1.BotProcess, bool)
}

// LogReader returns the full current console log for a user.
type LogReader interface {
	Read(userID string) (string, error)
}

// Handler contains HTTP handlers for the bot control API
type Handler struct {
	supervisor Supervisor
	logs       LogReader
	hub        *streaming.Hub
	logger     *logger.Logger
}

// The caller (the auth layer in front of this service) is trusted to only
// route its own origins here.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// NewHandler creates a new API handler
func NewHandler(sup Supervisor, logReader LogReader, hub *streaming.Hub, log *logger.Logger) *Handler {
	return &Handler{
		supervisor: sup,
		logs:       logReader,
		hub:        hub,
		logger:     log.WithFields(zap.String("component", "bot-api")),
	}
}

// StartBot launches the user's bot
// POST /api/v1/users/:userId/bot/start
func (h *Handler) StartBot(c *gin.Context) {
	userID := c.Param("userId")

	if err := h.supervisor.Start(c.Request.Context(), userID); err != nil {
		if errors.Is(err, supervisor.ErrAlreadyRunning) {
			c.JSON(http.StatusConflict, failure("already running"))
			return
		}
		h.logger.Error("failed to start bot", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, failure(err.Error()))
		return
	}

	c.JSON(http.StatusOK, success("Bot start sequence initiated."))
}

// StopBot terminates the user's bot
// POST /api/v1/users/:userId/bot/stop
func (h *Handler) StopBot(c *gin.Context) {
	userID := c.Param("userId")

	stopped, err := h.supervisor.Stop(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("failed to stop bot", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, failure(err.Error()))
		return
	}
	if !stopped {
		c.JSON(http.StatusOK, info("not running"))
		return
	}

	c.JSON(http.StatusOK, success("Bot stopped."))
}

// RestartBot cycles the user's bot
// POST /api/v1/users/:userId/bot/restart
func (h *Handler) RestartBot(c *gin.Context) {
	userID := c.Param("userId")

	if err := h.supervisor.Restart(c.Request.Context(), userID); err != nil {
		if errors.Is(err, supervisor.ErrAlreadyRunning) {
			c.JSON(http.StatusConflict, failure("already running"))
			return
		}
		h.logger.Error("failed to restart bot", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, failure(err.Error()))
		return
	}

	c.JSON(http.StatusOK, success("Bot restarted."))
}

// GetLogs returns the user's full console log as plain text
// GET /api/v1/users/:userId/bot/logs
func (h *Handler) GetLogs(c *gin.Context) {
	userID := c.Param("userId")

	content, err := h.logs.Read(userID)
	if err != nil {
		h.logger.Error("failed to read logs", zap.String("user_id", userID), zap.Error(err))
		c.String(http.StatusInternalServerError, "Error reading logs: %v", err)
		return
	}

	c.String(http.StatusOK, content)
}

// SendCommand forwards a line of input to the running bot's stdin
// POST /api/v1/users/:userId/bot/command
func (h *Handler) SendCommand(c *gin.Context) {
	userID := c.Param("userId")

	var req CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, failure("invalid request body: "+err.Error()))
		return
	}

	if err := h.supervisor.Send(userID, req.Command); err != nil {
		switch {
		case errors.Is(err, supervisor.ErrNotRunning):
			c.JSON(http.StatusConflict, failure("not running"))
		case errors.Is(err, supervisor.ErrStdinUnavailable):
			c.JSON(http.StatusConflict, failure("cannot send"))
		default:
			h.logger.Error("failed to send command", zap.String("user_id", userID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, failure(err.Error()))
		}
		return
	}

	c.JSON(http.StatusOK, success("Command sent."))
}

// GetStatus returns a snapshot of the user's bot process
// GET /api/v1/users/:userId/bot/status
func (h *Handler) GetStatus(c *gin.Context) {
	userID := c.Param("userId")

	proc, ok := h.supervisor.Status(userID)
	if !ok {
		c.JSON(http.StatusNotFound, info("not running"))
		return
	}

	c.JSON(http.StatusOK, proc)
}

// StreamLogs upgrades to a WebSocket and tails the user's console log
// GET /api/v1/users/:userId/bot/logs/stream
func (h *Handler) StreamLogs(c *gin.Context) {
	userID := c.Param("userId")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.String("user_id", userID), zap.Error(err))
		return
	}

	client := h.hub.NewClient(conn, userID)
	go client.WritePump()
	go client.ReadPump()
}

// HealthCheck reports service liveness
// GET /health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}
