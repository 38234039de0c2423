package api

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bothive/bothive/internal/bot/command"
	"github.com/bothive/bothive/internal/common/errors"
	"github.com/bothive/bothive/internal/common/logger"
	"github.com/bothive/bothive/internal/events"
	"github.com/bothive/bothive/internal/events/bus"
	"github.com/bothive/bothive/internal/user/models"
	"github.com/bothive/bothive/internal/user/store"
)

// Handler contains HTTP handlers for the user account API
type Handler struct {
	store    store.Store
	eventBus bus.EventBus
	logger   *logger.Logger
}

// NewHandler creates a new API handler. The event bus is optional.
func NewHandler(s store.Store, eventBus bus.EventBus, log *logger.Logger) *Handler {
	return &Handler{
		store:    s,
		eventBus: eventBus,
		logger:   log.WithFields(zap.String("component", "user-api")),
	}
}

func (h *Handler) publish(c *gin.Context, eventType string, user *models.User) {
	if h.eventBus == nil {
		return
	}

	event := bus.NewEvent(eventType, "user-api", map[string]interface{}{
		"user_id":   user.ID,
		"email":     user.Email,
		"main_file": user.MainFile,
	})
	if err := h.eventBus.Publish(c.Request.Context(), eventType, event); err != nil {
		h.logger.Error("failed to publish event",
			zap.String("event_type", eventType),
			zap.String("user_id", user.ID),
			zap.Error(err))
	}
}

// CreateUser registers a new account
// POST /api/v1/users
func (h *Handler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		appErr := errors.BadRequest("invalid request body: " + err.Error())
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}

	// One account per origin IP, as the auth layer expects.
	if existing, err := h.store.GetUserByFirstIP(c.Request.Context(), req.FirstIP); err == nil {
		if existing.GoogleID != req.GoogleID {
			appErr := errors.Conflict("an account has already been registered from this IP address")
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}
		c.JSON(http.StatusOK, existing.ToAPI())
		return
	}

	user := &models.User{
		GoogleID: req.GoogleID,
		Email:    req.Email,
		Name:     req.Name,
		Picture:  req.Picture,
		FirstIP:  req.FirstIP,
		MainFile: "app.py",
	}

	if err := h.store.CreateUser(c.Request.Context(), user); err != nil {
		h.logger.Error("failed to create user", zap.Error(err))
		appErr := errors.InternalError("failed to create user", err)
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}

	h.publish(c, events.UserCreated, user)
	c.JSON(http.StatusCreated, user.ToAPI())
}

// GetUser returns one account
// GET /api/v1/users/:userId
func (h *Handler) GetUser(c *gin.Context) {
	userID := c.Param("userId")

	user, err := h.store.GetUser(c.Request.Context(), userID)
	if err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			appErr := errors.NotFound("user", userID)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}
		h.logger.Error("failed to get user", zap.String("user_id", userID), zap.Error(err))
		appErr := errors.InternalError("failed to get user", err)
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}

	c.JSON(http.StatusOK, user.ToAPI())
}

// UpdateSettings changes the user's entry-point filename
// PUT /api/v1/users/:userId/settings
func (h *Handler) UpdateSettings(c *gin.Context) {
	userID := c.Param("userId")

	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		appErr := errors.BadRequest("invalid request body: " + err.Error())
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}

	mainFile, err := command.SafeEntryFile(req.MainFile)
	if err != nil {
		appErr := errors.BadRequest(err.Error())
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}

	if err := h.store.UpdateMainFile(c.Request.Context(), userID, mainFile); err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			appErr := errors.NotFound("user", userID)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}
		h.logger.Error("failed to update settings", zap.String("user_id", userID), zap.Error(err))
		appErr := errors.InternalError("failed to update settings", err)
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}

	h.publish(c, events.UserUpdated, &models.User{ID: userID, MainFile: mainFile})
	c.JSON(http.StatusOK, gin.H{"main_file": mainFile})
}

// ListUsers returns all accounts
// GET /api/v1/users
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.store.ListUsers(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list users", zap.Error(err))
		appErr := errors.InternalError("failed to list users", err)
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}

	resp := make([]any, 0, len(users))
	for _, u := range users {
		resp = append(resp, u.ToAPI())
	}
	c.JSON(http.StatusOK, gin.H{"users": resp, "total": len(resp)})
}
