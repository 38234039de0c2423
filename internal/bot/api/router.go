package api

import (
	"github.com/gin-gonic/gin"

	"github.com/bothive/bothive/internal/bot/streaming"
	"github.com/bothive/bothive/internal/common/logger"
)

// SetupRoutes configures the bot control API routes and returns the handler
// so the caller can mount routes outside the group, such as /health.
// router should be the /api/v1 group; user identity is resolved by the
// caller and arrives as a path parameter.
func SetupRoutes(
	router *gin.RouterGroup,
	sup Supervisor,
	logReader LogReader,
	hub *streaming.Hub,
	log *logger.Logger,
) *Handler {
	handler := NewHandler(sup, logReader, hub, log)

	bot := router.Group("/users/:userId/bot")
	{
		bot.POST("/start", handler.StartBot)
		bot.POST("/stop", handler.StopBot)
		bot.POST("/restart", handler.RestartBot)
		bot.POST("/command", handler.SendCommand)
		bot.GET("/status", handler.GetStatus)
		bot.GET("/logs", handler.GetLogs)
		bot.GET("/logs/stream", handler.StreamLogs)
	}

	return handler
}
