package api

import (
	"github.com/gin-gonic/gin"

	"github.com/bothive/bothive/internal/common/logger"
	"github.com/bothive/bothive/internal/events/bus"
	"github.com/bothive/bothive/internal/user/store"
)

// SetupRoutes configures the user account API routes.
// router should be the /api/v1 group.
func SetupRoutes(router *gin.RouterGroup, s store.Store, eventBus bus.EventBus, log *logger.Logger) {
	handler := NewHandler(s, eventBus, log)

	users := router.Group("/users")
	{
		users.POST("", handler.CreateUser)
		users.GET("", handler.ListUsers)
		users.GET("/:userId", handler.GetUser)
		users.PUT("/:userId/settings", handler.UpdateSettings)
	}
}
