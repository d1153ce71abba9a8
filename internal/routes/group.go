package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/pushp314/commit-backend/internal/handlers"
	"github.com/pushp314/commit-backend/internal/middleware"
)

func RegisterGroupRoutes(r gin.IRouter) {
	groups := r.Group("/groups")
	groups.Use(middleware.AuthMiddleware())
	{
		groups.POST("", handlers.CreateGroup)
		groups.GET("/user-groups", handlers.GetUserGroups)
		groups.POST("/join", handlers.JoinGroup)
		groups.POST("/join-by-code", handlers.JoinGroupByCode)
		groups.GET("/:id", handlers.GetGroup)
		groups.PUT("/:id", handlers.UpdateGroup)
		groups.DELETE("/:id/leave", handlers.LeaveGroup)
		groups.POST("/:id/invite-code", handlers.RegenerateInviteCode)
	}
}
