package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/pushp314/commit-backend/internal/handlers"
	"github.com/pushp314/commit-backend/internal/middleware"
)

func RegisterAdminRoutes(r gin.IRouter) {
	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(), middleware.AdminOnly())
	{
		admin.POST("/goals/expire", handlers.ExpireGoals)
		admin.GET("/audit", handlers.GetAuditLog)
	}
}
