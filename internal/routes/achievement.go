package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/pushp314/commit-backend/internal/handlers"
	"github.com/pushp314/commit-backend/internal/middleware"
)

func RegisterAchievementRoutes(r gin.IRouter) {
	achievements := r.Group("/achievements")
	achievements.Use(middleware.AuthMiddleware())
	{
		achievements.GET("", handlers.GetAchievements)
		achievements.GET("/check", handlers.CheckAchievements)
		achievements.GET("/leaderboard", handlers.GetLeaderboard)
		achievements.GET("/:id/progress", handlers.GetAchievementProgress)
		achievements.POST("/defaults", middleware.AdminOnly(), handlers.SeedDefaultAchievements)
	}
}
