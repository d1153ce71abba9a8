package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/pushp314/commit-backend/internal/handlers"
	"github.com/pushp314/commit-backend/internal/middleware"
)

func RegisterGoalRoutes(r gin.IRouter) {
	goals := r.Group("/goals")
	goals.Use(middleware.AuthMiddleware())
	{
		goals.POST("", handlers.CreateGoal)
		goals.GET("/user-goals", handlers.GetUserGoals)
		goals.GET("/group/:groupId", handlers.GetGroupGoals)
		goals.PUT("/:id/complete", middleware.WriteRateLimit(), handlers.CompleteGoal)
		goals.PUT("/:id/progress", middleware.WriteRateLimit(), handlers.UpdateGoalProgress)
		goals.DELETE("/:id", handlers.DeleteGoal)
	}
}
