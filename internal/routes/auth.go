package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/pushp314/commit-backend/internal/handlers"
	"github.com/pushp314/commit-backend/internal/middleware"
)

func RegisterAuthRoutes(r gin.IRouter) {
	// Credential endpoints get the strict limiter
	credentials := r.Group("")
	credentials.Use(middleware.AuthRateLimit())
	{
		credentials.POST("/register", handlers.Register)
		credentials.POST("/login", handlers.Login)
		credentials.POST("/forgot-password", handlers.ForgotPassword)
		credentials.POST("/reset-password", handlers.ResetPassword)
	}

	account := r.Group("")
	account.Use(middleware.AuthMiddleware())
	{
		account.POST("/logout", handlers.Logout)
		account.GET("/me", handlers.Me)
		account.PUT("/profile", handlers.UpdateProfile)
		account.PUT("/change-password", handlers.ChangePassword)
		account.DELETE("/delete-account", handlers.DeleteAccount)
	}
}
