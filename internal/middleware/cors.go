package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/pushp314/commit-backend/internal/config"
)

func CORSMiddleware() gin.HandlerFunc {
	origins := []string{"http://localhost:5173"}
	if config.AppConfig.FrontendURL != "" && config.AppConfig.FrontendURL != origins[0] {
		origins = append(origins, config.AppConfig.FrontendURL)
	}

	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true, // session cookie
		MaxAge:           12 * time.Hour,
	})
}
