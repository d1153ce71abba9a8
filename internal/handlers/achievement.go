package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pushp314/commit-backend/internal/models"
	"github.com/pushp314/commit-backend/internal/seeds"
	"github.com/pushp314/commit-backend/internal/services"
	"github.com/pushp314/commit-backend/pkg/response"
)

func GetAchievements(c *gin.Context) {
	summary, err := services.ListUserAchievements(dbFor(c), c.GetString("userId"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, http.StatusOK, "Achievements retrieved successfully", summary)
}

// CheckAchievements runs the reward engine on demand. Unlike the
// post-completion path its errors reach the caller.
func CheckAchievements(c *gin.Context) {
	result, err := services.EvaluateAchievements(dbFor(c), c.GetString("userId"))
	if err != nil {
		respondError(c, err)
		return
	}

	message := "No new achievements"
	if result.Unlocked {
		message = "New achievements unlocked"
	}
	response.OK(c, http.StatusOK, message, result)
}

func GetLeaderboard(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(services.DefaultLeaderboardSize)))
	if err != nil || limit < 1 {
		response.Fail(c, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	entries, err := services.Leaderboard(dbFor(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, http.StatusOK, "Leaderboard retrieved successfully", entries)
}

func GetAchievementProgress(c *gin.Context) {
	view, err := services.AchievementProgress(dbFor(c), c.GetString("userId"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, http.StatusOK, "Achievement progress retrieved successfully", view)
}

// SeedDefaultAchievements upserts the built-in catalog by title.
func SeedDefaultAchievements(c *gin.Context) {
	db := dbFor(c)
	catalog, err := seeds.SeedAchievements(db)
	if err != nil {
		respondError(c, err)
		return
	}
	services.RecordAdminAction(db, c.GetString("userId"), models.ActionSeedAchievements, c.ClientIP(), gin.H{"count": len(catalog)})
	response.OK(c, http.StatusOK, "Default achievements seeded", gin.H{"count": len(catalog), "achievements": catalog})
}
