package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/pushp314/commit-backend/internal/database"
	"github.com/pushp314/commit-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	DefaultLeaderboardSize = 10
	maxLeaderboardSize     = 50

	leaderboardCacheKey = "leaderboard:achievements"
	leaderboardTTL      = 30 * time.Second
)

type LeaderboardEntry struct {
	Rank             int    `json:"rank"`
	UserID           string `json:"userId"`
	Username         string `json:"username"`
	ProfileImage     string `json:"profileImage"`
	Level            int    `json:"level"`
	TotalXP          int    `json:"totalXP"`
	AchievementCount int    `json:"achievementCount"`
}

// InvalidateLeaderboard drops the cached ranking (call on every unlock).
func InvalidateLeaderboard() {
	if err := database.CacheDelete(leaderboardCacheKey); err != nil && !errors.Is(err, database.ErrCacheDisabled) {
		logger.Warn().Err(err).Msg("Failed to invalidate leaderboard cache")
	}
}

// Leaderboard ranks users with at least one unlocked achievement by unlock
// count, then total XP. The top maxLeaderboardSize rows are cached in Redis.
func Leaderboard(db *gorm.DB, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardSize
	}
	if limit > maxLeaderboardSize {
		limit = maxLeaderboardSize
	}

	var entries []LeaderboardEntry
	err := database.CacheGet(leaderboardCacheKey, &entries)
	switch {
	case err == nil:
		return truncateLeaderboard(entries, limit), nil
	case !errors.Is(err, database.ErrCacheDisabled) && !errors.Is(err, redis.Nil):
		logger.Warn().Err(err).Msg("Leaderboard cache read failed")
	}

	entries, err = rankUsers(db, maxLeaderboardSize)
	if err != nil {
		return nil, err
	}
	if err := database.CacheSet(leaderboardCacheKey, entries, leaderboardTTL); err != nil && !errors.Is(err, database.ErrCacheDisabled) {
		logger.Warn().Err(err).Msg("Leaderboard cache write failed")
	}
	return truncateLeaderboard(entries, limit), nil
}

func rankUsers(db *gorm.DB, limit int) ([]LeaderboardEntry, error) {
	entries := []LeaderboardEntry{}
	err := db.Table("users").
		Select("users.id AS user_id, users.username, users.profile_image, users.level, users.total_xp, COUNT(user_achievements.achievement_id) AS achievement_count").
		Joins("JOIN user_achievements ON user_achievements.user_id = users.id AND user_achievements.unlocked = ?", true).
		Group("users.id, users.username, users.profile_image, users.level, users.total_xp").
		Order("achievement_count DESC, users.total_xp DESC, users.id ASC").
		Limit(limit).
		Scan(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("rank users: %w", err)
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

func truncateLeaderboard(entries []LeaderboardEntry, limit int) []LeaderboardEntry {
	if len(entries) > limit {
		return entries[:limit]
	}
	if entries == nil {
		return []LeaderboardEntry{}
	}
	return entries
}
