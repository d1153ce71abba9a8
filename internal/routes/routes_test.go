package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pushp314/commit-backend/internal/handlers"
	"github.com/pushp314/commit-backend/internal/models"
	"github.com/pushp314/commit-backend/internal/services"
	"github.com/pushp314/commit-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
	services.BcryptCost = bcrypt.MinCost
}

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Details []json.RawMessage `json:"details"`
}

var clientSeq int32

// apiClient sends requests from its own address so the per-IP limiters of
// one test never affect another.
type apiClient struct {
	t      *testing.T
	router *gin.Engine
	ip     string
}

func newClient(t *testing.T) (*apiClient, *gorm.DB) {
	db := testutil.NewDB(t)
	n := atomic.AddInt32(&clientSeq, 1)
	return &apiClient{t: t, router: NewRouter(), ip: fmt.Sprintf("10.1.%d.%d", n/250, n%250+1)}, db
}

func (c *apiClient) do(method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	c.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = c.ip + ":40000"
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "" {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w, env
}

func decode(t *testing.T, env envelope, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, dest))
}

func (c *apiClient) register(email string) (token string, userID string) {
	c.t.Helper()
	w, env := c.do(http.MethodPost, "/api/auth/register", "", gin.H{"email": email, "password": "password123"})
	require.Equal(c.t, http.StatusCreated, w.Code, w.Body.String())

	var session struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	decode(c.t, env, &session)
	require.NotEmpty(c.t, session.Token)
	return session.Token, session.User.ID
}

func TestAuthFlow(t *testing.T) {
	c, _ := newClient(t)

	w, env := c.do(http.MethodPost, "/api/auth/register", "", gin.H{"email": "alice@example.com", "password": "password123"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, env.Success)
	assert.Contains(t, w.Header().Get("Set-Cookie"), "token=")

	w, env = c.do(http.MethodPost, "/api/auth/register", "", gin.H{"email": "alice@example.com", "password": "password123"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.False(t, env.Success)

	w, _ = c.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "alice@example.com", "password": "bad-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env = c.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "alice@example.com", "password": "password123", "rememberMe": true})
	require.Equal(t, http.StatusOK, w.Code)
	var session struct {
		Token string `json:"token"`
	}
	decode(t, env, &session)

	w, env = c.do(http.MethodGet, "/api/auth/me", session.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me struct {
		User   models.User       `json:"user"`
		Badges []json.RawMessage `json:"badges"`
	}
	decode(t, env, &me)
	assert.Equal(t, "alice", me.User.Username)
	assert.Empty(t, me.Badges)

	w, _ = c.do(http.MethodPost, "/api/auth/logout", session.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), "token=;")
}

func TestAuthMiddleware(t *testing.T) {
	c, db := newClient(t)
	user := testutil.CreateUser(t, db, "alice")

	w, env := c.do(http.MethodGet, "/api/goals/user-goals", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Authentication required", env.Message)

	w, env = c.do(http.MethodGet, "/api/goals/user-goals", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid token", env.Message)

	// The session cookie is accepted without a header.
	req := httptest.NewRequest(http.MethodGet, "/api/goals/user-goals", nil)
	req.RemoteAddr = c.ip + ":40000"
	req.AddCookie(&http.Cookie{Name: "token", Value: testutil.Token(t, user.ID)})
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateGoal_ValidationDetails(t *testing.T) {
	c, db := newClient(t)
	user := testutil.CreateUser(t, db, "alice")
	token := testutil.Token(t, user.ID)

	w, env := c.do(http.MethodPost, "/api/goals", token, gin.H{"goalName": "Run", "deadline": "2099-01-01", "difficulty": "extreme"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Validation failed", env.Message)
	assert.Len(t, env.Details, 1)

	w, _ = c.do(http.MethodPost, "/api/goals", token, gin.H{"goalName": "Run", "deadline": "tomorrow"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = c.do(http.MethodPost, "/api/goals", token, gin.H{"goalName": "Run", "deadline": "2099-01-01", "isGroupGoal": true})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = c.do(http.MethodPost, "/api/goals", token, gin.H{"goalName": "Run", "deadline": "2099-01-01", "difficulty": "hard", "category": "fitness"})
	require.Equal(t, http.StatusCreated, w.Code)
	var goal models.Goal
	decode(t, env, &goal)
	assert.Equal(t, 200, goal.XPReward)
	assert.Equal(t, 20, goal.TokenReward)
}

func TestGroupGoalFlow(t *testing.T) {
	c, _ := newClient(t)
	aliceToken, _ := c.register("alice@example.com")
	bobToken, bobID := c.register("bob@example.com")

	w, env := c.do(http.MethodPost, "/api/groups", aliceToken, gin.H{"name": "Runners", "category": "fitness"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var group models.Group
	decode(t, env, &group)

	w, _ = c.do(http.MethodPost, "/api/groups/join-by-code", bobToken, gin.H{"inviteCode": group.InviteCode})
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = c.do(http.MethodPost, "/api/groups/join", bobToken, gin.H{"groupId": group.ID})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, env = c.do(http.MethodPost, "/api/goals", aliceToken, gin.H{
		"goalName": "10k steps", "deadline": "2099-01-01", "isGroupGoal": true, "groupId": group.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var goal models.Goal
	decode(t, env, &goal)

	w, env = c.do(http.MethodGet, "/api/goals/group/"+group.ID, bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed []models.Goal
	decode(t, env, &listed)
	require.Len(t, listed, 1)
	require.NotNil(t, listed[0].UserCompleted)
	assert.False(t, *listed[0].UserCompleted)

	type completion struct {
		GoalCompleted bool `json:"goalCompleted"`
		Reward        struct {
			XP int `json:"xp"`
		} `json:"reward"`
		Achievements services.EvaluationResult `json:"achievements"`
	}

	w, env = c.do(http.MethodPut, "/api/goals/"+goal.ID+"/complete", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var first completion
	decode(t, env, &first)
	assert.False(t, first.GoalCompleted)
	assert.Equal(t, 100, first.Reward.XP)

	w, _ = c.do(http.MethodPut, "/api/goals/"+goal.ID+"/complete", aliceToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, env = c.do(http.MethodPut, "/api/goals/"+goal.ID+"/complete", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var second completion
	decode(t, env, &second)
	assert.True(t, second.GoalCompleted)
	assert.True(t, second.Achievements.Unlocked)

	titles := map[string]bool{}
	for _, a := range second.Achievements.NewAchievements {
		titles[a.Title] = true
	}
	assert.True(t, titles["First Steps"])

	w, env = c.do(http.MethodGet, "/api/groups/"+group.ID, bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var view services.GroupView
	decode(t, env, &view)
	assert.Equal(t, 100, view.CompletionRate)
	assert.Equal(t, 1, view.CompletedGoals)
	assert.Equal(t, 100, view.TotalXP)

	w, env = c.do(http.MethodGet, "/api/achievements/leaderboard?limit=5", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var board []services.LeaderboardEntry
	decode(t, env, &board)
	require.NotEmpty(t, board)
	assert.Equal(t, 1, board[0].Rank)

	var bobEntry *services.LeaderboardEntry
	for i := range board {
		if board[i].UserID == bobID {
			bobEntry = &board[i]
		}
	}
	require.NotNil(t, bobEntry)
	assert.GreaterOrEqual(t, bobEntry.AchievementCount, 1)

	w, _ = c.do(http.MethodGet, "/api/achievements/leaderboard?limit=zero", bobToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = c.do(http.MethodDelete, "/api/groups/"+group.ID+"/leave", aliceToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code, env.Message)
}

func TestAchievementEndpoints(t *testing.T) {
	c, db := newClient(t)
	user := testutil.CreateUser(t, db, "alice")
	token := testutil.Token(t, user.ID)

	w, env := c.do(http.MethodGet, "/api/achievements/check", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "No new achievements", env.Message)

	w, env = c.do(http.MethodGet, "/api/achievements", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var summary services.AchievementSummary
	decode(t, env, &summary)
	assert.Equal(t, 11, summary.Stats.Total)
	require.NotEmpty(t, summary.Locked)

	w, env = c.do(http.MethodGet, "/api/achievements/"+summary.Locked[0].ID+"/progress", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var view services.AchievementView
	decode(t, env, &view)
	assert.False(t, view.Unlocked)

	w, _ = c.do(http.MethodGet, "/api/achievements/missing/progress", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminRoutes(t *testing.T) {
	c, db := newClient(t)
	user := testutil.CreateUser(t, db, "alice")
	admin := testutil.CreateUser(t, db, "root")
	require.NoError(t, db.Model(admin).Update("role", models.RoleAdmin).Error)

	w, _ := c.do(http.MethodPost, "/api/admin/goals/expire", testutil.Token(t, user.ID), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = c.do(http.MethodPost, "/api/achievements/defaults", testutil.Token(t, user.ID), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env := c.do(http.MethodPost, "/api/admin/goals/expire", testutil.Token(t, admin.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var expired struct {
		Expired int `json:"expired"`
	}
	decode(t, env, &expired)
	assert.Zero(t, expired.Expired)

	w, env = c.do(http.MethodPost, "/api/achievements/defaults", testutil.Token(t, admin.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var seeded struct {
		Count int `json:"count"`
	}
	decode(t, env, &seeded)
	assert.Equal(t, 11, seeded.Count)

	w, env = c.do(http.MethodGet, "/api/admin/audit", testutil.Token(t, admin.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var audit []models.AdminAction
	decode(t, env, &audit)
	require.Len(t, audit, 2)
	actions := []models.ActionType{audit[0].Action, audit[1].Action}
	assert.ElementsMatch(t, []models.ActionType{models.ActionExpireGoals, models.ActionSeedAchievements}, actions)
	assert.Equal(t, admin.ID, audit[0].AdminID)
}

func TestHealthAndMetrics(t *testing.T) {
	c, _ := newClient(t)

	w, _ := c.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"redis":"not configured"`)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	w, _ = c.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "commit_http_requests_total")
}

type captureMailer struct {
	to, link string
}

func (m *captureMailer) SendPasswordReset(_ context.Context, to, resetURL string) error {
	m.to, m.link = to, resetURL
	return nil
}

func TestPasswordResetFlow(t *testing.T) {
	c, db := newClient(t)
	user := testutil.CreateUser(t, db, "alice")

	mail := &captureMailer{}
	prev := handlers.Mailer
	handlers.Mailer = mail
	t.Cleanup(func() { handlers.Mailer = prev })

	w, env := c.do(http.MethodPost, "/api/auth/forgot-password", "", gin.H{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	assert.Empty(t, mail.link)

	w, _ = c.do(http.MethodPost, "/api/auth/forgot-password", "", gin.H{"email": user.Email})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, user.Email, mail.to)
	require.NotEmpty(t, mail.link)

	req := httptest.NewRequest(http.MethodGet, mail.link, nil)
	token := req.URL.Query().Get("token")
	require.NotEmpty(t, token)

	w, _ = c.do(http.MethodPost, "/api/auth/reset-password", "", gin.H{"token": token, "newPassword": "brandnew123"})
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = c.do(http.MethodPost, "/api/auth/reset-password", "", gin.H{"token": token, "newPassword": "brandnew123"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = c.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": user.Email, "password": "brandnew123"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAccountManagement(t *testing.T) {
	c, db := newClient(t)
	user := testutil.CreateUser(t, db, "alice")
	token := testutil.Token(t, user.ID)

	w, env := c.do(http.MethodPut, "/api/auth/profile", token, gin.H{"bio": "Runs daily", "settings": gin.H{"theme": "light"}})
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	var updated models.User
	decode(t, env, &updated)
	assert.Equal(t, "Runs daily", updated.Bio)
	assert.Equal(t, models.ThemeLight, updated.Settings.Theme)

	w, _ = c.do(http.MethodPut, "/api/auth/profile", token, gin.H{"settings": gin.H{"theme": "neon"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = c.do(http.MethodPut, "/api/auth/change-password", token, gin.H{"currentPassword": "wrong", "newPassword": "another123"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = c.do(http.MethodPut, "/api/auth/change-password", token, gin.H{"currentPassword": "password123", "newPassword": "another123"})
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = c.do(http.MethodDelete, "/api/auth/delete-account", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env = c.do(http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "User not found", env.Message)
}
