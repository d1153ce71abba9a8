package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAchievementUnlock(t *testing.T) {
	before := testutil.ToFloat64(achievementUnlocks.WithLabelValues("rare"))
	RecordAchievementUnlock("rare")
	assert.Equal(t, before+1, testutil.ToFloat64(achievementUnlocks.WithLabelValues("rare")))

	beforeDefault := testutil.ToFloat64(achievementUnlocks.WithLabelValues("common"))
	RecordAchievementUnlock("")
	assert.Equal(t, beforeDefault+1, testutil.ToFloat64(achievementUnlocks.WithLabelValues("common")))
}

func TestRecordGoalsExpiredIgnoresZero(t *testing.T) {
	before := testutil.ToFloat64(goalsExpired)
	RecordGoalsExpired(0)
	RecordGoalsExpired(3)
	assert.Equal(t, before+3, testutil.ToFloat64(goalsExpired))
}

func TestHandlerExposesCollectors(t *testing.T) {
	RecordHTTPRequest("GET", "/api/goals/user-goals", "200", 10*time.Millisecond)
	RecordGoalCompletion("personal")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "commit_http_requests_total")
	assert.Contains(t, body, "commit_goals_completions_total")
}
