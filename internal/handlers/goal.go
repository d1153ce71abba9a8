package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pushp314/commit-backend/internal/services"
	"github.com/pushp314/commit-backend/pkg/response"
)

type ProgressInput struct {
	Progress *int `json:"progress" binding:"required"`
}

// completionPayload is a completion plus whatever the reward engine unlocked.
type completionPayload struct {
	*services.CompletionResult
	Achievements *services.EvaluationResult `json:"achievements"`
}

func CreateGoal(c *gin.Context) {
	var input services.CreateGoalInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BindError(c, err)
		return
	}

	goal, err := services.CreateGoal(dbFor(c), c.GetString("userId"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, http.StatusCreated, "Goal created successfully", goal)
}

func GetUserGoals(c *gin.Context) {
	goals, err := services.ListUserGoals(dbFor(c), c.GetString("userId"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, http.StatusOK, "Goals retrieved successfully", goals)
}

func GetGroupGoals(c *gin.Context) {
	goals, err := services.ListGroupGoals(dbFor(c), c.Param("groupId"), c.GetString("userId"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, http.StatusOK, "Group goals retrieved successfully", goals)
}

// CompleteGoal commits the completion first; achievement evaluation runs
// afterwards and cannot fail the request.
func CompleteGoal(c *gin.Context) {
	userID := c.GetString("userId")
	db := dbFor(c)

	result, err := services.CompleteGoal(db, c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	message := "Goal completed successfully"
	if result.Goal.IsGroupGoal && !result.GoalCompleted {
		message = "Your part of the group goal is complete"
	}
	response.OK(c, http.StatusOK, message, completionPayload{
		CompletionResult: result,
		Achievements:     services.EvaluateAfterCompletion(db, userID),
	})
}

func UpdateGoalProgress(c *gin.Context) {
	var input ProgressInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BindError(c, err)
		return
	}

	userID := c.GetString("userId")
	db := dbFor(c)
	result, err := services.UpdateProgress(db, c.Param("id"), userID, *input.Progress)
	if err != nil {
		respondError(c, err)
		return
	}

	payload := completionPayload{CompletionResult: result}
	if result.Reward != nil {
		payload.Achievements = services.EvaluateAfterCompletion(db, userID)
	}
	response.OK(c, http.StatusOK, "Goal progress updated", payload)
}

func DeleteGoal(c *gin.Context) {
	if err := services.DeleteGoal(dbFor(c), c.Param("id"), c.GetString("userId")); err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, http.StatusOK, "Goal deleted successfully", nil)
}
