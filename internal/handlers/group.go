package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pushp314/commit-backend/internal/services"
	"github.com/pushp314/commit-backend/pkg/response"
)

type JoinGroupInput struct {
	GroupID    string `json:"groupId" binding:"required"`
	InviteCode string `json:"inviteCode"`
}

type JoinByCodeInput struct {
	InviteCode string `json:"inviteCode" binding:"required"`
}

func CreateGroup(c *gin.Context) {
	var input services.CreateGroupInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BindError(c, err)
		return
	}

	group, err := services.CreateGroup(dbFor(c), c.GetString("userId"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, http.StatusCreated, "Group created successfully", group)
}

func GetUserGroups(c *gin.Context) {
	groups, err := services.ListUserGroups(dbFor(c), c.GetString("userId"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, http.StatusOK, "Groups retrieved successfully", groups)
}

func GetGroup(c *gin.Context) {
	group, err := services.GetGroup(dbFor(c), c.Param("id"), c.GetString("userId"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, http.StatusOK, "Group retrieved successfully", group)
}

func JoinGroup(c *gin.Context) {
	var input JoinGroupInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BindError(c, err)
		return
	}

	group, err := services.JoinGroup(dbFor(c), input.GroupID, c.GetString("userId"), input.InviteCode)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, http.StatusOK, "Joined group successfully", group)
}

func JoinGroupByCode(c *gin.Context) {
	var input JoinByCodeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BindError(c, err)
		return
	}

	group, err := services.JoinGroupByCode(dbFor(c), input.InviteCode, c.GetString("userId"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, http.StatusOK, "Joined group successfully", group)
}

func LeaveGroup(c *gin.Context) {
	deleted, err := services.LeaveGroup(dbFor(c), c.Param("id"), c.GetString("userId"))
	if err != nil {
		respondError(c, err)
		return
	}

	message := "Left group successfully"
	if deleted {
		message = "Left group successfully. The group was deleted as you were the last member."
	}
	response.OK(c, http.StatusOK, message, gin.H{"groupDeleted": deleted})
}

func UpdateGroup(c *gin.Context) {
	var input services.UpdateGroupInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BindError(c, err)
		return
	}

	group, err := services.UpdateGroup(dbFor(c), c.Param("id"), c.GetString("userId"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, http.StatusOK, "Group updated successfully", group)
}

func RegenerateInviteCode(c *gin.Context) {
	code, err := services.RegenerateInviteCode(dbFor(c), c.Param("id"), c.GetString("userId"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, http.StatusOK, "New invite code generated", gin.H{"inviteCode": code})
}
