package controller

import (
	"net/http"

	service "github.com/tannerws/SiteLine/service"

	"github.com/gin-gonic/gin"
)

type IssueController struct {
	issues *service.IssueService
}

func NewIssueController(issues *service.IssueService) *IssueController {
	return &IssueController{issues: issues}
}

func (c *IssueController) CreateIssue(ctx *gin.Context) {
	projectID, ok := uintParam(ctx, "projectId")
	if !ok {
		return
	}
	actorID, ok := actingUserID(ctx)
	if !ok {
		return
	}
	var in service.IssueInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	issue, err := c.issues.CreateIssue(projectID, actorID, in)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"message": "Issue created successfully", "issue": issue})
}

func (c *IssueController) ListIssues(ctx *gin.Context) {
	projectID, ok := uintParam(ctx, "projectId")
	if !ok {
		return
	}
	issues, err := c.issues.ListIssues(projectID, ctx.Query("status"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"issues": issues, "total": len(issues)})
}

func (c *IssueController) GetIssue(ctx *gin.Context) {
	projectID, ok := uintParam(ctx, "projectId")
	if !ok {
		return
	}
	issueID, ok := uintParam(ctx, "issueId")
	if !ok {
		return
	}
	issue, err := c.issues.GetIssue(projectID, issueID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"issue": issue})
}

func (c *IssueController) CloseIssue(ctx *gin.Context) {
	projectID, ok := uintParam(ctx, "projectId")
	if !ok {
		return
	}
	issueID, ok := uintParam(ctx, "issueId")
	if !ok {
		return
	}
	actorID, ok := actingUserID(ctx)
	if !ok {
		return
	}
	issue, err := c.issues.CloseIssue(projectID, issueID, actorID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Issue closed", "issue": issue})
}
