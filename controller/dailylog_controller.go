package controller

import (
	"net/http"

	service "github.com/tannerws/SiteLine/service"

	"github.com/gin-gonic/gin"
)

type DailyLogController struct {
	logs *service.DailyLogService
}

func NewDailyLogController(logs *service.DailyLogService) *DailyLogController {
	return &DailyLogController{logs: logs}
}

func (c *DailyLogController) CreateDailyLog(ctx *gin.Context) {
	projectID, ok := uintParam(ctx, "projectId")
	if !ok {
		return
	}
	actorID, ok := actingUserID(ctx)
	if !ok {
		return
	}
	var in service.DailyLogInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	entry, err := c.logs.CreateDailyLog(projectID, actorID, in)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"message": "Daily log created successfully", "daily_log": entry})
}

func (c *DailyLogController) ListDailyLogs(ctx *gin.Context) {
	projectID, ok := uintParam(ctx, "projectId")
	if !ok {
		return
	}
	logs, err := c.logs.ListDailyLogs(projectID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"daily_logs": logs, "total": len(logs)})
}

func (c *DailyLogController) GetDailyLog(ctx *gin.Context) {
	projectID, ok := uintParam(ctx, "projectId")
	if !ok {
		return
	}
	logID, ok := uintParam(ctx, "logId")
	if !ok {
		return
	}
	entry, err := c.logs.GetDailyLog(projectID, logID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"daily_log": entry})
}
