package controller

import (
	"log"
	"net/http"
	"strconv"
	"time"

	service "github.com/tannerws/SiteLine/service"

	"github.com/gin-gonic/gin"
)

// RfiController exposes the RFI aggregate over HTTP.
type RfiController struct {
	rfis        *service.RfiService
	attachments *service.AttachmentService
}

func NewRfiController(rfis *service.RfiService, attachments *service.AttachmentService) *RfiController {
	return &RfiController{rfis: rfis, attachments: attachments}
}

// ListRfis handles GET /projects/:projectId/rfis with the filter query params.
func (c *RfiController) ListRfis(ctx *gin.Context) {
	projectID, ok := uintParam(ctx, "projectId")
	if !ok {
		return
	}

	filter := service.RfiListFilter{
		Status:   ctx.Query("status"),
		Priority: ctx.Query("priority"),
		Search:   ctx.Query("q"),
	}
	if raw := ctx.Query("assigned_to"); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			v := uint(id)
			filter.AssignedToID = &v
		}
	}
	if raw := ctx.Query("ball_in_court"); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			v := uint(id)
			filter.BallInCourtID = &v
		}
	}
	if raw := ctx.Query("due_before"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			filter.DueBefore = &t
		} else {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "due_before must be YYYY-MM-DD"})
			return
		}
	}
	filter.Page, _ = strconv.Atoi(ctx.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(ctx.DefaultQuery("page_size", "50"))

	rfis, total, err := c.rfis.ListRfis(projectID, filter)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"rfis":  rfis,
		"total": total,
	})
}

// CreateRfi handles POST /projects/:projectId/rfis.
func (c *RfiController) CreateRfi(ctx *gin.Context) {
	projectID, ok := uintParam(ctx, "projectId")
	if !ok {
		return
	}
	actorID, ok := actingUserID(ctx)
	if !ok {
		return
	}

	var in service.CreateRfiInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	detail, err := c.rfis.CreateRfi(projectID, actorID, in)
	if err != nil {
		log.Printf("[CreateRfi] Error creating RFI: %v", err)
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{
		"message": "RFI created successfully",
		"rfi":     detail,
	})
}

// GetRfi handles GET /projects/:projectId/rfis/:rfiId.
func (c *RfiController) GetRfi(ctx *gin.Context) {
	projectID, ok := uintParam(ctx, "projectId")
	if !ok {
		return
	}
	rfiID, ok := uintParam(ctx, "rfiId")
	if !ok {
		return
	}
	detail, err := c.rfis.LoadDetail(projectID, rfiID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"rfi": detail})
}

// UpdateRfi handles PATCH /projects/:projectId/rfis/:rfiId.
func (c *RfiController) UpdateRfi(ctx *gin.Context) {
	projectID, ok := uintParam(ctx, "projectId")
	if !ok {
		return
	}
	rfiID, ok := uintParam(ctx, "rfiId")
	if !ok {
		return
	}
	actorID, ok := actingUserID(ctx)
	if !ok {
		return
	}

	var in service.UpdateRfiInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	detail, err := c.rfis.UpdateRfi(projectID, rfiID, actorID, in)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"message": "RFI updated successfully",
		"rfi":     detail,
	})
}

// AddResponse handles POST /projects/:projectId/rfis/:rfiId/responses.
func (c *RfiController) AddResponse(ctx *gin.Context) {
	projectID, ok := uintParam(ctx, "projectId")
	if !ok {
		return
	}
	rfiID, ok := uintParam(ctx, "rfiId")
	if !ok {
		return
	}
	actorID, ok := actingUserID(ctx)
	if !ok {
		return
	}

	var in service.AddResponseInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	response, detail, err := c.rfis.AddResponse(projectID, rfiID, actorID, in)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{
		"message":     "Response added successfully",
		"response_id": response.ID,
		"rfi":         detail,
	})
}

// AddWatcher handles POST /projects/:projectId/rfis/:rfiId/watchers.
func (c *RfiController) AddWatcher(ctx *gin.Context) {
	projectID, ok := uintParam(ctx, "projectId")
	if !ok {
		return
	}
	rfiID, ok := uintParam(ctx, "rfiId")
	if !ok {
		return
	}

	var req struct {
		UserID uint `json:"user_id" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required", "details": err.Error()})
		return
	}

	if err := c.rfis.AddWatcher(projectID, rfiID, req.UserID); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Watcher added successfully"})
}

// RemoveWatcher handles DELETE /projects/:projectId/rfis/:rfiId/watchers/:watcherUserId.
func (c *RfiController) RemoveWatcher(ctx *gin.Context) {
	projectID, ok := uintParam(ctx, "projectId")
	if !ok {
		return
	}
	rfiID, ok := uintParam(ctx, "rfiId")
	if !ok {
		return
	}
	userID, ok := uintParam(ctx, "watcherUserId")
	if !ok {
		return
	}

	if err := c.rfis.RemoveWatcher(projectID, rfiID, userID); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Watcher removed successfully"})
}

// GetAuditLog handles GET /projects/:projectId/rfis/:rfiId/audit-log.
func (c *RfiController) GetAuditLog(ctx *gin.Context) {
	projectID, ok := uintParam(ctx, "projectId")
	if !ok {
		return
	}
	rfiID, ok := uintParam(ctx, "rfiId")
	if !ok {
		return
	}
	entries, err := c.rfis.GetAuditLog(projectID, rfiID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"entries": entries})
}

// GetMetrics handles GET /projects/:projectId/rfi-metrics.
func (c *RfiController) GetMetrics(ctx *gin.Context) {
	projectID, ok := uintParam(ctx, "projectId")
	if !ok {
		return
	}
	metrics, err := c.rfis.GetRfiMetrics(projectID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"metrics": metrics})
}

// UploadAttachment handles POST /projects/:projectId/rfis/:rfiId/attachments.
func (c *RfiController) UploadAttachment(ctx *gin.Context) {
	projectID, ok := uintParam(ctx, "projectId")
	if !ok {
		return
	}
	rfiID, ok := uintParam(ctx, "rfiId")
	if !ok {
		return
	}
	actorID, ok := actingUserID(ctx)
	if !ok {
		return
	}

	// The RFI must exist in this project before anything is stored.
	if _, err := c.rfis.LoadDetail(projectID, rfiID); err != nil {
		respondError(ctx, err)
		return
	}

	file, header, err := ctx.Request.FormFile("file")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Failed to get file from request"})
		return
	}
	defer file.Close()

	attachment, err := c.attachments.Upload("rfi", rfiID, actorID, file, header)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{
		"message":    "Attachment uploaded successfully",
		"attachment": attachment,
		"url":        c.attachments.PublicURL(attachment.FileKey),
	})
}
