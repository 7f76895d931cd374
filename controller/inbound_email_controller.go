package controller

import (
	"log"
	"net/http"

	service "github.com/tannerws/SiteLine/service"

	"github.com/gin-gonic/gin"
)

// InboundEmailController receives the email provider's webhook. The route is
// unauthenticated; transport gating (shared secret) happens in middleware.
type InboundEmailController struct {
	rfis *service.RfiService
}

func NewInboundEmailController(rfis *service.RfiService) *InboundEmailController {
	return &InboundEmailController{rfis: rfis}
}

// Receive handles POST /webhooks/inbound-email.
func (c *InboundEmailController) Receive(ctx *gin.Context) {
	var email service.InboundEmail
	if err := ctx.ShouldBindJSON(&email); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook payload", "details": err.Error()})
		return
	}

	result, err := c.rfis.ProcessInboundEmail(email)
	if err != nil {
		log.Printf("[Receive] Inbound email rejected: %v", err)
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"message":     "Response recorded successfully",
		"rfi_id":      result.RfiID,
		"response_id": result.ResponseID,
	})
}
