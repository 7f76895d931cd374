package controller

import (
	"net/http"
	"strconv"

	service "github.com/tannerws/SiteLine/service"

	"github.com/gin-gonic/gin"
)

// respondError maps the service error taxonomy onto HTTP status codes. The
// services themselves stay HTTP-agnostic.
func respondError(ctx *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch service.KindOf(err) {
	case service.KindValidation:
		status = http.StatusBadRequest
	case service.KindMembership:
		status = http.StatusForbidden
	case service.KindNotFound:
		status = http.StatusNotFound
	case service.KindWorkflow:
		status = http.StatusUnprocessableEntity
	case service.KindConflict:
		status = http.StatusConflict
	case service.KindUnresolvable:
		status = http.StatusUnprocessableEntity
	}
	ctx.JSON(status, gin.H{"error": err.Error()})
}

// actingUserID reads the authenticated user installed by the upstream auth
// gateway in the X-User-ID header.
func actingUserID(ctx *gin.Context) (uint, bool) {
	raw := ctx.GetHeader("X-User-ID")
	if raw == "" {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "X-User-ID header required"})
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "invalid X-User-ID header"})
		return 0, false
	}
	return uint(id), true
}

// uintParam parses a numeric path parameter, writing the 400 itself on
// failure.
func uintParam(ctx *gin.Context, name string) (uint, bool) {
	raw := ctx.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(id), true
}
