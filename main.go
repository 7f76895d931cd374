package main

import (
	"log"
	"net/http"

	controller "github.com/tannerws/SiteLine/controller"
	"github.com/tannerws/SiteLine/initializers"
	middleware "github.com/tannerws/SiteLine/middleware"
	service "github.com/tannerws/SiteLine/service"

	"github.com/gin-gonic/gin"
)

func init() {
	if err := initializers.LoadEnv(); err != nil {
		log.Println("No .env file loaded; continuing with process environment")
	}
	if err := initializers.ConnectDB(); err != nil {
		log.Fatalf("[CRITICAL] Failed to initialize database connection: %s", err)
	}
	if err := initializers.Migrate(); err != nil {
		log.Fatalf("[CRITICAL] Failed to run database migrations: %s", err)
	}
}

func main() {
	projectService := service.NewProjectService(initializers.DB)
	attachmentService := service.NewAttachmentService(initializers.DB)
	notificationService := service.NewNotificationService(initializers.DB, service.NewMailerFromEnv())
	rfiService := service.NewRfiService(initializers.DB, projectService, notificationService, attachmentService)
	issueService := service.NewIssueService(initializers.DB, projectService)
	dailyLogService := service.NewDailyLogService(initializers.DB, projectService)

	projectController := controller.NewProjectController(projectService)
	rfiController := controller.NewRfiController(rfiService, attachmentService)
	inboundController := controller.NewInboundEmailController(rfiService)
	issueController := controller.NewIssueController(issueService)
	dailyLogController := controller.NewDailyLogController(dailyLogService)
	notificationController := controller.NewNotificationController(notificationService)

	router := gin.Default()
	router.Use(middleware.CORSMiddleware())

	// Global rate limiter for most routes
	router.Use(middleware.GlobalRateLimiter.Limit())

	// Healthcheck endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	// Users and projects
	router.POST("/users", middleware.StrictRateLimiter.Limit(), projectController.CreateUser)
	router.POST("/projects", middleware.StrictRateLimiter.Limit(), projectController.CreateProject)
	router.GET("/projects", projectController.ListProjects)
	router.GET("/projects/:projectId", projectController.GetProject)
	router.POST("/projects/:projectId/members", projectController.AddMember)
	router.GET("/projects/:projectId/members", projectController.ListMembers)
	router.DELETE("/projects/:projectId/members/:memberUserId", projectController.RemoveMember)

	// RFIs
	router.GET("/projects/:projectId/rfis", rfiController.ListRfis)
	router.POST("/projects/:projectId/rfis", rfiController.CreateRfi)
	router.GET("/projects/:projectId/rfis/:rfiId", rfiController.GetRfi)
	router.PATCH("/projects/:projectId/rfis/:rfiId", rfiController.UpdateRfi)
	router.POST("/projects/:projectId/rfis/:rfiId/responses", rfiController.AddResponse)
	router.POST("/projects/:projectId/rfis/:rfiId/watchers", rfiController.AddWatcher)
	router.DELETE("/projects/:projectId/rfis/:rfiId/watchers/:watcherUserId", rfiController.RemoveWatcher)
	router.GET("/projects/:projectId/rfis/:rfiId/audit-log", rfiController.GetAuditLog)
	router.POST("/projects/:projectId/rfis/:rfiId/attachments",
		middleware.StrictRateLimiter.Limit(),
		rfiController.UploadAttachment)
	router.GET("/projects/:projectId/rfi-metrics", rfiController.GetMetrics)

	// Issues / punch list
	router.GET("/projects/:projectId/issues", issueController.ListIssues)
	router.POST("/projects/:projectId/issues", issueController.CreateIssue)
	router.GET("/projects/:projectId/issues/:issueId", issueController.GetIssue)
	router.PUT("/projects/:projectId/issues/:issueId/close", issueController.CloseIssue)

	// Daily logs
	router.GET("/projects/:projectId/daily-logs", dailyLogController.ListDailyLogs)
	router.POST("/projects/:projectId/daily-logs", dailyLogController.CreateDailyLog)
	router.GET("/projects/:projectId/daily-logs/:logId", dailyLogController.GetDailyLog)

	// Notifications (read side)
	router.GET("/notifications", notificationController.ListNotifications)
	router.PUT("/notifications/:notificationId/read", notificationController.MarkRead)

	// Inbound email webhook: unauthenticated traffic, gated by shared secret
	// and the strict limiter at the transport boundary.
	router.POST("/webhooks/inbound-email",
		middleware.WebhookSecret(),
		middleware.StrictRateLimiter.Limit(),
		inboundController.Receive)

	router.Run(":8080")
}
