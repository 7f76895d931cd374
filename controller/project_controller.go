package controller

import (
	"net/http"

	service "github.com/tannerws/SiteLine/service"

	"github.com/gin-gonic/gin"
)

type ProjectController struct {
	projects *service.ProjectService
}

func NewProjectController(projects *service.ProjectService) *ProjectController {
	return &ProjectController{projects: projects}
}

func (c *ProjectController) CreateProject(ctx *gin.Context) {
	var req struct {
		Name    string `json:"name" binding:"required"`
		Address string `json:"address"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "name is required", "details": err.Error()})
		return
	}
	project, err := c.projects.CreateProject(req.Name, req.Address)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"message": "Project created successfully", "project": project})
}

func (c *ProjectController) ListProjects(ctx *gin.Context) {
	projects, err := c.projects.ListProjects()
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"projects": projects, "total": len(projects)})
}

func (c *ProjectController) GetProject(ctx *gin.Context) {
	projectID, ok := uintParam(ctx, "projectId")
	if !ok {
		return
	}
	project, err := c.projects.GetProject(projectID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"project": project})
}

func (c *ProjectController) CreateUser(ctx *gin.Context) {
	var req struct {
		Name  string `json:"name" binding:"required"`
		Email string `json:"email" binding:"required,email"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "name and email are required", "details": err.Error()})
		return
	}
	user, err := c.projects.CreateUser(req.Name, req.Email)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"message": "User created successfully", "user": user})
}

func (c *ProjectController) AddMember(ctx *gin.Context) {
	projectID, ok := uintParam(ctx, "projectId")
	if !ok {
		return
	}
	var req struct {
		UserID uint   `json:"user_id" binding:"required"`
		Role   string `json:"role"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required", "details": err.Error()})
		return
	}
	member, err := c.projects.AddMember(projectID, req.UserID, req.Role)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"message": "Member added successfully", "member": member})
}

func (c *ProjectController) ListMembers(ctx *gin.Context) {
	projectID, ok := uintParam(ctx, "projectId")
	if !ok {
		return
	}
	members, err := c.projects.ListMembers(projectID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"members": members, "total": len(members)})
}

func (c *ProjectController) RemoveMember(ctx *gin.Context) {
	projectID, ok := uintParam(ctx, "projectId")
	if !ok {
		return
	}
	userID, ok := uintParam(ctx, "memberUserId")
	if !ok {
		return
	}
	if err := c.projects.RemoveMember(projectID, userID); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Member removed successfully"})
}
