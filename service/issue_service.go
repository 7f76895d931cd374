package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	model "github.com/tannerws/SiteLine/models"
	"gorm.io/gorm"
)

// IssueService is the punch-list module: project-scoped CRUD with membership
// checks and none of the RFI workflow machinery.
type IssueService struct {
	db       *gorm.DB
	projects *ProjectService
}

func NewIssueService(db *gorm.DB, projects *ProjectService) *IssueService {
	return &IssueService{db: db, projects: projects}
}

type IssueInput struct {
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Priority     string     `json:"priority"`
	Location     string     `json:"location"`
	DueDate      *time.Time `json:"due_date"`
	AssignedToID *uint      `json:"assigned_to_user_id"`
}

func (s *IssueService) CreateIssue(projectID, actorID uint, in IssueInput) (*model.Issue, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, newServiceError(KindValidation, "title is required")
	}
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	if !IsValidRfiPriority(in.Priority) {
		return nil, newServiceError(KindValidation, "invalid priority %q", in.Priority)
	}
	ok, err := s.projects.IsMember(projectID, actorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newServiceError(KindMembership, "user %d is not a member of project %d", actorID, projectID)
	}
	if in.AssignedToID != nil {
		ok, err := s.projects.IsMember(projectID, *in.AssignedToID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, newServiceError(KindMembership, "user %d is not a member of project %d", *in.AssignedToID, projectID)
		}
	}

	issue := model.Issue{
		ProjectID:    projectID,
		Title:        in.Title,
		Description:  in.Description,
		Status:       "open",
		Priority:     in.Priority,
		Location:     in.Location,
		DueDate:      in.DueDate,
		CreatedByID:  actorID,
		AssignedToID: in.AssignedToID,
	}
	if err := s.db.Create(&issue).Error; err != nil {
		log.Printf("[CreateIssue] Error creating issue in project %d: %v", projectID, err)
		return nil, fmt.Errorf("failed to create issue: %w", err)
	}
	return &issue, nil
}

func (s *IssueService) ListIssues(projectID uint, status string) ([]model.Issue, error) {
	query := s.db.Where("project_id = ?", projectID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var issues []model.Issue
	if err := query.Order("id ASC").Find(&issues).Error; err != nil {
		log.Printf("[ListIssues] Error fetching issues for project %d: %v", projectID, err)
		return nil, fmt.Errorf("failed to fetch issues: %w", err)
	}
	return issues, nil
}

func (s *IssueService) GetIssue(projectID, issueID uint) (*model.Issue, error) {
	var issue model.Issue
	err := s.db.Where("id = ? AND project_id = ?", issueID, projectID).First(&issue).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newServiceError(KindNotFound, "issue %d not found in project %d", issueID, projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch issue: %w", err)
	}
	return &issue, nil
}

// CloseIssue flips an issue to closed; closing a closed issue is a no-op.
func (s *IssueService) CloseIssue(projectID, issueID, actorID uint) (*model.Issue, error) {
	issue, err := s.GetIssue(projectID, issueID)
	if err != nil {
		return nil, err
	}
	ok, err := s.projects.IsMember(projectID, actorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newServiceError(KindMembership, "user %d is not a member of project %d", actorID, projectID)
	}
	if issue.Status != "closed" {
		if err := s.db.Model(issue).Update("status", "closed").Error; err != nil {
			log.Printf("[CloseIssue] Error closing issue %d: %v", issueID, err)
			return nil, fmt.Errorf("failed to close issue: %w", err)
		}
		issue.Status = "closed"
	}
	return issue, nil
}
