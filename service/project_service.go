package services

import (
	"errors"
	"fmt"
	"log"
	"strings"

	model "github.com/tannerws/SiteLine/models"
	"gorm.io/gorm"
)

// ProjectService owns projects, the user directory and project membership.
// Its IsMember check is consulted before any user reference (assignee,
// ball-in-court, watcher) is accepted anywhere in the system.
type ProjectService struct {
	db *gorm.DB
}

func NewProjectService(db *gorm.DB) *ProjectService {
	return &ProjectService{db: db}
}

func (s *ProjectService) CreateProject(name, address string) (*model.Project, error) {
	if strings.TrimSpace(name) == "" {
		return nil, newServiceError(KindValidation, "project name is required")
	}
	project := model.Project{Name: name, Address: address}
	if err := s.db.Create(&project).Error; err != nil {
		log.Printf("[CreateProject] Error creating project: %v", err)
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	log.Printf("[CreateProject] Project %d (%s) created", project.ID, project.Name)
	return &project, nil
}

func (s *ProjectService) GetProject(projectID uint) (*model.Project, error) {
	var project model.Project
	if err := s.db.First(&project, "id = ?", projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newServiceError(KindNotFound, "project %d not found", projectID)
		}
		return nil, fmt.Errorf("failed to fetch project: %w", err)
	}
	return &project, nil
}

func (s *ProjectService) ListProjects() ([]model.Project, error) {
	var projects []model.Project
	if err := s.db.Order("id ASC").Find(&projects).Error; err != nil {
		log.Printf("[ListProjects] Error fetching projects: %v", err)
		return nil, fmt.Errorf("failed to fetch projects: %w", err)
	}
	return projects, nil
}

// CreateUser registers a user in the directory. Email is normalized to lower
// case because inbound email sender matching is case-insensitive.
func (s *ProjectService) CreateUser(name, email string) (*model.User, error) {
	v := &validationErrors{}
	if strings.TrimSpace(name) == "" {
		v.addf("user name is required")
	}
	if strings.TrimSpace(email) == "" {
		v.addf("user email is required")
	}
	if err := v.result(); err != nil {
		return nil, err
	}
	user := model.User{Name: name, Email: strings.ToLower(strings.TrimSpace(email))}
	if err := s.db.Create(&user).Error; err != nil {
		log.Printf("[CreateUser] Error creating user: %v", err)
		if isUniqueViolation(err) {
			return nil, newServiceError(KindConflict, "a user with email %s already exists", user.Email)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &user, nil
}

// FindUserByEmail matches case-insensitively and returns nil (no error) when
// no user carries the address; unknown senders are a normal condition for the
// inbound email channel.
func (s *ProjectService) FindUserByEmail(email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil
	}
	var user model.User
	err := s.db.Where("LOWER(email) = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user by email: %w", err)
	}
	return &user, nil
}

// AddMember is idempotent: re-adding an existing member is a no-op success.
func (s *ProjectService) AddMember(projectID, userID uint, role string) (*model.ProjectMember, error) {
	if _, err := s.GetProject(projectID); err != nil {
		return nil, err
	}
	var user model.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newServiceError(KindNotFound, "user %d not found", userID)
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	if role == "" {
		role = "member"
	}
	member := model.ProjectMember{ProjectID: projectID, UserID: userID, Role: role}
	err := s.db.Where("project_id = ? AND user_id = ?", projectID, userID).
		FirstOrCreate(&member).Error
	if err != nil {
		log.Printf("[AddMember] Error adding user %d to project %d: %v", userID, projectID, err)
		return nil, fmt.Errorf("failed to add project member: %w", err)
	}
	return &member, nil
}

// RemoveMember is unconditional: removing a non-member succeeds.
func (s *ProjectService) RemoveMember(projectID, userID uint) error {
	err := s.db.Where("project_id = ? AND user_id = ?", projectID, userID).
		Delete(&model.ProjectMember{}).Error
	if err != nil {
		log.Printf("[RemoveMember] Error removing user %d from project %d: %v", userID, projectID, err)
		return fmt.Errorf("failed to remove project member: %w", err)
	}
	return nil
}

func (s *ProjectService) ListMembers(projectID uint) ([]model.ProjectMember, error) {
	var members []model.ProjectMember
	if err := s.db.Where("project_id = ?", projectID).Order("id ASC").Find(&members).Error; err != nil {
		log.Printf("[ListMembers] Error fetching members for project %d: %v", projectID, err)
		return nil, fmt.Errorf("failed to fetch project members: %w", err)
	}
	return members, nil
}

// IsMember answers the membership question every user reference goes through.
func (s *ProjectService) IsMember(projectID, userID uint) (bool, error) {
	var count int64
	err := s.db.Model(&model.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check project membership: %w", err)
	}
	return count > 0, nil
}

// isUniqueViolation covers the drivers this repo runs on: lib_pq/pgx report
// SQLSTATE 23505, sqlite reports "UNIQUE constraint failed".
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "23505") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
