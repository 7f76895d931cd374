package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	model "github.com/tannerws/SiteLine/models"
	"gorm.io/gorm"
)

// DailyLogService records the field's daily reports per project.
type DailyLogService struct {
	db       *gorm.DB
	projects *ProjectService
}

func NewDailyLogService(db *gorm.DB, projects *ProjectService) *DailyLogService {
	return &DailyLogService{db: db, projects: projects}
}

type DailyLogInput struct {
	LogDate       time.Time `json:"log_date"`
	Weather       string    `json:"weather"`
	WorkPerformed string    `json:"work_performed"`
	CrewCount     int       `json:"crew_count"`
}

func (s *DailyLogService) CreateDailyLog(projectID, actorID uint, in DailyLogInput) (*model.DailyLog, error) {
	if in.LogDate.IsZero() {
		return nil, newServiceError(KindValidation, "log_date is required")
	}
	ok, err := s.projects.IsMember(projectID, actorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newServiceError(KindMembership, "user %d is not a member of project %d", actorID, projectID)
	}

	entry := model.DailyLog{
		ProjectID:     projectID,
		LogDate:       in.LogDate,
		Weather:       in.Weather,
		WorkPerformed: in.WorkPerformed,
		CrewCount:     in.CrewCount,
		CreatedByID:   actorID,
	}
	if err := s.db.Create(&entry).Error; err != nil {
		log.Printf("[CreateDailyLog] Error creating daily log in project %d: %v", projectID, err)
		return nil, fmt.Errorf("failed to create daily log: %w", err)
	}
	return &entry, nil
}

func (s *DailyLogService) ListDailyLogs(projectID uint) ([]model.DailyLog, error) {
	var logs []model.DailyLog
	if err := s.db.Where("project_id = ?", projectID).Order("log_date DESC").Find(&logs).Error; err != nil {
		log.Printf("[ListDailyLogs] Error fetching daily logs for project %d: %v", projectID, err)
		return nil, fmt.Errorf("failed to fetch daily logs: %w", err)
	}
	return logs, nil
}

func (s *DailyLogService) GetDailyLog(projectID, logID uint) (*model.DailyLog, error) {
	var entry model.DailyLog
	err := s.db.Where("id = ? AND project_id = ?", logID, projectID).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newServiceError(KindNotFound, "daily log %d not found in project %d", logID, projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch daily log: %w", err)
	}
	return &entry, nil
}
