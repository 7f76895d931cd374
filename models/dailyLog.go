package models

import "time"

type DailyLog struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ProjectID     uint      `gorm:"not null;index" json:"project_id"`
	LogDate       time.Time `gorm:"not null;index" json:"log_date"`
	Weather       string    `gorm:"size:100" json:"weather"`
	WorkPerformed string    `gorm:"type:text" json:"work_performed"`
	CrewCount     int       `json:"crew_count"`
	CreatedByID   uint      `gorm:"not null" json:"created_by_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (DailyLog) TableName() string { return "daily_logs" }
