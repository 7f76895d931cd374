package models

import "time"

type Issue struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	ProjectID    uint       `gorm:"not null;index" json:"project_id"`
	Title        string     `gorm:"size:200;not null" json:"title"`
	Description  string     `gorm:"type:text" json:"description"`
	Status       string     `gorm:"size:20;not null;index" json:"status"` // open, closed
	Priority     string     `gorm:"size:20;not null" json:"priority"`
	Location     string     `gorm:"size:200" json:"location"`
	DueDate      *time.Time `json:"due_date"`
	CreatedByID  uint       `gorm:"not null" json:"created_by_id"`
	AssignedToID *uint      `gorm:"index" json:"assigned_to_id"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
