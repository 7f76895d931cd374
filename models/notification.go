package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification is the in-app half of the fan-out channel. Rows are written by
// the notification service and read/marked by their recipient.
type Notification struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	UserID uint   `gorm:"not null;index" json:"user_id"`
	Type   string `gorm:"size:50;not null" json:"type"` // e.g. "rfi_assigned", "rfi_created"

	EntityType string `gorm:"size:50;not null" json:"entity_type"`
	EntityID   uint   `gorm:"not null" json:"entity_id"`

	Payload datatypes.JSON `json:"payload"`

	IsRead    bool       `gorm:"not null;default:false" json:"is_read"`
	ReadAt    *time.Time `json:"read_at"`
	CreatedAt time.Time  `json:"created_at"`
}
