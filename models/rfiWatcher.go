package models

import "time"

// RfiWatcher subscribes a project member to notifications for one RFI.
type RfiWatcher struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RfiID     uint      `gorm:"uniqueIndex:idx_rfi_watcher;not null" json:"rfi_id"`
	UserID    uint      `gorm:"uniqueIndex:idx_rfi_watcher;not null" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (RfiWatcher) TableName() string { return "rfi_watchers" }
