package models

import "time"

// AuditLogEntry is an append-only record of one accepted change to an RFI.
// Field-level updates produce one entry per changed field; rows are never
// updated or deleted.
type AuditLogEntry struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	RfiID     uint `gorm:"not null;index" json:"rfi_id"`
	ProjectID uint `gorm:"not null;index" json:"project_id"`

	// ActorID is null when the change came in through the inbound email
	// channel and the sender address matched no known user.
	ActorID *uint `gorm:"index" json:"actor_id"`

	// Action is one of: create, update, status_change, assign, response,
	// response_added.
	Action string `gorm:"size:50;not null" json:"action"`

	Field    string `gorm:"size:50" json:"field"`
	OldValue string `gorm:"type:text" json:"old_value"`
	NewValue string `gorm:"type:text" json:"new_value"`

	CreatedAt time.Time `json:"created_at"`
}

func (AuditLogEntry) TableName() string { return "rfi_audit_log" }
