package models

import "time"

// Attachment links an uploaded file in object storage to a domain entity
// through the (EntityType, EntityID) pair, e.g. ("rfi", 17).
type Attachment struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	EntityType string `gorm:"size:50;index:idx_attachment_entity;not null" json:"entity_type"`
	EntityID   uint   `gorm:"index:idx_attachment_entity;not null" json:"entity_id"`

	// FileKey is the object key in the bucket; OriginalName is what the
	// uploader called it.
	FileKey      string `gorm:"size:255;not null" json:"file_id"`
	OriginalName string `gorm:"size:255;not null" json:"original_name"`
	MimeType     string `gorm:"size:100" json:"mime_type"`
	SizeBytes    int64  `json:"size_bytes"`

	UploadedByID uint      `json:"uploaded_by_id"`
	CreatedAt    time.Time `json:"attached_at"`
}
