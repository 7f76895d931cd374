package models

import "time"

// RfiResponse is one reply in an RFI's thread. Responses are immutable once
// written; there is no edit or delete path.
type RfiResponse struct {
	ID    uint `gorm:"primaryKey" json:"id"`
	RfiID uint `gorm:"not null;index" json:"rfi_id"`

	// ResponderID is nullable: inbound email responses from unknown senders
	// are attributed through the ball-in-court chain, and that fallback user
	// is stored here, but when even the chain is empty the column stays null.
	ResponderID *uint `gorm:"index" json:"responder_id"`

	Body string `gorm:"type:text;not null" json:"body"`

	// IsOfficial marks the authoritative answer; writing an official response
	// force-moves the parent RFI to answered.
	IsOfficial bool `gorm:"not null;default:false" json:"is_official"`

	CreatedAt time.Time `json:"created_at"`
}

func (RfiResponse) TableName() string { return "rfi_responses" }
