package models

import "time"

// Rfi is a Request for Information tied to one project.
type Rfi struct {
	// ID is the surrogate primary key; it never appears in the UI.
	ID uint `gorm:"primaryKey" json:"id"`

	// ProjectID and Number form the user-facing identity ("RFI-42" within a
	// project). Numbers are dense per project, starting at 1, and the
	// composite unique index is the backstop for the allocator's lock.
	ProjectID uint `gorm:"uniqueIndex:idx_project_rfi_number;not null" json:"project_id"`
	Number    int  `gorm:"uniqueIndex:idx_project_rfi_number;not null" json:"number"`

	Title    string `gorm:"size:200;not null" json:"title"`
	Question string `gorm:"type:text;not null" json:"question"`

	// Status holds one of the workflow states (open, in_review, answered,
	// closed, void). Transitions are validated in the service layer.
	Status   string `gorm:"size:20;not null;index" json:"status"`
	Priority string `gorm:"size:20;not null;index" json:"priority"`

	// Free-text classifiers from the construction domain.
	Discipline  string `gorm:"size:100" json:"discipline"`
	SpecSection string `gorm:"size:100" json:"spec_section"`
	Location    string `gorm:"size:200" json:"location"`

	DueDate  *time.Time `json:"due_date"`
	NeededBy *time.Time `json:"needed_by"`

	CreatedByID   uint  `gorm:"not null;index" json:"created_by_id"`
	AssignedToID  *uint `gorm:"index" json:"assigned_to_id"`
	BallInCourtID *uint `gorm:"index" json:"ball_in_court_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Rfi) TableName() string { return "rfis" }
