package services

import (
	"fmt"
	"log"
	"time"

	model "github.com/tannerws/SiteLine/models"
)

// RfiDetail is the assembled aggregate view: the row, computed aging fields,
// the ordered thread, the watcher set and the attachment list.
type RfiDetail struct {
	model.Rfi
	DaysOpen     int  `json:"days_open"`
	DaysOverdue  int  `json:"days_overdue"`
	DaysUntilDue *int `json:"days_until_due"`

	Responses   []model.RfiResponse `json:"responses"`
	Watchers    []model.RfiWatcher  `json:"watchers"`
	Attachments []model.Attachment  `json:"attachments"`
}

// LoadDetail assembles one RFI. Responses come back oldest first; attachments
// are resolved through the file store by ("rfi", id).
func (s *RfiService) LoadDetail(projectID, rfiID uint) (*RfiDetail, error) {
	rfi, err := s.getProjectRfi(projectID, rfiID)
	if err != nil {
		return nil, err
	}

	detail := &RfiDetail{Rfi: *rfi}

	now := time.Now()
	detail.DaysOpen = daysOpen(rfi.CreatedAt, now)
	detail.DaysOverdue, detail.DaysUntilDue = dueDateAging(rfi.DueDate, rfi.Status, now)

	if err := s.db.Where("rfi_id = ?", rfi.ID).Order("id ASC").Find(&detail.Responses).Error; err != nil {
		log.Printf("[LoadDetail] Error fetching responses for RFI %d: %v", rfi.ID, err)
		return nil, fmt.Errorf("failed to fetch responses: %w", err)
	}
	if err := s.db.Where("rfi_id = ?", rfi.ID).Order("id ASC").Find(&detail.Watchers).Error; err != nil {
		log.Printf("[LoadDetail] Error fetching watchers for RFI %d: %v", rfi.ID, err)
		return nil, fmt.Errorf("failed to fetch watchers: %w", err)
	}

	attachments, err := s.files.ListAttachments("rfi", rfi.ID)
	if err != nil {
		log.Printf("[LoadDetail] Error fetching attachments for RFI %d: %v", rfi.ID, err)
		return nil, fmt.Errorf("failed to fetch attachments: %w", err)
	}
	detail.Attachments = attachments

	return detail, nil
}

// daysOpen counts whole days since creation.
func daysOpen(created, now time.Time) int {
	d := int(now.Sub(created).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

// dueDateAging computes the two due-date fields. A past due date on a
// not-closed RFI yields days overdue; a due date today or in the future
// yields days remaining; no due date yields the zero defaults.
func dueDateAging(due *time.Time, status string, now time.Time) (overdue int, untilDue *int) {
	if due == nil {
		return 0, nil
	}
	if due.Before(now) {
		if status != StatusClosed {
			overdue = int(now.Sub(*due).Hours() / 24)
			if overdue < 1 {
				overdue = 1
			}
		}
		return overdue, nil
	}
	remaining := int(due.Sub(now).Hours() / 24)
	return 0, &remaining
}
