package services

import (
	"fmt"
	"log"

	model "github.com/tannerws/SiteLine/models"
	"gorm.io/gorm"
)

// appendAudit writes one immutable audit entry. It runs on the caller's
// transaction handle so the entry commits or rolls back with the mutation it
// documents; audit writes are never fire-and-forget.
func appendAudit(tx *gorm.DB, entry model.AuditLogEntry) error {
	if err := tx.Create(&entry).Error; err != nil {
		log.Printf("[appendAudit] Error writing audit entry for RFI %d: %v", entry.RfiID, err)
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

// GetAuditLog returns the linear change history for one RFI, oldest first.
func (s *RfiService) GetAuditLog(projectID, rfiID uint) ([]model.AuditLogEntry, error) {
	if _, err := s.getProjectRfi(projectID, rfiID); err != nil {
		return nil, err
	}
	var entries []model.AuditLogEntry
	if err := s.db.Where("rfi_id = ?", rfiID).Order("id ASC").Find(&entries).Error; err != nil {
		log.Printf("[GetAuditLog] Error fetching audit log for RFI %d: %v", rfiID, err)
		return nil, fmt.Errorf("failed to fetch audit log: %w", err)
	}
	return entries, nil
}
