package services

import (
	"errors"
	"fmt"

	model "github.com/tannerws/SiteLine/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// nextRfiNumber allocates the next per-project display number. It must run
// inside the same transaction that inserts the new row: the highest existing
// row is read FOR UPDATE so concurrent creators in the same project serialize,
// and a rolled-back transaction burns nothing.
//
// The first RFI in a project has no row to lock; if two first-creates race,
// the (project_id, number) unique index rejects the loser.
func nextRfiNumber(tx *gorm.DB, projectID uint) (int, error) {
	query := tx.Where("project_id = ?", projectID).Order("number DESC")
	// sqlite (used by the test suite) has no FOR UPDATE; its writes serialize
	// on the single connection instead.
	if tx.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var last model.Rfi
	if err := query.First(&last).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 1, nil
		}
		return 0, fmt.Errorf("failed to read last RFI number: %w", err)
	}
	return last.Number + 1, nil
}
