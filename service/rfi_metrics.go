package services

import (
	"fmt"
	"log"
	"time"

	model "github.com/tannerws/SiteLine/models"
)

// RfiMetrics aggregates a project's RFI position for the dashboard.
type RfiMetrics struct {
	Total          int64            `json:"total"`
	StatusCounts   map[string]int64 `json:"status_counts"`
	PriorityCounts map[string]int64 `json:"priority_counts"`
	// Aging buckets count days open: 0-3, 4-7, 8 and up.
	AgingBuckets            map[string]int64 `json:"aging_buckets"`
	OverdueOpen             int64            `json:"overdue_open"`
	AvgHoursToFirstResponse float64          `json:"avg_hours_to_first_response"`
}

// GetRfiMetrics computes the histograms and response-latency average for one
// project. The RFI volume per project is dashboard-scale, so this loads the
// project's rows and aggregates in memory rather than hand-tuning SQL per
// dialect.
func (s *RfiService) GetRfiMetrics(projectID uint) (*RfiMetrics, error) {
	if _, err := s.projects.GetProject(projectID); err != nil {
		return nil, err
	}

	var rfis []model.Rfi
	if err := s.db.Where("project_id = ?", projectID).Find(&rfis).Error; err != nil {
		log.Printf("[GetRfiMetrics] Error fetching RFIs for project %d: %v", projectID, err)
		return nil, fmt.Errorf("failed to fetch RFIs: %w", err)
	}

	metrics := &RfiMetrics{
		Total:          int64(len(rfis)),
		StatusCounts:   make(map[string]int64),
		PriorityCounts: make(map[string]int64),
		AgingBuckets:   map[string]int64{"0_3": 0, "4_7": 0, "8_plus": 0},
	}

	// First response per RFI, in one pass over the project's responses.
	firstResponse := make(map[uint]time.Time)
	if len(rfis) > 0 {
		ids := make([]uint, len(rfis))
		for i, r := range rfis {
			ids[i] = r.ID
		}
		var responses []model.RfiResponse
		if err := s.db.Where("rfi_id IN ?", ids).Order("id ASC").Find(&responses).Error; err != nil {
			log.Printf("[GetRfiMetrics] Error fetching responses for project %d: %v", projectID, err)
			return nil, fmt.Errorf("failed to fetch responses: %w", err)
		}
		for _, r := range responses {
			if _, seen := firstResponse[r.RfiID]; !seen {
				firstResponse[r.RfiID] = r.CreatedAt
			}
		}
	}

	now := time.Now()
	var latencyHours float64
	var latencyCount int64
	for _, rfi := range rfis {
		metrics.StatusCounts[rfi.Status]++
		metrics.PriorityCounts[rfi.Priority]++

		switch age := daysOpen(rfi.CreatedAt, now); {
		case age <= 3:
			metrics.AgingBuckets["0_3"]++
		case age <= 7:
			metrics.AgingBuckets["4_7"]++
		default:
			metrics.AgingBuckets["8_plus"]++
		}

		if overdue, _ := dueDateAging(rfi.DueDate, rfi.Status, now); overdue > 0 && rfi.Status == StatusOpen {
			metrics.OverdueOpen++
		}

		if first, ok := firstResponse[rfi.ID]; ok {
			latencyHours += first.Sub(rfi.CreatedAt).Hours()
			latencyCount++
		}
	}
	if latencyCount > 0 {
		metrics.AvgHoursToFirstResponse = latencyHours / float64(latencyCount)
	}

	return metrics, nil
}
