package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	model "github.com/tannerws/SiteLine/models"

	"github.com/elastic/go-elasticsearch/v8"
	"gorm.io/gorm"
)

// RfiService owns the RFI aggregate: the row itself plus its responses,
// watchers, audit trail and attachment references. All mutations run through
// here so the numbering, workflow and audit invariants hold in one place.
type RfiService struct {
	db       *gorm.DB
	esClient *elasticsearch.Client
	projects *ProjectService
	notifier *NotificationService
	files    *AttachmentService
}

// NewRfiService wires the aggregate. The Elasticsearch client is optional:
// when ELASTICSEARCH_URL is unset the list endpoint falls back to SQL search.
func NewRfiService(db *gorm.DB, projects *ProjectService, notifier *NotificationService, files *AttachmentService) *RfiService {
	var esClient *elasticsearch.Client
	if esURL := os.Getenv("ELASTICSEARCH_URL"); esURL != "" {
		var err error
		esClient, err = elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{esURL}})
		if err != nil {
			log.Printf("Warning: Failed to create Elasticsearch client: %v", err)
			esClient = nil
		}
	}
	return &RfiService{db: db, esClient: esClient, projects: projects, notifier: notifier, files: files}
}

// CreateRfiInput carries the caller-supplied fields for a new RFI. Status is
// not accepted here: every RFI starts open.
type CreateRfiInput struct {
	Title         string     `json:"title"`
	Question      string     `json:"question"`
	Priority      string     `json:"priority"`
	Discipline    string     `json:"discipline"`
	SpecSection   string     `json:"spec_section"`
	Location      string     `json:"location"`
	DueDate       *time.Time `json:"due_date"`
	NeededBy      *time.Time `json:"needed_by"`
	AssignedToID  *uint      `json:"assigned_to_user_id"`
	BallInCourtID *uint      `json:"ball_in_court_user_id"`
	WatcherIDs    []uint     `json:"watchers"`
}

// CreateRfi validates membership for every referenced user, allocates the
// display number and inserts the row plus watcher set in one transaction,
// writes the creation audit entry, then fires notifications after commit.
func (s *RfiService) CreateRfi(projectID, actorID uint, in CreateRfiInput) (*RfiDetail, error) {
	v := &validationErrors{}
	if strings.TrimSpace(in.Title) == "" {
		v.addf("title is required")
	}
	if strings.TrimSpace(in.Question) == "" {
		v.addf("question is required")
	}
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	if !IsValidRfiPriority(in.Priority) {
		v.addf("invalid priority %q", in.Priority)
	}
	if err := v.result(); err != nil {
		return nil, err
	}

	if _, err := s.projects.GetProject(projectID); err != nil {
		return nil, err
	}
	if err := s.requireMember(projectID, actorID); err != nil {
		return nil, err
	}
	for _, ref := range []*uint{in.AssignedToID, in.BallInCourtID} {
		if ref != nil {
			if err := s.requireMember(projectID, *ref); err != nil {
				return nil, err
			}
		}
	}
	for _, watcherID := range in.WatcherIDs {
		if err := s.requireMember(projectID, watcherID); err != nil {
			return nil, err
		}
	}

	// Ball-in-court precedence: explicit -> assignee -> creator.
	ballInCourt := in.BallInCourtID
	if ballInCourt == nil {
		ballInCourt = in.AssignedToID
	}
	if ballInCourt == nil {
		creator := actorID
		ballInCourt = &creator
	}

	var rfi model.Rfi
	err := s.db.Transaction(func(tx *gorm.DB) error {
		number, err := nextRfiNumber(tx, projectID)
		if err != nil {
			return err
		}
		rfi = model.Rfi{
			ProjectID:     projectID,
			Number:        number,
			Title:         in.Title,
			Question:      in.Question,
			Status:        StatusOpen,
			Priority:      in.Priority,
			Discipline:    in.Discipline,
			SpecSection:   in.SpecSection,
			Location:      in.Location,
			DueDate:       in.DueDate,
			NeededBy:      in.NeededBy,
			CreatedByID:   actorID,
			AssignedToID:  in.AssignedToID,
			BallInCourtID: ballInCourt,
		}
		if err := tx.Create(&rfi).Error; err != nil {
			return err
		}

		// The creator always watches; explicit watchers are added as a set.
		watcherSet := map[uint]bool{actorID: true}
		for _, id := range in.WatcherIDs {
			watcherSet[id] = true
		}
		for userID := range watcherSet {
			watcher := model.RfiWatcher{RfiID: rfi.ID, UserID: userID}
			if err := tx.Create(&watcher).Error; err != nil {
				return err
			}
		}

		created, _ := json.Marshal(map[string]interface{}{
			"title":               rfi.Title,
			"question":            rfi.Question,
			"priority":            rfi.Priority,
			"assigned_to_user_id": rfi.AssignedToID,
		})
		return appendAudit(tx, model.AuditLogEntry{
			RfiID:     rfi.ID,
			ProjectID: projectID,
			ActorID:   &actorID,
			Action:    "create",
			NewValue:  string(created),
		})
	})
	if err != nil {
		log.Printf("[CreateRfi] Error creating RFI in project %d: %v", projectID, err)
		if isUniqueViolation(err) {
			return nil, newServiceError(KindConflict, "RFI number collision in project %d, please retry", projectID)
		}
		return nil, err
	}
	log.Printf("[CreateRfi] RFI-%d created in project %d (id %d)", rfi.Number, projectID, rfi.ID)

	s.indexRfi(rfi)
	s.notifier.DispatchRfiEvent(EventRfiCreated, rfi.ID, actorID)

	return s.LoadDetail(projectID, rfi.ID)
}

// RfiListFilter narrows the project RFI list. Zero values mean "no filter".
type RfiListFilter struct {
	Status        string
	Priority      string
	AssignedToID  *uint
	BallInCourtID *uint
	DueBefore     *time.Time
	Search        string
	Page          int
	PageSize      int
}

// ListRfis returns a page of a project's RFIs plus the unpaged total.
func (s *RfiService) ListRfis(projectID uint, filter RfiListFilter) ([]model.Rfi, int64, error) {
	if filter.Status != "" && !IsValidRfiStatus(filter.Status) {
		return nil, 0, newServiceError(KindValidation, "invalid status %q", filter.Status)
	}
	if filter.Priority != "" && !IsValidRfiPriority(filter.Priority) {
		return nil, 0, newServiceError(KindValidation, "invalid priority %q", filter.Priority)
	}

	query := s.db.Model(&model.Rfi{}).Where("project_id = ?", projectID)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Priority != "" {
		query = query.Where("priority = ?", filter.Priority)
	}
	if filter.AssignedToID != nil {
		query = query.Where("assigned_to_id = ?", *filter.AssignedToID)
	}
	if filter.BallInCourtID != nil {
		query = query.Where("ball_in_court_id = ?", *filter.BallInCourtID)
	}
	if filter.DueBefore != nil {
		query = query.Where("due_date IS NOT NULL AND due_date < ?", *filter.DueBefore)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		if ids, ok := s.searchRfiIDs(projectID, search); ok {
			query = query.Where("id IN ?", ids)
		} else {
			like := "%" + strings.ToLower(search) + "%"
			query = query.Where("LOWER(title) LIKE ? OR LOWER(question) LIKE ?", like, like)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		log.Printf("[ListRfis] Error counting RFIs for project %d: %v", projectID, err)
		return nil, 0, fmt.Errorf("failed to count RFIs: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	var rfis []model.Rfi
	err := query.Order("number ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rfis).Error
	if err != nil {
		log.Printf("[ListRfis] Error fetching RFIs for project %d: %v", projectID, err)
		return nil, 0, fmt.Errorf("failed to fetch RFIs: %w", err)
	}
	return rfis, total, nil
}

// UpdateRfiInput is a patch: nil pointers mean "leave as is".
type UpdateRfiInput struct {
	Title         *string    `json:"title"`
	Question      *string    `json:"question"`
	Status        *string    `json:"status"`
	Priority      *string    `json:"priority"`
	Discipline    *string    `json:"discipline"`
	SpecSection   *string    `json:"spec_section"`
	Location      *string    `json:"location"`
	DueDate       *time.Time `json:"due_date"`
	NeededBy      *time.Time `json:"needed_by"`
	AssignedToID  *uint      `json:"assigned_to_user_id"`
	BallInCourtID *uint      `json:"ball_in_court_user_id"`
}

func (in UpdateRfiInput) empty() bool {
	return in.Title == nil && in.Question == nil && in.Status == nil &&
		in.Priority == nil && in.Discipline == nil && in.SpecSection == nil &&
		in.Location == nil && in.DueDate == nil && in.NeededBy == nil &&
		in.AssignedToID == nil && in.BallInCourtID == nil
}

// UpdateRfi applies a field patch. Each genuinely changed field yields one
// audit entry; a field resubmitted with its current value is a no-op. Status
// changes must be legal per the workflow table and fan out to watchers after
// commit.
func (s *RfiService) UpdateRfi(projectID, rfiID, actorID uint, in UpdateRfiInput) (*RfiDetail, error) {
	if in.empty() {
		return nil, newServiceError(KindValidation, "no fields to update")
	}

	rfi, err := s.getProjectRfi(projectID, rfiID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(projectID, actorID); err != nil {
		return nil, err
	}

	if in.Status != nil {
		if !IsValidRfiStatus(*in.Status) {
			return nil, newServiceError(KindValidation, "invalid status %q", *in.Status)
		}
		if *in.Status != rfi.Status && !IsTransitionAllowed(rfi.Status, *in.Status) {
			return nil, newServiceError(KindWorkflow,
				"illegal status transition %s -> %s (allowed: %s)",
				rfi.Status, *in.Status, strings.Join(AllowedTransitions(rfi.Status), ", "))
		}
	}
	if in.Priority != nil && !IsValidRfiPriority(*in.Priority) {
		return nil, newServiceError(KindValidation, "invalid priority %q", *in.Priority)
	}
	for _, ref := range []*uint{in.AssignedToID, in.BallInCourtID} {
		if ref != nil {
			if err := s.requireMember(projectID, *ref); err != nil {
				return nil, err
			}
		}
	}

	type fieldChange struct {
		column   string
		action   string
		oldValue string
		newValue string
		value    interface{}
	}
	var changes []fieldChange
	record := func(column, action, oldValue, newValue string, value interface{}) {
		// Stringified comparison: writing the current value back is not a change.
		if oldValue == newValue {
			return
		}
		changes = append(changes, fieldChange{column, action, oldValue, newValue, value})
	}

	if in.Title != nil {
		record("title", "update", rfi.Title, *in.Title, *in.Title)
	}
	if in.Question != nil {
		record("question", "update", rfi.Question, *in.Question, *in.Question)
	}
	if in.Status != nil {
		record("status", "status_change", rfi.Status, *in.Status, *in.Status)
	}
	if in.Priority != nil {
		record("priority", "update", rfi.Priority, *in.Priority, *in.Priority)
	}
	if in.Discipline != nil {
		record("discipline", "update", rfi.Discipline, *in.Discipline, *in.Discipline)
	}
	if in.SpecSection != nil {
		record("spec_section", "update", rfi.SpecSection, *in.SpecSection, *in.SpecSection)
	}
	if in.Location != nil {
		record("location", "update", rfi.Location, *in.Location, *in.Location)
	}
	if in.DueDate != nil {
		record("due_date", "update", stringifyTime(rfi.DueDate), stringifyTime(in.DueDate), *in.DueDate)
	}
	if in.NeededBy != nil {
		record("needed_by", "update", stringifyTime(rfi.NeededBy), stringifyTime(in.NeededBy), *in.NeededBy)
	}
	if in.AssignedToID != nil {
		record("assigned_to_id", "assign", stringifyUser(rfi.AssignedToID), stringifyUser(in.AssignedToID), *in.AssignedToID)
	}
	if in.BallInCourtID != nil {
		record("ball_in_court_id", "update", stringifyUser(rfi.BallInCourtID), stringifyUser(in.BallInCourtID), *in.BallInCourtID)
	}

	statusChanged := false
	if len(changes) > 0 {
		updates := make(map[string]interface{}, len(changes))
		for _, c := range changes {
			updates[c.column] = c.value
			if c.column == "status" {
				statusChanged = true
			}
		}
		err = s.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&model.Rfi{}).Where("id = ?", rfi.ID).Updates(updates).Error; err != nil {
				return err
			}
			for _, c := range changes {
				entry := model.AuditLogEntry{
					RfiID:     rfi.ID,
					ProjectID: projectID,
					ActorID:   &actorID,
					Action:    c.action,
					Field:     c.column,
					OldValue:  c.oldValue,
					NewValue:  c.newValue,
				}
				if err := appendAudit(tx, entry); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			log.Printf("[UpdateRfi] Error updating RFI %d: %v", rfiID, err)
			return nil, fmt.Errorf("failed to update RFI: %w", err)
		}

		var updated model.Rfi
		if err := s.db.First(&updated, "id = ?", rfi.ID).Error; err == nil {
			s.indexRfi(updated)
		}
		if statusChanged {
			s.notifier.DispatchRfiEvent(EventRfiStatusChanged, rfi.ID, actorID)
		}
	}

	return s.LoadDetail(projectID, rfiID)
}

// AddResponseInput carries one thread reply. ReturnToUserID re-aims the ball
// in court; IsOfficial marks the authoritative answer and forces the status
// to answered outside the normal transition table.
type AddResponseInput struct {
	Body           string `json:"text"`
	IsOfficial     bool   `json:"is_official"`
	ReturnToUserID *uint  `json:"return_to_user_id"`
}

func (s *RfiService) AddResponse(projectID, rfiID, actorID uint, in AddResponseInput) (*model.RfiResponse, *RfiDetail, error) {
	if strings.TrimSpace(in.Body) == "" {
		return nil, nil, newServiceError(KindValidation, "response text is required")
	}
	rfi, err := s.getProjectRfi(projectID, rfiID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.requireMember(projectID, actorID); err != nil {
		return nil, nil, err
	}
	if in.ReturnToUserID != nil {
		if err := s.requireMember(projectID, *in.ReturnToUserID); err != nil {
			return nil, nil, err
		}
	}

	response := model.RfiResponse{
		RfiID:       rfi.ID,
		ResponderID: &actorID,
		Body:        in.Body,
		IsOfficial:  in.IsOfficial,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&response).Error; err != nil {
			return err
		}
		updates := map[string]interface{}{}
		if in.ReturnToUserID != nil {
			updates["ball_in_court_id"] = *in.ReturnToUserID
		}
		if in.IsOfficial && rfi.Status != StatusAnswered {
			// Sanctioned bypass: an official response answers the RFI from
			// any state, without consulting the transition table.
			updates["status"] = StatusAnswered
		}
		if len(updates) > 0 {
			if err := tx.Model(&model.Rfi{}).Where("id = ?", rfi.ID).Updates(updates).Error; err != nil {
				return err
			}
		}
		return appendAudit(tx, model.AuditLogEntry{
			RfiID:     rfi.ID,
			ProjectID: projectID,
			ActorID:   &actorID,
			Action:    "response",
			NewValue:  in.Body,
		})
	})
	if err != nil {
		log.Printf("[AddResponse] Error adding response to RFI %d: %v", rfiID, err)
		return nil, nil, fmt.Errorf("failed to add response: %w", err)
	}
	log.Printf("[AddResponse] Response %d added to RFI %d (official=%v)", response.ID, rfi.ID, in.IsOfficial)

	s.notifier.DispatchRfiEvent(EventRfiResponded, rfi.ID, actorID)

	detail, err := s.LoadDetail(projectID, rfiID)
	if err != nil {
		return nil, nil, err
	}
	return &response, detail, nil
}

// AddWatcher subscribes a project member to the RFI. Duplicate adds are a
// no-op success.
func (s *RfiService) AddWatcher(projectID, rfiID, userID uint) error {
	rfi, err := s.getProjectRfi(projectID, rfiID)
	if err != nil {
		return err
	}
	if err := s.requireMember(projectID, userID); err != nil {
		return err
	}
	watcher := model.RfiWatcher{RfiID: rfi.ID, UserID: userID}
	err = s.db.Where("rfi_id = ? AND user_id = ?", rfi.ID, userID).
		FirstOrCreate(&watcher).Error
	if err != nil {
		log.Printf("[AddWatcher] Error adding watcher %d to RFI %d: %v", userID, rfiID, err)
		return fmt.Errorf("failed to add watcher: %w", err)
	}
	return nil
}

// RemoveWatcher is unconditional: removing an absent watcher succeeds.
func (s *RfiService) RemoveWatcher(projectID, rfiID, userID uint) error {
	rfi, err := s.getProjectRfi(projectID, rfiID)
	if err != nil {
		return err
	}
	err = s.db.Where("rfi_id = ? AND user_id = ?", rfi.ID, userID).
		Delete(&model.RfiWatcher{}).Error
	if err != nil {
		log.Printf("[RemoveWatcher] Error removing watcher %d from RFI %d: %v", userID, rfiID, err)
		return fmt.Errorf("failed to remove watcher: %w", err)
	}
	return nil
}

// getProjectRfi fetches an RFI and enforces project scoping: an RFI id from
// another project is indistinguishable from a missing one.
func (s *RfiService) getProjectRfi(projectID, rfiID uint) (*model.Rfi, error) {
	var rfi model.Rfi
	err := s.db.Where("id = ? AND project_id = ?", rfiID, projectID).First(&rfi).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, newServiceError(KindNotFound, "RFI %d not found in project %d", rfiID, projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch RFI: %w", err)
	}
	return &rfi, nil
}

func (s *RfiService) requireMember(projectID, userID uint) error {
	ok, err := s.projects.IsMember(projectID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return newServiceError(KindMembership, "user %d is not a member of project %d", userID, projectID)
	}
	return nil
}

func stringifyUser(id *uint) string {
	if id == nil {
		return ""
	}
	return fmt.Sprintf("%d", *id)
}

func stringifyTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
