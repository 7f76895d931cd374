package services

import (
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"

	model "github.com/tannerws/SiteLine/models"
	"gorm.io/gorm"
)

// InboundEmail is the payload the email provider's webhook posts for each
// received message.
type InboundEmail struct {
	Subject string `json:"subject"`
	From    string `json:"from"`
	To      string `json:"to"`
	Text    string `json:"text"`
	HTML    string `json:"html"`
}

// InboundEmailResult reports what the resolver appended.
type InboundEmailResult struct {
	RfiID      uint `json:"rfi_id"`
	ResponseID uint `json:"response_id"`
}

var (
	// First run of digits anywhere in the to-address names the project, so
	// rfi+7@inbound.example.com and rfi-7@... both work.
	projectDigitsRe = regexp.MustCompile(`\d+`)

	// "RFI-42", "RFI 42" and "rfi42" all resolve; the subject may carry
	// Re:/Fwd: prefixes around it.
	subjectRfiRe = regexp.MustCompile(`(?i)rfi[-\s]*(\d+)`)

	htmlTagRe = regexp.MustCompile(`<[^>]*>`)
)

// ProcessInboundEmail resolves an inbound message to a project and RFI and
// appends a response. The webhook is unauthenticated, so the from-address is
// only an identity hint: it picks the audit actor when it matches a known
// user, never an authorization decision.
//
// Resolution runs in fixed order and each unresolved step is a distinct hard
// failure; nothing is written unless every step before the insert succeeds.
func (s *RfiService) ProcessInboundEmail(email InboundEmail) (*InboundEmailResult, error) {
	// Step 1: project id from the to-address digits.
	digits := projectDigitsRe.FindString(email.To)
	if digits == "" {
		return nil, newServiceError(KindUnresolvable, "cannot resolve project from address %q", email.To)
	}
	projectID64, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return nil, newServiceError(KindUnresolvable, "cannot resolve project from address %q", email.To)
	}
	projectID := uint(projectID64)

	// Step 2: RFI number from the subject.
	match := subjectRfiRe.FindStringSubmatch(email.Subject)
	if match == nil {
		return nil, newServiceError(KindUnresolvable, "subject missing RFI number: %q", email.Subject)
	}
	number, err := strconv.Atoi(match[1])
	if err != nil {
		return nil, newServiceError(KindUnresolvable, "subject missing RFI number: %q", email.Subject)
	}

	// Step 3: the target RFI.
	var rfi model.Rfi
	err = s.db.Where("project_id = ? AND number = ?", projectID, number).First(&rfi).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, newServiceError(KindUnresolvable, "target RFI not found: project %d, RFI-%d", projectID, number)
		}
		return nil, fmt.Errorf("failed to look up RFI: %w", err)
	}

	// Step 4: sender identity hint. A nil responder is legitimate; external
	// consultants reply from addresses we have never seen.
	responder, err := s.projects.FindUserByEmail(email.From)
	if err != nil {
		return nil, err
	}

	// Step 5: body content, preferring plain text over stripped HTML.
	body := strings.TrimSpace(email.Text)
	if body == "" {
		body = strings.TrimSpace(htmlTagRe.ReplaceAllString(email.HTML, " "))
		body = strings.Join(strings.Fields(body), " ")
	}
	if body == "" {
		return nil, newServiceError(KindUnresolvable, "empty email body")
	}

	// Step 6: response attribution chain: resolved sender, then ball in
	// court, then assignee, then creator.
	var attributedTo *uint
	switch {
	case responder != nil:
		attributedTo = &responder.ID
	case rfi.BallInCourtID != nil:
		attributedTo = rfi.BallInCourtID
	case rfi.AssignedToID != nil:
		attributedTo = rfi.AssignedToID
	case rfi.CreatedByID != 0:
		creator := rfi.CreatedByID
		attributedTo = &creator
	default:
		return nil, newServiceError(KindUnresolvable, "no valid user to attribute response")
	}

	// Steps 7 and 8: append the response, flip open RFIs to answered, and
	// record the audit entry. The audit actor is the genuinely resolved
	// sender or null; the response row carries the attribution chain result.
	response := model.RfiResponse{
		RfiID:       rfi.ID,
		ResponderID: attributedTo,
		Body:        body,
		IsOfficial:  false,
	}
	var auditActor *uint
	if responder != nil {
		auditActor = &responder.ID
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&response).Error; err != nil {
			return err
		}
		if rfi.Status == StatusOpen {
			// Any emailed reply means an answer arrived, distinct from the
			// official-response rule on the authenticated path.
			if err := tx.Model(&model.Rfi{}).Where("id = ?", rfi.ID).
				Update("status", StatusAnswered).Error; err != nil {
				return err
			}
		}
		return appendAudit(tx, model.AuditLogEntry{
			RfiID:     rfi.ID,
			ProjectID: rfi.ProjectID,
			ActorID:   auditActor,
			Action:    "response_added",
			NewValue:  body,
		})
	})
	if err != nil {
		log.Printf("[ProcessInboundEmail] Error appending response to RFI %d: %v", rfi.ID, err)
		return nil, fmt.Errorf("failed to append inbound response: %w", err)
	}
	log.Printf("[ProcessInboundEmail] Response %d appended to RFI-%d in project %d (sender resolved: %v)",
		response.ID, rfi.Number, rfi.ProjectID, responder != nil)

	actorForFanout := uint(0)
	if attributedTo != nil {
		actorForFanout = *attributedTo
	}
	s.notifier.DispatchRfiEvent(EventRfiResponded, rfi.ID, actorForFanout)

	return &InboundEmailResult{RfiID: rfi.ID, ResponseID: response.ID}, nil
}
