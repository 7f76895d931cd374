package services

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	model "github.com/tannerws/SiteLine/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RFI lifecycle events the fan-out understands.
const (
	EventRfiCreated       = "created"
	EventRfiResponded     = "responded"
	EventRfiStatusChanged = "status_changed"
)

// NotificationService computes recipient sets for RFI lifecycle events and
// delivers through both channels: in-app notification rows and email.
// Dispatch is fire-and-forget relative to the triggering mutation; delivery
// failures are logged and never reach the caller.
type NotificationService struct {
	db     *gorm.DB
	mailer Mailer
	wg     sync.WaitGroup
}

func NewNotificationService(db *gorm.DB, mailer Mailer) *NotificationService {
	return &NotificationService{db: db, mailer: mailer}
}

// DispatchRfiEvent schedules delivery on a separate goroutine and returns
// immediately. The caller's transaction has already committed by the time
// this runs, so a delivery failure cannot roll anything back.
func (s *NotificationService) DispatchRfiEvent(event string, rfiID, actorID uint) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[DispatchRfiEvent] Recovered from panic delivering %s for RFI %d: %v", event, rfiID, r)
			}
		}()
		if err := s.deliverRfiEvent(event, rfiID, actorID); err != nil {
			log.Printf("[DispatchRfiEvent] Delivery failed for %s on RFI %d: %v", event, rfiID, err)
		}
	}()
}

// Drain blocks until every scheduled dispatch has finished. Used on shutdown
// and by the test suite; callers on the request path never wait.
func (s *NotificationService) Drain() {
	s.wg.Wait()
}

func (s *NotificationService) deliverRfiEvent(event string, rfiID, actorID uint) error {
	var rfi model.Rfi
	if err := s.db.First(&rfi, "id = ?", rfiID).Error; err != nil {
		return fmt.Errorf("failed to load RFI %d: %w", rfiID, err)
	}
	var watchers []model.RfiWatcher
	if err := s.db.Where("rfi_id = ?", rfiID).Find(&watchers).Error; err != nil {
		return fmt.Errorf("failed to load watchers for RFI %d: %w", rfiID, err)
	}
	watcherIDs := make([]uint, 0, len(watchers))
	for _, w := range watchers {
		watcherIDs = append(watcherIDs, w.UserID)
	}

	switch event {
	case EventRfiCreated:
		sent := 0
		// The assignee gets a personal "assigned" message, unless they are
		// the creator.
		if rfi.AssignedToID != nil && *rfi.AssignedToID != actorID {
			s.notify([]uint{*rfi.AssignedToID}, "rfi_assigned", rfi)
			sent++
		}
		// Watchers other than the creator get the "created" batch; the
		// assignee already heard and is not told twice.
		batch := make([]uint, 0, len(watcherIDs))
		for _, id := range watcherIDs {
			if id == actorID {
				continue
			}
			if rfi.AssignedToID != nil && id == *rfi.AssignedToID {
				continue
			}
			batch = append(batch, id)
		}
		if len(batch) > 0 {
			s.notify(batch, "rfi_created", rfi)
			sent++
		}
		// Nobody else to tell: confirm to the creator so every create is
		// observable somewhere.
		if sent == 0 {
			s.notify([]uint{actorID}, "rfi_created", rfi)
		}
	case EventRfiStatusChanged:
		// Status changes go to every watcher, the actor included.
		s.notify(watcherIDs, "rfi_status_changed", rfi)
	case EventRfiResponded:
		// Responses go to every watcher except the responder.
		batch := make([]uint, 0, len(watcherIDs))
		for _, id := range watcherIDs {
			if id != actorID {
				batch = append(batch, id)
			}
		}
		s.notify(batch, "rfi_response", rfi)
	default:
		return fmt.Errorf("unknown RFI event %q", event)
	}
	return nil
}

// notify writes one in-app row per recipient and mirrors it to email.
// Failures on either channel are logged and swallowed.
func (s *NotificationService) notify(userIDs []uint, notifType string, rfi model.Rfi) {
	if len(userIDs) == 0 {
		return
	}
	payload, err := json.Marshal(map[string]interface{}{
		"project_id": rfi.ProjectID,
		"rfi_number": rfi.Number,
		"title":      rfi.Title,
		"status":     rfi.Status,
	})
	if err != nil {
		log.Printf("[notify] Error marshaling payload for RFI %d: %v", rfi.ID, err)
		payload = []byte("{}")
	}

	for _, userID := range userIDs {
		notification := model.Notification{
			UserID:     userID,
			Type:       notifType,
			EntityType: "rfi",
			EntityID:   rfi.ID,
			Payload:    datatypes.JSON(payload),
		}
		if err := s.db.Create(&notification).Error; err != nil {
			log.Printf("[notify] Error writing notification for user %d: %v", userID, err)
			continue
		}

		var user model.User
		if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
			log.Printf("[notify] Error fetching user %d for email: %v", userID, err)
			continue
		}
		subject := fmt.Sprintf("RFI-%d: %s", rfi.Number, rfi.Title)
		body := fmt.Sprintf("RFI-%d %q in project %d: %s (status: %s)",
			rfi.Number, rfi.Title, rfi.ProjectID, notifType, rfi.Status)
		if err := s.mailer.Send(user.Email, subject, body); err != nil {
			log.Printf("[notify] Error emailing %s: %v", user.Email, err)
		}
	}
}

// ListNotifications returns a user's notifications, newest first.
func (s *NotificationService) ListNotifications(userID uint, unreadOnly bool) ([]model.Notification, error) {
	query := s.db.Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	var notifications []model.Notification
	if err := query.Order("id DESC").Find(&notifications).Error; err != nil {
		log.Printf("[ListNotifications] Error fetching notifications for user %d: %v", userID, err)
		return nil, fmt.Errorf("failed to fetch notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead flags one notification as read; it must belong to the given user.
func (s *NotificationService) MarkRead(userID, notificationID uint) error {
	now := time.Now()
	result := s.db.Model(&model.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Updates(map[string]interface{}{"is_read": true, "read_at": &now})
	if result.Error != nil {
		log.Printf("[MarkRead] Error marking notification %d read: %v", notificationID, result.Error)
		return fmt.Errorf("failed to mark notification read: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return newServiceError(KindNotFound, "notification %d not found for user %d", notificationID, userID)
	}
	return nil
}
