package services

import (
	"fmt"
	"sync"
	"testing"
	"time"

	model "github.com/tannerws/SiteLine/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// FixedTime is used to patch time.Now in tests.
var FixedTime = time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC)

// recordingMailer captures outbound email instead of sending it.
type recordingMailer struct {
	mu   sync.Mutex
	sent []sentEmail
}

type sentEmail struct {
	To      string
	Subject string
	Body    string
}

func (m *recordingMailer) Send(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentEmail{To: to, Subject: subject, Body: body})
	return nil
}

func (m *recordingMailer) sentTo(email string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, s := range m.sent {
		if s.To == email {
			count++
		}
	}
	return count
}

// testEnv wires the full service stack against an in-memory sqlite database.
// The pool is pinned to one connection so concurrent transactions serialize
// the way the postgres row lock would.
type testEnv struct {
	db       *gorm.DB
	projects *ProjectService
	notifier *NotificationService
	files    *AttachmentService
	rfis     *RfiService
	issues   *IssueService
	mailer   *recordingMailer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Project{},
		&model.ProjectMember{},
		&model.Rfi{},
		&model.RfiResponse{},
		&model.RfiWatcher{},
		&model.AuditLogEntry{},
		&model.Notification{},
		&model.Attachment{},
		&model.Issue{},
		&model.DailyLog{},
	))

	mailer := &recordingMailer{}
	projects := NewProjectService(db)
	notifier := NewNotificationService(db, mailer)
	files := &AttachmentService{db: db}
	rfis := &RfiService{db: db, projects: projects, notifier: notifier, files: files}
	issues := NewIssueService(db, projects)

	return &testEnv{
		db:       db,
		projects: projects,
		notifier: notifier,
		files:    files,
		rfis:     rfis,
		issues:   issues,
		mailer:   mailer,
	}
}

func (e *testEnv) seedUser(t *testing.T, name, email string) *model.User {
	t.Helper()
	user, err := e.projects.CreateUser(name, email)
	require.NoError(t, err)
	return user
}

// seedProject creates a project and enrolls the given users as members.
func (e *testEnv) seedProject(t *testing.T, name string, members ...*model.User) *model.Project {
	t.Helper()
	project, err := e.projects.CreateProject(name, "100 Main St")
	require.NoError(t, err)
	for _, u := range members {
		_, err := e.projects.AddMember(project.ID, u.ID, "member")
		require.NoError(t, err)
	}
	return project
}

// notificationsFor returns a user's notifications of one type, after the
// dispatch queue has drained.
func (e *testEnv) notificationsFor(t *testing.T, userID uint, notifType string) []model.Notification {
	t.Helper()
	e.notifier.Drain()
	var out []model.Notification
	require.NoError(t, e.db.Where("user_id = ? AND type = ?", userID, notifType).Find(&out).Error)
	return out
}

func (e *testEnv) auditEntries(t *testing.T, rfiID uint) []model.AuditLogEntry {
	t.Helper()
	var entries []model.AuditLogEntry
	require.NoError(t, e.db.Where("rfi_id = ?", rfiID).Order("id ASC").Find(&entries).Error)
	return entries
}

// mustCreateRfi is the common happy-path create used across tests.
func (e *testEnv) mustCreateRfi(t *testing.T, projectID, actorID uint, in CreateRfiInput) *RfiDetail {
	t.Helper()
	if in.Title == "" {
		in.Title = fmt.Sprintf("Test RFI %d", time.Now().UnixNano())
	}
	if in.Question == "" {
		in.Question = "What is the spec for this?"
	}
	detail, err := e.rfis.CreateRfi(projectID, actorID, in)
	require.NoError(t, err)
	return detail
}
