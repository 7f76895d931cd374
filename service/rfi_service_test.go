package services

import (
	"fmt"
	"sync"
	"testing"

	model "github.com/tannerws/SiteLine/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRfi_Defaults(t *testing.T) {
	e := newTestEnv(t)
	creator := e.seedUser(t, "Dana", "dana@siteline.dev")
	project := e.seedProject(t, "Tower A", creator)

	detail, err := e.rfis.CreateRfi(project.ID, creator.ID, CreateRfiInput{
		Title:    "Slab thickness at grid 4",
		Question: "Drawings show 8in, spec says 10in. Which governs?",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, detail.Number)
	assert.Equal(t, StatusOpen, detail.Status)
	assert.Equal(t, PriorityMedium, detail.Priority)
	// No assignee, no explicit ball in court: the creator holds the ball.
	require.NotNil(t, detail.BallInCourtID)
	assert.Equal(t, creator.ID, *detail.BallInCourtID)

	// The creator is always a watcher.
	require.Len(t, detail.Watchers, 1)
	assert.Equal(t, creator.ID, detail.Watchers[0].UserID)

	// Exactly one create audit entry.
	entries := e.auditEntries(t, detail.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, "create", entries[0].Action)
	require.NotNil(t, entries[0].ActorID)
	assert.Equal(t, creator.ID, *entries[0].ActorID)
}

func TestCreateRfi_BallInCourtPrecedence(t *testing.T) {
	e := newTestEnv(t)
	creator := e.seedUser(t, "Dana", "dana@siteline.dev")
	assignee := e.seedUser(t, "Raj", "raj@siteline.dev")
	explicit := e.seedUser(t, "Mei", "mei@siteline.dev")
	project := e.seedProject(t, "Tower A", creator, assignee, explicit)

	tests := []struct {
		name string
		in   CreateRfiInput
		want uint
	}{
		{
			name: "explicit ball in court wins",
			in:   CreateRfiInput{AssignedToID: &assignee.ID, BallInCourtID: &explicit.ID},
			want: explicit.ID,
		},
		{
			name: "assignee when no explicit",
			in:   CreateRfiInput{AssignedToID: &assignee.ID},
			want: assignee.ID,
		},
		{
			name: "creator as last resort",
			in:   CreateRfiInput{},
			want: creator.ID,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detail := e.mustCreateRfi(t, project.ID, creator.ID, tt.in)
			require.NotNil(t, detail.BallInCourtID)
			assert.Equal(t, tt.want, *detail.BallInCourtID)
		})
	}
}

func TestCreateRfi_WatcherSetDeduplicated(t *testing.T) {
	e := newTestEnv(t)
	creator := e.seedUser(t, "Dana", "dana@siteline.dev")
	other := e.seedUser(t, "Raj", "raj@siteline.dev")
	project := e.seedProject(t, "Tower A", creator, other)

	detail := e.mustCreateRfi(t, project.ID, creator.ID, CreateRfiInput{
		WatcherIDs: []uint{other.ID, other.ID, creator.ID},
	})
	require.Len(t, detail.Watchers, 2)
}

func TestCreateRfi_RejectsNonMembers(t *testing.T) {
	e := newTestEnv(t)
	creator := e.seedUser(t, "Dana", "dana@siteline.dev")
	outsider := e.seedUser(t, "Eve", "eve@elsewhere.dev")
	project := e.seedProject(t, "Tower A", creator)

	tests := []struct {
		name string
		in   CreateRfiInput
	}{
		{"assignee not a member", CreateRfiInput{AssignedToID: &outsider.ID}},
		{"ball in court not a member", CreateRfiInput{BallInCourtID: &outsider.ID}},
		{"watcher not a member", CreateRfiInput{WatcherIDs: []uint{outsider.ID}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.Title = "T"
			tt.in.Question = "Q"
			_, err := e.rfis.CreateRfi(project.ID, creator.ID, tt.in)
			require.Error(t, err)
			assert.Equal(t, KindMembership, KindOf(err))
		})
	}

	t.Run("creator not a member", func(t *testing.T) {
		_, err := e.rfis.CreateRfi(project.ID, outsider.ID, CreateRfiInput{Title: "T", Question: "Q"})
		require.Error(t, err)
		assert.Equal(t, KindMembership, KindOf(err))
	})
}

func TestCreateRfi_ValidationErrors(t *testing.T) {
	e := newTestEnv(t)
	creator := e.seedUser(t, "Dana", "dana@siteline.dev")
	project := e.seedProject(t, "Tower A", creator)

	_, err := e.rfis.CreateRfi(project.ID, creator.ID, CreateRfiInput{Priority: "critical"})
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
	// All complaints arrive at once.
	assert.Contains(t, err.Error(), "title is required")
	assert.Contains(t, err.Error(), "question is required")
	assert.Contains(t, err.Error(), "invalid priority")
}

func TestRfiNumbering_DensePerProject(t *testing.T) {
	e := newTestEnv(t)
	creator := e.seedUser(t, "Dana", "dana@siteline.dev")
	projectA := e.seedProject(t, "Tower A", creator)
	projectB := e.seedProject(t, "Tower B", creator)

	for i := 1; i <= 5; i++ {
		detail := e.mustCreateRfi(t, projectA.ID, creator.ID, CreateRfiInput{Title: fmt.Sprintf("A-%d", i), Question: "Q"})
		assert.Equal(t, i, detail.Number)
	}
	// A second project starts over at 1.
	detail := e.mustCreateRfi(t, projectB.ID, creator.ID, CreateRfiInput{Title: "B-1", Question: "Q"})
	assert.Equal(t, 1, detail.Number)
}

func TestRfiNumbering_ConcurrentCreators(t *testing.T) {
	e := newTestEnv(t)
	creator := e.seedUser(t, "Dana", "dana@siteline.dev")
	project := e.seedProject(t, "Tower A", creator)

	const n = 10
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := e.rfis.CreateRfi(project.ID, creator.ID, CreateRfiInput{
				Title:    fmt.Sprintf("Concurrent %d", i),
				Question: "Q",
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	e.notifier.Drain()

	var rfis []model.Rfi
	require.NoError(t, e.db.Where("project_id = ?", project.ID).Order("number ASC").Find(&rfis).Error)
	require.Len(t, rfis, n)
	// Exactly {1..n}: no duplicates, no gaps.
	for i, rfi := range rfis {
		assert.Equal(t, i+1, rfi.Number)
	}
}

func TestUpdateRfi_AuditCompleteness(t *testing.T) {
	e := newTestEnv(t)
	creator := e.seedUser(t, "Dana", "dana@siteline.dev")
	project := e.seedProject(t, "Tower A", creator)
	detail := e.mustCreateRfi(t, project.ID, creator.ID, CreateRfiInput{})

	priority := PriorityHigh
	location := "Level 3, east wing"
	_, err := e.rfis.UpdateRfi(project.ID, detail.ID, creator.ID, UpdateRfiInput{
		Priority: &priority,
		Location: &location,
	})
	require.NoError(t, err)

	entries := e.auditEntries(t, detail.ID)
	// One create entry plus one update entry per changed field.
	require.Len(t, entries, 3)
	assert.Equal(t, "create", entries[0].Action)
	fields := map[string]string{}
	for _, entry := range entries[1:] {
		assert.Equal(t, "update", entry.Action)
		fields[entry.Field] = entry.NewValue
	}
	assert.Equal(t, map[string]string{"priority": PriorityHigh, "location": location}, fields)

	// Resubmitting the identical patch writes nothing.
	_, err = e.rfis.UpdateRfi(project.ID, detail.ID, creator.ID, UpdateRfiInput{
		Priority: &priority,
		Location: &location,
	})
	require.NoError(t, err)
	assert.Len(t, e.auditEntries(t, detail.ID), 3)
}

func TestUpdateRfi_EmptyPatchRejected(t *testing.T) {
	e := newTestEnv(t)
	creator := e.seedUser(t, "Dana", "dana@siteline.dev")
	project := e.seedProject(t, "Tower A", creator)
	detail := e.mustCreateRfi(t, project.ID, creator.ID, CreateRfiInput{})

	_, err := e.rfis.UpdateRfi(project.ID, detail.ID, creator.ID, UpdateRfiInput{})
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Contains(t, err.Error(), "no fields to update")
}

func TestUpdateRfi_WorkflowEnforced(t *testing.T) {
	e := newTestEnv(t)
	creator := e.seedUser(t, "Dana", "dana@siteline.dev")
	project := e.seedProject(t, "Tower A", creator)

	// Walk a legal path: open -> in_review -> answered -> closed -> open.
	detail := e.mustCreateRfi(t, project.ID, creator.ID, CreateRfiInput{})
	for _, next := range []string{StatusInReview, StatusAnswered, StatusClosed, StatusOpen} {
		status := next
		updated, err := e.rfis.UpdateRfi(project.ID, detail.ID, creator.ID, UpdateRfiInput{Status: &status})
		require.NoError(t, err, "transition to %s", next)
		assert.Equal(t, next, updated.Status)
	}

	// open -> closed is not an edge.
	status := StatusClosed
	_, err := e.rfis.UpdateRfi(project.ID, detail.ID, creator.ID, UpdateRfiInput{Status: &status})
	require.Error(t, err)
	assert.Equal(t, KindWorkflow, KindOf(err))

	// Unknown tags are a validation failure, not a workflow one.
	bogus := "pending"
	_, err = e.rfis.UpdateRfi(project.ID, detail.ID, creator.ID, UpdateRfiInput{Status: &bogus})
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))

	// A status resubmitted unchanged is a no-op, not a violation.
	same := StatusOpen
	_, err = e.rfis.UpdateRfi(project.ID, detail.ID, creator.ID, UpdateRfiInput{Status: &same})
	require.NoError(t, err)
}

func TestUpdateRfi_StatusChangeAuditKind(t *testing.T) {
	e := newTestEnv(t)
	creator := e.seedUser(t, "Dana", "dana@siteline.dev")
	assignee := e.seedUser(t, "Raj", "raj@siteline.dev")
	project := e.seedProject(t, "Tower A", creator, assignee)
	detail := e.mustCreateRfi(t, project.ID, creator.ID, CreateRfiInput{})

	status := StatusInReview
	_, err := e.rfis.UpdateRfi(project.ID, detail.ID, creator.ID, UpdateRfiInput{
		Status:       &status,
		AssignedToID: &assignee.ID,
	})
	require.NoError(t, err)

	entries := e.auditEntries(t, detail.ID)
	require.Len(t, entries, 3)
	actions := map[string]string{}
	for _, entry := range entries[1:] {
		actions[entry.Field] = entry.Action
	}
	assert.Equal(t, "status_change", actions["status"])
	assert.Equal(t, "assign", actions["assigned_to_id"])
}

func TestAddResponse_OfficialForcesAnswered(t *testing.T) {
	e := newTestEnv(t)
	creator := e.seedUser(t, "Dana", "dana@siteline.dev")
	project := e.seedProject(t, "Tower A", creator)

	for _, start := range []string{StatusOpen, StatusInReview} {
		t.Run("from "+start, func(t *testing.T) {
			detail := e.mustCreateRfi(t, project.ID, creator.ID, CreateRfiInput{})
			if start != StatusOpen {
				status := start
				_, err := e.rfis.UpdateRfi(project.ID, detail.ID, creator.ID, UpdateRfiInput{Status: &status})
				require.NoError(t, err)
			}

			response, after, err := e.rfis.AddResponse(project.ID, detail.ID, creator.ID, AddResponseInput{
				Body:       "Use the 10in section per addendum 2.",
				IsOfficial: true,
			})
			require.NoError(t, err)
			assert.True(t, response.IsOfficial)
			assert.Equal(t, StatusAnswered, after.Status)
		})
	}
}

func TestAddResponse_ReturnToReassignsBallInCourt(t *testing.T) {
	e := newTestEnv(t)
	creator := e.seedUser(t, "Dana", "dana@siteline.dev")
	engineer := e.seedUser(t, "Raj", "raj@siteline.dev")
	project := e.seedProject(t, "Tower A", creator, engineer)
	detail := e.mustCreateRfi(t, project.ID, creator.ID, CreateRfiInput{})

	_, after, err := e.rfis.AddResponse(project.ID, detail.ID, creator.ID, AddResponseInput{
		Body:           "Need the engineer's take.",
		ReturnToUserID: &engineer.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, after.BallInCourtID)
	assert.Equal(t, engineer.ID, *after.BallInCourtID)
	// Unofficial response leaves status alone.
	assert.Equal(t, StatusOpen, after.Status)

	// returnTo must be a project member.
	outsider := e.seedUser(t, "Eve", "eve@elsewhere.dev")
	_, _, err = e.rfis.AddResponse(project.ID, detail.ID, creator.ID, AddResponseInput{
		Body:           "Bounce it outside.",
		ReturnToUserID: &outsider.ID,
	})
	require.Error(t, err)
	assert.Equal(t, KindMembership, KindOf(err))
}

func TestWatchers_IdempotentAddAndRemove(t *testing.T) {
	e := newTestEnv(t)
	creator := e.seedUser(t, "Dana", "dana@siteline.dev")
	other := e.seedUser(t, "Raj", "raj@siteline.dev")
	project := e.seedProject(t, "Tower A", creator, other)
	detail := e.mustCreateRfi(t, project.ID, creator.ID, CreateRfiInput{})

	require.NoError(t, e.rfis.AddWatcher(project.ID, detail.ID, other.ID))
	require.NoError(t, e.rfis.AddWatcher(project.ID, detail.ID, other.ID)) // duplicate add is fine

	after, err := e.rfis.LoadDetail(project.ID, detail.ID)
	require.NoError(t, err)
	assert.Len(t, after.Watchers, 2)

	require.NoError(t, e.rfis.RemoveWatcher(project.ID, detail.ID, other.ID))
	require.NoError(t, e.rfis.RemoveWatcher(project.ID, detail.ID, other.ID)) // second remove is fine

	after, err = e.rfis.LoadDetail(project.ID, detail.ID)
	require.NoError(t, err)
	assert.Len(t, after.Watchers, 1)
}

func TestRfi_ProjectScoping(t *testing.T) {
	e := newTestEnv(t)
	creator := e.seedUser(t, "Dana", "dana@siteline.dev")
	projectA := e.seedProject(t, "Tower A", creator)
	projectB := e.seedProject(t, "Tower B", creator)
	detail := e.mustCreateRfi(t, projectA.ID, creator.ID, CreateRfiInput{})

	// The RFI is invisible through the wrong project.
	_, err := e.rfis.LoadDetail(projectB.ID, detail.ID)
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestListRfis_Filters(t *testing.T) {
	e := newTestEnv(t)
	creator := e.seedUser(t, "Dana", "dana@siteline.dev")
	assignee := e.seedUser(t, "Raj", "raj@siteline.dev")
	project := e.seedProject(t, "Tower A", creator, assignee)

	e.mustCreateRfi(t, project.ID, creator.ID, CreateRfiInput{
		Title: "Curtain wall anchor detail", Question: "Q", Priority: PriorityHigh, AssignedToID: &assignee.ID,
	})
	e.mustCreateRfi(t, project.ID, creator.ID, CreateRfiInput{
		Title: "Roof drain overflow", Question: "Q", Priority: PriorityLow,
	})

	rfis, total, err := e.rfis.ListRfis(project.ID, RfiListFilter{Priority: PriorityHigh})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, rfis, 1)
	assert.Equal(t, "Curtain wall anchor detail", rfis[0].Title)

	rfis, _, err = e.rfis.ListRfis(project.ID, RfiListFilter{AssignedToID: &assignee.ID})
	require.NoError(t, err)
	require.Len(t, rfis, 1)

	// Free text falls back to SQL matching when no search index is wired.
	rfis, _, err = e.rfis.ListRfis(project.ID, RfiListFilter{Search: "curtain WALL"})
	require.NoError(t, err)
	require.Len(t, rfis, 1)

	_, _, err = e.rfis.ListRfis(project.ID, RfiListFilter{Status: "bogus"})
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
}
