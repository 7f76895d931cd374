package services

import (
	"testing"
	"time"

	model "github.com/tannerws/SiteLine/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backdate rewrites an RFI's created_at so aging math has something to chew on.
func backdate(t *testing.T, e *testEnv, rfiID uint, createdAt time.Time) {
	t.Helper()
	require.NoError(t, e.db.Model(&model.Rfi{}).Where("id = ?", rfiID).
		Update("created_at", createdAt).Error)
}

func TestGetRfiMetrics(t *testing.T) {
	e := newTestEnv(t)
	creator := e.seedUser(t, "Dana", "dana@siteline.dev")
	project := e.seedProject(t, "Tower A", creator)
	now := time.Now()

	// Fresh, open, high priority, overdue since yesterday.
	pastDue := now.Add(-24 * time.Hour)
	e.mustCreateRfi(t, project.ID, creator.ID, CreateRfiInput{
		Priority: PriorityHigh,
		DueDate:  &pastDue,
	})

	// Five days old, mid bucket.
	midRfi := e.mustCreateRfi(t, project.ID, creator.ID, CreateRfiInput{})
	backdate(t, e, midRfi.ID, now.Add(-5*24*time.Hour))

	// Ten days old and answered.
	oldRfi := e.mustCreateRfi(t, project.ID, creator.ID, CreateRfiInput{})
	backdate(t, e, oldRfi.ID, now.Add(-10*24*time.Hour))
	status := StatusAnswered
	_, err := e.rfis.UpdateRfi(project.ID, oldRfi.ID, creator.ID, UpdateRfiInput{Status: &status})
	require.NoError(t, err)

	metrics, err := e.rfis.GetRfiMetrics(project.ID)
	require.NoError(t, err)

	assert.EqualValues(t, 3, metrics.Total)
	assert.EqualValues(t, 2, metrics.StatusCounts[StatusOpen])
	assert.EqualValues(t, 1, metrics.StatusCounts[StatusAnswered])
	assert.EqualValues(t, 1, metrics.PriorityCounts[PriorityHigh])
	assert.EqualValues(t, 2, metrics.PriorityCounts[PriorityMedium])

	assert.EqualValues(t, 1, metrics.AgingBuckets["0_3"])
	assert.EqualValues(t, 1, metrics.AgingBuckets["4_7"])
	assert.EqualValues(t, 1, metrics.AgingBuckets["8_plus"])

	assert.EqualValues(t, 1, metrics.OverdueOpen)
	assert.Zero(t, metrics.AvgHoursToFirstResponse)
}

func TestGetRfiMetrics_FirstResponseLatency(t *testing.T) {
	e := newTestEnv(t)
	creator := e.seedUser(t, "Dana", "dana@siteline.dev")
	project := e.seedProject(t, "Tower A", creator)

	// Created six hours ago, first response lands now: ~6h latency. A second
	// reply on the same thread must not move the average.
	rfi := e.mustCreateRfi(t, project.ID, creator.ID, CreateRfiInput{})
	backdate(t, e, rfi.ID, time.Now().Add(-6*time.Hour))
	_, _, err := e.rfis.AddResponse(project.ID, rfi.ID, creator.ID, AddResponseInput{Body: "first"})
	require.NoError(t, err)
	_, _, err = e.rfis.AddResponse(project.ID, rfi.ID, creator.ID, AddResponseInput{Body: "late follow-up"})
	require.NoError(t, err)

	// A thread with no responses contributes nothing to the average.
	e.mustCreateRfi(t, project.ID, creator.ID, CreateRfiInput{})

	metrics, err := e.rfis.GetRfiMetrics(project.ID)
	require.NoError(t, err)
	assert.InDelta(t, 6.0, metrics.AvgHoursToFirstResponse, 0.1)
}

func TestGetRfiMetrics_EmptyProject(t *testing.T) {
	e := newTestEnv(t)
	creator := e.seedUser(t, "Dana", "dana@siteline.dev")
	project := e.seedProject(t, "Tower A", creator)

	metrics, err := e.rfis.GetRfiMetrics(project.ID)
	require.NoError(t, err)
	assert.Zero(t, metrics.Total)
	assert.Empty(t, metrics.StatusCounts)
	assert.EqualValues(t, 0, metrics.AgingBuckets["0_3"])

	_, err = e.rfis.GetRfiMetrics(9999)
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
}
