package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoplive/backend/internal/models"
)

func viewer(userID, connID string) models.Viewer {
	return models.Viewer{
		UserID:       userID,
		Username:     "user-" + userID,
		JoinedAt:     time.Now(),
		ConnectionID: connID,
		IsActive:     true,
	}
}

func TestApplyJoin(t *testing.T) {
	s := &models.Stream{StreamID: "s1", Viewers: []models.Viewer{}}

	applyJoin(s, viewer("a", "c1"))
	assert.Equal(t, 1, s.ViewerCount)
	assert.Equal(t, 1, s.TotalViews)
	assert.Equal(t, 1, s.PeakViewers)

	applyJoin(s, viewer("b", "c2"))
	assert.Equal(t, 2, s.ViewerCount)
	assert.Equal(t, 2, s.TotalViews)
	assert.Equal(t, 2, s.PeakViewers)

	// same user joining again appends, it never reactivates or dedups
	applyJoin(s, viewer("a", "c3"))
	assert.Len(t, s.Viewers, 3)
	assert.Equal(t, 3, s.ViewerCount)
	assert.Equal(t, 3, s.TotalViews)
}

func TestApplyLeaveMostRecentActive(t *testing.T) {
	s := &models.Stream{StreamID: "s1"}
	applyJoin(s, viewer("a", "c1"))
	applyJoin(s, viewer("a", "c2"))

	require.True(t, applyLeave(s, "a"))
	assert.True(t, s.Viewers[0].IsActive, "older entry untouched")
	assert.False(t, s.Viewers[1].IsActive, "most recent active entry flipped")
	assert.Equal(t, 1, s.ViewerCount)

	require.True(t, applyLeave(s, "a"))
	assert.Equal(t, 0, s.ViewerCount)

	// no active entry left: no-op
	assert.False(t, applyLeave(s, "a"))
	assert.False(t, applyLeave(s, "never-joined"))
	assert.Len(t, s.Viewers, 2, "removeViewer never deletes entries")
}

func TestPeakViewersNeverDecreases(t *testing.T) {
	s := &models.Stream{StreamID: "s1"}
	applyJoin(s, viewer("a", "c1"))
	applyJoin(s, viewer("b", "c2"))
	assert.Equal(t, 2, s.PeakViewers)

	applyLeave(s, "a")
	applyLeave(s, "b")
	assert.Equal(t, 2, s.PeakViewers)

	applyJoin(s, viewer("c", "c3"))
	assert.Equal(t, 2, s.PeakViewers)
	assert.Equal(t, 1, s.ViewerCount)
}
