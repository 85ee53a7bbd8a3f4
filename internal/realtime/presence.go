package realtime

import "github.com/shoplive/backend/internal/models"

// Presence mutations on the stream document. The viewer list is an
// append-only log: leaving flips IsActive, and a rejoin appends a fresh
// entry (totalViews counts every join, repeats included). viewerCount is
// always recomputed from the active entries, never incremented blindly.

// applyJoin appends the viewer and recomputes the derived counters.
func applyJoin(s *models.Stream, v models.Viewer) {
	s.Viewers = append(s.Viewers, v)
	s.ViewerCount = s.ActiveViewerCount()
	s.TotalViews++
	if s.ViewerCount > s.PeakViewers {
		s.PeakViewers = s.ViewerCount
	}
}

// applyLeave deactivates the most recent active entry for userID and
// recomputes viewerCount. Reports whether anything changed; with no active
// entry it is a no-op.
func applyLeave(s *models.Stream, userID string) bool {
	for i := len(s.Viewers) - 1; i >= 0; i-- {
		if s.Viewers[i].UserID == userID && s.Viewers[i].IsActive {
			s.Viewers[i].IsActive = false
			s.ViewerCount = s.ActiveViewerCount()
			return true
		}
	}
	return false
}
