package streams

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shoplive/backend/internal/models"
)

// Repository persists stream documents. Viewers live in a JSONB column on
// the stream row, so presence updates are whole-document read-modify-write
// against that one row.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a stream repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const streamColumns = `stream_id, streamer, status, started_at, ended_at, duration,
	viewers, viewer_count, total_views, peak_viewers, average_view_time,
	chat_enabled, recording_enabled, room_id, created_at, updated_at`

func scanStream(row pgx.Row) (*models.Stream, error) {
	var s models.Stream
	err := row.Scan(&s.StreamID, &s.Streamer, &s.Status, &s.StartedAt, &s.EndedAt, &s.Duration,
		&s.Viewers, &s.ViewerCount, &s.TotalViews, &s.PeakViewers, &s.AverageViewTime,
		&s.ChatEnabled, &s.RecordingEnabled, &s.RoomID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetByID returns the stream document, or (nil, nil) when absent.
func (r *Repository) GetByID(ctx context.Context, streamID string) (*models.Stream, error) {
	const q = `SELECT ` + streamColumns + ` FROM streams WHERE stream_id = $1`
	s, err := scanStream(r.pool.QueryRow(ctx, q, streamID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// Create inserts a new stream document in WAITING.
func (r *Repository) Create(ctx context.Context, s *models.Stream) error {
	const q = `INSERT INTO streams (stream_id, streamer, status, viewers, chat_enabled, recording_enabled, room_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, q,
		s.StreamID, s.Streamer, s.Status, s.Viewers, s.ChatEnabled, s.RecordingEnabled, s.RoomID,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
}

// UpdatePresence writes back the viewer log and its derived counters.
func (r *Repository) UpdatePresence(ctx context.Context, s *models.Stream) error {
	const q = `UPDATE streams
		SET viewers = $1, viewer_count = $2, total_views = $3, peak_viewers = $4, updated_at = NOW()
		WHERE stream_id = $5`
	_, err := r.pool.Exec(ctx, q, s.Viewers, s.ViewerCount, s.TotalViews, s.PeakViewers, s.StreamID)
	return err
}

// UpdateStatus writes back lifecycle status and timing fields.
func (r *Repository) UpdateStatus(ctx context.Context, s *models.Stream) error {
	const q = `UPDATE streams
		SET status = $1, started_at = $2, ended_at = $3, duration = $4, average_view_time = $5, updated_at = NOW()
		WHERE stream_id = $6`
	_, err := r.pool.Exec(ctx, q, s.Status, s.StartedAt, s.EndedAt, s.Duration, s.AverageViewTime, s.StreamID)
	return err
}

// ListByStatus returns streams in the given status, newest first.
func (r *Repository) ListByStatus(ctx context.Context, status models.StreamStatus, limit int) ([]models.Stream, error) {
	const q = `SELECT ` + streamColumns + ` FROM streams WHERE status = $1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, q, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Stream
	for rows.Next() {
		s, err := scanStream(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *s)
	}
	return list, rows.Err()
}
