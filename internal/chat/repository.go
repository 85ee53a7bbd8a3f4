package chat

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shoplive/backend/internal/models"
)

// Repository handles chat_messages persistence. Messages are append-only;
// moderation flips is_deleted elsewhere.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a chat message repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert appends one chat message.
func (r *Repository) Insert(ctx context.Context, m *models.ChatMessage) error {
	const q = `INSERT INTO chat_messages (id, stream_id, user_id, username, role, text, type, is_deleted, metadata, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $10)`
	_, err := r.pool.Exec(ctx, q,
		m.ID, m.StreamID, m.UserID, m.Username, m.Role, m.Text, m.Type, m.IsDeleted, m.Metadata, m.Timestamp)
	return err
}

// ListByStream returns the most recent non-deleted messages for a stream in
// chronological order. ULIDs sort by creation time, so ordering by id is
// ordering by time.
func (r *Repository) ListByStream(ctx context.Context, streamID string, limit int) ([]models.ChatMessage, error) {
	const q = `SELECT id, stream_id, user_id, username, COALESCE(role, ''), text, type, is_deleted, metadata, created_at
		FROM (
			SELECT * FROM chat_messages
			WHERE stream_id = $1 AND NOT is_deleted
			ORDER BY id DESC LIMIT $2
		) recent ORDER BY id ASC`
	rows, err := r.pool.Query(ctx, q, streamID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.StreamID, &m.UserID, &m.Username, &m.Role, &m.Text, &m.Type, &m.IsDeleted, &m.Metadata, &m.Timestamp); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}
