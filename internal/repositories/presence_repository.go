package repositories

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"roomchat-service/internal/models"
)

// PresenceRepository stores one liveness row per (room, user) pair.
type PresenceRepository interface {
	Touch(ctx context.Context, room, username string, now time.Time) error
	MarkTyping(ctx context.Context, room, username string, now, until time.Time) error
	ListRoom(ctx context.Context, room string) ([]models.PresenceRecord, error)
	PurgeStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// PresenceRepo is a sqlx implementation of PresenceRepository.
type PresenceRepo struct {
	db *sqlx.DB
}

// NewPresenceRepo constructs a PresenceRepo.
func NewPresenceRepo(db *sqlx.DB) *PresenceRepo {
	return &PresenceRepo{db: db}
}

// Touch upserts last_seen for the pair. The composite primary key keeps
// concurrent upserts from producing duplicate rows.
func (r *PresenceRepo) Touch(ctx context.Context, room, username string, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO presence (room, username, last_seen, typing_until) VALUES ($1, $2, $3, to_timestamp(0))
        ON CONFLICT (room, username) DO UPDATE SET last_seen = EXCLUDED.last_seen`, room, username, now)
	return err
}

// MarkTyping upserts last_seen and typing_until for the pair.
func (r *PresenceRepo) MarkTyping(ctx context.Context, room, username string, now, until time.Time) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO presence (room, username, last_seen, typing_until) VALUES ($1, $2, $3, $4)
        ON CONFLICT (room, username) DO UPDATE SET last_seen = EXCLUDED.last_seen, typing_until = EXCLUDED.typing_until`, room, username, now, until)
	return err
}

// ListRoom returns every presence row for a room.
func (r *PresenceRepo) ListRoom(ctx context.Context, room string) ([]models.PresenceRecord, error) {
	var records []models.PresenceRecord
	err := r.db.SelectContext(ctx, &records, `SELECT room, username, last_seen, typing_until FROM presence WHERE room=$1`, room)
	return records, err
}

// PurgeStale removes rows whose last_seen predates cutoff and reports how
// many were removed.
func (r *PresenceRepo) PurgeStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM presence WHERE last_seen < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
