package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"roomchat-service/internal/models"
)

var (
	ErrMessageNotFound  = errors.New("message not found")
	ErrNotMessageAuthor = errors.New("not the message author")
)

// DefaultPageLimit is the history window used when the caller does not ask
// for a specific limit.
const DefaultPageLimit = 20

// MessageRepository is the append-only message store for all rooms.
type MessageRepository interface {
	Append(ctx context.Context, room, author, kind, content string, originalName *string, replyTo *int64) (models.Message, error)
	Page(ctx context.Context, room string, offset, limit int) ([]models.Message, error)
	SoftDelete(ctx context.Context, room string, messageID int64, author string) (models.Message, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) ([]models.Message, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageColumns = `id, room, username, type, content, original_name, reply_to, delivered, created_at`

// Append stores a message and returns the persisted record with its assigned
// id and timestamp. reply_to is not checked against existing ids.
func (r *MessageRepo) Append(ctx context.Context, room, author, kind, content string, originalName *string, replyTo *int64) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx, `INSERT INTO messages (room, username, type, content, original_name, reply_to) VALUES ($1, $2, $3, $4, $5, $6) RETURNING `+messageColumns,
		room, author, kind, content, originalName, replyTo).
		Scan(&msg.ID, &msg.Room, &msg.Username, &msg.Kind, &msg.Content, &msg.OriginalName, &msg.ReplyTo, &msg.Delivered, &msg.CreatedAt)
	return msg, err
}

// normalizePage clamps paging parameters to the store's defaults.
func normalizePage(offset, limit int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return offset, limit
}

// chronological reverses a newest-first window in place so callers receive it
// oldest to newest.
func chronological(msgs []models.Message) []models.Message {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs
}

// Page returns the `limit` most recent messages after skipping `offset` from
// the newest end, reordered oldest to newest.
func (r *MessageRepo) Page(ctx context.Context, room string, offset, limit int) ([]models.Message, error) {
	offset, limit = normalizePage(offset, limit)
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT `+messageColumns+` FROM messages WHERE room=$1 ORDER BY id DESC OFFSET $2 LIMIT $3`, room, offset, limit)
	if err != nil {
		return nil, err
	}
	return chronological(msgs), nil
}

// applySoftDelete decides the outcome of author deleting msg: the resulting
// row, whether the store still needs an UPDATE, or a sentinel error. Deleting
// an already-deleted message is a no-op that re-confirms the deleted state.
func applySoftDelete(msg models.Message, author string) (models.Message, bool, error) {
	if msg.Username != author {
		return models.Message{}, false, ErrNotMessageAuthor
	}
	if msg.Kind == models.KindDeleted {
		return msg, false, nil
	}
	msg.Kind = models.KindDeleted
	msg.Content = models.DeletedPlaceholder
	msg.OriginalName = nil
	return msg, true, nil
}

// SoftDelete marks the author's own message as deleted and overwrites its
// content with the placeholder. The row is locked so a concurrent purge
// serializes against the update.
func (r *MessageRepo) SoftDelete(ctx context.Context, room string, messageID int64, author string) (models.Message, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, err
	}
	defer tx.Rollback()

	var msg models.Message
	err = tx.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE id=$1 AND room=$2 FOR UPDATE`, messageID, room)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	if err != nil {
		return models.Message{}, err
	}

	next, needsUpdate, err := applySoftDelete(msg, author)
	if err != nil {
		return models.Message{}, err
	}
	if !needsUpdate {
		if err := tx.Commit(); err != nil {
			return models.Message{}, err
		}
		return next, nil
	}

	err = tx.QueryRowxContext(ctx, `UPDATE messages SET type=$1, content=$2, original_name=NULL WHERE id=$3 RETURNING `+messageColumns,
		models.KindDeleted, models.DeletedPlaceholder, messageID).
		Scan(&msg.ID, &msg.Room, &msg.Username, &msg.Kind, &msg.Content, &msg.OriginalName, &msg.ReplyTo, &msg.Delivered, &msg.CreatedAt)
	if err != nil {
		return models.Message{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// PurgeOlderThan hard-deletes messages older than cutoff across every room
// and returns the deleted rows so the caller can remove backing media.
// Soft-deleted rows purge like any other row.
func (r *MessageRepo) PurgeOlderThan(ctx context.Context, cutoff time.Time) ([]models.Message, error) {
	rows, err := r.db.QueryxContext(ctx, `DELETE FROM messages WHERE created_at < $1 RETURNING `+messageColumns, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var purged []models.Message
	for rows.Next() {
		var msg models.Message
		if err := rows.StructScan(&msg); err != nil {
			return nil, err
		}
		purged = append(purged, msg)
	}
	return purged, rows.Err()
}
