package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"roomchat-service/internal/models"
)

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomExists     = errors.New("room already exists")
	ErrBadCredentials = errors.New("bad room credentials")
)

// RoomRepository is the create/join gate for rooms. Rooms are never created
// implicitly on join.
type RoomRepository interface {
	Create(ctx context.Context, name, password string) (models.Room, error)
	Join(ctx context.Context, name, password string) (models.Room, error)
	Get(ctx context.Context, name string) (models.Room, error)
}

// RoomRepo is a sqlx implementation of RoomRepository.
type RoomRepo struct {
	db *sqlx.DB
}

// NewRoomRepo constructs a RoomRepo.
func NewRoomRepo(db *sqlx.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

// Create inserts a new room, failing if the name is taken.
func (r *RoomRepo) Create(ctx context.Context, name, password string) (models.Room, error) {
	var room models.Room
	err := r.db.QueryRowxContext(ctx, `INSERT INTO rooms (name, password) VALUES ($1, $2) RETURNING name, password, created_at`, name, password).
		Scan(&room.Name, &room.Password, &room.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return models.Room{}, ErrRoomExists
		}
		return models.Room{}, err
	}
	return room, nil
}

// Join checks the supplied password against the stored one. An empty stored
// password means the room is open and any password is accepted.
func (r *RoomRepo) Join(ctx context.Context, name, password string) (models.Room, error) {
	room, err := r.Get(ctx, name)
	if err != nil {
		return models.Room{}, err
	}
	if room.Password != "" && room.Password != password {
		return models.Room{}, ErrBadCredentials
	}
	return room, nil
}

// Get fetches a room by name.
func (r *RoomRepo) Get(ctx context.Context, name string) (models.Room, error) {
	var room models.Room
	err := r.db.GetContext(ctx, &room, `SELECT name, password, created_at FROM rooms WHERE name=$1`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Room{}, ErrRoomNotFound
	}
	return room, err
}
