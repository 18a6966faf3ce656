package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"roomchat-service/internal/models"
)

type RoomRepositoryMock struct {
	mock.Mock
}

func (m *RoomRepositoryMock) Create(ctx context.Context, name, password string) (models.Room, error) {
	args := m.Called(ctx, name, password)
	var room models.Room
	if val := args.Get(0); val != nil {
		room = val.(models.Room)
	}
	return room, args.Error(1)
}

func (m *RoomRepositoryMock) Join(ctx context.Context, name, password string) (models.Room, error) {
	args := m.Called(ctx, name, password)
	var room models.Room
	if val := args.Get(0); val != nil {
		room = val.(models.Room)
	}
	return room, args.Error(1)
}

func (m *RoomRepositoryMock) Get(ctx context.Context, name string) (models.Room, error) {
	args := m.Called(ctx, name)
	var room models.Room
	if val := args.Get(0); val != nil {
		room = val.(models.Room)
	}
	return room, args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Append(ctx context.Context, room, author, kind, content string, originalName *string, replyTo *int64) (models.Message, error) {
	args := m.Called(ctx, room, author, kind, content, originalName, replyTo)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) Page(ctx context.Context, room string, offset, limit int) ([]models.Message, error) {
	args := m.Called(ctx, room, offset, limit)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) SoftDelete(ctx context.Context, room string, messageID int64, author string) (models.Message, error) {
	args := m.Called(ctx, room, messageID, author)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) PurgeOlderThan(ctx context.Context, cutoff time.Time) ([]models.Message, error) {
	args := m.Called(ctx, cutoff)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

type PresenceRepositoryMock struct {
	mock.Mock
}

func (m *PresenceRepositoryMock) Touch(ctx context.Context, room, username string, now time.Time) error {
	args := m.Called(ctx, room, username, now)
	return args.Error(0)
}

func (m *PresenceRepositoryMock) MarkTyping(ctx context.Context, room, username string, now, until time.Time) error {
	args := m.Called(ctx, room, username, now, until)
	return args.Error(0)
}

func (m *PresenceRepositoryMock) ListRoom(ctx context.Context, room string) ([]models.PresenceRecord, error) {
	args := m.Called(ctx, room)
	var records []models.PresenceRecord
	if val := args.Get(0); val != nil {
		records = val.([]models.PresenceRecord)
	}
	return records, args.Error(1)
}

func (m *PresenceRepositoryMock) PurgeStale(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func (m *PublisherMock) Close() error {
	args := m.Called()
	return args.Error(0)
}
