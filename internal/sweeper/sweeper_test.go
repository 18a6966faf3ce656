package sweeper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"roomchat-service/internal/mocks"
	"roomchat-service/internal/models"
	"roomchat-service/internal/presence"
)

type recordingRemover struct {
	removed []string
	err     error
}

func (r *recordingRemover) Remove(name string) error {
	r.removed = append(r.removed, name)
	return r.err
}

func newTestSweeper(messages *mocks.MessageRepositoryMock, presenceRepo *mocks.PresenceRepositoryMock, media MediaRemover) *Sweeper {
	tracker := presence.NewTracker(presenceRepo, 0, 0)
	return New(messages, tracker, media, nil, 5*24*time.Hour, 24*time.Hour, time.Hour)
}

func TestSweepPurgesMessagesAndMedia(t *testing.T) {
	messages := new(mocks.MessageRepositoryMock)
	presenceRepo := new(mocks.PresenceRepositoryMock)
	media := &recordingRemover{}
	s := newTestSweeper(messages, presenceRepo, media)

	fixed := time.Date(2025, 6, 10, 3, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	originalName := "cat.png"
	messages.On("PurgeOlderThan", mock.Anything, fixed.Add(-5*24*time.Hour)).Return([]models.Message{
		{ID: 1, Kind: models.KindText, Content: "old text"},
		{ID: 2, Kind: models.KindImage, Content: "abc123.png", OriginalName: &originalName},
		{ID: 3, Kind: models.KindDeleted, Content: models.DeletedPlaceholder},
		{ID: 4, Kind: models.KindAudio, Content: "note.ogg"},
	}, nil).Once()
	presenceRepo.On("PurgeStale", mock.Anything, fixed.Add(-24*time.Hour)).Return(int64(2), nil).Once()

	require.NoError(t, s.Sweep(context.Background()))

	// Only media-kind rows trigger file removal; soft-deleted rows purge
	// like any other row without touching the media store.
	assert.Equal(t, []string{"abc123.png", "note.ogg"}, media.removed)
	messages.AssertExpectations(t)
	presenceRepo.AssertExpectations(t)
}

func TestSweepToleratesMissingMedia(t *testing.T) {
	messages := new(mocks.MessageRepositoryMock)
	presenceRepo := new(mocks.PresenceRepositoryMock)
	media := &recordingRemover{err: assert.AnError}
	s := newTestSweeper(messages, presenceRepo, media)

	messages.On("PurgeOlderThan", mock.Anything, mock.Anything).Return([]models.Message{
		{ID: 1, Kind: models.KindVideo, Content: "gone.mp4"},
	}, nil).Once()
	presenceRepo.On("PurgeStale", mock.Anything, mock.Anything).Return(int64(0), nil).Once()

	require.NoError(t, s.Sweep(context.Background()))
	messages.AssertExpectations(t)
	presenceRepo.AssertExpectations(t)
}

func TestSweepFailureDoesNotPoisonNextSweep(t *testing.T) {
	messages := new(mocks.MessageRepositoryMock)
	presenceRepo := new(mocks.PresenceRepositoryMock)
	s := newTestSweeper(messages, presenceRepo, &recordingRemover{})

	messages.On("PurgeOlderThan", mock.Anything, mock.Anything).Return(([]models.Message)(nil), assert.AnError).Once()
	require.Error(t, s.Sweep(context.Background()))

	messages.On("PurgeOlderThan", mock.Anything, mock.Anything).Return([]models.Message{}, nil).Once()
	presenceRepo.On("PurgeStale", mock.Anything, mock.Anything).Return(int64(0), nil).Once()
	require.NoError(t, s.Sweep(context.Background()))

	messages.AssertExpectations(t)
	presenceRepo.AssertExpectations(t)
}

func TestSweepPresenceFailureSurfaces(t *testing.T) {
	messages := new(mocks.MessageRepositoryMock)
	presenceRepo := new(mocks.PresenceRepositoryMock)
	s := newTestSweeper(messages, presenceRepo, &recordingRemover{})

	messages.On("PurgeOlderThan", mock.Anything, mock.Anything).Return([]models.Message{}, nil).Once()
	presenceRepo.On("PurgeStale", mock.Anything, mock.Anything).Return(int64(0), assert.AnError).Once()

	require.Error(t, s.Sweep(context.Background()))
	messages.AssertExpectations(t)
	presenceRepo.AssertExpectations(t)
}

func TestStartAndStop(t *testing.T) {
	messages := new(mocks.MessageRepositoryMock)
	presenceRepo := new(mocks.PresenceRepositoryMock)
	tracker := presence.NewTracker(presenceRepo, 0, 0)
	s := New(messages, tracker, &recordingRemover{}, nil, time.Hour, time.Hour, time.Hour)

	s.Start()
	s.Stop()
}
