package presence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"roomchat-service/internal/mocks"
	"roomchat-service/internal/models"
)

func TestComputeOnlineWindow(t *testing.T) {
	now := time.Now()
	records := []models.PresenceRecord{
		{Username: "fresh", LastSeen: now.Add(-5 * time.Second)},
		{Username: "edge", LastSeen: now.Add(-DefaultOnlineWindow)},
		{Username: "stale", LastSeen: now.Add(-DefaultOnlineWindow - time.Second)},
	}

	snapshot := Compute(records, now, DefaultOnlineWindow)
	require.Equal(t, []string{"edge", "fresh"}, snapshot.Online)
	require.Empty(t, snapshot.Typing)
}

func TestComputeTypingExpiresPassively(t *testing.T) {
	now := time.Now()
	records := []models.PresenceRecord{
		{Username: "typing", LastSeen: now, TypingUntil: now.Add(time.Second)},
		{Username: "done", LastSeen: now, TypingUntil: now.Add(-time.Millisecond)},
	}

	snapshot := Compute(records, now, DefaultOnlineWindow)
	require.Equal(t, []string{"typing"}, snapshot.Typing)

	// No clear call needed: the same records stop being typing once the
	// window has elapsed.
	later := now.Add(2 * time.Second)
	snapshot = Compute(records, later, DefaultOnlineWindow)
	require.Empty(t, snapshot.Typing)
}

func TestComputeSortsAndDedupes(t *testing.T) {
	now := time.Now()
	records := []models.PresenceRecord{
		{Username: "zoe", LastSeen: now},
		{Username: "amy", LastSeen: now},
		{Username: "amy", LastSeen: now.Add(-time.Second)},
	}

	snapshot := Compute(records, now, DefaultOnlineWindow)
	require.Equal(t, []string{"amy", "zoe"}, snapshot.Online)
}

func TestTrackerMarkTypingWindow(t *testing.T) {
	repo := new(mocks.PresenceRepositoryMock)
	tracker := NewTracker(repo, 0, 0)

	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return fixed }

	repo.On("MarkTyping", mock.Anything, "lobby", "alice", fixed, fixed.Add(DefaultTypingDuration)).Return(nil).Once()

	require.NoError(t, tracker.MarkTyping(context.Background(), "lobby", "alice"))
	repo.AssertExpectations(t)
}

func TestTrackerSnapshotUsesRepo(t *testing.T) {
	repo := new(mocks.PresenceRepositoryMock)
	tracker := NewTracker(repo, 40*time.Second, 2*time.Second)

	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return fixed }

	repo.On("ListRoom", mock.Anything, "lobby").Return([]models.PresenceRecord{
		{Username: "bob", LastSeen: fixed.Add(-10 * time.Second)},
		{Username: "old", LastSeen: fixed.Add(-time.Minute)},
	}, nil).Once()

	snapshot, err := tracker.Snapshot(context.Background(), "lobby")
	require.NoError(t, err)
	require.Equal(t, []string{"bob"}, snapshot.Online)
	repo.AssertExpectations(t)
}
