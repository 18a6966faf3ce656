package presence

import (
	"context"
	"sort"
	"time"

	"roomchat-service/internal/models"
	"roomchat-service/internal/repositories"
)

// Default windows used when the config supplies none.
const (
	DefaultOnlineWindow   = 40 * time.Second
	DefaultTypingDuration = 2 * time.Second
)

// Tracker computes window-based online and typing sets on top of the
// presence repository. Being online and being connected to the fan-out hub
// are two intentionally independent notions.
type Tracker struct {
	repo           repositories.PresenceRepository
	onlineWindow   time.Duration
	typingDuration time.Duration
	now            func() time.Time
}

// NewTracker constructs a Tracker. Non-positive windows fall back to the
// defaults.
func NewTracker(repo repositories.PresenceRepository, onlineWindow, typingDuration time.Duration) *Tracker {
	if onlineWindow <= 0 {
		onlineWindow = DefaultOnlineWindow
	}
	if typingDuration <= 0 {
		typingDuration = DefaultTypingDuration
	}
	return &Tracker{
		repo:           repo,
		onlineWindow:   onlineWindow,
		typingDuration: typingDuration,
		now:            time.Now,
	}
}

// Touch records activity for the pair, creating the record if absent.
func (t *Tracker) Touch(ctx context.Context, room, username string) error {
	return t.repo.Touch(ctx, room, username, t.now())
}

// MarkTyping records activity and starts a typing window. Typing expires
// passively once typing_until elapses; there is no explicit clear.
func (t *Tracker) MarkTyping(ctx context.Context, room, username string) error {
	now := t.now()
	return t.repo.MarkTyping(ctx, room, username, now, now.Add(t.typingDuration))
}

// Snapshot returns sorted, duplicate-free online and typing sets for a room.
func (t *Tracker) Snapshot(ctx context.Context, room string) (models.PresenceSnapshot, error) {
	records, err := t.repo.ListRoom(ctx, room)
	if err != nil {
		return models.PresenceSnapshot{}, err
	}
	return Compute(records, t.now(), t.onlineWindow), nil
}

// PurgeStale deletes presence rows whose last activity predates cutoff.
func (t *Tracker) PurgeStale(ctx context.Context, cutoff time.Time) (int64, error) {
	return t.repo.PurgeStale(ctx, cutoff)
}

// Compute derives the snapshot from raw records. Online means last_seen is
// within the window of now; typing means typing_until is still ahead of now.
func Compute(records []models.PresenceRecord, now time.Time, onlineWindow time.Duration) models.PresenceSnapshot {
	onlineSet := map[string]struct{}{}
	typingSet := map[string]struct{}{}
	for _, rec := range records {
		if now.Sub(rec.LastSeen) <= onlineWindow {
			onlineSet[rec.Username] = struct{}{}
		}
		if rec.TypingUntil.After(now) {
			typingSet[rec.Username] = struct{}{}
		}
	}
	return models.PresenceSnapshot{
		Online: sortedKeys(onlineSet),
		Typing: sortedKeys(typingSet),
	}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
