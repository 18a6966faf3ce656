package sweeper

import (
	"context"
	"fmt"
	"log"
	"time"

	"roomchat-service/internal/observability"
	"roomchat-service/internal/presence"
	"roomchat-service/internal/repositories"
	"roomchat-service/internal/telemetry"
)

// MediaRemover deletes stored media by its opaque handle.
type MediaRemover interface {
	Remove(name string) error
}

// Sweeper periodically hard-purges messages past the retention window,
// removes their backing media, and drops stale presence rows. A failed sweep
// is logged and the loop keeps running; it never takes the process down.
type Sweeper struct {
	messages          repositories.MessageRepository
	tracker           *presence.Tracker
	media             MediaRemover
	audit             *telemetry.AuditEmitter
	messageRetention  time.Duration
	presenceRetention time.Duration
	interval          time.Duration
	now               func() time.Time
	stop              chan struct{}
	done              chan struct{}
}

// New constructs a Sweeper. Start must be called to run the loop.
func New(messages repositories.MessageRepository, tracker *presence.Tracker, media MediaRemover, audit *telemetry.AuditEmitter, messageRetention, presenceRetention, interval time.Duration) *Sweeper {
	return &Sweeper{
		messages:          messages,
		tracker:           tracker,
		media:             media,
		audit:             audit,
		messageRetention:  messageRetention,
		presenceRetention: presenceRetention,
		interval:          interval,
		now:               time.Now,
		stop:              make(chan struct{}),
		done:              make(chan struct{}),
	}
}

// Start runs the sweep loop in the background until Stop is called.
func (s *Sweeper) Start() {
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		log.Printf("retention sweeper started interval=%s retention=%s presence=%s", s.interval, s.messageRetention, s.presenceRetention)
		for {
			select {
			case <-ticker.C:
				if err := s.Sweep(context.Background()); err != nil {
					log.Printf("retention sweep failed: %v", err)
				}
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop terminates the loop and waits for it to exit.
func (s *Sweeper) Stop() {
	close(s.stop)
	<-s.done
}

// Sweep executes one retention pass. Missing backing files are logged and
// skipped; a storage failure aborts this pass only.
func (s *Sweeper) Sweep(ctx context.Context) error {
	now := s.now()

	purged, err := s.messages.PurgeOlderThan(ctx, now.Add(-s.messageRetention))
	if err != nil {
		observability.ObserveSweep("error", 0, 0)
		return fmt.Errorf("purge messages: %w", err)
	}

	for _, msg := range purged {
		if !msg.IsMedia() {
			continue
		}
		if err := s.media.Remove(msg.Content); err != nil {
			log.Printf("sweep: could not remove media %s: %v", msg.Content, err)
		}
	}

	stale, err := s.tracker.PurgeStale(ctx, now.Add(-s.presenceRetention))
	if err != nil {
		observability.ObserveSweep("error", len(purged), 0)
		return fmt.Errorf("purge presence: %w", err)
	}

	observability.ObserveSweep("ok", len(purged), int(stale))
	s.audit.Emit(ctx, "INFO", fmt.Sprintf("retention sweep: %d messages, %d presence rows purged", len(purged), stale), "", "", nil)
	log.Printf("retention sweep done: messages=%d presence=%d", len(purged), stale)
	return nil
}
