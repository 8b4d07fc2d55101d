package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/prepmind/prepmind-backend/internal/service"
)

const janitorInterval = time.Minute

// JanitorWorker prunes finished and abandoned exam sessions from memory.
// Sessions are owned by one attempt and never shared, so pruning a terminal
// session only releases its timer and map slot.
type JanitorWorker struct {
	sessions  *service.SessionService
	retention time.Duration
	log       zerolog.Logger
}

// NewJanitorWorker creates a new JanitorWorker.
func NewJanitorWorker(sessions *service.SessionService, retention time.Duration, log zerolog.Logger) *JanitorWorker {
	return &JanitorWorker{
		sessions:  sessions,
		retention: retention,
		log:       log.With().Str("component", "janitor_worker").Logger(),
	}
}

// Start begins the worker loop. Call in a goroutine.
func (w *JanitorWorker) Start(ctx context.Context) {
	w.log.Info().Dur("retention", w.retention).Msg("JanitorWorker started")

	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("JanitorWorker stopped")
			return
		case now := <-ticker.C:
			if pruned := w.sessions.SweepExpired(now, w.retention); pruned > 0 {
				w.log.Info().Int("pruned", pruned).Int("live", w.sessions.Count()).
					Msg("Pruned stale sessions")
			}
		}
	}
}
