package worker

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-paper/internal/events"
	"github.com/stemsi/exam-paper/internal/repository"
)

const (
	WarmBatchSize    = 50
	WarmBatchTimeout = 2 * time.Second
)

// PaperWarmer reloads or drops the cached paper of one exam.
type PaperWarmer interface {
	WarmPaperCache(ctx context.Context, id int) error
	InvalidatePaper(ctx context.Context, id int)
}

// batch collects the exams touched since the last flush.
type batch struct {
	warm map[int]struct{}
	drop map[int]struct{}
}

func newBatch() *batch {
	return &batch{
		warm: make(map[int]struct{}, WarmBatchSize),
		drop: make(map[int]struct{}),
	}
}

func (b *batch) size() int { return len(b.warm) + len(b.drop) }

// PaperWarmWorker listens on the change feed and re-caches the papers of
// edited exams, so the next render after an edit is served from Redis.
type PaperWarmWorker struct {
	rdb    *redis.Client
	warmer PaperWarmer
	log    zerolog.Logger
}

func NewPaperWarmWorker(rdb *redis.Client, warmer PaperWarmer, log zerolog.Logger) *PaperWarmWorker {
	return &PaperWarmWorker{
		rdb:    rdb,
		warmer: warmer,
		log:    log.With().Str("component", "paper_warm_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

// Start blocks until ctx is done. Without Redis there is no feed and it
// returns at once.
func (w *PaperWarmWorker) Start(ctx context.Context) {
	if w.rdb == nil {
		return
	}

	sub, err := events.Subscribe(ctx, w.rdb)
	if err != nil {
		w.log.Error().Err(err).Msg("Subscribe failed, paper warming disabled")
		return
	}
	defer sub.Close()

	w.log.Info().Msg("PaperWarmWorker started")

	pending := newBatch()
	ticker := time.NewTicker(WarmBatchTimeout)
	defer ticker.Stop()
	msgs := sub.Channel()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Int("pending", pending.size()).Msg("PaperWarmWorker stopped")
			return

		case <-ticker.C:
			w.flush(ctx, pending)

		case msg, ok := <-msgs:
			if !ok {
				return
			}
			e, err := events.Decode(msg.Payload)
			if err != nil {
				w.log.Warn().Err(err).Msg("Invalid change event")
				continue
			}
			w.track(pending, e)
			if pending.size() >= WarmBatchSize {
				w.flush(ctx, pending)
			}
		}
	}
}

// track records which exam an event dirtied. A deleted exam is not warmed
// again; its cache entry is dropped on flush in case a read that raced the
// delete wrote it back.
func (w *PaperWarmWorker) track(pending *batch, e events.Event) {
	if e.ExamID <= 0 {
		return
	}
	if e.Type == events.ExamDeleted {
		delete(pending.warm, e.ExamID)
		pending.drop[e.ExamID] = struct{}{}
		return
	}
	if _, gone := pending.drop[e.ExamID]; gone {
		return
	}
	pending.warm[e.ExamID] = struct{}{}
}

// ----------------------------------------------------------------
// Batch flush
// ----------------------------------------------------------------

func (w *PaperWarmWorker) flush(ctx context.Context, pending *batch) {
	if pending.size() == 0 {
		return
	}

	for id := range pending.drop {
		delete(pending.drop, id)
		w.warmer.InvalidatePaper(ctx, id)
	}

	warmed := 0
	for id := range pending.warm {
		delete(pending.warm, id)
		if err := w.warmer.WarmPaperCache(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			w.log.Warn().Err(err).Int("exam_id", id).Msg("Failed to warm paper")
			continue
		}
		warmed++
	}

	w.log.Debug().Int("warmed", warmed).Msg("Paper batch warmed")
}
