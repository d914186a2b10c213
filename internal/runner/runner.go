package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rkanno/arxiv-daily/internal/config"
	"github.com/rkanno/arxiv-daily/internal/fetcher"
	"github.com/rkanno/arxiv-daily/internal/pipeline"
	"github.com/rkanno/arxiv-daily/internal/publisher"
	"github.com/rkanno/arxiv-daily/internal/seen"
)

// Runner orchestrates one fetch -> filter/score -> publish -> persist cycle.
type Runner struct {
	cfg        *config.Config
	pools      *fetcher.PoolBuilder
	pipeline   *pipeline.Pipeline
	store      seen.Store
	publishers []publisher.Publisher
	logger     zerolog.Logger
	now        func() time.Time
}

func New(cfg *config.Config, f fetcher.Fetcher, store seen.Store, pubs []publisher.Publisher, logger zerolog.Logger) *Runner {
	return &Runner{
		cfg:        cfg,
		pools:      fetcher.NewPoolBuilder(f, cfg, logger.With().Str("component", "pool").Logger()),
		pipeline:   pipeline.New(cfg),
		store:      store,
		publishers: pubs,
		logger:     logger,
		now:        time.Now,
	}
}

// Run executes the full pipeline once. Per-query fetch failures degrade to
// empty pools; publish and state persistence failures are fatal, but only
// after all topic processing has completed.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info().
		Int("topics", len(r.cfg.Topics)).
		Int("days_back", r.cfg.DaysBack).
		Str("dedupe_mode", r.cfg.DedupeMode).
		Msg("starting run")

	seenSet, err := r.store.Load()
	if err != nil {
		return fmt.Errorf("runner: failed to load seen record: %w", err)
	}

	sharedPool, topicPools := r.fetchPools(ctx)

	// Selection is serialized in config order: global dedupe mode makes
	// later topics depend on what earlier ones already took.
	run := r.pipeline.Select(r.now(), func(t config.Topic) []fetcher.Paper {
		if t.Query != "" {
			return topicPools[t.Slug]
		}
		return sharedPool
	}, seenSet)

	for _, tr := range run.Topics {
		r.logger.Info().Str("topic", tr.Topic).Int("selected", len(tr.Papers)).Msg("topic processed")
	}

	var publishErrs []error
	for _, pub := range r.publishers {
		if err := pub.Publish(ctx, run); err != nil {
			r.logger.Error().Err(err).Msgf("publish via %T failed", pub)
			publishErrs = append(publishErrs, err)
		}
	}
	if len(publishErrs) > 0 {
		return fmt.Errorf("runner: %d of %d publishers failed: %v", len(publishErrs), len(r.publishers), publishErrs)
	}

	run.MarkSeen(seenSet, r.cfg.SeenCap)
	if err := r.store.Save(seenSet); err != nil {
		return fmt.Errorf("runner: failed to save seen record: %w", err)
	}

	r.logger.Info().Int("selected", run.TotalSelected()).Msg("run complete")
	return nil
}

// fetchPools retrieves the shared category pool (once) and the pools of
// topics with dedicated queries (concurrently; fetch order does not matter,
// only selection order does).
func (r *Runner) fetchPools(ctx context.Context) ([]fetcher.Paper, map[string][]fetcher.Paper) {
	var sharedPool []fetcher.Paper
	needShared := false
	for _, t := range r.cfg.Topics {
		if t.Query == "" {
			needShared = true
			break
		}
	}
	if needShared {
		sharedPool = r.pools.SharedPool(ctx)
		r.logger.Info().Int("pool", len(sharedPool)).Msg("shared pool fetched")
	}

	topicPools := make(map[string][]fetcher.Paper)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, t := range r.cfg.Topics {
		if t.Query == "" {
			continue
		}
		wg.Add(1)
		go func(t config.Topic) {
			defer wg.Done()
			pool := r.pools.TopicPool(ctx, t)
			mu.Lock()
			topicPools[t.Slug] = pool
			mu.Unlock()
			r.logger.Info().Str("topic", t.Name).Int("pool", len(pool)).Msg("topic pool fetched")
		}(t)
	}
	wg.Wait()

	return sharedPool, topicPools
}
