package fetcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rkanno/arxiv-daily/internal/config"
)

// PoolBuilder turns configured queries into filtered candidate pools. Fetch
// failures degrade to an empty pool for that query; the run carries on.
type PoolBuilder struct {
	fetcher Fetcher
	cfg     *config.Config
	logger  zerolog.Logger
	now     func() time.Time
}

func NewPoolBuilder(f Fetcher, cfg *config.Config, logger zerolog.Logger) *PoolBuilder {
	return &PoolBuilder{fetcher: f, cfg: cfg, logger: logger, now: time.Now}
}

// SharedQuery combines the configured categories into one query expression
// (logical OR over per-category filters).
func SharedQuery(categories []string) string {
	parts := make([]string, 0, len(categories))
	for _, cat := range categories {
		parts = append(parts, fmt.Sprintf("cat:%s", cat))
	}
	return strings.Join(parts, " OR ")
}

// FetchSize oversamples relative to the per-topic cap because downstream
// filtering is lossy. Capped by hard_cap_results.
func (b *PoolBuilder) FetchSize() int {
	size := b.cfg.MaxPerTopic * b.cfg.FetchMultiplier
	if size > b.cfg.HardCapResults {
		size = b.cfg.HardCapResults
	}
	return size
}

// SharedPool fetches and filters the pool shared by topics without their own
// query. Returns nil when no categories are configured.
func (b *PoolBuilder) SharedPool(ctx context.Context) []Paper {
	if len(b.cfg.Categories) == 0 {
		return nil
	}
	return b.pool(ctx, SharedQuery(b.cfg.Categories))
}

// TopicPool fetches and filters the pool for a topic with its own query.
func (b *PoolBuilder) TopicPool(ctx context.Context, topic config.Topic) []Paper {
	return b.pool(ctx, topic.Query)
}

func (b *PoolBuilder) pool(ctx context.Context, query string) []Paper {
	papers, err := b.fetcher.Fetch(ctx, query, b.FetchSize())
	if err != nil {
		b.logger.Warn().Err(err).Str("query", query).Msg("fetch failed, continuing with empty pool")
		return nil
	}

	cutoff := b.now().UTC().AddDate(0, 0, -b.cfg.DaysBack)
	kept := make([]Paper, 0, len(papers))
	for _, p := range papers {
		// Window boundary is inclusive: an item published exactly at the
		// cutoff instant stays in.
		if p.Published.Before(cutoff) {
			continue
		}
		if !p.InCategories(b.cfg.Categories) {
			continue
		}
		kept = append(kept, p)
	}
	return kept
}
