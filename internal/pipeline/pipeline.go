package pipeline

import (
	"sort"
	"strings"
	"time"

	"github.com/rkanno/arxiv-daily/internal/config"
	"github.com/rkanno/arxiv-daily/internal/fetcher"
	"github.com/rkanno/arxiv-daily/internal/match"
	"github.com/rkanno/arxiv-daily/internal/seen"
)

// Scored is one selected paper with its relevance score and the terms that
// matched it.
type Scored struct {
	Paper   fetcher.Paper
	Score   int
	Matched []string
}

// TopicResult is the ordered selection for one topic. An empty Papers slice
// is a valid result, not an error.
type TopicResult struct {
	Topic  string
	Slug   string
	Papers []Scored
}

// Run aggregates all per-topic selections plus run metadata for rendering.
type Run struct {
	Date     time.Time
	DaysBack int
	Topics   []TopicResult
}

// TotalSelected counts selected papers across all topics.
func (r *Run) TotalSelected() int {
	n := 0
	for _, t := range r.Topics {
		n += len(t.Papers)
	}
	return n
}

// MarkSeen adds every selected id to the record and bounds it to cap.
func (r *Run) MarkSeen(set seen.Set, cap int) {
	for _, t := range r.Topics {
		for _, s := range t.Papers {
			set.Add(s.Paper.ID)
		}
	}
	set.Trim(cap)
}

type compiledTopic struct {
	topic   config.Topic
	include *match.Matcher
	exclude *match.Matcher
	boost   *match.Matcher
}

// Pipeline applies the configured filter, dedup, scoring and selection rules
// to candidate pools. All keyword matchers are compiled once up front.
type Pipeline struct {
	cfg           *config.Config
	globalInclude *match.Matcher
	globalExclude *match.Matcher
	topics        []compiledTopic
}

func New(cfg *config.Config) *Pipeline {
	p := &Pipeline{
		cfg:           cfg,
		globalInclude: match.Compile(cfg.GlobalInclude),
		globalExclude: match.Compile(cfg.GlobalExclude),
	}
	for _, topic := range cfg.Topics {
		p.topics = append(p.topics, compiledTopic{
			topic:   topic,
			include: match.Compile(topic.Include),
			exclude: match.Compile(topic.Exclude),
			boost:   match.Compile(topic.Boost),
		})
	}
	return p
}

// Select runs every configured topic over its pool, in config order. Order
// matters in global dedupe mode: an item selected by an earlier topic is no
// longer a candidate for later ones. The prior-run record suppresses items
// only when suppress_seen is enabled; the record itself is never mutated here.
func (p *Pipeline) Select(now time.Time, poolFor func(config.Topic) []fetcher.Paper, seenSet seen.Set) *Run {
	run := &Run{
		Date:     now.UTC(),
		DaysBack: p.cfg.DaysBack,
	}

	suppressSeen := p.cfg.SuppressSeenEnabled()
	globalMode := p.cfg.DedupeMode == "global"
	selectedThisRun := seen.NewSet()

	for _, ct := range p.topics {
		pool := poolFor(ct.topic)

		filtered := p.filterPool(pool, ct)
		unique := dedupe(filtered)

		var scored []Scored
		for _, paper := range unique {
			if suppressSeen && seenSet.Has(paper.ID) {
				continue
			}
			if globalMode && selectedThisRun.Has(paper.ID) {
				continue
			}
			scored = append(scored, p.score(paper, ct))
		}

		orderScored(scored)
		if len(scored) > p.cfg.MaxPerTopic {
			scored = scored[:p.cfg.MaxPerTopic]
		}

		if globalMode {
			for _, s := range scored {
				selectedThisRun.Add(s.Paper.ID)
			}
		}

		run.Topics = append(run.Topics, TopicResult{
			Topic:  ct.topic.Name,
			Slug:   ct.topic.Slug,
			Papers: scored,
		})
	}

	return run
}

// filterPool applies the gates in their fixed order: global exclude, global
// include, topic exclude, topic include. Include gates are only active when
// terms are configured.
func (p *Pipeline) filterPool(pool []fetcher.Paper, ct compiledTopic) []fetcher.Paper {
	kept := make([]fetcher.Paper, 0, len(pool))
	for _, paper := range pool {
		text := match.Normalize(paper.MatchText(p.cfg.MatchIn))

		if p.globalExclude.MatchesAny(text) {
			continue
		}
		if !p.globalInclude.Empty() && !p.globalInclude.MatchesAny(text) {
			continue
		}
		if ct.exclude.MatchesAny(text) {
			continue
		}
		if !ct.include.Empty() && !ct.include.MatchesAny(text) {
			continue
		}
		kept = append(kept, paper)
	}
	return kept
}

// dedupe collapses revisions sharing a base id; the most recently updated one
// wins. Input order is preserved for the survivors.
func dedupe(pool []fetcher.Paper) []fetcher.Paper {
	best := make(map[string]int, len(pool))
	var order []string
	for i, paper := range pool {
		prev, ok := best[paper.ID]
		if !ok {
			best[paper.ID] = i
			order = append(order, paper.ID)
			continue
		}
		if paper.Updated.After(pool[prev].Updated) {
			best[paper.ID] = i
		}
	}

	unique := make([]fetcher.Paper, 0, len(order))
	for _, id := range order {
		unique = append(unique, pool[best[id]])
	}
	return unique
}

func (p *Pipeline) score(paper fetcher.Paper, ct compiledTopic) Scored {
	text := match.Normalize(paper.MatchText(p.cfg.MatchIn))
	w := p.cfg.Weights

	score := w.Global*p.globalInclude.Count(text) +
		w.Topic*ct.include.Count(text) +
		w.Boost*ct.boost.Count(text)

	matched := append(ct.include.Matched(text), ct.boost.Matched(text)...)

	return Scored{Paper: paper, Score: score, Matched: matched}
}

// orderScored sorts deterministically: score desc, published desc, lowercased
// title asc, id asc. The last two keys only exist to pin tie ordering.
func orderScored(scored []Scored) {
	sort.Slice(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.Paper.Published.Equal(b.Paper.Published) {
			return a.Paper.Published.After(b.Paper.Published)
		}
		at, bt := strings.ToLower(a.Paper.Title), strings.ToLower(b.Paper.Title)
		if at != bt {
			return at < bt
		}
		return a.Paper.ID < b.Paper.ID
	})
}
