package pipeline

import (
	"reflect"
	"testing"
	"time"

	"github.com/rkanno/arxiv-daily/internal/config"
	"github.com/rkanno/arxiv-daily/internal/fetcher"
	"github.com/rkanno/arxiv-daily/internal/seen"
)

func baseConfig(topics ...config.Topic) *config.Config {
	for i := range topics {
		if topics[i].Slug == "" {
			topics[i].Slug = config.Slugify(topics[i].Name)
		}
	}
	return &config.Config{
		DaysBack:    3,
		MaxPerTopic: 12,
		MatchIn:     "title+abstract",
		DedupeMode:  "topic",
		SeenCap:     50000,
		Weights:     config.Weights{Global: 3, Topic: 4, Boost: 2},
		Topics:      topics,
	}
}

func testNow() time.Time {
	return time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
}

func paper(id, title string, published time.Time) fetcher.Paper {
	return fetcher.Paper{ID: id, Title: title, Published: published, Updated: published}
}

func staticPool(pool []fetcher.Paper) func(config.Topic) []fetcher.Paper {
	return func(config.Topic) []fetcher.Paper { return pool }
}

func selectedIDs(tr TopicResult) []string {
	ids := make([]string, 0, len(tr.Papers))
	for _, s := range tr.Papers {
		ids = append(ids, s.Paper.ID)
	}
	return ids
}

func TestIncludeGateAndScore(t *testing.T) {
	cfg := baseConfig(config.Topic{Name: "Manipulation", Include: []string{"manipulation"}})
	pool := []fetcher.Paper{
		paper("2506.001", "A Robot Arm for Manipulation", testNow()),
		paper("2506.002", "Deep Learning Survey", testNow()),
	}

	run := New(cfg).Select(testNow(), staticPool(pool), seen.NewSet())

	if len(run.Topics) != 1 {
		t.Fatalf("got %d topic results, want 1", len(run.Topics))
	}
	tr := run.Topics[0]
	if got := selectedIDs(tr); !reflect.DeepEqual(got, []string{"2506.001"}) {
		t.Fatalf("selected = %v, want only the manipulation paper", got)
	}
	if tr.Papers[0].Score != 4 {
		t.Errorf("score = %d, want 4 (one topic-include match, weight 4)", tr.Papers[0].Score)
	}
	if !reflect.DeepEqual(tr.Papers[0].Matched, []string{"manipulation"}) {
		t.Errorf("matched = %v", tr.Papers[0].Matched)
	}
}

func TestExcludeGates(t *testing.T) {
	cfg := baseConfig(config.Topic{
		Name:    "Manipulation",
		Include: []string{"manipulation"},
		Exclude: []string{"survey"},
	})
	cfg.GlobalExclude = []string{"quadruped"}
	pool := []fetcher.Paper{
		paper("keep", "Manipulation with Tactile Feedback", testNow()),
		paper("topic-excluded", "A Survey of Manipulation", testNow()),
		paper("global-excluded", "Quadruped Manipulation", testNow()),
	}

	run := New(cfg).Select(testNow(), staticPool(pool), seen.NewSet())

	if got := selectedIDs(run.Topics[0]); !reflect.DeepEqual(got, []string{"keep"}) {
		t.Errorf("selected = %v, want [keep]", got)
	}
}

func TestGlobalIncludeGateOnlyActiveWhenConfigured(t *testing.T) {
	topic := config.Topic{Name: "Everything"}

	cfg := baseConfig(topic)
	pool := []fetcher.Paper{paper("a", "Anything At All", testNow())}
	run := New(cfg).Select(testNow(), staticPool(pool), seen.NewSet())
	if len(run.Topics[0].Papers) != 1 {
		t.Error("empty global include must be a no-op, not a reject-all gate")
	}

	cfg = baseConfig(topic)
	cfg.GlobalInclude = []string{"robot"}
	run = New(cfg).Select(testNow(), staticPool(pool), seen.NewSet())
	if len(run.Topics[0].Papers) != 0 {
		t.Error("configured global include must drop non-matching items")
	}
}

func TestDedupeKeepsLaterUpdatedRevision(t *testing.T) {
	cfg := baseConfig(config.Topic{Name: "Robots", Include: []string{"robot"}})
	v1 := fetcher.Paper{
		ID: "2501.001", Title: "Robot Planning v1 text",
		Published: testNow().Add(-time.Hour),
		Updated:   testNow().Add(-time.Hour),
	}
	v2 := fetcher.Paper{
		ID: "2501.001", Title: "Robot Planning revised",
		Published: testNow().Add(-time.Hour),
		Updated:   testNow(),
	}

	run := New(cfg).Select(testNow(), staticPool([]fetcher.Paper{v2, v1}), seen.NewSet())

	tr := run.Topics[0]
	if len(tr.Papers) != 1 {
		t.Fatalf("got %d papers, want exactly 1 logical item", len(tr.Papers))
	}
	if tr.Papers[0].Paper.Title != "Robot Planning revised" {
		t.Errorf("kept %q, want the later-updated revision", tr.Papers[0].Paper.Title)
	}
}

func TestOrderingIsDeterministic(t *testing.T) {
	cfg := baseConfig(config.Topic{Name: "Robots", Include: []string{"robot"}})
	same := testNow().Add(-time.Hour)
	pool := []fetcher.Paper{
		paper("idB", "robot beta", same),
		paper("idA", "robot alpha", same),
		paper("idC", "robot alpha", same), // title tie, id breaks it
		paper("newest", "robot newest", testNow()),
	}

	p := New(cfg)
	first := p.Select(testNow(), staticPool(pool), seen.NewSet())
	want := []string{"newest", "idA", "idC", "idB"}
	if got := selectedIDs(first.Topics[0]); !reflect.DeepEqual(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}

	for i := 0; i < 5; i++ {
		again := p.Select(testNow(), staticPool(pool), seen.NewSet())
		if !reflect.DeepEqual(selectedIDs(again.Topics[0]), want) {
			t.Fatal("re-running selection changed the order")
		}
	}
}

func TestCapEnforcement(t *testing.T) {
	cfg := baseConfig(config.Topic{Name: "Robots", Include: []string{"robot"}})
	cfg.MaxPerTopic = 12

	var pool []fetcher.Paper
	for i := 0; i < 50; i++ {
		pool = append(pool, paper(
			string(rune('a'+i%26))+string(rune('a'+i/26)),
			"robot study",
			testNow().Add(-time.Duration(i)*time.Minute),
		))
	}

	run := New(cfg).Select(testNow(), staticPool(pool), seen.NewSet())

	tr := run.Topics[0]
	if len(tr.Papers) != 12 {
		t.Fatalf("selected %d, want exactly 12", len(tr.Papers))
	}
	// All scores tie, so the 12 newest must win.
	for i, s := range tr.Papers {
		want := testNow().Add(-time.Duration(i) * time.Minute)
		if !s.Paper.Published.Equal(want) {
			t.Errorf("paper %d published %v, want %v", i, s.Paper.Published, want)
		}
	}
}

func TestGlobalDedupeModeSuppressesAcrossTopics(t *testing.T) {
	topicA := config.Topic{Name: "A", Include: []string{"robot"}}
	topicB := config.Topic{Name: "B", Include: []string{"robot"}}
	pool := []fetcher.Paper{paper("x", "robot x", testNow())}

	cfg := baseConfig(topicA, topicB)
	cfg.DedupeMode = "global"
	run := New(cfg).Select(testNow(), staticPool(pool), seen.NewSet())
	if len(run.Topics[0].Papers) != 1 {
		t.Error("topic A (processed first) should select x")
	}
	if len(run.Topics[1].Papers) != 0 {
		t.Error("global mode: topic B must not re-select x")
	}

	cfg = baseConfig(topicA, topicB)
	cfg.DedupeMode = "topic"
	run = New(cfg).Select(testNow(), staticPool(pool), seen.NewSet())
	if len(run.Topics[0].Papers) != 1 || len(run.Topics[1].Papers) != 1 {
		t.Error("topic mode: both topics should select x independently")
	}
}

func TestSeenSuppressionModes(t *testing.T) {
	topic := config.Topic{Name: "Robots", Include: []string{"robot"}}
	pool := []fetcher.Paper{paper("x", "robot x", testNow())}
	prior := seen.NewSet("x")

	// Default: previously emitted items never reappear.
	cfg := baseConfig(topic)
	run := New(cfg).Select(testNow(), staticPool(pool), prior)
	if len(run.Topics[0].Papers) != 0 {
		t.Error("suppress_seen on: previously seen item must be dropped")
	}

	// Re-listing variant: only the day window bounds what appears.
	off := false
	cfg = baseConfig(topic)
	cfg.SuppressSeen = &off
	run = New(cfg).Select(testNow(), staticPool(pool), prior)
	if len(run.Topics[0].Papers) != 1 {
		t.Error("suppress_seen off: previously seen item must be re-listed")
	}
}

func TestEmptyTopicProducesEmptyResult(t *testing.T) {
	cfg := baseConfig(config.Topic{Name: "Underwater", Include: []string{"underwater"}})
	pool := []fetcher.Paper{paper("x", "robot x", testNow())}

	run := New(cfg).Select(testNow(), staticPool(pool), seen.NewSet())

	if len(run.Topics) != 1 {
		t.Fatal("topic result must be present even when empty")
	}
	if len(run.Topics[0].Papers) != 0 {
		t.Errorf("expected zero papers, got %d", len(run.Topics[0].Papers))
	}
	if run.TotalSelected() != 0 {
		t.Errorf("TotalSelected = %d, want 0", run.TotalSelected())
	}
}

func TestScoreWeights(t *testing.T) {
	cfg := baseConfig(config.Topic{
		Name:    "Manipulation",
		Include: []string{"manipulation", "grasping"},
		Boost:   []string{"sim-to-real"},
	})
	cfg.GlobalInclude = []string{"robot"}

	p := paper("x", "Robot manipulation and grasping with sim-to-real transfer", testNow())
	run := New(cfg).Select(testNow(), staticPool([]fetcher.Paper{p}), seen.NewSet())

	got := run.Topics[0].Papers[0].Score
	want := 3*1 + 4*2 + 2*1
	if got != want {
		t.Errorf("score = %d, want %d", got, want)
	}
}

func TestBoostNeverGates(t *testing.T) {
	cfg := baseConfig(config.Topic{
		Name:  "Everything",
		Boost: []string{"sim-to-real"},
	})
	pool := []fetcher.Paper{paper("plain", "An Unremarkable Paper", testNow())}

	run := New(cfg).Select(testNow(), staticPool(pool), seen.NewSet())
	if len(run.Topics[0].Papers) != 1 {
		t.Error("boost terms must not act as an include gate")
	}
	if run.Topics[0].Papers[0].Score != 0 {
		t.Errorf("score = %d, want 0", run.Topics[0].Papers[0].Score)
	}
}

func TestMarkSeen(t *testing.T) {
	cfg := baseConfig(config.Topic{Name: "Robots", Include: []string{"robot"}})
	pool := []fetcher.Paper{
		paper("2506.001", "robot one", testNow()),
		paper("2506.002", "robot two", testNow()),
	}

	run := New(cfg).Select(testNow(), staticPool(pool), seen.NewSet())

	set := seen.NewSet("2401.000")
	run.MarkSeen(set, 50000)
	for _, id := range []string{"2401.000", "2506.001", "2506.002"} {
		if !set.Has(id) {
			t.Errorf("seen record missing %s", id)
		}
	}

	capped := seen.NewSet("2401.000")
	run.MarkSeen(capped, 2)
	if capped.Has("2401.000") {
		t.Error("oldest id should be evicted past the cap")
	}
	if !capped.Has("2506.002") {
		t.Error("newest id must survive the cap")
	}
}

func TestMatchScopeTitleOnly(t *testing.T) {
	cfg := baseConfig(config.Topic{Name: "Robots", Include: []string{"robot"}})
	cfg.MatchIn = "title"
	pool := []fetcher.Paper{
		{ID: "abs-only", Title: "Unrelated Title", Abstract: "a robot abstract", Published: testNow(), Updated: testNow()},
		{ID: "in-title", Title: "Robot Title", Published: testNow(), Updated: testNow()},
	}

	run := New(cfg).Select(testNow(), staticPool(pool), seen.NewSet())
	if got := selectedIDs(run.Topics[0]); !reflect.DeepEqual(got, []string{"in-title"}) {
		t.Errorf("selected = %v, want only the title match", got)
	}
}
