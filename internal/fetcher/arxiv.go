package fetcher

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/rkanno/arxiv-daily/internal/retry"
)

// arXiv Atom feed XML structures

type arxivFeed struct {
	XMLName xml.Name     `xml:"feed"`
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID              string          `xml:"id"`
	Title           string          `xml:"title"`
	Summary         string          `xml:"summary"`
	Authors         []arxivAuthor   `xml:"author"`
	Links           []arxivLink     `xml:"link"`
	Published       string          `xml:"published"`
	Updated         string          `xml:"updated"`
	PrimaryCategory arxivCategory   `xml:"primary_category"`
	Categories      []arxivCategory `xml:"category"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

type arxivLink struct {
	Href string `xml:"href,attr"`
	Type string `xml:"type,attr"`
	Rel  string `xml:"rel,attr"`
}

type arxivCategory struct {
	Term string `xml:"term,attr"`
}

// ArxivFetcher fetches papers from the arXiv API. Requests are rate limited
// (arXiv asks for no more than one request every few seconds) and responses
// are cached per query so topics sharing a pool hit the network once per run.
type ArxivFetcher struct {
	client   *http.Client
	baseURL  string
	limiter  *rate.Limiter
	cache    *gocache.Cache
	retryCfg retry.Config
	now      func() time.Time
}

// Option configures an ArxivFetcher.
type Option func(*ArxivFetcher)

// WithBaseURL overrides the API endpoint, mainly for tests.
func WithBaseURL(u string) Option {
	return func(f *ArxivFetcher) { f.baseURL = u }
}

// WithRetry sets the retry policy applied around each request.
func WithRetry(cfg retry.Config) Option {
	return func(f *ArxivFetcher) { f.retryCfg = cfg }
}

// WithRateLimit replaces the default one-request-per-3s limiter.
func WithRateLimit(l *rate.Limiter) Option {
	return func(f *ArxivFetcher) { f.limiter = l }
}

func NewArxivFetcher(opts ...Option) *ArxivFetcher {
	f := &ArxivFetcher{
		client:   &http.Client{Timeout: 30 * time.Second},
		baseURL:  "https://export.arxiv.org/api/query",
		limiter:  rate.NewLimiter(rate.Every(3*time.Second), 1),
		cache:    gocache.New(10*time.Minute, 15*time.Minute),
		retryCfg: retry.DefaultConfig(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *ArxivFetcher) Fetch(ctx context.Context, query string, maxResults int) ([]Paper, error) {
	cacheKey := fmt.Sprintf("%s|%d", query, maxResults)
	if cached, ok := f.cache.Get(cacheKey); ok {
		return cached.([]Paper), nil
	}

	var papers []Paper
	err := retry.Do(ctx, f.retryCfg, func(ctx context.Context) error {
		var err error
		papers, err = f.fetchOnce(ctx, query, maxResults)
		return err
	})
	if err != nil {
		return nil, err
	}

	f.cache.SetDefault(cacheKey, papers)
	return papers, nil
}

func (f *ArxivFetcher) fetchOnce(ctx context.Context, query string, maxResults int) ([]Paper, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("search_query", query)
	params.Set("start", "0")
	params.Set("max_results", fmt.Sprintf("%d", maxResults))
	params.Set("sortBy", "submittedDate")
	params.Set("sortOrder", "descending")

	reqURL := fmt.Sprintf("%s?%s", f.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("arxiv: failed to create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arxiv: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("arxiv: failed to read response: %w", err)
	}

	var feed arxivFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("arxiv: failed to parse XML: %w", err)
	}

	now := f.now().UTC()
	papers := make([]Paper, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		papers = append(papers, f.toPaper(entry, now))
	}
	return papers, nil
}

func (f *ArxivFetcher) toPaper(entry arxivEntry, now time.Time) Paper {
	absURL := strings.Replace(strings.TrimSpace(entry.ID), "http://", "https://", 1)
	rawID := absURL
	if i := strings.LastIndex(absURL, "/"); i >= 0 {
		rawID = absURL[i+1:]
	}

	// A missing or malformed timestamp falls back to fetch time; papers are
	// never dropped for an unparsable date.
	published, err := time.Parse(time.RFC3339, entry.Published)
	if err != nil {
		published = now
	}
	updated, err := time.Parse(time.RFC3339, entry.Updated)
	if err != nil {
		updated = now
	}

	authors := make([]string, 0, len(entry.Authors))
	for _, a := range entry.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			authors = append(authors, name)
		}
	}

	var pdfURL string
	for _, link := range entry.Links {
		if link.Type == "application/pdf" {
			pdfURL = strings.Replace(link.Href, "http://", "https://", 1)
			break
		}
	}
	if pdfURL == "" && absURL != "" {
		pdfURL = strings.Replace(absURL, "/abs/", "/pdf/", 1)
	}

	categories := make([]string, 0, len(entry.Categories))
	for _, c := range entry.Categories {
		if c.Term != "" {
			categories = append(categories, c.Term)
		}
	}
	primary := entry.PrimaryCategory.Term
	if primary == "" && len(categories) > 0 {
		primary = categories[0]
	}

	return Paper{
		ID:              BaseID(rawID),
		Title:           strings.Join(strings.Fields(entry.Title), " "),
		Abstract:        strings.Join(strings.Fields(entry.Summary), " "),
		Authors:         authors,
		URL:             absURL,
		PDFURL:          pdfURL,
		Published:       published.UTC(),
		Updated:         updated.UTC(),
		PrimaryCategory: primary,
		Categories:      categories,
	}
}
