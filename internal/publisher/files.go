package publisher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rkanno/arxiv-daily/internal/config"
	"github.com/rkanno/arxiv-daily/internal/pipeline"
)

const (
	beginToday = "<!-- BEGIN TODAY -->"
	endToday   = "<!-- END TODAY -->"
)

// FilesPublisher writes the static site: one dated digest per run, one page
// per topic, and a "Today" block spliced into the README.
type FilesPublisher struct {
	digestDir  string
	topicsDir  string
	readmePath string
}

func NewFilesPublisher(out config.Output) *FilesPublisher {
	return &FilesPublisher{
		digestDir:  out.DigestDir,
		topicsDir:  out.TopicsDir,
		readmePath: out.ReadmePath,
	}
}

func (p *FilesPublisher) Publish(_ context.Context, run *pipeline.Run) error {
	day := run.Date.Format("2006-01-02")

	digestPath, err := p.writeDigest(day, run)
	if err != nil {
		return err
	}
	topicPaths, err := p.writeTopicPages(day, run)
	if err != nil {
		return err
	}
	return p.updateReadme(day, digestPath, run, topicPaths)
}

func (p *FilesPublisher) writeDigest(day string, run *pipeline.Run) (string, error) {
	if err := os.MkdirAll(p.digestDir, 0o755); err != nil {
		return "", fmt.Errorf("publisher: failed to create %s: %w", p.digestDir, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Daily Digest — %s\n\n", day)
	b.WriteString("Auto-generated from arXiv using topic keyword filters.\n")
	b.WriteString("> Edit the config file to adjust topics/keywords and limits.\n\n")

	for _, tr := range run.Topics {
		fmt.Fprintf(&b, "## %s\n\n", tr.Topic)
		if len(tr.Papers) == 0 {
			b.WriteString("_No matches today._\n\n")
			continue
		}
		for _, s := range tr.Papers {
			b.WriteString(formatPaper(s))
		}
		b.WriteString("\n")
	}

	path := filepath.Join(p.digestDir, day+".md")
	if err := os.WriteFile(path, []byte(strings.TrimSpace(b.String())+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("publisher: failed to write digest: %w", err)
	}
	return path, nil
}

func (p *FilesPublisher) writeTopicPages(day string, run *pipeline.Run) (map[string]string, error) {
	if err := os.MkdirAll(p.topicsDir, 0o755); err != nil {
		return nil, fmt.Errorf("publisher: failed to create %s: %w", p.topicsDir, err)
	}

	paths := make(map[string]string, len(run.Topics))
	for _, tr := range run.Topics {
		path := filepath.Join(p.topicsDir, tr.Slug+".md")
		paths[tr.Slug] = path

		var b strings.Builder
		fmt.Fprintf(&b, "# %s\n\n", tr.Topic)
		fmt.Fprintf(&b, "**Last update:** %s\n\n", day)
		b.WriteString("> Auto-generated. Edit the config file to change keywords/topics.\n\n")

		if len(tr.Papers) == 0 {
			b.WriteString("_No matches today._\n")
		} else {
			b.WriteString("## Latest\n\n")
			for _, s := range tr.Papers {
				b.WriteString(formatPaper(s))
			}
		}

		b.WriteString("\n---\n\n")
		fmt.Fprintf(&b, "Back to main page: [README](%s)\n", p.relToTopics(p.readmePath))

		if err := os.WriteFile(path, []byte(strings.TrimSpace(b.String())+"\n"), 0o644); err != nil {
			return nil, fmt.Errorf("publisher: failed to write topic page %s: %w", path, err)
		}
	}
	return paths, nil
}

var todayBlock = regexp.MustCompile(`(?s)` + regexp.QuoteMeta(beginToday) + `.*?` + regexp.QuoteMeta(endToday))

func (p *FilesPublisher) updateReadme(day, digestPath string, run *pipeline.Run, topicPaths map[string]string) error {
	var b strings.Builder
	b.WriteString("## Today\n\n")
	fmt.Fprintf(&b, "**Last update:** %s  \n", day)
	fmt.Fprintf(&b, "**Daily archive:** `%s`  \n\n", p.relToReadme(digestPath))
	b.WriteString("_Auto-generated. Edit the config file to change topics/keywords._\n\n")

	b.WriteString("### Browse by topic\n\n")
	for _, tr := range run.Topics {
		fmt.Fprintf(&b, "- **[%s](%s)** (%d)\n", tr.Topic, p.relToReadme(topicPaths[tr.Slug]), len(tr.Papers))
	}
	b.WriteString("\n")

	for _, tr := range run.Topics {
		fmt.Fprintf(&b, "### %s\n\n", tr.Topic)
		if len(tr.Papers) == 0 {
			b.WriteString("_No matches today._\n\n")
			continue
		}
		preview := tr.Papers
		if len(preview) > 3 {
			preview = preview[:3]
		}
		for _, s := range preview {
			b.WriteString(formatPaper(s))
		}
		fmt.Fprintf(&b, "- _(See full topic page: [%s](%s))_\n\n", tr.Topic, p.relToReadme(topicPaths[tr.Slug]))
	}

	block := beginToday + "\n" + strings.TrimSpace(b.String()) + "\n" + endToday

	original, err := os.ReadFile(p.readmePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("publisher: failed to read %s: %w", p.readmePath, err)
		}
		content := fmt.Sprintf("# arXiv Daily\n\n%s\n", block)
		if err := os.WriteFile(p.readmePath, []byte(content), 0o644); err != nil {
			return fmt.Errorf("publisher: failed to write %s: %w", p.readmePath, err)
		}
		return nil
	}

	var updated string
	if todayBlock.Match(original) {
		updated = todayBlock.ReplaceAllString(string(original), block)
	} else {
		updated = strings.TrimRight(string(original), "\n") + "\n\n" + block + "\n"
	}

	if err := os.WriteFile(p.readmePath, []byte(updated), 0o644); err != nil {
		return fmt.Errorf("publisher: failed to write %s: %w", p.readmePath, err)
	}
	return nil
}

// relToReadme makes a path linkable from the README's directory.
func (p *FilesPublisher) relToReadme(path string) string {
	return relTo(filepath.Dir(p.readmePath), path)
}

// relToTopics makes a path linkable from a topic page.
func (p *FilesPublisher) relToTopics(path string) string {
	return relTo(p.topicsDir, path)
}

func relTo(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func formatPaper(s pipeline.Scored) string {
	paper := s.Paper

	authors := paper.Authors
	etAl := ""
	if len(authors) > 8 {
		authors = authors[:8]
		etAl = " et al."
	}

	cat := paper.PrimaryCategory
	if cat == "" {
		cat = "unknown"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "- **%s**\n", paper.Title)
	fmt.Fprintf(&b, "  - Authors: %s%s\n", strings.Join(authors, ", "), etAl)
	fmt.Fprintf(&b, "  - Published: %s | Category: `%s`\n", paper.Published.Format("2006-01-02"), cat)
	fmt.Fprintf(&b, "  - Links: [arXiv](%s) | [PDF](%s)\n", paper.URL, paper.PDFURL)

	matched := s.Matched
	if len(matched) > 8 {
		matched = matched[:8]
	}
	if len(matched) > 0 {
		fmt.Fprintf(&b, "  - Matched: %s\n", strings.Join(matched, ", "))
	}
	return b.String()
}
