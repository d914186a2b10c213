package fetcher

import (
	"context"
	"regexp"
	"strings"
	"time"
)

// Paper is one normalized candidate item retrieved from a feed source.
type Paper struct {
	ID              string // version-stripped arXiv id, stable across revisions
	Title           string
	Abstract        string
	Authors         []string
	URL             string
	PDFURL          string
	Published       time.Time // UTC
	Updated         time.Time // UTC
	PrimaryCategory string
	Categories      []string
}

// Fetcher retrieves papers for a query expression from some upstream source.
type Fetcher interface {
	Fetch(ctx context.Context, query string, maxResults int) ([]Paper, error)
}

var versionSuffix = regexp.MustCompile(`v\d+$`)

// BaseID strips a trailing revision suffix ("2501.00123v2" -> "2501.00123")
// so that revisions of the same paper share one identity.
func BaseID(id string) string {
	return versionSuffix.ReplaceAllString(id, "")
}

// MatchText assembles the text an item is matched against, per the configured
// scope ("title", "abstract" or "title+abstract").
func (p Paper) MatchText(scope string) string {
	switch scope {
	case "title":
		return p.Title
	case "abstract":
		return p.Abstract
	default:
		return p.Title + " " + p.Abstract
	}
}

// InCategories reports whether the paper carries any of the allowed category
// labels. An empty allow-list admits everything.
func (p Paper) InCategories(allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, cat := range allowed {
		if strings.EqualFold(p.PrimaryCategory, cat) {
			return true
		}
		for _, tag := range p.Categories {
			if strings.EqualFold(tag, cat) {
				return true
			}
		}
	}
	return false
}
