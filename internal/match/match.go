package match

import (
	"regexp"
	"strings"
)

var whitespace = regexp.MustCompile(`\s+`)

// Normalize lowercases text, collapses whitespace runs to single spaces and
// trims. Match text must be normalized before being handed to a Matcher.
func Normalize(text string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(strings.ToLower(text), " "))
}

// A term containing a space or hyphen is a phrase and matches as a literal
// substring; anything else is a token and matches at word boundaries only.
type term struct {
	raw    string
	phrase string
	token  *regexp.Regexp
}

func (t term) matches(text string) bool {
	if t.token != nil {
		return t.token.MatchString(text)
	}
	return strings.Contains(text, t.phrase)
}

// Matcher holds a compiled set of keyword terms. Matching is case-insensitive
// and free of side effects.
type Matcher struct {
	terms []term
}

// Compile builds a Matcher from raw keyword terms. Empty and blank terms are
// discarded.
func Compile(terms []string) *Matcher {
	m := &Matcher{}
	for _, raw := range terms {
		norm := Normalize(raw)
		if norm == "" {
			continue
		}
		if strings.ContainsAny(norm, " -") {
			m.terms = append(m.terms, term{raw: raw, phrase: norm})
			continue
		}
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(norm) + `\b`)
		m.terms = append(m.terms, term{raw: raw, token: re})
	}
	return m
}

// Empty reports whether no usable terms were compiled.
func (m *Matcher) Empty() bool {
	return len(m.terms) == 0
}

// MatchesAny reports whether at least one compiled term matches text.
func (m *Matcher) MatchesAny(text string) bool {
	for _, t := range m.terms {
		if t.matches(text) {
			return true
		}
	}
	return false
}

// Count returns the number of distinct terms that match text at least once.
// Repeated occurrences of the same term count once.
func (m *Matcher) Count(text string) int {
	n := 0
	for _, t := range m.terms {
		if t.matches(text) {
			n++
		}
	}
	return n
}

// Matched returns the original form of every term that matches text, in
// compile order.
func (m *Matcher) Matched(text string) []string {
	var hits []string
	for _, t := range m.terms {
		if t.matches(text) {
			hits = append(hits, t.raw)
		}
	}
	return hits
}
