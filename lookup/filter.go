package lookup

import (
	"errors"
	"strings"
)

// ErrNoCandidate is returned when no search result survives the title filter.
var ErrNoCandidate = errors.New("no matching candidate found")

// DefaultExcludedTerms filter out live, official and broadcast variants.
var DefaultExcludedTerms = []string{"official", "show", "stage"}

// Item is one search result as returned by a Provider.
type Item struct {
	RemoteID string `json:"videoId"`
	Title    string `json:"title"`
}

// SelectCandidate returns the first item, in provider order, whose title
// contains none of the excluded terms. Matching is case-insensitive and items
// missing an id or title are skipped.
func SelectCandidate(items []Item, excludedTerms []string) (Item, error) {
	terms := make([]string, 0, len(excludedTerms))
	for _, t := range excludedTerms {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			terms = append(terms, t)
		}
	}

	for _, it := range items {
		if it.RemoteID == "" || it.Title == "" {
			continue
		}
		if !containsAny(strings.ToLower(it.Title), terms) {
			return it, nil
		}
	}
	return Item{}, ErrNoCandidate
}

func containsAny(title string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(title, t) {
			return true
		}
	}
	return false
}
