package dub

import (
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
)

// StatusCompleted is the only track status that can be selected.
const StatusCompleted = "completed"

// Track describes one dubbed audio track of a movie.
type Track struct {
	ID           string `json:"id" yaml:"id"`
	LanguageCode string `json:"language_code" yaml:"language_code"`
	LanguageName string `json:"language_name" yaml:"language_name"`
	Status       string `json:"status" yaml:"status"`
}

// Selectable reports whether the track finished processing.
func (t Track) Selectable() bool {
	return strings.EqualFold(t.Status, StatusCompleted)
}

// Label is the human readable name shown in track pickers.
func (t Track) Label() string {
	switch {
	case t.LanguageName != "" && t.LanguageCode != "":
		return fmt.Sprintf("%s (%s)", t.LanguageName, t.LanguageCode)
	case t.LanguageName != "":
		return t.LanguageName
	default:
		return t.LanguageCode
	}
}

// Catalog is the dubbed track list supplied with a movie.
type Catalog []Track

// Selectable returns the completed tracks in catalog order.
func (c Catalog) Selectable() Catalog {
	var out Catalog
	for _, t := range c {
		if t.Selectable() {
			out = append(out, t)
		}
	}
	return out
}

// Find returns the track with id.
func (c Catalog) Find(id string) (Track, bool) {
	for _, t := range c {
		if t.ID == id {
			return t, true
		}
	}
	return Track{}, false
}

// ByLanguage returns the first selectable track in the given language.
func (c Catalog) ByLanguage(code string) (Track, bool) {
	if code == "" {
		return Track{}, false
	}
	for _, t := range c {
		if t.Selectable() && strings.EqualFold(t.LanguageCode, code) {
			return t, true
		}
	}
	return Track{}, false
}

// String implements fuzzy.Source
func (c Catalog) String(i int) string {
	return c[i].Label()
}

// Len implements fuzzy.Source
func (c Catalog) Len() int {
	return len(c)
}

// Search fuzzy matches query against the selectable tracks' labels, best
// match first. An empty query returns every selectable track.
func (c Catalog) Search(query string) Catalog {
	selectable := c.Selectable()
	query = strings.TrimSpace(query)
	if query == "" {
		return selectable
	}

	matches := fuzzy.FindFrom(query, selectable)
	out := make(Catalog, 0, len(matches))
	for _, m := range matches {
		out = append(out, selectable[m.Index])
	}
	return out
}
