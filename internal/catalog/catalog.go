// Package catalog loads the movie records the CLI and TUI mount.
package catalog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
	"gopkg.in/yaml.v3"

	"github.com/justchokingaround/playcore/internal/core"
)

// ErrNotFound is returned for an unknown movie id.
var ErrNotFound = errors.New("movie not found")

type document struct {
	Movies []core.Movie `yaml:"movies"`
}

// Catalog is an immutable, id-indexed list of movies.
type Catalog struct {
	movies []core.Movie
	byID   map[string]int
}

// Load reads a YAML catalog file.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses a YAML catalog. Every movie needs a unique id and a title;
// skip windows must be ordered and inside the duration when it is known.
func Decode(r io.Reader) (*Catalog, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	return New(doc.Movies)
}

// New validates movies and builds a catalog.
func New(movies []core.Movie) (*Catalog, error) {
	c := &Catalog{movies: movies, byID: make(map[string]int, len(movies))}
	var errs []error
	for i, m := range movies {
		id := strings.TrimSpace(m.ID)
		switch {
		case id == "":
			errs = append(errs, fmt.Errorf("movie %d: missing id", i))
			continue
		case strings.TrimSpace(m.Title) == "":
			errs = append(errs, fmt.Errorf("movie %s: missing title", id))
		}
		if _, dup := c.byID[id]; dup {
			errs = append(errs, fmt.Errorf("movie %s: duplicate id", id))
			continue
		}
		if err := validateSkip(m); err != nil {
			errs = append(errs, fmt.Errorf("movie %s: %w", id, err))
		}
		c.byID[id] = i
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return c, nil
}

func validateSkip(m core.Movie) error {
	intro, credits := m.Skip.IntroEnd, m.Skip.CreditsStart
	if intro != nil && *intro < 0 {
		return errors.New("intro_end is negative")
	}
	if credits != nil && *credits < 0 {
		return errors.New("credits_start is negative")
	}
	if intro != nil && credits != nil && *credits <= *intro {
		return errors.New("credits_start is not after intro_end")
	}
	if credits != nil && m.Duration > 0 && *credits >= m.Duration {
		return errors.New("credits_start is past the duration")
	}
	return nil
}

// Len returns the number of movies.
func (c *Catalog) Len() int {
	return len(c.movies)
}

// Get returns the movie with id.
func (c *Catalog) Get(id string) (core.Movie, error) {
	i, ok := c.byID[strings.TrimSpace(id)]
	if !ok {
		return core.Movie{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return c.movies[i], nil
}

// All returns the movies sorted by title.
func (c *Catalog) All() []core.Movie {
	out := append([]core.Movie(nil), c.movies...)
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Title) < strings.ToLower(out[j].Title)
	})
	return out
}

type titles []core.Movie

func (t titles) String(i int) string { return t[i].Title }
func (t titles) Len() int            { return len(t) }

// Search fuzzy-matches query against titles, best match first. An empty
// query returns All.
func (c *Catalog) Search(query string) []core.Movie {
	if strings.TrimSpace(query) == "" {
		return c.All()
	}
	matches := fuzzy.FindFrom(query, titles(c.movies))
	out := make([]core.Movie, len(matches))
	for i, m := range matches {
		out[i] = c.movies[m.Index]
	}
	return out
}
