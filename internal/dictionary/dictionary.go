// Package dictionary holds the film-domain vocabulary used by query enhancement:
// stop-words, genre synonyms and quality keywords.
package dictionary

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Genre maps a genre keyword to its synonyms. Only the first synonym is used for expansion.
type Genre struct {
	Key      string   `yaml:"key"`
	Synonyms []string `yaml:"synonyms"`
}

// Quality maps a quality keyword to exactly one expansion term.
type Quality struct {
	Key  string `yaml:"key"`
	Term string `yaml:"term"`
}

// Dictionary is an immutable vocabulary snapshot. Build it with New, Default or Load.
type Dictionary struct {
	StopWords []string  `yaml:"stop_words"`
	Genres    []Genre   `yaml:"genres"`
	Quality   []Quality `yaml:"quality"`

	stops      map[string]struct{}
	stopsByLen []string
}

// New validates the tables and precomputes lookup structures.
func New(stopWords []string, genres []Genre, quality []Quality) (*Dictionary, error) {
	d := &Dictionary{StopWords: stopWords, Genres: genres, Quality: quality}
	if err := d.compile(); err != nil {
		return nil, err
	}
	return d, nil
}

// Default returns the built-in film vocabulary.
func Default() *Dictionary {
	d, err := New(defaultStopWords, defaultGenres, defaultQuality)
	if err != nil {
		panic(err)
	}
	return d
}

// Load reads a YAML dictionary file.
func Load(path string) (*Dictionary, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read dictionary %s: %w", path, err)
	}

	var d Dictionary
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse dictionary %s: %w", path, err)
	}
	if err := d.compile(); err != nil {
		return nil, fmt.Errorf("dictionary %s: %w", path, err)
	}
	return &d, nil
}

func (d *Dictionary) compile() error {
	for i, g := range d.Genres {
		if g.Key == "" {
			return fmt.Errorf("genres[%d]: key is required", i)
		}
		if len(g.Synonyms) == 0 {
			return fmt.Errorf("genres[%d] %q: at least one synonym is required", i, g.Key)
		}
	}
	for i, q := range d.Quality {
		if q.Key == "" || q.Term == "" {
			return fmt.Errorf("quality[%d]: key and term are required", i)
		}
	}
	if len(d.StopWords) == 0 && len(d.Genres) == 0 && len(d.Quality) == 0 {
		return errors.New("dictionary is empty")
	}

	d.stops = make(map[string]struct{}, len(d.StopWords))
	d.stopsByLen = make([]string, 0, len(d.StopWords))
	for _, w := range d.StopWords {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		if _, dup := d.stops[w]; dup {
			continue
		}
		d.stops[w] = struct{}{}
		d.stopsByLen = append(d.stopsByLen, w)
	}
	// Longest first so that "可以" is peeled before a shorter overlapping entry.
	slices.SortStableFunc(d.stopsByLen, func(a, b string) int {
		return len(b) - len(a)
	})
	return nil
}

// IsStopWord reports whether w is a stop-word.
func (d *Dictionary) IsStopWord(w string) bool {
	_, ok := d.stops[w]
	return ok
}

// StripStopWords peels stop-words glued to either end of token.
// A peel that would cut through a genre or quality keyword is skipped.
// It returns an empty string when the token consists only of stop-words.
func (d *Dictionary) StripStopWords(token string) string {
	for changed := true; changed && token != ""; {
		changed = false
		if d.IsStopWord(token) {
			return ""
		}
		keys := d.keywordsIn(token)
		for _, w := range d.stopsByLen {
			if len(w) >= len(token) {
				continue
			}
			var next string
			switch {
			case strings.HasPrefix(token, w):
				next = token[len(w):]
			case strings.HasSuffix(token, w):
				next = token[:len(token)-len(w)]
			default:
				continue
			}
			if !containsAll(next, keys) {
				continue
			}
			token = next
			changed = true
			break
		}
	}
	return token
}

func (d *Dictionary) keywordsIn(text string) []string {
	var keys []string
	for _, g := range d.Genres {
		if strings.Contains(text, g.Key) {
			keys = append(keys, g.Key)
		}
	}
	for _, q := range d.Quality {
		if strings.Contains(text, q.Key) {
			keys = append(keys, q.Key)
		}
	}
	return keys
}

func containsAll(text string, keys []string) bool {
	for _, k := range keys {
		if !strings.Contains(text, k) {
			return false
		}
	}
	return true
}

// MatchGenre returns the first genre, in table order, whose key occurs in text.
func (d *Dictionary) MatchGenre(text string) (Genre, bool) {
	for _, g := range d.Genres {
		if strings.Contains(text, g.Key) {
			return g, true
		}
	}
	return Genre{}, false
}

// MatchGenres returns every genre whose key occurs in text, in table order.
func (d *Dictionary) MatchGenres(text string) []Genre {
	var out []Genre
	for _, g := range d.Genres {
		if strings.Contains(text, g.Key) {
			out = append(out, g)
		}
	}
	return out
}

// MatchQuality returns the expansion terms of every quality keyword occurring in text.
func (d *Dictionary) MatchQuality(text string) []string {
	var out []string
	for _, q := range d.Quality {
		if strings.Contains(text, q.Key) {
			out = append(out, q.Term)
		}
	}
	return out
}
