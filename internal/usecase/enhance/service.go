// Package enhance rewrites raw film queries before retrieval: noise removal,
// dictionary-driven expansion and optional generative augmentation.
package enhance

import (
	"context"
	"regexp"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/width"

	"github.com/kailas-cloud/filmrag/internal/dictionary"
	"github.com/kailas-cloud/filmrag/internal/metrics"
)

const maxVariants = 3

var (
	// Anything that is not a letter, digit, underscore, space or CJK ideograph.
	noiseRe = regexp.MustCompile(`[^\p{L}\p{N}_\s\x{4e00}-\x{9fff}]`)
	yearRe  = regexp.MustCompile(`(?:19|20)\d{2}`)
)

// Service is safe for concurrent use. The dictionary can be swapped at runtime.
type Service struct {
	dict           atomic.Pointer[dictionary.Dictionary]
	augmenter      Augmenter
	augmentTimeout time.Duration
	logger         *zap.Logger
}

// New creates an enhancer. A nil augmenter disables augmentation.
func New(dict *dictionary.Dictionary, augmenter Augmenter, augmentTimeout time.Duration, logger *zap.Logger) *Service {
	s := &Service{
		augmenter:      augmenter,
		augmentTimeout: augmentTimeout,
		logger:         logger,
	}
	if dict == nil {
		dict = dictionary.Default()
	}
	s.dict.Store(dict)
	return s
}

// SetDictionary swaps the vocabulary used by subsequent calls.
func (s *Service) SetDictionary(d *dictionary.Dictionary) {
	if d == nil {
		return
	}
	s.dict.Store(d)
	s.logger.Info("Query dictionary replaced",
		zap.Int("stop_words", len(d.StopWords)),
		zap.Int("genres", len(d.Genres)),
		zap.Int("quality", len(d.Quality)),
	)
}

// Dictionary returns the vocabulary currently in use.
func (s *Service) Dictionary() *dictionary.Dictionary {
	return s.dict.Load()
}

// Clean folds full-width forms, strips punctuation and removes stop-words,
// including stop-words glued to either end of a token. When nothing survives
// the original (trimmed) query is returned.
func (s *Service) Clean(query string) string {
	d := s.dict.Load()

	folded := width.Fold.String(query)
	folded = noiseRe.ReplaceAllString(folded, " ")

	var kept []string
	for _, tok := range strings.Fields(folded) {
		if t := d.StripStopWords(tok); t != "" {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		return strings.TrimSpace(query)
	}
	return strings.Join(kept, " ")
}

// Expand appends the first synonym of the first matching genre and the terms of
// every matching quality keyword. Terms already present are not repeated.
func (s *Service) Expand(query string) string {
	d := s.dict.Load()

	terms := strings.Fields(query)
	seen := make(map[string]struct{}, len(terms)+2)
	for _, t := range terms {
		seen[t] = struct{}{}
	}
	add := func(t string) {
		if _, dup := seen[t]; dup {
			return
		}
		seen[t] = struct{}{}
		terms = append(terms, t)
	}

	if g, ok := d.MatchGenre(query); ok {
		add(g.Synonyms[0])
	}
	for _, t := range d.MatchQuality(query) {
		add(t)
	}

	expanded := strings.Join(terms, " ")
	if expanded != strings.TrimSpace(query) {
		s.logger.Debug("Query expanded", zap.String("query", query), zap.String("expanded", expanded))
	}
	return expanded
}

// Augment asks the generative capability for a hypothetical answer. Disabled,
// failing, slow or empty augmentation yields "".
func (s *Service) Augment(ctx context.Context, query string) string {
	if s.augmenter == nil || strings.TrimSpace(query) == "" {
		return ""
	}

	if s.augmentTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.augmentTimeout)
		defer cancel()
	}

	text, err := s.augmenter.Augment(ctx, query)
	if err != nil {
		metrics.DependencyFailure("augmenter")
		s.logger.Warn("Query augmentation failed", zap.String("query", query), zap.Error(err))
		return ""
	}
	return strings.TrimSpace(text)
}

// Enhance runs clean, expand (on the cleaned query) and augment (on the original query).
func (s *Service) Enhance(ctx context.Context, query string) string {
	expanded := s.Expand(s.Clean(query))
	if extra := s.Augment(ctx, query); extra != "" {
		expanded = expanded + " " + extra
	}
	return strings.TrimSpace(expanded)
}

// Entities are structured hints found in a query.
type Entities struct {
	Years  []string `json:"years"`
	Genres []string `json:"genres"`
}

// ExtractEntities finds four-digit years and dictionary genres.
func (s *Service) ExtractEntities(query string) Entities {
	d := s.dict.Load()

	e := Entities{Years: yearRe.FindAllString(query, -1)}
	for _, g := range d.MatchGenres(query) {
		e.Genres = append(e.Genres, g.Key)
	}
	return e
}

// Variants returns up to three distinct search strings for multi-path recall:
// the query, its cleaned form and its expanded form.
func (s *Service) Variants(query string) []string {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	out := []string{query}
	for _, v := range []string{s.Clean(query), s.Expand(query)} {
		if v != "" && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out[:min(len(out), maxVariants)]
}
