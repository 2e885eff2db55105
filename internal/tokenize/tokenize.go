// Package tokenize segments film text into index terms.
package tokenize

import (
	"fmt"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/lang/cjk"
	"github.com/blevesearch/bleve/v2/registry"
)

// Tokenizer splits text into terms. The same tokenizer must be used at build and query time.
type Tokenizer interface {
	Tokenize(text string) []string
}

// CJK tokenizes with the bleve cjk analyzer: unicode word segmentation,
// full-width folding, lower-casing and CJK bigrams.
type CJK struct {
	analyzer analysis.Analyzer
}

// NewCJK resolves the cjk analyzer from the bleve registry.
func NewCJK() (*CJK, error) {
	cache := registry.NewCache()
	a, err := cache.AnalyzerNamed(cjk.AnalyzerName)
	if err != nil {
		return nil, fmt.Errorf("load %s analyzer: %w", cjk.AnalyzerName, err)
	}
	return &CJK{analyzer: a}, nil
}

// Tokenize returns the analyzed terms of text in stream order.
func (c *CJK) Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	stream := c.analyzer.Analyze([]byte(text))
	terms := make([]string, 0, len(stream))
	for _, tok := range stream {
		if len(tok.Term) == 0 {
			continue
		}
		terms = append(terms, string(tok.Term))
	}
	return terms
}
