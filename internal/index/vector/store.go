// Package vector is an in-process dense store backed by an HNSW graph.
// It serves the dense retrieval path when no Redis search module is available.
package vector

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/coder/hnsw"

	"github.com/kailas-cloud/filmrag/internal/domain/film"
	"github.com/kailas-cloud/filmrag/internal/domain/search/candidate"
)

// Compaction thresholds. Replaced documents are orphaned in the graph and the
// graph is rebuilt from live vectors once orphans exceed both limits.
const (
	compactRatio      = 0.2
	compactMinOrphans = 32
)

type entry struct {
	doc film.Document
	vec []float32
}

// Store keeps normalized vectors in an HNSW graph keyed by internal ids.
type Store struct {
	mu       sync.RWMutex
	graph    *hnsw.Graph[uint64]
	dims     int
	m        int
	efSearch int
	keys     map[int64]uint64
	live     map[uint64]entry
	nextKey  uint64
}

// New creates an empty store for vectors of the given dimension.
func New(dims, m, efSearch int) *Store {
	s := &Store{
		dims:     dims,
		m:        m,
		efSearch: efSearch,
		keys:     make(map[int64]uint64),
		live:     make(map[uint64]entry),
	}
	s.graph = s.newGraph()
	return s
}

func (s *Store) newGraph() *hnsw.Graph[uint64] {
	g := hnsw.NewGraph[uint64]()
	g.Distance = hnsw.CosineDistance
	if s.m > 0 {
		g.M = s.m
	}
	if s.efSearch > 0 {
		g.EfSearch = s.efSearch
	}
	return g
}

// Upsert inserts or replaces documents with their vectors.
func (s *Store) Upsert(ctx context.Context, docs []film.Document, vectors [][]float32) error {
	if len(docs) != len(vectors) {
		return fmt.Errorf("docs and vectors length mismatch: %d vs %d", len(docs), len(vectors))
	}
	for i, v := range vectors {
		if len(v) != s.dims {
			return fmt.Errorf("document %d: dimension mismatch: expected %d, got %d", docs[i].ID(), s.dims, len(v))
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, d := range docs {
		if old, ok := s.keys[d.ID()]; ok {
			delete(s.live, old)
		}
		key := s.nextKey
		s.nextKey++

		vec := normalize(vectors[i])
		s.graph.Add(hnsw.MakeNode(key, vec))
		s.keys[d.ID()] = key
		s.live[key] = entry{doc: d, vec: vec}
	}

	if s.needsCompaction() {
		s.compact()
	}
	return nil
}

// Stats describes graph occupancy.
type Stats struct {
	Live       int // documents reachable by Search
	GraphNodes int // nodes in the graph, orphans included
	Orphans    int
}

// Stats returns the current occupancy.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := s.graph.Len()
	return Stats{Live: len(s.live), GraphNodes: n, Orphans: n - len(s.live)}
}

func (s *Store) needsCompaction() bool {
	total := s.graph.Len()
	orphans := total - len(s.live)
	return orphans >= compactMinOrphans && float64(orphans) > compactRatio*float64(total)
}

// compact rebuilds the graph from live entries. Callers hold the write lock.
func (s *Store) compact() {
	g := s.newGraph()
	nodes := make([]hnsw.Node[uint64], 0, len(s.live))
	for key, e := range s.live {
		nodes = append(nodes, hnsw.MakeNode(key, e.vec))
	}
	if len(nodes) > 0 {
		g.Add(nodes...)
	}
	s.graph = g
}

// Search returns up to topK documents by descending cosine similarity.
func (s *Store) Search(ctx context.Context, vec []float32, topK int) ([]candidate.Candidate, error) {
	if len(vec) != s.dims {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", s.dims, len(vec))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if topK <= 0 || len(s.live) == 0 {
		return nil, nil
	}

	q := normalize(vec)
	// Orphaned nodes may take result slots.
	k := min(topK+s.graph.Len()-len(s.live), s.graph.Len())
	nodes := s.graph.Search(q, k)

	out := make([]candidate.Candidate, 0, topK)
	for _, n := range nodes {
		e, ok := s.live[n.Key]
		if !ok {
			continue
		}
		d := e.doc
		sim := 1 - float64(hnsw.CosineDistance(q, n.Value))
		out = append(out, candidate.New(d.ID(), d.Title(), d.Text(), math.Max(sim, 0), candidate.Dense))
		if len(out) == topK {
			break
		}
	}
	return out, nil
}

// Len returns the number of live documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.live)
}

// HealthCheck always succeeds for the in-process store.
func (s *Store) HealthCheck(context.Context) error { return nil }

func normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)

	var sum float64
	for _, x := range out {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return out
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range out {
		out[i] *= inv
	}
	return out
}
