package health

import (
	"context"
	"sort"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates that no search path can serve results.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names used in reports.
const (
	ComponentCache     = "cache"
	ComponentCorpus    = "corpus"
	ComponentDense     = "dense"
	ComponentEmbedding = "embedding"
	ComponentReranker  = "reranker"
	ComponentSparse    = "sparse"
)

// IndexHealth describes the served sparse snapshot.
type IndexHealth struct {
	Ready       bool       `json:"ready"`
	LastBuildAt *time.Time `json:"last_build_at,omitempty"`
	Documents   int        `json:"documents"`
}

// Report aggregates health check results.
type Report struct {
	Status  Status                 `json:"status"`
	Checks  map[string]CheckResult `json:"checks"`
	Index   IndexHealth            `json:"index"`
	Version string                 `json:"version"`
}

// Service coordinates health checks. Components not registered are not reported.
type Service struct {
	checkers map[string]Checker
	index    IndexState
	version  string
}

// New creates a Service over the sparse index state.
func New(index IndexState, version string) *Service {
	return &Service{checkers: make(map[string]Checker), index: index, version: version}
}

// Register adds a named component. A nil checker is ignored.
func (s *Service) Register(name string, c Checker) *Service {
	if c != nil {
		s.checkers[name] = c
	}
	return s
}

// Index reports sparse index readiness.
func (s *Service) Index() IndexHealth {
	if s.index == nil {
		return IndexHealth{}
	}
	h := IndexHealth{Documents: s.index.Len()}
	if at := s.index.LastBuildAt(); !at.IsZero() {
		h.Ready = true
		h.LastBuildAt = &at
	}
	return h
}

// Check runs health checks against all components.
// The service is unhealthy only when neither retrieval path can answer.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, len(s.checkers)+1)

	names := make([]string, 0, len(s.checkers))
	for name := range s.checkers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := s.checkers[name].HealthCheck(ctx); err != nil {
			checks[name] = CheckError
		} else {
			checks[name] = CheckOK
		}
	}

	index := s.Index()
	if index.Ready {
		checks[ComponentSparse] = CheckOK
	} else {
		checks[ComponentSparse] = CheckError
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	denseDown := checks[ComponentDense] != CheckOK || checks[ComponentEmbedding] == CheckError
	if !index.Ready && denseDown {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks, Index: index, Version: s.version}
}
