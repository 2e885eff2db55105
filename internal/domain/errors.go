package domain

import "errors"

var (
	// ErrInvalidRequest signals a request that violates the search contract.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNotFound signals a missing film.
	ErrNotFound = errors.New("not found")

	// ErrIndexNotReady signals that the sparse index has no servable snapshot.
	ErrIndexNotReady = errors.New("index not ready")
	// ErrRebuildInProgress signals that another rebuild holds the index.
	ErrRebuildInProgress = errors.New("index rebuild in progress")
	// ErrCorpusEmpty signals that the corpus source returned no films.
	ErrCorpusEmpty = errors.New("corpus is empty")

	// ErrDependencyUnavailable signals a down or timed-out collaborator.
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrScorerUnavailable signals that the relevance scorer cannot serve requests.
	ErrScorerUnavailable = errors.New("relevance scorer unavailable")
)
