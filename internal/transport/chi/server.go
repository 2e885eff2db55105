package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/filmrag/internal/domain"
	domfilm "github.com/kailas-cloud/filmrag/internal/domain/film"
	"github.com/kailas-cloud/filmrag/internal/domain/search/request"
	"github.com/kailas-cloud/filmrag/internal/domain/search/response"
	logpkg "github.com/kailas-cloud/filmrag/internal/logger"
	"github.com/kailas-cloud/filmrag/internal/repository/cache"
	gen "github.com/kailas-cloud/filmrag/internal/transport/generated"
	healthuc "github.com/kailas-cloud/filmrag/internal/usecase/health"
	"github.com/kailas-cloud/filmrag/internal/usecase/indexsync"
	searchuc "github.com/kailas-cloud/filmrag/internal/usecase/search"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Syncer rebuilds the indexes from the corpus.
type Syncer interface {
	Rebuild(ctx context.Context) (indexsync.Result, error)
}

// FilmReader serves film details.
type FilmReader interface {
	Get(ctx context.Context, id int64) (domfilm.Film, error)
	GetMany(ctx context.Context, ids []int64) ([]domfilm.Film, error)
}

// CacheAdmin exposes cache maintenance.
type CacheAdmin interface {
	ClearAll(ctx context.Context) int
	ClearNamespace(ctx context.Context, ns cache.Namespace) int
	Stats() cache.Stats
}

// Server implements generated.ServerInterface for the oapi-codegen chi router.
type Server struct {
	gen.Unimplemented
	search        searchuc.Searcher
	sync          Syncer
	films         FilmReader
	cache         CacheAdmin
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

var _ gen.ServerInterface = (*Server)(nil)

// NewServer creates an HTTP API server. sync, films and cache may be nil;
// their endpoints then answer 501.
func NewServer(
	search searchuc.Searcher,
	sync Syncer,
	films FilmReader,
	cacheAdmin CacheAdmin,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search: search,
		sync:   sync,
		films:  films,
		cache:  cacheAdmin,
		health: health,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, gen.ErrorResponseCodeValidationFailed),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, gen.ErrorResponseCodeNotFound),
		sentinelHandler(domain.ErrRebuildInProgress, http.StatusConflict, gen.ErrorResponseCodeRebuildInProgress),
		sentinelHandler(domain.ErrCorpusEmpty, http.StatusUnprocessableEntity, gen.ErrorResponseCodeCorpusEmpty),
		sentinelHandler(domain.ErrIndexNotReady,
			http.StatusServiceUnavailable, gen.ErrorResponseCodeDependencyUnavailable),
		sentinelHandler(domain.ErrEmbeddingProviderError,
			http.StatusBadGateway, gen.ErrorResponseCodeDependencyUnavailable),
		sentinelHandler(domain.ErrDependencyUnavailable,
			http.StatusServiceUnavailable, gen.ErrorResponseCodeDependencyUnavailable),
	}
	return s
}

// SearchFilms handles POST /rag/search.
func (s *Server) SearchFilms(w http.ResponseWriter, r *http.Request) {
	var req gen.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, gen.ErrorResponseCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	s.runSearch(w, r, req.Query, req.TopK, req.EnableHybrid, req.EnableRerank)
}

// SearchFilmsGet handles GET /rag/search.
func (s *Server) SearchFilmsGet(w http.ResponseWriter, r *http.Request, params gen.SearchFilmsGetParams) {
	s.runSearch(w, r, derefString(params.Q), params.TopK, params.Hybrid, params.Rerank)
}

func (s *Server) runSearch(w http.ResponseWriter, r *http.Request, query string, topK *int, hybrid, rerank *bool) {
	req, err := request.New(query, derefInt(topK), derefBoolOr(hybrid, true), derefBoolOr(rerank, true))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	resp, err := s.search.Search(r.Context(), &req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponseToGen(&resp))
}

// SyncIndex handles POST /rag/sync.
func (s *Server) SyncIndex(w http.ResponseWriter, r *http.Request) {
	if s.sync == nil {
		s.Unimplemented.SyncIndex(w, r)
		return
	}

	res, err := s.sync.Rebuild(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, syncResultToGen(res, true, "index rebuilt"))
	case res.Documents > 0:
		// Sparse snapshot swapped, dense store lagging.
		logpkg.FromContextOr(r.Context(), s.logger).Warn("Partial index sync", zap.Error(err))
		writeJSON(w, http.StatusOK, syncResultToGen(res, false, "sparse index rebuilt, dense sync failed"))
	default:
		s.handleDomainError(w, r, err)
	}
}

// GetFilm handles GET /films/{id}.
func (s *Server) GetFilm(w http.ResponseWriter, r *http.Request, id gen.FilmId) {
	if s.films == nil {
		s.Unimplemented.GetFilm(w, r, id)
		return
	}

	f, err := s.films.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, filmToGen(&f))
}

// ListFilms handles GET /films?ids=.
func (s *Server) ListFilms(w http.ResponseWriter, r *http.Request, params gen.ListFilmsParams) {
	if s.films == nil {
		s.Unimplemented.ListFilms(w, r, params)
		return
	}

	films, err := s.films.GetMany(r.Context(), params.Ids)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]gen.Film, len(films))
	for i := range films {
		items[i] = filmToGen(&films[i])
	}
	writeJSON(w, http.StatusOK, gen.FilmListResponse{Items: items})
}

// ClearCache handles DELETE /rag/cache.
func (s *Server) ClearCache(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		s.Unimplemented.ClearCache(w, r)
		return
	}

	removed := s.cache.ClearAll(r.Context())
	writeJSON(w, http.StatusOK, gen.CacheClearResponse{Removed: removed})
}

// ClearCacheNamespace handles DELETE /rag/cache/{namespace}.
func (s *Server) ClearCacheNamespace(w http.ResponseWriter, r *http.Request, namespace gen.CacheNamespace) {
	if s.cache == nil {
		s.Unimplemented.ClearCacheNamespace(w, r, namespace)
		return
	}

	ns, ok := namespaceFromGen(namespace)
	if !ok {
		writeError(w, http.StatusBadRequest, gen.ErrorResponseCodeValidationFailed,
			"unknown cache namespace: "+string(namespace))
		return
	}

	removed := s.cache.ClearNamespace(r.Context(), ns)
	writeJSON(w, http.StatusOK, gen.CacheClearResponse{Removed: removed})
}

// GetCacheStats handles GET /rag/cache/stats.
func (s *Server) GetCacheStats(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		s.Unimplemented.GetCacheStats(w, r)
		return
	}

	st := s.cache.Stats()
	resp := gen.CacheStats{
		Connected: st.Connected,
		L1Size:    st.L1Size,
		Namespaces: make(map[string]struct {
			Hits   int64 `json:"hits"`
			Misses int64 `json:"misses"`
		}, len(st.Namespaces)),
	}
	for ns, c := range st.Namespaces {
		resp.Namespaces[ns] = struct {
			Hits   int64 `json:"hits"`
			Misses int64 `json:"misses"`
		}{Hits: c.Hits, Misses: c.Misses}
	}
	writeJSON(w, http.StatusOK, resp)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]gen.HealthResponseChecks, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = gen.HealthResponseChecks(v)
	}

	resp := gen.HealthResponse{
		Status:  gen.HealthResponseStatus(report.Status),
		Checks:  checks,
		Version: report.Version,
	}
	resp.Index.Ready = report.Index.Ready
	resp.Index.Documents = report.Index.Documents
	resp.Index.LastBuildAt = report.Index.LastBuildAt

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, resp)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// ParamErrorHandler answers parameter binding failures with a JSON 400.
func ParamErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	msg := "invalid request"
	var (
		invalid  *gen.InvalidParamFormatError
		required *gen.RequiredParamError
	)
	switch {
	case errors.As(err, &invalid):
		msg = "invalid parameter: " + invalid.ParamName
	case errors.As(err, &required):
		msg = "missing parameter: " + required.ParamName
	}
	writeError(w, http.StatusBadRequest, gen.ErrorResponseCodeBadRequest, msg)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code gen.ErrorResponseCode, message string) {
	writeJSON(w, status, gen.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a client-facing message without exposing internals.
// Validation errors carry their detail since it describes the caller's input.
func safeDomainMessage(err error) string {
	if errors.Is(err, domain.ErrInvalidRequest) {
		return err.Error()
	}
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrRebuildInProgress,
		domain.ErrCorpusEmpty,
		domain.ErrIndexNotReady,
		domain.ErrEmbeddingProviderError,
		domain.ErrDependencyUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code gen.ErrorResponseCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logpkg.FromContextOr(r.Context(), s.logger)
	logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, gen.ErrorResponseCodeInternalError, "internal error")
}

func searchResponseToGen(resp *response.Response) gen.SearchResponse {
	items := make([]gen.SearchResultItem, len(resp.Results))
	for i, it := range resp.Results {
		items[i] = gen.SearchResultItem{
			FilmId:      it.FilmID,
			Title:       it.Title,
			Content:     it.Content,
			Score:       it.Score,
			RerankScore: it.RerankScore,
			Source:      gen.SearchResultItemSource(it.Source),
		}
	}
	out := gen.SearchResponse{
		Results: items,
		Query:   resp.Query,
		TookMs:  resp.TookMs,
		Cached:  resp.Cached,
	}
	if resp.EnhancedQuery != "" {
		eq := resp.EnhancedQuery
		out.EnhancedQuery = &eq
	}
	return out
}

func syncResultToGen(res indexsync.Result, ok bool, msg string) gen.SyncResponse {
	out := gen.SyncResponse{
		Success:      ok,
		Count:        res.Documents,
		DenseIndexed: &res.Dense,
		Message:      msg,
	}
	if res.Version != "" {
		out.Version = &res.Version
	}
	return out
}

func filmToGen(f *domfilm.Film) gen.Film {
	return gen.Film{
		Id:          f.ID,
		Title:       f.Title,
		Description: optString(f.Description),
		Category:    optString(f.Category),
		Region:      optString(f.Region),
		Director:    optString(f.Director),
		Actors:      optString(f.Actors),
		CoverUrl:    optString(f.CoverURL),
		Year:        optInt(f.Year),
		Rating:      optFloat(f.Rating),
	}
}

func namespaceFromGen(ns gen.CacheNamespace) (cache.Namespace, bool) {
	for _, n := range cache.Namespaces {
		if string(n) == string(ns) {
			return n, true
		}
	}
	return "", false
}

func optString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func optInt(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}

func optFloat(v float64) *float64 {
	if v == 0 {
		return nil
	}
	return &v
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func derefBoolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
