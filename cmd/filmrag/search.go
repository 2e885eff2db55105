package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/filmrag/internal/domain/search/request"
	"github.com/kailas-cloud/filmrag/internal/domain/search/response"
	"github.com/kailas-cloud/filmrag/internal/usecase/enhance"
)

type searchOptions struct {
	topK     int
	noHybrid bool
	noRerank bool
	asJSON   bool
	explain  bool
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	so := &searchOptions{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run one query against the corpus and print the ranked films",
		Example: `  filmrag search "想看诺兰的科幻电影"
  filmrag search --top-k 5 --no-rerank --json "2010年 高分 悬疑片"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx := cmd.Context()
			a, err := buildApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.warmSparse(ctx); err != nil {
				logger.Warn("Keyword index unavailable, dense only", zap.Error(err))
			}

			req, err := request.New(strings.Join(args, " "), so.topK, !so.noHybrid, !so.noRerank)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if so.explain && a.enhancer != nil {
				printExplain(out, a.enhancer.ExtractEntities(req.Query()), a.enhancer.Variants(req.Query()))
			}

			resp, err := a.search.Search(ctx, &req)
			if err != nil {
				return err
			}
			return printResults(out, resp, so.asJSON)
		},
	}

	f := cmd.Flags()
	f.IntVarP(&so.topK, "top-k", "k", 0, "number of results (default 10)")
	f.BoolVar(&so.noHybrid, "no-hybrid", false, "skip keyword retrieval and fusion")
	f.BoolVar(&so.noRerank, "no-rerank", false, "skip cross-encoder reranking")
	f.BoolVar(&so.asJSON, "json", false, "print the response as JSON")
	f.BoolVar(&so.explain, "explain", false, "print extracted entities and query variants")
	return cmd
}

func printExplain(w io.Writer, e enhance.Entities, variants []string) {
	_, _ = fmt.Fprintf(w, "years:    %s\n", strings.Join(e.Years, ", "))
	_, _ = fmt.Fprintf(w, "genres:   %s\n", strings.Join(e.Genres, ", "))
	for i, v := range variants {
		_, _ = fmt.Fprintf(w, "variant%d: %s\n", i+1, v)
	}
	_, _ = fmt.Fprintln(w)
}

// printResults writes either the JSON response or one line per film.
func printResults(w io.Writer, resp response.Response, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(resp)
	}

	if resp.EnhancedQuery != "" {
		_, _ = fmt.Fprintf(w, "enhanced: %s\n", resp.EnhancedQuery)
	}
	if len(resp.Results) == 0 {
		_, err := fmt.Fprintln(w, "no results")
		return err
	}
	for i, it := range resp.Results {
		score := it.Score
		if it.RerankScore != nil {
			score = *it.RerankScore
		}
		if _, err := fmt.Fprintf(w, "%2d. [%d] %s  %.4f (%s)\n", i+1, it.FilmID, it.Title, score, it.Source); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%d results in %dms (cached=%t)\n", len(resp.Results), resp.TookMs, resp.Cached)
	return err
}
