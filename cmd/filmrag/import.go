package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/filmrag/internal/domain/film"
	"github.com/kailas-cloud/filmrag/internal/repository/corpus"
)

func newImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <films.json>",
		Short: "Upsert films from a JSON array into the corpus",
		Long: `Reads a JSON array of films and upserts them into the catalogue.
Run 'filmrag sync' afterwards to rebuild the indexes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			films, err := readFilms(args[0])
			if err != nil {
				return err
			}

			repo, err := corpus.Open(cfg.Corpus.DSN)
			if err != nil {
				return fmt.Errorf("open corpus: %w", err)
			}
			defer func() { _ = repo.Close() }()

			ctx := cmd.Context()
			if err := repo.EnsureSchema(ctx); err != nil {
				return fmt.Errorf("prepare corpus schema: %w", err)
			}
			if err := repo.Save(ctx, films); err != nil {
				return fmt.Errorf("import: %w", err)
			}

			logger.Info("Imported films", zap.Int("count", len(films)), zap.String("file", args[0]))
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "imported %d films\n", len(films))
			return nil
		},
	}
}

func readFilms(path string) ([]film.Film, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return decodeFilms(f)
}

func decodeFilms(r io.Reader) ([]film.Film, error) {
	var films []film.Film
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&films); err != nil {
		return nil, fmt.Errorf("decode films: %w", err)
	}
	return films, nil
}
