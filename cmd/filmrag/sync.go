package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/filmrag/internal/usecase/indexsync"
)

func newSyncCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Rebuild the keyword index and dense vectors from the corpus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(cfg.Sync.TimeoutSec)*time.Second)
			defer cancel()

			a, err := buildApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.sync.Rebuild(ctx)
			printSyncResult(cmd.OutOrStdout(), res)
			if err != nil {
				logger.Error("Sync failed", zap.Error(err))
				return err
			}
			return nil
		},
	}
}

func printSyncResult(w io.Writer, res indexsync.Result) {
	_, _ = fmt.Fprintf(w, "documents: %d\ndense:     %d\nversion:   %s\ntook:      %s\n",
		res.Documents, res.Dense, res.Version, res.Took.Round(time.Millisecond))
}
