package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/filmrag/internal/config"
	logpkg "github.com/kailas-cloud/filmrag/internal/logger"
	"github.com/kailas-cloud/filmrag/internal/version"
)

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	env        string
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "filmrag",
		Short: "Hybrid keyword and vector retrieval over a film catalogue",
		Long: `filmrag answers natural-language film queries by fusing BM25 keyword
search with dense vector search, optionally re-scored by a cross-encoder.

Run 'filmrag serve' for the HTTP API or 'filmrag search' for a one-shot query.`,
		Version:      version.Version,
		SilenceUsage: true,
	}
	cmd.SetVersionTemplate("filmrag version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&opts.env, "env", config.GetEnv(), "environment: local, dev, docker, prod")
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default config/<env>.yaml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override logging.level")

	cmd.AddCommand(
		newServeCmd(opts),
		newSyncCmd(opts),
		newSearchCmd(opts),
		newImportCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// load reads the configuration and builds the logger.
func (o *rootOptions) load() (config.Config, *zap.Logger, error) {
	var (
		cfg config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFile(o.configPath)
	} else {
		cfg, err = config.Load(o.env)
	}
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}

	level := cfg.Logging.Level
	if o.logLevel != "" {
		level = o.logLevel
	}
	logger, err := logpkg.NewLogger(o.env, level)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("create logger: %w", err)
	}
	return cfg, logger, nil
}
