// Package cli implements the narratives command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ibeckermayer/narratives/internal/config"
	"github.com/ibeckermayer/narratives/internal/logging"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

// NewRootCmd returns the root command with every subcommand attached
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "narratives",
		Short: "Find and follow the dominant narratives in social media posts",
		Long: `narratives ranks posts by how central they are to a collection (FastLexRank),
extracts the reply trees around anchor posts, and optionally classifies their
narratives, reply-chain stance and cross-platform links with an LLM.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default is the per-user config.toml)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug|info|warn|error (overrides config)")

	rootCmd.AddCommand(newAnalyzeCmd(opts))
	rootCmd.AddCommand(newRankCmd(opts))
	rootCmd.AddCommand(newTreeCmd(opts))
	rootCmd.AddCommand(newScheduleCmd(opts))
	rootCmd.AddCommand(newOpenCmd(opts))
	rootCmd.AddCommand(newConfigCmd(opts))
	rootCmd.AddCommand(newExchangesCmd())
	rootCmd.AddCommand(newLastCmd())

	return rootCmd
}

// Execute runs the root command against os.Args
func Execute() error {
	return NewRootCmd().ExecuteContext(context.Background())
}

// loadConfig reads the config file. A missing default config falls back to
// defaults; a missing explicit --config is an error.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err == nil {
		return cfg, nil
	}
	if o.configPath == "" && errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	return nil, fmt.Errorf("failed to load config: %w", err)
}

func (o *rootOptions) logger(cmd *cobra.Command, cfg *config.Config) *logrus.Logger {
	level := cfg.Logging.Level
	if o.logLevel != "" {
		level = o.logLevel
	}
	return logging.NewWithOutput(cmd.ErrOrStderr(), level, cfg.Logging.Format)
}

// resolvedConfigPath is the file the config commands act on
func (o *rootOptions) resolvedConfigPath() (string, error) {
	if o.configPath != "" {
		return o.configPath, nil
	}
	return config.ConfigPath()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
