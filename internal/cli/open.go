package cli

import (
	"fmt"

	"github.com/pkg/browser"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ibeckermayer/narratives/internal/app"
	"github.com/ibeckermayer/narratives/internal/config"
	"github.com/ibeckermayer/narratives/internal/pipeline"
)

// openFile is swapped out in tests
var openFile = browser.OpenFile

// noPipeline skips pipeline construction for commands that only read outputs
func noPipeline(*config.Config, logrus.FieldLogger) (*pipeline.Pipeline, error) {
	return nil, nil
}

func newOpenCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "open <config|cache|report>",
		Short:     "Open the config file, cache directory or latest report",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"config", "cache", "report"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				path string
				err  error
			)

			switch args[0] {
			case "config":
				path, err = root.resolvedConfigPath()
			case "cache":
				path, err = config.CacheDir()
			case "report":
				cfg, lerr := root.loadConfig()
				if lerr != nil {
					return lerr
				}
				a, err := app.New(cfg, app.Options{
					Logger: root.logger(cmd, cfg),
					Build:  noPipeline,
					Open:   openFile,
				})
				if err != nil {
					return err
				}
				return a.ViewLastReport()
			default:
				return fmt.Errorf("unknown target: %s", args[0])
			}
			if err != nil {
				return fmt.Errorf("failed to get path: %w", err)
			}

			if err := openFile(path); err != nil {
				return fmt.Errorf("failed to open %s: %w", path, err)
			}
			return nil
		},
	}
}
