package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/ibeckermayer/narratives/internal/analyzer"
	"github.com/ibeckermayer/narratives/internal/store"
	"github.com/ibeckermayer/narratives/internal/types"
)

// defaultCache is swapped out in tests
var defaultCache = store.DefaultCache

func newExchangesCmd() *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:       "exchanges <classify|reply_chain>",
		Short:     "List cached LLM exchanges for a task",
		Long:      `Lists the newest prompt/response pairs recorded when analysis.cache_exchanges is on.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{analyzer.TaskClassify, analyzer.TaskReplyChain},
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := defaultCache()
			if err != nil {
				return fmt.Errorf("failed to locate cache dir: %w", err)
			}
			exchanges, err := c.LLMExchanges(args[0])
			if err != nil {
				return fmt.Errorf("failed to load exchanges: %w", err)
			}
			if limit > 0 && len(exchanges) > limit {
				exchanges = exchanges[len(exchanges)-limit:]
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(exchanges)
			}
			printExchanges(out, args[0], exchanges)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "newest exchanges to show (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the exchanges as JSON")

	return cmd
}

func printExchanges(w io.Writer, task string, exchanges []store.LLMExchange) {
	if len(exchanges) == 0 {
		fmt.Fprintf(w, "No cached %s exchanges.\n", task)
		return
	}
	for _, ex := range exchanges {
		fmt.Fprintf(w, "%s  %s/%s  %s\n", ex.Timestamp.Format(time.RFC3339), ex.Provider, ex.Model, ex.Elapsed.Round(time.Millisecond))
		fmt.Fprintf(w, "  prompt:   %s\n", snippet(ex.Prompt, 100))
		if ex.Error != "" {
			fmt.Fprintf(w, "  error:    %s\n", ex.Error)
			continue
		}
		fmt.Fprintf(w, "  response: %s\n", snippet(ex.Response, 100))
	}
}

func newLastCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "last",
		Short: "Show the anchors and trees of the most recent cached run",
		Long:  `Reads the step outputs cached by the last run with output.cache_steps on.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := defaultCache()
			if err != nil {
				return fmt.Errorf("failed to locate cache dir: %w", err)
			}
			anchors, path, err := store.LoadLatestStepOutput[[]types.PostID](c, store.StepAnchors)
			if err != nil {
				return err
			}
			stats, _, err := store.LoadLatestStepOutput[[]types.TreeStats](c, store.StepTrees)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d anchors (%s)\n", len(anchors), path)
			if len(stats) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, "Trees:")
				printTreeStats(out, stats)
			}
			return nil
		},
	}
}
