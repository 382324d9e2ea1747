package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ibeckermayer/narratives/internal/embed"
	"github.com/ibeckermayer/narratives/internal/pipeline"
	"github.com/ibeckermayer/narratives/internal/ranker"
	"github.com/ibeckermayer/narratives/internal/types"
)

func newRankCmd(root *rootOptions) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "rank <posts.json>",
		Short: "Rank posts with FastLexRank",
		Long: `Embeds every post and scores it by its alignment with the centroid of the
collection. Prints the highest-scoring posts.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			log := root.logger(cmd, cfg)
			if !cmd.Flags().Changed("limit") {
				limit = cfg.Ranking.Show
			}

			provider, err := embed.New(cfg.Embedding)
			if err != nil {
				return err
			}
			r := ranker.New(provider, ranker.Options{
				BatchSize:   cfg.Ranking.BatchSize,
				Concurrency: cfg.Ranking.Concurrency,
				Logger:      log,
			})

			posts, err := pipeline.LoadPostsFile(args[0])
			if err != nil {
				return err
			}
			ranked, err := r.Rank(cmd.Context(), posts)
			if err != nil {
				return err
			}

			if limit > 0 && limit < len(ranked) {
				ranked = ranked[:limit]
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(ranked)
			}
			printRanked(cmd.OutOrStdout(), ranked, 0)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of posts to print (0 prints all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")

	return cmd
}

// printRanked prints up to n ranked posts (n <= 0 prints all)
func printRanked(w io.Writer, ranked []types.ScoredPost, n int) {
	if len(ranked) == 0 {
		fmt.Fprintln(w, "No posts.")
		return
	}
	if n > 0 && n < len(ranked) {
		ranked = ranked[:n]
	}
	for _, sp := range ranked {
		fmt.Fprintf(w, "  [%d] %.4f  %s  %s\n", sp.Rank, sp.Score, sp.Post.ID, snippet(sp.Post.Text, 80))
	}
}

func snippet(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n-3]) + "..."
}
