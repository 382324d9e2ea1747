package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ibeckermayer/narratives/internal/analyzer"
	"github.com/ibeckermayer/narratives/internal/config"
	"github.com/ibeckermayer/narratives/internal/pipeline"
	"github.com/ibeckermayer/narratives/internal/types"
)

type analyzeOptions struct {
	anchors  string
	topK     int
	language string
	report   string
	db       string
	noLLM    bool
	json     bool
}

func newAnalyzeCmd(root *rootOptions) *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze <posts.json>",
		Short: "Run the full narrative analysis on a posts file",
		Long: `Cleans and filters the posts, ranks them with FastLexRank, selects anchors,
extracts their reply trees and re-ranks the tree posts. With an LLM provider
configured, the top posts are classified and reply chains are analyzed.
Use "-" to read posts from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			opts.apply(cmd, cfg)
			log := root.logger(cmd, cfg)

			p, err := pipeline.FromConfig(cfg, log)
			if err != nil {
				return err
			}
			defer p.Close()

			posts, err := pipeline.LoadPostsFile(args[0])
			if err != nil {
				return err
			}
			res, err := p.Run(cmd.Context(), posts)
			if err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}

			if opts.json {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			printResult(cmd.OutOrStdout(), res, cfg.Ranking.Show)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.anchors, "anchors", "", "anchor strategy: roots|matched|top-k")
	cmd.Flags().IntVar(&opts.topK, "top-k", 0, "number of anchors for the top-k strategy")
	cmd.Flags().StringVar(&opts.language, "language", "", "keep only posts in this ISO 639-1 language (\"none\" disables)")
	cmd.Flags().StringVar(&opts.report, "report", "", "write the HTML report to this path")
	cmd.Flags().StringVar(&opts.db, "db", "", "persist the run to this sqlite database")
	cmd.Flags().BoolVar(&opts.noLLM, "no-llm", false, "skip LLM classification and reply-chain analysis")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print the full result as JSON")

	return cmd
}

// apply overrides cfg with the flags the user set
func (o *analyzeOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("anchors") {
		cfg.Anchors.Strategy = o.anchors
	}
	if flags.Changed("top-k") {
		cfg.Anchors.TopK = o.topK
	}
	if flags.Changed("language") {
		cfg.Input.Language = o.language
		if o.language == "none" {
			cfg.Input.Language = ""
		}
	}
	if flags.Changed("report") {
		cfg.Output.ReportPath = o.report
	}
	if flags.Changed("db") {
		cfg.Output.Database = o.db
	}
	if o.noLLM {
		cfg.Analysis.LLMProvider = config.ProviderNone
	}
}

func printResult(w io.Writer, res *pipeline.Result, show int) {
	fmt.Fprintf(w, "Run %s: %d posts, %d anchors (%s), %d tree posts\n",
		res.RunID, len(res.Posts), len(res.Anchors), res.Strategy, len(res.Reranked))

	if len(res.Reranked) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Top tree posts:")
		printRanked(w, res.Reranked, show)
	}

	if len(res.TreeStats) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Trees:")
		printTreeStats(w, res.TreeStats)
	}

	if res.Dynamics != nil && res.Dynamics.TotalAnalyzed > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Reply-chain dynamics (%d chains):\n", res.Dynamics.TotalAnalyzed)
		for _, cat := range []string{types.StanceReinforce, types.StanceChallenge, types.StanceShift, types.StanceUnknown} {
			fmt.Fprintf(w, "  %-10s %d (%.2f%%)\n", cat, res.Dynamics.Counts[cat], res.Dynamics.Percentages[cat])
		}
	}

	if len(res.Narratives) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Top narrative frames:")
		for _, vc := range res.Narratives.Top(analyzer.FieldNarrativeFrame, 5) {
			fmt.Fprintf(w, "  %-30s %d\n", vc.Value, vc.Count)
		}
	}

	if len(res.CrossLinks) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Cross-platform components: %d\n", len(res.CrossLinks))
	}

	for _, warning := range res.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	if res.ReportPath != "" {
		fmt.Fprintf(w, "Report: %s\n", res.ReportPath)
	}
}

func printTreeStats(w io.Writer, stats []types.TreeStats) {
	for _, s := range stats {
		fmt.Fprintf(w, "  %-20s depth=%d breadth=%d nodes=%d\n", s.Root, s.Depth, s.Breadth, s.NumNodes)
	}
}
