// Package pipeline runs a full narrative analysis: clean, filter, rank, pick
// anchors, extract reply trees, re-rank them, and optionally classify,
// cross-link, persist and report.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ibeckermayer/narratives/internal/analyzer"
	"github.com/ibeckermayer/narratives/internal/anchor"
	"github.com/ibeckermayer/narratives/internal/config"
	"github.com/ibeckermayer/narratives/internal/crosslink"
	"github.com/ibeckermayer/narratives/internal/graph"
	"github.com/ibeckermayer/narratives/internal/notifier"
	"github.com/ibeckermayer/narratives/internal/ranker"
	"github.com/ibeckermayer/narratives/internal/report"
	"github.com/ibeckermayer/narratives/internal/store"
	"github.com/ibeckermayer/narratives/internal/textproc"
	"github.com/ibeckermayer/narratives/internal/types"
)

// Options wires the collaborators of a Pipeline. Ranker and Config are
// required; every other field may be nil to skip its stage.
type Options struct {
	Config   *config.Config
	Ranker   *ranker.Ranker
	Analyzer *analyzer.Analyzer
	Detector textproc.Detector
	Store    *store.Store
	Cache    *store.Cache
	Notifier *notifier.Notifier
	Logger   logrus.FieldLogger
}

// Pipeline runs analyses
type Pipeline struct {
	cfg      *config.Config
	ranker   *ranker.Ranker
	analyzer *analyzer.Analyzer
	detector textproc.Detector
	store    *store.Store
	cache    *store.Cache
	notifier *notifier.Notifier
	log      logrus.FieldLogger
	now      func() time.Time
	newID    func() string
}

// New creates a pipeline
func New(opts Options) (*Pipeline, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("pipeline needs a config")
	}
	if opts.Ranker == nil {
		return nil, fmt.Errorf("pipeline needs a ranker")
	}
	if opts.Logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		opts.Logger = l
	}
	return &Pipeline{
		cfg:      opts.Config,
		ranker:   opts.Ranker,
		analyzer: opts.Analyzer,
		detector: opts.Detector,
		store:    opts.Store,
		cache:    opts.Cache,
		notifier: opts.Notifier,
		log:      opts.Logger,
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}, nil
}

// Close releases the store, if any
func (p *Pipeline) Close() error {
	if p.store == nil {
		return nil
	}
	return p.store.Close()
}

// Result is everything one run produced
type Result struct {
	RunID           string                    `json:"run_id"`
	StartedAt       time.Time                 `json:"started_at"`
	FinishedAt      time.Time                 `json:"finished_at"`
	Strategy        string                    `json:"strategy"`
	Posts           []types.Post              `json:"posts"`
	Ranked          []types.ScoredPost        `json:"ranked"`
	Anchors         []types.PostID            `json:"anchors"`
	TreePosts       []types.Post              `json:"tree_posts"`
	Reranked        []types.ScoredPost        `json:"reranked"`
	TreeStats       []types.TreeStats         `json:"tree_stats"`
	Classifications []types.Classification    `json:"classifications,omitempty"`
	ReplyChains     []types.ReplyChainResult  `json:"reply_chains,omitempty"`
	Dynamics        *analyzer.DynamicsSummary `json:"dynamics,omitempty"`
	Narratives      analyzer.NarrativeSummary `json:"narratives,omitempty"`
	CrossLinks      []types.CrossLink         `json:"cross_links,omitempty"`
	Warnings        []string                  `json:"warnings,omitempty"`
	ReportPath      string                    `json:"report_path,omitempty"`
}

func (r *Result) warn(log logrus.FieldLogger, err error, msg string) {
	log.WithError(err).Warn(msg)
	r.Warnings = append(r.Warnings, fmt.Sprintf("%s: %v", msg, err))
}

// Run analyzes posts. Duplicate ids and embedding failures abort the run;
// failures of the optional stages are logged and recorded as warnings.
func (p *Pipeline) Run(ctx context.Context, posts []types.Post) (*Result, error) {
	res := &Result{
		RunID:     p.newID(),
		StartedAt: p.now(),
		Strategy:  p.cfg.Anchors.Strategy,
	}
	log := p.log.WithField("run", res.RunID)
	log.WithField("posts", len(posts)).Info("Starting analysis")
	p.saveStep(log, store.StepPosts, posts)

	if p.cfg.Input.Clean {
		posts = textproc.CleanPosts(posts, textproc.Default)
	}
	if p.detector != nil && p.cfg.Input.Language != "" {
		before := len(posts)
		posts = textproc.FilterByLanguage(posts, p.detector, p.cfg.Input.Language)
		log.WithFields(logrus.Fields{"language": p.cfg.Input.Language, "kept": len(posts), "dropped": before - len(posts)}).
			Info("Filtered posts by language")
	}
	res.Posts = posts
	p.saveStep(log, store.StepFiltered, posts)

	idx, err := graph.NewIndex(posts)
	if err != nil {
		return nil, err
	}
	g := graph.Build(posts)
	log.WithFields(logrus.Fields{"nodes": g.NumNodes(), "edges": g.NumEdges(), "dangling": len(g.DanglingParents())}).
		Debug("Built reply graph")

	res.Ranked, err = p.ranker.Rank(ctx, posts)
	if err != nil {
		return nil, fmt.Errorf("failed to rank posts: %w", err)
	}
	log.Infof("Ranked %d posts", len(res.Ranked))
	p.saveStep(log, store.StepRanked, res.Ranked)

	res.Anchors, err = anchor.Select(anchor.Strategy(p.cfg.Anchors.Strategy), posts, res.Ranked, p.cfg.Anchors.TopK)
	if err != nil {
		return nil, err
	}
	log.WithField("strategy", p.cfg.Anchors.Strategy).Infof("Selected %d anchors", len(res.Anchors))
	p.saveStep(log, store.StepAnchors, res.Anchors)

	res.TreePosts = graph.PostsFromTrees(g, res.Anchors, idx)
	res.TreeStats = make([]types.TreeStats, len(res.Anchors))
	for i, id := range res.Anchors {
		res.TreeStats[i] = g.Stats(id)
	}
	p.saveStep(log, store.StepTrees, res.TreeStats)

	res.Reranked, err = p.ranker.Rank(ctx, res.TreePosts)
	if err != nil {
		return nil, fmt.Errorf("failed to re-rank tree posts: %w", err)
	}
	log.Infof("Re-ranked %d tree posts", len(res.Reranked))
	p.saveStep(log, store.StepReranked, res.Reranked)

	if p.analyzer != nil {
		p.analyze(ctx, log, res, g, idx)
	}

	if p.cfg.CrossLink.Enabled {
		p.crossLink(ctx, log, res, idx)
	}

	res.FinishedAt = p.now()
	p.persist(log, res)
	p.writeReport(ctx, log, res)

	log.WithField("elapsed", res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond)).Info("Analysis complete")
	return res, nil
}

func (p *Pipeline) analyze(ctx context.Context, log logrus.FieldLogger, res *Result, g *graph.Graph, idx *graph.Index) {
	if n := p.cfg.Analysis.ClassifyTop; n > 0 {
		top := make([]types.Post, 0, n)
		for _, sp := range res.Reranked {
			if len(top) == n {
				break
			}
			top = append(top, sp.Post)
		}
		cs, err := p.analyzer.ClassifyPosts(ctx, top)
		if err != nil {
			res.warn(log, err, "narrative classification failed")
		} else {
			res.Classifications = append(res.Classifications, cs...)
		}
	}

	if p.cfg.Analysis.ReplyChain {
		chains := ReplyChains(g, idx, res.Anchors, p.cfg.Analysis.MaxReplies)
		results, err := p.analyzer.AnalyzeReplyChains(ctx, chains)
		if err != nil {
			res.warn(log, err, "reply-chain analysis failed")
		} else {
			res.ReplyChains = results
			d := analyzer.SummarizeReplyChains(results)
			res.Dynamics = &d
		}
	}

	if len(res.Classifications) > 0 {
		res.Narratives = analyzer.SummarizeClassifications(res.Classifications)
	}
	p.saveStep(log, store.StepAnalysis, struct {
		Classifications []types.Classification    `json:"classifications"`
		ReplyChains     []types.ReplyChainResult  `json:"reply_chains"`
		Dynamics        *analyzer.DynamicsSummary `json:"dynamics"`
	}{res.Classifications, res.ReplyChains, res.Dynamics})
}

// ReplyChains pairs each anchor with up to maxReplies of its descendants in
// breadth-first order (maxReplies <= 0 keeps all). Anchors missing from the
// index or without replies are skipped.
func ReplyChains(g *graph.Graph, idx *graph.Index, anchors []types.PostID, maxReplies int) []analyzer.ReplyChain {
	var chains []analyzer.ReplyChain
	for _, id := range anchors {
		root, ok := idx.Get(id)
		if !ok {
			continue
		}
		order := g.TraversalOrder(id)
		if len(order) < 2 {
			continue
		}
		var replies []types.Post
		for _, rid := range order[1:] {
			if maxReplies > 0 && len(replies) == maxReplies {
				break
			}
			if r, ok := idx.Get(rid); ok {
				replies = append(replies, r)
			}
		}
		if len(replies) == 0 {
			continue
		}
		chains = append(chains, analyzer.ReplyChain{Root: root, Replies: replies})
	}
	return chains
}

func (p *Pipeline) crossLink(ctx context.Context, log logrus.FieldLogger, res *Result, idx *graph.Index) {
	if len(crosslink.Platforms(res.Posts)) < 2 {
		log.Debug("Fewer than two platforms, skipping cross-platform links")
		return
	}

	vectors, err := p.ranker.Embeddings(ctx, res.Posts)
	if err != nil {
		res.warn(log, err, "cross-platform embedding failed")
		return
	}
	cg, err := crosslink.Build(res.Posts, vectors, p.cfg.CrossLink.Threshold)
	if err != nil {
		res.warn(log, err, "cross-platform linking failed")
		return
	}
	res.CrossLinks = cg.Components()
	log.WithField("edges", cg.NumEdges()).Infof("Found %d cross-platform components", len(res.CrossLinks))

	if p.analyzer != nil && p.cfg.Analysis.ClassifyTop > 0 {
		for _, link := range res.CrossLinks {
			texts := make(map[string][]string, len(link.Posts))
			for platform, ids := range link.Posts {
				for _, id := range ids {
					if post, ok := idx.Get(id); ok {
						texts[platform] = append(texts[platform], post.Text)
					}
				}
			}
			cs, err := p.analyzer.ClassifyComponent(ctx, texts, p.cfg.Analysis.ClassifyTop)
			if err != nil {
				res.warn(log, err, fmt.Sprintf("classification of component %d failed", link.Component))
				continue
			}
			res.Classifications = append(res.Classifications, cs...)
		}
		res.Narratives = analyzer.SummarizeClassifications(res.Classifications)
	}
	p.saveStep(log, store.StepCrossLink, res.CrossLinks)
}

func (p *Pipeline) persist(log logrus.FieldLogger, res *Result) {
	if p.store == nil {
		return
	}
	err := p.store.SaveRun(&store.Run{
		ID:              res.RunID,
		StartedAt:       res.StartedAt,
		FinishedAt:      res.FinishedAt,
		Strategy:        res.Strategy,
		EmbeddingModel:  p.ranker.Model(),
		Posts:           res.Posts,
		Scores:          res.Ranked,
		Anchors:         res.Anchors,
		TreeStats:       res.TreeStats,
		Classifications: res.Classifications,
		ReplyChains:     res.ReplyChains,
	})
	if err != nil {
		res.warn(log, err, "failed to save run")
		return
	}
	log.Debug("Saved run to database")
}

func (p *Pipeline) writeReport(ctx context.Context, log logrus.FieldLogger, res *Result) {
	path := p.cfg.Output.ReportPath
	cacheReport := p.cache != nil && p.cfg.Output.CacheSteps
	if path == "" && !cacheReport && p.notifier == nil {
		return
	}

	b, err := report.New(p.cfg.Output.ReportTop)
	if err != nil {
		res.warn(log, err, "failed to create report builder")
		return
	}
	r, err := b.Build(ReportInput(res))
	if err != nil {
		res.warn(log, err, "failed to build report")
		return
	}

	if path != "" {
		if err := r.WriteFile(path); err != nil {
			res.warn(log, err, "failed to write report")
		} else {
			res.ReportPath = path
			log.WithField("path", path).Info("Report saved")
		}
	}
	if cacheReport {
		if cached, err := p.cache.SaveTextOutput(store.StepReport, r.HTMLBody, ".html"); err != nil {
			log.WithError(err).Warn("Failed to cache report")
		} else if res.ReportPath == "" {
			res.ReportPath = cached
		}
	}
	if p.notifier != nil {
		if err := p.notifier.SendReport(ctx, r); err != nil {
			res.warn(log, err, "failed to send report")
		} else {
			log.Info("Report sent")
		}
	}
}

// ReportInput maps a result onto the report builder's input
func ReportInput(res *Result) report.Input {
	ranked := res.Reranked
	if len(ranked) == 0 {
		ranked = res.Ranked
	}
	return report.Input{
		RunID:           res.RunID,
		Strategy:        res.Strategy,
		NumPosts:        len(res.Posts),
		Ranked:          ranked,
		Anchors:         res.Anchors,
		TreeStats:       res.TreeStats,
		Classifications: res.Classifications,
		ReplyChains:     res.ReplyChains,
		CrossLinks:      res.CrossLinks,
		Warnings:        res.Warnings,
	}
}

func (p *Pipeline) saveStep(log logrus.FieldLogger, step store.StepName, data any) {
	if p.cache == nil || !p.cfg.Output.CacheSteps {
		return
	}
	if path, err := store.SaveStepOutput(*p.cache, step, data); err != nil {
		log.WithError(err).WithField("step", step).Warn("Failed to cache step output")
	} else {
		log.WithFields(logrus.Fields{"step": step, "path": path}).Debug("Cached step output")
	}
}
