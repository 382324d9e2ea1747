package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/ibeckermayer/narratives/internal/types"
)

// ReplyChain is a root post with the replies beneath it
type ReplyChain struct {
	Root    types.Post
	Replies []types.Post
}

var stanceCategories = []string{types.StanceReinforce, types.StanceChallenge, types.StanceShift}

// ParseStance returns the first category named in response, or "unknown".
func ParseStance(response string) string {
	r := strings.ToLower(strings.TrimSpace(response))
	for _, c := range stanceCategories {
		if strings.Contains(r, c) {
			return c
		}
	}
	return types.StanceUnknown
}

// AnalyzeReplyChain asks whether the replies reinforce, challenge or shift the
// root post's narrative.
func (a *Analyzer) AnalyzeReplyChain(ctx context.Context, chain ReplyChain) (types.ReplyChainResult, error) {
	replies := make([]string, len(chain.Replies))
	for i, r := range chain.Replies {
		replies[i] = r.Text
	}

	prompt := BuildReplyChainPrompt(chain.Root.Text, replies, a.stancePrompt)
	response, err := a.complete(ctx, TaskReplyChain, prompt)
	if err != nil {
		return types.ReplyChainResult{}, err
	}

	raw := strings.ToLower(strings.TrimSpace(response))
	return types.ReplyChainResult{
		Root:        chain.Root.ID,
		Category:    ParseStance(raw),
		NumReplies:  len(chain.Replies),
		RawResponse: raw,
	}, nil
}

// AnalyzeReplyChains analyzes chains concurrently, preserving input order.
func (a *Analyzer) AnalyzeReplyChains(ctx context.Context, chains []ReplyChain) ([]types.ReplyChainResult, error) {
	if len(chains) == 0 {
		return nil, nil
	}

	results := make([]types.ReplyChainResult, len(chains))
	err := a.forEach(ctx, len(chains), func(ctx context.Context, i int) error {
		r, err := a.AnalyzeReplyChain(ctx, chains[i])
		if err != nil {
			return fmt.Errorf("failed to analyze reply chain %s: %w", chains[i].Root.ID, err)
		}
		results[i] = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.log.WithField("chains", len(chains)).Info("Analyzed reply chains")
	return results, nil
}
