// Package anchor picks the posts whose reply trees a run extracts.
package anchor

import (
	"errors"
	"fmt"

	"github.com/ibeckermayer/narratives/internal/types"
)

// Strategy names an anchor selection rule.
type Strategy string

const (
	// StrategyRoots anchors on every post without a parent in the collection.
	StrategyRoots Strategy = "roots"
	// StrategyMatched anchors on posts whose matched_id is absent or zero.
	StrategyMatched Strategy = "matched"
	// StrategyTopK anchors on the k highest-ranked posts.
	StrategyTopK Strategy = "top-k"
)

// ErrUnknownStrategy is returned by Select for an unrecognised strategy.
var ErrUnknownStrategy = errors.New("unknown anchor strategy")

// Roots returns the ids of posts that have no parent, in input order. A post
// whose parent is missing from posts counts as a root, the same way
// graph.Build drops its edge and leaves it unreachable from anywhere else.
func Roots(posts []types.Post) []types.PostID {
	present := make(map[types.PostID]struct{}, len(posts))
	for _, p := range posts {
		present[p.ID] = struct{}{}
	}
	return collect(posts, func(p types.Post) bool {
		if !p.HasParent() {
			return false
		}
		_, ok := present[p.Parent()]
		return ok
	}, false)
}

// Matched returns the ids of posts flagged as roots by matched_id.
func Matched(posts []types.Post) []types.PostID {
	return collect(posts, types.Post.IsMatchedRoot, true)
}

func collect(posts []types.Post, pred func(types.Post) bool, want bool) []types.PostID {
	seen := make(map[types.PostID]struct{})
	out := []types.PostID{}
	for _, p := range posts {
		if p.ID == "" || pred(p) != want {
			continue
		}
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p.ID)
	}
	return out
}

// TopK returns the ids of the first k ranked posts. k <= 0 or k beyond the
// length selects everything.
func TopK(ranked []types.ScoredPost, k int) []types.PostID {
	if k <= 0 || k > len(ranked) {
		k = len(ranked)
	}
	out := make([]types.PostID, k)
	for i := range k {
		out[i] = ranked[i].Post.ID
	}
	return out
}

// Select applies strategy. posts feed the structural strategies, ranked feeds
// top-k.
func Select(strategy Strategy, posts []types.Post, ranked []types.ScoredPost, k int) ([]types.PostID, error) {
	switch strategy {
	case StrategyRoots:
		return Roots(posts), nil
	case StrategyMatched:
		return Matched(posts), nil
	case StrategyTopK:
		return TopK(ranked, k), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
}
