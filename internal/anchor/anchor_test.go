package anchor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/narratives/internal/graph"
	"github.com/ibeckermayer/narratives/internal/types"
)

func pid(s string) *types.PostID {
	id := types.PostID(s)
	return &id
}

func TestRoots(t *testing.T) {
	t.Parallel()

	posts := []types.Post{
		{ID: "1"},
		{ID: "2", ParentID: pid("1")},
		{ID: "3", ParentID: pid("0")},
		{ID: "4", ParentID: pid("4")},
		{ID: "5", ParentID: pid("99")},
		{ID: "1"},
	}
	assert.Equal(t, []types.PostID{"1", "3", "4", "5"}, Roots(posts))
	assert.Empty(t, Roots(nil))
}

func TestRoots_AgreesWithGraph(t *testing.T) {
	t.Parallel()

	// "b" lost its parent to filtering, "c" and "d" reply to each other.
	posts := []types.Post{
		{ID: "a"},
		{ID: "b", ParentID: pid("gone")},
		{ID: "c", ParentID: pid("d")},
		{ID: "d", ParentID: pid("c")},
		{ID: "e", ParentID: pid("b")},
	}
	assert.Equal(t, graph.Build(posts).Roots(), Roots(posts))
	assert.Equal(t, []types.PostID{"a", "b"}, Roots(posts))
}

func TestMatched(t *testing.T) {
	t.Parallel()

	posts := []types.Post{
		{ID: "a"},
		{ID: "b", MatchedID: pid("a")},
		{ID: "c", MatchedID: pid("0")},
		{ID: "d", MatchedID: pid("")},
	}
	assert.Equal(t, []types.PostID{"a", "c", "d"}, Matched(posts))
}

func TestTopK(t *testing.T) {
	t.Parallel()

	ranked := []types.ScoredPost{
		{Post: types.Post{ID: "x"}, Rank: 1},
		{Post: types.Post{ID: "y"}, Rank: 2},
		{Post: types.Post{ID: "z"}, Rank: 3},
	}
	assert.Equal(t, []types.PostID{"x", "y"}, TopK(ranked, 2))
	assert.Equal(t, []types.PostID{"x", "y", "z"}, TopK(ranked, 0))
	assert.Equal(t, []types.PostID{"x", "y", "z"}, TopK(ranked, 10))
	assert.Empty(t, TopK(nil, 3))
}

func TestSelect(t *testing.T) {
	t.Parallel()

	posts := []types.Post{{ID: "1"}, {ID: "2", ParentID: pid("1")}}
	ranked := []types.ScoredPost{{Post: posts[1]}, {Post: posts[0]}}

	got, err := Select(StrategyRoots, posts, ranked, 1)
	require.NoError(t, err)
	assert.Equal(t, []types.PostID{"1"}, got)

	got, err = Select(StrategyTopK, posts, ranked, 1)
	require.NoError(t, err)
	assert.Equal(t, []types.PostID{"2"}, got)

	got, err = Select(StrategyMatched, posts, ranked, 1)
	require.NoError(t, err)
	assert.Equal(t, []types.PostID{"1", "2"}, got)

	_, err = Select("random", posts, ranked, 1)
	require.ErrorIs(t, err, ErrUnknownStrategy)
}
