package crosslink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/narratives/internal/types"
)

func post(id, platform string) types.Post {
	return types.Post{ID: types.PostID(id), Platform: platform}
}

func TestBuild_LinksAcrossPlatformsOnly(t *testing.T) {
	t.Parallel()

	posts := []types.Post{
		post("t1", "truth"),
		post("t2", "truth"),
		post("b1", "bluesky"),
		post("m1", "mastodon"),
		post("m2", "mastodon"),
	}
	vectors := [][]float64{
		{1, 0, 0},
		{1, 0, 0},     // same platform as t1, never linked to it
		{0.9, 0.1, 0}, // close to t1 and t2
		{0, 1, 0},
		{0, 0.95, 0.05},
	}

	g, err := Build(posts, vectors, 0.7)
	require.NoError(t, err)
	assert.Equal(t, 2, g.NumEdges())

	_, ok := g.Similarity(0, 1)
	assert.False(t, ok)
	sim, ok := g.Similarity(0, 2)
	require.True(t, ok)
	assert.Greater(t, sim, 0.9)

	links := g.Components()
	require.Len(t, links, 1)
	assert.Equal(t, 0, links[0].Component)
	assert.Equal(t, []types.PostID{"t1", "t2"}, links[0].Posts["truth"])
	assert.Equal(t, []types.PostID{"b1"}, links[0].Posts["bluesky"])
	assert.NotContains(t, links[0].Posts, "mastodon")
}

func TestBuild_ComponentsOrderedByFirstPost(t *testing.T) {
	t.Parallel()

	posts := []types.Post{
		post("a", "x"),
		post("b", "x"),
		post("c", "y"),
		post("d", "y"),
	}
	vectors := [][]float64{{1, 0}, {0, 1}, {0, 1}, {1, 0}}

	g, err := Build(posts, vectors, 0.5)
	require.NoError(t, err)
	links := g.Components()
	require.Len(t, links, 2)
	assert.Equal(t, []types.PostID{"a"}, links[0].Posts["x"])
	assert.Equal(t, []types.PostID{"d"}, links[0].Posts["y"])
	assert.Equal(t, []types.PostID{"b"}, links[1].Posts["x"])
	assert.Equal(t, 1, links[1].Component)
}

func TestBuild_ThresholdIsStrict(t *testing.T) {
	t.Parallel()

	posts := []types.Post{post("a", "x"), post("b", "y")}
	g, err := Build(posts, [][]float64{{1, 0}, {1, 0}}, 1.0)
	require.NoError(t, err)
	assert.Empty(t, g.Components())
}

func TestBuild_SkipsUnlabelledAndZeroVectors(t *testing.T) {
	t.Parallel()

	posts := []types.Post{post("a", "x"), post("b", ""), post("c", "y")}
	g, err := Build(posts, [][]float64{{1, 0}, {1, 0}, {0, 0}}, 0.1)
	require.NoError(t, err)
	assert.Zero(t, g.NumEdges())
}

func TestBuild_VectorCountMismatch(t *testing.T) {
	t.Parallel()

	_, err := Build([]types.Post{post("a", "x")}, nil, 0.7)
	require.ErrorIs(t, err, ErrVectorCount)
}

func TestPlatforms(t *testing.T) {
	t.Parallel()

	posts := []types.Post{post("1", "truth"), post("2", ""), post("3", "bluesky"), post("4", "truth")}
	assert.Equal(t, []string{"truth", "bluesky"}, Platforms(posts))
}
