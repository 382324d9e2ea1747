package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/narratives/internal/types"
)

func sampleInput() Input {
	return Input{
		RunID:    "run-42",
		Strategy: "top-k",
		NumPosts: 3,
		Ranked: []types.ScoredPost{
			{Post: types.Post{ID: "1", Text: "The <b>Post</b> is fake news", Author: "alice", Platform: "truth"}, Score: 0.91, Rank: 1},
			{Post: types.Post{ID: "2", Text: "Replying with facts", Platform: "bluesky"}, Score: 0.52, Rank: 2},
			{Post: types.Post{ID: "3", Text: "pancakes"}, Score: 0.1, Rank: 3},
		},
		Anchors:   []types.PostID{"1"},
		TreeStats: []types.TreeStats{{Root: "1", Depth: 2, Breadth: 3, NumNodes: 5}},
		Classifications: []types.Classification{
			{PostID: "1", NarrativeFrame: "media bias", MainSubject: "the press", Stance: "critical"},
		},
		ReplyChains: []types.ReplyChainResult{
			{Root: "1", Category: types.StanceReinforce},
			{Root: "2", Category: types.StanceChallenge},
		},
		CrossLinks: []types.CrossLink{{Component: 0, Posts: map[string][]types.PostID{"truth": {"1"}, "bluesky": {"2"}}}},
		Warnings:   []string{"reply-chain analysis failed for 1 tree"},
	}
}

func TestBuild_HTML(t *testing.T) {
	t.Parallel()

	b, err := New(0)
	require.NoError(t, err)
	r, err := b.Build(sampleInput())
	require.NoError(t, err)

	html := r.HTMLBody
	assert.Contains(t, html, "Run run-42")
	assert.Contains(t, html, "post anchor")
	// post text is escaped
	assert.Contains(t, html, "The &lt;b&gt;Post&lt;/b&gt; is fake news")
	assert.Contains(t, html, "media bias")
	assert.Contains(t, html, "50.00%")
	assert.Contains(t, html, "Component 0")
	assert.Contains(t, html, "reply-chain analysis failed")
	assert.Contains(t, html, ">bluesky</span> 2<")
	assert.Less(t, strings.Index(html, ">bluesky</span> 2<"), strings.Index(html, ">truth</span> 1<"))
}

func TestBuild_PlainText(t *testing.T) {
	t.Parallel()

	b, err := New(2)
	require.NoError(t, err)
	r, err := b.Build(sampleInput())
	require.NoError(t, err)

	assert.Contains(t, r.PlainBody, "run run-42: 3 posts, 1 anchors (top-k)")
	assert.Contains(t, r.PlainBody, "*  1. [0.9100] 1:")
	assert.Contains(t, r.PlainBody, "   2. [0.5200] 2:")
	assert.NotContains(t, r.PlainBody, "pancakes")
	assert.Contains(t, r.PlainBody, "depth 2, breadth 3, 5 nodes")
	assert.Contains(t, r.PlainBody, "reinforce 1 (50.00%)")
}

func TestBuild_Minimal(t *testing.T) {
	t.Parallel()

	b, err := New(10)
	require.NoError(t, err)
	r, err := b.Build(Input{RunID: "x"})
	require.NoError(t, err)
	assert.NotContains(t, r.HTMLBody, "Reply dynamics")
	assert.NotContains(t, r.HTMLBody, "Cross-platform links")

	_, err = b.Build(Input{})
	require.Error(t, err)
}

func TestWriteFile(t *testing.T) {
	t.Parallel()

	b, err := New(0)
	require.NoError(t, err)
	r, err := b.Build(sampleInput())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out", "report.html")
	require.NoError(t, r.WriteFile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, r.HTMLBody, string(data))
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "ééé...", truncate("éééééééé", 6))
}
