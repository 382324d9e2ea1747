package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/narratives/internal/config"
	"github.com/ibeckermayer/narratives/internal/types"
)

const postsJSON = `[
	{"id": "1", "post": "The Washington Post is fake news", "platform": "truth"},
	{"id": "2", "post": "The Washington Post lies every day", "parent_id": "1", "platform": "truth"},
	{"id": "3", "post": "Fake news, all of it", "parent_id": "2", "platform": "truth"},
	{"id": "4", "post": "I had pancakes for breakfast", "platform": "bluesky"}
]`

// setup writes a config and a posts file into a temp dir
func setup(t *testing.T) (cfgPath, postsPath string) {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Input.Language = ""
	cfg.Output.CacheSteps = false
	cfg.Anchors.Strategy = config.AnchorsRoots
	cfg.Embedding.Dimensions = 64
	cfgPath = filepath.Join(dir, "config.toml")
	require.NoError(t, cfg.Save(cfgPath))

	postsPath = filepath.Join(dir, "posts.json")
	require.NoError(t, os.WriteFile(postsPath, []byte(postsJSON), 0644))
	return cfgPath, postsPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()
	assert.Equal(t, "narratives", cmd.Use)
	for _, name := range []string{"analyze", "rank", "tree", "schedule", "open", "config", "exchanges", "last"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("log-level"))
}

func TestAnalyzeCmd_RequiresExactlyOneArg(t *testing.T) {
	t.Parallel()

	_, err := run(t, "analyze")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestAnalyzeCmd_Flags(t *testing.T) {
	t.Parallel()

	cmd := newAnalyzeCmd(&rootOptions{})
	for _, name := range []string{"anchors", "top-k", "language", "report", "db", "no-llm", "json"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
}

func TestAnalyzeCmd_Text(t *testing.T) {
	t.Parallel()

	cfgPath, postsPath := setup(t)
	report := filepath.Join(t.TempDir(), "report.html")

	out, err := run(t, "--config", cfgPath, "--log-level", "error", "analyze", postsPath, "--report", report, "--no-llm")
	require.NoError(t, err)
	assert.Contains(t, out, "4 posts, 2 anchors (roots)")
	assert.Contains(t, out, "depth=2 breadth=1 nodes=3")
	assert.Contains(t, out, "Report: "+report)
	assert.FileExists(t, report)
}

func TestAnalyzeCmd_JSONWithFlagOverrides(t *testing.T) {
	t.Parallel()

	cfgPath, postsPath := setup(t)
	db := filepath.Join(t.TempDir(), "runs.db")

	out, err := run(t, "--config", cfgPath, "analyze", postsPath, "--anchors", "top-k", "--top-k", "1", "--db", db, "--json")
	require.NoError(t, err)

	var res struct {
		RunID    string         `json:"run_id"`
		Strategy string         `json:"strategy"`
		Anchors  []types.PostID `json:"anchors"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "top-k", res.Strategy)
	assert.Len(t, res.Anchors, 1)
	assert.NotEmpty(t, res.RunID)
	assert.FileExists(t, db)
}

func TestAnalyzeCmd_BadStrategy(t *testing.T) {
	t.Parallel()

	cfgPath, postsPath := setup(t)
	_, err := run(t, "--config", cfgPath, "analyze", postsPath, "--anchors", "loudest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown anchor strategy")
}

func TestAnalyzeCmd_MissingExplicitConfig(t *testing.T) {
	t.Parallel()

	_, postsPath := setup(t)
	_, err := run(t, "--config", filepath.Join(t.TempDir(), "missing.toml"), "analyze", postsPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestRankCmd(t *testing.T) {
	t.Parallel()

	cfgPath, postsPath := setup(t)
	out, err := run(t, "--config", cfgPath, "rank", postsPath, "-n", "2", "--json")
	require.NoError(t, err)

	var ranked []types.ScoredPost
	require.NoError(t, json.Unmarshal([]byte(out), &ranked))
	require.Len(t, ranked, 2)
	assert.Equal(t, 1, ranked[0].Rank)
	assert.GreaterOrEqual(t, ranked[0].Score, ranked[1].Score)

	out, err = run(t, "--config", cfgPath, "rank", postsPath)
	require.NoError(t, err)
	assert.Contains(t, out, "[4]")
}

func TestTreeCmd(t *testing.T) {
	t.Parallel()

	_, postsPath := setup(t)
	out, err := run(t, "tree", postsPath, "1")
	require.NoError(t, err)
	assert.Contains(t, out, "1  The Washington Post is fake news")
	assert.Contains(t, out, "\n  2  The Washington Post lies every day")
	assert.Contains(t, out, "\n    3  Fake news, all of it")
	assert.Contains(t, out, "depth=2 breadth=1 nodes=3")

	_, err = run(t, "tree", postsPath, "42")
	require.Error(t, err)
}

func TestConfigInitShowPath(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	out, err := run(t, "--config", path, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, path)
	assert.FileExists(t, path)

	_, err = run(t, "--config", path, "config", "init")
	require.Error(t, err)
	_, err = run(t, "--config", path, "config", "init", "--force")
	require.NoError(t, err)

	out, err = run(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "[anchors]")
	assert.Contains(t, out, `strategy = "top-k"`)

	out, err = run(t, "--config", path, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, path+"\n", out)
}

// Not parallel: swaps openFile.
func TestOpenCmd(t *testing.T) {
	var opened []string
	prev := openFile
	openFile = func(path string) error {
		opened = append(opened, path)
		return nil
	}
	defer func() { openFile = prev }()

	cfgPath, _ := setup(t)
	_, err := run(t, "--config", cfgPath, "open", "config")
	require.NoError(t, err)
	assert.Equal(t, []string{cfgPath}, opened)

	_, err = run(t, "open", "drawer")
	require.Error(t, err)
}
