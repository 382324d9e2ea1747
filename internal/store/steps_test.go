package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/narratives/internal/types"
)

func TestStepOutput_LatestWins(t *testing.T) {
	t.Parallel()

	c := Cache{Dir: t.TempDir()}
	_, err := SaveStepOutput(c, StepAnchors, []types.PostID{"1"})
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	path, err := SaveStepOutput(c, StepAnchors, []types.PostID{"2", "3"})
	require.NoError(t, err)

	got, loadedFrom, err := LoadLatestStepOutput[[]types.PostID](c, StepAnchors)
	require.NoError(t, err)
	assert.Equal(t, path, loadedFrom)
	assert.Equal(t, []types.PostID{"2", "3"}, got)
}

func TestStepOutput_Missing(t *testing.T) {
	t.Parallel()

	c := Cache{Dir: t.TempDir()}
	_, _, err := LoadLatestStepOutput[[]types.Post](c, StepPosts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no cached output")
}

func TestSaveTextOutput(t *testing.T) {
	t.Parallel()

	c := Cache{Dir: t.TempDir()}
	path, err := c.SaveTextOutput(StepReport, "<html></html>", ".html")
	require.NoError(t, err)
	assert.Equal(t, ".html", filepath.Ext(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(data))
}

func TestSaveLLMExchange(t *testing.T) {
	t.Parallel()

	c := Cache{Dir: t.TempDir()}
	for _, resp := range []string{"first", "second"} {
		path, err := c.SaveLLMExchange(LLMExchange{
			Timestamp: time.Now(),
			Provider:  "static",
			Task:      "classify",
			Prompt:    "p",
			Response:  resp,
			Elapsed:   time.Second,
		})
		require.NoError(t, err)
		assert.Equal(t, c.LLMCacheDir("classify"), filepath.Dir(path))
	}

	exchanges, err := c.LLMExchanges("classify")
	require.NoError(t, err)
	require.Len(t, exchanges, 2)
	assert.Equal(t, "first", exchanges[0].Response)
	assert.Equal(t, "second", exchanges[1].Response)
	assert.Equal(t, time.Second, exchanges[0].Elapsed)

	none, err := c.LLMExchanges("reply_chain")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSaveLLMExchange_NoTask(t *testing.T) {
	t.Parallel()

	c := Cache{Dir: t.TempDir()}
	path, err := c.SaveLLMExchange(LLMExchange{Response: "r"})
	require.NoError(t, err)
	assert.Equal(t, c.LLMCacheDir("other"), filepath.Dir(path))
}
