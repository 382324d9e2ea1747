package analyzer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/narratives/internal/analyzer/providers"
	"github.com/ibeckermayer/narratives/internal/config"
	"github.com/ibeckermayer/narratives/internal/store"
	"github.com/ibeckermayer/narratives/internal/types"
)

// echoProvider answers based on the prompt so concurrent calls stay
// deterministic.
type echoProvider struct {
	answer func(prompt string) (string, error)
}

func (e echoProvider) Name() string  { return "echo" }
func (e echoProvider) Model() string { return "echo-1" }
func (e echoProvider) Complete(_ context.Context, messages []Message, _ int) (string, error) {
	return e.answer(messages[len(messages)-1].Content)
}

type memRecorder struct {
	mu        sync.Mutex
	exchanges []store.LLMExchange
}

func (m *memRecorder) SaveLLMExchange(ex store.LLMExchange) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exchanges = append(m.exchanges, ex)
	return "mem", nil
}

func TestClassifyText_ParsesJSON(t *testing.T) {
	t.Parallel()

	p := providers.NewStaticProvider("```json\n{\"narrative_frame\": \"media bias\", \"main_subject\": \"The Post\", \"stance\": \"critical\", \"topic_focus\": \"institutional\"}\n```")
	rec := &memRecorder{}
	a := New(p, Options{Exchanges: rec})

	c, err := a.ClassifyText(context.Background(), "The Post is fake news")
	require.NoError(t, err)
	assert.Equal(t, "media bias", c.NarrativeFrame)
	assert.Equal(t, "The Post", c.MainSubject)
	assert.Equal(t, "critical", c.Stance)
	assert.Equal(t, "institutional", c.TopicFocus)
	assert.Empty(t, c.RawResponse)
	assert.False(t, c.AnalyzedAt.IsZero())

	calls := p.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, providers.RoleSystem, calls[0][0].Role)
	assert.Contains(t, calls[0][1].Content, "The Post is fake news")
	assert.Contains(t, calls[0][1].Content, `"narrative_frame"`)

	require.Len(t, rec.exchanges, 1)
	assert.Equal(t, "classify", rec.exchanges[0].Task)
	assert.Equal(t, "static", rec.exchanges[0].Provider)
}

func TestClassifyText_LooseKeys(t *testing.T) {
	t.Parallel()

	p := providers.NewStaticProvider(`Sure! {"1. Narrative Frame": "persecution", "Main Subject": "Trump", "Stance toward main subject": "supportive", "Topic-Focus": ["legal", "personal attack"]}`)
	c, err := New(p, Options{}).ClassifyText(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "persecution", c.NarrativeFrame)
	assert.Equal(t, "Trump", c.MainSubject)
	assert.Equal(t, "supportive", c.Stance)
	assert.Equal(t, "legal, personal attack", c.TopicFocus)
}

func TestClassifyText_FallsBackToRawResponse(t *testing.T) {
	t.Parallel()

	for _, resp := range []string{"I cannot classify this.", `{"unrelated": 1}`} {
		c, err := New(providers.NewStaticProvider(resp), Options{}).ClassifyText(context.Background(), "x")
		require.NoError(t, err)
		assert.Equal(t, resp, c.RawResponse)
		assert.Empty(t, c.NarrativeFrame)
	}
}

func TestClassifyPosts_OrderAndErrors(t *testing.T) {
	t.Parallel()

	p := echoProvider{answer: func(prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "alpha"):
			return `{"narrative_frame": "a"}`, nil
		case strings.Contains(prompt, "beta"):
			return `{"narrative_frame": "b"}`, nil
		default:
			return `{"narrative_frame": "c"}`, nil
		}
	}}
	posts := []types.Post{
		{ID: "1", Text: "alpha", Platform: "truth"},
		{ID: "2", Text: "beta"},
		{ID: "3", Text: "gamma"},
	}
	cs, err := New(p, Options{BatchSize: 3}).ClassifyPosts(context.Background(), posts)
	require.NoError(t, err)
	require.Len(t, cs, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{cs[0].NarrativeFrame, cs[1].NarrativeFrame, cs[2].NarrativeFrame})
	assert.Equal(t, types.PostID("2"), cs[1].PostID)
	assert.Equal(t, "truth", cs[0].Platform)

	boom := errors.New("overloaded")
	failing := echoProvider{answer: func(string) (string, error) { return "", boom }}
	_, err = New(failing, Options{}).ClassifyPosts(context.Background(), posts)
	require.ErrorIs(t, err, boom)

	empty, err := New(failing, Options{}).ClassifyPosts(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestClassifyComponent(t *testing.T) {
	t.Parallel()

	p := echoProvider{answer: func(prompt string) (string, error) {
		if strings.Contains(prompt, "one.two") {
			return `{"narrative_frame": "joined"}`, nil
		}
		return `{"narrative_frame": "single"}`, nil
	}}
	byPlatform := map[string][]string{
		"truth":    {"one", "two"},
		"bluesky":  {"solo"},
		"mastodon": {"x", "y", "z"},
	}
	cs, err := New(p, Options{}).ClassifyComponent(context.Background(), byPlatform, 2)
	require.NoError(t, err)
	require.Len(t, cs, 2)
	assert.Equal(t, "bluesky", cs[0].Platform)
	assert.Equal(t, "single", cs[0].NarrativeFrame)
	assert.Equal(t, "truth", cs[1].Platform)
	assert.Equal(t, "joined", cs[1].NarrativeFrame)
}

func TestParseStance(t *testing.T) {
	t.Parallel()

	assert.Equal(t, types.StanceReinforce, ParseStance("Reinforce"))
	assert.Equal(t, types.StanceChallenge, ParseStance("  The replies CHALLENGE it."))
	assert.Equal(t, types.StanceShift, ParseStance("shift"))
	assert.Equal(t, types.StanceUnknown, ParseStance("no idea"))
	// The first category in reinforce, challenge, shift order wins.
	assert.Equal(t, types.StanceReinforce, ParseStance("shift or reinforce"))
}

func TestAnalyzeReplyChains(t *testing.T) {
	t.Parallel()

	p := providers.NewStaticProvider("  Challenge\n")
	a := New(p, Options{StancePrompt: "- Reinforce: agrees with the mayor."})
	chains := []ReplyChain{
		{Root: types.Post{ID: "1", Text: "root"}, Replies: []types.Post{{ID: "2", Text: "no way"}, {ID: "3", Text: "wrong"}}},
	}
	results, err := a.AnalyzeReplyChains(context.Background(), chains)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, types.ReplyChainResult{Root: "1", Category: types.StanceChallenge, NumReplies: 2, RawResponse: "challenge"}, results[0])

	prompt := p.Calls()[0][1].Content
	assert.Contains(t, prompt, "agrees with the mayor")
	assert.Contains(t, prompt, "1. no way")
	assert.Contains(t, prompt, "2. wrong")
}

func TestSummarizeReplyChains(t *testing.T) {
	t.Parallel()

	s := SummarizeReplyChains([]types.ReplyChainResult{
		{Category: types.StanceReinforce},
		{Category: types.StanceReinforce},
		{Category: types.StanceShift},
		{Category: "weird"},
	})
	assert.Equal(t, 4, s.TotalAnalyzed)
	assert.Equal(t, 2, s.Counts[types.StanceReinforce])
	assert.Equal(t, 0, s.Counts[types.StanceChallenge])
	assert.Equal(t, 1, s.Counts[types.StanceUnknown])
	assert.InDelta(t, 50.0, s.Percentages[types.StanceReinforce], 1e-9)
	assert.InDelta(t, 25.0, s.Percentages[types.StanceShift], 1e-9)

	thirds := SummarizeReplyChains([]types.ReplyChainResult{{Category: "shift"}, {Category: "shift"}, {Category: "challenge"}})
	assert.InDelta(t, 66.67, thirds.Percentages[types.StanceShift], 1e-9)

	empty := SummarizeReplyChains(nil)
	assert.Zero(t, empty.TotalAnalyzed)
	assert.Empty(t, empty.Percentages)
	assert.Len(t, empty.Counts, 4)
}

func TestSummarizeClassifications(t *testing.T) {
	t.Parallel()

	s := SummarizeClassifications([]types.Classification{
		{NarrativeFrame: "media bias", Stance: "critical"},
		{NarrativeFrame: "media bias", Stance: "supportive"},
		{NarrativeFrame: "corruption"},
		{RawResponse: "??"},
	})
	assert.Equal(t, 2, s[FieldNarrativeFrame]["media bias"])
	assert.Equal(t, []ValueCount{{Value: "media bias", Count: 2}, {Value: "corruption", Count: 1}}, s.Top(FieldNarrativeFrame, 0))
	assert.Equal(t, []ValueCount{{Value: "critical", Count: 1}}, s.Top(FieldStance, 1))
	assert.Empty(t, s.Top(FieldTopicFocus, 3))
}

func TestGenerateSchema(t *testing.T) {
	t.Parallel()

	schema := GenerateSchema[narrativeResponse]()
	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, false, schema["additionalProperties"])
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "narrative_frame")
	assert.Contains(t, props, "topic_focus")
	assert.ElementsMatch(t, []string{"narrative_frame", "main_subject", "stance", "topic_focus"}, schema["required"])
}

func TestDecodeModelJSON(t *testing.T) {
	t.Parallel()

	var v struct {
		A int `json:"a"`
	}
	require.NoError(t, DecodeModelJSON(` {"a": 1} `, &v))
	assert.Equal(t, 1, v.A)
	require.NoError(t, DecodeModelJSON("here: {\"a\": 2} done", &v))
	assert.Equal(t, 2, v.A)
	require.Error(t, DecodeModelJSON("", &v))
	require.Error(t, DecodeModelJSON("no json", &v))
}

func TestNewProvider(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	p, err := NewProvider(config.AnalysisConfig{LLMProvider: config.ProviderNone})
	require.NoError(t, err)
	assert.Nil(t, p)

	_, err = NewProvider(config.AnalysisConfig{LLMProvider: config.ProviderAnthropic})
	require.Error(t, err)

	p, err = NewProvider(config.AnalysisConfig{LLMProvider: config.ProviderOpenAI, APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())
	assert.Equal(t, providers.DefaultOpenAIModel, p.Model())

	t.Setenv("ANTHROPIC_API_KEY", "env-key")
	p, err = NewProvider(config.AnalysisConfig{LLMProvider: config.ProviderAnthropic, Model: "claude-x"})
	require.NoError(t, err)
	assert.Equal(t, "claude-x", p.Model())

	_, err = NewProvider(config.AnalysisConfig{LLMProvider: "gemini"})
	require.Error(t, err)
}

func TestAnalyzer_RecordsFailedExchange(t *testing.T) {
	t.Parallel()

	rec := &memRecorder{}
	failing := echoProvider{answer: func(string) (string, error) { return "", errors.New("timeout") }}
	a := New(failing, Options{Exchanges: rec})
	a.now = func() time.Time { return time.Unix(0, 0) }

	_, err := a.AnalyzeReplyChain(context.Background(), ReplyChain{Root: types.Post{ID: "1", Text: "r"}})
	require.Error(t, err)
	require.Len(t, rec.exchanges, 1)
	assert.Equal(t, "timeout", rec.exchanges[0].Error)
	assert.Equal(t, "reply_chain", rec.exchanges[0].Task)
}
