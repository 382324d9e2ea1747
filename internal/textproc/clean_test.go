package textproc

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ibeckermayer/narratives/internal/types"
)

func TestClean(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"mention", "hello @someone there", "hello  there"},
		{"hashtag", "#breaking news today", "news today"},
		{"url", "read this https://example.com/a?b=c now", "read this  now"},
		{"all three", "@wapo #FakeNews http://t.co/x lies", "lies"},
		{"html", "<p>The <b>Fake News</b> is at it again</p>", "The Fake News is at it again"},
		{"empty", "", ""},
		{"only noise", "@a #b http://c", ""},
		{"plain", "nothing to remove", "nothing to remove"},
		{"lone symbols", "5 @ 6 # 7", "5 @ 6 # 7"},
		{"accented mention", "@José hello", "hello"},
		{"accented hashtag", "#café time", "time"},
		{"leading non-ascii mention", "@Ünal said", "said"},
		{"cjk hashtag", "#日本 news", "news"},
		{"combining mark", "#cafe\u0301 time", "time"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Clean(tt.in))
		})
	}
}

func TestClean_Idempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"@@ab cd",
		"#@a b",
		"<i>&lt;p&gt;x&lt;/p&gt;</i>",
		"<@x/p>hidden",
		"ht@xtp://example.com tail",
		"  spaced   out  ",
		"<div>@user said #tag https://x.y</div>",
		"Trump's post: the DEAD Washington Compost!",
	}

	for _, in := range inputs {
		once := Clean(in)
		assert.Equal(t, once, Clean(once), "input %q", in)
	}
}

func TestStripHTML_SkipsScripts(t *testing.T) {
	t.Parallel()

	got := StripHTML("<p>keep</p><script>drop()</script><style>p{}</style>")
	assert.Equal(t, " keep", got)
}

func TestCleanPosts_CopiesInput(t *testing.T) {
	t.Parallel()

	posts := []types.Post{{ID: "1", Text: "@a hello"}, {ID: "2", Text: "#b world"}}
	cleaned := CleanPosts(posts, nil)

	assert.Equal(t, "hello", cleaned[0].Text)
	assert.Equal(t, "world", cleaned[1].Text)
	assert.Equal(t, "@a hello", posts[0].Text)

	upper := CleanPosts(posts, CleanerFunc(func(s string) string { return s + "!" }))
	assert.Equal(t, "@a hello!", upper[0].Text)
}
