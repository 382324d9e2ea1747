// Package report renders the outcome of an analysis run as HTML and plain text.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/ibeckermayer/narratives/internal/analyzer"
	"github.com/ibeckermayer/narratives/internal/types"
)

// Builder creates narrative reports from run results
type Builder struct {
	maxPosts int
	template *template.Template
}

// New creates a new report builder listing at most maxPosts ranked posts
// (maxPosts <= 0 lists all)
func New(maxPosts int) (*Builder, error) {
	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"pct": func(v float64) string { return fmt.Sprintf("%.2f%%", v) },
	}).Parse(defaultTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	return &Builder{
		maxPosts: maxPosts,
		template: tmpl,
	}, nil
}

// Input is everything a report can show. Only RunID and Ranked are required.
type Input struct {
	RunID           string
	Strategy        string
	NumPosts        int
	Ranked          []types.ScoredPost
	Anchors         []types.PostID
	TreeStats       []types.TreeStats
	Classifications []types.Classification
	ReplyChains     []types.ReplyChainResult
	CrossLinks      []types.CrossLink
	Warnings        []string
}

// Report represents a rendered report
type Report struct {
	Title     string
	HTMLBody  string
	PlainBody string
	CreatedAt time.Time
}

// ReportData is the template data structure
type ReportData struct {
	Title      string
	Date       string
	RunID      string
	Strategy   string
	NumPosts   int
	NumAnchors int
	Posts      []PostData
	Trees      []types.TreeStats
	Dynamics   *analyzer.DynamicsSummary
	Frames     []analyzer.ValueCount
	Subjects   []analyzer.ValueCount
	Stances    []analyzer.ValueCount
	Links      []LinkData
	Warnings   []string
}

// PostData represents a post in the report template
type PostData struct {
	Rank      int
	ID        types.PostID
	Author    string
	Platform  string
	Content   string
	Score     float64
	IsAnchor  bool
	Narrative string
}

// LinkData is one cross-platform component
type LinkData struct {
	Component int
	Platforms []PlatformPosts
}

// PlatformPosts lists one platform's posts in a component
type PlatformPosts struct {
	Platform string
	PostIDs  []types.PostID
}

// Build creates a report from a run
func (b *Builder) Build(in Input) (*Report, error) {
	if in.RunID == "" {
		return nil, fmt.Errorf("report needs a run id")
	}

	posts := in.Ranked
	if b.maxPosts > 0 && len(posts) > b.maxPosts {
		posts = posts[:b.maxPosts]
	}

	anchors := make(map[types.PostID]bool, len(in.Anchors))
	for _, id := range in.Anchors {
		anchors[id] = true
	}
	frames := make(map[types.PostID]string)
	for _, c := range in.Classifications {
		if c.PostID != "" && c.NarrativeFrame != "" {
			frames[c.PostID] = c.NarrativeFrame
		}
	}

	now := time.Now()
	data := ReportData{
		Title:      "Platform Narratives",
		Date:       now.Format("Monday, January 2 2006 15:04"),
		RunID:      in.RunID,
		Strategy:   in.Strategy,
		NumPosts:   in.NumPosts,
		NumAnchors: len(in.Anchors),
		Posts:      make([]PostData, len(posts)),
		Trees:      in.TreeStats,
		Warnings:   in.Warnings,
	}

	for i, sp := range posts {
		data.Posts[i] = PostData{
			Rank:      sp.Rank,
			ID:        sp.Post.ID,
			Author:    sp.Post.Author,
			Platform:  sp.Post.Platform,
			Content:   truncate(sp.Post.Text, 280),
			Score:     sp.Score,
			IsAnchor:  anchors[sp.Post.ID],
			Narrative: frames[sp.Post.ID],
		}
	}

	if len(in.ReplyChains) > 0 {
		d := analyzer.SummarizeReplyChains(in.ReplyChains)
		data.Dynamics = &d
	}
	if len(in.Classifications) > 0 {
		s := analyzer.SummarizeClassifications(in.Classifications)
		data.Frames = s.Top(analyzer.FieldNarrativeFrame, 10)
		data.Subjects = s.Top(analyzer.FieldMainSubject, 10)
		data.Stances = s.Top(analyzer.FieldStance, 10)
	}
	for _, l := range in.CrossLinks {
		data.Links = append(data.Links, linkData(l))
	}

	var htmlBuf bytes.Buffer
	if err := b.template.Execute(&htmlBuf, data); err != nil {
		return nil, fmt.Errorf("failed to render template: %w", err)
	}

	return &Report{
		Title:     fmt.Sprintf("%s - %s", data.Title, now.Format("Jan 2")),
		HTMLBody:  htmlBuf.String(),
		PlainBody: buildPlainText(data),
		CreatedAt: now,
	}, nil
}

// WriteFile writes the HTML body to path, creating parent directories
func (r *Report) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(r.HTMLBody), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func linkData(l types.CrossLink) LinkData {
	ld := LinkData{Component: l.Component}
	for platform, ids := range l.Posts {
		ld.Platforms = append(ld.Platforms, PlatformPosts{Platform: platform, PostIDs: ids})
	}
	slices.SortFunc(ld.Platforms, func(a, b PlatformPosts) int {
		return strings.Compare(a.Platform, b.Platform)
	})
	return ld
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

func buildPlainText(data ReportData) string {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("%s\n%s\nrun %s: %d posts, %d anchors (%s)\n\n",
		data.Title, data.Date, data.RunID, data.NumPosts, data.NumAnchors, data.Strategy))

	for _, p := range data.Posts {
		marker := " "
		if p.IsAnchor {
			marker = "*"
		}
		buf.WriteString(fmt.Sprintf("%s%3d. [%.4f] %s: %s\n", marker, p.Rank, p.Score, p.ID, oneLine(p.Content)))
	}

	if len(data.Trees) > 0 {
		buf.WriteString("\nTrees\n")
		for _, t := range data.Trees {
			buf.WriteString(fmt.Sprintf("  %s: depth %d, breadth %d, %d nodes\n", t.Root, t.Depth, t.Breadth, t.NumNodes))
		}
	}

	if data.Dynamics != nil {
		buf.WriteString(fmt.Sprintf("\nReply dynamics (%d chains)\n", data.Dynamics.TotalAnalyzed))
		for _, c := range []string{types.StanceReinforce, types.StanceChallenge, types.StanceShift, types.StanceUnknown} {
			buf.WriteString(fmt.Sprintf("  %-9s %d (%.2f%%)\n", c, data.Dynamics.Counts[c], data.Dynamics.Percentages[c]))
		}
	}

	if len(data.Frames) > 0 {
		buf.WriteString("\nNarrative frames\n")
		for _, f := range data.Frames {
			buf.WriteString(fmt.Sprintf("  %s: %d\n", f.Value, f.Count))
		}
	}

	for _, w := range data.Warnings {
		buf.WriteString(fmt.Sprintf("\nwarning: %s", w))
	}

	return buf.String()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

const defaultTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>{{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 760px; margin: 0 auto; padding: 20px; background: #f5f5f5; }
        .container { background: white; border-radius: 8px; padding: 20px; }
        h1 { color: #4a3aa8; margin-bottom: 5px; }
        h2 { color: #333; font-size: 18px; margin-top: 28px; }
        .date, .meta { color: #666; margin-bottom: 8px; }
        .post { border-bottom: 1px solid #eee; padding: 12px 0; }
        .post.anchor { border-left: 3px solid #4a3aa8; padding-left: 10px; }
        .author { font-weight: bold; color: #333; }
        .platform { background: #efecfb; color: #4a3aa8; padding: 2px 8px; border-radius: 12px; font-size: 12px; }
        .content { margin: 8px 0; line-height: 1.4; }
        .narrative { color: #4a3aa8; font-style: italic; }
        .score { color: #666; font-size: 13px; }
        table { border-collapse: collapse; width: 100%; font-size: 14px; }
        td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #eee; }
        .warning { color: #a33; font-size: 13px; }
        .footer { margin-top: 20px; padding-top: 15px; border-top: 1px solid #eee; color: #999; font-size: 12px; text-align: center; }
    </style>
</head>
<body>
    <div class="container">
        <h1>{{.Title}}</h1>
        <div class="date">{{.Date}}</div>
        <div class="meta">Run {{.RunID}} · {{.NumPosts}} posts · {{.NumAnchors}} anchors{{if .Strategy}} ({{.Strategy}}){{end}}</div>

        {{range .Warnings}}<div class="warning">{{.}}</div>{{end}}

        <h2>Most central posts</h2>
        {{range .Posts}}
        <div class="post{{if .IsAnchor}} anchor{{end}}">
            <div class="author">#{{.Rank}} {{.Author}} {{if .Platform}}<span class="platform">{{.Platform}}</span>{{end}}</div>
            <div class="content">{{.Content}}</div>
            {{if .Narrative}}<div class="narrative">{{.Narrative}}</div>{{end}}
            <div class="score">score {{printf "%.4f" .Score}} · id {{.ID}}</div>
        </div>
        {{end}}

        {{if .Trees}}
        <h2>Reply trees</h2>
        <table>
            <tr><th>Root</th><th>Depth</th><th>Breadth</th><th>Posts</th></tr>
            {{range .Trees}}<tr><td>{{.Root}}</td><td>{{.Depth}}</td><td>{{.Breadth}}</td><td>{{.NumNodes}}</td></tr>{{end}}
        </table>
        {{end}}

        {{with .Dynamics}}
        <h2>Reply dynamics</h2>
        <table>
            <tr><th>Category</th><th>Chains</th><th>Share</th></tr>
            <tr><td>reinforce</td><td>{{index .Counts "reinforce"}}</td><td>{{pct (index .Percentages "reinforce")}}</td></tr>
            <tr><td>challenge</td><td>{{index .Counts "challenge"}}</td><td>{{pct (index .Percentages "challenge")}}</td></tr>
            <tr><td>shift</td><td>{{index .Counts "shift"}}</td><td>{{pct (index .Percentages "shift")}}</td></tr>
            <tr><td>unknown</td><td>{{index .Counts "unknown"}}</td><td>{{pct (index .Percentages "unknown")}}</td></tr>
        </table>
        {{end}}

        {{if .Frames}}
        <h2>Narratives</h2>
        <table>
            <tr><th>Frame</th><th>Posts</th></tr>
            {{range .Frames}}<tr><td>{{.Value}}</td><td>{{.Count}}</td></tr>{{end}}
        </table>
        {{if .Subjects}}<p>Subjects: {{range $i, $s := .Subjects}}{{if $i}}, {{end}}{{$s.Value}} ({{$s.Count}}){{end}}</p>{{end}}
        {{if .Stances}}<p>Stances: {{range $i, $s := .Stances}}{{if $i}}, {{end}}{{$s.Value}} ({{$s.Count}}){{end}}</p>{{end}}
        {{end}}

        {{if .Links}}
        <h2>Cross-platform links</h2>
        {{range .Links}}
        <div class="post">
            <div class="author">Component {{.Component}}</div>
            {{range .Platforms}}<div><span class="platform">{{.Platform}}</span> {{range $i, $id := .PostIDs}}{{if $i}}, {{end}}{{$id}}{{end}}</div>{{end}}
        </div>
        {{end}}
        {{end}}

        <div class="footer">
            Listed {{len .Posts}} posts · Generated by platform-narratives
        </div>
    </div>
</body>
</html>`
