package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// PostID identifies a post within one analysis run. Source data carries ids as
// either strings or integers; both decode into the same string form.
type PostID string

// UnmarshalJSON accepts a JSON string, a number, or null.
func (id *PostID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = PostID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("post id must be a string or number: %w", err)
	}
	if i, err := n.Int64(); err == nil {
		*id = PostID(strconv.FormatInt(i, 10))
		return nil
	}
	// Integral floats such as 1.0 name the same post as 1.
	if f, err := n.Float64(); err == nil && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		*id = PostID(strconv.FormatInt(int64(f), 10))
		return nil
	}
	*id = PostID(n.String())
	return nil
}

// IsZero reports whether id is one of the "no id" sentinels: empty or "0".
func (id PostID) IsZero() bool {
	return id == "" || id == "0"
}

// Post represents a single social media post
type Post struct {
	ID        PostID     `json:"id"`
	Text      string     `json:"post"`
	ParentID  *PostID    `json:"parent_id,omitempty"`
	MatchedID *PostID    `json:"matched_id,omitempty"`
	Platform  string     `json:"platform,omitempty"`
	Author    string     `json:"author,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// UnmarshalJSON also accepts "text" as an alias for the "post" field.
func (p *Post) UnmarshalJSON(data []byte) error {
	type plain Post
	var aux struct {
		plain
		AltText *string `json:"text"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*p = Post(aux.plain)
	if p.Text == "" && aux.AltText != nil {
		p.Text = *aux.AltText
	}
	return nil
}

// HasParent reports whether the post replies to another post. Absent, zero and
// self-referential parent ids all mean "no parent".
func (p Post) HasParent() bool {
	return p.ParentID != nil && !p.ParentID.IsZero() && *p.ParentID != p.ID
}

// Parent returns the parent id, or "" when the post has no parent.
func (p Post) Parent() PostID {
	if !p.HasParent() {
		return ""
	}
	return *p.ParentID
}

// IsMatchedRoot reports whether matched_id marks the post as a root (absent or zero).
func (p Post) IsMatchedRoot() bool {
	return p.MatchedID == nil || p.MatchedID.IsZero()
}

// ScoredPost is a post with its FastLexRank centrality score ("ap").
type ScoredPost struct {
	Post  Post    `json:"post"`
	Score float64 `json:"ap"`
	Rank  int     `json:"rank"`
}

// TreeStats describes the shape of a reply tree
type TreeStats struct {
	Root     PostID `json:"root"`
	Depth    int    `json:"depth"`
	Breadth  int    `json:"breadth"`
	NumNodes int    `json:"num_nodes"`
}

// Classification is the narrative framing an LLM assigned to a post (or to a
// platform's combined posts).
type Classification struct {
	PostID         PostID    `json:"post_id,omitempty"`
	Platform       string    `json:"platform,omitempty"`
	NarrativeFrame string    `json:"narrative_frame"`
	MainSubject    string    `json:"main_subject"`
	Stance         string    `json:"stance"`
	TopicFocus     string    `json:"topic_focus"`
	RawResponse    string    `json:"raw_response,omitempty"`
	AnalyzedAt     time.Time `json:"analyzed_at"`
}

// Stance categories for how replies relate to a root post's narrative.
const (
	StanceReinforce = "reinforce"
	StanceChallenge = "challenge"
	StanceShift     = "shift"
	StanceUnknown   = "unknown"
)

// ReplyChainResult is the LLM verdict for one root post and its replies.
type ReplyChainResult struct {
	Root        PostID `json:"root"`
	Category    string `json:"category"`
	NumReplies  int    `json:"num_replies"`
	RawResponse string `json:"raw_response"`
}

// CrossLink groups posts from different platforms that discuss similar content.
type CrossLink struct {
	Component int                 `json:"component"`
	Posts     map[string][]PostID `json:"posts"`
}
