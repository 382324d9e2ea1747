package store

import (
	"time"

	"github.com/ibeckermayer/narratives/internal/types"
)

// Run is everything one analysis run produced
type Run struct {
	ID              string                   `json:"id"`
	StartedAt       time.Time                `json:"started_at"`
	FinishedAt      time.Time                `json:"finished_at"`
	Strategy        string                   `json:"strategy"`
	EmbeddingModel  string                   `json:"embedding_model"`
	Posts           []types.Post             `json:"posts"`
	Scores          []types.ScoredPost       `json:"scores"`
	Anchors         []types.PostID           `json:"anchors"`
	TreeStats       []types.TreeStats        `json:"tree_stats"`
	Classifications []types.Classification   `json:"classifications"`
	ReplyChains     []types.ReplyChainResult `json:"reply_chains"`
}

// RunSummary is a row of the runs table
type RunSummary struct {
	ID             string    `json:"id"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	Strategy       string    `json:"strategy"`
	EmbeddingModel string    `json:"embedding_model"`
	NumPosts       int       `json:"num_posts"`
	NumAnchors     int       `json:"num_anchors"`
}
