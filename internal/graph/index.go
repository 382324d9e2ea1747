package graph

import (
	"errors"
	"fmt"

	"github.com/ibeckermayer/narratives/internal/types"
)

// ErrDuplicatePostID is returned by NewIndex when two posts share an id.
var ErrDuplicatePostID = errors.New("duplicate post id")

// Index maps post ids to posts for constant-time lookups.
type Index struct {
	posts map[types.PostID]types.Post
}

// NewIndex builds an id -> post index. Posts without an id are skipped;
// a repeated id is rejected.
func NewIndex(posts []types.Post) (*Index, error) {
	idx := &Index{posts: make(map[types.PostID]types.Post, len(posts))}
	for _, p := range posts {
		if p.ID == "" {
			continue
		}
		if _, ok := idx.posts[p.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePostID, p.ID)
		}
		idx.posts[p.ID] = p
	}
	return idx, nil
}

// Get returns the post for id.
func (idx *Index) Get(id types.PostID) (types.Post, bool) {
	if idx == nil {
		return types.Post{}, false
	}
	p, ok := idx.posts[id]
	return p, ok
}

// Len returns the number of indexed posts.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.posts)
}
