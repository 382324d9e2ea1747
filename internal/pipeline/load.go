package pipeline

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ibeckermayer/narratives/internal/types"
)

// LoadPosts reads posts from a JSON array or from JSON lines (one object per
// line; blank lines are skipped).
func LoadPosts(r io.Reader) ([]types.Post, error) {
	br := bufio.NewReader(r)
	first, err := firstNonSpace(br)
	if err == io.EOF {
		return []types.Post{}, nil
	}
	if err != nil {
		return nil, err
	}

	if first == '[' {
		var posts []types.Post
		if err := json.NewDecoder(br).Decode(&posts); err != nil {
			return nil, fmt.Errorf("failed to decode posts array: %w", err)
		}
		if posts == nil {
			posts = []types.Post{}
		}
		return posts, nil
	}

	posts := []types.Post{}
	dec := json.NewDecoder(br)
	for {
		var p types.Post
		err := dec.Decode(&p)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode post %d: %w", len(posts)+1, err)
		}
		posts = append(posts, p)
	}
	return posts, nil
}

// LoadPostsFile reads posts from path; "-" reads stdin.
func LoadPostsFile(path string) ([]types.Post, error) {
	if path == "-" {
		return LoadPosts(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open posts file: %w", err)
	}
	defer f.Close()
	return LoadPosts(f)
}

// firstNonSpace peeks at the first non-whitespace byte without consuming it
func firstNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}
