// Package crosslink connects posts from different platforms that say similar
// things. Posts are nodes, an edge joins two posts of different platforms whose
// cosine similarity exceeds a threshold, and every connected component with
// more than one post becomes a CrossLink.
package crosslink

import (
	"errors"
	"fmt"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/ibeckermayer/narratives/internal/types"
)

// DefaultThreshold is the similarity above which two posts are linked.
const DefaultThreshold = 0.7

// ErrVectorCount is returned when posts and vectors differ in length.
var ErrVectorCount = errors.New("crosslink: one vector per post required")

// Graph is the similarity graph over one set of posts.
type Graph struct {
	posts []types.Post
	g     *simple.WeightedUndirectedGraph
}

// Build links posts across platforms. vectors[i] is the embedding of posts[i].
// Posts without a platform take no part in linking.
func Build(posts []types.Post, vectors [][]float64, threshold float64) (*Graph, error) {
	if len(posts) != len(vectors) {
		return nil, fmt.Errorf("%w: %d posts, %d vectors", ErrVectorCount, len(posts), len(vectors))
	}

	g := simple.NewWeightedUndirectedGraph(0, 0)
	norms := make([]float64, len(vectors))
	for i, v := range vectors {
		norms[i] = floats.Norm(v, 2)
		if posts[i].Platform != "" {
			g.AddNode(simple.Node(i))
		}
	}

	for i := range posts {
		if posts[i].Platform == "" || norms[i] == 0 {
			continue
		}
		for j := i + 1; j < len(posts); j++ {
			if posts[j].Platform == "" || posts[j].Platform == posts[i].Platform || norms[j] == 0 {
				continue
			}
			if len(vectors[i]) != len(vectors[j]) {
				return nil, fmt.Errorf("crosslink: vectors %d and %d differ in dimension", i, j)
			}
			sim := floats.Dot(vectors[i], vectors[j]) / (norms[i] * norms[j])
			if sim > threshold {
				g.SetWeightedEdge(g.NewWeightedEdge(simple.Node(i), simple.Node(j), sim))
			}
		}
	}
	return &Graph{posts: posts, g: g}, nil
}

// NumEdges returns the number of cross-platform links.
func (cg *Graph) NumEdges() int {
	return cg.g.Edges().Len()
}

// Similarity returns the weight of the link between posts i and j.
func (cg *Graph) Similarity(i, j int) (float64, bool) {
	e := cg.g.WeightedEdge(int64(i), int64(j))
	if e == nil {
		return 0, false
	}
	return e.Weight(), true
}

// Components returns the connected components with more than one post,
// ordered by their earliest post. Within a component, each platform's posts
// keep input order.
func (cg *Graph) Components() []types.CrossLink {
	var groups [][]int
	for _, comp := range topo.ConnectedComponents(cg.g) {
		if len(comp) < 2 {
			continue
		}
		groups = append(groups, nodeIndexes(comp))
	}
	slices.SortFunc(groups, func(a, b []int) int { return a[0] - b[0] })

	links := make([]types.CrossLink, len(groups))
	for c, group := range groups {
		byPlatform := make(map[string][]types.PostID)
		for _, i := range group {
			p := cg.posts[i]
			byPlatform[p.Platform] = append(byPlatform[p.Platform], p.ID)
		}
		links[c] = types.CrossLink{Component: c, Posts: byPlatform}
	}
	return links
}

func nodeIndexes(nodes []graph.Node) []int {
	out := make([]int, len(nodes))
	for i, n := range nodes {
		out[i] = int(n.ID())
	}
	slices.Sort(out)
	return out
}

// Platforms returns the distinct platforms in posts, in first-seen order.
func Platforms(posts []types.Post) []string {
	var out []string
	seen := make(map[string]bool)
	for _, p := range posts {
		if p.Platform == "" || seen[p.Platform] {
			continue
		}
		seen[p.Platform] = true
		out = append(out, p.Platform)
	}
	return out
}
