package graph

import (
	"github.com/ibeckermayer/narratives/internal/types"
)

// levels walks the graph breadth-first from root and returns every reachable
// node with its BFS depth, in visit order. A visited set keeps cycles and
// diamond-shaped reply graphs from being walked twice.
func (g *Graph) levels(root types.PostID) ([]types.PostID, map[types.PostID]int) {
	if !g.Has(root) {
		return nil, nil
	}

	depth := map[types.PostID]int{root: 0}
	order := []types.PostID{root}
	for i := 0; i < len(order); i++ {
		id := order[i]
		for _, child := range g.children[id] {
			if _, seen := depth[child]; seen {
				continue
			}
			depth[child] = depth[id] + 1
			order = append(order, child)
		}
	}
	return order, depth
}

// Descendants returns every node reachable from root, excluding root itself
// even when a cycle leads back to it. Unknown roots yield an empty set.
func (g *Graph) Descendants(root types.PostID) IDSet {
	order, _ := g.levels(root)
	out := make(IDSet, len(order))
	for _, id := range order {
		if id != root {
			out[id] = struct{}{}
		}
	}
	return out
}

// TreeNodes returns root together with its descendants. Unknown roots yield an
// empty set.
func (g *Graph) TreeNodes(root types.PostID) IDSet {
	order, _ := g.levels(root)
	out := make(IDSet, len(order))
	for _, id := range order {
		out[id] = struct{}{}
	}
	return out
}

// TraversalOrder returns the tree nodes of root in breadth-first order, root
// first. The order is stable for identical input.
func (g *Graph) TraversalOrder(root types.PostID) []types.PostID {
	order, _ := g.levels(root)
	return order
}

// Stats computes depth, breadth and size of the tree rooted at root. Depth is
// the deepest BFS level, breadth the widest level. A root that is not in the
// graph counts as a lone node.
func (g *Graph) Stats(root types.PostID) types.TreeStats {
	order, depth := g.levels(root)
	if len(order) == 0 {
		return types.TreeStats{Root: root, NumNodes: 1}
	}

	perLevel := make(map[int]int)
	stats := types.TreeStats{Root: root, NumNodes: len(order)}
	for _, d := range depth {
		perLevel[d]++
		if d > stats.Depth {
			stats.Depth = d
		}
	}
	for _, n := range perLevel {
		if n > stats.Breadth {
			stats.Breadth = n
		}
	}
	return stats
}

// PostsFromTree resolves the tree rooted at root into posts, in traversal
// order. Ids with no entry in idx (e.g. filtered out earlier) are dropped.
func PostsFromTree(g *Graph, root types.PostID, idx *Index) []types.Post {
	var posts []types.Post
	for _, id := range g.TraversalOrder(root) {
		if p, ok := idx.Get(id); ok {
			posts = append(posts, p)
		}
	}
	return posts
}

// PostsFromTrees unions the trees of several roots. A post reachable from more
// than one root is returned once, at its first occurrence.
func PostsFromTrees(g *Graph, roots []types.PostID, idx *Index) []types.Post {
	seen := make(map[types.PostID]struct{})
	var posts []types.Post
	for _, root := range roots {
		for _, p := range PostsFromTree(g, root, idx) {
			if _, dup := seen[p.ID]; dup {
				continue
			}
			seen[p.ID] = struct{}{}
			posts = append(posts, p)
		}
	}
	return posts
}
