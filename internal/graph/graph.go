// Package graph builds the directed reply graph of a post collection and
// extracts the narrative trees hanging off anchor posts.
//
// Edges are stored parent -> child, so following stored edges walks toward
// replies. A post whose parent is not part of the collection keeps its node
// but loses the edge; self-parents are treated as "no parent".
package graph

import (
	"sort"

	"github.com/ibeckermayer/narratives/internal/types"
)

// IDSet is an unordered set of post ids.
type IDSet map[types.PostID]struct{}

// Has reports whether id is in the set.
func (s IDSet) Has(id types.PostID) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the ids in lexical order.
func (s IDSet) Sorted() []types.PostID {
	ids := make([]types.PostID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Graph is a directed post graph. It is read-only once Build returns.
type Graph struct {
	order    []types.PostID
	nodes    map[types.PostID]struct{}
	children map[types.PostID][]types.PostID
	inDegree map[types.PostID]int
	edges    int
	dangling map[types.PostID]types.PostID
}

// Build constructs the reply graph for posts. It never fails: posts without an
// id are skipped, dangling parent references drop their edge, and repeated ids
// reuse the existing node.
func Build(posts []types.Post) *Graph {
	g := &Graph{
		nodes:    make(map[types.PostID]struct{}, len(posts)),
		children: make(map[types.PostID][]types.PostID),
		inDegree: make(map[types.PostID]int),
		dangling: make(map[types.PostID]types.PostID),
	}

	for _, p := range posts {
		if p.ID == "" {
			continue
		}
		g.addNode(p.ID)
	}

	for _, p := range posts {
		if p.ID == "" || !p.HasParent() {
			continue
		}
		parent := p.Parent()
		if _, ok := g.nodes[parent]; !ok {
			g.dangling[p.ID] = parent
			continue
		}
		g.addEdge(parent, p.ID)
	}

	return g
}

func (g *Graph) addNode(id types.PostID) {
	if _, ok := g.nodes[id]; ok {
		return
	}
	g.nodes[id] = struct{}{}
	g.order = append(g.order, id)
}

func (g *Graph) addEdge(parent, child types.PostID) {
	for _, c := range g.children[parent] {
		if c == child {
			return
		}
	}
	g.children[parent] = append(g.children[parent], child)
	g.inDegree[child]++
	g.edges++
}

// Has reports whether id is a node of the graph.
func (g *Graph) Has(id types.PostID) bool {
	_, ok := g.nodes[id]
	return ok
}

// NumNodes returns the number of nodes.
func (g *Graph) NumNodes() int { return len(g.order) }

// NumEdges returns the number of parent -> child edges.
func (g *Graph) NumEdges() int { return g.edges }

// Nodes returns node ids in insertion order.
func (g *Graph) Nodes() []types.PostID {
	return append([]types.PostID(nil), g.order...)
}

// Children returns the direct replies of id in insertion order.
func (g *Graph) Children(id types.PostID) []types.PostID {
	return append([]types.PostID(nil), g.children[id]...)
}

// HasEdge reports whether child is a direct reply of parent.
func (g *Graph) HasEdge(parent, child types.PostID) bool {
	for _, c := range g.children[parent] {
		if c == child {
			return true
		}
	}
	return false
}

// Roots returns the nodes nobody in the graph points at, in insertion order.
func (g *Graph) Roots() []types.PostID {
	var roots []types.PostID
	for _, id := range g.order {
		if g.inDegree[id] == 0 {
			roots = append(roots, id)
		}
	}
	return roots
}

// DanglingParents maps each post whose parent is missing from the collection
// to that missing parent id.
func (g *Graph) DanglingParents() map[types.PostID]types.PostID {
	out := make(map[types.PostID]types.PostID, len(g.dangling))
	for k, v := range g.dangling {
		out[k] = v
	}
	return out
}
