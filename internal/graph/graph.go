// Package graph walks directed issue graphs without knowing how the edges
// are stored. The dependency cycle guard, transitive blocking queries and
// subissue cascades all use the same walk.
package graph

import "sort"

// Adjacency yields the outgoing neighbours of a node. For the dependency
// graph that is the set of issues id blocks; for the parent graph it is the
// set of direct subissues.
type Adjacency interface {
	BlockingOf(id int64) ([]int64, error)
}

// AdjacencyFunc adapts a function to Adjacency.
type AdjacencyFunc func(id int64) ([]int64, error)

// BlockingOf calls f(id).
func (f AdjacencyFunc) BlockingOf(id int64) ([]int64, error) {
	return f(id)
}

// MapAdjacency is an in-memory adjacency keyed by source node.
type MapAdjacency map[int64][]int64

// BlockingOf returns the neighbours of id.
func (m MapAdjacency) BlockingOf(id int64) ([]int64, error) {
	return m[id], nil
}

// AddEdge records an edge from → to.
func (m MapAdjacency) AddEdge(from, to int64) {
	m[from] = append(m[from], to)
}

// Reachable reports whether to can be reached from from by following edges.
// A node always reaches itself. The walk is an iterative depth-first search
// with a visited set, so it terminates on cyclic input.
func Reachable(adj Adjacency, from, to int64) (bool, error) {
	found := false
	err := walk(adj, from, func(id int64) bool {
		if id == to {
			found = true
			return false
		}
		return true
	})
	return found, err
}

// WouldCreateCycle reports whether adding the edge blocker → blocked closes
// a cycle, which is the case exactly when blocked already reaches blocker.
func WouldCreateCycle(adj Adjacency, blockedID, blockerID int64) (bool, error) {
	return Reachable(adj, blockedID, blockerID)
}

// Descendants returns every node reachable from root, excluding root, sorted
// ascending.
func Descendants(adj Adjacency, root int64) ([]int64, error) {
	out := []int64{}
	err := walk(adj, root, func(id int64) bool {
		if id != root {
			out = append(out, id)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// walk visits each node reachable from start once. visit returns false to
// stop the walk early.
func walk(adj Adjacency, start int64, visit func(id int64) bool) error {
	visited := make(map[int64]bool)
	stack := []int64{start}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[current] {
			continue
		}
		visited[current] = true
		if !visit(current) {
			return nil
		}
		next, err := adj.BlockingOf(current)
		if err != nil {
			return err
		}
		for _, n := range next {
			if !visited[n] {
				stack = append(stack, n)
			}
		}
	}
	return nil
}
