// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

// Package graph implements the partial-order graph that a window's
// sequences are folded into, the graph-aware global alignment used
// to fold each new sequence, and the heaviest-path consensus that is
// read back out once every sequence has been folded.
//
// A Graph is not safe for concurrent use. Separate windows use
// separate graphs and never share memory.
package graph

import (
	"errors"
	"sort"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNodeLimit    = errors.New("node count exceeds graph capacity")
	ErrCycle        = errors.New("graph is not acyclic")
	errTraceback    = errors.New("alignment traceback did not reach the start cell")
)

type edge struct {
	from, to int
	weight   int32
}

type node struct {
	base     byte
	in       []int // edge indices, ordered by source node ID
	out      []int // edge indices, insertion order
	aligned  []int // node IDs sharing this node's alignment column
	coverage int   // number of sequences through this node
}

// Graph is a partial-order graph. Node IDs are assigned in insertion
// order starting at 0 and are not topologically sorted.
type Graph struct {
	maxNodes int
	nodes    []node
	edges    []edge
	paths    [][]int
}

// New returns an empty graph that refuses to grow beyond maxNodes
// nodes. maxNodes <= 0 means unlimited.
func New(maxNodes int) *Graph {
	return &Graph{maxNodes: maxNodes}
}

// Reset empties the graph. Backing storage is kept for reuse.
func (g *Graph) Reset() {
	g.nodes = g.nodes[:0]
	g.edges = g.edges[:0]
	g.paths = g.paths[:0]
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Edges returns the number of distinct edges.
func (g *Graph) Edges() int { return len(g.edges) }

// Sequences returns the number of sequences folded so far.
func (g *Graph) Sequences() int { return len(g.paths) }

func (g *Graph) Base(id int) byte { return g.nodes[id].base }

func (g *Graph) Coverage(id int) int { return g.nodes[id].coverage }

// Predecessors returns the source node IDs of id's incoming edges in
// ascending order.
func (g *Graph) Predecessors(id int) []int {
	in := g.nodes[id].in
	preds := make([]int, len(in))
	for i, e := range in {
		preds[i] = g.edges[e].from
	}
	return preds
}

// Successors returns the target node IDs of id's outgoing edges in
// the order the edges were created.
func (g *Graph) Successors(id int) []int {
	out := g.nodes[id].out
	succs := make([]int, len(out))
	for i, e := range out {
		succs[i] = g.edges[e].to
	}
	return succs
}

// Aligned returns the IDs of nodes occupying the same alignment
// column as id.
func (g *Graph) Aligned(id int) []int {
	return append([]int(nil), g.nodes[id].aligned...)
}

// EdgeWeight returns the weight of the edge from -> to.
func (g *Graph) EdgeWeight(from, to int) (int32, bool) {
	for _, e := range g.nodes[from].out {
		if g.edges[e].to == to {
			return g.edges[e].weight, true
		}
	}
	return 0, false
}

// EachEdge calls fn for every edge in creation order.
func (g *Graph) EachEdge(fn func(from, to int, weight int32)) {
	for _, e := range g.edges {
		fn(e.from, e.to, e.weight)
	}
}

// Path returns the node IDs visited by the seq'th folded sequence.
func (g *Graph) Path(seq int) []int {
	return append([]int(nil), g.paths[seq]...)
}

func (g *Graph) addNode(base byte) int {
	id := len(g.nodes)
	if id < cap(g.nodes) {
		g.nodes = g.nodes[:id+1]
		n := &g.nodes[id]
		n.base = base
		n.in = n.in[:0]
		n.out = n.out[:0]
		n.aligned = n.aligned[:0]
		n.coverage = 0
	} else {
		g.nodes = append(g.nodes, node{base: base})
	}
	return id
}

func (g *Graph) addEdge(from, to int, weight int32) {
	for _, e := range g.nodes[from].out {
		if g.edges[e].to == to {
			g.edges[e].weight += weight
			return
		}
	}
	id := len(g.edges)
	g.edges = append(g.edges, edge{from: from, to: to, weight: weight})
	g.nodes[from].out = append(g.nodes[from].out, id)
	in := g.nodes[to].in
	i := sort.Search(len(in), func(k int) bool { return g.edges[in[k]].from > from })
	in = append(in, 0)
	copy(in[i+1:], in[i:])
	in[i] = id
	g.nodes[to].in = in
}

// alignNodes records that a and every node already aligned with b
// share one column.
func (g *Graph) alignNodes(a, b int) {
	for _, other := range g.nodes[b].aligned {
		g.nodes[a].aligned = append(g.nodes[a].aligned, other)
		g.nodes[other].aligned = append(g.nodes[other].aligned, a)
	}
	g.nodes[a].aligned = append(g.nodes[a].aligned, b)
	g.nodes[b].aligned = append(g.nodes[b].aligned, a)
}

// alignedWithBase returns the node in id's column carrying base, or
// -1.
func (g *Graph) alignedWithBase(id int, base byte) int {
	for _, other := range g.nodes[id].aligned {
		if g.nodes[other].base == base {
			return other
		}
	}
	return -1
}

func (g *Graph) newPath() int {
	i := len(g.paths)
	if i < cap(g.paths) {
		g.paths = g.paths[:i+1]
		g.paths[i] = g.paths[i][:0]
	} else {
		g.paths = append(g.paths, nil)
	}
	return i
}

// TopologicalOrder returns every node ID such that each edge points
// from an earlier entry to a later one. Sources are taken in
// ascending ID order, so the result is deterministic.
func (g *Graph) TopologicalOrder() ([]int, error) {
	return g.topoOrder(nil, nil)
}

func (g *Graph) topoOrder(order, indeg []int) ([]int, error) {
	n := len(g.nodes)
	if cap(indeg) < n {
		indeg = make([]int, n)
	}
	indeg = indeg[:n]
	order = order[:0]
	for id := range g.nodes {
		indeg[id] = len(g.nodes[id].in)
		if indeg[id] == 0 {
			order = append(order, id)
		}
	}
	for head := 0; head < len(order); head++ {
		for _, e := range g.nodes[order[head]].out {
			to := g.edges[e].to
			indeg[to]--
			if indeg[to] == 0 {
				order = append(order, to)
			}
		}
	}
	if len(order) != n {
		return nil, ErrCycle
	}
	return order, nil
}
