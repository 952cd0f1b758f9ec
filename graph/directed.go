// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package graph

import (
	"fmt"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Directed is a read-only copy of a partial-order graph as a gonum
// weighted directed graph. Node IDs match the source Graph's IDs.
type Directed struct {
	*simple.WeightedDirectedGraph
	Labels []byte
}

// Directed exports g. The result shares no memory with g.
func (g *Graph) Directed() *Directed {
	d := &Directed{
		WeightedDirectedGraph: simple.NewWeightedDirectedGraph(0, 0),
		Labels:                make([]byte, g.Len()),
	}
	for id := range g.nodes {
		d.AddNode(simple.Node(id))
		d.Labels[id] = g.nodes[id].base
	}
	for _, e := range g.edges {
		d.SetWeightedEdge(d.NewWeightedEdge(simple.Node(e.from), simple.Node(e.to), float64(e.weight)))
	}
	return d
}

// Validate returns an error wrapping ErrCycle if the graph has a
// cycle.
func (d *Directed) Validate() error {
	if _, err := topo.Sort(d); err != nil {
		return fmt.Errorf("%w: %s", ErrCycle, err)
	}
	return nil
}
