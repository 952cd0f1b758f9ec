// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package graph

import "math"

// Consensus returns the bases along the heaviest path through the
// graph, and the number of sequences covering each returned base.
//
// Each node's score is the largest total edge weight of any path from
// a source to it; among equally heavy predecessors the lowest node ID
// wins, as does the lowest ID among equally heavy sinks. An empty
// graph yields an empty consensus.
func (g *Graph) Consensus() ([]byte, []uint16, error) {
	if g.Len() == 0 {
		return nil, nil, nil
	}
	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, nil, err
	}
	score := make([]int64, g.Len())
	pred := make([]int, g.Len())
	for _, v := range order {
		pred[v] = -1
		for _, e := range g.nodes[v].in {
			from := g.edges[e].from
			if s := score[from] + int64(g.edges[e].weight); pred[v] < 0 || s > score[v] {
				score[v], pred[v] = s, from
			}
		}
	}

	best := -1
	for id := range g.nodes {
		if len(g.nodes[id].out) == 0 && (best < 0 || score[id] > score[best]) {
			best = id
		}
	}

	var consensus []byte
	var coverage []uint16
	for v := best; v >= 0; v = pred[v] {
		consensus = append(consensus, g.nodes[v].base)
		cov := g.nodes[v].coverage
		if cov > math.MaxUint16 {
			cov = math.MaxUint16
		}
		coverage = append(coverage, uint16(cov))
	}
	for i, j := 0, len(consensus)-1; i < j; i, j = i+1, j-1 {
		consensus[i], consensus[j] = consensus[j], consensus[i]
		coverage[i], coverage[j] = coverage[j], coverage[i]
	}
	return consensus, coverage, nil
}
