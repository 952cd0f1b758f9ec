// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package graph

import "bytes"

// GapChar fills MSA columns a sequence does not occupy.
const GapChar = '-'

// MSA returns one gapped row per folded sequence, in fold order. Nodes
// aligned with each other share a column; columns follow the graph's
// topological order, so every row has the same width.
func (g *Graph) MSA() ([]string, error) {
	if g.Len() == 0 {
		return nil, nil
	}
	// Aligned nodes form a clique, so the lowest ID in the clique
	// names the column group.
	group := make([]int, g.Len())
	for id := range g.nodes {
		group[id] = id
		for _, other := range g.nodes[id].aligned {
			if other < group[id] {
				group[id] = other
			}
		}
	}
	indeg := make([]int, g.Len())
	groups := 0
	for id := range g.nodes {
		if group[id] == id {
			groups++
		}
	}
	for _, e := range g.edges {
		if gf, gt := group[e.from], group[e.to]; gf != gt {
			indeg[gt]++
		}
	}

	column := make([]int, g.Len())
	var queue []int
	for id := range g.nodes {
		if group[id] == id && indeg[id] == 0 {
			queue = append(queue, id)
		}
	}
	cols := 0
	for head := 0; head < len(queue); head++ {
		gid := queue[head]
		column[gid] = cols
		cols++
		members := append([]int{gid}, g.nodes[gid].aligned...)
		for _, m := range members {
			for _, e := range g.nodes[m].out {
				gt := group[g.edges[e].to]
				if gt == gid {
					continue
				}
				indeg[gt]--
				if indeg[gt] == 0 {
					queue = append(queue, gt)
				}
			}
		}
	}
	if cols != groups {
		return nil, ErrCycle
	}

	rows := make([]string, len(g.paths))
	for s, path := range g.paths {
		row := bytes.Repeat([]byte{GapChar}, cols)
		for _, v := range path {
			row[column[group[v]]] = g.nodes[v].base
		}
		rows[s] = string(row)
	}
	return rows, nil
}
