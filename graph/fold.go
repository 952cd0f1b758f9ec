// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package graph

import "fmt"

// Fold adds seq to the graph. The first sequence becomes a linear
// chain; later sequences are aligned against the current graph with
// a and merged along the alignment. weights, if non-nil, gives a
// per-base weight added to the edge entering each base; nil means
// every base weighs 1.
//
// If the merge would push the graph past its node limit, Fold
// returns ErrNodeLimit and leaves the graph unchanged.
func (g *Graph) Fold(a *Aligner, seq []byte, weights []int8) error {
	if len(seq) == 0 {
		return fmt.Errorf("%w: empty sequence", ErrInvalidInput)
	}
	if weights != nil && len(weights) != len(seq) {
		return fmt.Errorf("%w: %d weights for %d bases", ErrInvalidInput, len(weights), len(seq))
	}
	for i, w := range weights {
		if w < 0 {
			return fmt.Errorf("%w: negative weight %d at position %d", ErrInvalidInput, w, i)
		}
	}
	if g.Len() == 0 {
		return g.chain(seq, weights)
	}
	if a == nil {
		a = NewAligner(DefaultScoring(), 0)
	}
	aln, err := a.Align(g, seq)
	if err != nil {
		return err
	}
	return g.merge(aln, seq, weights)
}

func weightAt(weights []int8, i int) int32 {
	if weights == nil {
		return 1
	}
	return int32(weights[i])
}

func (g *Graph) chain(seq []byte, weights []int8) error {
	if g.maxNodes > 0 && len(seq) > g.maxNodes {
		return fmt.Errorf("%w: %d bases, limit %d nodes", ErrNodeLimit, len(seq), g.maxNodes)
	}
	path := g.newPath()
	prev := -1
	for i, b := range seq {
		cur := g.addNode(b)
		if prev >= 0 {
			g.addEdge(prev, cur, weightAt(weights, i))
		}
		g.nodes[cur].coverage++
		g.paths[path] = append(g.paths[path], cur)
		prev = cur
	}
	return nil
}

func (g *Graph) merge(aln Alignment, seq []byte, weights []int8) error {
	need := 0
	for k, n := range aln.Nodes {
		i := aln.Positions[k]
		if i < 0 {
			continue
		}
		if n < 0 || (g.nodes[n].base != seq[i] && g.alignedWithBase(n, seq[i]) < 0) {
			need++
		}
	}
	if g.maxNodes > 0 && g.Len()+need > g.maxNodes {
		return fmt.Errorf("%w: %d nodes + %d new, limit %d", ErrNodeLimit, g.Len(), need, g.maxNodes)
	}

	path := g.newPath()
	prev := -1
	for k, n := range aln.Nodes {
		i := aln.Positions[k]
		if i < 0 {
			continue
		}
		b := seq[i]
		var cur int
		switch {
		case n < 0:
			cur = g.addNode(b)
		case g.nodes[n].base == b:
			cur = n
		default:
			cur = g.alignedWithBase(n, b)
			if cur < 0 {
				cur = g.addNode(b)
				g.alignNodes(cur, n)
			}
		}
		if prev >= 0 {
			g.addEdge(prev, cur, weightAt(weights, i))
		}
		g.nodes[cur].coverage++
		g.paths[path] = append(g.paths[path], cur)
		prev = cur
	}
	return nil
}
