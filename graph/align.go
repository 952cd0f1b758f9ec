// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package graph

import (
	"errors"
	"fmt"
	"math"
)

// Default scores, matching the values the batch engine has always
// shipped with.
const (
	DefaultMatch    int16 = 8
	DefaultMismatch int16 = -6
	DefaultGap      int16 = -8
)

// negInf marks cells outside the alignment band. It is far enough
// from math.MinInt32 that adding a chain of gap penalties cannot wrap.
const negInf = math.MinInt32 / 2

var errOutsideBand = errors.New("best alignment leaves the band")

// Scoring holds the alignment score parameters. Scores are
// accumulated as int32; Fits reports whether a given capacity keeps
// every reachable score clear of overflow.
type Scoring struct {
	Match    int16
	Mismatch int16
	Gap      int16
}

// Fits reports whether aligning sequences of up to length symbols
// against graphs of up to nodes nodes keeps all scores in range.
func (sc Scoring) Fits(nodes, length int) bool {
	worst := int64(0)
	for _, s := range []int16{sc.Match, sc.Mismatch, sc.Gap} {
		v := int64(s)
		if v < 0 {
			v = -v
		}
		if v > worst {
			worst = v
		}
	}
	return int64(nodes+length+1)*worst < -negInf/2
}

func DefaultScoring() Scoring {
	return Scoring{Match: DefaultMatch, Mismatch: DefaultMismatch, Gap: DefaultGap}
}

func (sc Scoring) Validate() error {
	if sc.Match <= 0 {
		return fmt.Errorf("%w: match score %d must be positive", ErrInvalidInput, sc.Match)
	}
	if sc.Mismatch > 0 || sc.Gap >= 0 {
		return fmt.Errorf("%w: mismatch (%d) and gap (%d) scores must be penalties", ErrInvalidInput, sc.Mismatch, sc.Gap)
	}
	return nil
}

// Alignment pairs graph nodes with sequence positions, in path order.
// Nodes[k] == -1 means Positions[k] is inserted relative to the graph;
// Positions[k] == -1 means node Nodes[k] is skipped by the sequence.
type Alignment struct {
	Nodes     []int
	Positions []int
	Score     int32
}

func (aln *Alignment) Len() int { return len(aln.Nodes) }

func (aln *Alignment) push(node, pos int) {
	aln.Nodes = append(aln.Nodes, node)
	aln.Positions = append(aln.Positions, pos)
}

func (aln *Alignment) reverse() {
	for i, j := 0, len(aln.Nodes)-1; i < j; i, j = i+1, j-1 {
		aln.Nodes[i], aln.Nodes[j] = aln.Nodes[j], aln.Nodes[i]
		aln.Positions[i], aln.Positions[j] = aln.Positions[j], aln.Positions[i]
	}
}

// Aligner computes global alignments of sequences against a graph.
// It keeps its dynamic-programming buffers between calls, so one
// Aligner per window avoids reallocating for every fold. An Aligner
// is not safe for concurrent use.
type Aligner struct {
	Scoring Scoring
	// BandWidth limits scoring to cells within BandWidth/2 of each
	// node's expected diagonal. Zero scores the full matrix. When the
	// best path leaves the band the full matrix is used instead.
	BandWidth int

	scores   []int32
	order    []int
	indeg    []int
	rowOf    []int
	depth    []int
	predRows []int
}

func NewAligner(sc Scoring, bandWidth int) *Aligner {
	return &Aligner{Scoring: sc, BandWidth: bandWidth}
}

// Align returns the optimal global alignment of seq against g using
// sc. It does not modify g.
func Align(g *Graph, seq []byte, sc Scoring) (Alignment, error) {
	return NewAligner(sc, 0).Align(g, seq)
}

func (a *Aligner) Align(g *Graph, seq []byte) (Alignment, error) {
	if len(seq) == 0 {
		return Alignment{}, fmt.Errorf("%w: empty sequence", ErrInvalidInput)
	}
	if g.Len() == 0 {
		aln := Alignment{Score: int32(len(seq)) * int32(a.Scoring.Gap)}
		for i := range seq {
			aln.push(-1, i)
		}
		return aln, nil
	}
	if a.BandWidth > 0 {
		aln, err := a.align(g, seq, a.BandWidth)
		if !errors.Is(err, errOutsideBand) {
			return aln, err
		}
	}
	return a.align(g, seq, 0)
}

// predecessorRows fills a.predRows with the matrix rows of v's
// predecessors in ascending node ID order. Row 0 is the virtual start
// row, used for nodes with no predecessors.
func (a *Aligner) predecessorRows(g *Graph, v int) []int {
	rows := a.predRows[:0]
	in := g.nodes[v].in
	if len(in) == 0 {
		rows = append(rows, 0)
	}
	for _, e := range in {
		rows = append(rows, a.rowOf[g.edges[e].from])
	}
	a.predRows = rows
	return rows
}

func (a *Aligner) align(g *Graph, seq []byte, band int) (Alignment, error) {
	order, err := g.topoOrder(a.order, a.indeg)
	if err != nil {
		return Alignment{}, err
	}
	a.order = order
	n := len(order)
	cols := len(seq) + 1
	need := (n + 1) * cols
	if cap(a.scores) < need {
		a.scores = make([]int32, need)
	}
	S := a.scores[:need]
	if cap(a.rowOf) < g.Len() {
		a.rowOf = make([]int, g.Len())
	}
	a.rowOf = a.rowOf[:g.Len()]
	for r, v := range order {
		a.rowOf[v] = r + 1
	}

	match, mismatch, gap := int32(a.Scoring.Match), int32(a.Scoring.Mismatch), int32(a.Scoring.Gap)
	for i := 0; i < cols; i++ {
		S[i] = int32(i) * gap
	}

	maxDepth := 1
	if band > 0 {
		if cap(a.depth) < g.Len() {
			a.depth = make([]int, g.Len())
		}
		a.depth = a.depth[:g.Len()]
		for _, v := range order {
			d := 1
			for _, e := range g.nodes[v].in {
				if pd := a.depth[g.edges[e].from] + 1; pd > d {
					d = pd
				}
			}
			a.depth[v] = d
			if d > maxDepth {
				maxDepth = d
			}
		}
	}

	for r, v := range order {
		row := (r + 1) * cols
		lo, hi := 0, cols-1
		if band > 0 {
			center := a.depth[v] * (cols - 1) / maxDepth
			lo, hi = center-band/2, center+band/2
			if lo < 0 {
				lo = 0
			}
			if hi > cols-1 {
				hi = cols - 1
			}
			for i := 0; i < lo; i++ {
				S[row+i] = negInf
			}
			for i := hi + 1; i < cols; i++ {
				S[row+i] = negInf
			}
		}
		preds := a.predecessorRows(g, v)
		base := g.nodes[v].base
		for i := lo; i <= hi; i++ {
			best := int32(negInf)
			if i > 0 {
				sub := mismatch
				if seq[i-1] == base {
					sub = match
				}
				for _, p := range preds {
					if s := S[p*cols+i-1] + sub; s > best {
						best = s
					}
				}
				if s := S[row+i-1] + gap; s > best {
					best = s
				}
			}
			for _, p := range preds {
				if s := S[p*cols+i] + gap; s > best {
					best = s
				}
			}
			if best < negInf {
				best = negInf
			}
			S[row+i] = best
		}
	}

	last := cols - 1
	bestNode, bestScore := -1, int32(negInf)
	for id := range g.nodes {
		if len(g.nodes[id].out) != 0 {
			continue
		}
		if s := S[a.rowOf[id]*cols+last]; bestNode < 0 || s > bestScore {
			bestNode, bestScore = id, s
		}
	}
	if bestScore <= negInf/2 {
		if band > 0 {
			return Alignment{}, errOutsideBand
		}
		return Alignment{}, errTraceback
	}

	aln := Alignment{Score: bestScore}
	r, i := a.rowOf[bestNode], last
	for r != 0 || i != 0 {
		if r == 0 {
			aln.push(-1, i-1)
			i--
			continue
		}
		v := order[r-1]
		cur := S[r*cols+i]
		preds := a.predecessorRows(g, v)
		moved := false
		if i > 0 {
			sub := mismatch
			if seq[i-1] == g.nodes[v].base {
				sub = match
			}
			for _, p := range preds {
				if S[p*cols+i-1]+sub == cur {
					aln.push(v, i-1)
					r, i = p, i-1
					moved = true
					break
				}
			}
			if !moved && S[r*cols+i-1]+gap == cur {
				aln.push(-1, i-1)
				i--
				moved = true
			}
		}
		if !moved {
			for _, p := range preds {
				if S[p*cols+i]+gap == cur {
					aln.push(v, -1)
					r = p
					moved = true
					break
				}
			}
		}
		if !moved {
			return Alignment{}, errTraceback
		}
	}
	aln.reverse()
	return aln, nil
}
