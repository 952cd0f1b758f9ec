// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package graph

import (
	"errors"
	"math/rand"

	"gopkg.in/check.v1"
)

type alignSuite struct{}

var _ = check.Suite(&alignSuite{})

func chainGraph(c *check.C, seqs ...string) *Graph {
	g := New(0)
	foldAll(c, g, seqs...)
	return g
}

func (s *alignSuite) TestExactMatch(c *check.C) {
	g := chainGraph(c, "ACGT")
	aln, err := Align(g, []byte("ACGT"), DefaultScoring())
	c.Assert(err, check.IsNil)
	c.Check(aln.Nodes, check.DeepEquals, []int{0, 1, 2, 3})
	c.Check(aln.Positions, check.DeepEquals, []int{0, 1, 2, 3})
	c.Check(aln.Score, check.Equals, int32(4*DefaultMatch))
}

func (s *alignSuite) TestDeletion(c *check.C) {
	g := chainGraph(c, "ACGT")
	aln, err := Align(g, []byte("AGT"), DefaultScoring())
	c.Assert(err, check.IsNil)
	c.Check(aln.Nodes, check.DeepEquals, []int{0, 1, 2, 3})
	c.Check(aln.Positions, check.DeepEquals, []int{0, -1, 1, 2})
	c.Check(aln.Score, check.Equals, int32(3*DefaultMatch+DefaultGap))
}

func (s *alignSuite) TestInsertion(c *check.C) {
	g := chainGraph(c, "ACGT")
	aln, err := Align(g, []byte("ACGTT"), DefaultScoring())
	c.Assert(err, check.IsNil)
	c.Check(aln.Len(), check.Equals, 5)
	c.Check(aln.Score, check.Equals, int32(4*DefaultMatch+DefaultGap))
	inserted := 0
	for _, n := range aln.Nodes {
		if n < 0 {
			inserted++
		}
	}
	c.Check(inserted, check.Equals, 1)
}

func (s *alignSuite) TestBranchPoint(c *check.C) {
	// Node 2 (G) has two predecessors: C (1) and the aligned A (4).
	g := chainGraph(c, "ACGT", "AAGT")
	c.Check(g.Predecessors(2), check.DeepEquals, []int{1, 4})

	aln, err := Align(g, []byte("AAGT"), DefaultScoring())
	c.Assert(err, check.IsNil)
	c.Check(aln.Nodes, check.DeepEquals, []int{0, 4, 2, 3})
	c.Check(aln.Score, check.Equals, int32(4*DefaultMatch))

	aln, err = Align(g, []byte("ACGT"), DefaultScoring())
	c.Assert(err, check.IsNil)
	c.Check(aln.Nodes, check.DeepEquals, []int{0, 1, 2, 3})
}

func (s *alignSuite) TestTieBreakLowestPredecessor(c *check.C) {
	g := chainGraph(c, "ACGT", "AAGT")
	// T mismatches both C (1) and A (4) equally.
	aln, err := Align(g, []byte("ATGT"), DefaultScoring())
	c.Assert(err, check.IsNil)
	c.Check(aln.Nodes, check.DeepEquals, []int{0, 1, 2, 3})
}

func (s *alignSuite) TestEmptyGraph(c *check.C) {
	aln, err := Align(New(0), []byte("ACG"), DefaultScoring())
	c.Assert(err, check.IsNil)
	c.Check(aln.Nodes, check.DeepEquals, []int{-1, -1, -1})
	c.Check(aln.Positions, check.DeepEquals, []int{0, 1, 2})
}

func (s *alignSuite) TestEmptySequence(c *check.C) {
	_, err := Align(chainGraph(c, "ACGT"), nil, DefaultScoring())
	c.Check(errors.Is(err, ErrInvalidInput), check.Equals, true)
}

func (s *alignSuite) TestDoesNotModifyGraph(c *check.C) {
	g := chainGraph(c, "ACGT", "ACCT")
	n, e := g.Len(), g.Edges()
	_, err := Align(g, []byte("TTTTTTTT"), DefaultScoring())
	c.Assert(err, check.IsNil)
	c.Check(g.Len(), check.Equals, n)
	c.Check(g.Edges(), check.Equals, e)
}

func (s *alignSuite) TestDeterministic(c *check.C) {
	g := chainGraph(c, "ACTGACTG", "ACTTACTG", "ACGGACTG")
	a := NewAligner(DefaultScoring(), 0)
	first, err := a.Align(g, []byte("ATCGACTG"))
	c.Assert(err, check.IsNil)
	for i := 0; i < 5; i++ {
		again, err := a.Align(g, []byte("ATCGACTG"))
		c.Assert(err, check.IsNil)
		c.Check(again, check.DeepEquals, first)
	}
}

func (s *alignSuite) TestBandedAgreesOnSimilarSequences(c *check.C) {
	rnd := rand.New(rand.NewSource(1))
	ref := make([]byte, 300)
	for i := range ref {
		ref[i] = "ACGT"[rnd.Intn(4)]
	}
	g := New(0)
	full := NewAligner(DefaultScoring(), 0)
	banded := NewAligner(DefaultScoring(), 32)
	for n := 0; n < 10; n++ {
		read := append([]byte(nil), ref...)
		read[rnd.Intn(len(read))] = "ACGT"[rnd.Intn(4)]
		if g.Len() > 0 {
			want, err := full.Align(g, read)
			c.Assert(err, check.IsNil)
			got, err := banded.Align(g, read)
			c.Assert(err, check.IsNil)
			c.Check(got.Score, check.Equals, want.Score)
		}
		c.Assert(g.Fold(full, read, nil), check.IsNil)
	}
}

func (s *alignSuite) TestBandFallback(c *check.C) {
	// The bands of a 2-node graph against a 40-base read do not
	// overlap, so no in-band path reaches the sink.
	g := chainGraph(c, "AC")
	read := []byte("AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	want, err := Align(g, read, DefaultScoring())
	c.Assert(err, check.IsNil)
	got, err := NewAligner(DefaultScoring(), 2).Align(g, read)
	c.Assert(err, check.IsNil)
	c.Check(got.Score, check.Equals, want.Score)
}

func (s *alignSuite) TestScoring(c *check.C) {
	c.Check(DefaultScoring().Validate(), check.IsNil)
	c.Check(errors.Is(Scoring{Match: 0, Mismatch: -1, Gap: -1}.Validate(), ErrInvalidInput), check.Equals, true)
	c.Check(errors.Is(Scoring{Match: 1, Mismatch: 1, Gap: -1}.Validate(), ErrInvalidInput), check.Equals, true)
	c.Check(errors.Is(Scoring{Match: 1, Mismatch: -1, Gap: 0}.Validate(), ErrInvalidInput), check.Equals, true)
	c.Check(DefaultScoring().Fits(3000, 1000), check.Equals, true)
	c.Check(Scoring{Match: 32767, Mismatch: -32768, Gap: -32768}.Fits(30000, 10000), check.Equals, false)
}
