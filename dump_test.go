// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package poa

import (
	"bytes"
	"errors"

	"gopkg.in/check.v1"
)

type dumpSuite struct{}

var _ = check.Suite(&dumpSuite{})

func executedBatch(c *check.C) *Batch {
	b, err := New(3, 16, nil)
	c.Assert(err, check.IsNil)
	_, err = b.AddPoas([][]string{
		{"ACTGACTG", "ACTTACTG", "ACGGACTG", "ATCGACTG"},
		{"GATTACA", "GATTACA"},
		{"CCCC", "CCGCC"},
	})
	c.Assert(err, check.IsNil)
	c.Assert(b.GeneratePoa(), check.IsNil)
	return b
}

func (s *dumpSuite) TestGetGraphs(c *check.C) {
	b := executedBatch(c)
	defer b.Close()
	graphs, err := b.GetGraphs()
	c.Assert(err, check.IsNil)
	c.Assert(graphs, check.HasLen, 3)
	for _, g := range graphs {
		c.Check(g.Validate(), check.IsNil)
	}
	c.Check(string(graphs[1].Labels), check.Equals, "GATTACA")
	c.Check(graphs[1].Edges().Len(), check.Equals, 6)
	c.Check(graphs[1].WeightedEdge(0, 1).Weight(), check.Equals, 2.0)
}

func (s *dumpSuite) TestRoundTrip(c *check.C) {
	b := executedBatch(c)
	defer b.Close()
	recs, err := b.GraphRecords()
	c.Assert(err, check.IsNil)
	c.Assert(recs, check.HasLen, 3)
	digests := b.Digests()
	for i, rec := range recs {
		c.Check(rec.BatchID, check.Equals, b.BatchID())
		c.Check(rec.Window, check.Equals, i)
		c.Check(rec.Digest, check.Equals, digests[i])
	}
	c.Check(string(recs[1].Labels), check.Equals, "GATTACA")

	for _, gz := range []bool{false, true} {
		var buf bytes.Buffer
		c.Assert(WriteGraphs(&buf, recs, gz), check.IsNil)
		var got []GraphRecord
		err := ReadGraphs(&buf, gz, func(rec *GraphRecord) error {
			got = append(got, *rec)
			return nil
		})
		c.Assert(err, check.IsNil)
		c.Check(got, check.DeepEquals, recs)
	}
}

func (s *dumpSuite) TestReadGraphsStop(c *check.C) {
	b := executedBatch(c)
	defer b.Close()
	recs, err := b.GraphRecords()
	c.Assert(err, check.IsNil)
	var buf bytes.Buffer
	c.Assert(WriteGraphs(&buf, recs, true), check.IsNil)
	stop := errors.New("stop")
	n := 0
	err = ReadGraphs(&buf, true, func(*GraphRecord) error {
		n++
		return stop
	})
	c.Check(err, check.Equals, stop)
	c.Check(n, check.Equals, 1)
}

func (s *dumpSuite) TestGraphRecordsState(c *check.C) {
	b, err := New(1, 8, nil)
	c.Assert(err, check.IsNil)
	defer b.Close()
	_, err = b.GraphRecords()
	checkKind(c, err, ErrInvalidState)
}
