// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package poa

import (
	"errors"
	"strings"

	"gopkg.in/check.v1"
)

type configSuite struct{}

var _ = check.Suite(&configSuite{})

func (s *configSuite) TestLoad(c *check.C) {
	cfg, err := LoadConfig(strings.NewReader(`
max_windows: 20
max_sequence_size: 500
banded_alignment: true
band_width: 128
outputs: [consensus, msa]
scoring:
  match: 5
  mismatch: -4
  gap: -6
`))
	c.Assert(err, check.IsNil)
	c.Check(cfg.MaxWindows, check.Equals, 20)
	c.Check(cfg.MaxSequenceSize, check.Equals, 500)
	c.Check(cfg.MaxSequencesPerPoa, check.Equals, 100)
	c.Check(cfg.BandedAlignment, check.Equals, true)
	c.Check(cfg.Alphabet, check.Equals, "ACGT")
	c.Check(cfg.Scoring, check.Equals, ScoringConfig{Match: 5, Mismatch: -4, Gap: -6})
	c.Check(cfg.outputMask(), check.Equals, OutputConsensus|OutputMSA)

	b, err := NewBatch(cfg)
	c.Assert(err, check.IsNil)
	c.Check(b.Size().BandWidth, check.Equals, 128)
	c.Check(b.Close(), check.IsNil)
}

func (s *configSuite) TestLoadEmpty(c *check.C) {
	cfg, err := LoadConfig(strings.NewReader(""))
	c.Assert(err, check.IsNil)
	c.Check(cfg, check.DeepEquals, DefaultConfig())
}

func (s *configSuite) TestLoadErrors(c *check.C) {
	for _, trial := range []struct {
		yaml  string
		match string
	}{
		{"max_windowz: 3\n", `(?s).*field max_windowz not found.*`},
		{"max_windows: 0\n", `(?s).*MaxWindows.*gte.*`},
		{"outputs: [fasta]\n", `(?s).*Outputs\[0\].*oneof.*`},
		{"outputs: []\n", `(?s).*Outputs.*min.*`},
		{"scoring: {match: 0}\n", `(?s).*Match.*gt.*`},
		{"scoring: {gap: 2}\n", `(?s).*Gap.*lt.*`},
		{"alphabet: \"\"\n", `(?s).*Alphabet.*required.*`},
		{"banded_alignment: true\nband_width: 0\n", `(?s).*BandWidth.*required_if.*`},
		{"band_width: -1\n", `(?s).*BandWidth.*gte.*`},
	} {
		c.Logf("%q", trial.yaml)
		_, err := LoadConfig(strings.NewReader(trial.yaml))
		c.Check(errors.Is(err, ErrInvalidInput), check.Equals, true)
		c.Check(err, check.ErrorMatches, trial.match)
	}
}

func (s *configSuite) TestBandWidthUnbanded(c *check.C) {
	cfg, err := LoadConfig(strings.NewReader("max_windows: 1\nmax_sequence_size: 8\nband_width: 0\n"))
	c.Assert(err, check.IsNil)
	c.Check(cfg.BandWidth, check.Equals, 0)
	b, err := NewBatch(cfg)
	c.Assert(err, check.IsNil)
	defer b.Close()
	c.Check(b.Size().BandWidth, check.Equals, 0)
	_, err = b.AddPoas([][]string{{"ACGT", "ACGT"}})
	c.Assert(err, check.IsNil)
	c.Check(b.GeneratePoa(), check.IsNil)
}

func (s *configSuite) TestAlphabet(c *check.C) {
	cfg := DefaultConfig()
	cfg.MaxWindows = 1
	cfg.MaxSequenceSize = 8
	cfg.Alphabet = "ACGTN"
	b, err := NewBatch(cfg)
	c.Assert(err, check.IsNil)
	defer b.Close()
	_, err = b.AddPoas([][]string{{"ACNT", "ACNT"}})
	c.Assert(err, check.IsNil)
	c.Assert(b.GeneratePoa(), check.IsNil)
	consensus, err := b.GetConsensus()
	c.Assert(err, check.IsNil)
	c.Check(string(consensus[0]), check.Equals, "ACNT")
}
