// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package poa

import (
	"errors"
	"fmt"
	"strings"

	"github.com/arvados/lightning-poa/graph"
	"golang.org/x/crypto/blake2b"
)

// slot holds one window's inputs, graph, and results. Slots are
// disjoint, so a worker owns its slot exclusively during execution.
// Buffers are truncated on reset, never freed.
type slot struct {
	index   int
	bases   []byte
	weights []int8
	spans   [][2]int
	weighed bool
	digest  [blake2b.Size256]byte

	graph   *graph.Graph
	aligner *graph.Aligner

	consensus []byte
	coverage  []uint16
	msa       []string
	skipped   []int // sequences left out at the node limit
	status    Status
	err       error
}

func newSlot(index, maxNodes int, sc graph.Scoring, bandWidth int) *slot {
	return &slot{
		index:   index,
		graph:   graph.New(maxNodes),
		aligner: graph.NewAligner(sc, bandWidth),
	}
}

func (s *slot) reset() {
	s.bases = s.bases[:0]
	s.weights = s.weights[:0]
	s.spans = s.spans[:0]
	s.weighed = false
	s.digest = [blake2b.Size256]byte{}
	s.graph.Reset()
	s.consensus = s.consensus[:0]
	s.coverage = s.coverage[:0]
	s.msa = s.msa[:0]
	s.skipped = s.skipped[:0]
	s.status = StatusPending
	s.err = nil
}

// load copies the accepted entries of group into the slot.
func (s *slot) load(group Group, accepted int) {
	h, _ := blake2b.New256(nil)
	for _, ent := range group[:accepted] {
		start := len(s.bases)
		s.bases = append(s.bases, ent.Sequence...)
		if ent.Weights != nil {
			s.weighed = true
			s.weights = append(s.weights, ent.Weights...)
		} else {
			for range ent.Sequence {
				s.weights = append(s.weights, 1)
			}
		}
		s.spans = append(s.spans, [2]int{start, len(s.bases)})
		h.Write(ent.Sequence)
		h.Write([]byte{0})
	}
	h.Sum(s.digest[:0])
	s.status = StatusPending
}

func (s *slot) sequence(i int) ([]byte, []int8) {
	span := s.spans[i]
	if !s.weighed {
		return s.bases[span[0]:span[1]], nil
	}
	return s.bases[span[0]:span[1]], s.weights[span[0]:span[1]]
}

// run folds every sequence into the slot's graph and extracts the
// requested outputs. A sequence that would push the graph past its
// node limit is left out, the rest are still folded, and the window
// ends with StatusNodeCountExceededMaximumGraphSize. The same goes for
// a consensus longer than maxConsensus, which is dropped. Only graph
// errors are returned.
func (s *slot) run(mask OutputType, maxConsensus int) error {
	if len(s.spans) == 0 {
		s.status = StatusEmptyWindow
		return nil
	}
	s.status = StatusSuccess
	for i := range s.spans {
		seq, weights := s.sequence(i)
		err := s.graph.Fold(s.aligner, seq, weights)
		if errors.Is(err, graph.ErrNodeLimit) {
			s.status = StatusNodeCountExceededMaximumGraphSize
			s.skipped = append(s.skipped, i)
			continue
		} else if err != nil {
			s.status = StatusGraphError
			s.err = fmt.Errorf("sequence %d: %w", i, err)
			return s.err
		}
	}
	if mask&OutputConsensus != 0 {
		consensus, coverage, err := s.graph.Consensus()
		if err != nil {
			s.status, s.err = StatusGraphError, err
			return err
		}
		if len(consensus) > maxConsensus {
			s.status = StatusExceededMaximumConsensusSize
		} else {
			s.consensus = append(s.consensus[:0], consensus...)
			s.coverage = append(s.coverage[:0], coverage...)
		}
	}
	if mask&OutputMSA != 0 {
		msa, err := s.graph.MSA()
		if err != nil {
			s.status, s.err = StatusGraphError, err
			return err
		}
		s.msa = s.msa[:0]
		gaps := ""
		if len(msa) > 0 {
			gaps = strings.Repeat(string(graph.GapChar), len(msa[0]))
		}
		skipped := s.skipped
		for i := range s.spans {
			if len(skipped) > 0 && skipped[0] == i {
				s.msa = append(s.msa, gaps)
				skipped = skipped[1:]
				continue
			}
			s.msa = append(s.msa, msa[0])
			msa = msa[1:]
		}
	}
	return nil
}
