// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package poa

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Per-window storage estimates used to size device reservations.
const (
	scoreBytes = 4  // int32 alignment score
	nodeBytes  = 64 // base, edge lists, aligned nodes, coverage
)

// BatchSize holds the per-window limits a batch is built for. All
// derived dimensions are rounded up the same way the device buffers
// are laid out.
type BatchSize struct {
	MaxSequenceSize               int
	MaxConsensusSize              int
	MaxNodesPerWindow             int
	MaxNodesPerWindowBanded       int
	MaxMatrixGraphDimension       int
	MaxMatrixGraphDimensionBanded int
	MaxMatrixSequenceDimension    int
	BandWidth                     int
	MaxSequencesPerPoa            int
}

func alignUp(n, to int) int {
	return (n + to - 1) / to * to
}

// NewBatchSize derives every limit from the maximum sequence size:
// consensus up to twice as long, graphs up to 3x (4x when banded)
// as many nodes. bandWidth is rounded up to a multiple of 128.
func NewBatchSize(maxSequenceSize, maxSequencesPerPoa, bandWidth int) (BatchSize, error) {
	if maxSequenceSize <= 0 {
		return BatchSize{}, fmt.Errorf("max sequence size %d must be positive", maxSequenceSize)
	}
	if maxSequencesPerPoa <= 0 {
		return BatchSize{}, fmt.Errorf("max sequences per poa %d must be positive", maxSequencesPerPoa)
	}
	if bandWidth < 0 {
		return BatchSize{}, fmt.Errorf("band width %d cannot be negative", bandWidth)
	}
	bs := BatchSize{
		MaxSequenceSize:         maxSequenceSize,
		MaxConsensusSize:        2 * maxSequenceSize,
		MaxNodesPerWindow:       alignUp(3*maxSequenceSize, 4),
		MaxNodesPerWindowBanded: alignUp(4*maxSequenceSize, 4),
		BandWidth:               alignUp(bandWidth, 128),
		MaxSequencesPerPoa:      maxSequencesPerPoa,
	}
	bs.MaxMatrixGraphDimension = alignUp(bs.MaxNodesPerWindow, 4)
	bs.MaxMatrixGraphDimensionBanded = alignUp(bs.MaxNodesPerWindowBanded, 4)
	bs.MaxMatrixSequenceDimension = alignUp(maxSequenceSize, 4)
	if bs.BandWidth != bandWidth {
		log.Warnf("band width should be a multiple of 128, changed from %d to %d", bandWidth, bs.BandWidth)
	}
	return bs, nil
}

func (bs BatchSize) maxNodes(banded bool) int {
	if banded {
		return bs.MaxNodesPerWindowBanded
	}
	return bs.MaxNodesPerWindow
}

// windowBytes estimates the memory one window needs at full capacity:
// the score matrix, graph nodes, input sequences with weights, and
// consensus with coverage.
func (bs BatchSize) windowBytes(banded bool) int64 {
	rows := bs.MaxMatrixGraphDimension
	if banded {
		rows = bs.MaxMatrixGraphDimensionBanded
	}
	matrix := int64(rows+1) * int64(bs.MaxMatrixSequenceDimension+1) * scoreBytes
	nodes := int64(bs.maxNodes(banded)) * nodeBytes
	seqs := int64(bs.MaxSequencesPerPoa) * int64(bs.MaxSequenceSize) * 2
	consensus := int64(bs.MaxConsensusSize) * 3
	return matrix + nodes + seqs + consensus
}
