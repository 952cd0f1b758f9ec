// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package poa

import "fmt"

// Status reports what happened to one sequence on add, or to one
// window on execution.
type Status int

const (
	StatusSuccess Status = iota
	StatusPending
	StatusExceededMaximumSequencesPerPoa
	StatusNodeCountExceededMaximumGraphSize
	StatusExceededMaximumConsensusSize
	StatusEmptyWindow
	StatusGraphError
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusPending:
		return "pending"
	case StatusExceededMaximumSequencesPerPoa:
		return "exceeded maximum sequences per poa"
	case StatusNodeCountExceededMaximumGraphSize:
		return "node count exceeded maximum graph size"
	case StatusExceededMaximumConsensusSize:
		return "exceeded maximum consensus size"
	case StatusEmptyWindow:
		return "empty window"
	case StatusGraphError:
		return "graph error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// OutputType selects which results a batch produces.
type OutputType uint8

const (
	OutputConsensus OutputType = 1 << iota
	OutputMSA
)
