// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package poa

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error returned by a Batch matches exactly one of
// these with errors.Is.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrCapacityExceeded  = errors.New("capacity exceeded")
	ErrInvalidState      = errors.New("invalid state")
	ErrResourceExhausted = errors.New("resource exhausted")
	ErrExecutionFailure  = errors.New("execution failure")
)

// Error describes a failed batch operation. Window and Sequence are
// -1 when the failure is not tied to one window or sequence; Length
// and Limit are set when a size limit was exceeded.
type Error struct {
	Kind     error
	Op       string
	Window   int
	Sequence int
	Length   int64
	Limit    int64
	Err      error
}

func newError(op string, kind error) *Error {
	return &Error{Op: op, Kind: kind, Window: -1, Sequence: -1}
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Op, e.Kind)
	if e.Window >= 0 {
		fmt.Fprintf(&b, " (window %d", e.Window)
		if e.Sequence >= 0 {
			fmt.Fprintf(&b, ", sequence %d", e.Sequence)
		}
		b.WriteString(")")
	}
	if e.Limit > 0 {
		fmt.Fprintf(&b, ": %d exceeds limit %d", e.Length, e.Limit)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %s", e.Err)
	}
	return b.String()
}

func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.Err }
