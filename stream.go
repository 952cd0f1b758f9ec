// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package poa

import "sync"

// Stream orders work. Runs enqueued on a stream execute one at a
// time, in the order they were enqueued, even when several batches
// share the stream. The zero value is not usable; call NewStream.
type Stream struct {
	mtx     sync.Mutex
	closed  bool
	queue   chan streamOp
	pending sync.WaitGroup
}

type streamOp struct {
	fn   func() error
	done chan error
}

// NewStream starts the stream's worker goroutine, which exits only
// when Close is called. Callers must Close every stream they create.
func NewStream() *Stream {
	s := &Stream{queue: make(chan streamOp, 64)}
	go s.run()
	return s
}

func (s *Stream) run() {
	for op := range s.queue {
		op.done <- op.fn()
		s.pending.Done()
	}
}

// enqueue schedules fn and returns a channel that receives its result.
func (s *Stream) enqueue(fn func() error) (<-chan error, bool) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.closed {
		return nil, false
	}
	s.pending.Add(1)
	done := make(chan error, 1)
	s.queue <- streamOp{fn: fn, done: done}
	return done, true
}

// Synchronize blocks until all work enqueued so far has finished.
func (s *Stream) Synchronize() {
	s.pending.Wait()
}

// Close stops accepting work. Work already enqueued still runs.
func (s *Stream) Close() {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
}
