// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

// Package poa computes partial-order alignment consensus sequences
// for batches of independent windows.
//
// A Batch is filled with windows (AddPoas or AddPoaGroup), executed
// once (GeneratePoa), read out (GetConsensus and friends), and then
// either closed or Reset for another round. Windows in one batch run
// in parallel; the sequences within a window are folded in order.
package poa

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/arvados/lightning-poa/graph"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"
)

type batchState int

const (
	stateEmpty batchState = iota
	stateFilling
	stateExecuted
	stateFailed
	stateClosed
)

func (s batchState) String() string {
	switch s {
	case stateEmpty:
		return "empty"
	case stateFilling:
		return "filling"
	case stateExecuted:
		return "executed"
	case stateFailed:
		return "failed"
	case stateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Entry is one sequence of a window. Weights, if non-nil, has one
// non-negative weight per base; nil weighs every base 1.
type Entry struct {
	Sequence []byte
	Weights  []int8
}

// Group is the ordered set of entries making up one window.
type Group []Entry

var lastBatchID int64

// Batch owns the graphs, buffers, and device reservation for up to
// MaxWindows windows. A Batch is not safe for concurrent use.
type Batch struct {
	id       int
	cfg      Config
	size     BatchSize
	mask     OutputType
	scoring  graph.Scoring
	alphabet [256]bool

	device   *Device
	reserved int64
	stream   *Stream
	metrics  *Metrics
	logger   *log.Entry

	state  batchState
	slots  []*slot
	filled int
}

// New returns a batch for maxWindows windows of sequences up to
// maxSequenceLength bases, with every other setting at its default.
// stream may be nil.
func New(maxWindows, maxSequenceLength int, stream *Stream) (*Batch, error) {
	cfg := DefaultConfig()
	cfg.MaxWindows = maxWindows
	cfg.MaxSequenceSize = maxSequenceLength
	cfg.Stream = stream
	return NewBatch(cfg)
}

// NewBatch validates cfg and reserves device memory for the batch's
// full capacity. If the device cannot cover it, NewBatch fails with
// ErrResourceExhausted and reserves nothing.
func NewBatch(cfg Config) (*Batch, error) {
	const op = "new batch"
	fail := func(kind error, err error) (*Batch, error) {
		e := newError(op, kind)
		e.Err = err
		return nil, e
	}
	if err := cfg.Validate(); err != nil {
		return fail(ErrInvalidInput, err)
	}
	size, err := NewBatchSize(cfg.MaxSequenceSize, cfg.MaxSequencesPerPoa, cfg.BandWidth)
	if err != nil {
		return fail(ErrInvalidInput, err)
	}
	if cfg.BandedAlignment && size.BandWidth > size.MaxSequenceSize {
		return fail(ErrInvalidInput, fmt.Errorf("band width %d exceeds max sequence size %d", size.BandWidth, size.MaxSequenceSize))
	}
	scoring := cfg.Scoring.scoring()
	if err := scoring.Validate(); err != nil {
		return fail(ErrInvalidInput, err)
	}
	if !scoring.Fits(size.maxNodes(cfg.BandedAlignment), size.MaxSequenceSize) {
		return fail(ErrInvalidInput, fmt.Errorf("scores for %d-base sequences could overflow", size.MaxSequenceSize))
	}

	dev := cfg.Device
	if dev == nil {
		dev = DefaultDevice()
	}
	need := int64(cfg.MaxWindows) * size.windowBytes(cfg.BandedAlignment)
	if !dev.reserve(need) {
		e := newError(op, ErrResourceExhausted)
		e.Length, e.Limit = need, dev.Available()
		e.Err = fmt.Errorf("device %d cannot hold %d windows", dev.ID, cfg.MaxWindows)
		return nil, e
	}

	b := &Batch{
		id:       int(atomic.AddInt64(&lastBatchID, 1)),
		cfg:      cfg,
		size:     size,
		mask:     cfg.outputMask(),
		scoring:  scoring,
		device:   dev,
		reserved: need,
		stream:   cfg.Stream,
		metrics:  cfg.Metrics,
		slots:    make([]*slot, cfg.MaxWindows),
	}
	for i := 0; i < len(cfg.Alphabet); i++ {
		b.alphabet[cfg.Alphabet[i]] = true
	}
	b.logger = log.WithField("batch", b.id)
	b.metrics.addReserved(need)
	b.logger.Debugf("reserved %d bytes on device %d for %d windows of up to %d bases", need, dev.ID, cfg.MaxWindows, size.MaxSequenceSize)
	return b, nil
}

// BatchID returns a process-unique identifier for the batch.
func (b *Batch) BatchID() int { return b.id }

// TotalPoas returns the number of windows currently in the batch.
func (b *Batch) TotalPoas() int { return b.filled }

// Size returns the limits the batch was built with.
func (b *Batch) Size() BatchSize { return b.size }

func (b *Batch) stateError(op string) error {
	e := newError(op, ErrInvalidState)
	e.Err = fmt.Errorf("batch is %s", b.state)
	return e
}

func (b *Batch) checkAdd(op string) error {
	if b.state != stateEmpty && b.state != stateFilling {
		return b.stateError(op)
	}
	return nil
}

// validateGroup checks group as window number window and returns the
// number of leading entries that will be added plus the per-entry
// statuses.
func (b *Batch) validateGroup(op string, window int, group Group) (int, []Status, error) {
	statuses := make([]Status, len(group))
	accepted := len(group)
	if accepted > b.size.MaxSequencesPerPoa {
		accepted = b.size.MaxSequencesPerPoa
	}
	for i, ent := range group {
		if i >= accepted {
			statuses[i] = StatusExceededMaximumSequencesPerPoa
			continue
		}
		fail := func(kind error, err error) (int, []Status, error) {
			e := newError(op, kind)
			e.Window, e.Sequence, e.Err = window, i, err
			return 0, nil, e
		}
		if len(ent.Sequence) == 0 {
			return fail(ErrInvalidInput, fmt.Errorf("empty sequence"))
		}
		if len(ent.Sequence) > b.size.MaxSequenceSize {
			e := newError(op, ErrCapacityExceeded)
			e.Window, e.Sequence = window, i
			e.Length, e.Limit = int64(len(ent.Sequence)), int64(b.size.MaxSequenceSize)
			return 0, nil, e
		}
		for pos, c := range ent.Sequence {
			if !b.alphabet[c] {
				return fail(ErrInvalidInput, fmt.Errorf("symbol %q at position %d is not in alphabet %q", c, pos, b.cfg.Alphabet))
			}
		}
		if ent.Weights != nil {
			if len(ent.Weights) != len(ent.Sequence) {
				return fail(ErrInvalidInput, fmt.Errorf("%d weights for %d bases", len(ent.Weights), len(ent.Sequence)))
			}
			for pos, w := range ent.Weights {
				if w < 0 {
					return fail(ErrInvalidInput, fmt.Errorf("negative weight %d at position %d", w, pos))
				}
			}
		}
		statuses[i] = StatusSuccess
	}
	return accepted, statuses, nil
}

func (b *Batch) fill(group Group, accepted int) {
	s := b.slots[b.filled]
	if s == nil {
		s = newSlot(b.filled, b.size.maxNodes(b.cfg.BandedAlignment), b.scoring, b.bandWidth())
		b.slots[b.filled] = s
	}
	s.reset()
	s.load(group, accepted)
	if dropped := len(group) - accepted; dropped > 0 {
		b.logger.Warnf("window %d: dropped %d sequences beyond limit %d", b.filled, dropped, b.size.MaxSequencesPerPoa)
	}
	if accepted == 0 {
		b.logger.Warnf("window %d has no sequences", b.filled)
	}
	b.filled++
	b.state = stateFilling
}

func (b *Batch) bandWidth() int {
	if !b.cfg.BandedAlignment {
		return 0
	}
	return b.size.BandWidth
}

func (b *Batch) full(op string, window int) error {
	e := newError(op, ErrCapacityExceeded)
	e.Window = window
	e.Length, e.Limit = int64(window+1), int64(b.cfg.MaxWindows)
	return e
}

// AddPoaGroup adds one window. Entries beyond MaxSequencesPerPoa are
// not added; the returned statuses say which entries made it in. On
// error nothing is added.
func (b *Batch) AddPoaGroup(group Group) ([]Status, error) {
	const op = "add poa group"
	if err := b.checkAdd(op); err != nil {
		return nil, err
	}
	if b.filled >= b.cfg.MaxWindows {
		return nil, b.full(op, b.filled)
	}
	accepted, statuses, err := b.validateGroup(op, b.filled, group)
	if err != nil {
		return nil, err
	}
	b.fill(group, accepted)
	b.logger.Debugf("added window %d with %d sequences", b.filled-1, accepted)
	return statuses, nil
}

// AddPoas adds each element of windows as one window of sequences and
// returns the number of windows added. Either every window is added
// or, on error, none is.
func (b *Batch) AddPoas(windows [][]string) (int, error) {
	const op = "add poas"
	if err := b.checkAdd(op); err != nil {
		return 0, err
	}
	if len(windows) == 0 {
		e := newError(op, ErrInvalidInput)
		e.Err = fmt.Errorf("no windows")
		return 0, e
	}
	if room := b.cfg.MaxWindows - b.filled; len(windows) > room {
		return 0, b.full(op, b.filled+room)
	}
	groups := make([]Group, len(windows))
	accepted := make([]int, len(windows))
	for w, seqs := range windows {
		groups[w] = make(Group, len(seqs))
		for i, seq := range seqs {
			groups[w][i] = Entry{Sequence: []byte(seq)}
		}
		n, _, err := b.validateGroup(op, b.filled+w, groups[w])
		if err != nil {
			return 0, err
		}
		accepted[w] = n
	}
	for w, group := range groups {
		b.fill(group, accepted[w])
	}
	b.logger.Debugf("added %d windows, %d total", len(windows), b.filled)
	return len(windows), nil
}

// GeneratePoa folds and reduces every window, blocking until all are
// done. If the batch has a stream, the run is queued behind earlier
// work on that stream.
//
// A window that outgrows its node or consensus limit does not fail the
// call: it gets a non-success WindowStatus and a partial or empty
// result, and the other windows are unaffected. A graph error in any
// window fails the whole call with ErrExecutionFailure (reporting the
// lowest failing window), and the batch must be Reset before reuse.
func (b *Batch) GeneratePoa() error {
	const op = "generate poa"
	if b.state != stateFilling {
		return b.stateError(op)
	}
	var err error
	if b.stream == nil {
		err = b.execute(op)
	} else if done, ok := b.stream.enqueue(func() error { return b.execute(op) }); ok {
		err = <-done
	} else {
		e := newError(op, ErrInvalidState)
		e.Err = fmt.Errorf("stream is closed")
		return e
	}
	return err
}

func (b *Batch) execute(op string) error {
	t0 := time.Now()
	thr := throttle{Max: b.device.Parallelism}
	maxConsensus := b.size.MaxConsensusSize
	for _, s := range b.slots[:b.filled] {
		s := s
		thr.Go(func() error { return s.run(b.mask, maxConsensus) })
	}
	werr := thr.Wait()
	elapsed := time.Since(t0)
	if werr != nil {
		for _, s := range b.slots[:b.filled] {
			if s.err == nil {
				continue
			}
			b.state = stateFailed
			b.metrics.observeExecute(b.filled, elapsed, true)
			b.logger.WithField("window", s.index).Warnf("execution failed: %s", s.err)
			e := newError(op, ErrExecutionFailure)
			e.Window, e.Err = s.index, s.err
			return e
		}
	}
	for _, s := range b.slots[:b.filled] {
		b.metrics.observeGraph(s.graph.Len())
		switch s.status {
		case StatusNodeCountExceededMaximumGraphSize:
			b.logger.WithField("window", s.index).Warnf("left out %d of %d sequences at node limit %d", len(s.skipped), len(s.spans), b.size.maxNodes(b.cfg.BandedAlignment))
		case StatusExceededMaximumConsensusSize:
			b.logger.WithField("window", s.index).Warnf("consensus longer than limit %d, dropped", maxConsensus)
		}
	}
	b.state = stateExecuted
	b.metrics.observeExecute(b.filled, elapsed, false)
	b.logger.Infof("generated %d windows in %v", b.filled, elapsed)
	return nil
}

func (b *Batch) checkResults(op string, want OutputType) error {
	if b.state != stateExecuted {
		return b.stateError(op)
	}
	if b.mask&want == 0 {
		e := newError(op, ErrInvalidState)
		e.Err = fmt.Errorf("output not requested in batch config")
		return e
	}
	return nil
}

// GetConsensus returns one consensus per window, in the order windows
// were added. An empty window, or one whose consensus exceeded
// MaxConsensusSize, yields an empty consensus. Check WindowStatus to
// tell these apart from a full result.
func (b *Batch) GetConsensus() ([][]byte, error) {
	if err := b.checkResults("get consensus", OutputConsensus); err != nil {
		return nil, err
	}
	out := make([][]byte, b.filled)
	for i, s := range b.slots[:b.filled] {
		out[i] = append([]byte{}, s.consensus...)
	}
	return out, nil
}

// GetCoverage returns, for each window, the number of sequences
// supporting each consensus base.
func (b *Batch) GetCoverage() ([][]uint16, error) {
	if err := b.checkResults("get coverage", OutputConsensus); err != nil {
		return nil, err
	}
	out := make([][]uint16, b.filled)
	for i, s := range b.slots[:b.filled] {
		out[i] = append([]uint16{}, s.coverage...)
	}
	return out, nil
}

// GetMSA returns, for each window, one gapped row per sequence. A
// sequence left out at the node limit gets an all-gap row.
func (b *Batch) GetMSA() ([][]string, error) {
	if err := b.checkResults("get msa", OutputMSA); err != nil {
		return nil, err
	}
	out := make([][]string, b.filled)
	for i, s := range b.slots[:b.filled] {
		out[i] = append([]string{}, s.msa...)
	}
	return out, nil
}

// GetGraphs exports each window's graph.
func (b *Batch) GetGraphs() ([]*graph.Directed, error) {
	const op = "get graphs"
	if b.state != stateExecuted {
		return nil, b.stateError(op)
	}
	out := make([]*graph.Directed, b.filled)
	for i, s := range b.slots[:b.filled] {
		out[i] = s.graph.Directed()
	}
	return out, nil
}

// WindowStatus returns each window's execution status.
func (b *Batch) WindowStatus() ([]Status, error) {
	if b.state != stateExecuted && b.state != stateFailed {
		return nil, b.stateError("window status")
	}
	out := make([]Status, b.filled)
	for i, s := range b.slots[:b.filled] {
		out[i] = s.status
	}
	return out, nil
}

// Digests returns a blake2b digest of each window's input sequences.
func (b *Batch) Digests() [][blake2b.Size256]byte {
	out := make([][blake2b.Size256]byte, b.filled)
	for i, s := range b.slots[:b.filled] {
		out[i] = s.digest
	}
	return out
}

// Reset empties the batch for another round. Buffers and the device
// reservation are kept. Reset on an empty batch does nothing.
func (b *Batch) Reset() {
	if b.state == stateClosed {
		return
	}
	for _, s := range b.slots[:b.filled] {
		s.reset()
	}
	if b.filled > 0 {
		b.logger.Debugf("reset %d windows", b.filled)
	}
	b.filled = 0
	b.state = stateEmpty
}

// Close returns the batch's device reservation. The batch cannot be
// used afterwards.
func (b *Batch) Close() error {
	if b.state == stateClosed {
		return nil
	}
	b.Reset()
	b.device.release(b.reserved)
	b.metrics.addReserved(-b.reserved)
	b.slots = nil
	b.state = stateClosed
	return nil
}
