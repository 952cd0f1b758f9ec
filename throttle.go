// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package poa

import (
	"sync"
	"sync/atomic"
)

// throttle runs at most Max functions at a time and remembers the
// first error reported.
type throttle struct {
	Max       int
	wg        sync.WaitGroup
	ch        chan bool
	err       atomic.Value
	setupOnce sync.Once
	errorOnce sync.Once
}

// Acquire blocks until fewer than Max functions are running, then
// counts one more.
func (t *throttle) Acquire() {
	t.setupOnce.Do(func() {
		if t.Max < 1 {
			t.Max = 1
		}
		t.ch = make(chan bool, t.Max)
	})
	t.wg.Add(1)
	t.ch <- true
}

// Release marks one function acquired with Acquire as finished.
func (t *throttle) Release() {
	t.wg.Done()
	<-t.ch
}

// Go waits for a free lane, then runs fn in a new goroutine.
func (t *throttle) Go(fn func() error) {
	t.Acquire()
	go func() {
		defer t.Release()
		t.Report(fn())
	}()
}

// Report records err if it is the first non-nil error reported.
func (t *throttle) Report(err error) {
	if err != nil {
		t.errorOnce.Do(func() { t.err.Store(err) })
	}
}

// Err returns the first reported error, if any.
func (t *throttle) Err() error {
	err, _ := t.err.Load().(error)
	return err
}

// Wait blocks until every acquired function has been released and
// returns the first reported error.
func (t *throttle) Wait() error {
	t.wg.Wait()
	return t.Err()
}
