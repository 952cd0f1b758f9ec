// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package poa

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// DefaultDeviceMemory is the memory budget of the device used by
// batches that do not name one.
const DefaultDeviceMemory = 8 << 30

// Device is a compute device with a fixed memory budget and a number
// of lanes that run windows in parallel. Each batch reserves its own
// share of the budget at construction and returns it on Close; batches
// never share a reservation.
type Device struct {
	ID          int
	MemoryBytes int64
	Parallelism int

	mem      *semaphore.Weighted
	reserved atomic.Int64
}

// NewDevice returns a device with memoryBytes of budget. parallelism
// <= 0 means one lane per CPU.
func NewDevice(id int, memoryBytes int64, parallelism int) (*Device, error) {
	if memoryBytes <= 0 {
		return nil, fmt.Errorf("%w: device memory %d must be positive", ErrInvalidInput, memoryBytes)
	}
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	return &Device{
		ID:          id,
		MemoryBytes: memoryBytes,
		Parallelism: parallelism,
		mem:         semaphore.NewWeighted(memoryBytes),
	}, nil
}

var (
	defaultDevice     *Device
	defaultDeviceOnce sync.Once
)

// DefaultDevice returns the shared process-wide device.
func DefaultDevice() *Device {
	defaultDeviceOnce.Do(func() {
		defaultDevice, _ = NewDevice(0, DefaultDeviceMemory, 0)
	})
	return defaultDevice
}

// Reserved returns the number of bytes currently reserved by batches.
func (d *Device) Reserved() int64 { return d.reserved.Load() }

// Available returns the unreserved budget.
func (d *Device) Available() int64 { return d.MemoryBytes - d.reserved.Load() }

func (d *Device) reserve(n int64) bool {
	if n > d.MemoryBytes || !d.mem.TryAcquire(n) {
		return false
	}
	d.reserved.Add(n)
	return true
}

func (d *Device) release(n int64) {
	d.reserved.Add(-n)
	d.mem.Release(n)
}
