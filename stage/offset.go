// Copyright 2017 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package stage

import "sync"

// Offsets tracks, per axis, the difference between actual and relative
// (displayed) positions.
//
// relative = actual - offset
type Offsets struct {
	axes [NumAxes]offset
}

type offset struct {
	mu sync.RWMutex
	v  float64
}

// NewOffsets returns offsets initialized from configuration. Missing axes
// start at 0.
func NewOffsets(initial map[AxisRef]float64) *Offsets {
	o := &Offsets{}
	for a, v := range initial {
		if a.Valid() {
			o.axes[a.index()].v = v
		}
	}
	return o
}

// Get returns the offset of an axis.
func (o *Offsets) Get(a AxisRef) float64 {
	x := &o.axes[a.index()]
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.v
}

// Set replaces the offset of an axis.
func (o *Offsets) Set(a AxisRef, v float64) {
	x := &o.axes[a.index()]
	x.mu.Lock()
	defer x.mu.Unlock()
	x.v = v
}

// ToRelative converts an actual position to display coordinates.
func (o *Offsets) ToRelative(a AxisRef, actual float64) float64 {
	return actual - o.Get(a)
}

// ToActual converts a display position to actual coordinates.
func (o *Offsets) ToActual(a AxisRef, relative float64) float64 {
	return relative + o.Get(a)
}
