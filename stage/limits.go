// Copyright 2017 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package stage

import (
	"errors"
	"fmt"
	"sync"
)

// ErrInvalidLimits is returned when a soft limit update has its minimum above
// its maximum. The update is not applied.
var ErrInvalidLimits = errors.New("stage: invalid soft limits")

// ErrInvalidHardLimits is returned when hard limits are inverted. It is a
// configuration error.
var ErrInvalidHardLimits = errors.New("stage: invalid hard limits")

// Limits holds the hard and soft limits of every axis.
//
// Hard limits never change after NewLimits. Soft limits are always contained
// in the hard limits.
type Limits struct {
	axes [NumAxes]axisLimits
}

type axisLimits struct {
	mu   sync.RWMutex
	hard Range
	soft Range
}

// NewLimits returns a Limits initialized from configuration values.
//
// Soft limits outside of the hard range are pulled in; the affected axes are
// returned in corrected so the caller can warn the user. An inverted soft
// range is replaced by the hard range.
func NewLimits(hard, soft map[AxisRef]Range) (l *Limits, corrected []AxisRef, err error) {
	l = &Limits{}
	for _, a := range All {
		h, ok := hard[a]
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s missing", ErrInvalidHardLimits, a)
		}
		if h.Min > h.Max {
			return nil, nil, fmt.Errorf("%w: %s %s", ErrInvalidHardLimits, a, h)
		}
		s, ok := soft[a]
		if !ok {
			s = h
		}
		fixed := Range{Min: h.Clamp(s.Min), Max: h.Clamp(s.Max)}
		if fixed.Min > fixed.Max {
			fixed = h
		}
		if fixed != s {
			corrected = append(corrected, a)
		}
		l.axes[a.index()] = axisLimits{hard: h, soft: fixed}
	}
	return l, corrected, nil
}

// Hard returns the hard limits of an axis.
func (l *Limits) Hard(a AxisRef) Range {
	x := &l.axes[a.index()]
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.hard
}

// Soft returns the soft limits of an axis.
func (l *Limits) Soft(a AxisRef) Range {
	x := &l.axes[a.index()]
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.soft
}

// SetSoftToHard makes the soft limits equal to the hard limits.
func (l *Limits) SetSoftToHard(a AxisRef) {
	x := &l.axes[a.index()]
	x.mu.Lock()
	defer x.mu.Unlock()
	x.soft = x.hard
}

// SetSoftToZero sets both soft bounds to 0, which locks the axis in place
// until the user sets new limits.
//
// If 0 is outside of the hard range, the bounds are clamped to the nearest
// hard limit so the containment invariant holds.
func (l *Limits) SetSoftToZero(a AxisRef) {
	x := &l.axes[a.index()]
	x.mu.Lock()
	defer x.mu.Unlock()
	v := x.hard.Clamp(0)
	x.soft = Range{Min: v, Max: v}
}

// ApplyInputted sets the soft limits from values typed in display
// coordinates.
//
// The values are converted to actual coordinates by subtracting offset. The
// whole update is rejected with ErrInvalidLimits when the minimum is above
// the maximum or a value is not finite. Each bound is otherwise clamped into
// the hard range.
func (l *Limits) ApplyInputted(a AxisRef, min, max, offset float64) (Range, error) {
	actual := Range{Min: min, Max: max}.Shift(-offset)
	if !finite(actual.Min) || !finite(actual.Max) {
		return Range{}, fmt.Errorf("%w: %s limits %g and %g must be finite", ErrInvalidLimits, a, min, max)
	}
	if actual.Min > actual.Max {
		return Range{}, fmt.Errorf("%w: %s minimum %g is above maximum %g", ErrInvalidLimits, a, min, max)
	}
	x := &l.axes[a.index()]
	x.mu.Lock()
	defer x.mu.Unlock()
	x.soft = Range{Min: x.hard.Clamp(actual.Min), Max: x.hard.Clamp(actual.Max)}
	return x.soft, nil
}

// reset replaces both limits. Used when a configuration is reloaded.
func (l *Limits) reset(a AxisRef, hard, soft Range) {
	x := &l.axes[a.index()]
	x.mu.Lock()
	defer x.mu.Unlock()
	x.hard = hard
	x.soft = soft
}
