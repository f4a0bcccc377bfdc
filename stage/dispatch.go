// Copyright 2017 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package stage

import (
	"fmt"

	"github.com/maruel/go-microgui/pv"
)

// Increment moves an axis by step in direction d.
//
// A negative step is negated with a warning. A step that would cross the
// soft limit in the direction of travel is reduced to land exactly on it.
// The dispatched step is returned. The call does not wait for the motion to
// complete.
func (c *Controller) Increment(a AxisRef, d Direction, step float64) (float64, error) {
	if !a.Valid() {
		return 0, fmt.Errorf("%w %d/%d", ErrInvalidAxis, a.Stage, a.Axis)
	}
	if !finite(step) {
		return 0, fmt.Errorf("%w: %s step %g", ErrNotFinite, a, step)
	}
	x := &c.axes[a.index()]
	x.mu.Lock()
	defer x.mu.Unlock()
	if step < 0 {
		step = -step
		c.report(Warning, "Step must be positive. Step sign has been changed to positive.")
	}
	requested := step
	k := c.keys.Get(a)
	pos, err := c.backend.Read(k.PositionAbs)
	if err != nil {
		return 0, c.fail(a, "increment", err)
	}
	soft := c.Limits.Soft(a)
	trigger := k.IncrementPositive
	if d == Positive {
		if pos+step > soft.Max {
			step = soft.Max - pos
		}
	} else {
		trigger = k.IncrementNegative
		if pos-step < soft.Min {
			step = pos - soft.Min
		}
	}
	if err := c.backend.Write(k.Step, step); err != nil {
		return 0, c.fail(a, "increment", err)
	}
	if err := pv.Pulse(c.backend, trigger); err != nil {
		return 0, c.fail(a, "increment", err)
	}
	x.step = requested
	return step, nil
}

// MoveAbsolute moves an axis to a target in display coordinates.
//
// The target is clamped into the soft limits without warning. The dispatched
// actual target is returned.
func (c *Controller) MoveAbsolute(a AxisRef, display float64) (float64, error) {
	if !a.Valid() {
		return 0, fmt.Errorf("%w %d/%d", ErrInvalidAxis, a.Stage, a.Axis)
	}
	if !finite(display) {
		return 0, fmt.Errorf("%w: %s target %g", ErrNotFinite, a, display)
	}
	x := &c.axes[a.index()]
	x.mu.Lock()
	defer x.mu.Unlock()
	target := c.Limits.Soft(a).Clamp(c.Offsets.ToActual(a, display))
	if err := c.moveLocked(a, target); err != nil {
		return 0, c.fail(a, "absolute move", err)
	}
	return target, nil
}

// Continuous starts a continuous motion towards a soft limit or stops the
// axis.
func (c *Controller) Continuous(a AxisRef, m Motion) error {
	if !a.Valid() {
		return fmt.Errorf("%w %d/%d", ErrInvalidAxis, a.Stage, a.Axis)
	}
	x := &c.axes[a.index()]
	x.mu.Lock()
	defer x.mu.Unlock()
	k := c.keys.Get(a)
	var err error
	switch m {
	case ContinuousNegative:
		err = c.backend.Write(k.ContinuousNegative, c.Limits.Soft(a).Min)
	case ContinuousPositive:
		err = c.backend.Write(k.ContinuousPositive, c.Limits.Soft(a).Max)
	case Stop:
		err = pv.Pulse(c.backend, k.Stop)
	default:
		return fmt.Errorf("stage: invalid motion %s", m)
	}
	if err != nil {
		return c.fail(a, m.String(), err)
	}
	return nil
}

// StopAll sends a stop pulse to every axis. It keeps going on failure and
// returns the first error.
func (c *Controller) StopAll() error {
	var first error
	for _, a := range All {
		if err := c.Continuous(a, Stop); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Reconcile moves every axis that is outside of its soft limits to the
// nearest bound. It keeps going on failure and returns the first error.
func (c *Controller) Reconcile() error {
	var first error
	for _, a := range All {
		if err := c.reconcile(a); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (c *Controller) reconcile(a AxisRef) error {
	x := &c.axes[a.index()]
	x.mu.Lock()
	defer x.mu.Unlock()
	pos, err := c.backend.Read(c.keys.Get(a).PositionAbs)
	if err != nil {
		return c.fail(a, "reconciliation", err)
	}
	soft := c.Limits.Soft(a)
	if soft.Contains(pos) {
		return nil
	}
	target := soft.Clamp(pos)
	c.report(Info, "%s is outside of its soft limits, moving to %g.", a, target)
	if err := c.moveLocked(a, target); err != nil {
		return c.fail(a, "reconciliation", err)
	}
	return nil
}

// moveLocked writes an absolute target and triggers the move. The axis lock
// must be held.
func (c *Controller) moveLocked(a AxisRef, target float64) error {
	k := c.keys.Get(a)
	if err := c.backend.Write(k.AbsTarget, target); err != nil {
		return err
	}
	if err := pv.Pulse(c.backend, k.Move); err != nil {
		return err
	}
	c.axes[a.index()].target = target
	return nil
}
