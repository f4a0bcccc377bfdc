// Copyright 2017 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package stage

import (
	"fmt"
	"sort"

	"github.com/maruel/go-microgui/config"
	"github.com/maruel/go-microgui/pv"
)

// ApplySoftLimits sets the soft limits of the given axes from values in
// display coordinates, then moves any axis left outside of its new limits.
//
// Each axis is handled independently: an axis with its minimum above its
// maximum is left unchanged and its error returned in the map, the others
// are updated. Reconciliation failures are only reported as messages since
// the new limits are already in effect.
func (c *Controller) ApplySoftLimits(req map[AxisRef]Range) map[AxisRef]error {
	errs := map[AxisRef]error{}
	for _, a := range sortedAxes(req) {
		r := req[a]
		x := &c.axes[a.index()]
		x.mu.Lock()
		soft, err := c.Limits.ApplyInputted(a, r.Min, r.Max, c.Offsets.Get(a))
		x.mu.Unlock()
		if err != nil {
			if finite(r.Min) && finite(r.Max) {
				c.report(Warning, "%s soft limits not updated: minimum %g is above maximum %g.", a, r.Min, r.Max)
			} else {
				c.report(Warning, "%s soft limits not updated: %g and %g are not valid limits.", a, r.Min, r.Max)
			}
			errs[a] = err
			continue
		}
		c.report(Info, "%s soft limits set to %s.", a, soft)
	}
	// Errors are already reported by reconcile.
	_ = c.Reconcile()
	c.publishAll()
	return errs
}

// SoftLimitsToHard resets the soft limits of the given axes to their hard
// limits, every axis when none is given.
//
// Nothing is changed if an axis is invalid. The first reconciliation error
// is returned.
func (c *Controller) SoftLimitsToHard(axes ...AxisRef) error {
	return c.softLimitsTo(axes, c.Limits.SetSoftToHard, "Soft limits reset to the hard limits.")
}

// SoftLimitsToZero sets both soft bounds of the given axes to 0, every axis
// when none is given. The axes then move to 0 and are locked there until new
// limits are set.
func (c *Controller) SoftLimitsToZero(axes ...AxisRef) error {
	return c.softLimitsTo(axes, c.Limits.SetSoftToZero, "Soft limits set to zero.")
}

func (c *Controller) softLimitsTo(axes []AxisRef, set func(a AxisRef), msg string) error {
	if len(axes) == 0 {
		axes = All[:]
	}
	for _, a := range axes {
		if !a.Valid() {
			return fmt.Errorf("%w %d/%d", ErrInvalidAxis, a.Stage, a.Axis)
		}
	}
	for _, a := range axes {
		x := &c.axes[a.index()]
		x.mu.Lock()
		set(a)
		x.mu.Unlock()
	}
	c.report(Info, "%s", msg)
	err := c.Reconcile()
	c.publishAll()
	return err
}

// Zero makes the current position of an axis its displayed zero.
//
// The actual position is read before the backend zero register is reset.
// The offset is only updated when every backend call succeeded.
func (c *Controller) Zero(a AxisRef) error {
	if !a.Valid() {
		return fmt.Errorf("%w %d/%d", ErrInvalidAxis, a.Stage, a.Axis)
	}
	x := &c.axes[a.index()]
	x.mu.Lock()
	k := c.keys.Get(a)
	pos, err := c.backend.Read(k.PositionAbs)
	if err == nil {
		err = c.backend.Write(k.Offset, pos)
	}
	if err == nil {
		err = pv.Pulse(c.backend, k.Zero)
	}
	if err != nil {
		x.mu.Unlock()
		return c.fail(a, "zero", err)
	}
	c.Offsets.Set(a, pos)
	s := c.statusLocked(a)
	x.mu.Unlock()
	c.report(Info, "Zeroing %s at %g.", a, pos)
	c.publish(s)
	return nil
}

// Unzero displays the actual position of an axis again.
func (c *Controller) Unzero(a AxisRef) error {
	if !a.Valid() {
		return fmt.Errorf("%w %d/%d", ErrInvalidAxis, a.Stage, a.Axis)
	}
	x := &c.axes[a.index()]
	x.mu.Lock()
	if err := c.backend.Write(c.keys.Get(a).Offset, 0); err != nil {
		x.mu.Unlock()
		return c.fail(a, "actual", err)
	}
	c.Offsets.Set(a, 0)
	s := c.statusLocked(a)
	x.mu.Unlock()
	c.publish(s)
	return nil
}

// ZeroAll zeros every axis, switching the display to relative positions.
func (c *Controller) ZeroAll() error {
	var first error
	for _, a := range All {
		if err := c.Zero(a); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// UnzeroAll switches the display of every axis to actual positions.
func (c *Controller) UnzeroAll() error {
	var first error
	for _, a := range All {
		if err := c.Unzero(a); err != nil && first == nil {
			first = err
		}
	}
	if first == nil {
		c.report(Info, "Displaying actual positions.")
	}
	return first
}

// SetStep sets the increment used by the user interface. A negative step is
// negated with a warning. The value is not sent to the backend until an
// Increment.
func (c *Controller) SetStep(a AxisRef, step float64) float64 {
	if step < 0 {
		step = -step
		c.report(Warning, "Step must be positive. Step sign has been changed to positive.")
	}
	x := &c.axes[a.index()]
	x.mu.Lock()
	x.step = step
	s := c.statusLocked(a)
	x.mu.Unlock()
	c.publish(s)
	return step
}

// SetBacklash updates the backlash of the given axes. The sign and the
// fractional part of the values are dropped.
func (c *Controller) SetBacklash(req map[AxisRef]float64) error {
	var first error
	for _, a := range sortedAxes(req) {
		b := BacklashFrom(req[a])
		x := &c.axes[a.index()]
		x.mu.Lock()
		err := c.backend.Write(c.keys.Get(a).Backlash, float64(b))
		if err == nil {
			x.backlash = b
		}
		s := c.statusLocked(a)
		x.mu.Unlock()
		if err != nil {
			if first == nil {
				first = c.fail(a, "backlash", err)
			}
			continue
		}
		c.publish(s)
	}
	c.report(Info, "Updating backlash values.")
	return first
}

// UpdateMacros writes the current soft limits, offsets and backlashes into
// m so they are persisted when the configuration is saved.
func (c *Controller) UpdateMacros(m config.Macros) {
	for _, a := range All {
		soft := c.Limits.Soft(a)
		m[minSoftKey(a)] = soft.Min
		m[maxSoftKey(a)] = soft.Max
		m[offsetKey(a)] = c.Offsets.Get(a)
		x := &c.axes[a.index()]
		x.mu.Lock()
		m[backlashKey(a)] = x.backlash
		x.mu.Unlock()
	}
}

// Reload applies a new configuration: hard and soft limits, offsets and
// backlashes. Process variable names cannot change while running.
func (c *Controller) Reload(s *Settings) error {
	l, corrected, err := NewLimits(s.Hard, s.Soft)
	if err != nil {
		c.report(Error, "Configuration not reloaded: %v", err)
		return err
	}
	var first error
	for _, a := range All {
		x := &c.axes[a.index()]
		x.mu.Lock()
		c.Limits.reset(a, l.Hard(a), l.Soft(a))
		k := c.keys.Get(a)
		off := s.Offsets[a]
		err := c.backend.Write(k.Offset, off)
		if err == nil {
			c.Offsets.Set(a, off)
			err = c.backend.Write(k.Backlash, float64(s.Backlash[a]))
		}
		if err == nil {
			x.backlash = s.Backlash[a]
		}
		if f := s.Step2Micron[a]; f != 0 {
			x.step2micron = f
		}
		x.mu.Unlock()
		if err != nil && first == nil {
			first = c.fail(a, "reload", err)
		}
	}
	for _, a := range corrected {
		c.report(Warning, "%s soft limits were outside of the hard limits and were changed to %s.", a, c.Limits.Soft(a))
	}
	c.report(Info, "Configuration reloaded.")
	if err := c.Reconcile(); err != nil && first == nil {
		first = err
	}
	c.publishAll()
	return first
}

func sortedAxes(m interface{}) []AxisRef {
	var out []AxisRef
	switch t := m.(type) {
	case map[AxisRef]Range:
		for a := range t {
			out = append(out, a)
		}
	case map[AxisRef]float64:
		for a := range t {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].index() < out[j].index() })
	valid := out[:0]
	for _, a := range out {
		if a.Valid() {
			valid = append(valid, a)
		}
	}
	return valid
}
