// Copyright 2017 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package stage implements the soft limit aware motion command layer of the
// microscope: per axis hard and soft limits, the zero offset used to display
// relative positions, and the dispatcher that turns user requests into
// (possibly clamped) commands for the motion backend.
//
// Each of the six axes (X, Y, Z on the sample and on the objective stage) is
// handled independently. There is no cross axis coupling.
package stage

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidAxis is returned for an unknown axis reference.
var ErrInvalidAxis = errors.New("stage: invalid axis")

// ErrNotFinite is returned when a target or a step is NaN or infinite.
var ErrNotFinite = errors.New("stage: not a finite number")

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Stage is one of the two positionable assemblies.
type Stage int

// Valid values for Stage.
const (
	Sample    Stage = 0
	Objective Stage = 1
)

func (s Stage) String() string {
	switch s {
	case Sample:
		return "Sample"
	case Objective:
		return "Objective"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// letter is the letter used in configuration keys.
func (s Stage) letter() byte {
	if s == Objective {
		return 'O'
	}
	return 'S'
}

// Axis is a linear axis of a stage.
type Axis int

// Valid values for Axis.
const (
	X Axis = 0
	Y Axis = 1
	Z Axis = 2
)

func (a Axis) String() string {
	switch a {
	case X:
		return "X"
	case Y:
		return "Y"
	case Z:
		return "Z"
	default:
		return fmt.Sprintf("Axis(%d)", int(a))
	}
}

// AxisRef identifies one motor.
type AxisRef struct {
	Stage Stage
	Axis  Axis
}

// NumAxes is the number of AxisRef values.
const NumAxes = 6

// All lists every AxisRef in configuration order.
var All = [NumAxes]AxisRef{
	{Sample, X}, {Sample, Y}, {Sample, Z},
	{Objective, X}, {Objective, Y}, {Objective, Z},
}

// String returns the configuration prefix, e.g. "XS" or "ZO".
func (a AxisRef) String() string {
	return a.Axis.String() + string(a.Stage.letter())
}

// index returns the position of a in All.
func (a AxisRef) index() int {
	return int(a.Stage)*3 + int(a.Axis)
}

// Valid returns true if a designates one of the six motors.
func (a AxisRef) Valid() bool {
	return (a.Stage == Sample || a.Stage == Objective) && a.Axis >= X && a.Axis <= Z
}

// ParseAxisRef parses the two letter form returned by AxisRef.String().
//
// Lower case is accepted.
func ParseAxisRef(s string) (AxisRef, error) {
	if len(s) != 2 {
		return AxisRef{}, fmt.Errorf("%w %q", ErrInvalidAxis, s)
	}
	var a AxisRef
	switch s[0] {
	case 'X', 'x':
		a.Axis = X
	case 'Y', 'y':
		a.Axis = Y
	case 'Z', 'z':
		a.Axis = Z
	default:
		return AxisRef{}, fmt.Errorf("%w %q", ErrInvalidAxis, s)
	}
	switch s[1] {
	case 'S', 's':
		a.Stage = Sample
	case 'O', 'o':
		a.Stage = Objective
	default:
		return AxisRef{}, fmt.Errorf("%w %q", ErrInvalidAxis, s)
	}
	return a, nil
}

// MarshalText implements encoding.TextMarshaler so AxisRef can be used as a
// JSON map key.
func (a AxisRef) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("%w %d/%d", ErrInvalidAxis, a.Stage, a.Axis)
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *AxisRef) UnmarshalText(b []byte) error {
	v, err := ParseAxisRef(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Direction is the direction of an increment.
type Direction int

// Valid values for Direction.
const (
	Negative Direction = 0
	Positive Direction = 1
)

func (d Direction) String() string {
	if d == Positive {
		return "Positive"
	}
	return "Negative"
}

// Motion is a continuous motion request.
type Motion int

// Valid values for Motion.
const (
	ContinuousNegative Motion = 0
	Stop               Motion = 1
	ContinuousPositive Motion = 2
)

func (m Motion) String() string {
	switch m {
	case ContinuousNegative:
		return "ContinuousNegative"
	case Stop:
		return "Stop"
	case ContinuousPositive:
		return "ContinuousPositive"
	default:
		return fmt.Sprintf("Motion(%d)", int(m))
	}
}

// Range is a closed [Min, Max] interval.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains returns true if Min <= v <= Max.
func (r Range) Contains(v float64) bool {
	return r.Min <= v && v <= r.Max
}

// Clamp returns v pulled into the range.
func (r Range) Clamp(v float64) float64 {
	if v > r.Max {
		return r.Max
	}
	if v < r.Min {
		return r.Min
	}
	return v
}

// Shift returns the range translated by d.
func (r Range) Shift(d float64) Range {
	return Range{Min: r.Min + d, Max: r.Max + d}
}

func (r Range) String() string {
	return fmt.Sprintf("%g to %g", r.Min, r.Max)
}
