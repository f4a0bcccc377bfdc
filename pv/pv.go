// Copyright 2017 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package pv defines the process variable backend the stages are driven
// through.
//
// A process variable is a named numeric value exposed by the motion control
// system. Writing to some of them triggers motion (step, move, stop, zero),
// others report the motor state. The backend owns the positions; this
// program only writes targets and reads back what it reports.
package pv

import "io"

// Backend reads, writes and monitors process variables. This interface can
// be mocked.
//
// Write and Read are synchronous and expected to be fast. Subscribe callbacks
// may be called from any goroutine and in any order relative to callbacks of
// other keys.
type Backend interface {
	io.Closer

	Write(key string, value float64) error              // Write sets the value of a process variable.
	Read(key string) (float64, error)                   // Read returns the current value of a process variable.
	Subscribe(key string, fn func(value float64)) error // Subscribe calls fn each time the value of key changes.
}

// Keys is the set of process variable names of one motor.
type Keys struct {
	Step               string // Increment magnitude.
	AbsTarget          string // Absolute target.
	Move               string // Trigger: move to AbsTarget.
	Stop               string // Trigger: stop any motion.
	ContinuousNegative string // Writing a bound starts a move towards it.
	ContinuousPositive string //
	IncrementNegative  string // Trigger: move by -Step.
	IncrementPositive  string // Trigger: move by +Step.
	HardNegative       string // Read only flag, > 0 when on the negative hard limit switch.
	HardPositive       string //
	State              string // Read only motor state code.
	Position           string // Read only position relative to the backend's zero register.
	PositionAbs        string // Read only actual position.
	Zero               string // Trigger: reset the backend's zero register to the current position.
	Offset             string // Offset between actual and relative positions.
	Backlash           string // Backlash compensation, in steps.
}

// Pulse writes 1 then 0 to key, as done for trigger variables.
func Pulse(b Backend, key string) error {
	if err := b.Write(key, 1); err != nil {
		return err
	}
	return b.Write(key, 0)
}
