// Copyright 2017 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package stage

// Motor state codes as reported by the backend.
const (
	StateIdle       = 0
	StatePowering   = 1
	StatePowered    = 2
	StateReleasing  = 3
	StateActive     = 4
	StateApplying   = 5
	StateUnpowering = 6 // Any other value is reported as unpowering too.
)

// Indicator is what is displayed for a motor state.
type Indicator struct {
	Label string `json:"label"`
	Class string `json:"class"`
	Color string `json:"color"`
}

var (
	idle       = Indicator{"IDLE", "idle", "lightgrey"}
	powering   = Indicator{"POWERING", "power", "#ff4747"}
	powered    = Indicator{"POWERED", "power", "#ff4747"}
	releasing  = Indicator{"RELEASING", "transition", "#edde07"}
	active     = Indicator{"ACTIVE", "active", "#3ac200"}
	applying   = Indicator{"APPLYING", "transition", "#edde07"}
	unpowering = Indicator{"UNPOWERING", "power", "#ff4747"}
)

// MotorState returns the indicator for a backend state code.
func MotorState(code int) Indicator {
	switch code {
	case StateIdle:
		return idle
	case StatePowering:
		return powering
	case StatePowered:
		return powered
	case StateReleasing:
		return releasing
	case StateActive:
		return active
	case StateApplying:
		return applying
	default:
		return unpowering
	}
}

// SoftLimitIndicator returns whether pos is on or past each soft bound.
func SoftLimitIndicator(pos float64, soft Range) (atMin, atMax bool) {
	return pos <= soft.Min, pos >= soft.Max
}

// HardLimitIndicator returns whether a hard limit switch flag reported by the
// backend is set. Hard limits are never derived from the position.
func HardLimitIndicator(flag float64) bool {
	return flag > 0
}
