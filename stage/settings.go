// Copyright 2017 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package stage

import (
	"errors"
	"fmt"
	"math"

	"github.com/maruel/go-microgui/config"
)

// Settings is the per axis configuration.
type Settings struct {
	Keys        KeyTable
	Hard        map[AxisRef]Range
	Soft        map[AxisRef]Range
	Offsets     map[AxisRef]float64
	Backlash    map[AxisRef]int
	Step2Micron map[AxisRef]float64 // Micrometres per motor step.
}

// Macro names.
func minSoftKey(a AxisRef) string     { return a.String() + "MIN_SOFT_LIMIT" }
func maxSoftKey(a AxisRef) string     { return a.String() + "MAX_SOFT_LIMIT" }
func minHardKey(a AxisRef) string     { return a.String() + "MIN_HARD_LIMIT" }
func maxHardKey(a AxisRef) string     { return a.String() + "MAX_HARD_LIMIT" }
func offsetKey(a AxisRef) string      { return a.String() + "_OFFSET" }
func backlashKey(a AxisRef) string    { return a.String() + "_BACKLASH" }
func step2MicronKey(a AxisRef) string { return a.String() + "_STEP2MICRON" }

// SettingsFromMacros reads the settings of every axis.
//
// Process variable names and hard limits are required. Missing soft limits
// default to the hard limits, missing offsets and backlash to 0 and a
// missing step to micron factor to 1.
func SettingsFromMacros(m config.Macros) (*Settings, error) {
	keys, err := KeysFromMacros(m)
	if err != nil {
		return nil, err
	}
	s := &Settings{
		Keys:        keys,
		Hard:        map[AxisRef]Range{},
		Soft:        map[AxisRef]Range{},
		Offsets:     map[AxisRef]float64{},
		Backlash:    map[AxisRef]int{},
		Step2Micron: map[AxisRef]float64{},
	}
	for _, a := range All {
		var h Range
		if h.Min, err = m.Float(minHardKey(a)); err != nil {
			return nil, fmt.Errorf("stage: hard limits: %w", err)
		}
		if h.Max, err = m.Float(maxHardKey(a)); err != nil {
			return nil, fmt.Errorf("stage: hard limits: %w", err)
		}
		s.Hard[a] = h
		soft := h
		if soft.Min, err = optFloat(m, minSoftKey(a), h.Min); err != nil {
			return nil, err
		}
		if soft.Max, err = optFloat(m, maxSoftKey(a), h.Max); err != nil {
			return nil, err
		}
		s.Soft[a] = soft
		if s.Offsets[a], err = optFloat(m, offsetKey(a), 0); err != nil {
			return nil, err
		}
		b, err := optFloat(m, backlashKey(a), 0)
		if err != nil {
			return nil, err
		}
		s.Backlash[a] = BacklashFrom(b)
		if s.Step2Micron[a], err = optFloat(m, step2MicronKey(a), 1); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// MaxBacklash is the largest backlash, in steps.
const MaxBacklash = 1000000

// BacklashFrom converts a user supplied value to a backlash: the fractional
// part is dropped and the sign ignored. The result is capped at MaxBacklash
// and NaN becomes 0.
func BacklashFrom(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return int(math.Min(math.Abs(math.Trunc(v)), MaxBacklash))
}

func optFloat(m config.Macros, key string, def float64) (float64, error) {
	v, err := m.Float(key)
	if errors.Is(err, config.ErrMissingKey) {
		return def, nil
	}
	if err != nil {
		return 0, fmt.Errorf("stage: %w", err)
	}
	return v, nil
}
