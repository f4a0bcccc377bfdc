// Copyright 2017 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package stage

import (
	"fmt"

	"github.com/maruel/go-microgui/config"
	"github.com/maruel/go-microgui/pv"
)

// KeyTable maps every axis to its process variable names.
type KeyTable [NumAxes]pv.Keys

// Get returns the keys of an axis.
func (k *KeyTable) Get(a AxisRef) *pv.Keys {
	return &k[a.index()]
}

// KeysFromMacros builds the key table from the configuration. The process
// variable name of e.g. the step of the sample X axis is found under the
// macro "XSSTEP".
func KeysFromMacros(m config.Macros) (KeyTable, error) {
	var t KeyTable
	for _, a := range All {
		k := &t[a.index()]
		for _, f := range []struct {
			suffix string
			dst    *string
		}{
			{"STEP", &k.Step},
			{"ABSPOS", &k.AbsTarget},
			{"MOVE", &k.Move},
			{"STOP", &k.Stop},
			{"CN", &k.ContinuousNegative},
			{"CP", &k.ContinuousPositive},
			{"N", &k.IncrementNegative},
			{"P", &k.IncrementPositive},
			{"HN", &k.HardNegative},
			{"HP", &k.HardPositive},
			{"STATE", &k.State},
			{"POS", &k.Position},
			{"POS_ABS", &k.PositionAbs},
			{"ZERO", &k.Zero},
			{"OFFSET", &k.Offset},
			{"B", &k.Backlash},
		} {
			v, err := m.String(a.String() + f.suffix)
			if err != nil {
				return t, fmt.Errorf("stage: process variable names: %w", err)
			}
			*f.dst = v
		}
	}
	return t, nil
}

// DefaultKeys returns a key table using the names "<prefix>:XS:STEP" and so
// on. It is used with the simulated backend.
func DefaultKeys(prefix string) KeyTable {
	var t KeyTable
	for _, a := range All {
		p := prefix + ":" + a.String() + ":"
		t[a.index()] = pv.Keys{
			Step:               p + "STEP",
			AbsTarget:          p + "ABSPOS",
			Move:               p + "MOVE",
			Stop:               p + "STOP",
			ContinuousNegative: p + "CN",
			ContinuousPositive: p + "CP",
			IncrementNegative:  p + "N",
			IncrementPositive:  p + "P",
			HardNegative:       p + "HN",
			HardPositive:       p + "HP",
			State:              p + "STATE",
			Position:           p + "POS",
			PositionAbs:        p + "POS_ABS",
			Zero:               p + "ZERO",
			Offset:             p + "OFFSET",
			Backlash:           p + "B",
		}
	}
	return t
}

// ToMacros writes the key table in the form read by KeysFromMacros.
func (k *KeyTable) ToMacros(m config.Macros) {
	for _, a := range All {
		x := k.Get(a)
		p := a.String()
		m[p+"STEP"] = x.Step
		m[p+"ABSPOS"] = x.AbsTarget
		m[p+"MOVE"] = x.Move
		m[p+"STOP"] = x.Stop
		m[p+"CN"] = x.ContinuousNegative
		m[p+"CP"] = x.ContinuousPositive
		m[p+"N"] = x.IncrementNegative
		m[p+"P"] = x.IncrementPositive
		m[p+"HN"] = x.HardNegative
		m[p+"HP"] = x.HardPositive
		m[p+"STATE"] = x.State
		m[p+"POS"] = x.Position
		m[p+"POS_ABS"] = x.PositionAbs
		m[p+"ZERO"] = x.Zero
		m[p+"OFFSET"] = x.Offset
		m[p+"B"] = x.Backlash
	}
}
