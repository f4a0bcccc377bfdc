// Copyright 2017 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package modetest implements a fake mode motor.
package modetest

import (
	"sync"

	"github.com/maruel/go-microgui/mode"
)

// Motor is a fake mode.Motor that moves instantly.
//
// Like the real device, it refuses to move or home while disabled.
type Motor struct {
	sync.Mutex
	Pos     float64
	Enabled bool
	Homed   int
	Moves   []float64
	Err     error // When set, returned by every call.
	HomeErr error // When set, returned by Home.
}

// MoveTo implements mode.Motor.
func (m *Motor) MoveTo(pos float64) error {
	m.Lock()
	defer m.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if !m.Enabled {
		return mode.ErrDisabled
	}
	m.Pos = pos
	m.Moves = append(m.Moves, pos)
	return nil
}

// Home implements mode.Motor.
func (m *Motor) Home() error {
	m.Lock()
	defer m.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if m.HomeErr != nil {
		return m.HomeErr
	}
	if !m.Enabled {
		return mode.ErrDisabled
	}
	m.Pos = 0
	m.Homed++
	return nil
}

// Enable implements mode.Motor.
func (m *Motor) Enable() error {
	m.Lock()
	defer m.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Enabled = true
	return nil
}

// Disable implements mode.Motor.
func (m *Motor) Disable() error {
	m.Lock()
	defer m.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Enabled = false
	return nil
}

// Close is a no-op.
func (m *Motor) Close() error {
	return nil
}

var _ mode.Motor = &Motor{}
