// Copyright 2017 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package mode selects the illumination mode of the microscope.
//
// A single motor positions the optics in one of four slots. The slot
// positions are configurable; the motor itself has no soft limits.
package mode

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/maruel/go-microgui/config"
)

// ErrDisabled is returned by a Motor asked to move while disabled.
var ErrDisabled = errors.New("mode: motor disabled")

// Motor is the motor positioning the optics. This interface can be mocked.
type Motor interface {
	MoveTo(pos float64) error // MoveTo starts a move to pos and returns without waiting.
	Home() error
	Enable() error
	Disable() error
}

// Slot is one of the illumination modes.
type Slot int

// Valid values for Slot.
const (
	Transmission Slot = 0
	Reflection   Slot = 1
	VisibleImage Slot = 2
	Beamsplitter Slot = 3
)

// NumSlots is the number of Slot values.
const NumSlots = 4

var slotNames = [NumSlots]string{"Transmission", "Reflection", "VisibleImage", "Beamsplitter"}
var slotKeys = [NumSlots]string{"TRANSMISSION_POSITION", "REFLECTION_POSITION", "VISIBLE_IMAGE_POSITION", "BEAMSPLITTER_POSITION"}

func (s Slot) String() string {
	if s < 0 || s >= NumSlots {
		return fmt.Sprintf("Slot(%d)", int(s))
	}
	return slotNames[s]
}

// Key returns the configuration key holding the slot position.
func (s Slot) Key() string {
	return slotKeys[s]
}

// ParseSlot parses a slot name as returned by String or Key. Case is ignored.
func ParseSlot(s string) (Slot, error) {
	for i := Slot(0); i < NumSlots; i++ {
		if strings.EqualFold(s, slotNames[i]) || strings.EqualFold(s, slotKeys[i]) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("mode: invalid slot %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s Slot) MarshalText() ([]byte, error) {
	if s < 0 || s >= NumSlots {
		return nil, fmt.Errorf("mode: invalid slot %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Slot) UnmarshalText(b []byte) error {
	v, err := ParseSlot(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// PositionsFromMacros reads the slot positions. They are all required.
func PositionsFromMacros(m config.Macros) ([NumSlots]float64, error) {
	var out [NumSlots]float64
	for i := Slot(0); i < NumSlots; i++ {
		v, err := m.Float(i.Key())
		if err != nil {
			return out, fmt.Errorf("mode: %w", err)
		}
		out[i] = v
	}
	return out, nil
}

// Status is the state of the Selector.
type Status struct {
	Selected  *Slot              `json:"selected"` // nil when no slot is selected.
	Enabled   bool               `json:"enabled"`
	Positions map[string]float64 `json:"positions"`
}

// Selector tracks the selected slot and drives the motor.
type Selector struct {
	mu        sync.Mutex
	motor     Motor
	positions [NumSlots]float64
	selected  Slot
	hasSel    bool
	enabled   bool
}

// NewSelector enables and homes the motor and returns a Selector. No slot
// is selected until Select is called.
func NewSelector(m Motor, positions [NumSlots]float64) (*Selector, error) {
	if err := m.Enable(); err != nil {
		return nil, fmt.Errorf("mode: enabling motor: %w", err)
	}
	if err := m.Home(); err != nil {
		return nil, fmt.Errorf("mode: motor cannot be homed: %w", err)
	}
	return &Selector{motor: m, positions: positions, enabled: true}, nil
}

// Select moves the motor to a slot.
//
// The slot is recorded as selected even if the motor refuses to move, so it
// is applied when the motor is enabled again.
func (s *Selector) Select(slot Slot) error {
	if slot < 0 || slot >= NumSlots {
		return fmt.Errorf("mode: invalid slot %d", int(slot))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = slot
	s.hasSel = true
	return s.applyLocked()
}

// SetPosition changes the position of a slot. If the slot is selected, the
// motor moves to the new position.
func (s *Selector) SetPosition(slot Slot, pos float64) error {
	if slot < 0 || slot >= NumSlots {
		return fmt.Errorf("mode: invalid slot %d", int(slot))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[slot] = pos
	if s.hasSel && s.selected == slot {
		return s.applyLocked()
	}
	return nil
}

// SetEnabled enables or disables the motor. Enabling it moves it to the
// selected slot, if any.
func (s *Selector) SetEnabled(b bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !b {
		if err := s.motor.Disable(); err != nil {
			return err
		}
		s.enabled = false
		return nil
	}
	if err := s.motor.Enable(); err != nil {
		return err
	}
	s.enabled = true
	if s.hasSel {
		return s.applyLocked()
	}
	return nil
}

// Home homes the motor. The selection is cleared since the motor is not on
// any slot anymore.
func (s *Selector) Home() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.motor.Home(); err != nil {
		return err
	}
	s.hasSel = false
	return nil
}

// Status returns the current state.
func (s *Selector) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{Enabled: s.enabled, Positions: make(map[string]float64, NumSlots)}
	if s.hasSel {
		sel := s.selected
		st.Selected = &sel
	}
	for i := Slot(0); i < NumSlots; i++ {
		st.Positions[i.String()] = s.positions[i]
	}
	return st
}

// Reload replaces the slot positions. The motor is not moved.
func (s *Selector) Reload(positions [NumSlots]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions = positions
}

// UpdateMacros writes the slot positions into m.
func (s *Selector) UpdateMacros(m config.Macros) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := Slot(0); i < NumSlots; i++ {
		m[i.Key()] = s.positions[i]
	}
}

func (s *Selector) applyLocked() error {
	if err := s.motor.MoveTo(s.positions[s.selected]); err != nil {
		return fmt.Errorf("mode: moving to %s: %w", s.selected, err)
	}
	return nil
}
