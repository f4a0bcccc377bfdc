// Copyright 2017 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package pvsim implements an in-process simulation of the motion control
// process variables.
//
// Each motor added with AddMotor behaves like a stepper motor record that
// reaches its target instantly: writing its triggers updates the position,
// the state code goes through ACTIVE then back to IDLE and the hard limit
// flags are raised when the travel range is exhausted.
package pvsim

import (
	"errors"
	"fmt"
	"sync"

	"github.com/maruel/go-microgui/pv"
)

// ErrNotFound is returned when reading a variable that was never defined.
var ErrNotFound = errors.New("pvsim: unknown process variable")

// Motor state codes reported on the State variable.
const (
	StateIdle   = 0
	StateActive = 4
)

// Op is a recorded write.
type Op struct {
	Key   string
	Value float64
}

// Sim is a fake pv.Backend.
type Sim struct {
	mu       sync.Mutex
	values   map[string]float64
	motors   map[string]*motor // by trigger key
	subs     map[string][]func(float64)
	failures map[string]error
	ops      []Op
	closed   bool
}

type motor struct {
	keys     pv.Keys
	min, max float64
}

// New returns an empty simulation.
func New() *Sim {
	return &Sim{
		values:   map[string]float64{},
		motors:   map[string]*motor{},
		subs:     map[string][]func(float64){},
		failures: map[string]error{},
	}
}

// AddMotor defines every variable in keys and simulates a motor that can
// travel between min and max.
func (s *Sim) AddMotor(keys pv.Keys, min, max float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := &motor{keys: keys, min: min, max: max}
	for _, k := range []string{
		keys.Step, keys.AbsTarget, keys.Move, keys.Stop, keys.ContinuousNegative,
		keys.ContinuousPositive, keys.IncrementNegative, keys.IncrementPositive,
		keys.HardNegative, keys.HardPositive, keys.State, keys.Position,
		keys.PositionAbs, keys.Zero, keys.Offset, keys.Backlash,
	} {
		if k == "" {
			continue
		}
		s.values[k] = 0
		s.motors[k] = m
	}
	s.updateLocked(m, s.clampLocked(m, 0))
}

// Set forces the value of a variable without triggering any motion. Use it
// to define standalone variables or to teleport a motor with PositionAbs.
func (s *Sim) Set(key string, value float64) {
	s.mu.Lock()
	changed := map[string]float64{key: value}
	if m := s.motors[key]; m != nil && key == m.keys.PositionAbs {
		changed = s.updateLocked(m, value)
	} else {
		s.values[key] = value
	}
	s.mu.Unlock()
	s.notify(changed)
}

// Fail makes every subsequent Write and Read of key return err. A nil err
// clears the failure.
func (s *Sim) Fail(key string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, key)
	} else {
		s.failures[key] = err
	}
}

// Ops returns the writes done so far, in order.
func (s *Sim) Ops() []Op {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Op(nil), s.ops...)
}

// ResetOps forgets the recorded writes.
func (s *Sim) ResetOps() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = nil
}

// Value returns the value of a variable, ignoring failures.
func (s *Sim) Value(key string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key]
}

// Write implements pv.Backend.
func (s *Sim) Write(key string, value float64) error {
	s.mu.Lock()
	if err := s.checkLocked(key); err != nil {
		s.mu.Unlock()
		return err
	}
	s.ops = append(s.ops, Op{key, value})
	s.values[key] = value
	changed := map[string]float64{key: value}
	var moved bool
	if m := s.motors[key]; m != nil {
		changed, moved = s.triggerLocked(m, key, value, changed)
	}
	s.mu.Unlock()
	s.notify(changed)
	if moved {
		// The simulated move completes instantly.
		m := s.motorFor(key)
		s.Set(m.keys.State, StateIdle)
	}
	return nil
}

// Read implements pv.Backend.
func (s *Sim) Read(key string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked(key); err != nil {
		return 0, err
	}
	v, ok := s.values[key]
	if !ok {
		return 0, fmt.Errorf("%w %q", ErrNotFound, key)
	}
	return v, nil
}

// Subscribe implements pv.Backend. fn is called synchronously from the
// goroutine doing the write, after the simulation lock is released.
func (s *Sim) Subscribe(key string, fn func(value float64)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("pvsim: closed")
	}
	s.subs[key] = append(s.subs[key], fn)
	return nil
}

// Close implements pv.Backend.
func (s *Sim) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.subs = map[string][]func(float64){}
	return nil
}

//

func (s *Sim) checkLocked(key string) error {
	if s.closed {
		return errors.New("pvsim: closed")
	}
	if err := s.failures[key]; err != nil {
		return err
	}
	return nil
}

func (s *Sim) motorFor(key string) *motor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.motors[key]
}

// triggerLocked applies the side effect of writing key.
func (s *Sim) triggerLocked(m *motor, key string, value float64, changed map[string]float64) (map[string]float64, bool) {
	k := m.keys
	pos := s.values[k.PositionAbs]
	target := pos
	switch key {
	case k.IncrementNegative:
		if value == 0 {
			return changed, false
		}
		target = pos - s.values[k.Step]
	case k.IncrementPositive:
		if value == 0 {
			return changed, false
		}
		target = pos + s.values[k.Step]
	case k.Move:
		if value == 0 {
			return changed, false
		}
		target = s.values[k.AbsTarget]
	case k.ContinuousNegative, k.ContinuousPositive:
		target = value
	case k.Zero:
		if value == 0 {
			return changed, false
		}
		s.values[k.Offset] = pos
		changed[k.Offset] = pos
		for kk, v := range s.updateLocked(m, pos) {
			changed[kk] = v
		}
		return changed, false
	case k.Offset:
		for kk, v := range s.updateLocked(m, pos) {
			changed[kk] = v
		}
		return changed, false
	default:
		return changed, false
	}
	s.values[k.State] = StateActive
	changed[k.State] = StateActive
	for kk, v := range s.updateLocked(m, s.clampLocked(m, target)) {
		changed[kk] = v
	}
	return changed, true
}

func (s *Sim) clampLocked(m *motor, v float64) float64 {
	if v < m.min {
		return m.min
	}
	if v > m.max {
		return m.max
	}
	return v
}

// updateLocked sets the actual position and every value derived from it.
func (s *Sim) updateLocked(m *motor, pos float64) map[string]float64 {
	k := m.keys
	changed := map[string]float64{}
	set := func(key string, v float64) {
		if key == "" {
			return
		}
		s.values[key] = v
		changed[key] = v
	}
	set(k.PositionAbs, pos)
	set(k.Position, pos-s.values[k.Offset])
	hn, hp := 0., 0.
	if pos <= m.min {
		hn = 1
	}
	if pos >= m.max {
		hp = 1
	}
	set(k.HardNegative, hn)
	set(k.HardPositive, hp)
	return changed
}

func (s *Sim) notify(changed map[string]float64) {
	s.mu.Lock()
	type call struct {
		fn func(float64)
		v  float64
	}
	var calls []call
	for k, v := range changed {
		for _, fn := range s.subs[k] {
			calls = append(calls, call{fn, v})
		}
	}
	s.mu.Unlock()
	for _, c := range calls {
		c.fn(c.v)
	}
}

var _ pv.Backend = &Sim{}
