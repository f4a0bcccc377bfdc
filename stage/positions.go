// Copyright 2017 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package stage

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/maruel/go-microgui/config"
)

// ErrDuplicateLabel is returned when saving a position under a label that is
// already used.
var ErrDuplicateLabel = errors.New("stage: duplicate position label")

// ErrUnknownLabel is returned when a position label is not saved.
var ErrUnknownLabel = errors.New("stage: unknown position label")

// ErrInvalidLabel is returned for an empty label.
var ErrInvalidLabel = errors.New("stage: invalid position label")

// Positions is the set of saved positions, persisted to a file after every
// change.
type Positions struct {
	mu    sync.Mutex
	path  string
	saved config.Positions
}

// OpenPositions loads the saved positions from path. An empty path keeps
// them in memory only.
func OpenPositions(path string) (*Positions, error) {
	p := &Positions{path: path, saved: config.Positions{}}
	if path != "" {
		s, err := config.LoadPositions(path)
		if err != nil {
			return nil, err
		}
		p.saved = s
	}
	return p, nil
}

// Labels returns the saved labels, sorted.
func (p *Positions) Labels() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.saved))
	for l := range p.saved {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of saved positions.
func (p *Positions) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.saved)
}

// Get returns the actual positions saved under label.
func (p *Positions) Get(label string) (map[AxisRef]float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.saved[label]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownLabel, label)
	}
	out := make(map[AxisRef]float64, len(s))
	for k, v := range s {
		a, err := ParseAxisRef(k)
		if err != nil {
			return nil, fmt.Errorf("stage: position %q: %w", label, err)
		}
		out[a] = v
	}
	return out, nil
}

// Add saves a new position. The label must not be already used.
func (p *Positions) Add(label string, pos map[AxisRef]float64) error {
	label = strings.TrimSpace(label)
	if label == "" {
		return ErrInvalidLabel
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.saved[label]; ok {
		return fmt.Errorf("%w %q", ErrDuplicateLabel, label)
	}
	m := make(map[string]float64, len(pos))
	for a, v := range pos {
		m[a.String()] = v
	}
	p.saved[label] = m
	if err := p.persistLocked(); err != nil {
		delete(p.saved, label)
		return err
	}
	return nil
}

// Delete removes a saved position.
func (p *Positions) Delete(label string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	old, ok := p.saved[label]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownLabel, label)
	}
	delete(p.saved, label)
	if err := p.persistLocked(); err != nil {
		p.saved[label] = old
		return err
	}
	return nil
}

// Clear removes every saved position.
func (p *Positions) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	old := p.saved
	p.saved = config.Positions{}
	if err := p.persistLocked(); err != nil {
		p.saved = old
		return err
	}
	return nil
}

func (p *Positions) persistLocked() error {
	if p.path == "" {
		return nil
	}
	return config.SavePositions(p.path, p.saved)
}

// SavePosition saves the current actual position of every axis under label.
func (c *Controller) SavePosition(p *Positions, label string) error {
	pos := make(map[AxisRef]float64, NumAxes)
	for _, a := range All {
		x := &c.axes[a.index()]
		x.mu.Lock()
		v, err := c.backend.Read(c.keys.Get(a).PositionAbs)
		x.mu.Unlock()
		if err != nil {
			return c.fail(a, "save position", err)
		}
		pos[a] = v
	}
	if err := p.Add(label, pos); err != nil {
		if errors.Is(err, ErrDuplicateLabel) {
			c.report(Error, "Position label %q already exists.", label)
		} else {
			c.report(Error, "Position %q not saved: %v", label, err)
		}
		return err
	}
	c.report(Info, "Saved position %q.", label)
	return nil
}

// LoadPosition moves every axis to the position saved under label.
//
// An axis whose saved position is outside of its current soft limits is
// skipped with an error message; the other axes still move. The first error
// is returned.
func (c *Controller) LoadPosition(p *Positions, label string) error {
	pos, err := p.Get(label)
	if err != nil {
		c.report(Error, "Position %q is not saved.", label)
		return err
	}
	var first error
	for _, a := range All {
		v, ok := pos[a]
		if !ok {
			continue
		}
		if err := c.moveToSaved(a, v); err != nil && first == nil {
			first = err
		}
	}
	if first == nil {
		c.report(Info, "Loaded position %q.", label)
	}
	return first
}

func (c *Controller) moveToSaved(a AxisRef, v float64) error {
	x := &c.axes[a.index()]
	x.mu.Lock()
	defer x.mu.Unlock()
	soft := c.Limits.Soft(a)
	if !soft.Contains(v) {
		c.report(Error, "%s saved position %g is outside of the soft limits %s.", a, v, soft)
		return fmt.Errorf("%w: %s %g outside %s", ErrInvalidLimits, a, v, soft)
	}
	if err := c.moveLocked(a, v); err != nil {
		return c.fail(a, "load position", err)
	}
	return nil
}
