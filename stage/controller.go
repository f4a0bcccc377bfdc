// Copyright 2017 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package stage

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/maruel/go-microgui/pv"
)

// Severity is the level of a user visible message.
type Severity int

// Valid values for Severity.
const (
	Info    Severity = 0 // Informational.
	Warning Severity = 1 // The input was corrected.
	Error   Severity = 2 // The request was not honored.
)

func (s Severity) String() string {
	switch s {
	case Warning:
		return "WARNING"
	case Error:
		return "ERROR"
	default:
		return "INFO"
	}
}

// Color is the color used to display messages of this severity.
func (s Severity) Color() string {
	switch s {
	case Warning:
		return "#fad700"
	case Error:
		return "red"
	default:
		return "black"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(b []byte) error {
	switch string(b) {
	case "INFO":
		*s = Info
	case "WARNING":
		*s = Warning
	case "ERROR":
		*s = Error
	default:
		return fmt.Errorf("stage: invalid severity %q", b)
	}
	return nil
}

// Message is a line for the user console.
type Message struct {
	Time     time.Time `json:"time"`
	Severity Severity  `json:"severity"`
	Text     string    `json:"text"`
}

// EventKind is the process variable an Event is about.
type EventKind int

// Valid values for EventKind.
const (
	EventState EventKind = iota
	EventPosition
	EventPositionAbs
	EventHardNegative
	EventHardPositive
)

// Event is a value change pushed by the backend.
type Event struct {
	Axis  AxisRef
	Kind  EventKind
	Value float64
}

// AxisStatus is a snapshot of what is displayed for an axis.
type AxisStatus struct {
	Axis      AxisRef   `json:"axis"`
	State     int       `json:"state"`
	Indicator Indicator `json:"indicator"`
	Position  float64   `json:"position"` // Relative position as reported by the backend.
	Actual    float64   `json:"actual"`
	Display   float64   `json:"display"` // Actual - Offset.
	Label     string    `json:"label"`
	Offset    float64   `json:"offset"`
	Soft      Range     `json:"soft"`
	Hard      Range     `json:"hard"`
	AtSoftMin bool      `json:"at_soft_min"`
	AtSoftMax bool      `json:"at_soft_max"`
	AtHardMin bool      `json:"at_hard_min"`
	AtHardMax bool      `json:"at_hard_max"`
	Step      float64   `json:"step"`
	Target    float64   `json:"target"` // Last absolute target, in display coordinates.
	Backlash  int       `json:"backlash"`
}

// Observer is notified of status changes and messages.
//
// Methods may be called concurrently and must not call back into the
// Controller.
type Observer interface {
	OnStatus(s AxisStatus)
	OnMessage(m Message)
}

// maxHistory is the number of messages kept for late observers.
const maxHistory = 100

// Controller drives the six axes through a pv.Backend.
//
// Every mutating operation on an axis is serialized by a per axis lock;
// operations on different axes proceed concurrently. Backend notifications
// are queued and applied by Serve.
type Controller struct {
	Limits  *Limits
	Offsets *Offsets

	backend pv.Backend
	keys    KeyTable
	axes    [NumAxes]axisState

	mu        sync.Mutex
	observers []Observer
	history   []Message
	queue     []Event
	microns   bool
	wake      chan struct{}
	drainMu   sync.Mutex
}

type axisState struct {
	mu          sync.Mutex
	step        float64
	target      float64 // actual coordinates
	backlash    int
	step2micron float64
	state       int
	position    float64
	actual      float64
	hardNeg     float64
	hardPos     float64
}

// New returns a Controller for the axes described in s.
//
// The configured offsets and backlashes are pushed to the backend, the step
// sizes and absolute targets are read back from it and every status variable
// is subscribed to. Any backend failure is returned; the program cannot run
// without its motors.
func New(b pv.Backend, s *Settings) (*Controller, error) {
	l, corrected, err := NewLimits(s.Hard, s.Soft)
	if err != nil {
		return nil, err
	}
	c := &Controller{
		Limits:  l,
		Offsets: NewOffsets(s.Offsets),
		backend: b,
		keys:    s.Keys,
		wake:    make(chan struct{}, 1),
	}
	for _, a := range corrected {
		c.report(Warning, "%s soft limits were outside of the hard limits and were changed to %s.", a, l.Soft(a))
	}
	for _, a := range All {
		x := &c.axes[a.index()]
		x.backlash = s.Backlash[a]
		x.step2micron = s.Step2Micron[a]
		if x.step2micron == 0 {
			x.step2micron = 1
		}
		if err := c.initAxis(a); err != nil {
			return nil, fmt.Errorf("stage: initializing %s: %w", a, err)
		}
	}
	return c, nil
}

func (c *Controller) initAxis(a AxisRef) error {
	k := c.keys.Get(a)
	x := &c.axes[a.index()]
	if err := c.backend.Write(k.Offset, c.Offsets.Get(a)); err != nil {
		return err
	}
	if err := c.backend.Write(k.Backlash, float64(x.backlash)); err != nil {
		return err
	}
	var err error
	for _, r := range []struct {
		key string
		dst *float64
	}{
		{k.Step, &x.step},
		{k.AbsTarget, &x.target},
		{k.Position, &x.position},
		{k.PositionAbs, &x.actual},
		{k.HardNegative, &x.hardNeg},
		{k.HardPositive, &x.hardPos},
	} {
		if *r.dst, err = c.backend.Read(r.key); err != nil {
			return err
		}
	}
	st, err := c.backend.Read(k.State)
	if err != nil {
		return err
	}
	x.state = int(st)
	for _, s := range []struct {
		key  string
		kind EventKind
	}{
		{k.State, EventState},
		{k.Position, EventPosition},
		{k.PositionAbs, EventPositionAbs},
		{k.HardNegative, EventHardNegative},
		{k.HardPositive, EventHardPositive},
	} {
		kind := s.kind
		if err := c.backend.Subscribe(s.key, func(v float64) { c.enqueue(Event{a, kind, v}) }); err != nil {
			return err
		}
	}
	return nil
}

// AddObserver registers o. It is immediately sent the status of every axis.
func (c *Controller) AddObserver(o Observer) {
	c.mu.Lock()
	c.observers = append(c.observers, o)
	c.mu.Unlock()
	for _, a := range All {
		o.OnStatus(c.Status(a))
	}
}

// RemoveObserver unregisters o.
func (c *Controller) RemoveObserver(o Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, x := range c.observers {
		if x == o {
			c.observers = append(c.observers[:i], c.observers[i+1:]...)
			return
		}
	}
}

// Messages returns the most recent messages, oldest first.
func (c *Controller) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.history...)
}

// Status returns the current status of an axis.
func (c *Controller) Status(a AxisRef) AxisStatus {
	x := &c.axes[a.index()]
	x.mu.Lock()
	defer x.mu.Unlock()
	return c.statusLocked(a)
}

// UseMicrons selects the unit of the position labels.
func (c *Controller) UseMicrons(b bool) {
	c.mu.Lock()
	c.microns = b
	c.mu.Unlock()
	c.publishAll()
}

// Serve applies the queued backend notifications until stop is closed.
func (c *Controller) Serve(stop <-chan struct{}) {
	for {
		c.Drain()
		select {
		case <-stop:
			return
		case <-c.wake:
		}
	}
}

// Drain applies every queued backend notification and returns.
func (c *Controller) Drain() {
	c.drainMu.Lock()
	defer c.drainMu.Unlock()
	for {
		c.mu.Lock()
		q := c.queue
		c.queue = nil
		c.mu.Unlock()
		if len(q) == 0 {
			return
		}
		for _, e := range q {
			c.apply(e)
		}
	}
}

//

// enqueue is called by backend subscriptions. It never blocks.
func (c *Controller) enqueue(e Event) {
	c.mu.Lock()
	c.queue = append(c.queue, e)
	c.mu.Unlock()
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Controller) apply(e Event) {
	if !e.Axis.Valid() {
		return
	}
	x := &c.axes[e.Axis.index()]
	x.mu.Lock()
	switch e.Kind {
	case EventState:
		x.state = int(e.Value)
	case EventPosition:
		x.position = e.Value
	case EventPositionAbs:
		x.actual = e.Value
	case EventHardNegative:
		x.hardNeg = e.Value
	case EventHardPositive:
		x.hardPos = e.Value
	}
	s := c.statusLocked(e.Axis)
	x.mu.Unlock()
	c.publish(s)
}

// statusLocked must be called with the axis lock held.
func (c *Controller) statusLocked(a AxisRef) AxisStatus {
	x := &c.axes[a.index()]
	c.mu.Lock()
	microns := c.microns
	c.mu.Unlock()
	soft := c.Limits.Soft(a)
	off := c.Offsets.Get(a)
	s := AxisStatus{
		Axis:      a,
		State:     x.state,
		Indicator: MotorState(x.state),
		Position:  x.position,
		Actual:    x.actual,
		Display:   x.actual - off,
		Label:     PositionLabel(x.position, x.step2micron, microns),
		Offset:    off,
		Soft:      soft,
		Hard:      c.Limits.Hard(a),
		AtHardMin: HardLimitIndicator(x.hardNeg),
		AtHardMax: HardLimitIndicator(x.hardPos),
		Step:      x.step,
		Target:    x.target - off,
		Backlash:  x.backlash,
	}
	s.AtSoftMin, s.AtSoftMax = SoftLimitIndicator(x.actual, soft)
	return s
}

func (c *Controller) publish(s AxisStatus) {
	c.mu.Lock()
	obs := append([]Observer(nil), c.observers...)
	c.mu.Unlock()
	for _, o := range obs {
		o.OnStatus(s)
	}
}

func (c *Controller) publishAll() {
	for _, a := range All {
		c.publish(c.Status(a))
	}
}

// report logs a message and sends it to the observers.
func (c *Controller) report(s Severity, format string, args ...interface{}) {
	m := Message{Time: time.Now(), Severity: s, Text: fmt.Sprintf(format, args...)}
	log.Printf("%s: %s", s, m.Text)
	c.mu.Lock()
	c.history = append(c.history, m)
	if len(c.history) > maxHistory {
		c.history = c.history[len(c.history)-maxHistory:]
	}
	obs := append([]Observer(nil), c.observers...)
	c.mu.Unlock()
	for _, o := range obs {
		o.OnMessage(m)
	}
}

// Report sends a message to the observers, for use by collaborators such as
// the mode motor.
func (c *Controller) Report(s Severity, format string, args ...interface{}) {
	c.report(s, format, args...)
}

// fail reports a backend failure and returns it wrapped.
func (c *Controller) fail(a AxisRef, op string, err error) error {
	c.report(Error, "%s %s failed: %v", a, op, err)
	return fmt.Errorf("stage: %s %s: %w", a, op, err)
}
