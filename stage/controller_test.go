// Copyright 2017 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package stage

import (
	"errors"
	"math"
	"path/filepath"
	"sync"
	"testing"

	"github.com/maruel/go-microgui/config"
	"github.com/maruel/go-microgui/pv/pvsim"
)

type recorder struct {
	mu       sync.Mutex
	messages []Message
	statuses []AxisStatus
}

func (r *recorder) OnStatus(s AxisStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, s)
}

func (r *recorder) OnMessage(m Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, m)
}

func (r *recorder) count(s Severity) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.messages {
		if m.Severity == s {
			n++
		}
	}
	return n
}

func testSettings() *Settings {
	s := &Settings{
		Keys:        DefaultKeys("T"),
		Hard:        uniform(Range{-1000, 1000}),
		Soft:        uniform(Range{-50, 50}),
		Offsets:     map[AxisRef]float64{},
		Backlash:    map[AxisRef]int{},
		Step2Micron: map[AxisRef]float64{},
	}
	return s
}

func newTestController(t *testing.T) (*Controller, *pvsim.Sim, *recorder) {
	s := testSettings()
	sim := pvsim.New()
	for _, a := range All {
		h := s.Hard[a]
		sim.AddMotor(*s.Keys.Get(a), h.Min, h.Max)
	}
	c, err := New(sim, s)
	if err != nil {
		t.Fatal(err)
	}
	r := &recorder{}
	c.AddObserver(r)
	sim.ResetOps()
	return c, sim, r
}

func lastWrite(sim *pvsim.Sim, key string) (float64, bool) {
	ops := sim.Ops()
	for i := len(ops) - 1; i >= 0; i-- {
		if ops[i].Key == key {
			return ops[i].Value, true
		}
	}
	return 0, false
}

func TestNew_pushesSettings(t *testing.T) {
	s := testSettings()
	a := AxisRef{Objective, Z}
	s.Offsets[a] = 7
	s.Backlash[a] = 3
	sim := pvsim.New()
	for _, a := range All {
		sim.AddMotor(*s.Keys.Get(a), -1000, 1000)
	}
	sim.Set(s.Keys.Get(a).Step, 25)
	c, err := New(sim, s)
	if err != nil {
		t.Fatal(err)
	}
	k := s.Keys.Get(a)
	if v := sim.Value(k.Offset); v != 7 {
		t.Fatal(v)
	}
	if v := sim.Value(k.Backlash); v != 3 {
		t.Fatal(v)
	}
	if st := c.Status(a); st.Step != 25 || st.Offset != 7 || st.Backlash != 3 {
		t.Fatalf("%#v", st)
	}
}

func TestNew_backendFailure(t *testing.T) {
	s := testSettings()
	sim := pvsim.New()
	for _, a := range All {
		sim.AddMotor(*s.Keys.Get(a), -1000, 1000)
	}
	boom := errors.New("boom")
	sim.Fail(s.Keys.Get(All[4]).State, boom)
	if _, err := New(sim, s); !errors.Is(err, boom) {
		t.Fatal(err)
	}
}

func TestIncrement_truncated(t *testing.T) {
	c, sim, r := newTestController(t)
	a := AxisRef{Sample, X}
	k := c.keys.Get(a)
	if errs := c.ApplySoftLimits(map[AxisRef]Range{a: {-50, 7}}); len(errs) != 0 {
		t.Fatal(errs)
	}
	sim.Set(k.PositionAbs, 5)
	sim.ResetOps()
	step, err := c.Increment(a, Positive, 10)
	if err != nil {
		t.Fatal(err)
	}
	if step != 2 {
		t.Fatal(step)
	}
	if v, ok := lastWrite(sim, k.Step); !ok || v != 2 {
		t.Fatal(v, ok)
	}
	if v := sim.Value(k.PositionAbs); v != 7 {
		t.Fatal(v)
	}
	if n := r.count(Warning); n != 0 {
		t.Fatal(n)
	}

	sim.Set(k.PositionAbs, -45)
	if step, err = c.Increment(a, Negative, 10); err != nil || step != 5 {
		t.Fatal(step, err)
	}
	if v := sim.Value(k.PositionAbs); v != -50 {
		t.Fatal(v)
	}
	// Not truncated.
	if step, err = c.Increment(a, Positive, 10); err != nil || step != 10 {
		t.Fatal(step, err)
	}
}

func TestIncrement_negativeStep(t *testing.T) {
	c, sim, r := newTestController(t)
	a := AxisRef{Objective, Y}
	step, err := c.Increment(a, Positive, -3)
	if err != nil {
		t.Fatal(err)
	}
	if step != 3 {
		t.Fatal(step)
	}
	if n := r.count(Warning); n != 1 {
		t.Fatal(n)
	}
	if v := sim.Value(c.keys.Get(a).PositionAbs); v != 3 {
		t.Fatal(v)
	}
	if st := c.Status(a); st.Step != 3 {
		t.Fatal(st.Step)
	}
}

func TestIncrement_backendFailure(t *testing.T) {
	c, sim, r := newTestController(t)
	a := AxisRef{Sample, Z}
	before := c.Status(a).Step
	sim.Fail(c.keys.Get(a).IncrementPositive, errors.New("boom"))
	if _, err := c.Increment(a, Positive, 17); err == nil {
		t.Fatal("expected failure")
	}
	if n := r.count(Error); n != 1 {
		t.Fatal(n)
	}
	// The step is only kept once the increment was sent.
	if st := c.Status(a); st.Step != before {
		t.Fatal(st.Step)
	}
	sim.Fail(c.keys.Get(a).IncrementPositive, nil)
	sim.Fail(c.keys.Get(a).PositionAbs, errors.New("boom"))
	if _, err := c.Increment(a, Positive, 17); err == nil {
		t.Fatal("expected failure")
	}
	if st := c.Status(a); st.Step != before {
		t.Fatal(st.Step)
	}
}

func TestDispatch_notFinite(t *testing.T) {
	c, sim, _ := newTestController(t)
	a := AxisRef{Objective, X}
	if _, err := c.MoveAbsolute(a, math.NaN()); !errors.Is(err, ErrNotFinite) {
		t.Fatal(err)
	}
	if _, err := c.Increment(a, Negative, math.Inf(-1)); !errors.Is(err, ErrNotFinite) {
		t.Fatal(err)
	}
	if ops := sim.Ops(); len(ops) != 0 {
		t.Fatal(ops)
	}
	errs := c.ApplySoftLimits(map[AxisRef]Range{a: {math.NaN(), 10}})
	if !errors.Is(errs[a], ErrInvalidLimits) {
		t.Fatal(errs)
	}
	if s := c.Limits.Soft(a); s != (Range{-50, 50}) {
		t.Fatal(s)
	}
}

func TestMoveAbsolute_clamped(t *testing.T) {
	c, sim, r := newTestController(t)
	a := AxisRef{Sample, Y}
	k := c.keys.Get(a)
	target, err := c.MoveAbsolute(a, 200)
	if err != nil {
		t.Fatal(err)
	}
	if target != 50 {
		t.Fatal(target)
	}
	if v, _ := lastWrite(sim, k.AbsTarget); v != 50 {
		t.Fatal(v)
	}
	if v := sim.Value(k.PositionAbs); v != 50 {
		t.Fatal(v)
	}
	if n := r.count(Warning) + r.count(Error); n != 0 {
		t.Fatal(n)
	}
}

func TestMoveAbsolute_offset(t *testing.T) {
	c, sim, _ := newTestController(t)
	a := AxisRef{Objective, X}
	c.Offsets.Set(a, 10)
	target, err := c.MoveAbsolute(a, 30)
	if err != nil {
		t.Fatal(err)
	}
	if target != 40 {
		t.Fatal(target)
	}
	if v := sim.Value(c.keys.Get(a).PositionAbs); v != 40 {
		t.Fatal(v)
	}
	c.Drain()
	if st := c.Status(a); st.Display != 30 || st.Actual != 40 || st.Target != 30 {
		t.Fatalf("%#v", st)
	}
}

func TestContinuous(t *testing.T) {
	c, sim, _ := newTestController(t)
	a := AxisRef{Sample, Z}
	k := c.keys.Get(a)
	if err := c.Continuous(a, ContinuousNegative); err != nil {
		t.Fatal(err)
	}
	if v, ok := lastWrite(sim, k.ContinuousNegative); !ok || v != -50 {
		t.Fatal(v, ok)
	}
	if err := c.Continuous(a, ContinuousPositive); err != nil {
		t.Fatal(err)
	}
	if v, ok := lastWrite(sim, k.ContinuousPositive); !ok || v != 50 {
		t.Fatal(v, ok)
	}
	sim.ResetOps()
	if err := c.Continuous(a, Stop); err != nil {
		t.Fatal(err)
	}
	ops := sim.Ops()
	if len(ops) != 2 || ops[0] != (pvsim.Op{Key: k.Stop, Value: 1}) || ops[1] != (pvsim.Op{Key: k.Stop, Value: 0}) {
		t.Fatal(ops)
	}
	if err := c.Continuous(a, Motion(7)); err == nil {
		t.Fatal("expected error")
	}
}

func TestStopAll(t *testing.T) {
	c, sim, _ := newTestController(t)
	sim.Fail(c.keys.Get(All[0]).Stop, errors.New("boom"))
	if err := c.StopAll(); err == nil {
		t.Fatal("expected error")
	}
	// The other axes were still stopped.
	for _, a := range All[1:] {
		if _, ok := lastWrite(sim, c.keys.Get(a).Stop); !ok {
			t.Fatal(a)
		}
	}
}

func TestZero(t *testing.T) {
	c, sim, _ := newTestController(t)
	a := AxisRef{Objective, Z}
	k := c.keys.Get(a)
	sim.Set(k.PositionAbs, 42)
	if err := c.Zero(a); err != nil {
		t.Fatal(err)
	}
	if v := c.Offsets.ToRelative(a, sim.Value(k.PositionAbs)); v != 0 {
		t.Fatal(v)
	}
	ops := sim.Ops()
	want := []pvsim.Op{{Key: k.Offset, Value: 42}, {Key: k.Zero, Value: 1}, {Key: k.Zero, Value: 0}}
	if len(ops) != len(want) {
		t.Fatal(ops)
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Fatal(ops)
		}
	}
	c.Drain()
	if st := c.Status(a); st.Position != 0 || st.Display != 0 || st.Actual != 42 {
		t.Fatalf("%#v", st)
	}
	if err := c.Unzero(a); err != nil {
		t.Fatal(err)
	}
	if v := c.Offsets.ToRelative(a, 42); v != 42 {
		t.Fatal(v)
	}
}

func TestZero_backendFailure(t *testing.T) {
	c, sim, r := newTestController(t)
	a := AxisRef{Sample, X}
	k := c.keys.Get(a)
	c.Offsets.Set(a, 3)
	sim.Set(k.PositionAbs, 42)
	sim.Fail(k.Zero, errors.New("boom"))
	if err := c.Zero(a); err == nil {
		t.Fatal("expected error")
	}
	if v := c.Offsets.Get(a); v != 3 {
		t.Fatal(v)
	}
	if n := r.count(Error); n != 1 {
		t.Fatal(n)
	}
}

func TestZeroAll(t *testing.T) {
	c, sim, _ := newTestController(t)
	for i, a := range All {
		sim.Set(c.keys.Get(a).PositionAbs, float64(i*10))
	}
	if err := c.ZeroAll(); err != nil {
		t.Fatal(err)
	}
	for i, a := range All {
		if v := c.Offsets.Get(a); v != float64(i*10) {
			t.Fatal(a, v)
		}
	}
	if err := c.UnzeroAll(); err != nil {
		t.Fatal(err)
	}
	for _, a := range All {
		if v := c.Offsets.Get(a); v != 0 {
			t.Fatal(a, v)
		}
		if v := sim.Value(c.keys.Get(a).Offset); v != 0 {
			t.Fatal(a, v)
		}
	}
}

func TestApplySoftLimits_isolation(t *testing.T) {
	c, _, r := newTestController(t)
	x := AxisRef{Sample, X}
	y := AxisRef{Sample, Y}
	errs := c.ApplySoftLimits(map[AxisRef]Range{x: {5, 2}, y: {-20, 20}})
	if len(errs) != 1 || !errors.Is(errs[x], ErrInvalidLimits) {
		t.Fatal(errs)
	}
	if s := c.Limits.Soft(x); s != (Range{-50, 50}) {
		t.Fatal(s)
	}
	if s := c.Limits.Soft(y); s != (Range{-20, 20}) {
		t.Fatal(s)
	}
	if n := r.count(Warning); n != 1 {
		t.Fatal(n)
	}
}

func TestApplySoftLimits_reconcile(t *testing.T) {
	c, sim, _ := newTestController(t)
	a := AxisRef{Objective, Y}
	k := c.keys.Get(a)
	if errs := c.ApplySoftLimits(map[AxisRef]Range{a: {-100, 100}}); len(errs) != 0 {
		t.Fatal(errs)
	}
	sim.Set(k.PositionAbs, 80)
	sim.ResetOps()
	if errs := c.ApplySoftLimits(map[AxisRef]Range{a: {-10, 10}}); len(errs) != 0 {
		t.Fatal(errs)
	}
	if v, ok := lastWrite(sim, k.AbsTarget); !ok || v != 10 {
		t.Fatal(v, ok)
	}
	if v := sim.Value(k.PositionAbs); v != 10 {
		t.Fatal(v)
	}
	// Axes already inside their limits are not moved.
	for _, b := range All {
		if b == a {
			continue
		}
		if _, ok := lastWrite(sim, c.keys.Get(b).Move); ok {
			t.Fatal(b)
		}
	}
	// Every position reported after reconciliation is inside the limits.
	for _, b := range All {
		pos := sim.Value(c.keys.Get(b).PositionAbs)
		if !c.Limits.Soft(b).Contains(pos) {
			t.Fatal(b, pos)
		}
	}
}

func TestSoftLimitsToZero(t *testing.T) {
	c, sim, _ := newTestController(t)
	a := AxisRef{Sample, Z}
	k := c.keys.Get(a)
	sim.Set(k.PositionAbs, 20)
	if err := c.SoftLimitsToZero(a); err != nil {
		t.Fatal(err)
	}
	if v := sim.Value(k.PositionAbs); v != 0 {
		t.Fatal(v)
	}
	if err := c.SoftLimitsToHard(a); err != nil {
		t.Fatal(err)
	}
	if s := c.Limits.Soft(a); s != (Range{-1000, 1000}) {
		t.Fatal(s)
	}
}

func TestSoftLimitsTo_allAxes(t *testing.T) {
	c, sim, _ := newTestController(t)
	if err := c.SoftLimitsToHard(); err != nil {
		t.Fatal(err)
	}
	for _, a := range All {
		if s := c.Limits.Soft(a); s != (Range{-1000, 1000}) {
			t.Fatal(a, s)
		}
	}
	// Nothing is changed when one axis is invalid.
	if err := c.SoftLimitsToZero(AxisRef{Sample, X}, AxisRef{Stage(9), X}); !errors.Is(err, ErrInvalidAxis) {
		t.Fatal(err)
	}
	if s := c.Limits.Soft(AxisRef{Sample, X}); s != (Range{-1000, 1000}) {
		t.Fatal(s)
	}
	a := AxisRef{Objective, Z}
	sim.Set(c.keys.Get(a).PositionAbs, -30)
	if err := c.SoftLimitsToZero(); err != nil {
		t.Fatal(err)
	}
	for _, b := range All {
		if s := c.Limits.Soft(b); s != (Range{}) {
			t.Fatal(b, s)
		}
	}
	if v := sim.Value(c.keys.Get(a).PositionAbs); v != 0 {
		t.Fatal(v)
	}
	// A failed reconciliation is returned.
	boom := errors.New("boom")
	sim.Set(c.keys.Get(a).PositionAbs, 0)
	if err := c.SoftLimitsToHard(); err != nil {
		t.Fatal(err)
	}
	sim.Set(c.keys.Get(a).PositionAbs, 500)
	sim.Fail(c.keys.Get(a).Move, boom)
	if err := c.SoftLimitsToZero(a); !errors.Is(err, boom) {
		t.Fatal(err)
	}
}

func TestSavedPositions(t *testing.T) {
	c, sim, r := newTestController(t)
	path := filepath.Join(t.TempDir(), config.DefaultPositionsFile)
	p, err := OpenPositions(path)
	if err != nil {
		t.Fatal(err)
	}
	for i, a := range All {
		sim.Set(c.keys.Get(a).PositionAbs, float64(i))
	}
	if err := c.SavePosition(p, "home"); err != nil {
		t.Fatal(err)
	}
	if err := c.SavePosition(p, "home"); !errors.Is(err, ErrDuplicateLabel) {
		t.Fatal(err)
	}
	if p.Len() != 1 {
		t.Fatal(p.Labels())
	}
	if n := r.count(Error); n != 1 {
		t.Fatal(n)
	}

	// Persisted.
	p2, err := OpenPositions(path)
	if err != nil {
		t.Fatal(err)
	}
	if l := p2.Labels(); len(l) != 1 || l[0] != "home" {
		t.Fatal(l)
	}

	// Move away then load back.
	for _, a := range All {
		sim.Set(c.keys.Get(a).PositionAbs, 30)
	}
	if err := c.LoadPosition(p2, "home"); err != nil {
		t.Fatal(err)
	}
	for i, a := range All {
		if v := sim.Value(c.keys.Get(a).PositionAbs); v != float64(i) {
			t.Fatal(a, v)
		}
	}

	if err := p2.Delete("home"); err != nil {
		t.Fatal(err)
	}
	if err := p2.Delete("home"); !errors.Is(err, ErrUnknownLabel) {
		t.Fatal(err)
	}
	if err := c.LoadPosition(p2, "home"); !errors.Is(err, ErrUnknownLabel) {
		t.Fatal(err)
	}
}

func TestLoadPosition_outsideSoftLimits(t *testing.T) {
	c, sim, r := newTestController(t)
	p, err := OpenPositions("")
	if err != nil {
		t.Fatal(err)
	}
	x := AxisRef{Sample, X}
	y := AxisRef{Sample, Y}
	if err := p.Add("far", map[AxisRef]float64{x: 500, y: 20}); err != nil {
		t.Fatal(err)
	}
	if err := c.LoadPosition(p, "far"); !errors.Is(err, ErrInvalidLimits) {
		t.Fatal(err)
	}
	if v := sim.Value(c.keys.Get(x).PositionAbs); v != 0 {
		t.Fatal(v)
	}
	if v := sim.Value(c.keys.Get(y).PositionAbs); v != 20 {
		t.Fatal(v)
	}
	if n := r.count(Error); n != 1 {
		t.Fatal(n)
	}
	if err := p.Clear(); err != nil || p.Len() != 0 {
		t.Fatal(err)
	}
	if err := p.Add("  ", nil); !errors.Is(err, ErrInvalidLabel) {
		t.Fatal(err)
	}
}

func TestSetBacklash(t *testing.T) {
	c, sim, _ := newTestController(t)
	a := AxisRef{Objective, X}
	if err := c.SetBacklash(map[AxisRef]float64{a: -12.7}); err != nil {
		t.Fatal(err)
	}
	if v := sim.Value(c.keys.Get(a).Backlash); v != 12 {
		t.Fatal(v)
	}
	m := config.Macros{}
	c.UpdateMacros(m)
	if v, err := m.Float("XO_BACKLASH"); err != nil || v != 12 {
		t.Fatal(v, err)
	}
	if v, err := m.Float("XOMAX_SOFT_LIMIT"); err != nil || v != 50 {
		t.Fatal(v, err)
	}
	if err := c.SetBacklash(map[AxisRef]float64{a: 1e300}); err != nil {
		t.Fatal(err)
	}
	if v := sim.Value(c.keys.Get(a).Backlash); v != MaxBacklash {
		t.Fatal(v)
	}
	if b := BacklashFrom(math.NaN()); b != 0 {
		t.Fatal(b)
	}
	if b := BacklashFrom(math.Inf(-1)); b != MaxBacklash {
		t.Fatal(b)
	}
}

func TestServe(t *testing.T) {
	c, sim, r := newTestController(t)
	a := AxisRef{Sample, Y}
	k := c.keys.Get(a)
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		c.Serve(stop)
		close(done)
	}()
	sim.Set(k.HardPositive, 1)
	sim.Set(k.State, 4)
	close(stop)
	<-done
	c.Drain()
	st := c.Status(a)
	if !st.AtHardMax || st.AtHardMin {
		t.Fatalf("%#v", st)
	}
	if st.Indicator.Label != "ACTIVE" {
		t.Fatalf("%#v", st)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.statuses) == 0 {
		t.Fatal("no status published")
	}
}

// Run with -race.
func TestConcurrentAxisOperations(t *testing.T) {
	c, sim, _ := newTestController(t)
	a := AxisRef{Sample, X}
	k := c.keys.Get(a)
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		c.Serve(stop)
		close(done)
	}()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				v := float64((i*50+j)%40 - 20)
				var err error
				switch (i + j) % 6 {
				case 0:
					err = c.Zero(a)
				case 1:
					_, err = c.MoveAbsolute(a, v)
				case 2:
					_, err = c.Increment(a, Direction(j%2), 3)
				case 3:
					if errs := c.ApplySoftLimits(map[AxisRef]Range{a: {v - 10, v + 10}}); len(errs) != 0 {
						err = errs[a]
					}
				case 4:
					c.UseMicrons(j%2 == 0)
				case 5:
					err = c.Unzero(a)
				}
				if err != nil {
					t.Error(err)
					return
				}
			}
		}(i)
	}
	wg.Wait()
	close(stop)
	<-done
	c.Drain()
	if err := c.Reconcile(); err != nil {
		t.Fatal(err)
	}
	soft := c.Limits.Soft(a)
	hard := c.Limits.Hard(a)
	if !(hard.Min <= soft.Min && soft.Min <= soft.Max && soft.Max <= hard.Max) {
		t.Fatalf("soft %s not contained in hard %s", soft, hard)
	}
	if pos := sim.Value(k.PositionAbs); !soft.Contains(pos) {
		t.Fatal(pos, soft)
	}
	if off := sim.Value(k.Offset); off != c.Offsets.Get(a) {
		t.Fatal(off, c.Offsets.Get(a))
	}
}

func TestUseMicrons(t *testing.T) {
	s := testSettings()
	a := AxisRef{Sample, X}
	s.Step2Micron[a] = 0.5
	sim := pvsim.New()
	for _, b := range All {
		sim.AddMotor(*s.Keys.Get(b), -1000, 1000)
	}
	c, err := New(sim, s)
	if err != nil {
		t.Fatal(err)
	}
	sim.Set(s.Keys.Get(a).PositionAbs, 100)
	c.Drain()
	if l := c.Status(a).Label; l != "100.0 STEPS" {
		t.Fatal(l)
	}
	c.UseMicrons(true)
	if l := c.Status(a).Label; l != "50.0 MICRONS" {
		t.Fatal(l)
	}
}

func TestSettingsFromMacros(t *testing.T) {
	m := config.Macros{}
	keys := DefaultKeys("M")
	keys.ToMacros(m)
	for _, a := range All {
		m[a.String()+"MIN_HARD_LIMIT"] = -100.
		m[a.String()+"MAX_HARD_LIMIT"] = 100.
	}
	m["ZO_BACKLASH"] = -4.
	m["YSMIN_SOFT_LIMIT"] = -10.
	s, err := SettingsFromMacros(m)
	if err != nil {
		t.Fatal(err)
	}
	if s.Keys != keys {
		t.Fatal("keys differ")
	}
	if s.Backlash[AxisRef{Objective, Z}] != 4 {
		t.Fatal(s.Backlash)
	}
	if r := s.Soft[AxisRef{Sample, Y}]; r != (Range{-10, 100}) {
		t.Fatal(r)
	}
	if f := s.Step2Micron[All[0]]; f != 1 {
		t.Fatal(f)
	}
	delete(m, "XOMAX_HARD_LIMIT")
	if _, err := SettingsFromMacros(m); !errors.Is(err, config.ErrMissingKey) {
		t.Fatal(err)
	}
	delete(m, "YSPOS_ABS")
	if _, err := SettingsFromMacros(m); !errors.Is(err, config.ErrMissingKey) {
		t.Fatal(err)
	}
}

func TestReload(t *testing.T) {
	c, sim, _ := newTestController(t)
	a := AxisRef{Objective, Y}
	sim.Set(c.keys.Get(a).PositionAbs, 40)
	s := testSettings()
	s.Soft[a] = Range{-5, 5}
	s.Offsets[a] = 1
	s.Backlash[a] = 9
	if err := c.Reload(s); err != nil {
		t.Fatal(err)
	}
	if v := sim.Value(c.keys.Get(a).PositionAbs); v != 5 {
		t.Fatal(v)
	}
	if st := c.Status(a); st.Offset != 1 || st.Backlash != 9 || st.Soft != (Range{-5, 5}) {
		t.Fatalf("%#v", st)
	}
	s.Hard[a] = Range{1, -1}
	if err := c.Reload(s); !errors.Is(err, ErrInvalidHardLimits) {
		t.Fatal(err)
	}
}
