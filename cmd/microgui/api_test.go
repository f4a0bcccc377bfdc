// Copyright 2017 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/maruel/go-microgui/api"
	"github.com/maruel/go-microgui/camera"
	"github.com/maruel/go-microgui/camera/cameratest"
	"github.com/maruel/go-microgui/config"
	"github.com/maruel/go-microgui/mode"
	"github.com/maruel/go-microgui/mode/modetest"
	"github.com/maruel/go-microgui/pv/pvsim"
	"github.com/maruel/go-microgui/stage"
)

type testEnv struct {
	a      *app
	sim    *pvsim.Sim
	motor  *modetest.Motor
	h      http.Handler
	config string
}

// testMacros returns a complete configuration.
func testMacros() config.Macros {
	m := config.Macros{}
	keys := stage.DefaultKeys("T")
	keys.ToMacros(m)
	for _, a := range stage.All {
		p := a.String()
		m[p+"MIN_HARD_LIMIT"] = -1000.
		m[p+"MAX_HARD_LIMIT"] = 1000.
		m[p+"MIN_SOFT_LIMIT"] = -50.
		m[p+"MAX_SOFT_LIMIT"] = 50.
		m[p+"_OFFSET"] = 0.
		m[p+"_BACKLASH"] = 0.
		m[p+"_STEP2MICRON"] = 0.5
	}
	for i := mode.Slot(0); i < mode.NumSlots; i++ {
		m[i.Key()] = float64(10 * (i + 1))
	}
	return m
}

func newTestEnv(t *testing.T) *testEnv {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	raw, err := json.Marshal(testMacros())
	if err != nil {
		t.Fatal(err)
	}
	if err := ioutil.WriteFile(path, raw, 0600); err != nil {
		t.Fatal(err)
	}
	doc, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	s, err := stage.SettingsFromMacros(doc.Macros)
	if err != nil {
		t.Fatal(err)
	}
	slots, err := mode.PositionsFromMacros(doc.Macros)
	if err != nil {
		t.Fatal(err)
	}
	sim := newBackend(s)
	c, err := stage.New(sim, s)
	if err != nil {
		t.Fatal(err)
	}
	p, err := stage.OpenPositions(filepath.Join(dir, "saved_positions.json"))
	if err != nil {
		t.Fatal(err)
	}
	m := &modetest.Motor{}
	sel, err := mode.NewSelector(m, slots)
	if err != nil {
		t.Fatal(err)
	}
	a := newApp(c, sel, p, doc, filepath.Join(dir, "images"))
	t.Cleanup(a.Close)
	return &testEnv{a: a, sim: sim, motor: m, h: a.handler(), config: path}
}

// post sends a JSON request and decodes the reply into out, if not nil.
func (e *testEnv) post(t *testing.T, name string, in, out interface{}) int {
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest("POST", "/api/microgui/v1/"+name, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.h.ServeHTTP(w, req)
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("%s: %q", name, ct)
	}
	if out != nil && w.Code == http.StatusOK {
		if err := json.NewDecoder(w.Body).Decode(out); err != nil {
			t.Fatal(err)
		}
	}
	return w.Code
}

func TestJSONAPI_validation(t *testing.T) {
	e := newTestEnv(t)
	w := httptest.NewRecorder()
	e.h.ServeHTTP(w, httptest.NewRequest("GET", "/api/microgui/v1/increment", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatal(w.Code)
	}
	w = httptest.NewRecorder()
	e.h.ServeHTTP(w, httptest.NewRequest("POST", "/api/microgui/v1/increment", bytes.NewReader([]byte("{}"))))
	if w.Code != http.StatusBadRequest {
		t.Fatal(w.Code)
	}
	resp := &api.Error{}
	if err := json.NewDecoder(w.Body).Decode(resp); err != nil || resp.Error == "" {
		t.Fatal(resp, err)
	}
	if code := e.post(t, "increment", map[string]interface{}{"axis": "QQ", "direction": "P"}, nil); code != http.StatusBadRequest {
		t.Fatal(code)
	}
	if code := e.post(t, "increment", &api.IncrementRequest{Direction: "up"}, nil); code != http.StatusBadRequest {
		t.Fatal(code)
	}
}

func TestIncrement(t *testing.T) {
	e := newTestEnv(t)
	xs := stage.AxisRef{Stage: stage.Sample, Axis: stage.X}
	resp := &api.IncrementReply{}
	if code := e.post(t, "increment", &api.IncrementRequest{Axis: xs, Direction: "P", Step: 80}, resp); code != 200 {
		t.Fatal(code)
	}
	if resp.Step != 50 {
		t.Fatal(resp.Step)
	}
	if v := e.sim.Value("T:XS:POS_ABS"); v != 50 {
		t.Fatal(v)
	}
	abs := &api.AbsoluteReply{}
	if code := e.post(t, "absolute", &api.AbsoluteRequest{Axis: xs, Target: -200}, abs); code != 200 {
		t.Fatal(code)
	}
	if abs.Target != -50 {
		t.Fatal(abs.Target)
	}
}

func TestSoftLimits(t *testing.T) {
	e := newTestEnv(t)
	xs := stage.AxisRef{Stage: stage.Sample, Axis: stage.X}
	ys := stage.AxisRef{Stage: stage.Sample, Axis: stage.Y}
	req := &api.SoftLimitsRequest{
		Mode: api.SoftInputted,
		Limits: map[stage.AxisRef]stage.Range{
			xs: {Min: -10, Max: 10},
			ys: {Min: 10, Max: -10},
		},
	}
	resp := &api.SoftLimitsReply{}
	if code := e.post(t, "soft_limits", req, resp); code != 200 {
		t.Fatal(code)
	}
	if len(resp.Rejected) != 1 || resp.Rejected[ys] == "" {
		t.Fatal(resp.Rejected)
	}
	if s := e.a.c.Limits.Soft(xs); s != (stage.Range{Min: -10, Max: 10}) {
		t.Fatal(s)
	}
	if code := e.post(t, "soft_limits", &api.SoftLimitsRequest{Mode: api.SoftHard, Axes: []stage.AxisRef{xs}}, resp); code != 200 {
		t.Fatal(code)
	}
	if s := e.a.c.Limits.Soft(xs); s != (stage.Range{Min: -1000, Max: 1000}) {
		t.Fatal(s)
	}
	if code := e.post(t, "soft_limits", &api.SoftLimitsRequest{Mode: "bogus"}, nil); code != http.StatusBadRequest {
		t.Fatal(code)
	}
	bad := map[string]interface{}{"mode": api.SoftHard, "axes": []string{"QQ"}}
	if code := e.post(t, "soft_limits", bad, nil); code != http.StatusBadRequest {
		t.Fatal(code)
	}
}

func TestSoftLimits_allAxes(t *testing.T) {
	e := newTestEnv(t)
	if code := e.post(t, "soft_limits", &api.SoftLimitsRequest{Mode: api.SoftHard}, nil); code != 200 {
		t.Fatal(code)
	}
	for _, a := range stage.All {
		if s := e.a.c.Limits.Soft(a); s != (stage.Range{Min: -1000, Max: 1000}) {
			t.Fatal(a, s)
		}
	}
	if code := e.post(t, "soft_limits", &api.SoftLimitsRequest{Mode: api.SoftZero}, nil); code != 200 {
		t.Fatal(code)
	}
	for _, a := range stage.All {
		if s := e.a.c.Limits.Soft(a); s != (stage.Range{}) {
			t.Fatal(a, s)
		}
		if v := e.sim.Value("T:" + a.String() + ":POS_ABS"); v != 0 {
			t.Fatal(a, v)
		}
	}
}

func TestPositions(t *testing.T) {
	e := newTestEnv(t)
	resp := &api.PositionsReply{}
	if code := e.post(t, "positions/save", &api.PositionRequest{Label: "a"}, resp); code != 200 {
		t.Fatal(code)
	}
	if len(resp.Labels) != 1 || resp.Labels[0] != "a" {
		t.Fatal(resp.Labels)
	}
	if code := e.post(t, "positions/save", &api.PositionRequest{Label: "a"}, nil); code != http.StatusBadRequest {
		t.Fatal(code)
	}
	if code := e.post(t, "positions/load", &api.PositionRequest{Label: "b"}, nil); code != http.StatusNotFound {
		t.Fatal(code)
	}
	if code := e.post(t, "positions/load", &api.PositionRequest{Label: "a"}, resp); code != 200 {
		t.Fatal(code)
	}
	if code := e.post(t, "positions/clear", &api.Empty{}, resp); code != 200 {
		t.Fatal(code)
	}
	if len(resp.Labels) != 0 {
		t.Fatal(resp.Labels)
	}
}

func TestMode(t *testing.T) {
	e := newTestEnv(t)
	st := &mode.Status{}
	if code := e.post(t, "mode/select", &api.ModeSelectRequest{Slot: mode.Reflection}, st); code != 200 {
		t.Fatal(code)
	}
	if st.Selected == nil || *st.Selected != mode.Reflection {
		t.Fatal(st.Selected)
	}
	if e.motor.Pos != 20 {
		t.Fatal(e.motor.Pos)
	}
	if code := e.post(t, "mode/enable", &api.ModeEnableRequest{Enabled: false}, st); code != 200 {
		t.Fatal(code)
	}
	if code := e.post(t, "mode/select", &api.ModeSelectRequest{Slot: mode.Beamsplitter}, nil); code != http.StatusConflict {
		t.Fatal(code)
	}
	if code := e.post(t, "mode/enable", &api.ModeEnableRequest{Enabled: true}, st); code != 200 {
		t.Fatal(code)
	}
	if e.motor.Pos != 40 {
		t.Fatal(e.motor.Pos)
	}
	if code := e.post(t, "mode/home", &api.Empty{}, st); code != 200 {
		t.Fatal(code)
	}
	if st.Selected != nil || e.motor.Homed != 2 {
		t.Fatal(st.Selected, e.motor.Homed)
	}
}

func TestConfigSaveAndReload(t *testing.T) {
	e := newTestEnv(t)
	xs := stage.AxisRef{Stage: stage.Sample, Axis: stage.X}
	req := &api.SoftLimitsRequest{Mode: api.SoftInputted, Limits: map[stage.AxisRef]stage.Range{xs: {Min: -5, Max: 5}}}
	if code := e.post(t, "soft_limits", req, nil); code != 200 {
		t.Fatal(code)
	}
	if code := e.post(t, "mode/position", &api.ModePositionRequest{Slot: mode.Transmission, Position: 3}, nil); code != 200 {
		t.Fatal(code)
	}
	resp := &api.PathReply{}
	if code := e.post(t, "config/save", &api.PathRequest{}, resp); code != 200 {
		t.Fatal(code)
	}
	if resp.Path != e.config {
		t.Fatal(resp.Path)
	}
	d, err := config.Load(e.config)
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := d.Macros.Float("XSMAX_SOFT_LIMIT"); v != 5 {
		t.Fatal(v)
	}
	if v, _ := d.Macros.Float("TRANSMISSION_POSITION"); v != 3 {
		t.Fatal(v)
	}

	// Edit the file behind the server's back, then reload it.
	d.Macros["XSMAX_SOFT_LIMIT"] = 7.
	if err := d.Save(""); err != nil {
		t.Fatal(err)
	}
	if code := e.post(t, "config/load", &api.PathRequest{}, resp); code != 200 {
		t.Fatal(code)
	}
	if s := e.a.c.Limits.Soft(xs); s.Max != 7 {
		t.Fatal(s)
	}

	// A broken file is rejected and the current settings are kept.
	if err := ioutil.WriteFile(e.config, []byte("{"), 0600); err != nil {
		t.Fatal(err)
	}
	if code := e.post(t, "config/load", &api.PathRequest{}, nil); code != http.StatusBadRequest {
		t.Fatal(code)
	}
	if s := e.a.c.Limits.Soft(xs); s.Max != 7 {
		t.Fatal(s)
	}
}

func TestImageSave(t *testing.T) {
	e := newTestEnv(t)
	if code := e.post(t, "image/save", &api.PathRequest{}, nil); code != http.StatusServiceUnavailable {
		t.Fatal(code)
	}
	cam := cameratest.New()
	cam.Delay = 0
	f := camera.NewFrame(cam.Bounds())
	if err := cam.CaptureFrame(f); err != nil {
		t.Fatal(err)
	}
	e.a.web.AddImg(f)
	resp := &api.PathReply{}
	if code := e.post(t, "image/save", &api.PathRequest{EightBit: true}, resp); code != 200 {
		t.Fatal(code)
	}
	if _, err := os.Stat(resp.Path); err != nil {
		t.Fatal(err)
	}

	w := httptest.NewRecorder()
	e.h.ServeHTTP(w, httptest.NewRequest("GET", "/still16.png", nil))
	if w.Code != 200 || w.Header().Get("Content-Type") != "image/png" {
		t.Fatal(w.Code)
	}
}

func TestState(t *testing.T) {
	e := newTestEnv(t)
	e.a.c.Report(stage.Warning, "hello")
	w := httptest.NewRecorder()
	e.h.ServeHTTP(w, httptest.NewRequest("GET", "/api/microgui/v1/state", nil))
	if w.Code != 200 {
		t.Fatal(w.Code)
	}
	s := &api.State{}
	if err := json.NewDecoder(w.Body).Decode(s); err != nil {
		t.Fatal(err)
	}
	if len(s.Axes) != stage.NumAxes {
		t.Fatal(len(s.Axes))
	}
	if s.Config != e.config {
		t.Fatal(s.Config)
	}
	found := false
	for _, m := range s.Messages {
		if m.Text == "hello" {
			found = true
		}
	}
	if !found {
		t.Fatal(s.Messages)
	}

	w = httptest.NewRecorder()
	e.h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	if w.Code != 200 || !bytes.Contains(w.Body.Bytes(), []byte("/stream")) {
		t.Fatal(w.Code)
	}
}
