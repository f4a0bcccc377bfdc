// Copyright 2015 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"sync"

	"github.com/maruel/go-microgui/api"
	"github.com/maruel/go-microgui/camera"
	"github.com/maruel/go-microgui/config"
	"github.com/maruel/go-microgui/mode"
	"github.com/maruel/go-microgui/stage"
	"github.com/maruel/serve-dir/loghttp"
	"golang.org/x/net/websocket"
)

// app ties the stage, the mode selector and the camera stream to the web
// UI.
type app struct {
	c         *stage.Controller
	sel       *mode.Selector
	positions *stage.Positions
	web       *WebServer
	imageDir  string

	mu  sync.Mutex
	doc *config.Document
}

func newApp(c *stage.Controller, sel *mode.Selector, p *stage.Positions, doc *config.Document, imageDir string) *app {
	a := &app{c: c, sel: sel, positions: p, web: newWebServer(), imageDir: imageDir, doc: doc}
	a.web.hello = a.hello
	c.AddObserver(a.web)
	return a
}

// Close stops forwarding the stage events and disconnects every client.
func (a *app) Close() {
	a.c.RemoveObserver(a.web)
	a.web.Close()
}

// handler returns the HTTP handler of the whole UI.
func (a *app) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", a.web.root)
	mux.HandleFunc("/favicon.ico", a.web.still)
	mux.HandleFunc("/still.png", a.web.still)
	mux.HandleFunc("/still16.png", a.web.still16)
	mux.HandleFunc("/api/microgui/v1/state", a.stateHdlr)
	for name, f := range map[string]http.HandlerFunc{
		"increment":        a.incrementHdlr,
		"absolute":         a.absoluteHdlr,
		"continuous":       a.continuousHdlr,
		"stop":             a.stopHdlr,
		"stop_all":         a.stopAllHdlr,
		"soft_limits":      a.softLimitsHdlr,
		"zero":             a.zeroHdlr,
		"unzero":           a.unzeroHdlr,
		"zero_all":         a.zeroAllHdlr,
		"unzero_all":       a.unzeroAllHdlr,
		"step":             a.stepHdlr,
		"backlash":         a.backlashHdlr,
		"units":            a.unitsHdlr,
		"positions/save":   a.savePositionHdlr,
		"positions/load":   a.loadPositionHdlr,
		"positions/delete": a.deletePositionHdlr,
		"positions/clear":  a.clearPositionsHdlr,
		"mode/select":      a.modeSelectHdlr,
		"mode/position":    a.modePositionHdlr,
		"mode/enable":      a.modeEnableHdlr,
		"mode/home":        a.modeHomeHdlr,
		"config/save":      a.configSaveHdlr,
		"config/load":      a.configLoadHdlr,
		"image/save":       a.imageSaveHdlr,
	} {
		mux.HandleFunc("/api/microgui/v1/"+name, jsonAPI(f))
	}
	// The websocket bypasses the access log, which doesn't support Hijack.
	root := http.NewServeMux()
	root.Handle("/stream", websocket.Handler(a.web.stream))
	root.Handle("/", &loghttp.Handler{Handler: mux})
	return root
}

// hello returns the current state for a new websocket client.
func (a *app) hello() [][]byte {
	var out [][]byte
	add := func(kind byte, v interface{}) {
		if b, err := encodeEvent(kind, v); err == nil {
			out = append(out, b)
		}
	}
	for _, ax := range stage.All {
		s := a.c.Status(ax)
		add('S', &s)
	}
	s := a.sel.Status()
	add('O', &s)
	for _, m := range a.c.Messages() {
		add('L', &m)
	}
	return out
}

func (a *app) publishMode() {
	s := a.sel.Status()
	a.web.AddEvent('O', &s)
}

// reload reloads the configuration file and applies it.
func (a *app) reload(path string) error {
	d, err := config.Load(path)
	if err != nil {
		a.c.Report(stage.Error, "Configuration %s not loaded: %v", path, err)
		return err
	}
	return a.apply(d)
}

func (a *app) apply(d *config.Document) error {
	s, err := stage.SettingsFromMacros(d.Macros)
	if err != nil {
		a.c.Report(stage.Error, "Configuration %s not loaded: %v", d.Path, err)
		return err
	}
	slots, err := mode.PositionsFromMacros(d.Macros)
	if err != nil {
		a.c.Report(stage.Error, "Configuration %s not loaded: %v", d.Path, err)
		return err
	}
	a.mu.Lock()
	a.doc = d
	a.mu.Unlock()
	err = a.c.Reload(s)
	a.sel.Reload(slots)
	a.publishMode()
	return err
}

func (a *app) configPath() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.doc.Path
}

// Handlers.

func (a *app) stateHdlr(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		errorJSON(w, errors.New("Only GET is supported"), http.StatusMethodNotAllowed)
		return
	}
	s := &api.State{
		Mode:      a.sel.Status(),
		Positions: a.positions.Labels(),
		Messages:  a.c.Messages(),
		Config:    a.configPath(),
		Clients:   a.web.Clients(),
	}
	for _, ax := range stage.All {
		s.Axes = append(s.Axes, a.c.Status(ax))
	}
	returnJSON(w, s)
}

func (a *app) incrementHdlr(w http.ResponseWriter, r *http.Request) {
	req := &api.IncrementRequest{}
	if !decode(w, r, req) {
		return
	}
	d := stage.Negative
	switch req.Direction {
	case "N":
	case "P":
		d = stage.Positive
	default:
		errorJSON(w, fmt.Errorf("invalid direction %q", req.Direction), http.StatusBadRequest)
		return
	}
	step, err := a.c.Increment(req.Axis, d, req.Step)
	if err != nil {
		errorJSON(w, err, httpStatus(err))
		return
	}
	returnJSON(w, &api.IncrementReply{Step: step})
}

func (a *app) absoluteHdlr(w http.ResponseWriter, r *http.Request) {
	req := &api.AbsoluteRequest{}
	if !decode(w, r, req) {
		return
	}
	t, err := a.c.MoveAbsolute(req.Axis, req.Target)
	if err != nil {
		errorJSON(w, err, httpStatus(err))
		return
	}
	returnJSON(w, &api.AbsoluteReply{Target: t})
}

func (a *app) continuousHdlr(w http.ResponseWriter, r *http.Request) {
	req := &api.ContinuousRequest{}
	if !decode(w, r, req) {
		return
	}
	var m stage.Motion
	switch req.Motion {
	case "CN":
		m = stage.ContinuousNegative
	case "STOP":
		m = stage.Stop
	case "CP":
		m = stage.ContinuousPositive
	default:
		errorJSON(w, fmt.Errorf("invalid motion %q", req.Motion), http.StatusBadRequest)
		return
	}
	a.reply(w, a.c.Continuous(req.Axis, m))
}

func (a *app) stopHdlr(w http.ResponseWriter, r *http.Request) {
	req := &api.AxisRequest{}
	if !decode(w, r, req) {
		return
	}
	a.reply(w, a.c.Continuous(req.Axis, stage.Stop))
}

func (a *app) stopAllHdlr(w http.ResponseWriter, r *http.Request) {
	if !decode(w, r, &api.Empty{}) {
		return
	}
	a.reply(w, a.c.StopAll())
}

func (a *app) softLimitsHdlr(w http.ResponseWriter, r *http.Request) {
	req := &api.SoftLimitsRequest{}
	if !decode(w, r, req) {
		return
	}
	resp := &api.SoftLimitsReply{Rejected: map[stage.AxisRef]string{}}
	var err error
	switch req.Mode {
	case api.SoftInputted:
		for ax, err := range a.c.ApplySoftLimits(req.Limits) {
			resp.Rejected[ax] = err.Error()
		}
	case api.SoftZero:
		// An empty list selects every axis.
		err = a.c.SoftLimitsToZero(req.Axes...)
	case api.SoftHard:
		err = a.c.SoftLimitsToHard(req.Axes...)
	default:
		errorJSON(w, fmt.Errorf("invalid mode %q", req.Mode), http.StatusBadRequest)
		return
	}
	if err != nil {
		errorJSON(w, err, httpStatus(err))
		return
	}
	returnJSON(w, resp)
}

func (a *app) zeroHdlr(w http.ResponseWriter, r *http.Request) {
	req := &api.AxisRequest{}
	if !decode(w, r, req) {
		return
	}
	a.reply(w, a.c.Zero(req.Axis))
}

func (a *app) unzeroHdlr(w http.ResponseWriter, r *http.Request) {
	req := &api.AxisRequest{}
	if !decode(w, r, req) {
		return
	}
	a.reply(w, a.c.Unzero(req.Axis))
}

func (a *app) zeroAllHdlr(w http.ResponseWriter, r *http.Request) {
	if !decode(w, r, &api.Empty{}) {
		return
	}
	a.reply(w, a.c.ZeroAll())
}

func (a *app) unzeroAllHdlr(w http.ResponseWriter, r *http.Request) {
	if !decode(w, r, &api.Empty{}) {
		return
	}
	a.reply(w, a.c.UnzeroAll())
}

func (a *app) stepHdlr(w http.ResponseWriter, r *http.Request) {
	req := &api.StepRequest{}
	if !decode(w, r, req) {
		return
	}
	if !req.Axis.Valid() {
		errorJSON(w, fmt.Errorf("invalid axis %s", req.Axis), http.StatusBadRequest)
		return
	}
	returnJSON(w, &api.IncrementReply{Step: a.c.SetStep(req.Axis, req.Step)})
}

func (a *app) backlashHdlr(w http.ResponseWriter, r *http.Request) {
	req := &api.BacklashRequest{}
	if !decode(w, r, req) {
		return
	}
	a.reply(w, a.c.SetBacklash(req.Backlash))
}

func (a *app) unitsHdlr(w http.ResponseWriter, r *http.Request) {
	req := &api.UnitsRequest{}
	if !decode(w, r, req) {
		return
	}
	a.c.UseMicrons(req.Microns)
	returnJSON(w, &api.Empty{})
}

func (a *app) savePositionHdlr(w http.ResponseWriter, r *http.Request) {
	req := &api.PositionRequest{}
	if !decode(w, r, req) {
		return
	}
	a.replyPositions(w, a.c.SavePosition(a.positions, req.Label))
}

func (a *app) loadPositionHdlr(w http.ResponseWriter, r *http.Request) {
	req := &api.PositionRequest{}
	if !decode(w, r, req) {
		return
	}
	a.replyPositions(w, a.c.LoadPosition(a.positions, req.Label))
}

func (a *app) deletePositionHdlr(w http.ResponseWriter, r *http.Request) {
	req := &api.PositionRequest{}
	if !decode(w, r, req) {
		return
	}
	err := a.positions.Delete(req.Label)
	if err != nil {
		a.c.Report(stage.Error, "Position %q not deleted: %v", req.Label, err)
	} else {
		a.c.Report(stage.Info, "Deleted position %q.", req.Label)
	}
	a.replyPositions(w, err)
}

func (a *app) clearPositionsHdlr(w http.ResponseWriter, r *http.Request) {
	if !decode(w, r, &api.Empty{}) {
		return
	}
	err := a.positions.Clear()
	if err != nil {
		a.c.Report(stage.Error, "Positions not cleared: %v", err)
	} else {
		a.c.Report(stage.Info, "Cleared all saved positions.")
	}
	a.replyPositions(w, err)
}

func (a *app) modeSelectHdlr(w http.ResponseWriter, r *http.Request) {
	req := &api.ModeSelectRequest{}
	if !decode(w, r, req) {
		return
	}
	err := a.sel.Select(req.Slot)
	if err != nil {
		a.c.Report(stage.Error, "Could not move to %s: %v", req.Slot, err)
	}
	a.replyMode(w, err)
}

func (a *app) modePositionHdlr(w http.ResponseWriter, r *http.Request) {
	req := &api.ModePositionRequest{}
	if !decode(w, r, req) {
		return
	}
	err := a.sel.SetPosition(req.Slot, req.Position)
	if err != nil {
		a.c.Report(stage.Error, "Could not move to %s: %v", req.Slot, err)
	}
	a.replyMode(w, err)
}

func (a *app) modeEnableHdlr(w http.ResponseWriter, r *http.Request) {
	req := &api.ModeEnableRequest{}
	if !decode(w, r, req) {
		return
	}
	err := a.sel.SetEnabled(req.Enabled)
	if err != nil {
		a.c.Report(stage.Error, "Mode motor: %v", err)
	}
	a.replyMode(w, err)
}

func (a *app) modeHomeHdlr(w http.ResponseWriter, r *http.Request) {
	if !decode(w, r, &api.Empty{}) {
		return
	}
	err := a.sel.Home()
	if err != nil {
		a.c.Report(stage.Error, "Could not home the mode motor: %v", err)
	}
	a.replyMode(w, err)
}

func (a *app) configSaveHdlr(w http.ResponseWriter, r *http.Request) {
	req := &api.PathRequest{}
	if !decode(w, r, req) {
		return
	}
	a.mu.Lock()
	a.c.UpdateMacros(a.doc.Macros)
	a.sel.UpdateMacros(a.doc.Macros)
	err := a.doc.Save(req.Path)
	p := a.doc.Path
	a.mu.Unlock()
	if err != nil {
		a.c.Report(stage.Error, "Configuration not saved: %v", err)
		errorJSON(w, err, http.StatusInternalServerError)
		return
	}
	a.c.Report(stage.Info, "Configuration saved to %s.", p)
	returnJSON(w, &api.PathReply{Path: p})
}

func (a *app) configLoadHdlr(w http.ResponseWriter, r *http.Request) {
	req := &api.PathRequest{}
	if !decode(w, r, req) {
		return
	}
	p := req.Path
	if p == "" {
		p = a.configPath()
	}
	if err := a.reload(p); err != nil {
		errorJSON(w, err, http.StatusBadRequest)
		return
	}
	returnJSON(w, &api.PathReply{Path: p})
}

func (a *app) imageSaveHdlr(w http.ResponseWriter, r *http.Request) {
	req := &api.PathRequest{}
	if !decode(w, r, req) {
		return
	}
	img := a.web.Last()
	if img == nil {
		errorJSON(w, errors.New("no image captured yet"), http.StatusServiceUnavailable)
		return
	}
	p := req.Path
	if p == "" {
		p = filepath.Join(a.imageDir, img.Time.Format("20060102-150405.000")+".png")
	}
	if err := camera.SavePNG(p, img, req.EightBit); err != nil {
		a.c.Report(stage.Error, "Image not saved: %v", err)
		errorJSON(w, err, http.StatusInternalServerError)
		return
	}
	a.c.Report(stage.Info, "Image saved to %s.", p)
	returnJSON(w, &api.PathReply{Path: p})
}

func (a *app) reply(w http.ResponseWriter, err error) {
	if err != nil {
		errorJSON(w, err, httpStatus(err))
		return
	}
	returnJSON(w, &api.Empty{})
}

func (a *app) replyPositions(w http.ResponseWriter, err error) {
	if err != nil {
		errorJSON(w, err, httpStatus(err))
		return
	}
	returnJSON(w, &api.PositionsReply{Labels: a.positions.Labels()})
}

func (a *app) replyMode(w http.ResponseWriter, err error) {
	a.publishMode()
	if err != nil {
		errorJSON(w, err, httpStatus(err))
		return
	}
	returnJSON(w, a.sel.Status())
}

// Private details.

func returnJSON(w http.ResponseWriter, ret interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(ret); err != nil {
		panic(err)
	}
}

func errorJSON(w http.ResponseWriter, err error, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	ret := &api.Error{Error: err.Error()}
	if err := json.NewEncoder(w).Encode(ret); err != nil {
		panic(err)
	}
}

func jsonAPI(f http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			errorJSON(w, errors.New("Only POST is supported"), http.StatusMethodNotAllowed)
			return
		}
		ct, ok := r.Header["Content-Type"]
		if !ok || len(ct) != 1 || ct[0] != "application/json" {
			errorJSON(w, errors.New("Requires Content-Type: application/json"), http.StatusBadRequest)
			return
		}
		f(w, r)
	}
}

// decode reads the request body into req. It replies and returns false on
// failure.
func decode(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		errorJSON(w, err, http.StatusBadRequest)
		return false
	}
	return true
}

func httpStatus(err error) int {
	switch {
	case errors.Is(err, stage.ErrUnknownLabel):
		return http.StatusNotFound
	case errors.Is(err, stage.ErrInvalidLimits), errors.Is(err, stage.ErrDuplicateLabel), errors.Is(err, stage.ErrInvalidLabel), errors.Is(err, stage.ErrInvalidAxis), errors.Is(err, stage.ErrNotFinite):
		return http.StatusBadRequest
	case errors.Is(err, mode.ErrDisabled):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
