// Copyright 2015 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package api defines the JSON requests and replies of the microgui web
// server.
//
// Every request is a POST with Content-Type application/json to
// /api/microgui/v1/<name>. Errors are returned as {"error": "..."} with a
// non 200 status.
package api

import (
	"time"

	"github.com/maruel/go-microgui/mode"
	"github.com/maruel/go-microgui/stage"
)

// IncrementRequest is sent to /increment.
type IncrementRequest struct {
	Axis      stage.AxisRef `json:"axis"`
	Direction string        `json:"direction"` // "N" or "P".
	Step      float64       `json:"step"`
}

// IncrementReply is the reply of /increment.
type IncrementReply struct {
	Step float64 `json:"step"` // Dispatched step, after truncation.
}

// AbsoluteRequest is sent to /absolute. Target is in display coordinates.
type AbsoluteRequest struct {
	Axis   stage.AxisRef `json:"axis"`
	Target float64       `json:"target"`
}

// AbsoluteReply is the reply of /absolute.
type AbsoluteReply struct {
	Target float64 `json:"target"` // Dispatched actual target, after clamping.
}

// ContinuousRequest is sent to /continuous.
type ContinuousRequest struct {
	Axis   stage.AxisRef `json:"axis"`
	Motion string        `json:"motion"` // "CN", "STOP" or "CP".
}

// Soft limits update modes.
const (
	SoftInputted = "inputted"
	SoftZero     = "zero"
	SoftHard     = "hard"
)

// SoftLimitsRequest is sent to /soft_limits.
//
// With SoftInputted, Limits are in display coordinates. With SoftZero and
// SoftHard, Axes lists the axes to update, all of them when empty.
type SoftLimitsRequest struct {
	Mode   string                        `json:"mode"`
	Limits map[stage.AxisRef]stage.Range `json:"limits"`
	Axes   []stage.AxisRef               `json:"axes"`
}

// SoftLimitsReply is the reply of /soft_limits. Rejected lists the axes
// that were not updated.
type SoftLimitsReply struct {
	Rejected map[stage.AxisRef]string `json:"rejected"`
}

// AxisRequest is sent to /zero, /unzero and /stop.
type AxisRequest struct {
	Axis stage.AxisRef `json:"axis"`
}

// StepRequest is sent to /step.
type StepRequest struct {
	Axis stage.AxisRef `json:"axis"`
	Step float64       `json:"step"`
}

// BacklashRequest is sent to /backlash.
type BacklashRequest struct {
	Backlash map[stage.AxisRef]float64 `json:"backlash"`
}

// UnitsRequest is sent to /units.
type UnitsRequest struct {
	Microns bool `json:"microns"`
}

// PositionRequest is sent to /positions/save, /positions/load and
// /positions/delete.
type PositionRequest struct {
	Label string `json:"label"`
}

// PositionsReply is the reply of the /positions/* requests.
type PositionsReply struct {
	Labels []string `json:"labels"`
}

// ModeSelectRequest is sent to /mode/select.
type ModeSelectRequest struct {
	Slot mode.Slot `json:"slot"`
}

// ModePositionRequest is sent to /mode/position.
type ModePositionRequest struct {
	Slot     mode.Slot `json:"slot"`
	Position float64   `json:"position"`
}

// ModeEnableRequest is sent to /mode/enable.
type ModeEnableRequest struct {
	Enabled bool `json:"enabled"`
}

// PathRequest is sent to /config/save, /config/load and /image/save. An
// empty path means the current configuration file, or a timestamped file
// for images.
type PathRequest struct {
	Path     string `json:"path"`
	EightBit bool   `json:"eight_bit"`
}

// PathReply returns the file that was used.
type PathReply struct {
	Path string `json:"path"`
}

// State is returned by GET /api/microgui/v1/state.
type State struct {
	Axes      []stage.AxisStatus `json:"axes"`
	Mode      mode.Status        `json:"mode"`
	Positions []string           `json:"positions"`
	Messages  []stage.Message    `json:"messages"`
	Config    string             `json:"config"`
	Clients   []Client           `json:"clients"`
}

// Client is a browser connected to the event stream.
type Client struct {
	ID     string    `json:"id"`
	Remote string    `json:"remote"`
	Since  time.Time `json:"since"`
}

// Error is returned on failure.
type Error struct {
	Error string `json:"error"`
}

// Empty is the reply of requests returning nothing.
type Empty struct{}
