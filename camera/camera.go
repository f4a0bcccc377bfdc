// Copyright 2017 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package camera captures frames from the thermal camera looking through
// the microscope.
package camera

import (
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/maruel/go-microgui/agc"
	"periph.io/x/periph/conn/physic"
)

// Frame is a captured image. Pixels hold the raw 14 bits sensor values.
type Frame struct {
	*image.Gray16
	Time  time.Time
	Count uint32             // Frame counter as reported by the camera.
	Temp  physic.Temperature // Sensor temperature, 0 if unknown.
}

// NewFrame allocates a Frame.
func NewFrame(r image.Rectangle) *Frame {
	return &Frame{Gray16: image.NewGray16(r)}
}

// Camera captures frames. This interface can be mocked.
type Camera interface {
	io.Closer

	Bounds() image.Rectangle     // Bounds returns the frame size.
	CaptureFrame(f *Frame) error // CaptureFrame blocks until the next frame is available.
}

// WritePNG encodes a frame. With eightBit, the dynamic range is reduced by
// automatic gain control, otherwise a 16 bits PNG is written.
func WritePNG(w io.Writer, f *Frame, eightBit bool) error {
	var img image.Image = f.Gray16
	if eightBit {
		img = agc.Linear(f.Gray16)
	}
	return png.Encode(w, img)
}

// SavePNG writes a frame to a file.
func SavePNG(path string, f *Frame, eightBit bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	o, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WritePNG(o, f, eightBit); err != nil {
		o.Close()
		return err
	}
	return o.Close()
}
