// Copyright 2015 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package cameratest implements a fake thermal camera.
package cameratest

import (
	"image"
	"math/rand"
	"sync"
	"time"

	"github.com/maruel/go-microgui/camera"
	"periph.io/x/periph/conn/physic"
)

// Camera is a fake camera.Camera rendering slowly drifting blobs.
type Camera struct {
	// Delay is the time taken by CaptureFrame, ~9Hz by default.
	Delay time.Duration

	mu     sync.Mutex
	noise  *noise
	count  uint32
	bounds image.Rectangle
	closed bool
}

// New returns a fake 80x60 camera.
func New() *Camera {
	return &Camera{Delay: 111 * time.Millisecond, noise: makeNoise(), bounds: image.Rect(0, 0, 80, 60)}
}

// Bounds implements camera.Camera.
func (c *Camera) Bounds() image.Rectangle {
	return c.bounds
}

// CaptureFrame implements camera.Camera.
func (c *Camera) CaptureFrame(f *camera.Frame) error {
	time.Sleep(c.Delay)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
	c.noise.update()
	c.noise.render(f, c.bounds)
	f.Time = time.Now()
	f.Count = c.count
	f.Temp = physic.ZeroCelsius + 30*physic.Celsius
	return nil
}

// Close implements camera.Camera.
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *Camera) String() string {
	return "fake camera"
}

//

type vector struct {
	intensity float64
	x         float64
	y         float64
}

// noise is cheezy but gets us going for testing without a device.
type noise struct {
	rand    *rand.Rand
	vectors []vector
}

func makeNoise() *noise {
	n := &noise{rand: rand.New(rand.NewSource(0))}
	n.vectors = make([]vector, 10)
	for i := range n.vectors {
		n.vectors[i].intensity = n.rand.NormFloat64() * 10
		n.vectors[i].x = n.rand.NormFloat64()*14 + 40
		n.vectors[i].y = n.rand.NormFloat64()*10 + 30
	}
	return n
}

func (n *noise) update() {
	for i := range n.vectors {
		n.vectors[i].intensity += n.rand.NormFloat64() * 0.1
		n.vectors[i].x += n.rand.NormFloat64() * 0.1
		n.vectors[i].y += n.rand.NormFloat64() * 0.1
	}
}

func (n *noise) render(f *camera.Frame, r image.Rectangle) {
	const base = 8192
	const dynamicRange = 128
	for y := r.Min.Y; y < r.Max.Y; y++ {
		fy := float64(y)
		for x := r.Min.X; x < r.Max.X; x++ {
			fx := float64(x)
			value := float64(base)
			for _, vect := range n.vectors {
				distance := (vect.x-fx)*(vect.x-fx) + (vect.y-fy)*(vect.y-fy)
				if distance != 0 {
					value += vect.intensity / distance
				}
			}
			if value >= base+dynamicRange {
				value = base + dynamicRange
			}
			if value < base-dynamicRange {
				value = base - dynamicRange
			}
			v := uint16(value)
			i := f.PixOffset(x, y)
			f.Pix[i] = uint8(v >> 8)
			f.Pix[i+1] = uint8(v)
		}
	}
}

var _ camera.Camera = &Camera{}
