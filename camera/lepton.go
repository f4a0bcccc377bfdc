// Copyright 2017 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package camera

import (
	"fmt"
	"image"
	"time"

	"periph.io/x/periph/conn/i2c"
	"periph.io/x/periph/conn/i2c/i2creg"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/conn/spi"
	"periph.io/x/periph/conn/spi/spireg"
	"periph.io/x/periph/devices/lepton"
	"periph.io/x/periph/devices/lepton/image14bit"
	"periph.io/x/periph/host"
)

// LeptonOpts selects the buses a FLIR Lepton is connected to.
type LeptonOpts struct {
	SPI   string // SPI port name, empty for the first one.
	I2C   string // I²C bus name, empty for the first one.
	SPIHz physic.Frequency
	I2CHz physic.Frequency
}

// Lepton is a FLIR Lepton camera.
type Lepton struct {
	spi spi.PortCloser
	i2c i2c.BusCloser
	dev *lepton.Dev
	buf lepton.Frame
}

// OpenLepton initializes the host drivers and opens the camera.
func OpenLepton(o *LeptonOpts) (*Lepton, error) {
	if o == nil {
		o = &LeptonOpts{}
	}
	if _, err := host.Init(); err != nil {
		return nil, err
	}
	s, err := spireg.Open(o.SPI)
	if err != nil {
		return nil, err
	}
	if o.SPIHz != 0 {
		if err := s.LimitSpeed(o.SPIHz); err != nil {
			s.Close()
			return nil, err
		}
	}
	b, err := i2creg.Open(o.I2C)
	if err != nil {
		s.Close()
		return nil, err
	}
	if o.I2CHz != 0 {
		if err := b.SetSpeed(o.I2CHz); err != nil {
			b.Close()
			s.Close()
			return nil, err
		}
	}
	dev, err := lepton.New(s, b)
	if err != nil {
		b.Close()
		s.Close()
		return nil, fmt.Errorf("%w\nIf testing without hardware, use -fake to simulate a camera", err)
	}
	l := &Lepton{spi: s, i2c: b, dev: dev}
	l.buf.Gray14 = image14bit.NewGray14(dev.Bounds())
	return l, nil
}

func (l *Lepton) String() string {
	return l.dev.String()
}

// Bounds implements Camera.
func (l *Lepton) Bounds() image.Rectangle {
	return l.dev.Bounds()
}

// CaptureFrame implements Camera.
func (l *Lepton) CaptureFrame(f *Frame) error {
	if err := l.dev.NextFrame(&l.buf); err != nil {
		return err
	}
	FromLepton(f, &l.buf)
	return nil
}

// Close implements Camera.
func (l *Lepton) Close() error {
	err := l.dev.Halt()
	if err2 := l.i2c.Close(); err == nil {
		err = err2
	}
	if err2 := l.spi.Close(); err == nil {
		err = err2
	}
	return err
}

// FromLepton converts a Lepton frame.
func FromLepton(dst *Frame, src *lepton.Frame) {
	b := src.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := uint16(src.Intensity14At(x, y))
			i := dst.PixOffset(x, y)
			dst.Pix[i] = uint8(v >> 8)
			dst.Pix[i+1] = uint8(v)
		}
	}
	dst.Time = time.Now()
	dst.Count = src.Metadata.FrameCount
	dst.Temp = src.Metadata.Temp
}

var _ Camera = &Lepton{}
