// Copyright 2017 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package apt drives a Thorlabs motor controller over its APT serial
// protocol.
//
// Only the handful of messages needed to position a single channel stage
// are implemented. Messages are little endian; a short message is a 6 bytes
// header, a long message is a 6 bytes header followed by a data packet.
package apt

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/maruel/go-microgui/mode"
	"github.com/tarm/serial"
)

// ErrNotFound is returned when the controller does not identify itself.
var ErrNotFound = errors.New("apt: no motor detected, ensure the device is connected")

// Message identifiers.
const (
	hwReqInfo            = 0x0005
	hwGetInfo            = 0x0006
	hwNoFlashProgramming = 0x0018
	modSetChanEnable     = 0x0210
	motReqPosCounter     = 0x0411
	motGetPosCounter     = 0x0412
	motMoveHome          = 0x0443
	motMoveAbsolute      = 0x0453
)

const (
	enableState  = 0x01
	disableState = 0x02
	longFlag     = 0x80
	// maxSkipped is the number of unsolicited messages ignored while
	// waiting for a reply.
	maxSkipped = 16
)

// Opts is the device configuration.
type Opts struct {
	Channel       uint16  // Channel identifier, 1 for single channel controllers.
	CountsPerUnit float64 // Encoder counts per position unit used by MoveTo.
	Dest          byte    // Destination module, 0x50 for a generic USB controller.
	Source        byte    // Source identifier, 0x01 for the host.
	Timeout       time.Duration
}

// DefaultOpts is the configuration for a single channel USB controller with
// positions expressed in encoder counts.
var DefaultOpts = Opts{
	Channel:       1,
	CountsPerUnit: 1,
	Dest:          0x50,
	Source:        0x01,
	Timeout:       time.Second,
}

// Info is the controller identification.
type Info struct {
	Serial   uint32
	Model    string
	Type     uint16
	Firmware string
	Notes    string
	Channels uint16
}

func (i *Info) String() string {
	return fmt.Sprintf("%s (serial %d, firmware %s, %d channel(s))", i.Model, i.Serial, i.Firmware, i.Channels)
}

// Dev is a motor controller.
type Dev struct {
	mu   sync.Mutex
	c    io.ReadWriteCloser
	opts Opts
	info Info
}

// Open opens the serial port and initializes the controller found on it.
func Open(port string, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	to := opts.Timeout
	if to == 0 {
		to = DefaultOpts.Timeout
	}
	p, err := serial.OpenPort(&serial.Config{Name: port, Baud: 115200, ReadTimeout: to})
	if err != nil {
		return nil, fmt.Errorf("apt: failed to open serial port %s: %w", port, err)
	}
	d, err := New(p, opts)
	if err != nil {
		p.Close()
		return nil, err
	}
	return d, nil
}

// New initializes the controller connected on c.
//
// The controller must reply to an identification request or ErrNotFound is
// returned.
func New(c io.ReadWriteCloser, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	d := &Dev{c: c, opts: *opts}
	if d.opts.CountsPerUnit == 0 {
		d.opts.CountsPerUnit = 1
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.writeShort(hwNoFlashProgramming, 0, 0); err != nil {
		return nil, err
	}
	if err := d.writeShort(hwReqInfo, 0, 0); err != nil {
		return nil, err
	}
	data, err := d.waitFor(hwGetInfo)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	if err := parseInfo(data, &d.info); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return d, nil
}

func (d *Dev) String() string {
	return "APT " + d.info.String()
}

// Info returns the identification read at initialization.
func (d *Dev) Info() Info {
	return d.info
}

// Enable implements mode.Motor.
func (d *Dev) Enable() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writeShort(modSetChanEnable, byte(d.opts.Channel), enableState)
}

// Disable implements mode.Motor.
func (d *Dev) Disable() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writeShort(modSetChanEnable, byte(d.opts.Channel), disableState)
}

// Home implements mode.Motor. It returns as soon as homing started.
func (d *Dev) Home() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writeShort(motMoveHome, byte(d.opts.Channel), 0)
}

// MoveTo implements mode.Motor. It returns as soon as the move started.
func (d *Dev) MoveTo(pos float64) error {
	counts := math.Round(pos * d.opts.CountsPerUnit)
	if counts > math.MaxInt32 || counts < math.MinInt32 {
		return fmt.Errorf("apt: position %g out of range", pos)
	}
	var data [6]byte
	binary.LittleEndian.PutUint16(data[0:], d.opts.Channel)
	binary.LittleEndian.PutUint32(data[2:], uint32(int32(counts)))
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writeLong(motMoveAbsolute, data[:])
}

// Position returns the current position.
func (d *Dev) Position() (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.writeShort(motReqPosCounter, byte(d.opts.Channel), 0); err != nil {
		return 0, err
	}
	data, err := d.waitFor(motGetPosCounter)
	if err != nil {
		return 0, err
	}
	if len(data) < 6 {
		return 0, fmt.Errorf("apt: short position reply (%d bytes)", len(data))
	}
	counts := int32(binary.LittleEndian.Uint32(data[2:]))
	return float64(counts) / d.opts.CountsPerUnit, nil
}

// Close closes the serial port.
func (d *Dev) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.c.Close()
}

//

func (d *Dev) writeShort(id uint16, p1, p2 byte) error {
	var b [6]byte
	binary.LittleEndian.PutUint16(b[0:], id)
	b[2] = p1
	b[3] = p2
	b[4] = d.opts.Dest
	b[5] = d.opts.Source
	_, err := d.c.Write(b[:])
	return wrap(err)
}

func (d *Dev) writeLong(id uint16, data []byte) error {
	b := make([]byte, 6+len(data))
	binary.LittleEndian.PutUint16(b[0:], id)
	binary.LittleEndian.PutUint16(b[2:], uint16(len(data)))
	b[4] = d.opts.Dest | longFlag
	b[5] = d.opts.Source
	copy(b[6:], data)
	_, err := d.c.Write(b)
	return wrap(err)
}

// waitFor reads messages until one with identifier id is received and
// returns its data packet.
func (d *Dev) waitFor(id uint16) ([]byte, error) {
	for i := 0; i < maxSkipped; i++ {
		got, data, err := d.read()
		if err != nil {
			return nil, err
		}
		if got == id {
			return data, nil
		}
	}
	return nil, fmt.Errorf("apt: no reply 0x%04x", id)
}

func (d *Dev) read() (uint16, []byte, error) {
	var h [6]byte
	if _, err := io.ReadFull(d.c, h[:]); err != nil {
		return 0, nil, wrap(err)
	}
	id := binary.LittleEndian.Uint16(h[0:])
	if h[4]&longFlag == 0 {
		return id, h[2:4], nil
	}
	data := make([]byte, binary.LittleEndian.Uint16(h[2:]))
	if _, err := io.ReadFull(d.c, data); err != nil {
		return 0, nil, wrap(err)
	}
	return id, data, nil
}

func parseInfo(data []byte, i *Info) error {
	if len(data) < 84 {
		return fmt.Errorf("apt: short info reply (%d bytes)", len(data))
	}
	i.Serial = binary.LittleEndian.Uint32(data[0:])
	i.Model = cString(data[4:12])
	i.Type = binary.LittleEndian.Uint16(data[12:])
	i.Firmware = fmt.Sprintf("%d.%d.%d", data[16], data[15], data[14])
	i.Notes = cString(data[18:66])
	i.Channels = binary.LittleEndian.Uint16(data[82:])
	return nil
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(bytes.TrimSpace(b))
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("apt: %w", err)
}

var _ mode.Motor = &Dev{}
