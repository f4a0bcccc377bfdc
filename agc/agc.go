// Copyright 2017 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package agc implements automatic gain control to display 14 bits thermal
// images on 8 bits.
package agc

import (
	"image"
)

// Min returns the smallest value in the image, 65535 for an empty one.
func Min(src *image.Gray16) uint16 {
	m := uint16(0xFFFF)
	b := src.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if v := src.Gray16At(x, y).Y; v < m {
				m = v
			}
		}
	}
	return m
}

// Max returns the largest value in the image.
func Max(src *image.Gray16) uint16 {
	m := uint16(0)
	b := src.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if v := src.Gray16At(x, y).Y; v > m {
				m = v
			}
		}
	}
	return m
}

// Linear reduces the dynamic range down to 8 bits very naively, without
// gamma: the minimum value maps to 0 and the maximum to 255.
func Linear(src *image.Gray16) *image.Gray {
	dst := image.NewGray(src.Bounds())
	LinearInto(dst, src)
	return dst
}

// LinearInto is Linear into a preallocated image of the same bounds.
func LinearInto(dst *image.Gray, src *image.Gray16) {
	floor := Min(src)
	delta := int(Max(src)) - int(floor)
	b := src.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := 0
			if delta != 0 {
				v = (int(src.Gray16At(x, y).Y) - int(floor)) * 255 / delta
			}
			dst.Pix[dst.PixOffset(x, y)] = uint8(v)
		}
	}
}
