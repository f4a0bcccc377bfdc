// Copyright 2017 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package stage

import (
	"fmt"
	"math"
)

// PositionLabel formats a position in motor steps, or in micrometres when
// microns is true, rounded to 0.1.
func PositionLabel(steps, step2micron float64, microns bool) string {
	if !microns {
		return fmt.Sprintf("%.1f STEPS", round1(steps))
	}
	return fmt.Sprintf("%.1f MICRONS", round1(steps*step2micron))
}

func round1(v float64) float64 {
	r := math.Round(v*10) / 10
	if r == 0 {
		// Avoid "-0.0".
		return 0
	}
	return r
}
