// Copyright 2017 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package config

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
)

// DefaultPositionsFile is the side file holding saved positions.
const DefaultPositionsFile = "saved_positions.json"

// Positions maps a position label to the absolute position of each axis,
// keyed by axis name ("XS", "ZO", ...).
type Positions map[string]map[string]float64

// LoadPositions reads the saved positions file. A missing file is not an
// error and returns an empty set.
func LoadPositions(path string) (Positions, error) {
	raw, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		return Positions{}, nil
	}
	if err != nil {
		return nil, err
	}
	p := Positions{}
	if len(raw) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("config: %s is invalid json: %w", path, err)
	}
	return p, nil
}

// SavePositions writes the saved positions file. The file is not touched if
// its content would not change.
func SavePositions(path string, p Positions) error {
	if p == nil {
		p = Positions{}
	}
	data, err := json.MarshalIndent(p, "", "    ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if sameContent(path, data) {
		return nil
	}
	return writeFile(path, data)
}
