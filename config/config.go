// Copyright 2017 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package config loads and saves the microscope configuration.
//
// The configuration is a nested JSON document. Its leaves are flattened into
// Macros, a single level map keyed by leaf name, which is what the rest of
// the program reads and updates. Saving writes the updated leaves back into
// the nested document.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// ErrMissingKey is returned when a macro is not defined.
var ErrMissingKey = errors.New("config: missing key")

// ErrType is returned when a macro has an unexpected type.
var ErrType = errors.New("config: wrong type")

// Macros is the flattened view of a Document.
//
// Values are float64, string, bool or nil as decoded by encoding/json.
type Macros map[string]interface{}

// Float returns a numeric macro. Strings holding a number are accepted.
// NaN and infinities are rejected.
func (m Macros) Float(key string) (float64, error) {
	v, ok := m[key]
	if !ok {
		return 0, fmt.Errorf("%w %q", ErrMissingKey, key)
	}
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case int:
		f = float64(t)
	case json.Number:
		var err error
		if f, err = t.Float64(); err != nil {
			return 0, fmt.Errorf("%w: %q is %q, expected a number", ErrType, key, t)
		}
	case string:
		var err error
		if f, err = strconv.ParseFloat(t, 64); err != nil {
			return 0, fmt.Errorf("%w: %q is %q, expected a number", ErrType, key, t)
		}
	default:
		return 0, fmt.Errorf("%w: %q is %T, expected a number", ErrType, key, v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %q is %g, expected a finite number", ErrType, key, f)
	}
	return f, nil
}

// String returns a string macro, typically a process variable name.
func (m Macros) String(key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", fmt.Errorf("%w %q", ErrMissingKey, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %q is %T, expected a string", ErrType, key, v)
	}
	return s, nil
}

// Document is a loaded configuration file.
type Document struct {
	Path   string
	Data   map[string]interface{} // Nested representation as found on disk.
	Macros Macros                 // Flattened leaves of Data.
}

// Load reads and flattens a configuration file.
func Load(path string) (*Document, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(path, raw)
}

// Parse flattens an in-memory configuration. path is only kept for Save.
func Parse(path string, raw []byte) (*Document, error) {
	d := &Document{Path: path}
	if err := json.Unmarshal(raw, &d.Data); err != nil {
		return nil, fmt.Errorf("config: %s is invalid json: %w", path, err)
	}
	if d.Data == nil {
		d.Data = map[string]interface{}{}
	}
	d.Macros = Macros{}
	Flatten(d.Data, d.Macros)
	return d, nil
}

// Save condenses the macros back into the nested document and writes it to
// path. If path is empty, the document's own path is used.
func (d *Document) Save(path string) error {
	if path == "" {
		path = d.Path
	}
	Condense(d.Data, d.Macros)
	data, err := json.MarshalIndent(d.Data, "", "    ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if err := writeFile(path, data); err != nil {
		return err
	}
	d.Path = path
	return nil
}

// Flatten copies every leaf of nested into flat. Objects are descended into;
// anything else is a leaf. When two leaves share a name the one visited last
// wins; keys are visited in sorted order so the result is deterministic.
func Flatten(nested map[string]interface{}, flat Macros) {
	keys := make([]string, 0, len(nested))
	for k := range nested {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if sub, ok := nested[k].(map[string]interface{}); ok {
			Flatten(sub, flat)
			continue
		}
		flat[k] = nested[k]
	}
}

// Condense is the inverse of Flatten: every leaf of nested whose name is in
// flat is replaced by the flat value. Leaves that are not in flat are kept.
func Condense(nested map[string]interface{}, flat Macros) {
	for k, v := range nested {
		if sub, ok := v.(map[string]interface{}); ok {
			Condense(sub, flat)
			continue
		}
		if nv, ok := flat[k]; ok {
			nested[k] = nv
		}
	}
}

// writeFile writes atomically so a crash never leaves a truncated file.
func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	if err := ioutil.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// sameContent is used to skip rewriting unchanged files.
func sameContent(path string, data []byte) bool {
	old, err := ioutil.ReadFile(path)
	return err == nil && bytes.Equal(old, data)
}
