// Copyright 2015 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// +build debug

package main

import (
	"io/ioutil"
	"path/filepath"
	"runtime"
)

// read serves the files from the source tree, to iterate on the UI without
// regenerating static_files_gen.go.
func read(name string) []byte {
	_, file, _, _ := runtime.Caller(0)
	content, err := ioutil.ReadFile(filepath.Join(filepath.Dir(file), "static", name))
	if err != nil {
		panic(err)
	}
	return content
}
