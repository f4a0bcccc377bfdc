// Copyright 2015 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// package embeds the files in static/ into static_files_gen.go.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"go/format"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"
)

var tmpl = template.Must(template.New("tmpl").Parse(`// Automatically generated file. Do not edit!
// Generated with "go run package/main.go"

package main

var staticFiles = map[string]string{
{{range $key, $value := .}}	{{$key}}: {{$value}},
{{end}}}
`))

func load(root string) (map[string]string, error) {
	contents := map[string]string{}
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || strings.HasPrefix(info.Name(), ".") {
			return nil
		}
		data, err := ioutil.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		contents[strconv.Quote(filepath.ToSlash(rel))] = strconv.Quote(string(data))
		return nil
	})
	return contents, err
}

func mainImpl() error {
	in := flag.String("in", "static", "directory to embed")
	out := flag.String("out", "static_files_gen.go", "file to generate")
	flag.Parse()
	contents, err := load(*in)
	if err != nil {
		return err
	}
	var b bytes.Buffer
	if err := tmpl.Execute(&b, contents); err != nil {
		return err
	}
	src, err := format.Source(b.Bytes())
	if err != nil {
		return err
	}
	return ioutil.WriteFile(*out, src, 0644)
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "\npackage: %s.\n", err)
		os.Exit(1)
	}
}
