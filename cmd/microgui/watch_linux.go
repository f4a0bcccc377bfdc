// Copyright 2016 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/maruel/interrupt"
	fsnotify "gopkg.in/fsnotify.v1"
)

// watchFile calls reload every time fileName is modified, until interrupted.
//
// The directory is watched instead of the file so that editors replacing
// the file are handled.
func watchFile(fileName string, reload func(string) error) error {
	fi, err := os.Stat(fileName)
	if err != nil {
		return err
	}
	mod0 := fi.ModTime()
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err = watcher.Add(filepath.Dir(fileName)); err != nil {
		return err
	}
	clean := filepath.Clean(fileName)
	for {
		select {
		case <-interrupt.Channel:
			return nil
		case err = <-watcher.Errors:
			return err
		case e := <-watcher.Events:
			if filepath.Clean(e.Name) != clean {
				continue
			}
			if fi, err = os.Stat(fileName); err != nil || fi.ModTime().Equal(mod0) {
				continue
			}
			mod0 = fi.ModTime()
			log.Printf("%s changed", fileName)
			if err := reload(fileName); err != nil {
				log.Printf("reload: %v", err)
			}
		}
	}
}
