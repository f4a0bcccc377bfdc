// Copyright 2017 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// microgui-mode queries and drives the mode motor over its serial port.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"math"
	"os"

	"github.com/maruel/go-microgui/config"
	"github.com/maruel/go-microgui/mode"
	"github.com/maruel/go-microgui/mode/apt"
)

func mainImpl() error {
	port := flag.String("serial", "", "serial port of the mode motor")
	countsPerUnit := flag.Float64("counts-per-unit", apt.DefaultOpts.CountsPerUnit, "encoder counts per position unit")
	enable := flag.Bool("enable", false, "enable the motor")
	disable := flag.Bool("disable", false, "disable the motor")
	home := flag.Bool("home", false, "home the motor")
	move := flag.Float64("move", math.NaN(), "move to this position")
	slot := flag.String("slot", "", "move to this slot, as defined in -config")
	configPath := flag.String("config", "config.json", "configuration file defining the slot positions")
	verbose := flag.Bool("v", false, "verbose mode")
	flag.Parse()
	if !*verbose {
		log.SetOutput(ioutil.Discard)
	}
	log.SetFlags(log.Lmicroseconds)

	if len(flag.Args()) != 0 {
		return fmt.Errorf("unexpected argument: %s", flag.Args())
	}
	if *port == "" {
		return errors.New("-serial is required")
	}
	if *enable && *disable {
		return errors.New("use only one of -enable or -disable")
	}
	target := *move
	if *slot != "" {
		if !math.IsNaN(target) {
			return errors.New("use only one of -move or -slot")
		}
		s, err := mode.ParseSlot(*slot)
		if err != nil {
			return err
		}
		d, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		positions, err := mode.PositionsFromMacros(d.Macros)
		if err != nil {
			return err
		}
		target = positions[s]
	}

	opts := apt.DefaultOpts
	opts.CountsPerUnit = *countsPerUnit
	dev, err := apt.Open(*port, &opts)
	if err != nil {
		return err
	}
	defer dev.Close()
	info := dev.Info()
	fmt.Printf("Model:    %s\n", info.Model)
	fmt.Printf("Serial:   %d\n", info.Serial)
	fmt.Printf("Type:     %d\n", info.Type)
	fmt.Printf("Firmware: %s\n", info.Firmware)
	fmt.Printf("Channels: %d\n", info.Channels)
	if info.Notes != "" {
		fmt.Printf("Notes:    %s\n", info.Notes)
	}

	if *enable {
		if err := dev.Enable(); err != nil {
			return err
		}
	}
	if *disable {
		return dev.Disable()
	}
	if *home {
		if err := dev.Home(); err != nil {
			return err
		}
	}
	if !math.IsNaN(target) {
		if err := dev.MoveTo(target); err != nil {
			return err
		}
	}
	pos, err := dev.Position()
	if err != nil {
		return err
	}
	fmt.Printf("Position: %g\n", pos)
	return nil
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "\nmicrogui-mode: %s.\n", err)
		os.Exit(1)
	}
}
