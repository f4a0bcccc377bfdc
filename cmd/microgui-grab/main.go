// Copyright 2017 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// microgui-grab captures a single image from the microscope camera.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os"

	"github.com/maruel/go-microgui/camera"
	"github.com/maruel/go-microgui/camera/cameratest"
	"periph.io/x/periph/conn/physic"
)

func mainImpl() error {
	i2cName := flag.String("i2c", "", "I²C bus to use")
	spiName := flag.String("spi", "", "SPI bus to use")
	i2cHz := flag.Int("i2chz", 0, "I²C bus speed")
	spiHz := flag.Int("spihz", 0, "SPI bus speed")
	agc := flag.Bool("agc", false, "Save a 8 bit PNG instead of the default 16 bits")
	meta := flag.Bool("meta", false, "print metadata")
	fake := flag.Bool("fake", false, "use a fake camera")
	verbose := flag.Bool("v", false, "verbose mode")
	flag.Parse()
	if !*verbose {
		log.SetOutput(ioutil.Discard)
	}
	log.SetFlags(log.Lmicroseconds)

	if flag.NArg() != 1 {
		return errors.New("supply path to PNG to save")
	}

	var cam camera.Camera
	if *fake {
		cam = cameratest.New()
	} else {
		l, err := camera.OpenLepton(&camera.LeptonOpts{
			SPI:   *spiName,
			I2C:   *i2cName,
			SPIHz: physic.Frequency(*spiHz) * physic.Hertz,
			I2CHz: physic.Frequency(*i2cHz) * physic.Hertz,
		})
		if err != nil {
			return err
		}
		log.Printf("camera: %s", l)
		cam = l
	}
	defer cam.Close()

	f := camera.NewFrame(cam.Bounds())
	if err := cam.CaptureFrame(f); err != nil {
		return err
	}
	if *meta {
		fmt.Printf("Time:       %s\n", f.Time)
		fmt.Printf("FrameCount: %d\n", f.Count)
		fmt.Printf("Temp:       %s\n", f.Temp)
		fmt.Printf("Bounds:     %s\n", f.Bounds())
	}
	return camera.SavePNG(flag.Args()[0], f, *agc)
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "\nmicrogui-grab: %s.\n", err)
		os.Exit(1)
	}
}
