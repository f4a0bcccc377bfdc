// Copyright 2015 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// microgui serves the web UI controlling the microscope stages, the mode
// motor and the thermal camera.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"time"

	"github.com/maruel/go-microgui/camera"
	"github.com/maruel/go-microgui/camera/cameratest"
	"github.com/maruel/go-microgui/config"
	"github.com/maruel/go-microgui/mode"
	"github.com/maruel/go-microgui/mode/apt"
	"github.com/maruel/go-microgui/mode/modetest"
	"github.com/maruel/go-microgui/pv/pvsim"
	"github.com/maruel/go-microgui/stage"
	"github.com/maruel/interrupt"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/host"
)

// motor is the mode motor with its connection.
type motor interface {
	mode.Motor
	io.Closer
}

func openMotor(fake bool, port string, countsPerUnit float64) (motor, error) {
	if fake {
		return &modetest.Motor{}, nil
	}
	if port == "" {
		return nil, errors.New("-serial is required to drive the mode motor, use -fake to simulate it")
	}
	opts := apt.DefaultOpts
	opts.CountsPerUnit = countsPerUnit
	d, err := apt.Open(port, &opts)
	if err != nil {
		return nil, err
	}
	log.Printf("mode motor: %s", d)
	return d, nil
}

func openCamera(fake bool, o *camera.LeptonOpts) (camera.Camera, error) {
	if fake {
		return cameratest.New(), nil
	}
	l, err := camera.OpenLepton(o)
	if err != nil {
		return nil, err
	}
	log.Printf("camera: %s", l)
	return l, nil
}

// newBackend returns the simulated motion controller with one motor per
// axis spanning its hard limits.
func newBackend(s *stage.Settings) *pvsim.Sim {
	sim := pvsim.New()
	for _, a := range stage.All {
		h := s.Hard[a]
		sim.AddMotor(*s.Keys.Get(a), h.Min, h.Max)
	}
	return sim
}

// capture keeps the camera busy and sends every frame to the web server.
func capture(cam camera.Camera, w *WebServer) {
	for !interrupt.IsSet() {
		f := camera.NewFrame(cam.Bounds())
		if err := cam.CaptureFrame(f); err != nil {
			log.Printf("capture: %v", err)
			time.Sleep(time.Second)
			continue
		}
		w.AddImg(f)
	}
}

// watchStopPin stops every axis each time the button on pin is pressed.
func watchStopPin(p gpio.PinIO, c *stage.Controller) {
	for !interrupt.IsSet() {
		if !p.WaitForEdge(time.Second) {
			continue
		}
		c.Report(stage.Warning, "Stop button pressed.")
		c.StopAll()
	}
}

func mainImpl() error {
	cpuprofile := flag.String("cpuprofile", "", "dump CPU profile in file")
	port := flag.Int("port", 8010, "http port to listen on")
	configPath := flag.String("config", "config.json", "configuration file; it is reloaded when modified")
	positionsPath := flag.String("positions", config.DefaultPositionsFile, "saved positions file")
	imageDir := flag.String("images", "images", "directory where images are saved")
	sim := flag.Bool("sim", true, "simulate the motion controller")
	fake := flag.Bool("fake", false, "use a fake camera and a fake mode motor")
	serialPort := flag.String("serial", "", "serial port of the mode motor")
	countsPerUnit := flag.Float64("counts-per-unit", apt.DefaultOpts.CountsPerUnit, "mode motor encoder counts per position unit")
	i2cName := flag.String("i2c", "", "I²C bus to use")
	spiName := flag.String("spi", "", "SPI bus to use")
	i2cHz := flag.Int("i2chz", 0, "I²C bus speed")
	spiHz := flag.Int("spihz", 0, "SPI bus speed")
	stopPin := flag.String("stop-pin", "", "GPIO pin of a push button stopping every axis")
	verbose := flag.Bool("v", false, "verbose mode")
	flag.Parse()
	if !*verbose {
		log.SetOutput(ioutil.Discard)
	}
	log.SetFlags(log.Lmicroseconds)

	if len(flag.Args()) != 0 {
		return fmt.Errorf("unexpected argument: %s", flag.Args())
	}
	if !*sim {
		return errors.New("only the simulated motion controller is supported, use -sim")
	}

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			return err
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	interrupt.HandleCtrlC()

	doc, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	settings, err := stage.SettingsFromMacros(doc.Macros)
	if err != nil {
		return err
	}
	slots, err := mode.PositionsFromMacros(doc.Macros)
	if err != nil {
		return err
	}
	backend := newBackend(settings)
	defer backend.Close()
	c, err := stage.New(backend, settings)
	if err != nil {
		return err
	}
	stop := make(chan struct{})
	go func() {
		<-interrupt.Channel
		close(stop)
	}()
	go c.Serve(stop)
	defer c.StopAll()

	positions, err := stage.OpenPositions(*positionsPath)
	if err != nil {
		return err
	}

	m, err := openMotor(*fake, *serialPort, *countsPerUnit)
	if err != nil {
		return err
	}
	defer m.Close()
	sel, err := mode.NewSelector(m, slots)
	if err != nil {
		return err
	}

	cam, err := openCamera(*fake, &camera.LeptonOpts{
		SPI:   *spiName,
		I2C:   *i2cName,
		SPIHz: physic.Frequency(*spiHz) * physic.Hertz,
		I2CHz: physic.Frequency(*i2cHz) * physic.Hertz,
	})
	if err != nil {
		return err
	}
	defer cam.Close()

	if *stopPin != "" {
		if _, err := host.Init(); err != nil {
			return err
		}
		p := gpioreg.ByName(*stopPin)
		if p == nil {
			return fmt.Errorf("unknown pin %q", *stopPin)
		}
		if err := p.In(gpio.PullUp, gpio.FallingEdge); err != nil {
			return err
		}
		go watchStopPin(p, c)
	}

	a := newApp(c, sel, positions, doc, *imageDir)
	defer a.Close()
	go capture(cam, a.web)
	go func() {
		if err := watchFile(*configPath, a.reload); err != nil {
			log.Printf("watch: %v", err)
		}
	}()

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", *port))
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: a.handler()}
	go srv.Serve(ln)
	defer srv.Close()
	fmt.Printf("Listening on %d\n", *port)
	c.Report(stage.Info, "Started.")

	<-interrupt.Channel
	fmt.Print("\n")
	return nil
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "\nmicrogui: %s.\n", err)
		os.Exit(1)
	}
}
