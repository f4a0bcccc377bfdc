// Copyright 2015 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

// Packages the static files in a .go file.
//go:generate go run package/main.go

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image/png"
	"log"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/maruel/go-microgui/agc"
	"github.com/maruel/go-microgui/api"
	"github.com/maruel/go-microgui/camera"
	"github.com/maruel/go-microgui/stage"
	"golang.org/x/net/websocket"
	"periph.io/x/periph/conn/physic"
)

// WebServer keeps the recent camera frames and the stage events and streams
// them to the connected browsers.
//
// Each websocket frame starts with one letter:
//   I: base64 encoded 8 bits PNG of a camera frame.
//   M: JSON metadata of the frame that was just sent.
//   S: JSON stage.AxisStatus.
//   L: JSON stage.Message.
//   O: JSON mode.Status.
type WebServer struct {
	// hello returns the frames sent to a client as soon as it connects.
	hello func() [][]byte

	cond      sync.Cond
	closed    bool
	images    [9 * 10]*camera.Frame // 10 seconds worth of images.
	lastIndex int                   // Index of the most recent image.
	imgSeq    int                   // Number of images ever added.
	events    [256][]byte
	eventSeq  int // Number of events ever added.
	clients   map[uuid.UUID]api.Client
}

// frameMetadata is sent in M frames.
type frameMetadata struct {
	Count uint32    `json:"count"`
	Time  time.Time `json:"time"`
	TempC float64   `json:"temp_c"`
	Min   uint16    `json:"min"`
	Max   uint16    `json:"max"`
}

func newWebServer() *WebServer {
	return &WebServer{
		cond:      *sync.NewCond(&sync.Mutex{}),
		lastIndex: -1,
		clients:   map[uuid.UUID]api.Client{},
	}
}

// Clients returns the connected clients, oldest first.
func (s *WebServer) Clients() []api.Client {
	s.cond.L.Lock()
	out := make([]api.Client, 0, len(s.clients))
	for _, c := range s.clients {
		out = append(out, c)
	}
	s.cond.L.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Since.Equal(out[j].Since) {
			return out[i].Since.Before(out[j].Since)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// AddImg records a new frame. The frame must not be modified afterward.
func (s *WebServer) AddImg(img *camera.Frame) {
	s.cond.L.Lock()
	defer s.cond.L.Unlock()
	s.lastIndex = (s.lastIndex + 1) % len(s.images)
	s.images[s.lastIndex] = img
	s.imgSeq++
	s.cond.Broadcast()
}

// Last returns the most recent frame, nil if none was captured yet.
func (s *WebServer) Last() *camera.Frame {
	s.cond.L.Lock()
	defer s.cond.L.Unlock()
	if s.lastIndex == -1 {
		return nil
	}
	return s.images[s.lastIndex]
}

// AddEvent queues a JSON event for every client.
func (s *WebServer) AddEvent(kind byte, v interface{}) {
	b, err := encodeEvent(kind, v)
	if err != nil {
		log.Printf("event %c: %v", kind, err)
		return
	}
	s.cond.L.Lock()
	defer s.cond.L.Unlock()
	s.events[s.eventSeq%len(s.events)] = b
	s.eventSeq++
	s.cond.Broadcast()
}

// OnStatus implements stage.Observer.
func (s *WebServer) OnStatus(st stage.AxisStatus) {
	s.AddEvent('S', &st)
}

// OnMessage implements stage.Observer.
func (s *WebServer) OnMessage(m stage.Message) {
	s.AddEvent('L', &m)
}

// Close disconnects every client.
func (s *WebServer) Close() {
	s.cond.L.Lock()
	defer s.cond.L.Unlock()
	s.closed = true
	s.cond.Broadcast()
}

func (s *WebServer) root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	if _, err := w.Write(read("root.html")); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *WebServer) still(w http.ResponseWriter, r *http.Request) {
	s.writeStill(w, true)
}

func (s *WebServer) still16(w http.ResponseWriter, r *http.Request) {
	s.writeStill(w, false)
}

func (s *WebServer) writeStill(w http.ResponseWriter, eightBit bool) {
	img := s.Last()
	if img == nil {
		http.Error(w, "No image yet", http.StatusServiceUnavailable)
		return
	}
	var b bytes.Buffer
	if err := camera.WritePNG(&b, img, eightBit); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	w.Write(b.Bytes())
}

// stream sends the events and the most recent image as WebSocket frames.
func (s *WebServer) stream(w *websocket.Conn) {
	id := uuid.New()
	remote := w.Request().RemoteAddr
	log.Printf("websocket %s from %s", id, remote)
	defer func() {
		w.Close()
		s.cond.L.Lock()
		delete(s.clients, id)
		s.cond.L.Unlock()
		log.Printf("websocket %s closed", id)
	}()
	// Events added while the hello frames are sent are sent again
	// afterward.
	s.cond.L.Lock()
	s.clients[id] = api.Client{ID: id.String(), Remote: remote, Since: time.Now()}
	evSeq := s.eventSeq
	s.cond.L.Unlock()
	if s.hello != nil {
		for _, b := range s.hello() {
			if _, err := w.Write(b); err != nil {
				log.Printf("websocket %s err: %s", id, err)
				return
			}
		}
	}
	s.cond.L.Lock()
	defer s.cond.L.Unlock()
	imgSeq := s.imgSeq - 1
	var pending [][]byte
	for {
		for !s.closed && imgSeq == s.imgSeq && evSeq == s.eventSeq {
			s.cond.Wait()
		}
		if s.closed {
			return
		}
		if oldest := s.eventSeq - len(s.events); evSeq < oldest {
			log.Printf("websocket %s skipped %d events", id, oldest-evSeq)
			evSeq = oldest
		}
		pending = pending[:0]
		for ; evSeq < s.eventSeq; evSeq++ {
			pending = append(pending, s.events[evSeq%len(s.events)])
		}
		var img *camera.Frame
		if imgSeq != s.imgSeq && s.lastIndex != -1 {
			img = s.images[s.lastIndex]
		}
		imgSeq = s.imgSeq
		s.cond.L.Unlock()
		// Do the actual I/O without the lock.
		var err error
		for _, b := range pending {
			if _, err = w.Write(b); err != nil {
				break
			}
		}
		if err == nil && img != nil {
			err = writeImg(w, img)
		}
		s.cond.L.Lock()
		// To break out of the loop, the lock must be held.
		if err != nil {
			log.Printf("websocket %s err: %s", id, err)
			return
		}
	}
}

// writeImg sends an I frame followed by its M frame.
func writeImg(w *websocket.Conn, img *camera.Frame) error {
	buf := &bytes.Buffer{}
	// Frame I is for Image.
	buf.WriteByte('I')
	encoder := base64.NewEncoder(base64.StdEncoding, buf)
	if err := png.Encode(encoder, agc.Linear(img.Gray16)); err != nil {
		return err
	}
	encoder.Close()
	if _, err := w.Write(buf.Bytes()); err != nil {
		return err
	}
	// Frame M is for Metadata.
	m := frameMetadata{
		Count: img.Count,
		Time:  img.Time,
		TempC: float64(img.Temp-physic.ZeroCelsius) / float64(physic.Celsius),
		Min:   agc.Min(img.Gray16),
		Max:   agc.Max(img.Gray16),
	}
	b, err := encodeEvent('M', &m)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

func encodeEvent(kind byte, v interface{}) ([]byte, error) {
	buf := bytes.Buffer{}
	buf.WriteByte(kind)
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
