// Copyright (c) 2025 VocalBridge
//
// Licensed under the MIT License. See LICENSE for details.

package internal_bridge

import (
	"sync"

	internal_recorder "github.com/vocalbridge/vocalbridge/internal/recorder"
)

// streamCell is a write-once holder for the stream identity announced by the
// provider's start frame. The outbound relay can produce audio before the
// start frame arrives; it then sends with an empty streamSid, matching the
// provider's tolerance for frames addressed to the connection itself.
type streamCell struct {
	mu  sync.RWMutex
	sid string
}

func (c *streamCell) Set(sid string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sid == "" {
		c.sid = sid
	}
}

func (c *streamCell) Get() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sid
}

// session is the per-call state shared by both relay directions.
type session struct {
	ID     string
	stream streamCell

	// rec is nil when recording is disabled or the capture file could not
	// be opened; both relays treat a nil recorder as "do not capture".
	rec *internal_recorder.Recorder
}
