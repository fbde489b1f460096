// Copyright (c) 2025 VocalBridge
//
// Licensed under the MIT License. See LICENSE for details.

package internal_recorder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/vocalbridge/vocalbridge/pkg/commons"
)

// queueDepth bounds the capture queue. Producers block when the writer falls
// behind; chunks are never dropped while the writer runs.
const queueDepth = 1024

// ErrStopped is returned by Capture after Stop has been called.
var ErrStopped = errors.New("recorder: stopped")

// Recorder serializes interleaved audio chunks from both call directions
// into a single raw capture file, in arrival order. One writer goroutine is
// the only thing that touches the file while the session is active.
type Recorder struct {
	logger commons.Logger
	path   string
	file   *os.File

	queue chan []byte
	done  chan struct{}

	// stateMu gates producers against Stop: Capture sends under the read
	// lock, Stop closes the queue under the write lock, so the close can
	// never race an in-flight send.
	stateMu sync.RWMutex
	stopped bool

	written atomic.Int64
	// writeErr is set only by the writer goroutine and read after done is
	// closed.
	writeErr error
}

// New opens the capture file <dir>/<id>.raw and starts the writer. It is
// called once per session, before either relay direction begins.
func New(logger commons.Logger, dir, id string) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create recording directory: %w", err)
	}
	path := filepath.Join(dir, id+".raw")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file: %w", err)
	}

	r := &Recorder{
		logger: logger,
		path:   path,
		file:   file,
		queue:  make(chan []byte, queueDepth),
		done:   make(chan struct{}),
	}
	go r.writeLoop()
	return r, nil
}

// Path returns the raw capture file path.
func (r *Recorder) Path() string {
	return r.path
}

// Written returns the number of bytes the writer has appended so far.
func (r *Recorder) Written() int64 {
	return r.written.Load()
}

// Capture enqueues one decoded audio chunk. The chunk is copied, so callers
// may reuse their buffer. Blocks when the queue is full.
func (r *Recorder) Capture(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}

	buf := make([]byte, len(chunk))
	copy(buf, chunk)

	r.stateMu.RLock()
	defer r.stateMu.RUnlock()
	if r.stopped {
		return ErrStopped
	}
	r.queue <- buf
	return nil
}

// Stop closes the queue, waits for the writer to drain every queued chunk,
// then flushes and closes the file. Safe to call once teardown has stopped
// both producers; idempotent.
func (r *Recorder) Stop() error {
	r.stateMu.Lock()
	if r.stopped {
		r.stateMu.Unlock()
		return nil
	}
	r.stopped = true
	close(r.queue)
	r.stateMu.Unlock()

	<-r.done

	if err := r.file.Sync(); err != nil {
		r.logger.Warnf("capture file sync failed: %v", err)
	}
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("failed to close capture file: %w", err)
	}

	r.logger.Infow("capture finished",
		"path", r.path,
		"bytes", r.written.Load(),
	)
	return r.writeErr
}

func (r *Recorder) writeLoop() {
	defer close(r.done)
	for chunk := range r.queue {
		n, err := r.file.Write(chunk)
		r.written.Add(int64(n))
		if err != nil {
			if r.writeErr == nil {
				r.writeErr = err
			}
			r.logger.Errorf("capture write failed: %v", err)
		}
	}
}
