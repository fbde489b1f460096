// Copyright (c) 2025 VocalBridge
//
// Licensed under the MIT License. See LICENSE for details.

// Package internal_bridge relays one telephone call between the provider's
// media-stream socket and a realtime AI session, capturing the caller audio
// to disk along the way. One Handle call is one call lifetime.
package internal_bridge

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	internal_metrics "github.com/vocalbridge/vocalbridge/internal/metrics"
	internal_realtime "github.com/vocalbridge/vocalbridge/internal/realtime"
	internal_recorder "github.com/vocalbridge/vocalbridge/internal/recorder"
	"github.com/vocalbridge/vocalbridge/pkg/commons"
	"github.com/vocalbridge/vocalbridge/pkg/utils"
)

// settleDelay gives the AI endpoint a moment to finish its own session setup
// before the configuration handshake is sent. Sending immediately after the
// upgrade races the endpoint's session.created bookkeeping.
const settleDelay = 250 * time.Millisecond

// conversionTimeout bounds the post-call capture conversion job.
const conversionTimeout = time.Minute

// Config assembles everything a Bridge needs. Realtime and Session come from
// application config; Converter and Metrics are constructed once at startup
// and shared across calls.
type Config struct {
	Realtime internal_realtime.Config
	Session  internal_realtime.SessionConfig

	RecordingEnabled bool
	RecordingDir     string
	Converter        internal_recorder.Converter

	Metrics *internal_metrics.Metrics
	Tools   ToolResolver

	// SettleDelay overrides the handshake settle delay; zero means the
	// default. Tests shorten it.
	SettleDelay time.Duration
}

// Bridge handles media-stream connections. It is safe for concurrent use;
// all per-call state lives in the session created by Handle.
type Bridge struct {
	logger    commons.Logger
	cfg       Config
	dispatch  *ToolDispatcher
	metrics   *internal_metrics.Metrics
	settle    time.Duration
	converter internal_recorder.Converter
}

func New(logger commons.Logger, cfg Config) *Bridge {
	settle := cfg.SettleDelay
	if settle == 0 {
		settle = settleDelay
	}
	if cfg.Metrics == nil {
		cfg.Metrics = internal_metrics.NewMetrics(prometheus.NewRegistry())
	}
	return &Bridge{
		logger:    logger,
		cfg:       cfg,
		dispatch:  NewToolDispatcher(logger, cfg.Tools),
		metrics:   cfg.Metrics,
		settle:    settle,
		converter: cfg.Converter,
	}
}

// Handle runs one call session over an already-upgraded media-stream
// connection. It returns once both relay directions have finished and the
// capture has been flushed; the conversion job continues in the background.
// The connection is always closed before returning.
func (b *Bridge) Handle(ctx context.Context, conn *websocket.Conn) error {
	id := uuid.NewString()
	started := time.Now()

	b.metrics.SessionsStarted.Inc()
	b.metrics.ActiveSessions.Inc()
	defer b.metrics.ActiveSessions.Dec()

	b.logger.Infow("call session starting", "session_id", id)

	ai, err := internal_realtime.Dial(ctx, b.logger, b.cfg.Realtime)
	if err != nil {
		b.metrics.SessionFailures.Inc()
		b.logger.Errorw("realtime dial failed, dropping call", "session_id", id, "error", err)
		conn.Close()
		return err
	}

	select {
	case <-time.After(b.settle):
	case <-ctx.Done():
		ai.Close()
		conn.Close()
		return ctx.Err()
	}

	if err := ai.SendSessionUpdate(b.cfg.Session); err != nil {
		b.metrics.SessionFailures.Inc()
		b.logger.Errorw("session handshake failed", "session_id", id, "error", err)
		ai.Close()
		conn.Close()
		return err
	}

	sess := &session{ID: id}
	if b.cfg.RecordingEnabled {
		rec, err := internal_recorder.New(b.logger, b.cfg.RecordingDir, id)
		if err != nil {
			// The call proceeds without capture.
			b.logger.Warnw("capture unavailable for this call", "session_id", id, "error", err)
		} else {
			sess.rec = rec
		}
	}

	// Either relay finishing, cleanly or not, must end the other one. The
	// group context alone only cancels on error, so each relay cancels
	// explicitly on exit.
	relayCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(relayCtx)

	// The socket reads below cannot be interrupted by context; closing
	// both connections when the group context ends is what unblocks the
	// surviving relay.
	go func() {
		<-gctx.Done()
		ai.Close()
		conn.Close()
	}()

	g.Go(func() error {
		defer cancel()
		return b.relayInbound(gctx, conn, ai, sess)
	})
	g.Go(func() error {
		defer cancel()
		return b.relayOutbound(gctx, ai, conn, sess)
	})

	err = g.Wait()
	ai.Close()
	conn.Close()

	b.finishCapture(ctx, sess)

	elapsed := time.Since(started)
	b.metrics.SessionsEnded.Inc()
	b.metrics.SessionDuration.Observe(elapsed.Seconds())
	b.logger.Benchmark("bridge.session", elapsed)
	b.logger.Infow("call session ended", "session_id", id, "error", err)
	return err
}

// finishCapture flushes the capture file and hands it to the converter. The
// conversion runs detached from the call context so a hangup does not abort
// it, but it still respects process shutdown via its own timeout.
func (b *Bridge) finishCapture(ctx context.Context, sess *session) {
	if sess.rec == nil {
		return
	}
	if err := sess.rec.Stop(); err != nil {
		b.logger.Errorw("capture flush failed", "session_id", sess.ID, "error", err)
	}
	b.metrics.CaptureBytes.Add(float64(sess.rec.Written()))

	rawPath := sess.rec.Path()
	if b.converter == nil {
		return
	}
	utils.Go(context.Background(), func(jobCtx context.Context) {
		jobCtx, cancel := context.WithTimeout(jobCtx, conversionTimeout)
		defer cancel()

		wav, err := b.converter.Convert(jobCtx, rawPath)
		if err != nil {
			b.metrics.ConversionFailures.Inc()
			b.logger.Errorw("capture conversion failed, raw file kept",
				"session_id", sess.ID, "raw", rawPath, "error", err)
			return
		}
		b.metrics.ConversionSuccesses.Inc()
		b.logger.Infow("capture converted", "session_id", sess.ID, "wav", wav)
	})
}
