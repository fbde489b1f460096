// Copyright (c) 2025 VocalBridge
//
// Licensed under the MIT License. See LICENSE for details.

package internal_bridge

import (
	"context"

	"github.com/gorilla/websocket"

	internal_realtime "github.com/vocalbridge/vocalbridge/internal/realtime"
	internal_telephony "github.com/vocalbridge/vocalbridge/internal/telephony"
)

// relayOutbound pumps events from the AI session back to the media-stream
// socket. Audio deltas are forwarded verbatim inside the provider's envelope;
// completed tool calls are dispatched; everything else is diagnostic.
func (b *Bridge) relayOutbound(ctx context.Context, ai *internal_realtime.Client, conn *websocket.Conn, sess *session) error {
	for {
		ev, raw, err := ai.ReadEvent()
		if err != nil {
			if raw != nil {
				// Parse failure on a live connection.
				b.metrics.RelayErrors.Inc()
				b.logger.Warnw("skipping unreadable session event", "session_id", sess.ID, "error", err)
				continue
			}
			if internal_realtime.IsCleanClose(err) || ctx.Err() != nil {
				return nil
			}
			return err
		}

		switch {
		case ev.Type == internal_realtime.TypeResponseAudioDelta:
			if ev.Delta == "" {
				continue
			}
			envelope, err := internal_telephony.BuildMediaEnvelope(sess.stream.Get(), ev.Delta)
			if err != nil {
				b.metrics.RelayErrors.Inc()
				b.logger.Warnw("failed to build outbound envelope", "session_id", sess.ID, "error", err)
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, envelope); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			b.metrics.OutboundFrames.Inc()
			b.capture(sess, ev.Delta)

		case ev.Type == internal_realtime.TypeFunctionCallArgsDone:
			b.metrics.ToolCalls.Inc()
			if err := b.dispatch.Dispatch(ctx, ai, ev.CallID, ev.Name, ev.Arguments); err != nil {
				b.logger.Errorw("tool dispatch failed", "session_id", sess.ID, "error", err)
			}

		case ev.Type == internal_realtime.TypeError:
			if ev.Error != nil {
				b.logger.Errorw("session reported an error",
					"session_id", sess.ID,
					"code", ev.Error.Code,
					"message", ev.Error.Message)
			} else {
				b.logger.Errorw("session reported an error", "session_id", sess.ID, "raw", string(raw))
			}

		case ev.Type == internal_realtime.TypeSessionUpdated:
			b.logger.Infow("session configuration applied", "session_id", sess.ID)

		case internal_realtime.DiagnosticEventTypes[ev.Type]:
			b.logger.Infow("session event", "session_id", sess.ID, "type", ev.Type, "raw", string(raw))

		default:
			b.logger.Debugf("ignoring session event %q for session %s", ev.Type, sess.ID)
		}
	}
}
