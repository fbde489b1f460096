// Copyright (c) 2025 VocalBridge
//
// Licensed under the MIT License. See LICENSE for details.

package internal_bridge

import (
	"context"
	"encoding/base64"
	"errors"

	"github.com/gorilla/websocket"

	internal_realtime "github.com/vocalbridge/vocalbridge/internal/realtime"
	internal_recorder "github.com/vocalbridge/vocalbridge/internal/recorder"
	internal_telephony "github.com/vocalbridge/vocalbridge/internal/telephony"
)

// relayInbound pumps frames from the media-stream socket into the AI
// session. Malformed or unexpected frames are logged and skipped; only a
// broken socket ends the relay.
func (b *Bridge) relayInbound(ctx context.Context, conn *websocket.Conn, ai *internal_realtime.Client, sess *session) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				b.logger.Infow("caller disconnected", "session_id", sess.ID)
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		msg, err := internal_telephony.ParseMessage(data)
		if err != nil {
			b.metrics.RelayErrors.Inc()
			b.logger.Warnw("skipping unreadable media-stream frame", "session_id", sess.ID, "error", err)
			continue
		}

		switch msg.Event {
		case internal_telephony.EventStart:
			if msg.Start == nil {
				b.metrics.RelayErrors.Inc()
				b.logger.Warnw("start frame without payload", "session_id", sess.ID)
				continue
			}
			sess.stream.Set(msg.Start.StreamSID)
			b.logger.Infow("stream started",
				"session_id", sess.ID,
				"stream_sid", msg.Start.StreamSID,
				"call_sid", msg.Start.CallSID)

		case internal_telephony.EventMedia:
			if msg.Media == nil {
				b.metrics.RelayErrors.Inc()
				continue
			}
			if err := ai.AppendAudio(msg.Media.Payload); err != nil {
				if errors.Is(err, internal_realtime.ErrClosed) {
					return nil
				}
				return err
			}
			b.metrics.InboundFrames.Inc()
			b.capture(sess, msg.Media.Payload)

		case internal_telephony.EventStop:
			b.logger.Infow("stream stopped by provider", "session_id", sess.ID)
			return nil

		default:
			b.logger.Debugf("ignoring media-stream event %q for session %s", msg.Event, sess.ID)
		}
	}
}

// capture decodes one base64 audio payload and appends it to the session's
// capture file. Capture problems never disturb the relay.
func (b *Bridge) capture(sess *session, payload string) {
	if sess.rec == nil {
		return
	}
	chunk, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		b.metrics.RelayErrors.Inc()
		b.logger.Warnw("dropping undecodable audio chunk", "session_id", sess.ID, "error", err)
		return
	}
	if err := sess.rec.Capture(chunk); err != nil && !errors.Is(err, internal_recorder.ErrStopped) {
		b.logger.Warnw("capture write failed", "session_id", sess.ID, "error", err)
	}
}
