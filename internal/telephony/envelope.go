// Copyright (c) 2025 VocalBridge
//
// Licensed under the MIT License. See LICENSE for details.

package internal_telephony

import (
	"encoding/json"
	"fmt"
)

// Event discriminators on the media-stream socket.
const (
	EventConnected = "connected"
	EventStart     = "start"
	EventMedia     = "media"
	EventMark      = "mark"
	EventStop      = "stop"
	EventDTMF      = "dtmf"
)

// Message is one parsed frame from the provider's media-stream socket.
// Only the variants the bridge acts on carry a nested payload; everything
// else is identified by Event alone.
type Message struct {
	Event     string        `json:"event"`
	StreamSID string        `json:"streamSid,omitempty"`
	Start     *StartPayload `json:"start,omitempty"`
	Media     *MediaPayload `json:"media,omitempty"`
	Stop      *StopPayload  `json:"stop,omitempty"`
}

// StartPayload announces the stream identity for the call.
type StartPayload struct {
	StreamSID    string            `json:"streamSid"`
	AccountSID   string            `json:"accountSid"`
	CallSID      string            `json:"callSid"`
	Tracks       []string          `json:"tracks"`
	MediaFormat  MediaFormat       `json:"mediaFormat"`
	CustomParams map[string]string `json:"customParameters"`
}

// MediaFormat describes the fixed audio encoding of the stream.
type MediaFormat struct {
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sampleRate"`
	Channels   int    `json:"channels"`
}

// MediaPayload carries one base64-encoded audio frame.
type MediaPayload struct {
	Track     string `json:"track,omitempty"`
	Chunk     string `json:"chunk,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   string `json:"payload"`
}

// StopPayload ends the stream.
type StopPayload struct {
	AccountSID string `json:"accountSid"`
	CallSID    string `json:"callSid"`
}

// ParseMessage decodes one textual frame from the media-stream socket.
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse media-stream frame: %w", err)
	}
	if msg.Event == "" {
		return nil, fmt.Errorf("media-stream frame has no event discriminator")
	}
	return &msg, nil
}

// outboundMedia is the envelope sent back to the provider. The streamSid is
// a top-level sibling of media, unlike the inbound shape.
type outboundMedia struct {
	Event     string       `json:"event"`
	StreamSID string       `json:"streamSid"`
	Media     mediaWrapper `json:"media"`
}

type mediaWrapper struct {
	Payload string `json:"payload"`
}

// BuildMediaEnvelope wraps a base64 audio payload in the provider's outbound
// media envelope. The payload is passed through untouched; the provider
// expects the same encoding it negotiated at stream start.
func BuildMediaEnvelope(streamSID, payload string) ([]byte, error) {
	return json.Marshal(outboundMedia{
		Event:     EventMedia,
		StreamSID: streamSID,
		Media:     mediaWrapper{Payload: payload},
	})
}
