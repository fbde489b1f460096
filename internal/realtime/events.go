// Copyright (c) 2025 VocalBridge
//
// Licensed under the MIT License. See LICENSE for details.

package internal_realtime

import (
	"encoding/json"
	"fmt"
)

// Client → server event types.
const (
	TypeSessionUpdate          = "session.update"
	TypeInputAudioBufferAppend = "input_audio_buffer.append"
	TypeConversationItemCreate = "conversation.item.create"
	TypeResponseCreate         = "response.create"
)

// Server → client event types the bridge acts on.
const (
	TypeSessionCreated       = "session.created"
	TypeSessionUpdated       = "session.updated"
	TypeResponseAudioDelta   = "response.audio.delta"
	TypeFunctionCallArgsDone = "response.function_call_arguments.done"
	TypeError                = "error"
)

// DiagnosticEventTypes are logged verbatim for observability and never affect
// control flow.
var DiagnosticEventTypes = map[string]bool{
	"response.content.done":             true,
	"rate_limits.updated":               true,
	"response.done":                     true,
	"input_audio_buffer.committed":      true,
	"input_audio_buffer.speech_stopped": true,
	"input_audio_buffer.speech_started": true,
	TypeSessionCreated:                  true,
}

// TurnDetection holds the voice-activity turn detection configuration.
type TurnDetection struct {
	Type string `json:"type"`
}

// Tool describes one callable function exposed to the session.
type Tool struct {
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// SessionConfig is the body of the initial session.update handshake.
type SessionConfig struct {
	TurnDetection     *TurnDetection `json:"turn_detection,omitempty"`
	InputAudioFormat  string         `json:"input_audio_format,omitempty"`
	OutputAudioFormat string         `json:"output_audio_format,omitempty"`
	Voice             string         `json:"voice,omitempty"`
	Instructions      string         `json:"instructions,omitempty"`
	Modalities        []string       `json:"modalities,omitempty"`
	Temperature       float64        `json:"temperature,omitempty"`
	Tools             []Tool         `json:"tools,omitempty"`
}

// sessionUpdateEvent wraps SessionConfig for the wire.
type sessionUpdateEvent struct {
	Type    string        `json:"type"`
	Session SessionConfig `json:"session"`
}

// audioAppendEvent forwards one base64 audio payload into the session's
// input buffer. The payload is relayed verbatim; the session is configured
// for the provider's native encoding so no re-encoding happens here.
type audioAppendEvent struct {
	Type  string `json:"type"`
	Audio string `json:"audio"`
}

// ConversationItem is the nested item of a conversation.item.create event.
type ConversationItem struct {
	ID     string `json:"id,omitempty"`
	Type   string `json:"type"`
	CallID string `json:"call_id,omitempty"`
	Output string `json:"output,omitempty"`
}

type conversationItemCreateEvent struct {
	Type string           `json:"type"`
	Item ConversationItem `json:"item"`
}

type responseCreateEvent struct {
	Type string `json:"type"`
}

// ErrorDetail is the body of a server error event.
type ErrorDetail struct {
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// ServerEvent is one parsed message from the AI session. Fields beyond Type
// are populated only for the variants that carry them; unrecognized types
// decode to Type alone and are ignored upstream.
type ServerEvent struct {
	Type      string       `json:"type"`
	Delta     string       `json:"delta,omitempty"`
	CallID    string       `json:"call_id,omitempty"`
	Name      string       `json:"name,omitempty"`
	Arguments string       `json:"arguments,omitempty"`
	Error     *ErrorDetail `json:"error,omitempty"`
}

// ParseServerEvent decodes one message from the AI session socket.
func ParseServerEvent(data []byte) (*ServerEvent, error) {
	var ev ServerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("failed to parse session event: %w", err)
	}
	if ev.Type == "" {
		return nil, fmt.Errorf("session event has no type discriminator")
	}
	return &ev, nil
}
