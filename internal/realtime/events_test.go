// Copyright (c) 2025 VocalBridge
//
// Licensed under the MIT License. See LICENSE for details.

package internal_realtime

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseServerEventAudioDelta(t *testing.T) {
	ev, err := ParseServerEvent([]byte(`{"type":"response.audio.delta","response_id":"r1","delta":"bXVsYXc="}`))
	require.NoError(t, err)
	assert.Equal(t, TypeResponseAudioDelta, ev.Type)
	assert.Equal(t, "bXVsYXc=", ev.Delta)
}

func TestParseServerEventFunctionCallDone(t *testing.T) {
	ev, err := ParseServerEvent([]byte(`{"type":"response.function_call_arguments.done","call_id":"call_123","name":"get_weather","arguments":"{\"city\":\"Paris\"}"}`))
	require.NoError(t, err)
	assert.Equal(t, TypeFunctionCallArgsDone, ev.Type)
	assert.Equal(t, "call_123", ev.CallID)
	assert.Equal(t, "get_weather", ev.Name)
	assert.JSONEq(t, `{"city":"Paris"}`, ev.Arguments)
}

func TestParseServerEventError(t *testing.T) {
	ev, err := ParseServerEvent([]byte(`{"type":"error","error":{"type":"invalid_request_error","code":"bad","message":"nope"}}`))
	require.NoError(t, err)
	assert.Equal(t, TypeError, ev.Type)
	require.NotNil(t, ev.Error)
	assert.Equal(t, "nope", ev.Error.Message)
}

func TestParseServerEventUnknownType(t *testing.T) {
	// Unrecognized variants still parse; the relay ignores them without
	// terminating the session.
	ev, err := ParseServerEvent([]byte(`{"type":"response.output_item.added","item":{}}`))
	require.NoError(t, err)
	assert.Equal(t, "response.output_item.added", ev.Type)
}

func TestParseServerEventMalformed(t *testing.T) {
	_, err := ParseServerEvent([]byte(`{"type":`))
	assert.Error(t, err)
}

func TestParseServerEventMissingType(t *testing.T) {
	_, err := ParseServerEvent([]byte(`{"delta":"aa"}`))
	assert.Error(t, err)
}

func TestSessionUpdateWire(t *testing.T) {
	ev := sessionUpdateEvent{
		Type: TypeSessionUpdate,
		Session: SessionConfig{
			TurnDetection:     &TurnDetection{Type: "server_vad"},
			InputAudioFormat:  "g711_ulaw",
			OutputAudioFormat: "g711_ulaw",
			Voice:             "alloy",
			Instructions:      "Be helpful.",
			Modalities:        []string{"text", "audio"},
			Temperature:       0.8,
			Tools: []Tool{{
				Type:        "function",
				Name:        "get_weather",
				Description: "Look up current weather",
				Parameters:  json.RawMessage(`{"type":"object","properties":{"city":{"type":"string"}}}`),
			}},
		},
	}

	data, err := json.Marshal(ev)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "session.update", decoded["type"])

	session, ok := decoded["session"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "g711_ulaw", session["input_audio_format"])
	assert.Equal(t, "g711_ulaw", session["output_audio_format"])
	assert.Equal(t, "alloy", session["voice"])
	assert.Equal(t, 0.8, session["temperature"])
	assert.Equal(t, []interface{}{"text", "audio"}, session["modalities"])

	td, ok := session["turn_detection"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "server_vad", td["type"])

	tools, ok := session["tools"].([]interface{})
	require.True(t, ok)
	require.Len(t, tools, 1)
}

func TestConversationItemCreateWire(t *testing.T) {
	ev := conversationItemCreateEvent{
		Type: TypeConversationItemCreate,
		Item: ConversationItem{
			ID:     "item_abc",
			Type:   "function_call_output",
			CallID: "call_123",
			Output: `{"ok":true}`,
		},
	}

	data, err := json.Marshal(ev)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "conversation.item.create", decoded["type"])
	item, ok := decoded["item"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "function_call_output", item["type"])
	assert.Equal(t, "call_123", item["call_id"])
}

func TestDiagnosticEventTypesMatchAllowList(t *testing.T) {
	for _, typ := range []string{
		"response.content.done",
		"rate_limits.updated",
		"response.done",
		"input_audio_buffer.committed",
		"input_audio_buffer.speech_stopped",
		"input_audio_buffer.speech_started",
		"session.created",
	} {
		assert.True(t, DiagnosticEventTypes[typ], typ)
	}
	assert.False(t, DiagnosticEventTypes["response.audio.delta"])
}
