// Copyright (c) 2025 VocalBridge
//
// Licensed under the MIT License. See LICENSE for details.

package internal_bridge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internal_metrics "github.com/vocalbridge/vocalbridge/internal/metrics"
	internal_realtime "github.com/vocalbridge/vocalbridge/internal/realtime"
	"github.com/vocalbridge/vocalbridge/pkg/commons"
)

// fakeAI is a stand-in realtime endpoint. It records every message the
// bridge sends and lets tests push server events back through the same
// connection.
type fakeAI struct {
	srv   *httptest.Server
	conns chan *websocket.Conn

	mu   sync.Mutex
	msgs []map[string]interface{}
}

func newFakeAI(t *testing.T) *fakeAI {
	t.Helper()
	f := &fakeAI{conns: make(chan *websocket.Conn, 1)}
	upgrader := websocket.Upgrader{}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		f.conns <- conn
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var m map[string]interface{}
			if err := json.Unmarshal(data, &m); err != nil {
				continue
			}
			f.mu.Lock()
			f.msgs = append(f.msgs, m)
			f.mu.Unlock()
		}
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAI) url() string {
	return "ws" + strings.TrimPrefix(f.srv.URL, "http")
}

// conn returns the server side of the bridge's connection.
func (f *fakeAI) conn(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case c := <-f.conns:
		return c
	case <-time.After(5 * time.Second):
		t.Fatal("bridge never connected to the fake realtime endpoint")
		return nil
	}
}

func (f *fakeAI) messages() []map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]interface{}, len(f.msgs))
	copy(out, f.msgs)
	return out
}

// messagesOfType filters recorded messages by their type discriminator.
func (f *fakeAI) messagesOfType(eventType string) []map[string]interface{} {
	var out []map[string]interface{}
	for _, m := range f.messages() {
		if m["type"] == eventType {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeAI) send(t *testing.T, conn *websocket.Conn, v interface{}) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

type harness struct {
	ai     *fakeAI
	bridge *Bridge
	client *websocket.Conn
	done   chan error
	recDir string
}

func newHarness(t *testing.T, recording bool, resolver ToolResolver) *harness {
	t.Helper()

	logger, err := commons.NewApplicationLogger(commons.Name("bridge-test"))
	require.NoError(t, err)

	h := &harness{
		ai:   newFakeAI(t),
		done: make(chan error, 1),
	}
	if recording {
		h.recDir = t.TempDir()
	}

	h.bridge = New(logger, Config{
		Realtime: internal_realtime.Config{URL: h.ai.url(), APIKey: "test-key"},
		Session: internal_realtime.SessionConfig{
			Voice:        "alloy",
			Instructions: "be brief",
		},
		RecordingEnabled: recording,
		RecordingDir:     h.recDir,
		Metrics:          internal_metrics.NewMetrics(prometheus.NewRegistry()),
		Tools:            resolver,
		SettleDelay:      time.Millisecond,
	})

	telSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		h.done <- h.bridge.Handle(context.Background(), conn)
	}))
	t.Cleanup(telSrv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(telSrv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	h.client = client
	return h
}

func (h *harness) sendStart(t *testing.T, streamSID string) {
	t.Helper()
	frame := fmt.Sprintf(`{"event":"start","start":{"streamSid":%q,"callSid":"CA123"}}`, streamSID)
	require.NoError(t, h.client.WriteMessage(websocket.TextMessage, []byte(frame)))
}

func (h *harness) sendMedia(t *testing.T, payload string) {
	t.Helper()
	frame := fmt.Sprintf(`{"event":"media","media":{"payload":%q}}`, payload)
	require.NoError(t, h.client.WriteMessage(websocket.TextMessage, []byte(frame)))
}

func (h *harness) hangup(t *testing.T) {
	t.Helper()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	h.client.WriteMessage(websocket.CloseMessage, msg)
}

func (h *harness) waitDone(t *testing.T) error {
	t.Helper()
	select {
	case err := <-h.done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("bridge session did not finish")
		return nil
	}
}

// captureContent reads the single raw capture file produced by the session.
func (h *harness) captureContent(t *testing.T) []byte {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(h.recDir, "*.raw"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	return data
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func TestHandshakePrecedesAudio(t *testing.T) {
	h := newHarness(t, false, nil)
	h.ai.conn(t)

	h.sendStart(t, "MZ1")
	h.sendMedia(t, b64("one"))

	waitFor(t, func() bool {
		return len(h.ai.messages()) >= 2
	}, "expected session.update and audio append")

	msgs := h.ai.messages()
	assert.Equal(t, "session.update", msgs[0]["type"])
	session := msgs[0]["session"].(map[string]interface{})
	assert.Equal(t, "alloy", session["voice"])

	h.hangup(t)
	assert.NoError(t, h.waitDone(t))
}

func TestCallerAudioRelayedVerbatimAndCaptured(t *testing.T) {
	h := newHarness(t, true, nil)
	h.ai.conn(t)

	h.sendStart(t, "MZ1")
	payloads := []string{b64("alpha"), b64("bravo"), b64("charlie")}
	for _, p := range payloads {
		h.sendMedia(t, p)
	}

	waitFor(t, func() bool {
		return len(h.ai.messagesOfType("input_audio_buffer.append")) == len(payloads)
	}, "audio appends never arrived")

	appends := h.ai.messagesOfType("input_audio_buffer.append")
	for i, m := range appends {
		assert.Equal(t, payloads[i], m["audio"], "payload %d must be relayed verbatim in order", i)
	}

	h.hangup(t)
	require.NoError(t, h.waitDone(t))
	assert.Equal(t, []byte("alphabravocharlie"), h.captureContent(t))
}

func TestOutboundAudioWrappedAndCaptured(t *testing.T) {
	h := newHarness(t, true, nil)
	aiConn := h.ai.conn(t)

	h.sendStart(t, "MZstream")
	waitFor(t, func() bool {
		return len(h.ai.messages()) >= 1
	}, "handshake never arrived")

	h.ai.send(t, aiConn, map[string]interface{}{
		"type":  "response.audio.delta",
		"delta": b64("robot"),
	})

	h.client.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := h.client.ReadMessage()
	require.NoError(t, err)

	var envelope struct {
		Event     string `json:"event"`
		StreamSID string `json:"streamSid"`
		Media     struct {
			Payload string `json:"payload"`
		} `json:"media"`
	}
	require.NoError(t, json.Unmarshal(data, &envelope))
	assert.Equal(t, "media", envelope.Event)
	assert.Equal(t, "MZstream", envelope.StreamSID)
	assert.Equal(t, b64("robot"), envelope.Media.Payload)

	h.hangup(t)
	require.NoError(t, h.waitDone(t))
	assert.Equal(t, []byte("robot"), h.captureContent(t))
}

func TestOutboundAudioBeforeStartUsesEmptyStreamID(t *testing.T) {
	h := newHarness(t, false, nil)
	aiConn := h.ai.conn(t)

	h.ai.send(t, aiConn, map[string]interface{}{
		"type":  "response.audio.delta",
		"delta": b64("early"),
	})

	h.client.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := h.client.ReadMessage()
	require.NoError(t, err)

	var envelope map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &envelope))
	assert.Equal(t, "", envelope["streamSid"])

	h.hangup(t)
	h.waitDone(t)
}

func TestMalformedFrameDoesNotKillSession(t *testing.T) {
	h := newHarness(t, false, nil)
	h.ai.conn(t)

	require.NoError(t, h.client.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, h.client.WriteMessage(websocket.TextMessage, []byte(`{"noevent":true}`)))
	h.sendMedia(t, b64("still-alive"))

	waitFor(t, func() bool {
		return len(h.ai.messagesOfType("input_audio_buffer.append")) == 1
	}, "relay died on malformed frame")

	h.hangup(t)
	assert.NoError(t, h.waitDone(t))
}

func TestProviderStopEndsSession(t *testing.T) {
	h := newHarness(t, false, nil)
	h.ai.conn(t)

	require.NoError(t, h.client.WriteMessage(websocket.TextMessage,
		[]byte(`{"event":"stop","stop":{"callSid":"CA123"}}`)))

	assert.NoError(t, h.waitDone(t))
}

func TestAISocketCloseTearsDownCall(t *testing.T) {
	h := newHarness(t, false, nil)
	aiConn := h.ai.conn(t)

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	require.NoError(t, aiConn.WriteMessage(websocket.CloseMessage, msg))

	assert.NoError(t, h.waitDone(t))

	// The telephony side must be closed too.
	h.client.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		if _, _, err := h.client.ReadMessage(); err != nil {
			break
		}
	}
}

func TestToolCallDispatchedWithOriginatingID(t *testing.T) {
	resolver := func(ctx context.Context, name, arguments string) (string, error) {
		assert.Equal(t, "get_weather", name)
		assert.JSONEq(t, `{"city":"Lisbon"}`, arguments)
		return "sunny, 24C", nil
	}
	h := newHarness(t, false, resolver)
	aiConn := h.ai.conn(t)

	h.ai.send(t, aiConn, map[string]interface{}{
		"type":      "response.function_call_arguments.done",
		"call_id":   "call_123",
		"name":      "get_weather",
		"arguments": `{"city":"Lisbon"}`,
	})

	waitFor(t, func() bool {
		return len(h.ai.messagesOfType("conversation.item.create")) == 1 &&
			len(h.ai.messagesOfType("response.create")) == 1
	}, "tool result never submitted")

	created := h.ai.messagesOfType("conversation.item.create")[0]
	item := created["item"].(map[string]interface{})
	assert.Equal(t, "function_call_output", item["type"])
	assert.Equal(t, "call_123", item["call_id"])
	assert.Equal(t, "sunny, 24C", item["output"])
	assert.True(t, strings.HasPrefix(item["id"].(string), "item_"))

	h.hangup(t)
	assert.NoError(t, h.waitDone(t))
}

func TestFailedToolCallKeepsSessionAlive(t *testing.T) {
	resolver := func(ctx context.Context, name, arguments string) (string, error) {
		return "", fmt.Errorf("backend unavailable")
	}
	h := newHarness(t, false, resolver)
	aiConn := h.ai.conn(t)

	h.ai.send(t, aiConn, map[string]interface{}{
		"type":    "response.function_call_arguments.done",
		"call_id": "call_9",
		"name":    "get_weather",
	})
	h.sendMedia(t, b64("after-failure"))

	waitFor(t, func() bool {
		return len(h.ai.messagesOfType("input_audio_buffer.append")) == 1
	}, "session did not survive a failed tool call")
	assert.Empty(t, h.ai.messagesOfType("conversation.item.create"))

	h.hangup(t)
	assert.NoError(t, h.waitDone(t))
}

func TestDialFailureDropsCallWithoutCapture(t *testing.T) {
	logger, err := commons.NewApplicationLogger(commons.Name("bridge-test"))
	require.NoError(t, err)

	recDir := t.TempDir()
	bridge := New(logger, Config{
		Realtime:         internal_realtime.Config{URL: "ws://127.0.0.1:1", APIKey: "k"},
		RecordingEnabled: true,
		RecordingDir:     recDir,
		Metrics:          internal_metrics.NewMetrics(prometheus.NewRegistry()),
		SettleDelay:      time.Millisecond,
	})

	done := make(chan error, 1)
	telSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		done <- bridge.Handle(context.Background(), conn)
	}))
	defer telSrv.Close()

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(telSrv.URL, "http"), nil)
	require.NoError(t, err)
	defer client.Close()

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("session did not fail")
	}

	entries, err := os.ReadDir(recDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no capture file may exist when the session never started")
}

func TestInterleavedCaptureKeepsArrivalOrder(t *testing.T) {
	h := newHarness(t, true, nil)
	aiConn := h.ai.conn(t)

	h.sendStart(t, "MZ1")
	h.sendMedia(t, b64("in1"))
	waitFor(t, func() bool {
		return len(h.ai.messagesOfType("input_audio_buffer.append")) == 1
	}, "first inbound chunk missing")

	h.ai.send(t, aiConn, map[string]interface{}{
		"type":  "response.audio.delta",
		"delta": b64("out1"),
	})
	h.client.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := h.client.ReadMessage()
	require.NoError(t, err)

	h.sendMedia(t, b64("in2"))
	waitFor(t, func() bool {
		return len(h.ai.messagesOfType("input_audio_buffer.append")) == 2
	}, "second inbound chunk missing")

	h.hangup(t)
	require.NoError(t, h.waitDone(t))
	assert.Equal(t, []byte("in1out1in2"), h.captureContent(t))
}
