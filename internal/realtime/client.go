// Copyright (c) 2025 VocalBridge
//
// Licensed under the MIT License. See LICENSE for details.

package internal_realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vocalbridge/vocalbridge/pkg/commons"
)

const (
	handshakeTimeout = 30 * time.Second
	maxMessageSize   = 10 * 1024 * 1024
)

// ErrClosed is returned by send operations after the connection has been
// closed. Callers treat it as a normal, recoverable send failure rather than
// pre-checking connection state.
var ErrClosed = errors.New("realtime: connection closed")

// Config carries what Dial needs to reach the AI session endpoint. The
// credential travels here, never through process-wide state.
type Config struct {
	URL    string
	APIKey string
}

// Client is one AI-session connection. Sends can come from both relay
// directions (audio appends from one, tool results from the other), so every
// write goes through a single mutex.
type Client struct {
	logger commons.Logger
	conn   *websocket.Conn

	writeMu sync.Mutex
	closed  bool
}

// Dial establishes the AI-session connection. A failed attempt is fatal for
// the call; there is no retry here.
func Dial(ctx context.Context, logger commons.Logger, cfg Config) (*Client, error) {
	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+cfg.APIKey)
	headers.Set("OpenAI-Beta", "realtime=v1")

	dialer := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, cfg.URL, headers)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to realtime endpoint: %w", err)
	}
	conn.SetReadLimit(maxMessageSize)

	return &Client{
		logger: logger,
		conn:   conn,
	}, nil
}

// SendSessionUpdate performs the session-configuration handshake.
func (c *Client) SendSessionUpdate(session SessionConfig) error {
	return c.send(sessionUpdateEvent{
		Type:    TypeSessionUpdate,
		Session: session,
	})
}

// AppendAudio forwards one base64 audio payload verbatim.
func (c *Client) AppendAudio(payload string) error {
	return c.send(audioAppendEvent{
		Type:  TypeInputAudioBufferAppend,
		Audio: payload,
	})
}

// CreateItem submits a conversation item, used for tool-call results.
func (c *Client) CreateItem(item ConversationItem) error {
	return c.send(conversationItemCreateEvent{
		Type: TypeConversationItemCreate,
		Item: item,
	})
}

// CreateResponse asks the session to respond to the current conversation
// state, typically right after a tool result was submitted.
func (c *Client) CreateResponse() error {
	return c.send(responseCreateEvent{Type: TypeResponseCreate})
}

func (c *Client) send(msg interface{}) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal session event: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to write session event: %w", err)
	}
	return nil
}

// ReadEvent blocks for the next message and parses it. The raw bytes are
// returned alongside so diagnostic events can be logged verbatim. A closed
// connection surfaces as an error; the caller decides whether it was a clean
// close.
func (c *Client) ReadEvent() (*ServerEvent, []byte, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, nil, err
	}
	ev, err := ParseServerEvent(data)
	if err != nil {
		return nil, data, err
	}
	return ev, data, nil
}

// IsCleanClose reports whether a ReadEvent error is a normal peer close.
func IsCleanClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}

// Close sends a close frame and tears down the connection. It is idempotent
// and safe to call from either relay direction.
func (c *Client) Close() error {
	c.writeMu.Lock()
	if c.closed {
		c.writeMu.Unlock()
		return nil
	}
	c.closed = true
	err := c.conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	)
	c.writeMu.Unlock()

	if err != nil {
		c.logger.Debugf("close frame not delivered: %v", err)
	}
	return c.conn.Close()
}
