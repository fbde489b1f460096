// Copyright (c) 2025 VocalBridge
//
// Licensed under the MIT License. See LICENSE for details.

package call_api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/vocalbridge/vocalbridge/config"
	internal_bridge "github.com/vocalbridge/vocalbridge/internal/bridge"
	internal_telephony "github.com/vocalbridge/vocalbridge/internal/telephony"
	"github.com/vocalbridge/vocalbridge/pkg/commons"
)

// CallApi serves the telephony-facing HTTP surface: the answer webhook, the
// media-stream WebSocket endpoint, and the status callback.
type CallApi struct {
	cfg       *config.AppConfig
	logger    commons.Logger
	bridge    *internal_bridge.Bridge
	validator *internal_telephony.CallbackValidator
	upgrader  websocket.Upgrader
}

func NewCallApi(cfg *config.AppConfig, logger commons.Logger, bridge *internal_bridge.Bridge) *CallApi {
	return &CallApi{
		cfg:       cfg,
		logger:    logger,
		bridge:    bridge,
		validator: internal_telephony.NewCallbackValidator(cfg.TwilioAuthToken),
		upgrader: websocket.Upgrader{
			// The only caller is the telephony provider's media-stream
			// client, which sends no browser Origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// IncomingCall answers the provider's call webhook with a voice document
// that connects the call to this host's media-stream endpoint.
func (a *CallApi) IncomingCall(c *gin.Context) {
	doc, err := internal_telephony.AnswerDocument(c.Request.Host)
	if err != nil {
		a.logger.Errorw("failed to render answer document", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Header("Content-Type", "text/xml")
	c.String(http.StatusOK, doc)
}

// MediaStream upgrades the request and hands the socket to the bridge for
// the lifetime of the call.
func (a *CallApi) MediaStream(c *gin.Context) {
	conn, err := a.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		a.logger.Errorw("media-stream upgrade failed", "error", err)
		return
	}
	if err := a.bridge.Handle(c.Request.Context(), conn); err != nil {
		a.logger.Errorw("call session failed", "error", err)
	}
}

// CallStatus receives the provider's status callbacks. When an auth token is
// configured the request signature is verified before the event is trusted.
func (a *CallApi) CallStatus(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	params := map[string]string{}
	for key, values := range c.Request.PostForm {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}

	url := fmt.Sprintf("https://%s%s", c.Request.Host, c.Request.URL.RequestURI())
	if !a.validator.Validate(url, params, c.GetHeader("X-Twilio-Signature")) {
		a.logger.Warnw("rejecting status callback with bad signature", "url", url)
		c.Status(http.StatusForbidden)
		return
	}

	a.logger.Infow("call status update",
		"call_sid", params["CallSid"],
		"status", params["CallStatus"],
		"duration", params["CallDuration"])
	c.Status(http.StatusNoContent)
}
