// Copyright (c) 2025 VocalBridge
//
// Licensed under the MIT License. See LICENSE for details.

package internal_telephony

import (
	"fmt"

	twilioclient "github.com/twilio/twilio-go/client"
	"github.com/twilio/twilio-go/twiml"
)

// AnswerDocument builds the call-setup response that tells the provider to
// open its media stream against this host. The greeting mirrors what callers
// hear before the realtime session takes over.
func AnswerDocument(host string) (string, error) {
	say := &twiml.VoiceSay{
		Message: "Please wait while we connect your call to the A. I. voice assistant.",
	}
	pause := &twiml.VoicePause{
		Length: "1",
	}
	ready := &twiml.VoiceSay{
		Message: "O.K. you can start talking!",
	}
	stream := &twiml.VoiceStream{
		Url: fmt.Sprintf("wss://%s/media-stream", host),
	}
	connect := &twiml.VoiceConnect{
		InnerElements: []twiml.Element{stream},
	}

	doc, err := twiml.Voice([]twiml.Element{say, pause, ready, connect})
	if err != nil {
		return "", fmt.Errorf("failed to render answer document: %w", err)
	}
	return doc, nil
}

// CallbackValidator verifies X-Twilio-Signature headers on status callbacks.
type CallbackValidator struct {
	validator twilioclient.RequestValidator
	enabled   bool
}

// NewCallbackValidator returns a validator. With an empty auth token,
// validation is disabled and every callback is accepted.
func NewCallbackValidator(authToken string) *CallbackValidator {
	return &CallbackValidator{
		validator: twilioclient.NewRequestValidator(authToken),
		enabled:   authToken != "",
	}
}

// Validate checks a form-encoded callback against its signature header.
func (v *CallbackValidator) Validate(url string, params map[string]string, signature string) bool {
	if !v.enabled {
		return true
	}
	return v.validator.Validate(url, params, signature)
}
