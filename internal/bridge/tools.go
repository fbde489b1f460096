// Copyright (c) 2025 VocalBridge
//
// Licensed under the MIT License. See LICENSE for details.

package internal_bridge

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	internal_realtime "github.com/vocalbridge/vocalbridge/internal/realtime"
	"github.com/vocalbridge/vocalbridge/pkg/commons"
)

// ToolResolver executes one tool call requested by the AI session and returns
// the result text submitted back into the conversation. Returning an error
// aborts submission for this call only; the session keeps running.
type ToolResolver func(ctx context.Context, name, arguments string) (string, error)

// ToolDispatcher turns completed function-call events into conversation items
// and asks the session for a follow-up response.
type ToolDispatcher struct {
	logger  commons.Logger
	resolve ToolResolver
}

// defaultResolver answers every tool call with a static acknowledgement so
// the conversation keeps moving when no real handlers are registered.
func defaultResolver(ctx context.Context, name, arguments string) (string, error) {
	return fmt.Sprintf(`{"status":"ok","tool":%q}`, name), nil
}

func NewToolDispatcher(logger commons.Logger, resolve ToolResolver) *ToolDispatcher {
	if resolve == nil {
		resolve = defaultResolver
	}
	return &ToolDispatcher{logger: logger, resolve: resolve}
}

// Dispatch resolves one tool call and submits its output, tied back to the
// originating call id, followed by a response request.
func (d *ToolDispatcher) Dispatch(ctx context.Context, ai *internal_realtime.Client, callID, name, arguments string) error {
	output, err := d.resolve(ctx, name, arguments)
	if err != nil {
		return fmt.Errorf("tool %q failed: %w", name, err)
	}

	item := internal_realtime.ConversationItem{
		ID:     "item_" + uuid.NewString(),
		Type:   "function_call_output",
		CallID: callID,
		Output: output,
	}
	if err := ai.CreateItem(item); err != nil {
		return fmt.Errorf("failed to submit tool output: %w", err)
	}
	if err := ai.CreateResponse(); err != nil {
		return fmt.Errorf("failed to request follow-up response: %w", err)
	}

	d.logger.Infow("tool call completed", "tool", name, "call_id", callID)
	return nil
}
