// Copyright (c) 2025 VocalBridge
//
// Licensed under the MIT License. See LICENSE for details.
package utils

import (
	"context"
	"log"
	"runtime/debug"
)

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// Go runs fn on a new goroutine, recovering and reporting panics instead of
// crashing the process. A panicking background task must never take down the
// sessions running alongside it.
func Go(ctx context.Context, fn func(ctx context.Context)) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("recovered panic in background task: %v\n%s", r, debug.Stack())
			}
		}()
		fn(ctx)
	}()
}
