//go:build tinygo

package main

import (
	"context"
	"time"

	"gaugecode-go/bus"
)

const (
	deviceID  = "pico"
	bootDelay = 2 * time.Second
)

// No console on the MCU; keep main alive.
func runConsole(ctx context.Context, _ *bus.Bus) {
	<-ctx.Done()
}
