//go:build !tinygo

package main

import (
	"context"
	"io"
	"os"

	"gaugecode-go/bus"
	"gaugecode-go/services/console"
)

const (
	deviceID  = "host"
	bootDelay = 0

	// Capability domain of the gauges in cfgHost.
	consoleDomain = "power"
)

func runConsole(ctx context.Context, b *bus.Bus) {
	serveConsole(ctx, b.NewConnection("console"), os.Stdin, os.Stdout)
}

// serveConsole reads commands from in, then holds until ctx is done so HAL
// keeps running when stdin is closed or redirected from /dev/null.
func serveConsole(ctx context.Context, conn *bus.Connection, in io.Reader, out io.Writer) {
	if err := console.New(conn, out).WithDomain(consoleDomain).Run(ctx, in); err != nil {
		println("console:", err.Error())
	}
	<-ctx.Done()
}
