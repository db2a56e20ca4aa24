package main

import (
	"context"
	"time"

	"gaugecode-go/bus"
	"gaugecode-go/services/config"
	"gaugecode-go/services/hal"
	"gaugecode-go/services/heartbeat"
)

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(bootDelay)
	println("boot", deviceID)

	ctx := context.WithValue(context.Background(), config.CtxDeviceKey, deviceID)
	b := bus.NewBus(8)

	go hal.Run(ctx, b.NewConnection("hal"))
	config.NewConfigService().Start(ctx, b.NewConnection("config"))
	if err := (&heartbeat.Service{}).Start(ctx, b.NewConnection("heartbeat")); err != nil {
		println("heartbeat:", err.Error())
	}

	runConsole(ctx, b)
}
