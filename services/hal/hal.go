// Package hal wires the platform buses, the resource provider and the HAL
// core together and runs them until ctx is cancelled.
package hal

import (
	"context"

	"gaugecode-go/bus"
	"gaugecode-go/services/hal/internal/core"
	"gaugecode-go/services/hal/internal/platform"
	"gaugecode-go/services/hal/internal/provider"

	// Device builders register themselves.
	_ "gaugecode-go/services/hal/internal/devices/lc709203f"
)

// Run opens the target's I2C buses and serves HAL on conn. It returns when
// ctx is done. Bus open failures leave HAL running with no buses so that
// config and control requests still get replies.
func Run(ctx context.Context, conn *bus.Connection) {
	buses, closeBuses, err := platform.Open(platform.DefaultPlan())
	if err != nil {
		println("[hal] opening buses:", err.Error())
		buses = platform.Buses{}
		closeBuses = func() {}
	}
	defer closeBuses()

	reg := provider.New(buses, provider.DefaultTimeout)
	defer reg.Close()

	for _, id := range reg.Buses() {
		println("[hal] bus ready:", string(id))
	}
	core.NewHAL(conn, reg).Run(ctx)
}
