// Package heartbeat prints a periodic liveness line, optionally with the
// latest gauge reading.
package heartbeat

import (
	"context"
	"time"

	"gaugecode-go/bus"
	"gaugecode-go/types"
	"gaugecode-go/x/mathx"
)

const (
	defaultInterval = time.Second
	maxIntervalSec  = 3600
)

var (
	topicConfigHeartbeat = bus.T("config", "heartbeat")
	// Any battery value, so the line can show charge state.
	topicBatteryValues = bus.T("hal", "cap", bus.SingleWild, string(types.KindBattery), bus.SingleWild, "value")
)

type Service struct{}

// intervalFrom extracts the "interval" field (seconds) from a config payload.
func intervalFrom(p any) (time.Duration, bool) {
	m, ok := p.(map[string]any)
	if !ok {
		return 0, false
	}
	f, ok := m["interval"].(float64)
	if !ok || f <= 0 {
		return 0, false
	}
	return time.Duration(mathx.Clamp(f, 1, maxIntervalSec)) * time.Second, true
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	defer conn.Unsubscribe(cfgSub)
	batSub := conn.Subscribe(topicBatteryValues)
	defer conn.Unsubscribe(batSub)

	tick := time.NewTicker(defaultInterval)
	defer tick.Stop()

	var last *types.GaugeValue
	for {
		select {
		case <-ctx.Done():
			println("Info: heartbeat service stopping")
			return
		case t := <-tick.C:
			if last != nil {
				println("Info:", t.Format("15:04:05"), "Heartbeat", "rsoc", last.RSOC, "mV", last.CellMilliV)
			} else {
				println("Info:", t.Format("15:04:05"), "Heartbeat")
			}
		case msg := <-batSub.Channel():
			if v, ok := msg.Payload.(types.GaugeValue); ok {
				last = &v
			}
		case msg := <-cfgSub.Channel():
			if d, ok := intervalFrom(msg.Payload); ok {
				tick.Reset(d)
				println("Info:", "Heartbeat interval set to", int(d/time.Second), "seconds")
			}
		}
	}
}

// Start the heartbeat service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.serviceLoop(ctx, conn)
	return nil
}
