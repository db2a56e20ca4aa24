package heartbeat

import (
	"context"
	"testing"
	"time"

	"gaugecode-go/bus"
)

func TestIntervalFrom(t *testing.T) {
	cases := []struct {
		in   any
		want time.Duration
		ok   bool
	}{
		{map[string]any{"interval": float64(2)}, 2 * time.Second, true},
		{map[string]any{"interval": 0.2}, time.Second, true},
		{map[string]any{"interval": float64(1e6)}, maxIntervalSec * time.Second, true},
		{map[string]any{"interval": float64(-1)}, 0, false},
		{map[string]any{"interval": "2"}, 0, false},
		{"nope", 0, false},
	}
	for _, tc := range cases {
		got, ok := intervalFrom(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("intervalFrom(%v) = %v,%v want %v,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestServiceStopsOnCancel(t *testing.T) {
	b := bus.NewBus(4)
	conn := b.NewConnection("hb")
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() { (&Service{}).serviceLoop(ctx, conn); close(done) }()
	conn.Publish(conn.NewMessage(bus.T("config", "heartbeat"), map[string]any{"interval": float64(1)}, true))
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("heartbeat did not stop")
	}
}
