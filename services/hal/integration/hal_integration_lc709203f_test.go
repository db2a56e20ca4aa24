package integration

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"gaugecode-go/bus"
	"gaugecode-go/drivers/lc709203f"
	"gaugecode-go/services/hal/internal/core"
	"gaugecode-go/services/hal/internal/provider"
	"gaugecode-go/types"

	"tinygo.org/x/drivers"

	// Ensure device builders register with the registry.
	_ "gaugecode-go/services/hal/internal/devices/lc709203f"
)

var (
	batAddr = core.CapAddr{Domain: "power", Kind: types.KindBattery, Name: "pack"}
	tmpAddr = core.CapAddr{Domain: "power", Kind: types.KindTemperature, Name: "pack"}
)

func capTopic(a core.CapAddr, leaf ...any) bus.Topic {
	return bus.T("hal", "cap", a.Domain, string(a.Kind), a.Name).Append(leaf...)
}

// bootHAL runs HAL over a single simulated gauge on i2c0 and waits for ready.
func bootHAL(t *testing.T, params string) (*bus.Connection, *simGauge) {
	t.Helper()
	sim := newSimGauge(lc709203f.AddressDefault, map[uint8]uint16{
		0x08: 2732 + 231,
		0x09: 3912,
		0x0D: 76,
		0x0F: 761,
		0x11: 0x2717,
		0x1A: lc709203f.ParamLC709203F01,
	})
	reg := provider.New(map[core.ResourceID]drivers.I2C{"i2c0": sim}, 0)
	t.Cleanup(reg.Close)

	b := bus.NewBus(64)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go core.NewHAL(b.NewConnection("hal"), reg).Run(ctx)

	conn := b.NewConnection("test")
	stateSub := conn.Subscribe(bus.T("hal", "state"))
	defer conn.Unsubscribe(stateSub)
	if _, err := recvOrTimeout(stateSub.Channel(), time.Second); err != nil {
		t.Fatalf("no initial hal/state: %v", err)
	}

	cfg := types.HALConfig{Devices: []types.HALDevice{{
		ID: "gauge0", Type: "lc709203f", Params: json.RawMessage(params),
	}}}
	conn.Publish(conn.NewMessage(bus.T("config", "hal"), cfg, true))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		m, err := recvOrTimeout(stateSub.Channel(), 100*time.Millisecond)
		if err != nil {
			continue
		}
		if s, ok := m.Payload.(types.HALState); ok && s.Level == "ready" {
			return conn, sim
		}
	}
	t.Fatal("HAL did not reach ready")
	return nil, nil
}

// waitFor subscribes to topic and returns the first payload accepted by ok.
func waitFor(t *testing.T, conn *bus.Connection, topic bus.Topic, ok func(any) bool) any {
	t.Helper()
	sub := conn.Subscribe(topic)
	defer conn.Unsubscribe(sub)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		m, err := recvOrTimeout(sub.Channel(), 100*time.Millisecond)
		if err == nil && ok(m.Payload) {
			return m.Payload
		}
	}
	t.Fatalf("nothing matched on %s", topic)
	return nil
}

func request(t *testing.T, conn *bus.Connection, topic bus.Topic, payload any) any {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	m, err := conn.RequestWait(ctx, conn.NewMessage(topic, payload, false))
	if err != nil {
		t.Fatalf("request %s: %v", topic, err)
	}
	return m.Payload
}

func TestGaugeEndToEnd(t *testing.T) {
	conn, sim := bootHAL(t, `{"bus":"i2c0","name":"pack","temp_source":"thermistor","poll_ms":250}`)

	// Retained info carries the identity read during configure.
	info := waitFor(t, conn, capTopic(batAddr, "info"), func(p any) bool {
		in, ok := p.(types.Info)
		if !ok {
			return false
		}
		d, ok := in.Detail.(types.GaugeInfo)
		return ok && d.ICVersion == 0x2717
	})
	if d, ok := info.(types.Info).Detail.(types.GaugeInfo); !ok || d.Bus != "i2c0" || d.Addr != 0x0B {
		t.Fatalf("info detail = %#v", info.(types.Info).Detail)
	}

	v := waitFor(t, conn, capTopic(batAddr, "value"), func(p any) bool {
		_, ok := p.(types.GaugeValue)
		return ok
	}).(types.GaugeValue)
	if v.RSOC != 76 || v.ITEPermille != 761 || v.CellMilliV != 3912 || v.DeciC != 231 || v.PowerMode != "operational" {
		t.Fatalf("value = %+v", v)
	}
	waitFor(t, conn, capTopic(batAddr, "status"), func(p any) bool {
		s, ok := p.(types.CapabilityStatus)
		return ok && s.Link == types.LinkUp
	})
	waitFor(t, conn, capTopic(tmpAddr, "value"), func(p any) bool {
		tv, ok := p.(types.TemperatureValue)
		return ok && tv.DeciC == 231
	})

	// Polling keeps values flowing.
	sim.mu.Lock()
	sim.regs[0x0D] = 75
	sim.mu.Unlock()
	waitFor(t, conn, capTopic(batAddr, "value"), func(p any) bool {
		gv, ok := p.(types.GaugeValue)
		return ok && gv.RSOC == 75
	})
}

func TestGaugeRegisterAccessOverBus(t *testing.T) {
	conn, sim := bootHAL(t, `{"bus":"i2c0","name":"pack"}`)
	waitFor(t, conn, capTopic(batAddr, "status"), func(p any) bool {
		s, ok := p.(types.CapabilityStatus)
		return ok && s.Link == types.LinkUp
	})

	events := conn.Subscribe(capTopic(batAddr, "event", "reg"))
	defer conn.Unsubscribe(events)

	if r, ok := request(t, conn, core.CapCtrl(batAddr, "reg_write"), types.RegWrite{Reg: "ALARM_LOW_RSOC", Value: 20}).(types.OKReply); !ok || !r.OK {
		t.Fatalf("reg_write reply = %#v", r)
	}
	m, err := recvOrTimeout(events.Channel(), time.Second)
	if err != nil {
		t.Fatal("no reg event")
	}
	if rv := m.Payload.(types.RegValue); !rv.Write || rv.Addr != 0x13 || rv.Error != "" {
		t.Fatalf("reg event = %+v", rv)
	}
	if got := sim.get(0x13); got != 20 {
		t.Fatalf("ALARM_LOW_RSOC = %d", got)
	}

	r := request(t, conn, core.CapCtrl(batAddr, "reg_write"), types.RegWrite{Reg: "NUMBER_OF_THE_PARAMETER", Value: 1})
	if e, ok := r.(types.ErrorReply); !ok || e.Error != "not_writable" {
		t.Fatalf("read-only write reply = %#v", r)
	}
}

func TestGaugeOnMissingBusIsNotRegistered(t *testing.T) {
	conn, _ := bootHAL(t, `{"bus":"i2c3","name":"pack"}`)
	r := request(t, conn, core.CapCtrl(batAddr, "read"), nil)
	if e, ok := r.(types.ErrorReply); !ok || e.Error != "unknown_capability" {
		t.Fatalf("reply = %#v", r)
	}
}
