package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"gaugecode-go/bus"
	"gaugecode-go/errcode"
	"gaugecode-go/types"
)

// ---- test doubles ----

type nopRegistry struct{}

func (nopRegistry) Buses() []ResourceID { return nil }
func (nopRegistry) ClaimI2C(string, ResourceID) (I2COwner, error) {
	return nil, errcode.UnknownBus
}
func (nopRegistry) ReleaseI2C(string, ResourceID) {}

type fakeDevice struct {
	id      string
	pollMs  uint32
	pub     EventEmitter
	initErr error

	mu     sync.Mutex
	verbs  []string
	closed bool
}

func (d *fakeDevice) addr() CapAddr {
	return CapAddr{Domain: "power", Kind: types.KindBattery, Name: d.id}
}

func (d *fakeDevice) ID() string { return d.id }
func (d *fakeDevice) Capabilities() []CapabilitySpec {
	a := d.addr()
	return []CapabilitySpec{{
		Domain: a.Domain, Kind: a.Kind, Name: a.Name,
		Info:   types.Info{SchemaVersion: 1, Driver: "fake"},
		PollMs: d.pollMs,
	}}
}
func (d *fakeDevice) Init(context.Context) error { return d.initErr }
func (d *fakeDevice) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

func (d *fakeDevice) Control(a CapAddr, verb string, payload any) (EnqueueResult, error) {
	d.mu.Lock()
	d.verbs = append(d.verbs, verb)
	d.mu.Unlock()
	switch verb {
	case "read":
		d.pub.Emit(Event{Addr: a, Payload: types.GaugeValue{RSOC: 77}})
		return EnqueueResult{OK: true}, nil
	case "fail":
		d.pub.Emit(Event{Addr: a, Err: string(errcode.IOError)})
		return EnqueueResult{OK: true}, nil
	case "alarm":
		d.pub.Emit(Event{Addr: a, EventTag: "low_rsoc", Payload: types.GaugeAlarmEvent{RSOC: 3}})
		return EnqueueResult{OK: true}, nil
	case "describe":
		d.pub.Emit(Event{Addr: a, Info: true, Payload: types.Info{SchemaVersion: 2, Driver: "fake"}})
		return EnqueueResult{OK: true}, nil
	case "full":
		return EnqueueResult{OK: false, Error: errcode.Busy}, nil
	default:
		return EnqueueResult{OK: false, Error: errcode.Unsupported}, nil
	}
}

func (d *fakeDevice) count(verb string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, v := range d.verbs {
		if v == verb {
			n++
		}
	}
	return n
}

type fakeBuilder struct {
	mu   sync.Mutex
	devs map[string]*fakeDevice
	poll uint32
	fail error
}

func (b *fakeBuilder) Build(_ context.Context, in BuilderInput) (Device, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d := &fakeDevice{id: in.ID, pollMs: b.poll, pub: in.Res.Pub, initErr: b.fail}
	b.devs[in.ID] = d
	return d, nil
}

func (b *fakeBuilder) get(id string) *fakeDevice {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.devs[id]
}

var (
	fakes     = &fakeBuilder{devs: map[string]*fakeDevice{}}
	fakesPoll = &fakeBuilder{devs: map[string]*fakeDevice{}, poll: 20}
	fakesBad  = &fakeBuilder{devs: map[string]*fakeDevice{}, fail: errcode.IOError}
)

func init() {
	RegisterBuilder("test_fake", fakes)
	RegisterBuilder("test_fake_poll", fakesPoll)
	RegisterBuilder("test_fake_bad", fakesBad)
}

// ---- harness ----

func startHAL(t *testing.T, devs ...types.HALDevice) (*bus.Bus, *bus.Connection) {
	t.Helper()
	b := bus.NewBus(16)
	halConn := b.NewConnection("hal")
	h := NewHAL(halConn, nopRegistry{})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.Run(ctx)

	user := b.NewConnection("user")
	waitRetained(t, user, bus.T("hal", "state"), func(p any) bool {
		_, ok := p.(types.HALState)
		return ok
	})
	if devs != nil {
		user.Publish(user.NewMessage(bus.T("config", "hal"), types.HALConfig{Devices: devs}, true))
		waitRetained(t, user, bus.T("hal", "state"), func(p any) bool {
			s, ok := p.(types.HALState)
			return ok && s.Level == "ready"
		})
	}
	return b, user
}

func waitRetained(t *testing.T, c *bus.Connection, topic bus.Topic, ok func(any) bool) any {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		sub := c.Subscribe(topic)
		select {
		case m := <-sub.Channel():
			if ok(m.Payload) {
				c.Unsubscribe(sub)
				return m.Payload
			}
		case <-time.After(10 * time.Millisecond):
		}
		c.Unsubscribe(sub)
	}
	t.Fatalf("no matching retained message on %v", topic)
	return nil
}

func request(t *testing.T, c *bus.Connection, topic bus.Topic, payload any) any {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	m, err := c.RequestWait(ctx, c.NewMessage(topic, payload, false))
	if err != nil {
		t.Fatalf("request %v: %v", topic, err)
	}
	return m.Payload
}

func statusIs(link types.Link, code string) func(any) bool {
	return func(p any) bool {
		s, ok := p.(types.CapabilityStatus)
		return ok && s.Link == link && s.Error == code
	}
}

// ---- tests ----

func TestControlsRejectedBeforeConfig(t *testing.T) {
	_, user := startHAL(t)
	a := CapAddr{Domain: "power", Kind: types.KindBattery, Name: "x"}
	got := request(t, user, CapCtrl(a, "read"), nil)
	if r, ok := got.(types.ErrorReply); !ok || r.Error != string(errcode.HALNotReady) {
		t.Fatalf("reply = %#v", got)
	}
}

func TestRegistrationPublishesInfoAndDownStatus(t *testing.T) {
	_, user := startHAL(t, types.HALDevice{ID: "g1", Type: "test_fake"})
	a := CapAddr{Domain: "power", Kind: types.KindBattery, Name: "g1"}

	info := waitRetained(t, user, capInfo(a), func(p any) bool { _, ok := p.(types.Info); return ok })
	if info.(types.Info).Driver != "fake" {
		t.Fatalf("info = %#v", info)
	}
	waitRetained(t, user, capStatus(a), statusIs(types.LinkDown, ""))
}

func TestInfoEventReplacesRetainedInfo(t *testing.T) {
	_, user := startHAL(t, types.HALDevice{ID: "g1i", Type: "test_fake"})
	a := CapAddr{Domain: "power", Kind: types.KindBattery, Name: "g1i"}

	request(t, user, CapCtrl(a, "describe"), nil)
	waitRetained(t, user, capInfo(a), func(p any) bool {
		i, ok := p.(types.Info)
		return ok && i.SchemaVersion == 2
	})
	// Status is untouched by an info update.
	waitRetained(t, user, capStatus(a), statusIs(types.LinkDown, ""))
}

func TestReadControlPublishesValueAndUp(t *testing.T) {
	_, user := startHAL(t, types.HALDevice{ID: "g2", Type: "test_fake"})
	a := CapAddr{Domain: "power", Kind: types.KindBattery, Name: "g2"}

	if r, ok := request(t, user, CapCtrl(a, "read"), nil).(types.OKReply); !ok || !r.OK {
		t.Fatalf("read not acknowledged: %#v", r)
	}
	v := waitRetained(t, user, capValue(a), func(p any) bool { _, ok := p.(types.GaugeValue); return ok })
	if v.(types.GaugeValue).RSOC != 77 {
		t.Fatalf("value = %#v", v)
	}
	waitRetained(t, user, capStatus(a), statusIs(types.LinkUp, ""))
}

func TestErrorEventDegradesStatus(t *testing.T) {
	_, user := startHAL(t, types.HALDevice{ID: "g3", Type: "test_fake"})
	a := CapAddr{Domain: "power", Kind: types.KindBattery, Name: "g3"}

	request(t, user, CapCtrl(a, "fail"), nil)
	waitRetained(t, user, capStatus(a), statusIs(types.LinkDegraded, string(errcode.IOError)))
}

func TestTaggedEventIsNotRetained(t *testing.T) {
	_, user := startHAL(t, types.HALDevice{ID: "g4", Type: "test_fake"})
	a := CapAddr{Domain: "power", Kind: types.KindBattery, Name: "g4"}

	sub := user.Subscribe(capEvent(a, "low_rsoc"))
	request(t, user, CapCtrl(a, "alarm"), nil)
	select {
	case m := <-sub.Channel():
		if m.Retained {
			t.Fatal("event must not be retained")
		}
		if ev, ok := m.Payload.(types.GaugeAlarmEvent); !ok || ev.RSOC != 3 {
			t.Fatalf("payload = %#v", m.Payload)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("no event")
	}
}

func TestControlErrorReplies(t *testing.T) {
	_, user := startHAL(t, types.HALDevice{ID: "g5", Type: "test_fake"})
	a := CapAddr{Domain: "power", Kind: types.KindBattery, Name: "g5"}

	cases := []struct {
		topic bus.Topic
		want  errcode.Code
	}{
		{CapCtrl(a, "full"), errcode.Busy},
		{CapCtrl(a, "bogus"), errcode.Unsupported},
		{CapCtrl(CapAddr{Domain: "power", Kind: types.KindBattery, Name: "nope"}, "read"), errcode.UnknownCapability},
	}
	for _, tc := range cases {
		r, ok := request(t, user, tc.topic, nil).(types.ErrorReply)
		if !ok || r.Error != string(tc.want) {
			t.Fatalf("%v: reply = %#v, want %s", tc.topic, r, tc.want)
		}
	}
}

func TestPollIntervalDrivesReads(t *testing.T) {
	startHAL(t, types.HALDevice{ID: "p1", Type: "test_fake_poll"})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if d := fakesPoll.get("p1"); d != nil && d.count("read") >= 2 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("poller did not issue reads")
}

func TestInitFailureClosesDevice(t *testing.T) {
	_, user := startHAL(t, types.HALDevice{ID: "b1", Type: "test_fake_bad"})
	a := CapAddr{Domain: "power", Kind: types.KindBattery, Name: "b1"}

	if r, ok := request(t, user, CapCtrl(a, "read"), nil).(types.ErrorReply); !ok || r.Error != string(errcode.UnknownCapability) {
		t.Fatalf("reply = %#v", r)
	}
	d := fakesBad.get("b1")
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		t.Fatal("device not closed after init failure")
	}
}

func TestDuplicateBuilderPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	RegisterBuilder("test_fake", fakes)
}

func TestAsAcceptsValueAndPointer(t *testing.T) {
	v, code := As[types.GaugeProfile](types.GaugeProfile{Profile: 1})
	if code != "" || v.Profile != 1 {
		t.Fatalf("value: %v %q", v, code)
	}
	p, code := As[types.GaugeProfile](&types.GaugeProfile{Profile: 1})
	if code != "" || p.Profile != 1 {
		t.Fatalf("pointer: %v %q", p, code)
	}
	if _, code := As[types.GaugeProfile]("nope"); code != errcode.InvalidPayload {
		t.Fatalf("wrong type: %q", code)
	}
	var nilp *types.GaugeProfile
	if _, code := As[types.GaugeProfile](nilp); code != errcode.InvalidPayload {
		t.Fatalf("nil pointer: %q", code)
	}
}

func TestConfigPollersScheduleReads(t *testing.T) {
	b := bus.NewBus(16)
	h := NewHAL(b.NewConnection("hal"), nopRegistry{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	user := b.NewConnection("user")
	waitRetained(t, user, bus.T("hal", "state"), func(p any) bool { _, ok := p.(types.HALState); return ok })
	user.Publish(user.NewMessage(bus.T("config", "hal"), &types.HALConfig{
		Devices: []types.HALDevice{{ID: "s1", Type: "test_fake"}},
		Pollers: []types.PollSpec{{Domain: "power", Kind: types.KindBattery, Name: "s1", IntervalMs: 20}},
	}, true))

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if d := fakes.get("s1"); d != nil && d.count("read") >= 2 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("configured poller did not issue reads")
}
