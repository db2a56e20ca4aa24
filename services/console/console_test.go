package console

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"gaugecode-go/bus"
	"gaugecode-go/types"
)

// fakeGauge answers controls for power/battery/pack the way HAL and the
// gauge device do: a reply first, then event/reg for register accesses.
type fakeGauge struct {
	mu    sync.Mutex
	regs  map[string]uint16
	verbs []string
	reply types.ErrorReply // non-empty Error rejects every control
}

func (f *fakeGauge) run(ctx context.Context, conn *bus.Connection, sub *bus.Subscription) {
	defer conn.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-sub.Channel():
			verb, _ := m.Topic.At(6).(string)
			f.mu.Lock()
			f.verbs = append(f.verbs, verb)
			rej := f.reply
			f.mu.Unlock()
			if rej.Error != "" {
				conn.Reply(m, rej, false)
				continue
			}
			conn.Reply(m, types.OKReply{OK: true}, false)

			var rv types.RegValue
			switch p := m.Payload.(type) {
			case types.RegRead:
				f.mu.Lock()
				rv = types.RegValue{Reg: strings.ToUpper(p.Reg), Addr: 0x0D, Value: f.regs[strings.ToUpper(p.Reg)]}
				f.mu.Unlock()
			case types.RegWrite:
				f.mu.Lock()
				f.regs[strings.ToUpper(p.Reg)] = p.Value
				f.mu.Unlock()
				rv = types.RegValue{Reg: strings.ToUpper(p.Reg), Addr: 0x0C, Value: p.Value, Write: true}
			default:
				continue
			}
			conn.Publish(conn.NewMessage(bus.T("hal", "cap", "power", "battery", "pack", "event", "reg"), rv, false))
		}
	}
}

func (f *fakeGauge) lastVerb() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.verbs) == 0 {
		return ""
	}
	return f.verbs[len(f.verbs)-1]
}

func setup(t *testing.T) (*Console, *fakeGauge, *bytes.Buffer, *bus.Bus) {
	t.Helper()
	b := bus.NewBus(16)
	g := &fakeGauge{regs: map[string]uint16{"RSOC": 0x32}}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	gc := b.NewConnection("gauge")
	sub := gc.Subscribe(bus.T("hal", "cap", "power", "battery", "pack", "control", bus.SingleWild))
	go g.run(ctx, gc, sub)

	var out bytes.Buffer
	c := New(b.NewConnection("console"), &out).WithTimeout(300 * time.Millisecond)
	return c, g, &out, b
}

func TestGetPrintsRegister(t *testing.T) {
	c, g, out, _ := setup(t)
	if err := c.Exec(context.Background(), "get pack rsoc"); err != nil {
		t.Fatal(err)
	}
	if g.lastVerb() != "reg_read" {
		t.Fatalf("verb = %q", g.lastVerb())
	}
	if got := out.String(); !strings.Contains(got, "RSOC (0x0D) = 0x0032 (50)") {
		t.Fatalf("output = %q", got)
	}
}

func TestSetParsesHexAndDecimal(t *testing.T) {
	c, g, out, _ := setup(t)
	for _, line := range []string{"set pack APT 0x3000", `set "pack" APT 42`} {
		if err := c.Exec(context.Background(), line); err != nil {
			t.Fatalf("%s: %v", line, err)
		}
	}
	g.mu.Lock()
	got := g.regs["APT"]
	g.mu.Unlock()
	if got != 42 {
		t.Fatalf("APT = %d", got)
	}
	if !strings.Contains(out.String(), "APT (0x0C) <- 0x3000 (12288)") {
		t.Fatalf("output = %q", out.String())
	}
}

func TestModeAndInitSendControls(t *testing.T) {
	c, g, out, _ := setup(t)
	cases := map[string]string{
		"mode pack sleep":   "set_power_mode",
		"init pack before":  "init_rsoc",
		"MODE pack op":      "set_power_mode",
		"init pack initial": "init_rsoc",
	}
	for line, verb := range cases {
		if err := c.Exec(context.Background(), line); err != nil {
			t.Fatalf("%s: %v", line, err)
		}
		if g.lastVerb() != verb {
			t.Fatalf("%s: verb = %q", line, g.lastVerb())
		}
	}
	if strings.Count(out.String(), "ok\n") != len(cases) {
		t.Fatalf("output = %q", out.String())
	}
}

func TestErrorReplyIsReturned(t *testing.T) {
	c, g, _, _ := setup(t)
	g.mu.Lock()
	g.reply = types.ErrorReply{Error: "not_writable"}
	g.mu.Unlock()
	err := c.Exec(context.Background(), "set pack RSOC 1")
	if err == nil || err.Error() != "not_writable" {
		t.Fatalf("err = %v", err)
	}
}

func TestUsageErrors(t *testing.T) {
	c, _, _, _ := setup(t)
	for _, line := range []string{"get pack", "set pack APT", "mode pack fast", "init pack now", "show"} {
		if err := c.Exec(context.Background(), line); !errors.Is(err, ErrUsage) {
			t.Errorf("%q: err = %v", line, err)
		}
	}
	if err := c.Exec(context.Background(), "set pack APT 0x10000"); err == nil {
		t.Error("out-of-range value accepted")
	}
	if err := c.Exec(context.Background(), "frob"); err == nil {
		t.Error("unknown command accepted")
	}
	if err := c.Exec(context.Background(), `get "pack`); err == nil {
		t.Error("unterminated quote accepted")
	}
}

func TestUnknownDeviceTimesOut(t *testing.T) {
	c, _, _, _ := setup(t)
	if err := c.Exec(context.Background(), "mode other sleep"); err != ErrNoAnswer {
		t.Fatalf("err = %v", err)
	}
}

func TestRegsListsCatalog(t *testing.T) {
	c, _, out, _ := setup(t)
	if err := c.Exec(context.Background(), "regs"); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"BEFORE_RSOC", "0x1A", "NUMBER_OF_THE_PARAMETER", "0x0D34"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("regs output missing %q", want)
		}
	}
}

func TestShowPrintsRetainedState(t *testing.T) {
	c, _, out, b := setup(t)
	pub := b.NewConnection("hal")
	pub.Publish(pub.NewMessage(bus.T("hal", "cap", "power", "battery", "pack", "value"),
		types.GaugeValue{RSOC: 50, ITEPermille: 503, CellMilliV: 3700, DeciC: -5, Direction: "auto", PowerMode: "operational"}, true))
	pub.Publish(pub.NewMessage(bus.T("hal", "cap", "power", "battery", "pack", "status"),
		types.CapabilityStatus{Link: types.LinkUp}, true))

	if err := c.Exec(context.Background(), "show pack"); err != nil {
		t.Fatal(err)
	}
	got := out.String()
	if !strings.Contains(got, "rsoc=50% ite=50.3% cell=3700mV temp=-0.5C") || !strings.Contains(got, "link=up") {
		t.Fatalf("output = %q", got)
	}
	if err := c.Exec(context.Background(), "show nobody"); err == nil {
		t.Fatal("missing gauge not reported")
	}
}

func TestRunLoop(t *testing.T) {
	c, _, out, _ := setup(t)
	in := strings.NewReader("help\n\nbogus\n")
	if err := c.Run(context.Background(), in); err != nil {
		t.Fatal(err)
	}
	got := out.String()
	if !strings.Contains(got, "commands:") || !strings.Contains(got, "error: unknown command") {
		t.Fatalf("output = %q", got)
	}
}

func TestWithDomainAddressesOtherDomain(t *testing.T) {
	b := bus.NewBus(8)
	pub := b.NewConnection("hal")
	pub.Publish(pub.NewMessage(bus.T("hal", "cap", "bench", "battery", "cell1", "status"),
		types.CapabilityStatus{Link: types.LinkDegraded, Error: "crc_error"}, true))

	var out bytes.Buffer
	c := New(b.NewConnection("console"), &out).WithDomain("bench").WithDomain("")
	if err := c.Exec(context.Background(), "show cell1"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "link=degraded error=crc_error") {
		t.Fatalf("output = %q", out.String())
	}
}
