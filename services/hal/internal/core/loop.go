package core

import (
	"context"

	"gaugecode-go/bus"
	"gaugecode-go/errcode"
	"gaugecode-go/types"
	"gaugecode-go/x/timex"
)

const (
	eventQueueLen = 32
	pollQueueLen  = 8
)

type HAL struct {
	conn *bus.Connection
	res  Resources

	// Device registry
	dev map[string]Device // devID -> device

	// Capability index: addr -> devID
	capIndex map[CapAddr]string

	poller *Poller
	pollCh chan PollReq

	// Single-threaded publication of device events
	evCh chan Event
}

func NewHAL(conn *bus.Connection, reg ResourceRegistry) *HAL {
	h := &HAL{
		conn:     conn,
		dev:      map[string]Device{},
		capIndex: map[CapAddr]string{},
		pollCh:   make(chan PollReq, pollQueueLen),
		evCh:     make(chan Event, eventQueueLen),
	}
	h.poller = NewPoller(h.pollCh)
	// HAL provides the emitter to devices.
	h.res = Resources{Reg: reg, Pub: h}
	return h
}

func (h *HAL) Run(ctx context.Context) {
	cfgSub := h.conn.Subscribe(topicConfigHAL())
	ctrlSub := h.conn.Subscribe(ctrlWildcard())
	defer h.conn.Unsubscribe(cfgSub)
	defer h.conn.Unsubscribe(ctrlSub)

	go h.poller.Run(ctx)
	h.pubHALState("idle", "")

	ready := false
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			h.pubHALState("stopped", "context_cancelled")
			return
		case msg := <-cfgSub.Channel():
			cfg, code := As[types.HALConfig](msg.Payload)
			if code != "" {
				println("[hal] ignoring config of unexpected type")
				continue
			}
			// Additive: devices already running are left alone.
			h.applyConfig(ctx, cfg)
			if !ready {
				ready = true
				h.pubHALState("ready", "")
			}
		case m := <-ctrlSub.Channel():
			if !ready {
				h.replyErr(m, errcode.HALNotReady)
				continue
			}
			h.handleControl(m)
		case pr := <-h.pollCh:
			h.handlePoll(pr)
		case ev := <-h.evCh:
			// All device→HAL telemetry is published from this goroutine.
			h.handleEvent(ev)
		}
	}
}

func (h *HAL) applyConfig(ctx context.Context, cfg types.HALConfig) {
	for _, dc := range cfg.Devices {
		if _, exists := h.dev[dc.ID]; exists {
			continue
		}
		b, ok := lookupBuilder(dc.Type)
		if !ok {
			println("[hal] no builder for type:", dc.Type, "id:", dc.ID)
			continue
		}
		dev, err := b.Build(ctx, BuilderInput{
			ID:     dc.ID,
			Type:   dc.Type,
			Params: dc.Params,
			Res:    h.res,
		})
		if err != nil {
			println("[hal] build failed for:", dc.ID, "err:", err.Error())
			continue
		}

		// Register capabilities before Init so early events have a home.
		for _, cs := range dev.Capabilities() {
			a := cs.Addr()
			if a.Name == "" {
				a.Name = dev.ID()
			}
			h.capIndex[a] = dev.ID()
			h.pubInfo(a, cs.Info)
			h.pubStatus(a, types.LinkDown, timex.NowMs(), "")
			if cs.PollMs > 0 {
				every := timex.Ms(cs.PollMs)
				h.poller.Upsert(a, "read", every, every/10)
			}
		}

		if err := dev.Init(ctx); err != nil {
			println("[hal] init failed for:", dc.ID, "err:", err.Error())
			h.forget(dev)
			_ = dev.Close()
			continue
		}
		h.dev[dev.ID()] = dev
	}

	for _, ps := range cfg.Pollers {
		verb := ps.Verb
		if verb == "" {
			verb = "read"
		}
		h.poller.Upsert(
			CapAddr{Domain: ps.Domain, Kind: ps.Kind, Name: ps.Name},
			verb, timex.Ms(ps.IntervalMs), timex.Ms(ps.JitterMs),
		)
	}
}

// forget drops the capability index and schedules of a device that failed
// to start.
func (h *HAL) forget(dev Device) {
	for a, id := range h.capIndex {
		if id == dev.ID() {
			delete(h.capIndex, a)
			h.poller.Stop(a, "read")
		}
	}
}

func (h *HAL) handleControl(msg *bus.Message) {
	// hal/cap/<domain>/<kind>/<name>/control/<verb>
	if msg.Topic.Len() != 7 {
		h.replyErr(msg, errcode.InvalidTopic)
		return
	}
	domain, _ := msg.Topic.At(2).(string)
	kind, _ := msg.Topic.At(3).(string)
	name, _ := msg.Topic.At(4).(string)
	verb, _ := msg.Topic.At(6).(string)
	a := CapAddr{Domain: domain, Kind: types.Kind(kind), Name: name}

	dev := h.owner(a)
	if dev == nil {
		h.replyErr(msg, errcode.UnknownCapability)
		return
	}

	res, err := dev.Control(a, verb, msg.Payload)
	if err != nil {
		h.replyErr(msg, errcode.Of(err))
		return
	}
	if res.OK {
		h.replyOK(msg)
		return
	}
	h.replyErr(msg, mapOr(res.Error, errcode.Busy))
}

func (h *HAL) handlePoll(pr PollReq) {
	if dev := h.owner(pr.Addr); dev != nil {
		_, _ = dev.Control(pr.Addr, pr.Verb, nil)
	}
}

func (h *HAL) owner(a CapAddr) Device {
	id, ok := h.capIndex[a]
	if !ok {
		return nil
	}
	return h.dev[id]
}

func (h *HAL) handleEvent(ev Event) {
	a := ev.Addr
	ts := ev.TS
	if ts == 0 {
		ts = timex.NowMs()
	}

	// 1) Error → retained status:degraded; no value/event published.
	if ev.Err != "" {
		h.pubStatus(a, types.LinkDegraded, ts, ev.Err)
		return
	}

	// 2) Info replaces the retained capability description.
	if ev.Info {
		h.pubInfo(a, ev.Payload)
		return
	}

	// 3) Tagged events are transient and leave status untouched.
	if ev.EventTag != "" {
		h.conn.Publish(h.conn.NewMessage(capEvent(a, ev.EventTag), ev.Payload, false))
		return
	}

	// 4) Values are retained and imply the capability is up.
	h.pubValue(a, ev.Payload, ts)
}

func (h *HAL) closeAll() {
	for id, d := range h.dev {
		_ = d.Close()
		delete(h.dev, id)
	}
}

func (h *HAL) pubHALState(level, status string) {
	h.conn.Publish(h.conn.NewMessage(
		topicHALState(),
		types.HALState{Level: level, Status: status, TS: timex.NowMs()},
		true,
	))
}

// ---- HAL as EventEmitter (enqueue to single publisher) ----

func (h *HAL) Emit(ev Event) bool {
	select {
	case h.evCh <- ev:
		return true
	default:
		return false
	}
}
