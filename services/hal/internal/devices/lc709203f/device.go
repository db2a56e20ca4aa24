package lc709203f

import (
	"context"
	"sync/atomic"
	"time"

	gauge "gaugecode-go/drivers/lc709203f"
	"gaugecode-go/errcode"
	"gaugecode-go/services/hal/internal/core"
	"gaugecode-go/services/hal/internal/drvshim"
	"gaugecode-go/types"
	"gaugecode-go/x/timex"
)

const (
	queueLen = 8

	// Consecutive failed samples before the gauge is configured again.
	maxFailures = 3

	// RSOC initialisation needs 1.5 ms before the next access.
	initSettle = 2 * time.Millisecond
)

// Device is a single-goroutine HAL device for the LC709203F.
type Device struct {
	id   string
	aBat core.CapAddr // <domain>/battery/<name>
	aTmp core.CapAddr // <domain>/temperature/<name>

	res    core.Resources
	params Params
	bus    *drvshim.GaugeBus
	alive  atomic.Bool

	reqCh chan request
	stop  context.CancelFunc
	done  chan struct{}

	// Owned by the worker only:
	gauge      *gauge.Device
	configured bool
	failures   int
	source     string // current temperature source
	tempRaw    uint16 // last host-supplied temperature, 0.1 K
	alarmRSOC  uint16
	alarmMilli uint16
	lowRSOC    bool
	lowVolt    bool
}

type opCode uint8

const (
	opSample opCode = iota
	opSetPowerMode
	opInitRSOC
	opSetDirection
	opSetAlarms
	opSetProfile
	opRegRead
	opRegWrite
	opSetTemp
)

type request struct {
	op  opCode
	arg any
}

type regOp struct {
	reg   gauge.Register
	value uint16
}

// ---- core.Device ----

func (d *Device) ID() string { return d.id }

func batteryInfo(gi types.GaugeInfo) types.Info {
	return types.Info{SchemaVersion: 1, Driver: "lc709203f", Detail: gi}
}

func (d *Device) Capabilities() []core.CapabilitySpec {
	gi := types.GaugeInfo{
		Bus:        d.params.Bus,
		Addr:       d.params.Addr,
		TempSource: d.params.TempSource,
	}
	if d.params.Profile != nil {
		gi.Profile = *d.params.Profile
	}
	return []core.CapabilitySpec{
		{
			Domain: d.aBat.Domain, Kind: types.KindBattery, Name: d.aBat.Name,
			Info:   batteryInfo(gi),
			PollMs: d.params.PollMs,
		},
		{
			Domain: d.aTmp.Domain, Kind: types.KindTemperature, Name: d.aTmp.Name,
			Info: types.Info{SchemaVersion: 1, Driver: "lc709203f", Detail: types.TemperatureInfo{
				Sensor: "lc709203f", Source: d.params.TempSource, Addr: d.params.Addr, Bus: d.params.Bus,
			}},
		},
	}
}

func (d *Device) Init(ctx context.Context) error {
	d.reqCh = make(chan request, queueLen)
	d.done = make(chan struct{})
	ctx, d.stop = context.WithCancel(ctx)
	d.alive.Store(true)
	go d.worker(ctx)
	return nil
}

// Close stops the worker and waits briefly for it. The bus claim is released
// by the worker on exit, after its last transaction.
func (d *Device) Close() error {
	if !d.alive.Swap(false) {
		return nil
	}
	d.stop()
	t := time.NewTimer(300 * time.Millisecond)
	defer t.Stop()
	select {
	case <-d.done:
	case <-t.C:
		println("[lc709203f]", d.id, "worker still on the bus after close")
	}
	return nil
}

func (d *Device) Control(a core.CapAddr, verb string, payload any) (core.EnqueueResult, error) {
	send := func(req request) (core.EnqueueResult, error) {
		if !d.alive.Load() {
			return core.EnqueueResult{Error: errcode.Unavailable}, nil
		}
		select {
		case d.reqCh <- req:
			return core.EnqueueResult{OK: true}, nil
		default:
			return core.EnqueueResult{Error: errcode.Busy}, nil
		}
	}
	reject := func(c errcode.Code) (core.EnqueueResult, error) {
		return core.EnqueueResult{Error: c}, nil
	}

	if a.Kind == types.KindTemperature {
		switch verb {
		case "read":
			return send(request{op: opSample})
		case "set":
			v, code := core.As[types.TemperatureSet](payload)
			if code != "" {
				return reject(code)
			}
			return send(request{op: opSetTemp, arg: v})
		}
		return reject(errcode.Unsupported)
	}

	switch verb {
	case "read":
		return send(request{op: opSample})

	case "set_power_mode":
		v, code := core.As[types.GaugePowerMode](payload)
		if code != "" {
			return reject(code)
		}
		return send(request{op: opSetPowerMode, arg: v})

	case "init_rsoc":
		v, code := core.As[types.GaugeInitRSOC](payload)
		if code != "" {
			return reject(code)
		}
		return send(request{op: opInitRSOC, arg: v})

	case "set_current_direction":
		v, code := core.As[types.GaugeCurrentDirection](payload)
		if code != "" {
			return reject(code)
		}
		dir, ok := parseDirection(v.Direction)
		if !ok {
			return reject(errcode.InvalidPayload)
		}
		return send(request{op: opSetDirection, arg: dir})

	case "set_alarms":
		v, code := core.As[types.GaugeAlarms](payload)
		if code != "" {
			return reject(code)
		}
		if v.LowRSOC > uint16(gauge.RSOCMax) {
			return reject(errcode.ValueRange)
		}
		return send(request{op: opSetAlarms, arg: v})

	case "set_profile":
		v, code := core.As[types.GaugeProfile](payload)
		if code != "" {
			return reject(code)
		}
		if v.Profile > gauge.ProfileB {
			return reject(errcode.ValueRange)
		}
		return send(request{op: opSetProfile, arg: v.Profile})

	case "reg_read":
		v, code := core.As[types.RegRead](payload)
		if code != "" {
			return reject(code)
		}
		reg, ok := gauge.Lookup(v.Reg)
		if !ok {
			return reject(errcode.UnknownRegister)
		}
		if !reg.Readable() {
			return reject(errcode.NotReadable)
		}
		return send(request{op: opRegRead, arg: regOp{reg: reg}})

	case "reg_write":
		v, code := core.As[types.RegWrite](payload)
		if code != "" {
			return reject(code)
		}
		reg, ok := gauge.Lookup(v.Reg)
		if !ok {
			return reject(errcode.UnknownRegister)
		}
		if !reg.Writable() {
			return reject(errcode.NotWritable)
		}
		if v.Value&^reg.Mask() != 0 {
			return reject(errcode.ValueRange)
		}
		return send(request{op: opRegWrite, arg: regOp{reg: reg, value: v.Value}})
	}
	return reject(errcode.Unsupported)
}

// ---- worker ----

func (d *Device) worker(ctx context.Context) {
	defer close(d.done)
	defer d.release()
	defer d.alive.Store(false)

	if d.configure() {
		d.sample()
	}
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-d.reqCh:
			// Queued requests are dropped once stopped.
			if ctx.Err() != nil {
				return
			}
			if !d.configured && !d.configure() {
				continue
			}
			d.handle(req)
		}
	}
}

func (d *Device) handle(req request) {
	switch req.op {
	case opSample:
		d.sample()

	case opSetPowerMode:
		mode := gauge.PowerModeOperational
		if req.arg.(types.GaugePowerMode).Sleep {
			mode = gauge.PowerModeSleep
		}
		d.writeThenSample(d.gauge.SetICPowerMode(mode))

	case opInitRSOC:
		var err error
		if req.arg.(types.GaugeInitRSOC).Before {
			err = d.gauge.SetBeforeRSOC(gauge.InitRSOC)
		} else {
			err = d.gauge.SetInitialRSOC(gauge.InitRSOC)
		}
		if err == nil {
			time.Sleep(initSettle)
		}
		d.writeThenSample(err)

	case opSetDirection:
		d.writeThenSample(d.gauge.SetCurrentDirection(req.arg.(uint16)))

	case opSetAlarms:
		v := req.arg.(types.GaugeAlarms)
		err := d.gauge.SetAlarmLowRSOC(v.LowRSOC)
		if err == nil {
			err = d.gauge.SetAlarmLowCellVoltage(v.LowMilliV)
		}
		if err == nil {
			d.alarmRSOC, d.alarmMilli = v.LowRSOC, v.LowMilliV
			d.lowRSOC, d.lowVolt = false, false
		}
		d.writeThenSample(err)

	case opSetProfile:
		d.writeThenSample(d.gauge.SetChangeOfParam(req.arg.(uint16)))

	case opRegRead:
		op := req.arg.(regOp)
		v, err := gauge.Peek(d.bus, op.reg)
		d.emitReg(op.reg, v, false, err)

	case opRegWrite:
		op := req.arg.(regOp)
		err := gauge.Poke(d.bus, op.reg, op.value)
		if err == nil {
			switch op.reg.Addr {
			case gauge.StatusBit.Register().Addr:
				d.source = SourceI2C
				if op.value == gauge.TemperatureSourceThermistor {
					d.source = SourceThermistor
				}
			case gauge.CellTemperatureI2C.Register().Addr:
				d.tempRaw = op.value
			}
		}
		d.emitReg(op.reg, op.value, true, err)

	case opSetTemp:
		if d.source != SourceI2C {
			d.emitErr(d.aTmp, errcode.Unsupported)
			return
		}
		raw := kelvin10(req.arg.(types.TemperatureSet).DeciC)
		if err := d.gauge.SetCellTemperature(raw); err != nil {
			d.emitErr(d.aTmp, errcode.MapDriverErr(err))
			return
		}
		d.tempRaw = raw
		d.emit(core.Event{Addr: d.aTmp, Payload: types.TemperatureValue{DeciC: deciC(raw)}})
	}
}

// configure brings the gauge to the configured state. On failure the battery
// capability is degraded and the next request retries.
func (d *Device) configure() bool {
	p := d.params
	steps := []func() error{
		func() error { return d.gauge.SetICPowerMode(gauge.PowerModeOperational) },
	}
	if p.APA != 0 {
		steps = append(steps, func() error { return d.gauge.SetAPA(p.APA) })
	}
	if p.APT != 0 {
		steps = append(steps, func() error { return d.gauge.SetAPT(p.APT) })
	}
	if p.ThermistorB != 0 {
		steps = append(steps, func() error { return d.gauge.SetThermistorB(p.ThermistorB) })
	}
	if p.Profile != nil {
		steps = append(steps, func() error { return d.gauge.SetChangeOfParam(*p.Profile) })
	}
	steps = append(steps, func() error { return d.gauge.SetStatusBit(tempSourceValue(p.TempSource)) })
	if p.TempSource == SourceI2C {
		steps = append(steps, func() error { return d.gauge.SetCellTemperature(d.tempRaw) })
	}
	steps = append(steps,
		func() error { return d.gauge.SetAlarmLowRSOC(p.AlarmLowRSOC) },
		func() error { return d.gauge.SetAlarmLowCellVoltage(p.AlarmLowMilliV) },
	)
	switch p.InitRSOC {
	case "before":
		steps = append(steps, func() error { return d.gauge.SetBeforeRSOC(gauge.InitRSOC) })
	case "initial":
		steps = append(steps, func() error { return d.gauge.SetInitialRSOC(gauge.InitRSOC) })
	}

	for _, step := range steps {
		if err := step(); err != nil {
			d.configured = false
			d.emitErr(d.aBat, errcode.MapDriverErr(err))
			return false
		}
	}
	if p.InitRSOC != "" {
		time.Sleep(initSettle)
	}

	d.source = p.TempSource
	d.alarmRSOC, d.alarmMilli = p.AlarmLowRSOC, p.AlarmLowMilliV
	d.lowRSOC, d.lowVolt = false, false
	d.failures = 0
	d.configured = true

	info := types.GaugeInfo{Bus: p.Bus, Addr: d.bus.Addr(), TempSource: d.source}
	ver, err := d.wide(gauge.ICVersion.Register())
	if err == nil {
		info.ICVersion = ver
		info.ParamCode, err = d.gauge.NumberOfTheParameter()
	}
	if err == nil {
		info.Profile, err = d.gauge.ChangeOfParam()
	}
	if err != nil {
		d.emitErr(d.aBat, errcode.MapDriverErr(err))
		return true
	}
	if !gauge.KnownParam(info.ParamCode) {
		println("[lc709203f]", d.id, "unrecognised parameter code", info.ParamCode)
	}
	d.emit(core.Event{Addr: d.aBat, EventTag: "identified", Payload: info})
	d.emit(core.Event{Addr: d.aBat, Info: true, Payload: batteryInfo(info)})
	if p.ExpectParam != 0 && info.ParamCode != p.ExpectParam {
		d.emitErr(d.aBat, errcode.ParamMismatch)
	}
	return true
}

// sample reads the measurement registers and publishes both capabilities.
func (d *Device) sample() {
	v, raw, err := d.measure()
	if err != nil {
		code := errcode.MapDriverErr(err)
		d.emitErr(d.aBat, code)
		d.emitErr(d.aTmp, code)
		d.failures++
		if d.failures >= maxFailures {
			println("[lc709203f]", d.id, "reconfiguring after", d.failures, "failures")
			d.configured = false
			d.configure()
		}
		return
	}
	d.failures = 0

	d.emit(core.Event{Addr: d.aBat, Payload: v})
	d.emit(core.Event{Addr: d.aTmp, Payload: types.TemperatureValue{DeciC: deciC(raw)}})
	d.edges(v)
}

func (d *Device) measure() (types.GaugeValue, uint16, error) {
	var v types.GaugeValue
	var err error
	if v.RSOC, err = d.gauge.RSOC(); err != nil {
		return v, 0, err
	}
	if v.ITEPermille, err = d.wide(gauge.ITE.Register()); err != nil {
		return v, 0, err
	}
	if v.ITEPermille > gauge.ITEMax {
		return v, 0, errcode.ValueRange
	}
	if v.CellMilliV, err = d.wide(gauge.CellVoltage.Register()); err != nil {
		return v, 0, err
	}
	dir, err := d.gauge.CurrentDirection()
	if err != nil {
		return v, 0, err
	}
	mode, err := d.gauge.ICPowerMode()
	if err != nil {
		return v, 0, err
	}
	raw := d.tempRaw
	if d.source == SourceThermistor {
		if raw, err = d.gauge.CellTemperature(); err != nil {
			return v, 0, err
		}
	}
	v.Direction = directionString(dir)
	v.PowerMode = powerModeString(mode)
	v.DeciC = deciC(raw)
	return v, raw, nil
}

// wide reads the full word behind a register the catalog declares 8-bit.
// CELL_VOLTAGE, ITE and IC_VERSION carry values above 0xFF.
func (d *Device) wide(r gauge.Register) (uint16, error) {
	return d.bus.Read16(uint16(r.Addr))
}

// edges publishes threshold crossings. A zero threshold disables the check.
func (d *Device) edges(v types.GaugeValue) {
	if d.alarmRSOC != gauge.AlarmDisabled {
		low := uint16(v.RSOC) < d.alarmRSOC
		if low != d.lowRSOC {
			tag := "rsoc_recovered"
			if low {
				tag = "low_rsoc"
			}
			d.lowRSOC = low
			d.emit(core.Event{Addr: d.aBat, EventTag: tag, Payload: types.GaugeAlarmEvent{
				RSOC: v.RSOC, CellMilliV: v.CellMilliV, Threshold: d.alarmRSOC,
			}})
		}
	}
	if d.alarmMilli != gauge.AlarmDisabled {
		low := v.CellMilliV < d.alarmMilli
		if low != d.lowVolt {
			tag := "voltage_recovered"
			if low {
				tag = "low_voltage"
			}
			d.lowVolt = low
			d.emit(core.Event{Addr: d.aBat, EventTag: tag, Payload: types.GaugeAlarmEvent{
				RSOC: v.RSOC, CellMilliV: v.CellMilliV, Threshold: d.alarmMilli,
			}})
		}
	}
}

func (d *Device) writeThenSample(err error) {
	if err != nil {
		d.emitErr(d.aBat, errcode.MapDriverErr(err))
		return
	}
	d.sample()
}

func (d *Device) emitReg(r gauge.Register, v uint16, write bool, err error) {
	rv := types.RegValue{Reg: r.Name, Addr: r.Addr, Value: v, Write: write}
	if err != nil {
		rv.Error = string(errcode.MapDriverErr(err))
	}
	d.emit(core.Event{Addr: d.aBat, EventTag: "reg", Payload: rv})
}

func (d *Device) emit(ev core.Event) {
	if ev.TS == 0 {
		ev.TS = timex.NowMs()
	}
	_ = d.res.Pub.Emit(ev)
}

func (d *Device) emitErr(a core.CapAddr, code errcode.Code) {
	d.emit(core.Event{Addr: a, Err: string(code)})
}

func (d *Device) release() {
	d.res.Reg.ReleaseI2C(d.id, core.ResourceID(d.params.Bus))
}
