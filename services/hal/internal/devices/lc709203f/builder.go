// Package lc709203f is the HAL device for the LC709203F fuel gauge. It
// exposes a battery capability and a temperature capability and owns the
// register catalog from a single worker goroutine.
package lc709203f

import (
	"context"
	"encoding/json"

	gauge "gaugecode-go/drivers/lc709203f"
	"gaugecode-go/errcode"
	"gaugecode-go/services/hal/internal/core"
	"gaugecode-go/services/hal/internal/drvshim"
	"gaugecode-go/types"
	"gaugecode-go/x/mathx"
)

func init() { core.RegisterBuilder("lc709203f", builder{}) }

const (
	DefaultPollMs = 1000
	MinPollMs     = 250

	SourceThermistor = "thermistor"
	SourceI2C        = "i2c"
)

// Params configure one gauge. Zero values select the defaults.
type Params struct {
	Bus    string `json:"bus"`
	Addr   uint16 `json:"addr,omitempty"`
	Name   string `json:"name"`
	Domain string `json:"domain,omitempty"`
	CRC    *bool  `json:"crc,omitempty"`
	PollMs uint32 `json:"poll_ms,omitempty"`

	TempSource  string  `json:"temp_source,omitempty"`
	ThermistorB uint16  `json:"thermistor_b,omitempty"`
	APA         uint8   `json:"apa,omitempty"`
	APT         uint16  `json:"apt,omitempty"`
	Profile     *uint16 `json:"profile,omitempty"`

	AlarmLowRSOC   uint16 `json:"alarm_low_rsoc,omitempty"`
	AlarmLowMilliV uint16 `json:"alarm_low_mv,omitempty"`

	InitRSOC    string `json:"init_rsoc,omitempty"` // "", "before", "initial"
	ExpectParam uint16 `json:"expect_param,omitempty"`
	TimeoutMs   int    `json:"timeout_ms,omitempty"`
}

func decodeParams(v any) (Params, error) {
	var p Params
	switch x := v.(type) {
	case Params:
		p = x
	case *Params:
		if x == nil {
			return p, errcode.InvalidParams
		}
		p = *x
	case json.RawMessage:
		if err := json.Unmarshal(x, &p); err != nil {
			return p, errcode.Wrap(errcode.InvalidParams, "lc709203f params", err)
		}
	case []byte:
		if err := json.Unmarshal(x, &p); err != nil {
			return p, errcode.Wrap(errcode.InvalidParams, "lc709203f params", err)
		}
	default:
		return p, errcode.InvalidParams
	}
	return p.withDefaults()
}

func (p Params) withDefaults() (Params, error) {
	if p.Bus == "" || p.Name == "" {
		return p, errcode.InvalidParams
	}
	p.Addr = mathx.OrDefault(p.Addr, uint16(gauge.AddressDefault))
	if p.Domain == "" {
		p.Domain = "power"
	}
	if p.CRC == nil {
		on := true
		p.CRC = &on
	}
	p.PollMs = mathx.AtLeast(mathx.OrDefault(p.PollMs, DefaultPollMs), MinPollMs)
	switch p.TempSource {
	case "":
		p.TempSource = SourceI2C
	case SourceI2C, SourceThermistor:
	default:
		return p, errcode.InvalidParams
	}
	switch p.InitRSOC {
	case "", "before", "initial":
	default:
		return p, errcode.InvalidParams
	}
	if p.Profile != nil && *p.Profile > gauge.ProfileB {
		return p, errcode.InvalidParams
	}
	return p, nil
}

type builder struct{}

func (builder) Build(_ context.Context, in core.BuilderInput) (core.Device, error) {
	p, err := decodeParams(in.Params)
	if err != nil {
		return nil, err
	}
	owner, err := in.Res.Reg.ClaimI2C(in.ID, core.ResourceID(p.Bus))
	if err != nil {
		return nil, err
	}
	gb := drvshim.NewGaugeBus(drvshim.NewI2C(owner).WithTimeout(p.TimeoutMs), p.Addr, *p.CRC)

	return &Device{
		id:      in.ID,
		aBat:    core.CapAddr{Domain: p.Domain, Kind: types.KindBattery, Name: p.Name},
		aTmp:    core.CapAddr{Domain: p.Domain, Kind: types.KindTemperature, Name: p.Name},
		res:     in.Res,
		params:  p,
		bus:     gb,
		gauge:   gauge.New(gb),
		tempRaw: gauge.CellTemperatureI2C.Register().Default,
		source:  p.TempSource,
	}, nil
}
