package core

import (
	"context"

	"gaugecode-go/errcode"
	"gaugecode-go/types"
)

// ---- Capability & device model ----

// CapAddr is the public address of one capability:
// hal/cap/<Domain>/<Kind>/<Name>.
type CapAddr struct {
	Domain string
	Kind   types.Kind
	Name   string
}

// CapabilitySpec is what a device declares per capability. A non-zero PollMs
// asks HAL to schedule a "read" control at that interval.
type CapabilitySpec struct {
	Domain string
	Kind   types.Kind
	Name   string
	Info   types.Info
	PollMs uint32
}

func (s CapabilitySpec) Addr() CapAddr {
	return CapAddr{Domain: s.Domain, Kind: s.Kind, Name: s.Name}
}

// EnqueueResult reports whether a control was accepted by the device.
// Acceptance does not mean completion: results arrive as Events.
type EnqueueResult struct {
	OK    bool
	Error errcode.Code
}

type Device interface {
	ID() string
	Capabilities() []CapabilitySpec
	Init(ctx context.Context) error
	// Control must not block.
	Control(addr CapAddr, verb string, payload any) (EnqueueResult, error)
	Close() error
}

// ---- Device → HAL telemetry (single shape) ----
// By default, an Event is a value update that HAL publishes retained to
// .../value. A non-empty EventTag publishes non-retained to .../event/<tag>.
// Err, when non-empty, publishes only .../status=degraded (retained).
// Info republishes Payload retained to .../info.

type Event struct {
	Addr     CapAddr
	Payload  any
	TS       int64  // ms timestamp
	Err      string // "timeout","io_error","crc_error",...
	EventTag string
	Info     bool
}

// EventEmitter must be non-blocking; false indicates a drop under pressure.
type EventEmitter interface {
	Emit(ev Event) bool
}

// ---- HAL-injected resources ----

type Resources struct {
	Reg ResourceRegistry
	Pub EventEmitter
}

// BuilderInput is handed to a Builder for one configured device.
type BuilderInput struct {
	ID, Type string
	Params   any // json.RawMessage from config, or a typed value
	Res      Resources
}

type Builder interface {
	Build(ctx context.Context, in BuilderInput) (Device, error)
}
