// Package lc709203f is the register catalog for the ON Semiconductor LC709203F
// single-cell Li-ion fuel gauge.
//
// Design notes (datasheet references):
//   - Every register is a static descriptor (address, width, access, default).
//   - Accessors forward to an injected Bus; no caching, masking, scaling or retry.
//   - Read-only registers expose no write, write-only registers expose no read.
//   - CELL_TEMPERATURE (0x08) has two views selected by STATUS_BIT (0x16):
//     read-only in thermistor mode, write-only in I2C (host-supplied) mode.
//   - Byte order and CRC framing belong to the Bus implementation.
//
// Raw values keep datasheet units (1 mV, 0.1 K, 1 %, 0.1 %); callers convert.
package lc709203f

// AddressDefault is the fixed 7-bit I2C address of the LC709203F.
const AddressDefault = 0x0B

// Bus is the transport the catalog dispatches to. Each call is a single bus
// transaction addressed to the device; 16-bit values are assembled by the
// implementation. Errors are returned to the accessor's caller unchanged.
type Bus interface {
	Read8(addr uint16) (uint8, error)
	Write8(addr uint16, v uint8) error
	Read16(addr uint16) (uint16, error)
	Write16(addr uint16, v uint16) error
}

// Device binds the catalog to one Bus. It holds no register state.
type Device struct {
	bus Bus
}

// New returns a Device that issues every access on bus.
func New(bus Bus) *Device {
	return &Device{bus: bus}
}
