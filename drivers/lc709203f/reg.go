package lc709203f

import "errors"

// Errors for the name-driven access path (Peek/Poke). Typed views never
// return them: their access mode is fixed by type.
var (
	ErrNotReadable = errors.New("lc709203f: register is write-only")
	ErrNotWritable = errors.New("lc709203f: register is read-only")
	ErrValueRange  = errors.New("lc709203f: value exceeds register width")
)

// Width is the register width in bits.
type Width uint8

const (
	Width8  Width = 8
	Width16 Width = 16
)

// Access is the register access mode.
type Access uint8

const (
	AccessRead Access = 1 << iota
	AccessWrite

	AccessReadWrite = AccessRead | AccessWrite
)

func (a Access) String() string {
	switch a {
	case AccessRead:
		return "r"
	case AccessWrite:
		return "w"
	case AccessReadWrite:
		return "rw"
	default:
		return "?"
	}
}

// Field is a named bit-field within a register.
type Field struct {
	Name string
	Mask uint16
}

// Register describes one catalog entry. Values are immutable by convention;
// the package hands out copies.
type Register struct {
	Name       string
	Addr       uint8
	Width      Width
	Access     Access
	Default    uint16
	HasDefault bool
	Fields     []Field
	Doc        string
}

func (r Register) Readable() bool { return r.Access&AccessRead != 0 }
func (r Register) Writable() bool { return r.Access&AccessWrite != 0 }

// Mask returns the full-width mask implied by Width.
func (r Register) Mask() uint16 {
	if r.Width == Width8 {
		return 0x00FF
	}
	return 0xFFFF
}

func (r Register) String() string { return r.Name }

// word is the set of raw register value types.
type word interface{ ~uint8 | ~uint16 }

// read dispatches one bus read by descriptor width.
func read[T word](b Bus, r *Register) (T, error) {
	if r.Width == Width8 {
		v, err := b.Read8(uint16(r.Addr))
		return T(v), err
	}
	v, err := b.Read16(uint16(r.Addr))
	return T(v), err
}

// write dispatches one bus write by descriptor width.
func write[T word](b Bus, r *Register, v T) error {
	if r.Width == Width8 {
		return b.Write8(uint16(r.Addr), uint8(v))
	}
	return b.Write16(uint16(r.Addr), uint16(v))
}

// ---- Typed views ----

// ReadOnly is a register that can only be read.
type ReadOnly[T word] struct{ reg Register }

func (v ReadOnly[T]) Register() Register    { return v.reg }
func (v ReadOnly[T]) Read(b Bus) (T, error) { return read[T](b, &v.reg) }

// WriteOnly is a register that can only be written.
type WriteOnly[T word] struct{ reg Register }

func (v WriteOnly[T]) Register() Register       { return v.reg }
func (v WriteOnly[T]) Write(b Bus, val T) error { return write(b, &v.reg, val) }

// ReadWrite is a register that can be read and written.
type ReadWrite[T word] struct{ reg Register }

func (v ReadWrite[T]) Register() Register       { return v.reg }
func (v ReadWrite[T]) Read(b Bus) (T, error)    { return read[T](b, &v.reg) }
func (v ReadWrite[T]) Write(b Bus, val T) error { return write(b, &v.reg, val) }

// ---- Descriptor constructors (width fixed by type) ----

func ro8(r Register) ReadOnly[uint8] {
	r.Width, r.Access = Width8, AccessRead
	return ReadOnly[uint8]{reg: r}
}

func ro16(r Register) ReadOnly[uint16] {
	r.Width, r.Access = Width16, AccessRead
	return ReadOnly[uint16]{reg: r}
}

func wo16(r Register) WriteOnly[uint16] {
	r.Width, r.Access = Width16, AccessWrite
	return WriteOnly[uint16]{reg: r}
}

func rw8(r Register) ReadWrite[uint8] {
	r.Width, r.Access = Width8, AccessReadWrite
	return ReadWrite[uint8]{reg: r}
}

func rw16(r Register) ReadWrite[uint16] {
	r.Width, r.Access = Width16, AccessReadWrite
	return ReadWrite[uint16]{reg: r}
}

// ---- Name-driven access ----

// Peek reads reg through b after checking its access mode. 8-bit registers
// are returned zero-extended.
func Peek(b Bus, reg Register) (uint16, error) {
	if !reg.Readable() {
		return 0, ErrNotReadable
	}
	return read[uint16](b, &reg)
}

// Poke writes v to reg through b after checking its access mode and width.
func Poke(b Bus, reg Register, v uint16) error {
	if !reg.Writable() {
		return ErrNotWritable
	}
	if v&^reg.Mask() != 0 {
		return ErrValueRange
	}
	return write(b, &reg, v)
}
