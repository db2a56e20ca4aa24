package drvshim

import (
	"gaugecode-go/services/hal/internal/core"

	"tinygo.org/x/drivers"
)

const defaultTimeoutMS = 25

// I2C adapts a core.I2COwner to the tinygo drivers.I2C Tx shape, adding a
// per-call timeout.
type I2C struct {
	o         core.I2COwner
	timeoutMS int
}

var _ drivers.I2C = I2C{}

func NewI2C(owner core.I2COwner) I2C {
	return I2C{o: owner, timeoutMS: defaultTimeoutMS}
}

func (s I2C) WithTimeout(ms int) I2C {
	if ms > 0 {
		s.timeoutMS = ms
	}
	return s
}

func (s I2C) Tx(addr uint16, w, r []byte) error {
	return s.o.Tx(addr, w, r, s.timeoutMS)
}
