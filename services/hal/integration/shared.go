// Package integration exercises HAL end to end: bus, core loop, provider and
// device builders over a simulated gauge.
package integration

import (
	"context"
	"errors"
	"sync"
	"time"

	"gaugecode-go/bus"
	"gaugecode-go/services/hal/internal/drvshim"
)

func recvOrTimeout(ch <-chan *bus.Message, d time.Duration) (*bus.Message, error) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case m := <-ch:
		return m, nil
	case <-timer.C:
		return nil, context.DeadlineExceeded
	}
}

// simGauge answers LC709203F word transactions with CRC at one address. It
// implements drivers.I2C so it can stand in for a platform bus.
type simGauge struct {
	addr uint16
	mu   sync.Mutex
	regs map[uint8]uint16
}

func newSimGauge(addr uint16, regs map[uint8]uint16) *simGauge {
	return &simGauge{addr: addr, regs: regs}
}

func (s *simGauge) Tx(addr uint16, w, r []byte) error {
	if addr != s.addr || len(w) == 0 {
		return errNack
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a := byte(addr << 1)
	if len(r) > 0 {
		v := s.regs[w[0]]
		r[0], r[1] = byte(v), byte(v>>8)
		if len(r) > 2 {
			r[2] = drvshim.CRC8(a, w[0], a|1, r[0], r[1])
		}
		return nil
	}
	if len(w) != 4 || drvshim.CRC8(a, w[0], w[1], w[2]) != w[3] {
		return errNack
	}
	s.regs[w[0]] = uint16(w[1]) | uint16(w[2])<<8
	return nil
}

func (s *simGauge) get(reg uint8) uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regs[reg]
}

var errNack = errors.New("i2c: nack")
