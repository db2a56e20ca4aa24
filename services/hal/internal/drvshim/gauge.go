package drvshim

import (
	"gaugecode-go/drivers/lc709203f"
	"gaugecode-go/errcode"

	"tinygo.org/x/drivers"
)

// GaugeBus implements lc709203f.Bus over I2C. Registers are 16-bit words
// sent low byte first. With CRC enabled every word carries a CRC-8
// (polynomial 0x07, init 0x00) computed over the address bytes as well as
// the payload; reads verify it and writes append it.
//
// 8-bit accesses use the same word transaction: Read8 keeps the low byte,
// Write8 sends the byte zero-extended.
type GaugeBus struct {
	i2c  drivers.I2C
	addr uint16
	crc  bool
}

var _ lc709203f.Bus = (*GaugeBus)(nil)

func NewGaugeBus(i2c drivers.I2C, addr uint16, crc bool) *GaugeBus {
	if addr == 0 {
		addr = lc709203f.AddressDefault
	}
	return &GaugeBus{i2c: i2c, addr: addr, crc: crc}
}

func (g *GaugeBus) Addr() uint16 { return g.addr }

func (g *GaugeBus) Read16(reg uint16) (uint16, error) {
	var buf [3]byte
	r := buf[:2]
	if g.crc {
		r = buf[:3]
	}
	if err := g.i2c.Tx(g.addr, []byte{byte(reg)}, r); err != nil {
		return 0, err
	}
	if g.crc {
		w := byte(g.addr << 1)
		if CRC8(w, byte(reg), w|1, buf[0], buf[1]) != buf[2] {
			return 0, errcode.CRCError
		}
	}
	return uint16(buf[0]) | uint16(buf[1])<<8, nil
}

func (g *GaugeBus) Write16(reg uint16, v uint16) error {
	buf := [4]byte{byte(reg), byte(v), byte(v >> 8)}
	w := buf[:3]
	if g.crc {
		buf[3] = CRC8(byte(g.addr<<1), buf[0], buf[1], buf[2])
		w = buf[:4]
	}
	return g.i2c.Tx(g.addr, w, nil)
}

func (g *GaugeBus) Read8(reg uint16) (uint8, error) {
	v, err := g.Read16(reg)
	return uint8(v), err
}

func (g *GaugeBus) Write8(reg uint16, v uint8) error {
	return g.Write16(reg, uint16(v))
}

// CRC8 is CRC-8/SMBUS: polynomial x^8+x^2+x+1, init 0, no reflection.
func CRC8(data ...byte) byte {
	var crc byte
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0x07
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
