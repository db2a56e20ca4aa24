//go:build rp2040 || rp2350

package platform

import (
	"machine"

	"gaugecode-go/services/hal/internal/core"
	"gaugecode-go/services/hal/internal/provider/setups"
)

func DefaultPlan() setups.ResourcePlan { return setups.PicoGauge }

// Open configures I2C0/I2C1 per plan. Buses are never closed on MCU targets.
func Open(plan setups.ResourcePlan) (Buses, func(), error) {
	hw := map[string]*machine.I2C{"i2c0": machine.I2C0, "i2c1": machine.I2C1}
	buses := Buses{}
	for _, p := range plan.I2C {
		b, ok := hw[p.ID]
		if !ok {
			println("[hal] no such bus:", p.ID)
			continue
		}
		hz := p.Hz
		if hz == 0 {
			hz = 400 * machine.KHz
		}
		if err := b.Configure(machine.I2CConfig{
			Frequency: hz,
			SDA:       machine.Pin(p.SDA),
			SCL:       machine.Pin(p.SCL),
		}); err != nil {
			println("[hal] configure", p.ID, "failed:", err.Error())
			continue
		}
		buses[core.ResourceID(p.ID)] = b
	}
	return buses, func() {}, nil
}
