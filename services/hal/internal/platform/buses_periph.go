//go:build linux && !baremetal

package platform

import (
	"strconv"

	"gaugecode-go/services/hal/internal/core"
	"gaugecode-go/services/hal/internal/provider/setups"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// DefaultPlan opens every I2C bus the host registers.
func DefaultPlan() setups.ResourcePlan { return setups.Host }

// Open initialises periph host drivers and opens the planned buses as
// "i2c<N>". The returned func closes them.
func Open(plan setups.ResourcePlan) (Buses, func(), error) {
	if _, err := host.Init(); err != nil {
		return nil, func() {}, err
	}
	buses := Buses{}
	var opened []i2c.BusCloser
	closeAll := func() {
		for _, b := range opened {
			_ = b.Close()
		}
	}
	for _, ref := range i2creg.All() {
		if ref.Number < 0 {
			continue
		}
		id := "i2c" + strconv.Itoa(ref.Number)
		p, ok := wanted(plan, id)
		if !ok {
			continue
		}
		b, err := ref.Open()
		if err != nil {
			println("[hal] cannot open", ref.Name, "err:", err.Error())
			continue
		}
		if p.Hz > 0 {
			if err := b.SetSpeed(physic.Frequency(p.Hz) * physic.Hertz); err != nil {
				println("[hal] cannot set speed on", id, "err:", err.Error())
			}
		}
		opened = append(opened, b)
		buses[core.ResourceID(id)] = b
	}
	return buses, closeAll, nil
}
