// Package platform opens the hardware I2C buses for the current target.
package platform

import (
	"gaugecode-go/services/hal/internal/core"
	"gaugecode-go/services/hal/internal/provider/setups"

	"tinygo.org/x/drivers"
)

// Buses maps bus IDs ("i2c0", ...) to open hardware.
type Buses = map[core.ResourceID]drivers.I2C

// wanted reports whether id is selected by plan; an empty plan selects all.
func wanted(plan setups.ResourcePlan, id string) (setups.I2CPlan, bool) {
	if len(plan.I2C) == 0 {
		return setups.I2CPlan{ID: id}, true
	}
	for _, p := range plan.I2C {
		if p.ID == id {
			return p, true
		}
	}
	return setups.I2CPlan{}, false
}
