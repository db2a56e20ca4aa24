//go:build !(linux && !baremetal) && !rp2040 && !rp2350

package platform

import "gaugecode-go/services/hal/internal/provider/setups"

func DefaultPlan() setups.ResourcePlan { return setups.ResourcePlan{} }

// Open provides no buses on targets without a bus driver.
func Open(setups.ResourcePlan) (Buses, func(), error) {
	return Buses{}, func() {}, nil
}
