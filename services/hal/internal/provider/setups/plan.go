package setups

// ResourcePlan specifies wiring and operating parameters chosen by a setup.
// Platforms consume this plan to open the hardware buses.
type ResourcePlan struct {
	I2C []I2CPlan
}

type I2CPlan struct {
	ID  string // e.g. "i2c0"
	SDA int    // GPIO number (MCU targets only)
	SCL int    // GPIO number (MCU targets only)
	Hz  uint32 // bus frequency
}

// PicoGauge is the Raspberry Pi Pico wiring for a fuel gauge breakout on the
// board-default I2C pins. The LC709203F tops out at 400 kHz.
var PicoGauge = ResourcePlan{
	I2C: []I2CPlan{
		{ID: "i2c0", SDA: 4, SCL: 5, Hz: 400_000},
		{ID: "i2c1", SDA: 2, SCL: 3, Hz: 400_000},
	},
}

// Host leaves bus discovery to the platform (every registered Linux bus).
var Host = ResourcePlan{}
