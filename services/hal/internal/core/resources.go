package core

type ResourceID string // e.g. "i2c0"

// I2COwner exposes a single atomic transaction.
// timeoutMS: 0 => provider default.
//
// The implementation serialises all hardware access behind a single worker
// per bus. Callers may invoke Tx from their own goroutines; Tx itself blocks
// until the transaction completes or times out.
type I2COwner interface {
	Tx(addr uint16, w []byte, r []byte, timeoutMS int) error
}

// ResourceRegistry hands out shared buses to devices.
type ResourceRegistry interface {
	// Buses lists the known bus IDs.
	Buses() []ResourceID

	// ClaimI2C fails with errcode.UnknownBus or errcode.BusInUse.
	ClaimI2C(devID string, id ResourceID) (I2COwner, error)
	ReleaseI2C(devID string, id ResourceID)
}
