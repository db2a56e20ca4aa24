package types

// ------------------------
// Capability kinds
// ------------------------

type Kind string

const (
	KindBattery     Kind = "battery"
	KindTemperature Kind = "temperature"
)
