package types

// ------------------------
// Temperature
// ------------------------

type TemperatureInfo struct {
	Sensor string `json:"sensor"` // "lc709203f"
	Source string `json:"source"` // "thermistor" | "i2c"
	Addr   uint16 `json:"addr"`
	Bus    string `json:"bus"`
}

type TemperatureValue struct {
	// Tenths of °C (e.g. 231 => 23.1°C).
	DeciC int16 `json:"deci_c"`
}

// TemperatureSet supplies the cell temperature when the gauge is in I2C
// temperature mode. verb: "set"
type TemperatureSet struct {
	DeciC int16 `json:"deci_c"`
}
