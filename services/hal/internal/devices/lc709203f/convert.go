package lc709203f

import (
	"strings"

	gauge "gaugecode-go/drivers/lc709203f"
	"gaugecode-go/x/mathx"
)

// deciC converts a CELL_TEMPERATURE reading (0.1 K) to tenths of °C.
func deciC(raw uint16) int16 {
	return int16(int32(raw) - int32(gauge.TempZeroCelsius))
}

// kelvin10 converts tenths of °C to the 0.1 K register scale, clamped to the
// range the gauge accepts.
func kelvin10(dc int16) uint16 {
	k := int32(dc) + int32(gauge.TempZeroCelsius)
	return uint16(mathx.Clamp(k, int32(gauge.TempThermistorMin), int32(gauge.TempThermistorMax)))
}

func directionString(v uint16) string {
	switch v {
	case gauge.CurrentDirectionAuto:
		return "auto"
	case gauge.CurrentDirectionCharge:
		return "charge"
	case gauge.CurrentDirectionDischarge:
		return "discharge"
	}
	return "unknown"
}

func parseDirection(s string) (uint16, bool) {
	switch strings.ToLower(s) {
	case "auto":
		return gauge.CurrentDirectionAuto, true
	case "charge":
		return gauge.CurrentDirectionCharge, true
	case "discharge":
		return gauge.CurrentDirectionDischarge, true
	}
	return 0, false
}

func powerModeString(v uint16) string {
	switch v {
	case gauge.PowerModeOperational:
		return "operational"
	case gauge.PowerModeSleep:
		return "sleep"
	}
	return "unknown"
}

func tempSourceValue(s string) uint16 {
	if s == SourceThermistor {
		return gauge.TemperatureSourceThermistor
	}
	return gauge.TemperatureSourceI2C
}
