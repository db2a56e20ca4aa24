package lc709203f

import "strings"

// Register addresses.
const (
	regBeforeRSOC          = 0x04 // W
	regThermistorB         = 0x06 // R/W
	regInitialRSOC         = 0x07 // W
	regCellTemperature     = 0x08 // R (thermistor mode) / W (I2C mode)
	regCellVoltage         = 0x09 // R
	regCurrentDirection    = 0x0A // R/W
	regAPA                 = 0x0B // R/W
	regAPT                 = 0x0C // R/W
	regRSOC                = 0x0D // R
	regITE                 = 0x0F // R
	regICVersion           = 0x11 // R
	regChangeOfParam       = 0x12 // R/W
	regAlarmLowRSOC        = 0x13 // R/W
	regAlarmLowCellVoltage = 0x14 // R/W
	regICPowerMode         = 0x15 // R/W
	regStatusBit           = 0x16 // R/W
	regNumberOfParameter   = 0x1A // R
)

// RSOC initialisation command, written to BEFORE_RSOC or INITIAL_RSOC.
const InitRSOC uint16 = 0xAA55

// CURRENT_DIRECTION (0x0A) values.
const (
	CurrentDirectionAuto      uint16 = 0x0000
	CurrentDirectionCharge    uint16 = 0x0001
	CurrentDirectionDischarge uint16 = 0xFFFF
)

// IC_POWER_MODE (0x15) values.
const (
	PowerModeOperational uint16 = 0x0001
	PowerModeSleep       uint16 = 0x0002
)

// STATUS_BIT (0x16) values: temperature source.
const (
	TemperatureSourceI2C        uint16 = 0x0000
	TemperatureSourceThermistor uint16 = 0x0001
)

// ALARM_LOW_RSOC / ALARM_LOW_CELL_VOLTAGE disable value.
const AlarmDisabled uint16 = 0x0000

// CHANGE_OF_PARAM (0x12) battery profile selectors.
const (
	ProfileA uint16 = 0x0000
	ProfileB uint16 = 0x0001
)

// NUMBER_OF_THE_PARAMETER (0x1A) codes by part-number suffix.
const (
	ParamLC709203F01 uint16 = 0x0301 // LC709203Fxx-01xx
	ParamLC709203F03 uint16 = 0x0601 // LC709203Fxx-03xx
	ParamLC709203F04 uint16 = 0x0504 // LC709203Fxx-04xx
	ParamLC709203F05 uint16 = 0x0706 // LC709203Fxx-05xx
)

// Temperature scale anchors in 0.1 K.
const (
	TempZeroCelsius   uint16 = 0x0AAC // 0.0 °C
	TempThermistorMin uint16 = 0x09E4 // -20.0 °C
	TempThermistorMax uint16 = 0x0D04 // +60.0 °C
	RSOCMax           uint8  = 0x64   // 100 %
	ITEMax            uint16 = 0x03E8 // 100.0 %
)

// ---- Catalog ----

var (
	// BeforeRSOC initialises RSOC from the maximum voltage sampled since
	// power-on when InitRSOC is written.
	BeforeRSOC = wo16(Register{
		Name: "BEFORE_RSOC", Addr: regBeforeRSOC,
		Fields: full16("BEFORE_RSOC"),
		Doc:    "write 0xAA55 to initialise RSOC from sampled OCV",
	})

	// ThermistorB is the thermistor B-constant, 1 K units.
	ThermistorB = rw16(Register{
		Name: "THERMISTOR_B", Addr: regThermistorB,
		Default: 0x0D34, HasDefault: true,
		Fields: full16("THERMISTOR_B"),
		Doc:    "thermistor B-constant, 1 K",
	})

	// InitialRSOC initialises RSOC from the voltage measured at write time
	// when InitRSOC is written. Completes within 1.5 ms.
	InitialRSOC = wo16(Register{
		Name: "INITIAL_RSOC", Addr: regInitialRSOC,
		Fields: full16("INIT_RSOC"),
		Doc:    "write 0xAA55 to initialise RSOC immediately",
	})

	// CellTemperatureSPI is the measured cell temperature in thermistor mode.
	CellTemperatureSPI = ro16(Register{
		Name: "CELL_TEMPERATURE_SPI", Addr: regCellTemperature,
		Default: 0x0BA6, HasDefault: true,
		Fields: full16("CELL_TEMPERATURE"),
		Doc:    "cell temperature (thermistor mode), 0.1 K",
	})

	// CellTemperatureI2C is the host-supplied cell temperature in I2C mode.
	CellTemperatureI2C = wo16(Register{
		Name: "CELL_TEMPERATURE_I2C", Addr: regCellTemperature,
		Default: 0x0BA6, HasDefault: true,
		Fields: full16("CELL_TEMPERATURE"),
		Doc:    "cell temperature (I2C mode), 0.1 K",
	})

	// CellVoltage is VDD in 1 mV units. Declared 8-bit in the register map.
	CellVoltage = ro8(Register{
		Name: "CELL_VOLTAGE", Addr: regCellVoltage,
		Fields: full8("CELL_VOLTAGE"),
		Doc:    "cell voltage, 1 mV",
	})

	// CurrentDirection selects auto, charge or discharge RSOC reporting.
	CurrentDirection = rw16(Register{
		Name: "CURRENT_DIRECTION", Addr: regCurrentDirection,
		Default: CurrentDirectionAuto, HasDefault: true,
		Fields: full16("CURRENT_DIRECTION"),
		Doc:    "0x0000 auto, 0x0001 charge, 0xFFFF discharge",
	})

	// APA is the adjustment pack application (parasitic impedance), 1 mΩ.
	APA = rw8(Register{
		Name: "APA", Addr: regAPA,
		Fields: full8("APA"),
		Doc:    "adjustment pack application, 1 mOhm",
	})

	// APT adjusts temperature measurement delay timing.
	APT = rw16(Register{
		Name: "APT", Addr: regAPT,
		Default: 0x001E, HasDefault: true,
		Fields: full16("APT"),
		Doc:    "adjustment pack thermistor",
	})

	// RSOC is the relative state of charge, 1 %.
	RSOC = ro8(Register{
		Name: "RSOC", Addr: regRSOC,
		Fields: full8("RSOC"),
		Doc:    "relative state of charge 0-100, 1 %",
	})

	// ITE is the indicator to empty, 0.1 %.
	ITE = ro8(Register{
		Name: "ITE", Addr: regITE,
		Fields: full8("ITE"),
		Doc:    "indicator to empty, 0.1 %",
	})

	// ICVersion identifies the IC.
	ICVersion = ro8(Register{
		Name: "IC_VERSION", Addr: regICVersion,
		Fields: full8("IC_VERSION"),
		Doc:    "IC identifier",
	})

	// ChangeOfParam selects one of the two battery profiles in the data file.
	ChangeOfParam = rw16(Register{
		Name: "CHANGE_OF_PARAM", Addr: regChangeOfParam,
		Default: ProfileA, HasDefault: true,
		Fields: full16("CHANGE_OF_PARAM"),
		Doc:    "battery profile select 0 or 1",
	})

	// AlarmLowRSOC drives ALARMB low while RSOC is below it, 1 %.
	AlarmLowRSOC = rw16(Register{
		Name: "ALARM_LOW_RSOC", Addr: regAlarmLowRSOC,
		Default: 0x0008, HasDefault: true,
		Fields: full16("ALARM_LOW_RSOC"),
		Doc:    "low RSOC alarm threshold, 0 disables, 1 %",
	})

	// AlarmLowCellVoltage drives ALARMB low while VDD is below it, 1 mV.
	AlarmLowCellVoltage = rw16(Register{
		Name: "ALARM_LOW_CELL_VOLTAGE", Addr: regAlarmLowCellVoltage,
		Default: AlarmDisabled, HasDefault: true,
		Fields: full16("ALARM_LOW_CELL_VOLTAGE"),
		Doc:    "low cell voltage alarm threshold, 0 disables, 1 mV",
	})

	// ICPowerMode selects operational or sleep mode.
	ICPowerMode = rw16(Register{
		Name: "IC_POWER_MODE", Addr: regICPowerMode,
		Fields: full16("IC_POWER_MODE"),
		Doc:    "0x0001 operational, 0x0002 sleep",
	})

	// StatusBit selects the temperature source.
	StatusBit = rw16(Register{
		Name: "STATUS_BIT", Addr: regStatusBit,
		Default: TemperatureSourceI2C, HasDefault: true,
		Fields: full16("STATUS_BIT"),
		Doc:    "0 I2C temperature mode, 1 thermistor mode",
	})

	// NumberOfTheParameter identifies the battery profile data file.
	NumberOfTheParameter = ro16(Register{
		Name: "NUMBER_OF_THE_PARAMETER", Addr: regNumberOfParameter,
		Fields: full16("NUMBER_OF_THE_PARAMETER"),
		Doc:    "battery profile code",
	})
)

var catalog = []Register{
	BeforeRSOC.Register(),
	ThermistorB.Register(),
	InitialRSOC.Register(),
	CellTemperatureSPI.Register(),
	CellTemperatureI2C.Register(),
	CellVoltage.Register(),
	CurrentDirection.Register(),
	APA.Register(),
	APT.Register(),
	RSOC.Register(),
	ITE.Register(),
	ICVersion.Register(),
	ChangeOfParam.Register(),
	AlarmLowRSOC.Register(),
	AlarmLowCellVoltage.Register(),
	ICPowerMode.Register(),
	StatusBit.Register(),
	NumberOfTheParameter.Register(),
}

// Registers returns the catalog in address order. The slice is a copy.
func Registers() []Register {
	out := make([]Register, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds a register by name, ignoring case. "CELL_TEMPERATURE" alone
// is ambiguous and does not match.
func Lookup(name string) (Register, bool) {
	for _, r := range catalog {
		if strings.EqualFold(r.Name, name) {
			return r, true
		}
	}
	return Register{}, false
}

// KnownParam reports whether code is one of the documented profile codes.
func KnownParam(code uint16) bool {
	switch code {
	case ParamLC709203F01, ParamLC709203F03, ParamLC709203F04, ParamLC709203F05:
		return true
	default:
		return false
	}
}

func full8(name string) []Field  { return []Field{{Name: name, Mask: 0x00FF}} }
func full16(name string) []Field { return []Field{{Name: name, Mask: 0xFFFF}} }
