package types

// ------------------------
// Battery fuel gauge (lc709203f)
// ------------------------

// GaugeInfo is retained at hal/cap/<domain>/battery/<name>/info as
// Info.Detail. ICVersion, ParamCode and Profile are filled in once the gauge
// has been configured.
type GaugeInfo struct {
	Bus        string `json:"bus"`
	Addr       uint16 `json:"addr"`
	ICVersion  uint16 `json:"ic_version"`
	ParamCode  uint16 `json:"param_code"` // NUMBER_OF_THE_PARAMETER
	Profile    uint16 `json:"profile"`    // CHANGE_OF_PARAM
	TempSource string `json:"temp_source"`
}

// GaugeValue is retained at hal/cap/power/battery/<name>/value.
type GaugeValue struct {
	RSOC        uint8  `json:"rsoc"`         // 1 %
	ITEPermille uint16 `json:"ite_permille"` // 0.1 %
	CellMilliV  uint16 `json:"cell_mV"`
	DeciC       int16  `json:"deci_c"`
	Direction   string `json:"direction"`  // "auto" | "charge" | "discharge"
	PowerMode   string `json:"power_mode"` // "operational" | "sleep"
}

// GaugeAlarmEvent is published on event/low_rsoc, event/rsoc_recovered,
// event/low_voltage and event/voltage_recovered.
type GaugeAlarmEvent struct {
	RSOC       uint8  `json:"rsoc"`
	CellMilliV uint16 `json:"cell_mV"`
	Threshold  uint16 `json:"threshold"`
}

// Controls

type GaugePowerMode struct {
	Sleep bool `json:"sleep"`
} // verb: "set_power_mode"

type GaugeInitRSOC struct {
	Before bool `json:"before"` // true => BEFORE_RSOC, false => INITIAL_RSOC
} // verb: "init_rsoc"

type GaugeCurrentDirection struct {
	Direction string `json:"direction"` // "auto" | "charge" | "discharge"
} // verb: "set_current_direction"

// GaugeAlarms sets both thresholds. Zero disables an alarm.
type GaugeAlarms struct {
	LowRSOC   uint16 `json:"low_rsoc"`
	LowMilliV uint16 `json:"low_mV"`
} // verb: "set_alarms"

type GaugeProfile struct {
	Profile uint16 `json:"profile"` // 0 or 1
} // verb: "set_profile"

// Raw register access by catalog name.

type RegRead struct {
	Reg string `json:"reg"`
} // verb: "reg_read"

type RegWrite struct {
	Reg   string `json:"reg"`
	Value uint16 `json:"value"`
} // verb: "reg_write"

// RegValue is published on event/reg in response to reg_read and reg_write.
type RegValue struct {
	Reg   string `json:"reg"`
	Addr  uint8  `json:"addr"`
	Value uint16 `json:"value"`
	Write bool   `json:"write,omitempty"`
	Error string `json:"error,omitempty"`
}
