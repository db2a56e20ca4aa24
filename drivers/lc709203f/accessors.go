package lc709203f

// Named accessors, one per catalog operation. Each forwards to a single bus
// transaction and returns the raw register value.

// SetBeforeRSOC writes BEFORE_RSOC (0x04). InitRSOC starts initialisation.
func (d *Device) SetBeforeRSOC(v uint16) error { return BeforeRSOC.Write(d.bus, v) }

func (d *Device) ThermistorB() (uint16, error)  { return ThermistorB.Read(d.bus) }
func (d *Device) SetThermistorB(v uint16) error { return ThermistorB.Write(d.bus, v) }

// SetInitialRSOC writes INITIAL_RSOC (0x07). InitRSOC starts initialisation.
func (d *Device) SetInitialRSOC(v uint16) error { return InitialRSOC.Write(d.bus, v) }

// CellTemperature reads CELL_TEMPERATURE in thermistor mode (0.1 K).
func (d *Device) CellTemperature() (uint16, error) { return CellTemperatureSPI.Read(d.bus) }

// SetCellTemperature writes CELL_TEMPERATURE in I2C mode (0.1 K).
func (d *Device) SetCellTemperature(v uint16) error { return CellTemperatureI2C.Write(d.bus, v) }

func (d *Device) CellVoltage() (uint8, error) { return CellVoltage.Read(d.bus) }

func (d *Device) CurrentDirection() (uint16, error)  { return CurrentDirection.Read(d.bus) }
func (d *Device) SetCurrentDirection(v uint16) error { return CurrentDirection.Write(d.bus, v) }

func (d *Device) APA() (uint8, error)   { return APA.Read(d.bus) }
func (d *Device) SetAPA(v uint8) error  { return APA.Write(d.bus, v) }
func (d *Device) APT() (uint16, error)  { return APT.Read(d.bus) }
func (d *Device) SetAPT(v uint16) error { return APT.Write(d.bus, v) }

func (d *Device) RSOC() (uint8, error)      { return RSOC.Read(d.bus) }
func (d *Device) ITE() (uint8, error)       { return ITE.Read(d.bus) }
func (d *Device) ICVersion() (uint8, error) { return ICVersion.Read(d.bus) }

func (d *Device) ChangeOfParam() (uint16, error)  { return ChangeOfParam.Read(d.bus) }
func (d *Device) SetChangeOfParam(v uint16) error { return ChangeOfParam.Write(d.bus, v) }

func (d *Device) AlarmLowRSOC() (uint16, error)         { return AlarmLowRSOC.Read(d.bus) }
func (d *Device) SetAlarmLowRSOC(v uint16) error        { return AlarmLowRSOC.Write(d.bus, v) }
func (d *Device) AlarmLowCellVoltage() (uint16, error)  { return AlarmLowCellVoltage.Read(d.bus) }
func (d *Device) SetAlarmLowCellVoltage(v uint16) error { return AlarmLowCellVoltage.Write(d.bus, v) }

func (d *Device) ICPowerMode() (uint16, error)  { return ICPowerMode.Read(d.bus) }
func (d *Device) SetICPowerMode(v uint16) error { return ICPowerMode.Write(d.bus, v) }

// StatusBit reads the temperature source selector.
func (d *Device) StatusBit() (uint16, error)  { return StatusBit.Read(d.bus) }
func (d *Device) SetStatusBit(v uint16) error { return StatusBit.Write(d.bus, v) }

func (d *Device) NumberOfTheParameter() (uint16, error) { return NumberOfTheParameter.Read(d.bus) }
