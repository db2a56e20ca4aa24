package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Key: device ID (same value placed in ctx under CtxDeviceKey)
// Val: raw JSON bytes for that device
// -----------------------------------------------------------------------------

// Pico boards carry the gauge on i2c0 with a 10 kΩ NTC (B = 3380 K).
const cfgPico = `{
  "hal": {
    "devices": [
      {
        "id": "gauge0",
        "type": "lc709203f",
        "params": {
          "bus": "i2c0",
          "name": "pack",
          "poll_ms": 2000,
          "temp_source": "thermistor",
          "thermistor_b": 3380,
          "apa": 50,
          "alarm_low_rsoc": 10,
          "alarm_low_mv": 3300,
          "init_rsoc": "initial",
          "expect_param": 769
        }
      }
    ]
  },
  "heartbeat": {
      "interval": 2
  }
}`

// Linux hosts reach the gauge through the first adapter periph finds and
// supply temperature over I2C.
const cfgHost = `{
  "hal": {
    "devices": [
      {
        "id": "gauge0",
        "type": "lc709203f",
        "params": {
          "bus": "i2c1",
          "name": "pack",
          "temp_source": "i2c",
          "alarm_low_rsoc": 10
        }
      }
    ]
  },
  "heartbeat": {
      "interval": 10
  }
}`

var embeddedConfigs = map[string][]byte{
	"pico": []byte(cfgPico),
	"host": []byte(cfgHost),
}
