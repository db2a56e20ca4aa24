// Package config publishes the embedded per-board configuration on the bus.
// Each top-level key of the board's JSON document is published retained on
// config/<key>.
package config

import (
	"context"
	"encoding/json"
	"errors"

	"gaugecode-go/bus"
	"gaugecode-go/types"
)

const (
	serviceName  = "config"
	configPrefix = "config"
	CtxDeviceKey = "device" // context key used for device ID
)

var (
	ErrNoDevice = errors.New("missing device ID in context")
	ErrNoConfig = errors.New("no embedded config for device")
	ErrNotObj   = errors.New("embedded config is not a JSON object")
)

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

// decoders turn selected keys into typed payloads. Other keys are published
// as generic JSON values.
var decoders = map[string]func(json.RawMessage) (any, error){
	"hal": func(raw json.RawMessage) (any, error) {
		var c types.HALConfig
		err := json.Unmarshal(raw, &c)
		return c, err
	},
}

type ConfigService struct {
	Name string
}

func NewConfigService() *ConfigService {
	return &ConfigService{Name: serviceName}
}

// publishConfig reads the device config from embedded data and publishes it
// as retained messages.
func (s *ConfigService) publishConfig(ctx context.Context, conn *bus.Connection) error {
	device, _ := ctx.Value(CtxDeviceKey).(string)
	if device == "" {
		return ErrNoDevice
	}
	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return errors.Join(ErrNoConfig, errors.New(device))
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil || doc == nil {
		return ErrNotObj
	}

	for k, v := range doc {
		payload, err := decode(k, v)
		if err != nil {
			println("[config] skipping key", k+":", err.Error())
			continue
		}
		conn.Publish(conn.NewMessage(bus.T(configPrefix, k), payload, true))
	}
	return nil
}

func decode(key string, raw json.RawMessage) (any, error) {
	if dec, ok := decoders[key]; ok {
		return dec(raw)
	}
	var v any
	err := json.Unmarshal(raw, &v)
	return v, err
}

// Start launches the config publisher in a goroutine.
func (s *ConfigService) Start(ctx context.Context, conn *bus.Connection) {
	go func() {
		if err := s.publishConfig(ctx, conn); err != nil {
			println("[config]", err.Error())
		}
	}()
}
