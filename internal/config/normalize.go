// internal/config/normalize.go
package config

import (
	"path/filepath"
	"strings"
)

// Defaults applied by Normalize.
const (
	DefaultTopicRFID       = "rfid"
	DefaultTopicHealth     = "health"
	DefaultTopicConfig     = "config"
	DefaultClientIDPrefix  = "rfid-system"
	DefaultLEDPin          = 2
	DefaultBaudRate        = 9600
	DefaultWiFiTimeoutMs   = 20000
	DefaultMainReaderIndex = 8
	DefaultHeartbeatStale  = 30000
	DefaultListen          = ":4000"
	DefaultStatusTimeoutMs = 2000
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	// ------------------------------------------------------------
	// READER IDENTITIES
	// ------------------------------------------------------------

	// Registry stores reader IDs upper-cased; headers must match it.
	for i := range cfg.Hardware.Readers {
		r := &cfg.Hardware.Readers[i]
		r.ID = strings.ToUpper(strings.TrimSpace(r.ID))
		r.Portal = strings.TrimSpace(r.Portal)
	}

	// ------------------------------------------------------------
	// NETWORK DEFAULTS
	// ------------------------------------------------------------

	setDefault(&cfg.Network.Backend.Protocol, "http")
	setDefault(&cfg.Network.Frontend.Protocol, "http")
	setDefault(&cfg.Network.MQTT.Protocol, "mqtt")
	setDefault(&cfg.Network.MQTT.ClientIDPrefix, DefaultClientIDPrefix)
	setDefault(&cfg.Network.MQTT.Topics.RFIDBase, DefaultTopicRFID)
	setDefault(&cfg.Network.MQTT.Topics.Health, DefaultTopicHealth)
	setDefault(&cfg.Network.MQTT.Topics.Config, DefaultTopicConfig)
	if cfg.Network.Database.Port == 0 {
		cfg.Network.Database.Port = 5432
	}

	// The frontend is the only browser client of the API.
	if len(cfg.Security.CORS.Origins) == 0 {
		cfg.Security.CORS.Origins = []string{cfg.FrontendURL()}
	}

	// ------------------------------------------------------------
	// HARDWARE DEFAULTS
	// ------------------------------------------------------------

	if cfg.Hardware.ESP8266.LEDPin == nil {
		pin := DefaultLEDPin
		cfg.Hardware.ESP8266.LEDPin = &pin
	}
	if cfg.Hardware.ESP8266.BaudRate == 0 {
		cfg.Hardware.ESP8266.BaudRate = DefaultBaudRate
	}
	if cfg.Hardware.WiFi.TimeoutMs == 0 {
		cfg.Hardware.WiFi.TimeoutMs = DefaultWiFiTimeoutMs
	}

	setDefault(&cfg.Application.Logging.Level, defaultLogLevel(cfg.Environment))

	// ------------------------------------------------------------
	// OUTPUT PATHS
	// ------------------------------------------------------------

	o := &cfg.Outputs
	setDefault(&o.Root, cfg.Dir)
	setDefault(&o.BackendEnv, "apps/backend/.env")
	setDefault(&o.BackendModule, "apps/backend/src/config/env.js")
	setDefault(&o.FrontendEnv, "apps/frontend/.env")
	setDefault(&o.FrontendModule, "apps/frontend/src/config.js")
	setDefault(&o.FirmwareDir, "firmware/config")
	setDefault(&o.MainHeader, "firmware/esp01_rdm6300_mqtt/config.h")

	// ------------------------------------------------------------
	// PROVISIONER
	// ------------------------------------------------------------

	p := &cfg.Provisioner
	setDefault(&p.Listen, DefaultListen)
	if p.MainReaderIndex == nil {
		idx := DefaultMainReaderIndex
		p.MainReaderIndex = &idx
	}
	if p.SeedRegistry == nil {
		seed := true
		p.SeedRegistry = &seed
	}
	if p.HeartbeatStale == 0 {
		p.HeartbeatStale = DefaultHeartbeatStale
	}
	if p.StatusMemory.Endpoint != "" && p.StatusMemory.TimeoutMs == 0 {
		p.StatusMemory.TimeoutMs = DefaultStatusTimeoutMs
	}
}

// Resolve joins a configured output path with the outputs root.
func (o OutputsConfig) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || o.Root == "" {
		return p
	}
	return filepath.Join(o.Root, p)
}

func defaultLogLevel(env string) string {
	if env == "production" {
		return "info"
	}
	return "debug"
}

func setDefault(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}
