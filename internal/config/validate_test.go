// internal/config/validate_test.go
package config

import (
	"strings"
	"testing"
)

// helper to build a reader quickly
func reader(idx int, id, portal string) ReaderConfig {
	return ReaderConfig{Index: idx, ID: id, Portal: portal}
}

func baseConfig(readers ...ReaderConfig) *Config {
	return &Config{
		Environment: "development",
		Network: NetworkConfig{
			Backend:  EndpointConfig{Host: "localhost", Port: 4000, Protocol: "http"},
			Frontend: EndpointConfig{Host: "localhost", Port: 5173},
			MQTT:     MQTTConfig{Host: "192.168.8.2", Port: 1883},
		},
		Hardware: HardwareConfig{
			WiFi:    WiFiConfig{SSID: "UoP_Dev", Password: "s6RBwfAB7H", TimeoutMs: 20000},
			Readers: readers,
		},
	}
}

// ---- tests ----

func TestValidate_DistinctIndicesAccepted(t *testing.T) {
	cfg := baseConfig(
		reader(1, "REGISTER", "portal1"),
		reader(2, "ENTEROUT", "portal2"),
		reader(8, "CLUSTER1", "reader1"),
	)

	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_SharedIdentityAcrossIndicesAllowed(t *testing.T) {
	// Same ID/portal on two slots is reported by audit, not rejected here.
	cfg := baseConfig(
		reader(1, "REGISTER", "portal1"),
		reader(8, "REGISTER", "portal1"),
	)

	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_IndexCollisionDetected(t *testing.T) {
	cfg := baseConfig(
		reader(8, "REGISTER", "portal1"),
		reader(8, "CLUSTER1", "reader1"),
	)

	err := Validate(cfg)
	if err == nil {
		t.Fatalf("expected collision error, got nil")
	}
	if !strings.Contains(err.Error(), "index=8") {
		t.Fatalf("error should name the index: %v", err)
	}
}

func TestValidate_QuoteInReaderIDRejected(t *testing.T) {
	cfg := baseConfig(reader(3, `EXIT"1`, "portal3"))

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected literal safety error, got nil")
	}
}

func TestValidate_NonASCIIPortalRejected(t *testing.T) {
	cfg := baseConfig(reader(3, "EXIT", "portál"))

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected ASCII error, got nil")
	}
}

func TestValidate_BlankIdentityRejected(t *testing.T) {
	cfg := baseConfig(reader(3, "   ", "portal3"))

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected blank id error, got nil")
	}
}

func TestValidate_MissingSSIDReportsYAMLPath(t *testing.T) {
	cfg := baseConfig(reader(1, "REGISTER", "portal1"))
	cfg.Hardware.WiFi.SSID = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatalf("expected required error, got nil")
	}
	if !strings.Contains(err.Error(), "hardware.wifi.ssid") {
		t.Fatalf("error should use yaml path: %v", err)
	}
}

func TestValidate_ShortWiFiPasswordRejected(t *testing.T) {
	cfg := baseConfig(reader(1, "REGISTER", "portal1"))
	cfg.Hardware.WiFi.Password = "short"

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected password length error, got nil")
	}
}

func TestValidate_OpenNetworkAllowed(t *testing.T) {
	cfg := baseConfig(reader(1, "REGISTER", "portal1"))
	cfg.Hardware.WiFi.Password = ""

	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_BadMQTTPortRejected(t *testing.T) {
	cfg := baseConfig(reader(1, "REGISTER", "portal1"))
	cfg.Network.MQTT.Port = 70000

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected port range error, got nil")
	}
}

func TestNormalize_UppercasesReaderIDsAndFillsDefaults(t *testing.T) {
	cfg := baseConfig(reader(2, " enterout ", " portal2 "))
	cfg.Dir = "/srv/rfid"

	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	Normalize(cfg)

	r := cfg.Hardware.Readers[0]
	if r.ID != "ENTEROUT" || r.Portal != "portal2" {
		t.Fatalf("identity not normalized: %+v", r)
	}
	if cfg.Network.MQTT.Topics.Config != DefaultTopicConfig {
		t.Fatalf("config topic default missing: %q", cfg.Network.MQTT.Topics.Config)
	}
	if *cfg.Hardware.ESP8266.LEDPin != DefaultLEDPin || cfg.Hardware.ESP8266.BaudRate != DefaultBaudRate {
		t.Fatalf("hardware defaults missing: %+v", cfg.Hardware.ESP8266)
	}
	if cfg.MainReaderIndex() != DefaultMainReaderIndex {
		t.Fatalf("main reader index default: got %d", cfg.MainReaderIndex())
	}
	if got := cfg.Outputs.Resolve(cfg.Outputs.FirmwareDir); got != "/srv/rfid/firmware/config" {
		t.Fatalf("firmware dir resolve: got %q", got)
	}
}

func TestNormalize_ExplicitZeroLEDPinKept(t *testing.T) {
	cfg := baseConfig()
	zero := 0
	cfg.Hardware.ESP8266.LEDPin = &zero

	Normalize(cfg)

	if *cfg.Hardware.ESP8266.LEDPin != 0 {
		t.Fatalf("explicit GPIO0 overwritten: %d", *cfg.Hardware.ESP8266.LEDPin)
	}
}

func TestNormalize_CORSDefaultsToFrontend(t *testing.T) {
	cfg := baseConfig()
	Normalize(cfg)

	if got := cfg.Security.CORS.Origins; len(got) != 1 || got[0] != "http://localhost:5173" {
		t.Fatalf("cors origins: got %v", got)
	}

	cfg = baseConfig()
	cfg.Security.CORS.Origins = []string{"https://admin.example.org"}
	Normalize(cfg)
	if got := cfg.Security.CORS.Origins; len(got) != 1 || got[0] != "https://admin.example.org" {
		t.Fatalf("configured origins overwritten: %v", got)
	}
}
