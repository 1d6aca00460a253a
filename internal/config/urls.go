// internal/config/urls.go
package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/tamzrod/reader-provisioner/internal/record"
)

// BackendURL returns protocol://host:port of the backend API.
func (c *Config) BackendURL() string {
	return endpointURL(c.Network.Backend)
}

// FrontendURL returns protocol://host:port of the frontend.
func (c *Config) FrontendURL() string {
	return endpointURL(c.Network.Frontend)
}

// WebSocketURL is the backend URL with its http scheme swapped for ws.
func (c *Config) WebSocketURL() string {
	return strings.Replace(c.BackendURL(), "http", "ws", 1)
}

// ServerBase is the backend base URL compiled into firmware.
// ESP8266 readers talk plain HTTP regardless of the backend protocol.
func (c *Config) ServerBase() string {
	return "http://" + hostPort(c.Network.Backend.Host, c.Network.Backend.Port)
}

// DatabaseURL returns the PostgreSQL connection string.
func (c *Config) DatabaseURL() string {
	d := c.Network.Database
	u := url.URL{
		Scheme: "postgresql",
		User:   url.UserPassword(d.Username, d.Password),
		Host:   hostPort(d.Host, d.Port),
		Path:   "/" + d.Name,
	}
	if d.SSL {
		u.RawQuery = "sslmode=require"
	}
	return u.String()
}

// MQTTURL returns the broker URL. Credentials are embedded only when both are set.
func (c *Config) MQTTURL() string {
	m := c.Network.MQTT
	proto := m.Protocol
	if proto == "" {
		proto = "mqtt"
	}
	u := url.URL{Scheme: proto, Host: hostPort(m.Host, m.Port)}
	if m.Username != "" && m.Password != "" {
		u.User = url.UserPassword(m.Username, m.Password)
	}
	return u.String()
}

// BrokerURL is the MQTT URL in the tcp:// or ssl:// form paho dials.
func (c *Config) BrokerURL() string {
	m := c.Network.MQTT
	scheme := "tcp"
	switch m.Protocol {
	case "mqtts", "ssl":
		scheme = "ssl"
	case "ws", "wss":
		scheme = m.Protocol
	}
	return scheme + "://" + hostPort(m.Host, m.Port)
}

// ---- READERS ----

// Reader returns the master entry for index, if any.
func (c *Config) Reader(index int) (ReaderConfig, bool) {
	for _, r := range c.Hardware.Readers {
		if r.Index == index {
			return r, true
		}
	}
	return ReaderConfig{}, false
}

// MainReaderIndex returns the index compiled into the main header.
func (c *Config) MainReaderIndex() int {
	if c.Provisioner.MainReaderIndex == nil {
		return DefaultMainReaderIndex
	}
	return *c.Provisioner.MainReaderIndex
}

// HardwareConstants returns the hardware constants shared by every reader.
func (c *Config) HardwareConstants() record.Hardware {
	pin := DefaultLEDPin
	if c.Hardware.ESP8266.LEDPin != nil {
		pin = *c.Hardware.ESP8266.LEDPin
	}
	return record.Hardware{
		LEDPin:        pin,
		BaudRate:      c.Hardware.ESP8266.BaudRate,
		WiFiTimeoutMs: c.Hardware.WiFi.TimeoutMs,
	}
}

// RecordFor builds the reader configuration record carrying identity id.
func (c *Config) RecordFor(id record.Identity) record.Record {
	return record.Record{
		SSID:       c.Hardware.WiFi.SSID,
		Password:   c.Hardware.WiFi.Password,
		ServerBase: c.ServerBase(),
		MQTTServer: c.Network.MQTT.Host,
		MQTTPort:   c.Network.MQTT.Port,
		Index:      id.Index,
		ReaderID:   id.ReaderID,
		Portal:     id.Portal,
		Hardware:   c.HardwareConstants(),
	}
}

// IdentityFor returns the master identity for index.
// found=false means the fallback identity was used.
func (c *Config) IdentityFor(index int) (record.Identity, bool) {
	r, ok := c.Reader(index)
	if !ok {
		return record.Default(index), false
	}
	return record.Identity{Index: r.Index, ReaderID: r.ID, Portal: r.Portal}, true
}

// Identities returns the master reader table as identities, in file order.
func (c *Config) Identities() []record.Identity {
	out := make([]record.Identity, 0, len(c.Hardware.Readers))
	for _, r := range c.Hardware.Readers {
		out = append(out, record.Identity{Index: r.Index, ReaderID: r.ID, Portal: r.Portal})
	}
	return out
}

func endpointURL(e EndpointConfig) string {
	proto := e.Protocol
	if proto == "" {
		proto = "http"
	}
	return fmt.Sprintf("%s://%s", proto, hostPort(e.Host, e.Port))
}

func hostPort(host string, port int) string {
	return host + ":" + strconv.Itoa(port)
}
