// internal/record/record.go
package record

import "fmt"

// Fallback identity used when a reader index has no assignment.
// Firmware and registry agree on these values.
const (
	DefaultReaderID = "REGISTER"
	DefaultPortal   = "portal1"
)

// ---- FIELD NAMES ----

// Declaration names as they appear in generated headers.
const (
	FieldSSID       = "ssid"
	FieldPassword   = "password"
	FieldServerBase = "serverBase"
	FieldMQTTServer = "mqtt_server"
	FieldMQTTPort   = "mqtt_port"
	FieldIndex      = "rIndex"
	FieldReaderID   = "readerID"
	FieldPortal     = "portal"
	FieldHardware   = "hardware"
)

// RequiredFields lists every field a generated header must declare, in header order.
var RequiredFields = []string{
	FieldSSID,
	FieldPassword,
	FieldServerBase,
	FieldMQTTServer,
	FieldMQTTPort,
	FieldIndex,
	FieldReaderID,
	FieldPortal,
	FieldHardware,
}

// ---- RECORD ----

// Hardware holds the fixed ESP8266 constants.
type Hardware struct {
	LEDPin        int
	BaudRate      int
	WiFiTimeoutMs int
}

// Record is one Reader Configuration Record.
type Record struct {
	SSID       string
	Password   string
	ServerBase string
	MQTTServer string
	MQTTPort   int
	Index      int
	ReaderID   string
	Portal     string
	Hardware   Hardware
}

// Identity returns the index/ID/portal triple of the record.
func (r Record) Identity() Identity {
	return Identity{Index: r.Index, ReaderID: r.ReaderID, Portal: r.Portal}
}

// ---- IDENTITY ----

// Identity is the triple that must be unique and stable per physical reader.
type Identity struct {
	Index    int    `json:"r_index"`
	ReaderID string `json:"reader_id"`
	Portal   string `json:"portal"`
}

// SameAssignment reports whether both identities carry the same ID and portal.
// Index is not compared.
func (i Identity) SameAssignment(o Identity) bool {
	return i.ReaderID == o.ReaderID && i.Portal == o.Portal
}

// Assignment renders the ID/portal pair, e.g. "CLUSTER1/reader1".
func (i Identity) Assignment() string {
	return i.ReaderID + "/" + i.Portal
}

func (i Identity) String() string {
	return fmt.Sprintf("%d:%s", i.Index, i.Assignment())
}

// Default returns the fallback identity for an index.
func Default(index int) Identity {
	return Identity{Index: index, ReaderID: DefaultReaderID, Portal: DefaultPortal}
}
