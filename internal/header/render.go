// internal/header/render.go
package header

import (
	"fmt"
	"strings"
	"time"

	"github.com/tamzrod/reader-provisioner/internal/record"
)

// TimeLayout is the banner timestamp format: ISO-8601, UTC, millisecond precision.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// Banner is the metadata stamped at the top of every generated file.
type Banner struct {
	Source      string // name of the master config the file was generated from
	Environment string
	Generated   time.Time
}

// Topics are the MQTT topic names compiled into the main header.
type Topics struct {
	Base   string
	Health string
	Config string
}

func (b Banner) stamp() string {
	return b.Generated.UTC().Format(TimeLayout)
}

// RenderReader renders the per-reader header (reader-<index>-config.h).
// Field set and ordering are fixed; downstream build tooling relies on them.
func RenderReader(b Banner, r record.Record) []byte {
	var sb strings.Builder

	sb.WriteString("/**\n")
	sb.WriteString(" * ESP8266 RFID Reader Configuration\n")
	fmt.Fprintf(&sb, " * Auto-generated from %s\n", b.Source)
	fmt.Fprintf(&sb, " * Environment: %s\n", b.Environment)
	fmt.Fprintf(&sb, " * Reader Index: %d\n", r.Index)
	fmt.Fprintf(&sb, " * Reader ID: %s\n", r.ReaderID)
	fmt.Fprintf(&sb, " * Portal: %s\n", r.Portal)
	fmt.Fprintf(&sb, " * Generated: %s\n", b.stamp())
	sb.WriteString(" * \n")
	sb.WriteString(" * Copy these values into your main.ino file or include this file.\n")
	sb.WriteString(" */\n\n")

	writeDeclarations(&sb, b, r)

	sb.WriteString("\n/*\n")
	sb.WriteString(" * Additional Configuration:\n")
	fmt.Fprintf(&sb, " * - LED Pin: %d\n", r.Hardware.LEDPin)
	fmt.Fprintf(&sb, " * - Baud Rate: %d\n", r.Hardware.BaudRate)
	fmt.Fprintf(&sb, " * - WiFi Timeout: %dms\n", r.Hardware.WiFiTimeoutMs)
	sb.WriteString(" */\n")

	return []byte(sb.String())
}

// RenderMain renders the include-guarded main header shared by firmware projects.
func RenderMain(b Banner, r record.Record, t Topics) []byte {
	var sb strings.Builder

	sb.WriteString("/**\n")
	sb.WriteString(" * Main ESP8266 Configuration Header\n")
	fmt.Fprintf(&sb, " * Auto-generated from %s\n", b.Source)
	fmt.Fprintf(&sb, " * Environment: %s\n", b.Environment)
	fmt.Fprintf(&sb, " * Generated: %s\n", b.stamp())
	sb.WriteString(" * \n")
	sb.WriteString(" * Include this in your Arduino projects for centralized configuration.\n")
	sb.WriteString(" */\n\n")

	fmt.Fprintf(&sb, "#ifndef %s\n", includeGuard)
	fmt.Fprintf(&sb, "#define %s\n\n", includeGuard)

	writeDeclarations(&sb, b, r)

	sb.WriteString("\n// Hardware Configuration\n")
	fmt.Fprintf(&sb, "#define %s %d\n", defineLEDPin, r.Hardware.LEDPin)
	fmt.Fprintf(&sb, "#define %s %d\n", defineBaudRate, r.Hardware.BaudRate)
	fmt.Fprintf(&sb, "#define %s %d\n", defineWiFiTimeout, r.Hardware.WiFiTimeoutMs)

	sb.WriteString("\n// MQTT Topics\n")
	fmt.Fprintf(&sb, "#define %s %q\n", defineTopicBase, t.Base)
	fmt.Fprintf(&sb, "#define %s %q\n", defineTopicHealth, t.Health)
	fmt.Fprintf(&sb, "#define %s %q\n", defineTopicConfig, t.Config)

	fmt.Fprintf(&sb, "\n#endif // %s\n", includeGuard)

	return []byte(sb.String())
}

// writeDeclarations emits the nine-field declaration block.
// Values are validated upstream to be safe inside C string literals.
func writeDeclarations(sb *strings.Builder, b Banner, r record.Record) {
	fmt.Fprintf(sb, "// Auto-generated configuration from %s\n", b.Source)
	fmt.Fprintf(sb, "const char* %s = \"%s\";\n", record.FieldSSID, r.SSID)
	fmt.Fprintf(sb, "const char* %s = \"%s\";\n", record.FieldPassword, r.Password)
	fmt.Fprintf(sb, "const char* %s = \"%s\";\n", record.FieldServerBase, r.ServerBase)
	fmt.Fprintf(sb, "const char* %s = \"%s\";\n", record.FieldMQTTServer, r.MQTTServer)
	fmt.Fprintf(sb, "const int %s = %d;\n", record.FieldMQTTPort, r.MQTTPort)
	fmt.Fprintf(sb, "const int %s = %d;\n", record.FieldIndex, r.Index)
	fmt.Fprintf(sb, "String %s = \"%s\";\n", record.FieldReaderID, r.ReaderID)
	fmt.Fprintf(sb, "String %s = \"%s\";\n", record.FieldPortal, r.Portal)
}
