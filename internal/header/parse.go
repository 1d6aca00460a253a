// internal/header/parse.go
package header

import (
	"bufio"
	"bytes"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tamzrod/reader-provisioner/internal/record"
)

// ---- FORMAT CONSTANTS ----

const (
	titleReader = "ESP8266 RFID Reader Configuration"
	titleMain   = "Main ESP8266 Configuration Header"
	sourceMark  = "Auto-generated from "

	includeGuard      = "RFID_CONFIG_H"
	defineLEDPin      = "LED_PIN"
	defineBaudRate    = "BAUD_RATE"
	defineWiFiTimeout = "WIFI_TIMEOUT_MS"
	defineTopicBase   = "MQTT_TOPIC_BASE"
	defineTopicHealth = "MQTT_TOPIC_HEALTH"
	defineTopicConfig = "MQTT_TOPIC_CONFIG"
)

// ErrNotGenerated is returned for files that do not carry the generator banner.
var ErrNotGenerated = errors.New("header: not a generated configuration file")

// Kind distinguishes the two generated header layouts.
type Kind string

const (
	KindReader Kind = "reader"
	KindMain   Kind = "main"
)

// ---- DOCUMENT ----

// BannerInfo is what the comment banner of a parsed file claims.
type BannerInfo struct {
	Source      string
	Environment string
	Generated   time.Time // zero when absent or unparsable

	// Identity claims. Only reader headers carry them.
	Index       int
	HasIndex    bool
	ReaderID    string
	HasReaderID bool
	Portal      string
	HasPortal   bool
}

// Document is one parsed header file.
type Document struct {
	Path   string
	Kind   Kind
	Banner BannerInfo
	Record record.Record
	Topics Topics

	present map[string]bool
}

// Has reports whether a required field was declared.
func (d *Document) Has(field string) bool {
	return d.present[field]
}

// Missing returns the required fields the file does not declare, in header order.
func (d *Document) Missing() []string {
	var out []string
	for _, f := range record.RequiredFields {
		if !d.present[f] {
			out = append(out, f)
		}
	}
	return out
}

// ---- PARSER ----

var (
	reCharPtr = regexp.MustCompile(`^const\s+char\s*\*\s*(\w+)\s*=\s*"(.*)"\s*;`)
	reInt     = regexp.MustCompile(`^const\s+int\s+(\w+)\s*=\s*(-?\d+)\s*;`)
	reString  = regexp.MustCompile(`^String\s+(\w+)\s*=\s*"(.*)"\s*;`)
	reDefine  = regexp.MustCompile(`^#define\s+(\w+)\s+(.+?)\s*$`)
	reBanner  = regexp.MustCompile(`^\*\s+([A-Za-z][A-Za-z ]*?):\s*(.*?)\s*$`)
	reExtra   = regexp.MustCompile(`^\*\s+-\s+([A-Za-z][A-Za-z ]*?):\s*(\d+)(?:ms)?\s*$`)
)

// Parse reads a generated header back into a Document.
func Parse(data []byte) (*Document, error) {
	doc := &Document{present: make(map[string]bool)}

	// hardware constants may come from #define lines or the trailing comment
	var led, baud, timeout bool

	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())

		switch {
		case strings.HasPrefix(line, "*") || strings.HasPrefix(line, "/**"):
			body := strings.TrimPrefix(line, "/**")
			body = strings.TrimSpace(body)

			if strings.Contains(body, titleReader) {
				doc.Kind = KindReader
				continue
			}
			if strings.Contains(body, titleMain) {
				doc.Kind = KindMain
				continue
			}
			if i := strings.Index(body, sourceMark); i >= 0 {
				doc.Banner.Source = strings.TrimSpace(body[i+len(sourceMark):])
				continue
			}

			if m := reExtra.FindStringSubmatch(body); m != nil {
				v, _ := strconv.Atoi(m[2])
				switch m[1] {
				case "LED Pin":
					doc.Record.Hardware.LEDPin, led = v, true
				case "Baud Rate":
					doc.Record.Hardware.BaudRate, baud = v, true
				case "WiFi Timeout":
					doc.Record.Hardware.WiFiTimeoutMs, timeout = v, true
				}
				continue
			}

			if m := reBanner.FindStringSubmatch(body); m != nil {
				applyBanner(&doc.Banner, m[1], m[2])
			}

		case strings.HasPrefix(line, "const char"):
			if m := reCharPtr.FindStringSubmatch(line); m != nil {
				applyString(doc, m[1], m[2])
			}

		case strings.HasPrefix(line, "const int"):
			if m := reInt.FindStringSubmatch(line); m != nil {
				v, err := strconv.Atoi(m[2])
				if err != nil {
					continue
				}
				switch m[1] {
				case record.FieldMQTTPort:
					doc.Record.MQTTPort = v
					doc.present[record.FieldMQTTPort] = true
				case record.FieldIndex:
					doc.Record.Index = v
					doc.present[record.FieldIndex] = true
				}
			}

		case strings.HasPrefix(line, "String"):
			if m := reString.FindStringSubmatch(line); m != nil {
				applyString(doc, m[1], m[2])
			}

		case strings.HasPrefix(line, "#define"):
			m := reDefine.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			switch m[1] {
			case defineLEDPin:
				if v, err := strconv.Atoi(m[2]); err == nil {
					doc.Record.Hardware.LEDPin, led = v, true
				}
			case defineBaudRate:
				if v, err := strconv.Atoi(m[2]); err == nil {
					doc.Record.Hardware.BaudRate, baud = v, true
				}
			case defineWiFiTimeout:
				if v, err := strconv.Atoi(m[2]); err == nil {
					doc.Record.Hardware.WiFiTimeoutMs, timeout = v, true
				}
			case defineTopicBase:
				doc.Topics.Base = unquote(m[2])
			case defineTopicHealth:
				doc.Topics.Health = unquote(m[2])
			case defineTopicConfig:
				doc.Topics.Config = unquote(m[2])
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	if doc.Kind == "" || doc.Banner.Source == "" {
		return nil, ErrNotGenerated
	}

	doc.present[record.FieldHardware] = led && baud && timeout

	return doc, nil
}

func applyBanner(b *BannerInfo, key, val string) {
	switch key {
	case "Environment":
		b.Environment = val
	case "Reader Index":
		if v, err := strconv.Atoi(val); err == nil {
			b.Index, b.HasIndex = v, true
		}
	case "Reader ID":
		b.ReaderID, b.HasReaderID = val, true
	case "Portal":
		b.Portal, b.HasPortal = val, true
	case "Generated":
		if t, err := time.Parse(time.RFC3339Nano, val); err == nil {
			b.Generated = t
		}
	}
}

func applyString(doc *Document, name, val string) {
	switch name {
	case record.FieldSSID:
		doc.Record.SSID = val
	case record.FieldPassword:
		doc.Record.Password = val
	case record.FieldServerBase:
		doc.Record.ServerBase = val
	case record.FieldMQTTServer:
		doc.Record.MQTTServer = val
	case record.FieldReaderID:
		doc.Record.ReaderID = val
	case record.FieldPortal:
		doc.Record.Portal = val
	default:
		return
	}
	doc.present[name] = true
}

func unquote(s string) string {
	if u, err := strconv.Unquote(s); err == nil {
		return u
	}
	return s
}
