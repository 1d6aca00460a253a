// internal/generate/envfile.go
package generate

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	cfg "github.com/tamzrod/reader-provisioner/internal/config"
	"github.com/tamzrod/reader-provisioner/internal/header"
)

// EnvVar is one KEY=value pair. Order is significant.
type EnvVar struct {
	Key   string
	Value any
}

// EnvFile is an ordered set of environment variables.
type EnvFile []EnvVar

// Get returns the value for key as written to the file.
func (e EnvFile) Get(key string) (string, bool) {
	for _, v := range e {
		if v.Key == key {
			return fmt.Sprint(v.Value), true
		}
	}
	return "", false
}

// Encode renders KEY=value lines. Values that a dotenv parser would split are quoted.
func (e EnvFile) Encode() []byte {
	var sb strings.Builder
	for _, v := range e {
		sb.WriteString(v.Key)
		sb.WriteByte('=')
		sb.WriteString(dotenvValue(fmt.Sprint(v.Value)))
		sb.WriteByte('\n')
	}
	return []byte(sb.String())
}

// BackendEnv returns the backend service environment.
func BackendEnv(c *cfg.Config) EnvFile {
	return EnvFile{
		{"NODE_ENV", c.Environment},
		{"PORT", c.Network.Backend.Port},
		{"DATABASE_URL", c.DatabaseURL()},
		{"PG_SSL", c.Network.Database.SSL},
		{"MQTT_URL", c.MQTTURL()},
		{"GAMELITE_ADMIN_KEY", c.Security.GameLiteAdminKey},
		{"JWT_SECRET", c.Security.JWTSecret},
		{"LOG_LEVEL", c.Application.Logging.Level},
	}
}

// FrontendEnv returns the build-time environment of the frontend.
func FrontendEnv(c *cfg.Config) EnvFile {
	return EnvFile{
		{"VITE_API_BASE", c.BackendURL()},
		{"VITE_BACKEND_HOST", c.Network.Backend.Host},
		{"VITE_BACKEND_PORT", c.Network.Backend.Port},
		{"VITE_GAMELITE_KEY", c.Security.GameLiteAdminKey},
		{"VITE_WS_URL", c.WebSocketURL()},
	}
}

// BackendModule renders a CommonJS module exporting the backend environment.
func BackendModule(b header.Banner, env EnvFile) []byte {
	var sb strings.Builder

	sb.WriteString("/**\n")
	sb.WriteString(" * Backend Environment Configuration\n")
	fmt.Fprintf(&sb, " * Auto-generated from %s\n", b.Source)
	fmt.Fprintf(&sb, " * Environment: %s\n", b.Environment)
	fmt.Fprintf(&sb, " * Generated: %s\n", b.Generated.UTC().Format(header.TimeLayout))
	sb.WriteString(" */\n\n")

	sb.WriteString("module.exports = {\n")
	for i, v := range env {
		raw, err := json.Marshal(v.Value)
		if err != nil {
			raw = []byte(strconv.Quote(fmt.Sprint(v.Value)))
		}
		sep := ","
		if i == len(env)-1 {
			sep = ""
		}
		fmt.Fprintf(&sb, "  %s: %s%s\n", v.Key, raw, sep)
	}
	sb.WriteString("};\n")

	return []byte(sb.String())
}

// FrontendModule renders the ES module the frontend imports at build time.
func FrontendModule(b header.Banner, c *cfg.Config) []byte {
	var sb strings.Builder

	sb.WriteString("/**\n")
	sb.WriteString(" * Frontend Build Configuration\n")
	fmt.Fprintf(&sb, " * Auto-generated from %s\n", b.Source)
	fmt.Fprintf(&sb, " * Environment: %s\n", b.Environment)
	fmt.Fprintf(&sb, " * Generated: %s\n", b.Generated.UTC().Format(header.TimeLayout))
	sb.WriteString(" */\n\n")

	fmt.Fprintf(&sb, "export const API_BASE = %s;\n", jsString(c.BackendURL()))
	fmt.Fprintf(&sb, "export const BACKEND_HOST = %s;\n", jsString(c.Network.Backend.Host))
	fmt.Fprintf(&sb, "export const BACKEND_PORT = %d;\n", c.Network.Backend.Port)
	fmt.Fprintf(&sb, "export const WS_URL = %s;\n", jsString(c.WebSocketURL()))
	fmt.Fprintf(&sb, "export const GAMELITE_KEY = %s;\n", jsString(c.Security.GameLiteAdminKey))

	sb.WriteString("\nexport default {\n")
	sb.WriteString("  API_BASE,\n")
	sb.WriteString("  BACKEND_HOST,\n")
	sb.WriteString("  BACKEND_PORT,\n")
	sb.WriteString("  WS_URL,\n")
	sb.WriteString("  GAMELITE_KEY\n")
	sb.WriteString("};\n")

	return []byte(sb.String())
}

// jsString renders a single-quoted JavaScript string literal.
func jsString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`, "\r", `\r`)
	return "'" + r.Replace(s) + "'"
}

func dotenvValue(s string) string {
	if s == "" || !strings.ContainsAny(s, " \t\n\r#\"'") {
		return s
	}
	return strconv.Quote(s)
}
