// internal/config/load.go
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultEnvironment is used when neither the caller nor the file names one.
const DefaultEnvironment = "development"

// overridesKey holds per-environment partial documents inside the master file.
const overridesKey = "environments"

// Secret environment variables. A non-empty value replaces the file value.
var secretEnv = []struct {
	name  string
	apply func(c *Config, v string)
}{
	{"DB_PASSWORD", func(c *Config, v string) { c.Network.Database.Password = v }},
	{"ADMIN_KEY", func(c *Config, v string) { c.Security.GameLiteAdminKey = v }},
	{"JWT_SECRET", func(c *Config, v string) { c.Security.JWTSecret = v }},
	{"SESSION_SECRET", func(c *Config, v string) { c.Security.Session.Secret = v }},
	{"WIFI_PASSWORD", func(c *Config, v string) { c.Hardware.WiFi.Password = v }},
	{"MQTT_PASSWORD", func(c *Config, v string) { c.Network.MQTT.Password = v }},
}

// Load reads the master config file and applies the overrides for env.
// An empty env falls back to the file's own environment, then DefaultEnvironment.
func Load(path, env string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg, err := Parse(raw, env)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	cfg.Source = filepath.Base(abs)
	cfg.Dir = filepath.Dir(abs)

	return cfg, nil
}

// Parse decodes a master config document and applies environment overrides.
func Parse(raw []byte, env string) (*Config, error) {
	var tree map[string]any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if tree == nil {
		tree = map[string]any{}
	}

	if env == "" {
		if s, ok := tree["environment"].(string); ok && s != "" {
			env = s
		} else {
			env = DefaultEnvironment
		}
	}

	// ------------------------------------------------------------
	// ENVIRONMENT OVERRIDES
	// ------------------------------------------------------------

	overrides, _ := tree[overridesKey].(map[string]any)
	delete(tree, overridesKey)

	if ov, ok := overrides[env]; ok && ov != nil {
		m, ok := ov.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("environments.%s must be a mapping", env)
		}
		tree = deepMerge(tree, m)
	}
	tree["environment"] = env

	// Re-encode the merged tree and decode strictly into typed config.
	merged, err := yaml.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("encode merged tree: %w", err)
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(merged))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode merged tree: %w", err)
	}

	applySecretEnv(&cfg)

	return &cfg, nil
}

// deepMerge merges src into dst. Mappings merge recursively;
// scalars and sequences from src replace dst.
func deepMerge(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = map[string]any{}
	}
	for k, sv := range src {
		sm, srcIsMap := sv.(map[string]any)
		dm, dstIsMap := dst[k].(map[string]any)
		if srcIsMap && dstIsMap {
			dst[k] = deepMerge(dm, sm)
			continue
		}
		dst[k] = sv
	}
	return dst
}

func applySecretEnv(cfg *Config) {
	for _, s := range secretEnv {
		if v := os.Getenv(s.name); v != "" {
			s.apply(cfg, v)
		}
	}
}
