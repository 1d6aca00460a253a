// internal/config/validate.go
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Report yaml key names rather than Go field names.
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	// ------------------------------------------------------------
	// FIELD VALIDATION (struct tags)
	// ------------------------------------------------------------

	if err := structValidator().Struct(cfg); err != nil {
		return fieldError(err)
	}

	// ------------------------------------------------------------
	// C STRING LITERAL SAFETY
	// ------------------------------------------------------------

	// Values below are emitted inside "..." in generated headers.
	if err := headerSafe("hardware.wifi.ssid", cfg.Hardware.WiFi.SSID); err != nil {
		return err
	}
	if err := headerSafe("hardware.wifi.password", cfg.Hardware.WiFi.Password); err != nil {
		return err
	}
	if err := headerSafe("network.mqtt.host", cfg.Network.MQTT.Host); err != nil {
		return err
	}

	// ------------------------------------------------------------
	// READER TABLE VALIDATION
	// ------------------------------------------------------------

	// key = reader index
	owner := make(map[int]string)

	for _, r := range cfg.Hardware.Readers {
		if strings.TrimSpace(r.ID) == "" || strings.TrimSpace(r.Portal) == "" {
			return fmt.Errorf("reader %d: id and portal must not be blank", r.Index)
		}
		if err := headerSafe(fmt.Sprintf("reader %d: id", r.Index), r.ID); err != nil {
			return err
		}
		if err := headerSafe(fmt.Sprintf("reader %d: portal", r.Index), r.Portal); err != nil {
			return err
		}

		// A slot produces exactly one header; two entries cannot share it.
		assignment := strings.TrimSpace(r.ID) + "/" + strings.TrimSpace(r.Portal)
		if prev, exists := owner[r.Index]; exists {
			return fmt.Errorf(
				"reader index collision: index=%d assigned to %q and %q",
				r.Index,
				prev,
				assignment,
			)
		}
		owner[r.Index] = assignment
	}

	return nil
}

// headerSafe rejects values that cannot be emitted verbatim inside a C string literal.
func headerSafe(field, v string) error {
	for i := 0; i < len(v); i++ {
		c := v[i]
		if c < 0x20 || c > 0x7E {
			return fmt.Errorf("%s must contain printable ASCII characters only", field)
		}
		if c == '"' || c == '\\' {
			return fmt.Errorf("%s must not contain %q", field, string(c))
		}
	}
	return nil
}

// fieldError converts the first validator failure into a readable error.
func fieldError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	e := verrs[0]
	path := strings.ToLower(strings.TrimPrefix(e.Namespace(), "Config."))

	switch e.Tag() {
	case "required":
		return fmt.Errorf("%s is required", path)
	case "min":
		return fmt.Errorf("%s must be at least %s", path, e.Param())
	case "max":
		return fmt.Errorf("%s must be at most %s", path, e.Param())
	case "oneof":
		return fmt.Errorf("%s must be one of [%s], got %v", path, e.Param(), e.Value())
	default:
		return fmt.Errorf("%s failed %q validation (value %v)", path, e.Tag(), e.Value())
	}
}
