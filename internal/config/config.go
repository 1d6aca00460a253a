// internal/config/config.go
package config

type Config struct {
	Environment string            `yaml:"environment"`
	Network     NetworkConfig     `yaml:"network"`
	Hardware    HardwareConfig    `yaml:"hardware"`
	Security    SecurityConfig    `yaml:"security"`
	Application ApplicationConfig `yaml:"application"`
	Outputs     OutputsConfig     `yaml:"outputs"`
	Provisioner ProvisionerConfig `yaml:"provisioner"`

	// Source is the base name of the loaded file. Set by Load.
	Source string `yaml:"-"`
	// Dir is the directory of the loaded file. Set by Load.
	Dir string `yaml:"-"`
}

// ---- NETWORK ----

type NetworkConfig struct {
	Backend  EndpointConfig `yaml:"backend"`
	Frontend EndpointConfig `yaml:"frontend"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
}

type EndpointConfig struct {
	Host     string `yaml:"host" validate:"required,hostname|ip"`
	Port     int    `yaml:"port" validate:"required,min=1,max=65535"`
	Protocol string `yaml:"protocol" validate:"omitempty,oneof=http https"`
}

type DatabaseConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port" validate:"omitempty,min=1,max=65535"`
	Name           string `yaml:"name"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	SSL            bool   `yaml:"ssl"`
	MaxConnections int    `yaml:"max_connections" validate:"min=0"`
}

type MQTTConfig struct {
	Host           string       `yaml:"host" validate:"required,hostname|ip"`
	Port           int          `yaml:"port" validate:"required,min=1,max=65535"`
	Protocol       string       `yaml:"protocol" validate:"omitempty,oneof=mqtt mqtts tcp ssl ws wss"`
	ClientIDPrefix string       `yaml:"client_id_prefix"`
	Username       string       `yaml:"username"`
	Password       string       `yaml:"password"`
	Topics         TopicsConfig `yaml:"topics"`
}

type TopicsConfig struct {
	RFIDBase string `yaml:"rfid_base"`
	Health   string `yaml:"health"`
	Config   string `yaml:"config"`
}

// ---- HARDWARE ----

type HardwareConfig struct {
	WiFi    WiFiConfig     `yaml:"wifi"`
	Readers []ReaderConfig `yaml:"readers" validate:"dive"`
	ESP8266 ESP8266Config  `yaml:"esp8266"`
}

type WiFiConfig struct {
	SSID          string `yaml:"ssid" validate:"required,max=32"`
	Password      string `yaml:"password" validate:"omitempty,min=8,max=63"`
	TimeoutMs     int    `yaml:"timeout_ms" validate:"min=0"`
	RetryAttempts int    `yaml:"retry_attempts" validate:"min=0"`
}

type ReaderConfig struct {
	Index       int    `yaml:"index" validate:"min=0"`
	ID          string `yaml:"id" validate:"required"`
	Portal      string `yaml:"portal" validate:"required"`
	Description string `yaml:"description"`
	MACAddress  string `yaml:"mac_address" validate:"omitempty,mac"`
}

type ESP8266Config struct {
	LEDPin     *int   `yaml:"led_pin" validate:"omitempty,min=0,max=16"`
	BaudRate   int    `yaml:"baud_rate" validate:"min=0"`
	FlashSize  string `yaml:"flash_size"`
	Filesystem string `yaml:"filesystem"`
}

// ---- SECURITY ----

type SecurityConfig struct {
	GameLiteAdminKey string        `yaml:"game_lite_admin_key"`
	JWTSecret        string        `yaml:"jwt_secret"`
	Session          SessionConfig `yaml:"session"`
	CORS             CORSConfig    `yaml:"cors"`
}

type SessionConfig struct {
	Secret    string `yaml:"secret"`
	ExpiresIn string `yaml:"expires_in"`
	Secure    bool   `yaml:"secure"`
}

type CORSConfig struct {
	Origins     []string `yaml:"origins" validate:"dive,url"`
	Credentials bool     `yaml:"credentials"`
	Methods     []string `yaml:"methods"`
}

// ---- APPLICATION ----

type ApplicationConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
}

// ---- OUTPUTS ----

// OutputsConfig holds artifact paths. Relative paths resolve against Root.
type OutputsConfig struct {
	Root           string `yaml:"root"`
	BackendEnv     string `yaml:"backend_env"`
	BackendModule  string `yaml:"backend_module"`
	FrontendEnv    string `yaml:"frontend_env"`
	FrontendModule string `yaml:"frontend_module"`
	FirmwareDir    string `yaml:"firmware_dir"`
	MainHeader     string `yaml:"main_header"`
}

// ---- PROVISIONER ----

type ProvisionerConfig struct {
	Listen          string             `yaml:"listen"`
	RegistryDSN     string             `yaml:"registry_dsn"`
	SeedRegistry    *bool              `yaml:"seed_registry"`
	MainReaderIndex *int               `yaml:"main_reader_index"`
	HeartbeatStale  int                `yaml:"heartbeat_stale_ms" validate:"min=0"`
	StatusMemory    StatusMemoryConfig `yaml:"status_memory"`
}

// StatusMemoryConfig enables the Modbus reader status export. Empty endpoint disables it.
type StatusMemoryConfig struct {
	Endpoint  string `yaml:"endpoint" validate:"omitempty,hostname_port"`
	UnitID    uint8  `yaml:"unit_id"`
	TimeoutMs int    `yaml:"timeout_ms" validate:"min=0"`
}
