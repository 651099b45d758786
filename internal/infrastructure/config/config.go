package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// envPrefix is prepended to every environment override.
const envPrefix = "HASSDRIVER_"

// redacted replaces secrets in String renderings.
const redacted = "[REDACTED]"

// Config is the root configuration structure for the Home Assistant driver
// service. All configuration is loaded from YAML and can be overridden by
// environment variables.
type Config struct {
	Driver        DriverConfig        `yaml:"driver"`
	HomeAssistant HomeAssistantConfig `yaml:"home_assistant"`
	Database      DatabaseConfig      `yaml:"database"`
	MQTT          MQTTConfig          `yaml:"mqtt"`
	API           APIConfig           `yaml:"api"`
	WebSocket     WebSocketConfig     `yaml:"websocket"`
	InfluxDB      InfluxDBConfig      `yaml:"influxdb"`
	Logging       LoggingConfig       `yaml:"logging"`
	Security      SecurityConfig      `yaml:"security"`
}

// DriverConfig describes the device this service drives.
type DriverConfig struct {
	// Device is the device path, e.g. "campus/building/hass". It names
	// the device config entry ("devices/<device>") in the config store and
	// the MQTT topics the agent publishes on.
	Device string `yaml:"device"`

	// ScrapeInterval is the poll period in seconds. A device config entry
	// carrying its own interval takes precedence.
	ScrapeInterval int `yaml:"scrape_interval"`

	// Timezone is published in point metadata.
	Timezone string `yaml:"timezone"`

	// RegistryFile is a CSV, JSON or YAML registry imported into the
	// config store at start-up. Optional.
	RegistryFile string `yaml:"registry_file"`

	// RegistryName is the store entry the registry file is imported as.
	// Defaults to the file's base name.
	RegistryName string `yaml:"registry_name"`
}

// HomeAssistantConfig holds the hub connection. When IPAddress is set, it
// is written to the device config entry at start-up.
type HomeAssistantConfig struct {
	IPAddress   string `yaml:"ip_address"`
	AccessToken string `yaml:"access_token"`
	Port        int    `yaml:"port"`
	Timeout     int    `yaml:"timeout"` // seconds
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings for driver
// telemetry.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json, text, console
	Output string `yaml:"output"`
	// NoColor disables ANSI colours in the console format.
	NoColor bool `yaml:"no_color"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT JWTConfig `yaml:"jwt"`
}

// JWTConfig contains JWT token settings. An empty secret leaves the API
// unauthenticated.
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// Load reads configuration from a YAML file and applies environment
// variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. .env file next to the working directory, if present
//  4. Environment variables (override file values)
//
// Environment variables follow the pattern: HASSDRIVER_SECTION_KEY
// For example: HASSDRIVER_DATABASE_PATH, HASSDRIVER_HASS_ACCESS_TOKEN
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := LoadDotEnv(); err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadDotEnv loads the given .env files (".env" when none are named) into
// the process environment. Variables already set are kept and missing
// files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Driver: DriverConfig{
			Device:         "home/hass",
			ScrapeInterval: 30,
			Timezone:       "UTC",
		},
		HomeAssistant: HomeAssistantConfig{
			Port:    8123,
			Timeout: 10,
		},
		Database: DatabaseConfig{
			Path:        "./data/hassdriver.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Enabled: true,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "hassdriver",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Secrets are expected to arrive this way.
func applyEnvOverrides(cfg *Config) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(envPrefix + key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(envPrefix + key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	// Driver
	setString("DRIVER_DEVICE", &cfg.Driver.Device)
	setString("DRIVER_REGISTRY_FILE", &cfg.Driver.RegistryFile)
	setInt("DRIVER_SCRAPE_INTERVAL", &cfg.Driver.ScrapeInterval)

	// Home Assistant
	setString("HASS_IP_ADDRESS", &cfg.HomeAssistant.IPAddress)
	setString("HASS_ACCESS_TOKEN", &cfg.HomeAssistant.AccessToken)
	setInt("HASS_PORT", &cfg.HomeAssistant.Port)

	// Database
	setString("DATABASE_PATH", &cfg.Database.Path)

	// MQTT
	setString("MQTT_HOST", &cfg.MQTT.Broker.Host)
	setInt("MQTT_PORT", &cfg.MQTT.Broker.Port)
	setString("MQTT_USERNAME", &cfg.MQTT.Auth.Username)
	setString("MQTT_PASSWORD", &cfg.MQTT.Auth.Password)

	// API
	setString("API_HOST", &cfg.API.Host)
	setInt("API_PORT", &cfg.API.Port)

	// InfluxDB
	setString("INFLUXDB_URL", &cfg.InfluxDB.URL)
	setString("INFLUXDB_TOKEN", &cfg.InfluxDB.Token)

	// Logging
	setString("LOG_LEVEL", &cfg.Logging.Level)
	setString("LOG_FORMAT", &cfg.Logging.Format)

	// Security
	setString("JWT_SECRET", &cfg.Security.JWT.Secret)
}

// Validate checks the configuration and reports every problem at once.
//
// Returns:
//   - error: Description of all validation failures, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if strings.TrimSpace(c.Driver.Device) == "" {
		errs = append(errs, "driver.device is required")
	}
	if c.Driver.ScrapeInterval < 1 {
		errs = append(errs, "driver.scrape_interval must be at least 1 second")
	}

	if c.HomeAssistant.IPAddress != "" {
		if c.HomeAssistant.AccessToken == "" {
			errs = append(errs, "home_assistant.access_token is required when ip_address is set (set HASSDRIVER_HASS_ACCESS_TOKEN)")
		}
		if c.HomeAssistant.Port < 1 || c.HomeAssistant.Port > 65535 {
			errs = append(errs, "home_assistant.port must be between 1 and 65535")
		}
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "text", "console":
	default:
		errs = append(errs, "logging.format must be json, text or console")
	}

	const minJWTSecretLength = 32
	if s := c.Security.JWT.Secret; s != "" && len(s) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// ScrapeInterval returns the poll period as a Duration.
func (c *Config) ScrapeInterval() time.Duration {
	return time.Duration(c.Driver.ScrapeInterval) * time.Second
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// String renders the configuration as YAML with secrets replaced.
func (c *Config) String() string {
	safe := *c
	for _, s := range []*string{
		&safe.HomeAssistant.AccessToken,
		&safe.MQTT.Auth.Password,
		&safe.InfluxDB.Token,
		&safe.Security.JWT.Secret,
	} {
		if *s != "" {
			*s = redacted
		}
	}
	out, err := yaml.Marshal(&safe)
	if err != nil {
		return fmt.Sprintf("<config: %v>", err)
	}
	return string(out)
}
