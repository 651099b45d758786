package hass

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// defaultRequestTimeout bounds each hub request when Config.Timeout is zero.
const defaultRequestTimeout = 10 * time.Second

// Config holds the hub connection parameters.
type Config struct {
	IPAddress   string        `yaml:"ip_address" json:"ip_address"`
	AccessToken string        `yaml:"access_token" json:"access_token"`
	Port        Port          `yaml:"port" json:"port"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout,omitempty"`
}

// Validate reports every missing or malformed field at once.
//
// Returns:
//   - error: *ConfigError (matching ErrConfiguration), or nil
func (c Config) Validate() error {
	cerr := &ConfigError{}
	if strings.TrimSpace(c.IPAddress) == "" {
		cerr.Missing = append(cerr.Missing, "ip_address")
	}
	if strings.TrimSpace(c.AccessToken) == "" {
		cerr.Missing = append(cerr.Missing, "access_token")
	}
	if c.Port == "" {
		cerr.Missing = append(cerr.Missing, "port")
	} else if _, err := c.Port.Int(); err != nil {
		cerr.Problems = append(cerr.Problems, err.Error())
	}
	if cerr.empty() {
		return nil
	}
	return cerr
}

// BaseURL returns http://<ip_address>:<port>.
func (c Config) BaseURL() string {
	return fmt.Sprintf("http://%s:%s", strings.TrimSpace(c.IPAddress), c.Port)
}

func (c Config) requestTimeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return defaultRequestTimeout
}

// String redacts the access token.
func (c Config) String() string {
	token := ""
	if c.AccessToken != "" {
		token = "[REDACTED]"
	}
	return fmt.Sprintf("{IPAddress:%s AccessToken:%s Port:%s}", c.IPAddress, token, c.Port)
}

// Port is a TCP port that may be written as a number or a string in
// configuration documents.
type Port string

// Int parses the port and checks its range.
func (p Port) Int() (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(string(p)))
	if err != nil || n < 1 || n > 65535 {
		return 0, fmt.Errorf("port %q must be a number between 1 and 65535", string(p))
	}
	return n, nil
}

// UnmarshalJSON accepts 8123 and "8123".
func (p *Port) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*p = Port(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("port: %w", err)
	}
	*p = Port(n.String())
	return nil
}

// UnmarshalYAML accepts any scalar.
func (p *Port) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("port: expected a scalar, got %v", node.Tag)
	}
	if node.Tag == "!!null" {
		*p = ""
		return nil
	}
	*p = Port(strings.TrimSpace(node.Value))
	return nil
}
