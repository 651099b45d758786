package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/gray-logic-hassdriver/internal/configstore"
	"github.com/nerrad567/gray-logic-hassdriver/internal/drivers/hass"
)

// DriverType is the only driver_type this agent runs.
const DriverType = "home_assistant"

// ConfigStore is the part of *configstore.Store the agent reads from.
type ConfigStore interface {
	GetJSON(ctx context.Context, name string, v any) error
	Resolve(ctx context.Context, ref string) (*configstore.Entry, error)
}

// DeviceConfig is the device entry kept in the config store under
// "devices/<device>":
//
//	{
//	  "driver_config": {"ip_address": "10.0.0.5", "access_token": "...", "port": 8123},
//	  "driver_type": "home_assistant",
//	  "registry_config": "config://hass.csv",
//	  "interval": 30,
//	  "timezone": "Europe/London"
//	}
type DeviceConfig struct {
	DriverConfig   HubSettings `json:"driver_config" yaml:"driver_config"`
	DriverType     string      `json:"driver_type" yaml:"driver_type"`
	RegistryConfig string      `json:"registry_config" yaml:"registry_config"`
	Interval       int         `json:"interval,omitempty" yaml:"interval,omitempty"`
	Timezone       string      `json:"timezone,omitempty" yaml:"timezone,omitempty"`
}

// HubSettings is the driver_config block.
type HubSettings struct {
	IPAddress   string    `json:"ip_address" yaml:"ip_address"`
	AccessToken string    `json:"access_token" yaml:"access_token"`
	Port        hass.Port `json:"port" yaml:"port"`
	Timeout     int       `json:"timeout,omitempty" yaml:"timeout,omitempty"` // seconds
}

// HubConfig converts the block to driver connection parameters.
func (h HubSettings) HubConfig() hass.Config {
	return hass.Config{
		IPAddress:   h.IPAddress,
		AccessToken: h.AccessToken,
		Port:        h.Port,
		Timeout:     time.Duration(h.Timeout) * time.Second,
	}
}

// DeviceEntryName is the config store name of a device's entry.
func DeviceEntryName(device string) string {
	return "devices/" + strings.Trim(device, "/")
}

// LoadDevice reads the device entry for device and the registry it refers
// to. A device entry without registry_config yields no rows.
//
// Returns:
//   - *DeviceConfig: The decoded device entry
//   - []hass.RegistryRow: Registry rows in document order
//   - error: configstore.ErrNotFound, ErrInvalidDeviceConfig or
//     ErrInvalidRegistry
func LoadDevice(ctx context.Context, store ConfigStore, device string) (*DeviceConfig, []hass.RegistryRow, error) {
	var dc DeviceConfig
	if err := store.GetJSON(ctx, DeviceEntryName(device), &dc); err != nil {
		return nil, nil, fmt.Errorf("loading device %s: %w", device, err)
	}
	if dc.DriverType != "" && dc.DriverType != DriverType {
		return nil, nil, fmt.Errorf("%w: driver_type %q, want %q", ErrInvalidDeviceConfig, dc.DriverType, DriverType)
	}
	if dc.Interval < 0 {
		return nil, nil, fmt.Errorf("%w: negative interval %d", ErrInvalidDeviceConfig, dc.Interval)
	}
	if dc.Timezone != "" {
		if _, err := time.LoadLocation(dc.Timezone); err != nil {
			return nil, nil, fmt.Errorf("%w: timezone %q: %v", ErrInvalidDeviceConfig, dc.Timezone, err)
		}
	}

	if strings.TrimSpace(dc.RegistryConfig) == "" {
		return &dc, nil, nil
	}
	entry, err := store.Resolve(ctx, dc.RegistryConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("loading registry %s: %w", dc.RegistryConfig, err)
	}
	rows, err := parseRegistryEntry(entry)
	if err != nil {
		return nil, nil, err
	}
	return &dc, rows, nil
}

// parseRegistryEntry picks the registry parser for the entry's content
// type. Raw entries are tried as JSON.
func parseRegistryEntry(e *configstore.Entry) ([]hass.RegistryRow, error) {
	var (
		rows []hass.RegistryRow
		err  error
	)
	switch e.ContentType {
	case configstore.ContentCSV:
		rows, err = hass.ParseRegistryCSV(strings.NewReader(e.Contents))
	case configstore.ContentYAML:
		rows, err = hass.ParseRegistryYAML([]byte(e.Contents))
	case configstore.ContentJSON, configstore.ContentRaw:
		rows, err = hass.ParseRegistryJSON([]byte(e.Contents))
	default:
		err = fmt.Errorf("unsupported content type %q", e.ContentType)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidRegistry, e.Name, err)
	}
	return rows, nil
}
