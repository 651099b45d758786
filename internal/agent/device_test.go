package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/gray-logic-hassdriver/internal/configstore"
)

func TestLoadDevice_RegistryFormats(t *testing.T) {
	tests := []struct {
		name  string
		entry string
		data  string
		ct    configstore.ContentType
	}{
		{"csv", "hass.csv", testRegistry, configstore.ContentCSV},
		{"json", "hass.json", `[{"Entity ID":"light.a","Entity Point":"state","Volttron Point Name":"a","Type":"int"}]`, configstore.ContentJSON},
		{"yaml", "hass.yaml", "- Entity ID: light.a\n  Entity Point: state\n  Volttron Point Name: a\n  Type: int\n", configstore.ContentYAML},
		{"raw json", "hass.txt", `[{"Entity ID":"light.a","Entity Point":"state","Volttron Point Name":"a"}]`, configstore.ContentRaw},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t)
			ctx := context.Background()
			require.NoError(t, store.Put(ctx, tt.entry, []byte(tt.data), tt.ct))
			dc := validDevice()
			dc.RegistryConfig = "config://" + tt.entry
			putDevice(t, store, dc)

			got, rows, err := LoadDevice(ctx, store, testDevice)
			require.NoError(t, err)
			assert.NotEmpty(t, rows)
			assert.Equal(t, 3600, got.Interval)
			assert.Equal(t, "http://10.0.0.5:8123", got.DriverConfig.HubConfig().BaseURL())
		})
	}
}

func TestLoadDevice_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing entry", func(t *testing.T) {
		_, _, err := LoadDevice(ctx, newTestStore(t), testDevice)
		assert.ErrorIs(t, err, configstore.ErrNotFound)
	})

	t.Run("wrong driver type", func(t *testing.T) {
		store := newTestStore(t)
		dc := validDevice()
		dc.DriverType = "modbus"
		putDevice(t, store, dc)
		_, _, err := LoadDevice(ctx, store, testDevice)
		assert.ErrorIs(t, err, ErrInvalidDeviceConfig)
	})

	t.Run("bad timezone", func(t *testing.T) {
		store := newTestStore(t)
		dc := validDevice()
		dc.Timezone = "Mars/Olympus"
		putDevice(t, store, dc)
		_, _, err := LoadDevice(ctx, store, testDevice)
		assert.ErrorIs(t, err, ErrInvalidDeviceConfig)
	})

	t.Run("missing registry entry", func(t *testing.T) {
		store := newTestStore(t)
		putDevice(t, store, validDevice())
		_, _, err := LoadDevice(ctx, store, testDevice)
		assert.ErrorIs(t, err, configstore.ErrNotFound)
	})

	t.Run("unparsable registry", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.Put(ctx, "hass.csv", []byte("just a header\n"), configstore.ContentCSV))
		putDevice(t, store, validDevice())
		_, _, err := LoadDevice(ctx, store, testDevice)
		assert.ErrorIs(t, err, ErrInvalidRegistry)
	})
}

func TestLoadDevice_NoRegistry(t *testing.T) {
	store := newTestStore(t)
	dc := validDevice()
	dc.RegistryConfig = ""
	dc.DriverType = ""
	putDevice(t, store, dc)

	got, rows, err := LoadDevice(context.Background(), store, testDevice)
	require.NoError(t, err)
	assert.Nil(t, rows)
	assert.Equal(t, "Europe/London", got.Timezone)
}

func TestLoadDevice_PortAsString(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, DeviceEntryName(testDevice), []byte(
		`{"driver_config":{"ip_address":"hass.local","access_token":"t","port":"8124"},"registry_config":""}`),
		configstore.ContentJSON))

	got, _, err := LoadDevice(ctx, store, testDevice)
	require.NoError(t, err)
	assert.Equal(t, "http://hass.local:8124", got.DriverConfig.HubConfig().BaseURL())
}
