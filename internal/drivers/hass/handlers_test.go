package hass

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainOf(t *testing.T) {
	tests := []struct {
		entityID string
		want     Domain
	}{
		{"light.kitchen", DomainLight},
		{"input_boolean.away_mode", DomainInputBoolean},
		{"climate.hallway", DomainClimate},
		{"lock.front_door", DomainLock},
		{"fan.bedroom", DomainFan},
		{"cover.living_blinds", DomainCover},
		{"switch.heater", DomainUnknown},
		{"sensor.light_level", DomainUnknown},
		{"lights.kitchen", DomainUnknown},
		{"", DomainUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.entityID, func(t *testing.T) {
			if got := DomainOf(tt.entityID); got != tt.want {
				t.Errorf("DomainOf(%q) = %v, want %v", tt.entityID, got, tt.want)
			}
		})
	}
}

func TestHandlers_Decode(t *testing.T) {
	attrs := map[string]any{"brightness": 180.0, "temperature": 21.5, "current_position": 40.0}
	tests := []struct {
		name     string
		entityID string
		subPoint string
		state    any
		want     any
		wantErr  error
	}{
		{"light on", "light.kitchen", "state", "on", 1, nil},
		{"light off", "light.kitchen", "state", "off", 0, nil},
		{"light unavailable passes through", "light.kitchen", "state", "unavailable", "unavailable", nil},
		{"light brightness", "light.kitchen", "brightness", "on", 180.0, nil},
		{"light missing attribute is zero", "light.kitchen", "color_temp", "on", 0, nil},
		{"input_boolean on", "input_boolean.away", "state", "on", 1, nil},
		{"input_boolean off", "input_boolean.away", "state", "off", 0, nil},
		{"climate off", "climate.hall", "state", "off", 0, nil},
		{"climate heat", "climate.hall", "state", "heat", 2, nil},
		{"climate cool", "climate.hall", "state", "cool", 3, nil},
		{"climate auto", "climate.hall", "state", "auto", 4, nil},
		{"climate unknown mode", "climate.hall", "state", "dry", nil, ErrUnexpectedState},
		{"climate temperature", "climate.hall", "temperature", "heat", 21.5, nil},
		{"lock locked", "lock.front", "state", "locked", 1, nil},
		{"lock unlocked", "lock.front", "state", "unlocked", 0, nil},
		{"lock upper case", "lock.front", "state", "LOCKED", 1, nil},
		{"lock jammed kept raw", "lock.front", "state", "jammed", "jammed", nil},
		{"lock null stays null", "lock.front", "state", nil, nil, nil},
		{"fan on", "fan.bed", "state", "on", 1, nil},
		{"fan off", "fan.bed", "state", "off", 0, nil},
		{"cover open", "cover.blinds", "state", "open", 1, nil},
		{"cover closed", "cover.blinds", "state", "closed", 0, nil},
		{"cover opening kept raw", "cover.blinds", "state", "opening", "opening", nil},
		{"cover position", "cover.blinds", "current_position", "open", 40.0, nil},
		{"unknown domain state raw", "sensor.outside", "state", "12.3", "12.3", nil},
		{"unknown domain attribute default", "sensor.outside", "battery", "12.3", 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &EntityState{EntityID: tt.entityID, State: tt.state, Attributes: attrs}
			got, err := HandlerFor(DomainOf(tt.entityID)).Decode(tt.subPoint, state)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "error %v is not %v", err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHandlers_Encode(t *testing.T) {
	tests := []struct {
		name        string
		entityID    string
		subPoint    string
		units       string
		value       any
		wantService string
		wantBody    map[string]any
		wantErr     bool
	}{
		{"light on", "light.k", "state", "", 1, "light/turn_on", map[string]any{}, false},
		{"light off", "light.k", "state", "", 0, "light/turn_off", map[string]any{}, false},
		{"light bool on", "light.k", "state", "", true, "light/turn_on", map[string]any{}, false},
		{"light state 2 rejected", "light.k", "state", "", 2, "", nil, true},
		{"light state string rejected", "light.k", "state", "", "on", "", nil, true},
		{"light brightness", "light.k", "brightness", "", 128, "light/turn_on", map[string]any{"brightness": 128}, false},
		{"light brightness max", "light.k", "brightness", "", 255, "light/turn_on", map[string]any{"brightness": 255}, false},
		{"light brightness too high", "light.k", "brightness", "", 256, "", nil, true},
		{"light brightness negative", "light.k", "brightness", "", -1, "", nil, true},
		{"light brightness float rejected", "light.k", "brightness", "", 12.5, "", nil, true},
		{"light color rejected", "light.k", "rgb_color", "", 1, "", nil, true},
		{"input_boolean on", "input_boolean.a", "state", "", 1, "input_boolean/turn_on", map[string]any{}, false},
		{"input_boolean off", "input_boolean.a", "state", "", 0, "input_boolean/turn_off", map[string]any{}, false},
		{"input_boolean attribute rejected", "input_boolean.a", "icon", "", 1, "", nil, true},
		{"climate heat", "climate.h", "state", "", 2, "climate/set_hvac_mode", map[string]any{"hvac_mode": "heat"}, false},
		{"climate off", "climate.h", "state", "", 0, "climate/set_hvac_mode", map[string]any{"hvac_mode": "off"}, false},
		{"climate mode 1 rejected", "climate.h", "state", "", 1, "", nil, true},
		{"climate temperature F", "climate.h", "temperature", "F", 70, "climate/set_temperature", map[string]any{"temperature": 70}, false},
		{"climate temperature C from 32F", "climate.h", "temperature", "C", 32, "climate/set_temperature", map[string]any{"temperature": 0.0}, false},
		{"climate temperature C from 212F", "climate.h", "temperature", "C", 212.0, "climate/set_temperature", map[string]any{"temperature": 100.0}, false},
		{"climate temperature string rejected", "climate.h", "temperature", "C", "warm", "", nil, true},
		{"climate humidity rejected", "climate.h", "humidity", "", 40, "", nil, true},
		{"lock from int", "lock.f", "state", "", 1, "lock/lock", map[string]any{}, false},
		{"lock from word", "lock.f", "state", "", "Unlocked", "lock/unlock", map[string]any{}, false},
		{"lock bad token", "lock.f", "state", "", "jammed", "", nil, true},
		{"lock attribute rejected", "lock.f", "code", "", "1234", "", nil, true},
		{"fan on", "fan.b", "state", "", "on", "fan/turn_on", map[string]any{}, false},
		{"fan any other string off", "fan.b", "state", "", "nope", "fan/turn_off", map[string]any{}, false},
		{"fan float rejected", "fan.b", "state", "", 1.0, "", nil, true},
		{"fan percentage", "fan.b", "percentage", "", 55, "fan/set_percentage", map[string]any{"percentage": 55}, false},
		{"fan speed clamped high", "fan.b", "speed", "", 150, "fan/set_percentage", map[string]any{"percentage": 100}, false},
		{"fan level clamped low", "fan.b", "level", "", -20, "fan/set_percentage", map[string]any{"percentage": 0}, false},
		{"fan percentage from string", "fan.b", "percentage", "", "40", "fan/set_percentage", map[string]any{"percentage": 40}, false},
		{"fan percentage non numeric", "fan.b", "percentage", "", "fast", "", nil, true},
		{"fan direction rejected", "fan.b", "direction", "", "forward", "", nil, true},
		{"cover open", "cover.c", "state", "", "opened", "cover/open_cover", map[string]any{}, false},
		{"cover close int", "cover.c", "state", "", 0, "cover/close_cover", map[string]any{}, false},
		{"cover bad token", "cover.c", "state", "", "ajar", "", nil, true},
		{"cover position", "cover.c", "position", "", 30, "cover/set_cover_position", map[string]any{"position": 30}, false},
		{"cover percentage clamped", "cover.c", "percentage", "", 140, "cover/set_cover_position", map[string]any{"position": 100}, false},
		{"cover current_position clamped", "cover.c", "current_position", "", -3, "cover/set_cover_position", map[string]any{"position": 0}, false},
		{"cover position non numeric", "cover.c", "position", "", "abc", "", nil, true},
		{"cover color rejected", "cover.c", "color", "", 1, "", nil, true},
		{"switch rejected", "switch.heater", "state", "", 1, "", nil, true},
		{"sensor attribute rejected", "sensor.t", "unit", "", "C", "", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegister("p", tt.entityID, tt.subPoint, TypeString, false)
			reg.Units = tt.units
			cmd, err := HandlerFor(reg.Domain).Encode(reg, tt.value)
			if tt.wantErr {
				require.Error(t, err)
				var verr *ValidationError
				require.True(t, errors.As(err, &verr), "want *ValidationError, got %T", err)
				assert.Equal(t, tt.entityID, verr.EntityID)
				assert.Equal(t, tt.subPoint, verr.SubPoint)
				assert.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantService, cmd.Domain+"/"+cmd.Service)
			want := map[string]any{"entity_id": tt.entityID}
			for k, v := range tt.wantBody {
				want[k] = v
			}
			assert.Equal(t, want, cmd.Body)
		})
	}
}

func TestHubCommand_Path(t *testing.T) {
	cmd := HubCommand{Domain: "cover", Service: "set_cover_position"}
	assert.Equal(t, "/api/services/cover/set_cover_position", cmd.Path())
}
