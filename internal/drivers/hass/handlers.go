package hass

import (
	"fmt"
	"strings"
)

// EntityState is the body of GET /api/states/{entity_id}. State is the
// raw JSON value (normally a string, nil when absent).
type EntityState struct {
	EntityID    string         `json:"entity_id"`
	State       any            `json:"state"`
	Attributes  map[string]any `json:"attributes"`
	LastChanged string         `json:"last_changed,omitempty"`
	LastUpdated string         `json:"last_updated,omitempty"`
}

// attribute returns the named attribute, or 0 when the hub omits it.
func (s *EntityState) attribute(name string) any {
	if v, ok := s.Attributes[name]; ok {
		return v
	}
	return 0
}

// HubCommand is a service call: POST /api/services/{Domain}/{Service}.
type HubCommand struct {
	Domain  string
	Service string
	Body    map[string]any
}

// Path returns the service URL path.
func (c HubCommand) Path() string {
	return "/api/services/" + c.Domain + "/" + c.Service
}

// newCommand builds a command whose body carries the register's entity id
// plus the given extra fields.
func newCommand(reg *Register, service string, extra ...any) HubCommand {
	body := map[string]any{"entity_id": reg.EntityID}
	for i := 0; i+1 < len(extra); i += 2 {
		body[extra[i].(string)] = extra[i+1]
	}
	return HubCommand{Domain: reg.Domain.String(), Service: service, Body: body}
}

// DomainHandler holds the codec rules of one device class.
//
// Decode converts the hub representation of a sub-point into the platform
// value. Encode converts an already type-coerced platform value into the
// single service call that applies it, or returns a *ValidationError.
type DomainHandler interface {
	Decode(subPoint string, state *EntityState) (any, error)
	Encode(reg *Register, value any) (HubCommand, error)
}

// handlers is the dispatch table, one entry per Domain.
var handlers = map[Domain]DomainHandler{
	DomainLight:        lightHandler{},
	DomainInputBoolean: inputBooleanHandler{},
	DomainClimate:      climateHandler{},
	DomainLock:         lockHandler{},
	DomainFan:          fanHandler{},
	DomainCover:        coverHandler{},
	DomainUnknown:      passthroughHandler{},
}

// HandlerFor returns the handler for a domain.
func HandlerFor(d Domain) DomainHandler {
	if h, ok := handlers[d]; ok {
		return h
	}
	return passthroughHandler{}
}

// decodeOnOff maps "on"/"off" to 1/0 and passes anything else through.
func decodeOnOff(subPoint string, state *EntityState) any {
	if subPoint != subPointState {
		return state.attribute(subPoint)
	}
	switch state.State {
	case "on":
		return 1
	case "off":
		return 0
	}
	return state.State
}

// binary accepts the ints 0 and 1. Bools are accepted as well so that
// registers declared bool can drive on/off points.
func binary(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		if x == 0 || x == 1 {
			return x, true
		}
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func onOffService(on int) string {
	if on == 1 {
		return serviceTurnOn
	}
	return serviceTurnOff
}

// -----------------------------------------------------------------------------
// light
// -----------------------------------------------------------------------------

type lightHandler struct{}

func (lightHandler) Decode(subPoint string, state *EntityState) (any, error) {
	return decodeOnOff(subPoint, state), nil
}

func (lightHandler) Encode(reg *Register, value any) (HubCommand, error) {
	switch reg.SubPoint {
	case subPointState:
		on, ok := binary(value)
		if !ok {
			return HubCommand{}, invalid(reg, value, "light state must be 1 or 0")
		}
		return newCommand(reg, onOffService(on)), nil
	case "brightness":
		b, ok := value.(int)
		if !ok || b < brightnessMin || b > brightnessMax {
			return HubCommand{}, invalid(reg, value, "brightness must be an integer between %d and %d", brightnessMin, brightnessMax)
		}
		return newCommand(reg, serviceTurnOn, "brightness", b), nil
	}
	return HubCommand{}, unsupportedSubPoint(reg, value, "state, brightness")
}

// -----------------------------------------------------------------------------
// input_boolean
// -----------------------------------------------------------------------------

type inputBooleanHandler struct{}

func (inputBooleanHandler) Decode(subPoint string, state *EntityState) (any, error) {
	return decodeOnOff(subPoint, state), nil
}

func (inputBooleanHandler) Encode(reg *Register, value any) (HubCommand, error) {
	if !reg.IsState() {
		return HubCommand{}, unsupportedSubPoint(reg, value, "state")
	}
	on, ok := binary(value)
	if !ok {
		return HubCommand{}, invalid(reg, value, "input_boolean state must be 1 or 0")
	}
	return newCommand(reg, onOffService(on)), nil
}

// -----------------------------------------------------------------------------
// climate
// -----------------------------------------------------------------------------

type climateHandler struct{}

func (climateHandler) Decode(subPoint string, state *EntityState) (any, error) {
	if subPoint != subPointState {
		return state.attribute(subPoint), nil
	}
	if s, ok := state.State.(string); ok {
		if code, ok := hvacModeCodes[s]; ok {
			return code, nil
		}
	}
	return nil, fmt.Errorf("%w: state %v from %s is not supported", ErrUnexpectedState, state.State, state.EntityID)
}

func (climateHandler) Encode(reg *Register, value any) (HubCommand, error) {
	switch reg.SubPoint {
	case subPointState:
		code, ok := value.(int)
		mode, known := hvacCodeModes[code]
		if !ok || !known {
			return HubCommand{}, invalid(reg, value, "climate mode must be 0 (off), 2 (heat), 3 (cool) or 4 (auto)")
		}
		return newCommand(reg, serviceSetHVACMode, "hvac_mode", mode), nil
	case "temperature":
		var temp any
		switch x := value.(type) {
		case int:
			temp = x
		case float64:
			temp = x
		default:
			return HubCommand{}, invalid(reg, value, "temperature must be numeric")
		}
		if celsius(reg.Units) {
			f, _ := toFloat(temp) //nolint:errcheck // temp is int or float64
			temp = fahrenheitToCelsius(f)
		}
		return newCommand(reg, serviceSetTemperature, "temperature", temp), nil
	}
	return HubCommand{}, unsupportedSubPoint(reg, value, "state, temperature")
}

// celsius reports whether a register's units ask for Fahrenheit input to be
// converted before sending.
func celsius(units string) bool {
	return strings.EqualFold(strings.TrimSpace(units), "C")
}

// -----------------------------------------------------------------------------
// lock
// -----------------------------------------------------------------------------

type lockHandler struct{}

// Decode maps "locked"/"unlocked" (any case) to 1/0. Other states, such as
// "jammed" or "unlocking", are passed through unchanged.
func (lockHandler) Decode(subPoint string, state *EntityState) (any, error) {
	if subPoint != subPointState {
		return state.attribute(subPoint), nil
	}
	s, ok := state.State.(string)
	if !ok {
		return state.State, nil
	}
	switch strings.ToLower(s) {
	case "locked":
		return 1, nil
	case "unlocked":
		return 0, nil
	}
	return s, nil
}

func (lockHandler) Encode(reg *Register, value any) (HubCommand, error) {
	if !reg.IsState() {
		return HubCommand{}, unsupportedSubPoint(reg, value, "state")
	}
	service, ok := lockService(value)
	if !ok {
		return HubCommand{}, invalid(reg, value, "unsupported lock command value, accepts 1/0, true/false, lock/unlock")
	}
	return newCommand(reg, service), nil
}

// -----------------------------------------------------------------------------
// fan
// -----------------------------------------------------------------------------

type fanHandler struct{}

func (fanHandler) Decode(subPoint string, state *EntityState) (any, error) {
	return decodeOnOff(subPoint, state), nil
}

func (fanHandler) Encode(reg *Register, value any) (HubCommand, error) {
	switch reg.SubPoint {
	case subPointState:
		on, err := fanIsOn(value)
		if err != nil {
			return HubCommand{}, invalid(reg, value, "%v", err)
		}
		if on {
			return newCommand(reg, serviceTurnOn), nil
		}
		return newCommand(reg, serviceTurnOff), nil
	case "percentage", "speed", "level":
		pct, err := toInt(value)
		if err != nil {
			return HubCommand{}, invalid(reg, value, "fan percentage must be an integer")
		}
		return newCommand(reg, serviceSetPercentage, "percentage", clamp(pct, percentMin, percentMax)), nil
	}
	return HubCommand{}, unsupportedSubPoint(reg, value, "state, percentage, speed, level")
}

// -----------------------------------------------------------------------------
// cover
// -----------------------------------------------------------------------------

type coverHandler struct{}

func (coverHandler) Decode(subPoint string, state *EntityState) (any, error) {
	if subPoint != subPointState {
		return state.attribute(subPoint), nil
	}
	switch state.State {
	case "open":
		return 1, nil
	case "closed":
		return 0, nil
	}
	return state.State, nil
}

func (coverHandler) Encode(reg *Register, value any) (HubCommand, error) {
	switch reg.SubPoint {
	case subPointState:
		service, err := coverService(value)
		if err != nil {
			return HubCommand{}, invalid(reg, value, "%v", err)
		}
		return newCommand(reg, service), nil
	case "position", "percentage", "current_position":
		pos, err := toInt(value)
		if err != nil {
			return HubCommand{}, invalid(reg, value, "cover position must be an integer")
		}
		return newCommand(reg, serviceSetCoverPosition, "position", clamp(pos, percentMin, percentMax)), nil
	}
	return HubCommand{}, unsupportedSubPoint(reg, value, "state, position, percentage, current_position")
}

// -----------------------------------------------------------------------------
// everything else
// -----------------------------------------------------------------------------

// passthroughHandler serves entities outside the recognised domains: reads
// return the raw hub values and writes are always rejected.
type passthroughHandler struct{}

func (passthroughHandler) Decode(subPoint string, state *EntityState) (any, error) {
	if subPoint == subPointState {
		return state.State, nil
	}
	return state.attribute(subPoint), nil
}

func (passthroughHandler) Encode(reg *Register, value any) (HubCommand, error) {
	return HubCommand{}, invalid(reg, value,
		"writes to %q entities are not supported; supported domains are light, input_boolean, climate, lock, fan and cover",
		hubDomain(reg.EntityID))
}

func unsupportedSubPoint(reg *Register, value any, supported string) error {
	return invalid(reg, value, "%s entities do not support writes to %q (supported: %s)", reg.Domain, reg.SubPoint, supported)
}
