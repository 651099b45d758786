package hass

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValueType is the declared platform type of a register.
type ValueType string

// Supported declared types.
const (
	TypeString ValueType = "string"
	TypeInt    ValueType = "int"
	TypeFloat  ValueType = "float"
	TypeBool   ValueType = "bool"
)

// typeNames maps registry "Type" column values to declared types.
var typeNames = map[string]ValueType{
	"string":  TypeString,
	"int":     TypeInt,
	"integer": TypeInt,
	"float":   TypeFloat,
	"bool":    TypeBool,
	"boolean": TypeBool,
}

// ParseValueType resolves a registry type name. Unknown or empty names
// resolve to TypeString.
func ParseValueType(name string) ValueType {
	if t, ok := typeNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return t
	}
	return TypeString
}

// Hub service names.
const (
	serviceTurnOn           = "turn_on"
	serviceTurnOff          = "turn_off"
	serviceLock             = "lock"
	serviceUnlock           = "unlock"
	serviceSetHVACMode      = "set_hvac_mode"
	serviceSetTemperature   = "set_temperature"
	serviceSetPercentage    = "set_percentage"
	serviceOpenCover        = "open_cover"
	serviceCloseCover       = "close_cover"
	serviceSetCoverPosition = "set_cover_position"
)

// Write-side token tables. Keys are lower-case and trimmed.
var (
	lockCommandTokens = map[string]string{
		"1": serviceLock, "true": serviceLock, "on": serviceLock,
		"lock": serviceLock, "locked": serviceLock,
		"close": serviceLock, "closed": serviceLock,
		"0": serviceUnlock, "false": serviceUnlock, "off": serviceUnlock,
		"unlock": serviceUnlock, "unlocked": serviceUnlock,
		"open": serviceUnlock, "opened": serviceUnlock,
	}

	coverCommandTokens = map[string]string{
		"open": serviceOpenCover, "opened": serviceOpenCover, "on": serviceOpenCover,
		"1": serviceOpenCover, "true": serviceOpenCover,
		"close": serviceCloseCover, "closed": serviceCloseCover, "off": serviceCloseCover,
		"0": serviceCloseCover, "false": serviceCloseCover,
	}

	fanOnTokens = map[string]bool{"on": true, "true": true, "1": true}

	// fanOffTokens is only used to canonicalise symbolic writes; any
	// string outside fanOnTokens switches the fan off.
	fanOffTokens = map[string]bool{"off": true, "false": true, "0": true}
)

// HVAC modes and their platform codes.
var (
	hvacModeCodes = map[string]int{"off": 0, "heat": 2, "cool": 3, "auto": 4}
	hvacCodeModes = map[int]string{0: "off", 2: "heat", 3: "cool", 4: "auto"}
)

// Percentage and brightness bounds.
const (
	percentMin    = 0
	percentMax    = 100
	brightnessMin = 0
	brightnessMax = 255
)

var errNotNumeric = errors.New("not a numeric value")

// Coerce converts v to the Go representation of t: int, float64, bool or
// string. Strings are trimmed before numeric parsing.
//
// Parameters:
//   - t: Declared register type
//   - v: Raw value from the platform (JSON-decoded or native Go)
//
// Returns:
//   - any: Coerced value
//   - error: *CoercionError if the value cannot be represented
func Coerce(t ValueType, v any) (any, error) {
	var (
		out any
		err error
	)
	switch t {
	case TypeInt:
		out, err = toInt(v)
	case TypeFloat:
		out, err = toFloat(v)
	case TypeBool:
		out, err = toBool(v)
	default:
		out, err = toString(v)
	}
	if err != nil {
		return nil, &CoercionError{Type: t, Value: v, Err: err}
	}
	return out, nil
}

// toInt truncates floats toward zero and parses base-10 integer strings.
// Values outside the int range saturate to math.MinInt or math.MaxInt.
func toInt(v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int8:
		return int(x), nil
	case int16:
		return int(x), nil
	case int32:
		return int(x), nil
	case int64:
		return int(x), nil
	case uint:
		return uintToInt(uint64(x)), nil
	case uint8:
		return int(x), nil
	case uint16:
		return int(x), nil
	case uint32:
		return int(x), nil
	case uint64:
		return uintToInt(x), nil
	case float32:
		return floatToInt(float64(x))
	case float64:
		return floatToInt(x)
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return int(i), nil
		}
		f, err := x.Float64()
		if err != nil {
			return 0, errNotNumeric
		}
		return floatToInt(f)
	case string:
		s := strings.TrimSpace(x)
		i, err := strconv.Atoi(s)
		if errors.Is(err, strconv.ErrRange) {
			if strings.HasPrefix(s, "-") {
				return math.MinInt, nil
			}
			return math.MaxInt, nil
		}
		if err != nil {
			return 0, errNotNumeric
		}
		return i, nil
	case nil:
		return 0, errors.New("value is null")
	}
	return 0, fmt.Errorf("unsupported type %T", v)
}

func floatToInt(f float64) (int, error) {
	switch {
	case math.IsNaN(f) || math.IsInf(f, 0):
		return 0, errNotNumeric
	case f >= math.MaxInt:
		return math.MaxInt, nil
	case f <= math.MinInt:
		return math.MinInt, nil
	}
	return int(f), nil
}

func uintToInt(u uint64) int {
	if u > math.MaxInt {
		return math.MaxInt
	}
	return int(u)
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, errNotNumeric
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, errNotNumeric
		}
		return f, nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case nil:
		return 0, errors.New("value is null")
	}
	i, err := toInt(v)
	if err != nil {
		return 0, err
	}
	return float64(i), nil
}

// toBool accepts bools, numbers (non-zero is true) and the strings
// understood by strconv.ParseBool plus on/off and yes/no.
func toBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		s := strings.ToLower(strings.TrimSpace(x))
		switch s {
		case "on", "yes":
			return true, nil
		case "off", "no":
			return false, nil
		}
		b, err := strconv.ParseBool(s)
		if err != nil {
			return false, fmt.Errorf("%q is not a boolean", x)
		}
		return b, nil
	case nil:
		return false, errors.New("value is null")
	}
	f, err := toFloat(v)
	if err != nil {
		return false, err
	}
	return f != 0, nil
}

func toString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case bool:
		return strconv.FormatBool(x), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), nil
	case json.Number:
		return x.String(), nil
	case fmt.Stringer:
		return x.String(), nil
	case nil:
		return "", errors.New("value is null")
	}
	if i, err := toInt(v); err == nil {
		return strconv.Itoa(i), nil
	}
	return "", fmt.Errorf("unsupported type %T", v)
}

// normalizeToken lower-cases and trims a string value.
func normalizeToken(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// lockService maps a write value to "lock" or "unlock". Bools map
// directly, numbers by their integer part (1 or 0), strings through
// lockCommandTokens.
func lockService(v any) (string, bool) {
	switch x := v.(type) {
	case bool:
		if x {
			return serviceLock, true
		}
		return serviceUnlock, true
	case string:
		s, ok := lockCommandTokens[normalizeToken(x)]
		return s, ok
	}
	if n, ok := numericInt(v); ok {
		switch n {
		case 1:
			return serviceLock, true
		case 0:
			return serviceUnlock, true
		}
	}
	return "", false
}

// coverService maps a cover state write to open_cover or close_cover.
// Floats are rejected; bools and ints use their truthiness.
func coverService(v any) (string, error) {
	switch x := v.(type) {
	case string:
		if s, ok := coverCommandTokens[normalizeToken(x)]; ok {
			return s, nil
		}
		return "", errors.New("unsupported cover state value")
	case bool:
		if x {
			return serviceOpenCover, nil
		}
		return serviceCloseCover, nil
	case int:
		if x != 0 {
			return serviceOpenCover, nil
		}
		return serviceCloseCover, nil
	}
	return "", fmt.Errorf("unsupported cover state value type %T", v)
}

// fanIsOn interprets a fan state write. Strings are on only for the tokens
// on/true/1; bools and ints use their truthiness; floats are rejected.
func fanIsOn(v any) (bool, error) {
	switch x := v.(type) {
	case string:
		return fanOnTokens[normalizeToken(x)], nil
	case bool:
		return x, nil
	case int:
		return x != 0, nil
	}
	return false, fmt.Errorf("unsupported fan state value type %T", v)
}

// numericInt returns the integer part of numeric values only.
func numericInt(v any) (int, bool) {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, json.Number:
		n, err := toInt(v)
		return n, err == nil
	}
	return 0, false
}

// clamp bounds n to [lo, hi].
func clamp(n, lo, hi int) int {
	return max(lo, min(hi, n))
}

// fahrenheitToCelsius converts and rounds to one decimal place.
func fahrenheitToCelsius(f float64) float64 {
	return math.Round((f-32)*5/9*10) / 10
}

// canonicalWrite maps the symbolic state tokens accepted by locks, covers
// and fans ("locked", "open", "on") to 1 or 0 so that registers declared
// int, float or bool accept them.
// Values it does not recognise are returned unchanged.
func canonicalWrite(d Domain, subPoint string, v any) any {
	s, ok := v.(string)
	if !ok || subPoint != subPointState {
		return v
	}
	token := normalizeToken(s)
	var on, off bool
	switch d {
	case DomainLock:
		svc := lockCommandTokens[token]
		on, off = svc == serviceLock, svc == serviceUnlock
	case DomainCover:
		svc := coverCommandTokens[token]
		on, off = svc == serviceOpenCover, svc == serviceCloseCover
	case DomainFan:
		on, off = fanOnTokens[token], fanOffTokens[token]
	}
	switch {
	case on:
		return 1
	case off:
		return 0
	}
	return v
}
