package hass

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors for the Home Assistant driver.
// Use errors.Is to classify failures returned by the driver.
var (
	// ErrConfiguration is returned when connection parameters or the
	// registry are unusable. It is fatal: the driver cannot be configured.
	ErrConfiguration = errors.New("hass: invalid configuration")

	// ErrNotFound is returned when a point name is not in the registry.
	ErrNotFound = errors.New("hass: point not found")

	// ErrReadOnly is returned when writing to a point that is not writable.
	ErrReadOnly = errors.New("hass: point is read-only")

	// ErrTypeCoercion is returned when a value cannot be converted to the
	// point's declared type.
	ErrTypeCoercion = errors.New("hass: type coercion failed")

	// ErrValidation is returned when a value fails a device-class rule,
	// or the domain/sub-point combination is not writable.
	ErrValidation = errors.New("hass: validation failed")

	// ErrHubCommunication is returned for non-200 hub responses and for
	// network failures.
	ErrHubCommunication = errors.New("hass: hub communication failed")

	// ErrUnexpectedState is returned when the hub reports a state string
	// that has no platform mapping (e.g. an unknown HVAC mode).
	ErrUnexpectedState = errors.New("hass: unexpected hub state")

	// ErrNoRevertValue is returned when a point has neither a default nor a
	// captured pre-write value to revert to.
	ErrNoRevertValue = errors.New("hass: no revert value for point")

	// ErrNotConfigured is returned when operations are attempted before
	// Configure has succeeded.
	ErrNotConfigured = errors.New("hass: driver not configured")
)

// ConfigError lists every problem found while validating a configuration.
// Missing holds the names of absent required connection fields; Problems
// holds registry and value errors.
type ConfigError struct {
	Missing  []string
	Problems []string
}

func (e *ConfigError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required fields: "+strings.Join(e.Missing, ", "))
	}
	parts = append(parts, e.Problems...)
	return "hass: configuration errors: " + strings.Join(parts, "; ")
}

func (e *ConfigError) Unwrap() error { return ErrConfiguration }

// empty reports whether no problems were recorded.
func (e *ConfigError) empty() bool {
	return len(e.Missing) == 0 && len(e.Problems) == 0
}

// ValidationError identifies the entity, sub-point and offending value of a
// rejected write.
type ValidationError struct {
	EntityID string
	SubPoint string
	Value    any
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("hass: %s (%s): %s: %v", e.EntityID, e.SubPoint, e.Reason, e.Value)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// invalid builds a ValidationError for a register.
func invalid(reg *Register, value any, format string, args ...any) error {
	return &ValidationError{
		EntityID: reg.EntityID,
		SubPoint: reg.SubPoint,
		Value:    value,
		Reason:   fmt.Sprintf(format, args...),
	}
}

// CoercionError reports a value that cannot be cast to a declared type.
// It matches both ErrTypeCoercion and ErrValidation.
type CoercionError struct {
	Type  ValueType
	Value any
	Err   error
}

func (e *CoercionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("hass: cannot convert %v (%T) to %s: %v", e.Value, e.Value, e.Type, e.Err)
	}
	return fmt.Sprintf("hass: cannot convert %v (%T) to %s", e.Value, e.Value, e.Type)
}

func (e *CoercionError) Unwrap() []error {
	errs := []error{ErrTypeCoercion, ErrValidation}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// HubError describes a failed hub request. StatusCode is zero when the
// request never produced a response.
type HubError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *HubError) Error() string {
	if e.StatusCode == 0 && e.Err != nil {
		return fmt.Sprintf("hass: %s %s: %v", e.Method, e.URL, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("hass: %s %s: status %d: %v", e.Method, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("hass: %s %s: status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

func (e *HubError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrHubCommunication, e.Err}
	}
	return []error{ErrHubCommunication}
}
