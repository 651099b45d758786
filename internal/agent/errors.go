package agent

import "errors"

// Errors returned by the agent.
var (
	// ErrInvalidDeviceConfig is returned when the device config entry is
	// missing fields or names another driver type.
	ErrInvalidDeviceConfig = errors.New("agent: invalid device config")

	// ErrInvalidRegistry is returned when the registry entry cannot be
	// parsed as CSV, JSON or YAML.
	ErrInvalidRegistry = errors.New("agent: invalid registry entry")

	// ErrInvalidCommand is returned for malformed command payloads and
	// unknown actions.
	ErrInvalidCommand = errors.New("agent: invalid command")

	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("agent: already started")
)
