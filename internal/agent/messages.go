package agent

import (
	"errors"
	"time"

	"github.com/nerrad567/gray-logic-hassdriver/internal/drivers/hass"
)

// AllPoints is the point name addressing the whole device on the command
// topic: hassdriver/command/<device>/_all.
const AllPoints = "_all"

// Command actions.
const (
	ActionSet    = "set"
	ActionGet    = "get"
	ActionRevert = "revert"
	ActionScrape = "scrape"
)

// PointMeta describes a point's value for consumers of scrape messages.
type PointMeta struct {
	Units string `json:"units"`
	Type  string `json:"type"`
	TZ    string `json:"tz"`
}

// ScrapeMessage is one full scrape of a device.
// Topic: hassdriver/devices/<device>/all (retained)
type ScrapeMessage struct {
	Device    string               `json:"device"`
	Timestamp time.Time            `json:"timestamp"`
	Values    map[string]any       `json:"values"`
	Meta      map[string]PointMeta `json:"meta"`

	// Failed lists points whose read failed in this scrape.
	Failed []string `json:"failed,omitempty"`
}

// PointMessage carries one point's value.
// Topic: hassdriver/devices/<device>/<point> (retained)
type PointMessage struct {
	Timestamp time.Time `json:"timestamp"`
	Value     any       `json:"value"`
	Meta      PointMeta `json:"meta"`
}

// CommandMessage asks the driver to act on a point.
// Topic: hassdriver/command/<device>/<point>
//
//	{"id": "c1", "action": "set", "value": 72}
//
// On the _all point, "revert" reverts every writable point and "scrape"
// (or "get") reads every point.
type CommandMessage struct {
	ID     string `json:"id,omitempty"`
	Action string `json:"action"`
	Value  any    `json:"value,omitempty"`
	Source string `json:"source,omitempty"`
}

// AckStatus is the outcome of a command.
type AckStatus string

const (
	AckSuccess AckStatus = "success"
	AckFailed  AckStatus = "failed"
)

// AckMessage answers a command.
// Topic: hassdriver/ack/<device>/<point>
type AckMessage struct {
	CommandID string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Device    string    `json:"device"`
	Point     string    `json:"point"`
	Action    string    `json:"action"`
	Status    AckStatus `json:"status"`
	Value     any       `json:"value,omitempty"`
	Error     *AckError `json:"error,omitempty"`
}

// AckError details a failed command.
type AckError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes shared by command acks and REST error bodies.
const (
	CodeNotFound        = "NOT_FOUND"
	CodeReadOnly        = "READ_ONLY"
	CodeValidation      = "VALIDATION_ERROR"
	CodeHubError        = "HUB_ERROR"
	CodeUnexpectedState = "UNEXPECTED_STATE"
	CodeNoRevertValue   = "NO_REVERT_VALUE"
	CodeNotConfigured   = "NOT_CONFIGURED"
	CodeInvalidCommand  = "INVALID_COMMAND"
	CodeInternal        = "INTERNAL_ERROR"
)

// ErrorCode classifies a driver error.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, hass.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, hass.ErrReadOnly):
		return CodeReadOnly
	case errors.Is(err, hass.ErrValidation), errors.Is(err, hass.ErrTypeCoercion):
		return CodeValidation
	case errors.Is(err, hass.ErrHubCommunication):
		return CodeHubError
	case errors.Is(err, hass.ErrUnexpectedState):
		return CodeUnexpectedState
	case errors.Is(err, hass.ErrNoRevertValue):
		return CodeNoRevertValue
	case errors.Is(err, hass.ErrNotConfigured), errors.Is(err, hass.ErrConfiguration):
		return CodeNotConfigured
	case errors.Is(err, ErrInvalidCommand):
		return CodeInvalidCommand
	default:
		return CodeInternal
	}
}

func newAck(device, point string, cmd CommandMessage, value any, err error) AckMessage {
	ack := AckMessage{
		CommandID: cmd.ID,
		Timestamp: time.Now().UTC(),
		Device:    device,
		Point:     point,
		Action:    cmd.Action,
		Status:    AckSuccess,
		Value:     value,
	}
	if err != nil {
		ack.Status = AckFailed
		ack.Value = nil
		ack.Error = &AckError{Code: ErrorCode(err), Message: err.Error()}
	}
	return ack
}

// HealthStatus is the device's operational state.
type HealthStatus string

const (
	HealthStarting  HealthStatus = "starting"
	HealthHealthy   HealthStatus = "healthy"
	HealthDegraded  HealthStatus = "degraded"
	HealthUnhealthy HealthStatus = "unhealthy"
	HealthStopping  HealthStatus = "stopping"
)

// HealthMessage reports the agent's state.
// Topic: hassdriver/health/<device> (retained)
type HealthMessage struct {
	Device        string       `json:"device"`
	Timestamp     time.Time    `json:"timestamp"`
	Status        HealthStatus `json:"status"`
	Version       string       `json:"version"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	Points        int          `json:"points"`
	Hub           string       `json:"hub,omitempty"`
	LastScrape    *time.Time   `json:"last_scrape,omitempty"`
	ScrapedOK     int          `json:"scraped_ok"`
	ScrapeFailed  int          `json:"scrape_failed"`
	Reason        string       `json:"reason,omitempty"`
}
