package mqtt

import (
	"fmt"
	"strings"
)

// TopicRoot prefixes every topic the driver publishes or subscribes to.
//
// Layout:
//
//	hassdriver/devices/<device>/all       retained scrape of every point
//	hassdriver/devices/<device>/<point>   retained value of one point
//	hassdriver/command/<device>/<point>   commands in
//	hassdriver/ack/<device>/<point>       command results out
//	hassdriver/health/<device>            retained device health
//	hassdriver/system/status              retained online/offline, last will
//
// Device paths may contain slashes ("campus/building/hass"). Point names
// are always the remainder after the device path.
const TopicRoot = "hassdriver"

// Topics builds driver topics.
type Topics struct{}

// DeviceAll is the topic for a full scrape of a device.
func (Topics) DeviceAll(device string) string {
	return fmt.Sprintf("%s/devices/%s/all", TopicRoot, device)
}

// DevicePoint is the topic for one point's value.
func (Topics) DevicePoint(device, point string) string {
	return fmt.Sprintf("%s/devices/%s/%s", TopicRoot, device, point)
}

// Command is the topic a client publishes to in order to act on a point.
func (Topics) Command(device, point string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicRoot, device, point)
}

// CommandFilter matches every command addressed to device.
func (Topics) CommandFilter(device string) string {
	return fmt.Sprintf("%s/command/%s/#", TopicRoot, device)
}

// Ack is the topic a command's result is published on.
func (Topics) Ack(device, point string) string {
	return fmt.Sprintf("%s/ack/%s/%s", TopicRoot, device, point)
}

// Health is the topic for a device's health report.
func (Topics) Health(device string) string {
	return fmt.Sprintf("%s/health/%s", TopicRoot, device)
}

// SystemStatus is the driver's online/offline topic.
func (Topics) SystemStatus() string {
	return TopicRoot + "/system/status"
}

// CommandPoint extracts the point name from a command topic for device.
// ok is false when topic is not a command for device or names no point.
func (Topics) CommandPoint(device, topic string) (point string, ok bool) {
	prefix := fmt.Sprintf("%s/command/%s/", TopicRoot, device)
	point, ok = strings.CutPrefix(topic, prefix)
	if !ok || point == "" {
		return "", false
	}
	return point, true
}

// ValidateDevice rejects device paths that cannot be embedded in a topic.
func ValidateDevice(device string) error {
	if device == "" || strings.HasPrefix(device, "/") || strings.HasSuffix(device, "/") {
		return fmt.Errorf("%w: device %q", ErrInvalidTopic, device)
	}
	if strings.ContainsAny(device, "+#") || strings.Contains(device, "//") {
		return fmt.Errorf("%w: device %q", ErrInvalidTopic, device)
	}
	return nil
}

// validatePublishTopic rejects empty topics and wildcards, which MQTT
// forbids in a publish.
func validatePublishTopic(topic string) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if strings.ContainsAny(topic, "+#") {
		return fmt.Errorf("%w: wildcard in publish topic %q", ErrInvalidTopic, topic)
	}
	return nil
}
