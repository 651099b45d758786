// Package agent runs a Home Assistant driver as a platform agent.
//
// An Agent owns one device. It reads the device entry
// ("devices/<device>") and the registry it references from the config
// store, configures a hass.Driver with them, then:
//   - scrapes every point on a ticker and publishes the result retained on
//     hassdriver/devices/<device>/all, plus one retained message per point
//   - answers set, get and revert commands from
//     hassdriver/command/<device>/<point> on hassdriver/ack/<device>/<point>
//   - reports health on hassdriver/health/<device>
//
// Telemetry (Metrics) and live subscribers (Observer) are optional
// collaborators told about every scrape and command. The REST API calls
// the same Agent methods as the MQTT handler, so both surfaces behave
// identically.
package agent
