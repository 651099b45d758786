// Package hass implements the Home Assistant driver: a register translation
// engine between the platform's point model and the hub's REST entity and
// service model.
//
// # Architecture
//
//	┌──────────────┐  points   ┌──────────────┐   REST    ┌──────────────┐
//	│   Platform   │◄─────────►│    Driver    │◄─────────►│    Home      │
//	│ (agent, API) │           │  (this pkg)  │  bearer   │  Assistant   │
//	└──────────────┘           └──────────────┘           └──────────────┘
//
// A registry of rows (CSV, JSON or YAML) is parsed into Registers. Each
// Register binds a platform point name to an entity id ("lock.front_door")
// and a sub-point: either "state" or an attribute name such as
// "brightness". The entity's domain (light, input_boolean, climate, lock,
// fan, cover) is derived once and selects a DomainHandler.
//
// # Read path
//
// ScrapeAll and GetPoint fetch GET /api/states/{entity_id} and decode the
// state or attribute. On/off states become 1/0, "locked"/"unlocked" become
// 1/0, HVAC modes become 0/2/3/4 (off/heat/cool/auto). Anything without a
// mapping is passed through. A failing point is logged and omitted from
// the scrape result.
//
// # Write path
//
// SetPoint coerces the value to the point's declared type, validates it
// against the domain rules and posts exactly one service call, for example:
//
//	driver.SetPoint(ctx, "front_door_lock_state", "locked")
//	// POST /api/services/lock/lock {"entity_id":"lock.front_door"}
//
// Percentages and cover positions are clamped to 0..100. Thermostat
// temperatures are converted from Fahrenheit when the point's units are
// "C". Writes never update the cached value; the next scrape does.
//
// # Errors
//
// All failures match one of the sentinels in errors.go with errors.Is:
// ErrConfiguration, ErrNotFound, ErrReadOnly, ErrTypeCoercion,
// ErrValidation and ErrHubCommunication.
package hass
