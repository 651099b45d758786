// Package configstore keeps the driver's configuration documents in SQLite.
//
// Entries are named documents ("devices/home/hass", "hass.csv") scoped to an
// agent identity and stored verbatim with a content type (json, csv, yaml or
// raw). A JSON entry may refer to another entry with a "config://<name>"
// string; Resolve follows such references.
//
// The service imports files into the store at start-up and the REST API
// edits entries at run time, so the store is the single source of truth
// for the device config and its registry.
package configstore
