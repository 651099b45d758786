// Package influxdb records Home Assistant driver telemetry in InfluxDB v2.
//
// Two measurements are written, both tagged with the device path:
//   - driver_scrape: one row per scrape_all run (ok, failed, duration_ms)
//   - driver_command: one row per set, get or revert issued over MQTT or
//     the REST API (success, duration_ms, error)
//
// Writes go through the library's batching write API and never block the
// poll loop. Telemetry is optional; Connect returns ErrDisabled when
// influxdb.enabled is false and callers carry on without it.
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // run without telemetry
//	}
//	client.SetOnError(func(err error) { log.Warn("telemetry write failed", "error", err) })
//	defer client.Close()
package influxdb
